package supervisor_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/wamux/pkg/supervisor"
)

func TestKind(t *testing.T) {
	t.Parallel()

	cause := errors.New("timeout")
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{supervisor.ErrInvalidInput, supervisor.KindInvalidInput},
		{errors.Join(supervisor.ErrSessionNotFound, cause), supervisor.KindSessionNotFound},
		{fmt.Errorf("wrapped: %w", supervisor.ErrSessionNotReady), supervisor.KindSessionNotReady},
		{errors.Join(supervisor.ErrDeliveryFailed, cause), supervisor.KindDeliveryFailed},
		{supervisor.ErrPersistenceFailure, ""},
		{cause, ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, supervisor.Kind(tt.err), "%v", tt.err)
	}
}
