package credstore

import (
	"context"
	"regexp"
)

// Store persists one opaque credential blob per tenant.
//
// Retrieve returns ErrNotFound when nothing is stored. Delete of a missing
// tenant is not an error. Exists swallows backend errors and reports false.
// Implementations must be safe for concurrent use.
type Store interface {
	Retrieve(ctx context.Context, tenantID string) ([]byte, error)
	Save(ctx context.Context, tenantID string, credential []byte) error
	Delete(ctx context.Context, tenantID string) error
	Exists(ctx context.Context, tenantID string) bool
}

// MaxTenantIDLength bounds tenant ids so they fit in file names, Redis keys
// and S3 object keys without escaping.
const MaxTenantIDLength = 128

var tenantIDPattern = regexp.MustCompile(`^[A-Za-z0-9_.-]+$`)

// ValidateTenantID rejects ids that cannot be used as a storage key as-is.
func ValidateTenantID(id string) error {
	if id == "" || len(id) > MaxTenantIDLength || id == "." || id == ".." || !tenantIDPattern.MatchString(id) {
		return ErrInvalidTenantID
	}
	return nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
