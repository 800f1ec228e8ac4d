package binder_test

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wamux/pkg/binder"
)

type sendRequest struct {
	TenantID  string `json:"tenant_id"`
	Recipient string `json:"recipient"`
	Body      string `json:"body"`
}

func jsonRequest(body, contentType string) *http.Request {
	r := httptest.NewRequest(http.MethodPost, "/api/messages", strings.NewReader(body))
	if contentType != "" {
		r.Header.Set("Content-Type", contentType)
	}
	return r
}

func TestJSON(t *testing.T) {
	t.Parallel()
	bind := binder.JSON()

	t.Run("valid", func(t *testing.T) {
		t.Parallel()
		var req sendRequest
		r := jsonRequest(`{"tenant_id":"school-1","recipient":"5511999999999","body":"hi"}`, "application/json; charset=utf-8")
		require.NoError(t, bind(r, &req))
		assert.Equal(t, sendRequest{TenantID: "school-1", Recipient: "5511999999999", Body: "hi"}, req)
	})

	tests := []struct {
		name        string
		body        string
		contentType string
		want        error
	}{
		{"missing content type", `{}`, "", binder.ErrUnsupportedMediaType},
		{"wrong media type", `{}`, "text/plain", binder.ErrUnsupportedMediaType},
		{"empty body", ``, "application/json", binder.ErrInvalidJSON},
		{"malformed", `{"tenant_id":`, "application/json", binder.ErrInvalidJSON},
		{"unknown field", `{"tenant":"x"}`, "application/json", binder.ErrInvalidJSON},
		{"wrong type", `{"body":42}`, "application/json", binder.ErrInvalidJSON},
		{"trailing data", `{"body":"a"}{"body":"b"}`, "application/json", binder.ErrInvalidJSON},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			var req sendRequest
			assert.ErrorIs(t, bind(jsonRequest(tt.body, tt.contentType), &req), tt.want)
		})
	}
}

func TestJSONWithLimit(t *testing.T) {
	t.Parallel()

	var req sendRequest
	body := `{"body":"` + strings.Repeat("x", 64) + `"}`
	err := binder.JSONWithLimit(32)(jsonRequest(body, "application/json"), &req)
	assert.ErrorIs(t, err, binder.ErrBodyTooLarge)

	require.NoError(t, binder.JSONWithLimit(1024)(jsonRequest(body, "application/json"), &req))
	assert.Len(t, req.Body, 64)
}

func TestJSONDecodesCredentialBytes(t *testing.T) {
	t.Parallel()

	var req struct {
		Credential []byte `json:"credential"`
	}
	// "c2Vzc2lvbg==" is base64 for "session"
	require.NoError(t, binder.JSON()(jsonRequest(`{"credential":"c2Vzc2lvbg=="}`, "application/json"), &req))
	assert.Equal(t, []byte("session"), req.Credential)
}

func TestQuery(t *testing.T) {
	t.Parallel()

	type listRequest struct {
		Status  []string `query:"status"`
		Owner   string   `query:"owner"`
		Limit   int      `query:"limit"`
		Verbose *bool    `query:"verbose"`
		Skipped string   `query:"-"`
	}

	r := httptest.NewRequest(http.MethodGet, "/api/sessions?status=ready,awaiting_scan&status=failed&owner=conn-1&limit=5&verbose=yes&Skipped=x", nil)
	var req listRequest
	require.NoError(t, binder.Query()(r, &req))
	assert.Equal(t, []string{"ready", "awaiting_scan", "failed"}, req.Status)
	assert.Equal(t, "conn-1", req.Owner)
	assert.Equal(t, 5, req.Limit)
	require.NotNil(t, req.Verbose)
	assert.True(t, *req.Verbose)
	assert.Empty(t, req.Skipped)

	bad := httptest.NewRequest(http.MethodGet, "/api/sessions?limit=many", nil)
	assert.ErrorIs(t, binder.Query()(bad, &req), binder.ErrInvalidQuery)

	var notStruct string
	assert.ErrorIs(t, binder.Query()(r, &notStruct), binder.ErrInvalidQuery)
	assert.ErrorIs(t, binder.Query()(r, nil), binder.ErrInvalidQuery)
}

func TestPath(t *testing.T) {
	t.Parallel()

	type stopRequest struct {
		TenantID string `path:"tenantID"`
		Attempt  uint   `path:"attempt"`
	}
	params := map[string]string{"tenantID": "school-7", "attempt": "3"}
	extract := func(_ *http.Request, name string) string { return params[name] }

	var req stopRequest
	r := httptest.NewRequest(http.MethodDelete, "/api/sessions/school-7", nil)
	require.NoError(t, binder.Path(extract)(r, &req))
	assert.Equal(t, stopRequest{TenantID: "school-7", Attempt: 3}, req)

	assert.ErrorIs(t, binder.Path(nil)(r, &req), binder.ErrInvalidPath)

	params["attempt"] = "-1"
	assert.ErrorIs(t, binder.Path(extract)(r, &req), binder.ErrInvalidPath)
}
