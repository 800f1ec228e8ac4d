// Package binder fills request structs from JSON bodies, query strings and
// router path parameters.
//
// Every binder has the signature func(*http.Request, any) error so it can be
// plugged into handler.WithBinders. Binders only touch fields carrying their
// own tag (json, query or path), so several can be applied to one struct:
//
//	type StopRequest struct {
//		TenantID string `path:"tenantID"`
//		Force    bool   `query:"force"`
//	}
//
// Failures wrap one of the package errors (ErrInvalidJSON,
// ErrUnsupportedMediaType, ...) so callers can map them to 4xx responses
// with errors.Is.
package binder
