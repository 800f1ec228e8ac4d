package binder

import (
	"fmt"
	"net/http"
)

// Path binds router path parameters into struct fields tagged `path:"name"`.
// The extractor is router specific; with chi pass chi.URLParam.
//
//	type StopRequest struct {
//		TenantID string `path:"tenantID"`
//	}
//
//	r.Delete("/api/sessions/{tenantID}", handler.Wrap(stop,
//		handler.WithBinders[StopRequest](binder.Path(chi.URLParam)),
//	))
func Path(extractor func(r *http.Request, name string) string) func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		if extractor == nil {
			return fmt.Errorf("%w: extractor function is nil", ErrInvalidPath)
		}
		return bindFields(v, "path", func(name string) []string {
			if value := extractor(r, name); value != "" {
				return []string{value}
			}
			return nil
		}, ErrInvalidPath)
	}
}
