package binder

import "net/http"

// Query binds URL query parameters into struct fields tagged `query:"name"`.
// Slices accept repeated or comma separated values.
//
//	type ListRequest struct {
//		Status []string `query:"status"`
//		Owner  string   `query:"owner"`
//	}
func Query() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		q := r.URL.Query()
		return bindFields(v, "query", func(name string) []string { return q[name] }, ErrInvalidQuery)
	}
}
