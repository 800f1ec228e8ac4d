package binder

import "errors"

// Binding failures. Each returned error wraps exactly one of these.
var (
	ErrUnsupportedMediaType = errors.New("binder: content type is not application/json")
	ErrBodyTooLarge         = errors.New("binder: request body exceeds limit")
	ErrInvalidJSON          = errors.New("binder: malformed JSON body")
	ErrInvalidQuery         = errors.New("binder: bad query parameter")
	ErrInvalidPath          = errors.New("binder: bad path parameter")
)
