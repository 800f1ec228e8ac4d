package credstore

import "errors"

var (
	ErrNotFound         = errors.New("credstore: credential not found")
	ErrInvalidTenantID  = errors.New("credstore: invalid tenant id")
	ErrStoreUnavailable = errors.New("credstore: backend unavailable")
	ErrInvalidConfig    = errors.New("credstore: invalid configuration")
)
