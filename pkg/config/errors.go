package config

import "errors"

var (
	ErrParsingConfig   = errors.New("config: environment does not match struct tags")
	ErrConfigNotLoaded = errors.New("config: value missing from cache after parse")
	ErrNilPointer      = errors.New("config: Load needs a non-nil pointer")
	ErrLoadingEnvFile  = errors.New("config: cannot read dotenv file")
)
