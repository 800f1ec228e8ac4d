package secrets

import "errors"

var (
	ErrInvalidKey          = errors.New("secrets: master key must be 32 bytes")
	ErrEmptyTenant         = errors.New("secrets: tenant id is required")
	ErrEncryptionFailed    = errors.New("secrets: encryption failed")
	ErrDecryptionFailed    = errors.New("secrets: decryption failed")
	ErrInvalidCiphertext   = errors.New("secrets: invalid ciphertext format")
	ErrKeyDerivationFailed = errors.New("secrets: key derivation failed")
)
