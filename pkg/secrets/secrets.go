package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"io"
)

// Keyring seals and opens tenant-scoped blobs with keys derived from one
// master key. It holds no per-call state and is safe for concurrent use.
type Keyring struct {
	master []byte
}

// NewKeyring copies master and validates its length.
func NewKeyring(master []byte) (*Keyring, error) {
	if err := ValidateKey(master); err != nil {
		return nil, err
	}
	k := make([]byte, KeySize)
	copy(k, master)
	return &Keyring{master: k}, nil
}

// Seal encrypts data for tenantID. Output layout: nonce | ciphertext | tag.
// The tenant id is also bound as associated data, so a blob copied to
// another tenant's slot fails to open.
func (k *Keyring) Seal(tenantID string, data []byte) ([]byte, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}
	gcm, err := k.aead(tenantID)
	if err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, errors.Join(ErrEncryptionFailed, err)
	}
	return gcm.Seal(nonce, nonce, data, []byte(tenantID)), nil
}

// Open reverses Seal.
func (k *Keyring) Open(tenantID string, sealed []byte) ([]byte, error) {
	if tenantID == "" {
		return nil, ErrEmptyTenant
	}
	gcm, err := k.aead(tenantID)
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	ns := gcm.NonceSize()
	if len(sealed) < ns+gcm.Overhead() {
		return nil, ErrInvalidCiphertext
	}
	plain, err := gcm.Open(nil, sealed[:ns], sealed[ns:], []byte(tenantID))
	if err != nil {
		return nil, errors.Join(ErrDecryptionFailed, err)
	}
	return plain, nil
}

func (k *Keyring) aead(tenantID string) (cipher.AEAD, error) {
	key, err := deriveKey(k.master, tenantID)
	if err != nil {
		return nil, err
	}
	defer clearBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
