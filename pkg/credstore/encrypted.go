package credstore

import (
	"context"
	"errors"
)

// Sealer encrypts blobs per tenant. *secrets.Keyring implements it.
type Sealer interface {
	Seal(tenantID string, data []byte) ([]byte, error)
	Open(tenantID string, sealed []byte) ([]byte, error)
}

// ErrDecryptFailed is returned by an encrypted store when a stored blob
// cannot be opened, e.g. after a master key rotation.
var ErrDecryptFailed = errors.New("credstore: stored credential cannot be decrypted")

type encryptedStore struct {
	next   Store
	sealer Sealer
}

// NewEncrypted seals credentials before they reach store and opens them on
// the way back. Exists and Delete pass through.
func NewEncrypted(store Store, sealer Sealer) Store {
	return &encryptedStore{next: store, sealer: sealer}
}

func (s *encryptedStore) Retrieve(ctx context.Context, tenantID string) ([]byte, error) {
	sealed, err := s.next.Retrieve(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	plain, err := s.sealer.Open(tenantID, sealed)
	if err != nil {
		return nil, errors.Join(ErrDecryptFailed, err)
	}
	return plain, nil
}

func (s *encryptedStore) Save(ctx context.Context, tenantID string, credential []byte) error {
	if err := ValidateTenantID(tenantID); err != nil {
		return err
	}
	sealed, err := s.sealer.Seal(tenantID, credential)
	if err != nil {
		return err
	}
	return s.next.Save(ctx, tenantID, sealed)
}

func (s *encryptedStore) Delete(ctx context.Context, tenantID string) error {
	return s.next.Delete(ctx, tenantID)
}

func (s *encryptedStore) Exists(ctx context.Context, tenantID string) bool {
	return s.next.Exists(ctx, tenantID)
}
