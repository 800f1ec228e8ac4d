package credstore

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

const localFileExt = ".session"

// LocalStore writes one file per tenant under a base directory.
type LocalStore struct {
	dir      string
	filePerm os.FileMode
}

type LocalOption func(*LocalStore)

// WithFilePerm overrides the default 0600 file mode.
func WithFilePerm(perm os.FileMode) LocalOption {
	return func(s *LocalStore) { s.filePerm = perm }
}

// NewLocalStore creates dir if needed.
func NewLocalStore(dir string, opts ...LocalOption) (*LocalStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, fmt.Errorf("%w: empty local directory", ErrInvalidConfig)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, errors.Join(ErrInvalidConfig, err)
	}
	if err := os.MkdirAll(abs, 0o700); err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	s := &LocalStore{dir: abs, filePerm: 0o600}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func (s *LocalStore) Retrieve(ctx context.Context, tenantID string) ([]byte, error) {
	path, err := s.path(tenantID)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return data, nil
}

// Save writes to a temp file in the same directory and renames it over the
// target, so readers never see a partial blob.
func (s *LocalStore) Save(ctx context.Context, tenantID string, credential []byte) error {
	path, err := s.path(tenantID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(s.dir, "."+tenantID+".*.tmp")
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(credential); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Join(ErrStoreUnavailable, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return errors.Join(ErrStoreUnavailable, err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return errors.Join(ErrStoreUnavailable, err)
	}
	if err := os.Chmod(tmpName, s.filePerm); err != nil {
		cleanup()
		return errors.Join(ErrStoreUnavailable, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *LocalStore) Delete(ctx context.Context, tenantID string) error {
	path, err := s.path(tenantID)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *LocalStore) Exists(_ context.Context, tenantID string) bool {
	path, err := s.path(tenantID)
	if err != nil {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// Healthcheck verifies the base directory is still present.
func (s *LocalStore) Healthcheck(_ context.Context) error {
	info, err := os.Stat(s.dir)
	if err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrStoreUnavailable, s.dir)
	}
	return nil
}

func (s *LocalStore) path(tenantID string) (string, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return "", err
	}
	p := filepath.Join(s.dir, tenantID+localFileExt)
	if !strings.HasPrefix(p, s.dir+string(filepath.Separator)) {
		return "", ErrInvalidTenantID
	}
	return p, nil
}
