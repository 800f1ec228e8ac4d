package credstore

import (
	"context"
	"embed"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/dmitrymomot/wamux/pkg/pg"
)

// Migrations holds the goose migrations for the tenant_credentials table,
// under the "migrations" directory.
//
//go:embed migrations/*.sql
var Migrations embed.FS

// MigrationsDir is the directory inside Migrations.
const MigrationsDir = "migrations"

// PgxConn is the subset of *pgxpool.Pool used by PostgresStore.
type PgxConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore keeps credentials in the tenant_credentials table.
// Apply Migrations before use.
type PostgresStore struct {
	db PgxConn
}

func NewPostgresStore(db PgxConn) *PostgresStore {
	return &PostgresStore{db: db}
}

const (
	pgSelectCredential = `SELECT credential FROM tenant_credentials WHERE tenant_id = $1`
	pgUpsertCredential = `INSERT INTO tenant_credentials (tenant_id, credential)
VALUES ($1, $2)
ON CONFLICT (tenant_id) DO UPDATE SET credential = EXCLUDED.credential, updated_at = now()`
	pgDeleteCredential = `DELETE FROM tenant_credentials WHERE tenant_id = $1`
	pgExistsCredential = `SELECT EXISTS (SELECT 1 FROM tenant_credentials WHERE tenant_id = $1)`
)

func (s *PostgresStore) Retrieve(ctx context.Context, tenantID string) ([]byte, error) {
	if err := ValidateTenantID(tenantID); err != nil {
		return nil, err
	}
	var blob []byte
	err := s.db.QueryRow(ctx, pgSelectCredential, tenantID).Scan(&blob)
	if pg.IsNotFoundError(err) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, errors.Join(ErrStoreUnavailable, err)
	}
	return blob, nil
}

func (s *PostgresStore) Save(ctx context.Context, tenantID string, credential []byte) error {
	if err := ValidateTenantID(tenantID); err != nil {
		return err
	}
	if credential == nil {
		credential = []byte{}
	}
	if _, err := s.db.Exec(ctx, pgUpsertCredential, tenantID, credential); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, tenantID string) error {
	if err := ValidateTenantID(tenantID); err != nil {
		return err
	}
	if _, err := s.db.Exec(ctx, pgDeleteCredential, tenantID); err != nil {
		return errors.Join(ErrStoreUnavailable, err)
	}
	return nil
}

func (s *PostgresStore) Exists(ctx context.Context, tenantID string) bool {
	if ValidateTenantID(tenantID) != nil {
		return false
	}
	var ok bool
	if err := s.db.QueryRow(ctx, pgExistsCredential, tenantID).Scan(&ok); err != nil {
		return false
	}
	return ok
}
