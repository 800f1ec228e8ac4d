// Package credstore persists per-tenant messaging credentials.
//
// A credential is the opaque blob the protocol client hands back after a
// successful pairing; restoring it lets a session come back without a new
// QR scan. Store is the boundary the session supervisor talks to. Backends:
//
//   - MemoryStore: process memory, for tests and single-shot runs
//   - LocalStore: one file per tenant, atomic replace on save
//   - RedisStore: go-redis, optional TTL
//   - MongoStore: one document per tenant, upsert on save
//   - PostgresStore: tenant_credentials table created by the embedded
//     goose Migrations
//   - S3Store: one object per tenant, works with S3-compatible services
//
// Decorators compose on top of any backend:
//
//	store := credstore.WithTimeout(
//	    credstore.NewEncrypted(credstore.NewRedisStore(client), keyring),
//	    5*time.Second,
//	)
//
// Every backend reports a missing credential as ErrNotFound and wraps
// transport or driver failures with ErrStoreUnavailable.
package credstore
