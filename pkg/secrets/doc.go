// Package secrets encrypts per-tenant credential blobs at rest.
//
// A Keyring holds one 32-byte master key. For each tenant it derives an
// independent AES-256 key with HKDF-SHA-256 (salt = tenant id) and seals
// data with AES-GCM. The nonce is prepended to the output and the tenant id
// is bound as associated data.
//
//	master, err := secrets.ParseKey(os.Getenv("CREDENTIAL_ENCRYPTION_KEY"))
//	ring, err := secrets.NewKeyring(master)
//	sealed, err := ring.Seal("school-1", blob)
//	blob, err = ring.Open("school-1", sealed)
//
// Generate a master key with `go run ./pkg/secrets/cmd`.
package secrets
