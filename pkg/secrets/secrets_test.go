package secrets_test

import (
	"bytes"
	"encoding/base64"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/wamux/pkg/secrets"
)

func newKeyring(t *testing.T) *secrets.Keyring {
	t.Helper()
	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	ring, err := secrets.NewKeyring(key)
	require.NoError(t, err)
	return ring
}

func TestKeyringRoundTrip(t *testing.T) {
	t.Parallel()
	ring := newKeyring(t)

	tests := []struct {
		name string
		data []byte
	}{
		{"empty", []byte{}},
		{"session json", []byte(`{"WABrowserId":"\"abc\"","WASecretBundle":"{}","WAToken1":"x"}`)},
		{"binary", bytes.Repeat([]byte{0x00, 0xff, 0x10}, 300)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			sealed, err := ring.Seal("school-1", tt.data)
			require.NoError(t, err)
			if len(tt.data) > 0 {
				assert.NotContains(t, string(sealed), string(tt.data))
			}

			opened, err := ring.Open("school-1", sealed)
			require.NoError(t, err)
			assert.Equal(t, tt.data, opened)
		})
	}
}

func TestKeyringTenantIsolation(t *testing.T) {
	t.Parallel()
	ring := newKeyring(t)

	sealed, err := ring.Seal("school-1", []byte("credential"))
	require.NoError(t, err)

	_, err = ring.Open("school-2", sealed)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
}

func TestKeyringNonceIsRandom(t *testing.T) {
	t.Parallel()
	ring := newKeyring(t)

	a, err := ring.Seal("school-1", []byte("credential"))
	require.NoError(t, err)
	b, err := ring.Seal("school-1", []byte("credential"))
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestKeyringRejectsBadInput(t *testing.T) {
	t.Parallel()
	ring := newKeyring(t)

	_, err := ring.Seal("", []byte("x"))
	assert.ErrorIs(t, err, secrets.ErrEmptyTenant)
	_, err = ring.Open("", []byte("x"))
	assert.ErrorIs(t, err, secrets.ErrEmptyTenant)

	_, err = ring.Open("school-1", []byte("short"))
	assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)

	sealed, err := ring.Seal("school-1", []byte("credential"))
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0x01
	_, err = ring.Open("school-1", sealed)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
}

func TestKeyringWrongMasterKey(t *testing.T) {
	t.Parallel()
	sealed, err := newKeyring(t).Seal("school-1", []byte("credential"))
	require.NoError(t, err)

	_, err = newKeyring(t).Open("school-1", sealed)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
}

func TestKeyringCopiesMaster(t *testing.T) {
	t.Parallel()
	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	ring, err := secrets.NewKeyring(key)
	require.NoError(t, err)

	sealed, err := ring.Seal("school-1", []byte("credential"))
	require.NoError(t, err)

	for i := range key {
		key[i] = 0
	}
	opened, err := ring.Open("school-1", sealed)
	require.NoError(t, err)
	assert.Equal(t, []byte("credential"), opened)
}

func TestKeyringConcurrentUse(t *testing.T) {
	t.Parallel()
	ring := newKeyring(t)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tenant := "school-" + string(rune('a'+i))
			sealed, err := ring.Seal(tenant, []byte(tenant))
			assert.NoError(t, err)
			opened, err := ring.Open(tenant, sealed)
			assert.NoError(t, err)
			assert.Equal(t, tenant, string(opened))
		}()
	}
	wg.Wait()
}

func TestKeys(t *testing.T) {
	t.Parallel()

	t.Run("validate", func(t *testing.T) {
		t.Parallel()
		assert.ErrorIs(t, secrets.ValidateKey(make([]byte, 16)), secrets.ErrInvalidKey)
		assert.NoError(t, secrets.ValidateKey(make([]byte, secrets.KeySize)))
		_, err := secrets.NewKeyring(nil)
		assert.ErrorIs(t, err, secrets.ErrInvalidKey)
	})

	t.Run("encoded round trip", func(t *testing.T) {
		t.Parallel()
		encoded, err := secrets.GenerateEncodedKey()
		require.NoError(t, err)
		key, err := secrets.ParseKey(encoded + "\n")
		require.NoError(t, err)
		assert.Len(t, key, secrets.KeySize)
	})

	t.Run("parse rejects bad input", func(t *testing.T) {
		t.Parallel()
		_, err := secrets.ParseKey("not base64!")
		assert.ErrorIs(t, err, secrets.ErrInvalidKey)
		_, err = secrets.ParseKey(base64.StdEncoding.EncodeToString([]byte("short")))
		assert.ErrorIs(t, err, secrets.ErrInvalidKey)
	})
}
