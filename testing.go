package medikeep

import (
	"testing"

	"github.com/rs/zerolog"
)

// NewTestCipher creates a Cipher backed by a fresh in-memory keystore,
// suitable for unit tests. The keystore is returned as well so tests can
// swap key material to exercise failure paths.
//
// Example:
//
//	cipher, keys := medikeep.NewTestCipher(t)
//	blob, err := cipher.Seal(ctx, "confidential")
func NewTestCipher(t *testing.T) (*Cipher, *InMemoryKeyStore) {
	t.Helper()

	keys := NewInMemoryKeyStore()
	cipher, err := NewCipher(keys, Config{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create test cipher: %v", err)
	}
	return cipher, keys
}

// NewTestCodec creates a FieldCodec over a NewTestCipher.
func NewTestCodec(t *testing.T) (*FieldCodec, *InMemoryKeyStore) {
	t.Helper()

	cipher, keys := NewTestCipher(t)
	return NewFieldCodec(cipher), keys
}
