package medikeep

import "context"

// KeyStore defines the contract for the hardware-backed (or remote) store
// that owns the symmetric record key.
//
// The key never leaves the store's trust boundary except as the raw material
// handed to the Cipher; providers that cannot export key material (e.g. a
// pure transit engine) are not usable here because the CipherBlob format is
// produced locally.
//
// Implementations:
//   - In-memory (testing): medikeep.InMemoryKeyStore
//   - Local file, passphrase-wrapped: github.com/hengadev/medikeep/providers/localkeys
//   - HashiCorp Vault KV v2: github.com/hengadev/medikeep/providers/hashicorpvault
//   - AWS KMS wrapped data key: github.com/hengadev/medikeep/providers/awskms
type KeyStore interface {
	// GetOrCreateKey returns the KeyLength-byte key registered under alias,
	// generating and persisting a fresh one if none exists yet.
	//
	// The operation is idempotent: concurrent callers must observe a single
	// generated key. There is no rotation and no deletion; the key lifecycle
	// is "created at most once".
	GetOrCreateKey(ctx context.Context, alias string) ([]byte, error)
}
