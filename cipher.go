package medikeep

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
)

// Cipher is the keyed cipher service: authenticated AES-256-GCM encryption of
// opaque strings under a single key owned by a KeyStore.
//
// Two API layers coexist on purpose:
//
//   - Seal/Open are strict and return typed errors. Tests and diagnostics
//     use them.
//   - EncryptField/DecryptField apply the fail-soft field policy: a crypto
//     failure degrades to a safe value instead of propagating, so a corrupted
//     keystore can never make stored records unreadable as a whole. The
//     degradation is logged.
type Cipher struct {
	keys   KeyStore
	alias  string
	logger zerolog.Logger

	mu  sync.Mutex
	key []byte
}

// NewCipher creates a cipher service over the given keystore. The key itself
// is fetched lazily on first use and cached for the process lifetime.
func NewCipher(keys KeyStore, cfg Config, logger zerolog.Logger) (*Cipher, error) {
	if keys == nil {
		return nil, fmt.Errorf("%w: keystore is required", ErrInvalidConfiguration)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Cipher{
		keys:   keys,
		alias:  cfg.KeyAlias,
		logger: logger.With().Str("component", "cipher").Logger(),
	}, nil
}

// aead returns a GCM instance over the cached key, loading the key from the
// keystore on first call. The key is created at most once; the mutex keeps
// concurrent first callers from observing two different keys.
func (c *Cipher) aead(ctx context.Context) (cipher.AEAD, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.key == nil {
		key, err := c.keys.GetOrCreateKey(ctx, c.alias)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
		}
		if len(key) != KeyLength {
			return nil, fmt.Errorf("%w: keystore returned %d bytes, want %d", ErrKeyUnavailable, len(key), KeyLength)
		}
		c.key = key
	}
	block, err := aes.NewCipher(c.key)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrKeyUnavailable, err)
	}
	return cipher.NewGCM(block)
}

// Seal encrypts plaintext into a CipherBlob storage string. A fresh random
// IV is generated per call; the same key and IV pair is never reused.
func (c *Cipher) Seal(ctx context.Context, plaintext string) (string, error) {
	gcm, err := c.aead(ctx)
	if err != nil {
		return "", err
	}
	iv := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", fmt.Errorf("%w: failed to generate iv: %v", ErrEncryptionFailed, err)
	}
	ciphertext := gcm.Seal(nil, iv, []byte(plaintext), nil)
	return encodeBlob(iv, ciphertext), nil
}

// Open decrypts a CipherBlob storage string back to its UTF-8 plaintext.
//
// It returns ErrNotEncrypted when blob does not parse as a cipher blob
// (legacy plaintext written before encryption existed), and
// ErrDecryptionFailed when the layout parses but authentication fails
// (wrong key, tampered or truncated data).
func (c *Cipher) Open(ctx context.Context, blob string) (string, error) {
	iv, ciphertext, err := decodeBlob(blob)
	if err != nil {
		return "", err
	}
	gcm, err := c.aead(ctx)
	if err != nil {
		return "", err
	}
	plaintext, err := gcm.Open(nil, iv, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDecryptionFailed, err)
	}
	return string(plaintext), nil
}

// EncryptField applies the fail-open field policy: on any cryptographic
// failure the original plaintext is returned unchanged so that a broken
// keystore cannot make the application unusable. The trade-off between
// availability and confidentiality here is deliberate and matches the
// documented storage contract; tests pin it.
func (c *Cipher) EncryptField(ctx context.Context, plaintext string) string {
	blob, err := c.Seal(ctx, plaintext)
	if err != nil {
		c.logger.Error().Err(err).Msg("field encryption degraded to plaintext")
		return plaintext
	}
	return blob
}

// DecryptField applies the fail-soft field policy:
//
//   - input that is not a cipher blob is returned unchanged (legacy records
//     written before encryption existed);
//   - a blob that fails authentication yields DecryptFailedSentinel, a
//     display-safe fallback, never a wrong-but-plausible plaintext;
//   - the empty string stays the empty string.
func (c *Cipher) DecryptField(ctx context.Context, value string) string {
	if value == "" {
		return ""
	}
	plaintext, err := c.Open(ctx, value)
	switch {
	case err == nil:
		return plaintext
	case errors.Is(err, ErrNotEncrypted):
		return value
	default:
		c.logger.Error().Err(err).Msg("field decryption failed, substituting sentinel")
		return DecryptFailedSentinel
	}
}
