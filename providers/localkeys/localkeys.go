// Package localkeys implements the medikeep.KeyStore contract on the local
// filesystem for deployments without a hardware keystore or a remote KMS.
//
// Key material never touches disk in the clear: each key is wrapped with
// AES-256-GCM under a key-encryption key derived from a passphrase via
// Argon2id. The wrapped key and its derivation salt are stored together in
// one file per alias.
package localkeys

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/argon2"

	"github.com/hengadev/medikeep"
)

// Argon2id parameters. Conservative interactive-strength settings; the
// passphrase is entered once per process start, not per request.
const (
	argonTime    = 1
	argonMemory  = 64 * 1024
	argonThreads = 4
	saltLength   = 16
)

// Store is a passphrase-protected file keystore.
type Store struct {
	dir        string
	passphrase []byte

	mu sync.Mutex
}

// keyFile is the on-disk layout for one wrapped key.
type keyFile struct {
	Salt    []byte `json:"salt"`
	Nonce   []byte `json:"nonce"`
	Wrapped []byte `json:"wrapped"`
}

// New creates a keystore rooted at dir, creating the directory if needed.
// The passphrase protects every key in the store.
func New(dir, passphrase string) (*Store, error) {
	if passphrase == "" {
		return nil, fmt.Errorf("localkeys: passphrase is required")
	}
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("localkeys: failed to create key directory: %w", err)
	}
	return &Store{dir: dir, passphrase: []byte(passphrase)}, nil
}

// GetOrCreateKey loads the wrapped key for alias off disk, or generates,
// wraps, and persists a new one. The write is atomic (temp file + rename)
// and the mutex keeps concurrent first callers from generating two keys.
func (s *Store) GetOrCreateKey(_ context.Context, alias string) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := filepath.Join(s.dir, alias+".key")

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		return s.unwrap(data)
	case os.IsNotExist(err):
		return s.createKey(path)
	default:
		return nil, fmt.Errorf("localkeys: failed to read key file: %w", err)
	}
}

func (s *Store) createKey(path string) ([]byte, error) {
	key := make([]byte, medikeep.KeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("localkeys: failed to generate key: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("localkeys: failed to generate salt: %w", err)
	}

	gcm, err := s.wrapCipher(salt)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return nil, fmt.Errorf("localkeys: failed to generate nonce: %w", err)
	}

	payload, err := json.Marshal(keyFile{
		Salt:    salt,
		Nonce:   nonce,
		Wrapped: gcm.Seal(nil, nonce, key, nil),
	})
	if err != nil {
		return nil, fmt.Errorf("localkeys: failed to encode key file: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, payload, 0o600); err != nil {
		return nil, fmt.Errorf("localkeys: failed to write key file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return nil, fmt.Errorf("localkeys: failed to persist key file: %w", err)
	}
	return key, nil
}

func (s *Store) unwrap(data []byte) ([]byte, error) {
	var kf keyFile
	if err := json.Unmarshal(data, &kf); err != nil {
		return nil, fmt.Errorf("localkeys: corrupt key file: %w", err)
	}

	gcm, err := s.wrapCipher(kf.Salt)
	if err != nil {
		return nil, err
	}
	key, err := gcm.Open(nil, kf.Nonce, kf.Wrapped, nil)
	if err != nil {
		return nil, fmt.Errorf("localkeys: failed to unwrap key (wrong passphrase?): %w", err)
	}
	return key, nil
}

func (s *Store) wrapCipher(salt []byte) (cipher.AEAD, error) {
	kek := argon2.IDKey(s.passphrase, salt, argonTime, argonMemory, argonThreads, medikeep.KeyLength)
	block, err := aes.NewCipher(kek)
	if err != nil {
		return nil, fmt.Errorf("localkeys: failed to build wrapping cipher: %w", err)
	}
	return cipher.NewGCM(block)
}
