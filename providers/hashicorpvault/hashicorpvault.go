// Package hashicorpvault implements the medikeep.KeyStore contract on a
// HashiCorp Vault KV v2 mount. The raw key material is stored as a base64
// value under secret/data/medikeep/<alias>; Vault's transit engine is not
// usable here because the CipherBlob format is produced locally and transit
// never exports key material.
package hashicorpvault

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"os"
	"sync"

	"github.com/hashicorp/vault/api"

	"github.com/hengadev/medikeep"
)

// KeyPathTemplate is where keys live on the KV v2 mount. The %s placeholder
// is the key alias.
const KeyPathTemplate = "secret/data/medikeep/%s"

// logicalClient is the slice of Vault's logical API the keystore needs.
type logicalClient interface {
	ReadWithContext(ctx context.Context, path string) (*api.Secret, error)
	WriteWithContext(ctx context.Context, path string, data map[string]interface{}) (*api.Secret, error)
}

// KeyStore is a Vault-backed medikeep.KeyStore.
type KeyStore struct {
	logical logicalClient

	mu sync.Mutex
}

// New creates a Vault keystore from the standard environment:
// VAULT_ADDR, VAULT_NAMESPACE, and either VAULT_TOKEN (picked up by the SDK)
// or VAULT_ROLE_ID/VAULT_SECRET_ID for AppRole authentication.
func New() (*KeyStore, error) {
	config := api.DefaultConfig()
	if addr := os.Getenv("VAULT_ADDR"); addr != "" {
		config.Address = addr
	}
	config.HttpClient.Transport = &http.Transport{
		Proxy: http.ProxyFromEnvironment,
	}

	client, err := api.NewClient(config)
	if err != nil {
		return nil, fmt.Errorf("failed to create Vault client: %w", err)
	}

	if namespace := os.Getenv("VAULT_NAMESPACE"); namespace != "" {
		client.SetNamespace(namespace)
	}

	roleID := os.Getenv("VAULT_ROLE_ID")
	secretID := os.Getenv("VAULT_SECRET_ID")
	if roleID != "" && secretID != "" {
		resp, err := client.Logical().Write("auth/approle/login", map[string]interface{}{
			"role_id":   roleID,
			"secret_id": secretID,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to login with AppRole: %w", err)
		}
		if resp.Auth == nil {
			return nil, fmt.Errorf("no auth info returned from AppRole login")
		}
		client.SetToken(resp.Auth.ClientToken)
	}

	return &KeyStore{logical: client.Logical()}, nil
}

// GetOrCreateKey reads the key for alias from the KV mount, generating and
// writing a fresh one when none exists. The read-check-write is guarded by a
// process-local mutex; concurrent processes racing on first creation each
// write a complete key and last write wins, which is only safe before any
// data has been encrypted (the same constraint the single-device original
// design had).
func (k *KeyStore) GetOrCreateKey(ctx context.Context, alias string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	path := fmt.Sprintf(KeyPathTemplate, alias)

	secret, err := k.logical.ReadWithContext(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("failed to read key from Vault at %s: %w", path, err)
	}
	if secret != nil && secret.Data != nil {
		// A stored secret that fails to decode is an operator problem, never
		// a reason to generate a new key: overwriting it would rotate the key
		// and orphan every field encrypted under the old one.
		key, err := decodeKey(secret.Data)
		if err != nil {
			return nil, fmt.Errorf("corrupt key in Vault at %s: %w", path, err)
		}
		return key, nil
	}

	key := make([]byte, medikeep.KeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		return nil, fmt.Errorf("failed to generate key: %w", err)
	}

	_, err = k.logical.WriteWithContext(ctx, path, map[string]interface{}{
		"data": map[string]interface{}{
			"value": base64.StdEncoding.EncodeToString(key),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to write key to Vault at %s: %w", path, err)
	}
	return key, nil
}

func decodeKey(data map[string]interface{}) ([]byte, error) {
	inner, ok := data["data"].(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("invalid secret format")
	}
	value, ok := inner["value"].(string)
	if !ok {
		return nil, fmt.Errorf("key not found in secret")
	}
	key, err := base64.StdEncoding.DecodeString(value)
	if err != nil {
		return nil, fmt.Errorf("key is not valid base64: %w", err)
	}
	if len(key) != medikeep.KeyLength {
		return nil, fmt.Errorf("key has wrong length %d", len(key))
	}
	return key, nil
}
