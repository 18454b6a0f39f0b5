// Package awskms implements the medikeep.KeyStore contract with an AWS KMS
// key-encryption key. The record key itself is a KMS-generated data key: its
// ciphertext (decryptable only through KMS) is persisted in a small local
// SQLite sidecar, and its plaintext is recovered via kms:Decrypt on load.
// The KEK never leaves KMS.
package awskms

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/kms/types"
	_ "github.com/mattn/go-sqlite3"

	"github.com/hengadev/medikeep"
)

// kmsClient is the slice of the KMS API this keystore uses (allows mocking).
type kmsClient interface {
	GenerateDataKey(ctx context.Context, params *kms.GenerateDataKeyInput, optFns ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error)
	Decrypt(ctx context.Context, params *kms.DecryptInput, optFns ...func(*kms.Options)) (*kms.DecryptOutput, error)
}

// Config holds configuration for the KMS keystore.
type Config struct {
	// KeyID identifies the KMS key-encryption key: "alias/..." or an ARN.
	// Required.
	KeyID string

	// Region is the AWS region. If empty, the default AWS config chain
	// decides.
	Region string

	// DBPath is the SQLite file holding wrapped data keys.
	// Default: .medikeep/wrapped_keys.db
	DBPath string

	// AWSConfig is an optional pre-configured AWS config; when set, Region
	// is ignored.
	AWSConfig *aws.Config
}

// KeyStore wraps data keys with a KMS KEK.
type KeyStore struct {
	client kmsClient
	keyID  string
	db     *sql.DB

	mu sync.Mutex
}

// New creates the keystore, loading AWS configuration and opening (creating
// if needed) the wrapped-key sidecar database.
func New(ctx context.Context, cfg Config) (*KeyStore, error) {
	if cfg.KeyID == "" {
		return nil, fmt.Errorf("awskms: KeyID is required")
	}
	if cfg.DBPath == "" {
		cfg.DBPath = ".medikeep/wrapped_keys.db"
	}

	var awsCfg aws.Config
	var err error
	if cfg.AWSConfig != nil {
		awsCfg = *cfg.AWSConfig
	} else {
		opts := []func(*awsconfig.LoadOptions) error{}
		if cfg.Region != "" {
			opts = append(opts, awsconfig.WithRegion(cfg.Region))
		}
		awsCfg, err = awsconfig.LoadDefaultConfig(ctx, opts...)
		if err != nil {
			return nil, fmt.Errorf("awskms: failed to load AWS config: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("awskms: failed to open wrapped-key database: %w", err)
	}
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS wrapped_keys (
			alias      TEXT PRIMARY KEY,
			kms_key_id TEXT NOT NULL,
			ciphertext BLOB NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("awskms: failed to initialize wrapped-key schema: %w", err)
	}

	return &KeyStore{
		client: kms.NewFromConfig(awsCfg),
		keyID:  cfg.KeyID,
		db:     db,
	}, nil
}

// Close closes the sidecar database.
func (k *KeyStore) Close() error {
	return k.db.Close()
}

// GetOrCreateKey returns the data key for alias, unwrapping the stored
// ciphertext through KMS, or generating a fresh data key under the KEK on
// first use. Generation and lookup are serialized so concurrent first
// callers observe one key.
func (k *KeyStore) GetOrCreateKey(ctx context.Context, alias string) ([]byte, error) {
	k.mu.Lock()
	defer k.mu.Unlock()

	var ciphertext []byte
	row := k.db.QueryRowContext(ctx,
		`SELECT ciphertext FROM wrapped_keys WHERE alias = ?`, alias)
	err := row.Scan(&ciphertext)
	switch {
	case err == nil:
		out, err := k.client.Decrypt(ctx, &kms.DecryptInput{
			CiphertextBlob: ciphertext,
			KeyId:          aws.String(k.keyID),
		})
		if err != nil {
			return nil, fmt.Errorf("awskms: failed to unwrap data key for alias %q: %w", alias, err)
		}
		return out.Plaintext, nil
	case err == sql.ErrNoRows:
		return k.createKey(ctx, alias)
	default:
		return nil, fmt.Errorf("awskms: failed to look up wrapped key for alias %q: %w", alias, err)
	}
}

func (k *KeyStore) createKey(ctx context.Context, alias string) ([]byte, error) {
	out, err := k.client.GenerateDataKey(ctx, &kms.GenerateDataKeyInput{
		KeyId:   aws.String(k.keyID),
		KeySpec: types.DataKeySpecAes256,
	})
	if err != nil {
		return nil, fmt.Errorf("awskms: failed to generate data key for alias %q: %w", alias, err)
	}
	if len(out.Plaintext) != medikeep.KeyLength {
		return nil, fmt.Errorf("awskms: KMS returned %d-byte data key, want %d", len(out.Plaintext), medikeep.KeyLength)
	}

	_, err = k.db.ExecContext(ctx, `
		INSERT INTO wrapped_keys (alias, kms_key_id, ciphertext) VALUES (?, ?, ?)
	`, alias, k.keyID, out.CiphertextBlob)
	if err != nil {
		return nil, fmt.Errorf("awskms: failed to persist wrapped key for alias %q: %w", alias, err)
	}
	return out.Plaintext, nil
}
