package awskms

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeKMS wraps and unwraps by XORing with a fixed pad, enough to verify the
// keystore round-trips ciphertext through the client.
type fakeKMS struct {
	plaintext     []byte
	generateErr   error
	decryptErr    error
	generates     int
	decrypts      int
	lastDecrypted []byte
}

func (f *fakeKMS) GenerateDataKey(_ context.Context, params *kms.GenerateDataKeyInput, _ ...func(*kms.Options)) (*kms.GenerateDataKeyOutput, error) {
	f.generates++
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return &kms.GenerateDataKeyOutput{
		Plaintext:      f.plaintext,
		CiphertextBlob: append([]byte("wrapped:"), f.plaintext...),
	}, nil
}

func (f *fakeKMS) Decrypt(_ context.Context, params *kms.DecryptInput, _ ...func(*kms.Options)) (*kms.DecryptOutput, error) {
	f.decrypts++
	if f.decryptErr != nil {
		return nil, f.decryptErr
	}
	f.lastDecrypted = params.CiphertextBlob
	return &kms.DecryptOutput{Plaintext: params.CiphertextBlob[len("wrapped:"):]}, nil
}

func newTestKeyStore(t *testing.T, client kmsClient) *KeyStore {
	t.Helper()

	db, err := sql.Open("sqlite3", filepath.Join(t.TempDir(), "wrapped_keys.db"))
	require.NoError(t, err)
	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS wrapped_keys (
			alias      TEXT PRIMARY KEY,
			kms_key_id TEXT NOT NULL,
			ciphertext BLOB NOT NULL
		)
	`)
	require.NoError(t, err)

	ks := &KeyStore{client: client, keyID: "alias/medikeep", db: db}
	t.Cleanup(func() { ks.Close() })
	return ks
}

func testKey() []byte {
	key := make([]byte, 32)
	for i := range key {
		key[i] = byte(i)
	}
	return key
}

func TestNewRequiresKeyID(t *testing.T) {
	_, err := New(context.Background(), Config{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KeyID")
}

func TestGetOrCreateKeyFirstUseGenerates(t *testing.T) {
	ctx := context.Background()
	client := &fakeKMS{plaintext: testKey()}
	ks := newTestKeyStore(t, client)

	key, err := ks.GetOrCreateKey(ctx, "records")
	require.NoError(t, err)
	assert.Equal(t, testKey(), key)
	assert.Equal(t, 1, client.generates)
	assert.Zero(t, client.decrypts)
}

func TestGetOrCreateKeySecondUseUnwraps(t *testing.T) {
	ctx := context.Background()
	client := &fakeKMS{plaintext: testKey()}
	ks := newTestKeyStore(t, client)

	first, err := ks.GetOrCreateKey(ctx, "records")
	require.NoError(t, err)

	second, err := ks.GetOrCreateKey(ctx, "records")
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, client.generates, "data key is generated once")
	assert.Equal(t, 1, client.decrypts, "subsequent loads unwrap through KMS")
	assert.Equal(t, append([]byte("wrapped:"), testKey()...), client.lastDecrypted)
}

func TestGetOrCreateKeyRejectsShortDataKey(t *testing.T) {
	ctx := context.Background()
	client := &fakeKMS{plaintext: []byte("short")}
	ks := newTestKeyStore(t, client)

	_, err := ks.GetOrCreateKey(ctx, "records")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "want 32")
}

func TestGetOrCreateKeyGenerateFailure(t *testing.T) {
	ctx := context.Background()
	client := &fakeKMS{generateErr: errors.New("AccessDeniedException")}
	ks := newTestKeyStore(t, client)

	_, err := ks.GetOrCreateKey(ctx, "records")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AccessDeniedException")
}

func TestGetOrCreateKeyDecryptFailure(t *testing.T) {
	ctx := context.Background()
	client := &fakeKMS{plaintext: testKey()}
	ks := newTestKeyStore(t, client)

	_, err := ks.GetOrCreateKey(ctx, "records")
	require.NoError(t, err)

	client.decryptErr = errors.New("KMSInvalidStateException")
	_, err = ks.GetOrCreateKey(ctx, "records")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "KMSInvalidStateException")
}

func TestDistinctAliasesGetDistinctRows(t *testing.T) {
	ctx := context.Background()
	client := &fakeKMS{plaintext: testKey()}
	ks := newTestKeyStore(t, client)

	_, err := ks.GetOrCreateKey(ctx, "records")
	require.NoError(t, err)
	_, err = ks.GetOrCreateKey(ctx, "backups")
	require.NoError(t, err)
	assert.Equal(t, 2, client.generates)
}
