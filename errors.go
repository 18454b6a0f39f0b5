package medikeep

import "errors"

var (
	// Cryptographic failures. These never reach a caller through the
	// field-policy layer (EncryptField/DecryptField) but are visible to
	// anyone using the strict Seal/Open API, and to logs.
	ErrKeyUnavailable   = errors.New("encryption key unavailable")
	ErrEncryptionFailed = errors.New("encryption failed")
	ErrDecryptionFailed = errors.New("decryption failed")

	// ErrNotEncrypted marks input that does not parse as a cipher blob.
	// The policy layer treats it as legacy plaintext and passes it through.
	ErrNotEncrypted = errors.New("value is not an encrypted blob")

	// Model-call failures, surfaced as explicit error values.
	ErrModelUnavailable = errors.New("model request failed")
	ErrEmptyModelReply  = errors.New("model returned an empty reply")

	// Store failures. ErrRecordNotFound covers a missing document;
	// ErrStoreFailure wraps database-level errors, which are retryable.
	ErrRecordNotFound = errors.New("record not found")
	ErrStoreFailure   = errors.New("document store operation failed")

	// Configuration problems.
	ErrInvalidConfiguration = errors.New("invalid configuration")
)

// DecryptFailedSentinel is the fixed display-safe string substituted for a
// field whose blob parsed but failed GCM authentication (wrong key, tampered
// or truncated data). Callers must treat it as a fallback, never as content.
const DecryptFailedSentinel = "Decryption Failed"

// IsRetryableError reports whether the error represents a transient failure
// that might succeed on retry. The core never retries on its own; this exists
// for callers that drive a user-triggered retry path.
func IsRetryableError(err error) bool {
	return errors.Is(err, ErrModelUnavailable) ||
		errors.Is(err, ErrStoreFailure)
}

// IsConfigurationError reports whether the error represents a setup problem
// rather than a runtime failure.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrKeyUnavailable)
}
