package medikeep

import (
	"encoding/base64"
	"fmt"
)

// CipherBlob wire format: base64( 1-byte ivLength || iv || ciphertext+tag ).
// The leading length byte makes the layout self-describing; any consumer
// decrypting these blobs outside this codebase must replicate it exactly.

const (
	blobIVSize  = 12 // GCM standard nonce size
	blobTagSize = 16 // 128-bit authentication tag
)

// encodeBlob packs iv and ciphertext (which already carries the GCM tag)
// into the storage string.
func encodeBlob(iv, ciphertext []byte) string {
	combined := make([]byte, 0, 1+len(iv)+len(ciphertext))
	combined = append(combined, byte(len(iv)))
	combined = append(combined, iv...)
	combined = append(combined, ciphertext...)
	return base64.StdEncoding.EncodeToString(combined)
}

// decodeBlob parses a storage string back into iv and ciphertext+tag.
//
// It returns ErrNotEncrypted when the input cannot be a cipher blob at all:
// invalid base64, or a decoded layout that is implausible (IV length byte
// other than blobIVSize, or not enough bytes for the IV itself). Short
// plaintext strings are frequently valid base64, so these structural checks
// are what actually separates legacy plaintext from encrypted data. A blob
// whose layout parses but whose ciphertext is truncated below a full tag is
// handed to GCM anyway so that it fails authentication rather than being
// mistaken for plaintext.
func decodeBlob(blob string) (iv, ciphertext []byte, err error) {
	decoded, err := base64.StdEncoding.DecodeString(blob)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrNotEncrypted, err)
	}
	if len(decoded) < 1 {
		return nil, nil, fmt.Errorf("%w: empty payload", ErrNotEncrypted)
	}
	ivLen := int(decoded[0])
	if ivLen != blobIVSize {
		return nil, nil, fmt.Errorf("%w: iv length %d", ErrNotEncrypted, ivLen)
	}
	if len(decoded) < 1+ivLen {
		return nil, nil, fmt.Errorf("%w: missing iv", ErrNotEncrypted)
	}
	return decoded[1 : 1+ivLen], decoded[1+ivLen:], nil
}
