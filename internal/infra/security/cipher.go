package security

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"

	"golang.org/x/crypto/chacha20poly1305"
)

// CipherAlgorithm is the closed set of supported field-encryption algorithms.
// The configured name is resolved into this enum once at startup; an unknown
// name is a startup error, never a silent fallback.
type CipherAlgorithm int

const (
	CipherAESGCM CipherAlgorithm = iota
	CipherChaCha20Poly1305
)

// ParseCipherAlgorithm resolves a configuration string into a CipherAlgorithm.
func ParseCipherAlgorithm(name string) (CipherAlgorithm, error) {
	switch name {
	case "", "aes-gcm":
		return CipherAESGCM, nil
	case "chacha20poly1305":
		return CipherChaCha20Poly1305, nil
	default:
		return 0, fmt.Errorf("unsupported cipher algorithm %q", name)
	}
}

// String returns the configuration name of the algorithm.
func (a CipherAlgorithm) String() string {
	switch a {
	case CipherAESGCM:
		return "aes-gcm"
	case CipherChaCha20Poly1305:
		return "chacha20poly1305"
	default:
		return "unknown"
	}
}

// ErrDecryptFailed indicates the ciphertext could not be authenticated or decoded.
var ErrDecryptFailed = errors.New("cipher: decrypt failed")

// FieldCipher performs authenticated symmetric encryption of sensitive
// database fields (biometric embeddings, TOTP secrets). Ciphertext is
// returned base64-encoded with the random nonce prefixed, so each value is
// self-contained.
type FieldCipher struct {
	aead cipher.AEAD
	alg  CipherAlgorithm
}

// NewFieldCipher builds a FieldCipher for the given algorithm. The key may be
// any string; a 256-bit encryption key is derived from it with SHA-256, which
// also covers the deployment case where only the app-wide secret is set.
func NewFieldCipher(alg CipherAlgorithm, key string) (*FieldCipher, error) {
	if key == "" {
		return nil, fmt.Errorf("cipher: encryption key is required")
	}

	derived := sha256.Sum256([]byte(key))

	var (
		aead cipher.AEAD
		err  error
	)
	switch alg {
	case CipherAESGCM:
		var block cipher.Block
		block, err = aes.NewCipher(derived[:])
		if err == nil {
			aead, err = cipher.NewGCM(block)
		}
	case CipherChaCha20Poly1305:
		aead, err = chacha20poly1305.New(derived[:])
	default:
		return nil, fmt.Errorf("cipher: unsupported algorithm %d", alg)
	}
	if err != nil {
		return nil, fmt.Errorf("cipher: init %s: %w", alg, err)
	}

	return &FieldCipher{aead: aead, alg: alg}, nil
}

// Algorithm returns the active cipher variant.
func (c *FieldCipher) Algorithm() CipherAlgorithm {
	return c.alg
}

// Encrypt seals the plaintext under a fresh random nonce and returns
// base64(nonce || ciphertext).
func (c *FieldCipher) Encrypt(plaintext []byte) (string, error) {
	nonce := make([]byte, c.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("cipher: generate nonce: %w", err)
	}

	sealed := c.aead.Seal(nonce, nonce, plaintext, nil)
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt reverses Encrypt. Tampered or truncated input fails with
// ErrDecryptFailed.
func (c *FieldCipher) Decrypt(ciphertext string) ([]byte, error) {
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	nonceSize := c.aead.NonceSize()
	if len(raw) < nonceSize {
		return nil, ErrDecryptFailed
	}

	plaintext, err := c.aead.Open(nil, raw[:nonceSize], raw[nonceSize:], nil)
	if err != nil {
		return nil, ErrDecryptFailed
	}

	return plaintext, nil
}
