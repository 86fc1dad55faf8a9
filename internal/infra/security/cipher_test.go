package security

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCipherAlgorithm(t *testing.T) {
	alg, err := ParseCipherAlgorithm("aes-gcm")
	require.NoError(t, err)
	assert.Equal(t, CipherAESGCM, alg)

	alg, err = ParseCipherAlgorithm("")
	require.NoError(t, err)
	assert.Equal(t, CipherAESGCM, alg)

	alg, err = ParseCipherAlgorithm("chacha20poly1305")
	require.NoError(t, err)
	assert.Equal(t, CipherChaCha20Poly1305, alg)

	_, err = ParseCipherAlgorithm("rot13")
	assert.Error(t, err)
}

func TestFieldCipherRoundTrip(t *testing.T) {
	for _, alg := range []CipherAlgorithm{CipherAESGCM, CipherChaCha20Poly1305} {
		t.Run(alg.String(), func(t *testing.T) {
			c, err := NewFieldCipher(alg, "unit-test-key")
			require.NoError(t, err)

			payloads := [][]byte{
				[]byte(""),
				[]byte("short"),
				bytes.Repeat([]byte{0x00}, 1024),
			}

			random := make([]byte, 4096)
			_, err = rand.Read(random)
			require.NoError(t, err)
			payloads = append(payloads, random)

			for _, plaintext := range payloads {
				ciphertext, err := c.Encrypt(plaintext)
				require.NoError(t, err)

				decrypted, err := c.Decrypt(ciphertext)
				require.NoError(t, err)
				assert.Equal(t, plaintext, decrypted)
			}
		})
	}
}

func TestFieldCipherNonceUniqueness(t *testing.T) {
	c, err := NewFieldCipher(CipherAESGCM, "unit-test-key")
	require.NoError(t, err)

	first, err := c.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)
	second, err := c.Encrypt([]byte("same plaintext"))
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestFieldCipherRejectsTamperedCiphertext(t *testing.T) {
	c, err := NewFieldCipher(CipherAESGCM, "unit-test-key")
	require.NoError(t, err)

	ciphertext, err := c.Encrypt([]byte("sensitive"))
	require.NoError(t, err)

	_, err = c.Decrypt(ciphertext[:len(ciphertext)-4])
	assert.ErrorIs(t, err, ErrDecryptFailed)

	_, err = c.Decrypt("!!not-base64!!")
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestFieldCipherCrossKeyDecryptFails(t *testing.T) {
	a, err := NewFieldCipher(CipherAESGCM, "key-a")
	require.NoError(t, err)
	b, err := NewFieldCipher(CipherAESGCM, "key-b")
	require.NoError(t, err)

	ciphertext, err := a.Encrypt([]byte("sensitive"))
	require.NoError(t, err)

	_, err = b.Decrypt(ciphertext)
	assert.ErrorIs(t, err, ErrDecryptFailed)
}

func TestNewFieldCipherRequiresKey(t *testing.T) {
	_, err := NewFieldCipher(CipherAESGCM, "")
	assert.Error(t, err)
}
