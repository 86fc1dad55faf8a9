package port

// FieldCipher encrypts sensitive values (biometric embeddings, TOTP secrets)
// before they reach storage. Ciphertext is an opaque printable string.
type FieldCipher interface {
	Encrypt(plaintext []byte) (string, error)
	Decrypt(ciphertext string) ([]byte, error)
}

// PasswordHasher hashes and verifies passwords using the configured algorithm.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password string, encoded string) (bool, error)
}
