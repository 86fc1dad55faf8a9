package security

import (
	"strings"
	"testing"
)

func newTestHasher(t *testing.T) *Argon2Hasher {
	t.Helper()

	// Lighter parameters than production to keep the test fast.
	hasher, err := NewArgon2Hasher(Argon2Params{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  16,
		KeyLength:   32,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}
	return hasher
}

func TestHashAndVerifySuccess(t *testing.T) {
	hasher := newTestHasher(t)
	password := "correct horse battery staple"

	encoded, err := hasher.Hash(password)
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	parts := strings.Split(encoded, "$")
	if len(parts) != 5 {
		t.Fatalf("unexpected hash format: %q", encoded)
	}
	if parts[0] != argon2Variant {
		t.Fatalf("unexpected variant: %s", parts[0])
	}
	if parts[1] != argon2Version {
		t.Fatalf("unexpected version: %s", parts[1])
	}

	ok, err := hasher.Verify(password, encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if !ok {
		t.Fatal("Verify returned false for correct password")
	}
}

func TestVerifyIncorrectPassword(t *testing.T) {
	hasher := newTestHasher(t)

	encoded, err := hasher.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash returned error: %v", err)
	}

	ok, err := hasher.Verify("Tr0ub4dor&3", encoded)
	if err != nil {
		t.Fatalf("Verify returned error: %v", err)
	}
	if ok {
		t.Fatal("Verify returned true for incorrect password")
	}
}

func TestVerifyEmptyInputs(t *testing.T) {
	hasher := newTestHasher(t)

	ok, err := hasher.Verify("", "whatever")
	if err != nil || ok {
		t.Fatalf("expected false, nil for empty password; got %v, %v", ok, err)
	}

	ok, err = hasher.Verify("password", "")
	if err != nil || ok {
		t.Fatalf("expected false, nil for empty hash; got %v, %v", ok, err)
	}
}

func TestVerifyMalformedHash(t *testing.T) {
	hasher := newTestHasher(t)

	if _, err := hasher.Verify("password", "not-an-argon2-hash"); err == nil {
		t.Fatal("expected error for malformed hash")
	}
}

func TestNewArgon2HasherRejectsWeakParams(t *testing.T) {
	_, err := NewArgon2Hasher(Argon2Params{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32})
	if err == nil {
		t.Fatal("expected error for too little memory")
	}
}
