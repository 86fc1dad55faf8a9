package security

import (
	"errors"
	"testing"

	zxcvbn "github.com/nbutton23/zxcvbn-go"
)

func TestDefaultPasswordValidatorSuccess(t *testing.T) {
	validator := DefaultPasswordValidator()

	password := "C0mplex!Passphrase#2026"
	if strength := zxcvbn.PasswordStrength(password, nil); strength.Score < 2 {
		t.Fatalf("test password unexpectedly weak: score=%d", strength.Score)
	}
	if err := validator.Validate(password); err != nil {
		t.Fatalf("expected password to pass validation, got %v", err)
	}
}

func TestDefaultPasswordValidatorViolations(t *testing.T) {
	validator := DefaultPasswordValidator()

	assertViolation := func(password, expectedCode string) {
		t.Helper()

		err := validator.Validate(password)
		if err == nil {
			t.Fatalf("expected validation error for %s", expectedCode)
		}
		var vErr *PasswordValidationError
		if !errors.As(err, &vErr) {
			t.Fatalf("expected PasswordValidationError, got %T", err)
		}
		if vErr.Code != expectedCode {
			t.Fatalf("expected %s code, got %s", expectedCode, vErr.Code)
		}
	}

	assertViolation("Short1!", "min_length")
	assertViolation("12345678901234", "letter")
	assertViolation("nodigitspresent", "digit")
	assertViolation("password123", "weak_password")
}

func TestPasswordValidatorRejectsSimilarUserInputs(t *testing.T) {
	validator := DefaultPasswordValidator()

	err := validator.Validate("avery.jackson91", "avery.jackson91", "avery@example.com")
	if err == nil {
		t.Fatal("expected validation error for password matching account details")
	}
}

func TestCustomPasswordValidator(t *testing.T) {
	validator := NewPasswordValidator(MinLengthRule(4))

	if err := validator.Validate("abc"); err == nil {
		t.Fatal("expected validation error for short password")
	}

	if err := validator.Validate("abcd"); err != nil {
		t.Fatalf("expected password to pass custom validation, got %v", err)
	}
}
