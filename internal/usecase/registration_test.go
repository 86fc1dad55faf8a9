package usecase

import (
	"context"
	"errors"
	"testing"
)

func newRegistrationFixture() (*RegistrationService, *stubAccountRepo, *recordingPublisher) {
	accounts := newStubAccountRepo()
	events := &recordingPublisher{}
	return NewRegistrationService(accounts, plainHasher{}, nil, events), accounts, events
}

func TestRegisterCreatesAccount(t *testing.T) {
	service, accounts, events := newRegistrationFixture()
	ctx := context.Background()

	account, err := service.Register(ctx, RegisterInput{
		Username: "carol",
		Email:    "Carol@Example.com",
		Password: "tr0ub4dor tape",
	})
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if account.ID == "" {
		t.Fatal("missing account id")
	}
	if account.Email != "carol@example.com" {
		t.Fatalf("email = %q, want lowercased", account.Email)
	}
	if account.PasswordHash != "" {
		t.Fatal("password hash leaked in result")
	}
	if !account.CanAuthenticate() {
		t.Fatal("new account should be able to authenticate")
	}

	stored, err := accounts.GetByID(ctx, account.ID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	if stored.PasswordHash != "plain:tr0ub4dor tape" {
		t.Fatalf("stored hash = %q", stored.PasswordHash)
	}
	if len(events.registered) != 1 {
		t.Fatalf("registered events = %d, want 1", len(events.registered))
	}
}

func TestRegisterDuplicate(t *testing.T) {
	service, _, _ := newRegistrationFixture()
	ctx := context.Background()

	input := RegisterInput{Username: "carol", Email: "carol@example.com", Password: "tr0ub4dor tape"}
	if _, err := service.Register(ctx, input); err != nil {
		t.Fatalf("first register: %v", err)
	}
	if _, err := service.Register(ctx, input); !errors.Is(err, ErrAccountExists) {
		t.Fatalf("err = %v, want ErrAccountExists", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	service, _, _ := newRegistrationFixture()
	ctx := context.Background()

	cases := []struct {
		name  string
		input RegisterInput
	}{
		{"short username", RegisterInput{Username: "ab", Email: "a@example.com", Password: "tr0ub4dor tape"}},
		{"bad username chars", RegisterInput{Username: "has space", Email: "a@example.com", Password: "tr0ub4dor tape"}},
		{"bad email", RegisterInput{Username: "carol", Email: "not-an-email", Password: "tr0ub4dor tape"}},
		{"short password", RegisterInput{Username: "carol", Email: "carol@example.com", Password: "ab1"}},
		{"no digit", RegisterInput{Username: "carol", Email: "carol@example.com", Password: "onlyletters"}},
		{"common password", RegisterInput{Username: "carol", Email: "carol@example.com", Password: "password1"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.Register(ctx, tc.input); !errors.Is(err, ErrInvalidRegistration) {
				t.Fatalf("err = %v, want ErrInvalidRegistration", err)
			}
		})
	}
}
