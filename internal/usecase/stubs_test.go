package usecase

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/gerich15/cohortsec/internal/core/domain"
	"github.com/gerich15/cohortsec/internal/repository"
)

type stubAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]domain.Account
}

func newStubAccountRepo(accounts ...domain.Account) *stubAccountRepo {
	repo := &stubAccountRepo{accounts: make(map[string]domain.Account)}
	for _, a := range accounts {
		repo.accounts[a.ID] = a
	}
	return repo
}

func (r *stubAccountRepo) Create(_ context.Context, account domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.accounts {
		if existing.Username == account.Username || existing.Email == account.Email {
			return repository.ErrConflict
		}
	}
	r.accounts[account.ID] = account
	return nil
}

func (r *stubAccountRepo) GetByID(_ context.Context, id string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if account, ok := r.accounts[id]; ok {
		copy := account
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubAccountRepo) GetByIdentifier(_ context.Context, identifier string) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, account := range r.accounts {
		if account.Username == identifier || account.Email == identifier {
			copy := account
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubAccountRepo) UpdateTOTPSecret(_ context.Context, id string, encryptedSecret string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.TOTPSecret = encryptedSecret
	r.accounts[id] = account
	return nil
}

func (r *stubAccountRepo) SetMFAEnabled(_ context.Context, id string, enabled bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.MFAEnabled = enabled
	r.accounts[id] = account
	return nil
}

func (r *stubAccountRepo) setActive(id string, active bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account := r.accounts[id]
	account.IsActive = active
	if active {
		account.Status = domain.AccountStatusActive
	} else {
		account.Status = domain.AccountStatusDisabled
	}
	r.accounts[id] = account
}

func (r *stubAccountRepo) UpdateLastLogin(_ context.Context, id string, at time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[id]
	if !ok {
		return repository.ErrNotFound
	}
	account.LastLogin = &at
	r.accounts[id] = account
	return nil
}

type stubSessionRepo struct {
	mu       sync.Mutex
	sessions map[string]domain.Session
	now      func() time.Time
}

func newStubSessionRepo() *stubSessionRepo {
	return &stubSessionRepo{sessions: make(map[string]domain.Session), now: time.Now}
}

func (r *stubSessionRepo) Create(_ context.Context, session domain.Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[session.ID] = session
	return nil
}

func (r *stubSessionRepo) Consume(_ context.Context, userID, jti string) (*domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.UserID == userID && session.TokenJTI == jti && session.ExpiresAt.After(r.now()) {
			delete(r.sessions, id)
			copy := session
			return &copy, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *stubSessionRepo) Revoke(_ context.Context, userID, jti string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, session := range r.sessions {
		if session.UserID == userID && session.TokenJTI == jti {
			delete(r.sessions, id)
		}
	}
	return nil
}

func (r *stubSessionRepo) RevokeByID(_ context.Context, userID, sessionID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	session, ok := r.sessions[sessionID]
	if !ok || session.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.sessions, sessionID)
	return nil
}

func (r *stubSessionRepo) ListByUser(_ context.Context, userID string) ([]domain.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.Session
	for _, session := range r.sessions {
		if session.UserID == userID && session.ExpiresAt.After(r.now()) {
			out = append(out, session)
		}
	}
	return out, nil
}

func (r *stubSessionRepo) DeleteExpired(_ context.Context, before time.Time) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for id, session := range r.sessions {
		if !session.ExpiresAt.After(before) {
			delete(r.sessions, id)
			count++
		}
	}
	return count, nil
}

func (r *stubSessionRepo) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

type stubBiometricRepo struct {
	mu        sync.Mutex
	templates map[string]domain.BiometricTemplate
	settings  map[string]domain.BiometricSettings
}

func newStubBiometricRepo() *stubBiometricRepo {
	return &stubBiometricRepo{
		templates: make(map[string]domain.BiometricTemplate),
		settings:  make(map[string]domain.BiometricSettings),
	}
}

func (r *stubBiometricRepo) CreateTemplate(_ context.Context, template domain.BiometricTemplate) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.templates[template.ID] = template
	return nil
}

func (r *stubBiometricRepo) ListTemplatesByUser(_ context.Context, userID string) ([]domain.BiometricTemplate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []domain.BiometricTemplate
	for _, tpl := range r.templates {
		if tpl.UserID == userID {
			out = append(out, tpl)
		}
	}
	return out, nil
}

func (r *stubBiometricRepo) CountTemplatesByUser(_ context.Context, userID string) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	count := 0
	for _, tpl := range r.templates {
		if tpl.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (r *stubBiometricRepo) DeleteTemplate(_ context.Context, userID, templateID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	tpl, ok := r.templates[templateID]
	if !ok || tpl.UserID != userID {
		return repository.ErrNotFound
	}
	delete(r.templates, templateID)
	return nil
}

func (r *stubBiometricRepo) ListEnrolledUserIDs(_ context.Context) ([]string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	seen := make(map[string]bool)
	var out []string
	for _, tpl := range r.templates {
		if !seen[tpl.UserID] {
			seen[tpl.UserID] = true
			out = append(out, tpl.UserID)
		}
	}
	return out, nil
}

func (r *stubBiometricRepo) GetSettings(_ context.Context, userID string) (*domain.BiometricSettings, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if settings, ok := r.settings[userID]; ok {
		copy := settings
		return &copy, nil
	}
	return nil, repository.ErrNotFound
}

func (r *stubBiometricRepo) UpsertSettings(_ context.Context, settings domain.BiometricSettings) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.settings[settings.UserID] = settings
	return nil
}

// plainHasher avoids Argon2 cost in tests that do not exercise hashing itself.
type plainHasher struct{}

func (plainHasher) Hash(password string) (string, error) {
	return "plain:" + password, nil
}

func (plainHasher) Verify(password, encoded string) (bool, error) {
	return encoded == "plain:"+password, nil
}

// plainCipher is a reversible stand-in for the field cipher.
type plainCipher struct{}

func (plainCipher) Encrypt(plaintext []byte) (string, error) {
	return "enc:" + string(plaintext), nil
}

func (plainCipher) Decrypt(ciphertext string) ([]byte, error) {
	return []byte(strings.TrimPrefix(ciphertext, "enc:")), nil
}

type recordingPublisher struct {
	mu         sync.Mutex
	logins     []domain.LoginSucceededEvent
	failures   []domain.LoginFailedEvent
	revoked    []domain.SessionRevokedEvent
	lockouts   []domain.BiometricLockoutEvent
	registered []domain.AccountRegisteredEvent
}

func (p *recordingPublisher) PublishLoginSucceeded(_ context.Context, event domain.LoginSucceededEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logins = append(p.logins, event)
	return nil
}

func (p *recordingPublisher) PublishLoginFailed(_ context.Context, event domain.LoginFailedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failures = append(p.failures, event)
	return nil
}

func (p *recordingPublisher) PublishSessionRevoked(_ context.Context, event domain.SessionRevokedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.revoked = append(p.revoked, event)
	return nil
}

func (p *recordingPublisher) PublishBiometricLockout(_ context.Context, event domain.BiometricLockoutEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.lockouts = append(p.lockouts, event)
	return nil
}

func (p *recordingPublisher) PublishAccountRegistered(_ context.Context, event domain.AccountRegisteredEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.registered = append(p.registered, event)
	return nil
}
