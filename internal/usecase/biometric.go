package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	uuid "github.com/google/uuid"

	"github.com/gerich15/cohortsec/internal/biometric"
	"github.com/gerich15/cohortsec/internal/core/domain"
	"github.com/gerich15/cohortsec/internal/core/port"
	"github.com/gerich15/cohortsec/internal/repository"
)

var (
	// ErrTemplateQuotaExceeded indicates the account already holds the
	// maximum number of face templates.
	ErrTemplateQuotaExceeded = errors.New("template quota exceeded")
	// ErrTemplateNotFound indicates the template does not exist or belongs
	// to another account.
	ErrTemplateNotFound = errors.New("template not found")
	// ErrBiometricMismatch indicates the face did not match any enrolled template.
	ErrBiometricMismatch = errors.New("biometric mismatch")
	// ErrBiometricLocked indicates biometric authentication is temporarily
	// refused after repeated failures.
	ErrBiometricLocked = errors.New("biometric authentication locked")
	// ErrUnsuitableImage indicates the submitted image cannot be used for
	// matching.
	ErrUnsuitableImage = errors.New("unsuitable image")
	// ErrInvalidThreshold indicates the requested confidence threshold is out
	// of the allowed range.
	ErrInvalidThreshold = errors.New("confidence threshold out of range")
	// ErrNoBiometricEnrolled indicates the account has no face templates.
	ErrNoBiometricEnrolled = errors.New("no biometric templates enrolled")
)

// BiometricService implements face enrollment, 1:1 verification, and 1:N
// identification on encrypted templates.
type BiometricService struct {
	templates    port.BiometricRepository
	accounts     port.AccountRepository
	encoder      port.FaceEncoder
	cipher       port.FieldCipher
	finisher     loginFinisher
	events       port.EventPublisher
	maxTemplates int
	now          func() time.Time
}

// NewBiometricService constructs a BiometricService instance.
func NewBiometricService(
	templates port.BiometricRepository,
	accounts port.AccountRepository,
	encoder port.FaceEncoder,
	cipher port.FieldCipher,
	finisher loginFinisher,
	events port.EventPublisher,
	maxTemplates int,
) *BiometricService {
	if maxTemplates <= 0 {
		maxTemplates = domain.MaxTemplatesPerAccount
	}
	return &BiometricService{
		templates:    templates,
		accounts:     accounts,
		encoder:      encoder,
		cipher:       cipher,
		finisher:     finisher,
		events:       events,
		maxTemplates: maxTemplates,
		now:          time.Now,
	}
}

// WithClock injects a custom clock for tests.
func (s *BiometricService) WithClock(now func() time.Time) *BiometricService {
	if now != nil {
		s.now = now
	}
	return s
}

// Enroll extracts an embedding from the image and stores it encrypted as a
// new template. Enrollment is refused once the quota is reached; deleting a
// template frees a slot again.
func (s *BiometricService) Enroll(ctx context.Context, userID string, image []byte, label string) (*domain.BiometricTemplate, error) {
	if _, err := s.getAccount(ctx, userID); err != nil {
		return nil, err
	}

	count, err := s.templates.CountTemplatesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count templates: %w", err)
	}
	if count >= s.maxTemplates {
		return nil, ErrTemplateQuotaExceeded
	}

	embedding, err := s.extract(image)
	if err != nil {
		return nil, err
	}

	encrypted, err := s.encryptEmbedding(embedding)
	if err != nil {
		return nil, err
	}

	template := domain.BiometricTemplate{
		ID:                 uuid.NewString(),
		UserID:             userID,
		EncryptedEmbedding: encrypted,
		Label:              label,
		CreatedAt:          s.now().UTC(),
	}
	if err := s.templates.CreateTemplate(ctx, template); err != nil {
		return nil, fmt.Errorf("store template: %w", err)
	}

	return &template, nil
}

// Verify matches the image against the account's own templates (1:1) and
// reports whether it matched. It never issues tokens: biometric login is the
// Identify path. Failed matches feed the lockout counter; while locked, every
// attempt is refused before any matching happens, so even the right face
// cannot unlock early.
func (s *BiometricService) Verify(ctx context.Context, userID string, image []byte) (bool, error) {
	if _, err := s.getAccount(ctx, userID); err != nil {
		return false, err
	}

	settings, err := s.getOrDefaultSettings(ctx, userID)
	if err != nil {
		return false, err
	}

	now := s.now().UTC()
	if settings.IsLocked(now) {
		return false, ErrBiometricLocked
	}

	templates, err := s.templates.ListTemplatesByUser(ctx, userID)
	if err != nil {
		return false, fmt.Errorf("list templates: %w", err)
	}
	if len(templates) == 0 {
		return false, ErrNoBiometricEnrolled
	}

	probe, err := s.extract(image)
	if err != nil {
		return false, err
	}

	matched, err := s.matchAny(probe, templates, settings.ConfidenceThreshold)
	if err != nil {
		return false, err
	}

	if !matched {
		locked := settings.RecordFailure(now)
		if err := s.templates.UpsertSettings(ctx, settings); err != nil {
			return false, fmt.Errorf("record failed attempt: %w", err)
		}
		if locked && s.events != nil {
			_ = s.events.PublishBiometricLockout(ctx, domain.BiometricLockoutEvent{
				EventID:        uuid.NewString(),
				UserID:         userID,
				FailedAttempts: settings.FailedAttempts,
				LockedUntil:    *settings.LockedUntil,
				At:             now,
			})
		}
		return false, nil
	}

	settings.RecordSuccess(now)
	if err := s.templates.UpsertSettings(ctx, settings); err != nil {
		return false, fmt.Errorf("reset failure counter: %w", err)
	}

	return true, nil
}

// Identify matches the image against every enrolled account (1:N) and logs in
// the first account that matches. Locked and inactive accounts are skipped
// entirely, never matched against. A miss does not touch any account's
// failure counter; the endpoint is guarded by an IP rate limit instead.
func (s *BiometricService) Identify(ctx context.Context, image []byte, ip, userAgent *string) (*TokenPair, error) {
	probe, err := s.extract(image)
	if err != nil {
		return nil, err
	}

	userIDs, err := s.templates.ListEnrolledUserIDs(ctx)
	if err != nil {
		return nil, fmt.Errorf("list enrolled users: %w", err)
	}

	now := s.now().UTC()
	for _, userID := range userIDs {
		settings, err := s.getOrDefaultSettings(ctx, userID)
		if err != nil {
			return nil, err
		}
		if settings.IsLocked(now) {
			continue
		}

		templates, err := s.templates.ListTemplatesByUser(ctx, userID)
		if err != nil {
			return nil, fmt.Errorf("list templates: %w", err)
		}

		matched, err := s.matchAny(probe, templates, settings.ConfidenceThreshold)
		if err != nil {
			return nil, err
		}
		if !matched {
			continue
		}

		account, err := s.getAccount(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrAccountNotFound) || errors.Is(err, ErrInactiveAccount) {
				continue
			}
			return nil, err
		}

		settings.RecordSuccess(now)
		if err := s.templates.UpsertSettings(ctx, settings); err != nil {
			return nil, fmt.Errorf("reset failure counter: %w", err)
		}

		return s.finisher.FinishLogin(ctx, *account, "biometric", ip, userAgent)
	}

	return nil, ErrBiometricMismatch
}

// ListTemplates returns the account's enrolled templates without embeddings.
func (s *BiometricService) ListTemplates(ctx context.Context, userID string) ([]domain.BiometricTemplate, error) {
	templates, err := s.templates.ListTemplatesByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for i := range templates {
		templates[i].EncryptedEmbedding = ""
	}
	return templates, nil
}

// DeleteTemplate removes one enrolled template.
func (s *BiometricService) DeleteTemplate(ctx context.Context, userID, templateID string) error {
	if err := s.templates.DeleteTemplate(ctx, userID, templateID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrTemplateNotFound
		}
		return fmt.Errorf("delete template: %w", err)
	}
	return nil
}

// GetSettings returns the account's biometric settings, applying defaults
// when the account never configured anything.
func (s *BiometricService) GetSettings(ctx context.Context, userID string) (*domain.BiometricSettings, error) {
	settings, err := s.getOrDefaultSettings(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &settings, nil
}

// UpdateThreshold changes the account's matching strictness within the
// allowed bounds.
func (s *BiometricService) UpdateThreshold(ctx context.Context, userID string, threshold float64) (*domain.BiometricSettings, error) {
	if threshold < domain.MinConfidenceThreshold || threshold > domain.MaxConfidenceThreshold {
		return nil, ErrInvalidThreshold
	}

	settings, err := s.getOrDefaultSettings(ctx, userID)
	if err != nil {
		return nil, err
	}

	settings.ConfidenceThreshold = threshold
	settings.UpdatedAt = s.now().UTC()
	if err := s.templates.UpsertSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("store settings: %w", err)
	}

	return &settings, nil
}

func (s *BiometricService) getAccount(ctx context.Context, userID string) (*domain.Account, error) {
	account, err := s.accounts.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrAccountNotFound
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !account.CanAuthenticate() {
		return nil, ErrInactiveAccount
	}
	return account, nil
}

func (s *BiometricService) getOrDefaultSettings(ctx context.Context, userID string) (domain.BiometricSettings, error) {
	settings, err := s.templates.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return domain.NewBiometricSettings(userID, s.now().UTC()), nil
		}
		return domain.BiometricSettings{}, fmt.Errorf("load settings: %w", err)
	}
	return *settings, nil
}

func (s *BiometricService) extract(image []byte) ([]float64, error) {
	embedding, err := s.encoder.Extract(image)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsuitableImage, err.Error())
	}
	return embedding, nil
}

func (s *BiometricService) encryptEmbedding(embedding []float64) (string, error) {
	payload, err := json.Marshal(embedding)
	if err != nil {
		return "", fmt.Errorf("marshal embedding: %w", err)
	}
	encrypted, err := s.cipher.Encrypt(payload)
	if err != nil {
		return "", fmt.Errorf("encrypt embedding: %w", err)
	}
	return encrypted, nil
}

func (s *BiometricService) decryptEmbedding(encrypted string) ([]float64, error) {
	payload, err := s.cipher.Decrypt(encrypted)
	if err != nil {
		return nil, fmt.Errorf("decrypt embedding: %w", err)
	}
	var embedding []float64
	if err := json.Unmarshal(payload, &embedding); err != nil {
		return nil, fmt.Errorf("unmarshal embedding: %w", err)
	}
	return embedding, nil
}

func (s *BiometricService) matchAny(probe []float64, templates []domain.BiometricTemplate, threshold float64) (bool, error) {
	for _, tpl := range templates {
		stored, err := s.decryptEmbedding(tpl.EncryptedEmbedding)
		if err != nil {
			return false, err
		}
		ok, _, err := biometric.Matches(probe, stored, threshold)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}
