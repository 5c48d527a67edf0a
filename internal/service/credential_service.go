package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/ierr"
	"github.com/makkenzo/keyauth-service/internal/sealer"
	"github.com/makkenzo/keyauth-service/internal/util"
	"go.uber.org/zap"
)

// CredentialService is the credential registry: it owns creation,
// disabling, deletion and last-used bookkeeping of API key/secret pairs.
type CredentialService struct {
	repo   credential.Repository
	sealer sealer.Sealer
	usage  UsageRecorder
	logger *zap.Logger
	now    func() time.Time
}

func NewCredentialService(repo credential.Repository, s sealer.Sealer, usage UsageRecorder, logger *zap.Logger) *CredentialService {
	return &CredentialService{
		repo:   repo,
		sealer: s,
		usage:  usage,
		logger: logger.Named("CredentialService"),
		now:    time.Now,
	}
}

// Create generates and persists a new credential. The returned record is
// the only place the plaintext secret is ever exposed.
func (s *CredentialService) Create(ctx context.Context, name string) (*credential.Credential, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: credential name is required", ierr.ErrValidation)
	}

	key, secret, err := util.GenerateCredential()
	if err != nil {
		s.logger.Error("Failed to generate credential", zap.Error(err))
		return nil, fmt.Errorf("%w: failed generating credential: %v", ierr.ErrInternalServer, err)
	}

	sealed, err := s.sealer.Seal(secret)
	if err != nil {
		s.logger.Error("Failed to seal credential secret", zap.Error(err))
		return nil, fmt.Errorf("%w: failed sealing secret: %v", ierr.ErrInternalServer, err)
	}

	created, err := s.repo.Create(ctx, &credential.Credential{
		Key:       key,
		Secret:    sealed,
		Name:      name,
		Enabled:   true,
		CreatedAt: s.now().UTC(),
	})
	if err != nil {
		s.logger.Error("Failed to save new credential", zap.Error(err))
		return nil, fmt.Errorf("repository error creating credential: %w", err)
	}

	created.Secret = secret
	s.logger.Info("Credential created", zap.String("name", name), zap.String("key", util.MaskKey(key)))
	return created, nil
}

// Get returns an enabled credential without its secret. Missing and
// disabled keys both yield credential.ErrCredentialNotFound.
func (s *CredentialService) Get(ctx context.Context, key string) (*credential.Credential, error) {
	cred, err := s.find(ctx, key)
	if err != nil {
		return nil, err
	}
	return cred.WithoutSecret(), nil
}

func (s *CredentialService) List(ctx context.Context) ([]*credential.Credential, error) {
	creds, err := s.repo.List(ctx)
	if err != nil {
		s.logger.Error("Failed to list credentials", zap.Error(err))
		return nil, fmt.Errorf("repository error listing credentials: %w", err)
	}
	for i, c := range creds {
		creds[i] = c.WithoutSecret()
	}
	return creds, nil
}

// Disable is idempotent; disabling an already disabled key succeeds.
func (s *CredentialService) Disable(ctx context.Context, key string) (*credential.Credential, error) {
	cred, err := s.repo.Disable(ctx, key)
	if err != nil {
		if errors.Is(err, credential.ErrCredentialNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("repository error disabling credential: %w", err)
	}
	s.logger.Info("Credential disabled", zap.String("key", util.MaskKey(key)))
	return cred.WithoutSecret(), nil
}

func (s *CredentialService) Delete(ctx context.Context, key string) (bool, error) {
	matched, err := s.repo.Delete(ctx, key)
	if err != nil {
		return false, fmt.Errorf("repository error deleting credential: %w", err)
	}
	if matched {
		s.logger.Info("Credential deleted", zap.String("key", util.MaskKey(key)))
	}
	return matched, nil
}

func (s *CredentialService) TouchLastUsed(ctx context.Context, key string) {
	s.usage.Touch(ctx, key, s.now().UTC())
}

// VerifySecret reports whether candidate matches the stored secret of an
// enabled credential. Any successful lookup counts as a use of the key,
// whatever the comparison outcome.
func (s *CredentialService) VerifySecret(ctx context.Context, key, candidate string) (bool, error) {
	cred, err := s.lookup(ctx, key)
	if err != nil {
		if errors.Is(err, credential.ErrCredentialNotFound) {
			return false, nil
		}
		return false, err
	}
	s.TouchLastUsed(ctx, key)
	return subtle.ConstantTimeCompare([]byte(cred.Secret), []byte(candidate)) == 1, nil
}

// lookup returns an enabled credential with its secret opened.
func (s *CredentialService) lookup(ctx context.Context, key string) (*credential.Credential, error) {
	cred, err := s.find(ctx, key)
	if err != nil {
		return nil, err
	}
	secret, err := s.sealer.Open(cred.Secret)
	if err != nil {
		s.logger.Error("Failed to open credential secret", zap.String("key", util.MaskKey(key)), zap.Error(err))
		return nil, fmt.Errorf("%w: failed opening secret: %v", ierr.ErrInternalServer, err)
	}
	cred.Secret = secret
	return cred, nil
}

func (s *CredentialService) find(ctx context.Context, key string) (*credential.Credential, error) {
	if key == "" {
		return nil, credential.ErrCredentialNotFound
	}
	cred, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		if errors.Is(err, credential.ErrCredentialNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("repository error finding credential: %w", err)
	}
	return cred, nil
}
