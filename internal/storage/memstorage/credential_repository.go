package memstorage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
	"github.com/makkenzo/keyauth-service/internal/ierr"
)

// CredentialRepository is a process-local credential store used when no
// database is configured, and by tests.
type CredentialRepository struct {
	mu    sync.RWMutex
	creds map[string]*credential.Credential
}

func NewCredentialRepository() *CredentialRepository {
	return &CredentialRepository{
		creds: make(map[string]*credential.Credential),
	}
}

var _ credential.Repository = (*CredentialRepository)(nil)

func (r *CredentialRepository) Create(ctx context.Context, cred *credential.Credential) (*credential.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.creds[cred.Key]; exists {
		return nil, fmt.Errorf("%w: credential key already exists", ierr.ErrConflict)
	}

	stored := *cred
	stored.ID = uuid.New()
	r.creds[stored.Key] = &stored

	created := stored
	return &created, nil
}

func (r *CredentialRepository) FindByKey(ctx context.Context, key string) (*credential.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.creds[key]
	if !ok || !c.Enabled {
		return nil, credential.ErrCredentialNotFound
	}
	return copyCredential(c), nil
}

func (r *CredentialRepository) List(ctx context.Context) ([]*credential.Credential, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*credential.Credential, 0, len(r.creds))
	for _, c := range r.creds {
		out = append(out, copyCredential(c).WithoutSecret())
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (r *CredentialRepository) Disable(ctx context.Context, key string) (*credential.Credential, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.creds[key]
	if !ok {
		return nil, credential.ErrCredentialNotFound
	}
	c.Enabled = false
	return copyCredential(c).WithoutSecret(), nil
}

func (r *CredentialRepository) Delete(ctx context.Context, key string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.creds[key]; !ok {
		return false, nil
	}
	delete(r.creds, key)
	return true, nil
}

func (r *CredentialRepository) UpdateLastUsed(ctx context.Context, key string, lastUsed time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.creds[key]; ok {
		ts := lastUsed
		c.LastUsedAt = &ts
	}
	return nil
}

// Peek returns a record regardless of its enabled flag. Test helper.
func (r *CredentialRepository) Peek(key string) (*credential.Credential, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.creds[key]
	if !ok {
		return nil, false
	}
	return copyCredential(c), true
}

func copyCredential(c *credential.Credential) *credential.Credential {
	cp := *c
	if c.LastUsedAt != nil {
		ts := *c.LastUsedAt
		cp.LastUsedAt = &ts
	}
	return &cp
}
