package credential

import (
	"context"
	"errors"
	"time"
)

var ErrCredentialNotFound = errors.New("credential not found or disabled")

type Repository interface {
	Create(ctx context.Context, cred *Credential) (*Credential, error)
	// FindByKey only returns enabled credentials, secret included.
	FindByKey(ctx context.Context, key string) (*Credential, error)
	// List returns every credential, enabled or not, with Secret left empty.
	List(ctx context.Context) ([]*Credential, error)
	Disable(ctx context.Context, key string) (*Credential, error)
	Delete(ctx context.Context, key string) (bool, error)
	UpdateLastUsed(ctx context.Context, key string, lastUsed time.Time) error
}
