package credential

import (
	"time"

	"github.com/google/uuid"
)

type Credential struct {
	ID         uuid.UUID
	Key        string
	Secret     string
	Name       string
	Enabled    bool
	CreatedAt  time.Time
	LastUsedAt *time.Time
}

// WithoutSecret returns a copy that is safe to hand to callers other than
// the creator.
func (c *Credential) WithoutSecret() *Credential {
	cp := *c
	cp.Secret = ""
	return &cp
}

const (
	KeyBytes    = 16
	SecretBytes = 32
)
