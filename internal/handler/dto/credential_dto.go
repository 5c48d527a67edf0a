package dto

import (
	"time"

	"github.com/google/uuid"
	"github.com/makkenzo/keyauth-service/internal/domain/credential"
)

type CreateCredentialRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

// CredentialResponse never carries the secret.
type CredentialResponse struct {
	ID        uuid.UUID  `json:"id"`
	Key       string     `json:"key"`
	Name      string     `json:"name"`
	Enabled   bool       `json:"enabled"`
	CreatedAt time.Time  `json:"createdAt"`
	LastUsed  *time.Time `json:"lastUsed,omitempty"`
}

type CreatedCredentialResponse struct {
	CredentialResponse
	Secret string `json:"secret"`
}

func NewCredentialResponse(c *credential.Credential) *CredentialResponse {
	return &CredentialResponse{
		ID:        c.ID,
		Key:       c.Key,
		Name:      c.Name,
		Enabled:   c.Enabled,
		CreatedAt: c.CreatedAt,
		LastUsed:  c.LastUsedAt,
	}
}

func NewCreatedCredentialResponse(c *credential.Credential) *CreatedCredentialResponse {
	return &CreatedCredentialResponse{
		CredentialResponse: *NewCredentialResponse(c),
		Secret:             c.Secret,
	}
}
