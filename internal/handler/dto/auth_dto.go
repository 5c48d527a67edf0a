package dto

import "time"

// ChallengeRequest and VerifyRequest do not reject missing fields: the exchange
// answers them with the same 401 reasons as wrong values.
type ChallengeRequest struct {
	APIKey string `json:"apiKey"`
}

type ChallengeResponse struct {
	Challenge string `json:"challenge"`
	RequestID string `json:"requestId"`
}

type VerifyRequest struct {
	APIKey    string `json:"apiKey"`
	RequestID string `json:"requestId"`
	Challenge string `json:"challenge"`
	HMAC      string `json:"hmac"`
}

type VerifyResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type SessionResponse struct {
	APIKey    string    `json:"apiKey"`
	ExpiresAt time.Time `json:"expiresAt"`
}
