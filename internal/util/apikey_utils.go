package util

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/makkenzo/keyauth-service/internal/domain/credential"
)

const requestIDEntropyBytes = 8

func generateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	_, err := rand.Read(b)
	if err != nil {
		return nil, err
	}
	return b, nil
}

// RandomHex returns n bytes from crypto/rand, hex encoded.
func RandomHex(n int) (string, error) {
	b, err := generateRandomBytes(n)
	if err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// GenerateCredential returns a fresh public key and shared secret.
func GenerateCredential() (key string, secret string, err error) {
	key, err = RandomHex(credential.KeyBytes)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate key: %w", err)
	}

	secret, err = RandomHex(credential.SecretBytes)
	if err != nil {
		return "", "", fmt.Errorf("failed to generate secret: %w", err)
	}

	return key, secret, nil
}

// NewRequestID binds a challenge issuance to the requesting key plus fresh
// randomness so concurrent requests from one credential never collide.
func NewRequestID(key string) (string, error) {
	suffix, err := RandomHex(requestIDEntropyBytes)
	if err != nil {
		return "", fmt.Errorf("failed to generate request id: %w", err)
	}
	return key + "-" + suffix, nil
}
