// Package sealer encrypts credential secrets at rest.
//
// Secrets cannot be stored hashed because the verifier recomputes an HMAC
// keyed by the raw secret, so they are sealed with XChaCha20-Poly1305 instead.
package sealer

import (
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
)

const sealedPrefix = "v1:"

var ErrMalformedCiphertext = errors.New("sealed secret is malformed")

type Sealer interface {
	Seal(plaintext string) (string, error)
	Open(stored string) (string, error)
}

// NewSealer returns a sealer for the given base64 encoded 32 byte key. An
// empty key yields a passthrough sealer.
func NewSealer(encodedKey string) (Sealer, error) {
	if encodedKey == "" {
		return Plaintext{}, nil
	}
	key, err := base64.StdEncoding.DecodeString(encodedKey)
	if err != nil {
		return nil, fmt.Errorf("decode sealing key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("init sealing cipher: %w", err)
	}
	return &AEAD{aead: aead}, nil
}

type AEAD struct {
	aead cipher.AEAD
}

func (s *AEAD) Seal(plaintext string) (string, error) {
	nonce := make([]byte, s.aead.NonceSize(), s.aead.NonceSize()+len(plaintext)+s.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("generate nonce: %w", err)
	}
	out := s.aead.Seal(nonce, nonce, []byte(plaintext), nil)
	return sealedPrefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open decrypts a sealed value. Values written before sealing was enabled
// carry no prefix and are returned unchanged.
func (s *AEAD) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	if len(raw) < s.aead.NonceSize() {
		return "", ErrMalformedCiphertext
	}
	nonce, ciphertext := raw[:s.aead.NonceSize()], raw[s.aead.NonceSize():]
	plain, err := s.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCiphertext, err)
	}
	return string(plain), nil
}

type Plaintext struct{}

func (Plaintext) Seal(plaintext string) (string, error) { return plaintext, nil }

func (Plaintext) Open(stored string) (string, error) {
	if strings.HasPrefix(stored, sealedPrefix) {
		return "", fmt.Errorf("%w: secret is sealed but no sealing key is configured", ErrMalformedCiphertext)
	}
	return stored, nil
}
