// Package authclient is a minimal client for the challenge/response
// exchange, used by keyauthctl and integration tests.
package authclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/makkenzo/keyauth-service/internal/handler/dto"
	"github.com/makkenzo/keyauth-service/internal/util"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
	}
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status int
	Reason string
	Code   string
}

func (e *APIError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("unexpected status %d", e.Status)
	}
	return fmt.Sprintf("%s (status %d, code %s)", e.Reason, e.Status, e.Code)
}

func (c *Client) RequestChallenge(ctx context.Context, apiKey string) (*dto.ChallengeResponse, error) {
	var resp dto.ChallengeResponse
	if err := c.post(ctx, "/auth/challenge", dto.ChallengeRequest{APIKey: apiKey}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (c *Client) Verify(ctx context.Context, req dto.VerifyRequest) (*dto.VerifyResponse, error) {
	var resp dto.VerifyResponse
	if err := c.post(ctx, "/auth/verify", req, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Login runs the whole exchange: request a challenge, sign it with the
// secret and trade the signature for a token.
func (c *Client) Login(ctx context.Context, apiKey, secret string) (*dto.VerifyResponse, error) {
	ch, err := c.RequestChallenge(ctx, apiKey)
	if err != nil {
		return nil, fmt.Errorf("request challenge: %w", err)
	}

	tok, err := c.Verify(ctx, dto.VerifyRequest{
		APIKey:    apiKey,
		RequestID: ch.RequestID,
		Challenge: ch.Challenge,
		HMAC:      util.SignChallenge(secret, ch.Challenge),
	})
	if err != nil {
		return nil, fmt.Errorf("verify challenge: %w", err)
	}
	return tok, nil
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	raw, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		var apiErr dto.APIErrorResponse
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		return &APIError{Status: resp.StatusCode, Reason: apiErr.Error, Code: apiErr.Code}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
