package memstorage

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/makkenzo/keyauth-service/internal/domain/challenge"
)

var ErrStoreClosed = errors.New("challenge store closed")

type challengeEntry struct {
	challenge challenge.Challenge
	timer     *time.Timer
	gen       uint64
}

// ChallengeStore keeps challenges in a process-local map and removes each
// entry with its own expiry timer. Pending challenges do not survive a
// restart.
type ChallengeStore struct {
	mu      sync.Mutex
	entries map[string]*challengeEntry
	gen     uint64
	closed  bool
	now     func() time.Time
}

func NewChallengeStore() *ChallengeStore {
	return &ChallengeStore{
		entries: make(map[string]*challengeEntry),
		now:     time.Now,
	}
}

var _ challenge.Store = (*ChallengeStore)(nil)

func (s *ChallengeStore) Put(ctx context.Context, c challenge.Challenge, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrStoreClosed
	}

	// An expiry still pending for a replaced entry must not remove the new one.
	if existing, ok := s.entries[c.RequestID]; ok {
		existing.timer.Stop()
	}

	s.gen++
	gen := s.gen
	id := c.RequestID
	if c.ExpiresAt.IsZero() {
		c.ExpiresAt = s.now().Add(ttl)
	}
	s.entries[id] = &challengeEntry{
		challenge: c,
		gen:       gen,
		timer:     time.AfterFunc(ttl, func() { s.expire(id, gen) }),
	}
	return nil
}

func (s *ChallengeStore) Get(ctx context.Context, requestID string) (challenge.Challenge, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[requestID]
	if !ok {
		return challenge.Challenge{}, challenge.ErrChallengeNotFound
	}
	// The timer may lag behind the deadline; the deadline wins.
	if !s.now().Before(e.challenge.ExpiresAt) {
		e.timer.Stop()
		delete(s.entries, requestID)
		return challenge.Challenge{}, challenge.ErrChallengeNotFound
	}
	return e.challenge, nil
}

func (s *ChallengeStore) Delete(ctx context.Context, requestID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[requestID]
	if !ok {
		return false, nil
	}
	e.timer.Stop()
	delete(s.entries, requestID)
	return s.now().Before(e.challenge.ExpiresAt), nil
}

// Close cancels every pending expiry and drops all entries.
func (s *ChallengeStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, e := range s.entries {
		e.timer.Stop()
		delete(s.entries, id)
	}
	s.closed = true
	return nil
}

func (s *ChallengeStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *ChallengeStore) expire(requestID string, gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e, ok := s.entries[requestID]; ok && e.gen == gen {
		delete(s.entries, requestID)
	}
}
