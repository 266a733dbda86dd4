package service

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// oauthState holds the per-flow values created at OAuth start and consumed
// once at the callback.
type oauthState struct {
	Provider     string
	RedirectTo   string
	CodeVerifier string
	ExpiresAt    time.Time
}

// stateStore keeps pending OAuth flows in memory. Entries are single use and
// expire after the configured TTL. The gateway runs as a single instance, so
// no external store is needed.
type stateStore struct {
	mu     sync.Mutex
	states map[string]oauthState
	ttl    time.Duration
	now    func() time.Time
}

func newStateStore(ttl time.Duration) *stateStore {
	return &stateStore{
		states: make(map[string]oauthState),
		ttl:    ttl,
		now:    time.Now,
	}
}

// Create registers a pending flow and returns its opaque state value.
func (s *stateStore) Create(provider, redirectTo, codeVerifier string) string {
	state := uuid.NewString()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.prune()
	s.states[state] = oauthState{
		Provider:     provider,
		RedirectTo:   redirectTo,
		CodeVerifier: codeVerifier,
		ExpiresAt:    s.now().Add(s.ttl),
	}
	return state
}

// Consume removes a pending flow and returns it. Expired or unknown states
// report ok=false.
func (s *stateStore) Consume(state string) (oauthState, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	st, ok := s.states[state]
	if !ok {
		return oauthState{}, false
	}
	delete(s.states, state)
	if st.ExpiresAt.Before(s.now()) {
		return oauthState{}, false
	}
	return st, true
}

// prune drops expired entries. Caller must hold the lock.
func (s *stateStore) prune() {
	now := s.now()
	for k, v := range s.states {
		if v.ExpiresAt.Before(now) {
			delete(s.states, k)
		}
	}
}

// newCodeVerifier generates a PKCE code verifier.
func newCodeVerifier() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// computeS256Challenge derives the S256 code challenge for a verifier.
func computeS256Challenge(verifier string) string {
	sum := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}
