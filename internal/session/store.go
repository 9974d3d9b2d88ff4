// Package session keeps the in-memory mapping from session tokens to the
// users they were issued to.
package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrTokenInUse is returned by Put when the token is bound to another user.
var ErrTokenInUse = errors.New("session token bound to another user")

type entry struct {
	userID    int64
	createdAt time.Time
}

// Store maps opaque session tokens to user ids. It is safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]entry
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates an empty Store. A ttl of zero means tokens never expire.
func NewStore(ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[string]entry),
		ttl:      ttl,
		now:      time.Now,
	}
}

// Create issues a fresh random token bound to userID.
func (s *Store) Create(userID int64) (string, error) {
	for range 3 {
		id, err := uuid.NewRandom()
		if err != nil {
			return "", fmt.Errorf("generate session token: %w", err)
		}
		token := id.String()

		err = s.Put(token, userID)
		if err == nil {
			return token, nil
		}
		if !errors.Is(err, ErrTokenInUse) {
			return "", err
		}
	}
	return "", fmt.Errorf("generate session token: repeated collisions")
}

// Put binds token to userID. Binding a token again to the same user
// restarts its lifetime; a token held by a different user is never
// rebound.
func (s *Store) Put(token string, userID int64) error {
	if token == "" {
		return errors.New("empty session token")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.sessions[token]; ok && e.userID != userID {
		return ErrTokenInUse
	}
	s.sessions[token] = entry{userID: userID, createdAt: s.now()}
	return nil
}

// Get resolves token to a user id. Unknown and expired tokens report false.
func (s *Store) Get(token string) (int64, bool) {
	if token == "" {
		return 0, false
	}

	s.mu.RLock()
	e, ok := s.sessions[token]
	s.mu.RUnlock()

	if !ok || s.expired(e) {
		return 0, false
	}
	return e.userID, true
}

// Len reports the number of stored tokens, expired ones included.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Purge removes expired tokens and returns how many were dropped.
func (s *Store) Purge() int {
	if s.ttl <= 0 {
		return 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for token, e := range s.sessions {
		if s.expired(e) {
			delete(s.sessions, token)
			removed++
		}
	}
	return removed
}

func (s *Store) expired(e entry) bool {
	return s.ttl > 0 && s.now().Sub(e.createdAt) >= s.ttl
}

// CookieName is the cookie (and login payload key) carrying the token.
const CookieName = "SESSION_ID"
