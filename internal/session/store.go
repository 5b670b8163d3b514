package session

import (
	"sync"
	"time"
)

// Store holds the one shared portal session. The zero expiry means the
// session never expires on its own.
type Store struct {
	mu        sync.RWMutex
	jar       Jar
	expiresAt time.Time
	now       func() time.Time
}

// NewStore creates an empty store. A nil clock uses time.Now.
func NewStore(now func() time.Time) *Store {
	if now == nil {
		now = time.Now
	}
	return &Store{now: now}
}

// Valid reports whether the session has cookies and has not expired
func (s *Store) Valid() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.jar.Len() == 0 {
		return false
	}
	return s.expiresAt.IsZero() || s.now().Before(s.expiresAt)
}

// Replace installs a freshly authenticated jar that expires after ttl
func (s *Store) Replace(jar Jar, ttl time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jar = jar.Clone()
	if ttl > 0 {
		s.expiresAt = s.now().Add(ttl)
	} else {
		s.expiresAt = time.Time{}
	}
}

// Clear drops all cookies and the expiry
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.jar = Jar{}
	s.expiresAt = time.Time{}
}

// Header returns the Cookie header for authenticated requests
func (s *Store) Header() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jar.Header()
}

// Snapshot returns a copy of the current jar
func (s *Store) Snapshot() Jar {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.jar.Clone()
}

// ExpiresAt returns the expiry instant, zero when none is set
func (s *Store) ExpiresAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.expiresAt
}
