package session

import (
	"sync"
	"time"
)

// pendingTTL bounds how long an unconfirmed TOTP secret stays usable.
const pendingTTL = 10 * time.Minute

type pendingSecret struct {
	secret    string
	expiresAt time.Time
}

// pendingSecretStore holds generated TOTP secrets awaiting confirmation,
// keyed by admin id. Entries expire; a restart discards them, which only
// forces the admin to restart enrollment.
type pendingSecretStore struct {
	mu      sync.Mutex
	entries map[string]pendingSecret
}

func newPendingSecretStore() *pendingSecretStore {
	return &pendingSecretStore{entries: make(map[string]pendingSecret)}
}

func (s *pendingSecretStore) Set(adminID, secret string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[adminID] = pendingSecret{secret: secret, expiresAt: time.Now().Add(pendingTTL)}
}

func (s *pendingSecretStore) Get(adminID string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[adminID]
	if !ok {
		return "", false
	}
	if time.Now().After(entry.expiresAt) {
		delete(s.entries, adminID)
		return "", false
	}
	return entry.secret, true
}

func (s *pendingSecretStore) Remove(adminID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.entries, adminID)
}
