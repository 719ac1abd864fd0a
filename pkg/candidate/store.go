// Package candidate provides the client-side controllers behind the careers
// site: the application form, the profile test with deterministic option
// shuffling, and the resume uploader.
package candidate

import "sync"

// Persistence keys used by the controllers.
const (
	formStateKey   = "careers.jobApplication.form"
	candidateIDKey = "careers.candidateId"
	answersKey     = "careers.profileTest.answers"
	seedKeyPrefix  = "careers.profileTest.seed"
)

// TabStore is per-tab key/value persistence. State survives reloads within
// one tab but is never shared across tabs.
type TabStore interface {
	Get(key string) (string, bool)
	Set(key, value string)
	Remove(key string)
}

// MemoryStore is an in-memory TabStore.
type MemoryStore struct {
	mu     sync.Mutex
	values map[string]string
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

// Get returns the stored value for key.
func (s *MemoryStore) Get(key string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	value, ok := s.values[key]
	return value, ok
}

// Set stores value under key.
func (s *MemoryStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Remove deletes key.
func (s *MemoryStore) Remove(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}
