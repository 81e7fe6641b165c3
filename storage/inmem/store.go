package inmemstore

import (
	"sync"

	"github.com/trezcool/mergington/core/session"
)

// Store keeps slots in memory. It is durable only for the lifetime of the process (tests, previews).
type Store struct {
	mutex sync.RWMutex
	slots map[string]string
}

var _ session.Storage = (*Store)(nil)

func New() *Store {
	return &Store{slots: make(map[string]string)}
}

func (s *Store) Get(slot string) (string, bool, error) {
	s.mutex.RLock()
	defer s.mutex.RUnlock()

	val, ok := s.slots[slot]
	return val, ok, nil
}

func (s *Store) Set(slot, value string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	s.slots[slot] = value
	return nil
}

func (s *Store) Delete(slot string) error {
	s.mutex.Lock()
	defer s.mutex.Unlock()

	delete(s.slots, slot)
	return nil
}

// Len returns the number of slots set.
func (s *Store) Len() int {
	s.mutex.RLock()
	defer s.mutex.RUnlock()
	return len(s.slots)
}
