package activity

import "github.com/pkg/errors"

// ErrNotCached is returned by local mutations on a name the store does not hold.
// Callers fall back to a full refetch and ReplaceAll.
var ErrNotCached = errors.New("activity not cached")

// Store is the client-side cache of the activity collection.
// It is owned by a single goroutine; mutations are local and assume the server call already succeeded.
type Store struct {
	coll    Collection
	version uint64
}

func NewStore() *Store {
	return &Store{}
}

// Version changes on every successful mutation; projections computed for an older version are stale.
func (s *Store) Version() uint64 { return s.version }

// ReplaceAll swaps the entire cached collection.
func (s *Store) ReplaceAll(coll Collection) {
	s.coll = coll.clone()
	s.version++
}

func (s *Store) Get(name string) (Record, bool) {
	rec, ok := s.coll.Get(name)
	if !ok {
		return Record{}, false
	}
	return rec.clone(), true
}

// All returns a copy of the cached collection.
func (s *Store) All() Collection {
	return s.coll.clone()
}

func (s *Store) Len() int { return s.coll.Len() }

// AddParticipant appends id to the roster of name unless it is already there.
func (s *Store) AddParticipant(name, id string) error {
	rec, ok := s.coll.Get(name)
	if !ok {
		return ErrNotCached
	}
	if rec.HasParticipant(id) {
		return nil
	}
	rec.Participants = append(rec.Participants, id)
	s.coll.Set(rec)
	s.version++
	return nil
}

// RemoveParticipant drops the first entry matching id; removing a non-member is a no-op.
func (s *Store) RemoveParticipant(name, id string) error {
	rec, ok := s.coll.Get(name)
	if !ok {
		return ErrNotCached
	}
	idx := indexOf(rec.Participants, id)
	if idx < 0 {
		return nil
	}
	rec.Participants = append(rec.Participants[:idx:idx], rec.Participants[idx+1:]...)
	s.coll.Set(rec)
	s.version++
	return nil
}
