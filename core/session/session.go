// Package session holds the authenticated teacher identity of the client and its durable copy.
package session

import (
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core/activity"
)

// Durable storage slots; both are set together on login and cleared together on logout.
const (
	SlotToken    = "authToken"
	SlotIdentity = "currentTeacher"
)

var (
	// errors
	ErrEmptyToken    = errors.New("empty bearer token")
	ErrEmptyIdentity = errors.New("identity email is required")
)

// Storage is a durable key/value store of named slots.
type Storage interface {
	Get(slot string) (value string, ok bool, err error)
	Set(slot, value string) error
	Delete(slot string) error
}

// Identity is the authenticated teacher.
type Identity struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Session is the current viewer: a teacher Identity with its bearer token, or anonymous.
type Session struct {
	storage  Storage
	identity *Identity
	token    string
}

func New(storage Storage) *Session {
	return &Session{storage: storage}
}

// Current returns the identity and whether one is logged in.
func (s *Session) Current() (Identity, bool) {
	if s.identity == nil {
		return Identity{}, false
	}
	return *s.identity, true
}

func (s *Session) IsAuthenticated() bool { return s.identity != nil }

func (s *Session) Token() string { return s.token }

// Login replaces any prior session with id and token, in memory and in storage.
func (s *Session) Login(id Identity, token string) error {
	id.Email = strings.TrimSpace(id.Email)
	id.Name = strings.TrimSpace(id.Name)
	if token == "" {
		return ErrEmptyToken
	}
	if id.Email == "" {
		return ErrEmptyIdentity
	}
	data, err := json.Marshal(id)
	if err != nil {
		return errors.Wrap(err, "encoding identity")
	}
	if err = s.storage.Set(SlotToken, token); err != nil {
		return errors.Wrap(err, "storing token")
	}
	if err = s.storage.Set(SlotIdentity, string(data)); err != nil {
		_ = s.storage.Delete(SlotToken)
		return errors.Wrap(err, "storing identity")
	}
	s.identity = &id
	s.token = token
	return nil
}

// Logout clears the session in memory and in storage. It never calls the server.
func (s *Session) Logout() error {
	s.identity = nil
	s.token = ""
	errTok := s.storage.Delete(SlotToken)
	errID := s.storage.Delete(SlotIdentity)
	if errTok != nil {
		return errors.Wrap(errTok, "clearing token")
	}
	if errID != nil {
		return errors.Wrap(errID, "clearing identity")
	}
	return nil
}

// Restore loads the session from storage. Missing, malformed or expired data leaves the session anonymous;
// only storage failures are returned.
func (s *Session) Restore() error {
	s.identity = nil
	s.token = ""

	token, okTok, err := s.storage.Get(SlotToken)
	if err != nil {
		return errors.Wrap(err, "reading token")
	}
	raw, okID, err := s.storage.Get(SlotIdentity)
	if err != nil {
		return errors.Wrap(err, "reading identity")
	}
	if !okTok && !okID {
		return nil
	}

	id, valid := parseIdentity(raw)
	if valid && okTok {
		if info, err := InspectToken(token); err == nil && !info.Expired(nowFunc()) {
			s.identity = &id
			s.token = token
			return nil
		}
	}
	// half written or stale: drop both slots
	return s.Logout()
}

// CanModerate reports whether the current identity may remove participants from rec.
func (s *Session) CanModerate(rec activity.Record) bool {
	return s.identity != nil && rec.HasInstructor(s.identity.Email)
}

func parseIdentity(raw string) (Identity, bool) {
	var id Identity
	if err := json.Unmarshal([]byte(raw), &id); err != nil {
		return Identity{}, false
	}
	if strings.TrimSpace(id.Email) == "" {
		return Identity{}, false
	}
	return id, true
}
