// Package filestore persists session slots as one file per slot in a private directory.
package filestore

import (
	"os"
	"path/filepath"
	"regexp"

	"github.com/pkg/errors"

	"github.com/trezcool/mergington/core/session"
)

var (
	slotNameRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

	errInvalidSlot = errors.New("invalid slot name")
)

type Store struct {
	dir string
}

var _ session.Storage = (*Store)(nil)

// Open creates dir if needed and returns a Store rooted at it.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, errors.Wrapf(err, "creating %s", dir)
	}
	return &Store{dir: dir}, nil
}

func (s *Store) Dir() string { return s.dir }

func (s *Store) path(slot string) (string, error) {
	if !slotNameRegex.MatchString(slot) {
		return "", errors.Wrap(errInvalidSlot, slot)
	}
	return filepath.Join(s.dir, slot), nil
}

func (s *Store) Get(slot string) (string, bool, error) {
	p, err := s.path(slot)
	if err != nil {
		return "", false, err
	}
	data, err := os.ReadFile(p)
	if err != nil {
		if os.IsNotExist(err) {
			return "", false, nil
		}
		return "", false, errors.Wrapf(err, "reading slot %s", slot)
	}
	return string(data), true, nil
}

// Set writes the slot atomically: readers see either the old or the new value.
func (s *Store) Set(slot, value string) error {
	p, err := s.path(slot)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+slot+".*")
	if err != nil {
		return errors.Wrapf(err, "creating temp file for slot %s", slot)
	}
	defer os.Remove(tmp.Name()) // no-op after a successful rename

	if _, err = tmp.WriteString(value); err != nil {
		tmp.Close()
		return errors.Wrapf(err, "writing slot %s", slot)
	}
	if err = tmp.Close(); err != nil {
		return errors.Wrapf(err, "closing slot %s", slot)
	}
	return errors.Wrapf(os.Rename(tmp.Name(), p), "saving slot %s", slot)
}

func (s *Store) Delete(slot string) error {
	p, err := s.path(slot)
	if err != nil {
		return err
	}
	if err = os.Remove(p); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "deleting slot %s", slot)
	}
	return nil
}
