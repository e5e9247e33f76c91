// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cycle

import (
	"github.com/pkg/errors"

	"github.com/repmine/repmine/state"
	"github.com/repmine/repmine/storage"
)

var (
	slotCycles = storage.Slot("cycle.cycles")
	slotActive = storage.Slot("cycle.active")
	slotRoot   = storage.Slot("cycle.root")
)

// Store keeps every cycle by id, plus the active cycle id and the canonical root.
type Store struct {
	cycles *storage.Mapping[storage.Uint64Key, *Cycle]
	active *storage.Uint64
	root   *storage.Mapping[storage.BytesKey, *Root]
}

func New(st *state.State) *Store {
	return &Store{
		cycles: storage.NewMapping[storage.Uint64Key, *Cycle](st, slotCycles),
		active: storage.NewUint64(st, slotActive),
		root:   storage.NewMapping[storage.BytesKey, *Root](st, slotRoot),
	}
}

// Get returns the cycle with id, nil if it was never opened.
func (s *Store) Get(id uint64) (*Cycle, error) {
	c, err := s.cycles.Get(storage.Uint64Key(id))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get cycle")
	}
	if c.ID == 0 {
		return nil, nil
	}
	return c, nil
}

func (s *Store) Set(c *Cycle) error {
	if c.ID == 0 {
		return errors.New("cycle id must not be zero")
	}
	return errors.Wrap(s.cycles.Set(storage.Uint64Key(c.ID), c), "failed to set cycle")
}

// ActiveID returns the id of the open or disputing cycle, 0 before the first one is opened.
func (s *Store) ActiveID() (uint64, error) {
	return s.active.Get()
}

// Active returns the current cycle.
func (s *Store) Active() (*Cycle, error) {
	id, err := s.ActiveID()
	if err != nil {
		return nil, err
	}
	if id == 0 {
		return nil, errors.New("no active cycle")
	}
	c, err := s.Get(id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, errors.Errorf("active cycle %d missing", id)
	}
	return c, nil
}

// Open starts the cycle after the active one. The previous cycle must be confirmed.
func (s *Store) Open(now, window uint64) (*Cycle, error) {
	id, err := s.ActiveID()
	if err != nil {
		return nil, err
	}
	if id != 0 {
		prev, err := s.Get(id)
		if err != nil {
			return nil, err
		}
		if prev != nil && prev.Status != StatusConfirmed {
			return nil, errors.Errorf("cycle %d still %v", id, prev.Status)
		}
	}
	c := &Cycle{
		ID:        id + 1,
		OpenTime:  now,
		WindowEnd: now + window,
		Status:    StatusOpen,
	}
	if err := s.Set(c); err != nil {
		return nil, err
	}
	if err := s.active.Set(c.ID); err != nil {
		return nil, err
	}
	return c, nil
}

// Root returns the canonical root, zero valued until a cycle is confirmed.
func (s *Store) Root() (*Root, error) {
	r, err := s.root.Get(nil)
	return r, errors.Wrap(err, "failed to get root")
}

func (s *Store) SetRoot(r *Root) error {
	return errors.Wrap(s.root.Set(nil, r), "failed to set root")
}
