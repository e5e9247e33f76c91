// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"fmt"

	"github.com/repmine/repmine/kv"
	"github.com/repmine/repmine/stackedmap"
)

// Error is the error caused by state access failure.
type Error struct {
	cause error
}

func (e *Error) Error() string {
	return fmt.Sprintf("state: %v", e.cause)
}

func (e *Error) Unwrap() error {
	return e.cause
}

// State is a journaled overlay of a kv getter.
type State struct {
	db kv.Getter
	sm *stackedmap.StackedMap[string, []byte]
}

// New create state object.
func New(db kv.Getter) *State {
	s := &State{db: db}
	s.sm = stackedmap.New(s.dbGetter)
	return s
}

// dbGetter implements stackedmap.MapGetter. Absent keys read as nil.
func (s *State) dbGetter(key string) ([]byte, bool, error) {
	val, err := s.db.Get([]byte(key))
	if err != nil {
		if s.db.IsNotFound(err) {
			return nil, true, nil
		}
		return nil, false, err
	}
	return val, true, nil
}

// Get returns the raw value of key, nil if absent.
func (s *State) Get(key []byte) ([]byte, error) {
	v, _, err := s.sm.Get(string(key))
	if err != nil {
		return nil, &Error{err}
	}
	return v, nil
}

// Put sets the raw value of key. A nil or empty value deletes the key.
func (s *State) Put(key, value []byte) {
	s.sm.Put(string(key), value)
}

// Delete removes key.
func (s *State) Delete(key []byte) {
	s.sm.Put(string(key), nil)
}

// DecodeValue reads the raw value of key and hands it to dec. dec receives nil when the key is absent.
func (s *State) DecodeValue(key []byte, dec func(raw []byte) error) error {
	raw, err := s.Get(key)
	if err != nil {
		return err
	}
	if err := dec(raw); err != nil {
		return &Error{err}
	}
	return nil
}

// EncodeValue stores the output of enc under key.
func (s *State) EncodeValue(key []byte, enc func() ([]byte, error)) error {
	raw, err := enc()
	if err != nil {
		return &Error{err}
	}
	s.Put(key, raw)
	return nil
}

// NewCheckpoint makes a checkpoint of current state.
// It returns revision of the checkpoint.
func (s *State) NewCheckpoint() int {
	return s.sm.Push()
}

// RevertTo revert to checkpoint specified by revision.
func (s *State) RevertTo(revision int) {
	if revision < 1 || revision > s.sm.Depth() {
		panic("invalid revision")
	}
	s.sm.PopTo(revision)
}

// Stage collects the final value of every key written since New.
func (s *State) Stage() *Stage {
	var (
		order []string
		final = make(map[string][]byte)
	)
	s.sm.Journal(func(key string, value []byte) bool {
		if _, ok := final[key]; !ok {
			order = append(order, key)
		}
		final[key] = value
		return true
	})

	changes := make([]change, 0, len(order))
	for _, key := range order {
		changes = append(changes, change{[]byte(key), final[key]})
	}
	return &Stage{changes: changes}
}
