// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state

import (
	"github.com/pkg/errors"

	"github.com/repmine/repmine/kv"
)

type change struct {
	key   []byte
	value []byte
}

// Stage holds the changes of a state, ready to be written.
type Stage struct {
	changes []change
}

// Len returns the number of changed keys.
func (s *Stage) Len() int {
	return len(s.changes)
}

// Apply writes every change into putter. Empty values become deletes.
func (s *Stage) Apply(putter kv.Putter) error {
	for _, c := range s.changes {
		var err error
		if len(c.value) == 0 {
			err = putter.Delete(c.key)
		} else {
			err = putter.Put(c.key, c.value)
		}
		if err != nil {
			return errors.Wrap(err, "apply change")
		}
	}
	return nil
}

// Commit writes every change into one bulk of the store, under bucket.
func (s *Stage) Commit(store kv.Store, bucket kv.Bucket) error {
	if len(s.changes) == 0 {
		return nil
	}
	bulk := store.Bulk()
	if err := s.Apply(bucket.NewPutter(bulk)); err != nil {
		return err
	}
	return errors.Wrap(bulk.Write(), "write bulk")
}
