// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package replog is the append-only reputation update log shared by mining settlement and
// external producers.
package replog

import (
	"github.com/pkg/errors"

	"github.com/repmine/repmine/state"
	"github.com/repmine/repmine/storage"
)

var (
	ErrNotFound = errors.New("log entry not found")

	slotEntries = storage.Slot("replog.entries")
	slotLength  = storage.Slot("replog.length")
	slotUpdates = storage.Slot("replog.updates")
)

type Log struct {
	entries *storage.Mapping[storage.Uint64Key, *Entry]
	length  *storage.Uint64
	updates *storage.Uint64

	appended []*Entry
	first    uint64
}

func New(st *state.State) *Log {
	return &Log{
		entries: storage.NewMapping[storage.Uint64Key, *Entry](st, slotEntries),
		length:  storage.NewUint64(st, slotLength),
		updates: storage.NewUint64(st, slotUpdates),
	}
}

// Len returns the number of entries.
func (l *Log) Len() (uint64, error) {
	return l.length.Get()
}

// Updates returns the total of NUpdates over all entries.
func (l *Log) Updates() (uint64, error) {
	return l.updates.Get()
}

// Get returns the entry at index.
func (l *Log) Get(index uint64) (*Entry, error) {
	n, err := l.Len()
	if err != nil {
		return nil, err
	}
	if index >= n {
		return nil, ErrNotFound
	}
	e, err := l.entries.Get(storage.Uint64Key(index))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get log entry")
	}
	return e, nil
}

// Append writes e at the tail and returns its index. NPreviousUpdates is filled in.
func (l *Log) Append(e *Entry) (uint64, error) {
	index, err := l.Len()
	if err != nil {
		return 0, err
	}
	prev, err := l.updates.Get()
	if err != nil {
		return 0, err
	}
	e.NPreviousUpdates = prev
	if err := l.entries.Set(storage.Uint64Key(index), e); err != nil {
		return 0, errors.Wrap(err, "failed to set log entry")
	}
	if err := l.length.Set(index + 1); err != nil {
		return 0, err
	}
	if err := l.updates.Set(prev + e.NUpdates); err != nil {
		return 0, err
	}
	if len(l.appended) == 0 {
		l.first = index
	}
	l.appended = append(l.appended, e)
	return index, nil
}

// Appended returns the entries appended through l and the index of the first one.
func (l *Log) Appended() (first uint64, entries []*Entry) {
	return l.first, l.appended
}
