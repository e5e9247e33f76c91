// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package kv is the storage contract shared by the leveldb and pebble engines. Each subsystem keeps
// its records under its own Bucket prefix of one Store.
package kv

// Getter reads records. Get fails for a missing key with an error that IsNotFound recognises.
type Getter interface {
	Get(key []byte) ([]byte, error)
	Has(key []byte) (bool, error)
	IsNotFound(err error) bool
}

// Putter writes records.
type Putter interface {
	Put(key, val []byte) error
	Delete(key []byte) error
}

// Bulk collects writes and applies them atomically on Write.
type Bulk interface {
	Putter
	Len() int
	Write() error
}

// Iterator walks records in key order. Release must be called once done.
type Iterator interface {
	First() bool
	Next() bool
	Key() []byte
	Value() []byte
	Release()
	Error() error
}

// Range selects keys in [Start, Limit). A nil Limit is unbounded.
type Range struct {
	Start []byte
	Limit []byte
}

// Store is a database engine.
type Store interface {
	Getter
	Putter

	Bulk() Bulk
	Iterate(r Range) Iterator
	Close() error
}

// Count returns the number of records of src within r.
func Count(src Store, r Range) (n int, err error) {
	it := src.Iterate(r)
	defer it.Release()
	for ok := it.First(); ok; ok = it.Next() {
		n++
	}
	return n, it.Error()
}
