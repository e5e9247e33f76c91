// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package pebbledb

import (
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/vfs"
	"github.com/pkg/errors"

	"github.com/repmine/repmine/kv"
	"github.com/repmine/repmine/log"
)

var (
	_ kv.Store = (*PebbleDB)(nil)

	logger = log.WithContext("pkg", "pebbledb")
)

// errorOnlyLogger implements pebble.Logger, forwarding errors only.
type errorOnlyLogger struct{}

func (errorOnlyLogger) Infof(format string, args ...any) {}
func (errorOnlyLogger) Warnf(format string, args ...any) {}
func (errorOnlyLogger) Errorf(format string, args ...any) {
	logger.Error(fmt.Sprintf(format, args...))
}
func (errorOnlyLogger) Fatalf(format string, args ...any) {
	logger.Crit(fmt.Sprintf(format, args...))
}

// Options options for creating pebble instance.
type Options struct {
	CacheSize    int // MB
	MaxOpenFiles int
}

// PebbleDB is a kv.Store backed by pebble.
type PebbleDB struct {
	db *pebble.DB
}

// New opens or creates a persistent pebble database at path.
func New(path string, opts Options) (*PebbleDB, error) {
	return open(path, opts, nil)
}

// NewMem creates a pebble database in memory.
func NewMem() (*PebbleDB, error) {
	return open("", Options{}, vfs.NewMem())
}

func open(path string, opts Options, fs vfs.FS) (*PebbleDB, error) {
	if opts.CacheSize < 16 {
		opts.CacheSize = 16
	}
	if opts.MaxOpenFiles < 16 {
		opts.MaxOpenFiles = 16
	}
	cache := pebble.NewCache(int64(opts.CacheSize) << 20)
	defer cache.Unref()

	db, err := pebble.Open(path, &pebble.Options{
		Cache:                       cache,
		FS:                          fs,
		MaxOpenFiles:                opts.MaxOpenFiles,
		MemTableSize:                16 << 20,
		MemTableStopWritesThreshold: 2,
		Logger:                      errorOnlyLogger{},
	})
	if err != nil {
		return nil, errors.Wrap(err, "open pebble db")
	}
	return &PebbleDB{db: db}, nil
}

// IsNotFound to check if the error returned by Get indicates key not found.
func (p *PebbleDB) IsNotFound(err error) bool {
	return errors.Is(err, pebble.ErrNotFound)
}

// Get retrieve value for given key.
// It returns an error if key not found. The error can be checked via IsNotFound.
func (p *PebbleDB) Get(key []byte) ([]byte, error) {
	value, closer, err := p.db.Get(key)
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// the value is invalid after closer.Close()
	result := make([]byte, len(value))
	copy(result, value)
	return result, nil
}

// Has returns whether a key exists.
func (p *PebbleDB) Has(key []byte) (bool, error) {
	_, closer, err := p.db.Get(key)
	if err != nil {
		if p.IsNotFound(err) {
			return false, nil
		}
		return false, err
	}
	closer.Close()
	return true, nil
}

// Put save value for given key.
func (p *PebbleDB) Put(key, value []byte) error {
	return p.db.Set(key, value, pebble.Sync)
}

// Delete deletes the given key and its value.
func (p *PebbleDB) Delete(key []byte) error {
	return p.db.Delete(key, pebble.Sync)
}

// Close closes the database.
func (p *PebbleDB) Close() error {
	return p.db.Close()
}

// Bulk creates an atomic batch, committed synchronously.
func (p *PebbleDB) Bulk() kv.Bulk {
	return &bulk{p.db.NewBatch()}
}

// Iterate creates an iterator over the range.
func (p *PebbleDB) Iterate(r kv.Range) kv.Iterator {
	iter, err := p.db.NewIter(&pebble.IterOptions{
		LowerBound: r.Start,
		UpperBound: r.Limit,
	})
	return &iterator{iter: iter, err: err}
}

type bulk struct {
	batch *pebble.Batch
}

func (b *bulk) Put(key, value []byte) error { return b.batch.Set(key, value, nil) }
func (b *bulk) Delete(key []byte) error     { return b.batch.Delete(key, nil) }
func (b *bulk) Len() int                    { return int(b.batch.Count()) }

func (b *bulk) Write() error {
	defer b.batch.Close()
	return b.batch.Commit(pebble.Sync)
}

// iterator adapts pebble's iterator, where Next on a fresh iterator moves to the first entry.
type iterator struct {
	iter    *pebble.Iterator
	err     error
	started bool
}

func (i *iterator) First() bool {
	if i.iter == nil {
		return false
	}
	i.started = true
	return i.iter.First()
}

func (i *iterator) Next() bool {
	if !i.started {
		return i.First()
	}
	if i.iter == nil {
		return false
	}
	return i.iter.Next()
}

func (i *iterator) Key() []byte   { return i.iter.Key() }
func (i *iterator) Value() []byte { return i.iter.Value() }

func (i *iterator) Release() {
	if i.iter != nil {
		if err := i.iter.Close(); err != nil && i.err == nil {
			i.err = err
		}
		i.iter = nil
	}
}

func (i *iterator) Error() error {
	if i.err != nil {
		return i.err
	}
	if i.iter != nil {
		return i.iter.Error()
	}
	return nil
}
