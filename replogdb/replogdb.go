// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package replogdb mirrors the reputation update log into sqlite for queries by principal,
// skill, origin and cycle.
package replogdb

import (
	"context"
	"database/sql"
	"math/big"

	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/pkg/errors"

	"github.com/repmine/repmine/log"
	"github.com/repmine/repmine/mining/replog"
	"github.com/repmine/repmine/rep"
)

var logger = log.WithContext("pkg", "replogdb")

const (
	insertEntry = `INSERT OR REPLACE INTO entry(idx, principal, amount, skillID, origin, nUpdates, nPrevious, cycleID)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	entryColumns = "idx, principal, amount, skillID, origin, nUpdates, nPrevious, cycleID"

	syncChunk = 256

	firstGap = `SELECT CASE
	WHEN NOT EXISTS (SELECT 1 FROM entry WHERE idx = 0) THEN 0
	ELSE (SELECT MIN(e.idx) + 1 FROM entry e WHERE NOT EXISTS (SELECT 1 FROM entry n WHERE n.idx = e.idx + 1))
END`
)

type DB struct {
	path          string
	db            *sql.DB
	driverVersion string
	stmtCache     *stmtCache
}

// New creates or opens the index at path.
func New(path string) (*DB, error) {
	return open(path, path+"?_journal_mode=WAL")
}

// NewMem creates an index in ram.
func NewMem() (*DB, error) {
	return open(":memory:", ":memory:")
}

func open(path, dsn string) (rdb *DB, err error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	defer func() {
		if rdb == nil {
			db.Close()
		}
	}()
	// one connection, so an in-memory database is not reopened empty
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(entryTableSchema); err != nil {
		return nil, err
	}

	driverVer, _, _ := sqlite3.Version()
	return &DB{
		path:          path,
		db:            db,
		driverVersion: driverVer,
		stmtCache:     newStmtCache(db),
	}, nil
}

func (db *DB) Close() error {
	db.stmtCache.Clear()
	return db.db.Close()
}

func (db *DB) Path() string {
	return db.path
}

func toInt64(v uint64) int64 {
	// sqlite integers are signed
	if v > 1<<63-1 {
		return 1<<63 - 1
	}
	return int64(v)
}

// IndexEntries writes entries at consecutive indices starting at first.
func (db *DB) IndexEntries(first uint64, entries []*replog.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	stmt, err := db.stmtCache.Prepare(insertEntry)
	if err != nil {
		return err
	}
	tx, err := db.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback() //nolint:errcheck

	txStmt := tx.Stmt(stmt)
	for i, e := range entries {
		amount := "0"
		if e.Amount != nil {
			amount = e.Amount.String()
		}
		if _, err := txStmt.Exec(
			toInt64(first+uint64(i)),
			e.Principal.Bytes(),
			amount,
			toInt64(e.SkillID),
			e.Origin.Bytes(),
			toInt64(e.NUpdates),
			toInt64(e.NPreviousUpdates),
			toInt64(e.CycleID),
		); err != nil {
			return errors.Wrapf(err, "insert entry %d", first+uint64(i))
		}
	}
	return tx.Commit()
}

// Len returns the number of entries indexed without gaps from index 0.
func (db *DB) Len(ctx context.Context) (uint64, error) {
	n, _, err := db.extent(ctx)
	return n, err
}

// extent returns the gapless prefix length and the total number of rows.
func (db *DB) extent(ctx context.Context) (prefix, rows uint64, err error) {
	var (
		count int64
		last  sql.NullInt64
	)
	if err := db.db.QueryRowContext(ctx, "SELECT COUNT(*), MAX(idx) FROM entry").Scan(&count, &last); err != nil {
		return 0, 0, err
	}
	if !last.Valid {
		return 0, 0, nil
	}
	if last.Int64+1 == count {
		return uint64(count), uint64(count), nil
	}
	var gap int64
	if err := db.db.QueryRowContext(ctx, firstGap).Scan(&gap); err != nil {
		return 0, 0, err
	}
	return uint64(gap), uint64(count), nil
}

// Truncate removes every entry at or after from.
func (db *DB) Truncate(from uint64) error {
	_, err := db.db.Exec("DELETE FROM entry WHERE idx >= ?", toInt64(from))
	return err
}

// Sync indexes the entries of src that are missing from the index.
func (db *DB) Sync(ctx context.Context, src Source) (uint64, error) {
	have, rows, err := db.extent(ctx)
	if err != nil {
		return 0, err
	}
	if rows > have {
		logger.Warn("index has gaps, reindexing", "from", have, "rows", rows)
		if err := db.Truncate(have); err != nil {
			return 0, err
		}
	}
	want, err := src.GetReputationUpdateLogLength()
	if err != nil {
		return 0, err
	}
	if have > want {
		logger.Warn("index ahead of log, truncating", "index", have, "log", want)
		if err := db.Truncate(want); err != nil {
			return 0, err
		}
		return 0, nil
	}
	var synced uint64
	for next := have; next < want; {
		select {
		case <-ctx.Done():
			return synced, ctx.Err()
		default:
		}
		count := min(want-next, syncChunk)
		entries, err := src.Entries(next, count)
		if err != nil {
			return synced, err
		}
		if len(entries) == 0 {
			break
		}
		if err := db.IndexEntries(next, entries); err != nil {
			return synced, err
		}
		next += uint64(len(entries))
		synced += uint64(len(entries))
	}
	if synced > 0 {
		logger.Info("log index synced", "entries", synced, "length", want)
	}
	return synced, nil
}

// Filter returns the entries matching filter.
func (db *DB) Filter(ctx context.Context, filter *Filter) ([]*Entry, error) {
	stmt := "SELECT " + entryColumns + " FROM entry WHERE 1"
	if filter == nil {
		return db.query(ctx, stmt+" ORDER BY idx ASC")
	}
	var args []any
	if filter.Range != nil {
		stmt += " AND idx >= ?"
		args = append(args, toInt64(filter.Range.From))
		if filter.Range.To >= filter.Range.From {
			stmt += " AND idx <= ?"
			args = append(args, toInt64(filter.Range.To))
		}
	}
	if filter.Principal != nil {
		stmt += " AND principal = ?"
		args = append(args, filter.Principal.Bytes())
	}
	if filter.Origin != nil {
		stmt += " AND origin = ?"
		args = append(args, filter.Origin.Bytes())
	}
	if filter.SkillID != nil {
		stmt += " AND skillID = ?"
		args = append(args, toInt64(*filter.SkillID))
	}
	if filter.CycleID != nil {
		stmt += " AND cycleID = ?"
		args = append(args, toInt64(*filter.CycleID))
	}
	if filter.Order == DESC {
		stmt += " ORDER BY idx DESC"
	} else {
		stmt += " ORDER BY idx ASC"
	}
	if filter.Options != nil {
		stmt += " LIMIT ?, ?"
		args = append(args, toInt64(filter.Options.Offset), toInt64(filter.Options.Limit))
	}
	return db.query(ctx, stmt, args...)
}

func (db *DB) query(ctx context.Context, query string, args ...any) ([]*Entry, error) {
	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Entry
	for rows.Next() {
		var (
			idx, skillID, nUpdates, nPrevious, cycleID int64
			principal, origin                          []byte
			amount                                     string
		)
		if err := rows.Scan(&idx, &principal, &amount, &skillID, &origin, &nUpdates, &nPrevious, &cycleID); err != nil {
			return nil, err
		}
		value, ok := new(big.Int).SetString(amount, 10)
		if !ok {
			return nil, errors.Errorf("entry %d: bad amount %q", idx, amount)
		}
		out = append(out, &Entry{
			Index: uint64(idx),
			Entry: &replog.Entry{
				Principal:        rep.BytesToAddress(principal),
				Amount:           value,
				SkillID:          uint64(skillID),
				Origin:           rep.BytesToAddress(origin),
				NUpdates:         uint64(nUpdates),
				NPreviousUpdates: uint64(nPrevious),
				CycleID:          uint64(cycleID),
			},
		})
	}
	return out, rows.Err()
}
