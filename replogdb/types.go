// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package replogdb

import (
	"github.com/repmine/repmine/mining/replog"
	"github.com/repmine/repmine/rep"
)

type Order string

const (
	ASC  Order = "asc"
	DESC Order = "desc"
)

// Range is an inclusive range of log indices. To below From means unbounded.
type Range struct {
	From uint64
	To   uint64
}

type Options struct {
	Offset uint64
	Limit  uint64
}

// Filter selects log entries. Nil fields match everything.
type Filter struct {
	Principal *rep.Address
	Origin    *rep.Address
	SkillID   *uint64
	CycleID   *uint64
	Range     *Range
	Options   *Options
	Order     Order
}

// Entry is an indexed log entry.
type Entry struct {
	Index uint64
	*replog.Entry
}

// Source is where committed log entries are read from when resyncing.
type Source interface {
	GetReputationUpdateLogLength() (uint64, error)
	Entries(first, count uint64) ([]*replog.Entry, error)
}
