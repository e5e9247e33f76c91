// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cycle

import (
	"github.com/repmine/repmine/rep"
)

type Status uint8

const (
	StatusUnknown   = Status(0) // unknown default status
	StatusOpen      = Status(1) // accepting submissions
	StatusDisputing = Status(2) // window closed, at least two candidates
	StatusConfirmed = Status(3) // settled, immutable
)

func (s Status) String() string {
	switch s {
	case StatusOpen:
		return "open"
	case StatusDisputing:
		return "disputing"
	case StatusConfirmed:
		return "confirmed"
	default:
		return "unknown"
	}
}

// Cycle is one mining round. Times are unix seconds.
type Cycle struct {
	ID           uint64
	OpenTime     uint64
	WindowEnd    uint64
	Status       Status
	NSubmissions uint64 // distinct candidates submitted
	NEliminated  uint64
	HasWinner    bool
	WinnerIndex  uint64
	ConfirmedAt  uint64
	Stalled      bool
}

// IsWindowOpen reports whether submissions are still accepted at now.
func (c *Cycle) IsWindowOpen(now uint64) bool {
	return now < c.WindowEnd
}

// Survivors returns the number of candidates not yet eliminated.
func (c *Cycle) Survivors() uint64 {
	return c.NSubmissions - c.NEliminated
}

// StatusAt returns the effective status at now, which may run ahead of the stored one.
func (c *Cycle) StatusAt(now uint64) Status {
	if c.Status == StatusConfirmed || c.Status == StatusDisputing {
		return c.Status
	}
	if !c.IsWindowOpen(now) && c.NSubmissions >= 2 {
		return StatusDisputing
	}
	return StatusOpen
}

// Root is the canonical reputation root hash.
type Root struct {
	Hash      rep.Bytes32
	NodeCount uint64
	CycleID   uint64 // the cycle that confirmed it, 0 for the genesis root
}
