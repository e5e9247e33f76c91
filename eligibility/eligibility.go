// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package eligibility decides when a submission entry may be made within a cycle.
package eligibility

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/holiman/uint256"

	"github.com/repmine/repmine/rep"
)

// Entry is a single backing attempt.
type Entry struct {
	Principal  rep.Address
	EntryIndex uint64
	Hash       rep.Bytes32
}

// Policy reports whether entry may be submitted once elapsed has passed since the cycle opened.
// Implementations must be monotone in elapsed.
type Policy interface {
	Eligible(entry Entry, elapsed time.Duration) bool
}

// Func adapts a function to Policy.
type Func func(entry Entry, elapsed time.Duration) bool

func (f Func) Eligible(entry Entry, elapsed time.Duration) bool { return f(entry, elapsed) }

// AfterDelay makes every entry eligible once the delay has passed.
type AfterDelay time.Duration

func (d AfterDelay) Eligible(_ Entry, elapsed time.Duration) bool {
	return elapsed >= time.Duration(d)
}

// Target admits an entry once keccak256(principal, entryIndex, hash), read as a 256 bit integer,
// falls below a target that grows linearly from zero at cycle open to the maximum after Ramp.
type Target struct {
	Ramp time.Duration
}

var maxUint256 = new(uint256.Int).SetAllOne()

func (t Target) Eligible(entry Entry, elapsed time.Duration) bool {
	if elapsed >= t.Ramp {
		return true
	}
	if elapsed <= 0 {
		return false
	}
	score := new(uint256.Int).SetBytes32(entryHash(entry).Bytes())

	// max/ramp*elapsed stays below max as elapsed < ramp
	target := new(uint256.Int).Div(maxUint256, uint256.NewInt(uint64(t.Ramp)))
	target.Mul(target, uint256.NewInt(uint64(elapsed)))
	return score.Lt(target)
}

func entryHash(entry Entry) rep.Bytes32 {
	var idx [8]byte
	binary.BigEndian.PutUint64(idx[:], entry.EntryIndex)
	return rep.Keccak256(entry.Principal.Bytes(), idx[:], entry.Hash.Bytes())
}

// ByName builds the policy called name with the given ramp. Known names are "delay" and "target".
func ByName(name string, ramp time.Duration) (Policy, error) {
	switch name {
	case "delay", "":
		return AfterDelay(ramp), nil
	case "target":
		return Target{Ramp: ramp}, nil
	}
	return nil, fmt.Errorf("unknown eligibility policy %q", name)
}
