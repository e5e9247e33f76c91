// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package oracle judges whether a claimed reputation state is correct, used to break
// ties between submissions backed by equal weight.
package oracle

import (
	"fmt"
	"sync"

	"github.com/repmine/repmine/rep"
)

// Verdict is the oracle's opinion on a claim.
type Verdict uint8

const (
	Unknown Verdict = iota
	Valid
	Invalid
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// ParseVerdict parses the String form of a verdict.
func ParseVerdict(s string) (Verdict, error) {
	switch s {
	case "valid":
		return Valid, nil
	case "invalid":
		return Invalid, nil
	case "unknown":
		return Unknown, nil
	}
	return Unknown, fmt.Errorf("unknown verdict %q", s)
}

// Claim identifies a candidate root hash together with its claimed node count.
type Claim struct {
	Hash      rep.Bytes32
	NodeCount uint64
}

// Judge evaluates claims.
type Judge interface {
	JudgeClaim(claim Claim) (Verdict, error)
}

// Func adapts a function to Judge.
type Func func(claim Claim) (Verdict, error)

func (f Func) JudgeClaim(claim Claim) (Verdict, error) { return f(claim) }

// Static answers from a table, Unknown for anything not recorded.
type Static struct {
	mu       sync.RWMutex
	verdicts map[Claim]Verdict
}

// NewStatic creates an empty table.
func NewStatic() *Static {
	return &Static{verdicts: make(map[Claim]Verdict)}
}

// Set records the verdict of claim.
func (s *Static) Set(claim Claim, v Verdict) {
	s.mu.Lock()
	s.verdicts[claim] = v
	s.mu.Unlock()
}

func (s *Static) JudgeClaim(claim Claim) (Verdict, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.verdicts[claim], nil
}

// Compare decides which of two equally backed claims loses.
// It returns loserIsA and resolved=false when the verdicts cannot separate them: either is Unknown,
// or both are Valid. When both are Invalid, b loses so the lower index keeps precedence.
func Compare(a, b Verdict) (loserIsA bool, resolved bool) {
	switch {
	case a == Unknown || b == Unknown:
		return false, false
	case a == Valid && b == Invalid:
		return false, true
	case a == Invalid && b == Valid:
		return true, true
	case a == Invalid && b == Invalid:
		return false, true
	default:
		return false, false
	}
}
