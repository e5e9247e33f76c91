// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package submission

import (
	"github.com/repmine/repmine/oracle"
	"github.com/repmine/repmine/rep"
)

// Backer is one entry backing a submission.
type Backer struct {
	Principal  rep.Address
	EntryIndex uint64
}

// Submission is a candidate root of a cycle, identified by its hash and node count.
type Submission struct {
	Index      uint64
	Hash       rep.Bytes32
	NodeCount  uint64
	Backers    []Backer
	Eliminated bool
	Verdict    oracle.Verdict // oracle judgment of the node count claim
	CreatedAt  uint64
}

// Claim returns what the oracle is asked to judge.
func (s *Submission) Claim() oracle.Claim {
	return oracle.Claim{Hash: s.Hash, NodeCount: s.NodeCount}
}

// Entries is the vote weight of the submission.
func (s *Submission) Entries() uint64 {
	return uint64(len(s.Backers))
}

// Weight is the number of entries a principal put behind a submission.
type Weight struct {
	Principal rep.Address
	Entries   uint64
}

// Principals returns the distinct backers in the order they first backed the submission.
func (s *Submission) Principals() []Weight {
	var (
		out []Weight
		pos = make(map[rep.Address]int, len(s.Backers))
	)
	for _, b := range s.Backers {
		if i, ok := pos[b.Principal]; ok {
			out[i].Entries++
			continue
		}
		pos[b.Principal] = len(out)
		out = append(out, Weight{Principal: b.Principal, Entries: 1})
	}
	return out
}

// participation is what a principal did in one cycle.
type participation struct {
	Index   uint64 // submission backed by the principal
	Entries uint64
}
