// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/repmine/repmine/rep"
)

// Params are the protocol constants of a network.
type Params struct {
	MinStake               *big.Int      // stake needed to submit at all
	StakePerEntry          *big.Int      // stake needed per entry index, zero disables the check
	SubmissionWindow       time.Duration // how long a cycle accepts submissions
	EligibilityRamp        time.Duration // time until every entry is eligible
	MaxEntriesPerPrincipal uint64        // per principal per cycle, 0 means unlimited
	MaxDisputeDuration     time.Duration // disputing longer than this marks the cycle stalled, 0 disables
	ReputationPerEntry     *big.Int      // reputation logged per winning entry
	UpdatesPerEntry        uint64        // n_updates of every reward log entry
	MiningSkillID          uint64
	OriginID               rep.Address // origin of reward log entries
}

// MiningOrigin is the default origin of reward log entries.
var MiningOrigin = rep.BytesToAddress([]byte("reputation-mining"))

// DefaultParams returns the parameters used when nothing is configured.
func DefaultParams() Params {
	return Params{
		MinStake:               rep.Tokens(1),
		StakePerEntry:          new(big.Int),
		SubmissionWindow:       24 * time.Hour,
		EligibilityRamp:        time.Hour,
		MaxEntriesPerPrincipal: 12,
		MaxDisputeDuration:     72 * time.Hour,
		ReputationPerEntry:     rep.Tokens(1),
		UpdatesPerEntry:        4,
		MiningSkillID:          0,
		OriginID:               MiningOrigin,
	}
}

// Validate checks the parameters for values the network cannot run with.
func (p *Params) Validate() error {
	if p.MinStake == nil || p.MinStake.Sign() <= 0 {
		return errors.New("min stake must be positive")
	}
	if p.StakePerEntry != nil && p.StakePerEntry.Sign() < 0 {
		return errors.New("stake per entry must not be negative")
	}
	if p.SubmissionWindow < time.Second {
		return errors.Errorf("submission window %v too short", p.SubmissionWindow)
	}
	if p.EligibilityRamp < 0 || p.MaxDisputeDuration < 0 {
		return errors.New("durations must not be negative")
	}
	if p.ReputationPerEntry == nil || p.ReputationPerEntry.Sign() < 0 {
		return errors.New("reputation per entry must not be negative")
	}
	return nil
}

func (p *Params) windowSeconds() uint64 {
	return uint64(p.SubmissionWindow / time.Second)
}
