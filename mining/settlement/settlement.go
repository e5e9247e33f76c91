// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package settlement

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/repmine/repmine/mining/replog"
	"github.com/repmine/repmine/mining/stakes"
	"github.com/repmine/repmine/mining/submission"
	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/state"
	"github.com/repmine/repmine/storage"
)

var slotSettled = storage.Slot("settlement.settled")

// Rewards describes the log entries written for winners.
type Rewards struct {
	ReputationPerEntry *big.Int
	SkillID            uint64
	Origin             rep.Address
	UpdatesPerEntry    uint64
}

// Service applies rewards and punishments exactly once per (cycle, principal, submission).
type Service struct {
	stakes  *stakes.Service
	log     *replog.Log
	rewards Rewards
	settled *storage.Mapping[storage.BytesKey, bool]
}

func New(st *state.State, ledger *stakes.Service, log *replog.Log, rewards Rewards) *Service {
	return &Service{
		stakes:  ledger,
		log:     log,
		rewards: rewards,
		settled: storage.NewMapping[storage.BytesKey, bool](st, slotSettled),
	}
}

func settledKey(cycleID uint64, principal rep.Address, index uint64) storage.BytesKey {
	return storage.Compose(storage.Uint64Key(cycleID), principal, storage.Uint64Key(index))
}

// IsSettled reports whether principal was already settled for submission index of cycleID.
func (s *Service) IsSettled(cycleID uint64, principal rep.Address, index uint64) (bool, error) {
	ok, err := s.settled.Has(settledKey(cycleID, principal, index))
	return ok, errors.Wrap(err, "failed to check settlement")
}

func (s *Service) markSettled(cycleID uint64, principal rep.Address, index uint64) error {
	return errors.Wrap(s.settled.Set(settledKey(cycleID, principal, index), true), "failed to mark settlement")
}

// Reward pays every principal backing sub the stake it locked in cycleID, and logs the reputation
// earned by its entries. It returns the principals paid by this call.
func (s *Service) Reward(cycleID uint64, sub *submission.Submission) ([]rep.Address, error) {
	var paid []rep.Address
	for _, w := range sub.Principals() {
		done, err := s.IsSettled(cycleID, w.Principal, sub.Index)
		if err != nil {
			return nil, err
		}
		if done {
			continue
		}
		acc, err := s.stakes.GetAccount(w.Principal)
		if err != nil {
			return nil, err
		}
		if acc.IsLocked(cycleID) && acc.LockedAmount.Sign() > 0 {
			if err := s.stakes.Credit(w.Principal, acc.LockedAmount); err != nil {
				return nil, err
			}
		}
		amount := new(big.Int).Mul(s.rewards.ReputationPerEntry, new(big.Int).SetUint64(w.Entries))
		if _, err := s.log.Append(&replog.Entry{
			Principal: w.Principal,
			Amount:    amount,
			SkillID:   s.rewards.SkillID,
			Origin:    s.rewards.Origin,
			NUpdates:  s.rewards.UpdatesPerEntry,
			CycleID:   cycleID,
		}); err != nil {
			return nil, err
		}
		if err := s.markSettled(cycleID, w.Principal, sub.Index); err != nil {
			return nil, err
		}
		paid = append(paid, w.Principal)
	}
	return paid, nil
}

// Punish slashes the whole stake of every principal backing sub. It returns the principals
// punished by this call.
func (s *Service) Punish(cycleID uint64, sub *submission.Submission) ([]rep.Address, error) {
	var punished []rep.Address
	for _, w := range sub.Principals() {
		done, err := s.IsSettled(cycleID, w.Principal, sub.Index)
		if err != nil {
			return nil, err
		}
		if done {
			continue
		}
		staked, err := s.stakes.GetStakedBalance(w.Principal)
		if err != nil {
			return nil, err
		}
		if staked.Sign() > 0 {
			if err := s.stakes.Debit(w.Principal, staked); err != nil {
				return nil, err
			}
		}
		if err := s.markSettled(cycleID, w.Principal, sub.Index); err != nil {
			return nil, err
		}
		punished = append(punished, w.Principal)
	}
	return punished, nil
}

// Unlock releases every principal backing subs.
func (s *Service) Unlock(subs []*submission.Submission) error {
	for _, sub := range subs {
		for _, w := range sub.Principals() {
			if err := s.stakes.Unlock(w.Principal); err != nil {
				return err
			}
		}
	}
	return nil
}
