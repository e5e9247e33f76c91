// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"fmt"
	"math/big"

	"github.com/pkg/errors"

	"github.com/repmine/repmine/mining/reverts"
	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/state"
	"github.com/repmine/repmine/storage"
)

var (
	slotAccounts      = storage.Slot("stakes.accounts")
	slotTotalStaked   = storage.Slot("stakes.total-staked")
	slotTotalSlashed  = storage.Slot("stakes.total-slashed")
	slotTotalRewarded = storage.Slot("stakes.total-rewarded")
)

// Service is the stake ledger. Deposits and withdrawals are the public path;
// Credit and Debit are reserved for settlement and ignore locks.
type Service struct {
	accounts *storage.Mapping[rep.Address, *Account]

	totalStaked   *storage.Uint256
	totalSlashed  *storage.Uint256
	totalRewarded *storage.Uint256
}

func New(st *state.State) *Service {
	return &Service{
		accounts:      storage.NewMapping[rep.Address, *Account](st, slotAccounts),
		totalStaked:   storage.NewUint256(st, slotTotalStaked),
		totalSlashed:  storage.NewUint256(st, slotTotalSlashed),
		totalRewarded: storage.NewUint256(st, slotTotalRewarded),
	}
}

//
// Getters - no state change
//

// GetAccount returns the account of principal, an empty account if none.
func (s *Service) GetAccount(principal rep.Address) (*Account, error) {
	acc, err := s.accounts.Get(principal)
	if err != nil {
		return nil, errors.Wrap(err, "failed to get account")
	}
	acc.Staked = acc.staked()
	acc.LockedAmount = acc.lockedAmount()
	return acc, nil
}

// GetStakedBalance returns the current stake of principal.
func (s *Service) GetStakedBalance(principal rep.Address) (*big.Int, error) {
	acc, err := s.GetAccount(principal)
	if err != nil {
		return nil, err
	}
	return acc.Staked, nil
}

// Totals returns the staked, slashed and rewarded totals.
func (s *Service) Totals() (staked, slashed, rewarded *big.Int, err error) {
	if staked, err = s.totalStaked.Get(); err != nil {
		return
	}
	if slashed, err = s.totalSlashed.Get(); err != nil {
		return
	}
	rewarded, err = s.totalRewarded.Get()
	return
}

//
// Setters - state change
//

func (s *Service) setAccount(principal rep.Address, acc *Account) error {
	if acc.IsEmpty() {
		s.accounts.Delete(principal)
		return nil
	}
	return errors.Wrap(s.accounts.Set(principal, acc), "failed to set account")
}

// Deposit records amount, already moved into custody, as stake of principal.
func (s *Service) Deposit(principal rep.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.New(reverts.KindInvalidAmount, "deposit must be positive")
	}
	acc, err := s.GetAccount(principal)
	if err != nil {
		return err
	}
	acc.Staked = new(big.Int).Add(acc.Staked, amount)
	if err := s.setAccount(principal, acc); err != nil {
		return err
	}
	return s.totalStaked.Add(amount)
}

// Withdraw reduces the stake of principal by amount. The caller pays the tokens out of custody.
func (s *Service) Withdraw(principal rep.Address, amount *big.Int, activeCycle uint64) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.New(reverts.KindInvalidAmount, "withdrawal must be positive")
	}
	acc, err := s.GetAccount(principal)
	if err != nil {
		return err
	}
	if amount.Cmp(acc.Staked) > 0 {
		return reverts.Newf(reverts.KindInsufficientStake, "staked %v, requested %v", acc.Staked, amount)
	}
	if acc.IsLocked(activeCycle) {
		return reverts.Newf(reverts.KindLockedByActiveCycle, "locked in cycle %d", acc.LockedCycle)
	}
	acc.Staked = new(big.Int).Sub(acc.Staked, amount)
	if err := s.setAccount(principal, acc); err != nil {
		return err
	}
	return s.totalStaked.Sub(amount)
}

// Lock marks principal as a participant of cycleID. The first lock in a cycle remembers the stake.
func (s *Service) Lock(principal rep.Address, cycleID uint64) error {
	acc, err := s.GetAccount(principal)
	if err != nil {
		return err
	}
	if acc.LockedCycle == cycleID {
		return nil
	}
	acc.LockedCycle = cycleID
	acc.LockedAmount = new(big.Int).Set(acc.Staked)
	return s.setAccount(principal, acc)
}

// Unlock releases principal from whatever cycle it is locked in.
func (s *Service) Unlock(principal rep.Address) error {
	acc, err := s.GetAccount(principal)
	if err != nil {
		return err
	}
	if acc.LockedCycle == 0 {
		return nil
	}
	acc.LockedCycle = 0
	acc.LockedAmount = new(big.Int)
	return s.setAccount(principal, acc)
}

// Credit adds a reward to the stake of principal, bypassing locks.
func (s *Service) Credit(principal rep.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		panic(fmt.Sprintf("stakes: negative credit %v", amount))
	}
	acc, err := s.GetAccount(principal)
	if err != nil {
		return err
	}
	acc.Staked = new(big.Int).Add(acc.Staked, amount)
	if err := s.setAccount(principal, acc); err != nil {
		return err
	}
	if err := s.totalStaked.Add(amount); err != nil {
		return err
	}
	return s.totalRewarded.Add(amount)
}

// Debit slashes amount from the stake of principal, bypassing locks.
// Debiting more than the stake is a bookkeeping bug and panics.
func (s *Service) Debit(principal rep.Address, amount *big.Int) error {
	acc, err := s.GetAccount(principal)
	if err != nil {
		return err
	}
	if amount.Sign() < 0 || amount.Cmp(acc.Staked) > 0 {
		panic(fmt.Sprintf("stakes: debit %v exceeds stake %v of %v", amount, acc.Staked, principal))
	}
	acc.Staked = new(big.Int).Sub(acc.Staked, amount)
	if err := s.setAccount(principal, acc); err != nil {
		return err
	}
	if err := s.totalStaked.Sub(amount); err != nil {
		return err
	}
	return s.totalSlashed.Add(amount)
}
