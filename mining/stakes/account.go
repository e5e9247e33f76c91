// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package stakes

import (
	"math/big"
)

// Account is the stake held by one principal.
type Account struct {
	Staked       *big.Int // the amount held in custody on behalf of the principal
	LockedCycle  uint64   // the cycle the principal submitted in, 0 when not locked
	LockedAmount *big.Int // the stake at the time of locking, paid again as bonus when the cycle is won
}

// IsLocked reports whether the account is locked in cycleID.
func (a *Account) IsLocked(cycleID uint64) bool {
	return a.LockedCycle != 0 && a.LockedCycle == cycleID
}

// IsEmpty returns whether the account holds nothing and is not locked.
func (a *Account) IsEmpty() bool {
	return a.staked().Sign() == 0 && a.LockedCycle == 0
}

func (a *Account) staked() *big.Int {
	if a.Staked == nil {
		return new(big.Int)
	}
	return a.Staked
}

func (a *Account) lockedAmount() *big.Int {
	if a.LockedAmount == nil {
		return new(big.Int)
	}
	return a.LockedAmount
}
