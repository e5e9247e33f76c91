// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package token

import (
	"math/big"
	"sync"

	"github.com/pkg/errors"

	"github.com/repmine/repmine/kv"
	"github.com/repmine/repmine/log"
	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/state"
	"github.com/repmine/repmine/storage"
)

var logger = log.WithContext("pkg", "token")

// Bucket is the kv namespace of the ledger.
const Bucket = kv.Bucket("t/")

var (
	slotBalances    = storage.Slot("token.balances")
	slotAllowances  = storage.Slot("token.allowances")
	slotTotalSupply = storage.Slot("token.total-supply")
)

var _ Service = (*Ledger)(nil)

// Ledger is a kv backed token ledger with a single spender, the custody account.
type Ledger struct {
	mu      sync.Mutex
	db      kv.Store
	custody rep.Address
}

// NewLedger creates a ledger whose custody account is custody.
func NewLedger(db kv.Store, custody rep.Address) *Ledger {
	return &Ledger{db: db, custody: custody}
}

// Custody returns the custody account.
func (l *Ledger) Custody() rep.Address {
	return l.custody
}

type accounts struct {
	balances    *storage.Mapping[rep.Address, *big.Int]
	allowances  *storage.Mapping[rep.Address, *big.Int]
	totalSupply *storage.Uint256
}

// update runs fn against a fresh state and commits the result only when fn succeeds.
func (l *Ledger) update(fn func(acc *accounts) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	st := state.New(Bucket.NewGetter(l.db))
	if err := fn(l.accounts(st)); err != nil {
		return err
	}
	return st.Stage().Commit(l.db, Bucket)
}

func (l *Ledger) view(fn func(acc *accounts) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return fn(l.accounts(state.New(Bucket.NewGetter(l.db))))
}

func (l *Ledger) accounts(st *state.State) *accounts {
	return &accounts{
		balances:    storage.NewMapping[rep.Address, *big.Int](st, slotBalances),
		allowances:  storage.NewMapping[rep.Address, *big.Int](st, slotAllowances),
		totalSupply: storage.NewUint256(st, slotTotalSupply),
	}
}

func (a *accounts) move(from, to rep.Address, amount *big.Int) error {
	fromBal, err := a.balances.Get(from)
	if err != nil {
		return err
	}
	if fromBal.Cmp(amount) < 0 {
		return errors.Wrapf(ErrInsufficientBalance, "%v holds %v", from, fromBal)
	}
	if from == to {
		return nil
	}
	toBal, err := a.balances.Get(to)
	if err != nil {
		return err
	}
	if err := a.balances.Set(from, new(big.Int).Sub(fromBal, amount)); err != nil {
		return err
	}
	return a.balances.Set(to, new(big.Int).Add(toBal, amount))
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return errors.New("amount must be positive")
	}
	return nil
}

// Mint creates amount new tokens owned by to.
func (l *Ledger) Mint(to rep.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	err := l.update(func(acc *accounts) error {
		bal, err := acc.balances.Get(to)
		if err != nil {
			return err
		}
		if err := acc.balances.Set(to, new(big.Int).Add(bal, amount)); err != nil {
			return err
		}
		return acc.totalSupply.Add(amount)
	})
	if err == nil {
		logger.Debug("minted", "to", to, "amount", amount)
	}
	return err
}

// Approve sets the amount the custody may pull from owner.
func (l *Ledger) Approve(owner rep.Address, amount *big.Int) error {
	if amount == nil || amount.Sign() < 0 {
		return errors.New("allowance must not be negative")
	}
	return l.update(func(acc *accounts) error {
		return acc.allowances.Set(owner, amount)
	})
}

// Allowance returns the amount the custody may still pull from owner.
func (l *Ledger) Allowance(owner rep.Address) (allowance *big.Int, err error) {
	err = l.view(func(acc *accounts) error {
		allowance, err = acc.allowances.Get(owner)
		return err
	})
	return
}

// BalanceOf returns the balance of principal.
func (l *Ledger) BalanceOf(principal rep.Address) (balance *big.Int, err error) {
	err = l.view(func(acc *accounts) error {
		balance, err = acc.balances.Get(principal)
		return err
	})
	return
}

// TotalSupply returns the amount of tokens ever minted.
func (l *Ledger) TotalSupply() (supply *big.Int, err error) {
	err = l.view(func(acc *accounts) error {
		supply, err = acc.totalSupply.Get()
		return err
	})
	return
}

// Transfer moves amount between two principals.
func (l *Ledger) Transfer(from, to rep.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.update(func(acc *accounts) error {
		return acc.move(from, to, amount)
	})
}

// TransferIntoCustody pulls amount from principal, consuming allowance.
func (l *Ledger) TransferIntoCustody(principal rep.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.update(func(acc *accounts) error {
		allowance, err := acc.allowances.Get(principal)
		if err != nil {
			return err
		}
		if allowance.Cmp(amount) < 0 {
			return errors.Wrapf(ErrInsufficientAllowance, "allowance %v, requested %v", allowance, amount)
		}
		if err := acc.move(principal, l.custody, amount); err != nil {
			if errors.Is(err, ErrInsufficientBalance) {
				return errors.Wrapf(ErrInsufficientAllowance, "balance too low for %v", amount)
			}
			return err
		}
		return acc.allowances.Set(principal, new(big.Int).Sub(allowance, amount))
	})
}

// TransferFromCustody pays amount out of custody.
func (l *Ledger) TransferFromCustody(principal rep.Address, amount *big.Int) error {
	if err := checkAmount(amount); err != nil {
		return err
	}
	return l.update(func(acc *accounts) error {
		return errors.Wrap(acc.move(l.custody, principal, amount), "custody payout")
	})
}
