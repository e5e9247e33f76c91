// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package token defines the fungible token service that backs stakes, plus a kv backed ledger
// implementing it for local networks and tests.
package token

import (
	"math/big"

	"github.com/pkg/errors"

	"github.com/repmine/repmine/rep"
)

var (
	// ErrInsufficientAllowance is returned when the owner has not approved, or does not hold, the amount.
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	// ErrInsufficientBalance is returned by plain transfers.
	ErrInsufficientBalance = errors.New("insufficient balance")
)

// Service moves tokens between principals and the staking custody.
type Service interface {
	// TransferIntoCustody pulls amount from principal using a prior allowance.
	TransferIntoCustody(principal rep.Address, amount *big.Int) error
	// TransferFromCustody pays amount out of custody to principal.
	TransferFromCustody(principal rep.Address, amount *big.Int) error
	BalanceOf(principal rep.Address) (*big.Int, error)
}
