// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package rep

import (
	"math/big"
	"strings"

	"github.com/pkg/errors"
)

// Decimals of the staking token.
const Decimals = 18

// Unit is one whole token expressed in base units.
var Unit = new(big.Int).Exp(big.NewInt(10), big.NewInt(Decimals), nil)

// Tokens converts whole tokens into base units.
func Tokens(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), Unit)
}

// ParseAmount parses a base-unit amount. A "t" suffix denotes whole tokens ("25t").
func ParseAmount(s string) (*big.Int, error) {
	mul := big.NewInt(1)
	if strings.HasSuffix(s, "t") {
		s = strings.TrimSuffix(s, "t")
		mul = Unit
	}
	v, ok := new(big.Int).SetString(s, 0)
	if !ok {
		return nil, errors.Errorf("invalid amount %q", s)
	}
	return v.Mul(v, mul), nil
}
