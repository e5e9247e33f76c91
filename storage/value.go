// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"
	"github.com/pkg/errors"

	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/state"
)

// Uint64 is a single uint64 slot, zero when unset.
type Uint64 struct {
	state *state.State
	pos   rep.Bytes32
}

func NewUint64(st *state.State, pos rep.Bytes32) *Uint64 {
	return &Uint64{state: st, pos: pos}
}

func (u *Uint64) Get() (value uint64, err error) {
	err = u.state.DecodeValue(u.pos[:], func(raw []byte) error {
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

func (u *Uint64) Set(value uint64) error {
	return u.state.EncodeValue(u.pos[:], func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

// Increment adds one and returns the value before the increment.
func (u *Uint64) Increment() (uint64, error) {
	v, err := u.Get()
	if err != nil {
		return 0, err
	}
	return v, u.Set(v + 1)
}

// Uint256 is a wrapper for storage and retrieval of a non-negative big integer.
type Uint256 struct {
	state *state.State
	pos   rep.Bytes32
}

func NewUint256(st *state.State, pos rep.Bytes32) *Uint256 {
	return &Uint256{state: st, pos: pos}
}

func (u *Uint256) Get() (*big.Int, error) {
	raw, err := u.state.Get(u.pos[:])
	if err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(raw), nil
}

func (u *Uint256) Set(value *big.Int) {
	if value.Sign() == 0 {
		u.state.Delete(u.pos[:])
		return
	}
	u.state.Put(u.pos[:], value.Bytes())
}

func (u *Uint256) Add(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	storage.Add(storage, value)
	u.Set(storage)
	return nil
}

func (u *Uint256) Sub(value *big.Int) error {
	storage, err := u.Get()
	if err != nil {
		return err
	}
	storage.Sub(storage, value)
	if storage.Sign() < 0 {
		return errors.New("uint256 underflow")
	}
	u.Set(storage)
	return nil
}
