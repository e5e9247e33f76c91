// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package replog

import (
	"io"
	"math/big"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/repmine/repmine/rep"
)

// Entry is one reputation update. Amount is signed.
type Entry struct {
	Principal        rep.Address
	Amount           *big.Int
	SkillID          uint64
	Origin           rep.Address
	NUpdates         uint64 // atomic updates this entry stands for
	NPreviousUpdates uint64 // updates of all earlier entries
	CycleID          uint64 // the confirming cycle, 0 for external entries
}

// Copy returns a deep copy of e.
func (e *Entry) Copy() *Entry {
	cpy := *e
	if e.Amount != nil {
		cpy.Amount = new(big.Int).Set(e.Amount)
	}
	return &cpy
}

type entryBody struct {
	Principal        rep.Address
	Negative         bool
	Magnitude        *big.Int
	SkillID          uint64
	Origin           rep.Address
	NUpdates         uint64
	NPreviousUpdates uint64
	CycleID          uint64
}

// EncodeRLP implements rlp.Encoder.
func (e *Entry) EncodeRLP(w io.Writer) error {
	amount := e.Amount
	if amount == nil {
		amount = new(big.Int)
	}
	return rlp.Encode(w, &entryBody{
		Principal:        e.Principal,
		Negative:         amount.Sign() < 0,
		Magnitude:        new(big.Int).Abs(amount),
		SkillID:          e.SkillID,
		Origin:           e.Origin,
		NUpdates:         e.NUpdates,
		NPreviousUpdates: e.NPreviousUpdates,
		CycleID:          e.CycleID,
	})
}

// DecodeRLP implements rlp.Decoder.
func (e *Entry) DecodeRLP(s *rlp.Stream) error {
	var body entryBody
	if err := s.Decode(&body); err != nil {
		return err
	}
	amount := body.Magnitude
	if body.Negative {
		amount = new(big.Int).Neg(amount)
	}
	*e = Entry{
		Principal:        body.Principal,
		Amount:           amount,
		SkillID:          body.SkillID,
		Origin:           body.Origin,
		NUpdates:         body.NUpdates,
		NPreviousUpdates: body.NPreviousUpdates,
		CycleID:          body.CycleID,
	}
	return nil
}
