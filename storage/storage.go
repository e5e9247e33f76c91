// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package storage provides typed, rlp encoded slots on top of a journaled state.
package storage

import (
	"encoding/binary"

	"github.com/repmine/repmine/rep"
)

// Key is anything usable as a mapping key.
type Key interface {
	Bytes() []byte
}

// Slot derives the base position of a named storage slot.
func Slot(name string) rep.Bytes32 {
	return rep.Blake2b([]byte(name))
}

// Uint64Key is a big-endian encoded integer key.
type Uint64Key uint64

func (k Uint64Key) Bytes() []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(k))
}

// BytesKey is a raw key.
type BytesKey []byte

func (k BytesKey) Bytes() []byte {
	return k
}

// Compose joins several keys into one. Every part is length prefixed so that
// distinct tuples never collide.
func Compose(parts ...Key) BytesKey {
	var out []byte
	for _, p := range parts {
		b := p.Bytes()
		out = binary.BigEndian.AppendUint32(out, uint32(len(b)))
		out = append(out, b...)
	}
	return out
}
