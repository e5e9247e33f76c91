// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"reflect"

	"github.com/ethereum/go-ethereum/rlp"

	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/state"
)

// Mapping is a key/value storage abstraction, similar to the mapping in Solidity.
// Values are rlp encoded at blake2b(key, basePos).
type Mapping[K Key, V any] struct {
	state   *state.State
	basePos rep.Bytes32
}

func NewMapping[K Key, V any](st *state.State, pos rep.Bytes32) *Mapping[K, V] {
	return &Mapping[K, V]{state: st, basePos: pos}
}

func (m *Mapping[K, V]) position(key K) []byte {
	pos := rep.Blake2b(key.Bytes(), m.basePos.Bytes())
	return pos[:]
}

// Get returns the value of key. Pointer values are allocated, so an absent key yields
// a pointer to the zero value.
func (m *Mapping[K, V]) Get(key K) (value V, err error) {
	err = m.state.DecodeValue(m.position(key), func(raw []byte) error {
		if reflect.ValueOf(value).Kind() == reflect.Ptr {
			value = reflect.New(reflect.TypeOf(value).Elem()).Interface().(V)
		}
		if len(raw) == 0 {
			return nil
		}
		return rlp.DecodeBytes(raw, &value)
	})
	return
}

// Has reports whether key holds a value.
func (m *Mapping[K, V]) Has(key K) (bool, error) {
	raw, err := m.state.Get(m.position(key))
	if err != nil {
		return false, err
	}
	return len(raw) > 0, nil
}

func (m *Mapping[K, V]) Set(key K, value V) error {
	return m.state.EncodeValue(m.position(key), func() ([]byte, error) {
		return rlp.EncodeToBytes(value)
	})
}

func (m *Mapping[K, V]) Delete(key K) {
	m.state.Delete(m.position(key))
}
