// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package storage

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repmine/repmine/lvldb"
	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/state"
	"github.com/repmine/repmine/test/datagen"
)

type record struct {
	Owner  rep.Address
	Amount *big.Int
	Count  uint64
}

func newState(t *testing.T) *state.State {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return state.New(db)
}

func TestMapping(t *testing.T) {
	st := newState(t)
	m := NewMapping[rep.Address, *record](st, Slot("records"))

	addr := datagen.RandAddress()
	empty, err := m.Get(addr)
	require.NoError(t, err)
	require.NotNil(t, empty)
	assert.Equal(t, uint64(0), empty.Count)

	has, err := m.Has(addr)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, m.Set(addr, &record{Owner: addr, Amount: big.NewInt(7), Count: 2}))
	got, err := m.Get(addr)
	require.NoError(t, err)
	assert.Equal(t, addr, got.Owner)
	assert.Equal(t, big.NewInt(7), got.Amount)
	assert.Equal(t, uint64(2), got.Count)

	other := NewMapping[rep.Address, *record](st, Slot("other"))
	has, err = other.Has(addr)
	require.NoError(t, err)
	assert.False(t, has, "slots must not overlap")

	m.Delete(addr)
	has, err = m.Has(addr)
	require.NoError(t, err)
	assert.False(t, has)
}

func TestCompose(t *testing.T) {
	a := Compose(Uint64Key(1), BytesKey("ab"))
	b := Compose(Uint64Key(1), BytesKey("a"), BytesKey("b"))
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, Compose(Uint64Key(1), BytesKey("ab")))
}

func TestScalars(t *testing.T) {
	st := newState(t)

	counter := NewUint64(st, Slot("counter"))
	prev, err := counter.Increment()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), prev)
	prev, err = counter.Increment()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), prev)

	total := NewUint256(st, Slot("total"))
	require.NoError(t, total.Add(big.NewInt(10)))
	require.NoError(t, total.Sub(big.NewInt(4)))
	v, err := total.Get()
	require.NoError(t, err)
	assert.Equal(t, big.NewInt(6), v)

	assert.Error(t, total.Sub(big.NewInt(7)))
	v, _ = total.Get()
	assert.Equal(t, big.NewInt(6), v)
}
