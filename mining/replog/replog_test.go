// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package replog

import (
	"errors"
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repmine/repmine/lvldb"
	"github.com/repmine/repmine/state"
	"github.com/repmine/repmine/test/datagen"
)

func TestAppend(t *testing.T) {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	defer db.Close()
	st := state.New(db)
	l := New(st)

	_, err = l.Get(0)
	assert.True(t, errors.Is(err, ErrNotFound))

	alice := datagen.RandAddress()
	for i, amount := range []int64{5, -3, 0} {
		idx, err := l.Append(&Entry{Principal: alice, Amount: big.NewInt(amount), SkillID: 2, NUpdates: 2})
		require.NoError(t, err)
		assert.Equal(t, uint64(i), idx)
	}

	n, err := l.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(3), n)
	updates, err := l.Updates()
	require.NoError(t, err)
	assert.Equal(t, uint64(6), updates)

	first, appended := l.Appended()
	assert.Equal(t, uint64(0), first)
	assert.Len(t, appended, 3)

	// read back through a fresh state to go through the encoding
	require.NoError(t, st.Stage().Commit(db, ""))
	l = New(state.New(db))
	e, err := l.Get(1)
	require.NoError(t, err)
	assert.Equal(t, "-3", e.Amount.String())
	assert.Equal(t, uint64(2), e.NPreviousUpdates)
	assert.Equal(t, alice, e.Principal)

	e, err = l.Get(2)
	require.NoError(t, err)
	assert.Equal(t, 0, e.Amount.Sign())
	assert.Equal(t, uint64(4), e.NPreviousUpdates)

	first, appended = l.Appended()
	assert.Equal(t, uint64(0), first)
	assert.Empty(t, appended)
}
