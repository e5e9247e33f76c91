// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package settlement

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repmine/repmine/lvldb"
	"github.com/repmine/repmine/mining/replog"
	"github.com/repmine/repmine/mining/stakes"
	"github.com/repmine/repmine/mining/submission"
	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/state"
	"github.com/repmine/repmine/test/datagen"
)

type fixture struct {
	stakes *stakes.Service
	log    *replog.Log
	svc    *Service
}

func newFixture(t *testing.T) *fixture {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := state.New(db)
	f := &fixture{stakes: stakes.New(st), log: replog.New(st)}
	f.svc = New(st, f.stakes, f.log, Rewards{
		ReputationPerEntry: big.NewInt(100),
		SkillID:            9,
		Origin:             rep.BytesToAddress([]byte("origin")),
		UpdatesPerEntry:    4,
	})
	return f
}

func (f *fixture) join(t *testing.T, cycleID uint64, who rep.Address, amount int64) {
	require.NoError(t, f.stakes.Deposit(who, big.NewInt(amount)))
	require.NoError(t, f.stakes.Lock(who, cycleID))
}

func TestRewardOnce(t *testing.T) {
	f := newFixture(t)
	alice, bob := datagen.RandAddress(), datagen.RandAddress()
	f.join(t, 1, alice, 10)
	f.join(t, 1, bob, 30)

	sub := &submission.Submission{
		Index: 0,
		Backers: []submission.Backer{
			{Principal: alice, EntryIndex: 1},
			{Principal: bob, EntryIndex: 1},
			{Principal: alice, EntryIndex: 2},
		},
	}
	paid, err := f.svc.Reward(1, sub)
	require.NoError(t, err)
	assert.Equal(t, []rep.Address{alice, bob}, paid)

	paid, err = f.svc.Reward(1, sub)
	require.NoError(t, err)
	assert.Empty(t, paid)

	staked, err := f.stakes.GetStakedBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, "20", staked.String())
	staked, err = f.stakes.GetStakedBalance(bob)
	require.NoError(t, err)
	assert.Equal(t, "60", staked.String())

	n, err := f.log.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)
	e, err := f.log.Get(0)
	require.NoError(t, err)
	assert.Equal(t, "200", e.Amount.String(), "two entries")
	assert.Equal(t, uint64(9), e.SkillID)
	assert.Equal(t, uint64(1), e.CycleID)

	require.NoError(t, f.svc.Unlock([]*submission.Submission{sub}))
	acc, err := f.stakes.GetAccount(alice)
	require.NoError(t, err)
	assert.False(t, acc.IsLocked(1))
}

func TestPunishOnce(t *testing.T) {
	f := newFixture(t)
	carol := datagen.RandAddress()
	f.join(t, 1, carol, 10)
	sub := &submission.Submission{Index: 1, Backers: []submission.Backer{{Principal: carol, EntryIndex: 1}}}

	punished, err := f.svc.Punish(1, sub)
	require.NoError(t, err)
	assert.Equal(t, []rep.Address{carol}, punished)

	// a later deposit survives a retried punishment
	require.NoError(t, f.stakes.Deposit(carol, big.NewInt(5)))
	punished, err = f.svc.Punish(1, sub)
	require.NoError(t, err)
	assert.Empty(t, punished)

	staked, err := f.stakes.GetStakedBalance(carol)
	require.NoError(t, err)
	assert.Equal(t, "5", staked.String())

	done, err := f.svc.IsSettled(1, carol, 1)
	require.NoError(t, err)
	assert.True(t, done)
	done, err = f.svc.IsSettled(2, carol, 1)
	require.NoError(t, err)
	assert.False(t, done)

	n, err := f.log.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(0), n, "punishment is not logged")
}
