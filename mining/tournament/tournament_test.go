// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tournament

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repmine/repmine/eligibility"
	"github.com/repmine/repmine/lvldb"
	"github.com/repmine/repmine/mining/cycle"
	"github.com/repmine/repmine/mining/replog"
	"github.com/repmine/repmine/mining/reverts"
	"github.com/repmine/repmine/mining/settlement"
	"github.com/repmine/repmine/mining/stakes"
	"github.com/repmine/repmine/mining/submission"
	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/state"
	"github.com/repmine/repmine/test/datagen"
)

const (
	openAt = 1000
	window = 3600
	closed = openAt + window
)

type fixture struct {
	cycles   *cycle.Store
	ledger   *stakes.Service
	registry *submission.Registry
	log      *replog.Log
	svc      *Service
}

func newFixture(t *testing.T) *fixture {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	st := state.New(db)

	f := &fixture{cycles: cycle.New(st), ledger: stakes.New(st), log: replog.New(st)}
	_, err = f.cycles.Open(openAt, window)
	require.NoError(t, err)
	f.registry = submission.New(st, f.cycles, f.ledger, submission.Rules{
		MinStake: big.NewInt(1),
		Policy:   eligibility.AfterDelay(0),
	})
	settle := settlement.New(st, f.ledger, f.log, settlement.Rewards{
		ReputationPerEntry: big.NewInt(1),
		UpdatesPerEntry:    4,
	})
	f.svc = New(st, f.cycles, f.registry, settle, window)
	return f
}

func (f *fixture) submit(t *testing.T, hash rep.Bytes32, entries uint64) []rep.Address {
	var backers []rep.Address
	for range entries {
		who := datagen.RandAddress()
		require.NoError(t, f.ledger.Deposit(who, big.NewInt(10)))
		_, _, err := f.registry.Submit(who, 1, hash, 7, 1, openAt+1)
		require.NoError(t, err)
		backers = append(backers, who)
	}
	return backers
}

func TestInvalidateByVote(t *testing.T) {
	f := newFixture(t)
	f.submit(t, datagen.RandomHash(), 1)
	losers := f.submit(t, datagen.RandomHash(), 1)
	f.submit(t, datagen.RandomHash(), 2)

	_, err := f.svc.Invalidate(0, 2, closed-1)
	assert.ErrorIs(t, err, reverts.ErrWindowStillOpen)

	e, err := f.svc.Invalidate(2, 0, closed)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), e.Winner)
	assert.Equal(t, uint64(0), e.Loser)
	assert.True(t, e.ByVote)

	got, err := f.svc.GetElimination(1, 0)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, e.Punished, got.Punished)
	none, err := f.svc.GetElimination(1, 1)
	require.NoError(t, err)
	assert.Nil(t, none)

	_, err = f.svc.Invalidate(0, 1, closed)
	assert.ErrorIs(t, err, reverts.ErrNotOpposing)

	_, err = f.svc.Confirm(2, closed)
	assert.ErrorIs(t, err, reverts.ErrMultipleCandidatesRemain)

	e, err = f.svc.Invalidate(1, 2, closed)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.Loser)
	assert.Equal(t, losers, e.Punished)

	staked, err := f.ledger.GetStakedBalance(losers[0])
	require.NoError(t, err)
	assert.Zero(t, staked.Sign())

	c, err := f.cycles.Get(1)
	require.NoError(t, err)
	assert.Equal(t, cycle.StatusDisputing, c.Status)
	assert.Equal(t, uint64(1), c.Survivors())

	acc, err := f.ledger.GetAccount(losers[0])
	require.NoError(t, err)
	assert.False(t, acc.IsLocked(1))

	_, err = f.svc.Invalidate(1, 2, closed)
	assert.ErrorIs(t, err, reverts.ErrOnlySurvivorCannotBeEliminated)
}

func TestConfirmSurvivor(t *testing.T) {
	f := newFixture(t)
	hash := datagen.RandomHash()
	winners := f.submit(t, hash, 2)
	f.submit(t, datagen.RandomHash(), 1)

	_, err := f.svc.Invalidate(0, 1, closed)
	require.NoError(t, err)

	_, err = f.svc.Confirm(1, closed)
	assert.ErrorIs(t, err, reverts.ErrMultipleCandidatesRemain)

	conf, err := f.svc.Confirm(0, closed+10)
	require.NoError(t, err)
	assert.Equal(t, winners, conf.Rewarded)
	assert.Equal(t, uint64(2), conf.NextCycle.ID)
	assert.Equal(t, uint64(closed+10+window), conf.NextCycle.WindowEnd)

	root, err := f.cycles.Root()
	require.NoError(t, err)
	assert.Equal(t, hash, root.Hash)
	assert.Equal(t, uint64(7), root.NodeCount)
	assert.Equal(t, uint64(1), root.CycleID)

	n, err := f.log.Len()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), n)

	staked, err := f.ledger.GetStakedBalance(winners[0])
	require.NoError(t, err)
	assert.Equal(t, "20", staked.String())
}

func TestCloseEmptyCycle(t *testing.T) {
	f := newFixture(t)

	_, err := f.svc.Confirm(0, closed)
	assert.ErrorIs(t, err, reverts.ErrNoSubmissions)

	_, _, err = f.svc.Close(closed - 1)
	assert.ErrorIs(t, err, reverts.ErrWindowStillOpen)

	c, next, err := f.svc.Close(closed)
	require.NoError(t, err)
	assert.Equal(t, cycle.StatusConfirmed, c.Status)
	assert.False(t, c.HasWinner)
	assert.Equal(t, uint64(2), next.ID)

	root, err := f.cycles.Root()
	require.NoError(t, err)
	assert.True(t, root.Hash.IsZero())
}
