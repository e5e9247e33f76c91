// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"errors"
	"math"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/repmine/repmine/clock"
	"github.com/repmine/repmine/lvldb"
	"github.com/repmine/repmine/mining/cycle"
	"github.com/repmine/repmine/mining/replog"
	"github.com/repmine/repmine/mining/reverts"
	"github.com/repmine/repmine/oracle"
	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/test/datagen"
	"github.com/repmine/repmine/token"
)

var (
	hash1 = rep.RightPadBytes32([]byte{0x12, 0x34, 0x56, 0x78})
	hash2 = rep.RightPadBytes32([]byte{0x87, 0x65, 0x43, 0x21})
)

type testNet struct {
	*Network
	tokens *token.Ledger
	clock  *clock.Mock
	judge  *oracle.Static
}

func newTestNet(t *testing.T, opts ...Option) *testNet {
	db, err := lvldb.NewMem()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	tn := &testNet{
		tokens: token.NewLedger(db, rep.BytesToAddress([]byte("custody"))),
		clock:  clock.NewMock(time.Unix(1_700_000_000, 0)),
		judge:  oracle.NewStatic(),
	}
	opts = append([]Option{WithClock(tn.clock), WithJudge(tn.judge)}, opts...)
	tn.Network, err = New(db, tn.tokens, DefaultParams(), opts...)
	require.NoError(t, err)
	return tn
}

func (tn *testNet) stake(t *testing.T, who rep.Address, amount *big.Int) {
	require.NoError(t, tn.tokens.Mint(who, amount))
	require.NoError(t, tn.tokens.Approve(who, amount))
	require.NoError(t, tn.Deposit(who, amount))
}

// openEntries forwards past the eligibility delay of the active cycle.
func (tn *testNet) openEntries() {
	tn.clock.Advance(tn.params.EligibilityRamp)
}

// closeWindow forwards past the submission window of the active cycle.
func (tn *testNet) closeWindow() {
	tn.clock.Advance(tn.params.SubmissionWindow)
}

func assertAmount(t *testing.T, want, got *big.Int, msgAndArgs ...any) {
	t.Helper()
	assert.Zero(t, want.Cmp(got), append([]any{"want %v, got %v", want, got}, msgAndArgs...)...)
}

func assertKind(t *testing.T, kind reverts.Kind, err error) {
	t.Helper()
	require.Error(t, err)
	assert.True(t, reverts.IsRevertErr(err), "not a revert: %v", err)
	assert.Equal(t, kind, reverts.KindOf(err), err.Error())
}

func TestFirstCycleOpened(t *testing.T) {
	tn := newTestNet(t)

	id, err := tn.GetCurrentMiningCycle()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), id)

	c, status, err := tn.GetCycle(1)
	require.NoError(t, err)
	assert.Equal(t, cycle.StatusOpen, status)
	assert.Equal(t, c.OpenTime+uint64(tn.params.SubmissionWindow/time.Second), c.WindowEnd)

	hash, nodes, err := tn.GetReputationRootHash()
	require.NoError(t, err)
	assert.True(t, hash.IsZero())
	assert.Equal(t, uint64(0), nodes)
}

func TestDepositWithdraw(t *testing.T) {
	tn := newTestNet(t)
	alice := datagen.RandAddress()

	tn.stake(t, alice, rep.Tokens(5))
	require.NoError(t, tn.Withdraw(alice, rep.Tokens(2)))

	staked, err := tn.GetStakedBalance(alice)
	require.NoError(t, err)
	assertAmount(t, rep.Tokens(3), staked)

	bal, err := tn.tokens.BalanceOf(alice)
	require.NoError(t, err)
	assertAmount(t, rep.Tokens(2), bal)

	assertKind(t, reverts.KindInsufficientStake, tn.Withdraw(alice, rep.Tokens(4)))
	assertKind(t, reverts.KindInvalidAmount, tn.Withdraw(alice, new(big.Int)))

	staked, err = tn.GetStakedBalance(alice)
	require.NoError(t, err)
	assertAmount(t, rep.Tokens(3), staked)
}

func TestDepositWithoutAllowance(t *testing.T) {
	tn := newTestNet(t)
	alice := datagen.RandAddress()
	require.NoError(t, tn.tokens.Mint(alice, rep.Tokens(5)))

	err := tn.Deposit(alice, rep.Tokens(1))
	assertKind(t, reverts.KindInsufficientAllowance, err)
	assert.True(t, errors.Is(err, reverts.ErrInsufficientAllowance))

	staked, err := tn.GetStakedBalance(alice)
	require.NoError(t, err)
	assert.Equal(t, 0, staked.Sign())

	// allowance without balance is reported the same way
	bob := datagen.RandAddress()
	require.NoError(t, tn.tokens.Approve(bob, rep.Tokens(1)))
	assertKind(t, reverts.KindInsufficientAllowance, tn.Deposit(bob, rep.Tokens(1)))
}

func TestLockedStakeCannotBeWithdrawn(t *testing.T) {
	tn := newTestNet(t)
	alice, bob := datagen.RandAddress(), datagen.RandAddress()
	tn.stake(t, alice, rep.Tokens(1))
	tn.stake(t, bob, rep.Tokens(1))
	tn.openEntries()

	_, err := tn.SubmitHash(alice, 1, hash1, 10, 10)
	require.NoError(t, err)
	_, err = tn.SubmitHash(bob, 1, hash2, 10, 10)
	require.NoError(t, err)

	for _, amount := range []*big.Int{big.NewInt(1), rep.Tokens(1)} {
		assertKind(t, reverts.KindLockedByActiveCycle, tn.Withdraw(alice, amount))
	}
	// deposits stay possible while locked
	tn.stake(t, alice, rep.Tokens(1))
	assertKind(t, reverts.KindLockedByActiveCycle, tn.Withdraw(alice, big.NewInt(1)))

	tn.judge.Set(oracle.Claim{Hash: hash1, NodeCount: 10}, oracle.Valid)
	tn.judge.Set(oracle.Claim{Hash: hash2, NodeCount: 10}, oracle.Invalid)
	tn.closeWindow()
	_, err = tn.Invalidate(0, 1)
	require.NoError(t, err)
	_, err = tn.Confirm(0)
	require.NoError(t, err)

	// locked amount was 1 token, the later deposit earns nothing
	staked, err := tn.GetStakedBalance(alice)
	require.NoError(t, err)
	assertAmount(t, rep.Tokens(3), staked)

	require.NoError(t, tn.Withdraw(alice, rep.Tokens(3)))
	bal, err := tn.tokens.BalanceOf(alice)
	require.NoError(t, err)
	assertAmount(t, rep.Tokens(3), bal)
}

func TestSingleSubmissionConfirm(t *testing.T) {
	tn := newTestNet(t)
	alice := datagen.RandAddress()
	tn.stake(t, alice, rep.Tokens(1))
	tn.openEntries()

	sub, err := tn.SubmitHash(alice, 1, hash1, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), sub.Index)

	assertKind(t, reverts.KindWindowStillOpen, errOf(tn.Confirm(0)))
	tn.closeWindow()

	conf, err := tn.Confirm(0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), conf.CycleID)
	assert.Equal(t, []rep.Address{alice}, conf.Rewarded)
	assert.Empty(t, conf.Punished)
	assert.Equal(t, uint64(2), conf.NextCycle.ID)

	hash, nodes, err := tn.GetReputationRootHash()
	require.NoError(t, err)
	assert.Equal(t, hash1, hash)
	assert.Equal(t, uint64(10), nodes)

	staked, err := tn.GetStakedBalance(alice)
	require.NoError(t, err)
	assertAmount(t, rep.Tokens(2), staked)

	length, err := tn.GetReputationUpdateLogLength()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), length)
	entry, err := tn.GetReputationUpdateLogEntry(0)
	require.NoError(t, err)
	assert.Equal(t, alice, entry.Principal)
	assertAmount(t, rep.Tokens(1), entry.Amount)
	assert.Equal(t, tn.params.MiningSkillID, entry.SkillID)
	assert.Equal(t, MiningOrigin, entry.Origin)
	assert.Equal(t, uint64(4), entry.NUpdates)
	assert.Equal(t, uint64(0), entry.NPreviousUpdates)
	assert.Equal(t, uint64(1), entry.CycleID)

	c, status, err := tn.GetCycle(1)
	require.NoError(t, err)
	assert.Equal(t, cycle.StatusConfirmed, status)
	assert.True(t, c.HasWinner)

	id, err := tn.GetCurrentMiningCycle()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), id)

	// rewards are not funded by custody, the failed payout keeps the stake
	assert.Error(t, tn.Withdraw(alice, rep.Tokens(2)))
	staked, err = tn.GetStakedBalance(alice)
	require.NoError(t, err)
	assertAmount(t, rep.Tokens(2), staked)
}

func errOf[T any](_ T, err error) error { return err }

func TestEqualEntriesResolvedByOracle(t *testing.T) {
	tn := newTestNet(t)
	alice, bob := datagen.RandAddress(), datagen.RandAddress()
	tn.stake(t, alice, rep.Tokens(1))
	tn.stake(t, bob, rep.Tokens(1))
	tn.openEntries()

	_, err := tn.SubmitHash(alice, 1, hash1, 10, 10)
	require.NoError(t, err)
	_, err = tn.SubmitHash(bob, 1, hash2, 10, 10)
	require.NoError(t, err)
	tn.closeWindow()

	_, status, err := tn.GetCycle(1)
	require.NoError(t, err)
	assert.Equal(t, cycle.StatusDisputing, status)

	assertKind(t, reverts.KindMultipleCandidatesRemain, errOf(tn.Confirm(0)))

	// nothing known yet
	assertKind(t, reverts.KindUnresolvable, errOf(tn.Invalidate(0, 1)))

	tn.judge.Set(oracle.Claim{Hash: hash1, NodeCount: 10}, oracle.Valid)
	tn.judge.Set(oracle.Claim{Hash: hash2, NodeCount: 10}, oracle.Invalid)
	e, err := tn.Invalidate(0, 1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.Loser)
	assert.Equal(t, uint64(0), e.Winner)
	assert.False(t, e.ByVote)
	assert.Equal(t, []rep.Address{bob}, e.Punished)

	staked, err := tn.GetStakedBalance(bob)
	require.NoError(t, err)
	assert.Equal(t, 0, staked.Sign())

	// the shared submission is gone, a repeat is not opposing
	assertKind(t, reverts.KindNotOpposing, errOf(tn.Invalidate(0, 1)))
	assertKind(t, reverts.KindMultipleCandidatesRemain, errOf(tn.Confirm(1)))

	conf, err := tn.Confirm(0)
	require.NoError(t, err)
	assert.Equal(t, []rep.Address{alice}, conf.Rewarded)
	assert.Empty(t, conf.Punished, "already punished on elimination")

	staked, err = tn.GetStakedBalance(alice)
	require.NoError(t, err)
	assertAmount(t, rep.Tokens(2), staked)

	stats, err := tn.GetStats()
	require.NoError(t, err)
	assertAmount(t, rep.Tokens(1), stats.Slashed)
	assertAmount(t, rep.Tokens(1), stats.Rewarded)
	assertAmount(t, rep.Tokens(2), stats.Staked)

	length, err := tn.GetReputationUpdateLogLength()
	require.NoError(t, err)
	assert.Equal(t, uint64(1), length)
}

func TestWeightDecidesElimination(t *testing.T) {
	tn := newTestNet(t)
	alice, bob, carol := datagen.RandAddress(), datagen.RandAddress(), datagen.RandAddress()
	for _, p := range []rep.Address{alice, bob, carol} {
		tn.stake(t, p, rep.Tokens(1))
	}
	tn.openEntries()

	_, err := tn.SubmitHash(alice, 1, hash1, 10, 10)
	require.NoError(t, err)
	_, err = tn.SubmitHash(carol, 1, hash2, 10, 10)
	require.NoError(t, err)
	sub, err := tn.SubmitHash(bob, 1, hash1, 10, 10)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), sub.Index)
	assert.Equal(t, uint64(2), sub.Entries())

	who, err := tn.GetSubmitter(1, hash1, 10, 1)
	require.NoError(t, err)
	assert.Equal(t, bob, who)

	tn.closeWindow()
	e, err := tn.Invalidate(1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.Loser)
	assert.True(t, e.ByVote)

	staked, err := tn.GetStakedBalance(carol)
	require.NoError(t, err)
	assert.Equal(t, 0, staked.Sign())

	assertKind(t, reverts.KindOnlySurvivorCannotBeEliminated, errOf(tn.Invalidate(1, 0)))

	// carol was settled by the elimination, so fresh stake is free while the cycle is open
	tn.stake(t, carol, rep.Tokens(2))
	require.NoError(t, tn.Withdraw(carol, rep.Tokens(1)))

	before, err := tn.GetReputationUpdateLogLength()
	require.NoError(t, err)
	conf, err := tn.Confirm(0)
	require.NoError(t, err)
	assert.ElementsMatch(t, []rep.Address{alice, bob}, conf.Rewarded)

	after, err := tn.GetReputationUpdateLogLength()
	require.NoError(t, err)
	assert.Equal(t, before+2, after)

	for _, p := range []rep.Address{alice, bob} {
		staked, err := tn.GetStakedBalance(p)
		require.NoError(t, err)
		assertAmount(t, rep.Tokens(2), staked)
	}
	first, err := tn.GetReputationUpdateLogEntry(0)
	require.NoError(t, err)
	second, err := tn.GetReputationUpdateLogEntry(1)
	require.NoError(t, err)
	assert.Equal(t, alice, first.Principal)
	assert.Equal(t, bob, second.Principal)
	assert.Equal(t, first.NUpdates, second.NPreviousUpdates)

	staked, err = tn.GetStakedBalance(carol)
	require.NoError(t, err)
	assertAmount(t, rep.Tokens(1), staked)
}

func TestOnlySurvivor(t *testing.T) {
	tn := newTestNet(t)
	alice := datagen.RandAddress()
	tn.stake(t, alice, rep.Tokens(1))
	tn.openEntries()
	_, err := tn.SubmitHash(alice, 1, hash1, 10, 10)
	require.NoError(t, err)

	assertKind(t, reverts.KindWindowStillOpen, errOf(tn.Invalidate(0, 0)))
	tn.closeWindow()

	assertKind(t, reverts.KindOnlySurvivorCannotBeEliminated, errOf(tn.Invalidate(0, 0)))
	assertKind(t, reverts.KindOnlySurvivorCannotBeEliminated, errOf(tn.Invalidate(0, 5)))
	assertKind(t, reverts.KindNotOpposing, errOf(tn.Invalidate(3, 3)))
	assertKind(t, reverts.KindMultipleCandidatesRemain, errOf(tn.Confirm(1)))

	_, err = tn.Confirm(0)
	require.NoError(t, err)
}

func TestSubmitRejections(t *testing.T) {
	tn := newTestNet(t)
	alice, bob, poor := datagen.RandAddress(), datagen.RandAddress(), datagen.RandAddress()
	tn.stake(t, alice, rep.Tokens(1))
	tn.stake(t, bob, rep.Tokens(1))
	tn.stake(t, poor, big.NewInt(1))

	assertKind(t, reverts.KindWindowNotYetOpen, errOf(tn.SubmitHash(alice, 1, hash1, 10, 10)))
	tn.openEntries()

	assertKind(t, reverts.KindNotCurrentCycle, errOf(tn.SubmitHash(alice, 2, hash1, 10, 10)))
	assertKind(t, reverts.KindNotEligible, errOf(tn.SubmitHash(poor, 1, hash1, 10, 10)))
	assertKind(t, reverts.KindNotEligible, errOf(tn.SubmitHash(datagen.RandAddress(), 1, hash1, 10, 10)))
	assertKind(t, reverts.KindNotEligible, errOf(tn.SubmitHash(alice, 1, hash1, 10, 0)))

	_, err := tn.SubmitHash(alice, 1, hash1, 10, 10)
	require.NoError(t, err)
	assertKind(t, reverts.KindDuplicateEntry, errOf(tn.SubmitHash(alice, 1, hash1, 10, 10)))
	assertKind(t, reverts.KindConflictingSubmission, errOf(tn.SubmitHash(alice, 1, hash2, 10, 11)))
	// same hash with another node count is another candidate
	assertKind(t, reverts.KindConflictingSubmission, errOf(tn.SubmitHash(alice, 1, hash1, 11, 11)))

	// more entries on the same pair add weight
	sub, err := tn.SubmitHash(alice, 1, hash1, 10, 11)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), sub.Entries())
	assert.Len(t, sub.Principals(), 1)

	tn.closeWindow()
	assertKind(t, reverts.KindWindowClosed, errOf(tn.SubmitHash(bob, 1, hash1, 10, 10)))

	c, _, err := tn.GetCycle(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), c.NSubmissions)
}

func TestEntryLimit(t *testing.T) {
	tn := newTestNet(t)
	alice := datagen.RandAddress()
	tn.stake(t, alice, rep.Tokens(1))
	tn.openEntries()

	limit := tn.params.MaxEntriesPerPrincipal
	for i := uint64(1); i <= limit; i++ {
		_, err := tn.SubmitHash(alice, 1, hash1, 10, i)
		require.NoError(t, err)
	}
	assertKind(t, reverts.KindEntryLimitReached, errOf(tn.SubmitHash(alice, 1, hash1, 10, limit+1)))
}

func TestConcurrentInvalidate(t *testing.T) {
	tn := newTestNet(t)
	var principals []rep.Address
	for range 5 {
		p := datagen.RandAddress()
		tn.stake(t, p, rep.Tokens(1))
		principals = append(principals, p)
	}
	tn.openEntries()
	hash3 := rep.RightPadBytes32([]byte{0xab, 0xcd, 0xef})
	pairs := []rep.Bytes32{hash1, hash1, hash2, hash2, hash3}
	for i, p := range principals {
		_, err := tn.SubmitHash(p, 1, pairs[i], 10, 10)
		require.NoError(t, err)
	}
	tn.closeWindow()

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, a := range []uint64{0, 1} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = tn.Invalidate(a, 2)
		}()
	}
	wg.Wait()

	var ok, notOpposing int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, reverts.ErrNotOpposing):
			notOpposing++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, notOpposing)

	staked, err := tn.GetStakedBalance(principals[4])
	require.NoError(t, err)
	assert.Equal(t, 0, staked.Sign())
	stats, err := tn.GetStats()
	require.NoError(t, err)
	assertAmount(t, rep.Tokens(1), stats.Slashed)
}

func TestTieWithBothInvalidEliminatesLater(t *testing.T) {
	tn := newTestNet(t)
	alice, bob := datagen.RandAddress(), datagen.RandAddress()
	tn.stake(t, alice, rep.Tokens(1))
	tn.stake(t, bob, rep.Tokens(1))
	tn.openEntries()
	tn.judge.Set(oracle.Claim{Hash: hash1, NodeCount: 10}, oracle.Invalid)
	tn.judge.Set(oracle.Claim{Hash: hash2, NodeCount: 10}, oracle.Invalid)

	_, err := tn.SubmitHash(alice, 1, hash1, 10, 10)
	require.NoError(t, err)
	_, err = tn.SubmitHash(bob, 1, hash2, 10, 10)
	require.NoError(t, err)
	tn.closeWindow()

	e, err := tn.Invalidate(1, 0)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), e.Loser)
}

func TestExternalEntriesShareTheLog(t *testing.T) {
	tn := newTestNet(t)
	alice := datagen.RandAddress()
	colony := rep.BytesToAddress([]byte("colony"))

	idx, err := tn.AppendReputationUpdate(alice, rep.Tokens(-3), 7, colony, 2)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), idx)

	tn.stake(t, alice, rep.Tokens(1))
	tn.openEntries()
	_, err = tn.SubmitHash(alice, 1, hash1, 10, 10)
	require.NoError(t, err)
	tn.closeWindow()
	_, err = tn.Confirm(0)
	require.NoError(t, err)

	external, err := tn.GetReputationUpdateLogEntry(0)
	require.NoError(t, err)
	assertAmount(t, rep.Tokens(-3), external.Amount)
	assert.Equal(t, colony, external.Origin)
	assert.Equal(t, uint64(0), external.CycleID)

	reward, err := tn.GetReputationUpdateLogEntry(1)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), reward.NPreviousUpdates)
	assert.Equal(t, uint64(1), reward.CycleID)

	_, err = tn.GetReputationUpdateLogEntry(2)
	assert.True(t, errors.Is(err, replog.ErrNotFound))

	entries, err := tn.Entries(0, 10)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

type mutatingIndexer struct{}

func (mutatingIndexer) IndexEntries(_ uint64, entries []*replog.Entry) error {
	for _, e := range entries {
		e.Amount.SetInt64(-1)
		e.NUpdates = 99
	}
	return nil
}

func TestLogEntriesAreCopies(t *testing.T) {
	tn := newTestNet(t, WithIndexer(mutatingIndexer{}))
	alice := datagen.RandAddress()
	colony := rep.BytesToAddress([]byte("colony"))

	_, err := tn.AppendReputationUpdate(alice, big.NewInt(7), 1, colony, 1)
	require.NoError(t, err)

	for range 2 {
		e, err := tn.GetReputationUpdateLogEntry(0)
		require.NoError(t, err)
		assertAmount(t, big.NewInt(7), e.Amount)
		assert.Equal(t, uint64(1), e.NUpdates)

		e.Amount.SetInt64(-999)
		e.NUpdates = 42
	}

	entries, err := tn.Entries(0, 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assertAmount(t, big.NewInt(7), entries[0].Amount)
	assert.Equal(t, uint64(1), entries[0].NUpdates)
}

func TestEntriesClampsCount(t *testing.T) {
	tn := newTestNet(t)
	colony := rep.BytesToAddress([]byte("colony"))
	for i := range 3 {
		_, err := tn.AppendReputationUpdate(datagen.RandAddress(), big.NewInt(int64(i+1)), 0, colony, 1)
		require.NoError(t, err)
	}

	entries, err := tn.Entries(1, math.MaxUint64)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assertAmount(t, big.NewInt(2), entries[0].Amount)

	entries, err = tn.Entries(5, 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

type recordingIndexer struct {
	firsts []uint64
	counts []int
}

func (r *recordingIndexer) IndexEntries(first uint64, entries []*replog.Entry) error {
	r.firsts = append(r.firsts, first)
	r.counts = append(r.counts, len(entries))
	return nil
}

func TestIndexerSeesCommittedEntries(t *testing.T) {
	idx := &recordingIndexer{}
	tn := newTestNet(t, WithIndexer(idx))
	alice, bob := datagen.RandAddress(), datagen.RandAddress()

	_, err := tn.AppendReputationUpdate(alice, big.NewInt(1), 1, alice, 1)
	require.NoError(t, err)

	tn.stake(t, alice, rep.Tokens(1))
	tn.stake(t, bob, rep.Tokens(1))
	tn.openEntries()
	_, err = tn.SubmitHash(alice, 1, hash1, 10, 10)
	require.NoError(t, err)
	_, err = tn.SubmitHash(bob, 1, hash1, 10, 10)
	require.NoError(t, err)
	tn.closeWindow()

	// a failed confirmation indexes nothing
	_, err = tn.Confirm(1)
	require.Error(t, err)
	_, err = tn.Confirm(0)
	require.NoError(t, err)

	assert.Equal(t, []uint64{0, 1}, idx.firsts)
	assert.Equal(t, []int{1, 2}, idx.counts)
}

func TestHousekeep(t *testing.T) {
	t.Run("empty cycle is closed", func(t *testing.T) {
		tn := newTestNet(t)
		res, err := tn.Housekeep()
		require.NoError(t, err)
		assert.False(t, res.Closed)

		tn.closeWindow()
		assertKind(t, reverts.KindNoSubmissions, errOf(tn.Confirm(0)))

		res, err = tn.Housekeep()
		require.NoError(t, err)
		assert.True(t, res.Closed)
		assert.Equal(t, uint64(2), res.NextCycle)

		c, status, err := tn.GetCycle(1)
		require.NoError(t, err)
		assert.Equal(t, cycle.StatusConfirmed, status)
		assert.False(t, c.HasWinner)

		hash, _, err := tn.GetReputationRootHash()
		require.NoError(t, err)
		assert.True(t, hash.IsZero())

		id, err := tn.GetCurrentMiningCycle()
		require.NoError(t, err)
		assert.Equal(t, uint64(2), id)
	})

	t.Run("dispute stalls", func(t *testing.T) {
		tn := newTestNet(t)
		alice, bob := datagen.RandAddress(), datagen.RandAddress()
		tn.stake(t, alice, rep.Tokens(1))
		tn.stake(t, bob, rep.Tokens(1))
		tn.openEntries()
		_, err := tn.SubmitHash(alice, 1, hash1, 10, 10)
		require.NoError(t, err)
		_, err = tn.SubmitHash(bob, 1, hash2, 10, 10)
		require.NoError(t, err)
		tn.closeWindow()

		res, err := tn.Housekeep()
		require.NoError(t, err)
		assert.True(t, res.Disputing)
		assert.False(t, res.Stalled)

		tn.clock.Advance(tn.params.MaxDisputeDuration)
		res, err = tn.Housekeep()
		require.NoError(t, err)
		assert.False(t, res.Disputing)
		assert.True(t, res.Stalled)

		c, _, err := tn.GetCycle(1)
		require.NoError(t, err)
		assert.True(t, c.Stalled)
		assert.Equal(t, cycle.StatusDisputing, c.Status)

		// flagged once
		res, err = tn.Housekeep()
		require.NoError(t, err)
		assert.False(t, res.Stalled)
	})
}

func TestStakeAccounting(t *testing.T) {
	tn := newTestNet(t)
	alice := datagen.RandAddress()
	require.NoError(t, tn.tokens.Mint(alice, rep.Tokens(100)))
	require.NoError(t, tn.tokens.Approve(alice, rep.Tokens(100)))

	expected := new(big.Int)
	for i := range 40 {
		amount := big.NewInt(int64(datagen.RandIntN(1000) + 1))
		if i%3 == 2 {
			err := tn.Withdraw(alice, amount)
			if amount.Cmp(expected) > 0 {
				assertKind(t, reverts.KindInsufficientStake, err)
				continue
			}
			require.NoError(t, err)
			expected.Sub(expected, amount)
			continue
		}
		require.NoError(t, tn.Deposit(alice, amount))
		expected.Add(expected, amount)
	}
	staked, err := tn.GetStakedBalance(alice)
	require.NoError(t, err)
	assertAmount(t, expected, staked)
	assert.True(t, staked.Sign() >= 0)
}
