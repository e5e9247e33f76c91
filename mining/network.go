// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package mining runs the reputation mining protocol: stake, submit, dispute, confirm.
package mining

import (
	"math/big"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/repmine/repmine/cache"
	"github.com/repmine/repmine/clock"
	"github.com/repmine/repmine/eligibility"
	"github.com/repmine/repmine/kv"
	"github.com/repmine/repmine/log"
	"github.com/repmine/repmine/mining/cycle"
	"github.com/repmine/repmine/mining/replog"
	"github.com/repmine/repmine/mining/reverts"
	"github.com/repmine/repmine/mining/settlement"
	"github.com/repmine/repmine/mining/stakes"
	"github.com/repmine/repmine/mining/submission"
	"github.com/repmine/repmine/mining/tournament"
	"github.com/repmine/repmine/oracle"
	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/state"
	"github.com/repmine/repmine/token"
)

var logger = log.WithContext("pkg", "mining")

// Bucket is the kv namespace of the mining state.
const Bucket = kv.Bucket("m/")

const entryCacheSize = 4096

// Indexer mirrors committed log entries somewhere else.
type Indexer interface {
	IndexEntries(first uint64, entries []*replog.Entry) error
}

// Option configures a Network.
type Option func(*Network)

// WithClock sets the time source, the system clock by default.
func WithClock(c clock.Clock) Option {
	return func(n *Network) { n.clock = c }
}

// WithJudge sets the node count oracle. Without one every claim is unknown.
func WithJudge(j oracle.Judge) Option {
	return func(n *Network) { n.judge = j }
}

// WithPolicy sets the entry eligibility policy, AfterDelay(EligibilityRamp) by default.
func WithPolicy(p eligibility.Policy) Option {
	return func(n *Network) { n.policy = p }
}

// WithIndexer sets where committed log entries are mirrored.
func WithIndexer(i Indexer) Option {
	return func(n *Network) { n.indexer = i }
}

// Network is the mining network. Every operation runs exclusively on a journaled state and is
// committed in a single batch only when it succeeds.
type Network struct {
	mu      sync.Mutex
	db      kv.Store
	token   token.Service
	clock   clock.Clock
	judge   oracle.Judge
	policy  eligibility.Policy
	indexer Indexer
	params  Params

	entries *cache.LRU[uint64, *replog.Entry]
}

// New creates a network over db. The first cycle is opened if none exists yet.
func New(db kv.Store, tokens token.Service, params Params, opts ...Option) (*Network, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	entries, err := cache.NewLRU[uint64, *replog.Entry](entryCacheSize)
	if err != nil {
		return nil, err
	}
	n := &Network{
		db:      db,
		token:   tokens,
		clock:   clock.System{},
		params:  params,
		entries: entries,
	}
	for _, opt := range opts {
		opt(n)
	}
	if n.policy == nil {
		n.policy = eligibility.AfterDelay(params.EligibilityRamp)
	}

	n.mu.Lock()
	defer n.mu.Unlock()
	var opened *cycle.Cycle
	if err := n.update(func(o *ops) error {
		id, err := o.cycles.ActiveID()
		if err != nil || id != 0 {
			return err
		}
		opened, err = o.cycles.Open(n.now(), n.params.windowSeconds())
		return err
	}); err != nil {
		return nil, errors.Wrap(err, "open first cycle")
	}
	if opened != nil {
		logger.Info("opened first cycle", "cycle", opened.ID, "windowEnd", time.Unix(int64(opened.WindowEnd), 0))
	}
	return n, nil
}

// Params returns the network parameters.
func (n *Network) Params() Params {
	return n.params
}

// ops binds the mining services to one state.
type ops struct {
	st         *state.State
	stakes     *stakes.Service
	cycles     *cycle.Store
	registry   *submission.Registry
	log        *replog.Log
	settlement *settlement.Service
	tournament *tournament.Service
}

func (n *Network) newOps(st *state.State) *ops {
	o := &ops{
		st:     st,
		stakes: stakes.New(st),
		cycles: cycle.New(st),
		log:    replog.New(st),
	}
	o.registry = submission.New(st, o.cycles, o.stakes, submission.Rules{
		MinStake:               n.params.MinStake,
		StakePerEntry:          n.params.StakePerEntry,
		MaxEntriesPerPrincipal: n.params.MaxEntriesPerPrincipal,
		Policy:                 n.policy,
		Judge:                  n.judge,
	})
	o.settlement = settlement.New(st, o.stakes, o.log, settlement.Rewards{
		ReputationPerEntry: n.params.ReputationPerEntry,
		SkillID:            n.params.MiningSkillID,
		Origin:             n.params.OriginID,
		UpdatesPerEntry:    n.params.UpdatesPerEntry,
	})
	o.tournament = tournament.New(st, o.cycles, o.registry, o.settlement, n.params.windowSeconds())
	return o
}

// update runs fn on a fresh state and commits it when fn succeeds. Callers hold n.mu.
func (n *Network) update(fn func(o *ops) error) error {
	start := time.Now()
	o := n.newOps(state.New(Bucket.NewGetter(n.db)))
	if err := fn(o); err != nil {
		return err
	}
	if err := o.st.Stage().Commit(n.db, Bucket); err != nil {
		return errors.Wrap(err, "commit")
	}
	metricOpDuration().Observe(time.Since(start).Milliseconds())
	n.afterCommit(o)
	return nil
}

// view runs fn on a fresh state that is discarded. Callers hold n.mu.
func (n *Network) view(fn func(o *ops) error) error {
	return fn(n.newOps(state.New(Bucket.NewGetter(n.db))))
}

func (n *Network) afterCommit(o *ops) {
	if c, err := o.cycles.Active(); err == nil && c != nil {
		metricCandidates().SetWithLabel(int64(c.NSubmissions-c.NEliminated), map[string]string{"state": "alive"})
		metricCandidates().SetWithLabel(int64(c.NEliminated), map[string]string{"state": "eliminated"})
	}

	first, appended := o.log.Appended()
	if len(appended) == 0 {
		return
	}
	for i, e := range appended {
		n.entries.Add(first+uint64(i), e.Copy())
	}
	metricLogLength().Set(int64(first) + int64(len(appended)))
	if n.indexer == nil {
		return
	}
	indexed := make([]*replog.Entry, len(appended))
	for i, e := range appended {
		indexed[i] = e.Copy()
	}
	if err := n.indexer.IndexEntries(first, indexed); err != nil {
		logger.Warn("failed to index log entries", "first", first, "count", len(appended), "err", err)
	}
}

func (n *Network) now() uint64 {
	t := n.clock.Now().Unix()
	if t < 0 {
		return 0
	}
	return uint64(t)
}

func checkAmount(amount *big.Int) error {
	if amount == nil || amount.Sign() <= 0 {
		return reverts.New(reverts.KindInvalidAmount, "amount must be positive")
	}
	return nil
}

//
// Stake ledger
//

// Deposit moves amount from the principal's approved tokens into custody and stakes it.
func (n *Network) Deposit(principal rep.Address, amount *big.Int) (err error) {
	defer func() { recordOp("deposit", err) }()
	if err := checkAmount(amount); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.token.TransferIntoCustody(principal, amount); err != nil {
		if errors.Is(err, token.ErrInsufficientAllowance) {
			return reverts.New(reverts.KindInsufficientAllowance, err.Error())
		}
		return errors.Wrap(err, "transfer into custody")
	}
	if err := n.update(func(o *ops) error {
		return o.stakes.Deposit(principal, amount)
	}); err != nil {
		if rerr := n.token.TransferFromCustody(principal, amount); rerr != nil {
			logger.Error("failed to refund deposit", "principal", principal, "amount", amount, "err", rerr)
		}
		return err
	}
	logger.Debug("deposited", "principal", principal, "amount", amount)
	return nil
}

// Withdraw unstakes amount and transfers it back to the principal.
func (n *Network) Withdraw(principal rep.Address, amount *big.Int) (err error) {
	defer func() { recordOp("withdraw", err) }()
	if err := checkAmount(amount); err != nil {
		return err
	}
	n.mu.Lock()
	defer n.mu.Unlock()

	if err := n.update(func(o *ops) error {
		active, err := o.cycles.ActiveID()
		if err != nil {
			return err
		}
		return o.stakes.Withdraw(principal, amount, active)
	}); err != nil {
		return err
	}
	if err := n.token.TransferFromCustody(principal, amount); err != nil {
		if rerr := n.update(func(o *ops) error {
			return o.stakes.Deposit(principal, amount)
		}); rerr != nil {
			logger.Crit("failed to restore stake after failed payout", "principal", principal, "amount", amount, "err", rerr)
		}
		return errors.Wrap(err, "transfer from custody")
	}
	logger.Debug("withdrew", "principal", principal, "amount", amount)
	return nil
}

// GetStakedBalance returns the stake of principal.
func (n *Network) GetStakedBalance(principal rep.Address) (staked *big.Int, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.view(func(o *ops) error {
		staked, err = o.stakes.GetStakedBalance(principal)
		return err
	})
	return
}

// GetAccount returns the stake account of principal.
func (n *Network) GetAccount(principal rep.Address) (acc *stakes.Account, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.view(func(o *ops) error {
		acc, err = o.stakes.GetAccount(principal)
		return err
	})
	return
}

// Stats holds the ledger totals.
type Stats struct {
	Staked   *big.Int
	Slashed  *big.Int
	Rewarded *big.Int
}

// GetStats returns the totals of staked, slashed and rewarded amounts.
func (n *Network) GetStats() (stats Stats, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.view(func(o *ops) error {
		stats.Staked, stats.Slashed, stats.Rewarded, err = o.stakes.Totals()
		return err
	})
	return
}

//
// Cycles and submissions
//

// GetCurrentMiningCycle returns the id of the active cycle.
func (n *Network) GetCurrentMiningCycle() (id uint64, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.view(func(o *ops) error {
		id, err = o.cycles.ActiveID()
		return err
	})
	return
}

// GetCycle returns the cycle with id and its status at the current time, nil if it does not exist.
func (n *Network) GetCycle(id uint64) (c *cycle.Cycle, status cycle.Status, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.view(func(o *ops) error {
		c, err = o.cycles.Get(id)
		return err
	})
	if c != nil {
		status = c.StatusAt(n.now())
	}
	return
}

// SubmitHash backs (hash, nodeCount) in cycleID with entryIndex of principal.
func (n *Network) SubmitHash(
	principal rep.Address,
	cycleID uint64,
	hash rep.Bytes32,
	nodeCount uint64,
	entryIndex uint64,
) (sub *submission.Submission, err error) {
	defer func() { recordOp("submit", err) }()
	n.mu.Lock()
	defer n.mu.Unlock()

	var created bool
	if err := n.update(func(o *ops) error {
		sub, created, err = o.registry.Submit(principal, cycleID, hash, nodeCount, entryIndex, n.now())
		return err
	}); err != nil {
		return nil, err
	}
	kind := "backing"
	if created {
		kind = "new"
		logger.Info("new submission", "cycle", cycleID, "index", sub.Index, "hash", hash, "nodes", nodeCount, "principal", principal)
	}
	metricSubmissions().AddWithLabel(1, map[string]string{"kind": kind})
	return sub, nil
}

// GetSubmitter returns the principal of the backer at position of the pair (hash, nodeCount).
func (n *Network) GetSubmitter(cycleID uint64, hash rep.Bytes32, nodeCount, position uint64) (principal rep.Address, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.view(func(o *ops) error {
		principal, err = o.registry.GetSubmitter(cycleID, hash, nodeCount, position)
		return err
	})
	return
}

// GetSubmission returns the submission at index of cycleID, nil if there is none.
func (n *Network) GetSubmission(cycleID, index uint64) (sub *submission.Submission, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.view(func(o *ops) error {
		sub, err = o.registry.Get(cycleID, index)
		return err
	})
	return
}

// GetSubmissions returns every submission of cycleID.
func (n *Network) GetSubmissions(cycleID uint64) (subs []*submission.Submission, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.view(func(o *ops) error {
		subs, err = o.registry.All(cycleID)
		return err
	})
	return
}

//
// Tournament
//

// Invalidate compares submissions a and b of the active cycle and eliminates the loser.
func (n *Network) Invalidate(a, b uint64) (e *tournament.Elimination, err error) {
	defer func() { recordOp("invalidate", err) }()
	n.mu.Lock()
	defer n.mu.Unlock()

	var slashed *big.Int
	if err := n.update(func(o *ops) error {
		_, before, _, err := o.stakes.Totals()
		if err != nil {
			return err
		}
		if e, err = o.tournament.Invalidate(a, b, n.now()); err != nil {
			return err
		}
		_, after, _, err := o.stakes.Totals()
		slashed = new(big.Int).Sub(after, before)
		return err
	}); err != nil {
		return nil, err
	}
	by := "vote"
	if !e.ByVote {
		by = "oracle"
	}
	metricEliminations().AddWithLabel(1, map[string]string{"by": by})
	metricSlashedTokens().Add(wholeTokens(slashed))
	logger.Info("submission eliminated", "cycle", e.CycleID, "loser", e.Loser, "winner", e.Winner, "by", by, "punished", len(e.Punished), "slashed", slashed)
	return e, nil
}

// Confirm settles the active cycle with its sole surviving submission.
func (n *Network) Confirm(index uint64) (c *tournament.Confirmation, err error) {
	defer func() { recordOp("confirm", err) }()
	n.mu.Lock()
	defer n.mu.Unlock()

	var slashed, rewarded *big.Int
	if err := n.update(func(o *ops) error {
		_, s0, r0, err := o.stakes.Totals()
		if err != nil {
			return err
		}
		if c, err = o.tournament.Confirm(index, n.now()); err != nil {
			return err
		}
		_, s1, r1, err := o.stakes.Totals()
		slashed, rewarded = new(big.Int).Sub(s1, s0), new(big.Int).Sub(r1, r0)
		return err
	}); err != nil {
		return nil, err
	}
	metricConfirmations().Add(1)
	metricSlashedTokens().Add(wholeTokens(slashed))
	metricRewardedTokens().Add(wholeTokens(rewarded))
	metricActiveCycle().Set(int64(c.NextCycle.ID))
	metricStalled().Set(0)
	logger.Info("cycle confirmed",
		"cycle", c.CycleID,
		"root", c.Winner.Hash,
		"nodes", c.Winner.NodeCount,
		"rewarded", len(c.Rewarded),
		"punished", len(c.Punished),
		"next", c.NextCycle.ID,
	)
	return c, nil
}

// GetReputationRootHash returns the canonical root hash and its node count.
func (n *Network) GetReputationRootHash() (hash rep.Bytes32, nodeCount uint64, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.view(func(o *ops) error {
		root, err := o.cycles.Root()
		if err != nil {
			return err
		}
		hash, nodeCount = root.Hash, root.NodeCount
		return nil
	})
	return
}

//
// Reputation update log
//

// GetReputationUpdateLogLength returns the number of log entries.
func (n *Network) GetReputationUpdateLogLength() (length uint64, err error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.view(func(o *ops) error {
		length, err = o.log.Len()
		return err
	})
	return
}

// GetReputationUpdateLogEntry returns a copy of the log entry at index.
func (n *Network) GetReputationUpdateLogEntry(index uint64) (*replog.Entry, error) {
	if e, ok := n.entries.Get(index); ok {
		return e.Copy(), nil
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	var entry *replog.Entry
	if err := n.view(func(o *ops) (err error) {
		entry, err = o.log.Get(index)
		return
	}); err != nil {
		return nil, err
	}
	n.entries.Add(index, entry.Copy())
	if changed, hit, miss := n.entries.Stats(); changed {
		metricEntryCacheHitRate().Set(n.entries.HitRate())
		logger.Trace("entry cache", "hit", hit, "miss", miss)
	}
	return entry, nil
}

// AppendReputationUpdate appends an entry produced outside of mining, such as a task payout.
func (n *Network) AppendReputationUpdate(
	principal rep.Address,
	amount *big.Int,
	skillID uint64,
	origin rep.Address,
	nUpdates uint64,
) (index uint64, err error) {
	defer func() { recordOp("append", err) }()
	if amount == nil {
		return 0, reverts.New(reverts.KindInvalidAmount, "amount required")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	err = n.update(func(o *ops) error {
		index, err = o.log.Append(&replog.Entry{
			Principal: principal,
			Amount:    new(big.Int).Set(amount),
			SkillID:   skillID,
			Origin:    origin,
			NUpdates:  nUpdates,
		})
		return err
	})
	return
}

// Entries returns count log entries starting at first, for reindexing.
func (n *Network) Entries(first, count uint64) ([]*replog.Entry, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []*replog.Entry
	err := n.view(func(o *ops) error {
		length, err := o.log.Len()
		if err != nil {
			return err
		}
		if first >= length {
			return nil
		}
		count = min(count, length-first)
		for i := first; i < first+count; i++ {
			e, err := o.log.Get(i)
			if err != nil {
				if errors.Is(err, replog.ErrNotFound) {
					return nil
				}
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	return out, err
}
