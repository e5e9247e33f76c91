// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package submission

import (
	"math/big"
	"time"

	"github.com/pkg/errors"

	"github.com/repmine/repmine/eligibility"
	"github.com/repmine/repmine/log"
	"github.com/repmine/repmine/mining/cycle"
	"github.com/repmine/repmine/mining/reverts"
	"github.com/repmine/repmine/mining/stakes"
	"github.com/repmine/repmine/oracle"
	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/state"
	"github.com/repmine/repmine/storage"
)

var (
	logger = log.WithContext("pkg", "submission")

	ErrNotFound = errors.New("submission not found")

	slotSubmissions    = storage.Slot("submission.submissions")
	slotLookup         = storage.Slot("submission.lookup")
	slotUsedEntries    = storage.Slot("submission.used-entries")
	slotParticipations = storage.Slot("submission.participations")
)

// Rules gate who may submit what.
type Rules struct {
	MinStake               *big.Int
	StakePerEntry          *big.Int // stake needed per entry index, nil or zero disables
	MaxEntriesPerPrincipal uint64   // 0 means unlimited
	Policy                 eligibility.Policy
	Judge                  oracle.Judge
}

// Registry accepts hash submissions for the active cycle.
type Registry struct {
	cycles *cycle.Store
	stakes *stakes.Service
	rules  Rules

	submissions    *storage.Mapping[storage.BytesKey, *Submission]
	lookup         *storage.Mapping[storage.BytesKey, uint64] // (cycle, hash, nodes) => index + 1
	usedEntries    *storage.Mapping[storage.BytesKey, bool]
	participations *storage.Mapping[storage.BytesKey, *participation]
}

func New(st *state.State, cycles *cycle.Store, ledger *stakes.Service, rules Rules) *Registry {
	return &Registry{
		cycles:         cycles,
		stakes:         ledger,
		rules:          rules,
		submissions:    storage.NewMapping[storage.BytesKey, *Submission](st, slotSubmissions),
		lookup:         storage.NewMapping[storage.BytesKey, uint64](st, slotLookup),
		usedEntries:    storage.NewMapping[storage.BytesKey, bool](st, slotUsedEntries),
		participations: storage.NewMapping[storage.BytesKey, *participation](st, slotParticipations),
	}
}

func submissionKey(cycleID, index uint64) storage.BytesKey {
	return storage.Compose(storage.Uint64Key(cycleID), storage.Uint64Key(index))
}

func lookupKey(cycleID uint64, hash rep.Bytes32, nodeCount uint64) storage.BytesKey {
	return storage.Compose(storage.Uint64Key(cycleID), hash, storage.Uint64Key(nodeCount))
}

func principalKey(cycleID uint64, principal rep.Address) storage.BytesKey {
	return storage.Compose(storage.Uint64Key(cycleID), principal)
}

func entryKey(cycleID uint64, principal rep.Address, entryIndex uint64) storage.BytesKey {
	return storage.Compose(storage.Uint64Key(cycleID), principal, storage.Uint64Key(entryIndex))
}

//
// Getters - no state change
//

// Get returns the submission at index in cycleID, nil if there is none.
func (r *Registry) Get(cycleID, index uint64) (*Submission, error) {
	s, err := r.submissions.Get(submissionKey(cycleID, index))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get submission")
	}
	if len(s.Backers) == 0 {
		return nil, nil
	}
	return s, nil
}

// All returns the submissions of cycleID in index order.
func (r *Registry) All(cycleID uint64) ([]*Submission, error) {
	c, err := r.cycles.Get(cycleID)
	if err != nil || c == nil {
		return nil, err
	}
	out := make([]*Submission, 0, c.NSubmissions)
	for i := uint64(0); i < c.NSubmissions; i++ {
		s, err := r.Get(cycleID, i)
		if err != nil {
			return nil, err
		}
		if s == nil {
			return nil, errors.Errorf("submission %d of cycle %d missing", i, cycleID)
		}
		out = append(out, s)
	}
	return out, nil
}

// Find returns the submission of the pair (hash, nodeCount) in cycleID, nil if there is none.
func (r *Registry) Find(cycleID uint64, hash rep.Bytes32, nodeCount uint64) (*Submission, error) {
	pos, err := r.lookup.Get(lookupKey(cycleID, hash, nodeCount))
	if err != nil {
		return nil, errors.Wrap(err, "failed to lookup submission")
	}
	if pos == 0 {
		return nil, nil
	}
	return r.Get(cycleID, pos-1)
}

// GetSubmitter returns the principal of the backer at position of the pair (hash, nodeCount).
func (r *Registry) GetSubmitter(cycleID uint64, hash rep.Bytes32, nodeCount uint64, position uint64) (rep.Address, error) {
	s, err := r.Find(cycleID, hash, nodeCount)
	if err != nil {
		return rep.Address{}, err
	}
	if s == nil || position >= s.Entries() {
		return rep.Address{}, ErrNotFound
	}
	return s.Backers[position].Principal, nil
}

// BackedIndex returns the submission principal backs in cycleID.
func (r *Registry) BackedIndex(cycleID uint64, principal rep.Address) (index uint64, ok bool, err error) {
	p, err := r.participations.Get(principalKey(cycleID, principal))
	if err != nil {
		return 0, false, errors.Wrap(err, "failed to get participation")
	}
	if p.Entries == 0 {
		return 0, false, nil
	}
	return p.Index, true, nil
}

//
// Setters - state change
//

func (r *Registry) Set(cycleID uint64, s *Submission) error {
	return errors.Wrap(r.submissions.Set(submissionKey(cycleID, s.Index), s), "failed to set submission")
}

// Submit backs the pair (hash, nodeCount) with one entry of principal. It returns the backed
// submission and whether it was created by this call.
func (r *Registry) Submit(
	principal rep.Address,
	cycleID uint64,
	hash rep.Bytes32,
	nodeCount uint64,
	entryIndex uint64,
	now uint64,
) (*Submission, bool, error) {
	c, err := r.cycles.Active()
	if err != nil {
		return nil, false, err
	}
	if c.ID != cycleID {
		return nil, false, reverts.Newf(reverts.KindNotCurrentCycle, "cycle %d, active %d", cycleID, c.ID)
	}
	if !c.IsWindowOpen(now) {
		return nil, false, reverts.Newf(reverts.KindWindowClosed, "window of cycle %d ended at %d", c.ID, c.WindowEnd)
	}

	if err := r.checkStake(principal, entryIndex); err != nil {
		return nil, false, err
	}
	var elapsed time.Duration
	if now > c.OpenTime {
		elapsed = time.Duration(now-c.OpenTime) * time.Second
	}
	entry := eligibility.Entry{Principal: principal, EntryIndex: entryIndex, Hash: hash}
	if !r.rules.Policy.Eligible(entry, elapsed) {
		return nil, false, reverts.Newf(reverts.KindWindowNotYetOpen, "entry %d not eligible after %v", entryIndex, elapsed)
	}

	used, err := r.usedEntries.Has(entryKey(c.ID, principal, entryIndex))
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to check entry")
	}
	if used {
		return nil, false, reverts.Newf(reverts.KindDuplicateEntry, "entry %d already used", entryIndex)
	}

	existing, err := r.Find(c.ID, hash, nodeCount)
	if err != nil {
		return nil, false, err
	}
	part, err := r.participations.Get(principalKey(c.ID, principal))
	if err != nil {
		return nil, false, errors.Wrap(err, "failed to get participation")
	}
	if part.Entries > 0 && (existing == nil || existing.Index != part.Index) {
		return nil, false, reverts.Newf(reverts.KindConflictingSubmission, "already backing submission %d", part.Index)
	}
	if r.rules.MaxEntriesPerPrincipal > 0 && part.Entries >= r.rules.MaxEntriesPerPrincipal {
		return nil, false, reverts.Newf(reverts.KindEntryLimitReached, "%d entries used", part.Entries)
	}

	sub, created := existing, false
	if sub == nil {
		sub = &Submission{
			Index:     c.NSubmissions,
			Hash:      hash,
			NodeCount: nodeCount,
			Verdict:   r.judge(oracle.Claim{Hash: hash, NodeCount: nodeCount}),
			CreatedAt: now,
		}
		created = true
		c.NSubmissions++
		if err := r.cycles.Set(c); err != nil {
			return nil, false, err
		}
		if err := r.lookup.Set(lookupKey(c.ID, hash, nodeCount), sub.Index+1); err != nil {
			return nil, false, errors.Wrap(err, "failed to set lookup")
		}
	}
	sub.Backers = append(sub.Backers, Backer{Principal: principal, EntryIndex: entryIndex})
	if err := r.Set(c.ID, sub); err != nil {
		return nil, false, err
	}

	if err := r.usedEntries.Set(entryKey(c.ID, principal, entryIndex), true); err != nil {
		return nil, false, errors.Wrap(err, "failed to set entry")
	}
	part.Index = sub.Index
	part.Entries++
	if err := r.participations.Set(principalKey(c.ID, principal), part); err != nil {
		return nil, false, errors.Wrap(err, "failed to set participation")
	}
	if err := r.stakes.Lock(principal, c.ID); err != nil {
		return nil, false, err
	}
	return sub, created, nil
}

func (r *Registry) checkStake(principal rep.Address, entryIndex uint64) error {
	staked, err := r.stakes.GetStakedBalance(principal)
	if err != nil {
		return err
	}
	if staked.Sign() == 0 || (r.rules.MinStake != nil && staked.Cmp(r.rules.MinStake) < 0) {
		return reverts.Newf(reverts.KindNotEligible, "stake %v below minimum %v", staked, r.rules.MinStake)
	}
	if entryIndex == 0 {
		return reverts.New(reverts.KindNotEligible, "entry index starts at 1")
	}
	if r.rules.StakePerEntry != nil && r.rules.StakePerEntry.Sign() > 0 {
		need := new(big.Int).Mul(r.rules.StakePerEntry, new(big.Int).SetUint64(entryIndex))
		if staked.Cmp(need) < 0 {
			return reverts.Newf(reverts.KindNotEligible, "entry %d needs stake %v", entryIndex, need)
		}
	}
	return nil
}

// judge asks the oracle, treating failures as not yet known.
func (r *Registry) judge(claim oracle.Claim) oracle.Verdict {
	if r.rules.Judge == nil {
		return oracle.Unknown
	}
	v, err := r.rules.Judge.JudgeClaim(claim)
	if err != nil {
		logger.Debug("oracle unavailable", "hash", claim.Hash, "nodes", claim.NodeCount, "err", err)
		return oracle.Unknown
	}
	return v
}

// Rejudge refreshes the verdict of s while it is unknown.
func (r *Registry) Rejudge(cycleID uint64, s *Submission) error {
	if s.Verdict != oracle.Unknown {
		return nil
	}
	v := r.judge(s.Claim())
	if v == oracle.Unknown {
		return nil
	}
	s.Verdict = v
	return r.Set(cycleID, s)
}
