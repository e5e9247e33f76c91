// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package tournament

import (
	"github.com/pkg/errors"

	"github.com/repmine/repmine/mining/cycle"
	"github.com/repmine/repmine/mining/reverts"
	"github.com/repmine/repmine/mining/settlement"
	"github.com/repmine/repmine/mining/submission"
	"github.com/repmine/repmine/oracle"
	"github.com/repmine/repmine/rep"
	"github.com/repmine/repmine/state"
	"github.com/repmine/repmine/storage"
)

var slotEliminations = storage.Slot("tournament.eliminations")

// Elimination records the outcome of one pairwise comparison.
type Elimination struct {
	CycleID  uint64
	Winner   uint64
	Loser    uint64
	ByVote   bool // decided by entry counts, otherwise by oracle verdicts
	At       uint64
	Punished []rep.Address
}

// Confirmation is the outcome of confirming a cycle.
type Confirmation struct {
	CycleID   uint64
	Winner    *submission.Submission
	Rewarded  []rep.Address
	Punished  []rep.Address
	NextCycle *cycle.Cycle
}

// Service runs the elimination tournament of the active cycle.
type Service struct {
	cycles     *cycle.Store
	registry   *submission.Registry
	settlement *settlement.Service
	window     uint64 // submission window of the next cycle, seconds

	eliminations *storage.Mapping[storage.BytesKey, *Elimination]
}

func New(
	st *state.State,
	cycles *cycle.Store,
	registry *submission.Registry,
	settlement *settlement.Service,
	window uint64,
) *Service {
	return &Service{
		cycles:       cycles,
		registry:     registry,
		settlement:   settlement,
		window:       window,
		eliminations: storage.NewMapping[storage.BytesKey, *Elimination](st, slotEliminations),
	}
}

func eliminationKey(cycleID, loser uint64) storage.BytesKey {
	return storage.Compose(storage.Uint64Key(cycleID), storage.Uint64Key(loser))
}

// GetElimination returns how loser was eliminated in cycleID, nil if it was not.
func (s *Service) GetElimination(cycleID, loser uint64) (*Elimination, error) {
	e, err := s.eliminations.Get(eliminationKey(cycleID, loser))
	if err != nil {
		return nil, errors.Wrap(err, "failed to get elimination")
	}
	if e.CycleID == 0 {
		return nil, nil
	}
	return e, nil
}

func (s *Service) outstanding(c *cycle.Cycle, index uint64) (*submission.Submission, error) {
	sub, err := s.registry.Get(c.ID, index)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, reverts.Newf(reverts.KindNotOpposing, "no submission %d in cycle %d", index, c.ID)
	}
	if sub.Eliminated {
		return nil, reverts.Newf(reverts.KindNotOpposing, "submission %d already eliminated", index)
	}
	return sub, nil
}

// Invalidate compares two outstanding submissions of the active cycle and eliminates the loser.
// The one with fewer entries loses; equal entries are decided by the oracle, and when both
// claims are invalid the later submission loses. The backers of the loser are slashed and unlocked.
func (s *Service) Invalidate(a, b, now uint64) (*Elimination, error) {
	c, err := s.cycles.Active()
	if err != nil {
		return nil, err
	}
	if c.IsWindowOpen(now) {
		return nil, reverts.Newf(reverts.KindWindowStillOpen, "window of cycle %d ends at %d", c.ID, c.WindowEnd)
	}
	if c.Survivors() == 1 {
		for _, i := range []uint64{a, b} {
			if sub, err := s.registry.Get(c.ID, i); err != nil {
				return nil, err
			} else if sub != nil && !sub.Eliminated {
				return nil, reverts.Newf(reverts.KindOnlySurvivorCannotBeEliminated, "submission %d", i)
			}
		}
	}
	if a == b {
		return nil, reverts.Newf(reverts.KindNotOpposing, "submission %d against itself", a)
	}
	if a > b {
		a, b = b, a
	}
	lo, err := s.outstanding(c, a)
	if err != nil {
		return nil, err
	}
	hi, err := s.outstanding(c, b)
	if err != nil {
		return nil, err
	}

	winner, loser := lo, hi
	byVote := true
	switch {
	case lo.Entries() < hi.Entries():
		winner, loser = hi, lo
	case lo.Entries() == hi.Entries():
		byVote = false
		for _, sub := range []*submission.Submission{lo, hi} {
			if err := s.registry.Rejudge(c.ID, sub); err != nil {
				return nil, err
			}
		}
		loserIsLo, resolved := oracle.Compare(lo.Verdict, hi.Verdict)
		if !resolved {
			return nil, reverts.Newf(reverts.KindUnresolvable, "submission %d is %v, %d is %v", lo.Index, lo.Verdict, hi.Index, hi.Verdict)
		}
		if loserIsLo {
			winner, loser = hi, lo
		}
	}

	loser.Eliminated = true
	if err := s.registry.Set(c.ID, loser); err != nil {
		return nil, err
	}
	c.NEliminated++
	c.Status = cycle.StatusDisputing
	if err := s.cycles.Set(c); err != nil {
		return nil, err
	}
	punished, err := s.settlement.Punish(c.ID, loser)
	if err != nil {
		return nil, err
	}
	// the loser's backers have nothing outstanding left in this cycle
	if err := s.settlement.Unlock([]*submission.Submission{loser}); err != nil {
		return nil, err
	}
	e := &Elimination{
		CycleID:  c.ID,
		Winner:   winner.Index,
		Loser:    loser.Index,
		ByVote:   byVote,
		At:       now,
		Punished: punished,
	}
	if err := s.eliminations.Set(eliminationKey(c.ID, loser.Index), e); err != nil {
		return nil, errors.Wrap(err, "failed to set elimination")
	}
	return e, nil
}

// Confirm settles the active cycle with the sole survivor at index, sets the canonical root and
// opens the next cycle.
func (s *Service) Confirm(index, now uint64) (*Confirmation, error) {
	c, err := s.cycles.Active()
	if err != nil {
		return nil, err
	}
	if c.NSubmissions == 0 {
		return nil, reverts.Newf(reverts.KindNoSubmissions, "cycle %d", c.ID)
	}
	if c.IsWindowOpen(now) {
		return nil, reverts.Newf(reverts.KindWindowStillOpen, "window of cycle %d ends at %d", c.ID, c.WindowEnd)
	}
	if c.Survivors() > 1 {
		return nil, reverts.Newf(reverts.KindMultipleCandidatesRemain, "%d candidates remain", c.Survivors())
	}

	subs, err := s.registry.All(c.ID)
	if err != nil {
		return nil, err
	}
	if index >= uint64(len(subs)) || subs[index].Eliminated {
		return nil, reverts.Newf(reverts.KindMultipleCandidatesRemain, "submission %d is not the survivor", index)
	}
	winner := subs[index]

	rewarded, err := s.settlement.Reward(c.ID, winner)
	if err != nil {
		return nil, err
	}
	var punished []rep.Address
	for _, sub := range subs {
		if sub.Index == winner.Index {
			continue
		}
		p, err := s.settlement.Punish(c.ID, sub)
		if err != nil {
			return nil, err
		}
		punished = append(punished, p...)
	}
	if err := s.settlement.Unlock(subs); err != nil {
		return nil, err
	}

	if err := s.cycles.SetRoot(&cycle.Root{Hash: winner.Hash, NodeCount: winner.NodeCount, CycleID: c.ID}); err != nil {
		return nil, err
	}
	c.Status = cycle.StatusConfirmed
	c.HasWinner = true
	c.WinnerIndex = winner.Index
	c.ConfirmedAt = now
	if err := s.cycles.Set(c); err != nil {
		return nil, err
	}
	next, err := s.cycles.Open(now, s.window)
	if err != nil {
		return nil, err
	}
	return &Confirmation{
		CycleID:   c.ID,
		Winner:    winner,
		Rewarded:  rewarded,
		Punished:  punished,
		NextCycle: next,
	}, nil
}

// Close ends an active cycle that received no submissions by the end of its window. The root is
// left unchanged.
func (s *Service) Close(now uint64) (closed *cycle.Cycle, next *cycle.Cycle, err error) {
	c, err := s.cycles.Active()
	if err != nil {
		return nil, nil, err
	}
	if c.NSubmissions != 0 {
		return nil, nil, errors.Errorf("cycle %d has submissions", c.ID)
	}
	if c.IsWindowOpen(now) {
		return nil, nil, reverts.Newf(reverts.KindWindowStillOpen, "window of cycle %d ends at %d", c.ID, c.WindowEnd)
	}
	c.Status = cycle.StatusConfirmed
	c.ConfirmedAt = now
	if err := s.cycles.Set(c); err != nil {
		return nil, nil, err
	}
	next, err = s.cycles.Open(now, s.window)
	if err != nil {
		return nil, nil, err
	}
	return c, next, nil
}
