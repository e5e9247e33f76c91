// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"time"

	"github.com/repmine/repmine/mining/cycle"
)

// HousekeepResult tells what a housekeeping pass changed.
type HousekeepResult struct {
	Cycle     uint64 // active cycle before the pass
	Disputing bool   // the cycle moved to disputing
	Closed    bool   // the cycle had no submissions and was closed
	Stalled   bool   // the cycle was flagged stalled
	NextCycle uint64 // opened after closing, 0 if none
}

// Housekeep advances the stored state of the active cycle to the current time. An empty cycle is
// closed at the end of its window with the root unchanged. A cycle disputing for longer than
// MaxDisputeDuration is flagged stalled and left for external recovery.
func (n *Network) Housekeep() (res HousekeepResult, err error) {
	defer func() { recordOp("housekeep", err) }()
	n.mu.Lock()
	defer n.mu.Unlock()

	now := n.now()
	var active *cycle.Cycle
	err = n.update(func(o *ops) error {
		c, err := o.cycles.Active()
		if err != nil {
			return err
		}
		res.Cycle = c.ID
		if c.IsWindowOpen(now) {
			active = c
			return nil
		}
		if c.NSubmissions == 0 {
			_, next, err := o.tournament.Close(now)
			if err != nil {
				return err
			}
			res.Closed, res.NextCycle = true, next.ID
			active = next
			return nil
		}
		if c.StatusAt(now) == cycle.StatusDisputing && c.Status != cycle.StatusDisputing {
			c.Status = cycle.StatusDisputing
			res.Disputing = true
		}
		limit := uint64(n.params.MaxDisputeDuration / time.Second)
		if c.Status == cycle.StatusDisputing && !c.Stalled && limit > 0 && now >= c.WindowEnd+limit {
			c.Stalled = true
			res.Stalled = true
		}
		active = c
		if !res.Disputing && !res.Stalled {
			return nil
		}
		return o.cycles.Set(c)
	})
	if err != nil {
		return res, err
	}

	metricActiveCycle().Set(int64(active.ID))
	if active.Stalled {
		metricStalled().Set(1)
	} else {
		metricStalled().Set(0)
	}
	switch {
	case res.Closed:
		logger.Info("closed empty cycle", "cycle", res.Cycle, "next", res.NextCycle)
	case res.Stalled:
		logger.Warn("cycle stalled in dispute, external recovery required",
			"cycle", res.Cycle,
			"survivors", active.Survivors(),
			"since", time.Unix(int64(active.WindowEnd), 0),
		)
	case res.Disputing:
		logger.Info("cycle disputing", "cycle", res.Cycle, "submissions", active.NSubmissions)
	}
	return res, nil
}
