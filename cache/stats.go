// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package cache

import "sync/atomic"

// Stats counts the lookups of a cache.
type Stats struct {
	hit, miss atomic.Int64
	reported  atomic.Int64 // hit rate at the previous Stats call
}

func (s *Stats) Hit()  { s.hit.Add(1) }
func (s *Stats) Miss() { s.miss.Add(1) }

func hitRate(hit, miss int64) int64 {
	if hit+miss == 0 {
		return 0
	}
	return hit * 1000 / (hit + miss)
}

// HitRate returns hits per thousand lookups.
func (s *Stats) HitRate() int64 {
	return hitRate(s.hit.Load(), s.miss.Load())
}

// Stats returns the counters. changed reports whether the hit rate moved since the previous call.
func (s *Stats) Stats() (changed bool, hit, miss int64) {
	hit, miss = s.hit.Load(), s.miss.Load()
	rate := hitRate(hit, miss)
	return s.reported.Swap(rate) != rate, hit, miss
}
