// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package mining

import (
	"math/big"

	"github.com/repmine/repmine/metrics"
	"github.com/repmine/repmine/rep"
)

var (
	metricOps               = metrics.LazyLoadCounterVec("mining_ops_count", []string{"op", "result"})
	metricSubmissions       = metrics.LazyLoadCounterVec("mining_submissions_count", []string{"kind"})
	metricEliminations      = metrics.LazyLoadCounterVec("mining_eliminations_count", []string{"by"})
	metricConfirmations     = metrics.LazyLoadCounter("mining_confirmations_count")
	metricSlashedTokens     = metrics.LazyLoadCounter("mining_slashed_tokens_count")
	metricRewardedTokens    = metrics.LazyLoadCounter("mining_rewarded_tokens_count")
	metricLogLength         = metrics.LazyLoadGauge("mining_replog_length")
	metricActiveCycle       = metrics.LazyLoadGauge("mining_active_cycle")
	metricStalled           = metrics.LazyLoadGauge("mining_stalled_cycle")
	metricOpDuration        = metrics.LazyLoadHistogram("mining_op_duration_ms", metrics.BucketOpMillis)
	metricEntryCacheHitRate = metrics.LazyLoadGauge("mining_entry_cache_hit_permille")
	metricCandidates        = metrics.LazyLoadGaugeVec("mining_cycle_candidates", []string{"state"})
)

func recordOp(op string, err error) {
	result := "ok"
	if err != nil {
		result = "fail"
	}
	metricOps().AddWithLabel(1, map[string]string{"op": op, "result": result})
}

// wholeTokens converts an amount to whole tokens for counters.
func wholeTokens(amount *big.Int) int64 {
	if amount == nil {
		return 0
	}
	return new(big.Int).Quo(amount, rep.Unit).Int64()
}
