// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNoopMetrics(t *testing.T) {
	// the default implementation swallows everything
	noop := defaultNoopMetrics()
	assert.Nil(t, noop.GetOrCreateHandler())
	noop.GetOrCreateCountMeter("x").Add(1)
	noop.GetOrCreateGaugeVecMeter("y", []string{"l"}).SetWithLabel(1, map[string]string{"l": "v"})
	noop.GetOrCreateHistogramMeter("z", nil).Observe(1)
}

func TestPromMetrics(t *testing.T) {
	InitializePrometheusMetrics()
	require.NotNil(t, HTTPHandler())

	Counter("test_count").Add(2)
	Counter("test_count").Add(3)
	CounterVec("test_count_vec", []string{"kind"}).AddWithLabel(4, map[string]string{"kind": "a"})
	Gauge("test_gauge").Set(10)
	Gauge("test_gauge").Add(-3)
	GaugeVec("test_gauge_vec", []string{"kind"}).SetWithLabel(7, map[string]string{"kind": "b"})
	Histogram("test_hist", BucketOpMillis).Observe(3)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	byName := make(map[string]*dto.MetricFamily)
	for _, f := range families {
		byName[f.GetName()] = f
	}

	assert.Equal(t, float64(5), byName["repmine_test_count"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, float64(4), byName["repmine_test_count_vec"].GetMetric()[0].GetCounter().GetValue())
	assert.Equal(t, float64(7), byName["repmine_test_gauge"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, float64(7), byName["repmine_test_gauge_vec"].GetMetric()[0].GetGauge().GetValue())
	assert.Equal(t, uint64(1), byName["repmine_test_hist"].GetMetric()[0].GetHistogram().GetSampleCount())
}

func TestLazyLoad(t *testing.T) {
	calls := 0
	get := LazyLoad(func() int { calls++; return calls })
	assert.Equal(t, 1, get())
	assert.Equal(t, 1, get())
	assert.Equal(t, 1, calls)
}
