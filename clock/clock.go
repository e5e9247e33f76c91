// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package clock provides the time source that drives submission windows.
package clock

import (
	"sync"
	"time"

	"github.com/beevik/ntp"
	"github.com/pkg/errors"

	"github.com/repmine/repmine/log"
)

var logger = log.WithContext("pkg", "clock")

// Clock returns the current time.
type Clock interface {
	Now() time.Time
}

// System is the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Mock is a manually driven clock for tests and simulations.
type Mock struct {
	mu  sync.Mutex
	now time.Time
}

// NewMock returns a mock clock set to now.
func NewMock(now time.Time) *Mock {
	return &Mock{now: now}
}

func (m *Mock) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Set moves the clock to t.
func (m *Mock) Set(t time.Time) {
	m.mu.Lock()
	m.now = t
	m.mu.Unlock()
}

// Advance moves the clock forward by d.
func (m *Mock) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// QueryFunc returns the offset of the local clock against a reference server.
type QueryFunc func(server string) (time.Duration, error)

// NTPQuery queries server over NTP.
func NTPQuery(server string) (time.Duration, error) {
	resp, err := ntp.Query(server)
	if err != nil {
		return 0, errors.Wrap(err, "query ntp")
	}
	return resp.ClockOffset, nil
}

// CheckOffset compares the local clock with server and warns when the offset exceeds tolerance.
// Window boundaries are evaluated against the local clock, so a drifting host may accept or
// reject submissions early.
func CheckOffset(query QueryFunc, server string, tolerance time.Duration) (time.Duration, error) {
	offset, err := query(server)
	if err != nil {
		logger.Debug("failed to access NTP", "err", err)
		return 0, err
	}
	if offset > tolerance || offset < -tolerance {
		logger.Warn("clock offset detected", "offset", offset, "tolerance", tolerance)
	}
	return offset, nil
}
