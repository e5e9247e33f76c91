// Copyright (c) 2026 The repmine developers
//
// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package admin

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/repmine/repmine/mining/replog"
	"github.com/repmine/repmine/rep"
)

const (
	feedBuffer   = 64
	pingInterval = 20 * time.Second
	writeTimeout = 10 * time.Second
)

// EntryMessage is a committed log entry as sent to subscribers.
type EntryMessage struct {
	Index            uint64      `json:"index"`
	Principal        rep.Address `json:"principal"`
	Amount           string      `json:"amount"`
	SkillID          uint64      `json:"skillID"`
	Origin           rep.Address `json:"origin"`
	NUpdates         uint64      `json:"nUpdates"`
	NPreviousUpdates uint64      `json:"nPreviousUpdates"`
	CycleID          uint64      `json:"cycleID"`
}

func newEntryMessage(index uint64, e *replog.Entry) *EntryMessage {
	amount := "0"
	if e.Amount != nil {
		amount = e.Amount.String()
	}
	return &EntryMessage{
		Index:            index,
		Principal:        e.Principal,
		Amount:           amount,
		SkillID:          e.SkillID,
		Origin:           e.Origin,
		NUpdates:         e.NUpdates,
		NPreviousUpdates: e.NPreviousUpdates,
		CycleID:          e.CycleID,
	}
}

// Feed fans committed log entries out to websocket subscribers. Slow subscribers miss messages.
type Feed struct {
	mu   sync.Mutex
	subs map[chan *EntryMessage]struct{}
}

func NewFeed() *Feed {
	return &Feed{subs: make(map[chan *EntryMessage]struct{})}
}

// IndexEntries publishes entries starting at index first.
func (f *Feed) IndexEntries(first uint64, entries []*replog.Entry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for i, e := range entries {
		msg := newEntryMessage(first+uint64(i), e)
		for ch := range f.subs {
			select {
			case ch <- msg:
			default:
				logger.Debug("subscriber too slow, entry dropped", "index", msg.Index)
			}
		}
	}
	return nil
}

// Subscribe returns a channel of new entries and the function to stop receiving them.
func (f *Feed) Subscribe() (<-chan *EntryMessage, func()) {
	ch := make(chan *EntryMessage, feedBuffer)
	f.mu.Lock()
	f.subs[ch] = struct{}{}
	f.mu.Unlock()
	return ch, func() {
		f.mu.Lock()
		delete(f.subs, ch)
		f.mu.Unlock()
	}
}

func (f *Feed) handleSubscribe(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logger.Debug("websocket upgrade failed", "err", err)
		return
	}
	defer conn.Close()

	entries, unsubscribe := f.Subscribe()
	defer unsubscribe()

	// drain the read side so close frames are noticed
	closed := make(chan struct{})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-closed:
			return
		case <-r.Context().Done():
			return
		case msg := <-entries:
			conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := conn.WriteJSON(msg); err != nil {
				logger.Debug("failed to write entry", "err", err)
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeTimeout)); err != nil {
				return
			}
		}
	}
}
