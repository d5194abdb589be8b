// Package alerts is the append-only feed of structured security and
// transaction events shown to the account holder. The feed is a pure
// observer: nothing reads it to make ledger decisions.
package alerts

import (
	"sync"
	"time"
)

// Type classifies an alert for display.
type Type string

const (
	TypeSuccess Type = "success"
	TypeWarning Type = "warning"
	TypeError   Type = "error"
	TypeInfo    Type = "info"
)

// Alert is one feed entry.
type Alert struct {
	Type      Type      `json:"type"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

const defaultCapacity = 50

// Feed is a bounded rolling window of alerts, newest first. When the window
// is full the oldest entry is dropped, keeping memory bounded for long-lived
// sessions.
type Feed struct {
	mu       sync.RWMutex
	entries  []Alert
	capacity int
	now      func() time.Time
}

// NewFeed creates a feed holding at most capacity alerts. Non-positive
// capacity falls back to the default.
func NewFeed(capacity int) *Feed {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Feed{capacity: capacity, now: time.Now}
}

// Publish appends an alert, evicting the oldest when the window is full.
func (f *Feed) Publish(typ Type, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	entry := Alert{Type: typ, Message: message, Timestamp: f.now().UTC()}
	f.entries = append([]Alert{entry}, f.entries...)
	if len(f.entries) > f.capacity {
		f.entries = f.entries[:f.capacity]
	}
}

// List returns the alerts newest-first.
func (f *Feed) List() []Alert {
	f.mu.RLock()
	defer f.mu.RUnlock()
	out := make([]Alert, len(f.entries))
	copy(out, f.entries)
	return out
}

// Hub holds one Feed per account. Alerts carry account-private detail
// (freeze reasons, amounts, recipients), so each account only ever reads
// its own feed.
type Hub struct {
	mu       sync.Mutex
	feeds    map[string]*Feed
	capacity int
}

// NewHub creates a hub whose per-account feeds hold at most capacity
// alerts each. Non-positive capacity falls back to the default.
func NewHub(capacity int) *Hub {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &Hub{feeds: make(map[string]*Feed), capacity: capacity}
}

func (h *Hub) feed(accountID string) *Feed {
	h.mu.Lock()
	defer h.mu.Unlock()
	f, ok := h.feeds[accountID]
	if !ok {
		f = NewFeed(h.capacity)
		h.feeds[accountID] = f
	}
	return f
}

// Publish appends an alert to the account's feed.
func (h *Hub) Publish(accountID string, typ Type, message string) {
	h.feed(accountID).Publish(typ, message)
}

// List returns the account's alerts newest-first. An account that never
// received an alert gets an empty list.
func (h *Hub) List(accountID string) []Alert {
	return h.feed(accountID).List()
}
