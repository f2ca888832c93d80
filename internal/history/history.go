// Package history keeps the rolling list of recently emitted orders.
package history

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"ordernotify/internal/order"
	"ordernotify/internal/storage"
	logx "ordernotify/pkg/logx"
)

const (
	// Key is the storage key of the history document.
	Key = "notification-history"
	// Capacity is the maximum number of retained orders.
	Capacity = 20
)

// Log is a newest-first, capacity-bounded order list mirrored to storage.
type Log struct {
	kv  storage.Store
	log logx.Logger

	mu      sync.RWMutex
	entries []order.Order
}

func New(kv storage.Store, log logx.Logger) *Log {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Log{kv: kv, log: log}
}

// Load replaces the in-memory list with the persisted one. A missing or
// malformed document leaves the log empty.
func (l *Log) Load(ctx context.Context) ([]order.Order, error) {
	raw, ok, err := l.kv.Get(ctx, Key)
	if err != nil {
		return l.Recent(0), fmt.Errorf("load history: %w", err)
	}
	var entries []order.Order
	if ok {
		if err := json.Unmarshal([]byte(raw), &entries); err != nil {
			l.log.Warn("history document malformed; starting empty", logx.Err(err))
			entries = nil
		}
	}
	if len(entries) > Capacity {
		entries = entries[:Capacity]
	}
	l.mu.Lock()
	l.entries = entries
	l.mu.Unlock()
	return l.Recent(0), nil
}

// Append records o as the newest entry, evicting the oldest beyond Capacity,
// and persists the list. The in-memory list is updated even when persisting
// fails.
func (l *Log) Append(ctx context.Context, o order.Order) error {
	l.mu.Lock()
	keep := l.entries
	if len(keep) > Capacity-1 {
		keep = keep[:Capacity-1]
	}
	next := make([]order.Order, 0, len(keep)+1)
	next = append(next, o)
	next = append(next, keep...)
	l.entries = next
	b, err := json.Marshal(next)
	l.mu.Unlock()

	if err != nil {
		return fmt.Errorf("encode history: %w", err)
	}
	if err := l.kv.Set(ctx, Key, string(b)); err != nil {
		return fmt.Errorf("save history: %w", err)
	}
	return nil
}

// Recent returns up to n newest entries; n <= 0 returns all of them.
func (l *Log) Recent(n int) []order.Order {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if n <= 0 || n > len(l.entries) {
		n = len(l.entries)
	}
	out := make([]order.Order, n)
	copy(out, l.entries[:n])
	return out
}

// Len returns the number of retained entries.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.entries)
}
