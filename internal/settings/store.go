package settings

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"ordernotify/internal/storage"
	logx "ordernotify/pkg/logx"
)

// Key is the storage key of the settings document.
const Key = "shopify-notification-settings"

// Store loads and saves Settings through a storage.Store and keeps the last
// accepted value in memory.
type Store struct {
	kv       storage.Store
	log      logx.Logger
	defaults Settings

	mu  sync.RWMutex
	cur Settings
}

// NewStore returns a Store whose current value is defaults until Load runs.
func NewStore(kv storage.Store, defaults Settings, log logx.Logger) *Store {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Store{kv: kv, log: log, defaults: defaults.Clone(), cur: defaults.Clone()}
}

// Load reads the persisted settings. Missing fields take their default value;
// a missing or unreadable document yields the defaults.
func (s *Store) Load(ctx context.Context) (Settings, error) {
	raw, ok, err := s.kv.Get(ctx, Key)
	if err != nil {
		s.log.Warn("settings load failed; using defaults", logx.Err(err))
		return s.Current(), fmt.Errorf("load settings: %w", err)
	}
	out := s.defaults.Clone()
	if ok {
		if err := json.Unmarshal([]byte(raw), &out); err != nil {
			s.log.Warn("settings document malformed; using defaults", logx.Err(err))
			out = s.defaults.Clone()
		} else if verr := Validate(out); verr != nil {
			s.log.Warn("stored settings invalid; using defaults", logx.Err(verr))
			out = s.defaults.Clone()
		}
	}
	s.mu.Lock()
	s.cur = out
	s.mu.Unlock()
	return out.Clone(), nil
}

// Save validates and encodes next, makes it current and persists it. A
// storage failure still leaves next as the in-memory value; an encode
// failure does not.
func (s *Store) Save(ctx context.Context, next Settings) error {
	if err := Validate(next); err != nil {
		return err
	}
	next = next.Clone()
	b, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}

	s.mu.Lock()
	s.cur = next
	s.mu.Unlock()

	if err := s.kv.Set(ctx, Key, string(b)); err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

// Current returns the in-memory settings.
func (s *Store) Current() Settings {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cur.Clone()
}
