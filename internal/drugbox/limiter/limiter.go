// Package limiter counts fingerprint mismatches per RFID and reports when a
// card is locked out. A key stays counted until Window passes without a new
// failure, or until Reset.
package limiter

import (
	"context"
	"sync"
	"time"
)

type Config struct {
	MaxFailures int           // 0 disables locking
	Window      time.Duration // defaults to 15m
}

func (c Config) withDefaults() Config {
	if c.Window <= 0 {
		c.Window = 15 * time.Minute
	}
	return c
}

type entry struct {
	failures int64
	expires  time.Time
}

// Memory is a process-local limiter. Counts are lost on restart and not
// shared between replicas; use Redis for that.
type Memory struct {
	cfg Config
	now func() time.Time

	mu      sync.Mutex
	entries map[string]entry
}

func NewMemory(cfg Config) *Memory {
	return &Memory{
		cfg:     cfg.withDefaults(),
		now:     time.Now,
		entries: make(map[string]entry),
	}
}

func (m *Memory) Locked(_ context.Context, key string) (bool, error) {
	if m.cfg.MaxFailures <= 0 {
		return false, nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.live(key)
	return ok && e.failures >= int64(m.cfg.MaxFailures), nil
}

func (m *Memory) Fail(_ context.Context, key string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, _ := m.live(key)
	e.failures++
	e.expires = m.now().Add(m.cfg.Window)
	m.entries[key] = e
	return e.failures, nil
}

func (m *Memory) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	delete(m.entries, key)
	m.mu.Unlock()
	return nil
}

// live returns the entry for key, dropping it if expired. Caller holds mu.
func (m *Memory) live(key string) (entry, bool) {
	e, ok := m.entries[key]
	if !ok {
		return entry{}, false
	}
	if !m.now().Before(e.expires) {
		delete(m.entries, key)
		return entry{}, false
	}
	return e, true
}
