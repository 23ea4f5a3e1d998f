package ratelimit

import (
	"context"
	"sync"
	"time"
)

const (
	DefaultMax    = 60
	DefaultWindow = time.Hour
)

// Decision is the outcome of counting one request against a key's window.
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

type window struct {
	count int
	reset time.Time
}

// Memory is a fixed-window counter per key, local to this process.
type Memory struct {
	max    int
	window time.Duration
	now    func() time.Time

	mu        sync.Mutex
	windows   map[string]*window
	lastPrune time.Time
}

func NewMemory(max int, win time.Duration) *Memory {
	if max <= 0 {
		max = DefaultMax
	}
	if win <= 0 {
		win = DefaultWindow
	}
	return &Memory{
		max:     max,
		window:  win,
		now:     func() time.Time { return time.Now().UTC() },
		windows: make(map[string]*window),
	}
}

func (m *Memory) Allow(_ context.Context, key string) (Decision, error) {
	now := m.now()

	m.mu.Lock()
	defer m.mu.Unlock()

	m.prune(now)

	w, ok := m.windows[key]
	if !ok || !now.Before(w.reset) {
		w = &window{reset: now.Add(m.window)}
		m.windows[key] = w
	}
	if w.count >= m.max {
		return Decision{Allowed: false, RetryAfter: w.reset.Sub(now)}, nil
	}
	w.count++
	return Decision{Allowed: true, Remaining: m.max - w.count}, nil
}

// prune drops expired windows at most once per window length.
func (m *Memory) prune(now time.Time) {
	if now.Sub(m.lastPrune) < m.window {
		return
	}
	for key, w := range m.windows {
		if !now.Before(w.reset) {
			delete(m.windows, key)
		}
	}
	m.lastPrune = now
}

func (m *Memory) size() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.windows)
}
