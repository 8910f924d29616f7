// Package lock provides per-key mutual exclusion for the settlement engine.
// Every mutating operation acquires the key for its primary entity before
// reading the value it intends to change; the store itself offers no
// multi-key transactions.
package lock

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeout is how long a waiter blocks on a busy key before the stale
// holder is evicted. Eviction favors liveness over strict mutual exclusion:
// a hung operation must not block its key forever. The evicted holder's
// eventual release is discarded via a generation counter.
const DefaultTimeout = 5 * time.Second

type entry struct {
	ch   chan struct{} // capacity 1; a token in the channel means unlocked
	refs int
	gen  uint64
}

// Manager serializes callers per opaque string key. Waiters on the same key
// are woken in arrival order.
type Manager struct {
	mu      sync.Mutex
	entries map[string]*entry
	timeout time.Duration
	logger  *slog.Logger
}

func NewManager(logger *slog.Logger) *Manager {
	return NewManagerTimeout(logger, DefaultTimeout)
}

func NewManagerTimeout(logger *slog.Logger, timeout time.Duration) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		entries: make(map[string]*entry),
		timeout: timeout,
		logger:  logger,
	}
}

type heldKeysCtx struct{}

// heldKeys returns the set of keys already held by this call chain.
func heldKeys(ctx context.Context) map[string]struct{} {
	keys, _ := ctx.Value(heldKeysCtx{}).(map[string]struct{})
	return keys
}

// WithLock runs fn while holding key. The lock is released when fn returns,
// whether or not it errors or panics. If the key stays busy past the
// manager's timeout the stale entry is forcibly evicted and this caller
// proceeds.
//
// WithLock is re-entrant per context: a nested acquisition of a key the
// surrounding call already holds runs fn directly. A booking status
// transition and the ledger settlement it triggers share the booking key
// this way.
func (m *Manager) WithLock(ctx context.Context, key string, fn func(ctx context.Context) error) error {
	held := heldKeys(ctx)
	if _, ok := held[key]; ok {
		return fn(ctx)
	}

	m.mu.Lock()
	e, ok := m.entries[key]
	if !ok {
		e = &entry{ch: make(chan struct{}, 1)}
		e.ch <- struct{}{}
		m.entries[key] = e
	}
	e.refs++
	m.mu.Unlock()

	timer := time.NewTimer(m.timeout)
	defer timer.Stop()

	select {
	case <-e.ch:
	case <-timer.C:
		m.logger.Warn("evicting stale lock", "key", key, "timeout", m.timeout)
	case <-ctx.Done():
		m.release(key, e, 0, false)
		return ctx.Err()
	}

	m.mu.Lock()
	e.gen++
	myGen := e.gen
	m.mu.Unlock()

	nested := make(map[string]struct{}, len(held)+1)
	for k := range held {
		nested[k] = struct{}{}
	}
	nested[key] = struct{}{}

	defer m.release(key, e, myGen, true)
	return fn(context.WithValue(ctx, heldKeysCtx{}, nested))
}

// release returns the token if this caller is still the current holder and
// drops the entry once nobody references the key.
func (m *Manager) release(key string, e *entry, gen uint64, held bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if held && e.gen == gen {
		select {
		case e.ch <- struct{}{}:
		default:
		}
	}
	e.refs--
	if e.refs == 0 {
		delete(m.entries, key)
	}
}
