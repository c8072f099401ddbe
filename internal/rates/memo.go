package rates

import (
	"context"
	"strings"
	"sync"

	"fintrack/internal/core"
)

// Memo remembers snapshots for the lifetime of one bulk operation. The spot
// rate is treated as constant within that operation; a Memo must not outlive it.
type Memo struct {
	next  Provider
	mu    sync.Mutex
	snaps map[string]core.RateSnapshot
	calls int
}

// NewMemo wraps next for a single pass.
func NewMemo(next Provider) *Memo {
	return &Memo{next: next, snaps: make(map[string]core.RateSnapshot)}
}

func (m *Memo) Latest(ctx context.Context, base string) (core.RateSnapshot, error) {
	key := strings.ToUpper(base)

	m.mu.Lock()
	if snap, ok := m.snaps[key]; ok {
		m.mu.Unlock()
		return snap, nil
	}
	m.mu.Unlock()

	snap, err := m.next.Latest(ctx, key)
	if err != nil {
		return core.RateSnapshot{}, err
	}

	m.mu.Lock()
	m.snaps[key] = snap
	m.calls++
	m.mu.Unlock()
	return snap, nil
}

// Fetches returns how many lookups reached the wrapped provider.
func (m *Memo) Fetches() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
