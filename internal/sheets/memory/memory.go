package memory

import (
	"context"
	"sync"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

// Mirror keeps rendered tabs in memory. Used when no spreadsheet is configured.
type Mirror struct {
	mu     sync.Mutex
	tabs   map[string][][]string
	writes int
}

var _ ports.LedgerMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{tabs: make(map[string][][]string)}
}

func (m *Mirror) WriteLedger(_ context.Context, userID string, txs []core.Transaction) (int, error) {
	rows := ports.Rows(txs)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tabs[userID] = rows
	m.writes++
	return len(txs), nil
}

// Tab returns a copy of the rows last written for userID.
func (m *Mirror) Tab(userID string) [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.tabs[userID]
	out := make([][]string, len(rows))
	for i, r := range rows {
		out[i] = append([]string(nil), r...)
	}
	return out
}

// Writes counts WriteLedger calls.
func (m *Mirror) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}
