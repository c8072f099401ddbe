// Package sheets mirrors a user's ledger into a spreadsheet tab.
package sheets

import (
	"context"
	"time"

	"fintrack/internal/core"
)

// LedgerMirror replaces the mirrored copy of one user's ledger.
type LedgerMirror interface {
	WriteLedger(ctx context.Context, userID string, txs []core.Transaction) (rows int, err error)
}

// Header is the first row of every mirrored tab.
var Header = []string{"Date", "Description", "Type", "Category", "Amount", "Currency", "ID"}

// Rows renders txs as spreadsheet rows, header first. Amounts keep two decimals
// and dates keep their stored offset.
func Rows(txs []core.Transaction) [][]string {
	out := make([][]string, 0, len(txs)+1)
	out = append(out, Header)
	for _, t := range txs {
		out = append(out, []string{
			t.Date.Format(time.RFC3339),
			t.Description,
			string(t.Type),
			t.CategoryName(),
			t.Amount.StringFixed(core.AmountScale),
			t.Currency,
			t.ID,
		})
	}
	return out
}
