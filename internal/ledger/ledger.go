// Package ledger defines the persistence boundary for transactions, categories
// and user settings.
package ledger

import (
	"context"

	"fintrack/internal/core"
)

// Ledger is a user's collection of transactions.
type Ledger interface {
	// FindAllByOwner returns every transaction of owner ordered by date, then ID.
	FindAllByOwner(ctx context.Context, owner string) ([]core.Transaction, error)
	// SaveAll upserts by ID.
	SaveAll(ctx context.Context, txs []core.Transaction) error
	Get(ctx context.Context, id string) (core.Transaction, error)
	Create(ctx context.Context, tx core.Transaction) (core.Transaction, error)
	Delete(ctx context.Context, id string) error
}

// SettingsStore persists one UserSettings row per user.
type SettingsStore interface {
	// GetSettings returns a core.ErrNotFound error when the user has no row.
	GetSettings(ctx context.Context, owner string) (core.UserSettings, error)
	SaveSettings(ctx context.Context, s core.UserSettings) error
}

type CategoryStore interface {
	ListCategories(ctx context.Context, owner string) ([]core.Category, error)
	GetCategory(ctx context.Context, id string) (core.Category, error)
	CreateCategory(ctx context.Context, c core.Category) (core.Category, error)
}

// Tx is the view of the store inside a unit of work.
type Tx interface {
	Ledger
	SettingsStore
	CategoryStore
}

// Store is the full persistence boundary. Writes made inside InTx are
// committed together when fn returns nil and discarded otherwise.
type Store interface {
	Tx
	InTx(ctx context.Context, fn func(Tx) error) error
	Close() error
}

// Reasons for a ledger change event.
const (
	ReasonCurrencyChanged    = "currency_changed"
	ReasonTransactionCreated = "transaction_created"
	ReasonTransactionUpdated = "transaction_updated"
	ReasonTransactionDeleted = "transaction_deleted"
)

// Publisher announces committed ledger changes. Delivery is best-effort.
type Publisher interface {
	PublishLedgerChanged(ctx context.Context, owner, reason string, count int) error
}
