package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	_ "modernc.org/sqlite"
)

type SQLiteRepository struct {
	*repo
	db *sql.DB
}

var _ ledger.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; units of work hold the connection until commit.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		repo: &repo{q: New(db)},
		db:   db,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

// InTx runs fn inside a database transaction.
func (r *SQLiteRepository) InTx(ctx context.Context, fn func(ledger.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(&repo{q: r.repo.q.WithTx(tx)}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// SaveAll writes the batch in its own transaction when called outside InTx.
func (r *SQLiteRepository) SaveAll(ctx context.Context, txs []core.Transaction) error {
	return r.InTx(ctx, func(tx ledger.Tx) error { return tx.SaveAll(ctx, txs) })
}

// repo implements ledger.Tx on top of a Queries bound to a DB or a Tx.
type repo struct {
	q *Queries
}

func (r *repo) FindAllByOwner(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := r.q.ListTransactionsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toTransaction(row)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *repo) SaveAll(ctx context.Context, txs []core.Transaction) error {
	for _, t := range txs {
		if err := r.q.UpsertTransaction(ctx, toUpsertParams(t)); err != nil {
			return fmt.Errorf("save transaction %s: %w", t.ID, err)
		}
	}
	slog.DebugContext(ctx, "Transactions saved", "count", len(txs))
	return nil
}

func (r *repo) Get(ctx context.Context, id string) (core.Transaction, error) {
	row, err := r.q.GetTransaction(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Transaction{}, core.NotFound("transaction not found")
	}
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return toTransaction(row)
}

func (r *repo) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	if err := r.q.UpsertTransaction(ctx, toUpsertParams(t)); err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	slog.InfoContext(ctx, "Transaction saved to SQLite",
		"id", t.ID,
		"amount", t.Amount.String(),
		"currency", t.Currency,
		"type", string(t.Type))
	return r.Get(ctx, t.ID)
}

func (r *repo) Delete(ctx context.Context, id string) error {
	n, err := r.q.DeleteTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if n == 0 {
		return core.NotFound("transaction not found")
	}
	return nil
}

func (r *repo) GetSettings(ctx context.Context, owner string) (core.UserSettings, error) {
	row, err := r.q.GetUserSettings(ctx, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return core.UserSettings{}, core.NotFound("settings not found")
	}
	if err != nil {
		return core.UserSettings{}, fmt.Errorf("get settings: %w", err)
	}
	return core.UserSettings{
		UserID:   row.UserID,
		Currency: row.Currency,
		Language: row.Language,
		Theme:    row.Theme,
		IsRTL:    row.IsRtl,
	}, nil
}

func (r *repo) SaveSettings(ctx context.Context, s core.UserSettings) error {
	err := r.q.UpsertUserSettings(ctx, UserSettingsRow{
		UserID:   s.UserID,
		Currency: s.Currency,
		Language: s.Language,
		Theme:    s.Theme,
		IsRtl:    s.IsRTL,
	})
	if err != nil {
		return fmt.Errorf("save settings: %w", err)
	}
	return nil
}

func (r *repo) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	rows, err := r.q.ListCategoriesByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	out := make([]core.Category, 0, len(rows))
	for _, row := range rows {
		out = append(out, toCategory(row))
	}
	return out, nil
}

func (r *repo) GetCategory(ctx context.Context, id string) (core.Category, error) {
	row, err := r.q.GetCategory(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Category{}, core.NotFound("category not found")
	}
	if err != nil {
		return core.Category{}, fmt.Errorf("get category: %w", err)
	}
	return toCategory(row), nil
}

func (r *repo) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	err := r.q.CreateCategory(ctx, CategoryRow{
		ID:      c.ID,
		OwnerID: c.OwnerID,
		Name:    c.Name,
		Icon:    c.Icon,
		Color:   c.Color,
		Type:    string(c.Type),
	})
	if err != nil {
		return core.Category{}, fmt.Errorf("create category: %w", err)
	}
	return c, nil
}

func toUpsertParams(t core.Transaction) UpsertTransactionParams {
	p := UpsertTransactionParams{
		ID:           t.ID,
		OwnerID:      t.OwnerID,
		OccurredAt:   t.Date.Format(time.RFC3339Nano),
		OccurredUnix: t.Date.Unix(),
		Description:  t.Description,
		Amount:       t.Amount.StringFixed(core.AmountScale),
		Currency:     t.Currency,
		Type:         string(t.Type),
	}
	if t.Category != nil && t.Category.ID != "" {
		p.CategoryID = sql.NullString{String: t.Category.ID, Valid: true}
	}
	return p
}

func toTransaction(row TransactionRow) (core.Transaction, error) {
	date, err := time.Parse(time.RFC3339Nano, row.OccurredAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse date of transaction %s: %w", row.ID, err)
	}
	amount, err := decimal.NewFromString(row.Amount)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("parse amount of transaction %s: %w", row.ID, err)
	}
	t := core.Transaction{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Date:        date,
		Description: row.Description,
		Amount:      amount,
		Currency:    row.Currency,
		Type:        core.TransactionType(row.Type),
	}
	if row.CategoryID.Valid && row.CategoryName.Valid {
		t.Category = &core.Category{
			ID:      row.CategoryID.String,
			OwnerID: row.OwnerID,
			Name:    row.CategoryName.String,
			Icon:    row.CategoryIcon.String,
			Color:   row.CategoryColor.String,
			Type:    core.TransactionType(row.CategoryType.String),
		}
	}
	return t, nil
}

func toCategory(row CategoryRow) core.Category {
	return core.Category{
		ID:      row.ID,
		OwnerID: row.OwnerID,
		Name:    row.Name,
		Icon:    row.Icon,
		Color:   row.Color,
		Type:    core.TransactionType(row.Type),
	}
}
