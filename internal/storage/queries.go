package storage

import (
	"context"
	"database/sql"
)

// DBTX is satisfied by both *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(context.Context, string, ...interface{}) (sql.Result, error)
	QueryContext(context.Context, string, ...interface{}) (*sql.Rows, error)
	QueryRowContext(context.Context, string, ...interface{}) *sql.Row
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

type Queries struct {
	db DBTX
}

func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// TransactionRow is a transactions row joined with its category.
type TransactionRow struct {
	ID            string
	OwnerID       string
	OccurredAt    string
	OccurredUnix  int64
	Description   string
	Amount        string
	Currency      string
	Type          string
	CategoryID    sql.NullString
	CategoryName  sql.NullString
	CategoryIcon  sql.NullString
	CategoryColor sql.NullString
	CategoryType  sql.NullString
}

const transactionColumns = `
SELECT t.id, t.owner_id, t.occurred_at, t.occurred_unix, t.description, t.amount, t.currency, t.type,
       t.category_id, c.name, c.icon, c.color, c.type
FROM transactions t
LEFT JOIN categories c ON c.id = t.category_id
`

func scanTransaction(sc interface{ Scan(...any) error }) (TransactionRow, error) {
	var i TransactionRow
	err := sc.Scan(
		&i.ID,
		&i.OwnerID,
		&i.OccurredAt,
		&i.OccurredUnix,
		&i.Description,
		&i.Amount,
		&i.Currency,
		&i.Type,
		&i.CategoryID,
		&i.CategoryName,
		&i.CategoryIcon,
		&i.CategoryColor,
		&i.CategoryType,
	)
	return i, err
}

const listTransactionsByOwner = transactionColumns + `
WHERE t.owner_id = ?
ORDER BY t.occurred_unix, t.id
`

func (q *Queries) ListTransactionsByOwner(ctx context.Context, ownerID string) ([]TransactionRow, error) {
	rows, err := q.db.QueryContext(ctx, listTransactionsByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []TransactionRow
	for rows.Next() {
		i, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getTransaction = transactionColumns + `
WHERE t.id = ?
`

func (q *Queries) GetTransaction(ctx context.Context, id string) (TransactionRow, error) {
	row := q.db.QueryRowContext(ctx, getTransaction, id)
	return scanTransaction(row)
}

const upsertTransaction = `
INSERT INTO transactions (id, owner_id, occurred_at, occurred_unix, description, amount, currency, type, category_id)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    occurred_at   = excluded.occurred_at,
    occurred_unix = excluded.occurred_unix,
    description   = excluded.description,
    amount        = excluded.amount,
    currency      = excluded.currency,
    type          = excluded.type,
    category_id   = excluded.category_id,
    updated_at    = CURRENT_TIMESTAMP
WHERE transactions.owner_id = excluded.owner_id
`

type UpsertTransactionParams struct {
	ID           string
	OwnerID      string
	OccurredAt   string
	OccurredUnix int64
	Description  string
	Amount       string
	Currency     string
	Type         string
	CategoryID   sql.NullString
}

func (q *Queries) UpsertTransaction(ctx context.Context, arg UpsertTransactionParams) error {
	_, err := q.db.ExecContext(ctx, upsertTransaction,
		arg.ID,
		arg.OwnerID,
		arg.OccurredAt,
		arg.OccurredUnix,
		arg.Description,
		arg.Amount,
		arg.Currency,
		arg.Type,
		arg.CategoryID,
	)
	return err
}

const deleteTransaction = `DELETE FROM transactions WHERE id = ?`

func (q *Queries) DeleteTransaction(ctx context.Context, id string) (int64, error) {
	result, err := q.db.ExecContext(ctx, deleteTransaction, id)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

type UserSettingsRow struct {
	UserID   string
	Currency string
	Language string
	Theme    string
	IsRtl    bool
}

const getUserSettings = `
SELECT user_id, currency, language, theme, is_rtl FROM user_settings WHERE user_id = ?
`

func (q *Queries) GetUserSettings(ctx context.Context, userID string) (UserSettingsRow, error) {
	row := q.db.QueryRowContext(ctx, getUserSettings, userID)
	var i UserSettingsRow
	err := row.Scan(&i.UserID, &i.Currency, &i.Language, &i.Theme, &i.IsRtl)
	return i, err
}

const upsertUserSettings = `
INSERT INTO user_settings (user_id, currency, language, theme, is_rtl)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(user_id) DO UPDATE SET
    currency   = excluded.currency,
    language   = excluded.language,
    theme      = excluded.theme,
    is_rtl     = excluded.is_rtl,
    updated_at = CURRENT_TIMESTAMP
`

func (q *Queries) UpsertUserSettings(ctx context.Context, arg UserSettingsRow) error {
	_, err := q.db.ExecContext(ctx, upsertUserSettings,
		arg.UserID,
		arg.Currency,
		arg.Language,
		arg.Theme,
		arg.IsRtl,
	)
	return err
}

type CategoryRow struct {
	ID      string
	OwnerID string
	Name    string
	Icon    string
	Color   string
	Type    string
}

const listCategoriesByOwner = `
SELECT id, owner_id, name, icon, color, type FROM categories
WHERE owner_id = ?
ORDER BY name, id
`

func (q *Queries) ListCategoriesByOwner(ctx context.Context, ownerID string) ([]CategoryRow, error) {
	rows, err := q.db.QueryContext(ctx, listCategoriesByOwner, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []CategoryRow
	for rows.Next() {
		var i CategoryRow
		if err := rows.Scan(&i.ID, &i.OwnerID, &i.Name, &i.Icon, &i.Color, &i.Type); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getCategory = `
SELECT id, owner_id, name, icon, color, type FROM categories WHERE id = ?
`

func (q *Queries) GetCategory(ctx context.Context, id string) (CategoryRow, error) {
	row := q.db.QueryRowContext(ctx, getCategory, id)
	var i CategoryRow
	err := row.Scan(&i.ID, &i.OwnerID, &i.Name, &i.Icon, &i.Color, &i.Type)
	return i, err
}

const createCategory = `
INSERT INTO categories (id, owner_id, name, icon, color, type) VALUES (?, ?, ?, ?, ?, ?)
`

func (q *Queries) CreateCategory(ctx context.Context, arg CategoryRow) error {
	_, err := q.db.ExecContext(ctx, createCategory,
		arg.ID,
		arg.OwnerID,
		arg.Name,
		arg.Icon,
		arg.Color,
		arg.Type,
	)
	return err
}
