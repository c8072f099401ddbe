// Package transactions implements the caller-facing operations on a user's
// transactions and categories. Every operation checks that the referenced
// records belong to the calling principal.
package transactions

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"

	"github.com/shopspring/decimal"
)

// Input carries the user-editable fields of a transaction. An empty Currency
// falls back to the user's settings currency on create and keeps the current
// one on update. An empty CategoryID leaves the category unset on create and
// unchanged on update.
type Input struct {
	Date        time.Time
	Description string
	Amount      decimal.Decimal
	Currency    string
	Type        core.TransactionType
	CategoryID  string
}

type Service struct {
	store     ledger.Store
	converter *currency.Converter
	publisher ledger.Publisher
	log       *applog.Logger
}

func NewService(store ledger.Store, converter *currency.Converter, publisher ledger.Publisher) *Service {
	return &Service{
		store:     store,
		converter: converter,
		publisher: publisher,
		log:       applog.For(applog.ComponentLedger),
	}
}

// List returns the caller's transactions, newest first.
func (s *Service) List(ctx context.Context, p core.Principal) ([]core.Transaction, error) {
	if !p.Valid() {
		return nil, core.Unauthorized("missing principal")
	}
	txs, err := s.store.FindAllByOwner(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	for i, j := 0, len(txs)-1; i < j; i, j = i+1, j-1 {
		txs[i], txs[j] = txs[j], txs[i]
	}
	return txs, nil
}

func (s *Service) Create(ctx context.Context, p core.Principal, in Input) (core.Transaction, error) {
	if !p.Valid() {
		return core.Transaction{}, core.Unauthorized("missing principal")
	}

	var created core.Transaction
	err := s.store.InTx(ctx, func(tx ledger.Tx) error {
		t := core.Transaction{
			OwnerID:     p.UserID,
			Date:        in.Date,
			Description: strings.TrimSpace(in.Description),
			Amount:      core.RoundAmount(in.Amount),
			Currency:    in.Currency,
			Type:        in.Type,
		}
		if t.Currency == "" {
			code, err := settingsCurrency(ctx, tx, p.UserID)
			if err != nil {
				return err
			}
			t.Currency = code
		}
		if in.CategoryID != "" {
			cat, err := ownedCategory(ctx, tx, p, in.CategoryID)
			if err != nil {
				return err
			}
			t.Category = &cat
		}
		if err := validate(t); err != nil {
			return err
		}

		var err error
		created, err = tx.Create(ctx, t)
		return err
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.log.InfoContext(ctx, "Transaction created",
		applog.FieldTransaction, created.ID,
		applog.FieldUserID, p.UserID,
		applog.FieldOperation, applog.OpCreate,
		"amount", created.Amount.String(),
		"currency", created.Currency)
	s.publish(ctx, p.UserID, ledger.ReasonTransactionCreated)
	return created, nil
}

func (s *Service) Update(ctx context.Context, p core.Principal, id string, in Input) (core.Transaction, error) {
	if !p.Valid() {
		return core.Transaction{}, core.Unauthorized("missing principal")
	}

	var updated core.Transaction
	err := s.store.InTx(ctx, func(tx ledger.Tx) error {
		t, err := s.ownedTransaction(ctx, tx, p, id, applog.OpUpdate)
		if err != nil {
			return err
		}

		t.Amount = core.RoundAmount(in.Amount)
		t.Description = strings.TrimSpace(in.Description)
		t.Type = in.Type
		if !in.Date.IsZero() {
			t.Date = in.Date
		}
		if in.Currency != "" {
			t.Currency = in.Currency
		}
		if in.CategoryID != "" {
			cat, err := ownedCategory(ctx, tx, p, in.CategoryID)
			if err != nil {
				return err
			}
			t.Category = &cat
		}
		if err := validate(t); err != nil {
			return err
		}

		if err := tx.SaveAll(ctx, []core.Transaction{t}); err != nil {
			return fmt.Errorf("update transaction: %w", err)
		}
		updated = t
		return nil
	})
	if err != nil {
		return core.Transaction{}, err
	}

	s.log.InfoContext(ctx, "Transaction updated",
		applog.FieldTransaction, id, applog.FieldUserID, p.UserID, applog.FieldOperation, applog.OpUpdate)
	s.publish(ctx, p.UserID, ledger.ReasonTransactionUpdated)
	return updated, nil
}

func (s *Service) Delete(ctx context.Context, p core.Principal, id string) error {
	if !p.Valid() {
		return core.Unauthorized("missing principal")
	}

	err := s.store.InTx(ctx, func(tx ledger.Tx) error {
		if _, err := s.ownedTransaction(ctx, tx, p, id, applog.OpDelete); err != nil {
			return err
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.log.InfoContext(ctx, "Transaction deleted",
		applog.FieldTransaction, id, applog.FieldUserID, p.UserID, applog.FieldOperation, applog.OpDelete)
	s.publish(ctx, p.UserID, ledger.ReasonTransactionDeleted)
	return nil
}

// ConvertAmount returns the transaction's amount expressed in target at the
// current spot rate. Nothing is stored.
func (s *Service) ConvertAmount(ctx context.Context, p core.Principal, id, target string) (decimal.Decimal, error) {
	if !p.Valid() {
		return decimal.Zero, core.Unauthorized("missing principal")
	}
	t, err := s.ownedTransaction(ctx, s.store, p, id, applog.OpRead)
	if err != nil {
		return decimal.Zero, err
	}
	return s.converter.Convert(ctx, t.Amount, t.Currency, target)
}

func (s *Service) ListCategories(ctx context.Context, p core.Principal) ([]core.Category, error) {
	if !p.Valid() {
		return nil, core.Unauthorized("missing principal")
	}
	cats, err := s.store.ListCategories(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return cats, nil
}

func (s *Service) CreateCategory(ctx context.Context, p core.Principal, c core.Category) (core.Category, error) {
	if !p.Valid() {
		return core.Category{}, core.Unauthorized("missing principal")
	}
	c.ID = ""
	c.OwnerID = p.UserID
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Category{}, core.InvalidInput(err)
	}

	created, err := s.store.CreateCategory(ctx, c)
	if err != nil {
		return core.Category{}, err
	}
	s.log.InfoContext(ctx, "Category created",
		"category_id", created.ID, applog.FieldUserID, p.UserID, "name", created.Name)
	return created, nil
}

func (s *Service) publish(ctx context.Context, owner, reason string) {
	if s.publisher == nil {
		s.log.DebugContext(ctx, "No event publisher configured, skipping ledger changed event")
		return
	}
	if err := s.publisher.PublishLedgerChanged(ctx, owner, reason, 1); err != nil {
		s.log.LogError(ctx, "Failed to publish ledger changed event", err, applog.OpUpdate,
			applog.NewFields().WithUser(owner).WithReason(reason))
	}
}

type transactionReader interface {
	Get(ctx context.Context, id string) (core.Transaction, error)
}

func (s *Service) ownedTransaction(ctx context.Context, r transactionReader, p core.Principal, id, action string) (core.Transaction, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, err
	}
	if t.OwnerID != p.UserID {
		s.log.WarnContext(ctx, "Transaction ownership check failed",
			applog.FieldTransaction, id, applog.FieldUserID, p.UserID, applog.FieldOperation, action)
		return core.Transaction{}, core.Unauthorized("not authorized to %s this transaction", action)
	}
	return t, nil
}

func ownedCategory(ctx context.Context, tx ledger.Tx, p core.Principal, id string) (core.Category, error) {
	c, err := tx.GetCategory(ctx, id)
	if err != nil {
		return core.Category{}, err
	}
	if c.OwnerID != p.UserID {
		return core.Category{}, core.Unauthorized("not authorized to use this category")
	}
	return c, nil
}

func settingsCurrency(ctx context.Context, tx ledger.Tx, owner string) (string, error) {
	us, err := tx.GetSettings(ctx, owner)
	if errors.Is(err, core.ErrNotFound) {
		return core.DefaultCurrency, nil
	}
	if err != nil {
		return "", fmt.Errorf("get settings: %w", err)
	}
	return us.Currency, nil
}

// validate keeps taxonomy errors and wraps plain validation failures.
func validate(t core.Transaction) error {
	err := t.Validate()
	if err == nil {
		return nil
	}
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}
	return core.InvalidInput(err)
}
