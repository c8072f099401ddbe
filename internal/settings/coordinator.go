// Package settings owns user display preferences and keeps the ledger's
// currency in step with them.
package settings

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
)

// Coordinator applies settings changes. A currency change re-denominates every
// transaction still in the old currency, and the settings row is written in
// the same unit of work, so either both land or neither does.
type Coordinator struct {
	store     ledger.Store
	converter *currency.Converter
	publisher ledger.Publisher
	locks     *userLocks
	memoize   bool
	log       *applog.Logger
}

type Option func(*Coordinator)

// WithPublisher sets where ledger change events go. Nil disables them.
func WithPublisher(p ledger.Publisher) Option {
	return func(c *Coordinator) { c.publisher = p }
}

// WithRateMemo toggles reuse of one rate snapshot per re-denomination pass.
// Enabled by default.
func WithRateMemo(enabled bool) Option {
	return func(c *Coordinator) { c.memoize = enabled }
}

func NewCoordinator(store ledger.Store, converter *currency.Converter, opts ...Option) *Coordinator {
	c := &Coordinator{
		store:     store,
		converter: converter,
		locks:     newUserLocks(),
		memoize:   true,
		log:       applog.For(applog.ComponentSettings),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetSettings returns the caller's settings, creating the defaults on first access.
func (c *Coordinator) GetSettings(ctx context.Context, p core.Principal) (core.UserSettings, error) {
	if !p.Valid() {
		return core.UserSettings{}, core.Unauthorized("missing principal")
	}

	s, err := c.store.GetSettings(ctx, p.UserID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.UserSettings{}, fmt.Errorf("get settings: %w", err)
	}

	unlock := c.locks.Lock(p.UserID)
	defer unlock()

	err = c.store.InTx(ctx, func(tx ledger.Tx) error {
		s, err = c.loadOrCreate(ctx, tx, p.UserID)
		return err
	})
	if err != nil {
		return core.UserSettings{}, err
	}
	return s, nil
}

// UpdateSettings merges patch into the caller's settings. Only non-nil fields
// are applied; IsRTL is always recomputed from the stored language.
func (c *Coordinator) UpdateSettings(ctx context.Context, p core.Principal, patch core.SettingsPatch) (core.UserSettings, error) {
	if !p.Valid() {
		return core.UserSettings{}, core.Unauthorized("missing principal")
	}
	if patch.Currency != nil && !core.ValidCurrencyCode(*patch.Currency) {
		return core.UserSettings{}, core.InvalidCurrency("invalid currency code: %q", *patch.Currency)
	}

	unlock := c.locks.Lock(p.UserID)
	defer unlock()

	var (
		updated   core.UserSettings
		converted int
		previous  string
		changed   bool
	)
	err := c.store.InTx(ctx, func(tx ledger.Tx) error {
		current, err := c.loadOrCreate(ctx, tx, p.UserID)
		if err != nil {
			return err
		}
		next := current

		if patch.Theme != nil {
			next.Theme = *patch.Theme
		}
		if patch.Language != nil {
			next.Language = NormalizeLanguage(ctx, *patch.Language)
		}
		next.SyncDirection()

		if patch.Currency != nil {
			if !strings.EqualFold(*patch.Currency, current.Currency) {
				n, err := c.Reconvert(ctx, tx, p.UserID, current.Currency, *patch.Currency)
				if err != nil {
					return err
				}
				converted, previous, changed = n, current.Currency, true
			}
			next.Currency = *patch.Currency
		}

		if err := tx.SaveSettings(ctx, next); err != nil {
			return fmt.Errorf("save settings: %w", err)
		}
		updated = next
		return nil
	})
	if err != nil {
		c.log.LogError(ctx, "Settings update aborted", err, applog.OpUpdate, applog.NewFields().WithUser(p.UserID))
		return core.UserSettings{}, err
	}

	c.log.InfoContext(ctx, "Settings updated",
		applog.FieldUserID, p.UserID,
		"currency", updated.Currency,
		"language", updated.Language,
		"theme", updated.Theme)

	if changed {
		c.log.InfoContext(ctx, "Ledger re-denominated",
			applog.NewFields().WithUser(p.UserID).WithConversion(previous, updated.Currency, converted).ToSlice()...)
		c.publish(ctx, p.UserID, converted)
	}
	return updated, nil
}

// Reconvert moves every transaction of owner stored in from (case-insensitive)
// to the to currency. All amounts are computed before anything is written; on
// the first failure nothing is saved and the error is returned as is. An amount
// that rounds to zero in the target currency fails the pass with InvalidCurrency.
func (c *Coordinator) Reconvert(ctx context.Context, tx ledger.Tx, owner, from, to string) (int, error) {
	txs, err := tx.FindAllByOwner(ctx, owner)
	if err != nil {
		return 0, fmt.Errorf("load ledger: %w", err)
	}

	conv := c.converter
	if c.memoize {
		conv = conv.Memoized()
	}

	eligible := make([]core.Transaction, 0, len(txs))
	for _, t := range txs {
		if !strings.EqualFold(t.Currency, from) {
			continue
		}
		amount, err := conv.Convert(ctx, t.Amount, strings.ToUpper(from), to)
		if err == nil && !amount.IsPositive() {
			err = core.InvalidCurrency("transaction %s: %s %s rounds to zero in %s",
				t.ID, t.Amount.StringFixed(core.AmountScale), strings.ToUpper(from), to)
		}
		if err != nil {
			c.log.WarnContext(ctx, "Re-denomination aborted",
				applog.NewFields().
					WithUser(owner).
					WithTransaction(t.ID).
					WithCurrencies(from, to).
					WithOperation(applog.OpConvert).
					WithError(err).
					ToSlice()...)
			return 0, err
		}
		t.Amount = amount
		t.Currency = to
		eligible = append(eligible, t)
	}

	if len(eligible) == 0 {
		return 0, nil
	}
	if err := tx.SaveAll(ctx, eligible); err != nil {
		return 0, fmt.Errorf("save converted transactions: %w", err)
	}
	return len(eligible), nil
}

func (c *Coordinator) publish(ctx context.Context, owner string, count int) {
	if c.publisher == nil {
		c.log.DebugContext(ctx, "No event publisher configured, skipping ledger changed event")
		return
	}
	if err := c.publisher.PublishLedgerChanged(ctx, owner, ledger.ReasonCurrencyChanged, count); err != nil {
		// The change is committed; the mirror catches up on the next event.
		c.log.LogError(ctx, "Failed to publish ledger changed event", err, applog.OpUpdate,
			applog.NewFields().WithUser(owner).WithReason(ledger.ReasonCurrencyChanged))
	}
}

func (c *Coordinator) loadOrCreate(ctx context.Context, tx ledger.Tx, userID string) (core.UserSettings, error) {
	s, err := tx.GetSettings(ctx, userID)
	if err == nil {
		return s, nil
	}
	if !errors.Is(err, core.ErrNotFound) {
		return core.UserSettings{}, fmt.Errorf("get settings: %w", err)
	}
	s = core.DefaultSettings(userID)
	if err := tx.SaveSettings(ctx, s); err != nil {
		return core.UserSettings{}, fmt.Errorf("create default settings: %w", err)
	}
	c.log.InfoContext(ctx, "Created default settings", applog.FieldUserID, userID, applog.FieldOperation, applog.OpCreate)
	return s, nil
}
