// Package currency converts amounts between currencies at the current spot rate.
package currency

import (
	"context"
	"errors"
	"strings"

	"fintrack/internal/core"
	applog "fintrack/internal/log"
	"fintrack/internal/rates"

	"github.com/shopspring/decimal"
)

const unavailableMessage = "currency conversion service is temporarily unavailable"

// Converter validates input, looks up the spot rate, and rounds the result
// half-up to cents. It performs no retries.
type Converter struct {
	provider rates.Provider
	log      *applog.Logger
}

// NewConverter creates a converter backed by provider.
func NewConverter(provider rates.Provider) *Converter {
	return &Converter{provider: provider, log: applog.For(applog.ComponentCurrency)}
}

// WithProvider returns a converter with the same policy and another provider.
func (c *Converter) WithProvider(p rates.Provider) *Converter {
	return &Converter{provider: p, log: c.log}
}

// Memoized returns a converter that fetches each base at most once. It is
// meant for a single bulk pass and must be discarded afterwards.
func (c *Converter) Memoized() *Converter {
	return c.WithProvider(rates.NewMemo(c.provider))
}

// Convert returns amount expressed in to. Identical codes (case-insensitive)
// short-circuit without a rate lookup.
func (c *Converter) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if !amount.IsPositive() {
		return decimal.Zero, core.InvalidCurrency("amount must be greater than zero")
	}
	if !core.ValidCurrencyCode(from) {
		return decimal.Zero, core.InvalidCurrency("invalid source currency code: %q", from)
	}
	if !core.ValidCurrencyCode(to) {
		return decimal.Zero, core.InvalidCurrency("invalid target currency code: %q", to)
	}
	if strings.EqualFold(from, to) {
		return amount, nil
	}

	snap, err := c.provider.Latest(ctx, from)
	if err != nil {
		return decimal.Zero, c.classify(ctx, err, from, to)
	}

	rate, ok := snap.Rates[strings.ToUpper(to)]
	if !ok || !rate.IsPositive() {
		return decimal.Zero, core.InvalidCurrency("unsupported target currency: %s", to)
	}

	converted := core.RoundAmount(amount.Mul(rate))
	c.log.DebugContext(ctx, "Converted amount",
		applog.FieldOperation, applog.OpConvert,
		applog.FieldFromCurrency, from,
		applog.FieldToCurrency, to,
		"amount", amount.String(),
		"rate", rate.String(),
		"result", converted.String())
	return converted, nil
}

// classify folds both provider error channels into the error taxonomy.
func (c *Converter) classify(ctx context.Context, err error, from, to string) error {
	fields := func() applog.Fields {
		return applog.NewFields().WithCurrencies(from, to)
	}

	var pe *rates.ProviderError
	if errors.As(err, &pe) {
		if pe.Unsupported() {
			return core.InvalidCurrency("unsupported currency code: %s or %s", from, to)
		}
		f := fields()
		f["error_type"] = pe.Type
		c.log.LogError(ctx, "Exchange rate provider rejected request", err, applog.OpConvert, f)
		return core.ExternalService("exchange rate provider error", err)
	}

	var te *rates.TransportError
	if errors.As(err, &te) {
		c.log.LogError(ctx, "Exchange rate provider unreachable", err, applog.OpConvert, fields())
		return core.ExternalService(unavailableMessage, err)
	}

	// Already classified (e.g. a wrapping provider that speaks the taxonomy).
	var ce *core.Error
	if errors.As(err, &ce) {
		return err
	}

	c.log.LogError(ctx, "Unexpected currency conversion failure", err, applog.OpConvert, fields())
	return core.Internal("unexpected error during currency conversion", err)
}
