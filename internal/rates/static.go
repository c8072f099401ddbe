package rates

import (
	"context"
	"strings"
	"time"

	"fintrack/internal/core"

	"github.com/shopspring/decimal"
)

// Static serves rates from a fixed table of per-EUR values. It backs the
// memory data backend when no provider key is configured.
type Static struct {
	perEUR map[string]decimal.Decimal
}

var _ Provider = (*Static)(nil)

// DefaultStaticRates is a small, plausible table for local development.
var DefaultStaticRates = map[string]string{
	"EUR": "1",
	"USD": "1.08",
	"GBP": "0.85",
	"MAD": "10.9",
	"CHF": "0.95",
	"JPY": "162.5",
}

// NewStatic builds a static provider from decimal strings keyed by code.
func NewStatic(perEUR map[string]string) *Static {
	s := &Static{perEUR: make(map[string]decimal.Decimal, len(perEUR))}
	for code, v := range perEUR {
		s.perEUR[strings.ToUpper(code)] = decimal.RequireFromString(v)
	}
	return s
}

func (s *Static) Latest(_ context.Context, base string) (core.RateSnapshot, error) {
	base = strings.ToUpper(base)
	baseRate, ok := s.perEUR[base]
	if !ok {
		return core.RateSnapshot{}, &ProviderError{Type: "unsupported-code"}
	}
	snap := core.RateSnapshot{
		Base:      base,
		Rates:     make(map[string]decimal.Decimal, len(s.perEUR)),
		UpdatedAt: time.Now().UTC(),
	}
	for code, r := range s.perEUR {
		snap.Rates[code] = r.DivRound(baseRate, 8)
	}
	return snap, nil
}
