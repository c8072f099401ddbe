// Package dashboard computes the read-only views over a user's ledger:
// totals, the expense breakdown by category and the six-month trend.
// Nothing is cached; every call reads the ledger again.
package dashboard

import (
	"context"
	"fmt"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"

	"golang.org/x/sync/errgroup"
)

type Aggregator struct {
	ledger ledger.Ledger
	now    func() time.Time
	log    *applog.Logger
}

func NewAggregator(l ledger.Ledger) *Aggregator {
	return &Aggregator{ledger: l, now: time.Now, log: applog.For(applog.ComponentDashboard)}
}

// WithClock returns a copy that reads the current time from now.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	return &Aggregator{ledger: a.ledger, now: now, log: a.log}
}

func (a *Aggregator) load(ctx context.Context, p core.Principal) ([]core.Transaction, error) {
	if !p.Valid() {
		return nil, core.Unauthorized("missing principal")
	}
	txs, err := a.ledger.FindAllByOwner(ctx, p.UserID)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	a.log.DebugContext(ctx, "Ledger loaded",
		applog.FieldUserID, p.UserID,
		applog.FieldOperation, applog.OpRead,
		applog.FieldCount, len(txs))
	return txs, nil
}

func (a *Aggregator) Stats(ctx context.Context, p core.Principal) (core.Stats, error) {
	txs, err := a.load(ctx, p)
	if err != nil {
		return core.Stats{}, err
	}
	return ComputeStats(txs), nil
}

func (a *Aggregator) CategoryBreakdown(ctx context.Context, p core.Principal) ([]core.CategoryTotal, error) {
	txs, err := a.load(ctx, p)
	if err != nil {
		return nil, err
	}
	return ComputeCategoryBreakdown(txs), nil
}

func (a *Aggregator) MonthlyTrend(ctx context.Context, p core.Principal) ([]core.MonthlyPoint, error) {
	txs, err := a.load(ctx, p)
	if err != nil {
		return nil, err
	}
	return ComputeMonthlyTrend(txs, a.now()), nil
}

// Report computes all three views from a single ledger read. The views share
// the read-only slice and nothing else.
func (a *Aggregator) Report(ctx context.Context, p core.Principal) (core.Report, error) {
	txs, err := a.load(ctx, p)
	if err != nil {
		return core.Report{}, err
	}
	now := a.now()

	var r core.Report
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r.Stats = ComputeStats(txs)
		return nil
	})
	g.Go(func() error {
		r.Categories = ComputeCategoryBreakdown(txs)
		return nil
	})
	g.Go(func() error {
		r.Trend = ComputeMonthlyTrend(txs, now)
		return gctx.Err()
	})
	if err := g.Wait(); err != nil {
		return core.Report{}, err
	}
	return r, nil
}
