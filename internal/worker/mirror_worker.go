// Package worker mirrors ledgers to the spreadsheet when ledger.changed
// events arrive.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"fintrack/internal/amqp"
	"fintrack/internal/ledger"
	applog "fintrack/internal/log"
	"fintrack/internal/sheets"
)

// MirrorWorker rewrites a user's mirror tab from the ledger. Every write copies
// the whole ledger, so an event older than the last successful write for the
// same user is already reflected and gets skipped.
type MirrorWorker struct {
	ledger  ledger.Ledger
	mirror  sheets.LedgerMirror
	timeout time.Duration

	mu sync.Mutex
	// mirrored holds the start of the last successful write per user. One entry
	// per user, never pruned; a restart empties it.
	mirrored map[string]time.Time
	now      func() time.Time
	log      *applog.Logger
}

func NewMirrorWorker(l ledger.Ledger, m sheets.LedgerMirror, timeout time.Duration) *MirrorWorker {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &MirrorWorker{
		ledger:   l,
		mirror:   m,
		timeout:  timeout,
		mirrored: make(map[string]time.Time),
		now:      time.Now,
		log:      applog.For(applog.ComponentWorker),
	}
}

// HandleLedgerChanged is the AMQP handler. A returned error requeues the message.
func (w *MirrorWorker) HandleLedgerChanged(ctx context.Context, msg *amqp.LedgerChangedMessage) error {
	if last, ok := w.lastMirrored(msg.UserID); ok && msg.Timestamp.Before(last) {
		w.log.DebugContext(ctx, "Skipping stale ledger event",
			applog.FieldUserID, msg.UserID,
			applog.FieldReason, msg.Reason,
			"event_time", msg.Timestamp,
			"last_mirrored", last)
		return nil
	}

	w.log.InfoContext(ctx, "Processing ledger changed event",
		applog.NewFields().WithUser(msg.UserID).WithReason(msg.Reason).ToSlice()...)
	return w.Mirror(ctx, msg.UserID)
}

// Mirror copies userID's current ledger to the mirror.
func (w *MirrorWorker) Mirror(ctx context.Context, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, w.timeout)
	defer cancel()

	started := w.now()
	txs, err := w.ledger.FindAllByOwner(ctx, userID)
	if err != nil {
		return fmt.Errorf("read ledger: %w", err)
	}
	n, err := w.mirror.WriteLedger(ctx, userID, txs)
	if err != nil {
		w.log.LogError(ctx, "Failed to mirror ledger", err, applog.OpMirror, applog.NewFields().WithUser(userID))
		return fmt.Errorf("write mirror: %w", err)
	}

	w.mu.Lock()
	if started.After(w.mirrored[userID]) {
		w.mirrored[userID] = started
	}
	w.mu.Unlock()

	w.log.InfoContext(ctx, "Ledger mirrored",
		applog.FieldUserID, userID,
		applog.FieldOperation, applog.OpMirror,
		applog.FieldCount, n,
		applog.FieldDuration, time.Since(started).Milliseconds())
	return nil
}

func (w *MirrorWorker) lastMirrored(userID string) (time.Time, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	t, ok := w.mirrored[userID]
	return t, ok
}
