package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"fintrack/internal/amqp"
	"fintrack/internal/core"
	"fintrack/internal/ledger"
	ledgermem "fintrack/internal/ledger/memory"
	sheetmem "fintrack/internal/sheets/memory"
)

type failingMirror struct{ calls int }

func (f *failingMirror) WriteLedger(context.Context, string, []core.Transaction) (int, error) {
	f.calls++
	return 0, errors.New("quota exceeded")
}

func seed(t *testing.T, store *ledgermem.Store, owner string, amounts ...string) {
	t.Helper()
	for i, a := range amounts {
		_, err := store.Create(context.Background(), core.Transaction{
			OwnerID:     owner,
			Date:        time.Date(2026, time.October, i+1, 0, 0, 0, 0, time.UTC),
			Description: "tx",
			Amount:      decimal.RequireFromString(a),
			Currency:    "EUR",
			Type:        core.Expense,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
}

func TestHandleLedgerChangedMirrorsOwnerOnly(t *testing.T) {
	store := ledgermem.New()
	seed(t, store, "u1", "10", "20")
	seed(t, store, "u2", "99")
	mirror := sheetmem.New()
	w := NewMirrorWorker(store, mirror, time.Second)

	msg := amqp.NewLedgerChangedMessage("u1", ledger.ReasonCurrencyChanged, 2)
	if err := w.HandleLedgerChanged(context.Background(), msg); err != nil {
		t.Fatalf("HandleLedgerChanged: %v", err)
	}

	tab := mirror.Tab("u1")
	if len(tab) != 3 {
		t.Fatalf("rows = %d, want header plus two", len(tab))
	}
	if tab[1][4] != "10.00" || tab[2][4] != "20.00" {
		t.Fatalf("tab = %v", tab)
	}
	if len(mirror.Tab("u2")) != 0 {
		t.Fatal("other users must not be mirrored")
	}
}

func TestHandleLedgerChangedSkipsStaleEvents(t *testing.T) {
	store := ledgermem.New()
	seed(t, store, "u1", "10")
	mirror := sheetmem.New()
	w := NewMirrorWorker(store, mirror, time.Second)

	base := time.Date(2026, time.October, 15, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return base }

	fresh := &amqp.LedgerChangedMessage{UserID: "u1", Reason: ledger.ReasonTransactionCreated, Count: 1, Timestamp: base.Add(-time.Second)}
	if err := w.HandleLedgerChanged(context.Background(), fresh); err != nil {
		t.Fatal(err)
	}
	// Queued before the write above started, so already covered.
	stale := &amqp.LedgerChangedMessage{UserID: "u1", Reason: ledger.ReasonTransactionDeleted, Count: 1, Timestamp: base.Add(-time.Minute)}
	if err := w.HandleLedgerChanged(context.Background(), stale); err != nil {
		t.Fatal(err)
	}
	if mirror.Writes() != 1 {
		t.Fatalf("writes = %d, want 1", mirror.Writes())
	}

	newer := &amqp.LedgerChangedMessage{UserID: "u1", Reason: ledger.ReasonTransactionUpdated, Count: 1, Timestamp: base.Add(time.Second)}
	if err := w.HandleLedgerChanged(context.Background(), newer); err != nil {
		t.Fatal(err)
	}
	if mirror.Writes() != 2 {
		t.Fatalf("writes = %d, want 2", mirror.Writes())
	}
}

func TestHandleLedgerChangedReturnsMirrorError(t *testing.T) {
	store := ledgermem.New()
	mirror := &failingMirror{}
	w := NewMirrorWorker(store, mirror, time.Second)

	msg := amqp.NewLedgerChangedMessage("u1", ledger.ReasonTransactionCreated, 1)
	if err := w.HandleLedgerChanged(context.Background(), msg); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	// A failed write must not mark the user as mirrored.
	if _, ok := w.lastMirrored("u1"); ok {
		t.Fatal("failed write recorded as mirrored")
	}
	if err := w.HandleLedgerChanged(context.Background(), msg); err == nil || mirror.calls != 2 {
		t.Fatalf("retry should hit the mirror again, calls = %d", mirror.calls)
	}
}
