package transactions

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/currency"
	"fintrack/internal/ledger"
	"fintrack/internal/ledger/memory"
	"fintrack/internal/rates"
	"fintrack/internal/settings"
	"fintrack/internal/storage"

	"github.com/shopspring/decimal"
)

type countingPublisher struct {
	reasons []string
}

func (c *countingPublisher) PublishLedgerChanged(_ context.Context, _, reason string, _ int) error {
	c.reasons = append(c.reasons, reason)
	return nil
}

var (
	alice = core.Principal{UserID: "alice"}
	bob   = core.Principal{UserID: "bob"}
)

func newService(t *testing.T) (*Service, *memory.Store, *countingPublisher) {
	t.Helper()
	store := memory.New()
	pub := &countingPublisher{}
	conv := currency.NewConverter(rates.NewStatic(map[string]string{"EUR": "1", "USD": "2"}))
	return NewService(store, conv, pub), store, pub
}

func input(amount string) Input {
	return Input{
		Date:        time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC),
		Description: "Groceries",
		Amount:      decimal.RequireFromString(amount),
		Type:        core.Expense,
	}
}

func TestCreateDefaultsCurrencyFromSettings(t *testing.T) {
	svc, store, pub := newService(t)
	ctx := context.Background()

	got, err := svc.Create(ctx, alice, input("12.5"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Currency != core.DefaultCurrency {
		t.Fatalf("currency = %s, want %s", got.Currency, core.DefaultCurrency)
	}

	s := core.DefaultSettings("alice")
	s.Currency = "USD"
	if err := store.SaveSettings(ctx, s); err != nil {
		t.Fatalf("SaveSettings: %v", err)
	}
	got, err = svc.Create(ctx, alice, input("3"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if got.Currency != "USD" {
		t.Fatalf("currency = %s, want USD", got.Currency)
	}
	if len(pub.reasons) != 2 {
		t.Fatalf("events = %v", pub.reasons)
	}
}

func TestCreateValidation(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		mut  func(*Input)
		want error
	}{
		{"zero amount", func(in *Input) { in.Amount = decimal.Zero }, core.ErrInvalidCurrency},
		{"negative amount", func(in *Input) { in.Amount = decimal.NewFromInt(-3) }, core.ErrInvalidCurrency},
		{"sub-cent amount", func(in *Input) { in.Amount = decimal.RequireFromString("0.004") }, core.ErrInvalidCurrency},
		{"bad currency", func(in *Input) { in.Currency = "eur" }, core.ErrInvalidCurrency},
		{"empty description", func(in *Input) { in.Description = "  " }, core.ErrInvalidInput},
		{"bad type", func(in *Input) { in.Type = "TRANSFER" }, core.ErrInvalidInput},
		{"missing category", func(in *Input) { in.CategoryID = "nope" }, core.ErrNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input("10")
			tt.mut(&in)
			if _, err := svc.Create(ctx, alice, in); !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestOwnershipChecks(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	created, err := svc.Create(ctx, alice, input("10"))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	if _, err := svc.Update(ctx, bob, created.ID, input("20")); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("Update by other user: %v", err)
	}
	if err := svc.Delete(ctx, bob, created.ID); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("Delete by other user: %v", err)
	}
	if _, err := svc.ConvertAmount(ctx, bob, created.ID, "USD"); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("ConvertAmount by other user: %v", err)
	}
	if _, err := svc.Update(ctx, alice, "missing", input("20")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Update missing: %v", err)
	}
	if err := svc.Delete(ctx, alice, "missing"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("Delete missing: %v", err)
	}

	bobCat, err := svc.CreateCategory(ctx, bob, core.Category{Name: "Bob's", Color: "#000", Type: core.Expense})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	in := input("5")
	in.CategoryID = bobCat.ID
	if _, err := svc.Create(ctx, alice, in); !errors.Is(err, core.ErrUnauthorized) {
		t.Fatalf("Create with foreign category: %v", err)
	}
}

func TestUpdateKeepsUnsetFields(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	cat, err := svc.CreateCategory(ctx, alice, core.Category{Name: "Food", Color: "#f00", Type: core.Expense})
	if err != nil {
		t.Fatalf("CreateCategory: %v", err)
	}
	in := input("10")
	in.Currency = "USD"
	in.CategoryID = cat.ID
	created, err := svc.Create(ctx, alice, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	upd := Input{Description: "Dinner", Amount: decimal.NewFromInt(25), Type: core.Expense}
	got, err := svc.Update(ctx, alice, created.ID, upd)
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Currency != "USD" || got.CategoryName() != "Food" || !got.Date.Equal(created.Date) {
		t.Fatalf("unexpected update result: %+v", got)
	}
	if got.Description != "Dinner" || !got.Amount.Equal(decimal.NewFromInt(25)) {
		t.Fatalf("fields not applied: %+v", got)
	}
}

func TestDeleteAndList(t *testing.T) {
	svc, _, pub := newService(t)
	ctx := context.Background()

	older := input("1")
	older.Date = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	a, _ := svc.Create(ctx, alice, older)
	b, _ := svc.Create(ctx, alice, input("2"))

	list, err := svc.List(ctx, alice)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != b.ID || list[1].ID != a.ID {
		t.Fatalf("expected newest first, got %v", list)
	}

	if err := svc.Delete(ctx, alice, a.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	list, _ = svc.List(ctx, alice)
	if len(list) != 1 {
		t.Fatalf("len after delete = %d", len(list))
	}
	if pub.reasons[len(pub.reasons)-1] != "transaction_deleted" {
		t.Fatalf("last event = %v", pub.reasons)
	}
}

func TestConvertAmount(t *testing.T) {
	svc, _, _ := newService(t)
	ctx := context.Background()

	in := input("10")
	in.Currency = "EUR"
	created, err := svc.Create(ctx, alice, in)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	got, err := svc.ConvertAmount(ctx, alice, created.ID, "USD")
	if err != nil {
		t.Fatalf("ConvertAmount: %v", err)
	}
	if !got.Equal(decimal.NewFromInt(20)) {
		t.Fatalf("got %s, want 20", got)
	}
	if _, err := svc.ConvertAmount(ctx, alice, created.ID, "XYZ"); !errors.Is(err, core.ErrInvalidCurrency) {
		t.Fatalf("unknown target: %v", err)
	}
}

func TestCreateCategoryValidation(t *testing.T) {
	svc, _, _ := newService(t)
	for _, c := range []core.Category{
		{Name: "", Color: "#000", Type: core.Expense},
		{Name: "Food", Color: "", Type: core.Expense},
		{Name: "Food", Color: "#000", Type: "OTHER"},
	} {
		if _, err := svc.CreateCategory(context.Background(), alice, c); !errors.Is(err, core.ErrInvalidInput) {
			t.Fatalf("%+v: expected invalid input, got %v", c, err)
		}
	}
	cats, _ := svc.ListCategories(context.Background(), alice)
	if len(cats) != 0 {
		t.Fatalf("unexpected categories: %v", cats)
	}
}

func TestAmountsAreStoredInCentsOnEveryBackend(t *testing.T) {
	backends := []struct {
		name string
		open func(t *testing.T) ledger.Store
	}{
		{"memory", func(t *testing.T) ledger.Store { return memory.New() }},
		{"sqlite", func(t *testing.T) ledger.Store {
			repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
			if err != nil {
				t.Fatalf("NewSQLiteRepository: %v", err)
			}
			t.Cleanup(func() { repo.Close() })
			return repo
		}},
	}

	for _, b := range backends {
		t.Run(b.name, func(t *testing.T) {
			ctx := context.Background()
			store := b.open(t)
			conv := currency.NewConverter(rates.NewStatic(map[string]string{"EUR": "1", "USD": "2"}))
			svc := NewService(store, conv, nil)

			if _, err := svc.Create(ctx, alice, input("0.004")); !errors.Is(err, core.ErrInvalidCurrency) {
				t.Fatalf("sub-cent create: expected invalid currency, got %v", err)
			}

			created, err := svc.Create(ctx, alice, input("12.345"))
			if err != nil {
				t.Fatalf("Create: %v", err)
			}
			if _, err := svc.Update(ctx, alice, created.ID, input("0.001")); !errors.Is(err, core.ErrInvalidCurrency) {
				t.Fatalf("sub-cent update: expected invalid currency, got %v", err)
			}

			stored, err := store.Get(ctx, created.ID)
			if err != nil {
				t.Fatalf("Get: %v", err)
			}
			if !stored.Amount.Equal(decimal.RequireFromString("12.35")) {
				t.Fatalf("stored amount = %s, want 12.35", stored.Amount)
			}

			// A currency change after these writes still succeeds.
			coord := settings.NewCoordinator(store, conv)
			usd := "USD"
			if _, err := coord.UpdateSettings(ctx, alice, core.SettingsPatch{Currency: &usd}); err != nil {
				t.Fatalf("UpdateSettings: %v", err)
			}
			stored, _ = store.Get(ctx, created.ID)
			if stored.Currency != "USD" || !stored.Amount.Equal(decimal.RequireFromString("24.7")) {
				t.Fatalf("after reconvert got %s %s, want 24.70 USD", stored.Amount, stored.Currency)
			}
		})
	}
}
