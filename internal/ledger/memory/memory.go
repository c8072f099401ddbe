// Package memory is an in-process ledger.Store. A unit of work runs against a
// private copy of the data that replaces the live copy only on success.
package memory

import (
	"context"
	"maps"
	"sort"
	"sync"

	"fintrack/internal/core"
	"fintrack/internal/ledger"

	"github.com/google/uuid"
)

type record struct {
	tx         core.Transaction // Category always nil; resolved on read
	categoryID string
}

type state struct {
	txs      map[string]record
	cats     map[string]core.Category
	settings map[string]core.UserSettings
}

func newState() *state {
	return &state{
		txs:      map[string]record{},
		cats:     map[string]core.Category{},
		settings: map[string]core.UserSettings{},
	}
}

func (st *state) clone() *state {
	return &state{
		txs:      maps.Clone(st.txs),
		cats:     maps.Clone(st.cats),
		settings: maps.Clone(st.settings),
	}
}

type Store struct {
	mu    sync.RWMutex // guards st
	write sync.Mutex   // serializes units of work
	st    *state
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{st: newState()}
}

// InTx runs fn against a copy of the store and publishes the copy if fn succeeds.
func (s *Store) InTx(ctx context.Context, fn func(ledger.Tx) error) error {
	s.write.Lock()
	defer s.write.Unlock()

	s.mu.RLock()
	work := s.st.clone()
	s.mu.RUnlock()

	if err := fn(&view{st: work}); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	s.st = work
	s.mu.Unlock()
	return nil
}

func (s *Store) FindAllByOwner(ctx context.Context, owner string) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).FindAllByOwner(ctx, owner)
}

func (s *Store) Get(ctx context.Context, id string) (core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).Get(ctx, id)
}

func (s *Store) GetSettings(ctx context.Context, owner string) (core.UserSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).GetSettings(ctx, owner)
}

func (s *Store) ListCategories(ctx context.Context, owner string) ([]core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).ListCategories(ctx, owner)
}

func (s *Store) GetCategory(ctx context.Context, id string) (core.Category, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return (&view{st: s.st}).GetCategory(ctx, id)
}

// Writes outside InTx are single-statement units of work.

func (s *Store) SaveAll(ctx context.Context, txs []core.Transaction) error {
	return s.InTx(ctx, func(tx ledger.Tx) error { return tx.SaveAll(ctx, txs) })
}

func (s *Store) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	var out core.Transaction
	err := s.InTx(ctx, func(tx ledger.Tx) error {
		var err error
		out, err = tx.Create(ctx, t)
		return err
	})
	return out, err
}

func (s *Store) Delete(ctx context.Context, id string) error {
	return s.InTx(ctx, func(tx ledger.Tx) error { return tx.Delete(ctx, id) })
}

func (s *Store) SaveSettings(ctx context.Context, us core.UserSettings) error {
	return s.InTx(ctx, func(tx ledger.Tx) error { return tx.SaveSettings(ctx, us) })
}

func (s *Store) CreateCategory(ctx context.Context, c core.Category) (core.Category, error) {
	var out core.Category
	err := s.InTx(ctx, func(tx ledger.Tx) error {
		var err error
		out, err = tx.CreateCategory(ctx, c)
		return err
	})
	return out, err
}

func (s *Store) Close() error { return nil }

// view implements ledger.Tx over one state. Callers provide locking.
type view struct {
	st *state
}

func (v *view) resolve(r record) core.Transaction {
	t := r.tx
	if r.categoryID != "" {
		if c, ok := v.st.cats[r.categoryID]; ok {
			cat := c
			t.Category = &cat
		}
	}
	return t
}

func toRecord(t core.Transaction) record {
	r := record{tx: t}
	if t.Category != nil {
		r.categoryID = t.Category.ID
	}
	r.tx.Category = nil
	return r
}

func (v *view) FindAllByOwner(_ context.Context, owner string) ([]core.Transaction, error) {
	out := make([]core.Transaction, 0)
	for _, r := range v.st.txs {
		if r.tx.OwnerID == owner {
			out = append(out, v.resolve(r))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.Before(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) SaveAll(_ context.Context, txs []core.Transaction) error {
	for _, t := range txs {
		if t.ID == "" {
			return core.Internal("save transaction without id", nil)
		}
		v.st.txs[t.ID] = toRecord(t)
	}
	return nil
}

func (v *view) Get(_ context.Context, id string) (core.Transaction, error) {
	r, ok := v.st.txs[id]
	if !ok {
		return core.Transaction{}, core.NotFound("transaction not found")
	}
	return v.resolve(r), nil
}

func (v *view) Create(_ context.Context, t core.Transaction) (core.Transaction, error) {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	v.st.txs[t.ID] = toRecord(t)
	return v.resolve(v.st.txs[t.ID]), nil
}

func (v *view) Delete(_ context.Context, id string) error {
	if _, ok := v.st.txs[id]; !ok {
		return core.NotFound("transaction not found")
	}
	delete(v.st.txs, id)
	return nil
}

func (v *view) GetSettings(_ context.Context, owner string) (core.UserSettings, error) {
	us, ok := v.st.settings[owner]
	if !ok {
		return core.UserSettings{}, core.NotFound("settings not found")
	}
	return us, nil
}

func (v *view) SaveSettings(_ context.Context, us core.UserSettings) error {
	v.st.settings[us.UserID] = us
	return nil
}

func (v *view) ListCategories(_ context.Context, owner string) ([]core.Category, error) {
	out := make([]core.Category, 0)
	for _, c := range v.st.cats {
		if c.OwnerID == owner {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

func (v *view) GetCategory(_ context.Context, id string) (core.Category, error) {
	c, ok := v.st.cats[id]
	if !ok {
		return core.Category{}, core.NotFound("category not found")
	}
	return c, nil
}

func (v *view) CreateCategory(_ context.Context, c core.Category) (core.Category, error) {
	if c.ID == "" {
		c.ID = uuid.NewString()
	}
	v.st.cats[c.ID] = c
	return c, nil
}
