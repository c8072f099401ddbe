package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"fintrack/internal/core"
)

// fakeSheets serves the handful of Sheets v4 endpoints the client uses.
type fakeSheets struct {
	mu      sync.Mutex
	titles  []string
	calls   []string
	written [][]interface{}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := r.URL.Path
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodGet && strings.HasSuffix(path, "/v4/spreadsheets/sid"):
		f.calls = append(f.calls, "get")
		var sheets []map[string]any
		for _, t := range f.titles {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"title": t}})
		}
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid", "sheets": sheets})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":batchUpdate"):
		f.calls = append(f.calls, "add")
		var req gsheet.BatchUpdateSpreadsheetRequest
		json.NewDecoder(r.Body).Decode(&req)
		f.titles = append(f.titles, req.Requests[0].AddSheet.Properties.Title)
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid"})
	case r.Method == http.MethodPost && strings.HasSuffix(path, ":clear"):
		f.calls = append(f.calls, "clear")
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid"})
	case r.Method == http.MethodPut && strings.Contains(path, "/values/"):
		f.calls = append(f.calls, "update")
		body, _ := io.ReadAll(r.Body)
		var vr gsheet.ValueRange
		json.Unmarshal(body, &vr)
		f.written = vr.Values
		json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sid", "updatedRows": len(vr.Values)})
	default:
		http.Error(w, `{"error":{"code":404,"message":"not found"}}`, http.StatusNotFound)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	if err != nil {
		t.Fatalf("NewService: %v", err)
	}
	return New(svc, "sid", "ledger_")
}

func TestWriteLedgerCreatesTabOnce(t *testing.T) {
	fake := &fakeSheets{titles: []string{"Sheet1"}}
	c := newTestClient(t, fake)

	txs := []core.Transaction{{
		ID:          "t1",
		Date:        time.Date(2026, time.October, 1, 9, 0, 0, 0, time.UTC),
		Description: "Salary",
		Amount:      decimal.RequireFromString("1500"),
		Currency:    "EUR",
		Type:        core.Income,
	}}

	n, err := c.WriteLedger(context.Background(), "u1", txs)
	if err != nil {
		t.Fatalf("WriteLedger: %v", err)
	}
	if n != 1 {
		t.Fatalf("rows = %d, want 1", n)
	}
	if got := strings.Join(fake.calls, ","); got != "get,add,clear,update" {
		t.Fatalf("calls = %s", got)
	}
	if len(fake.written) != 2 || fake.written[1][4] != "1500.00" || fake.written[0][0] != "Date" {
		t.Fatalf("written = %v", fake.written)
	}

	fake.calls = nil
	if _, err := c.WriteLedger(context.Background(), "u1", nil); err != nil {
		t.Fatalf("second WriteLedger: %v", err)
	}
	if got := strings.Join(fake.calls, ","); got != "get,clear,update" {
		t.Fatalf("calls = %s, tab should be reused", got)
	}
}

func TestSheetTitle(t *testing.T) {
	c := New(nil, "sid", "ledger_")
	tests := []struct {
		user string
		want string
	}{
		{"u1", "ledger_u1"},
		{"a/b:c", "ledger_a_b_c"},
		{strings.Repeat("x", 120), "ledger_" + strings.Repeat("x", 93)},
	}
	for _, tt := range tests {
		if got := c.SheetTitle(tt.user); got != tt.want {
			t.Errorf("SheetTitle(%q) = %q, want %q", tt.user, got, tt.want)
		}
	}
}

func TestA1QuotesTitle(t *testing.T) {
	if got := a1("o'brien", "A1"); got != "'o''brien'!A1" {
		t.Fatalf("a1 = %q", got)
	}
}

func TestWriteLedgerWithoutService(t *testing.T) {
	if _, err := New(nil, "sid", "p").WriteLedger(context.Background(), "u1", nil); err == nil {
		t.Fatal("expected error")
	}
}

func TestNewFromEnv_MissingSpreadsheetID(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "")
	_, err := NewFromEnv(context.Background(), "ledger_")
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("err = %v", err)
	}
}

func TestNewFromEnv_MissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_SPREADSHEET_ID", "sid")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", "")
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_FILE", "")
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := NewFromEnv(context.Background(), "ledger_")
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("err = %v", err)
	}
}
