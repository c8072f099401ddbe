package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// maxTitle is the longest tab title Sheets accepts.
const maxTitle = 100

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	prefix        string
}

var _ ports.LedgerMirror = (*Client)(nil)

// New wraps an existing Sheets service.
func New(svc *gsheet.Service, spreadsheetID, prefix string) *Client {
	return &Client{svc: svc, spreadsheetID: spreadsheetID, prefix: prefix}
}

// NewFromEnv creates a client authenticated with a service account.
// Required: GOOGLE_SPREADSHEET_ID.
func NewFromEnv(ctx context.Context, prefix string) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, prefix), nil
}

// newSheetsService reads GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE
// or GOOGLE_APPLICATION_CREDENTIALS, in that order.
func newSheetsService(ctx context.Context, opts ...goption.ClientOption) (*gsheet.Service, error) {
	inline := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	file := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if inline == "" && file == "" {
		file = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var creds []byte
	switch {
	case inline != "":
		creds = []byte(inline)
	case file != "":
		b, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		creds = b
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	opts = append(opts,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "credentials_size", len(creds))
	return svc, nil
}

// SheetTitle is the tab that mirrors userID's ledger.
func (c *Client) SheetTitle(userID string) string {
	title := c.prefix + userID
	// Characters Sheets rejects in titles.
	title = strings.NewReplacer("[", "_", "]", "_", "*", "_", "?", "_", "/", "_", "\\", "_", ":", "_").Replace(title)
	if len(title) > maxTitle {
		title = title[:maxTitle]
	}
	return title
}

// a1 quotes a tab title for use in A1 notation.
func a1(title, cells string) string {
	return "'" + strings.ReplaceAll(title, "'", "''") + "'!" + cells
}

// WriteLedger overwrites the user's tab with the full ledger, creating the tab
// on first use.
func (c *Client) WriteLedger(ctx context.Context, userID string, txs []core.Transaction) (int, error) {
	if c.svc == nil {
		return 0, errors.New("sheets service not initialized")
	}
	title := c.SheetTitle(userID)

	if err := c.ensureSheet(ctx, title); err != nil {
		return 0, err
	}

	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, a1(title, "A:G"), &gsheet.ClearValuesRequest{}).
		Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("clear %s: %w", title, err)
	}

	rows := ports.Rows(txs)
	values := make([][]interface{}, len(rows))
	for i, row := range rows {
		values[i] = make([]interface{}, len(row))
		for j, cell := range row {
			values[i][j] = cell
		}
	}

	resp, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, a1(title, "A1"), &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", title, err)
	}

	slog.InfoContext(ctx, "Ledger mirrored",
		"user_id", userID,
		"sheet", title,
		"rows", resp.UpdatedRows)
	return len(txs), nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) error {
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties.title").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == title {
			return nil
		}
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("add sheet %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created mirror sheet", "sheet", title)
	return nil
}
