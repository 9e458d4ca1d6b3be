package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	goauth "golang.org/x/oauth2/google"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"moneymanager/internal/core"
	ports "moneymanager/internal/sheets"
)

// Ensure interface conformance
var _ ports.ListingMirror = (*Client)(nil)

// Options selects the spreadsheet and the service account used to reach it.
// CredentialsJSON wins over CredentialsFile; with neither set the
// GOOGLE_APPLICATION_CREDENTIALS file is used.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client mirrors transactions into one sheet, one row per transaction keyed
// by the ID in column A.
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// mu serializes row lookups with the writes that depend on them.
	mu      sync.Mutex
	sheetID *int64
}

func New(ctx context.Context, opts Options) (*Client, error) {
	if strings.TrimSpace(opts.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	creds, err := loadCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}

	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, opts.SpreadsheetID, opts.SheetName), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if strings.TrimSpace(sheetName) == "" {
		sheetName = "Transactions"
	}
	return &Client{svc: svc, spreadsheetID: spreadsheetID, sheetName: sheetName}
}

func loadCredentials(ctx context.Context, opts Options) ([]byte, error) {
	serviceAccountJSON := strings.TrimSpace(opts.CredentialsJSON)
	serviceAccountFile := strings.TrimSpace(opts.CredentialsFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	switch {
	case serviceAccountJSON != "":
		slog.DebugContext(ctx, "Using inline service account credentials", "component", "sheets")
		return []byte(serviceAccountJSON), nil
	case serviceAccountFile != "":
		slog.DebugContext(ctx, "Reading service account file", "component", "sheets", "path", serviceAccountFile)
		data, err := os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}
}

// newSheetsService authenticates with the service account over a pooled
// HTTP transport.
func newSheetsService(ctx context.Context, credentialsJSON []byte) (*gsheet.Service, error) {
	baseCtx := context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	creds, err := goauth.CredentialsFromJSON(baseCtx, credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(oauth2.NewClient(baseCtx, creds.TokenSource)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "component", "sheets")
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and bounded timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		MaxConnsPerHost:       50,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		ForceAttemptHTTP2:     true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

// Upsert rewrites the row holding tx.ID, or appends one. An empty sheet gets
// the header row first.
func (c *Client) Upsert(ctx context.Context, tx core.Transaction) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	if tx.ID == "" {
		return errors.New("transaction has no id")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}

	row := rowFromTransaction(tx)
	if n := rowNumber(ids, tx.ID); n > 0 {
		rng := fmt.Sprintf("%s!A%d:%s%d", c.sheetName, n, lastColumn, n)
		_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{row}}).
			ValueInputOption("RAW").Context(ctx).Do()
		if err != nil {
			return fmt.Errorf("update row %d in sheet %s: %w", n, c.sheetName, err)
		}
		slog.DebugContext(ctx, "Updated mirror row", "component", "sheets", "transaction_id", tx.ID, "row", n)
		return nil
	}

	values := [][]any{row}
	if len(ids) == 0 {
		values = [][]any{header, row}
	}
	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	_, err = c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, &gsheet.ValueRange{Values: values}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	slog.DebugContext(ctx, "Appended mirror row", "component", "sheets", "transaction_id", tx.ID)
	return nil
}

// Remove deletes the row holding id. A missing row is not an error.
func (c *Client) Remove(ctx context.Context, id string) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	ids, err := c.readIDs(ctx)
	if err != nil {
		return err
	}
	n := rowNumber(ids, id)
	if n == 0 {
		slog.DebugContext(ctx, "Mirror row already absent", "component", "sheets", "transaction_id", id)
		return nil
	}

	sheetID, err := c.lookupSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(n - 1),
					EndIndex:   int64(n),
					// The first sheet has id 0, which would otherwise be omitted.
					ForceSendFields: []string{"SheetId", "StartIndex"},
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", n, c.sheetName, err)
	}
	slog.DebugContext(ctx, "Deleted mirror row", "component", "sheets", "transaction_id", id, "row", n)
	return nil
}

// Rows reads every mirrored transaction. Rows that no longer parse are
// skipped with a warning.
func (c *Client) Rows(ctx context.Context) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	rng := fmt.Sprintf("%s!A:%s", c.sheetName, lastColumn)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}

	out := make([]core.Transaction, 0, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) == 0 || (i == 0 && isHeader(row)) {
			continue
		}
		tx, err := transactionFromRow(row)
		if err != nil {
			slog.WarnContext(ctx, "Skipping unreadable mirror row", "component", "sheets", "row", i+1, "error", err)
			continue
		}
		out = append(out, tx)
	}
	return out, nil
}

func (c *Client) readIDs(ctx context.Context) ([]string, error) {
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	ids := make([]string, len(resp.Values))
	for i, row := range resp.Values {
		if len(row) > 0 {
			ids[i] = strings.TrimSpace(fmt.Sprint(row[0]))
		}
	}
	return ids, nil
}

// lookupSheetID resolves and caches the numeric id of the mirror sheet.
func (c *Client) lookupSheetID(ctx context.Context) (int64, error) {
	if c.sheetID != nil {
		return *c.sheetID, nil
	}
	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet: %w", err)
	}
	for _, sh := range ss.Sheets {
		if sh.Properties != nil && sh.Properties.Title == c.sheetName {
			id := sh.Properties.SheetId
			c.sheetID = &id
			return id, nil
		}
	}
	return 0, fmt.Errorf("sheet %q not found", c.sheetName)
}

// rowNumber returns the 1-based row holding id, skipping the header, or 0.
func rowNumber(ids []string, id string) int {
	for i, v := range ids {
		if i == 0 && strings.EqualFold(v, "ID") {
			continue
		}
		if v == id {
			return i + 1
		}
	}
	return 0
}
