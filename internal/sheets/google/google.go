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

	"fintrack/internal/core"
	ports "fintrack/internal/sheets"
)

// Options configure a Client. One of CredentialsJSON or CredentialsFile
// is required; CredentialsJSON wins when both are set.
type Options struct {
	SpreadsheetID   string
	SheetName       string
	CredentialsJSON string
	CredentialsFile string
}

// Client exports transactions into one sheet per year named
// "<year> <SheetName>".
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// Ensure interface conformance
var _ ports.Ledger = (*Client)(nil)

var errNotInitialized = errors.New("sheets service not initialized")

func New(ctx context.Context, opts Options) (*Client, error) {
	spreadsheetID := strings.TrimSpace(opts.SpreadsheetID)
	if spreadsheetID == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	base := strings.TrimSpace(opts.SheetName)
	if base == "" {
		base = "Transactions"
	}

	creds, err := readCredentials(ctx, opts)
	if err != nil {
		return nil, err
	}
	svc, err := newSheetsService(ctx, creds)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     base,
		sheetIDs:      make(map[string]int64),
	}, nil
}

func readCredentials(ctx context.Context, opts Options) ([]byte, error) {
	inline := strings.TrimSpace(opts.CredentialsJSON)
	file := strings.TrimSpace(opts.CredentialsFile)

	switch {
	case inline != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(inline), nil
	case file != "":
		slog.InfoContext(ctx, "Reading service account credentials from file", "path", file)
		data, err := os.ReadFile(file)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials")
	}
}

// newSheetsService authenticates with a service account over a pooled
// HTTP client.
func newSheetsService(ctx context.Context, credentialsJSON []byte) (*gsheet.Service, error) {
	jwt, err := goauth.JWTConfigFromJSON(credentialsJSON, gsheet.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("parse service account credentials: %w", err)
	}

	// The token source and API calls share the pooled transport.
	ctx = context.WithValue(ctx, oauth2.HTTPClient, newHTTPClientWithPooling())
	service, err := gsheet.NewService(ctx, goption.WithHTTPClient(jwt.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}

	slog.InfoContext(ctx, "Google Sheets service created", "service_account", jwt.Email)
	return service, nil
}

// newHTTPClientWithPooling creates an HTTP client tuned for the Sheets API
// with connection pooling and explicit timeouts.
func newHTTPClientWithPooling() *http.Client {
	dialer := &net.Dialer{
		Timeout:   30 * time.Second,
		KeepAlive: 30 * time.Second,
	}

	transport := &http.Transport{
		DialContext: dialer.DialContext,

		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 10,
		MaxConnsPerHost:     50,
		IdleConnTimeout:     90 * time.Second,

		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: 30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,

		ForceAttemptHTTP2: true,
	}

	return &http.Client{
		Transport: transport,
		Timeout:   60 * time.Second,
	}
}

func (c *Client) sheetFor(year int) string {
	return yearPrefixedName(c.sheetBase, year)
}

// Export appends t to the sheet of its year, creating the sheet with a
// header row on first use. A transaction whose id is already in the sheet
// is not appended again, so redelivered events leave a single row.
func (c *Client) Export(ctx context.Context, t core.Transaction) (string, error) {
	if err := t.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errNotInitialized
	}

	sheet := c.sheetFor(t.OccurredOn.Year())
	if _, err := c.ensureSheet(ctx, sheet); err != nil {
		return "", err
	}

	row, err := c.rowOf(ctx, sheet, t.ID)
	if err != nil {
		return "", err
	}
	if row >= 0 {
		slog.DebugContext(ctx, "Transaction already exported", "transaction_id", t.ID, "sheet", sheet)
		return fmt.Sprintf("%s!A%d:G%d", sheet, row+1, row+1), nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{rowValues(t)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:G", vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}

	ref := sheet
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		ref = resp.Updates.UpdatedRange
	}
	return ref, nil
}

// Remove deletes the row holding t.ID, if any.
func (c *Client) Remove(ctx context.Context, t core.Transaction) error {
	if c.svc == nil {
		return errNotInitialized
	}
	sheet := c.sheetFor(t.OccurredOn.Year())

	sheetID, ok, err := c.lookupSheet(ctx, sheet)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	row, err := c.rowOf(ctx, sheet, t.ID)
	if err != nil {
		return err
	}
	if row < 0 {
		slog.DebugContext(ctx, "Transaction not present in sheet", "transaction_id", t.ID, "sheet", sheet)
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		DeleteDimension: &gsheet.DeleteDimensionRequest{Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row),
			EndIndex:   int64(row + 1),
		}},
	}}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in %s: %w", row+1, sheet, err)
	}
	return nil
}

// ListExported reads back every parsable row of the year's sheet.
func (c *Client) ListExported(ctx context.Context, year int) ([]core.Transaction, error) {
	if c.svc == nil {
		return nil, errNotInitialized
	}
	sheet := c.sheetFor(year)
	if _, ok, err := c.lookupSheet(ctx, sheet); err != nil || !ok {
		return nil, err
	}

	rng := fmt.Sprintf("%s!A:G", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	out := make([]core.Transaction, 0, len(resp.Values))
	for _, row := range resp.Values {
		if t, ok := parseRow(row); ok {
			out = append(out, t)
		}
	}
	return out, nil
}

// rowOf returns the zero-based row holding id in the sheet's ID column,
// or -1.
func (c *Client) rowOf(ctx context.Context, sheet, id string) (int, error) {
	rng := fmt.Sprintf("%s!F:F", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return -1, fmt.Errorf("read %s: %w", rng, err)
	}
	return findRow(resp.Values, id), nil
}

// findRow returns the zero-based index of the row whose first cell is id.
func findRow(values [][]any, id string) int {
	for i, row := range values {
		cols := toStrings(row)
		if len(cols) > 0 && cols[0] == id {
			return i
		}
	}
	return -1
}

func (c *Client) cachedSheet(title string) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	id, ok := c.sheetIDs[title]
	return id, ok
}

func (c *Client) rememberSheet(title string, id int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetIDs == nil {
		c.sheetIDs = make(map[string]int64)
	}
	c.sheetIDs[title] = id
}

// lookupSheet resolves a sheet title to its id, refreshing the cache from
// the spreadsheet metadata on a miss.
func (c *Client) lookupSheet(ctx context.Context, title string) (int64, bool, error) {
	if id, ok := c.cachedSheet(title); ok {
		return id, true, nil
	}
	meta, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	var (
		found int64
		ok    bool
	)
	for _, s := range meta.Sheets {
		if s.Properties == nil {
			continue
		}
		c.rememberSheet(s.Properties.Title, s.Properties.SheetId)
		if s.Properties.Title == title {
			found, ok = s.Properties.SheetId, true
		}
	}
	return found, ok, nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) (int64, error) {
	id, ok, err := c.lookupSheet(ctx, title)
	if err != nil || ok {
		return id, err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{{
		AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}},
	}}}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("add sheet %s: %w", title, err)
	}
	if len(resp.Replies) == 0 || resp.Replies[0].AddSheet == nil || resp.Replies[0].AddSheet.Properties == nil {
		return 0, fmt.Errorf("add sheet %s: empty reply", title)
	}
	id = resp.Replies[0].AddSheet.Properties.SheetId
	c.rememberSheet(title, id)

	vr := &gsheet.ValueRange{Values: [][]any{header}}
	_, err = c.svc.Spreadsheets.Values.Update(c.spreadsheetID, title+"!A1:G1", vr).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("write header in %s: %w", title, err)
	}
	slog.InfoContext(ctx, "Created export sheet", "sheet", title)
	return id, nil
}
