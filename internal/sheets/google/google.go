package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"

	"inorbit/internal/core"
	ports "inorbit/internal/sheets"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

const defaultSheetBase = "Completions"

// Client mirrors completions into one sheet per year ("2024 Completions").
type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string

	mu       sync.Mutex
	sheetIDs map[string]int64
}

var _ ports.Mirror = (*Client)(nil)

// New wraps an initialized Sheets service.
func New(svc *gsheet.Service, spreadsheetID, sheetBase string) *Client {
	sheetBase = strings.TrimSpace(sheetBase)
	if sheetBase == "" {
		sheetBase = defaultSheetBase
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
		sheetIDs:      make(map[string]int64),
	}
}

// NewFromEnv creates a Sheets client using environment variables.
// Required: GOOGLE_SPREADSHEET_ID and service account credentials.
// Optional: GOOGLE_SHEET_NAME (default "Completions"); the completion year is
// prefixed automatically.
func NewFromEnv(ctx context.Context) (*Client, error) {
	spreadsheetID := strings.TrimSpace(os.Getenv("GOOGLE_SPREADSHEET_ID"))
	if spreadsheetID == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return New(svc, spreadsheetID, os.Getenv("GOOGLE_SHEET_NAME")), nil
}

// newSheetsService initializes a Sheets Service using Service Account credentials.
// Uses GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error

	switch {
	case serviceAccountJSON != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		slog.InfoContext(ctx, "Reading credentials from file", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created successfully")
	return service, nil
}

// AppendCompletion writes comp to the sheet of its year, creating the sheet on
// first use. A row already holding comp.ID is returned as is.
func (c *Client) AppendCompletion(ctx context.Context, comp core.Completion) (string, error) {
	if err := comp.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.sheetBase, comp.CompletedAt.Year())
	if _, err := c.ensureSheet(ctx, sheet); err != nil {
		return "", err
	}

	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return "", err
	}
	if row := findRow(ids, comp.ID); row >= 0 {
		return rowRef(sheet, row), nil
	}

	vr := &gsheet.ValueRange{Values: [][]any{completionRow(comp)}}
	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, sheet+"!A:F", vr).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", sheet, err)
	}
	if resp.Updates != nil && resp.Updates.UpdatedRange != "" {
		return resp.Updates.UpdatedRange, nil
	}
	return rowRef(sheet, len(ids)), nil
}

// RemoveCompletion deletes the row holding comp.ID from the sheet of its
// year. A missing sheet or row is not an error.
func (c *Client) RemoveCompletion(ctx context.Context, comp core.Completion) error {
	if err := comp.Validate(); err != nil {
		return err
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	sheet := yearPrefixedName(c.sheetBase, comp.CompletedAt.Year())
	sheetID, ok, err := c.lookupSheet(ctx, sheet)
	if err != nil {
		return err
	}
	if !ok {
		return nil
	}

	ids, err := c.readIDs(ctx, sheet)
	if err != nil {
		return err
	}
	row := findRow(ids, comp.ID)
	if row < 0 {
		slog.DebugContext(ctx, "Completion not mirrored, nothing to remove", "completion_id", comp.ID, "sheet", sheet)
		return nil
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{deleteRowRequest(sheetID, row)}}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d in sheet %s: %w", row+1, sheet, err)
	}
	return nil
}

func (c *Client) readIDs(ctx context.Context, sheet string) ([][]any, error) {
	rng := sheet + "!A:A"
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rng, err)
	}
	return resp.Values, nil
}

// lookupSheet resolves a sheet title to its numeric id, caching hits.
func (c *Client) lookupSheet(ctx context.Context, title string) (int64, bool, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[title]
	c.mu.Unlock()
	if ok {
		return id, true, nil
	}

	ss, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Fields("sheets.properties").Context(ctx).Do()
	if err != nil {
		return 0, false, fmt.Errorf("read spreadsheet metadata: %w", err)
	}
	id, ok = sheetIDByTitle(ss.Sheets, title)
	if ok {
		c.mu.Lock()
		c.sheetIDs[title] = id
		c.mu.Unlock()
	}
	return id, ok, nil
}

func (c *Client) ensureSheet(ctx context.Context, title string) (int64, error) {
	id, ok, err := c.lookupSheet(ctx, title)
	if err != nil || ok {
		return id, err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{Requests: []*gsheet.Request{
		{AddSheet: &gsheet.AddSheetRequest{Properties: &gsheet.SheetProperties{Title: title}}},
	}}
	resp, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("create sheet %s: %w", title, err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		id = resp.Replies[0].AddSheet.Properties.SheetId
	}

	header := &gsheet.ValueRange{Values: [][]any{headerRow()}}
	if _, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, title+"!A1:F1", header).
		ValueInputOption("RAW").Context(ctx).Do(); err != nil {
		return 0, fmt.Errorf("write header of %s: %w", title, err)
	}

	c.mu.Lock()
	c.sheetIDs[title] = id
	c.mu.Unlock()
	slog.InfoContext(ctx, "Created completions sheet", "sheet", title, "sheet_id", id)
	return id, nil
}
