package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"inorbit/internal/core"

	gsheet "google.golang.org/api/sheets/v4"
)

var columns = []string{"ID", "Goal", "Title", "Category", "Completed At", "Date"}

func headerRow() []any {
	out := make([]any, len(columns))
	for i, c := range columns {
		out[i] = c
	}
	return out
}

// completionRow lays out c as columns A..F.
func completionRow(c core.Completion) []any {
	return []any{
		c.ID,
		c.GoalID,
		c.Title,
		c.Category,
		c.CompletedAt.Format(time.RFC3339),
		c.CompletedAt.Format("2006-01-02"),
	}
}

// findRow returns the zero-based row whose first column equals id, or -1.
func findRow(values [][]any, id string) int {
	id = strings.TrimSpace(id)
	if id == "" {
		return -1
	}
	for i, row := range values {
		cols := toStrings(row)
		if safeGet(cols, 0) == id {
			return i
		}
	}
	return -1
}

func rowRef(sheet string, row int) string {
	return fmt.Sprintf("%s!A%d:F%d", sheet, row+1, row+1)
}

func deleteRowRequest(sheetID int64, row int) *gsheet.Request {
	return &gsheet.Request{DeleteDimension: &gsheet.DeleteDimensionRequest{
		Range: &gsheet.DimensionRange{
			SheetId:    sheetID,
			Dimension:  "ROWS",
			StartIndex: int64(row),
			EndIndex:   int64(row + 1),
		},
	}}
}

func sheetIDByTitle(sheets []*gsheet.Sheet, title string) (int64, bool) {
	for _, s := range sheets {
		if s == nil || s.Properties == nil {
			continue
		}
		if strings.EqualFold(strings.TrimSpace(s.Properties.Title), strings.TrimSpace(title)) {
			return s.Properties.SheetId, true
		}
	}
	return 0, false
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
