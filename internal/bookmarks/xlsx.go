package bookmarks

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/jeanpaul/rulecraft/internal/routes"
)

const xlsxSheet = "Bookmarks"

// XLSXFileName is the spreadsheet counterpart of ExportFileName.
func (s *Store) XLSXFileName() string {
	return s.product + "-bookmarks.xlsx"
}

// ExportXLSX writes the set as a spreadsheet with one row per bookmark.
// Links are resolved against baseURL.
func (s *Store) ExportXLSX(w io.Writer, baseURL string) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", xlsxSheet); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}

	rows := [][]any{{"ID", "Title", "Added", "Link"}}
	for _, e := range s.Entries() {
		added := ""
		if !e.AddedAt.IsZero() {
			added = e.AddedAt.UTC().Format(TimeLayout)
		}
		rows = append(rows, []any{e.ID, e.Title, added, routes.Resolve(baseURL, routes.Rule(e.ID))})
	}

	for r, row := range rows {
		for c, v := range row {
			cell, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(xlsxSheet, cell, v); err != nil {
				return fmt.Errorf("set %s: %w", cell, err)
			}
		}
	}

	if err := f.Write(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}
