// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package xlsx

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/anki-export/pkg/types"
)

// Read loads a workbook written by Writer back into an Export, treating row
// 1 of each worksheet as the header. Trailing empty cells are restored so
// every row has the header's width.
func Read(path string) (types.Export, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return types.Export{}, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	var e types.Export
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			return types.Export{}, fmt.Errorf("reading sheet %q: %w", name, err)
		}

		sheet := types.Sheet{Name: name}
		if len(rows) > 0 {
			sheet.Header = rows[0]
			for _, row := range rows[1:] {
				full := make([]string, max(len(sheet.Header), len(row)))
				copy(full, row)
				sheet.Rows = append(sheet.Rows, full)
			}
		}
		e.Sheets = append(e.Sheets, sheet)
	}
	return e, nil
}
