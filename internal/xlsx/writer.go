// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package xlsx writes deck exports to Excel workbooks using excelize.
// Each export sheet becomes a worksheet; row 1 holds the header.
package xlsx

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/anki-export/pkg/types"
)

// ErrUnknownFormat is returned for output formats other than none and header.
var ErrUnknownFormat = errors.New("unknown output format")

const defaultSheet = "Sheet1"

// ParseFormat validates a format name. The empty string selects FormatNone.
func ParseFormat(s string) (types.OutputFormat, error) {
	switch f := types.OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case "", types.FormatNone:
		return types.FormatNone, nil
	case types.FormatHeader:
		return f, nil
	default:
		return "", fmt.Errorf("%w %q (want %s or %s)", ErrUnknownFormat, s, types.FormatNone, types.FormatHeader)
	}
}

// Writer persists exports as .xlsx files.
type Writer struct {
	// Format selects cell styling. The zero value behaves as FormatNone.
	Format types.OutputFormat
}

// Write saves e to path, creating or truncating the file. The path must
// carry an Excel extension such as .xlsx.
func (w Writer) Write(path string, e types.Export) error {
	format, err := ParseFormat(string(w.Format))
	if err != nil {
		return err
	}

	f := excelize.NewFile()
	defer f.Close()

	var headerStyle int
	if format == types.FormatHeader {
		headerStyle, err = f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("creating header style: %w", err)
		}
	}

	names := sheetNames(e.Sheets)
	for i, sheet := range e.Sheets {
		if i == 0 {
			if err := f.SetSheetName(defaultSheet, names[i]); err != nil {
				return fmt.Errorf("naming sheet %q: %w", names[i], err)
			}
		} else if _, err := f.NewSheet(names[i]); err != nil {
			return fmt.Errorf("creating sheet %q: %w", names[i], err)
		}

		if err := writeSheet(f, names[i], sheet, format, headerStyle); err != nil {
			return err
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving %s: %w", path, err)
	}
	return nil
}

func writeSheet(f *excelize.File, name string, sheet types.Sheet, format types.OutputFormat, headerStyle int) error {
	sw, err := f.NewStreamWriter(name)
	if err != nil {
		return fmt.Errorf("opening sheet %q: %w", name, err)
	}

	var headerOpts []excelize.RowOpts
	if format == types.FormatHeader {
		// Panes must be set before the first row is streamed.
		if err := sw.SetPanes(&excelize.Panes{
			Freeze:      true,
			YSplit:      1,
			TopLeftCell: "A2",
			ActivePane:  "bottomLeft",
		}); err != nil {
			return fmt.Errorf("freezing header of %q: %w", name, err)
		}
		headerOpts = append(headerOpts, excelize.RowOpts{StyleID: headerStyle})
	}

	if err := sw.SetRow("A1", cells(sheet.Header), headerOpts...); err != nil {
		return fmt.Errorf("writing header of %q: %w", name, err)
	}

	for i, row := range sheet.Rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return fmt.Errorf("addressing row %d of %q: %w", i+2, name, err)
		}
		if err := sw.SetRow(cell, cells(row)); err != nil {
			return fmt.Errorf("writing row %d of %q: %w", i+2, name, err)
		}
	}

	if err := sw.Flush(); err != nil {
		return fmt.Errorf("flushing sheet %q: %w", name, err)
	}
	return nil
}

// cells converts a row to stream writer values, clipping text to the
// per-cell character limit.
func cells(row []string) []any {
	out := make([]any, len(row))
	for i, v := range row {
		if utf8.RuneCountInString(v) > excelize.TotalCellChars {
			v = string([]rune(v)[:excelize.TotalCellChars])
		}
		out[i] = v
	}
	return out
}

// sheetNames derives a valid, unique worksheet name for each sheet. Excel
// forbids []:*?/\, leading or trailing apostrophes and names over 31
// characters, and compares names case-insensitively.
func sheetNames(sheets []types.Sheet) []string {
	names := make([]string, len(sheets))
	seen := make(map[string]bool, len(sheets))
	for i, s := range sheets {
		base := sanitizeSheetName(s.Name)
		name := base
		for n := 2; seen[strings.ToLower(name)]; n++ {
			suffix := " (" + strconv.Itoa(n) + ")"
			name = truncateRunes(base, excelize.MaxSheetNameLength-utf8.RuneCountInString(suffix)) + suffix
		}
		seen[strings.ToLower(name)] = true
		names[i] = name
	}
	return names
}

var sheetNameReplacer = strings.NewReplacer(
	"[", "(", "]", ")",
	":", "-", "*", "-", "?", "-", "/", "-", `\`, "-",
)

func sanitizeSheetName(name string) string {
	name = sheetNameReplacer.Replace(name)
	name = strings.Trim(strings.TrimSpace(name), "'")
	name = truncateRunes(name, excelize.MaxSheetNameLength)
	name = strings.TrimRight(name, "'")
	if name == "" {
		return "Sheet"
	}
	return name
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}
