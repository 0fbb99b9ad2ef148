// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package xlsx

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/pdiddy/anki-export/pkg/types"
)

func sampleExport() types.Export {
	return types.Export{Sheets: []types.Sheet{
		{
			Name:   "Kanji Radical",
			Header: []string{"Radical", "Meaning", "Tags", "Deck", "Card"},
			Rows: [][]string{
				{"一", "one", "radical", "Kanji", "Recognition"},
				{"丨", "line", "", "Kanji", "Recognition"},
				{"<b>丶</b>", "007", "radical primitive", "Kanji", "Recognition"},
			},
		},
		{
			Name:   "Basic",
			Header: []string{"Front", "Back", "Tags", "Deck", "Card"},
			Rows:   [][]string{{"q", "a", "", "Default", "Card 1"}},
		},
	}}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    types.OutputFormat
		wantErr bool
	}{
		{in: "", want: types.FormatNone},
		{in: "none", want: types.FormatNone},
		{in: " NONE ", want: types.FormatNone},
		{in: "header", want: types.FormatHeader},
		{in: "fancy", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrUnknownFormat))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWrite_RoundTrip(t *testing.T) {
	for _, format := range []types.OutputFormat{"", types.FormatNone, types.FormatHeader} {
		t.Run(string(format), func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "out.xlsx")
			want := sampleExport()

			require.NoError(t, Writer{Format: format}.Write(path, want))

			got, err := Read(path)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}
}

func TestWrite_CellsAreText(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, Writer{}.Write(path, sampleExport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	// Leading zeros survive because values are never coerced to numbers.
	v, err := f.GetCellValue("Kanji Radical", "B4")
	require.NoError(t, err)
	assert.Equal(t, "007", v)
}

func TestWrite_HeaderFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, Writer{Format: types.FormatHeader}.Write(path, sampleExport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	styleID, err := f.GetCellStyle("Kanji Radical", "A1")
	require.NoError(t, err)
	style, err := f.GetStyle(styleID)
	require.NoError(t, err)
	require.NotNil(t, style.Font)
	assert.True(t, style.Font.Bold)

	panes, err := f.GetPanes("Kanji Radical")
	require.NoError(t, err)
	assert.True(t, panes.Freeze)
	assert.Equal(t, 1, panes.YSplit)
}

func TestWrite_NoneFormatHasNoStyles(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, Writer{Format: types.FormatNone}.Write(path, sampleExport()))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()

	styleID, err := f.GetCellStyle("Kanji Radical", "A1")
	require.NoError(t, err)
	assert.Zero(t, styleID)

	panes, err := f.GetPanes("Kanji Radical")
	require.NoError(t, err)
	assert.False(t, panes.Freeze)
}

func TestWrite_UnknownFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	err := Writer{Format: "fancy"}.Write(path, sampleExport())
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnknownFormat))

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "no file should be written")
}

func TestWrite_EmptyExport(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, Writer{}.Write(path, types.Export{}))

	f, err := excelize.OpenFile(path)
	require.NoError(t, err)
	defer f.Close()
	assert.Equal(t, []string{"Sheet1"}, f.GetSheetList())
}

func TestWrite_Overwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("stale ", 100000)), 0o644))

	require.NoError(t, Writer{}.Write(path, sampleExport()))

	got, err := Read(path)
	require.NoError(t, err)
	assert.Equal(t, sampleExport(), got)
}

func TestWrite_Idempotent(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "first.xlsx")
	second := filepath.Join(dir, "second.xlsx")

	require.NoError(t, Writer{}.Write(first, sampleExport()))
	require.NoError(t, Writer{}.Write(second, sampleExport()))

	a, err := Read(first)
	require.NoError(t, err)
	b, err := Read(second)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestWrite_UnwritablePath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing-dir", "out.xlsx")
	assert.Error(t, Writer{}.Write(path, sampleExport()))
}

func TestWrite_ClipsLongCells(t *testing.T) {
	long := strings.Repeat("あ", excelize.TotalCellChars+10)
	e := types.Export{Sheets: []types.Sheet{{
		Name:   "Long",
		Header: []string{"Text"},
		Rows:   [][]string{{long}},
	}}}

	path := filepath.Join(t.TempDir(), "out.xlsx")
	require.NoError(t, Writer{}.Write(path, e))

	got, err := Read(path)
	require.NoError(t, err)
	require.Len(t, got.Sheets[0].Rows, 1)
	assert.Equal(t, excelize.TotalCellChars, len([]rune(got.Sheets[0].Rows[0][0])))
}

func TestSheetNames(t *testing.T) {
	sheets := []types.Sheet{
		{Name: "Basic"},
		{Name: "basic"},
		{Name: "Basic"},
		{Name: "Kanji: [Radicals] / Primitives?"},
		{Name: "'quoted'"},
		{Name: ""},
		{Name: strings.Repeat("x", 40)},
		{Name: strings.Repeat("x", 40)},
	}

	got := sheetNames(sheets)

	assert.Equal(t, []string{
		"Basic",
		"basic (2)",
		"Basic (3)",
		"Kanji- (Radicals) - Primitives-",
		"quoted",
		"Sheet",
		strings.Repeat("x", 31),
		strings.Repeat("x", 27) + " (2)",
	}, got)
}
