// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package apkg

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/anki-export/pkg/types"
)

const (
	// fieldSeparator separates field values in notes.flds.
	fieldSeparator = "\x1f"

	// trailingColumns counts the Tags, Deck and Card columns.
	trailingColumns = 3
)

// Export returns one row per card, grouped into a sheet per note type.
// Rows follow card id order, which is card creation order. Field values are
// copied verbatim.
func (r *Reader) Export(ctx context.Context) (types.Export, error) {
	s, err := r.loadSchema(ctx)
	if err != nil {
		return types.Export{}, err
	}

	// Cards moved to a filtered deck keep their home deck in odid.
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.ord, CASE WHEN c.odid != 0 THEN c.odid ELSE c.did END,
			n.mid, n.flds, n.tags
		FROM cards c
		JOIN notes n ON n.id = c.nid
		ORDER BY c.id`)
	if err != nil {
		return types.Export{}, fmt.Errorf("querying cards: %w", err)
	}
	defer rows.Close()

	var (
		sheets []*types.Sheet
		byMid  = make(map[int64]*types.Sheet)
	)

	for rows.Next() {
		var (
			ord        int
			did, mid   int64
			flds, tags string
		)
		if err := rows.Scan(&ord, &did, &mid, &flds, &tags); err != nil {
			return types.Export{}, fmt.Errorf("scanning card: %w", err)
		}

		fields := strings.Split(flds, fieldSeparator)
		nt, known := s.noteTypes[mid]

		sheet, ok := byMid[mid]
		if !ok {
			sheet = newSheet(mid, nt, known, len(fields))
			byMid[mid] = sheet
			sheets = append(sheets, sheet)
		}

		row := fitFields(fields, len(sheet.Header)-trailingColumns)
		row = append(row,
			strings.Join(strings.Fields(tags), " "),
			s.deckName(did),
			templateName(nt, ord),
		)
		sheet.Rows = append(sheet.Rows, row)
	}
	if err := rows.Err(); err != nil {
		return types.Export{}, fmt.Errorf("iterating cards: %w", err)
	}

	out := types.Export{Sheets: make([]types.Sheet, len(sheets))}
	for i, sh := range sheets {
		out.Sheets[i] = *sh
	}
	return out, nil
}

// newSheet creates the sheet for a note type. Unknown note types get generic
// field headers sized from the first note seen.
func newSheet(mid int64, nt types.NoteType, known bool, fieldCount int) *types.Sheet {
	sheet := &types.Sheet{}
	if known {
		sheet.Name = nt.Name
		sheet.Header = append(sheet.Header, nt.Fields...)
	} else {
		sheet.Name = "Unknown " + strconv.FormatInt(mid, 10)
		for i := 1; i <= fieldCount; i++ {
			sheet.Header = append(sheet.Header, "Field "+strconv.Itoa(i))
		}
	}
	sheet.Header = append(sheet.Header, types.ColumnTags, types.ColumnDeck, types.ColumnCard)
	return sheet
}

// fitFields pads or truncates fields to exactly n values.
func fitFields(fields []string, n int) []string {
	out := make([]string, n)
	copy(out, fields)
	return out
}

// templateName returns the name of the card template at ord. Cloze note
// types have a single template but one ord per cloze number, so ords past
// the template list are labelled by number.
func templateName(nt types.NoteType, ord int) string {
	if ord >= 0 && ord < len(nt.Templates) {
		return nt.Templates[ord]
	}
	return "Card " + strconv.Itoa(ord+1)
}

// Summary describes the archive's decks, note types and sizes.
func (r *Reader) Summary(ctx context.Context) (types.DeckSummary, error) {
	s, err := r.loadSchema(ctx)
	if err != nil {
		return types.DeckSummary{}, err
	}

	sum := types.DeckSummary{
		Archive:    filepath.Base(r.path),
		Collection: r.collection,
		Schema:     s.source,
		Media:      len(r.media),
	}

	for _, q := range []struct {
		table string
		dst   *int
	}{
		{"notes", &sum.Notes},
		{"cards", &sum.Cards},
	} {
		if err := r.db.QueryRowContext(ctx, `SELECT count(*) FROM `+q.table).Scan(q.dst); err != nil {
			return types.DeckSummary{}, fmt.Errorf("counting %s: %w", q.table, err)
		}
	}

	for _, name := range s.decks {
		sum.Decks = append(sum.Decks, name)
	}
	sort.Strings(sum.Decks)

	for _, nt := range s.noteTypes {
		sum.NoteTypes = append(sum.NoteTypes, nt)
	}
	sort.Slice(sum.NoteTypes, func(i, j int) bool {
		return sum.NoteTypes[i].Name < sum.NoteTypes[j].Name
	})

	return sum, nil
}
