// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package apkg

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/pdiddy/anki-export/pkg/types"
)

// deckSeparator separates deck name components in the decks table. The
// legacy JSON form and the Anki UI use "::".
const deckSeparator = "\x1f"

// schema holds the note types and decks of a collection.
type schema struct {
	source    types.SchemaSource
	noteTypes map[int64]types.NoteType
	decks     map[int64]string
}

// legacyModel mirrors the subset of a col.models entry we read.
type legacyModel struct {
	Name  string          `json:"name"`
	Flds  []legacyOrdinal `json:"flds"`
	Tmpls []legacyOrdinal `json:"tmpls"`
}

type legacyOrdinal struct {
	Name string `json:"name"`
	Ord  int    `json:"ord"`
}

type legacyDeck struct {
	Name string `json:"name"`
}

// loadSchema reads note types and decks, preferring the legacy JSON columns
// of the col table and falling back to the normalized tables when those
// columns are empty.
func (r *Reader) loadSchema(ctx context.Context) (*schema, error) {
	var models, decks string
	err := r.db.QueryRowContext(ctx, `SELECT models, decks FROM col LIMIT 1`).Scan(&models, &decks)
	if err != nil {
		return nil, fmt.Errorf("reading col table: %w", err)
	}

	if isEmptyJSON(models) {
		return r.loadTableSchema(ctx)
	}
	return parseLegacySchema(models, decks)
}

func isEmptyJSON(s string) bool {
	s = strings.TrimSpace(s)
	return s == "" || s == "{}"
}

func parseLegacySchema(models, decks string) (*schema, error) {
	var rawModels map[string]legacyModel
	if err := json.Unmarshal([]byte(models), &rawModels); err != nil {
		return nil, fmt.Errorf("parsing note types: %w", err)
	}

	s := &schema{
		source:    types.SchemaLegacy,
		noteTypes: make(map[int64]types.NoteType, len(rawModels)),
		decks:     make(map[int64]string),
	}

	for key, m := range rawModels {
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("parsing note type id %q: %w", key, err)
		}
		s.noteTypes[id] = types.NoteType{
			ID:        id,
			Name:      m.Name,
			Fields:    sortedNames(m.Flds),
			Templates: sortedNames(m.Tmpls),
		}
	}

	if !isEmptyJSON(decks) {
		var rawDecks map[string]legacyDeck
		if err := json.Unmarshal([]byte(decks), &rawDecks); err != nil {
			return nil, fmt.Errorf("parsing decks: %w", err)
		}
		for key, d := range rawDecks {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parsing deck id %q: %w", key, err)
			}
			s.decks[id] = d.Name
		}
	}

	return s, nil
}

func sortedNames(items []legacyOrdinal) []string {
	sorted := make([]legacyOrdinal, len(items))
	copy(sorted, items)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Ord < sorted[j].Ord })

	names := make([]string, len(sorted))
	for i, it := range sorted {
		names[i] = it.Name
	}
	return names
}

func (r *Reader) loadTableSchema(ctx context.Context) (*schema, error) {
	s := &schema{
		source:    types.SchemaTables,
		noteTypes: make(map[int64]types.NoteType),
		decks:     make(map[int64]string),
	}

	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM notetypes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("querying note types: %w", err)
	}
	for rows.Next() {
		var nt types.NoteType
		if err := rows.Scan(&nt.ID, &nt.Name); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scanning note type: %w", err)
		}
		s.noteTypes[nt.ID] = nt
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating note types: %w", err)
	}

	if err := r.loadOrdinals(ctx, s, "fields", func(nt *types.NoteType, name string) {
		nt.Fields = append(nt.Fields, name)
	}); err != nil {
		return nil, err
	}
	if err := r.loadOrdinals(ctx, s, "templates", func(nt *types.NoteType, name string) {
		nt.Templates = append(nt.Templates, name)
	}); err != nil {
		return nil, err
	}

	deckRows, err := r.db.QueryContext(ctx, `SELECT id, name FROM decks`)
	if err != nil {
		return nil, fmt.Errorf("querying decks: %w", err)
	}
	defer deckRows.Close()
	for deckRows.Next() {
		var (
			id   int64
			name string
		)
		if err := deckRows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scanning deck: %w", err)
		}
		s.decks[id] = strings.ReplaceAll(name, deckSeparator, "::")
	}
	if err := deckRows.Err(); err != nil {
		return nil, fmt.Errorf("iterating decks: %w", err)
	}

	return s, nil
}

// loadOrdinals appends the names of the fields or templates table to their
// note types in ordinal order.
func (r *Reader) loadOrdinals(ctx context.Context, s *schema, table string, add func(*types.NoteType, string)) error {
	rows, err := r.db.QueryContext(ctx, `SELECT ntid, name FROM `+table+` ORDER BY ntid, ord`)
	if err != nil {
		return fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			ntid int64
			name string
		)
		if err := rows.Scan(&ntid, &name); err != nil {
			return fmt.Errorf("scanning %s: %w", table, err)
		}
		nt, ok := s.noteTypes[ntid]
		if !ok {
			continue
		}
		add(&nt, name)
		s.noteTypes[ntid] = nt
	}
	return rows.Err()
}

// deckName returns the deck's display name, or its id when the deck is not
// defined in the collection.
func (s *schema) deckName(id int64) string {
	if name, ok := s.decks[id]; ok {
		return name
	}
	return strconv.FormatInt(id, 10)
}
