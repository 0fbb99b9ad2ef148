// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package apkgtest builds small Anki deck archives for tests and demos.
// Archives are real .apkg files: a go-sqlite3 collection zipped together
// with a JSON media manifest.
package apkgtest

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/anki-export/pkg/types"
)

// NoteType defines a note type and its card templates. A note produces one
// card per template.
type NoteType struct {
	ID        int64
	Name      string
	Fields    []string
	Templates []string
}

// Note is one note of the deck.
type Note struct {
	NoteTypeID int64
	DeckID     int64
	Fields     []string
	Tags       []string

	// CardIDs overrides the ids assigned to the note's cards, one per
	// template. Ids are otherwise assigned in increasing note order.
	CardIDs []int64
}

// Deck describes an archive to build.
type Deck struct {
	// Schema selects legacy JSON columns or normalized tables. Defaults to
	// types.SchemaLegacy.
	Schema types.SchemaSource

	// Collection is the archive entry name. Defaults to "collection.anki2".
	Collection string

	NoteTypes []NoteType
	Decks     map[int64]string
	Notes     []Note

	// Media maps archive entry names to original file names.
	Media map[string]string
}

// KanjiRadicals returns the three-card radical deck used in examples.
func KanjiRadicals() Deck {
	return Deck{
		NoteTypes: []NoteType{{
			ID:        1342697561419,
			Name:      "Kanji Radical",
			Fields:    []string{"Radical", "Meaning", "Strokes"},
			Templates: []string{"Recognition"},
		}},
		Decks: map[int64]string{1: "Default", 1500000000001: "Kanji::Radicals"},
		Notes: []Note{
			{NoteTypeID: 1342697561419, DeckID: 1500000000001, Fields: []string{"一", "one", "1"}, Tags: []string{"radical"}},
			{NoteTypeID: 1342697561419, DeckID: 1500000000001, Fields: []string{"丨", "line", "1"}, Tags: []string{"radical"}},
			{NoteTypeID: 1342697561419, DeckID: 1500000000001, Fields: []string{"<b>丶</b>", "dot", "1"}, Tags: []string{"radical", "primitive"}},
		},
	}
}

// Build writes the deck to dir/name and returns the archive path. It fails
// the test on any error.
func Build(t testing.TB, dir, name string, d Deck) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := Write(path, d); err != nil {
		t.Fatalf("building %s: %v", name, err)
	}
	return path
}

// Write creates the archive at path, replacing any existing file.
func Write(path string, d Deck) error {
	if d.Collection == "" {
		d.Collection = "collection.anki2"
	}
	if d.Schema == "" {
		d.Schema = types.SchemaLegacy
	}

	tmpDir, err := os.MkdirTemp("", "apkgtest-*")
	if err != nil {
		return fmt.Errorf("creating temp dir: %w", err)
	}
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, d.Collection)
	if err := writeCollection(dbPath, d); err != nil {
		return err
	}

	collection, err := os.ReadFile(dbPath)
	if err != nil {
		return fmt.Errorf("reading collection: %w", err)
	}

	media := d.Media
	if media == nil {
		media = map[string]string{}
	}
	manifest, err := json.Marshal(media)
	if err != nil {
		return fmt.Errorf("marshaling media manifest: %w", err)
	}

	return WriteEntries(path, map[string][]byte{
		d.Collection: collection,
		"media":      manifest,
	})
}

// WriteEntries zips the given entries into path. It is exported so tests
// can build malformed archives.
func WriteEntries(path string, entries map[string][]byte) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating archive: %w", err)
	}

	zw := zip.NewWriter(f)
	for name, data := range entries {
		w, err := zw.Create(name)
		if err != nil {
			f.Close()
			return fmt.Errorf("adding %s: %w", name, err)
		}
		if _, err := w.Write(data); err != nil {
			f.Close()
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		f.Close()
		return fmt.Errorf("finishing archive: %w", err)
	}
	return f.Close()
}

const legacySchema = `
CREATE TABLE col (
	id integer primary key, crt integer not null, mod integer not null,
	scm integer not null, ver integer not null, dty integer not null,
	usn integer not null, ls integer not null, conf text not null,
	models text not null, decks text not null, dconf text not null,
	tags text not null
);
CREATE TABLE notes (
	id integer primary key, guid text not null, mid integer not null,
	mod integer not null, usn integer not null, tags text not null,
	flds text not null, sfld integer not null, csum integer not null,
	flags integer not null, data text not null
);
CREATE TABLE cards (
	id integer primary key, nid integer not null, did integer not null,
	ord integer not null, mod integer not null, usn integer not null,
	type integer not null, queue integer not null, due integer not null,
	ivl integer not null, factor integer not null, reps integer not null,
	lapses integer not null, left integer not null, odue integer not null,
	odid integer not null, flags integer not null, data text not null
);`

const tableSchema = `
CREATE TABLE notetypes (
	id integer not null primary key, name text not null,
	mtime_secs integer not null, usn integer not null, config blob not null
);
CREATE TABLE fields (
	ntid integer not null, ord integer not null, name text not null,
	config blob not null, primary key (ntid, ord)
) without rowid;
CREATE TABLE templates (
	ntid integer not null, ord integer not null, name text not null,
	mtime_secs integer not null, usn integer not null, config blob not null,
	primary key (ntid, ord)
) without rowid;
CREATE TABLE decks (
	id integer primary key not null, name text not null,
	mtime_secs integer not null, usn integer not null,
	common blob not null, kind blob not null
);`

func writeCollection(dbPath string, d Deck) error {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return fmt.Errorf("opening collection: %w", err)
	}
	defer db.Close()

	if _, err := db.Exec(legacySchema); err != nil {
		return fmt.Errorf("creating legacy schema: %w", err)
	}

	models, decks := "", ""
	switch d.Schema {
	case types.SchemaLegacy:
		if models, decks, err = legacyJSON(d); err != nil {
			return err
		}
	case types.SchemaTables:
		if err := writeTables(db, d); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown schema %q", d.Schema)
	}

	if _, err := db.Exec(
		`INSERT INTO col VALUES (1, 0, 0, 0, 11, 0, 0, 0, '{}', ?, ?, '{}', '{}')`,
		models, decks,
	); err != nil {
		return fmt.Errorf("inserting col: %w", err)
	}

	cardID := int64(1000)
	for i, n := range d.Notes {
		noteID := int64(i + 1)
		_, err := db.Exec(
			`INSERT INTO notes VALUES (?, ?, ?, 0, 0, ?, ?, 0, 0, 0, '')`,
			noteID, "guid"+strconv.FormatInt(noteID, 10), n.NoteTypeID,
			formatTags(n.Tags), strings.Join(n.Fields, "\x1f"),
		)
		if err != nil {
			return fmt.Errorf("inserting note %d: %w", noteID, err)
		}

		for ord, count := 0, templateCount(d, n.NoteTypeID); ord < count; ord++ {
			id := cardID
			if ord < len(n.CardIDs) {
				id = n.CardIDs[ord]
			}
			cardID++
			_, err := db.Exec(
				`INSERT INTO cards VALUES (?, ?, ?, ?, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, '')`,
				id, noteID, n.DeckID, ord,
			)
			if err != nil {
				return fmt.Errorf("inserting card %d: %w", id, err)
			}
		}
	}
	return nil
}

func legacyJSON(d Deck) (string, string, error) {
	type ordinal struct {
		Name string `json:"name"`
		Ord  int    `json:"ord"`
	}
	type model struct {
		ID    int64     `json:"id"`
		Name  string    `json:"name"`
		Flds  []ordinal `json:"flds"`
		Tmpls []ordinal `json:"tmpls"`
	}

	models := make(map[string]model, len(d.NoteTypes))
	for _, nt := range d.NoteTypes {
		m := model{ID: nt.ID, Name: nt.Name}
		for i, f := range nt.Fields {
			m.Flds = append(m.Flds, ordinal{Name: f, Ord: i})
		}
		for i, tmpl := range nt.Templates {
			m.Tmpls = append(m.Tmpls, ordinal{Name: tmpl, Ord: i})
		}
		models[strconv.FormatInt(nt.ID, 10)] = m
	}

	decks := make(map[string]map[string]any, len(d.Decks))
	for id, name := range d.Decks {
		decks[strconv.FormatInt(id, 10)] = map[string]any{"id": id, "name": name}
	}

	mj, err := json.Marshal(models)
	if err != nil {
		return "", "", fmt.Errorf("marshaling models: %w", err)
	}
	dj, err := json.Marshal(decks)
	if err != nil {
		return "", "", fmt.Errorf("marshaling decks: %w", err)
	}
	return string(mj), string(dj), nil
}

func writeTables(db *sql.DB, d Deck) error {
	if _, err := db.Exec(tableSchema); err != nil {
		return fmt.Errorf("creating table schema: %w", err)
	}
	for _, nt := range d.NoteTypes {
		if _, err := db.Exec(`INSERT INTO notetypes VALUES (?, ?, 0, 0, x'')`, nt.ID, nt.Name); err != nil {
			return fmt.Errorf("inserting note type %s: %w", nt.Name, err)
		}
		for ord, name := range nt.Fields {
			if _, err := db.Exec(`INSERT INTO fields VALUES (?, ?, ?, x'')`, nt.ID, ord, name); err != nil {
				return fmt.Errorf("inserting field %s: %w", name, err)
			}
		}
		for ord, name := range nt.Templates {
			if _, err := db.Exec(`INSERT INTO templates VALUES (?, ?, ?, 0, 0, x'')`, nt.ID, ord, name); err != nil {
				return fmt.Errorf("inserting template %s: %w", name, err)
			}
		}
	}
	for id, name := range d.Decks {
		stored := strings.ReplaceAll(name, "::", "\x1f")
		if _, err := db.Exec(`INSERT INTO decks VALUES (?, ?, 0, 0, x'', x'')`, id, stored); err != nil {
			return fmt.Errorf("inserting deck %s: %w", name, err)
		}
	}
	return nil
}

func templateCount(d Deck, mid int64) int {
	for _, nt := range d.NoteTypes {
		if nt.ID == mid {
			return max(len(nt.Templates), 1)
		}
	}
	return 1
}

// formatTags renders tags the way Anki stores them: space separated with
// a leading and trailing space.
func formatTags(tags []string) string {
	if len(tags) == 0 {
		return ""
	}
	return " " + strings.Join(tags, " ") + " "
}
