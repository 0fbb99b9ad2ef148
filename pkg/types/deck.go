// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// ConversionStatus indicates the outcome of converting one deck archive.
type ConversionStatus string

const (
	ConversionNone   ConversionStatus = "none"
	ConversionDone   ConversionStatus = "converted"
	ConversionFailed ConversionStatus = "failed"
)

// Fixed trailing columns appended after a note type's own fields.
const (
	ColumnTags = "Tags"
	ColumnDeck = "Deck"
	ColumnCard = "Card"
)

// Sheet is the tabular export of every card belonging to one note type.
type Sheet struct {
	// Name is the note type name. Writers may sanitise it for their format.
	Name string `json:"name" yaml:"name"`

	// Header lists the note type's field names in field order, followed by
	// ColumnTags, ColumnDeck and ColumnCard.
	Header []string `json:"header" yaml:"header"`

	// Rows holds one row per card in card creation order. Every row has
	// len(Header) cells.
	Rows [][]string `json:"rows" yaml:"rows"`
}

// Export is the ordered record set produced from a deck archive. Sheets
// appear in the order their note type is first seen in card order.
type Export struct {
	Sheets []Sheet `json:"sheets" yaml:"sheets"`
}

// RowCount returns the number of data rows across all sheets.
func (e Export) RowCount() int {
	n := 0
	for _, s := range e.Sheets {
		n += len(s.Rows)
	}
	return n
}

// SchemaSource identifies where note types and decks were read from.
type SchemaSource string

const (
	// SchemaLegacy means the JSON models/decks columns of the col table.
	SchemaLegacy SchemaSource = "legacy"
	// SchemaTables means the notetypes, fields and decks tables.
	SchemaTables SchemaSource = "tables"
)

// NoteType describes an Anki note type (model).
type NoteType struct {
	ID        int64    `json:"id" yaml:"id"`
	Name      string   `json:"name" yaml:"name"`
	Fields    []string `json:"fields" yaml:"fields"`
	Templates []string `json:"templates" yaml:"templates"`
}

// DeckSummary describes the contents of a deck archive without exporting it.
type DeckSummary struct {
	// Archive is the base name of the .apkg file.
	Archive string `json:"archive" yaml:"archive"`

	// Collection is the name of the collection entry read from the archive
	// (e.g. "collection.anki21").
	Collection string `json:"collection" yaml:"collection"`

	Schema    SchemaSource `json:"schema" yaml:"schema"`
	Decks     []string     `json:"decks" yaml:"decks"`
	NoteTypes []NoteType   `json:"note_types" yaml:"note_types"`
	Notes     int          `json:"notes" yaml:"notes"`
	Cards     int          `json:"cards" yaml:"cards"`
	Media     int          `json:"media" yaml:"media"`
}
