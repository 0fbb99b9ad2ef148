// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package apkg reads Anki deck archives (.apkg). An archive is a zip file
// holding a SQLite collection database and a media manifest; Reader exposes
// the collection's cards as an ordered, tabular export.
package apkg

import (
	"archive/zip"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrNoCollection is returned when the archive holds no collection database.
	ErrNoCollection = errors.New("archive contains no collection database")

	// ErrUnsupportedCollection is returned for archives exported in the
	// compressed collection.anki21b format without legacy compatibility.
	ErrUnsupportedCollection = errors.New("compressed collection.anki21b is not supported; re-export with legacy compatibility enabled")
)

const (
	compressedCollection = "collection.anki21b"
	mediaManifest        = "media"
)

// collectionNames lists the collection entries Open accepts, most recent first.
var collectionNames = []string{"collection.anki21", "collection.anki2"}

// Reader is an open deck archive. The collection database is extracted to a
// temporary file for the lifetime of the Reader; Close releases both.
type Reader struct {
	path       string
	collection string
	tmpPath    string
	db         *sql.DB
	media      map[string]string

	closeOnce sync.Once
	closeErr  error
}

// Open opens the archive at path and prepares its collection for reading.
// The caller must Close the returned Reader.
func Open(path string) (*Reader, error) {
	zr, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("opening archive %s: %w", path, err)
	}
	defer zr.Close()

	entries := make(map[string]*zip.File, len(zr.File))
	for _, f := range zr.File {
		entries[f.Name] = f
	}

	if _, ok := entries[compressedCollection]; ok {
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedCollection)
	}

	var entry *zip.File
	for _, name := range collectionNames {
		if f, ok := entries[name]; ok {
			entry = f
			break
		}
	}
	if entry == nil {
		return nil, fmt.Errorf("%s: %w", path, ErrNoCollection)
	}

	tmpPath, err := extractEntry(entry)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+tmpPath+"?mode=ro")
	if err != nil {
		os.Remove(tmpPath)
		return nil, fmt.Errorf("opening collection %s: %w", entry.Name, err)
	}

	// sql.Open is lazy and SQLite accepts any file until it is queried.
	var tables int
	if err := db.QueryRow(`SELECT count(*) FROM sqlite_master`).Scan(&tables); err != nil {
		db.Close()
		os.Remove(tmpPath)
		return nil, fmt.Errorf("reading collection %s in %s: %w", entry.Name, path, err)
	}

	return &Reader{
		path:       path,
		collection: entry.Name,
		tmpPath:    tmpPath,
		db:         db,
		media:      readMedia(entries[mediaManifest]),
	}, nil
}

// Close releases the database connection and removes the extracted
// collection. It is safe to call more than once.
func (r *Reader) Close() error {
	r.closeOnce.Do(func() {
		dbErr := r.db.Close()
		rmErr := os.Remove(r.tmpPath)
		if rmErr != nil && os.IsNotExist(rmErr) {
			rmErr = nil
		}
		r.closeErr = errors.Join(dbErr, rmErr)
	})
	return r.closeErr
}

// Path returns the archive path the Reader was opened with.
func (r *Reader) Path() string { return r.path }

// Collection returns the name of the collection entry being read.
func (r *Reader) Collection() string { return r.collection }

// Media returns the media manifest, mapping archive entry names ("0", "1",
// ...) to original file names. It is empty when the archive has no media or
// the manifest is not in the legacy JSON form.
func (r *Reader) Media() map[string]string {
	out := make(map[string]string, len(r.media))
	for k, v := range r.media {
		out[k] = v
	}
	return out
}

// extractEntry copies a zip entry into a new temporary file and returns its path.
func extractEntry(f *zip.File) (string, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("opening %s: %w", f.Name, err)
	}
	defer rc.Close()

	tmp, err := os.CreateTemp("", "apkg-*"+filepath.Ext(f.Name))
	if err != nil {
		return "", fmt.Errorf("creating temp file for %s: %w", f.Name, err)
	}

	if _, err := io.Copy(tmp, rc); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("extracting %s: %w", f.Name, err)
	}
	return tmp.Name(), nil
}

// readMedia parses the legacy JSON media manifest. Missing or undecodable
// manifests yield an empty map; media never affects the card export.
func readMedia(f *zip.File) map[string]string {
	media := map[string]string{}
	if f == nil {
		return media
	}
	rc, err := f.Open()
	if err != nil {
		return media
	}
	defer rc.Close()

	var m map[string]string
	if err := json.NewDecoder(rc).Decode(&m); err != nil {
		return media
	}
	for k, v := range m {
		media[k] = v
	}
	return media
}
