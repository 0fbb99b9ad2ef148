package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/anki-export/internal/apkg/apkgtest"
	"github.com/pdiddy/anki-export/internal/xlsx"
	"github.com/pdiddy/anki-export/pkg/types"
)

func TestCommandsRegistered(t *testing.T) {
	names := map[string]bool{}
	for _, c := range rootCmd.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"convert", "inspect", "version"} {
		assert.True(t, names[want], "missing subcommand %q", want)
	}
}

func TestConversionConfigDefaults(t *testing.T) {
	cfg := conversionConfig()
	assert.Equal(t, types.DefaultArchivePath, cfg.ArchivePath)
	assert.Equal(t, types.DefaultOutputPath, cfg.OutputPath)
	assert.Equal(t, types.FormatNone, cfg.Format)
	assert.False(t, cfg.SkipExisting)
}

func TestConversionConfigFromEnv(t *testing.T) {
	t.Setenv("ANKI_EXPORT_CONVERT_FORMAT", "header")
	t.Setenv("ANKI_EXPORT_CONVERT_OUTPUT", "env.xlsx")
	initConfig()

	cfg := conversionConfig()
	assert.Equal(t, types.FormatHeader, cfg.Format)
	assert.Equal(t, "env.xlsx", cfg.OutputPath)
}

func TestRunSingle(t *testing.T) {
	dir := t.TempDir()
	cfg := types.DefaultConversionConfig()
	cfg.ArchivePath = apkgtest.Build(t, dir, types.DefaultArchivePath, apkgtest.KanjiRadicals())
	cfg.OutputPath = filepath.Join(dir, types.DefaultOutputPath)

	var out bytes.Buffer
	require.NoError(t, runSingle(context.Background(), cfg, &out))
	assert.Contains(t, out.String(), "(3 cards)")

	got, err := xlsx.Read(cfg.OutputPath)
	require.NoError(t, err)
	assert.Equal(t, 3, got.RowCount())
}

func TestRunSingle_Errors(t *testing.T) {
	dir := t.TempDir()
	archive := apkgtest.Build(t, dir, "deck.apkg", apkgtest.KanjiRadicals())

	tests := []struct {
		name string
		cfg  types.ConversionConfig
	}{
		{
			name: "missing archive",
			cfg:  types.ConversionConfig{ArchivePath: filepath.Join(dir, "missing.apkg"), OutputPath: filepath.Join(dir, "a.xlsx")},
		},
		{
			name: "unwritable output",
			cfg:  types.ConversionConfig{ArchivePath: archive, OutputPath: filepath.Join(dir, "no-such-dir", "b.xlsx")},
		},
		{
			name: "unknown format",
			cfg:  types.ConversionConfig{ArchivePath: archive, OutputPath: filepath.Join(dir, "c.xlsx"), Format: "fancy"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			require.Error(t, runSingle(context.Background(), tt.cfg, &out))
			_, err := os.Stat(tt.cfg.OutputPath)
			assert.True(t, os.IsNotExist(err))
		})
	}
}

func TestRunBatch(t *testing.T) {
	dir := t.TempDir()
	decks := filepath.Join(dir, "decks")
	require.NoError(t, os.MkdirAll(decks, 0o755))
	apkgtest.Build(t, decks, "one.apkg", apkgtest.KanjiRadicals())
	apkgtest.Build(t, decks, "two.apkg", apkgtest.KanjiRadicals())

	cfg := types.DefaultConversionConfig()
	cfg.DecksDir = decks
	cfg.OutputDir = filepath.Join(dir, "sheets")

	var out bytes.Buffer
	require.NoError(t, runBatch(context.Background(), cfg, nil, &out))
	assert.Contains(t, out.String(), "Batch summary: 2 converted, 0 skipped, 0 failed (total: 2)")

	for _, name := range []string{"one.xlsx", "two.xlsx"} {
		_, err := os.Stat(filepath.Join(cfg.OutputDir, name))
		assert.NoError(t, err, name)
	}
}

func TestRunBatch_ReportsFailures(t *testing.T) {
	dir := t.TempDir()
	good := apkgtest.Build(t, dir, "good.apkg", apkgtest.KanjiRadicals())
	bad := filepath.Join(dir, "bad.apkg")
	require.NoError(t, os.WriteFile(bad, []byte("garbage"), 0o644))

	cfg := types.DefaultConversionConfig()
	cfg.OutputDir = filepath.Join(dir, "sheets")

	var out bytes.Buffer
	err := runBatch(context.Background(), cfg, []string{good, bad}, &out)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "1 of 2 archives failed")
	assert.Contains(t, out.String(), "converted: good")
}

func TestRunInspect(t *testing.T) {
	dir := t.TempDir()
	archive := apkgtest.Build(t, dir, "deck.apkg", apkgtest.KanjiRadicals())

	t.Run("yaml", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runInspect(context.Background(), archive, false, &out))

		var sum types.DeckSummary
		require.NoError(t, yaml.Unmarshal(out.Bytes(), &sum))
		assert.Equal(t, 3, sum.Cards)
		assert.Equal(t, "deck.apkg", sum.Archive)
	})

	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		require.NoError(t, runInspect(context.Background(), archive, true, &out))

		var sum types.DeckSummary
		require.NoError(t, json.Unmarshal(out.Bytes(), &sum))
		assert.Equal(t, 3, sum.Notes)
		require.Len(t, sum.NoteTypes, 1)
		assert.Equal(t, "Kanji Radical", sum.NoteTypes[0].Name)
	})

	t.Run("missing archive", func(t *testing.T) {
		var out bytes.Buffer
		assert.Error(t, runInspect(context.Background(), filepath.Join(dir, "missing.apkg"), false, &out))
	})
}

func TestVersionCommand(t *testing.T) {
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{"version"})
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetArgs(nil)
	})

	require.NoError(t, rootCmd.Execute())
	assert.True(t, strings.HasPrefix(out.String(), "anki-export "))
}
