package main

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/anki-export/internal/convert"
	"github.com/pdiddy/anki-export/internal/xlsx"
	"github.com/pdiddy/anki-export/pkg/types"
)

var convertCmd = &cobra.Command{
	Use:   "convert [archive] [output]",
	Short: "Convert Anki deck archives to Excel workbooks",
	Long: `Convert reads the cards of an Anki deck archive (.apkg) and writes them
to an Excel workbook (.xlsx). Each note type becomes a worksheet whose header
lists the note fields followed by Tags, Deck and Card; each card becomes a row
in creation order. An existing output file is overwritten.

With --batch, every .apkg in --decks-dir (or each archive given as an
argument) is converted into --output-dir, continuing past failures.`,
	Args:         cobra.MaximumNArgs(2),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := conversionConfig()
		out := cmd.ErrOrStderr()

		batch, _ := cmd.Flags().GetBool("batch")
		if batch {
			return runBatch(cmd.Context(), cfg, args, out)
		}

		if len(args) > 0 {
			cfg.ArchivePath = args[0]
		}
		if len(args) > 1 {
			cfg.OutputPath = args[1]
		}
		return runSingle(cmd.Context(), cfg, out)
	},
}

func init() {
	convertCmd.Flags().String("format", string(types.FormatNone), "cell formatting: none or header")
	convertCmd.Flags().Bool("batch", false, "convert many archives into --output-dir")
	convertCmd.Flags().String("decks-dir", "decks", "directory scanned for .apkg files in batch mode")
	convertCmd.Flags().String("output-dir", "sheets", "directory receiving workbooks in batch mode")
	convertCmd.Flags().Bool("skip-existing", false, "in batch mode, leave existing workbooks untouched")

	for key, flag := range map[string]string{
		keyFormat:       "format",
		keyDecksDir:     "decks-dir",
		keyOutputDir:    "output-dir",
		keySkipExisting: "skip-existing",
	} {
		if err := viper.BindPFlag(key, convertCmd.Flags().Lookup(flag)); err != nil {
			panic(err)
		}
	}

	rootCmd.AddCommand(convertCmd)
}

func newConverter(cfg types.ConversionConfig, log io.Writer) (*convert.Converter, error) {
	format, err := xlsx.ParseFormat(string(cfg.Format))
	if err != nil {
		return nil, err
	}
	return &convert.Converter{
		Open:         convert.OpenAPKG,
		Writer:       xlsx.Writer{Format: format},
		SkipExisting: cfg.SkipExisting,
		Log:          log,
	}, nil
}

// runSingle converts cfg.ArchivePath to cfg.OutputPath. Any error aborts the
// run and is returned unmodified.
func runSingle(ctx context.Context, cfg types.ConversionConfig, out io.Writer) error {
	c, err := newConverter(cfg, out)
	if err != nil {
		return err
	}

	rows, err := c.Convert(ctx, convert.Job{ArchivePath: cfg.ArchivePath, OutputPath: cfg.OutputPath})
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "converted: %s -> %s (%d cards)\n", cfg.ArchivePath, cfg.OutputPath, rows)
	return nil
}

// runBatch converts the given archives, or every archive in cfg.DecksDir
// when none are given, into cfg.OutputDir.
func runBatch(ctx context.Context, cfg types.ConversionConfig, archives []string, out io.Writer) error {
	c, err := newConverter(cfg, out)
	if err != nil {
		return err
	}

	var result convert.BatchResult
	if len(archives) > 0 {
		result, err = c.Paths(ctx, archives, cfg.OutputDir)
	} else {
		result, err = c.Dir(ctx, cfg.DecksDir, cfg.OutputDir)
	}
	if err != nil {
		return err
	}

	if result.HasFailures() {
		return fmt.Errorf("%d of %d archives failed", result.Failed, result.Total())
	}
	return nil
}
