package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/pdiddy/anki-export/internal/apkg"
)

var inspectCmd = &cobra.Command{
	Use:   "inspect [archive]",
	Short: "Summarize the decks, note types and cards in an archive",
	Long: `Inspect opens an Anki deck archive and prints its decks, note types with
their fields, note and card counts, and the number of media files. Output is
YAML unless --json is given. Without an argument the configured archive is
inspected.`,
	Args:         cobra.MaximumNArgs(1),
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := conversionConfig().ArchivePath
		if len(args) > 0 {
			path = args[0]
		}
		asJSON, _ := cmd.Flags().GetBool("json")
		return runInspect(cmd.Context(), path, asJSON, cmd.OutOrStdout())
	},
}

func init() {
	inspectCmd.Flags().Bool("json", false, "output the summary as JSON")

	rootCmd.AddCommand(inspectCmd)
}

func runInspect(ctx context.Context, path string, asJSON bool, w io.Writer) error {
	r, err := apkg.Open(path)
	if err != nil {
		return err
	}
	defer r.Close()

	sum, err := r.Summary(ctx)
	if err != nil {
		return fmt.Errorf("summarizing %s: %w", path, err)
	}

	if asJSON {
		data, err := json.MarshalIndent(sum, "", "  ")
		if err != nil {
			return fmt.Errorf("marshaling JSON: %w", err)
		}
		_, err = fmt.Fprintln(w, string(data))
		return err
	}

	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(sum); err != nil {
		return fmt.Errorf("marshaling YAML: %w", err)
	}
	return enc.Close()
}
