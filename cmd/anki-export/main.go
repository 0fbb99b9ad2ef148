// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the anki-export CLI. Run bare, it
// converts Kanji_Radical_Primitive.apkg to radical.xlsx; subcommands convert
// other archives in single or batch mode and inspect archive contents.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/anki-export/pkg/types"
)

// version is set at build time via ldflags.
var version = "dev"

// Config keys for the convert settings. Environment variables use the
// ANKI_EXPORT_ prefix with dots replaced by underscores.
const (
	keyArchive      = "convert.archive"
	keyOutput       = "convert.output"
	keyFormat       = "convert.format"
	keyDecksDir     = "convert.decks_dir"
	keyOutputDir    = "convert.output_dir"
	keySkipExisting = "convert.skip_existing"
)

// rootCmd is the base command for the anki-export CLI.
var rootCmd = &cobra.Command{
	Use:   "anki-export",
	Short: "Export Anki deck archives to Excel spreadsheets",
	Long: `anki-export reads Anki deck archives (.apkg) and writes their cards to
Excel workbooks (.xlsx), one worksheet per note type and one row per card.

Run without a subcommand to convert the configured archive
(default Kanji_Radical_Primitive.apkg) to the configured output
(default radical.xlsx) with format "none".`,
	Args:         cobra.NoArgs,
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSingle(cmd.Context(), conversionConfig(), cmd.ErrOrStderr())
	},
}

func init() {
	cobra.OnInitialize(initConfig)
	setConfigDefaults()

	rootCmd.PersistentFlags().String("config", "", "config file (default: ./anki-export.yaml or ~/.config/anki-export/config.yaml)")
}

func setConfigDefaults() {
	d := types.DefaultConversionConfig()
	viper.SetDefault(keyArchive, d.ArchivePath)
	viper.SetDefault(keyOutput, d.OutputPath)
	viper.SetDefault(keyFormat, string(d.Format))
	viper.SetDefault(keyDecksDir, d.DecksDir)
	viper.SetDefault(keyOutputDir, d.OutputDir)
	viper.SetDefault(keySkipExisting, d.SkipExisting)
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("anki-export")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "anki-export"))
		}
	}

	viper.SetEnvPrefix("ANKI_EXPORT")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	} else if cfgFile != "" {
		fmt.Fprintf(os.Stderr, "warning: reading config %s: %v\n", cfgFile, err)
	}
}

// conversionConfig resolves the convert settings from flags, environment,
// config file and defaults, in that order of precedence.
func conversionConfig() types.ConversionConfig {
	return types.ConversionConfig{
		ArchivePath:  viper.GetString(keyArchive),
		OutputPath:   viper.GetString(keyOutput),
		Format:       types.OutputFormat(viper.GetString(keyFormat)),
		DecksDir:     viper.GetString(keyDecksDir),
		OutputDir:    viper.GetString(keyOutputDir),
		SkipExisting: viper.GetBool(keySkipExisting),
	}
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
