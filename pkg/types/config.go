// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

// OutputFormat selects how spreadsheet cells are styled.
type OutputFormat string

const (
	// FormatNone writes plain cells with the spreadsheet library's default
	// formatting.
	FormatNone OutputFormat = "none"

	// FormatHeader writes a bold header row and freezes it.
	FormatHeader OutputFormat = "header"
)

// Default paths used when the CLI runs without arguments.
const (
	DefaultArchivePath = "Kanji_Radical_Primitive.apkg"
	DefaultOutputPath  = "radical.xlsx"
)

// ConversionConfig holds settings for the convert command.
type ConversionConfig struct {
	// ArchivePath is the .apkg file converted in single mode.
	ArchivePath string `json:"archive" yaml:"archive" mapstructure:"archive"`

	// OutputPath is the .xlsx file written in single mode.
	OutputPath string `json:"output" yaml:"output" mapstructure:"output"`

	// Format selects cell styling: none or header.
	Format OutputFormat `json:"format" yaml:"format" mapstructure:"format"`

	// DecksDir is scanned for *.apkg files in batch mode.
	DecksDir string `json:"decks_dir" yaml:"decks_dir" mapstructure:"decks_dir"`

	// OutputDir receives one .xlsx per archive in batch mode.
	OutputDir string `json:"output_dir" yaml:"output_dir" mapstructure:"output_dir"`

	// SkipExisting leaves existing workbooks untouched in batch mode.
	// Single mode always overwrites.
	SkipExisting bool `json:"skip_existing" yaml:"skip_existing" mapstructure:"skip_existing"`
}

// DefaultConversionConfig returns the configuration of a bare invocation.
func DefaultConversionConfig() ConversionConfig {
	return ConversionConfig{
		ArchivePath: DefaultArchivePath,
		OutputPath:  DefaultOutputPath,
		Format:      FormatNone,
		DecksDir:    "decks",
		OutputDir:   "sheets",
	}
}
