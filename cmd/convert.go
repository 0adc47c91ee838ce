// =============================================================================
// CSV to QIF Converter - Convert Command
// =============================================================================
//
// This file defines the 'convert' command, the main command of the tool.
//
// COMMAND USAGE:
//   converter convert [input] [output] --rules FILE [flags]
//
// FLAGS:
//   --rules, -r   : Rule document (required)
//   --error-log   : Write an error log next to the output on failure
//
// PROCESSING PIPELINE:
//   1. Load and validate the rule document
//   2. Resolve input and output paths, check the input exists
//   3. Pick the row source (CSV or XLSX)
//   4. Run the converter; "prompt" vocabulary entries ask on the terminal
//   5. Move the output into place, or discard it on failure
//   6. Print a summary
//
// Ctrl-C cancels the run, including a pending prompt.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/converter"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/csvparser"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/logger"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/prompt"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/validation"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/xlsxparser"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/pkg/utils"
)

// =============================================================================
// COMMAND FLAGS
// =============================================================================

// errorLog writes an error log file when the conversion fails.
var errorLog bool

// =============================================================================
// CONVERT COMMAND DEFINITION
// =============================================================================

// convertCmd represents the 'convert' command.
var convertCmd = &cobra.Command{
	Use:   "convert [input] [output]",
	Short: "Convert one CSV or XLSX statement to QIF",
	Long: `The convert command reads one statement and writes one QIF file using the
rules of the given rule document.

The input and output may be given on the command line or through the
CsvFolder/CsvFile and QifFolder/QifFile controls. A bare file name on the
command line is looked up in the matching folder control; a path with a
directory is used as given. Without an output name the input name is reused
with a .qif extension.

Any error stops the conversion. The output file is only replaced when the
whole input converted; after a failure an existing output is left as it was.`,
	Args: cobra.MaximumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		var input, output string
		if len(args) > 0 {
			input = args[0]
		}
		if len(args) > 1 {
			output = args[1]
		}
		return runConvert(cmd, input, output)
	},
}

func init() {
	rootCmd.AddCommand(convertCmd)
	addRulesFlag(convertCmd)

	convertCmd.Flags().BoolVar(
		&errorLog,
		"error-log",
		false,
		"Write an error log next to the output file on failure",
	)
}

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

func runConvert(cmd *cobra.Command, input, output string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	log := logger.FromContext(ctx)

	// =========================================================================
	// STEP 1: LOAD AND VALIDATE RULES
	// =========================================================================

	doc, err := config.Load(rulesFile)
	if err != nil {
		return fmt.Errorf("failed to load rules: %w", err)
	}
	log.Debug().Str("rules", rulesFile).Str("account_type", doc.AccountType()).Msg("rule document loaded")

	check := validation.NewValidator(doc).ValidateAll()
	for _, problem := range check.Errors {
		if problem.Severity == validation.SeverityWarning {
			log.Warn().Str("rule", problem.Rule).Str("field", problem.Field).Msg(problem.Message)
		}
	}
	if err := check.Err(); err != nil {
		return err
	}

	// =========================================================================
	// STEP 2: RESOLVE PATHS
	// =========================================================================

	paths, err := utils.ResolvePaths(input, output, doc.Controls)
	if err != nil {
		return err
	}
	if err := utils.CheckInput(paths.Input); err != nil {
		return err
	}
	log.Debug().Str("input", paths.Input).Str("output", paths.Output).Msg("paths resolved")

	// =========================================================================
	// STEP 3: RUN
	// =========================================================================

	out, err := utils.CreateOutput(paths.Output)
	if err != nil {
		return err
	}

	conv := converter.New(doc, rowSource(paths.Input, doc.Controls), out, converter.Options{
		Prompter: prompt.NewConsole(os.Stdin, os.Stderr),
		Logger:   &log,
	})
	result := conv.Run(ctx)

	if result.Success {
		if err := out.Commit(); err != nil {
			result.Error = err
			result.Success = false
		}
	} else if err := out.Discard(); err != nil {
		log.Warn().Err(err).Msg("failed to remove temporary output")
	}

	// =========================================================================
	// STEP 4: SUMMARY
	// =========================================================================

	w := cmd.OutOrStdout()
	if !result.Success {
		fmt.Fprintf(w, "  ✗ %s: %v\n", filepath.Base(paths.Input), result.Error)
		if errorLog {
			writeErrorLog(log, result, paths)
		}
		return result.Error
	}

	fmt.Fprintf(w, "  ✓ %s -> %s\n", filepath.Base(paths.Input), paths.Output)
	fmt.Fprintf(w, "Rows read:       %d\n", result.Stats.RowsRead)
	fmt.Fprintf(w, "Records written: %d\n", result.Stats.RecordsWritten)
	if result.Stats.SecuritiesWritten > 0 {
		fmt.Fprintf(w, "Securities:      %d\n", result.Stats.SecuritiesWritten)
	}
	if b := result.Stats.Balance; b != nil {
		fmt.Fprintf(w, "Balance:         %s (%s)\n", b.Amount, b.Date.Format("2006-01-02"))
	}
	fmt.Fprintf(w, "Time elapsed:    %s\n", result.Stats.ProcessingTime)
	return nil
}

// =============================================================================
// HELPER FUNCTIONS
// =============================================================================

// rowSource picks the reader for the input file type.
func rowSource(path string, c config.Controls) converter.RowSource {
	if utils.IsSpreadsheet(path) {
		return xlsxparser.SourceFrom(path, c)
	}
	return &csvparser.Source{Path: path, Settings: csvparser.SettingsFrom(c)}
}

func writeErrorLog(log zerolog.Logger, result converter.Result, paths utils.Paths) {
	entry := utils.EntryFromError(result.Error, paths.Input, result.RunID)
	logPath, err := utils.WriteErrorLog([]utils.ErrorLogEntry{entry}, filepath.Dir(paths.Output))
	if err != nil {
		log.Error().Err(err).Msg("failed to write error log")
		return
	}
	log.Info().Str("path", logPath).Msg("error log written")
}
