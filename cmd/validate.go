// =============================================================================
// CSV to QIF Converter - Validate Command
// =============================================================================
//
// This file defines the 'validate' command, which loads a rule document and
// reports every problem found without converting anything.
//
// COMMAND USAGE:
//   converter validate --rules bank.yaml [--strict]
//
// =============================================================================

package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/validation"
)

// strict treats warnings as errors.
var strict bool

// validateCmd represents the 'validate' command.
var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check a rule document without converting",
	Long: `The validate command loads a rule document and checks its controls, field
mappings, expressions and rule tables. Every problem is listed; the command
fails if any of them is an error (or a warning, with --strict).`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := config.Load(rulesFile)
		if err != nil {
			return fmt.Errorf("failed to load rules: %w", err)
		}

		result := validation.NewValidatorWithOptions(doc, validation.ValidationOptions{
			TreatWarningsAsErrors: strict,
		}).ValidateAll()

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "Rule document: %s\n", rulesFile)
		fmt.Fprintf(out, "Account type:  %s\n", doc.AccountType())
		columns := make([]string, 0, len(doc.Columns))
		for _, c := range doc.Columns {
			columns = append(columns, c.Field+"="+config.ColumnLetter(c.Column))
		}
		fmt.Fprintf(out, "Columns:       %s\n", strings.Join(columns, ", "))
		if names := doc.AttributeNames(); len(names) > 0 {
			fmt.Fprintf(out, "Attributes:    %s\n", strings.Join(names, ", "))
		}
		fmt.Fprintln(out, validation.FormatErrors(result.Errors))

		if !result.IsValid {
			return fmt.Errorf("%d error(s), %d warning(s)", result.ErrorCount, result.WarningCount)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(validateCmd)
	addRulesFlag(validateCmd)
	validateCmd.Flags().BoolVar(&strict, "strict", false, "Treat warnings as errors")
}
