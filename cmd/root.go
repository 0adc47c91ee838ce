// =============================================================================
// CSV to QIF Converter - Root Command
// =============================================================================
//
// This file defines the root command for the Cobra CLI. The root command is
// the base command that all other commands are attached to.
//
// COBRA CLI STRUCTURE:
//   rootCmd (converter)
//   ├── convertCmd (converter convert)
//   ├── validateCmd (converter validate)
//   └── versionCmd (converter version)
//
// The root command sets up the global --verbose flag and the logger every
// subcommand retrieves from its context.
//
// =============================================================================

package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/logger"
)

// =============================================================================
// GLOBAL VARIABLES
// =============================================================================

// verbose enables debug logging when set to true.
var verbose bool

// rulesFile holds the path to the rule document.
var rulesFile string

// =============================================================================
// ROOT COMMAND DEFINITION
// =============================================================================

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "converter",
	Short: "CSV to QIF Converter - Turn bank and broker exports into QIF files",
	Long: `CSV to QIF Converter transforms CSV (or XLSX) statements exported by banks
and brokers into Quicken Interchange Format files, driven by a rule document
that maps columns to QIF fields.

Key Features:
  - Column mapping by letter, with currency and grouping cleanup
  - Calculation, sign inversion and translation rules
  - Action and security type vocabularies, with interactive prompts
  - Bank, cash, credit card, asset, liability and investment accounts
  - Account header with the latest balance

Example Usage:
  converter convert statement.csv --rules bank.yaml
  converter convert in.csv out.qif --rules broker.json
  converter validate --rules bank.yaml`,

	SilenceUsage:  true,
	SilenceErrors: true,

	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		cmd.SetContext(logger.WithContext(cmd.Context(), logger.New(verbose)))
	},

	Run: func(cmd *cobra.Command, args []string) {
		// If no subcommand is provided, print the help message.
		cmd.Help()
	},
}

// =============================================================================
// EXECUTE FUNCTION
// =============================================================================

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// =============================================================================
// INITIALIZATION
// =============================================================================

func init() {
	// --verbose flag: Enables debug logging.
	rootCmd.PersistentFlags().BoolVarP(
		&verbose,
		"verbose",
		"v",
		false,
		"Enable verbose output for debugging",
	)
}

// addRulesFlag registers the required --rules flag on a command.
func addRulesFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(
		&rulesFile,
		"rules",
		"r",
		"",
		"Path to the rule document (YAML or JSON)",
	)
	cmd.MarkFlagRequired("rules")
}
