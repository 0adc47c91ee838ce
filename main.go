// =============================================================================
// CSV to QIF Converter - Main Entry Point
// =============================================================================
//
// This is the main entry point for the CSV to QIF Converter CLI application.
// It delegates command execution to the cmd package.
//
// USAGE:
//   converter convert   - Convert one statement to QIF
//   converter validate  - Check a rule document without converting
//   converter version   - Display the application version
//
// ARCHITECTURE:
//   - cmd/           : CLI command definitions (Cobra)
//   - internal/      : Core conversion logic
//   - pkg/           : Shared file utilities
//   - configs/       : Example rule documents
//
// =============================================================================

package main

import (
	"github.com/ginjaninja78/CSV-to-QIF-conversion/cmd"
)

func main() {
	cmd.Execute()
}
