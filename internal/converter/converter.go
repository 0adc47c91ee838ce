// =============================================================================
// CSV to QIF Converter - Converter Module
// =============================================================================
//
// This module contains the conversion orchestrator. It sequences one run from
// loaded rows to a finished QIF document.
//
// CONVERSION PIPELINE:
//   1. Check the rule document (CsvTimeFormat, account type)
//   2. Read every row from the source once
//   3. Write the account header, with the latest balance if configured
//   4. Investment accounts: transform every row, then write the securities
//   5. Write the transactions
//
// STATES:
//   Init -> HeaderEmitted -> (SecurityPassDone) -> RowsEmitted -> Done
//   Any error moves the converter to Failed. A converter runs once.
//
// FAILURE:
//   Every error is fatal to the run. Records written before the failing row
//   are complete and flushed; nothing of the failing row is written.
//
// =============================================================================

package converter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/logger"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/qifwriter"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/timefmt"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// =============================================================================
// RESULT STRUCTURE
// =============================================================================

// Result represents the outcome of one conversion run.
type Result struct {
	// RunID identifies the run in logs and error logs.
	RunID string

	// Success indicates whether the run completed.
	Success bool

	// Error contains the error if the run failed.
	Error error

	// State is the state the converter stopped in.
	State State

	// Stats contains processing statistics.
	Stats ProcessingStats
}

// ProcessingStats contains statistics about the run.
type ProcessingStats struct {
	// RowsRead is the number of data rows read from the source.
	RowsRead int

	// RecordsWritten is the number of transaction records written.
	RecordsWritten int

	// SecuritiesWritten is the number of security entries written.
	SecuritiesWritten int

	// PromptsAnswered is the number of operator decisions made.
	PromptsAnswered int

	// Balance is the account balance written in the header, if any.
	Balance *qifwriter.Balance

	// ProcessingTime is the time taken by the run.
	ProcessingTime time.Duration
}

// =============================================================================
// STATE MACHINE
// =============================================================================

// State is the progress of a conversion run.
type State int

const (
	StateInit State = iota
	StateHeaderEmitted
	StateSecurityPassDone
	StateRowsEmitted
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateInit:
		return "Init"
	case StateHeaderEmitted:
		return "HeaderEmitted"
	case StateSecurityPassDone:
		return "SecurityPassDone"
	case StateRowsEmitted:
		return "RowsEmitted"
	case StateDone:
		return "Done"
	case StateFailed:
		return "Failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// =============================================================================
// COLLABORATORS
// =============================================================================

// RowSource supplies the data rows of one input.
type RowSource interface {
	ReadRows(ctx context.Context) ([]types.Row, error)
}

// Prompter asks the operator for a vocabulary token. It must return an error
// wrapping types.ErrCancelled when the operator aborts or ctx is done.
type Prompter interface {
	Ask(ctx context.Context, d Decision) (string, error)
}

// Options configures a Converter.
type Options struct {
	// Prompter resolves "prompt" vocabulary entries. Without one, such an
	// entry fails the row as unmapped.
	Prompter Prompter

	// Logger receives run and record events. The zero value discards them.
	Logger *zerolog.Logger
}

// =============================================================================
// CONVERTER STRUCTURE
// =============================================================================

// Converter runs one rule document against one input to one output.
type Converter struct {
	doc      *config.RuleDocument
	source   RowSource
	out      io.Writer
	prompter Prompter
	logger   zerolog.Logger

	runID string
	state State
	stats ProcessingStats
}

// New creates a Converter.
//
// PARAMETERS:
//   - doc: The loaded rule document. It is not modified.
//   - source: Where the rows come from.
//   - out: Where the QIF document goes.
//   - opts: Prompter and logger.
func New(doc *config.RuleDocument, source RowSource, out io.Writer, opts Options) *Converter {
	runID := uuid.New().String()
	log := logger.Nop()
	if opts.Logger != nil {
		log = logger.WithFields(*opts.Logger, map[string]interface{}{
			"run_id":       runID,
			"account_type": doc.AccountType(),
		})
	}
	return &Converter{
		doc:      doc,
		source:   source,
		out:      out,
		prompter: opts.Prompter,
		logger:   log,
		runID:    runID,
	}
}

// State returns the current state.
func (c *Converter) State() State { return c.state }

// RunID returns the run identifier.
func (c *Converter) RunID() string { return c.runID }

// =============================================================================
// MAIN PROCESSING FUNCTION
// =============================================================================

// Run executes the conversion.
//
// RETURNS:
//   - A Result with the outcome and statistics. A second call fails.
func (c *Converter) Run(ctx context.Context) Result {
	startTime := time.Now()
	result := Result{RunID: c.runID}

	if c.state != StateInit {
		result.Error = fmt.Errorf("converter already ran (state %s)", c.state)
		result.State = c.state
		return result
	}

	err := c.run(ctx)
	c.stats.ProcessingTime = time.Since(startTime)
	result.Stats = c.stats

	if err != nil {
		c.state = StateFailed
		result.State = c.state
		result.Error = err
		c.logger.Error().Err(err).Int("records", c.stats.RecordsWritten).Msg("conversion failed")
		return result
	}

	c.state = StateDone
	result.State = c.state
	result.Success = true
	c.logger.Info().
		Int("rows", c.stats.RowsRead).
		Int("records", c.stats.RecordsWritten).
		Int("securities", c.stats.SecuritiesWritten).
		Dur("elapsed", c.stats.ProcessingTime).
		Msg("conversion complete")
	return result
}

func (c *Converter) run(ctx context.Context) error {
	// =========================================================================
	// STEP 1: CHECK RULE DOCUMENT
	// =========================================================================

	controls := c.doc.Controls
	if controls.CsvTimeFormat == "" {
		return types.ConfigErrorf("a CsvTimeFormat entry is required to parse dates, for example \"%%m/%%d/%%y\"")
	}
	dates, err := timefmt.NewConverter(controls.CsvTimeFormat, controls.QifTimeFormat)
	if err != nil {
		return types.ConfigErrorf("invalid time format: %v", err)
	}
	accountType := c.doc.AccountType()
	if !config.IsAccountType(accountType) {
		return types.ConfigErrorf("unsupported accountType %q", accountType)
	}

	// =========================================================================
	// STEP 2: READ ROWS
	// =========================================================================

	rows, err := c.source.ReadRows(ctx)
	if err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	c.stats.RowsRead = len(rows)
	c.logger.Debug().Int("rows", len(rows)).Msg("input loaded")

	writer := qifwriter.New(c.out, dates)
	transformer := NewTransformer(c.doc)

	// =========================================================================
	// STEP 3: ACCOUNT HEADER
	// =========================================================================

	if c.doc.AccountName() != "" {
		header := qifwriter.HeaderFrom(c.doc)
		balance, err := LatestBalance(rows, c.doc, dates)
		if err != nil {
			return err
		}
		header.Balance = balance
		c.stats.Balance = balance
		if err := writer.WriteAccount(header); err != nil {
			return err
		}
		c.logger.Debug().Str("kind", "account").Msg("record emitted")
	}
	c.state = StateHeaderEmitted

	// =========================================================================
	// STEP 4: SECURITY PASS (investment accounts)
	// =========================================================================

	if c.doc.IsInvestment() {
		records := make([]*types.Record, 0, len(rows))
		for _, row := range rows {
			rec, err := c.transform(ctx, transformer, row)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}

		if err := writer.WriteSecurities(BuildCatalog(records)); err != nil {
			return err
		}
		c.stats.SecuritiesWritten = writer.Securities()
		c.logger.Debug().Int("securities", writer.Securities()).Msg("security list emitted")
		c.state = StateSecurityPassDone

		for _, rec := range records {
			if err := c.emit(writer, rec, accountType); err != nil {
				return err
			}
		}
		c.state = StateRowsEmitted
		return nil
	}

	// =========================================================================
	// STEP 5: TRANSACTIONS
	// =========================================================================

	for _, row := range rows {
		rec, err := c.transform(ctx, transformer, row)
		if err != nil {
			return err
		}
		if err := c.emit(writer, rec, accountType); err != nil {
			return err
		}
	}
	c.state = StateRowsEmitted
	return nil
}

// transform runs the row transformer and settles any operator decisions.
func (c *Converter) transform(ctx context.Context, t *Transformer, row types.Row) (*types.Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", types.ErrCancelled, err)
	}

	outcome, err := t.Transform(row)
	if err != nil {
		return nil, err
	}

	for _, d := range outcome.Pending {
		if c.prompter == nil {
			return nil, &types.RowError{
				Line:  d.Line,
				Field: d.Field,
				Rule:  d.Rule,
				Value: d.Token,
				Err:   fmt.Errorf("%w: %q needs an operator decision but no prompt is available", types.ErrUnmappedVocabulary, d.Token),
			}
		}
		answer, err := c.prompter.Ask(ctx, d)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				err = fmt.Errorf("%w: %v", types.ErrCancelled, err)
			}
			return nil, &types.RowError{Line: d.Line, Field: d.Field, Rule: d.Rule, Value: d.Token, Err: err}
		}
		outcome.Resolve(d, answer)
		c.stats.PromptsAnswered++
		c.logger.Debug().Int("line", d.Line).Str("field", d.Field).Str("token", d.Token).Str("answer", answer).Msg("operator decision")
	}
	return outcome.Record, nil
}

// emit writes one transaction.
func (c *Converter) emit(w *qifwriter.Writer, rec *types.Record, accountType string) error {
	if err := w.WriteRecord(rec, accountType); err != nil {
		return err
	}
	c.stats.RecordsWritten = w.Records()
	c.logger.Debug().Int("line", rec.Line).Str("kind", "transaction").Msg("record emitted")
	return nil
}
