package converter

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/config"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/qifwriter"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/timefmt"
	"github.com/ginjaninja78/CSV-to-QIF-conversion/internal/types"
)

// LatestBalance scans rows for the balance at the latest date. Rows with an
// empty date or balance are skipped, and on equal dates the earlier row wins.
//
// RETURNS:
//   - The balance, or nil if the document maps no balance or date column or
//     no row carries both.
//   - A *types.RowError for an unparseable date or balance.
func LatestBalance(rows []types.Row, doc *config.RuleDocument, dates *timefmt.Converter) (*qifwriter.Balance, error) {
	balanceCol, ok := doc.Column("balance")
	if !ok {
		return nil, nil
	}
	dateCol, ok := doc.Column("date")
	if !ok {
		return nil, nil
	}
	numbers := NewNumberParser(doc.Controls)

	var latest *qifwriter.Balance
	for _, row := range rows {
		dateCell := row.Cell(dateCol)
		balanceCell := row.Cell(balanceCol)
		if strings.TrimSpace(dateCell) == "" || strings.TrimSpace(balanceCell) == "" {
			continue
		}

		date, err := dates.Parse(dateCell)
		if err != nil {
			return nil, &types.RowError{
				Line:  row.Line,
				Field: "date",
				Value: dateCell,
				Err:   fmt.Errorf("%w: %v", types.ErrDateParse, err),
			}
		}
		amount, err := numbers.Parse(balanceCell)
		if err != nil {
			return nil, &types.RowError{Line: row.Line, Field: "balance", Value: balanceCell, Err: err}
		}

		if latest == nil || date.After(latest.Date) {
			latest = &qifwriter.Balance{Date: date, Amount: amount}
		}
	}
	return latest, nil
}
