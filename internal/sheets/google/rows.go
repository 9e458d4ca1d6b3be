package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"moneymanager/internal/core"
)

// Column order of the mirror sheet.
var header = []any{"ID", "Date", "Type", "Division", "Category", "Description", "Amount", "CreatedAt"}

const lastColumn = "H"

func rowFromTransaction(tx core.Transaction) []any {
	return []any{
		tx.ID,
		tx.Date.UTC().Format(time.RFC3339Nano),
		string(tx.Type),
		string(tx.Division),
		tx.Category,
		tx.Description,
		tx.Amount.Decimal().InexactFloat64(),
		tx.CreatedAt.UTC().Format(time.RFC3339Nano),
	}
}

// transactionFromRow parses a mirror row. Amounts may use a decimal comma
// when the sheet was edited by hand.
func transactionFromRow(row []any) (core.Transaction, error) {
	cols := toStrings(row)
	if len(cols) < len(header) {
		return core.Transaction{}, fmt.Errorf("row has %d columns, want %d", len(cols), len(header))
	}

	date, err := core.ParseDate(cols[1])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", cols[0], err)
	}
	created, err := core.ParseDate(cols[7])
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", cols[0], err)
	}
	amount, err := core.ParseAmount(strings.ReplaceAll(cols[6], ",", "."))
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", cols[0], err)
	}

	return core.Transaction{
		ID:            cols[0],
		Date:          date,
		Type:          core.TxType(cols[2]),
		Division:      core.Division(cols[3]),
		Category:      cols[4],
		Description:   cols[5],
		Amount:        amount,
		CreatedAt:     created,
		EditableUntil: created.Add(core.EditWindow),
	}, nil
}

func isHeader(row []any) bool {
	return len(row) > 0 && strings.EqualFold(strings.TrimSpace(fmt.Sprint(row[0])), "ID")
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		switch n := v.(type) {
		case float64:
			// Large amounts would otherwise print in exponent form.
			out[i] = strconv.FormatFloat(n, 'f', -1, 64)
		default:
			out[i] = strings.TrimSpace(fmt.Sprint(v))
		}
	}
	return out
}
