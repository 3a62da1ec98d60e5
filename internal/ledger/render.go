package ledger

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sawpanic/taskbridge/internal/apperr"
	"github.com/sawpanic/taskbridge/internal/config"
	"github.com/sawpanic/taskbridge/internal/domain"
)

const (
	dateLayout        = "2006-01-02"
	britishDateLayout = "02/01/2006"
	dueAfter          = 2 // days
)

// FormatAmount renders the absolute value of amount in major units. unit is
// config.AmountUnitMinor (two fractional digits) or config.AmountUnitMilli
// (three, the last truncated). A zero fraction is omitted.
func FormatAmount(amount int64, unit string) string {
	d := decimal.New(amount, 0).Abs()
	switch unit {
	case config.AmountUnitMilli:
		d = d.Shift(-3).Truncate(2)
	default:
		d = d.Shift(-2)
	}
	if d.Equal(d.Truncate(0)) {
		return d.StringFixed(0)
	}
	return d.StringFixed(2)
}

// RenderedTask is the task-manager item derived from one transaction.
type RenderedTask struct {
	Content     string
	Description string
	DueDate     string
}

// Render builds the task for t. currency prefixes the amount and may be empty.
func Render(t domain.Transaction, currency, unit string) (RenderedTask, error) {
	date, err := time.Parse(dateLayout, t.Date)
	if err != nil {
		return RenderedTask{}, apperr.Validation("ledger.render", fmt.Errorf("transaction %s: bad date %q: %w", t.ID, t.Date, err))
	}

	var b strings.Builder
	fmt.Fprintf(&b, "(%s%s) ", currency, FormatAmount(t.Amount, unit))
	if t.Memo != "" {
		b.WriteString(t.Memo)
		b.WriteString(", ")
	}
	if t.ParentMemo != "" {
		fmt.Fprintf(&b, "%s (%s)", t.ParentMemo, t.PayeeName)
	} else {
		b.WriteString(t.PayeeName)
	}

	return RenderedTask{
		Content:     b.String(),
		Description: "since " + date.Format(britishDateLayout),
		DueDate:     date.AddDate(0, 0, dueAfter).Format(dateLayout),
	}, nil
}
