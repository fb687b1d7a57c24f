package expense

import "github.com/shopspring/decimal"

// Summary aggregates cash advanced and spent across a set of records
type Summary struct {
	Count        int             `json:"count"`
	CashAdvanced decimal.Decimal `json:"cash_advanced"`
	Spent        decimal.Decimal `json:"spent"`
	Difference   decimal.Decimal `json:"difference"`
	PercentSpent decimal.Decimal `json:"percent_spent"`
	Status       string          `json:"status"`
}

var hundred = decimal.NewFromInt(100)

// Summarize totals the records. PercentSpent is spent/cash*100 rounded to two places,
// or zero when no cash was advanced.
func Summarize(records []*Record) Summary {
	s := Summary{
		Count:        len(records),
		CashAdvanced: decimal.Zero,
		Spent:        decimal.Zero,
		PercentSpent: decimal.Zero,
	}
	for _, r := range records {
		s.CashAdvanced = s.CashAdvanced.Add(r.CashAdvanced)
		s.Spent = s.Spent.Add(r.TotalSpent())
	}
	s.Difference = s.CashAdvanced.Sub(s.Spent)
	s.Status = StatusFor(s.Difference)
	if s.CashAdvanced.IsPositive() {
		s.PercentSpent = s.Spent.Div(s.CashAdvanced).Mul(hundred).Round(2)
	}
	return s
}
