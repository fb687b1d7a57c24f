package report

import (
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/zombor/viatico-tracker/internal/artifact"
	"github.com/zombor/viatico-tracker/internal/expense"
)

const (
	dateLayout     = "02/01/2006"
	dateTimeLayout = "02/01/2006 15:04"
)

// column describes one data column. Headers and rows are both rendered from
// the same table so their order cannot drift apart. Columns with a total
// get their aggregate on the totals row.
type column struct {
	header string
	width  float64
	value  func(r *expense.Record, loc *time.Location) any
	style  func(r *expense.Record) styleKey
	total  func(s expense.Summary) decimal.Decimal
}

// imageSlot is a column holding one picture, link or placeholder per row
type imageSlot struct {
	name  string
	empty string
	pick  func(r *expense.Record) artifact.Artifact
}

var columns = []column{
	{header: "TECHNICIAN", width: 22, value: text(func(r *expense.Record) string { return r.TechnicianName }), style: always(styleText)},
	{header: "PHONE", width: 14, value: text(func(r *expense.Record) string { return r.Phone }), style: always(styleText)},
	{header: "CLIENT", width: 20, value: text(func(r *expense.Record) string { return r.Client }), style: always(styleText)},
	{header: "LOCATION", width: 20, value: text(func(r *expense.Record) string { return r.Location }), style: always(styleText)},
	{header: "ENTRY TIME", width: 17, value: timestamp(func(r *expense.Record) time.Time { return r.EntryTime }), style: always(styleCenter)},
	{header: "EXIT TIME", width: 17, value: timestamp(func(r *expense.Record) time.Time { return r.ExitTime }), style: always(styleCenter)},
	{header: "TRANSPORT", width: 13, value: amount((*expense.Record).TransportTotal), style: always(styleMoney)},
	{header: "TRANSPORT MODE", width: 24, value: text((*expense.Record).TransportSummary), style: always(styleText)},
	{header: "LODGING", width: 13, value: amount(func(r *expense.Record) decimal.Decimal { return r.Lodging.Amount }), style: always(styleMoney)},
	{header: "LODGING PLACE", width: 20, value: text(func(r *expense.Record) string { return r.Lodging.PlaceName }), style: always(styleText)},
	{header: "MEAL", width: 13, value: amount(func(r *expense.Record) decimal.Decimal { return r.Meal.Amount }), style: always(styleMoney)},
	{header: "MEAL TYPE", width: 13, value: text(func(r *expense.Record) string { return string(r.Meal.Type) }), style: always(styleCenter)},
	{
		header: "CASH ADVANCED",
		width:  15,
		value:  amount(func(r *expense.Record) decimal.Decimal { return r.CashAdvanced }),
		style:  always(styleMoney),
		total:  func(s expense.Summary) decimal.Decimal { return s.CashAdvanced },
	},
	{
		header: "TOTAL SPENT",
		width:  15,
		value:  amount((*expense.Record).TotalSpent),
		style:  always(styleMoney),
		total:  func(s expense.Summary) decimal.Decimal { return s.Spent },
	},
	{
		header: "DIFFERENCE",
		width:  15,
		value:  amount(func(r *expense.Record) decimal.Decimal { return r.Difference().Abs() }),
		style:  bySign(styleMoneySavings, styleMoneyOverspend),
		total:  func(s expense.Summary) decimal.Decimal { return s.Difference.Abs() },
	},
	{header: "STATUS", width: 13, value: text((*expense.Record).Status), style: bySign(styleStatusSavings, styleStatusOverspend)},
}

var slots = []imageSlot{
	{name: "SIGNATURE", empty: "No signature", pick: func(r *expense.Record) artifact.Artifact { return r.Signature }},
	photoSlot(0), photoSlot(1), photoSlot(2), photoSlot(3), photoSlot(4),
}

const slotWidth = 18

func photoSlot(i int) imageSlot {
	return imageSlot{
		name:  "PHOTO " + strconv.Itoa(i+1),
		empty: "No photo",
		pick: func(r *expense.Record) artifact.Artifact {
			if i < len(r.Photos) {
				return r.Photos[i]
			}
			return artifact.Artifact{}
		},
	}
}

func text(fn func(r *expense.Record) string) func(*expense.Record, *time.Location) any {
	return func(r *expense.Record, _ *time.Location) any { return fn(r) }
}

func timestamp(fn func(r *expense.Record) time.Time) func(*expense.Record, *time.Location) any {
	return func(r *expense.Record, loc *time.Location) any {
		t := fn(r)
		if t.IsZero() {
			return ""
		}
		return t.In(loc).Format(dateTimeLayout)
	}
}

// amount writes money as a float so the cell stays numeric; all arithmetic happens in decimal first
func amount(fn func(r *expense.Record) decimal.Decimal) func(*expense.Record, *time.Location) any {
	return func(r *expense.Record, _ *time.Location) any { return fn(r).InexactFloat64() }
}

func always(k styleKey) func(*expense.Record) styleKey {
	return func(*expense.Record) styleKey { return k }
}

func bySign(savings, overspend styleKey) func(*expense.Record) styleKey {
	return func(r *expense.Record) styleKey {
		if r.Difference().IsNegative() {
			return overspend
		}
		return savings
	}
}
