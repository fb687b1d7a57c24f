package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
)

type styleKey int

const (
	styleTitle styleKey = iota
	styleMeta
	styleHeader
	styleText
	styleCenter
	styleMoney
	styleMoneySavings
	styleMoneyOverspend
	styleStatusSavings
	styleStatusOverspend
	stylePlaceholder
	styleError
	styleLink
	styleImage
	styleSeparator
	styleTotalsLabel
	styleTotalsMoney
)

// numFmtMoney is the built-in "#,##0.00" format
const numFmtMoney = 4

const (
	colorHeader    = "#2F75B5"
	colorTitle     = "#1F4E78"
	colorSeparator = "#5B9BD5"
	colorTotals    = "#D9E1F2"
	colorBorder    = "#BFBFBF"
	colorSavings   = "#006100"
	colorOverspend = "#9C0006"
)

var cellBorder = []excelize.Border{
	{Type: "left", Color: colorBorder, Style: 1},
	{Type: "top", Color: colorBorder, Style: 1},
	{Type: "right", Color: colorBorder, Style: 1},
	{Type: "bottom", Color: colorBorder, Style: 1},
}

func solid(hex string) excelize.Fill {
	return excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{hex}}
}

func aligned(horizontal string) *excelize.Alignment {
	return &excelize.Alignment{Horizontal: horizontal, Vertical: "center", WrapText: true}
}

var styleDefs = map[styleKey]*excelize.Style{
	styleTitle: {
		Font:      &excelize.Font{Bold: true, Size: 16, Color: "#FFFFFF"},
		Fill:      solid(colorTitle),
		Alignment: aligned("center"),
	},
	styleMeta: {
		Font:      &excelize.Font{Italic: true, Size: 10, Color: "#595959"},
		Alignment: aligned("left"),
	},
	styleHeader: {
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF"},
		Fill:      solid(colorHeader),
		Border:    cellBorder,
		Alignment: aligned("center"),
	},
	styleText:   {Border: cellBorder, Alignment: aligned("left")},
	styleCenter: {Border: cellBorder, Alignment: aligned("center")},
	styleMoney:  {Border: cellBorder, Alignment: aligned("right"), NumFmt: numFmtMoney},
	styleMoneySavings: {
		Font:      &excelize.Font{Bold: true, Color: colorSavings},
		Border:    cellBorder,
		Alignment: aligned("right"),
		NumFmt:    numFmtMoney,
	},
	styleMoneyOverspend: {
		Font:      &excelize.Font{Bold: true, Color: colorOverspend},
		Border:    cellBorder,
		Alignment: aligned("right"),
		NumFmt:    numFmtMoney,
	},
	styleStatusSavings: {
		Font:      &excelize.Font{Bold: true, Color: colorSavings},
		Fill:      solid("#C6EFCE"),
		Border:    cellBorder,
		Alignment: aligned("center"),
	},
	styleStatusOverspend: {
		Font:      &excelize.Font{Bold: true, Color: colorOverspend},
		Fill:      solid("#FFC7CE"),
		Border:    cellBorder,
		Alignment: aligned("center"),
	},
	stylePlaceholder: {
		Font:      &excelize.Font{Italic: true, Color: "#808080"},
		Border:    cellBorder,
		Alignment: aligned("center"),
	},
	styleError: {
		Font:      &excelize.Font{Italic: true, Bold: true, Color: "#FF0000"},
		Border:    cellBorder,
		Alignment: aligned("center"),
	},
	styleLink: {
		Font:      &excelize.Font{Color: "#0563C1", Underline: "single"},
		Border:    cellBorder,
		Alignment: aligned("center"),
	},
	styleImage:     {Border: cellBorder},
	styleSeparator: {Fill: solid(colorSeparator)},
	styleTotalsLabel: {
		Font:      &excelize.Font{Bold: true, Size: 12},
		Fill:      solid(colorTotals),
		Border:    cellBorder,
		Alignment: aligned("right"),
	},
	styleTotalsMoney: {
		Font:      &excelize.Font{Bold: true, Size: 12},
		Fill:      solid(colorTotals),
		Border:    cellBorder,
		Alignment: aligned("right"),
		NumFmt:    numFmtMoney,
	},
}

// styles holds the workbook-specific IDs of every registered style
type styles map[styleKey]int

func registerStyles(f *excelize.File) (styles, error) {
	ids := make(styles, len(styleDefs))
	// registered in key order so style IDs are stable between runs
	for key := styleTitle; key <= styleTotalsMoney; key++ {
		id, err := f.NewStyle(styleDefs[key])
		if err != nil {
			return nil, fmt.Errorf("registering style %d: %w", key, err)
		}
		ids[key] = id
	}
	return ids, nil
}
