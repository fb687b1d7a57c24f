package report

import (
	"errors"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/zombor/viatico-tracker/internal/expense"
)

// ErrGenerationFailed is returned when the workbook cannot be assembled or serialized.
// No partial file is returned alongside it.
var ErrGenerationFailed = errors.New("report generation failed")

const (
	// SheetName is the name of the single worksheet
	SheetName = "Expenses"
	// Title is the banner text on the first row
	Title = "TECHNICIAN TRAVEL EXPENSE REPORT"

	fileNameLayout = "2006-01-02_15-04"
	defaultSheet   = "Sheet1"

	titleRow     = 1
	metaRow      = 2
	headerRow    = 5
	firstDataRow = 6

	titleHeight     = 30
	metaHeight      = 20
	spacerHeight    = 5
	headerHeight    = 25
	dataRowHeight   = 80
	separatorHeight = 2
	totalsHeight    = 25
)

// A4 paper size code used by SpreadsheetML page setup
const paperA4 = 9

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// RowSummary describes one rendered data row
type RowSummary struct {
	RecordID string
	Row      int
	Slots    []SlotResult
}

// Workbook is a generated report file with its per-row outcome
type Workbook struct {
	FileName    string
	Data        []byte
	GeneratedAt time.Time
	Rows        []RowSummary
	Totals      expense.Summary
}

// FailedSlots counts image cells rendered as error placeholders
func (r *Workbook) FailedSlots() int {
	n := 0
	for _, row := range r.Rows {
		for _, slot := range row.Slots {
			if slot.Outcome == SlotFailed {
				n++
			}
		}
	}
	return n
}

// Builder renders expense records into an .xlsx workbook.
// A Builder holds no per-report state and may be reused.
type Builder struct {
	logger   *zap.Logger
	location *time.Location
	clock    TimeSource
}

// NewBuilder creates a Builder that formats times in loc and stamps reports with the system clock
func NewBuilder(logger *zap.Logger, loc *time.Location) *Builder {
	return NewBuilderWithClock(logger, loc, systemClock{})
}

// NewBuilderWithClock creates a Builder with a custom clock for testing
func NewBuilderWithClock(logger *zap.Logger, loc *time.Location, clock TimeSource) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Builder{
		logger:   logger,
		location: loc,
		clock:    clock,
	}
}

// Location returns the zone used for every rendered time
func (b *Builder) Location() *time.Location {
	return b.location
}

// FileName returns the suggested download name for a report generated at t
func (b *Builder) FileName(t time.Time) string {
	return "expense_report_" + t.In(b.location).Format(fileNameLayout) + ".xlsx"
}

// Generate filters the records and renders the survivors, in input order, into a workbook.
// Bad images never fail the report; only assembly or serialization errors do.
func (b *Builder) Generate(records []*expense.Record, filter Filter) (rep *Workbook, err error) {
	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("Report generation panicked", zap.Any("panic", p))
			rep, err = nil, fmt.Errorf("%w: %v", ErrGenerationFailed, p)
		}
	}()

	now := b.clock.Now().In(b.location)
	rows := filter.Apply(records)

	f := excelize.NewFile()
	defer f.Close()

	rep, err = b.render(f, rows, filter, now)
	if err != nil {
		b.logger.Error("Report generation failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		b.logger.Error("Report serialization failed", zap.Error(err))
		return nil, fmt.Errorf("%w: writing workbook: %w", ErrGenerationFailed, err)
	}
	rep.Data = buf.Bytes()

	b.logger.Info("Report generated",
		zap.String("file", rep.FileName),
		zap.Int("input_records", len(records)),
		zap.Int("rows", len(rows)),
		zap.Int("failed_slots", rep.FailedSlots()),
		zap.Int("bytes", len(rep.Data)),
	)
	return rep, nil
}

func (b *Builder) render(f *excelize.File, rows []*expense.Record, filter Filter, now time.Time) (*Workbook, error) {
	s, err := newSheet(f)
	if err != nil {
		return nil, err
	}
	if err := s.setup(now); err != nil {
		return nil, err
	}
	if err := s.banner(b.metadata(now, len(rows), filter)); err != nil {
		return nil, err
	}
	if err := s.headers(); err != nil {
		return nil, err
	}

	rep := &Workbook{
		FileName:    b.FileName(now),
		GeneratedAt: now,
		Rows:        make([]RowSummary, 0, len(rows)),
		Totals:      expense.Summarize(rows),
	}

	for i, r := range rows {
		summary, err := b.writeRow(s, firstDataRow+i, r)
		if err != nil {
			return nil, fmt.Errorf("writing record %s: %w", r.ID, err)
		}
		rep.Rows = append(rep.Rows, summary)
	}

	if err := s.totals(firstDataRow+len(rows), rep.Totals); err != nil {
		return nil, err
	}
	return rep, nil
}

func (b *Builder) metadata(now time.Time, count int, filter Filter) string {
	line := fmt.Sprintf("Generated: %s | Records: %d", now.Format(dateTimeLayout), count)
	for _, part := range filter.Describe(b.location) {
		line += " | " + part
	}
	return line
}

func (b *Builder) writeRow(s *sheet, row int, r *expense.Record) (RowSummary, error) {
	summary := RowSummary{RecordID: r.ID, Row: row}
	if err := s.f.SetRowHeight(s.name, row, dataRowHeight); err != nil {
		return summary, fmt.Errorf("setting row height: %w", err)
	}
	for i, col := range columns {
		if err := s.set(cellName(i+1, row), col.value(r, b.location), col.style(r)); err != nil {
			return summary, err
		}
	}
	for i, slot := range slots {
		cell := cellName(len(columns)+i+1, row)
		summary.Slots = append(summary.Slots, b.placeSlot(s, row, cell, slot, slot.pick(r)))
	}
	return summary, nil
}

// sheet wraps the worksheet being written with its registered styles
type sheet struct {
	f      *excelize.File
	name   string
	styles styles
	width  int
}

func newSheet(f *excelize.File) (*sheet, error) {
	if err := f.SetSheetName(defaultSheet, SheetName); err != nil {
		return nil, fmt.Errorf("naming sheet: %w", err)
	}
	ids, err := registerStyles(f)
	if err != nil {
		return nil, err
	}
	return &sheet{
		f:      f,
		name:   SheetName,
		styles: ids,
		width:  len(columns) + len(slots),
	}, nil
}

// cellName panics on coordinates outside the sheet; Generate recovers it as ErrGenerationFailed
func cellName(col, row int) string {
	name, err := excelize.CoordinatesToCellName(col, row)
	if err != nil {
		panic(fmt.Sprintf("cell %d,%d: %v", col, row, err))
	}
	return name
}

func (s *sheet) set(cell string, value any, key styleKey) error {
	if err := s.f.SetCellValue(s.name, cell, value); err != nil {
		return fmt.Errorf("writing %s: %w", cell, err)
	}
	if err := s.f.SetCellStyle(s.name, cell, cell, s.styles[key]); err != nil {
		return fmt.Errorf("styling %s: %w", cell, err)
	}
	return nil
}

// merge writes value into the top-left cell of a merged range and styles the whole range
func (s *sheet) merge(row, fromCol, toCol int, value any, key styleKey) error {
	from, to := cellName(fromCol, row), cellName(toCol, row)
	if fromCol < toCol {
		if err := s.f.MergeCell(s.name, from, to); err != nil {
			return fmt.Errorf("merging %s:%s: %w", from, to, err)
		}
	}
	if value != nil {
		if err := s.f.SetCellValue(s.name, from, value); err != nil {
			return fmt.Errorf("writing %s: %w", from, err)
		}
	}
	if err := s.f.SetCellStyle(s.name, from, to, s.styles[key]); err != nil {
		return fmt.Errorf("styling %s:%s: %w", from, to, err)
	}
	return nil
}

func (s *sheet) setRowHeights(heights map[int]float64) error {
	for row, h := range heights {
		if err := s.f.SetRowHeight(s.name, row, h); err != nil {
			return fmt.Errorf("setting row %d height: %w", row, err)
		}
	}
	return nil
}

// setup applies document properties, page layout and column widths
func (s *sheet) setup(now time.Time) error {
	if err := s.f.SetDocProps(&excelize.DocProperties{
		Title:   Title,
		Creator: "viatico-tracker",
		Created: now.UTC().Format(time.RFC3339),
	}); err != nil {
		return fmt.Errorf("setting document properties: %w", err)
	}

	size, orientation, fit := paperA4, "landscape", 1
	if err := s.f.SetPageLayout(s.name, &excelize.PageLayoutOptions{
		Size:        &size,
		Orientation: &orientation,
		FitToWidth:  &fit,
	}); err != nil {
		return fmt.Errorf("setting page layout: %w", err)
	}
	fitToPage := true
	if err := s.f.SetSheetProps(s.name, &excelize.SheetPropsOptions{FitToPage: &fitToPage}); err != nil {
		return fmt.Errorf("setting sheet properties: %w", err)
	}

	for i, col := range columns {
		if err := s.colWidth(i+1, col.width); err != nil {
			return err
		}
	}
	for i := range slots {
		if err := s.colWidth(len(columns)+i+1, slotWidth); err != nil {
			return err
		}
	}
	return nil
}

func (s *sheet) colWidth(col int, width float64) error {
	name, err := excelize.ColumnNumberToName(col)
	if err != nil {
		return fmt.Errorf("naming column %d: %w", col, err)
	}
	if err := s.f.SetColWidth(s.name, name, name, width); err != nil {
		return fmt.Errorf("setting column %s width: %w", name, err)
	}
	return nil
}

// banner writes the title, metadata line and spacer rows
func (s *sheet) banner(metadata string) error {
	if err := s.merge(titleRow, 1, s.width, Title, styleTitle); err != nil {
		return err
	}
	if err := s.merge(metaRow, 1, s.width, metadata, styleMeta); err != nil {
		return err
	}
	return s.setRowHeights(map[int]float64{
		titleRow: titleHeight,
		metaRow:  metaHeight,
		3:        spacerHeight,
		4:        spacerHeight,
	})
}

func (s *sheet) headers() error {
	for i, col := range columns {
		if err := s.set(cellName(i+1, headerRow), col.header, styleHeader); err != nil {
			return err
		}
	}
	for i, slot := range slots {
		if err := s.set(cellName(len(columns)+i+1, headerRow), slot.name, styleHeader); err != nil {
			return err
		}
	}
	if err := s.f.SetRowHeight(s.name, headerRow, headerHeight); err != nil {
		return fmt.Errorf("setting header height: %w", err)
	}
	if err := s.f.SetPanes(s.name, &excelize.Panes{
		Freeze:      true,
		YSplit:      headerRow,
		TopLeftCell: cellName(1, firstDataRow),
		ActivePane:  "bottomLeft",
	}); err != nil {
		return fmt.Errorf("freezing header: %w", err)
	}
	return nil
}

// totals writes the separator band at row and the totals row below it
func (s *sheet) totals(row int, sum expense.Summary) error {
	if err := s.merge(row, 1, s.width, nil, styleSeparator); err != nil {
		return err
	}

	row++
	first, last := 0, 0
	for i, col := range columns {
		if col.total == nil {
			continue
		}
		if first == 0 {
			first = i + 1
		}
		last = i + 1
		if err := s.set(cellName(i+1, row), col.total(sum).InexactFloat64(), styleTotalsMoney); err != nil {
			return err
		}
	}

	if err := s.merge(row, 1, first-1, "TOTALS:", styleTotalsLabel); err != nil {
		return err
	}
	status, key := "Overall "+sum.Status, styleStatusSavings
	if sum.Status == expense.StatusOverspend {
		key = styleStatusOverspend
	}
	if err := s.merge(row, last+1, s.width, status, key); err != nil {
		return err
	}

	return s.setRowHeights(map[int]float64{
		row - 1: separatorHeight,
		row:     totalsHeight,
	})
}
