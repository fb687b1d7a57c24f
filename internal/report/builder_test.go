package report

import (
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/zombor/viatico-tracker/internal/artifact"
	"github.com/zombor/viatico-tracker/internal/expense"
)

var _ = Describe("Builder", func() {
	var (
		builder *Builder
		clock   *mockClock
	)

	BeforeEach(func() {
		clock = &mockClock{now: time.Date(2025, 3, 15, 20, 30, 45, 0, time.UTC)}
		builder = NewBuilderWithClock(zap.NewNop(), guatemala, clock)
	})

	Describe("layout", func() {
		var (
			rep *Workbook
			err error
		)

		BeforeEach(func() {
			rep, err = builder.Generate([]*expense.Record{
				newRecord("a", "Ana", "100", "20", "30", "10"),
			}, Filter{Technician: "an"})
		})

		It("should succeed", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Data).NotTo(BeEmpty())
		})

		It("should name the file after the generation minute in the report zone", func() {
			Expect(rep.FileName).To(Equal("expense_report_2025-03-15_14-30.xlsx"))
		})

		It("should write a single Expenses sheet", func() {
			f := openReport(rep)
			Expect(f.GetSheetList()).To(Equal([]string{"Expenses"}))
		})

		It("should write the title and metadata banners", func() {
			f := openReport(rep)
			Expect(raw(f, "A1")).To(Equal(Title))
			Expect(raw(f, "A2")).To(Equal("Generated: 15/03/2025 14:30 | Records: 1 | Technician: an"))

			merged, mergeErr := f.GetMergeCells(SheetName)
			Expect(mergeErr).NotTo(HaveOccurred())
			var ranges []string
			for _, m := range merged {
				ranges = append(ranges, m.GetStartAxis()+":"+m.GetEndAxis())
			}
			Expect(ranges).To(ContainElements("A1:V1", "A2:V2", "A7:V7", "A8:L8", "P8:V8"))
		})

		It("should write the headers in schema order on row 5", func() {
			f := openReport(rep)
			rows, rowsErr := f.GetRows(SheetName)
			Expect(rowsErr).NotTo(HaveOccurred())
			Expect(rows[4]).To(Equal([]string{
				"TECHNICIAN", "PHONE", "CLIENT", "LOCATION", "ENTRY TIME", "EXIT TIME",
				"TRANSPORT", "TRANSPORT MODE", "LODGING", "LODGING PLACE", "MEAL", "MEAL TYPE",
				"CASH ADVANCED", "TOTAL SPENT", "DIFFERENCE", "STATUS",
				"SIGNATURE", "PHOTO 1", "PHOTO 2", "PHOTO 3", "PHOTO 4", "PHOTO 5",
			}))
		})

		It("should render record values starting on row 6", func() {
			f := openReport(rep)
			Expect(raw(f, "A6")).To(Equal("Ana"))
			Expect(raw(f, "B6")).To(Equal("55512345"))
			Expect(raw(f, "E6")).To(Equal("10/03/2025 08:00"))
			Expect(raw(f, "F6")).To(Equal("10/03/2025 16:00"))
			Expect(raw(f, "G6")).To(Equal("20"))
			Expect(raw(f, "H6")).To(Equal("Bus"))
			Expect(raw(f, "L6")).To(Equal("Lunch"))
			Expect(raw(f, "N6")).To(Equal("60"))
		})

		It("should size header and data rows", func() {
			f := openReport(rep)
			h, hErr := f.GetRowHeight(SheetName, 5)
			Expect(hErr).NotTo(HaveOccurred())
			Expect(h).To(BeNumerically("==", headerHeight))
			h, hErr = f.GetRowHeight(SheetName, 6)
			Expect(hErr).NotTo(HaveOccurred())
			Expect(h).To(BeNumerically("==", dataRowHeight))
		})
	})

	Describe("totals", func() {
		var (
			records []*expense.Record
			rep     *Workbook
		)

		BeforeEach(func() {
			records = []*expense.Record{
				newRecord("a", "Ana", "100", "20", "30", "10"),
				newRecord("b", "Luis", "50", "60", "0", "0"),
			}
			var err error
			rep, err = builder.Generate(records, Filter{})
			Expect(err).NotTo(HaveOccurred())
		})

		It("should compute signed row differences", func() {
			Expect(records[0].Difference().Equal(decimal.NewFromInt(40))).To(BeTrue())
			Expect(records[1].Difference().Equal(decimal.NewFromInt(-10))).To(BeTrue())
		})

		It("should render absolute differences with a status per row", func() {
			f := openReport(rep)
			Expect(raw(f, "O6")).To(Equal("40"))
			Expect(raw(f, "P6")).To(Equal("Savings"))
			Expect(raw(f, "O7")).To(Equal("10"))
			Expect(raw(f, "P7")).To(Equal("Overspend"))
		})

		It("should keep the aggregate difference equal to the sum of row differences", func() {
			sum := decimal.Zero
			for _, r := range records {
				sum = sum.Add(r.Difference())
			}
			Expect(rep.Totals.Difference.Equal(sum)).To(BeTrue())
			Expect(rep.Totals.Difference.Equal(rep.Totals.CashAdvanced.Sub(rep.Totals.Spent))).To(BeTrue())
			Expect(rep.Totals.Difference.Equal(decimal.NewFromInt(30))).To(BeTrue())
		})

		It("should write the separator and totals rows after the data", func() {
			f := openReport(rep)
			Expect(raw(f, "A9")).To(Equal("TOTALS:"))
			Expect(raw(f, "M9")).To(Equal("150"))
			Expect(raw(f, "N9")).To(Equal("120"))
			Expect(raw(f, "O9")).To(Equal("30"))
			Expect(raw(f, "P9")).To(Equal("Overall Savings"))

			h, err := f.GetRowHeight(SheetName, 8)
			Expect(err).NotTo(HaveOccurred())
			Expect(h).To(BeNumerically("==", separatorHeight))
		})

		It("should label an overall overspend", func() {
			rep, err := builder.Generate(records[1:], Filter{})
			Expect(err).NotTo(HaveOccurred())
			f := openReport(rep)
			Expect(raw(f, "O8")).To(Equal("10"))
			Expect(raw(f, "P8")).To(Equal("Overall Overspend"))
		})

		It("should render totals even when nothing passes the filter", func() {
			rep, err := builder.Generate(records, Filter{Technician: "nobody"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Rows).To(BeEmpty())
			f := openReport(rep)
			Expect(raw(f, "A7")).To(Equal("TOTALS:"))
			Expect(raw(f, "M7")).To(Equal("0"))
			Expect(raw(f, "P7")).To(Equal("Overall Savings"))
		})
	})

	Describe("image slots", func() {
		var record *expense.Record

		BeforeEach(func() {
			record = newRecord("a", "Ana", "100", "20", "30", "10")
		})

		generate := func(records ...*expense.Record) *Workbook {
			rep, err := builder.Generate(records, Filter{})
			Expect(err).NotTo(HaveOccurred())
			return rep
		}

		It("should write placeholders for absent artifacts", func() {
			rep := generate(record)
			f := openReport(rep)
			Expect(raw(f, "Q6")).To(Equal("No signature"))
			for _, cell := range []string{"R6", "S6", "T6", "U6", "V6"} {
				Expect(raw(f, cell)).To(Equal("No photo"))
			}
			for _, slot := range rep.Rows[0].Slots {
				Expect(slot.Outcome).To(Equal(SlotPlaceholder))
			}
		})

		It("should contain a malformed photo to its own cell", func() {
			record.Photos = []artifact.Artifact{artifact.Parse("not-base64-!!"), inlinePNG()}
			other := newRecord("b", "Luis", "50", "60", "0", "0")
			other.Signature = inlinePNG()

			rep := generate(record, other)
			f := openReport(rep)

			Expect(raw(f, "R6")).To(Equal("ERROR PHOTO 1"))
			Expect(rep.Rows[0].Slots[1]).To(Equal(SlotResult{Slot: "PHOTO 1", Cell: "R6", Outcome: SlotFailed}))
			Expect(rep.Rows[0].Slots[2].Outcome).To(Equal(SlotEmbedded))
			Expect(raw(f, "Q6")).To(Equal("No signature"))
			Expect(rep.Rows[1].Slots[0].Outcome).To(Equal(SlotEmbedded))
			Expect(raw(f, "A7")).To(Equal("Luis"))
			Expect(rep.FailedSlots()).To(Equal(1))
		})

		It("should fail a slot whose payload is base64 but not an image", func() {
			record.Signature = artifact.Parse("data:image/png;base64,aGVsbG8gd29ybGQh")
			Expect(record.Signature.Kind()).To(Equal(artifact.InlineRaster))

			f := openReport(generate(record))
			Expect(raw(f, "Q6")).To(Equal("ERROR SIGNATURE"))
		})

		It("should write a hyperlink for remote links without fetching", func() {
			url := "https://res.cloudinary.com/demo/image/upload/receipt.jpg"
			record.Photos = []artifact.Artifact{artifact.Link(url)}

			rep := generate(record)
			f := openReport(rep)
			Expect(raw(f, "R6")).To(Equal("View image"))
			ok, target, err := f.GetCellHyperLink(SheetName, "R6")
			Expect(err).NotTo(HaveOccurred())
			Expect(ok).To(BeTrue())
			Expect(target).To(Equal(url))
			Expect(rep.Rows[0].Slots[1].Outcome).To(Equal(SlotLinked))
		})

		It("should embed inline rasters anchored to their cell", func() {
			record.Signature = inlinePNG()
			f := openReport(generate(record))

			pics, err := f.GetPictures(SheetName, "Q6")
			Expect(err).NotTo(HaveOccurred())
			Expect(pics).To(HaveLen(1))
			Expect(pics[0].Extension).To(Equal(".png"))
			Expect(pics[0].File).To(Equal(samplePNG()))

			h, err := f.GetRowHeight(SheetName, 6)
			Expect(err).NotTo(HaveOccurred())
			Expect(h).To(BeNumerically(">=", minImageRowHeight))
		})

		It("should render exactly five photo slots and drop the rest", func() {
			for i := 0; i < 7; i++ {
				record.Photos = append(record.Photos, artifact.Link("https://example.com/p.jpg"))
			}
			rep := generate(record)
			f := openReport(rep)

			for _, cell := range []string{"R6", "S6", "T6", "U6", "V6"} {
				Expect(raw(f, cell)).To(Equal("View image"))
			}
			Expect(raw(f, "W5")).To(BeEmpty())
			Expect(raw(f, "W6")).To(BeEmpty())
			Expect(rep.Rows[0].Slots).To(HaveLen(6))
		})
	})

	Describe("filtering", func() {
		var records []*expense.Record

		BeforeEach(func() {
			records = []*expense.Record{
				newRecord("1", "ABC Technician", "100", "10", "0", "0"),
				newRecord("2", "Bob", "100", "10", "0", "0"),
				newRecord("3", "maria xabcx", "100", "10", "0", "0"),
			}
		})

		It("should render every record for an empty filter", func() {
			rep, err := builder.Generate(records, Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Rows).To(HaveLen(3))
			Expect(rep.Totals.Count).To(Equal(3))
		})

		It("should render only matching technicians, in input order", func() {
			rep, err := builder.Generate(records, Filter{Technician: "abc"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rep.Rows).To(HaveLen(2))
			Expect(rep.Rows[0].RecordID).To(Equal("1"))
			Expect(rep.Rows[1].RecordID).To(Equal("3"))

			f := openReport(rep)
			Expect(raw(f, "A6")).To(Equal("ABC Technician"))
			Expect(raw(f, "A7")).To(Equal("maria xabcx"))
			Expect(raw(f, "M9")).To(Equal("200"))
		})
	})

	It("should produce identical cell values for identical input and clock", func() {
		records := []*expense.Record{
			newRecord("1", "Ana", "100", "10", "5", "5"),
			newRecord("2", "Luis", "20", "30", "0", "0"),
		}
		records[0].Photos = []artifact.Artifact{artifact.Parse("garbage"), artifact.Link("https://example.com/a.png")}

		first, err := builder.Generate(records, Filter{})
		Expect(err).NotTo(HaveOccurred())
		second, err := builder.Generate(records, Filter{})
		Expect(err).NotTo(HaveOccurred())

		firstRows, err := openReport(first).GetRows(SheetName)
		Expect(err).NotTo(HaveOccurred())
		secondRows, err := openReport(second).GetRows(SheetName)
		Expect(err).NotTo(HaveOccurred())
		Expect(secondRows).To(Equal(firstRows))
		Expect(second.FileName).To(Equal(first.FileName))
	})

	It("should render a record with no line items", func() {
		rep, err := builder.Generate([]*expense.Record{{ID: "empty", TechnicianName: "Nobody"}}, Filter{})
		Expect(err).NotTo(HaveOccurred())
		f := openReport(rep)
		Expect(raw(f, "E6")).To(BeEmpty())
		Expect(raw(f, "N6")).To(Equal("0"))
		Expect(raw(f, "P6")).To(Equal("Savings"))
	})

	It("should wrap top-level failures in ErrGenerationFailed", func() {
		rep, err := NewBuilderWithClock(zap.NewNop(), guatemala, panicClock{}).Generate(nil, Filter{})
		Expect(errors.Is(err, ErrGenerationFailed)).To(BeTrue())
		Expect(rep).To(BeNil())
	})
})

var _ = Describe("cellName", func() {
	It("should name cells by column and row", func() {
		Expect(cellName(1, 1)).To(Equal("A1"))
		Expect(cellName(22, 8)).To(Equal("V8"))
	})

	It("should panic on coordinates outside the sheet", func() {
		Expect(func() { cellName(0, 6) }).To(PanicWith(ContainSubstring("cell 0,6")))
	})
})

type panicClock struct{}

func (panicClock) Now() time.Time { panic("clock unavailable") }
