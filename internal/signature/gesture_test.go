package signature

import (
	"image/color"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Replay", func() {
	var (
		pad     *Pad
		display DisplayRect
	)

	BeforeEach(func() {
		pad = NewPad()
		// pad shown at half size, 20px from the top-left of the page
		display = DisplayRect{Left: 20, Top: 20, Width: 250, Height: 100}
	})

	It("should draw a stroke in logical coordinates", func() {
		err := pad.Replay(Gesture{Display: display, Events: []Event{
			{Type: EventDown, X: 70, Y: 70},
			{Type: EventMove, X: 220, Y: 70},
			{Type: EventUp},
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(pad.State()).To(Equal(Idle))
		// screen (145,70) -> logical (250,100)
		Expect(isDark(pad.Image(), 250, 100)).To(BeTrue())
	})

	It("should ignore moves after the pointer leaves", func() {
		err := pad.Replay(Gesture{Display: display, Events: []Event{
			{Type: EventDown, X: 70, Y: 70},
			{Type: EventMove, X: 100, Y: 70},
			{Type: EventLeave},
			{Type: EventMove, X: 220, Y: 70},
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(isWhite(pad.Image(), 350, 100)).To(BeTrue())
	})

	It("should apply toolbar changes and undo", func() {
		err := pad.Replay(Gesture{Display: display, Events: []Event{
			{Type: EventColor, Color: "blue"},
			{Type: EventWidth, Width: 4},
			{Type: EventDown, X: 30, Y: 30},
			{Type: EventMove, X: 60, Y: 30},
			{Type: EventUp},
			{Type: EventDown, X: 30, Y: 100},
			{Type: EventMove, X: 60, Y: 100},
			{Type: EventUp},
			{Type: EventUndo},
		}})
		Expect(err).NotTo(HaveOccurred())
		img := pad.Image()
		_, _, b, _ := img.At(50, 20).RGBA()
		Expect(b).To(BeNumerically(">", 0xc000))
		Expect(isWhite(img, 50, 160)).To(BeTrue())
	})

	It("should leave nothing to save after a clear", func() {
		err := pad.Replay(Gesture{Display: display, Events: []Event{
			{Type: EventDown, X: 70, Y: 70},
			{Type: EventMove, X: 220, Y: 70},
			{Type: EventClear},
		}})
		Expect(err).NotTo(HaveOccurred())
		Expect(pad.CanFinalize()).To(BeFalse())
	})

	It("should reject unknown events", func() {
		err := pad.Replay(Gesture{Events: []Event{{Type: "wiggle"}}})
		Expect(err).To(MatchError(ContainSubstring(`unknown type "wiggle"`)))
	})

	It("should reject bad colours", func() {
		err := pad.Replay(Gesture{Events: []Event{{Type: EventColor, Color: "#12"}}})
		Expect(err).To(MatchError(ContainSubstring("invalid colour")))
	})
})

var _ = Describe("ParseHexColor", func() {
	It("should parse six-digit hex", func() {
		c, err := ParseHexColor("#dc2626")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(color.RGBA{R: 0xdc, G: 0x26, B: 0x26, A: 0xff}))
	})

	It("should expand three-digit hex", func() {
		c, err := ParseHexColor("#fff")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(color.RGBA{R: 0xff, G: 0xff, B: 0xff, A: 0xff}))
	})

	It("should resolve palette names", func() {
		c, err := ParseHexColor("dark_gray")
		Expect(err).NotTo(HaveOccurred())
		Expect(c).To(Equal(color.RGBA{R: 0x1f, G: 0x29, B: 0x37, A: 0xff}))
	})

	It("should reject garbage", func() {
		_, err := ParseHexColor("#zzzzzz")
		Expect(err).To(HaveOccurred())
	})
})
