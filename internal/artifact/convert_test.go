package artifact

import (
	"bytes"
	"image"
	"image/color"
	"image/gif"
	"image/jpeg"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("FromUpload", func() {
	var (
		data        []byte
		contentType string
		a           Artifact
		err         error
	)

	JustBeforeEach(func() {
		a, err = FromUpload(data, contentType)
	})

	When("the upload is a PNG", func() {
		BeforeEach(func() {
			data = samplePNG()
			contentType = "image/png"
		})

		It("should keep the bytes unchanged", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Kind()).To(Equal(InlineRaster))
			Expect(a.MIME()).To(Equal(MIMEPNG))
			decoded, decodeErr := a.Bytes()
			Expect(decodeErr).NotTo(HaveOccurred())
			Expect(decoded).To(Equal(data))
		})
	})

	When("the upload is a JPEG with a wrong content type", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			img := image.NewRGBA(image.Rect(0, 0, 8, 8))
			Expect(jpeg.Encode(&buf, img, nil)).To(Succeed())
			data = buf.Bytes()
			contentType = "application/octet-stream"
		})

		It("should detect JPEG from the bytes", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(a.MIME()).To(Equal(MIMEJPEG))
		})
	})

	When("the upload is a GIF", func() {
		BeforeEach(func() {
			var buf bytes.Buffer
			img := image.NewPaletted(image.Rect(0, 0, 2, 2), color.Palette{color.White, color.Black})
			Expect(gif.Encode(&buf, img, nil)).To(Succeed())
			data = buf.Bytes()
			contentType = "image/gif"
		})

		It("should convert it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(a.MIME()).To(Equal(MIMEPNG))
			cfg, cfgErr := a.DecodeConfig()
			Expect(cfgErr).NotTo(HaveOccurred())
			Expect(cfg.Width).To(Equal(2))
		})
	})

	When("the upload is a HEIC photo with a generic content type", func() {
		BeforeEach(func() {
			var readErr error
			data, readErr = os.ReadFile(filepath.Join("testdata", "receipt.heic"))
			Expect(readErr).NotTo(HaveOccurred())
			contentType = "application/octet-stream"
		})

		It("should sniff the brand and convert it to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Kind()).To(Equal(InlineRaster))
			Expect(a.MIME()).To(Equal(MIMEPNG))
			cfg, cfgErr := a.DecodeConfig()
			Expect(cfgErr).NotTo(HaveOccurred())
			Expect(cfg.Width).To(BeNumerically(">", 0))
			Expect(cfg.Height).To(BeNumerically(">", 0))
		})
	})

	When("the upload claims to be HEIC but is not", func() {
		BeforeEach(func() {
			data = []byte("not a heic container")
			contentType = "image/heic"
		})

		It("should return a conversion error", func() {
			Expect(err).To(MatchError(ContainSubstring("converting HEIC to image")))
		})
	})

	When("the upload is a PDF", func() {
		BeforeEach(func() {
			data = onePagePDF()
			contentType = "application/pdf"
		})

		It("should render the first page to PNG", func() {
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Kind()).To(Equal(InlineRaster))
			Expect(a.MIME()).To(Equal(MIMEPNG))
			cfg, cfgErr := a.DecodeConfig()
			Expect(cfgErr).NotTo(HaveOccurred())
			Expect(cfg.Width).To(BeNumerically(">", cfg.Height))
		})
	})

	When("the upload is labelled PDF but is garbage", func() {
		BeforeEach(func() {
			data = []byte("%PDF-1.4 truncated")
			contentType = "application/pdf"
		})

		It("should return a conversion error", func() {
			Expect(err).To(MatchError(ContainSubstring("converting PDF to image")))
		})
	})

	When("the upload is not an image", func() {
		BeforeEach(func() {
			data = []byte("plain text, definitely not a picture")
			contentType = "image/png"
		})

		It("should return ErrUnsupportedFormat", func() {
			Expect(err).To(MatchError(ErrUnsupportedFormat))
		})
	})
})

var _ = Describe("DecodeConfig", func() {
	It("should report the image size", func() {
		cfg, err := Inline(samplePNG(), MIMEPNG).DecodeConfig()
		Expect(err).NotTo(HaveOccurred())
		Expect(cfg.Width).To(Equal(4))
		Expect(cfg.Height).To(Equal(3))
	})

	It("should flag valid base64 that is not an image", func() {
		_, err := Parse("data:image/png;base64,AAAA").DecodeConfig()
		Expect(err).To(MatchError(ErrMalformed))
	})
})

var _ = Describe("isHEICFormat", func() {
	It("should recognise the ftyp heic brand", func() {
		Expect(isHEICFormat([]byte("\x00\x00\x00\x18ftypheic0000"))).To(BeTrue())
	})

	It("should reject short input", func() {
		Expect(isHEICFormat([]byte("ftyp"))).To(BeFalse())
	})
})
