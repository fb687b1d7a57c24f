package artifact

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	_ "image/png"  // Register PNG decoder
	"strings"

	"github.com/disintegration/imaging"
	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// ErrUnsupportedFormat is returned when an upload cannot be decoded as an image
var ErrUnsupportedFormat = errors.New("unsupported image format")

// FromUpload turns uploaded photo bytes into an InlineRaster artifact.
// PNG and JPEG are kept as-is; HEIC/HEIF, PDF (first page) and GIF are converted to PNG.
func FromUpload(data []byte, contentType string) (Artifact, error) {
	mimeType := normalizeMIME(contentType)

	switch {
	case mimeType == "application/pdf":
		pngData, err := pdfToPNG(data)
		if err != nil {
			return Artifact{}, fmt.Errorf("converting PDF to image: %w", err)
		}
		return Inline(pngData, MIMEPNG), nil
	case isHEICFormat(data) || isHEICMimeType(mimeType):
		pngData, err := heicToPNG(data)
		if err != nil {
			return Artifact{}, fmt.Errorf("converting HEIC to image: %w", err)
		}
		return Inline(pngData, MIMEPNG), nil
	}

	// Trust the bytes over the declared content type
	_, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return Artifact{}, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}

	switch format {
	case "png":
		return Inline(data, MIMEPNG), nil
	case "jpeg":
		return Inline(data, MIMEJPEG), nil
	}

	pngData, err := imageToPNG(data)
	if err != nil {
		return Artifact{}, fmt.Errorf("converting %s to PNG: %w", format, err)
	}
	return Inline(pngData, MIMEPNG), nil
}

// pdfToPNG renders the first page of a PDF, which is where single-page receipts live
func pdfToPNG(pdfData []byte) ([]byte, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return encodePNG(img)
}

func heicToPNG(data []byte) ([]byte, error) {
	img, err := heic.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
	}
	return encodePNG(img)
}

func imageToPNG(data []byte) ([]byte, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
	}
	return encodePNG(img)
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}

// DecodeConfig reads the dimensions of an InlineRaster artifact without decoding the whole image
func (a Artifact) DecodeConfig() (image.Config, error) {
	data, err := a.Bytes()
	if err != nil {
		return image.Config{}, err
	}
	cfg, _, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return image.Config{}, fmt.Errorf("reading image header: %w", errors.Join(ErrMalformed, err))
	}
	return cfg, nil
}

// isHEICFormat checks for an ftyp box with a HEIC-family brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 {
		return false
	}
	if string(data[4:8]) == "ftyp" {
		brand := string(data[8:12])
		if brand == "heic" || brand == "heif" || brand == "mif1" || brand == "msf1" {
			return true
		}
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}
