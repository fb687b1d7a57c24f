package report

import (
	"fmt"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/zombor/viatico-tracker/internal/artifact"
)

// minImageRowHeight is the smallest row height, in points, that fits an embedded image
const minImageRowHeight = 60

const linkText = "View image"

// SlotOutcome records how an image slot was rendered
type SlotOutcome int

const (
	// SlotPlaceholder means the artifact was absent
	SlotPlaceholder SlotOutcome = iota
	// SlotLinked means a hyperlink cell was written
	SlotLinked
	// SlotEmbedded means the picture was embedded in the workbook
	SlotEmbedded
	// SlotFailed means the artifact could not be used and an error placeholder was written
	SlotFailed
)

func (o SlotOutcome) String() string {
	switch o {
	case SlotPlaceholder:
		return "placeholder"
	case SlotLinked:
		return "linked"
	case SlotEmbedded:
		return "embedded"
	case SlotFailed:
		return "failed"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// SlotResult is the rendering outcome of one image cell
type SlotResult struct {
	Slot    string
	Cell    string
	Outcome SlotOutcome
}

// placeSlot renders one artifact into its cell. Every failure, including a panic
// inside excelize or an image decoder, ends as an error placeholder in that cell only.
func (b *Builder) placeSlot(s *sheet, row int, cell string, slot imageSlot, a artifact.Artifact) (res SlotResult) {
	res = SlotResult{Slot: slot.name, Cell: cell}

	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("Image slot panicked",
				zap.String("cell", cell),
				zap.String("slot", slot.name),
				zap.Any("panic", p),
			)
			res.Outcome = b.failSlot(s, cell, slot)
		}
	}()

	var err error
	switch a.Kind() {
	case artifact.None:
		res.Outcome = SlotPlaceholder
		err = s.set(cell, slot.empty, stylePlaceholder)
	case artifact.RemoteLink:
		res.Outcome = SlotLinked
		err = s.link(cell, a.URL())
	case artifact.InlineRaster:
		res.Outcome = SlotEmbedded
		err = s.embed(row, cell, slot.name, a)
	default:
		err = fmt.Errorf("classifying artifact: %w", artifact.ErrMalformed)
	}

	if err != nil {
		b.logger.Warn("Image slot rendered as error",
			zap.String("cell", cell),
			zap.String("slot", slot.name),
			zap.String("kind", a.Kind().String()),
			zap.Error(err),
		)
		res.Outcome = b.failSlot(s, cell, slot)
	}
	return res
}

func (b *Builder) failSlot(s *sheet, cell string, slot imageSlot) SlotOutcome {
	if err := s.set(cell, "ERROR "+slot.name, styleError); err != nil {
		b.logger.Error("Failed to write error placeholder", zap.String("cell", cell), zap.Error(err))
	}
	return SlotFailed
}

// link writes a hyperlink cell; the image itself is never fetched
func (s *sheet) link(cell, url string) error {
	if err := s.set(cell, linkText, styleLink); err != nil {
		return err
	}
	display, tooltip := linkText, url
	if err := s.f.SetCellHyperLink(s.name, cell, url, "External", excelize.HyperlinkOpts{
		Display: &display,
		Tooltip: &tooltip,
	}); err != nil {
		return fmt.Errorf("setting hyperlink: %w", err)
	}
	return nil
}

// embed decodes the payload and anchors the picture to the cell
func (s *sheet) embed(row int, cell, name string, a artifact.Artifact) error {
	if _, err := a.DecodeConfig(); err != nil {
		return err
	}
	data, err := a.Bytes()
	if err != nil {
		return err
	}
	if err := s.f.AddPictureFromBytes(s.name, cell, &excelize.Picture{
		Extension: a.Extension(),
		File:      data,
		Format: &excelize.GraphicOptions{
			AltText:     name,
			AutoFit:     true,
			OffsetX:     2,
			OffsetY:     2,
			Positioning: "oneCell",
		},
	}); err != nil {
		return fmt.Errorf("embedding picture: %w", err)
	}
	if err := s.f.SetCellStyle(s.name, cell, cell, s.styles[styleImage]); err != nil {
		return fmt.Errorf("styling %s: %w", cell, err)
	}
	return s.ensureRowHeight(row, minImageRowHeight)
}

func (s *sheet) ensureRowHeight(row int, minHeight float64) error {
	height, err := s.f.GetRowHeight(s.name, row)
	if err != nil {
		return fmt.Errorf("reading row %d height: %w", row, err)
	}
	if height >= minHeight {
		return nil
	}
	if err := s.f.SetRowHeight(s.name, row, minHeight); err != nil {
		return fmt.Errorf("setting row %d height: %w", row, err)
	}
	return nil
}
