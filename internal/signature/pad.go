package signature

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	"image/draw"

	"github.com/disintegration/imaging"
	"golang.org/x/image/vector"

	"github.com/zombor/viatico-tracker/internal/artifact"
)

// ErrEmptySignature is returned by Finalize when nothing has been drawn
var ErrEmptySignature = errors.New("signature is empty")

const (
	DefaultWidth       = 500
	DefaultHeight      = 200
	DefaultStrokeWidth = 2.0
)

// State is the drawing state of a Pad
type State int

const (
	Idle State = iota
	Drawing
)

func (s State) String() string {
	if s == Drawing {
		return "drawing"
	}
	return "idle"
}

// Point is a position on the logical grid
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// DisplayRect is where the pad is shown on screen, in screen pixels
type DisplayRect struct {
	Left   float64 `json:"left"`
	Top    float64 `json:"top"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// stroke is one completed or in-progress path, kept so strokes can be undone and replayed
type stroke struct {
	width  float64
	color  color.Color
	points []Point
}

// Pad is a freehand drawing surface with a fixed logical resolution.
// A Pad is not safe for concurrent use.
type Pad struct {
	width, height int
	background    color.Color
	strokeWidth   float64
	strokeColor   color.Color

	canvas  *image.RGBA
	raster  *vector.Rasterizer
	state   State
	current *stroke
	history []*stroke

	onSave  func(artifact.Artifact)
	onClear func()
}

// Option configures a Pad
type Option func(*Pad)

// WithSize sets the logical grid size
func WithSize(width, height int) Option {
	return func(p *Pad) {
		if width > 0 && height > 0 {
			p.width, p.height = width, height
		}
	}
}

// WithBackground sets the background colour. Alpha is forced to opaque.
func WithBackground(c color.Color) Option {
	return func(p *Pad) {
		p.background = opaque(c)
	}
}

// WithOnSave registers a callback invoked with the artifact after each successful Finalize
func WithOnSave(fn func(artifact.Artifact)) Option {
	return func(p *Pad) { p.onSave = fn }
}

// WithOnClear registers a callback invoked after each Clear
func WithOnClear(fn func()) Option {
	return func(p *Pad) { p.onClear = fn }
}

// NewPad creates a blank pad, 500x200 white with a 2px black pen unless configured otherwise
func NewPad(opts ...Option) *Pad {
	p := &Pad{
		width:       DefaultWidth,
		height:      DefaultHeight,
		background:  color.White,
		strokeWidth: DefaultStrokeWidth,
		strokeColor: color.Black,
	}
	for _, opt := range opts {
		opt(p)
	}
	p.canvas = image.NewRGBA(image.Rect(0, 0, p.width, p.height))
	p.raster = vector.NewRasterizer(p.width, p.height)
	p.paintBackground()
	return p
}

// Size returns the logical grid dimensions
func (p *Pad) Size() (int, int) { return p.width, p.height }

// State returns whether a stroke is in progress
func (p *Pad) State() State { return p.state }

// CanFinalize reports whether a stroke exists, i.e. whether saving should be enabled
func (p *Pad) CanFinalize() bool {
	return p.current != nil || len(p.history) > 0
}

// MapPoint converts screen coordinates to the logical grid, scaling each axis by
// logical size over displayed size. A zero display dimension maps 1:1.
func (p *Pad) MapPoint(clientX, clientY float64, display DisplayRect) Point {
	scaleX, scaleY := 1.0, 1.0
	if display.Width > 0 {
		scaleX = float64(p.width) / display.Width
	}
	if display.Height > 0 {
		scaleY = float64(p.height) / display.Height
	}
	return Point{
		X: (clientX - display.Left) * scaleX,
		Y: (clientY - display.Top) * scaleY,
	}
}

// BeginStroke starts a new path at pt. A stroke already in progress is committed first.
func (p *Pad) BeginStroke(pt Point) {
	if p.state == Drawing {
		p.EndStroke()
	}
	p.current = &stroke{
		width:  p.strokeWidth,
		color:  p.strokeColor,
		points: []Point{pt},
	}
	p.state = Drawing
}

// ExtendStroke draws a straight segment from the last point to pt. Ignored when idle.
func (p *Pad) ExtendStroke(pt Point) {
	if p.state != Drawing || p.current == nil {
		return
	}
	last := p.current.points[len(p.current.points)-1]
	p.current.points = append(p.current.points, pt)
	p.drawSegment(last, pt, p.current.width, p.current.color)
}

// EndStroke finishes the current path. Safe to call in any state.
func (p *Pad) EndStroke() {
	if p.current != nil {
		p.history = append(p.history, p.current)
		p.current = nil
	}
	p.state = Idle
}

// Clear repaints the background and forgets every stroke
func (p *Pad) Clear() {
	p.current = nil
	p.history = nil
	p.state = Idle
	p.paintBackground()
	if p.onClear != nil {
		p.onClear()
	}
}

// Undo removes the most recent stroke and redraws the rest.
// It reports whether there was a stroke to remove.
func (p *Pad) Undo() bool {
	p.EndStroke()
	if len(p.history) == 0 {
		return false
	}
	p.history = p.history[:len(p.history)-1]
	p.replayHistory()
	return true
}

// SetStrokeWidth changes the pen width for subsequent strokes. Non-positive widths are ignored.
func (p *Pad) SetStrokeWidth(px float64) {
	if px > 0 {
		p.strokeWidth = px
	}
}

// SetStrokeColor changes the pen colour for subsequent strokes
func (p *Pad) SetStrokeColor(c color.Color) {
	if c != nil {
		p.strokeColor = c
	}
}

// Image returns a copy of the current surface
func (p *Pad) Image() *image.NRGBA {
	return imaging.Clone(p.canvas)
}

// Finalize flattens the surface onto a fresh opaque background and returns it as a PNG artifact
func (p *Pad) Finalize() (artifact.Artifact, error) {
	if !p.CanFinalize() {
		return artifact.Artifact{}, ErrEmptySignature
	}

	flat := imaging.New(p.width, p.height, p.background)
	flat = imaging.Overlay(flat, p.canvas, image.Pt(0, 0), 1.0)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, flat, imaging.PNG); err != nil {
		return artifact.Artifact{}, fmt.Errorf("encoding signature: %w", err)
	}

	a := artifact.Inline(buf.Bytes(), artifact.MIMEPNG)
	if p.onSave != nil {
		p.onSave(a)
	}
	return a, nil
}

func (p *Pad) paintBackground() {
	draw.Draw(p.canvas, p.canvas.Bounds(), image.NewUniform(p.background), image.Point{}, draw.Src)
}

func (p *Pad) replayHistory() {
	p.paintBackground()
	for _, s := range p.history {
		for i := 1; i < len(s.points); i++ {
			p.drawSegment(s.points[i-1], s.points[i], s.width, s.color)
		}
	}
}

// drawSegment fills a capsule around a-b, giving round caps and joins between segments
func (p *Pad) drawSegment(a, b Point, width float64, c color.Color) {
	p.raster.Reset(p.width, p.height)
	capsule(p.raster, a, b, width/2)
	p.raster.Draw(p.canvas, p.canvas.Bounds(), image.NewUniform(c), image.Point{})
}

func opaque(c color.Color) color.Color {
	n := color.NRGBAModel.Convert(c).(color.NRGBA)
	n.A = 0xff
	return n
}
