package signature

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
)

// EventType names a recorded pointer/touch or toolbar action
type EventType string

const (
	EventDown  EventType = "down"
	EventMove  EventType = "move"
	EventUp    EventType = "up"
	EventLeave EventType = "leave"
	EventClear EventType = "clear"
	EventUndo  EventType = "undo"
	EventWidth EventType = "width"
	EventColor EventType = "color"
)

// Event is one entry of a captured gesture stream. X and Y are screen coordinates.
type Event struct {
	Type  EventType `json:"type"`
	X     float64   `json:"x,omitempty"`
	Y     float64   `json:"y,omitempty"`
	Width float64   `json:"width,omitempty"`
	Color string    `json:"color,omitempty"`
}

// Gesture is a captured drawing session together with where the pad was displayed
type Gesture struct {
	Display DisplayRect `json:"display"`
	Events  []Event     `json:"events"`
}

// Palette is the set of pen colours offered by the capture toolbar
var Palette = map[string]string{
	"black":     "#000000",
	"dark_gray": "#1f2937",
	"red":       "#dc2626",
	"blue":      "#2563eb",
}

// Replay feeds a gesture stream through the pad's state machine.
// Unknown event types and unparsable colours are errors; nothing else is.
func (p *Pad) Replay(g Gesture) error {
	for i, ev := range g.Events {
		switch ev.Type {
		case EventDown:
			p.BeginStroke(p.MapPoint(ev.X, ev.Y, g.Display))
		case EventMove:
			p.ExtendStroke(p.MapPoint(ev.X, ev.Y, g.Display))
		case EventUp, EventLeave:
			p.EndStroke()
		case EventClear:
			p.Clear()
		case EventUndo:
			p.Undo()
		case EventWidth:
			p.SetStrokeWidth(ev.Width)
		case EventColor:
			c, err := ParseHexColor(ev.Color)
			if err != nil {
				return fmt.Errorf("event %d: %w", i, err)
			}
			p.SetStrokeColor(c)
		default:
			return fmt.Errorf("event %d: unknown type %q", i, ev.Type)
		}
	}
	p.EndStroke()
	return nil
}

// ParseHexColor parses "#rrggbb" or "#rgb", or a Palette name
func ParseHexColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if named, ok := Palette[s]; ok {
		s = named
	}
	hex := strings.TrimPrefix(s, "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("invalid colour %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
