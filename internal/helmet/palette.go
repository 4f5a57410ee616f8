package helmet

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"
)

// Drawing constants shared by every renderer.
const (
	BoxThickness  = 2
	TextThickness = 2
	FontScale     = 0.6
	LabelOffset   = 10 // pixels between the label baseline and the box top

	DefaultConfidence = 0.25
	WindowName        = "Helmet Detection - Real Time"
)

var (
	Green = color.RGBA{R: 0, G: 255, B: 0, A: 255}
	Red   = color.RGBA{R: 255, G: 0, B: 0, A: 255}
	White = color.RGBA{R: 255, G: 255, B: 255, A: 255}
)

// Palette resolves one color per class.
type Palette struct {
	Compliant color.RGBA
	Violation color.RGBA
	Fallback  color.RGBA
}

func DefaultPalette() Palette {
	return Palette{Compliant: Green, Violation: Red, Fallback: White}
}

func (p Palette) Color(c Class) color.RGBA {
	switch c {
	case Compliant:
		return p.Compliant
	case Violation:
		return p.Violation
	default:
		return p.Fallback
	}
}

// WithOverrides replaces palette entries with hex colors ("#00ff00").
// Empty strings keep the current color.
func (p Palette) WithOverrides(compliant, violation, fallback string) (Palette, error) {
	var err error
	if p.Compliant, err = override(p.Compliant, compliant); err != nil {
		return p, fmt.Errorf("compliant color: %w", err)
	}
	if p.Violation, err = override(p.Violation, violation); err != nil {
		return p, fmt.Errorf("violation color: %w", err)
	}
	if p.Fallback, err = override(p.Fallback, fallback); err != nil {
		return p, fmt.Errorf("fallback color: %w", err)
	}
	return p, nil
}

func override(current color.RGBA, hex string) (color.RGBA, error) {
	if hex == "" {
		return current, nil
	}
	c, err := colorful.Hex(hex)
	if err != nil {
		return current, err
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}, nil
}
