// Package display provides the screens the status line is drawn on.
package display

import (
	"errors"
	"image/color"
)

// Position is the top-left corner of the status line, in pixels for
// raster screens. Text screens ignore it.
type Position struct {
	X, Y int
}

// Style holds the status line colors.
type Style struct {
	Foreground color.Color
	Background color.Color
}

// DefaultStyle is white text on black.
func DefaultStyle() Style {
	return Style{Foreground: color.White, Background: color.Black}
}

// Display is a screen that can be switched on and off and that draws one
// fixed-width line of text.
type Display interface {
	SetPower(on bool) error
	Draw(line string, pos Position, style Style) error
}

// Multi fans every call out to several displays.
type Multi []Display

// SetPower switches every display, returning all failures joined.
func (m Multi) SetPower(on bool) error {
	var errs []error
	for _, d := range m {
		if err := d.SetPower(on); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Draw draws the line on every display, returning all failures joined.
func (m Multi) Draw(line string, pos Position, style Style) error {
	var errs []error
	for _, d := range m {
		if err := d.Draw(line, pos, style); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
