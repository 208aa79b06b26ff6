package display

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/cjeanneret/FocusRail/internal/debug"
	"github.com/cjeanneret/FocusRail/internal/hw/gpio"
)

// RasterConfig describes a pixel screen.
type RasterConfig struct {
	Width        int
	Height       int
	BacklightPin int    // 0 = no backlight control
	SnapshotPath string // PNG written after each changed line; empty = none
}

// Raster renders the status line into an in-memory RGBA frame with a
// small fixed font. The backlight is driven through a GPIO pin.
type Raster struct {
	mu    sync.Mutex
	cfg   RasterConfig
	gpio  gpio.Driver
	face  font.Face
	frame *image.RGBA
	last  string
}

// NewRaster creates a raster display and switches the backlight on.
func NewRaster(g gpio.Driver, cfg RasterConfig) (*Raster, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("raster display: invalid size %dx%d", cfg.Width, cfg.Height)
	}
	r := &Raster{
		cfg:   cfg,
		gpio:  g,
		face:  basicfont.Face7x13,
		frame: image.NewRGBA(image.Rect(0, 0, cfg.Width, cfg.Height)),
	}
	draw.Draw(r.frame, r.frame.Bounds(), image.NewUniform(color.Black), image.Point{}, draw.Src)

	if cfg.BacklightPin > 0 {
		if err := g.SetupPin(cfg.BacklightPin, gpio.Output); err != nil {
			return nil, fmt.Errorf("backlight pin %d: %w", cfg.BacklightPin, err)
		}
	}
	if err := r.SetPower(true); err != nil {
		return nil, err
	}
	return r, nil
}

// SetPower drives the backlight pin (active high). The frame keeps
// updating while the backlight is off.
func (r *Raster) SetPower(on bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cfg.BacklightPin <= 0 {
		return nil
	}
	if err := r.gpio.WritePin(r.cfg.BacklightPin, gpio.Level(on)); err != nil {
		return fmt.Errorf("backlight: %w", err)
	}
	return nil
}

// Draw clears the line area and renders line at pos. pos.Y is the top of
// the text box.
func (r *Raster) Draw(line string, pos Position, style Style) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if line == r.last {
		return nil
	}
	r.last = line

	if style.Foreground == nil || style.Background == nil {
		style = DefaultStyle()
	}
	metrics := r.face.Metrics()
	height := (metrics.Ascent + metrics.Descent).Ceil()
	bounds := r.frame.Bounds()
	// Clear the whole row so a shorter line leaves nothing behind.
	box := image.Rect(bounds.Min.X, pos.Y, bounds.Max.X, pos.Y+height).Intersect(bounds)
	draw.Draw(r.frame, box, image.NewUniform(style.Background), image.Point{}, draw.Src)

	d := &font.Drawer{
		Dst:  r.frame,
		Src:  image.NewUniform(style.Foreground),
		Face: r.face,
		Dot:  fixed.Point26_6{X: fixed.I(pos.X), Y: fixed.I(pos.Y) + metrics.Ascent},
	}
	d.DrawString(line)

	if r.cfg.SnapshotPath == "" {
		return nil
	}
	return r.writeSnapshot()
}

// Frame returns a copy of the current frame.
func (r *Raster) Frame() *image.RGBA {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := image.NewRGBA(r.frame.Bounds())
	copy(out.Pix, r.frame.Pix)
	return out
}

// writeSnapshot saves the frame as PNG. Callers hold r.mu.
func (r *Raster) writeSnapshot() error {
	dir := filepath.Dir(r.cfg.SnapshotPath)
	tmp, err := os.CreateTemp(dir, ".frame-*.png")
	if err != nil {
		return fmt.Errorf("raster snapshot: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := png.Encode(tmp, r.frame); err != nil {
		tmp.Close()
		return fmt.Errorf("raster snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("raster snapshot: %w", err)
	}
	if err := os.Rename(tmp.Name(), r.cfg.SnapshotPath); err != nil {
		return fmt.Errorf("raster snapshot: %w", err)
	}
	debug.Trace("Raster snapshot written to %s", r.cfg.SnapshotPath)
	return nil
}
