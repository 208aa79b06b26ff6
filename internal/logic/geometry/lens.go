package geometry

import (
	"math"

	"github.com/cjeanneret/FocusRail/internal/config"
)

// Lens converts focus motor positions into a focus distance readout.
//
// Focus distance is modelled as linear in diopters (1000 / distance in mm):
// each motor step moves the focus by a fixed diopter amount, so steps near
// the close-focus end change the distance far less than steps near infinity.
// The result is an estimate for display only.
type Lens struct {
	startDiopters   float64
	dioptersPerStep float64
	minMm           int
	maxMm           int
}

// NewLens creates a lens model from configuration.
func NewLens(cfg *config.Config) *Lens {
	return &Lens{
		startDiopters:   diopters(cfg.Lens.StartDistanceMm),
		dioptersPerStep: cfg.Lens.DioptersPerStep,
		minMm:           cfg.Lens.MinDistanceMm,
		maxMm:           cfg.Lens.MaxDistanceMm,
	}
}

// DistanceMm returns the focus distance for an absolute step position,
// clamped to the lens range. Positive steps focus nearer.
func (l *Lens) DistanceMm(steps int) int {
	d := l.startDiopters + float64(steps)*l.dioptersPerStep
	if d >= diopters(l.minMm) {
		return l.minMm
	}
	if d <= diopters(l.maxMm) {
		return l.maxMm
	}
	mm := int(math.Round(1000.0 / d))
	return max(l.minMm, min(l.maxMm, mm))
}

func diopters(mm int) float64 {
	if mm <= 0 {
		return math.Inf(1)
	}
	return 1000.0 / float64(mm)
}
