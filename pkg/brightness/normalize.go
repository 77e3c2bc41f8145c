// Package brightness maps raw voxel intensities onto the [0,1] display range.
package brightness

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"

	"axonatlas/internal/models"
)

// Window is the (Min, Max) intensity range mapped to the full display range.
type Window struct {
	Min float64 `yaml:"min"`
	Max float64 `yaml:"max"`
}

// Validate checks that both bounds are finite and Min <= Max.
func (w Window) Validate() error {
	if math.IsNaN(w.Min) || math.IsNaN(w.Max) || math.IsInf(w.Min, 0) || math.IsInf(w.Max, 0) {
		return fmt.Errorf("brightness window %v has non-finite bounds", w)
	}
	if w.Min > w.Max {
		return fmt.Errorf("brightness window min %g exceeds max %g", w.Min, w.Max)
	}
	return nil
}

// Degenerate reports whether the window has zero width. Normalize maps every
// value to 0 for such windows instead of dividing by zero.
func (w Window) Degenerate() bool { return !(w.Max > w.Min) }

func (w Window) String() string { return fmt.Sprintf("[%g, %g]", w.Min, w.Max) }

// Normalize clips every value of p to w, maps it affinely to [0,1] and
// scales the result by opacity, so the output lies in [0, opacity].
//
// Special cases: a degenerate window (Max <= Min) yields an all-zero plane,
// NaN inputs map to 0, and opacity is clamped to [0,1].
func Normalize[T models.Number](p *models.Plane[T], w Window, opacity float64) *models.Plane[float64] {
	out := models.NewPlane[float64](p.Width, p.Height)
	if w.Degenerate() {
		return out
	}

	span := w.Max - w.Min
	for i, raw := range p.Data {
		v := float64(raw)
		switch {
		case math.IsNaN(v), v <= w.Min:
			v = 0
		case v >= w.Max:
			v = 1
		default:
			v = (v - w.Min) / span
		}
		out.Data[i] = v
	}

	floats.Scale(clampOpacity(opacity), out.Data)
	return out
}

func clampOpacity(o float64) float64 {
	if math.IsNaN(o) || o < 0 {
		return 0
	}
	if o > 1 {
		return 1
	}
	return o
}
