// Package volume holds loaded voxel volumes keyed by identifier together with
// the render parameters the control surface edits for each of them.
package volume

import (
	"math"

	"axonatlas/internal/models"
	"axonatlas/pkg/slicer"
)

// Layer is a loaded volume with its element type erased. Planes come back as
// float64, which represents every supported element type exactly.
type Layer interface {
	Shape() models.Shape
	DType() models.DType

	// Range is the (min, max) of all voxel values, computed once at load time.
	Range() (lo, hi float64)

	// Plane slices the volume with the slicer's orientation rules.
	Plane(axis models.Axis, index, rotations int) (*models.Plane[float64], error)

	// PlaneZ returns the unrotated XY plane at z, for export.
	PlaneZ(z int) (*models.Plane[float64], error)

	// Each calls fn for every voxel value in storage order.
	Each(fn func(v float64))
}

type typedLayer[T models.Number] struct {
	vol    *models.Volume[T]
	lo, hi float64
}

// NewLayer wraps v. The volume is held by reference and must not be mutated
// afterwards.
func NewLayer[T models.Number](v *models.Volume[T]) Layer {
	l := &typedLayer[T]{vol: v, lo: math.Inf(1), hi: math.Inf(-1)}
	for _, raw := range v.Data {
		f := float64(raw)
		if math.IsNaN(f) {
			continue
		}
		l.lo = math.Min(l.lo, f)
		l.hi = math.Max(l.hi, f)
	}
	if l.lo > l.hi {
		l.lo, l.hi = 0, 0
	}
	return l
}

// Volume returns the typed volume behind a layer created by NewLayer[T].
func Volume[T models.Number](l Layer) (*models.Volume[T], bool) {
	tl, ok := l.(*typedLayer[T])
	if !ok {
		return nil, false
	}
	return tl.vol, true
}

func (l *typedLayer[T]) Shape() models.Shape { return l.vol.Shape() }
func (l *typedLayer[T]) DType() models.DType { return models.DTypeOf[T]() }
func (l *typedLayer[T]) Range() (float64, float64) { return l.lo, l.hi }

func (l *typedLayer[T]) Plane(axis models.Axis, index, rotations int) (*models.Plane[float64], error) {
	p, err := slicer.Slice(l.vol, axis, index, rotations)
	if err != nil {
		return nil, err
	}
	return models.PlaneAsFloat64(p), nil
}

func (l *typedLayer[T]) PlaneZ(z int) (*models.Plane[float64], error) {
	p, err := slicer.BasePlane(l.vol, models.AxisXY, z)
	if err != nil {
		return nil, err
	}
	return models.PlaneAsFloat64(p), nil
}

func (l *typedLayer[T]) Each(fn func(v float64)) {
	for _, v := range l.vol.Data {
		fn(float64(v))
	}
}
