package models

import (
	"fmt"
)

// Number is the set of fixed-width element types a decoded stack may carry.
type Number interface {
	~uint8 | ~uint16 | ~uint32 | ~int8 | ~int16 | ~int32 | ~float32 | ~float64
}

// DType names the element type of a volume so it can be carried through
// type-erased layers unchanged.
type DType int

const (
	Uint8 DType = iota
	Uint16
	Uint32
	Int8
	Int16
	Int32
	Float32
	Float64
)

func (d DType) String() string {
	switch d {
	case Uint8:
		return "uint8"
	case Uint16:
		return "uint16"
	case Uint32:
		return "uint32"
	case Int8:
		return "int8"
	case Int16:
		return "int16"
	case Int32:
		return "int32"
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	}
	return fmt.Sprintf("DType(%d)", int(d))
}

// DTypeOf reports the DType of T.
func DTypeOf[T Number]() DType {
	var zero T
	switch any(zero).(type) {
	case uint8:
		return Uint8
	case uint16:
		return Uint16
	case uint32:
		return Uint32
	case int8:
		return Int8
	case int16:
		return Int16
	case int32:
		return Int32
	case float32:
		return Float32
	}
	return Float64
}

// Shape holds the extents of a volume in (Z, Y, X) order.
type Shape struct {
	Depth  int
	Height int
	Width  int
}

func (s Shape) String() string {
	return fmt.Sprintf("(%d, %d, %d)", s.Depth, s.Height, s.Width)
}

// Voxels is the number of elements a volume of this shape holds.
func (s Shape) Voxels() int { return s.Depth * s.Height * s.Width }

// Valid reports whether all three extents are positive.
func (s Shape) Valid() bool { return s.Depth > 0 && s.Height > 0 && s.Width > 0 }

// Volume is a 3D grid of voxels stored in row-major order with axes (Z, Y, X):
// the voxel at (z, y, x) lives at Data[(z*Height+y)*Width+x].
type Volume[T any] struct {
	// Data is the voxel data as a 1D array in row-major order
	Data []T

	// Width, Height and Depth are the X, Y and Z extents in voxels
	Width  int
	Height int
	Depth  int

	// VoxelSize is the physical size of each voxel in microns
	VoxelSize struct {
		X, Y, Z float64
	}
}

// NewVolume allocates a zeroed volume. All extents must be positive.
func NewVolume[T any](depth, height, width int) (*Volume[T], error) {
	s := Shape{Depth: depth, Height: height, Width: width}
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidShape, s)
	}
	return &Volume[T]{
		Data:   make([]T, s.Voxels()),
		Width:  width,
		Height: height,
		Depth:  depth,
	}, nil
}

// FromSlice wraps data as a volume without copying it.
func FromSlice[T any](data []T, depth, height, width int) (*Volume[T], error) {
	s := Shape{Depth: depth, Height: height, Width: width}
	if !s.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidShape, s)
	}
	if len(data) != s.Voxels() {
		return nil, fmt.Errorf("%w: %d values for shape %s", ErrInvalidShape, len(data), s)
	}
	return &Volume[T]{Data: data, Width: width, Height: height, Depth: depth}, nil
}

func (v *Volume[T]) Shape() Shape {
	return Shape{Depth: v.Depth, Height: v.Height, Width: v.Width}
}

func (v *Volume[T]) Index(z, y, x int) int { return (z*v.Height+y)*v.Width + x }
func (v *Volume[T]) At(z, y, x int) T { return v.Data[v.Index(z, y, x)] }
func (v *Volume[T]) Set(z, y, x int, val T) { v.Data[v.Index(z, y, x)] = val }

// SameShape returns ErrShapeMismatch unless a and b have identical extents.
func SameShape[A, B any](a *Volume[A], b *Volume[B]) error {
	if a.Shape() != b.Shape() {
		return fmt.Errorf("%w: %s vs %s", ErrShapeMismatch, a.Shape(), b.Shape())
	}
	return nil
}

// Binarize turns a numeric volume into a mask where every nonzero voxel is true.
func Binarize[T Number](v *Volume[T]) *Volume[bool] {
	mask := &Volume[bool]{
		Data:      make([]bool, len(v.Data)),
		Width:     v.Width,
		Height:    v.Height,
		Depth:     v.Depth,
		VoxelSize: v.VoxelSize,
	}
	for i, val := range v.Data {
		mask.Data[i] = val != 0
	}
	return mask
}

// Plane is a 2D array in row-major order: the value at row y, column x lives
// at Data[y*Width+x].
type Plane[T any] struct {
	Data   []T
	Width  int
	Height int
}

func NewPlane[T any](width, height int) *Plane[T] {
	return &Plane[T]{Data: make([]T, width*height), Width: width, Height: height}
}

func (p *Plane[T]) At(x, y int) T { return p.Data[y*p.Width+x] }
func (p *Plane[T]) Set(x, y int, val T) { p.Data[y*p.Width+x] = val }

// PlaneAsFloat64 widens a numeric plane to float64. Every supported element
// type converts exactly.
func PlaneAsFloat64[T Number](p *Plane[T]) *Plane[float64] {
	out := NewPlane[float64](p.Width, p.Height)
	for i, v := range p.Data {
		out.Data[i] = float64(v)
	}
	return out
}
