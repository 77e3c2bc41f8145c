// Package slicer extracts oriented 2D planes from (Z, Y, X) volumes.
//
// Orientation convention: every plane is first taken unrotated from the
// volume (XY gives a (Y, X) plane, YZ a (Z, Y) plane, XZ a (Z, X) plane).
// YZ and XZ planes then receive one counter-clockwise quarter turn so that
// they present the conventional orientation, and after that the caller's
// rotation count is applied in the same direction. Because every turn has
// the same direction the total is simply (base + rotations) mod 4.
package slicer

import (
	"fmt"

	"axonatlas/internal/models"
)

// BaseRotation is the number of quarter turns applied to a plane of the
// given axis before any user rotation.
func BaseRotation(axis models.Axis) int {
	if axis == models.AxisXY {
		return 0
	}
	return 1
}

func checkIndex(s models.Shape, axis models.Axis, index int) error {
	if !axis.Valid() {
		return fmt.Errorf("invalid axis: %v", axis)
	}
	n := axis.FixedExtent(s)
	if index < 0 || index >= n {
		return fmt.Errorf("%w: %s index %d not in [0, %d)", models.ErrIndexOutOfRange, axis.FixedName(), index, n)
	}
	return nil
}

// BasePlane returns the unrotated plane of v at index along the axis held
// fixed by axis. The volume is not modified.
func BasePlane[T any](v *models.Volume[T], axis models.Axis, index int) (*models.Plane[T], error) {
	if err := checkIndex(v.Shape(), axis, index); err != nil {
		return nil, err
	}

	var p *models.Plane[T]
	switch axis {
	case models.AxisXY:
		// Fix Z: rows are Y, columns are X. The plane is contiguous in memory.
		p = models.NewPlane[T](v.Width, v.Height)
		start := v.Index(index, 0, 0)
		copy(p.Data, v.Data[start:start+v.Width*v.Height])

	case models.AxisYZ:
		// Fix X: rows are Z, columns are Y.
		p = models.NewPlane[T](v.Height, v.Depth)
		for z := 0; z < v.Depth; z++ {
			for y := 0; y < v.Height; y++ {
				p.Data[z*v.Height+y] = v.Data[v.Index(z, y, index)]
			}
		}

	case models.AxisXZ:
		// Fix Y: rows are Z, columns are X.
		p = models.NewPlane[T](v.Width, v.Depth)
		for z := 0; z < v.Depth; z++ {
			start := v.Index(z, index, 0)
			copy(p.Data[z*v.Width:(z+1)*v.Width], v.Data[start:start+v.Width])
		}
	}
	return p, nil
}

// Slice returns the plane of v at index along axis, with the axis base
// rotation followed by rotations extra counter-clockwise quarter turns.
func Slice[T any](v *models.Volume[T], axis models.Axis, index, rotations int) (*models.Plane[T], error) {
	p, err := BasePlane(v, axis, index)
	if err != nil {
		return nil, err
	}
	return Rotate90(p, BaseRotation(axis)+rotations), nil
}

// PlaneSize returns the (width, height) of Slice's result without slicing.
func PlaneSize(s models.Shape, axis models.Axis, rotations int) (width, height int) {
	switch axis {
	case models.AxisYZ:
		width, height = s.Height, s.Depth
	case models.AxisXZ:
		width, height = s.Width, s.Depth
	default:
		width, height = s.Width, s.Height
	}
	if mod4(BaseRotation(axis)+rotations)%2 == 1 {
		width, height = height, width
	}
	return width, height
}

func mod4(k int) int { return ((k % 4) + 4) % 4 }

// Rotate90 rotates p by k counter-clockwise quarter turns. k may be any
// integer; it is reduced mod 4. A fresh plane is always returned, so four
// turns give an exact copy of the input.
//
// One turn maps an H x W plane to a W x H plane with
// out[i][j] = in[j][W-1-i].
func Rotate90[T any](p *models.Plane[T], k int) *models.Plane[T] {
	w, h := p.Width, p.Height
	switch mod4(k) {
	case 1:
		out := models.NewPlane[T](h, w)
		for i := 0; i < w; i++ {
			for j := 0; j < h; j++ {
				out.Data[i*h+j] = p.Data[j*w+(w-1-i)]
			}
		}
		return out
	case 2:
		out := models.NewPlane[T](w, h)
		n := len(p.Data)
		for i, v := range p.Data {
			out.Data[n-1-i] = v
		}
		return out
	case 3:
		// out[i][j] = in[H-1-j][i]
		out := models.NewPlane[T](h, w)
		for i := 0; i < w; i++ {
			for j := 0; j < h; j++ {
				out.Data[i*h+j] = p.Data[(h-1-j)*w+i]
			}
		}
		return out
	}
	out := models.NewPlane[T](w, h)
	copy(out.Data, p.Data)
	return out
}

// Reorient returns a volume whose k-th Z plane equals BasePlane(v, axis, k):
//
//	XY -> (Z, Y, X), a copy of v
//	YZ -> (X, Z, Y)
//	XZ -> (Y, Z, X)
//
// Voxel correspondence is preserved, so a stack written from the result
// shows the same unrotated planes the slicer produces for that axis.
func Reorient[T any](v *models.Volume[T], axis models.Axis) (*models.Volume[T], error) {
	var out *models.Volume[T]
	var err error
	switch axis {
	case models.AxisXY:
		out, err = models.NewVolume[T](v.Depth, v.Height, v.Width)
		if err != nil {
			return nil, err
		}
		copy(out.Data, v.Data)

	case models.AxisYZ:
		out, err = models.NewVolume[T](v.Width, v.Depth, v.Height)
		if err != nil {
			return nil, err
		}
		for z := 0; z < v.Depth; z++ {
			for y := 0; y < v.Height; y++ {
				for x := 0; x < v.Width; x++ {
					out.Data[out.Index(x, z, y)] = v.Data[v.Index(z, y, x)]
				}
			}
		}

	case models.AxisXZ:
		out, err = models.NewVolume[T](v.Height, v.Depth, v.Width)
		if err != nil {
			return nil, err
		}
		for z := 0; z < v.Depth; z++ {
			for y := 0; y < v.Height; y++ {
				src := v.Index(z, y, 0)
				dst := out.Index(y, z, 0)
				copy(out.Data[dst:dst+v.Width], v.Data[src:src+v.Width])
			}
		}

	default:
		return nil, fmt.Errorf("invalid axis: %v", axis)
	}
	out.VoxelSize = v.VoxelSize
	return out, nil
}
