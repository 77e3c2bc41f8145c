// Package density turns a binary segmentation mask into a smoothed density
// heatmap and writes it as three oriented RGB stacks.
//
// The density of a voxel is the number of true voxels inside the cube of side
// kernelSize centered on it, with everything outside the volume counting as
// false. Counts are divided by their global maximum so the result lies in
// [0, 1], then mapped through a palette.
package density

import (
	"fmt"

	"gonum.org/v1/gonum/floats"

	"axonatlas/internal/models"
	"axonatlas/pkg/colormap"
	"axonatlas/pkg/slicer"
)

// DefaultPalette is the transfer function used for heatmaps.
const DefaultPalette = colormap.Plasma

// boundaryColor is the color boundary markers are drawn with.
var boundaryColor = [3]uint8{255, 255, 255}

func checkKernel(k int) error {
	if k <= 0 || k%2 == 0 {
		return fmt.Errorf("%w: kernel size %d must be odd and positive", models.ErrInvalidKernel, k)
	}
	return nil
}

// BoxCount returns, for every voxel, the number of true voxels in the
// k x k x k neighborhood centered on it. The filter is applied as three 1D
// passes, each a difference of prefix sums, which gives the same counts as
// direct summation in O(n) per pass regardless of k.
func BoxCount(mask *models.Volume[bool], k int) (*models.Volume[float64], error) {
	if err := checkKernel(k); err != nil {
		return nil, err
	}

	out, err := models.NewVolume[float64](mask.Depth, mask.Height, mask.Width)
	if err != nil {
		return nil, err
	}
	for i, b := range mask.Data {
		if b {
			out.Data[i] = 1
		}
	}
	out.VoxelSize = mask.VoxelSize

	tmp := make([]float64, len(out.Data))
	s := mask.Shape()
	r := k / 2
	boxPass(out.Data, tmp, s.Width, 1, r)
	boxPass(tmp, out.Data, s.Height, s.Width, r)
	boxPass(out.Data, tmp, s.Depth, s.Width*s.Height, r)
	copy(out.Data, tmp)
	return out, nil
}

// boxPass writes into dst the windowed sums of radius r of every line of src
// that has n elements spaced stride apart.
func boxPass(src, dst []float64, n, stride, r int) {
	prefix := make([]float64, n+1)
	for start := range src {
		if (start/stride)%n != 0 {
			continue
		}
		for i := 0; i < n; i++ {
			prefix[i+1] = prefix[i] + src[start+i*stride]
		}
		for i := 0; i < n; i++ {
			lo := max(i-r, 0)
			hi := min(i+r+1, n)
			dst[start+i*stride] = prefix[hi] - prefix[lo]
		}
	}
}

// Estimate returns the box counts of mask divided by their global maximum.
// An all-false mask yields all zeros.
func Estimate(mask *models.Volume[bool], k int) (*models.Volume[float64], error) {
	d, _, err := estimate(mask, k)
	return d, err
}

// estimate also returns the peak count the densities were divided by.
func estimate(mask *models.Volume[bool], k int) (*models.Volume[float64], float64, error) {
	d, err := BoxCount(mask, k)
	if err != nil {
		return nil, 0, err
	}
	peak := floats.Max(d.Data)
	if peak > 0 {
		floats.Scale(1/peak, d.Data)
	}
	return d, peak, nil
}

// ColorizeVolume maps every voxel of a normalized volume through pal.
func ColorizeVolume(norm *models.Volume[float64], pal colormap.Palette) *models.Volume[[3]uint8] {
	out := &models.Volume[[3]uint8]{
		Data:      make([][3]uint8, len(norm.Data)),
		Width:     norm.Width,
		Height:    norm.Height,
		Depth:     norm.Depth,
		VoxelSize: norm.VoxelSize,
	}
	for i, v := range norm.Data {
		r, g, b := pal.RGB(v)
		out.Data[i] = [3]uint8{r, g, b}
	}
	return out
}

// Oriented holds the heatmap restacked for each viewing plane: plane k of
// each volume is what the slicer shows, unrotated, at index k of that axis.
type Oriented struct {
	XY *models.Volume[[3]uint8]
	YZ *models.Volume[[3]uint8]
	XZ *models.Volume[[3]uint8]
}

// Orient restacks rgb for all three axes. The box filter commutes with axis
// permutations, so one density pass serves every orientation.
func Orient(rgb *models.Volume[[3]uint8]) (*Oriented, error) {
	var o Oriented
	for _, dst := range []struct {
		axis models.Axis
		vol  **models.Volume[[3]uint8]
	}{
		{models.AxisXY, &o.XY},
		{models.AxisYZ, &o.YZ},
		{models.AxisXZ, &o.XZ},
	} {
		v, err := slicer.Reorient(rgb, dst.axis)
		if err != nil {
			return nil, err
		}
		*dst.vol = v
	}
	return &o, nil
}

// Axis returns the stack for axis.
func (o *Oriented) Axis(axis models.Axis) *models.Volume[[3]uint8] {
	switch axis {
	case models.AxisYZ:
		return o.YZ
	case models.AxisXZ:
		return o.XZ
	}
	return o.XY
}

// Overlay paints every voxel marked in markers white in all three stacks.
// markers is in the (Z, Y, X) layout of the original mask and must match its
// shape.
func Overlay(o *Oriented, markers *models.Volume[bool]) error {
	if err := models.SameShape(o.XY, markers); err != nil {
		return err
	}
	for z := 0; z < markers.Depth; z++ {
		for y := 0; y < markers.Height; y++ {
			for x := 0; x < markers.Width; x++ {
				if !markers.Data[markers.Index(z, y, x)] {
					continue
				}
				o.XY.Set(z, y, x, boundaryColor)
				o.YZ.Set(x, z, y, boundaryColor)
				o.XZ.Set(y, z, x, boundaryColor)
			}
		}
	}
	return nil
}

// Result is the output of Generate.
type Result struct {
	*Oriented

	// Density is the normalized density in the (Z, Y, X) layout of the mask.
	Density *models.Volume[float64]

	// Peak is the neighborhood count that maps to 1, zero for an empty mask.
	Peak float64
}

// Generate runs the whole heatmap pipeline on mask. markers may be nil; when
// given, its shape is checked before any per-voxel work.
func Generate(mask, markers *models.Volume[bool], k int, pal colormap.Palette) (*Result, error) {
	if markers != nil {
		if err := models.SameShape(mask, markers); err != nil {
			return nil, fmt.Errorf("boundary markers: %w", err)
		}
	}

	norm, peak, err := estimate(mask, k)
	if err != nil {
		return nil, err
	}

	o, err := Orient(ColorizeVolume(norm, pal))
	if err != nil {
		return nil, err
	}
	if markers != nil {
		if err := Overlay(o, markers); err != nil {
			return nil, err
		}
	}
	return &Result{Oriented: o, Density: norm, Peak: peak}, nil
}
