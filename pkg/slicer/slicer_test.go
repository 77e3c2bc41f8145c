package slicer

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"

	"axonatlas/internal/models"
)

// newPatternVolume fills each voxel with a value that encodes its coordinates
func newPatternVolume(t *testing.T, depth, height, width int) *models.Volume[int32] {
	t.Helper()
	v, err := models.NewVolume[int32](depth, height, width)
	if err != nil {
		t.Fatalf("Failed to create volume: %v", err)
	}
	for z := 0; z < depth; z++ {
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				v.Set(z, y, x, int32(z*10000+y*100+x))
			}
		}
	}
	return v
}

func plane(width int, rows ...[]int32) *models.Plane[int32] {
	p := &models.Plane[int32]{Width: width, Height: len(rows)}
	for _, r := range rows {
		p.Data = append(p.Data, r...)
	}
	return p
}

func TestRotate90(t *testing.T) {
	in := plane(3,
		[]int32{1, 2, 3},
		[]int32{4, 5, 6},
	)

	tests := []struct {
		k    int
		want *models.Plane[int32]
	}{
		{0, in},
		{1, plane(2, []int32{3, 6}, []int32{2, 5}, []int32{1, 4})},
		{2, plane(3, []int32{6, 5, 4}, []int32{3, 2, 1})},
		{3, plane(2, []int32{4, 1}, []int32{5, 2}, []int32{6, 3})},
		{-1, plane(2, []int32{4, 1}, []int32{5, 2}, []int32{6, 3})},
		{5, plane(2, []int32{3, 6}, []int32{2, 5}, []int32{1, 4})},
	}
	for _, tc := range tests {
		got := Rotate90(in, tc.k)
		if diff := cmp.Diff(tc.want, got); diff != "" {
			t.Errorf("Rotate90(k=%d) mismatch (-want +got):\n%s", tc.k, diff)
		}
	}
}

func TestRotate90FourTurnsIsIdentity(t *testing.T) {
	r := rand.New(rand.NewSource(7))
	for trial := 0; trial < 20; trial++ {
		w, h := 1+r.Intn(9), 1+r.Intn(9)
		p := models.NewPlane[float32](w, h)
		for i := range p.Data {
			p.Data[i] = r.Float32()
		}

		got := p
		for i := 0; i < 4; i++ {
			got = Rotate90(got, 1)
		}
		if diff := cmp.Diff(p, got); diff != "" {
			t.Fatalf("four single turns changed a %dx%d plane:\n%s", w, h, diff)
		}
		if diff := cmp.Diff(Rotate90(p, 3), Rotate90(Rotate90(p, 2), 1)); diff != "" {
			t.Fatalf("turns do not compose additively:\n%s", diff)
		}
	}
}

func TestBasePlane(t *testing.T) {
	depth, height, width := 3, 4, 5
	v := newPatternVolume(t, depth, height, width)

	xy, err := BasePlane(v, models.AxisXY, 2)
	if err != nil {
		t.Fatalf("XY: %v", err)
	}
	if xy.Width != width || xy.Height != height {
		t.Errorf("Expected XY plane %dx%d, got %dx%d", width, height, xy.Width, xy.Height)
	}
	if got := xy.At(4, 3); got != 20304 {
		t.Errorf("XY (x=4,y=3) = %d, want 20304", got)
	}

	yz, err := BasePlane(v, models.AxisYZ, 1)
	if err != nil {
		t.Fatalf("YZ: %v", err)
	}
	if yz.Width != height || yz.Height != depth {
		t.Errorf("Expected YZ plane %dx%d, got %dx%d", height, depth, yz.Width, yz.Height)
	}
	// row is z, column is y
	if got := yz.At(3, 2); got != 20301 {
		t.Errorf("YZ (y=3,z=2) = %d, want 20301", got)
	}

	xz, err := BasePlane(v, models.AxisXZ, 3)
	if err != nil {
		t.Fatalf("XZ: %v", err)
	}
	if xz.Width != width || xz.Height != depth {
		t.Errorf("Expected XZ plane %dx%d, got %dx%d", width, depth, xz.Width, xz.Height)
	}
	if got := xz.At(1, 2); got != 20301 {
		t.Errorf("XZ (x=1,z=2) = %d, want 20301", got)
	}
}

func TestSliceIndexOutOfRange(t *testing.T) {
	v := newPatternVolume(t, 2, 3, 4)
	tests := []struct {
		axis  models.Axis
		index int
	}{
		{models.AxisXY, -1},
		{models.AxisXY, 2},
		{models.AxisYZ, 4},
		{models.AxisXZ, 3},
	}
	for _, tc := range tests {
		_, err := Slice(v, tc.axis, tc.index, 0)
		if !errors.Is(err, models.ErrIndexOutOfRange) {
			t.Errorf("Slice(%s, %d) error = %v, want ErrIndexOutOfRange", tc.axis, tc.index, err)
		}
	}
	// the last valid index along every axis works
	for _, axis := range []models.Axis{models.AxisXY, models.AxisYZ, models.AxisXZ} {
		if _, err := Slice(v, axis, axis.FixedExtent(v.Shape())-1, 0); err != nil {
			t.Errorf("Slice(%s, last) failed: %v", axis, err)
		}
	}
}

func TestSliceShapesArePermutations(t *testing.T) {
	v := newPatternVolume(t, 3, 4, 5)
	s := v.Shape()
	for _, axis := range []models.Axis{models.AxisXY, models.AxisYZ, models.AxisXZ} {
		for rot := 0; rot < 4; rot++ {
			for i := 0; i < axis.FixedExtent(s); i++ {
				p, err := Slice(v, axis, i, rot)
				if err != nil {
					t.Fatalf("Slice(%s, %d, %d): %v", axis, i, rot, err)
				}
				w, h := PlaneSize(s, axis, rot)
				if p.Width != w || p.Height != h {
					t.Errorf("Slice(%s, rot %d) is %dx%d, PlaneSize says %dx%d", axis, rot, p.Width, p.Height, w, h)
				}
				if len(p.Data) != p.Width*p.Height {
					t.Errorf("Slice(%s) data length %d for %dx%d", axis, len(p.Data), p.Width, p.Height)
				}
			}
		}
	}
}

// The base turn for YZ/XZ is applied first and the user rotation follows in
// the same counter-clockwise direction.
func TestSliceRotationComposition(t *testing.T) {
	v := newPatternVolume(t, 3, 4, 5)
	for _, axis := range []models.Axis{models.AxisXY, models.AxisYZ, models.AxisXZ} {
		base, err := BasePlane(v, axis, 1)
		if err != nil {
			t.Fatal(err)
		}
		for rot := 0; rot < 4; rot++ {
			got, err := Slice(v, axis, 1, rot)
			if err != nil {
				t.Fatal(err)
			}
			want := base
			for i := 0; i < BaseRotation(axis); i++ {
				want = Rotate90(want, 1)
			}
			for i := 0; i < rot; i++ {
				want = Rotate90(want, 1)
			}
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("%s rot %d mismatch (-want +got):\n%s", axis, rot, diff)
			}
		}
		full, _ := Slice(v, axis, 1, 4)
		zero, _ := Slice(v, axis, 1, 0)
		if diff := cmp.Diff(zero, full); diff != "" {
			t.Errorf("%s: four user turns differ from none:\n%s", axis, diff)
		}
	}

	// YZ with one base turn: the top-left pixel is the last Y column of the first Z row
	yz, _ := Slice(v, models.AxisYZ, 2, 0)
	if got, want := yz.At(0, 0), v.At(0, 3, 2); got != want {
		t.Errorf("YZ top-left = %d, want %d", got, want)
	}
}

func TestSliceDoesNotMutate(t *testing.T) {
	v := newPatternVolume(t, 2, 3, 4)
	before := append([]int32(nil), v.Data...)
	p, _ := Slice(v, models.AxisXY, 0, 0)
	p.Data[0] = -1
	if diff := cmp.Diff(before, v.Data); diff != "" {
		t.Errorf("volume changed after slicing:\n%s", diff)
	}
}

func TestReorient(t *testing.T) {
	v := newPatternVolume(t, 3, 4, 5)
	for _, axis := range []models.Axis{models.AxisXY, models.AxisYZ, models.AxisXZ} {
		o, err := Reorient(v, axis)
		if err != nil {
			t.Fatalf("Reorient(%s): %v", axis, err)
		}
		if o.Depth != axis.FixedExtent(v.Shape()) {
			t.Errorf("Reorient(%s) depth %d, want %d", axis, o.Depth, axis.FixedExtent(v.Shape()))
		}
		for k := 0; k < o.Depth; k++ {
			want, _ := BasePlane(v, axis, k)
			got, _ := BasePlane(o, models.AxisXY, k)
			if diff := cmp.Diff(want, got); diff != "" {
				t.Errorf("Reorient(%s) plane %d mismatch:\n%s", axis, k, diff)
			}
		}
	}
}
