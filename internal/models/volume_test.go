package models

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func TestNewVolume(t *testing.T) {
	v, err := NewVolume[uint16](2, 3, 4)
	require.NoError(t, err)
	assert.Len(t, v.Data, 24)
	assert.Equal(t, Shape{Depth: 2, Height: 3, Width: 4}, v.Shape())

	v.Set(1, 2, 3, 7)
	assert.Equal(t, uint16(7), v.Data[23])
	assert.Equal(t, uint16(7), v.At(1, 2, 3))

	for _, dims := range [][3]int{{0, 1, 1}, {1, -1, 1}, {1, 1, 0}} {
		_, err := NewVolume[uint8](dims[0], dims[1], dims[2])
		assert.True(t, errors.Is(err, ErrInvalidShape), "dims %v", dims)
	}
}

func TestFromSlice(t *testing.T) {
	_, err := FromSlice([]float32{1, 2, 3}, 1, 2, 2)
	assert.ErrorIs(t, err, ErrInvalidShape)

	v, err := FromSlice([]float32{1, 2, 3, 4}, 1, 2, 2)
	require.NoError(t, err)
	assert.Equal(t, float32(3), v.At(0, 1, 0))
}

func TestSameShapeAndBinarize(t *testing.T) {
	a, _ := NewVolume[uint8](2, 2, 2)
	b, _ := NewVolume[bool](2, 2, 2)
	c, _ := NewVolume[bool](2, 2, 3)
	assert.NoError(t, SameShape(a, b))
	assert.ErrorIs(t, SameShape(a, c), ErrShapeMismatch)

	a.Data[3] = 9
	mask := Binarize(a)
	for i, v := range mask.Data {
		assert.Equal(t, i == 3, v)
	}
}

func TestDTypeOf(t *testing.T) {
	assert.Equal(t, Uint8, DTypeOf[uint8]())
	assert.Equal(t, Uint16, DTypeOf[uint16]())
	assert.Equal(t, Float32, DTypeOf[float32]())
	assert.Equal(t, Float64, DTypeOf[float64]())
	assert.Equal(t, "uint16", Uint16.String())
}

func TestViewStateTransitions(t *testing.T) {
	v := NewViewState()
	assert.Equal(t, AxisXZ, v.Axis)
	assert.Equal(t, 0, v.Rotation)

	v = v.SwitchView()
	assert.Equal(t, AxisXY, v.Axis)
	v = v.SwitchView()
	assert.Equal(t, AxisYZ, v.Axis)
	v = v.SwitchView()
	assert.Equal(t, AxisXZ, v.Axis)

	r := v
	for i := 1; i <= 4; i++ {
		r = r.Rotate()
		assert.Equal(t, i%4, r.Rotation)
	}
	// value semantics: the original is untouched
	assert.Equal(t, 0, v.Rotation)
}

func TestAxisParseAndExtent(t *testing.T) {
	s := Shape{Depth: 3, Height: 4, Width: 5}
	for _, tc := range []struct {
		in     string
		want   Axis
		extent int
	}{
		{"xy", AxisXY, 3},
		{"YZ", AxisYZ, 5},
		{" Xz ", AxisXZ, 4},
	} {
		a, err := ParseAxis(tc.in)
		require.NoError(t, err)
		assert.Equal(t, tc.want, a)
		assert.Equal(t, tc.extent, a.FixedExtent(s))
	}
	_, err := ParseAxis("ZZ")
	assert.Error(t, err)
}

func TestViewStateYAML(t *testing.T) {
	var v ViewState
	require.NoError(t, yaml.Unmarshal([]byte("axis: yz\nrotation: 2\n"), &v))
	assert.Equal(t, ViewState{Axis: AxisYZ, Rotation: 2}, v)

	out, err := yaml.Marshal(v)
	require.NoError(t, err)
	assert.Contains(t, string(out), "axis: YZ")
}
