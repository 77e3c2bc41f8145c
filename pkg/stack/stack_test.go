package stack

import (
	"image"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axonatlas/internal/models"
	"axonatlas/pkg/volume"
)

func TestPlaneName(t *testing.T) {
	assert.Equal(t, "slice_0000.tif", PlaneName(0))
	assert.Equal(t, "slice_0123.tif", PlaneName(123))
}

func TestExtractNumber(t *testing.T) {
	assert.Equal(t, 12, extractNumber("slice_0012.tif"))
	assert.Equal(t, 7, extractNumber("/tmp/a/img7.tiff"))
	assert.Equal(t, 0, extractNumber("plane.tif"))
}

func TestRoundTripUint8(t *testing.T) {
	dir := t.TempDir()
	v, err := models.NewVolume[uint8](3, 4, 5)
	require.NoError(t, err)
	for i := range v.Data {
		v.Data[i] = uint8(i * 3)
	}

	require.NoError(t, SaveSequence(volume.NewLayer(v), dir))
	for z := 0; z < 3; z++ {
		assert.FileExists(t, filepath.Join(dir, PlaneName(z)))
	}

	l, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, models.Uint8, l.DType())
	got, ok := volume.Volume[uint8](l)
	require.True(t, ok)
	assert.Equal(t, v.Data, got.Data)
	assert.Equal(t, v.Shape(), got.Shape())
}

func TestRoundTripUint16(t *testing.T) {
	dir := t.TempDir()
	v, err := models.NewVolume[uint16](2, 3, 3)
	require.NoError(t, err)
	for i := range v.Data {
		v.Data[i] = uint16(i * 1000)
	}

	require.NoError(t, SaveSequence(volume.NewLayer(v), dir))
	l, err := Load(dir)
	require.NoError(t, err)
	got, ok := volume.Volume[uint16](l)
	require.True(t, ok)
	assert.Equal(t, v.Data, got.Data)
}

func TestSaveFloatRescales(t *testing.T) {
	dir := t.TempDir()
	v, err := models.FromSlice([]float32{-1, 0, 1, 3}, 1, 2, 2)
	require.NoError(t, err)

	require.NoError(t, SaveSequence(volume.NewLayer(v), dir))
	l, err := Load(dir)
	require.NoError(t, err)
	got, ok := volume.Volume[uint16](l)
	require.True(t, ok)
	assert.Equal(t, []uint16{0, 16384, 32768, 65535}, got.Data)
}

func TestRGBSequence(t *testing.T) {
	dir := t.TempDir()
	v, err := models.NewVolume[[3]uint8](2, 2, 2)
	require.NoError(t, err)
	v.Set(1, 0, 1, [3]uint8{10, 20, 30})

	require.NoError(t, SaveRGBSequence(v, dir))

	f, err := os.Open(filepath.Join(dir, PlaneName(1)))
	require.NoError(t, err)
	defer f.Close()
	img, _, err := image.Decode(f)
	require.NoError(t, err)
	r, g, b, a := img.At(1, 0).RGBA()
	assert.Equal(t, []uint32{10, 20, 30, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
	r, g, b, a = img.At(0, 1).RGBA()
	assert.Equal(t, []uint32{0, 0, 0, 255}, []uint32{r >> 8, g >> 8, b >> 8, a >> 8})
}

func TestLoadMask(t *testing.T) {
	dir := t.TempDir()
	v, err := models.FromSlice([]uint8{0, 1, 0, 255, 0, 0, 7, 0}, 2, 2, 2)
	require.NoError(t, err)
	require.NoError(t, SaveSequence(volume.NewLayer(v), dir))

	mask, err := LoadMask(dir)
	require.NoError(t, err)
	assert.Equal(t, []bool{false, true, false, true, false, false, true, false}, mask.Data)
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(t.TempDir())
	assert.Error(t, err)

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, PlaneName(0)), []byte("not a tiff"), 0644))
	_, err = Load(dir)
	assert.ErrorIs(t, err, ErrDecode)
}

func TestLoadShapeMismatch(t *testing.T) {
	dir := t.TempDir()
	a, _ := models.NewVolume[uint8](1, 2, 2)
	b, _ := models.NewVolume[uint8](1, 3, 2)
	require.NoError(t, SaveSequence(volume.NewLayer(a), dir))
	require.NoError(t, writeTIFF(filepath.Join(dir, PlaneName(1)), image.NewGray(image.Rect(0, 0, b.Width, b.Height))))

	_, err := Load(dir)
	assert.ErrorIs(t, err, models.ErrShapeMismatch)
}
