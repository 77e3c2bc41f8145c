// Package stack reads and writes volumes as directories of per-plane TIFF
// images, one file per Z index named slice_0000.tif, slice_0001.tif, ...
//
// x/image/tiff decodes only the first page of a file, so a stack on disk is
// always a directory of single-page images rather than one multi-page file.
package stack

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"golang.org/x/image/tiff"

	"axonatlas/internal/models"
	"axonatlas/pkg/volume"
)

// ErrDecode marks a plane that could not be decoded.
var ErrDecode = errors.New("decode failure")

// PlaneName is the file name of plane z.
func PlaneName(z int) string {
	return fmt.Sprintf("slice_%04d.tif", z)
}

var encodeOptions = &tiff.Options{Compression: tiff.Deflate}

func writeTIFF(path string, img image.Image) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := tiff.Encode(f, img, encodeOptions); err != nil {
		f.Close()
		return fmt.Errorf("encode %s: %w", path, err)
	}
	return f.Close()
}

// SaveSequence writes every Z plane of l to dir. 8-bit volumes are written as
// 8-bit gray, 16-bit volumes as 16-bit gray. Any other element type is mapped
// linearly from its data range onto 16-bit gray.
func SaveSequence(l volume.Layer, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	s := l.Shape()
	lo, hi := l.Range()
	scale := 0.0
	if hi > lo {
		scale = math.MaxUint16 / (hi - lo)
	}

	for z := 0; z < s.Depth; z++ {
		p, err := l.PlaneZ(z)
		if err != nil {
			return err
		}

		var img image.Image
		switch l.DType() {
		case models.Uint8:
			g := image.NewGray(image.Rect(0, 0, p.Width, p.Height))
			for i, v := range p.Data {
				g.Pix[i] = uint8(v)
			}
			img = g
		case models.Uint16:
			img = gray16(p, func(v float64) uint16 { return uint16(v) })
		default:
			img = gray16(p, func(v float64) uint16 {
				if math.IsNaN(v) {
					return 0
				}
				return uint16(math.Round(math.Max(0, math.Min(hi, v)-lo) * scale))
			})
		}

		if err := writeTIFF(filepath.Join(dir, PlaneName(z)), img); err != nil {
			return err
		}
	}
	return nil
}

func gray16(p *models.Plane[float64], conv func(float64) uint16) *image.Gray16 {
	g := image.NewGray16(image.Rect(0, 0, p.Width, p.Height))
	for i, v := range p.Data {
		g.SetGray16(i%p.Width, i/p.Width, color.Gray16{Y: conv(v)})
	}
	return g
}

// SaveRGBSequence writes every Z plane of an RGB volume to dir as opaque
// 8-bit RGBA images.
func SaveRGBSequence(v *models.Volume[[3]uint8], dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	for z := 0; z < v.Depth; z++ {
		img := image.NewRGBA(image.Rect(0, 0, v.Width, v.Height))
		base := v.Index(z, 0, 0)
		for i := 0; i < v.Width*v.Height; i++ {
			c := v.Data[base+i]
			o := i * 4
			img.Pix[o], img.Pix[o+1], img.Pix[o+2], img.Pix[o+3] = c[0], c[1], c[2], 255
		}
		if err := writeTIFF(filepath.Join(dir, PlaneName(z)), img); err != nil {
			return err
		}
	}
	return nil
}

// extractNumber extracts the numeric part from a filename
func extractNumber(filename string) int {
	base := filepath.Base(filename)
	var digits strings.Builder
	for _, c := range base {
		if c >= '0' && c <= '9' {
			digits.WriteRune(c)
		}
	}
	if n, err := strconv.Atoi(digits.String()); err == nil {
		return n
	}
	return 0
}

// listPlanes returns the TIFF files in dir ordered by the number in their
// names.
func listPlanes(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".tif" || ext == ".tiff" {
			names = append(names, e.Name())
		}
	}
	if len(names) == 0 {
		return nil, fmt.Errorf("no TIFF images found in %s", dir)
	}

	sort.SliceStable(names, func(i, j int) bool {
		ni, nj := extractNumber(names[i]), extractNumber(names[j])
		if ni != nj {
			return ni < nj
		}
		return names[i] < names[j]
	})
	return names, nil
}

func decodeFile(path string) (image.Image, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	img, err := tiff.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrDecode, path, err)
	}
	return img, nil
}

func readPlanes(dir string) ([]image.Image, error) {
	names, err := listPlanes(dir)
	if err != nil {
		return nil, err
	}

	planes := make([]image.Image, len(names))
	for i, name := range names {
		img, err := decodeFile(filepath.Join(dir, name))
		if err != nil {
			return nil, err
		}
		if i > 0 && img.Bounds().Size() != planes[0].Bounds().Size() {
			return nil, fmt.Errorf("%w: %s is %v, first plane is %v",
				models.ErrShapeMismatch, name, img.Bounds().Size(), planes[0].Bounds().Size())
		}
		planes[i] = img
	}
	return planes, nil
}

// Load reads the stack in dir. A stack whose planes are all 8-bit gray loads
// as a uint8 volume; anything else is converted to 16-bit gray.
func Load(dir string) (volume.Layer, error) {
	planes, err := readPlanes(dir)
	if err != nil {
		return nil, err
	}

	eight := true
	for _, p := range planes {
		if _, ok := p.(*image.Gray); !ok {
			eight = false
			break
		}
	}
	if eight {
		v, err := assemble(planes, func(img image.Image, x, y int) uint8 {
			g := img.(*image.Gray)
			return g.GrayAt(g.Rect.Min.X+x, g.Rect.Min.Y+y).Y
		})
		if err != nil {
			return nil, err
		}
		return volume.NewLayer(v), nil
	}

	v, err := assemble(planes, func(img image.Image, x, y int) uint16 {
		b := img.Bounds()
		return color.Gray16Model.Convert(img.At(b.Min.X+x, b.Min.Y+y)).(color.Gray16).Y
	})
	if err != nil {
		return nil, err
	}
	return volume.NewLayer(v), nil
}

func assemble[T models.Number](planes []image.Image, at func(img image.Image, x, y int) T) (*models.Volume[T], error) {
	size := planes[0].Bounds().Size()
	v, err := models.NewVolume[T](len(planes), size.Y, size.X)
	if err != nil {
		return nil, err
	}
	for z, img := range planes {
		for y := 0; y < size.Y; y++ {
			for x := 0; x < size.X; x++ {
				v.Set(z, y, x, at(img, x, y))
			}
		}
	}
	return v, nil
}

// LoadMask reads the stack in dir as a binary mask: every nonzero voxel is
// true.
func LoadMask(dir string) (*models.Volume[bool], error) {
	l, err := Load(dir)
	if err != nil {
		return nil, err
	}

	if v, ok := volume.Volume[uint8](l); ok {
		return models.Binarize(v), nil
	}
	if v, ok := volume.Volume[uint16](l); ok {
		return models.Binarize(v), nil
	}
	return nil, fmt.Errorf("%w: unexpected %s stack in %s", ErrDecode, l.DType(), dir)
}
