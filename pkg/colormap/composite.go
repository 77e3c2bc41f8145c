package colormap

import (
	"fmt"
	"image"

	"axonatlas/internal/models"
)

// Colorize maps every value of a normalized plane through pal. The result has
// the plane's width and height and is fully opaque.
func Colorize(p *models.Plane[float64], pal Palette) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, p.Width, p.Height))
	for i, v := range p.Data {
		r, g, b := pal.RGB(v)
		o := i * 4
		img.Pix[o+0] = r
		img.Pix[o+1] = g
		img.Pix[o+2] = b
		img.Pix[o+3] = 0xff
	}
	return img
}

// Placeholder is the image Composite returns when there is nothing to merge:
// a single transparent black pixel.
func Placeholder() *image.RGBA {
	return image.NewRGBA(image.Rect(0, 0, 1, 1))
}

// Composite merges the layers with a channel-wise maximum, so the brightest
// layer wins at each pixel and the input order never matters. All layers must
// have the same size; an empty call returns Placeholder.
func Composite(layers ...*image.RGBA) (*image.RGBA, error) {
	if len(layers) == 0 {
		return Placeholder(), nil
	}

	size := layers[0].Bounds().Size()
	for i, l := range layers[1:] {
		if l.Bounds().Size() != size {
			return nil, fmt.Errorf("%w: layer %d is %v, layer 0 is %v", models.ErrShapeMismatch, i+1, l.Bounds().Size(), size)
		}
	}

	out := image.NewRGBA(image.Rect(0, 0, size.X, size.Y))
	rowBytes := size.X * 4
	for _, l := range layers {
		b := l.Bounds()
		for y := 0; y < size.Y; y++ {
			src := l.Pix[l.PixOffset(b.Min.X, b.Min.Y+y):][:rowBytes]
			dst := out.Pix[y*out.Stride:][:rowBytes]
			for i, v := range src {
				if v > dst[i] {
					dst[i] = v
				}
			}
		}
	}
	return out, nil
}
