// Package colormap turns normalized planes into RGBA images through a closed
// set of named palettes and merges several such images into one.
package colormap

import (
	"fmt"
	"math"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"gopkg.in/yaml.v3"
)

// Palette is one member of the closed set of color transfer functions.
type Palette int

const (
	Viridis Palette = iota
	Plasma
	Hot
	Cool
	Gray

	numPalettes
)

var paletteNames = [numPalettes]string{
	Viridis: "viridis",
	Plasma:  "plasma",
	Hot:     "hot",
	Cool:    "cool",
	Gray:    "gray",
}

// stop is a control point of a piecewise-linear ramp.
type stop struct {
	at float64
	c  colorful.Color
}

type ramp []stop

func hex(s string) colorful.Color {
	c, err := colorful.Hex(s)
	if err != nil {
		panic(err)
	}
	return c
}

func evenly(hexes ...string) ramp {
	r := make(ramp, len(hexes))
	for i, h := range hexes {
		r[i] = stop{at: float64(i) / float64(len(hexes)-1), c: hex(h)}
	}
	return r
}

// ramps is indexed by Palette; every member of the closed set has an entry.
var ramps = [numPalettes]ramp{
	Viridis: evenly(
		"#440154", "#482475", "#414487", "#355f8d", "#2a788e", "#21918c",
		"#22a884", "#44bf70", "#7ad151", "#bddf26", "#fde725",
	),
	Plasma: evenly(
		"#0d0887", "#41049d", "#6a00a8", "#8f0da4", "#b12a90", "#cc4778",
		"#e16462", "#f2844b", "#fca636", "#fcce25", "#f0f921",
	),
	// hot runs black-red-yellow-white with the channel breakpoints of the
	// classic gnuplot/matplotlib definition.
	Hot: {
		{0, colorful.Color{R: 0.0416, G: 0, B: 0}},
		{0.365079, colorful.Color{R: 1, G: 0, B: 0}},
		{0.746032, colorful.Color{R: 1, G: 1, B: 0}},
		{1, colorful.Color{R: 1, G: 1, B: 1}},
	},
	Cool: {
		{0, colorful.Color{R: 0, G: 1, B: 1}},
		{1, colorful.Color{R: 1, G: 0, B: 1}},
	},
	Gray: {
		{0, colorful.Color{R: 0, G: 0, B: 0}},
		{1, colorful.Color{R: 1, G: 1, B: 1}},
	},
}

// Palettes lists every palette in declaration order.
func Palettes() []Palette {
	out := make([]Palette, numPalettes)
	for i := range out {
		out[i] = Palette(i)
	}
	return out
}

// Names lists the palette names in declaration order.
func Names() []string {
	return paletteNames[:]
}

func (p Palette) Valid() bool { return p >= 0 && p < numPalettes }

func (p Palette) String() string {
	if !p.Valid() {
		return fmt.Sprintf("Palette(%d)", int(p))
	}
	return paletteNames[p]
}

// ParsePalette resolves a palette name. It is meant for configuration and UI
// input only; the render path works with Palette values.
func ParsePalette(name string) (Palette, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for i, pn := range paletteNames {
		if pn == n {
			return Palette(i), nil
		}
	}
	return 0, fmt.Errorf("unknown colormap %q (must be one of %s)", name, strings.Join(Names(), ", "))
}

func (p Palette) MarshalYAML() (interface{}, error) {
	if !p.Valid() {
		return nil, fmt.Errorf("invalid palette %d", int(p))
	}
	return p.String(), nil
}

func (p *Palette) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParsePalette(value.Value)
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

// Color evaluates the palette at v. Values are clamped to [0,1] and NaN
// evaluates as 0.
func (p Palette) Color(v float64) colorful.Color {
	r := ramps[Gray]
	if p.Valid() {
		r = ramps[p]
	}

	switch {
	case math.IsNaN(v), v <= 0:
		return r[0].c
	case v >= 1:
		return r[len(r)-1].c
	}

	for i := 1; i < len(r); i++ {
		if v <= r[i].at {
			lo, hi := r[i-1], r[i]
			return lo.c.BlendRgb(hi.c, (v-lo.at)/(hi.at-lo.at))
		}
	}
	return r[len(r)-1].c
}

// RGB evaluates the palette at v as 8-bit channels. Channels are scaled by
// 255 and truncated, never rounded. truncSlack absorbs the representation
// error of hex control points (68/255*255 must stay 68).
func (p Palette) RGB(v float64) (r, g, b uint8) {
	c := p.Color(v).Clamped()
	return to8(c.R), to8(c.G), to8(c.B)
}

const truncSlack = 1e-9

func to8(f float64) uint8 {
	return uint8(f*255 + truncSlack)
}
