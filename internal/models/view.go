package models

import (
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Axis selects one of the three orthogonal viewing planes. The name lists the
// two in-plane axes; the remaining axis is the one held fixed by the index.
type Axis int

const (
	// AxisXY fixes Z.
	AxisXY Axis = iota
	// AxisYZ fixes X.
	AxisYZ
	// AxisXZ fixes Y.
	AxisXZ
)

// viewCycle is the order SwitchView walks through.
var viewCycle = [...]Axis{AxisXZ, AxisXY, AxisYZ}

func (a Axis) String() string {
	switch a {
	case AxisXY:
		return "XY"
	case AxisYZ:
		return "YZ"
	case AxisXZ:
		return "XZ"
	}
	return fmt.Sprintf("Axis(%d)", int(a))
}

// Valid reports whether a is one of the three defined axes.
func (a Axis) Valid() bool { return a >= AxisXY && a <= AxisXZ }

// ParseAxis accepts "XY", "YZ" or "XZ" in any case.
func ParseAxis(s string) (Axis, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "XY":
		return AxisXY, nil
	case "YZ":
		return AxisYZ, nil
	case "XZ":
		return AxisXZ, nil
	}
	return 0, fmt.Errorf("invalid axis: %q (must be XY, YZ or XZ)", s)
}

// FixedExtent is the extent of s along the axis this view holds fixed, i.e.
// the number of valid slice indices.
func (a Axis) FixedExtent(s Shape) int {
	switch a {
	case AxisYZ:
		return s.Width
	case AxisXZ:
		return s.Height
	}
	return s.Depth
}

// FixedName names the axis held fixed by this view.
func (a Axis) FixedName() string {
	switch a {
	case AxisYZ:
		return "X"
	case AxisXZ:
		return "Y"
	}
	return "Z"
}

func (a Axis) MarshalYAML() (interface{}, error) {
	return a.String(), nil
}

func (a *Axis) UnmarshalYAML(value *yaml.Node) error {
	parsed, err := ParseAxis(value.Value)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ViewState is the per-session view selection. It is plain data: transitions
// return a new value and never touch shared state.
type ViewState struct {
	Axis Axis `yaml:"axis"`

	// Rotation is the number of extra counter-clockwise quarter turns, in [0,3].
	Rotation int `yaml:"rotation"`
}

// NewViewState returns the state a session starts in.
func NewViewState() ViewState {
	return ViewState{Axis: viewCycle[0]}
}

// SwitchView advances to the next axis in the XZ, XY, YZ cycle. The rotation
// count is kept.
func (v ViewState) SwitchView() ViewState {
	next := 0
	for i, a := range viewCycle {
		if a == v.Axis {
			next = (i + 1) % len(viewCycle)
			break
		}
	}
	v.Axis = viewCycle[next]
	return v
}

// Rotate adds one counter-clockwise quarter turn.
func (v ViewState) Rotate() ViewState {
	v.Rotation = ((v.Rotation+1)%4 + 4) % 4
	return v
}

func (v ViewState) String() string {
	return fmt.Sprintf("%s rot%d", v.Axis, v.Rotation*90)
}
