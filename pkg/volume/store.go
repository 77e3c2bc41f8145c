package volume

import (
	"fmt"
	"math"
	"sync"

	"github.com/codahale/hdrhistogram"

	"axonatlas/internal/models"
	"axonatlas/pkg/brightness"
	"axonatlas/pkg/colormap"
)

// RenderParams are the per-volume display settings.
type RenderParams struct {
	Colormap colormap.Palette  `yaml:"colormap"`
	Opacity  float64           `yaml:"opacity"`
	Window   brightness.Window `yaml:"window"`
}

// DefaultRenderParams uses the first palette, full opacity and the data
// range of the layer as brightness window.
func DefaultRenderParams(l Layer) RenderParams {
	lo, hi := l.Range()
	return RenderParams{
		Colormap: colormap.Palettes()[0],
		Opacity:  1,
		Window:   brightness.Window{Min: lo, Max: hi},
	}
}

func (p RenderParams) Validate() error {
	if !p.Colormap.Valid() {
		return fmt.Errorf("invalid colormap %v", p.Colormap)
	}
	if math.IsNaN(p.Opacity) || p.Opacity < 0 || p.Opacity > 1 {
		return fmt.Errorf("opacity %g not in [0, 1]", p.Opacity)
	}
	return p.Window.Validate()
}

// Entry pairs a layer with its render parameters.
type Entry struct {
	ID     string
	Layer  Layer
	Params RenderParams
}

// Store holds layers keyed by identifier in insertion order. It is safe for
// concurrent use; Entries returns a snapshot so renders never hold the lock.
type Store struct {
	mu      sync.RWMutex
	order   []string
	entries map[string]*Entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*Entry)}
}

// Add registers l under id with default render parameters. Adding an id that
// is already loaded keeps the existing layer and reports false.
func (s *Store) Add(id string, l Layer) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; ok {
		return false
	}
	s.entries[id] = &Entry{ID: id, Layer: l, Params: DefaultRenderParams(l)}
	s.order = append(s.order, id)
	return true
}

func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.entries[id]; !ok {
		return false
	}
	delete(s.entries, id)
	for i, o := range s.order {
		if o == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return true
}

func (s *Store) Get(id string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	if !ok {
		return Entry{}, false
	}
	return *e, true
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.order)
}

func (s *Store) IDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.order...)
}

// Entries returns a copy of every entry in insertion order.
func (s *Store) Entries() []Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Entry, len(s.order))
	for i, id := range s.order {
		out[i] = *s.entries[id]
	}
	return out
}

// SetParams replaces the render parameters of id after validating them.
func (s *Store) SetParams(id string, p RenderParams) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("volume %s: %w", id, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("volume %s not loaded", id)
	}
	e.Params = p
	return nil
}

// MaxExtents is the largest extent along each axis over all loaded volumes,
// which bounds the index a control surface offers.
func (s *Store) MaxExtents() models.Shape {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var m models.Shape
	for _, e := range s.entries {
		sh := e.Layer.Shape()
		m.Depth = max(m.Depth, sh.Depth)
		m.Height = max(m.Height, sh.Height)
		m.Width = max(m.Width, sh.Width)
	}
	return m
}

// AutoWindow sets the brightness window of id to the given lower and upper
// percentiles (0-100) of its voxel values and returns the new window.
func (s *Store) AutoWindow(id string, lowPct, highPct float64) (brightness.Window, error) {
	e, ok := s.Get(id)
	if !ok {
		return brightness.Window{}, fmt.Errorf("volume %s not loaded", id)
	}
	w, err := PercentileWindow(e.Layer, lowPct, highPct)
	if err != nil {
		return brightness.Window{}, fmt.Errorf("volume %s: %w", id, err)
	}
	e.Params.Window = w
	return w, s.SetParams(id, e.Params)
}

// histogramBins is the number of quantization steps PercentileWindow
// records values with. Steps are recorded offset by one, so the histogram
// must track values up to histogramBins inclusive.
const histogramBins = 1 << 16

// PercentileWindow estimates the window spanning the lowPct..highPct
// percentiles of l's values. Values are quantized over the layer's data range
// into an HDR histogram, so the result is accurate to about one part in 10^3.
func PercentileWindow(l Layer, lowPct, highPct float64) (brightness.Window, error) {
	if lowPct < 0 || highPct > 100 || lowPct > highPct {
		return brightness.Window{}, fmt.Errorf("invalid percentiles %g..%g", lowPct, highPct)
	}

	lo, hi := l.Range()
	if hi <= lo {
		return brightness.Window{Min: lo, Max: hi}, nil
	}

	h := hdrhistogram.New(1, 2*histogramBins, 3)
	scale := float64(histogramBins-1) / (hi - lo)
	var recErr error
	l.Each(func(v float64) {
		if math.IsNaN(v) || recErr != nil {
			return
		}
		recErr = h.RecordValue(int64((v-lo)*scale) + 1)
	})
	if recErr != nil {
		return brightness.Window{}, recErr
	}

	back := func(q int64) float64 {
		v := lo + float64(q-1)/scale
		return math.Max(lo, math.Min(hi, v))
	}
	w := brightness.Window{
		Min: back(h.ValueAtQuantile(lowPct)),
		Max: back(h.ValueAtQuantile(highPct)),
	}
	if w.Min > w.Max {
		w.Min = w.Max
	}
	return w, nil
}
