package visualization

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"runtime"

	"github.com/fogleman/gg"
	"golang.org/x/sync/errgroup"

	"axonatlas/internal/models"
	"axonatlas/pkg/brightness"
	"axonatlas/pkg/colormap"
	"axonatlas/pkg/slicer"
	"axonatlas/pkg/volume"
)

// Viewer renders composited cross-sections of every volume in a store.
//
// A render is slice -> normalize -> colorize per volume, followed by the
// brightest-wins merge. The per-volume steps have no cross-volume dependency
// and run in parallel; only the merge waits for all of them. Nothing is
// cached between renders.
type Viewer struct {
	// store holds the loaded volumes and their render parameters
	store *volume.Store

	// workers bounds how many volumes are rendered concurrently
	workers int
}

// NewViewer creates a viewer over store. workers <= 0 uses one worker per CPU.
func NewViewer(store *volume.Store, workers int) *Viewer {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	return &Viewer{
		store:   store,
		workers: workers,
	}
}

// Store returns the store the viewer renders from.
func (v *Viewer) Store() *volume.Store { return v.store }

// RenderLayer runs the per-volume half of the pipeline for one entry.
func RenderLayer(e volume.Entry, view models.ViewState, index int) (*image.RGBA, error) {
	p, err := e.Layer.Plane(view.Axis, index, view.Rotation)
	if err != nil {
		return nil, fmt.Errorf("volume %s: %w", e.ID, err)
	}
	n := brightness.Normalize(p, e.Params.Window, e.Params.Opacity)
	return colormap.Colorize(n, e.Params.Colormap), nil
}

// Render composites the plane at index along view.Axis of every loaded
// volume. An index outside any volume's extent fails with
// models.ErrIndexOutOfRange. Volumes with zero opacity are still sliced, so
// the index is checked for them too, but contribute nothing; when no volume
// is visible the result is a blank image of the plane size. With no volumes
// loaded the result is colormap.Placeholder.
func (v *Viewer) Render(view models.ViewState, index int) (*image.RGBA, error) {
	entries := v.store.Entries()
	if len(entries) == 0 {
		return colormap.Composite()
	}

	colored := make([]*image.RGBA, len(entries))
	var g errgroup.Group
	g.SetLimit(v.workers)
	for i, e := range entries {
		g.Go(func() error {
			if e.Params.Opacity > 0 {
				img, err := RenderLayer(e, view, index)
				colored[i] = img
				return err
			}
			if _, err := e.Layer.Plane(view.Axis, index, 0); err != nil {
				return fmt.Errorf("volume %s: %w", e.ID, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	visible := colored[:0]
	for _, c := range colored {
		if c != nil {
			visible = append(visible, c)
		}
	}
	if len(visible) == 0 {
		w, h := slicer.PlaneSize(entries[0].Layer.Shape(), view.Axis, view.Rotation)
		return image.NewRGBA(image.Rect(0, 0, w, h)), nil
	}
	return colormap.Composite(visible...)
}

// IndexRange returns the number of indices valid for every loaded volume
// along the axis fixed by view, and the larger bound a control surface
// offers (the maximum extent over all volumes).
func (v *Viewer) IndexRange(axis models.Axis) (common, largest int) {
	entries := v.store.Entries()
	for i, e := range entries {
		n := axis.FixedExtent(e.Layer.Shape())
		if i == 0 || n < common {
			common = n
		}
		largest = max(largest, n)
	}
	return common, largest
}

// DefaultIndex is the middle of the largest extent along the fixed axis.
func (v *Viewer) DefaultIndex(axis models.Axis) int {
	_, largest := v.IndexRange(axis)
	return largest / 2
}

// SaveSlice writes img as a PNG. A non-empty title is drawn in the top-left
// corner.
func (v *Viewer) SaveSlice(img image.Image, title, filename string) error {
	dc := gg.NewContextForImage(img)
	if title != "" {
		dc.SetRGB(1, 1, 1)
		dc.DrawString(title, 4, 14)
	}
	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("save slice %s: %w", filename, err)
	}
	return nil
}

// SaveSliceSequence renders and saves every index valid for all loaded
// volumes along view.Axis.
func (v *Viewer) SaveSliceSequence(view models.ViewState, outputDir string) error {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return err
	}

	n, _ := v.IndexRange(view.Axis)
	for pos := 0; pos < n; pos++ {
		img, err := v.Render(view, pos)
		if err != nil {
			return err
		}

		filename := filepath.Join(outputDir, fmt.Sprintf("slice_%s_%04d.png", view.Axis, pos))
		if err := v.SaveSlice(img, "", filename); err != nil {
			return err
		}
	}

	return nil
}

// Title is the caption a control surface shows above a render.
func Title(view models.ViewState, index int) string {
	return fmt.Sprintf("Current View: %s  %s=%d  rot %d°", view.Axis, view.Axis.FixedName(), index, view.Rotation*90)
}
