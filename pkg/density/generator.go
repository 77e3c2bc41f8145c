package density

import (
	"fmt"
	"log"
	"os"
	"path/filepath"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"axonatlas/internal/models"
	"axonatlas/pkg/colormap"
	"axonatlas/pkg/stack"
)

// Metrics summarizes a generated heatmap.
type Metrics struct {
	// MaxCount is the largest neighborhood count, the value that maps to 1.
	MaxCount float64

	// MeanDensity is the mean normalized density over all voxels.
	MeanDensity float64

	// Occupied is the fraction of mask voxels that are true.
	Occupied float64
}

// Params holds the batch heatmap configuration.
type Params struct {
	// MaskDir is the directory holding the binary segmentation stack.
	MaskDir string

	// BoundariesDir optionally holds an atlas boundary stack of the same shape
	// as the mask. Nonzero voxels are drawn white in every output.
	BoundariesDir string

	// OutputDir receives the xy/, yz/ and xz/ sequences.
	OutputDir string

	// KernelSize is the side of the counting cube; it must be odd.
	KernelSize int

	// VoxelSize is the resolution of the mask in microns.
	VoxelSize float64

	Palette colormap.Palette
	Verbose bool
}

// DefaultParams mirror the defaults of the density section of the config.
func DefaultParams() Params {
	return Params{
		OutputDir:  "density_stacks",
		KernelSize: 5,
		VoxelSize:  25,
		Palette:    DefaultPalette,
	}
}

// Generator runs the heatmap pipeline from a mask stack on disk to three
// oriented RGB sequences on disk.
type Generator struct {
	params *Params

	mask    *models.Volume[bool]
	markers *models.Volume[bool]

	metrics Metrics
}

func NewGenerator(params *Params) *Generator {
	return &Generator{params: params}
}

func (g *Generator) logf(format string, args ...any) {
	if g.params.Verbose {
		log.Printf(format, args...)
	}
}

// Process runs the complete pipeline
func (g *Generator) Process() error {
	if err := checkKernel(g.params.KernelSize); err != nil {
		return err
	}
	if !g.params.Palette.Valid() {
		return fmt.Errorf("invalid palette %v", g.params.Palette)
	}

	// Step 1: Load the mask and optional boundaries
	g.logf("Step 1: Loading mask stack from %s...", g.params.MaskDir)
	if err := g.load(); err != nil {
		return err
	}

	// Step 2: Count, normalize and colorize
	g.logf("Step 2: Estimating density with kernel size %d...", g.params.KernelSize)
	res, err := Generate(g.mask, g.markers, g.params.KernelSize, g.params.Palette)
	if err != nil {
		return fmt.Errorf("failed to generate density: %w", err)
	}

	// Step 3: Write the oriented stacks
	g.logf("Step 3: Saving oriented stacks to %s...", g.params.OutputDir)
	if err := Save(res.Oriented, g.params.OutputDir); err != nil {
		return fmt.Errorf("failed to save density stacks: %w", err)
	}
	for _, axis := range []models.Axis{models.AxisXY, models.AxisYZ, models.AxisXZ} {
		g.logf("%s stack: %s", axis, res.Axis(axis).Shape())
	}

	// Step 4: Calculate metrics
	g.logf("Step 4: Calculating metrics...")
	g.metrics = computeMetrics(g.mask, res)
	g.logf("Max count %.0f, mean density %.4f, occupied %.4f",
		g.metrics.MaxCount, g.metrics.MeanDensity, g.metrics.Occupied)

	return nil
}

func (g *Generator) load() error {
	mask, err := stack.LoadMask(g.params.MaskDir)
	if err != nil {
		return fmt.Errorf("failed to load mask: %w", err)
	}
	mask.VoxelSize.X = g.params.VoxelSize
	mask.VoxelSize.Y = g.params.VoxelSize
	mask.VoxelSize.Z = g.params.VoxelSize
	g.mask = mask
	g.logf("Loaded mask %s at %g microns", mask.Shape(), g.params.VoxelSize)

	if g.params.BoundariesDir == "" {
		return nil
	}
	markers, err := stack.LoadMask(g.params.BoundariesDir)
	if err != nil {
		return fmt.Errorf("failed to load boundaries: %w", err)
	}
	g.markers = markers
	return nil
}

// GetMetrics returns the metrics of the last successful Process call.
func (g *Generator) GetMetrics() Metrics {
	return g.metrics
}

// Save writes each oriented stack into its own subdirectory of dir.
func Save(o *Oriented, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for _, axis := range []models.Axis{models.AxisXY, models.AxisYZ, models.AxisXZ} {
		if err := stack.SaveRGBSequence(o.Axis(axis), OutputDir(dir, axis)); err != nil {
			return err
		}
	}
	return nil
}

// OutputDir is the directory Save writes the stack of axis to.
func OutputDir(root string, axis models.Axis) string {
	switch axis {
	case models.AxisYZ:
		return filepath.Join(root, "yz")
	case models.AxisXZ:
		return filepath.Join(root, "xz")
	}
	return filepath.Join(root, "xy")
}

func computeMetrics(mask *models.Volume[bool], res *Result) Metrics {
	occupied := make([]float64, len(mask.Data))
	for i, b := range mask.Data {
		if b {
			occupied[i] = 1
		}
	}
	return Metrics{
		MaxCount:    res.Peak,
		MeanDensity: stat.Mean(res.Density.Data, nil),
		Occupied:    floats.Sum(occupied) / float64(len(occupied)),
	}
}
