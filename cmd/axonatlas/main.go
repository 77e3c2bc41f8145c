package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"axonatlas/internal/models"
	"axonatlas/pkg/brightness"
	"axonatlas/pkg/colormap"
	"axonatlas/pkg/config"
	"axonatlas/pkg/density"
	"axonatlas/pkg/segmentation"
	"axonatlas/pkg/stack"
	"axonatlas/pkg/visualization"
	"axonatlas/pkg/volume"
)

const usage = `usage: axonatlas [flags] <command> [command flags]

commands:
  render       composite a cross-section of one or more stacks into a PNG
  export       prepare stacks as segmentation input directories
  segment      run the segmentation program on all prepared inputs
  density      build density heatmap stacks from a segmentation mask
  init-config  write the default configuration file

flags:
`

func main() {
	configPath := flag.String("config", "axonatlas.yaml", "Configuration file")
	verbose := flag.Bool("verbose", false, "Log pipeline progress")
	flag.Usage = func() {
		fmt.Fprint(flag.CommandLine.Output(), usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(1)
	}
	cmd, args := flag.Arg(0), flag.Args()[1:]

	if cmd == "init-config" {
		if err := config.CreateDefaultConfigFile(*configPath); err != nil {
			log.Fatalf("Failed to write config: %v", err)
		}
		fmt.Printf("Default configuration written to: %s\n", *configPath)
		return
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *verbose {
		cfg.Output.Verbose = true
	}
	defer cfg.Log.SetLogger().Close()

	switch cmd {
	case "render":
		err = runRender(cfg, args)
	case "export":
		err = runExport(cfg, args)
	case "segment":
		err = runSegment(cfg, args)
	case "density":
		err = runDensity(cfg, args)
	default:
		flag.Usage()
		os.Exit(1)
	}
	if err != nil {
		log.Fatalf("%s failed: %v", cmd, err)
	}
}

// splitList splits a comma separated flag value, dropping empty items.
func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// loadStore loads every stack directory into a store with the configured
// initial render parameters.
func loadStore(cfg *config.Config, dirs []string) (*volume.Store, error) {
	store := volume.NewStore()
	for _, dir := range dirs {
		l, err := stack.Load(dir)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", dir, err)
		}
		id := filepath.Base(dir)
		if !store.Add(id, l) {
			log.Printf("Volume %s already loaded, skipping %s", id, dir)
			continue
		}

		params := volume.DefaultRenderParams(l)
		params.Colormap = cfg.Viewer.Palette
		params.Opacity = cfg.Viewer.Opacity
		if err := store.SetParams(id, params); err != nil {
			return nil, err
		}
		if w := cfg.Viewer.AutoWindow; len(w) == 2 {
			if _, err := store.AutoWindow(id, w[0], w[1]); err != nil {
				return nil, err
			}
		}
		if cfg.Output.Verbose {
			lo, hi := l.Range()
			log.Printf("Loaded %s: %s %s, range [%g, %g]", id, l.Shape(), l.DType(), lo, hi)
		}
	}
	return store, nil
}

// applyOverrides sets per-volume colormaps, opacities and windows given on
// the command line, in load order.
func applyOverrides(store *volume.Store, colormaps, opacities, windows []string) error {
	for i, id := range store.IDs() {
		e, _ := store.Get(id)
		p := e.Params
		if i < len(colormaps) {
			pal, err := colormap.ParsePalette(colormaps[i])
			if err != nil {
				return err
			}
			p.Colormap = pal
		}
		if i < len(opacities) {
			o, err := strconv.ParseFloat(opacities[i], 64)
			if err != nil {
				return fmt.Errorf("opacity %q: %w", opacities[i], err)
			}
			p.Opacity = o
		}
		if i < len(windows) {
			w, err := parseWindow(windows[i])
			if err != nil {
				return err
			}
			p.Window = w
		}
		if err := store.SetParams(id, p); err != nil {
			return err
		}
	}
	return nil
}

// parseWindow parses "min:max".
func parseWindow(s string) (brightness.Window, error) {
	loStr, hiStr, ok := strings.Cut(s, ":")
	if !ok {
		return brightness.Window{}, fmt.Errorf("window %q must be min:max", s)
	}
	lo, err := strconv.ParseFloat(loStr, 64)
	if err != nil {
		return brightness.Window{}, fmt.Errorf("window %q: %w", s, err)
	}
	hi, err := strconv.ParseFloat(hiStr, 64)
	if err != nil {
		return brightness.Window{}, fmt.Errorf("window %q: %w", s, err)
	}
	w := brightness.Window{Min: lo, Max: hi}
	return w, w.Validate()
}

func runRender(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	volumes := fs.String("volumes", "", "Comma separated stack directories")
	view := fs.String("view", cfg.Viewer.View.String(), "Viewing plane: XY, YZ or XZ")
	index := fs.Int("index", -1, "Slice index along the fixed axis (default: middle)")
	rotations := fs.Int("rotate", 0, "Extra counter-clockwise quarter turns")
	colormaps := fs.String("colormaps", "", "Comma separated colormap per volume ("+strings.Join(colormap.Names(), ", ")+")")
	opacities := fs.String("opacities", "", "Comma separated opacity per volume")
	windows := fs.String("windows", "", "Comma separated min:max brightness window per volume")
	output := fs.String("output", "render.png", "Output PNG, or directory with -all")
	all := fs.Bool("all", false, "Render every index of the view into the output directory")
	fs.Parse(args)

	dirs := splitList(*volumes)
	if len(dirs) == 0 {
		fs.Usage()
		return fmt.Errorf("no volumes given")
	}

	axis, err := models.ParseAxis(*view)
	if err != nil {
		return err
	}
	state := models.ViewState{Axis: axis}
	for i := 0; i < ((*rotations%4)+4)%4; i++ {
		state = state.Rotate()
	}

	store, err := loadStore(cfg, dirs)
	if err != nil {
		return err
	}
	if err := applyOverrides(store, splitList(*colormaps), splitList(*opacities), splitList(*windows)); err != nil {
		return err
	}
	if cfg.Output.Verbose {
		log.Printf("Index extents over %d volumes: %s", len(store.IDs()), store.MaxExtents())
	}

	viewer := visualization.NewViewer(store, cfg.Viewer.Workers)
	if *all {
		startTime := time.Now()
		if err := viewer.SaveSliceSequence(state, *output); err != nil {
			return err
		}
		n, _ := viewer.IndexRange(state.Axis)
		fmt.Printf("Saved %d %s slices to %s in %.2f seconds\n", n, state.Axis, *output, time.Since(startTime).Seconds())
		return nil
	}

	pos := *index
	if pos < 0 {
		pos = viewer.DefaultIndex(state.Axis)
	}
	img, err := viewer.Render(state, pos)
	if err != nil {
		return err
	}
	if err := viewer.SaveSlice(img, visualization.Title(state, pos), *output); err != nil {
		return err
	}
	fmt.Printf("%s saved to %s\n", visualization.Title(state, pos), *output)
	return nil
}

func runExport(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("export", flag.ExitOnError)
	volumes := fs.String("volumes", "", "Comma separated stack directories")
	root := fs.String("root", ".", "Experiment directory receiving the input directories")
	fs.Parse(args)

	dirs := splitList(*volumes)
	if len(dirs) == 0 {
		fs.Usage()
		return fmt.Errorf("no volumes given")
	}

	for _, dir := range dirs {
		l, err := stack.Load(dir)
		if err != nil {
			return fmt.Errorf("load %s: %w", dir, err)
		}
		out, err := segmentation.Export(l, *root, cfg.Segmentation.InputPrefix, filepath.Base(dir))
		if err != nil {
			return err
		}
		fmt.Printf("Saved frames to: %s\n", out)
	}
	return nil
}

func runSegment(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("segment", flag.ExitOnError)
	root := fs.String("root", ".", "Experiment directory holding the input directories")
	fs.Parse(args)

	dirs, err := segmentation.FindInputs(*root, cfg.Segmentation.InputPrefix)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	runner := segmentation.NewRunner(cfg.Segmentation.Command, cfg.Segmentation.Args...)
	log.Printf("Running %s on %d input directories", runner, len(dirs))
	err = runner.Run(ctx, dirs, func(line string) {
		fmt.Println(line)
	})
	var pe *segmentation.ProcessError
	if errors.As(err, &pe) {
		log.Printf("Segmentation output before failure:\n%s", strings.Join(pe.Output, "\n"))
	}
	if err != nil {
		return err
	}
	fmt.Println("Segmentation processing completed!")
	return nil
}

func runDensity(cfg *config.Config, args []string) error {
	fs := flag.NewFlagSet("density", flag.ExitOnError)
	mask := fs.String("mask", "", "Directory holding the binary mask stack")
	boundaries := fs.String("boundaries", "", "Optional directory holding atlas boundary markers")
	output := fs.String("output", cfg.Density.OutputDir, "Directory receiving the xy, yz and xz stacks")
	kernel := fs.Int("kernel", cfg.Density.KernelSize, "Odd side of the counting cube in voxels")
	voxel := fs.Float64("voxel-size", cfg.Density.VoxelSize, "Mask resolution in microns")
	fs.Parse(args)

	if *mask == "" {
		fs.Usage()
		return fmt.Errorf("no mask given")
	}

	params := density.DefaultParams()
	params.MaskDir = *mask
	params.BoundariesDir = *boundaries
	params.OutputDir = *output
	params.KernelSize = *kernel
	params.VoxelSize = *voxel
	params.Palette = cfg.Density.Palette
	params.Verbose = cfg.Output.Verbose

	startTime := time.Now()
	g := density.NewGenerator(&params)
	if err := g.Process(); err != nil {
		return err
	}

	metrics := g.GetMetrics()
	fmt.Printf("\nDensity stacks saved in %s (%.2f seconds)\n", *output, time.Since(startTime).Seconds())
	fmt.Printf("Peak neighborhood count: %.0f\n", metrics.MaxCount)
	fmt.Printf("Mean normalized density: %.4f\n", metrics.MeanDensity)
	fmt.Printf("Occupied fraction: %.4f\n", metrics.Occupied)
	return nil
}
