package segmentation

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"axonatlas/pkg/stack"
	"axonatlas/pkg/volume"
)

// DefaultPrefix names the input directories the segmentation program reads.
const DefaultPrefix = "trailmap_input"

// ErrNoInputs is returned when no prepared input directory exists.
var ErrNoInputs = errors.New("no segmentation input directories found")

// ExportDir is the directory a volume is prepared into:
// <root>/<prefix>_<id without its .tif or .tiff extension>.
func ExportDir(root, prefix, volumeID string) string {
	name := filepath.Base(volumeID)
	for _, ext := range []string{".tiff", ".tif"} {
		if strings.HasSuffix(strings.ToLower(name), ext) {
			name = name[:len(name)-len(ext)]
			break
		}
	}
	return filepath.Join(root, prefix+"_"+name)
}

// Export writes l as a plane sequence into ExportDir and returns the
// directory.
func Export(l volume.Layer, root, prefix, volumeID string) (string, error) {
	dir := ExportDir(root, prefix, volumeID)
	if err := stack.SaveSequence(l, dir); err != nil {
		return "", fmt.Errorf("export %s: %w", volumeID, err)
	}
	return dir, nil
}

// FindInputs lists the subdirectories of root whose names start with prefix,
// sorted by name.
func FindInputs(root, prefix string) ([]string, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return nil, err
	}

	var dirs []string
	for _, e := range entries {
		if e.IsDir() && strings.HasPrefix(e.Name(), prefix) {
			dirs = append(dirs, filepath.Join(root, e.Name()))
		}
	}
	if len(dirs) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInputs, root)
	}
	sort.Strings(dirs)
	return dirs, nil
}
