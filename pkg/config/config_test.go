package config

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"axonatlas/internal/models"
	"axonatlas/pkg/colormap"
	"axonatlas/pkg/density"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config is invalid: %v", err)
	}
	if cfg.Viewer.View != models.AxisXZ {
		t.Errorf("Expected default view XZ, got %s", cfg.Viewer.View)
	}
	if cfg.Density.Palette != colormap.Plasma {
		t.Errorf("Expected plasma heatmaps, got %s", cfg.Density.Palette)
	}
	if cfg.Viewer.Workers <= 0 {
		t.Errorf("Expected positive worker count, got %d", cfg.Viewer.Workers)
	}

	dp := density.DefaultParams()
	if cfg.Density.KernelSize != dp.KernelSize || cfg.Density.VoxelSize != dp.VoxelSize || cfg.Density.OutputDir != dp.OutputDir {
		t.Errorf("Density defaults %+v differ from generator defaults %+v", cfg.Density, dp)
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSaveAndLoadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := DefaultConfig()
	cfg.Viewer.View = models.AxisYZ
	cfg.Viewer.Palette = colormap.Hot
	cfg.Viewer.AutoWindow = []float64{1, 99}
	cfg.Density.KernelSize = 7
	cfg.Log.File = "axonatlas.log"
	require.NoError(t, SaveConfig(cfg, path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "view: YZ")
	assert.Contains(t, text, "palette: hot")

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestLoadConfigPartialFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("density:\n  kernelSize: 9\n"), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9, cfg.Density.KernelSize)
	assert.Equal(t, DefaultConfig().Segmentation, cfg.Segmentation)
}

func TestLoadConfigInvalid(t *testing.T) {
	dir := t.TempDir()
	for name, body := range map[string]string{
		"kernel":  "density:\n  kernelSize: 4\n",
		"palette": "viewer:\n  palette: rainbow\n",
		"view":    "viewer:\n  view: AB\n",
		"opacity": "viewer:\n  opacity: 1.5\n",
		"syntax":  "viewer: [",
	} {
		path := filepath.Join(dir, name+".yaml")
		require.NoError(t, os.WriteFile(path, []byte(body), 0644))
		_, err := LoadConfig(path)
		assert.Error(t, err, name)
	}
}

func TestCreateDefaultConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, CreateDefaultConfigFile(path))
	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestSetLogger(t *testing.T) {
	defer log.SetOutput(os.Stderr)

	var nilCfg *LogConfig
	require.NoError(t, nilCfg.SetLogger().Close())

	path := filepath.Join(t.TempDir(), "axonatlas.log")
	c := &LogConfig{File: path, MaxSize: 1, MaxAge: 1}
	closer := c.SetLogger()
	log.Print("rotating log line")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "rotating log line"))
}
