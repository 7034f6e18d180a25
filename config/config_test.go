package config

import (
	"io/ioutil"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(New(), "")
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.XDim)
	assert.Equal(t, 80, cfg.YDim)
	assert.Equal(t, 0.02, cfg.Viscosity)
	assert.Equal(t, 0.1, cfg.Speed)
	assert.Equal(t, 10, cfg.StepsPerFrame)
	assert.Equal(t, 16*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, Obstacle{Shape: "line", Size: 20}, cfg.Obstacle)
	assert.Equal(t, 20.0, cfg.Contrast)
	assert.Equal(t, "localhost:5000", cfg.Address)
	assert.Equal(t, "/", cfg.Prefix)
	assert.Equal(t, ".", cfg.Root)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Len(t, cfg.SolverOptions(), 2)
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lbm.yaml")
	content := strings.Join([]string{
		"xdim: 120",
		"viscosity: 0.05",
		"frame-interval: 40ms",
		"obstacle:",
		"  shape: circle",
		"  size: 12",
	}, "\n")
	require.NoError(t, ioutil.WriteFile(path, []byte(content), 0644))

	cfg, err := Load(New(), path)
	require.NoError(t, err)
	assert.Equal(t, 120, cfg.XDim)
	assert.Equal(t, 80, cfg.YDim)
	assert.Equal(t, 0.05, cfg.Viscosity)
	assert.Equal(t, 40*time.Millisecond, cfg.FrameInterval)
	assert.Equal(t, Obstacle{Shape: "circle", Size: 12}, cfg.Obstacle)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(New(), filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestEnvironmentOverridesDefaults(t *testing.T) {
	os.Setenv("LBM_YDIM", "50")
	os.Setenv("LBM_OBSTACLE_SHAPE", "star")
	defer os.Unsetenv("LBM_YDIM")
	defer os.Unsetenv("LBM_OBSTACLE_SHAPE")

	cfg, err := Load(New(), "")
	require.NoError(t, err)
	assert.Equal(t, 50, cfg.YDim)
	assert.Equal(t, "star", cfg.Obstacle.Shape)
}

func TestFlagsOverrideEverything(t *testing.T) {
	os.Setenv("LBM_XDIM", "50")
	defer os.Unsetenv("LBM_XDIM")

	fs := pflag.NewFlagSet("test", pflag.ContinueOnError)
	AddFlags(fs)
	require.NoError(t, fs.Parse([]string{"--xdim=64", "--shape=airfoil", "--speed=0.05", "--log-level=debug"}))

	v := New()
	require.NoError(t, BindFlags(v, fs))
	cfg, err := Load(v, "")
	require.NoError(t, err)

	assert.Equal(t, 64, cfg.XDim)
	assert.Equal(t, 0.05, cfg.Speed)
	assert.Equal(t, "airfoil", cfg.Obstacle.Shape)
	assert.Equal(t, 20, cfg.Obstacle.Size)
	assert.Equal(t, "debug", cfg.LogLevel)
	// unchanged flags keep the defaults
	assert.Equal(t, 80, cfg.YDim)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Load(New(), "")
		require.NoError(t, err)
		return cfg
	}

	testCases := []struct {
		name   string
		modify func(*Config)
		errMsg string
	}{
		{"small lattice", func(c *Config) { c.XDim = 2 }, "at least 3x3"},
		{"zero viscosity", func(c *Config) { c.Viscosity = 0 }, "viscosity"},
		{"infinite viscosity", func(c *Config) { c.Viscosity = math.Inf(1) }, "viscosity"},
		{"nan speed", func(c *Config) { c.Speed = math.NaN() }, "speed must be finite"},
		{"infinite speed", func(c *Config) { c.Speed = math.Inf(-1) }, "speed must be finite"},
		{"no steps", func(c *Config) { c.StepsPerFrame = 0 }, "steps-per-frame"},
		{"no interval", func(c *Config) { c.FrameInterval = 0 }, "frame-interval"},
		{"bad level", func(c *Config) { c.LogLevel = "loud" }, "loud"},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := valid()
			tc.modify(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.errMsg)
		})
	}

	assert.NoError(t, valid().Validate())
}
