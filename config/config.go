// Package config loads the simulation settings from defaults, an optional
// config file, LBM_* environment variables and command line flags.
package config

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	fluid "github.com/esimov/ascii-lbm/fluid-solver"
	"github.com/esimov/ascii-lbm/shapes"
)

// EnvPrefix is prepended to every environment variable, e.g. LBM_XDIM.
const EnvPrefix = "LBM"

const (
	KeyXDim          = "xdim"
	KeyYDim          = "ydim"
	KeyViscosity     = "viscosity"
	KeySpeed         = "speed"
	KeyStepsPerFrame = "steps-per-frame"
	KeyFrameInterval = "frame-interval"
	KeyShape         = "obstacle.shape"
	KeySize          = "obstacle.size"
	KeyContrast      = "contrast"
	KeyAddress       = "address"
	KeyPrefix        = "prefix"
	KeyRoot          = "root"
	KeyLogLevel      = "log-level"
)

type Obstacle struct {
	Shape string `json:"shape" mapstructure:"shape"`
	Size  int    `json:"size" mapstructure:"size"`
}

// Config holds every setting of the program.
type Config struct {
	XDim          int           `json:"xdim" mapstructure:"xdim"`
	YDim          int           `json:"ydim" mapstructure:"ydim"`
	Viscosity     float64       `json:"viscosity" mapstructure:"viscosity"`
	Speed         float64       `json:"speed" mapstructure:"speed"`
	StepsPerFrame int           `json:"steps-per-frame" mapstructure:"steps-per-frame"`
	FrameInterval time.Duration `json:"frame-interval" mapstructure:"frame-interval"`
	Obstacle      Obstacle      `json:"obstacle" mapstructure:"obstacle"`
	Contrast      float64       `json:"contrast" mapstructure:"contrast"`
	Address       string        `json:"address" mapstructure:"address"`
	Prefix        string        `json:"prefix" mapstructure:"prefix"`
	Root          string        `json:"root" mapstructure:"root"`
	LogLevel      string        `json:"log-level" mapstructure:"log-level"`
}

var defaults = map[string]interface{}{
	KeyXDim:          200,
	KeyYDim:          80,
	KeyViscosity:     fluid.DefaultViscosity,
	KeySpeed:         fluid.DefaultInflowSpeed,
	KeyStepsPerFrame: 10,
	KeyFrameInterval: 16 * time.Millisecond,
	KeyShape:         shapes.LineShape,
	KeySize:          20,
	KeyContrast:      20.0,
	KeyAddress:       "localhost:5000",
	KeyPrefix:        "/",
	KeyRoot:          ".",
	KeyLogLevel:      "info",
}

// New returns a viper instance carrying the defaults and reading LBM_*
// environment variables.
func New() *viper.Viper {
	v := viper.New()
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// AddFlags registers the command line flags for the simulation settings.
func AddFlags(fs *pflag.FlagSet) {
	fs.Int(KeyXDim, defaults[KeyXDim].(int), "lattice width in cells")
	fs.Int(KeyYDim, defaults[KeyYDim].(int), "lattice height in cells")
	fs.Float64(KeyViscosity, fluid.DefaultViscosity, "kinematic viscosity")
	fs.Float64(KeySpeed, fluid.DefaultInflowSpeed, "inflow speed in lattice units")
	fs.Int(KeyStepsPerFrame, defaults[KeyStepsPerFrame].(int), "solver steps between two frames")
	fs.Duration(KeyFrameInterval, defaults[KeyFrameInterval].(time.Duration), "delay between two frames")
	fs.String("shape", shapes.LineShape, fmt.Sprintf("initial obstacle, one of %v", shapes.Names()))
	fs.Int("size", defaults[KeySize].(int), "initial obstacle size in cells")
	fs.Float64(KeyContrast, defaults[KeyContrast].(float64), "curl colour contrast")
	fs.String(KeyAddress, defaults[KeyAddress].(string), "websocket server address")
	fs.String(KeyPrefix, defaults[KeyPrefix].(string), "url prefix of the static files")
	fs.String(KeyRoot, defaults[KeyRoot].(string), "directory of the static files")
	fs.String(KeyLogLevel, defaults[KeyLogLevel].(string), "log level (debug, info, warn, error)")
}

// BindFlags makes the flags registered by AddFlags override the other
// sources. Flags missing from fs are skipped.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	flags := map[string]string{"shape": KeyShape, "size": KeySize}
	for k := range defaults {
		if !strings.Contains(k, ".") {
			flags[k] = k
		}
	}
	for name, key := range flags {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return err
		}
	}
	return nil
}

// Load reads the config file at path, if any, and decodes the result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
		logrus.WithField("file", v.ConfigFileUsed()).Debug("loaded config file")
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings a solver cannot be built with.
func (c *Config) Validate() error {
	var errs []string
	if c.XDim < 3 || c.YDim < 3 {
		errs = append(errs, fmt.Sprintf("lattice must be at least 3x3, got %dx%d", c.XDim, c.YDim))
	}
	if err := fluid.ValidateViscosity(c.Viscosity); err != nil {
		errs = append(errs, err.Error())
	}
	if math.IsNaN(c.Speed) || math.IsInf(c.Speed, 0) {
		errs = append(errs, fmt.Sprintf("speed must be finite, got %v", c.Speed))
	}
	if c.StepsPerFrame < 1 {
		errs = append(errs, fmt.Sprintf("steps-per-frame must be at least 1, got %d", c.StepsPerFrame))
	}
	if c.FrameInterval <= 0 {
		errs = append(errs, fmt.Sprintf("frame-interval must be positive, got %v", c.FrameInterval))
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return errors.New("invalid config: " + strings.Join(errs, "; "))
	}
	return nil
}

// SolverOptions returns the solver options matching c.
func (c *Config) SolverOptions() []fluid.Option {
	return []fluid.Option{
		fluid.WithViscosity(c.Viscosity),
		fluid.WithInflowSpeed(c.Speed),
	}
}
