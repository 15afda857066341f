// Package proteus is a thin facade over the independently-usable
// subsystem packages (compass, geoinfo, wave, ocean, weather), offered as
// a convenience for callers that want a single init/reset pair instead of
// wiring each grid by hand. Each subsystem package remains fully usable on
// its own; nothing here is required to call mathkernel, celestial,
// geopos, compass.Diff or version.Version directly.
package proteus

import (
	"io"
	"os"

	"github.com/ls4096/libproteus/compass"
	"github.com/ls4096/libproteus/geoinfo"
	"github.com/ls4096/libproteus/internal/obslog"
	"github.com/ls4096/libproteus/ocean"
	"github.com/ls4096/libproteus/wave"
	"github.com/ls4096/libproteus/weather"
	"github.com/pkg/errors"
)

// Config names the input sources for every grid subsystem. A zero-value
// field skips initializing that subsystem.
type Config struct {
	MagFile string

	GeoInfoDir string

	WaveF1, WaveF2 string

	OceanF1, OceanF2 string

	WeatherGrid          weather.GridID
	WeatherD1, WeatherD2 string
}

// Env bundles every initialized subsystem. Subsystems not requested in the
// Config passed to Init are left nil.
type Env struct {
	Mag     *compass.Grid
	GeoInfo *geoinfo.Cache
	Wave    *wave.Grid
	Ocean   *ocean.Grid
	Weather *weather.Grid
}

// SetLogSink installs w as the destination for every subsystem's log
// output; passing nil restores the default discarding sink.
func SetLogSink(w io.Writer) {
	obslog.SetSink(w)
}

// Init constructs every subsystem named in cfg. On any failure it tears
// down whatever was already constructed and returns the error.
func Init(cfg Config) (*Env, error) {
	env := &Env{}

	if cfg.MagFile != "" {
		f, err := os.Open(cfg.MagFile)
		if err != nil {
			return nil, errors.Wrap(err, "proteus: opening magnetic declination file")
		}
		defer f.Close()

		grid, err := compass.Load(f)
		if err != nil {
			return nil, errors.Wrap(err, "proteus: initializing compass")
		}
		env.Mag = grid
	}

	if cfg.GeoInfoDir != "" {
		cache, err := geoinfo.Open(cfg.GeoInfoDir)
		if err != nil {
			env.Reset()
			return nil, errors.Wrap(err, "proteus: initializing geoinfo")
		}
		env.GeoInfo = cache
	}

	if cfg.WaveF1 != "" || cfg.WaveF2 != "" {
		g, err := wave.Init(cfg.WaveF1, cfg.WaveF2)
		if err != nil {
			env.Reset()
			return nil, errors.Wrap(err, "proteus: initializing wave")
		}
		env.Wave = g
	}

	if cfg.OceanF1 != "" || cfg.OceanF2 != "" {
		g, err := ocean.Init(cfg.OceanF1, cfg.OceanF2)
		if err != nil {
			env.Reset()
			return nil, errors.Wrap(err, "proteus: initializing ocean")
		}
		env.Ocean = g
	}

	if cfg.WeatherD1 != "" || cfg.WeatherD2 != "" {
		g, err := weather.Init(cfg.WeatherGrid, cfg.WeatherD1, cfg.WeatherD2)
		if err != nil {
			env.Reset()
			return nil, errors.Wrap(err, "proteus: initializing weather")
		}
		env.Weather = g
	}

	return env, nil
}

// Reset stops every background refresh goroutine owned by env and releases
// the tile cache's pruner. Safe to call on a partially-constructed Env.
func (env *Env) Reset() {
	if env.Wave != nil {
		env.Wave.Close()
		env.Wave = nil
	}
	if env.Ocean != nil {
		env.Ocean.Close()
		env.Ocean = nil
	}
	if env.Weather != nil {
		env.Weather.Close()
		env.Weather = nil
	}
	if env.GeoInfo != nil {
		env.GeoInfo.Close()
		env.GeoInfo = nil
	}
	env.Mag = nil
}
