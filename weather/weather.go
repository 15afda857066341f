// Package weather provides a multi-scalar surface weather grid (wind,
// gust, temperature, dewpoint, pressure, cloud, visibility, precipitation
// rate and a precipitation-condition bitmap) sampled by position and time,
// blended bilinearly in space and linearly between two forecast snapshots
// three hours apart, on a caller-selected 1.0/0.5/0.25-degree lattice.
package weather

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ls4096/libproteus/geopos"
	"github.com/ls4096/libproteus/internal/gridpair"
	"github.com/ls4096/libproteus/internal/obslog"
	"github.com/ls4096/libproteus/internal/refresh"
	"github.com/ls4096/libproteus/mathkernel"
	"github.com/pkg/errors"
)

// GridID selects one of the three supported lattice resolutions.
type GridID int

const (
	Grid1Deg       GridID = iota // 360x181 at 1.0 degree
	GridHalfDeg                  // 720x361 at 0.5 degree
	GridQuarterDeg               // 1440x721 at 0.25 degree
)

// Condition bits, per spec: bit 0 rain, 1 snow, 2 ice pellets, 3 freezing rain.
const (
	CondRain = 1 << iota
	CondSnow
	CondIcePellets
	CondFreezingRain
)

const phaseDuration = 2*time.Hour + 58*time.Minute

// boundaryHours are the UTC hours (each at minute 15) on which a refresh
// fires. Hours with hour%6==4 read the first snapshot path, the rest read
// the second (spec.md §4.9).
var boundaryHours = [8]int{1, 4, 7, 10, 13, 16, 19, 22}

func isF1Boundary(hour int) bool { return hour%6 == 4 }

func isBoundaryHour(hour int) bool {
	for _, h := range boundaryHours {
		if h == hour {
			return true
		}
	}
	return false
}

func boundaryAt(ref time.Time, hour int) time.Time {
	return time.Date(ref.Year(), ref.Month(), ref.Day(), hour, 15, 0, 0, time.UTC)
}

// surroundingBoundaries returns the most recent scheduled boundary at or
// before now, and the one immediately following it, each paired with
// whether it reads the first (true) or second snapshot path.
func surroundingBoundaries(now time.Time) (prev time.Time, prevIsF1 bool, next time.Time, nextIsF1 bool) {
	now = now.UTC()
	for i := len(boundaryHours) - 1; i >= 0; i-- {
		h := boundaryHours[i]
		t := boundaryAt(now, h)
		if !t.After(now) {
			prev = t
			prevIsF1 = isF1Boundary(h)
			if i == len(boundaryHours)-1 {
				next = boundaryAt(now.AddDate(0, 0, 1), boundaryHours[0])
				nextIsF1 = isF1Boundary(boundaryHours[0])
			} else {
				next = boundaryAt(now, boundaryHours[i+1])
				nextIsF1 = isF1Boundary(boundaryHours[i+1])
			}
			return
		}
	}
	prev = boundaryAt(now.AddDate(0, 0, -1), boundaryHours[len(boundaryHours)-1])
	prevIsF1 = isF1Boundary(boundaryHours[len(boundaryHours)-1])
	next = boundaryAt(now, boundaryHours[0])
	nextIsF1 = isF1Boundary(boundaryHours[0])
	return
}

type gridDims struct {
	nx, ny           int
	scale            float64
	offsetX, offsetY int
}

var dimsByID = map[GridID]gridDims{
	Grid1Deg:       {nx: 360, ny: 181, scale: 1, offsetX: 180, offsetY: 90},
	GridHalfDeg:    {nx: 720, ny: 361, scale: 2, offsetX: 360, offsetY: 180},
	GridQuarterDeg: {nx: 1440, ny: 721, scale: 4, offsetX: 720, offsetY: 360},
}

// Sample is a weather observation at a point.
type Sample struct {
	// Wind is the bearing the wind blows from, and its speed in m/s.
	Wind mathkernel.Vec
	// GustMS is always >= Wind.Mag.
	GustMS float64

	TempC        float64
	DewpointC    float64
	PressureHPa  float64
	CloudPercent float64
	VisibilityM  float64
	PrateMMH     float64

	// Cond is the precipitation-condition bitmap: CondRain|CondSnow|
	// CondIcePellets|CondFreezingRain. Never interpolated.
	Cond uint8
}

type cell struct {
	u, v, gust, tempK, dewK, presPa, cloud, vis, prate float32
	cond                                               uint8
}

type snapshot struct {
	cells []cell
}

func xyIndex(dims gridDims, x, y int) int { return y*dims.nx + x }

func emptySnapshot(dims gridDims) *snapshot {
	return &snapshot{cells: make([]cell, dims.nx*dims.ny)}
}

func cloneSnapshot(base *snapshot) *snapshot {
	return &snapshot{cells: append([]cell(nil), base.cells...)}
}

// Grid is a live weather dataset with a background refresh goroutine.
type Grid struct {
	dims gridDims

	pair   *gridpair.Pair[*snapshot]
	ctrl   *refresh.Controller
	f1Dir  string
	f2Dir  string
	armedT time.Time
}

// Init loads the two forecast snapshot directories (assumed 3 hours apart
// on the UTC synoptic schedule) and starts the background refresh
// goroutine that rotates them in every 3 hours.
func Init(id GridID, d1Dir, d2Dir string) (*Grid, error) {
	dims, ok := dimsByID[id]
	if !ok {
		return nil, errors.Errorf("weather: unknown grid id %d", id)
	}
	if d1Dir == "" || d2Dir == "" {
		return nil, errors.New("weather: both forecast directory paths are required")
	}

	now := time.Now().UTC()
	prev, prevIsF1, _, nextIsF1 := surroundingBoundaries(now)

	prevDir := d2Dir
	if prevIsF1 {
		prevDir = d1Dir
	}
	nextDir := d2Dir
	if nextIsF1 {
		nextDir = d1Dir
	}

	g0, err := ingestDir(dims, nil, prevDir)
	if err != nil {
		return nil, errors.Wrap(err, "weather: loading initial grid 0")
	}
	g1, err := ingestDir(dims, g0, nextDir)
	if err != nil {
		return nil, errors.Wrap(err, "weather: loading initial grid 1")
	}

	phaseTime := prev.Add(phaseDuration)
	obslog.Infof("weather: grid phase time %s (%s from now)", phaseTime, phaseTime.Sub(now))

	g := &Grid{
		dims:  dims,
		pair:  gridpair.New(g0, g1, phaseTime),
		f1Dir: d1Dir,
		f2Dir: d2Dir,
	}
	g.ctrl = refresh.Start("weather", g.pollRefresh)
	g.ctrl.MarkInstalled(now)

	return g, nil
}

// Close stops the background refresh goroutine.
func (g *Grid) Close() { g.ctrl.Stop() }

func (g *Grid) pollRefresh(now time.Time) (bool, error) {
	now = now.UTC()
	hour, min := now.Hour(), now.Minute()

	if min != 15 || !isBoundaryHour(hour) {
		return false, nil
	}
	if !g.armedT.IsZero() && now.Sub(g.armedT) < 2*time.Hour {
		return false, nil
	}

	dir := g.f2Dir
	if isF1Boundary(hour) {
		dir = g.f1Dir
	}

	_, g1, _ := g.pair.Snapshot()
	newG1, err := ingestDir(g.dims, g1, dir)
	if err != nil {
		return false, errors.Wrapf(err, "weather: updating grid from %s", dir)
	}

	g.pair.Rotate(newG1, now.Add(phaseDuration))
	g.armedT = now
	obslog.Infof("weather: updated grids (latest from %s)", dir)
	return true, nil
}

type scalarField struct {
	file string
	set  func(*cell, float32)
}

var scalarFields = []scalarField{
	{"ugrd.csv", func(c *cell, v float32) { c.u = v }},
	{"vgrd.csv", func(c *cell, v float32) { c.v = v }},
	{"gust.csv", func(c *cell, v float32) { c.gust = v }},
	{"tmp.csv", func(c *cell, v float32) { c.tempK = v }},
	{"dpt.csv", func(c *cell, v float32) { c.dewK = v }},
	{"pres.csv", func(c *cell, v float32) { c.presPa = v }},
	{"cld.csv", func(c *cell, v float32) { c.cloud = v }},
	{"vis.csv", func(c *cell, v float32) { c.vis = v }},
	{"prate.csv", func(c *cell, v float32) { c.prate = v }},
}

type condField struct {
	file string
	bit  uint8
}

var condFields = []condField{
	{"rain.csv", CondRain},
	{"snow.csv", CondSnow},
	{"icep.csv", CondIcePellets},
	{"frzr.csv", CondFreezingRain},
}

// ingestDir reads every field file present in dir, cloning base (or
// starting from zero if base is nil) and overwriting only the cells named
// in files that are present; a missing field file leaves its cells at
// their prior (or zero) value, per spec.md §6 "missing lines default the
// field to zero".
func ingestDir(dims gridDims, base *snapshot, dir string) (*snapshot, error) {
	var s *snapshot
	if base != nil {
		s = cloneSnapshot(base)
	} else {
		s = emptySnapshot(dims)
	}

	for _, f := range scalarFields {
		if err := ingestScalarFile(dims, s, filepath.Join(dir, f.file), f.set); err != nil {
			return nil, err
		}
	}
	for _, f := range condFields {
		if err := ingestCondFile(dims, s, filepath.Join(dir, f.file), f.bit); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func cellIndex(dims gridDims, lon, lat float64) (int, bool) {
	if lon >= 180.0 {
		lon -= 360.0
	}

	ilon := int(math.Round(lon*dims.scale)) + dims.offsetX
	ilat := int(math.Round(lat*dims.scale)) + dims.offsetY

	if ilat < 0 || ilat >= dims.ny {
		return 0, false
	}
	if ilon == dims.nx {
		ilon = 0
	}
	if ilon < 0 || ilon >= dims.nx {
		return 0, false
	}
	return xyIndex(dims, ilon, ilat), true
}

func ingestScalarFile(dims gridDims, s *snapshot, path string, set func(*cell, float32)) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "opening weather data file %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "parsing weather data file %s", path)
		}

		lon, e1 := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		lat, e2 := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		val, e3 := strconv.ParseFloat(strings.TrimSpace(rec[2]), 64)
		if e1 != nil || e2 != nil || e3 != nil {
			return errors.Errorf("parsing weather data file %s: malformed record", path)
		}

		idx, ok := cellIndex(dims, lon, lat)
		if !ok {
			obslog.Warnf("weather: failed to insert grid point at %f,%f from %s", lon, lat, path)
			continue
		}
		set(&s.cells[idx], float32(val))
	}
	return nil
}

func ingestCondFile(dims gridDims, s *snapshot, path string, bit uint8) error {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return errors.Wrapf(err, "opening weather data file %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 3
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrapf(err, "parsing weather data file %s", path)
		}

		lon, e1 := strconv.ParseFloat(strings.TrimSpace(rec[0]), 64)
		lat, e2 := strconv.ParseFloat(strings.TrimSpace(rec[1]), 64)
		flag, e3 := strconv.Atoi(strings.TrimSpace(rec[2]))
		if e1 != nil || e2 != nil || e3 != nil {
			return errors.Errorf("parsing weather data file %s: malformed record", path)
		}

		idx, ok := cellIndex(dims, lon, lat)
		if !ok {
			continue
		}
		if flag == 1 {
			s.cells[idx].cond |= bit
		} else {
			s.cells[idx].cond &^= bit
		}
	}
	return nil
}

// Get returns the weather sample at pos. When windOnly is true, only Wind
// and GustMS are populated (Cond is always populated). It returns false
// when pos falls outside the grid's latitude coverage.
func (g *Grid) Get(pos geopos.Pos, windOnly bool) (Sample, bool) {
	dims := g.dims

	ilon := int(math.Floor(pos.Lon*dims.scale)) + dims.offsetX
	ilat := int(math.Floor(pos.Lat*dims.scale)) + dims.offsetY

	if ilat < 0 || ilat >= dims.ny {
		return Sample{}, false
	}
	if ilon == dims.nx {
		ilon = 0
	}
	if ilon < 0 || ilon >= dims.nx {
		return Sample{}, false
	}

	// At the north pole the row above ilat doesn't exist; the two north
	// corners are copied from the two south corners of the same cell.
	northRow := ilat + 1
	atPole := ilat == dims.ny-1
	if atPole {
		northRow = ilat
	}

	eastCol := ilon + 1
	if ilon == dims.nx-1 {
		eastCol = 0
	}

	a := xyIndex(dims, ilon, ilat)
	b := xyIndex(dims, eastCol, ilat)
	c := xyIndex(dims, ilon, northRow)
	d := xyIndex(dims, eastCol, northRow)

	g0, g1, phaseTime := g.pair.Snapshot()

	var xFrac float64
	if ilon == 0 && pos.Lon == 180.0 {
		xFrac = 0.0
	} else {
		xFrac = pos.Lon*dims.scale - float64(ilon-dims.offsetX)
	}
	yFrac := pos.Lat*dims.scale - float64(ilat-dims.offsetY)
	if atPole {
		yFrac = 0.0
	}

	tFrac := temporalFraction(phaseTime, time.Now())

	u := blendScalar(g0.cells, g1.cells, a, b, c, d, xFrac, yFrac, tFrac, func(c *cell) float32 { return c.u })
	v := blendScalar(g0.cells, g1.cells, a, b, c, d, xFrac, yFrac, tFrac, func(c *cell) float32 { return c.v })
	gust := blendScalar(g0.cells, g1.cells, a, b, c, d, xFrac, yFrac, tFrac, func(c *cell) float32 { return c.gust })

	// Raw u/v are the vector the wind flows toward; report the bearing it
	// blows from.
	wind := vectorFromComponents(-u, -v)

	sample := Sample{
		Wind:   wind,
		GustMS: math.Max(gust, wind.Mag),
	}

	if !windOnly {
		tempK := blendScalar(g0.cells, g1.cells, a, b, c, d, xFrac, yFrac, tFrac, func(c *cell) float32 { return c.tempK })
		dewK := blendScalar(g0.cells, g1.cells, a, b, c, d, xFrac, yFrac, tFrac, func(c *cell) float32 { return c.dewK })
		presPa := blendScalar(g0.cells, g1.cells, a, b, c, d, xFrac, yFrac, tFrac, func(c *cell) float32 { return c.presPa })
		cloud := blendScalar(g0.cells, g1.cells, a, b, c, d, xFrac, yFrac, tFrac, func(c *cell) float32 { return c.cloud })
		vis := blendScalar(g0.cells, g1.cells, a, b, c, d, xFrac, yFrac, tFrac, func(c *cell) float32 { return c.vis })
		prate := blendScalar(g0.cells, g1.cells, a, b, c, d, xFrac, yFrac, tFrac, func(c *cell) float32 { return c.prate })

		sample.TempC = tempK - 273.15
		sample.DewpointC = dewK - 273.15
		sample.PressureHPa = presPa / 100.0
		sample.CloudPercent = cloud
		sample.VisibilityM = vis
		sample.PrateMMH = prate * 3600.0
	}

	sample.Cond = dominantCond(g0.cells, g1.cells, a, b, c, d, xFrac, yFrac, tFrac)

	return sample, true
}

func blendScalar(c0, c1 []cell, a, b, c, d int, xFrac, yFrac, tFrac float64, field func(*cell) float32) float64 {
	v0 := bilinear(field(&c0[a]), field(&c0[b]), field(&c0[c]), field(&c0[d]), xFrac, yFrac)
	v1 := bilinear(field(&c1[a]), field(&c1[b]), field(&c1[c]), field(&c1[d]), xFrac, yFrac)
	return v0*(1-tFrac) + v1*tFrac
}

func bilinear(a, b, c, d float32, xFrac, yFrac float64) float64 {
	top := float64(a)*(1-xFrac) + float64(b)*xFrac
	bottom := float64(c)*(1-xFrac) + float64(d)*xFrac
	return top*(1-yFrac) + bottom*yFrac
}

// dominantCond picks the condition bitmap of the nearest corner (by
// xFrac/yFrac thresholds at 0.5) in the dominant snapshot (chosen by tFrac
// threshold at 0.5). Condition bits are categorical and never interpolated.
func dominantCond(c0, c1 []cell, a, b, c, d int, xFrac, yFrac, tFrac float64) uint8 {
	cells := c0
	if tFrac >= 0.5 {
		cells = c1
	}

	idx := a
	switch {
	case xFrac >= 0.5 && yFrac >= 0.5:
		idx = d
	case xFrac >= 0.5:
		idx = b
	case yFrac >= 0.5:
		idx = c
	}
	return cells[idx].cond
}

func vectorFromComponents(u, v float64) mathkernel.Vec {
	if math.Abs(v) < mathkernel.Epsilon {
		switch {
		case u < -mathkernel.Epsilon:
			return mathkernel.Vec{Angle: 270.0, Mag: math.Sqrt(u*u + v*v)}
		case u > mathkernel.Epsilon:
			return mathkernel.Vec{Angle: 90.0, Mag: math.Sqrt(u*u + v*v)}
		default:
			return mathkernel.Vec{Angle: 0.0, Mag: math.Sqrt(u*u + v*v)}
		}
	}

	angle := mathkernel.RadToDeg(math.Atan(u / v))
	if v < 0.0 {
		angle += 180.0
	} else if u < 0.0 {
		angle += 360.0
	}
	return mathkernel.Vec{Angle: angle, Mag: math.Sqrt(u*u + v*v)}
}

func temporalFraction(phaseTime, now time.Time) float64 {
	tDiff := phaseTime.Sub(now).Seconds()
	tFrac := 1.0 - tDiff/phaseDuration.Seconds()
	if tFrac < 0.0 {
		return 0.0
	}
	if tFrac > 1.0 {
		return 1.0
	}
	return tFrac
}
