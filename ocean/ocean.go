// Package ocean provides a surface current/temperature/salinity grid with
// derived sea-ice concentration, sampled by position and time at 0.4-degree
// spatial resolution and blended between two forecast snapshots 12 hours
// apart.
package ocean

import (
	"encoding/csv"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/ls4096/libproteus/geopos"
	"github.com/ls4096/libproteus/internal/gridpair"
	"github.com/ls4096/libproteus/internal/obslog"
	"github.com/ls4096/libproteus/internal/refresh"
	"github.com/ls4096/libproteus/mathkernel"
	"github.com/pkg/errors"
)

const (
	gridX = 900
	gridY = 397
	scale = 2.5

	offsetX = 450
	offsetY = 196

	phaseDuration = 11*time.Hour + 58*time.Minute
)

// Sample is an ocean observation at a point. Current.Angle is the bearing
// the current flows toward, in degrees; Current.Mag is in metres/second.
type Sample struct {
	Current      mathkernel.Vec
	SurfaceTempC float64
	Salinity     float64
	IcePercent   float64
}

type point struct {
	u, v, temp, salinity float32
	valid                bool
}

type snapshot struct {
	pts []point
}

func xyIndex(x, y int) int { return y*gridX + x }

func emptySnapshot() *snapshot {
	return &snapshot{pts: make([]point, gridX*gridY)}
}

func cloneSnapshot(base *snapshot) *snapshot {
	return &snapshot{pts: append([]point(nil), base.pts...)}
}

// Grid is a live ocean dataset with a background refresh goroutine.
type Grid struct {
	pair   *gridpair.Pair[*snapshot]
	ctrl   *refresh.Controller
	f1Path string
	f2Path string
	armed  bool
}

// Init loads the two forecast snapshots from f1File/f2File (assumed 12 hours
// apart) and starts the background refresh goroutine.
func Init(f1File, f2File string) (*Grid, error) {
	if f1File == "" || f2File == "" {
		return nil, errors.New("ocean: both forecast file paths are required")
	}

	now := time.Now().UTC()
	hour, min := now.Hour(), now.Minute()

	g0, err := ingest(nil, f1File)
	if err != nil {
		return nil, errors.Wrap(err, "ocean: loading initial grid 0")
	}

	var g1 *snapshot
	var phaseTime time.Time

	if hour >= 17 || hour < 6 {
		g1, err = ingest(nil, f1File)
		if err != nil {
			return nil, errors.Wrap(err, "ocean: loading initial grid 1")
		}
		phaseTime = now
	} else {
		g1, err = ingest(nil, f2File)
		if err != nil {
			return nil, errors.Wrap(err, "ocean: loading initial grid 1")
		}
		phaseTime = now.Add(-time.Duration(hour)*time.Hour - time.Duration(min)*time.Minute + 6*time.Hour + phaseDuration)
	}

	obslog.Infof("ocean: grid phase time %s (%s from now)", phaseTime, phaseTime.Sub(now))

	g := &Grid{
		pair:   gridpair.New(g0, g1, phaseTime),
		f1Path: f1File,
		f2Path: f2File,
	}
	g.ctrl = refresh.Start("ocean", g.pollRefresh)
	g.ctrl.MarkInstalled(now)

	return g, nil
}

// Close stops the background refresh goroutine.
func (g *Grid) Close() { g.ctrl.Stop() }

func (g *Grid) pollRefresh(now time.Time) (bool, error) {
	hour := now.UTC().Hour()

	if hour == 17 || hour == 5 {
		g.armed = true
		return false, nil
	}
	if !g.armed || (hour != 18 && hour != 6) {
		return false, nil
	}

	path := g.f2Path
	if hour == 18 {
		path = g.f1Path
	}

	_, g1, _ := g.pair.Snapshot()
	newG1, err := ingest(g1, path)
	if err != nil {
		return false, errors.Wrapf(err, "ocean: updating grid from %s", path)
	}

	g.pair.Rotate(newG1, now.Add(phaseDuration))
	g.armed = false
	obslog.Infof("ocean: updated grids (latest from %s)", path)
	return true, nil
}

func ingest(base *snapshot, path string) (*snapshot, error) {
	var s *snapshot
	if base != nil {
		s = cloneSnapshot(base)
	} else {
		s = emptySnapshot()
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "opening ocean data file")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = 6
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "parsing ocean data file")
		}

		vals := make([]float64, 6)
		for i, field := range rec {
			v, perr := strconv.ParseFloat(field, 64)
			if perr != nil {
				return nil, errors.New("parsing ocean data file: malformed record")
			}
			vals[i] = v
		}

		insertPoint(s, vals[0], vals[1], vals[2], vals[3], vals[4], vals[5])
	}

	return s, nil
}

// insertPoint's field order matches the ingest record: lon, lat, temp, u, v, salinity.
func insertPoint(s *snapshot, lon, lat, temp, u, v, salinity float64) {
	if lon >= 180.0 {
		lon -= 360.0
	}

	ilon := int(math.Round(lon*scale)) + offsetX
	ilat := int(math.Round(lat*scale)) + offsetY

	if ilat < 0 || ilat >= gridY {
		obslog.Warnf("ocean: failed to insert grid point at %f,%f (%d,%d)", lon, lat, ilon, ilat)
		return
	}
	if ilon == gridX {
		ilon = 0
	}

	s.pts[xyIndex(ilon, ilat)] = point{
		u: float32(u), v: float32(v), temp: float32(temp), salinity: float32(salinity), valid: true,
	}
}

// Get returns the ocean sample at pos, if available.
func (g *Grid) Get(pos geopos.Pos) (Sample, bool) {
	ilon := int(math.Floor(pos.Lon*scale)) + offsetX
	ilat := int(math.Floor(pos.Lat*scale)) + offsetY

	if ilat < 0 || ilat >= gridY-1 {
		return Sample{}, false
	}
	if ilon == gridX {
		ilon = 0
	}

	g0, g1, phaseTime := g.pair.Snapshot()

	a, b, c, d := xyIndex(ilon, ilat), xyIndex(ilon+1, ilat), xyIndex(ilon, ilat+1), xyIndex(ilon+1, ilat+1)
	if ilon == gridX-1 {
		b = xyIndex(0, ilat)
		d = xyIndex(0, ilat+1)
	}

	p0, ok0 := blendCorners(g0.pts, a, b, c, d)
	if !ok0 {
		return Sample{}, false
	}
	p1, ok1 := blendCorners(g1.pts, a, b, c, d)
	if !ok1 {
		return Sample{}, false
	}

	var xFrac float64
	if ilon == 0 && pos.Lon == 180.0 {
		xFrac = 0.0
	} else {
		xFrac = pos.Lon*scale - float64(ilon-offsetX)
	}
	yFrac := pos.Lat*scale - float64(ilat-offsetY)

	u0 := bilinear(p0.a.u, p0.b.u, p0.c.u, p0.d.u, xFrac, yFrac)
	v0 := bilinear(p0.a.v, p0.b.v, p0.c.v, p0.d.v, xFrac, yFrac)
	u1 := bilinear(p1.a.u, p1.b.u, p1.c.u, p1.d.u, xFrac, yFrac)
	v1 := bilinear(p1.a.v, p1.b.v, p1.c.v, p1.d.v, xFrac, yFrac)

	tFrac := temporalFraction(phaseTime, time.Now())

	u := u0*(1-tFrac) + u1*tFrac
	v := v0*(1-tFrac) + v1*tFrac

	s := Sample{Current: vectorFromComponents(u, v)}

	temp0 := bilinear(p0.a.temp, p0.b.temp, p0.c.temp, p0.d.temp, xFrac, yFrac)
	temp1 := bilinear(p1.a.temp, p1.b.temp, p1.c.temp, p1.d.temp, xFrac, yFrac)
	s.SurfaceTempC = temp0*(1-tFrac) + temp1*tFrac

	sal0 := bilinear(p0.a.salinity, p0.b.salinity, p0.c.salinity, p0.d.salinity, xFrac, yFrac)
	sal1 := bilinear(p1.a.salinity, p1.b.salinity, p1.c.salinity, p1.d.salinity, xFrac, yFrac)
	s.Salinity = sal0*(1-tFrac) + sal1*tFrac

	s.IcePercent = computeIce(s.SurfaceTempC, s.Salinity)

	return s, true
}

func computeIce(surfaceTempC, salinity float64) float64 {
	if surfaceTempC > 0.0 {
		return 0.0
	}
	ice := (-7500.0*surfaceTempC)/salinity - 300.0
	if ice > 100.0 {
		return 100.0
	}
	if ice < 0.0 {
		return 0.0
	}
	return ice
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

type quad struct{ a, b, c, d point }

// blendCorners reads the four corner points, substituting the mean of the
// valid corners' fields for any invalid (whole-point) ones.
func blendCorners(pts []point, a, b, c, d int) (quad, bool) {
	pa, pb, pc, pd := pts[a], pts[b], pts[c], pts[d]

	var mask uint8
	if pa.valid {
		mask |= 0x01
	}
	if pb.valid {
		mask |= 0x02
	}
	if pc.valid {
		mask |= 0x04
	}
	if pd.valid {
		mask |= 0x08
	}
	if mask == 0 {
		return quad{}, false
	}
	if mask == 0x0f {
		return quad{pa, pb, pc, pd}, true
	}

	var avg point
	var count int
	add := func(p point) {
		avg.u += p.u
		avg.v += p.v
		avg.temp += p.temp
		avg.salinity += p.salinity
		count++
	}
	if mask&0x01 != 0 {
		add(pa)
	} else {
		pa = point{}
	}
	if mask&0x02 != 0 {
		add(pb)
	} else {
		pb = point{}
	}
	if mask&0x04 != 0 {
		add(pc)
	} else {
		pc = point{}
	}
	if mask&0x08 != 0 {
		add(pd)
	} else {
		pd = point{}
	}
	avg.u /= float32(count)
	avg.v /= float32(count)
	avg.temp /= float32(count)
	avg.salinity /= float32(count)

	if mask&0x01 == 0 {
		pa = avg
	}
	if mask&0x02 == 0 {
		pb = avg
	}
	if mask&0x04 == 0 {
		pc = avg
	}
	if mask&0x08 == 0 {
		pd = avg
	}
	return quad{pa, pb, pc, pd}, true
}

func bilinear(a, b, c, d float32, xFrac, yFrac float64) float64 {
	top := float64(a)*(1-xFrac) + float64(b)*xFrac
	bottom := float64(c)*(1-xFrac) + float64(d)*xFrac
	return top*(1-yFrac) + bottom*yFrac
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
