// Package wave provides a significant-wave-height grid sampled by position
// and time, blended bilinearly in space and linearly between two forecast
// snapshots 12 hours apart.
package wave

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
	"github.com/pkg/errors"
)

const (
	gridX = 360
	gridY = 181

	phaseDuration = 11*time.Hour + 58*time.Minute
)

// Sample is a wave observation at a point.
type Sample struct {
	HeightM float64
}

type snapshot struct {
	height []float32 // index = ilat*gridX+ilon; negative means no data
}

func xyIndex(x, y int) int { return y*gridX + x }

func emptySnapshot() *snapshot {
	s := &snapshot{height: make([]float32, gridX*gridY)}
	for i := range s.height {
		s.height[i] = -1
	}
	return s
}

func cloneSnapshot(base *snapshot) *snapshot {
	s := &snapshot{height: append([]float32(nil), base.height...)}
	return s
}

// Grid is a live wave dataset with a background refresh goroutine.
type Grid struct {
	pair   *gridpair.Pair[*snapshot]
	ctrl   *refresh.Controller
	f1Path string
	f2Path string
	armed  bool
}

// Init loads the two forecast snapshots from f1File/f2File (assumed 12 hours
// apart) and starts the background refresh goroutine that rotates them in
// at 06Z/18Z.
func Init(f1File, f2File string) (*Grid, error) {
	if f1File == "" || f2File == "" {
		return nil, errors.New("wave: both forecast file paths are required")
	}

	now := time.Now().UTC()
	hour, min := now.Hour(), now.Minute()

	g0, err := ingest(nil, f1File)
	if err != nil {
		return nil, errors.Wrap(err, "wave: loading initial grid 0")
	}

	var g1 *snapshot
	var phaseTime time.Time

	if hour >= 17 || hour < 6 {
		g1, err = ingest(nil, f1File)
		if err != nil {
			return nil, errors.Wrap(err, "wave: loading initial grid 1")
		}
		phaseTime = now
	} else {
		g1, err = ingest(nil, f2File)
		if err != nil {
			return nil, errors.Wrap(err, "wave: loading initial grid 1")
		}
		phaseTime = now.Add(-time.Duration(hour)*time.Hour - time.Duration(min)*time.Minute + 6*time.Hour + phaseDuration)
	}

	obslog.Infof("wave: grid phase time %s (%s from now)", phaseTime, phaseTime.Sub(now))

	g := &Grid{
		pair:   gridpair.New(g0, g1, phaseTime),
		f1Path: f1File,
		f2Path: f2File,
	}
	g.ctrl = refresh.Start("wave", g.pollRefresh)
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
		return false, errors.Wrapf(err, "wave: updating grid from %s", path)
	}

	g.pair.Rotate(newG1, now.Add(phaseDuration))
	g.armed = false
	obslog.Infof("wave: updated grids (latest from %s)", path)
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
		return nil, errors.Wrap(err, "opening wave data file")
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
			return nil, errors.Wrap(err, "parsing wave data file")
		}

		lon, err1 := strconv.ParseFloat(rec[0], 64)
		lat, err2 := strconv.ParseFloat(rec[1], 64)
		h, err3 := strconv.ParseFloat(rec[2], 64)
		if err1 != nil || err2 != nil || err3 != nil {
			return nil, errors.New("parsing wave data file: malformed record")
		}

		insertPoint(s, lon, lat, float32(h))
	}

	return s, nil
}

func insertPoint(s *snapshot, lon, lat float64, h float32) {
	if lon >= 180.0 {
		lon -= 360.0
	}

	ilon := int(math.Round(lon)) + 180
	ilat := int(math.Round(lat)) + 90

	if ilat < 0 || ilat >= gridY {
		obslog.Warnf("wave: failed to insert grid point at %f,%f (%d,%d)", lon, lat, ilon, ilat)
		return
	}
	if ilon == gridX {
		ilon = 0
	}

	s.height[xyIndex(ilon, ilat)] = h
}

// Get returns the wave sample at pos, if available. It returns false when
// the latitude is 90 or more, or below -90 (no grid row above the
// position), or when all four surrounding corners lack data in either
// snapshot.
func (g *Grid) Get(pos geopos.Pos) (Sample, bool) {
	ilon := int(math.Floor(pos.Lon)) + 180
	ilat := int(math.Floor(pos.Lat)) + 90

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

	h0, ok0 := blendCorners(g0.height, a, b, c, d)
	if !ok0 {
		return Sample{}, false
	}
	h1, ok1 := blendCorners(g1.height, a, b, c, d)
	if !ok1 {
		return Sample{}, false
	}

	var xFrac float64
	if ilon == 0 && pos.Lon == 180.0 {
		xFrac = 0.0
	} else {
		xFrac = pos.Lon - float64(ilon-180)
	}
	yFrac := pos.Lat - float64(ilat-90)

	height0 := bilinear(h0.a, h0.b, h0.c, h0.d, xFrac, yFrac)
	height1 := bilinear(h1.a, h1.b, h1.c, h1.d, xFrac, yFrac)

	tFrac := temporalFraction(phaseTime, time.Now())

	return Sample{HeightM: height0*(1-tFrac) + height1*tFrac}, true
}

type corners struct{ a, b, c, d float64 }

// blendCorners reads the four corner values at indices a,b,c,d from grid,
// substituting the mean of the valid corners for any invalid (negative)
// ones. It reports false if all four corners are invalid.
func blendCorners(grid []float32, a, b, c, d int) (corners, bool) {
	va, vb, vc, vd := grid[a], grid[b], grid[c], grid[d]

	var mask uint8
	if va >= 0 {
		mask |= 0x01
	}
	if vb >= 0 {
		mask |= 0x02
	}
	if vc >= 0 {
		mask |= 0x04
	}
	if vd >= 0 {
		mask |= 0x08
	}
	if mask == 0 {
		return corners{}, false
	}

	if mask == 0x0f {
		return corners{float64(va), float64(vb), float64(vc), float64(vd)}, true
	}

	var sum float64
	var count int
	if mask&0x01 != 0 {
		sum += float64(va)
		count++
	}
	if mask&0x02 != 0 {
		sum += float64(vb)
		count++
	}
	if mask&0x04 != 0 {
		sum += float64(vc)
		count++
	}
	if mask&0x08 != 0 {
		sum += float64(vd)
		count++
	}
	avg := sum / float64(count)

	out := corners{float64(va), float64(vb), float64(vc), float64(vd)}
	if mask&0x01 == 0 {
		out.a = avg
	}
	if mask&0x02 == 0 {
		out.b = avg
	}
	if mask&0x04 == 0 {
		out.c = avg
	}
	if mask&0x08 == 0 {
		out.d = avg
	}
	return out, true
}

func bilinear(a, b, c, d, xFrac, yFrac float64) float64 {
	top := a*(1-xFrac) + b*xFrac
	bottom := c*(1-xFrac) + d*xFrac
	return top*(1-yFrac) + bottom*yFrac
}

// temporalFraction returns the clamped [0,1] blend weight toward the G1
// snapshot given the current phase time and now.
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
