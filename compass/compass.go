// Package compass provides bearing arithmetic and a magnetic declination
// grid: a 360x181 one-degree table with a yearly time series, bilinear in
// space and linear in time with clamped extrapolation past the endpoints.
package compass

import (
	"bufio"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/ls4096/libproteus/geopos"
	"github.com/ls4096/libproteus/internal/obslog"
	"github.com/ls4096/libproteus/mathkernel"
	"github.com/pkg/errors"
)

const (
	gridX = 360
	gridY = 181

	dataYearStart  = 2020
	dataYears      = 6
	dataSecAtStart = 1577836800
	dataSecInYear  = 31557600
)

// Diff returns the signed difference b-a between two compass bearings,
// normalized into (-180, 180].
func Diff(a, b float64) float64 {
	return mathkernel.Diff(a, b)
}

type gridPoint struct {
	dec [dataYears]float32
}

// Grid is a magnetic declination dataset. The zero value is not usable;
// construct one with Load.
type Grid struct {
	mu   sync.RWMutex
	pts  []gridPoint
}

// Load reads a magnetic declination dataset from r. Each CSV record is
// "lat,lon,year,declination"; malformed records are skipped and logged
// rather than aborting the whole load.
func Load(r io.Reader) (*Grid, error) {
	pts := make([]gridPoint, gridX*gridY)

	scanner := bufio.NewScanner(r)
	n := 0
	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}
		lat, lon, year, dec, err := parseRecord(line)
		if err != nil {
			obslog.Warnf("compass: skipping malformed mag grid record %q: %v", line, err)
			continue
		}
		insert(pts, lon, lat, year, dec)
		n++
	}
	if err := scanner.Err(); err != nil {
		return nil, errors.Wrap(err, "compass: reading mag grid data")
	}
	if n == 0 {
		return nil, errors.New("compass: mag grid data was empty")
	}

	obslog.Infof("compass: initialized mag grid (%d records)", n)
	return &Grid{pts: pts}, nil
}

func parseRecord(line string) (lat, lon float64, year int, dec float64, err error) {
	fields := strings.Split(line, ",")
	if len(fields) != 4 {
		err = errors.Errorf("expected 4 fields, got %d", len(fields))
		return
	}
	if lat, err = strconv.ParseFloat(strings.TrimSpace(fields[0]), 64); err != nil {
		return
	}
	if lon, err = strconv.ParseFloat(strings.TrimSpace(fields[1]), 64); err != nil {
		return
	}
	var yr int64
	if yr, err = strconv.ParseInt(strings.TrimSpace(fields[2]), 10, 32); err != nil {
		return
	}
	year = int(yr)
	if dec, err = strconv.ParseFloat(strings.TrimSpace(fields[3]), 64); err != nil {
		return
	}
	return
}

func insert(pts []gridPoint, lon, lat float64, year int, dec float64) {
	year -= dataYearStart
	if year < 0 || year >= dataYears {
		return
	}

	if lon >= 180.0 {
		lon -= 360.0
	}

	ilon := int(math.Round(lon)) + 180
	ilat := int(math.Round(lat)) + 90

	if ilat < 0 || ilat >= gridY {
		obslog.Warnf("compass: failed to insert mag grid point at %f,%f (%d,%d)", lon, lat, ilon, ilat)
		return
	}
	if ilon == gridX {
		ilon = 0
	}

	pts[xyIndex(ilon, ilat)].dec[year] = float32(dec)
}

func xyIndex(x, y int) int {
	return y*gridX + x
}

// Magdec returns the magnetic declination, in degrees, at pos and time t.
// Returns 0 for latitudes of 90 or more, or below -90, where the position
// has no grid row above it.
func (g *Grid) Magdec(pos geopos.Pos, t time.Time) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()

	ilon := int(math.Floor(pos.Lon)) + 180
	ilat := int(math.Floor(pos.Lat)) + 90

	if ilat < 0 || ilat >= gridY-1 {
		return 0.0
	}
	if ilon == gridX {
		ilon = 0
	}

	a := xyIndex(ilon, ilat)
	b := xyIndex(ilon+1, ilat)
	c := xyIndex(ilon, ilat+1)
	d := xyIndex(ilon+1, ilat+1)

	if ilon == gridX-1 {
		a = xyIndex(ilon, ilat)
		b = xyIndex(0, ilat)
		c = xyIndex(ilon, ilat+1)
		d = xyIndex(0, ilat+1)
	}

	var xFrac float64
	if ilon == 0 && pos.Lon == 180.0 {
		xFrac = 0.0
	} else {
		xFrac = pos.Lon - float64(ilon-180)
	}
	yFrac := pos.Lat - float64(ilat-90)

	var t0, t1 int
	var tFrac float64

	y := yearOffsetForTime(t)
	switch {
	case y <= 0.0:
		t0, t1, tFrac = 0, 0, 0.0
	case y >= float64(dataYears-1):
		t0, t1, tFrac = dataYears-1, dataYears-1, 0.0
	default:
		t0 = int(math.Floor(y))
		t1 = t0 + 1
		tFrac = y - math.Floor(y)
	}

	pA, pB, pC, pD := &g.pts[a], &g.pts[b], &g.pts[c], &g.pts[d]

	dec00 := float64(pA.dec[t0])*(1-xFrac) + float64(pB.dec[t0])*xFrac
	dec10 := float64(pC.dec[t0])*(1-xFrac) + float64(pD.dec[t0])*xFrac
	dec0 := dec00*(1-yFrac) + dec10*yFrac

	dec01 := float64(pA.dec[t1])*(1-xFrac) + float64(pB.dec[t1])*xFrac
	dec11 := float64(pC.dec[t1])*(1-xFrac) + float64(pD.dec[t1])*xFrac
	dec1 := dec01*(1-yFrac) + dec11*yFrac

	dec := dec0*(1-tFrac) + dec1*tFrac

	for dec <= -180.0 {
		dec += 360.0
	}
	for dec > 180.0 {
		dec -= 360.0
	}

	return dec
}

func yearOffsetForTime(t time.Time) float64 {
	return float64(t.Unix()-dataSecAtStart) / float64(dataSecInYear)
}
