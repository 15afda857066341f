package ocean

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ls4096/libproteus/geopos"
	"github.com/stretchr/testify/assert"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func uniformCSV(temp, u, v, salinity float64) string {
	var b strings.Builder
	for ilat := 0; ilat < gridY; ilat++ {
		lat := (float64(ilat) - offsetY) / scale
		for ilon := 0; ilon < gridX; ilon++ {
			lon := (float64(ilon) - offsetX) / scale
			if lon >= 180 {
				continue
			}
			fmt.Fprintf(&b, "%f,%f,%f,%f,%f,%f\n", lon, lat, temp, u, v, salinity)
		}
	}
	return b.String()
}

func TestInitAndGetUniformGrid(t *testing.T) {
	dir := t.TempDir()
	data := uniformCSV(15.0, 0.0, 1.0, 35.0)
	f1 := writeCSV(t, dir, "f1.csv", data)
	f2 := writeCSV(t, dir, "f2.csv", data)

	g, err := Init(f1, f2)
	assert.NoError(t, err)
	defer g.Close()

	s, ok := g.Get(geopos.Pos{Lat: 40, Lon: -60})
	assert.True(t, ok)
	assert.InDelta(t, 15.0, s.SurfaceTempC, 0.5)
	assert.InDelta(t, 35.0, s.Salinity, 0.5)
	assert.InDelta(t, 0.0, s.IcePercent, 1e-9)
	assert.InDelta(t, 0.0, s.Current.Angle, 1.0)
}

func TestComputeIceZeroAboveFreezing(t *testing.T) {
	assert.Equal(t, 0.0, computeIce(1.0, 35.0))
}

func TestComputeIceClampsToHundred(t *testing.T) {
	ice := computeIce(-10.0, 1.0)
	assert.Equal(t, 100.0, ice)
}

func TestVectorFromComponentsNearZeroV(t *testing.T) {
	v := vectorFromComponents(1.0, 0.0)
	assert.InDelta(t, 90.0, v.Angle, 1e-6)

	v = vectorFromComponents(-1.0, 0.0)
	assert.InDelta(t, 270.0, v.Angle, 1e-6)
}

func TestInitRejectsEmptyPaths(t *testing.T) {
	_, err := Init("x", "")
	assert.Error(t, err)
}

func TestTemporalFractionClamps(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 0.0, temporalFraction(now.Add(phaseDuration), now))
	assert.Equal(t, 1.0, temporalFraction(now.Add(-time.Hour), now))
}
