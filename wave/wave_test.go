package wave

import (
	"os"
	"path/filepath"
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

func uniformCSV() string {
	var b []byte
	for lat := -90; lat <= 90; lat++ {
		for lon := -180; lon <= 179; lon++ {
			b = append(b, []byte(itoa(lon)+","+itoa(lat)+",1.50\n")...)
		}
	}
	return string(b)
}

func itoa(v int) string {
	neg := v < 0
	if neg {
		v = -v
	}
	s := ""
	if v == 0 {
		s = "0"
	}
	for v > 0 {
		s = string(rune('0'+v%10)) + s
		v /= 10
	}
	if neg {
		s = "-" + s
	}
	return s
}

func TestInitAndGetUniformGrid(t *testing.T) {
	dir := t.TempDir()
	f1 := writeCSV(t, dir, "f1.csv", uniformCSV())
	f2 := writeCSV(t, dir, "f2.csv", uniformCSV())

	g, err := Init(f1, f2)
	assert.NoError(t, err)
	defer g.Close()

	s, ok := g.Get(geopos.Pos{Lat: 40, Lon: -60})
	assert.True(t, ok)
	assert.InDelta(t, 1.50, s.HeightM, 1e-3)
}

func TestGetReturnsFalseAtNorthPole(t *testing.T) {
	dir := t.TempDir()
	f1 := writeCSV(t, dir, "f1.csv", uniformCSV())
	f2 := writeCSV(t, dir, "f2.csv", uniformCSV())

	g, err := Init(f1, f2)
	assert.NoError(t, err)
	defer g.Close()

	_, ok := g.Get(geopos.Pos{Lat: 90, Lon: 0})
	assert.False(t, ok)
}

func TestInitRejectsEmptyPaths(t *testing.T) {
	_, err := Init("", "x")
	assert.Error(t, err)
}

func TestBlendCornersAveragesInvalidOnes(t *testing.T) {
	grid := []float32{1.0, -1.0, 2.0, -1.0}
	c, ok := blendCorners(grid, 0, 1, 2, 3)
	assert.True(t, ok)
	assert.InDelta(t, 1.0, c.a, 1e-9)
	assert.InDelta(t, 1.5, c.b, 1e-9) // mean of valid (1.0, 2.0)
	assert.InDelta(t, 2.0, c.c, 1e-9)
	assert.InDelta(t, 1.5, c.d, 1e-9)
}

func TestBlendCornersAllInvalidReturnsFalse(t *testing.T) {
	grid := []float32{-1, -1, -1, -1}
	_, ok := blendCorners(grid, 0, 1, 2, 3)
	assert.False(t, ok)
}

func TestTemporalFractionClamps(t *testing.T) {
	now := time.Now()
	assert.Equal(t, 0.0, temporalFraction(now.Add(phaseDuration), now))
	assert.Equal(t, 1.0, temporalFraction(now.Add(-time.Hour), now))
}
