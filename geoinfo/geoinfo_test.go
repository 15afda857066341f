package geoinfo

import (
	"bytes"
	"compress/gzip"
	"os"
	"path/filepath"
	"testing"

	"github.com/ls4096/libproteus/geopos"
	"github.com/stretchr/testify/assert"
)

func writeTile(t *testing.T, dir, name string, allLand bool) {
	t.Helper()
	grid := make([]byte, sqDegGridSize)
	if allLand {
		for i := range grid {
			grid[i] = 0xFF
		}
	}
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	_, err := gz.Write(grid)
	assert.NoError(t, err)
	assert.NoError(t, gz.Close())
	assert.NoError(t, os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644))
}

func TestIsWaterMissingTileDefaultsToWaterAboveMinus79(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	assert.NoError(t, err)
	defer c.Close()

	assert.True(t, c.IsWater(geopos.Pos{Lat: 10, Lon: 10}))
}

func TestIsWaterMissingTileBelowMinus79IsLand(t *testing.T) {
	dir := t.TempDir()
	c, err := Open(dir)
	assert.NoError(t, err)
	defer c.Close()

	assert.False(t, c.IsWater(geopos.Pos{Lat: -85, Lon: 10}))
}

func TestIsWaterReadsLoadedTile(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "N45W073.gz", true)

	c, err := Open(dir)
	assert.NoError(t, err)
	defer c.Close()

	assert.False(t, c.IsWater(geopos.Pos{Lat: 45.5, Lon: -72.5}))
}

func TestIsWaterAllZeroTileIsWater(t *testing.T) {
	dir := t.TempDir()
	writeTile(t, dir, "N45W073.gz", false)

	c, err := Open(dir)
	assert.NoError(t, err)
	defer c.Close()

	assert.True(t, c.IsWater(geopos.Pos{Lat: 45.5, Lon: -72.5}))
}

func TestTileFileNameFormatsQuadrants(t *testing.T) {
	assert.Equal(t, "N45W073.gz", tileFileName(-73, 45))
	assert.Equal(t, "S01E000.gz", tileFileName(0, -1))
}

func TestOpenRejectsEmptyDataDir(t *testing.T) {
	_, err := Open("")
	assert.Error(t, err)
}
