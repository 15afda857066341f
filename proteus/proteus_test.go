package proteus

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ls4096/libproteus/geopos"
	"github.com/stretchr/testify/assert"
)

func writeCSV(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	assert.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func uniformWaveCSV() string {
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

func TestInitOnlyConstructsRequestedSubsystems(t *testing.T) {
	dir := t.TempDir()
	f1 := writeCSV(t, dir, "f1.csv", uniformWaveCSV())
	f2 := writeCSV(t, dir, "f2.csv", uniformWaveCSV())

	env, err := Init(Config{WaveF1: f1, WaveF2: f2})
	assert.NoError(t, err)
	defer env.Reset()

	assert.NotNil(t, env.Wave)
	assert.Nil(t, env.Ocean)
	assert.Nil(t, env.Weather)
	assert.Nil(t, env.GeoInfo)
	assert.Nil(t, env.Mag)

	s, ok := env.Wave.Get(geopos.Pos{Lat: 10, Lon: 10})
	assert.True(t, ok)
	assert.InDelta(t, 1.50, s.HeightM, 1e-3)
}

func TestInitWithNoSubsystemsReturnsEmptyEnv(t *testing.T) {
	env, err := Init(Config{})
	assert.NoError(t, err)
	defer env.Reset()

	assert.Nil(t, env.Wave)
	assert.Nil(t, env.Ocean)
	assert.Nil(t, env.Weather)
}

func TestResetIsIdempotent(t *testing.T) {
	env, err := Init(Config{})
	assert.NoError(t, err)
	env.Reset()
	env.Reset()
}

func TestInitFailureTearsDownPartialConstruction(t *testing.T) {
	dir := t.TempDir()
	f1 := writeCSV(t, dir, "f1.csv", uniformWaveCSV())
	f2 := writeCSV(t, dir, "f2.csv", uniformWaveCSV())

	_, err := Init(Config{WaveF1: f1, WaveF2: f2, OceanF1: "", OceanF2: "does-not-exist.csv"})
	assert.Error(t, err)
}
