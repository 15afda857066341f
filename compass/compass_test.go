package compass

import (
	"strings"
	"testing"
	"time"

	"github.com/ls4096/libproteus/geopos"
	"github.com/stretchr/testify/assert"
)

func TestDiffNormalizesIntoSignedRange(t *testing.T) {
	assert.InDelta(t, -10.0, Diff(350, 340), 1e-9)
	assert.InDelta(t, 180.0, Diff(0, 180), 1e-9)
}

func gridFixture() string {
	var b strings.Builder
	for lat := -90; lat <= 90; lat++ {
		for lon := -180; lon <= 179; lon++ {
			for year := 2020; year < 2026; year++ {
				b.WriteString(itoa(lat))
				b.WriteByte(',')
				b.WriteString(itoa(lon))
				b.WriteByte(',')
				b.WriteString(itoa(year))
				b.WriteString(",5.0\n")
			}
		}
	}
	return b.String()
}

func itoa(v int) string {
	if v < 0 {
		return "-" + itoaUnsigned(-v)
	}
	return itoaUnsigned(v)
}

func itoaUnsigned(v int) string {
	if v == 0 {
		return "0"
	}
	var digits []byte
	for v > 0 {
		digits = append([]byte{byte('0' + v%10)}, digits...)
		v /= 10
	}
	return string(digits)
}

func TestLoadAndMagdecUniformGrid(t *testing.T) {
	g, err := Load(strings.NewReader(gridFixture()))
	assert.NoError(t, err)

	dec := g.Magdec(geopos.Pos{Lat: 55, Lon: -100}, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.InDelta(t, 5.0, dec, 1e-3)
}

func TestMagdecReturnsZeroAtNorthPole(t *testing.T) {
	g, err := Load(strings.NewReader(gridFixture()))
	assert.NoError(t, err)

	dec := g.Magdec(geopos.Pos{Lat: 90, Lon: 0}, time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.Equal(t, 0.0, dec)
}

func TestMagdecClampsExtrapolationAtYearEndpoints(t *testing.T) {
	g, err := Load(strings.NewReader(gridFixture()))
	assert.NoError(t, err)

	early := g.Magdec(geopos.Pos{Lat: 10, Lon: 10}, time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC))
	late := g.Magdec(geopos.Pos{Lat: 10, Lon: 10}, time.Date(2030, 1, 1, 0, 0, 0, 0, time.UTC))
	assert.InDelta(t, 5.0, early, 1e-3)
	assert.InDelta(t, 5.0, late, 1e-3)
}

func TestLoadRejectsEmptyData(t *testing.T) {
	_, err := Load(strings.NewReader(""))
	assert.Error(t, err)
}

func TestLoadSkipsMalformedRecords(t *testing.T) {
	data := gridFixture() + "garbage,line,here\n"
	g, err := Load(strings.NewReader(data))
	assert.NoError(t, err)
	assert.NotNil(t, g)
}
