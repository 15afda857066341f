package celestial

import (
	"testing"
	"time"

	"github.com/ls4096/libproteus/geopos"
	"github.com/stretchr/testify/assert"
)

func TestJulianDayForUnixEpoch(t *testing.T) {
	assert.InDelta(t, 2440587.5, JulianDay(time.Unix(0, 0).UTC()), 1e-9)
}

func TestEquatorialForObjectRejectsInvalid(t *testing.T) {
	_, err := EquatorialForObject(2459306.0, Object(-1))
	assert.Error(t, err)

	_, err = EquatorialForObject(2459306.0, ObjMax+1)
	assert.Error(t, err)
}

func TestEquatorialForSunIsWithinDeclinationRange(t *testing.T) {
	ec, err := EquatorialForObject(2459306.0, Sun)
	assert.NoError(t, err)
	assert.GreaterOrEqual(t, ec.RA, 0.0)
	assert.Less(t, ec.RA, 24.0)
	assert.InDelta(t, 0.0, ec.Dec, 24.0)
}

func TestEquatorialForPolarisIsNearCelestialPole(t *testing.T) {
	ec, err := EquatorialForObject(2459306.0, Polaris)
	assert.NoError(t, err)
	assert.Greater(t, ec.Dec, 85.0)
}

func TestEquatorialToHorizontalWithoutRefraction(t *testing.T) {
	ec := Equatorial{RA: 12.0, Dec: 0.0}
	hc := EquatorialToHorizontal(2459306.0, geopos.Pos{Lat: 0, Lon: 0}, ec, false, 1010, 15)
	assert.GreaterOrEqual(t, hc.Az, 0.0)
	assert.Less(t, hc.Az, 360.0)
	assert.GreaterOrEqual(t, hc.Alt, -90.0)
	assert.LessOrEqual(t, hc.Alt, 90.0)
}

func TestRefractionOnlyRaisesAltitude(t *testing.T) {
	ec := Equatorial{RA: 12.0, Dec: 0.0}
	pos := geopos.Pos{Lat: 45, Lon: 0}
	without := EquatorialToHorizontal(2459306.0, pos, ec, false, 1010, 15)
	with := EquatorialToHorizontal(2459306.0, pos, ec, true, 1010, 15)
	if without.Alt > 0 {
		assert.GreaterOrEqual(t, with.Alt, without.Alt)
	}
}
