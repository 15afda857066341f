package geopos

import (
	"testing"

	"github.com/ls4096/libproteus/mathkernel"
	"github.com/stretchr/testify/assert"
)

func TestAdvanceDueNorth(t *testing.T) {
	p := Advance(Pos{Lat: 0, Lon: 0}, mathkernel.Vec{Angle: 0, Mag: 110574})
	assert.InDelta(t, 1.0, p.Lat, 0.01)
	assert.InDelta(t, 0.0, p.Lon, 1e-9)
}

func TestAdvanceClampsLatitudeAtPole(t *testing.T) {
	p := Advance(Pos{Lat: 89.9, Lon: 10}, mathkernel.Vec{Angle: 0, Mag: 500000})
	assert.Equal(t, 90.0, p.Lat)
}

func TestAdvanceWrapsLongitudeAcrossAntimeridian(t *testing.T) {
	p := Advance(Pos{Lat: 0, Lon: 179.9}, mathkernel.Vec{Angle: 90, Mag: 50000})
	assert.Less(t, p.Lon, 0.0)
}

func TestAdvanceWrapsLongitudeWestward(t *testing.T) {
	p := Advance(Pos{Lat: 0, Lon: -179.9}, mathkernel.Vec{Angle: 270, Mag: 50000})
	assert.Greater(t, p.Lon, 0.0)
}
