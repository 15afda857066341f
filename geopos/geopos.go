// Package geopos provides the geographic position type shared by every
// environmental grid package, along with dead-reckoning advancement along a
// course/speed vector.
package geopos

import (
	"math"

	"github.com/ls4096/libproteus/mathkernel"
)

// Pos is a geographic position in decimal degrees. Lat is negative south of
// the equator; Lon is negative west of the prime meridian.
type Pos struct {
	Lat float64
	Lon float64
}

// Advance moves p along vector v (a bearing/speed-or-distance pair, per
// mathkernel.Vec) and returns the resulting position. Latitude is clamped to
// [-90, 90]; longitude is renormalized into [-180, 180] by a single +/-360
// wrap.
func Advance(p Pos, v mathkernel.Vec) Pos {
	vx := v.Mag * sinDeg(v.Angle)
	vy := v.Mag * cosDeg(v.Angle)

	lat := p.Lat
	lat += mathkernel.MToDLat(vy, p.Lat)
	if lat > 90.0 {
		lat = 90.0
	} else if lat < -90.0 {
		lat = -90.0
	}

	lon := p.Lon + mathkernel.MToDLon(vx, p.Lat)
	if lon > 180.0 {
		lon -= 360.0
	} else if lon < -180.0 {
		lon += 360.0
	}

	return Pos{Lat: lat, Lon: lon}
}

func sinDeg(deg float64) float64 { return math.Sin(mathkernel.DegToRad(deg)) }
func cosDeg(deg float64) float64 { return math.Cos(mathkernel.DegToRad(deg)) }
