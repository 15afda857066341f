// Package celestial computes apparent positions of the Sun and a 21-star
// navigational catalog, for sight-reduction style consumers.
package celestial

import (
	"fmt"
	"math"
	"time"

	"github.com/ls4096/libproteus/geopos"
	"github.com/ls4096/libproteus/mathkernel"
)

// Equatorial is a right ascension/declination pair.
type Equatorial struct {
	RA  float64 // Right ascension, in hours
	Dec float64 // Declination, in degrees
}

// Horizontal is an azimuth/altitude pair.
type Horizontal struct {
	Az  float64 // Azimuth, in degrees, measured clockwise from true north
	Alt float64 // Altitude, in degrees above the horizon
}

// JulianDay returns the Julian Day for the given instant.
func JulianDay(t time.Time) float64 {
	return float64(t.Unix())/86400.0 + 2440587.5
}

// EquatorialForObject returns the apparent equatorial coordinates of obj at
// the given Julian Day.
func EquatorialForObject(jd float64, obj Object) (Equatorial, error) {
	if obj < Sun || obj > ObjMax {
		return Equatorial{}, fmt.Errorf("celestial: invalid object %d", obj)
	}
	if obj > Sun {
		return computeStarEq(obj, jd), nil
	}
	return computeSunEq(jd), nil
}

func computeSunEq(jd float64) Equatorial {
	n := jd - 2451545.0
	t := n / 36525.0
	l := math.Mod(280.460+0.9856474*n, 360.0)
	g := math.Mod(357.528+0.9856003*n, 360.0)

	la := l + 1.915*math.Sin(mathkernel.DegToRad(g)) + 0.020*math.Sin(mathkernel.DegToRad(2.0*g))

	laRad := mathkernel.DegToRad(la)
	eRad := mathkernel.DegToRad(obliquityForJulianCentury(t))

	raRad := math.Atan2(math.Cos(eRad)*math.Sin(laRad), math.Cos(laRad))
	decRad := math.Asin(math.Sin(eRad) * math.Sin(laRad))

	ra := math.Mod(mathkernel.RadToDeg(raRad), 360.0) / 15.0
	for ra < 0.0 {
		ra += 24.0
	}

	return Equatorial{RA: ra, Dec: mathkernel.RadToDeg(decRad)}
}

func computeStarEq(obj Object, jd float64) Equatorial {
	e := starEphJ2000[obj-StarMin]

	y := (jd - 2451545.0) / 365.25
	t := y / 100.0

	ra2000 := e.ra2000hr + (e.dRAmasYr*y)/(1000.0*3600.0*15.0)
	dec2000 := e.dec2000de + (e.dDECmasYr*y)/(1000.0*3600.0)

	ra2000 = normalizeHours(ra2000)
	dec2000 = clampDeg(dec2000)

	ra2000Rad := ra2000 * 15.0 * math.Pi / 180.0
	dec2000Rad := mathkernel.DegToRad(dec2000)

	eRad := mathkernel.DegToRad(obliquityForJulianCentury(t))
	pDeg := (5028.796195*t + 1.1054348*t*t) / 3600.0

	raDeltaHr := (pDeg / 15.0) * (math.Cos(eRad) + math.Sin(eRad)*math.Sin(ra2000Rad)*math.Tan(dec2000Rad))
	decDeltaDeg := pDeg * math.Cos(ra2000Rad) * math.Sin(eRad)

	return Equatorial{
		RA:  normalizeHours(ra2000 + raDeltaHr),
		Dec: clampDeg(dec2000 + decDeltaDeg),
	}
}

func obliquityForJulianCentury(t float64) float64 {
	return (84381.406 -
		46.836769*t -
		0.0001831*t*t +
		0.00200340*t*t*t -
		5.76e-7*t*t*t*t -
		4.34e-8*t*t*t*t*t) / 3600.0
}

func normalizeHours(h float64) float64 {
	for h < 0.0 {
		h += 24.0
	}
	for h >= 24.0 {
		h -= 24.0
	}
	return h
}

func clampDeg(d float64) float64 {
	if d < -90.0 {
		return -90.0
	}
	if d > 90.0 {
		return 90.0
	}
	return d
}

// EquatorialToHorizontal converts an equatorial position to azimuth/altitude
// as seen from pos at Julian Day jd. When atmosEffect is true, Saemundsson
// refraction is applied using airPressure (hPa) and airTemp (degrees C); the
// correction is only ever added, never subtracted, matching the original
// formula's sign convention.
func EquatorialToHorizontal(jd float64, pos geopos.Pos, ec Equatorial, atmosEffect bool, airPressure, airTemp float64) Horizontal {
	n := jd - 2451545.0
	t := n / 36525.0

	eraRad := 2.0 * math.Pi * (0.7790572732640 + 1.00273781191135448*n)

	ePrecSec := -0.0104506 -
		4612.16534*t -
		1.3915817*t*t +
		4.4e-7*t*t*t +
		2.9956e-5*t*t*t*t

	gmstRad := eraRad - (ePrecSec * math.Pi / 3600.0 / 180.0)

	latRad := mathkernel.DegToRad(pos.Lat)
	lonRad := mathkernel.DegToRad(pos.Lon)

	raRad := mathkernel.DegToRad(ec.RA * 15.0)
	decRad := mathkernel.DegToRad(ec.Dec)

	lmstRad := gmstRad + lonRad
	lhaRad := lmstRad - raRad

	azY := math.Sin(lhaRad)
	azX := math.Cos(lhaRad)*math.Sin(latRad) - math.Tan(decRad)*math.Cos(latRad)
	azRad := math.Atan2(azY, azX)

	altRad := math.Asin(math.Sin(latRad)*math.Sin(decRad) + math.Cos(latRad)*math.Cos(decRad)*math.Cos(lhaRad))

	hc := Horizontal{
		Az:  math.Mod(mathkernel.RadToDeg(azRad)+180.0, 360.0),
		Alt: mathkernel.RadToDeg(altRad),
	}

	if atmosEffect {
		tanArg := mathkernel.DegToRad(hc.Alt + 10.3/(hc.Alt+5.11))
		refrArcMin := 1.02 * (1.0 / math.Tan(tanArg)) * (airPressure / 1010.0) * (283.0 / (273.0 + airTemp))
		if refrArcMin > 0.0 {
			hc.Alt += refrArcMin / 60.0
		}
	}

	return hc
}
