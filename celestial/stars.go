package celestial

// Object identifies a celestial body queryable through EquatorialForObject.
type Object int

// Supported celestial objects. Values below StarMin are not stars.
const (
	Sun Object = iota
	Achernar
	Aldebaran
	Rigel
	Capella
	Betelgeuse
	Canopus
	Sirius
	Procyon
	Pollux
	Regulus
	Acrux
	Spica
	Hadar
	Arcturus
	RigilKentaurus
	Antares
	Vega
	Altair
	Deneb
	Fomalhaut
	Polaris

	StarMin = Achernar
	StarMax = Polaris
	ObjMax  = StarMax
)

// starEph holds a star's J2000.0 epoch position and proper motion.
type starEph struct {
	ra2000hr  float64 // Right ascension at J2000.0, in hours
	dec2000de float64 // Declination at J2000.0, in degrees
	dRAmasYr  float64 // Proper motion in RA, milliarcsec/year
	dDECmasYr float64 // Proper motion in Dec, milliarcsec/year
}

// starEphJ2000 is indexed by Object-StarMin; order matches the original
// 21-star catalog exactly.
var starEphJ2000 = [...]starEph{
	{1.628556, -57.236757, 88.02, -40.08},     // Achernar
	{4.598677, 16.509301, 62.78, -189.36},     // Aldebaran
	{5.242298, -8.201640, 1.87, -0.56},        // Rigel
	{5.278150, 45.997991, 75.52, -427.13},     // Capella
	{5.919529, 7.407063, 27.33, 10.86},        // Betelgeuse
	{6.399195, -52.695660, 19.99, 23.67},      // Canopus
	{6.752481, -16.716116, -546.01, -1223.08}, // Sirius
	{7.655033, 5.224993, -716.57, -1034.58},   // Procyon
	{7.755277, 28.026199, -625.69, -45.95},    // Pollux
	{10.139532, 11.967207, -249.40, 4.91},     // Regulus
	{12.443311, -63.099092, -35.37, -14.73},   // Acrux
	{13.419883, -11.161322, -42.50, -31.73},   // Spica
	{14.063729, -60.373039, -33.96, -25.06},   // Hadar
	{14.261030, 19.182410, -1093.45, -1999.40}, // Arcturus
	{14.660765, -60.833976, -3678.19, 481.84}, // Rigil Kentaurus
	{16.490128, -26.432002, -10.16, -23.21},   // Antares
	{18.615640, 38.783692, 201.02, 287.46},    // Vega
	{19.846388, 8.868322, 536.82, 385.54},     // Altair
	{20.690532, 45.280338, 1.56, 1.55},        // Deneb
	{22.960838, -29.622236, 329.22, -164.22},  // Fomalhaut
	{2.529750, 89.264109, 44.22, -11.74},      // Polaris
}
