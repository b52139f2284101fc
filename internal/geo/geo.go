// Great-circle helpers shared by the controller and the simulated sources
package geo

import "math"

const earthRadius = 6371000.0 // meters

// Position holds latitude, longitude (degrees) and altitude (meters).
type Position struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
	Alt float64 `json:"alt"`
}

// Vector3 is a velocity in the local north/east/down frame (m/s).
type Vector3 struct {
	X float64 `json:"x"` // north
	Y float64 `json:"y"` // east
	Z float64 `json:"z"` // down
}

// Zero is the zero velocity.
var Zero = Vector3{}

// Reference is a snapshot of the moving point the formation is held against.
type Reference struct {
	Position Position `json:"position"`
	Heading  float64  `json:"heading"`
	Velocity Vector3  `json:"velocity"`
}

// WithAlt returns a copy of p at the given altitude.
func (p Position) WithAlt(alt float64) Position {
	p.Alt = alt
	return p
}

// NormalizeHeading maps h into [0, 360).
func NormalizeHeading(h float64) float64 {
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	return h
}

// Destination projects p along bearingDeg for distM meters. Altitude is kept.
// A negative distance projects along the reciprocal bearing.
func Destination(p Position, bearingDeg, distM float64) Position {
	if distM == 0 {
		return p
	}
	lat1 := p.Lat * math.Pi / 180
	lon1 := p.Lon * math.Pi / 180
	brg := bearingDeg * math.Pi / 180
	ad := distM / earthRadius

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(ad) + math.Cos(lat1)*math.Sin(ad)*math.Cos(brg))
	lon2 := lon1 + math.Atan2(math.Sin(brg)*math.Sin(ad)*math.Cos(lat1), math.Cos(ad)-math.Sin(lat1)*math.Sin(lat2))

	return Position{
		Lat: lat2 * 180 / math.Pi,
		Lon: math.Mod(lon2*180/math.Pi+540, 360) - 180,
		Alt: p.Alt,
	}
}

// DistanceMeters calculates the haversine distance between two points, ignoring altitude.
func DistanceMeters(a, b Position) float64 {
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dLat/2)*math.Sin(dLat/2) + math.Cos(a.Lat*math.Pi/180)*math.Cos(b.Lat*math.Pi/180)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadius * c
}

// Bearing returns the initial great-circle bearing from a to b in degrees [0, 360).
func Bearing(a, b Position) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180
	y := math.Sin(dLon) * math.Cos(lat2)
	x := math.Cos(lat1)*math.Sin(lat2) - math.Sin(lat1)*math.Cos(lat2)*math.Cos(dLon)
	return NormalizeHeading(math.Atan2(y, x) * 180 / math.Pi)
}

// HeadingVector converts a heading and ground speed into a north/east velocity.
func HeadingVector(headingDeg, speed float64) Vector3 {
	rad := headingDeg * math.Pi / 180
	return Vector3{X: speed * math.Cos(rad), Y: speed * math.Sin(rad)}
}
