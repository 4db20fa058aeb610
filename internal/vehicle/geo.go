package vehicle

import "math"

// MetersPerDegree is the flat approximation used for every distance and
// step size in the simulator. Longitude is not scaled by latitude.
const MetersPerDegree = 111_000.0

// DegreeDistance is the straight-line distance between a and b measured in
// degree space.
func DegreeDistance(a, b Position) float64 {
	return math.Hypot(b.Lat-a.Lat, b.Lng-a.Lng)
}

// DistanceMeters converts DegreeDistance to meters.
func DistanceMeters(a, b Position) float64 {
	return DegreeDistance(a, b) * MetersPerDegree
}

// BearingDeg returns the course from a to b: 0=north, 90=east.
// Zero when the two positions coincide.
func BearingDeg(a, b Position) float64 {
	dLat := b.Lat - a.Lat
	dLng := b.Lng - a.Lng
	if math.Abs(dLat) < 1e-12 && math.Abs(dLng) < 1e-12 {
		return 0
	}
	deg := math.Atan2(dLng, dLat) * 180.0 / math.Pi
	if deg < 0 {
		deg += 360
	}
	return deg
}
