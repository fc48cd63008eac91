// Package geo provides geolocation utilities for distance-based search and ranking.
package geo

import "math"

// EarthRadiusKm is the mean Earth radius used by the haversine formula.
const EarthRadiusKm = 6371.0

// Point represents a geographic coordinate with latitude and longitude.
type Point struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// DistanceKm computes the great-circle distance in kilometers between two
// coordinates using the haversine formula.
//
// The result is rounded to 2 decimal places (half away from zero). Inputs are
// assumed to be finite and within valid latitude/longitude ranges; range
// validation is the caller's responsibility and happens at ingestion, not here.
//
// Parameters:
//   - lat1, lon1: first coordinate in degrees
//   - lat2, lon2: second coordinate in degrees
//
// Returns the distance in kilometers, always >= 0.
func DistanceKm(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := toRadians(lat2 - lat1)
	dLon := toRadians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRadians(lat1))*math.Cos(toRadians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return round2(EarthRadiusKm * c)
}

// PointDistanceKm computes the distance between two Points.
// Convenience wrapper around DistanceKm.
func PointDistanceKm(a, b Point) float64 {
	return DistanceKm(a.Lat, a.Lng, b.Lat, b.Lng)
}

// toRadians converts degrees to radians.
func toRadians(deg float64) float64 {
	return deg * (math.Pi / 180)
}

// round2 rounds to 2 decimal places, half away from zero.
// math.Round rounds half away from zero, matching round(x*100)/100 semantics.
func round2(x float64) float64 {
	return math.Round(x*100) / 100
}
