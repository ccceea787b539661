// Package geo contains the spherical geometry behind a radius search:
// great-circle distance, the circle-to-rectangle projection used to query
// a rectangle-only index, and the exact-circle post filter.
package geo

import "math"

const (
	// EarthRadiusKm is the mean Earth radius of the sphere model.
	EarthRadiusKm = 6371.0088

	// earthCircumferenceKm is the meridian circumference of that sphere.
	earthCircumferenceKm = 2 * math.Pi * EarthRadiusKm
)

// Distance returns the great-circle distance in kilometers between two
// points given in decimal degrees, using the haversine formula.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	lat1Rad := radians(lat1)
	lat2Rad := radians(lat2)
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(dLon/2)*math.Sin(dLon/2)

	return 2 * EarthRadiusKm * math.Asin(math.Sqrt(a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180.0
}
