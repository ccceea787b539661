package geo

import "math"

// Rect is an axis-aligned lat/lon rectangle. LatMin <= LatMax always;
// longitude bounds lie within [-180, 180].
type Rect struct {
	LatMin float64
	LatMax float64
	LonMin float64
	LonMax float64
}

// QueryRect is the enclosing rectangle of a circle on the sphere: a single
// rectangle, or two when the circle crosses the antimeridian. Split pieces
// share latitude bounds; West ends at 180 and East starts at -180.
type QueryRect struct {
	West  Rect
	East  Rect
	Split bool
}

// One wraps a single rectangle.
func One(r Rect) QueryRect { return QueryRect{West: r} }

// Two wraps an antimeridian-split pair.
func Two(west, east Rect) QueryRect {
	return QueryRect{West: west, East: east, Split: true}
}

// Pieces returns the rectangle pieces in west-to-east order.
func (q QueryRect) Pieces() []Rect {
	if q.Split {
		return []Rect{q.West, q.East}
	}
	return []Rect{q.West}
}

func fullLon(latMin, latMax float64) QueryRect {
	return One(Rect{LatMin: latMin, LatMax: latMax, LonMin: -180, LonMax: 180})
}

// EnclosingRect maps the circle of radiusKm around (lat, lon) to the
// rectangle queries that cover it. The result is always a superset of the
// circle; every shortcut below over-approximates and FilterByRadius trims
// the excess afterwards.
//
// The latitude span uses the linear arc approximation radius/circumference,
// and the pole check clamps that linear overshoot rather than solving the
// spherical triangle. Changing it would silently change which rows the
// superset sweeps in.
func EnclosingRect(radiusKm, lat, lon float64) QueryRect {
	// A radius of half the circumference or more reaches every point.
	if radiusKm >= earthCircumferenceKm/2 {
		return fullLon(-90, 90)
	}

	dLat := radiusKm / earthCircumferenceKm * 360
	latS := lat - dLat
	latN := lat + dLat

	// A circle touching a pole cannot be bounded in longitude.
	pole := false
	if latS <= -90 {
		latS = -90
		pole = true
	}
	if latN >= 90 {
		latN = 90
		pole = true
	}
	if pole {
		return fullLon(latS, latN)
	}

	// The parallel through the origin is a small circle; a radius of half
	// its circumference wraps all the way around in longitude.
	smallCircumference := earthCircumferenceKm * math.Cos(radians(lat))
	if radiusKm >= smallCircumference/2 {
		return fullLon(latS, latN)
	}

	dLon := radiusKm / smallCircumference * 360
	lonW := lon - dLon
	lonE := lon + dLon

	// Full wraparound is excluded above, so at most one side overflows.
	switch {
	case lonW < -180:
		return Two(
			Rect{LatMin: latS, LatMax: latN, LonMin: lonW + 360, LonMax: 180},
			Rect{LatMin: latS, LatMax: latN, LonMin: -180, LonMax: lonE},
		)
	case lonE > 180:
		return Two(
			Rect{LatMin: latS, LatMax: latN, LonMin: lonW, LonMax: 180},
			Rect{LatMin: latS, LatMax: latN, LonMin: -180, LonMax: lonE - 360},
		)
	}

	return One(Rect{LatMin: latS, LatMax: latN, LonMin: lonW, LonMax: lonE})
}
