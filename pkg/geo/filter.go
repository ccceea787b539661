package geo

import (
	"sort"

	"github.com/kass/airport-search/pkg/models"
)

// FilterByRadius reduces a rectangle superset to the exact circle: each
// airport gets its distance from the origin attached, airports farther
// than radiusKm are dropped (ties at exactly radiusKm stay in), and the
// rest are sorted ascending by distance. Equal distances keep their input
// order.
func FilterByRadius(candidates []*models.Airport, radiusKm, originLat, originLon float64) []*models.Airport {
	kept := make([]*models.Airport, 0, len(candidates))
	for _, a := range candidates {
		d := Distance(originLat, originLon, a.Lat, a.Lon)
		if d <= radiusKm {
			a.Distance = d
			kept = append(kept, a)
		}
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Distance < kept[j].Distance
	})

	return kept
}
