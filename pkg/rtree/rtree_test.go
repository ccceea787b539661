package rtree

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/airport-search/pkg/airports"
	"github.com/kass/airport-search/pkg/geo"
	"github.com/kass/airport-search/pkg/models"
)

func worldAirports() []*models.Airport {
	return []*models.Airport{
		{Name: "JFK", Lat: 40.6413, Lon: -73.7781},
		{Name: "LHR", Lat: 51.4700, Lon: -0.4543},
		{Name: "CDG", Lat: 49.0097, Lon: 2.5479},
		{Name: "HND", Lat: 35.5494, Lon: 139.7798},
		{Name: "SYD", Lat: -33.9399, Lon: 151.1753},
	}
}

func TestLoadAndSearch(t *testing.T) {
	index := NewIndex()
	index.Load(worldAirports())

	assert.Equal(t, 5, index.Size())

	// Box around western Europe finds Heathrow and Charles de Gaulle.
	page, err := index.Search(airports.Query{
		Rect: geo.Rect{LatMin: 45, LatMax: 55, LonMin: -5, LonMax: 10},
	}, 200, "")
	require.NoError(t, err)

	assert.Equal(t, 2, page.TotalRows)
	require.Len(t, page.Airports, 2)
	assert.Equal(t, "CDG", page.Airports[0].Name)
	assert.Equal(t, "LHR", page.Airports[1].Name)
}

func TestSearchPaging(t *testing.T) {
	index := NewIndex()
	var list []*models.Airport
	for i := 0; i < 5; i++ {
		list = append(list, &models.Airport{
			Name: fmt.Sprintf("airport_%d", i),
			Lat:  47.0 + float64(i)*0.01,
			Lon:  19.0,
		})
	}
	index.Load(list)

	q := airports.Query{Rect: geo.Rect{LatMin: 46, LatMax: 48, LonMin: 18, LonMax: 20}}

	var names []string
	bookmark := ""
	pages := 0
	for {
		page, err := index.Search(q, 2, bookmark)
		require.NoError(t, err)
		pages++
		for _, a := range page.Airports {
			names = append(names, a.Name)
		}
		if len(names) >= page.TotalRows || len(page.Airports) == 0 {
			break
		}
		bookmark = page.Bookmark
	}

	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"airport_0", "airport_1", "airport_2", "airport_3", "airport_4"}, names)
}

func TestSearchBadBookmark(t *testing.T) {
	index := NewIndex()
	index.Load(worldAirports())

	_, err := index.Search(airports.Query{
		Rect: geo.Rect{LatMin: -90, LatMax: 90, LonMin: -180, LonMax: 180},
	}, 200, "not-a-number")

	assert.Error(t, err)
}

func TestRadiusSearchThroughSearcher(t *testing.T) {
	index := NewIndex()
	index.Load([]*models.Airport{
		{Name: "center", Lat: 40.0, Lon: -74.0},
		{Name: "near", Lat: 40.1, Lon: -74.1},
		{Name: "far", Lat: 41.0, Lon: -73.0},
	})

	results, err := airports.NewSearcher(index).Search(50, 40.0, -74.0)
	require.NoError(t, err)

	require.Len(t, results, 2)
	assert.Equal(t, "center", results[0].Name)
	assert.Equal(t, "near", results[1].Name)
	assert.Greater(t, results[1].Distance, results[0].Distance)
}

func TestSaveAndLoadFile(t *testing.T) {
	index := NewIndex()
	index.Load(worldAirports())

	path := filepath.Join(t.TempDir(), "airports.gob")
	require.NoError(t, index.SaveToFile(path))

	loaded := NewIndex()
	require.NoError(t, loaded.LoadFromFile(path))

	assert.Equal(t, 5, loaded.Size())

	page, err := loaded.Search(airports.Query{
		Rect: geo.Rect{LatMin: -90, LatMax: 90, LonMin: -180, LonMax: 180},
	}, 200, "")
	require.NoError(t, err)
	assert.Equal(t, 5, page.TotalRows)
}
