// Package rtree is an in-memory airport index backed by an R-Tree. It
// answers the same paged rectangle queries as the remote backends, which
// makes it usable for local gob datasets and as a test double with real
// index semantics.
package rtree

import (
	"encoding/gob"
	"fmt"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/dhconnelly/rtreego"

	"github.com/kass/airport-search/pkg/airports"
	"github.com/kass/airport-search/pkg/models"
)

const (
	tolerance   = 0.01
	minChildren = 25
	maxChildren = 50
	dimensions  = 2
)

// spatialAirport wraps an airport to implement rtreego.Spatial
type spatialAirport struct {
	*models.Airport
	rect *rtreego.Rect
}

func (sa *spatialAirport) Bounds() *rtreego.Rect {
	return sa.rect
}

// Index is a thread-safe in-memory airport index.
type Index struct {
	mu   sync.RWMutex
	tree *rtreego.Rtree
	size int
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{tree: rtreego.NewTree(dimensions, minChildren, maxChildren)}
}

// Load indexes a batch of airports.
func (g *Index) Load(list []*models.Airport) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, a := range list {
		if a == nil {
			continue
		}
		rect := rtreego.Point{a.Lat, a.Lon}.ToRect(tolerance)
		g.tree.Insert(&spatialAirport{a, rect})
		g.size++
	}
}

// Size returns the number of indexed airports.
func (g *Index) Size() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.size
}

// Search answers one page of a rectangle query. Matches are ordered by
// name so offset-based bookmarks stay stable across pages; the bookmark is
// the stringified offset of the next page.
func (g *Index) Search(q airports.Query, limit int, bookmark string) (*airports.Page, error) {
	offset := 0
	if bookmark != "" {
		n, err := strconv.Atoi(bookmark)
		if err != nil {
			return nil, fmt.Errorf("bad bookmark %q: %w", bookmark, err)
		}
		offset = n
	}

	r := q.Rect

	g.mu.RLock()
	bounds, err := rtreego.NewRect(
		rtreego.Point{r.LatMin, r.LonMin},
		[]float64{r.LatMax - r.LatMin, r.LonMax - r.LonMin},
	)
	if err != nil {
		g.mu.RUnlock()
		return nil, fmt.Errorf("invalid bounding box: %w", err)
	}
	results := g.tree.SearchIntersect(bounds)
	g.mu.RUnlock()

	// SearchIntersect over-matches by the insertion tolerance; re-check
	// the exact bounds.
	matched := make([]*models.Airport, 0, len(results))
	for _, result := range results {
		item, ok := result.(*spatialAirport)
		if !ok || item.Airport == nil {
			continue
		}
		if item.Lat >= r.LatMin && item.Lat <= r.LatMax &&
			item.Lon >= r.LonMin && item.Lon <= r.LonMax {
			matched = append(matched, item.Airport)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return matched[i].Name < matched[j].Name
	})

	end := offset + limit
	if end > len(matched) {
		end = len(matched)
	}
	page := []*models.Airport{}
	if offset < len(matched) {
		page = matched[offset:end]
	}

	return &airports.Page{
		TotalRows: len(matched),
		Bookmark:  strconv.Itoa(end),
		Airports:  page,
	}, nil
}

// Close implements airports.Backend; nothing to release.
func (g *Index) Close() error {
	return nil
}

// SaveToFile saves the indexed airports to a file using gob encoding.
func (g *Index) SaveToFile(filename string) error {
	g.mu.RLock()
	defer g.mu.RUnlock()

	file, err := os.Create(filename)
	if err != nil {
		return fmt.Errorf("failed to create file: %w", err)
	}
	defer file.Close()

	// Collect everything with a full-globe bounding box.
	var list []*models.Airport
	largeBounds, _ := rtreego.NewRect(rtreego.Point{-90, -180}, []float64{180, 360})
	for _, result := range g.tree.SearchIntersect(largeBounds) {
		if item, ok := result.(*spatialAirport); ok {
			list = append(list, item.Airport)
		}
	}

	if err := gob.NewEncoder(file).Encode(list); err != nil {
		return fmt.Errorf("failed to encode index: %w", err)
	}

	return nil
}

// LoadFromFile loads airports from a gob file into the index.
func (g *Index) LoadFromFile(filename string) error {
	file, err := os.Open(filename)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer file.Close()

	var list []*models.Airport
	if err := gob.NewDecoder(file).Decode(&list); err != nil {
		return fmt.Errorf("failed to decode index: %w", err)
	}

	g.mu.Lock()
	g.tree = rtreego.NewTree(dimensions, minChildren, maxChildren)
	g.size = 0
	g.mu.Unlock()

	g.Load(list)
	return nil
}
