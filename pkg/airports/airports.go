// Package airports implements radius search over a rectangle-only search
// index: it projects the circle onto one or two rectangle queries, pages
// every query through the backend and reduces the combined rows to the
// exact circle.
package airports

import (
	"fmt"
	"strconv"

	"github.com/kass/airport-search/pkg/geo"
	"github.com/kass/airport-search/pkg/models"
)

// PageSize is the hard per-request row limit of the search backends.
const PageSize = 200

// Query is one rectangle query against the index.
type Query struct {
	Rect geo.Rect
}

// String renders the Lucene range syntax the search index understands.
// Coordinates use plain decimal notation; the syntax rejects exponents.
func (q Query) String() string {
	return fmt.Sprintf("lat:[%s TO %s] AND lon:[%s TO %s]",
		coord(q.Rect.LatMin), coord(q.Rect.LatMax),
		coord(q.Rect.LonMin), coord(q.Rect.LonMax))
}

func coord(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Page is one page of results for a single query. TotalRows is the match
// count for the whole query; Bookmark resumes the next page.
type Page struct {
	TotalRows int
	Bookmark  string
	Airports  []*models.Airport
}

// Backend is a search index that answers rectangle queries one page at a
// time. Implementations are lazy: connection problems surface from Search,
// not from construction. Close releases the underlying connection and must
// be called once the caller is done, on all exit paths. A Backend is not
// safe for concurrent use by simultaneous searches.
type Backend interface {
	Search(q Query, limit int, bookmark string) (*Page, error)
	Close() error
}

// BackendError is the single error a search surfaces: any transport, auth
// or decode failure during paging, wrapped with the query that hit it.
type BackendError struct {
	Query string
	Err   error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("backend search %q: %v", e.Query, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }

// Searcher runs radius searches against a Backend.
type Searcher struct {
	backend Backend
}

// NewSearcher creates a Searcher on top of an open backend. The Searcher
// does not own the backend; closing it stays with the caller.
func NewSearcher(b Backend) *Searcher {
	return &Searcher{backend: b}
}

// Search returns every airport within radiusKm of (lat, lon), sorted
// ascending by distance with the computed distance attached to each
// record. Inputs are assumed validated: radiusKm > 0, lat in [-90, 90],
// lon in [-180, 180]. A failure on any page aborts the whole search and
// rows collected before the failure are discarded.
func (s *Searcher) Search(radiusKm, lat, lon float64) ([]*models.Airport, error) {
	var raw []*models.Airport
	for _, rect := range geo.EnclosingRect(radiusKm, lat, lon).Pieces() {
		rows, err := s.collect(Query{Rect: rect})
		if err != nil {
			return nil, err
		}
		// Concatenation only; duplicates already present in the dataset
		// survive untouched.
		raw = append(raw, rows...)
	}
	return geo.FilterByRadius(raw, radiusKm, lat, lon), nil
}

// collect pages through one query until the backend's reported total is in
// hand. Pages are strictly sequential: each request needs the bookmark
// from the previous response. An empty page ends the loop early so an
// under-delivering backend cannot spin it forever.
func (s *Searcher) collect(q Query) ([]*models.Airport, error) {
	var (
		rows     []*models.Airport
		bookmark string
	)
	for {
		page, err := s.backend.Search(q, PageSize, bookmark)
		if err != nil {
			return nil, &BackendError{Query: q.String(), Err: err}
		}
		rows = append(rows, page.Airports...)
		if len(rows) >= page.TotalRows || len(page.Airports) == 0 {
			return rows, nil
		}
		bookmark = page.Bookmark
	}
}
