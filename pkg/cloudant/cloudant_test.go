package cloudant

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kass/airport-search/pkg/airports"
	"github.com/kass/airport-search/pkg/geo"
)

func testQuery() airports.Query {
	return airports.Query{Rect: geo.Rect{LatMin: 46, LatMax: 48, LonMin: 18, LonMax: 20}}
}

func TestSearchBuildsRequest(t *testing.T) {
	var gotPath, gotQ, gotLimit, gotBookmark string
	var gotUser, gotPass string
	var gotAuth bool

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQ = r.URL.Query().Get("q")
		gotLimit = r.URL.Query().Get("limit")
		gotBookmark = r.URL.Query().Get("bookmark")
		gotUser, gotPass, gotAuth = r.BasicAuth()
		fmt.Fprint(w, `{"total_rows": 1, "bookmark": "bm1", "rows": [
			{"fields": {"name": "Tokol", "lat": 47.34528, "lon": 18.98083}}
		]}`)
	}))
	defer server.Close()

	session := NewSession(Config{
		URL:       server.URL,
		Database:  "airportdb",
		DesignDoc: "view1",
		Index:     "geo",
		Username:  "reader",
		Password:  "secret",
	})
	defer session.Close()

	page, err := session.Search(testQuery(), 200, "")
	require.NoError(t, err)

	assert.Equal(t, "/airportdb/_design/view1/_search/geo", gotPath)
	assert.Equal(t, "lat:[46 TO 48] AND lon:[18 TO 20]", gotQ)
	assert.Equal(t, "200", gotLimit)
	assert.Empty(t, gotBookmark, "first page must not send a bookmark")
	require.True(t, gotAuth)
	assert.Equal(t, "reader", gotUser)
	assert.Equal(t, "secret", gotPass)

	assert.Equal(t, 1, page.TotalRows)
	assert.Equal(t, "bm1", page.Bookmark)
	require.Len(t, page.Airports, 1)
	assert.Equal(t, "Tokol", page.Airports[0].Name)
	assert.InDelta(t, 47.34528, page.Airports[0].Lat, 1e-12)
	assert.InDelta(t, 18.98083, page.Airports[0].Lon, 1e-12)
}

func TestSearchSendsBookmark(t *testing.T) {
	var gotBookmark string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotBookmark = r.URL.Query().Get("bookmark")
		fmt.Fprint(w, `{"total_rows": 0, "bookmark": "", "rows": []}`)
	}))
	defer server.Close()

	session := NewSession(Config{URL: server.URL, Database: "airportdb", DesignDoc: "view1", Index: "geo"})
	defer session.Close()

	_, err := session.Search(testQuery(), 200, "g1AAAA")
	require.NoError(t, err)
	assert.Equal(t, "g1AAAA", gotBookmark)
}

func TestSearchPagesThroughSearcher(t *testing.T) {
	// Two pages of one row each; the searcher must follow the bookmark.
	requests := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requests++
		if r.URL.Query().Get("bookmark") == "" {
			fmt.Fprint(w, `{"total_rows": 2, "bookmark": "next", "rows": [
				{"fields": {"name": "Alpha", "lat": 47.1, "lon": 19.1}}
			]}`)
			return
		}
		fmt.Fprint(w, `{"total_rows": 2, "bookmark": "done", "rows": [
			{"fields": {"name": "Bravo", "lat": 46.9, "lon": 18.9}}
		]}`)
	}))
	defer server.Close()

	session := NewSession(Config{URL: server.URL, Database: "airportdb", DesignDoc: "view1", Index: "geo"})
	defer session.Close()

	results, err := airports.NewSearcher(session).Search(50, 47.0, 19.0)
	require.NoError(t, err)

	assert.Equal(t, 2, requests)
	require.Len(t, results, 2)
	assert.Equal(t, "Alpha", results[0].Name)
	assert.Equal(t, "Bravo", results[1].Name)
}

func TestSearchErrorStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"unauthorized"}`, http.StatusUnauthorized)
	}))
	defer server.Close()

	session := NewSession(Config{URL: server.URL, Database: "airportdb", DesignDoc: "view1", Index: "geo"})
	defer session.Close()

	_, err := session.Search(testQuery(), 200, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
}

func TestSearchMalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html>not json</html>`)
	}))
	defer server.Close()

	session := NewSession(Config{URL: server.URL, Database: "airportdb", DesignDoc: "view1", Index: "geo"})
	defer session.Close()

	_, err := session.Search(testQuery(), 200, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
}

func TestSearchConnectionFailureWrappedByPipeline(t *testing.T) {
	// Dead endpoint: the pipeline must surface a single BackendError.
	session := NewSession(Config{URL: "http://127.0.0.1:1", Database: "airportdb", DesignDoc: "view1", Index: "geo"})
	defer session.Close()

	results, err := airports.NewSearcher(session).Search(50, 47.0, 19.0)

	assert.Nil(t, results)
	var backendErr *airports.BackendError
	require.ErrorAs(t, err, &backendErr)
}
