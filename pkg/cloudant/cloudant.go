// Package cloudant is the remote search backend: a Cloudant-style
// full-text index queried over HTTP with bookmark-paged results.
package cloudant

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/kass/airport-search/pkg/airports"
	"github.com/kass/airport-search/pkg/models"
)

// Config locates the search index and carries optional credentials.
type Config struct {
	URL       string
	Database  string
	DesignDoc string
	Index     string
	Username  string
	Password  string
}

// Session is an open connection to the remote index, implementing
// airports.Backend. Construction does no I/O: connection and auth problems
// surface from the first Search.
type Session struct {
	cfg    Config
	client *http.Client
}

// NewSession creates a session for the configured index.
func NewSession(cfg Config) *Session {
	return &Session{
		cfg:    cfg,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// searchResponse mirrors the index's wire shape.
type searchResponse struct {
	TotalRows int    `json:"total_rows"`
	Bookmark  string `json:"bookmark"`
	Rows      []struct {
		Fields struct {
			Name string  `json:"name"`
			Lat  float64 `json:"lat"`
			Lon  float64 `json:"lon"`
		} `json:"fields"`
	} `json:"rows"`
}

// Search fetches one page of a rectangle query from the remote index.
func (s *Session) Search(q airports.Query, limit int, bookmark string) (*airports.Page, error) {
	endpoint := fmt.Sprintf("%s/%s/_design/%s/_search/%s",
		s.cfg.URL, s.cfg.Database, s.cfg.DesignDoc, s.cfg.Index)

	params := url.Values{}
	params.Set("q", q.String())
	params.Set("limit", strconv.Itoa(limit))
	if bookmark != "" {
		params.Set("bookmark", bookmark)
	}

	req, err := http.NewRequest(http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if s.cfg.Username != "" {
		req.SetBasicAuth(s.cfg.Username, s.cfg.Password)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("unexpected status %s: %s", resp.Status, body)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	page := &airports.Page{
		TotalRows: sr.TotalRows,
		Bookmark:  sr.Bookmark,
		Airports:  make([]*models.Airport, 0, len(sr.Rows)),
	}
	for _, row := range sr.Rows {
		page.Airports = append(page.Airports, &models.Airport{
			Name: row.Fields.Name,
			Lat:  row.Fields.Lat,
			Lon:  row.Fields.Lon,
		})
	}
	return page, nil
}

// Close releases pooled connections.
func (s *Session) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
