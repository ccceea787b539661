// Package postgis is a PostGIS-backed airport index implementing the same
// paged rectangle-query contract as the remote backend.
package postgis

import (
	"database/sql"
	"fmt"
	"strconv"
	"time"

	_ "github.com/lib/pq"

	"github.com/kass/airport-search/pkg/airports"
	"github.com/kass/airport-search/pkg/models"
)

type Index struct {
	db *sql.DB
}

// NewIndex opens a connection to the database and verifies it.
func NewIndex(host, user, password, dbname string, port int) (*Index, error) {
	connStr := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
		host, port, user, password, dbname)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings for better performance
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &Index{db: db}, nil
}

// InitSchema creates the airports table and its spatial index.
func (p *Index) InitSchema() error {
	queries := []string{
		`CREATE EXTENSION IF NOT EXISTS postgis;`,

		`DROP TABLE IF EXISTS airports;`,

		`CREATE TABLE airports (
			id SERIAL PRIMARY KEY,
			name TEXT NOT NULL,
			location GEOMETRY(POINT, 4326)
		);`,

		`CREATE INDEX idx_airports_location ON airports USING GIST(location);`,
	}

	for _, query := range queries {
		if _, err := p.db.Exec(query); err != nil {
			return fmt.Errorf("failed to execute query '%s': %w", query, err)
		}
	}

	return nil
}

// BulkInsertAirports inserts airports in transaction batches.
func (p *Index) BulkInsertAirports(list []*models.Airport) error {
	const batchSize = 10000

	stmt, err := p.db.Prepare(`
		INSERT INTO airports (name, location)
		VALUES ($1, ST_SetSRID(ST_MakePoint($2, $3), 4326))
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	tx, err := p.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	txStmt := tx.Stmt(stmt)

	for i, a := range list {
		if _, err := txStmt.Exec(a.Name, a.Lon, a.Lat); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to insert airport %q: %w", a.Name, err)
		}

		if (i+1)%batchSize == 0 {
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("failed to commit batch: %w", err)
			}
			tx, err = p.db.Begin()
			if err != nil {
				return fmt.Errorf("failed to begin new transaction: %w", err)
			}
			txStmt = tx.Stmt(stmt)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit final batch: %w", err)
	}

	return nil
}

// Search answers one page of a rectangle query. Rows are ordered by name
// then id so offset-based bookmarks stay stable across pages; the bookmark
// is the stringified offset of the next page.
func (p *Index) Search(q airports.Query, limit int, bookmark string) (*airports.Page, error) {
	offset := 0
	if bookmark != "" {
		n, err := strconv.Atoi(bookmark)
		if err != nil {
			return nil, fmt.Errorf("bad bookmark %q: %w", bookmark, err)
		}
		offset = n
	}

	r := q.Rect

	var total int
	err := p.db.QueryRow(`
		SELECT COUNT(*)
		FROM airports
		WHERE location && ST_MakeEnvelope($1, $2, $3, $4, 4326)
	`, r.LonMin, r.LatMin, r.LonMax, r.LatMax).Scan(&total)
	if err != nil {
		return nil, fmt.Errorf("failed to count matches: %w", err)
	}

	rows, err := p.db.Query(`
		SELECT name, ST_Y(location) AS lat, ST_X(location) AS lon
		FROM airports
		WHERE location && ST_MakeEnvelope($1, $2, $3, $4, 4326)
		ORDER BY name, id
		LIMIT $5 OFFSET $6
	`, r.LonMin, r.LatMin, r.LonMax, r.LatMax, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to execute query: %w", err)
	}
	defer rows.Close()

	var results []*models.Airport
	for rows.Next() {
		var a models.Airport
		if err := rows.Scan(&a.Name, &a.Lat, &a.Lon); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		results = append(results, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &airports.Page{
		TotalRows: total,
		Bookmark:  strconv.Itoa(offset + len(results)),
		Airports:  results,
	}, nil
}

// Count returns the number of airports in the database.
func (p *Index) Count() (int64, error) {
	var count int64
	err := p.db.QueryRow("SELECT COUNT(*) FROM airports").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count airports: %w", err)
	}
	return count, nil
}

// Close closes the database connection.
func (p *Index) Close() error {
	return p.db.Close()
}
