// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package catalog indexes harvested documents in a SQLite database so an
// operator can count and full-text search what has been collected without
// rescanning JSONL files.
package catalog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pdiddy/chem-harvest/internal/jsonl"
	"github.com/pdiddy/chem-harvest/pkg/types"
)

const dbFile = "harvest.db"

// Store manages the catalog SQLite database.
type Store struct {
	db         *sql.DB
	maxResults int
}

// NewStore opens or creates the catalog database at
// cfg.CatalogDir/harvest.db, creating the schema if needed.
func NewStore(cfg types.CatalogConfig) (*Store, error) {
	dir := cfg.CatalogDir
	if dir == "" {
		dir = "catalog"
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating catalog directory: %w", err)
	}

	dbPath := filepath.Join(dir, dbFile)
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	maxResults := cfg.MaxResults
	if maxResults <= 0 {
		maxResults = 20
	}

	s := &Store{db: db, maxResults: maxResults}
	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS documents (
			rowid INTEGER PRIMARY KEY AUTOINCREMENT,
			source TEXT NOT NULL,
			title TEXT NOT NULL,
			abstract TEXT,
			publication_date TEXT,
			journal_or_office TEXT,
			identifier TEXT,
			scraped_at TEXT,
			record TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_documents_source ON documents(source)`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}

	// FTS5 virtual table with triggers keeping it in sync.
	var ftsExists int
	if err := s.db.QueryRow(
		`SELECT count(*) FROM sqlite_master WHERE type='table' AND name='documents_fts'`,
	).Scan(&ftsExists); err != nil {
		return fmt.Errorf("checking FTS table: %w", err)
	}
	if ftsExists == 0 {
		ftsStatements := []string{
			`CREATE VIRTUAL TABLE documents_fts USING fts5(title, abstract, content=documents, content_rowid=rowid)`,
			`CREATE TRIGGER documents_ai AFTER INSERT ON documents BEGIN
				INSERT INTO documents_fts(rowid, title, abstract) VALUES (new.rowid, new.title, new.abstract);
			END`,
			`CREATE TRIGGER documents_ad AFTER DELETE ON documents BEGIN
				INSERT INTO documents_fts(documents_fts, rowid, title, abstract) VALUES('delete', old.rowid, old.title, old.abstract);
			END`,
		}
		for _, stmt := range ftsStatements {
			if _, err := s.db.Exec(stmt); err != nil {
				return fmt.Errorf("creating FTS infrastructure: %w", err)
			}
		}
	}
	return nil
}

// IndexFile loads every document from a JSONL file into the catalog and
// returns the number indexed. The whole file loads in one transaction so
// a failed run leaves the catalog unchanged.
func (s *Store) IndexFile(ctx context.Context, path string, w io.Writer) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("starting transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO documents
		(source, title, abstract, publication_date, journal_or_office, identifier, scraped_at, record)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	indexed := 0
	err = jsonl.ForEach(path, func(doc types.Document) error {
		record, err := json.Marshal(doc)
		if err != nil {
			return fmt.Errorf("encoding document %q: %w", doc.Title, err)
		}

		var pubDate string
		if !doc.PublicationDate.IsZero() {
			pubDate = doc.PublicationDate.Format("2006-01-02")
		}
		var identifier string
		if len(doc.Identifiers) > 0 {
			identifier = doc.Identifiers[0].Type + ":" + doc.Identifiers[0].Value
		}

		if _, err := stmt.ExecContext(ctx,
			string(doc.Source), doc.Title, doc.Abstract, pubDate,
			doc.JournalOrOffice, identifier,
			doc.ScrapedAt.UTC().Format(time.RFC3339), string(record),
		); err != nil {
			return fmt.Errorf("inserting document %q: %w", doc.Title, err)
		}
		indexed++
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing: %w", err)
	}
	fmt.Fprintf(w, "indexed %d documents from %s\n", indexed, path)
	return indexed, nil
}

// Count returns the number of cataloged documents.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT count(*) FROM documents`).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return n, nil
}

// LookupResult is one full-text match.
type LookupResult struct {
	Source          string
	Title           string
	Identifier      string
	PublicationDate string
	JournalOrOffice string
}

// Lookup runs an FTS5 match over titles and abstracts and returns up to
// limit results ranked by relevance. A non-positive limit uses the
// configured default.
func (s *Store) Lookup(ctx context.Context, match string, limit int) ([]LookupResult, error) {
	if limit <= 0 {
		limit = s.maxResults
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT d.source, d.title, d.identifier, d.publication_date, d.journal_or_office
		FROM documents_fts f
		JOIN documents d ON d.rowid = f.rowid
		WHERE documents_fts MATCH ?
		ORDER BY rank
		LIMIT ?`, match, limit)
	if err != nil {
		return nil, fmt.Errorf("querying catalog: %w", err)
	}
	defer rows.Close()

	var results []LookupResult
	for rows.Next() {
		var r LookupResult
		if err := rows.Scan(&r.Source, &r.Title, &r.Identifier, &r.PublicationDate, &r.JournalOrOffice); err != nil {
			return nil, fmt.Errorf("scanning row: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}
