// Package storage persists detected edition groups into the SQLite-backed
// catalog. It is a plain insert/select collaborator; the pipeline hands it
// an ordered EditionGroup list and upserts are idempotent.
package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"

	"bookdash/internal/catalog"
)

// Database handles all catalog database operations.
type Database struct {
	db *sql.DB
}

// NewDatabase creates and initializes the SQLite catalog database.
func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	d := &Database{db: db}
	if err := d.migrate(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Database) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS catalog_entries (
		id TEXT PRIMARY KEY,
		book_key TEXT NOT NULL,
		edition_number INTEGER NOT NULL DEFAULT 1,
		edition_type TEXT NOT NULL DEFAULT '',
		publication_year INTEGER DEFAULT 0,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(book_key, edition_number, edition_type)
	);

	CREATE TABLE IF NOT EXISTS catalog_records (
		id TEXT PRIMARY KEY,
		entry_id TEXT NOT NULL,
		isbn TEXT NOT NULL DEFAULT '',
		title TEXT NOT NULL,
		subtitle TEXT NOT NULL DEFAULT '',
		authors TEXT NOT NULL DEFAULT '',
		binding_type TEXT NOT NULL DEFAULT 'unknown',
		publisher TEXT NOT NULL DEFAULT '',
		publish_date TEXT NOT NULL DEFAULT '',
		cover_url TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		pages INTEGER DEFAULT 0,
		language TEXT NOT NULL DEFAULT '',
		source TEXT NOT NULL DEFAULT '',
		UNIQUE(entry_id, isbn, binding_type),
		FOREIGN KEY (entry_id) REFERENCES catalog_entries(id) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_catalog_entries_book ON catalog_entries(book_key);
	CREATE INDEX IF NOT EXISTS idx_catalog_records_isbn ON catalog_records(isbn);
	`
	_, err := d.db.Exec(schema)
	return err
}

// Entry is one persisted edition group.
type Entry struct {
	ID            string    `json:"id"`
	BookKey       string    `json:"book_key"`
	EditionNumber int       `json:"edition_number"`
	EditionType   string    `json:"edition_type,omitempty"`
	Year          int       `json:"publication_year,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// SaveEditionGroups upserts one work's edition groups and their member
// records. (book_key, edition_number, edition_type) and
// (entry, isbn, binding_type) are the natural dedup keys, so replays are
// idempotent.
func (d *Database) SaveEditionGroups(bookKey string, groups []catalog.EditionGroup) error {
	tx, err := d.db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, g := range groups {
		if _, err := tx.Exec(`
			INSERT INTO catalog_entries (id, book_key, edition_number, edition_type, publication_year)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(book_key, edition_number, edition_type)
			DO UPDATE SET publication_year = CASE
				WHEN catalog_entries.publication_year = 0 THEN excluded.publication_year
				ELSE catalog_entries.publication_year END`,
			uuid.New().String(), bookKey, g.Number, g.Type, g.Year,
		); err != nil {
			return fmt.Errorf("upsert entry: %w", err)
		}

		var entryID string
		if err := tx.QueryRow(`
			SELECT id FROM catalog_entries
			WHERE book_key = ? AND edition_number = ? AND edition_type = ?`,
			bookKey, g.Number, g.Type,
		).Scan(&entryID); err != nil {
			return fmt.Errorf("resolve entry: %w", err)
		}

		for _, r := range g.Books {
			if _, err := tx.Exec(`
				INSERT INTO catalog_records
					(id, entry_id, isbn, title, subtitle, authors, binding_type,
					 publisher, publish_date, cover_url, description, pages, language, source)
				VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
				ON CONFLICT(entry_id, isbn, binding_type) DO UPDATE SET
					title = excluded.title,
					subtitle = excluded.subtitle,
					authors = excluded.authors,
					publisher = excluded.publisher,
					publish_date = excluded.publish_date,
					cover_url = excluded.cover_url,
					description = excluded.description,
					pages = excluded.pages,
					language = excluded.language,
					source = excluded.source`,
				uuid.New().String(), entryID,
				catalog.NormalizeISBN(r.ISBN), r.Title, r.Subtitle, joinAuthors(r.Authors),
				catalog.NormalizeBinding(r.Binding), r.Publisher, r.PublishDate,
				r.CoverURL, r.Description, r.Pages, r.Language, r.Source,
			); err != nil {
				return fmt.Errorf("upsert record: %w", err)
			}
		}
	}
	return tx.Commit()
}

// ListEntries returns all persisted edition groups, numeric editions first
// (newest first) within a work, matching the grouper's display order.
func (d *Database) ListEntries() ([]Entry, error) {
	rows, err := d.db.Query(`
		SELECT id, book_key, edition_number, edition_type, publication_year, created_at
		FROM catalog_entries
		ORDER BY book_key, edition_type <> '', edition_number DESC, edition_type`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.BookKey, &e.EditionNumber, &e.EditionType, &e.Year, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// GetEntryRecords returns the member records of one persisted edition.
func (d *Database) GetEntryRecords(entryID string) ([]catalog.BookRecord, error) {
	rows, err := d.db.Query(`
		SELECT isbn, title, subtitle, authors, binding_type, publisher,
		       publish_date, cover_url, description, pages, language, source
		FROM catalog_records WHERE entry_id = ?`, entryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []catalog.BookRecord
	for rows.Next() {
		var r catalog.BookRecord
		var authors string
		if err := rows.Scan(&r.ISBN, &r.Title, &r.Subtitle, &authors, &r.Binding,
			&r.Publisher, &r.PublishDate, &r.CoverURL, &r.Description,
			&r.Pages, &r.Language, &r.Source); err != nil {
			return nil, err
		}
		r.Authors = splitAuthors(authors)
		records = append(records, r)
	}
	return records, rows.Err()
}

// Close closes the underlying database handle.
func (d *Database) Close() error {
	return d.db.Close()
}

const authorSep = "\x1f"

func joinAuthors(authors []string) string {
	return strings.Join(authors, authorSep)
}

func splitAuthors(s string) []string {
	if s == "" {
		return nil
	}
	return strings.Split(s, authorSep)
}
