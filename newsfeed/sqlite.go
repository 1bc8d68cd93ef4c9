package newsfeed

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore keeps category reports in a SQLite database. Only the latest
// report of each category is kept.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore creates a new store with the given database path.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates the tables if they don't exist.
func (s *SQLiteStore) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS reports (
		category TEXT PRIMARY KEY,
		run_id TEXT NOT NULL,
		scraped_at TEXT NOT NULL,
		total_articles INTEGER NOT NULL
	);
	CREATE TABLE IF NOT EXISTS articles (
		category TEXT NOT NULL,
		position INTEGER NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		url TEXT NOT NULL,
		source TEXT NOT NULL,
		published_date TEXT,
		author TEXT,
		content TEXT NOT NULL,
		PRIMARY KEY (category, position)
	);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Save replaces the stored report for the report's category.
func (s *SQLiteStore) Save(report CategoryReport) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM articles WHERE category = ?", report.Category); err != nil {
		return fmt.Errorf("failed to clear articles: %w", err)
	}

	_, err = tx.Exec(
		"INSERT OR REPLACE INTO reports (category, run_id, scraped_at, total_articles) VALUES (?, ?, ?, ?)",
		report.Category,
		report.RunID.String(),
		report.ScrapedAt.Format(time.RFC3339Nano),
		len(report.Articles),
	)
	if err != nil {
		return fmt.Errorf("failed to insert report: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO articles (category, position, title, description, url, source, published_date, author, content)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for i, a := range report.Articles {
		_, err := stmt.Exec(
			report.Category, i,
			a.Title, a.Description, a.URL, a.Source,
			nullString(a.PublishedDate), nullString(a.Author),
			a.Content,
		)
		if err != nil {
			return fmt.Errorf("failed to insert article: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit report: %w", err)
	}
	return nil
}

// List returns every stored report ordered by category name. A report
// whose rows cannot be read is recorded in Errors.
func (s *SQLiteStore) List() (*ListResult, error) {
	rows, err := s.db.Query("SELECT category FROM reports ORDER BY category")
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}

	var categories []string
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan report: %w", err)
		}
		categories = append(categories, c)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}

	result := &ListResult{}
	for _, c := range categories {
		report, err := s.Get(c)
		if err != nil {
			result.Errors = append(result.Errors, ReadError{Filename: c, Err: err})
			continue
		}
		if report != nil {
			result.Reports = append(result.Reports, *report)
		}
	}
	return result, nil
}

// Get retrieves the report for a category.
func (s *SQLiteStore) Get(category string) (*CategoryReport, error) {
	var runID, scrapedAt string
	report := CategoryReport{Category: category}

	err := s.db.QueryRow(
		"SELECT run_id, scraped_at, total_articles FROM reports WHERE category = ?", category,
	).Scan(&runID, &scrapedAt, &report.TotalArticles)
	if err == sql.ErrNoRows {
		return nil, nil // Not saved yet (not an error)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query report: %w", err)
	}

	if report.RunID, err = uuid.Parse(runID); err != nil {
		return nil, fmt.Errorf("invalid run_id: %w", err)
	}
	if report.ScrapedAt, err = time.Parse(time.RFC3339Nano, scrapedAt); err != nil {
		return nil, fmt.Errorf("invalid scraped_at: %w", err)
	}

	rows, err := s.db.Query(`
		SELECT title, description, url, source, published_date, author, content
		FROM articles WHERE category = ? ORDER BY position
	`, category)
	if err != nil {
		return nil, fmt.Errorf("failed to query articles: %w", err)
	}
	defer rows.Close()

	report.Articles = []Article{}
	for rows.Next() {
		var a Article
		var published, author sql.NullString
		if err := rows.Scan(&a.Title, &a.Description, &a.URL, &a.Source, &published, &author, &a.Content); err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		a.Category = category
		a.PublishedDate = stringPtr(published)
		a.Author = stringPtr(author)
		report.Articles = append(report.Articles, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate articles: %w", err)
	}

	return &report, nil
}

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
