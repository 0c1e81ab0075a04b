package data

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/marcboeker/go-duckdb/v2"
)

const schema = `
CREATE TABLE IF NOT EXISTS attempts (
	run_id       VARCHAR NOT NULL,
	title_id     VARCHAR NOT NULL,
	chapter_id   VARCHAR NOT NULL,
	page_id      VARCHAR NOT NULL,
	quality      VARCHAR NOT NULL,
	status       INTEGER NOT NULL,
	bytes        BIGINT NOT NULL,
	elapsed_ms   BIGINT NOT NULL,
	skipped      BOOLEAN NOT NULL,
	retry        BOOLEAN NOT NULL,
	attempted_at TIMESTAMP NOT NULL
)`

func InitDuckDB(path string) (*sql.DB, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return db, nil
}

// Repository is the download ledger. It is append-only during a run and is
// never consulted to skip work.
type Repository struct {
	db *sql.DB
}

func NewDuckDBRepository(path string) (*Repository, error) {
	db, err := InitDuckDB(path)
	if err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

func (r *Repository) RecordAttempt(a *Attempt) error {
	at := a.At
	if at.IsZero() {
		at = time.Now()
	}
	_, err := r.db.Exec(
		`INSERT INTO attempts VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.RunID, a.TitleID, a.ChapterID, a.PageID, string(a.Quality),
		a.Status, a.Bytes, a.Elapsed.Milliseconds(), a.Skipped, a.Retry, at,
	)
	if err != nil {
		return fmt.Errorf("failed to record attempt: %w", err)
	}
	return nil
}

// ListRuns returns the most recent runs first. A 504 attempt followed by a
// retry of the same page is not counted as failed; the retry's own outcome is.
func (r *Repository) ListRuns(limit int) ([]*RunSummary, error) {
	rows, err := r.db.Query(`
		WITH outcomes AS (
			SELECT
				*,
				NOT retry AND BOOL_OR(retry) OVER (PARTITION BY run_id, chapter_id, page_id) AS superseded
			FROM attempts
		)
		SELECT
			run_id,
			title_id,
			MIN(attempted_at),
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 200),
			COUNT(*) FILTER (WHERE skipped),
			COUNT(*) FILTER (WHERE NOT skipped AND status <> 200 AND NOT superseded),
			CAST(COALESCE(SUM(bytes), 0) AS BIGINT)
		FROM outcomes
		GROUP BY run_id, title_id
		ORDER BY MIN(attempted_at) DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []*RunSummary
	for rows.Next() {
		run := &RunSummary{}
		if err := rows.Scan(
			&run.RunID, &run.TitleID, &run.StartedAt,
			&run.Attempts, &run.Succeeded, &run.Skipped, &run.Failed, &run.Bytes,
		); err != nil {
			return nil, err
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

func (r *Repository) Close() error {
	return r.db.Close()
}
