package data

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setupTestDB(t *testing.T) (*Repository, func()) {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "mangadex-ledger-*")
	if err != nil {
		t.Fatalf("Failed to create temp dir: %v", err)
	}

	repo, err := NewDuckDBRepository(filepath.Join(tmpDir, "ledger.db"))
	if err != nil {
		os.RemoveAll(tmpDir)
		t.Fatalf("Failed to open ledger: %v", err)
	}

	cleanup := func() {
		repo.Close()
		os.RemoveAll(tmpDir)
	}

	return repo, cleanup
}

func TestInitDuckDBCreatesDirectory(t *testing.T) {
	tmpDir := t.TempDir()

	dbPath := filepath.Join(tmpDir, "nested", "dir", "ledger.db")

	db, err := InitDuckDB(dbPath)
	if err != nil {
		t.Fatalf("Failed to initialize DB with nested path: %v", err)
	}
	defer db.Close()

	var tableCount int
	err = db.QueryRow(`SELECT COUNT(*) FROM information_schema.tables WHERE table_name = 'attempts'`).Scan(&tableCount)
	if err != nil {
		t.Fatalf("Failed to query tables: %v", err)
	}
	if tableCount != 1 {
		t.Errorf("Expected attempts table, got %d tables", tableCount)
	}
}

func TestRecordAttemptAndListRuns(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	start := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	attempts := []*Attempt{
		{RunID: "run-1", TitleID: "title-1", ChapterID: "ch-1", PageID: "1.png", Quality: QualityData, Status: 200, Bytes: 100, At: start},
		{RunID: "run-1", TitleID: "title-1", ChapterID: "ch-1", PageID: "2.png", Quality: QualityData, Status: 504, At: start.Add(time.Second)},
		{RunID: "run-1", TitleID: "title-1", ChapterID: "ch-1", PageID: "2.png", Quality: QualityData, Status: 200, Bytes: 50, Retry: true, At: start.Add(2 * time.Second)},
		{RunID: "run-1", TitleID: "title-1", ChapterID: "ch-1", PageID: "3.png", Quality: QualityData, Skipped: true, At: start.Add(3 * time.Second)},
		{RunID: "run-2", TitleID: "title-2", ChapterID: "ch-9", PageID: "1.jpg", Quality: QualityDataSaver, Status: 404, At: start.Add(time.Hour)},
	}

	for _, a := range attempts {
		if err := repo.RecordAttempt(a); err != nil {
			t.Fatalf("Failed to record attempt: %v", err)
		}
	}

	runs, err := repo.ListRuns(10)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(runs))
	}

	// Most recent first
	if runs[0].RunID != "run-2" {
		t.Errorf("Expected run-2 first, got %s", runs[0].RunID)
	}
	if runs[0].Failed != 1 {
		t.Errorf("Expected 1 failed attempt in run-2, got %d", runs[0].Failed)
	}

	run := runs[1]
	if run.Attempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", run.Attempts)
	}
	if run.Succeeded != 2 {
		t.Errorf("Expected 2 succeeded, got %d", run.Succeeded)
	}
	if run.Skipped != 1 {
		t.Errorf("Expected 1 skipped, got %d", run.Skipped)
	}
	// 2.png timed out once and its retry succeeded.
	if run.Failed != 0 {
		t.Errorf("Expected 0 failed, got %d", run.Failed)
	}
	if run.Bytes != 150 {
		t.Errorf("Expected 150 bytes, got %d", run.Bytes)
	}
	if !run.StartedAt.Equal(start) {
		t.Errorf("Expected start %v, got %v", start, run.StartedAt)
	}
}

func TestListRunsCountsFailedRetryOnce(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	start := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	attempts := []*Attempt{
		{RunID: "run-1", TitleID: "t", ChapterID: "ch-1", PageID: "1.png", Quality: QualityData, Status: 504, At: start},
		{RunID: "run-1", TitleID: "t", ChapterID: "ch-1", PageID: "1.png", Quality: QualityData, Status: 504, Retry: true, At: start.Add(time.Minute)},
		{RunID: "run-1", TitleID: "t", ChapterID: "ch-2", PageID: "1.png", Quality: QualityData, Status: 504, At: start.Add(2 * time.Minute)},
		{RunID: "run-1", TitleID: "t", ChapterID: "ch-2", PageID: "1.png", Quality: QualityData, Status: 200, Bytes: 10, Retry: true, At: start.Add(3 * time.Minute)},
	}
	for _, a := range attempts {
		if err := repo.RecordAttempt(a); err != nil {
			t.Fatalf("Failed to record attempt: %v", err)
		}
	}

	runs, err := repo.ListRuns(10)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 1 {
		t.Fatalf("Expected 1 run, got %d", len(runs))
	}
	if runs[0].Attempts != 4 {
		t.Errorf("Expected 4 attempts, got %d", runs[0].Attempts)
	}
	if runs[0].Succeeded != 1 {
		t.Errorf("Expected 1 succeeded, got %d", runs[0].Succeeded)
	}
	if runs[0].Failed != 1 {
		t.Errorf("Expected 1 failed page, got %d", runs[0].Failed)
	}
}

func TestListRunsLimit(t *testing.T) {
	repo, cleanup := setupTestDB(t)
	defer cleanup()

	for _, id := range []string{"a", "b", "c"} {
		err := repo.RecordAttempt(&Attempt{RunID: id, TitleID: "t", ChapterID: "c", PageID: "p", Quality: QualityData, Status: 200})
		if err != nil {
			t.Fatalf("Failed to record attempt: %v", err)
		}
	}

	runs, err := repo.ListRuns(2)
	if err != nil {
		t.Fatalf("Failed to list runs: %v", err)
	}
	if len(runs) != 2 {
		t.Errorf("Expected 2 runs, got %d", len(runs))
	}
}
