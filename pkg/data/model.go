package data

import (
	"fmt"
	"strings"
	"time"
)

type Quality string

const (
	QualityData      Quality = "data"       // full resolution pages
	QualityDataSaver Quality = "data-saver" // reduced pages
)

// ParseQuality accepts the path tags as well as the numeric flags of the
// old CLI (0 = data, 1 = data-saver).
func ParseQuality(s string) (Quality, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "data", "0":
		return QualityData, nil
	case "data-saver", "datasaver", "1":
		return QualityDataSaver, nil
	}
	return "", fmt.Errorf("unknown quality %q (use data or data-saver)", s)
}

type ChapterState string

const (
	ChapterPending              ChapterState = "PENDING"
	ChapterHostResolved         ChapterState = "HOST_RESOLVED"
	ChapterDownloading          ChapterState = "DOWNLOADING"
	ChapterCompleted            ChapterState = "COMPLETED"
	ChapterHostResolutionFailed ChapterState = "HOST_RESOLUTION_FAILED"
)

type Title struct {
	ID       string
	Name     string
	Dir      string // Path to the title directory, set once downloading starts
	Chapters []*Chapter
}

type Chapter struct {
	ID    string
	Title string

	// Delivery host data is only valid for the pages of the same at-home
	// response and is resolved again for every chapter.
	Host      string
	Hash      string
	Data      []string
	DataSaver []string

	Dir   string
	State ChapterState
}

// Pages returns the page identifiers for the requested quality.
func (c *Chapter) Pages(q Quality) []string {
	if q == QualityData {
		return c.Data
	}
	return c.DataSaver
}

// PageResult describes one page fetch attempt.
type PageResult struct {
	Status  int
	Skipped bool
	Bytes   int
	Elapsed time.Duration
}

// DeliveryReport is posted to the network report endpoint after fetching a
// page from a non-origin host.
type DeliveryReport struct {
	URL      string  `json:"url"`
	Success  bool    `json:"success"`
	Bytes    int     `json:"bytes"`
	Duration float64 `json:"duration"`
	Cached   bool    `json:"cached"`
}

// Attempt is one row of the download ledger.
type Attempt struct {
	RunID     string
	TitleID   string
	ChapterID string
	PageID    string
	Quality   Quality
	Status    int
	Bytes     int
	Elapsed   time.Duration
	Skipped   bool
	Retry     bool
	At        time.Time
}

// RunSummary aggregates the attempts of one run.
type RunSummary struct {
	RunID     string
	TitleID   string
	StartedAt time.Time
	Attempts  int
	Succeeded int
	Skipped   int
	Failed    int
	Bytes     int64
}
