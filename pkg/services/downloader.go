package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"github.com/kerbaras/mangadex-dl/pkg/data"
	"github.com/kerbaras/mangadex-dl/pkg/sources"
	"github.com/kerbaras/mangadex-dl/pkg/utils"
	"go.uber.org/zap"
)

var (
	ErrHostUnavailable = errors.New("delivery host unavailable")
	ErrInvalidPageID   = errors.New("invalid page id")
)

// DownloadProgress represents the progress of a download operation
type DownloadProgress struct {
	TitleID      string
	TitleName    string
	ChapterID    string
	ChapterTitle string
	ChapterIndex int // 1-based position in the feed
	ChapterCount int
	CurrentPage  int
	TotalPages   int
	Status       string // "resolving", "downloading", "skipped", "retrying", "complete", "error", "done"
	Error        error
}

// Recorder stores page attempts. The DuckDB ledger implements it.
type Recorder interface {
	RecordAttempt(a *data.Attempt) error
}

type Options struct {
	DownloadDir string
	Language    string
	OriginHost  string
	RetryDelay  time.Duration
	RunID       string

	Client   *http.Client
	Throttle utils.Throttle
	Recorder Recorder
	Logger   *zap.Logger

	// Sleep waits out the retry delay; defaults to utils.Sleep.
	Sleep      func(ctx context.Context, d time.Duration) error
	OnProgress func(DownloadProgress)
}

// Downloader walks a title's chapters and pages strictly in order.
type Downloader struct {
	source   sources.Source
	reporter sources.Reporter
	recorder Recorder
	client   *http.Client
	throttle utils.Throttle
	logger   *zap.Logger

	downloadDir string
	language    string
	originHost  string
	retryDelay  time.Duration
	runID       string

	sleep      func(ctx context.Context, d time.Duration) error
	onProgress func(DownloadProgress)
}

// NewDownloader creates a new Downloader instance
func NewDownloader(source sources.Source, reporter sources.Reporter, opts Options) *Downloader {
	d := &Downloader{
		source:      source,
		reporter:    reporter,
		recorder:    opts.Recorder,
		client:      opts.Client,
		throttle:    opts.Throttle,
		logger:      opts.Logger,
		downloadDir: opts.DownloadDir,
		language:    opts.Language,
		originHost:  opts.OriginHost,
		retryDelay:  opts.RetryDelay,
		runID:       opts.RunID,
		sleep:       opts.Sleep,
		onProgress:  opts.OnProgress,
	}
	if d.client == nil {
		d.client = http.DefaultClient
	}
	if d.throttle == nil {
		d.throttle = utils.NewIntervalThrottle(5 * time.Second)
	}
	if d.logger == nil {
		d.logger = zap.NewNop()
	}
	if d.downloadDir == "" {
		d.downloadDir = "."
	}
	if d.language == "" {
		d.language = "en"
	}
	if d.runID == "" {
		d.runID = uuid.NewString()
	}
	if d.sleep == nil {
		d.sleep = utils.Sleep
	}
	return d
}

func (d *Downloader) RunID() string {
	return d.runID
}

// DownloadManga resolves a title and downloads every chapter of its feed in
// order. A chapter whose host cannot be resolved is logged and skipped; only
// a failed title lookup or a cancelled context ends the run early.
func (d *Downloader) DownloadManga(ctx context.Context, titleID string, quality data.Quality, skip bool) (*data.Title, error) {
	d.logger.Info("Attempting to retrieve manga", zap.String("manga", titleID))

	title, err := d.source.GetManga(ctx, titleID)
	if err != nil {
		d.logger.Error("ERROR while retrieving manga", zap.String("manga", titleID), zap.Error(err))
		return nil, fmt.Errorf("failed to get manga: %w", err)
	}

	chapters, err := d.source.GetChapters(ctx, title, d.language)
	if err != nil {
		d.logger.Error("ERROR while retrieving chapter feed", zap.String("manga", titleID), zap.Error(err))
		return nil, fmt.Errorf("failed to get chapters: %w", err)
	}
	title.Chapters = chapters

	title.Dir = filepath.Join(d.downloadDir, TitleDirName(title))
	if err := os.MkdirAll(title.Dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create title directory: %w", err)
	}

	for i, chapter := range chapters {
		if err := ctx.Err(); err != nil {
			return title, err
		}

		d.sendProgress(DownloadProgress{
			TitleID:      title.ID,
			TitleName:    title.Name,
			ChapterID:    chapter.ID,
			ChapterTitle: chapter.Title,
			ChapterIndex: i + 1,
			ChapterCount: len(chapters),
			Status:       "resolving",
		})

		if err := d.DownloadChapter(ctx, title, chapter, quality, skip); err != nil {
			if ctx.Err() != nil {
				return title, ctx.Err()
			}
			d.sendProgress(DownloadProgress{
				TitleID:      title.ID,
				ChapterID:    chapter.ID,
				ChapterIndex: i + 1,
				ChapterCount: len(chapters),
				Status:       "error",
				Error:        err,
			})
		}
	}

	d.sendProgress(DownloadProgress{
		TitleID:      title.ID,
		TitleName:    title.Name,
		ChapterCount: len(chapters),
		Status:       "done",
	})
	d.logger.Info("Completed manga", zap.String("manga", title.ID), zap.Int("chapters", len(chapters)))
	return title, nil
}

// DownloadChapter resolves a delivery host for the chapter and fetches its
// pages into a directory under title.Dir.
//
// A page answered with 504 is retried exactly once after the retry delay;
// the retry's outcome is logged and never retried again. Other failures
// leave the page unwritten. The chapter is marked completed regardless of
// individual page outcomes.
func (d *Downloader) DownloadChapter(ctx context.Context, title *data.Title, chapter *data.Chapter, quality data.Quality, skip bool) error {
	chapter.State = data.ChapterPending
	d.logger.Info("Retrieving chapter", zap.String("chapter", chapter.ID))

	if err := d.source.GetAtHome(ctx, chapter); err != nil {
		chapter.State = data.ChapterHostResolutionFailed
		d.logger.Error("ERROR while retrieving chapter", zap.String("chapter", chapter.ID), zap.Error(err))
		return fmt.Errorf("%w: chapter %s: %w", ErrHostUnavailable, chapter.ID, err)
	}
	chapter.State = data.ChapterHostResolved

	chapter.Dir = filepath.Join(title.Dir, ChapterDirName(chapter))
	if err := os.MkdirAll(chapter.Dir, 0755); err != nil {
		return fmt.Errorf("failed to create chapter directory: %w", err)
	}

	chapter.State = data.ChapterDownloading
	pages := chapter.Pages(quality)

	for i, page := range pages {
		progress := DownloadProgress{
			TitleID:      title.ID,
			ChapterID:    chapter.ID,
			ChapterTitle: chapter.Title,
			CurrentPage:  i + 1,
			TotalPages:   len(pages),
			Status:       "downloading",
		}
		d.sendProgress(progress)

		result, err := d.FetchPage(ctx, chapter, quality, page, chapter.Dir, skip)
		if errors.Is(err, ErrInvalidPageID) {
			continue
		}
		d.record(title, chapter, page, quality, result, false)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Error("ERROR while retrieving page", zap.String("page", page), zap.Error(err))
			continue
		}

		if result.Skipped {
			progress.Status = "skipped"
			d.sendProgress(progress)
			continue
		}

		if result.Status == http.StatusGatewayTimeout {
			d.logger.Warn("Gateway timeout, retrying page once",
				zap.String("page", page),
				zap.Duration("delay", d.retryDelay))
			progress.Status = "retrying"
			d.sendProgress(progress)

			if err := d.sleep(ctx, d.retryDelay); err != nil {
				return err
			}

			retry, err := d.FetchPage(ctx, chapter, quality, page, chapter.Dir, skip)
			d.record(title, chapter, page, quality, retry, true)
			if err != nil && ctx.Err() != nil {
				return ctx.Err()
			}
			d.logger.Info("Retry finished",
				zap.String("page", page),
				zap.Int("status", retry.Status),
				zap.Error(err))
		}
	}

	chapter.State = data.ChapterCompleted
	d.sendProgress(DownloadProgress{
		TitleID:      title.ID,
		ChapterID:    chapter.ID,
		ChapterTitle: chapter.Title,
		CurrentPage:  len(pages),
		TotalPages:   len(pages),
		Status:       "complete",
	})
	d.logger.Info("Completed chapter", zap.String("chapter", chapter.ID))
	return nil
}

func (d *Downloader) record(title *data.Title, chapter *data.Chapter, page string, quality data.Quality, result data.PageResult, retry bool) {
	if d.recorder == nil {
		return
	}
	err := d.recorder.RecordAttempt(&data.Attempt{
		RunID:     d.runID,
		TitleID:   title.ID,
		ChapterID: chapter.ID,
		PageID:    page,
		Quality:   quality,
		Status:    result.Status,
		Bytes:     result.Bytes,
		Elapsed:   result.Elapsed,
		Skipped:   result.Skipped,
		Retry:     retry,
		At:        time.Now(),
	})
	if err != nil {
		d.logger.Warn("Failed to record attempt", zap.String("page", page), zap.Error(err))
	}
}

func (d *Downloader) sendProgress(progress DownloadProgress) {
	if d.onProgress != nil {
		d.onProgress(progress)
	}
}

// TitleDirName is the folder of a title: Mangadex-{title}-{id}.
func TitleDirName(title *data.Title) string {
	return utils.SanitizeFilename(fmt.Sprintf("Mangadex-%s-%s", title.Name, title.ID))
}

// ChapterDirName is the folder of a chapter: MDX-{chapterTitle}-{chapterId}.
func ChapterDirName(chapter *data.Chapter) string {
	return utils.SanitizeFilename(fmt.Sprintf("MDX-%s-%s", chapter.Title, chapter.ID))
}
