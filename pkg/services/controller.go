package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/kerbaras/mangadex-dl/pkg/config"
	"github.com/kerbaras/mangadex-dl/pkg/data"
	"github.com/kerbaras/mangadex-dl/pkg/integrations"
	"github.com/kerbaras/mangadex-dl/pkg/sources"
	"github.com/kerbaras/mangadex-dl/pkg/utils"
	"go.uber.org/zap"
)

// MangaController wires the configured source, ledger and downloader for
// the CLI.
type MangaController struct {
	source     *sources.MangaDex
	repo       *data.Repository
	downloader *Downloader
	logger     *zap.Logger
}

func NewMangaController(cfg *config.Config, logger *zap.Logger, onProgress func(DownloadProgress)) (*MangaController, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	client := &http.Client{Timeout: cfg.Timeout()}
	source := sources.NewMangaDex(client, cfg.API.BaseURL, cfg.API.ReportURL, cfg.API.UserAgent, logger)

	var repo *data.Repository
	opts := Options{
		DownloadDir: cfg.Download.Dir,
		Language:    cfg.API.Language,
		OriginHost:  cfg.API.OriginHost,
		RetryDelay:  cfg.RetryDelay(),
		Client:      client,
		Throttle:    NewThrottle(cfg),
		Logger:      logger,
		OnProgress:  onProgress,
	}
	if cfg.Ledger.Path != "" {
		var err error
		repo, err = data.NewDuckDBRepository(cfg.Ledger.Path)
		if err != nil {
			return nil, fmt.Errorf("failed to open ledger: %w", err)
		}
		opts.Recorder = repo
	}

	return &MangaController{
		source:     source,
		repo:       repo,
		downloader: NewDownloader(source, source, opts),
		logger:     logger,
	}, nil
}

// NewThrottle builds the page throttle selected by download.throttle.
func NewThrottle(cfg *config.Config) utils.Throttle {
	if cfg.Download.Throttle == "bucket" {
		return utils.NewBucketThrottle(cfg.PageDelay(), cfg.Download.Burst)
	}
	return utils.NewIntervalThrottle(cfg.PageDelay())
}

func (c *MangaController) SearchManga(ctx context.Context, query string) ([]data.Title, error) {
	return c.source.Search(ctx, query)
}

// DownloadManga downloads a title and, with pack set, bundles the completed
// chapters into <title-dir>.epub next to the title directory.
func (c *MangaController) DownloadManga(ctx context.Context, titleID string, quality data.Quality, skip, pack bool) (*data.Title, string, error) {
	title, err := c.downloader.DownloadManga(ctx, titleID, quality, skip)
	if err != nil {
		return title, "", err
	}
	if !pack {
		return title, "", nil
	}

	epubPath, err := integrations.NewEPubBuilder().CreateEPub(title, quality)
	if err != nil {
		c.logger.Error("EPUB generation failed", zap.String("manga", title.ID), zap.Error(err))
		return title, "", fmt.Errorf("EPUB generation failed: %w", err)
	}
	c.logger.Info("EPUB created", zap.String("path", epubPath))
	return title, epubPath, nil
}

func (c *MangaController) RunID() string {
	return c.downloader.RunID()
}

func (c *MangaController) Close() error {
	if c.repo != nil {
		return c.repo.Close()
	}
	return nil
}
