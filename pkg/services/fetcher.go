package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/kerbaras/mangadex-dl/pkg/data"
	"github.com/kerbaras/mangadex-dl/pkg/utils"
	"go.uber.org/zap"
)

// FetchPage downloads one page of a resolved chapter into destDir/pageID.
//
// A page id that is not a plain file name is rejected with ErrInvalidPageID.
// With skip set, an existing file short-circuits the call before any
// network traffic. Otherwise the page is requested from the chapter's
// delivery host, reported when that host is not the origin, written on 200
// and followed by a throttle wait whatever the outcome. A non-200 status is
// returned in the result, not as an error.
func (d *Downloader) FetchPage(ctx context.Context, chapter *data.Chapter, quality data.Quality, pageID, destDir string, skip bool) (data.PageResult, error) {
	if !utils.IsPlainFilename(pageID) {
		d.logger.Error("Rejected page id", zap.String("chapter", chapter.ID), zap.String("page", pageID))
		return data.PageResult{}, fmt.Errorf("%w: %q", ErrInvalidPageID, pageID)
	}

	path := filepath.Join(destDir, pageID)
	if skip {
		if _, err := os.Stat(path); err == nil {
			d.logger.Warn("Skipping page", zap.String("page", pageID))
			return data.PageResult{Skipped: true}, nil
		}
	}

	pageURL := fmt.Sprintf("%s/%s/%s/%s", strings.TrimRight(chapter.Host, "/"), quality, chapter.Hash, pageID)
	result, err := d.fetch(ctx, pageURL, path)

	if werr := d.throttle.Wait(ctx); werr != nil && err == nil {
		err = werr
	}
	return result, err
}

func (d *Downloader) fetch(ctx context.Context, pageURL, path string) (data.PageResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return data.PageResult{}, err
	}

	start := time.Now()
	resp, err := d.client.Do(req)
	if err != nil {
		return data.PageResult{}, fmt.Errorf("failed to fetch page: %w", err)
	}
	defer resp.Body.Close()

	body, readErr := io.ReadAll(resp.Body)
	result := data.PageResult{
		Status:  resp.StatusCode,
		Bytes:   len(body),
		Elapsed: time.Since(start),
	}

	if !d.isOrigin(resp.Request.URL) {
		d.report(ctx, data.DeliveryReport{
			URL:      resp.Request.URL.String(),
			Success:  readErr == nil && resp.StatusCode >= 200 && resp.StatusCode <= 299,
			Bytes:    result.Bytes,
			Duration: result.Elapsed.Seconds(),
			Cached:   false,
		})
	}

	if readErr != nil {
		return result, fmt.Errorf("failed to read page: %w", readErr)
	}

	if resp.StatusCode != http.StatusOK {
		d.logger.Error("ERROR while retrieving page",
			zap.Int("status", resp.StatusCode),
			zap.String("url", pageURL))
		return result, nil
	}

	if err := os.WriteFile(path, body, 0644); err != nil {
		return result, fmt.Errorf("failed to write page: %w", err)
	}
	return result, nil
}

func (d *Downloader) isOrigin(u *url.URL) bool {
	return d.originHost != "" && strings.Contains(u.Host, d.originHost)
}

// report posts a delivery report. Failures are logged and otherwise ignored.
func (d *Downloader) report(ctx context.Context, report data.DeliveryReport) {
	if d.reporter == nil {
		return
	}
	if err := d.reporter.Report(ctx, report); err != nil {
		d.logger.Warn("Delivery report failed", zap.String("url", report.URL), zap.Error(err))
		return
	}
	d.logger.Debug("Delivery reported",
		zap.String("url", report.URL),
		zap.Bool("success", report.Success),
		zap.Int("bytes", report.Bytes))
}
