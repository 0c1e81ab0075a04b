package services

import (
	"archive/zip"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kerbaras/mangadex-dl/pkg/config"
	"github.com/kerbaras/mangadex-dl/pkg/data"
	"github.com/kerbaras/mangadex-dl/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeMangaDex answers the API, at-home and page endpoints from one server.
type fakeMangaDex struct {
	*httptest.Server

	mu      sync.Mutex
	reports int
}

func newFakeMangaDex(t *testing.T) *fakeMangaDex {
	t.Helper()
	f := &fakeMangaDex{}
	mux := http.NewServeMux()
	mux.HandleFunc("/manga", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"m1","attributes":{"title":{"en":"Fake Manga"}}}]}`)
	})
	mux.HandleFunc("/manga/m1", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":{"id":"m1","attributes":{"title":{"en":"Fake Manga"}}}}`)
	})
	mux.HandleFunc("/manga/m1/feed", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"data":[{"id":"c1","attributes":{"title":"One"}},{"id":"c2","attributes":{"title":"Two"}}],"total":2}`)
	})
	mux.HandleFunc("/at-home/server/", func(w http.ResponseWriter, r *http.Request) {
		id := filepath.Base(r.URL.Path)
		fmt.Fprintf(w, `{"result":"ok","baseUrl":%q,"chapter":{"hash":"h-%s","data":["1.png","2.png"],"dataSaver":["1.jpg"]}}`, f.URL, id)
	})
	mux.HandleFunc("/report", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		f.reports++
		f.mu.Unlock()
		fmt.Fprint(w, `{"result":"ok"}`)
	})
	mux.HandleFunc("/data/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("page"))
	})
	mux.HandleFunc("/data-saver/", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("small"))
	})
	f.Server = httptest.NewServer(mux)
	t.Cleanup(f.Close)
	return f
}

func (f *fakeMangaDex) reportCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.reports
}

func testConfig(t *testing.T, server *fakeMangaDex) *config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.API.BaseURL = server.URL
	cfg.API.ReportURL = server.URL + "/report"
	cfg.Download.Dir = t.TempDir()
	cfg.Download.PageDelay = "0s"
	cfg.Download.RetryDelay = "0s"
	return cfg
}

func TestNewThrottle(t *testing.T) {
	cfg := config.DefaultConfig()
	_, ok := NewThrottle(cfg).(*utils.IntervalThrottle)
	assert.True(t, ok)

	cfg.Download.Throttle = "bucket"
	cfg.Download.Burst = 3
	_, ok = NewThrottle(cfg).(*utils.BucketThrottle)
	assert.True(t, ok)
}

func TestMangaController_SearchManga(t *testing.T) {
	server := newFakeMangaDex(t)
	controller, err := NewMangaController(testConfig(t, server), zap.NewNop(), nil)
	require.NoError(t, err)
	defer controller.Close()

	results, err := controller.SearchManga(context.Background(), "fake")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Fake Manga", results[0].Name)
}

func TestMangaController_DownloadManga(t *testing.T) {
	server := newFakeMangaDex(t)
	cfg := testConfig(t, server)

	var progress []DownloadProgress
	controller, err := NewMangaController(cfg, zap.NewNop(), func(p DownloadProgress) {
		progress = append(progress, p)
	})
	require.NoError(t, err)
	defer controller.Close()

	title, epubPath, err := controller.DownloadManga(context.Background(), "m1", data.QualityData, true, false)
	require.NoError(t, err)
	assert.Empty(t, epubPath)

	for _, chapter := range []string{"MDX-One-c1", "MDX-Two-c2"} {
		for _, page := range []string{"1.png", "2.png"} {
			content, err := os.ReadFile(filepath.Join(cfg.Download.Dir, "Mangadex-Fake Manga-m1", chapter, page))
			require.NoError(t, err)
			assert.Equal(t, "page", string(content))
		}
	}
	assert.Len(t, title.Chapters, 2)

	// The test server is not the origin, so every page is reported.
	assert.Equal(t, 4, server.reportCount())
	assert.Equal(t, "done", progress[len(progress)-1].Status)
}

func TestMangaController_DownloadMangaOriginNotReported(t *testing.T) {
	server := newFakeMangaDex(t)
	cfg := testConfig(t, server)
	cfg.API.OriginHost = "127.0.0.1"

	controller, err := NewMangaController(cfg, nil, nil)
	require.NoError(t, err)
	defer controller.Close()

	_, _, err = controller.DownloadManga(context.Background(), "m1", data.QualityDataSaver, true, false)
	require.NoError(t, err)
	assert.Equal(t, 0, server.reportCount())
}

func TestMangaController_DownloadMangaWithEPub(t *testing.T) {
	server := newFakeMangaDex(t)
	cfg := testConfig(t, server)

	controller, err := NewMangaController(cfg, zap.NewNop(), nil)
	require.NoError(t, err)
	defer controller.Close()

	_, epubPath, err := controller.DownloadManga(context.Background(), "m1", data.QualityData, true, true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(cfg.Download.Dir, "Mangadex-Fake Manga-m1.epub"), epubPath)

	r, err := zip.OpenReader(epubPath)
	require.NoError(t, err)
	defer r.Close()

	images := 0
	for _, f := range r.File {
		if filepath.Ext(f.Name) == ".png" {
			images++
		}
	}
	assert.Equal(t, 4, images)
}

func TestMangaController_Ledger(t *testing.T) {
	server := newFakeMangaDex(t)
	cfg := testConfig(t, server)
	cfg.Ledger.Path = filepath.Join(t.TempDir(), "ledger", "attempts.duckdb")

	controller, err := NewMangaController(cfg, zap.NewNop(), nil)
	require.NoError(t, err)

	_, _, err = controller.DownloadManga(context.Background(), "m1", data.QualityData, true, false)
	require.NoError(t, err)
	runID := controller.RunID()
	require.NoError(t, controller.Close())

	repo, err := data.NewDuckDBRepository(cfg.Ledger.Path)
	require.NoError(t, err)
	defer repo.Close()

	runs, err := repo.ListRuns(10)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, runID, runs[0].RunID)
	assert.Equal(t, "m1", runs[0].TitleID)
	assert.Equal(t, 4, runs[0].Attempts)
	assert.Equal(t, 4, runs[0].Succeeded)
	assert.Equal(t, int64(16), runs[0].Bytes)
}
