package sources

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"

	"github.com/kerbaras/mangadex-dl/pkg/data"
	"github.com/kerbaras/mangadex-dl/pkg/utils"
	"go.uber.org/zap"
)

const (
	DefaultBaseURL   = "https://api.mangadex.org"
	DefaultReportURL = "https://api.mangadex.network/report"
)

type Manga struct {
	ID         string `json:"id"`
	Attributes struct {
		Title map[string]string `json:"title"`
	} `json:"attributes"`
}

func (m *Manga) ToTitle() *data.Title {
	return &data.Title{
		ID:   m.ID,
		Name: localized(m.Attributes.Title, "en"),
	}
}

type Chapter struct {
	ID         string `json:"id"`
	Attributes struct {
		Title    string `json:"title"`
		Language string `json:"translatedLanguage"`
	} `json:"attributes"`
}

func (c *Chapter) ToChapter() *data.Chapter {
	return &data.Chapter{
		ID:    c.ID,
		Title: c.Attributes.Title,
		State: data.ChapterPending,
	}
}

type AtHome struct {
	BaseURL string `json:"baseUrl"`
	Chapter struct {
		Hash      string   `json:"hash"`
		Data      []string `json:"data"`
		DataSaver []string `json:"dataSaver"`
	} `json:"chapter"`
}

type MangaDex struct {
	api       *utils.API
	reportURL string
	logger    *zap.Logger
}

// NewMangaDex returns a client for the public API. A nil client uses
// http.DefaultClient and a nil logger discards output.
func NewMangaDex(client *http.Client, baseURL, reportURL, userAgent string, logger *zap.Logger) *MangaDex {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if reportURL == "" {
		reportURL = DefaultReportURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MangaDex{
		api:       utils.NewAPI(client, baseURL, userAgent),
		reportURL: reportURL,
		logger:    logger,
	}
}

func (m *MangaDex) Search(ctx context.Context, query string) ([]data.Title, error) {
	params := url.Values{"title": {query}, "limit": {"20"}}
	var mangas struct {
		Data []Manga `json:"data"`
	}
	if err := m.api.Get(ctx, "/manga", params, &mangas); err != nil {
		return nil, err
	}
	out := make([]data.Title, len(mangas.Data))
	for i, manga := range mangas.Data {
		out[i] = *manga.ToTitle()
	}
	return out, nil
}

func (m *MangaDex) GetManga(ctx context.Context, id string) (*data.Title, error) {
	var manga struct {
		Data Manga `json:"data"`
	}
	if err := m.api.Get(ctx, "/manga/"+url.PathEscape(id), nil, &manga); err != nil {
		return nil, err
	}
	title := manga.Data.ToTitle()
	if title.ID == "" {
		title.ID = id
	}
	return title, nil
}

// GetChapters returns the first page of the title's feed in server order.
// Pagination is not followed; a truncated feed is logged.
func (m *MangaDex) GetChapters(ctx context.Context, title *data.Title, language string) ([]*data.Chapter, error) {
	if language == "" {
		language = "en"
	}
	params := url.Values{"translatedLanguage[]": {language}}
	var feed struct {
		Data  []Chapter `json:"data"`
		Total int       `json:"total"`
	}
	if err := m.api.Get(ctx, fmt.Sprintf("/manga/%s/feed", url.PathEscape(title.ID)), params, &feed); err != nil {
		return nil, err
	}
	if feed.Total > len(feed.Data) {
		m.logger.Warn("Chapter feed is paginated, only the first page is used",
			zap.String("manga", title.ID),
			zap.Int("returned", len(feed.Data)),
			zap.Int("total", feed.Total))
	}
	out := make([]*data.Chapter, len(feed.Data))
	for i, chapter := range feed.Data {
		out[i] = chapter.ToChapter()
	}
	return out, nil
}

// GetAtHome resolves the delivery host and page lists for one chapter.
func (m *MangaDex) GetAtHome(ctx context.Context, chapter *data.Chapter) error {
	var server AtHome
	if err := m.api.Get(ctx, "/at-home/server/"+url.PathEscape(chapter.ID), nil, &server); err != nil {
		return err
	}
	chapter.Host = server.BaseURL
	chapter.Hash = server.Chapter.Hash
	chapter.Data = server.Chapter.Data
	chapter.DataSaver = server.Chapter.DataSaver
	return nil
}

func (m *MangaDex) Report(ctx context.Context, report data.DeliveryReport) error {
	return m.api.PostJSON(ctx, m.reportURL, report, nil)
}

// localized picks lang, falling back to the alphabetically first entry.
func localized(values map[string]string, lang string) string {
	if v, ok := values[lang]; ok {
		return v
	}
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	if len(keys) == 0 {
		return ""
	}
	return values[keys[0]]
}
