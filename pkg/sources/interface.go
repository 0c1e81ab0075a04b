package sources

import (
	"context"

	"github.com/kerbaras/mangadex-dl/pkg/data"
)

type Source interface {
	Search(ctx context.Context, query string) ([]data.Title, error)
	GetManga(ctx context.Context, id string) (*data.Title, error)
	GetChapters(ctx context.Context, title *data.Title, language string) ([]*data.Chapter, error)
	GetAtHome(ctx context.Context, chapter *data.Chapter) error
}

// Reporter receives delivery health reports for non-origin hosts.
type Reporter interface {
	Report(ctx context.Context, report data.DeliveryReport) error
}
