package location

import (
	"context"

	"github.com/rikitraki/trackapi/internal/domain/search/plan"
	"github.com/rikitraki/trackapi/internal/domain/track"
)

// Repository fetches candidate tracks for a location search.
type Repository interface {
	Query(ctx context.Context, d plan.Descriptor) ([]track.Track, error)
	QueryMulti(ctx context.Context, ds []plan.Descriptor) ([][]track.Track, error)
}

// Recorder receives per-search statistics.
type Recorder interface {
	ObserveLocationSearch(mode Mode, branch Branch, candidates, results int)
}
