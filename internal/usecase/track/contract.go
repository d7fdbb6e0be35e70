package track

import (
	"context"

	"github.com/rikitraki/trackapi/internal/domain/search/plan"
	domtrack "github.com/rikitraki/trackapi/internal/domain/track"
)

// Repository defines the storage contract for tracks.
type Repository interface {
	Query(ctx context.Context, d plan.Descriptor) ([]domtrack.Track, error)
	Count(ctx context.Context, d plan.Descriptor) (int, error)
	Get(ctx context.Context, id string) (domtrack.Track, error)
	Save(ctx context.Context, t *domtrack.Track) error
	Update(ctx context.Context, t *domtrack.Track, p domtrack.Patch) error
	SoftDelete(ctx context.Context, id string) error
}
