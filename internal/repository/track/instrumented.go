package track

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rikitraki/trackapi/internal/domain/search/plan"
	domtrack "github.com/rikitraki/trackapi/internal/domain/track"
	"github.com/rikitraki/trackapi/internal/metrics"
)

// Instrumented wraps Repo with store query metrics and slow-query logging.
// Writes and point reads are passed through unmeasured.
type Instrumented struct {
	*Repo
	slow   time.Duration
	logger *zap.Logger
}

// NewInstrumented wraps r. A zero slow threshold disables slow-query logs.
func NewInstrumented(r *Repo, slow time.Duration, logger *zap.Logger) *Instrumented {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Instrumented{Repo: r, slow: slow, logger: logger}
}

// Query implements the location and track repository contracts.
func (i *Instrumented) Query(ctx context.Context, d plan.Descriptor) ([]domtrack.Track, error) {
	start := time.Now()
	tracks, err := i.Repo.Query(ctx, d)
	i.observe(d.Index, 1, time.Since(start), err)
	return tracks, err
}

// QueryMulti implements the location repository contract.
func (i *Instrumented) QueryMulti(ctx context.Context, ds []plan.Descriptor) ([][]domtrack.Track, error) {
	if len(ds) == 0 {
		return i.Repo.QueryMulti(ctx, ds)
	}
	start := time.Now()
	out, err := i.Repo.QueryMulti(ctx, ds)
	i.observe(ds[0].Index, len(ds), time.Since(start), err)
	return out, err
}

// Count implements the track repository contract.
func (i *Instrumented) Count(ctx context.Context, d plan.Descriptor) (int, error) {
	start := time.Now()
	n, err := i.Repo.Count(ctx, d)
	i.observe(d.Index, 1, time.Since(start), err)
	return n, err
}

func (i *Instrumented) observe(index plan.Index, n int, dur time.Duration, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.StoreQueriesTotal.WithLabelValues(string(index), status).Add(float64(n))
	metrics.StoreQueryDuration.WithLabelValues(string(index)).Observe(dur.Seconds())

	if i.slow > 0 && dur >= i.slow {
		i.logger.Warn("slow store query",
			zap.String("index", string(index)),
			zap.Int("queries", n),
			zap.Duration("duration", dur),
		)
	}
}
