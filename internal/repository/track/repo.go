// Package track stores tracks as Redis hashes behind one FT index and
// executes planner descriptors against it.
package track

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gobreaker "github.com/sony/gobreaker/v2"
	"go.uber.org/zap"

	"github.com/rikitraki/trackapi/internal/db"
	"github.com/rikitraki/trackapi/internal/domain"
	"github.com/rikitraki/trackapi/internal/domain/search/plan"
	domtrack "github.com/rikitraki/trackapi/internal/domain/track"
)

// store is the consumer interface for tracks (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	Exists(ctx context.Context, key string) (bool, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
	Query(ctx context.Context, q *db.IndexQuery) (*db.SearchResult, error)
	QueryMulti(ctx context.Context, qs []*db.IndexQuery) ([]*db.SearchResult, error)
	Count(ctx context.Context, q *db.IndexQuery) (int, error)
}

// Repo implements the track repositories of the use-case layer.
type Repo struct {
	store   store
	logger  *zap.Logger
	breaker *gobreaker.CircuitBreaker[any]
}

// New creates a track repository.
func New(s store, logger *zap.Logger) *Repo {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Repo{store: s, logger: logger}
}

// EnsureIndex creates the track index unless it already exists.
func (r *Repo) EnsureIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", IndexName, err)
	}
	if exists {
		return nil
	}
	if err := r.store.CreateIndex(ctx, buildIndex()); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", IndexName, err)
	}
	r.logger.Info("track index created", zap.String("index", IndexName))
	return nil
}

// Query returns the tracks selected by d, in index order.
func (r *Repo) Query(ctx context.Context, d plan.Descriptor) ([]domtrack.Track, error) {
	q := toIndexQuery(d)
	res, err := guard(r, func() (*db.SearchResult, error) { return r.store.Query(ctx, q) })
	if err != nil {
		return nil, fmt.Errorf("query %s %s=%q: %w", d.Index, d.KeyAttribute, d.KeyValue, err)
	}
	return r.decode(res, d), nil
}

// QueryMulti runs all descriptors in one round-trip. Results are in input
// order; a single failure fails the batch.
func (r *Repo) QueryMulti(ctx context.Context, ds []plan.Descriptor) ([][]domtrack.Track, error) {
	if len(ds) == 0 {
		return nil, nil
	}
	qs := make([]*db.IndexQuery, len(ds))
	for i := range ds {
		qs[i] = toIndexQuery(ds[i])
	}
	results, err := guard(r, func() ([]*db.SearchResult, error) { return r.store.QueryMulti(ctx, qs) })
	if err != nil {
		return nil, fmt.Errorf("query %d descriptors on %s: %w", len(ds), ds[0].Index, err)
	}
	out := make([][]domtrack.Track, len(results))
	for i, res := range results {
		out[i] = r.decode(res, ds[i])
	}
	return out, nil
}

// Count returns the number of tracks selected by d without fetching them.
func (r *Repo) Count(ctx context.Context, d plan.Descriptor) (int, error) {
	q := toIndexQuery(d)
	n, err := guard(r, func() (int, error) { return r.store.Count(ctx, q) })
	if err != nil {
		return 0, fmt.Errorf("count %s %s=%q: %w", d.Index, d.KeyAttribute, d.KeyValue, err)
	}
	return n, nil
}

// Get returns a track by ID, including soft-deleted ones.
func (r *Repo) Get(ctx context.Context, id string) (domtrack.Track, error) {
	key := trackKey(id)
	m, err := r.store.HGetAll(ctx, key)
	if err != nil {
		if errors.Is(err, db.ErrKeyNotFound) {
			return domtrack.Track{}, domain.ErrNotFound
		}
		return domtrack.Track{}, fmt.Errorf("hgetall %s: %w", key, err)
	}
	t, err := trackFromHash(id, m)
	if err != nil {
		return domtrack.Track{}, fmt.Errorf("decode %s: %w", key, err)
	}
	return t, nil
}

// Save stores a new track. An existing trackId is domain.ErrAlreadyExists.
func (r *Repo) Save(ctx context.Context, t *domtrack.Track) error {
	key := trackKey(t.ID)
	exists, err := r.store.Exists(ctx, key)
	if err != nil {
		return fmt.Errorf("check exists %s: %w", key, err)
	}
	if exists {
		return domain.ErrAlreadyExists
	}
	if err := r.store.HSet(ctx, key, trackToHash(t)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// Update writes the fields p touches from the patched t. Untouched fields,
// the location and the geohash are left as stored.
func (r *Repo) Update(ctx context.Context, t *domtrack.Track, p domtrack.Patch) error {
	key := trackKey(t.ID)
	if err := r.store.HSet(ctx, key, patchToHash(t, p)); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// SoftDelete flags a track as deleted. The record stays in place.
func (r *Repo) SoftDelete(ctx context.Context, id string) error {
	key := trackKey(id)
	if err := r.store.HSet(ctx, key, map[string]string{fieldIsDeleted: "true"}); err != nil {
		return fmt.Errorf("hset %s: %w", key, err)
	}
	return nil
}

// decode converts hits to tracks, skipping rows that fail to decode.
func (r *Repo) decode(res *db.SearchResult, d plan.Descriptor) []domtrack.Track {
	if res == nil || len(res.Entries) == 0 {
		return nil
	}
	out := make([]domtrack.Track, 0, len(res.Entries))
	for _, e := range res.Entries {
		t, err := trackFromHash(strings.TrimPrefix(e.Key, KeyPrefix), e.Fields)
		if err != nil {
			r.logger.Warn("skipping undecodable track",
				zap.String("key", e.Key),
				zap.String("index", string(d.Index)),
				zap.Error(err),
			)
			continue
		}
		out = append(out, t)
	}
	return out
}

func trackKey(id string) string {
	return KeyPrefix + id
}

// CheckIndex reports db.ErrIndexNotFound when the track index is missing.
func (r *Repo) CheckIndex(ctx context.Context) error {
	exists, err := r.store.IndexExists(ctx, IndexName)
	if err != nil {
		return fmt.Errorf("check index %s: %w", IndexName, err)
	}
	if !exists {
		return fmt.Errorf("%s: %w", IndexName, db.ErrIndexNotFound)
	}
	return nil
}
