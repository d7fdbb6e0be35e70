package track

import (
	"context"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/rikitraki/trackapi/internal/db"
	"github.com/rikitraki/trackapi/internal/domain/search/filter"
	domtrack "github.com/rikitraki/trackapi/internal/domain/track"
)

// mockStore implements the consumer interface for tests.
type mockStore struct {
	hsetFn        func(ctx context.Context, key string, fields map[string]string) error
	hgetAllFn     func(ctx context.Context, key string) (map[string]string, error)
	existsFn      func(ctx context.Context, key string) (bool, error)
	createIndexFn func(ctx context.Context, def *db.IndexDefinition) error
	indexExistsFn func(ctx context.Context, name string) (bool, error)
	queryFn       func(ctx context.Context, q *db.IndexQuery) (*db.SearchResult, error)
	queryMultiFn  func(ctx context.Context, qs []*db.IndexQuery) ([]*db.SearchResult, error)
	countFn       func(ctx context.Context, q *db.IndexQuery) (int, error)
}

func (m *mockStore) HSet(ctx context.Context, key string, fields map[string]string) error {
	if m.hsetFn != nil {
		return m.hsetFn(ctx, key, fields)
	}
	return nil
}

func (m *mockStore) HGetAll(ctx context.Context, key string) (map[string]string, error) {
	if m.hgetAllFn != nil {
		return m.hgetAllFn(ctx, key)
	}
	return nil, db.ErrKeyNotFound
}

func (m *mockStore) Exists(ctx context.Context, key string) (bool, error) {
	if m.existsFn != nil {
		return m.existsFn(ctx, key)
	}
	return false, nil
}

func (m *mockStore) CreateIndex(ctx context.Context, def *db.IndexDefinition) error {
	if m.createIndexFn != nil {
		return m.createIndexFn(ctx, def)
	}
	return nil
}

func (m *mockStore) IndexExists(ctx context.Context, name string) (bool, error) {
	if m.indexExistsFn != nil {
		return m.indexExistsFn(ctx, name)
	}
	return false, nil
}

func (m *mockStore) Query(ctx context.Context, q *db.IndexQuery) (*db.SearchResult, error) {
	if m.queryFn != nil {
		return m.queryFn(ctx, q)
	}
	return &db.SearchResult{}, nil
}

func (m *mockStore) QueryMulti(ctx context.Context, qs []*db.IndexQuery) ([]*db.SearchResult, error) {
	if m.queryMultiFn != nil {
		return m.queryMultiFn(ctx, qs)
	}
	out := make([]*db.SearchResult, len(qs))
	for i := range out {
		out[i] = &db.SearchResult{}
	}
	return out, nil
}

func (m *mockStore) Count(ctx context.Context, q *db.IndexQuery) (int, error) {
	if m.countFn != nil {
		return m.countFn(ctx, q)
	}
	return 0, nil
}

func newTestRepo(t *testing.T) (*Repo, *mockStore) {
	t.Helper()
	ms := &mockStore{}
	return New(ms, zap.NewNop()), ms
}

func testTrack(t *testing.T) domtrack.Track {
	t.Helper()
	return domtrack.Track{
		ID:          "abc123",
		LatLng:      &domtrack.LatLng{Lat: 45.5152, Lon: -122.6784},
		GeoHash:     "c20fbm8qs",
		Username:    "alice",
		Type:        "Hiking",
		Level:       "Easy",
		Favorite:    true,
		Name:        "Forest Park loop",
		Description: "Wildwood trail",
		Regions:     domtrack.FromList([]string{"US", "Oregon", "Portland"}),
		HasPhotos:   true,
		CreatedDate: time.UnixMilli(1700000000123).UTC(),
	}
}

func entry(t *testing.T, tr domtrack.Track) db.SearchEntry {
	t.Helper()
	return db.SearchEntry{Key: KeyPrefix + tr.ID, Fields: trackToHash(&tr)}
}

func emptyExpr() filter.Expression { return filter.Empty() }
