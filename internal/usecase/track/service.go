// Package track implements the track collaborators: filtered listing,
// counting, lookup, creation, editing and soft deletion.
package track

import (
	"context"
	"fmt"
	"time"

	"github.com/rikitraki/trackapi/internal/domain"
	"github.com/rikitraki/trackapi/internal/domain/search/filter"
	"github.com/rikitraki/trackapi/internal/domain/search/plan"
	domtrack "github.com/rikitraki/trackapi/internal/domain/track"
)

// Projection selects the representation returned by List.
type Projection int

const (
	// ProjectionFull returns every public field.
	ProjectionFull Projection = iota
	// ProjectionSmall returns the curated summary fields.
	ProjectionSmall
)

// ParseProjection maps the proj query value. Anything but "small" is full.
func ParseProjection(s string) Projection {
	if s == "small" {
		return ProjectionSmall
	}
	return ProjectionFull
}

// Service handles track reads and writes.
type Service struct {
	repo Repository
	now  func() time.Time
}

// New creates a track service.
func New(repo Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// WithClock overrides the creation timestamp source.
func (s *Service) WithClock(now func() time.Time) *Service {
	if now != nil {
		s.now = now
	}
	return s
}

// List returns the tracks matching expr keyed by trackId. Values are
// track.Summary for ProjectionSmall and track.Detail otherwise.
func (s *Service) List(ctx context.Context, expr filter.Expression, limit int, proj Projection) (map[string]any, error) {
	tracks, err := s.find(ctx, expr, limit)
	if err != nil {
		return nil, err
	}

	out := make(map[string]any, len(tracks))
	for i := range tracks {
		t := &tracks[i]
		if proj == ProjectionSmall {
			out[t.ID] = domtrack.Summarize(t)
		} else {
			out[t.ID] = domtrack.Describe(t)
		}
	}
	return out, nil
}

// Count returns the number of tracks matching expr, capped at limit.
// Without residual filters the store counts without fetching rows.
func (s *Service) Count(ctx context.Context, expr filter.Expression, limit int) (int, error) {
	if !expr.HasExtraFilters() {
		d := plan.Plan(expr, limit)
		n, err := s.repo.Count(ctx, d)
		if err != nil {
			return 0, fmt.Errorf("count tracks: %w", err)
		}
		return min(n, d.Limit), nil
	}

	tracks, err := s.find(ctx, expr, limit)
	if err != nil {
		return 0, err
	}
	return len(tracks), nil
}

// Get returns a visible track by ID.
func (s *Service) Get(ctx context.Context, id string) (domtrack.Detail, error) {
	t, err := s.get(ctx, id)
	if err != nil {
		return domtrack.Detail{}, err
	}
	return domtrack.Describe(&t), nil
}

// Create validates in, stores a new track and returns its ID.
func (s *Service) Create(ctx context.Context, in domtrack.Input) (string, error) {
	t, err := domtrack.New(in, s.now())
	if err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := s.repo.Save(ctx, &t); err != nil {
		return "", fmt.Errorf("save track: %w", err)
	}
	return t.ID, nil
}

// Update applies p to a track and returns the result. Only its owner may
// edit it; location and geohash keep their creation values.
func (s *Service) Update(ctx context.Context, id, username string, p domtrack.Patch) (domtrack.Detail, error) {
	t, err := s.get(ctx, id)
	if err != nil {
		return domtrack.Detail{}, err
	}
	if username == "" || t.Username != username {
		return domtrack.Detail{}, fmt.Errorf("update track %s: %w", id, domain.ErrForbidden)
	}
	if err := p.Apply(&t, s.now()); err != nil {
		return domtrack.Detail{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, err)
	}
	if err := s.repo.Update(ctx, &t, p); err != nil {
		return domtrack.Detail{}, fmt.Errorf("update track: %w", err)
	}
	return domtrack.Describe(&t), nil
}

// Delete soft-deletes a track. Only its owner may delete it.
func (s *Service) Delete(ctx context.Context, id, username string) error {
	t, err := s.get(ctx, id)
	if err != nil {
		return err
	}
	if username == "" || t.Username != username {
		return fmt.Errorf("delete track %s: %w", id, domain.ErrForbidden)
	}
	if err := s.repo.SoftDelete(ctx, id); err != nil {
		return fmt.Errorf("delete track: %w", err)
	}
	return nil
}

func (s *Service) find(ctx context.Context, expr filter.Expression, limit int) ([]domtrack.Track, error) {
	d := plan.Plan(expr, limit)
	tracks, err := s.repo.Query(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("query tracks: %w", err)
	}
	return filter.Apply(tracks, expr), nil
}

func (s *Service) get(ctx context.Context, id string) (domtrack.Track, error) {
	if id == "" {
		return domtrack.Track{}, fmt.Errorf("%w: trackId is required", domain.ErrInvalidInput)
	}
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return domtrack.Track{}, fmt.Errorf("get track %s: %w", id, err)
	}
	if !t.Visible() {
		return domtrack.Track{}, fmt.Errorf("get track %s: %w", id, domain.ErrNotFound)
	}
	return t, nil
}
