// Package location answers "tracks near a point" queries by widening
// geohash prefix rounds, ranking by great-circle distance and windowing
// the ranked list.
package location

import (
	"cmp"
	"context"
	"fmt"
	"math"
	"slices"

	"go.uber.org/zap"

	"github.com/rikitraki/trackapi/internal/domain"
	"github.com/rikitraki/trackapi/internal/domain/geo"
	"github.com/rikitraki/trackapi/internal/domain/search/plan"
	"github.com/rikitraki/trackapi/internal/domain/search/result"
	"github.com/rikitraki/trackapi/internal/domain/track"
	"github.com/rikitraki/trackapi/internal/logger"
)

// Defaults for Options.
const (
	DefaultMinResults     = 10
	DefaultMaxResults     = 200
	DefaultMaxRadiusKm    = 500.0
	DefaultStartPrecision = 4
)

// Mode tells how candidates were gathered.
type Mode string

// Search modes.
const (
	ModeGlobal Mode = "global"
	ModeOwner  Mode = "owner"
)

// Branch tells which windowing rule produced the result.
type Branch string

// Windowing branches.
const (
	// BranchNear: enough tracks inside the radius cap, up to MaxResults of them.
	BranchNear Branch = "near"
	// BranchNearest: too few inside the cap, the MinResults nearest overall.
	BranchNearest Branch = "nearest"
	// BranchEmpty: nothing to rank.
	BranchEmpty Branch = "empty"
)

// Options tune the search. Zero fields take the package defaults.
type Options struct {
	MinResults     int
	MaxResults     int
	MaxRadiusKm    float64
	StartPrecision int
	// ScanLimit caps the rows fetched by each store query; 0 means plan.DefaultLimit.
	ScanLimit int
}

func (o Options) withDefaults() Options {
	if o.MinResults <= 0 {
		o.MinResults = DefaultMinResults
	}
	if o.MaxResults <= 0 {
		o.MaxResults = DefaultMaxResults
	}
	if o.MaxRadiusKm <= 0 {
		o.MaxRadiusKm = DefaultMaxRadiusKm
	}
	if o.StartPrecision <= 0 || o.StartPrecision > geo.MaxPrecision {
		o.StartPrecision = DefaultStartPrecision
	}
	return o
}

// Query is a location search request. Lat and Lon are required; a
// non-empty Username restricts the search to that owner's tracks.
type Query struct {
	Lat      *float64
	Lon      *float64
	Username string
}

// Service runs location searches.
type Service struct {
	repo     Repository
	opts     Options
	recorder Recorder
}

// New creates a location search service.
func New(repo Repository, opts Options) *Service {
	return &Service{repo: repo, opts: opts.withDefaults()}
}

// WithRecorder attaches a statistics recorder.
func (s *Service) WithRecorder(r Recorder) *Service {
	s.recorder = r
	return s
}

// Options returns the effective options.
func (s *Service) Options() Options { return s.opts }

type ranked struct {
	track  *track.Track
	distKm float64
}

// Search returns the tracks nearest to the query point.
// A storage failure aborts the whole search; no partial result is returned.
func (s *Service) Search(ctx context.Context, q Query) (result.Location, error) {
	if q.Lat == nil || q.Lon == nil {
		return result.Location{}, fmt.Errorf("%w: %w", domain.ErrInvalidInput, domain.ErrMissingCoordinates)
	}
	lat, lon := *q.Lat, *q.Lon
	if !geo.ValidateCoordinates(lat, lon) {
		return result.Location{}, fmt.Errorf("%w: %w: lat=%v lon=%v",
			domain.ErrInvalidInput, geo.ErrInvalidCoordinate, lat, lon)
	}

	mode := ModeGlobal
	var (
		candidates []track.Track
		err        error
	)
	if q.Username != "" {
		mode = ModeOwner
		candidates, err = s.repo.Query(ctx, plan.ByOwner(q.Username, s.opts.ScanLimit))
	} else {
		candidates, err = s.collect(ctx, lat, lon)
	}
	if err != nil {
		return result.Location{}, fmt.Errorf("location search (%s): %w", mode, err)
	}

	hits := rank(candidates, lat, lon)
	if len(hits) == 0 {
		s.observe(ctx, mode, BranchEmpty, len(candidates), 0)
		return result.Empty(lat, lon), nil
	}

	selected, branch := s.window(hits)

	summaries := make([]track.Summary, len(selected))
	distances := make([]float64, len(selected))
	for i, h := range selected {
		summaries[i] = track.Summarize(h.track)
		distances[i] = h.distKm
	}

	s.observe(ctx, mode, branch, len(candidates), len(selected))
	return result.New(lat, lon, summaries, distances), nil
}

// collect runs the geohash rounds from StartPrecision down to the
// unconstrained scan. Every round runs; earlier rounds win on duplicates.
func (s *Service) collect(ctx context.Context, lat, lon float64) ([]track.Track, error) {
	var all []track.Track
	seen := make(map[string]struct{})

	add := func(batch []track.Track) {
		for i := range batch {
			id := batch[i].ID
			if id == "" {
				continue
			}
			if _, dup := seen[id]; dup {
				continue
			}
			seen[id] = struct{}{}
			all = append(all, batch[i])
		}
	}

	for p := s.opts.StartPrecision; p >= geo.NoPrecision; p-- {
		cells, err := geo.Cells(lat, lon, p)
		if err != nil {
			return nil, fmt.Errorf("geohash cells at precision %d: %w", p, err)
		}

		if cells == nil {
			batch, err := s.repo.Query(ctx, plan.AllTracks(s.opts.ScanLimit))
			if err != nil {
				return nil, fmt.Errorf("scan all tracks: %w", err)
			}
			add(batch)
			continue
		}

		ds := make([]plan.Descriptor, len(cells))
		for i, c := range cells {
			ds[i] = plan.GeoHashPrefix(c, s.opts.ScanLimit)
		}
		batches, err := s.repo.QueryMulti(ctx, ds)
		if err != nil {
			return nil, fmt.Errorf("geohash round at precision %d: %w", p, err)
		}
		for _, b := range batches {
			add(b)
		}
	}
	return all, nil
}

// rank annotates candidates with their distance, drops those without a
// usable position and soft-deleted ones, and sorts ascending. Ties keep
// discovery order.
func rank(candidates []track.Track, lat, lon float64) []ranked {
	out := make([]ranked, 0, len(candidates))
	for i := range candidates {
		t := &candidates[i]
		if t.LatLng == nil || !t.Visible() {
			continue
		}
		d := geo.HaversineKm(lat, lon, t.LatLng.Lat, t.LatLng.Lon)
		if math.IsNaN(d) || math.IsInf(d, 0) {
			continue
		}
		out = append(out, ranked{track: t, distKm: d})
	}
	slices.SortStableFunc(out, func(a, b ranked) int {
		return cmp.Compare(a.distKm, b.distKm)
	})
	return out
}

// window applies the selection rule to a non-empty ascending list.
func (s *Service) window(hits []ranked) ([]ranked, Branch) {
	within := 0
	for within < len(hits) && hits[within].distKm <= s.opts.MaxRadiusKm {
		within++
	}
	if within >= s.opts.MinResults {
		return hits[:min(within, s.opts.MaxResults)], BranchNear
	}
	return hits[:min(len(hits), s.opts.MinResults)], BranchNearest
}

func (s *Service) observe(ctx context.Context, mode Mode, branch Branch, candidates, results int) {
	logger.FromContext(ctx).Debug("location search",
		zap.String("mode", string(mode)),
		zap.String("branch", string(branch)),
		zap.Int("candidates", candidates),
		zap.Int("results", results),
	)
	if s.recorder != nil {
		s.recorder.ObserveLocationSearch(mode, branch, candidates, results)
	}
}
