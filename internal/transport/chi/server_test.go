package chi

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"slices"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"

	"github.com/rikitraki/trackapi/internal/domain"
	"github.com/rikitraki/trackapi/internal/domain/geo"
	"github.com/rikitraki/trackapi/internal/domain/search/plan"
	domtrack "github.com/rikitraki/trackapi/internal/domain/track"
	healthuc "github.com/rikitraki/trackapi/internal/usecase/health"
	locationuc "github.com/rikitraki/trackapi/internal/usecase/location"
	trackuc "github.com/rikitraki/trackapi/internal/usecase/track"
)

// --- In-memory store ---

type memStore struct {
	mu       sync.Mutex
	tracks   map[string]domtrack.Track
	queryErr error
	pingErr  error
	indexErr error
}

func newMemStore(tracks ...domtrack.Track) *memStore {
	m := &memStore{tracks: make(map[string]domtrack.Track)}
	for _, t := range tracks {
		m.tracks[t.ID] = t
	}
	return m
}

func keyValue(t *domtrack.Track, attr string) []string {
	switch attr {
	case plan.AttrUsername:
		return []string{t.Username}
	case plan.AttrGeoHash:
		return []string{t.GeoHash}
	case plan.AttrType:
		return []string{t.Type}
	case plan.AttrLevel:
		return []string{t.Level}
	case plan.AttrRegionTag:
		return t.Regions.List()
	case plan.AttrIndexPK:
		return []string{plan.AllTracksPK}
	}
	return nil
}

func (m *memStore) Query(_ context.Context, d plan.Descriptor) ([]domtrack.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}

	var out []domtrack.Track
	for _, t := range m.tracks {
		if d.ExcludeDeleted && t.IsDeleted {
			continue
		}
		matched := slices.ContainsFunc(keyValue(&t, d.KeyAttribute), func(v string) bool {
			if d.Prefix {
				return strings.HasPrefix(v, d.KeyValue)
			}
			return v == d.KeyValue
		})
		if matched {
			out = append(out, t)
		}
	}
	slices.SortFunc(out, func(a, b domtrack.Track) int { return a.CreatedDate.Compare(b.CreatedDate) })
	if d.Limit > 0 && len(out) > d.Limit {
		out = out[:d.Limit]
	}
	return out, nil
}

func (m *memStore) QueryMulti(ctx context.Context, ds []plan.Descriptor) ([][]domtrack.Track, error) {
	out := make([][]domtrack.Track, len(ds))
	for i, d := range ds {
		ts, err := m.Query(ctx, d)
		if err != nil {
			return nil, err
		}
		out[i] = ts
	}
	return out, nil
}

func (m *memStore) Count(ctx context.Context, d plan.Descriptor) (int, error) {
	d.Limit = 0
	ts, err := m.Query(ctx, d)
	return len(ts), err
}

func (m *memStore) Get(_ context.Context, id string) (domtrack.Track, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tracks[id]
	if !ok {
		return domtrack.Track{}, domain.ErrNotFound
	}
	return t, nil
}

func (m *memStore) Save(_ context.Context, t *domtrack.Track) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tracks[t.ID]; ok {
		return domain.ErrAlreadyExists
	}
	m.tracks[t.ID] = *t
	return nil
}

func (m *memStore) Update(_ context.Context, t *domtrack.Track, _ domtrack.Patch) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.tracks[t.ID]; !ok {
		return domain.ErrNotFound
	}
	m.tracks[t.ID] = *t
	return nil
}

func (m *memStore) SoftDelete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.tracks[id]
	if !ok {
		return domain.ErrNotFound
	}
	t.IsDeleted = true
	m.tracks[id] = t
	return nil
}

func (m *memStore) Ping(context.Context) error { return m.pingErr }

func (m *memStore) CheckIndex(context.Context) error { return m.indexErr }

// --- Helpers ---

var baseTime = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func makeTrack(t *testing.T, id, user string, lat, lon float64, offset time.Duration) domtrack.Track {
	t.Helper()
	hash, err := geo.Encode(lat, lon, geo.TrackPrecision)
	if err != nil {
		t.Fatalf("encode geohash: %v", err)
	}
	return domtrack.Track{
		ID:          id,
		LatLng:      &domtrack.LatLng{Lat: lat, Lon: lon},
		GeoHash:     hash,
		Username:    user,
		Type:        "hiking",
		Level:       "easy",
		Name:        "Track " + id,
		Regions:     domtrack.FromList([]string{"Spain", "Madrid"}),
		CreatedDate: baseTime.Add(offset),
	}
}

func seedStore(t *testing.T) *memStore {
	t.Helper()
	return newMemStore(
		makeTrack(t, "trk1", "alice", 40.4168, -3.7038, 0),
		makeTrack(t, "trk2", "bob", 40.4500, -3.7000, time.Minute),
		makeTrack(t, "trk3", "alice", 41.3874, 2.1686, 2*time.Minute),
	)
}

func newTestRouter(store *memStore, auth AuthConfig) http.Handler {
	srv := NewServer(
		trackuc.New(store),
		locationuc.New(store, locationuc.Options{}),
		healthuc.New(store, store),
		nil,
	)
	r := chi.NewRouter()
	r.Use(BearerAuthMiddleware(auth))
	srv.Routes(r)
	return r
}

func doRequest(h http.Handler, method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, http.NoBody)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
}

func assertError(t *testing.T, rr *httptest.ResponseRecorder, status int, code ErrorCode) ErrorResponse {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, status, rr.Body.String())
	}
	var errResp ErrorResponse
	decodeBody(t, rr, &errResp)
	if errResp.Code != code {
		t.Errorf("error code: got %s, want %s", errResp.Code, code)
	}
	return errResp
}

// --- List / count ---

func TestListTracks_All(t *testing.T) {
	h := newTestRouter(seedStore(t), AuthConfig{})

	rr := doRequest(h, "GET", "/tracks", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
		t.Errorf("content type: got %q", ct)
	}

	var resp struct {
		Tracks map[string]map[string]any `json:"tracks"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Tracks) != 3 {
		t.Fatalf("tracks: got %d, want 3", len(resp.Tracks))
	}
	if got := resp.Tracks["trk1"]["trackGeoHash"]; got == nil {
		t.Error("full projection should include trackGeoHash")
	}
}

func TestListTracks_FilterAndSmallProjection(t *testing.T) {
	h := newTestRouter(seedStore(t), AuthConfig{})

	q := url.Values{}
	q.Set("filter", `{"username":"alice"}`)
	q.Set("proj", "small")
	rr := doRequest(h, "GET", "/tracks?"+q.Encode(), "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}

	var resp struct {
		Tracks map[string]map[string]any `json:"tracks"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Tracks) != 2 {
		t.Fatalf("tracks: got %d, want 2", len(resp.Tracks))
	}
	for id, tr := range resp.Tracks {
		if tr["username"] != "alice" {
			t.Errorf("%s: username %v", id, tr["username"])
		}
		if _, ok := tr["trackGeoHash"]; ok {
			t.Errorf("%s: small projection leaked trackGeoHash", id)
		}
	}
}

func TestListTracks_Limit(t *testing.T) {
	h := newTestRouter(seedStore(t), AuthConfig{})

	rr := doRequest(h, "GET", "/tracks?limit=2", "", nil)
	var resp struct {
		Tracks map[string]any `json:"tracks"`
	}
	decodeBody(t, rr, &resp)
	if len(resp.Tracks) != 2 {
		t.Errorf("tracks: got %d, want 2", len(resp.Tracks))
	}
	if _, ok := resp.Tracks["trk3"]; ok {
		t.Error("oldest tracks come first; trk3 should be cut")
	}
}

func TestListTracks_BadParams(t *testing.T) {
	h := newTestRouter(seedStore(t), AuthConfig{})

	tests := []struct {
		name   string
		target string
		code   ErrorCode
	}{
		{"zero limit", "/tracks?limit=0", CodeBadRequest},
		{"negative limit", "/tracks?limit=-3", CodeBadRequest},
		{"non-numeric limit", "/tracks?limit=abc", CodeBadRequest},
		{"malformed filter", "/tracks?filter=" + url.QueryEscape("{not json"), CodeInvalidFilter},
		{"count malformed filter", "/tracks/number?filter=" + url.QueryEscape("[1,2]"), CodeInvalidFilter},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(h, "GET", tt.target, "", nil)
			assertError(t, rr, http.StatusBadRequest, tt.code)
		})
	}
}

func TestListTracks_StoreError_Generic500(t *testing.T) {
	store := seedStore(t)
	store.queryErr = errors.New("READONLY You can't write against a read only replica")
	h := newTestRouter(store, AuthConfig{})

	rr := doRequest(h, "GET", "/tracks", "", nil)
	errResp := assertError(t, rr, http.StatusInternalServerError, CodeInternalError)
	if errResp.Error != msgQueryTracks {
		t.Errorf("message: got %q, want %q", errResp.Error, msgQueryTracks)
	}
}

func TestListTracks_StoreUnavailable_503(t *testing.T) {
	store := seedStore(t)
	store.queryErr = domain.ErrUnavailable
	h := newTestRouter(store, AuthConfig{})

	rr := doRequest(h, "GET", "/tracks", "", nil)
	assertError(t, rr, http.StatusServiceUnavailable, CodeUnavailable)
}

func TestCountTracks(t *testing.T) {
	h := newTestRouter(seedStore(t), AuthConfig{})

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"all", "/tracks/number", 3},
		{"by user", "/tracks/number?filter=" + url.QueryEscape(`{"username":"bob"}`), 1},
		{"capped", "/tracks/number?limit=2", 2},
		{"residual filter", "/tracks/number?filter=" + url.QueryEscape(`{"and":[{"username":"alice"},{"level":"hard"}]}`), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(h, "GET", tt.target, "", nil)
			if rr.Code != http.StatusOK {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
			}
			var resp struct {
				N int `json:"numberOfTracks"`
			}
			decodeBody(t, rr, &resp)
			if resp.N != tt.want {
				t.Errorf("numberOfTracks: got %d, want %d", resp.N, tt.want)
			}
		})
	}
}

// --- Nearby ---

func TestNearbyTracks(t *testing.T) {
	h := newTestRouter(seedStore(t), AuthConfig{})

	rr := doRequest(h, "GET", "/tracks/nearby?lat=40.42&lon=-3.70", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		Center struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"center"`
		RadiusKm float64 `json:"radiusKm"`
		Count    int     `json:"count"`
		Tracks   []struct {
			ID string `json:"trackId"`
		} `json:"tracks"`
	}
	decodeBody(t, rr, &resp)

	if resp.Center.Lat != 40.42 || resp.Center.Lon != -3.70 {
		t.Errorf("center: got %+v", resp.Center)
	}
	if resp.Count != 3 || len(resp.Tracks) != 3 {
		t.Fatalf("count: got %d/%d, want 3", resp.Count, len(resp.Tracks))
	}
	if resp.Tracks[0].ID != "trk1" {
		t.Errorf("nearest: got %s, want trk1", resp.Tracks[0].ID)
	}
	if resp.Tracks[2].ID != "trk3" {
		t.Errorf("farthest: got %s, want trk3", resp.Tracks[2].ID)
	}
	if resp.RadiusKm < 400 {
		t.Errorf("radius should reach Barcelona, got %v km", resp.RadiusKm)
	}
}

func TestNearbyTracks_Owner(t *testing.T) {
	h := newTestRouter(seedStore(t), AuthConfig{})

	rr := doRequest(h, "GET", "/tracks/nearby?lat=40.42&lon=-3.70&username=bob", "", nil)
	var resp struct {
		Count  int `json:"count"`
		Tracks []struct {
			Username string `json:"username"`
		} `json:"tracks"`
	}
	decodeBody(t, rr, &resp)
	if resp.Count != 1 || resp.Tracks[0].Username != "bob" {
		t.Errorf("owner search: got %+v", resp)
	}
}

func TestNearbyTracks_Errors(t *testing.T) {
	h := newTestRouter(seedStore(t), AuthConfig{})

	tests := []struct {
		name   string
		target string
		code   ErrorCode
	}{
		{"missing lat", "/tracks/nearby?lon=1", CodeMissingCoordinates},
		{"missing both", "/tracks/nearby", CodeMissingCoordinates},
		{"non-numeric", "/tracks/nearby?lat=abc&lon=1", CodeBadRequest},
		{"out of range", "/tracks/nearby?lat=95&lon=1", CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(h, "GET", tt.target, "", nil)
			assertError(t, rr, http.StatusBadRequest, tt.code)
		})
	}
}

// --- Single track ---

func TestGetTrack(t *testing.T) {
	store := seedStore(t)
	deleted := makeTrack(t, "gone", "alice", 1, 1, 0)
	deleted.IsDeleted = true
	store.tracks[deleted.ID] = deleted
	h := newTestRouter(store, AuthConfig{})

	rr := doRequest(h, "GET", "/tracks/trk2", "", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	var got map[string]any
	decodeBody(t, rr, &got)
	if got["trackId"] != "trk2" || got["username"] != "bob" {
		t.Errorf("track: got %v", got)
	}

	assertError(t, doRequest(h, "GET", "/tracks/missing", "", nil), http.StatusNotFound, CodeNotFound)
	assertError(t, doRequest(h, "GET", "/tracks/gone", "", nil), http.StatusNotFound, CodeNotFound)
}

// --- Writes ---

const validBody = `{
	"trackLatLng": [40.4168, -3.7038],
	"trackName": "Casa de Campo loop",
	"trackType": "hiking",
	"trackLevel": "easy",
	"trackRegionTags": ["Spain", "Madrid"]
}`

func TestCreateTrack(t *testing.T) {
	store := newMemStore()
	h := newTestRouter(store, AuthConfig{})

	rr := doRequest(h, "POST", "/tracks", validBody, map[string]string{UsernameHeader: "alice"})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusCreated, rr.Body.String())
	}

	var resp struct {
		ID string `json:"trackId"`
	}
	decodeBody(t, rr, &resp)
	if resp.ID == "" {
		t.Fatal("expected trackId")
	}
	if loc := rr.Header().Get("Location"); loc != "/tracks/"+resp.ID {
		t.Errorf("Location: got %q", loc)
	}

	saved, ok := store.tracks[resp.ID]
	if !ok {
		t.Fatal("track not saved")
	}
	if saved.Username != "alice" {
		t.Errorf("owner: got %q, want alice", saved.Username)
	}
	if saved.GeoHash == "" {
		t.Error("geohash should be derived on create")
	}
}

func TestCreateTrack_OwnerFromToken(t *testing.T) {
	store := newMemStore()
	h := newTestRouter(store, AuthConfig{JWTSecret: testSecret})

	tok := signToken(t, testSecret, validClaims("dave"))
	rr := doRequest(h, "POST", "/tracks", validBody, map[string]string{"Authorization": "Bearer " + tok})
	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusCreated, rr.Body.String())
	}
	for _, tr := range store.tracks {
		if tr.Username != "dave" {
			t.Errorf("owner: got %q, want dave", tr.Username)
		}
	}
}

func TestCreateTrack_Errors(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		username string
		status   int
		code     ErrorCode
	}{
		{"no caller", validBody, "", http.StatusUnauthorized, CodeUnauthorized},
		{"bad json", `{"trackName":`, "alice", http.StatusBadRequest, CodeBadRequest},
		{"missing name", `{"trackLatLng":[1,2],"trackRegionTags":["Spain"]}`, "alice", http.StatusBadRequest, CodeValidationFailed},
		{"missing latlng", `{"trackName":"x","trackRegionTags":["Spain"]}`, "alice", http.StatusBadRequest, CodeValidationFailed},
		{"no regions", `{"trackName":"x","trackLatLng":[1,2],"trackRegionTags":[]}`, "alice", http.StatusBadRequest, CodeValidationFailed},
		{"latlng out of range", `{"trackName":"x","trackLatLng":[91,2],"trackRegionTags":["Spain"]}`, "alice", http.StatusBadRequest, CodeValidationFailed},
		{"name too long", `{"trackName":"` + strings.Repeat("n", 257) + `","trackLatLng":[1,2],"trackRegionTags":["Spain"]}`, "alice", http.StatusBadRequest, CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			h := newTestRouter(store, AuthConfig{})
			headers := map[string]string{}
			if tt.username != "" {
				headers[UsernameHeader] = tt.username
			}
			rr := doRequest(h, "POST", "/tracks", tt.body, headers)
			assertError(t, rr, tt.status, tt.code)
			if len(store.tracks) != 0 {
				t.Error("nothing should be saved")
			}
		})
	}
}

func TestCreateTrack_ValidationMessageUsesJSONNames(t *testing.T) {
	h := newTestRouter(newMemStore(), AuthConfig{})

	rr := doRequest(h, "POST", "/tracks", `{"trackLatLng":[1,2],"trackRegionTags":["Spain"]}`,
		map[string]string{UsernameHeader: "alice"})
	errResp := assertError(t, rr, http.StatusBadRequest, CodeValidationFailed)
	if errResp.Error != "trackName is required" {
		t.Errorf("message: got %q", errResp.Error)
	}
}

func TestDeleteTrack(t *testing.T) {
	store := seedStore(t)
	h := newTestRouter(store, AuthConfig{})

	rr := doRequest(h, "DELETE", "/tracks/trk1", "", map[string]string{UsernameHeader: "bob"})
	assertError(t, rr, http.StatusForbidden, CodeForbidden)
	if store.tracks["trk1"].IsDeleted {
		t.Fatal("non-owner must not delete")
	}

	rr = doRequest(h, "DELETE", "/tracks/trk1", "", map[string]string{UsernameHeader: "alice"})
	if rr.Code != http.StatusNoContent {
		t.Fatalf("owner delete: got %d, want %d", rr.Code, http.StatusNoContent)
	}
	if !store.tracks["trk1"].IsDeleted {
		t.Error("track should be soft-deleted")
	}

	assertError(t, doRequest(h, "GET", "/tracks/trk1", "", nil), http.StatusNotFound, CodeNotFound)
	assertError(t, doRequest(h, "DELETE", "/tracks/trk1", "", map[string]string{UsernameHeader: "alice"}),
		http.StatusNotFound, CodeNotFound)
	assertError(t, doRequest(h, "DELETE", "/tracks/trk2", "", nil), http.StatusUnauthorized, CodeUnauthorized)
}

func TestUpdateTrack(t *testing.T) {
	store := seedStore(t)
	h := newTestRouter(store, AuthConfig{})
	orig := store.tracks["trk1"]

	body := `{"trackName":"Retiro loop","trackRegionTags":["Spain","Castilla"],"trackFav":true,"trackLatLng":[1,1]}`
	rr := doRequest(h, "PATCH", "/tracks/trk1", body, map[string]string{UsernameHeader: "alice"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	var resp struct {
		ID string `json:"trackId"`
	}
	decodeBody(t, rr, &resp)
	if resp.ID != "trk1" {
		t.Errorf("trackId: got %q", resp.ID)
	}

	got := store.tracks["trk1"]
	if got.Name != "Retiro loop" || !got.Favorite || got.Regions.Region != "Castilla" {
		t.Errorf("patch not applied: %+v", got)
	}
	if got.Level != orig.Level || got.Type != orig.Type {
		t.Errorf("absent fields changed: %+v", got)
	}
	if got.GeoHash != orig.GeoHash || *got.LatLng != *orig.LatLng {
		t.Errorf("location must not change: %q %+v", got.GeoHash, got.LatLng)
	}

	// the region index now finds trk1 under its new region only
	list := func(filter string) map[string]any {
		q := url.Values{}
		q.Set("filter", filter)
		rr := doRequest(h, "GET", "/tracks?"+q.Encode(), "", nil)
		var resp struct {
			Tracks map[string]any `json:"tracks"`
		}
		decodeBody(t, rr, &resp)
		return resp.Tracks
	}
	if tracks := list(`{"region":"Castilla"}`); len(tracks) != 1 || tracks["trk1"] == nil {
		t.Errorf("region Castilla: got %v", tracks)
	}
	if tracks := list(`{"region":"Madrid"}`); tracks["trk1"] != nil || len(tracks) != 2 {
		t.Errorf("region Madrid: got %v", tracks)
	}

	// nearby still finds trk1 at its original position
	rr = doRequest(h, "GET", "/tracks/nearby?lat=40.4168&lon=-3.7038", "", nil)
	if !strings.Contains(rr.Body.String(), "trk1") {
		t.Errorf("nearby lost trk1: %s", rr.Body.String())
	}
}

func TestUpdateTrack_Put(t *testing.T) {
	store := seedStore(t)
	h := newTestRouter(store, AuthConfig{})

	rr := doRequest(h, "PUT", "/tracks/trk2", `{"trackLevel":"hard"}`, map[string]string{UsernameHeader: "bob"})
	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d (body %s)", rr.Code, http.StatusOK, rr.Body.String())
	}
	if store.tracks["trk2"].Level != "hard" {
		t.Errorf("level: got %q", store.tracks["trk2"].Level)
	}
}

func TestUpdateTrack_Errors(t *testing.T) {
	deleted := makeTrack(t, "gone", "alice", 1, 1, 0)
	deleted.IsDeleted = true

	tests := []struct {
		name   string
		target string
		body   string
		user   string
		status int
		code   ErrorCode
	}{
		{"not owner", "/tracks/trk1", `{"trackName":"mine now"}`, "bob", http.StatusForbidden, CodeForbidden},
		{"missing", "/tracks/nope", `{"trackName":"x"}`, "alice", http.StatusNotFound, CodeNotFound},
		{"deleted", "/tracks/gone", `{"trackName":"x"}`, "alice", http.StatusNotFound, CodeNotFound},
		{"no caller", "/tracks/trk1", `{"trackName":"x"}`, "", http.StatusUnauthorized, CodeUnauthorized},
		{"bad json", "/tracks/trk1", `{"trackName":`, "alice", http.StatusBadRequest, CodeBadRequest},
		{"empty name", "/tracks/trk1", `{"trackName":""}`, "alice", http.StatusBadRequest, CodeValidationFailed},
		{"blank region", "/tracks/trk1", `{"trackRegionTags":["Spain",""]}`, "alice", http.StatusBadRequest, CodeValidationFailed},
		{"name too long", "/tracks/trk1", `{"trackName":"` + strings.Repeat("n", 257) + `"}`, "alice", http.StatusBadRequest, CodeValidationFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := seedStore(t)
			store.tracks[deleted.ID] = deleted
			before := store.tracks["trk1"]
			h := newTestRouter(store, AuthConfig{})

			headers := map[string]string{}
			if tt.user != "" {
				headers[UsernameHeader] = tt.user
			}
			rr := doRequest(h, "PATCH", tt.target, tt.body, headers)
			assertError(t, rr, tt.status, tt.code)
			if store.tracks["trk1"].Name != before.Name {
				t.Error("track must not change on a rejected update")
			}
		})
	}
}

func TestUpdateTrack_ValidationMessage(t *testing.T) {
	h := newTestRouter(seedStore(t), AuthConfig{})

	rr := doRequest(h, "PATCH", "/tracks/trk1", `{"trackName":""}`, map[string]string{UsernameHeader: "alice"})
	errResp := assertError(t, rr, http.StatusBadRequest, CodeValidationFailed)
	if errResp.Error != "trackName must be at least 1 characters" {
		t.Errorf("message: got %q", errResp.Error)
	}
}

// --- Health ---

func TestHealthCheck(t *testing.T) {
	tests := []struct {
		name       string
		pingErr    error
		indexErr   error
		wantStatus int
		wantBody   string
	}{
		{"healthy", nil, nil, http.StatusOK, "ok"},
		{"index missing", nil, errors.New("no such index"), http.StatusServiceUnavailable, "degraded"},
		{"db down", errors.New("connection refused"), nil, http.StatusServiceUnavailable, "error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := newMemStore()
			store.pingErr = tt.pingErr
			store.indexErr = tt.indexErr
			h := newTestRouter(store, AuthConfig{})

			rr := doRequest(h, "GET", "/health", "", nil)
			if rr.Code != tt.wantStatus {
				t.Fatalf("status: got %d, want %d", rr.Code, tt.wantStatus)
			}
			var resp struct {
				Status string            `json:"status"`
				Checks map[string]string `json:"checks"`
			}
			decodeBody(t, rr, &resp)
			if resp.Status != tt.wantBody {
				t.Errorf("status field: got %q, want %q", resp.Status, tt.wantBody)
			}
			if _, ok := resp.Checks["database"]; !ok {
				t.Error("missing database check")
			}
		})
	}
}
