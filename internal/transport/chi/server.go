// Package chi exposes the track API over HTTP on a chi router.
package chi

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/rikitraki/trackapi/internal/domain"
	"github.com/rikitraki/trackapi/internal/domain/search/filter"
	"github.com/rikitraki/trackapi/internal/logger"
	healthuc "github.com/rikitraki/trackapi/internal/usecase/health"
	locationuc "github.com/rikitraki/trackapi/internal/usecase/location"
	trackuc "github.com/rikitraki/trackapi/internal/usecase/track"
)

// ErrorCode is the machine-readable error code in error responses.
type ErrorCode string

// Error codes.
const (
	CodeBadRequest         ErrorCode = "bad_request"
	CodeInvalidFilter      ErrorCode = "invalid_filter"
	CodeMissingCoordinates ErrorCode = "missing_coordinates"
	CodeValidationFailed   ErrorCode = "validation_failed"
	CodeUnauthorized       ErrorCode = "unauthorized"
	CodeForbidden          ErrorCode = "forbidden"
	CodeNotFound           ErrorCode = "track_not_found"
	CodeAlreadyExists      ErrorCode = "track_already_exists"
	CodeRateLimited        ErrorCode = "rate_limited"
	CodeUnavailable        ErrorCode = "store_unavailable"
	CodeInternalError      ErrorCode = "internal_error"
)

// Fallback messages for unexpected failures. Internals never reach the client.
const (
	msgQueryTracks = "Error querying Tracks"
	msgCountTracks = "Failed to count tracks"
	msgWriteTrack  = "Error writing track"
)

// ErrorResponse is the body of every non-2xx JSON response.
type ErrorResponse struct {
	Error string    `json:"error"`
	Code  ErrorCode `json:"code"`
}

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// Server serves the track API.
type Server struct {
	tracks        *trackuc.Service
	location      *locationuc.Service
	health        *healthuc.Service
	logger        *zap.Logger
	errorHandlers []errorHandler
}

// NewServer creates an HTTP API server.
func NewServer(
	tracks *trackuc.Service,
	location *locationuc.Service,
	health *healthuc.Service,
	logger *zap.Logger,
) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{
		tracks:   tracks,
		location: location,
		health:   health,
		logger:   logger,
	}
	s.errorHandlers = []errorHandler{
		sentinelHandler(domain.ErrMissingCoordinates, http.StatusBadRequest, CodeMissingCoordinates),
		sentinelHandler(domain.ErrInvalidFilter, http.StatusBadRequest, CodeInvalidFilter),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, CodeValidationFailed),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, CodeNotFound),
		sentinelHandler(domain.ErrForbidden, http.StatusForbidden, CodeForbidden),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, CodeAlreadyExists),
		sentinelHandler(domain.ErrUnavailable, http.StatusServiceUnavailable, CodeUnavailable),
	}
	return s
}

// Routes mounts the API on r.
func (s *Server) Routes(r chi.Router) {
	r.Get("/health", s.HealthCheck)
	r.Get("/metrics", s.Metrics)

	r.Route("/tracks", func(r chi.Router) {
		r.Get("/", s.ListTracks)
		r.Post("/", s.CreateTrack)
		r.Get("/number", s.CountTracks)
		r.Get("/nearby", s.NearbyTracks)
		r.Get("/{trackId}", s.GetTrack)
		r.Patch("/{trackId}", s.UpdateTrack)
		r.Put("/{trackId}", s.UpdateTrack)
		r.Delete("/{trackId}", s.DeleteTrack)
	})
}

// ListTracks handles GET /tracks.
func (s *Server) ListTracks(w http.ResponseWriter, r *http.Request) {
	params, err := bindListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	expr, err := filter.Parse([]byte(params.Filter))
	if err != nil {
		s.handleDomainError(w, r, err, msgQueryTracks)
		return
	}

	tracks, err := s.tracks.List(r.Context(), expr, params.Limit, trackuc.ParseProjection(params.Proj))
	if err != nil {
		s.handleDomainError(w, r, err, msgQueryTracks)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"tracks": tracks})
}

// CountTracks handles GET /tracks/number.
func (s *Server) CountTracks(w http.ResponseWriter, r *http.Request) {
	params, err := bindListParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}
	expr, err := filter.Parse([]byte(params.Filter))
	if err != nil {
		s.handleDomainError(w, r, err, msgCountTracks)
		return
	}

	n, err := s.tracks.Count(r.Context(), expr, params.Limit)
	if err != nil {
		s.handleDomainError(w, r, err, msgCountTracks)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"numberOfTracks": n})
}

// NearbyTracks handles GET /tracks/nearby.
func (s *Server) NearbyTracks(w http.ResponseWriter, r *http.Request) {
	params, err := bindNearbyParams(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, err.Error())
		return
	}

	res, err := s.location.Search(r.Context(), locationuc.Query{
		Lat:      params.Lat,
		Lon:      params.Lon,
		Username: params.Username,
	})
	if err != nil {
		s.handleDomainError(w, r, err, msgQueryTracks)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

// GetTrack handles GET /tracks/{trackId}.
func (s *Server) GetTrack(w http.ResponseWriter, r *http.Request) {
	t, err := s.tracks.Get(r.Context(), chi.URLParam(r, "trackId"))
	if err != nil {
		s.handleDomainError(w, r, err, msgQueryTracks)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// CreateTrack handles POST /tracks.
func (s *Server) CreateTrack(w http.ResponseWriter, r *http.Request) {
	username := CallerFromContext(r.Context())
	if username == "" {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, UsernameHeader+" header is required")
		return
	}

	var req CreateTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	id, err := s.tracks.Create(r.Context(), req.toInput(username))
	if err != nil {
		s.handleDomainError(w, r, err, msgWriteTrack)
		return
	}

	w.Header().Set("Location", "/tracks/"+id)
	writeJSON(w, http.StatusCreated, map[string]string{"trackId": id})
}

// UpdateTrack handles PATCH and PUT /tracks/{trackId}.
func (s *Server) UpdateTrack(w http.ResponseWriter, r *http.Request) {
	username := CallerFromContext(r.Context())
	if username == "" {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, UsernameHeader+" header is required")
		return
	}

	var req UpdateTrackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeBadRequest, "Invalid request body")
		return
	}
	if err := validateRequest(&req); err != nil {
		writeError(w, http.StatusBadRequest, CodeValidationFailed, err.Error())
		return
	}

	id := chi.URLParam(r, "trackId")
	if _, err := s.tracks.Update(r.Context(), id, username, req.toPatch()); err != nil {
		s.handleDomainError(w, r, err, msgWriteTrack)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"trackId": id})
}

// DeleteTrack handles DELETE /tracks/{trackId}.
func (s *Server) DeleteTrack(w http.ResponseWriter, r *http.Request) {
	username := CallerFromContext(r.Context())
	if username == "" {
		writeError(w, http.StatusUnauthorized, CodeUnauthorized, UsernameHeader+" header is required")
		return
	}

	if err := s.tracks.Delete(r.Context(), chi.URLParam(r, "trackId"), username); err != nil {
		s.handleDomainError(w, r, err, msgWriteTrack)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health.
func (s *Server) HealthCheck(w http.ResponseWriter, r *http.Request) {
	report := s.health.Check(r.Context())

	httpStatus := http.StatusOK
	if report.Status != healthuc.Healthy {
		httpStatus = http.StatusServiceUnavailable
	}

	writeJSON(w, httpStatus, map[string]any{
		"status": report.Status,
		"checks": report.Checks,
	})
}

// Metrics handles GET /metrics.
func (s *Server) Metrics(w http.ResponseWriter, r *http.Request) {
	promhttp.Handler().ServeHTTP(w, r)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code ErrorCode, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Code: code})
}

// sentinelHandler returns an errorHandler that matches a single sentinel error.
// Input errors carry validation text meant for the client; other sentinels
// expose only their own message.
func sentinelHandler(sentinel error, status int, code ErrorCode) errorHandler {
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if status == http.StatusBadRequest {
			msg = err.Error()
		}
		writeError(w, status, code, msg)
		return true
	}
}

func (s *Server) handleDomainError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	log := logger.FromContext(r.Context())
	for _, h := range s.errorHandlers {
		if h(w, err) {
			log.Warn("domain error", zap.Error(err))
			return
		}
	}
	log.Error("internal error", zap.Error(err))
	writeError(w, http.StatusInternalServerError, CodeInternalError, fallback)
}
