package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/goccy/go-json"
	"go.uber.org/zap"

	logpkg "github.com/rikitraki/trackapi/internal/logger"
	"github.com/rikitraki/trackapi/internal/metrics"
	trackrepo "github.com/rikitraki/trackapi/internal/repository/track"
	chiTransport "github.com/rikitraki/trackapi/internal/transport/chi"
	healthuc "github.com/rikitraki/trackapi/internal/usecase/health"
	locationuc "github.com/rikitraki/trackapi/internal/usecase/location"
	trackuc "github.com/rikitraki/trackapi/internal/usecase/track"
)

func runServe() error {
	ctx := context.Background()
	a, err := bootstrap(ctx)
	if err != nil {
		return err
	}
	defer a.close()
	cfg, logger := a.cfg, a.logger

	// Register search metrics explicitly (no init())
	metrics.RegisterSearchMetrics()

	repo := a.trackRepo()
	if err := repo.EnsureIndex(ctx); err != nil {
		return fmt.Errorf("ensure index: %w", err)
	}
	logger.Info("Track index ready",
		zap.String("index", trackrepo.IndexName),
		zap.String("breaker", repo.BreakerState()),
	)

	slow := time.Duration(cfg.Search.SlowQueryMs) * time.Millisecond
	instrumented := trackrepo.NewInstrumented(repo, slow, logger)

	locationSvc := locationuc.New(instrumented, locationuc.Options{
		MinResults:     cfg.Search.MinResults,
		MaxResults:     cfg.Search.MaxResults,
		MaxRadiusKm:    cfg.Search.MaxRadiusKm,
		StartPrecision: cfg.Search.StartPrecision,
		ScanLimit:      cfg.Search.ScanLimit,
	}).WithRecorder(metrics.LocationRecorder{})
	trackSvc := trackuc.New(instrumented)
	healthSvc := healthuc.New(a.store, repo)

	server := chiTransport.NewServer(trackSvc, locationSvc, healthSvc, logger)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.CORS(cfg.HTTP.CORSOrigins))
	r.Use(chiTransport.WriteRateLimit(cfg.HTTP.WriteRateLimit))
	r.Use(chiTransport.BearerAuthMiddleware(chiTransport.AuthConfig{
		APIKeys:   cfg.Auth.APIKeys,
		JWTSecret: cfg.Auth.JWTSecret,
		JWTIssuer: cfg.Auth.JWTIssuer,
	}))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	select {
	case err := <-serveErr:
		return fmt.Errorf("http server: %w", err)
	case <-quit:
		logger.Info("Received shutdown signal")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
	return nil
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(chiTransport.ErrorResponse{
						Error: "Internal server error",
						Code:  chiTransport.CodeInternalError,
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// caller is resolved further down the chain, so read it back from the header
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.String("username", r.Header.Get(chiTransport.UsernameHeader)),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
