package server

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/copyleftdev/hoyosign/internal/config"
)

// Server exposes the webhook-trigger surface of serve mode: a run trigger,
// the last report, and a health probe. Scheduling stays external; hitting
// the trigger is the only way a run starts.
type Server struct {
	httpServer *http.Server
	cfg        *config.Config
	logger     *zap.Logger
}

func NewServer(cfg *config.Config, run RunFunc, logger *zap.Logger) *Server {
	apiHandler := NewAPIHandler(run, logger)
	router := chi.NewRouter()

	// --- Middleware Setup ---
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(RequestLogger(logger))
	router.Use(middleware.Recoverer)
	router.Use(middleware.Timeout(60 * time.Second))

	corsOptions := cors.Options{
		AllowedOrigins:   cfg.Server.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	router.Use(cors.Handler(corsOptions))

	if cfg.Server.ApiKey != "" {
		router.Use(APIKeyAuth(cfg.Server.ApiKey))
	}

	// --- Route Definitions ---
	router.Route("/api/v1", func(r chi.Router) {
		r.Post("/run", apiHandler.HandleTriggerRun)
		r.Get("/report", apiHandler.HandleGetReport)
	})

	router.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status": "ok"}`))
	})

	httpServer := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	return &Server{
		httpServer: httpServer,
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *Server) Start() error {
	s.logger.Info("starting hoyosign server", zap.String("addr", s.httpServer.Addr))
	err := s.httpServer.ListenAndServe()
	if err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")
	err := s.httpServer.Shutdown(ctx)
	if err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}
	s.logger.Info("server gracefully stopped")
	return nil
}

// --- Custom Middleware ---

// RequestLogger logs one line per request through zap.
func RequestLogger(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			defer func() {
				logger.Info("request",
					zap.String("method", r.Method),
					zap.String("uri", r.RequestURI),
					zap.String("remote", r.RemoteAddr),
					zap.Int("status", ww.Status()),
					zap.Int("bytes", ww.BytesWritten()),
					zap.Duration("elapsed", time.Since(start)),
				)
			}()
			next.ServeHTTP(ww, r)
		}
		return http.HandlerFunc(fn)
	}
}

// APIKeyAuth provides simple API Key authentication
func APIKeyAuth(validKey string) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			// Allow pre-flight OPTIONS requests without auth
			if r.Method == "OPTIONS" {
				next.ServeHTTP(w, r)
				return
			}

			apiKey := r.Header.Get("X-API-Key")
			if apiKey == "" {
				authHeader := r.Header.Get("Authorization")
				if strings.HasPrefix(authHeader, "Bearer ") {
					apiKey = strings.TrimPrefix(authHeader, "Bearer ")
				}
			}

			if apiKey == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized)+": API key required", http.StatusUnauthorized)
				return
			}
			if apiKey != validKey {
				http.Error(w, http.StatusText(http.StatusForbidden)+": Invalid API key", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
