package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"fx-price-alerts/internal/config"
	"fx-price-alerts/internal/store"
)

// Server is the HTTP front door: it owns rule registration, listing and
// deletion plus subscriber registration, and exposes the metrics endpoint.
// It only ever touches the stores; the engine runs independently.
type Server struct {
	cfg    config.ServerConfig
	srv    *http.Server
	logger zerolog.Logger
}

// NewServer wires the routes and middleware.
func NewServer(cfg config.ServerConfig, rules *store.RuleStore, subscribers *store.SubscriberRegistry, logger zerolog.Logger) *Server {
	logger = logger.With().Str("component", "api").Logger()

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), CORSMiddleware(), RequestLogger(logger))

	h := &handlers{rules: rules, subscribers: subscribers, logger: logger}

	router.GET("/", h.health)
	router.POST("/set-alert", h.setAlert)
	router.GET("/get-alerts", h.getAlerts)
	router.POST("/delete-alert", h.deleteAlert)
	router.POST("/register-token", h.registerToken)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return &Server{
		cfg: cfg,
		srv: &http.Server{
			Addr:         cfg.ListenAddr,
			Handler:      router,
			ReadTimeout:  cfg.ReadTimeout,
			WriteTimeout: cfg.WriteTimeout,
		},
		logger: logger,
	}
}

// Handler exposes the router, primarily for tests.
func (s *Server) Handler() http.Handler {
	return s.srv.Handler
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.ListenAddr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
	defer cancel()

	if err := s.srv.Shutdown(shutdownCtx); err != nil {
		s.logger.Error().Err(err).Msg("http server shutdown failed")
		return err
	}
	s.logger.Info().Msg("http server stopped")
	return <-errCh
}
