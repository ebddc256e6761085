// Package server exposes the relay over HTTP.
package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"mediarelay/internal/config"
	"mediarelay/internal/extract"
	"mediarelay/internal/media"
)

// Journal receives one entry per probe or stream.
type Journal interface {
	Record(ctx context.Context, a media.Activity) error
}

// Server is the HTTP front of the relay.
type Server struct {
	cfg     *config.Config
	relay   extract.Extractor
	journal Journal
	log     zerolog.Logger
	router  *gin.Engine

	// slots bounds concurrent streams; nil means unlimited.
	slots chan struct{}
	// locate resolves the extractor for readiness checks.
	locate func() (string, error)
}

// New creates a Server. journal may be nil.
func New(cfg *config.Config, relay extract.Extractor, journal Journal, log zerolog.Logger) *Server {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		relay:   relay,
		journal: journal,
		log:     log.With().Str("component", "server").Logger(),
		locate: func() (string, error) {
			return extract.LocateBinary(cfg.ExtractorPath, cfg.ExtractorName)
		},
	}
	if cfg.MaxConcurrentStreams > 0 {
		s.slots = make(chan struct{}, cfg.MaxConcurrentStreams)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(RequestID(log))
	router.Use(RequestLogger())
	router.Use(CORS())
	router.Use(MetricsRecorder())
	s.router = router
	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/readyz", s.handleReady)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	for _, prefix := range []string{"", "/api"} {
		s.router.POST(prefix+"/probe", s.handleProbe)
		s.router.GET(prefix+"/stream", s.handleStream)
	}
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx is cancelled, then drains in-flight requests for up to
// the configured shutdown timeout. Streams still running after that are cut,
// which kills their extractors through request cancellation.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve is Run on an existing listener.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info().Str("addr", ln.Addr().String()).Msg("relay listening")
		errc <- srv.Serve(ln)
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	s.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.cfg.ShutdownTimeout.Duration)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		s.log.Warn().Err(err).Msg("forcing close of remaining connections")
		srv.Close()
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
