package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/GriffinCanCode/chatstream/internal/infrastructure/config"
	"github.com/GriffinCanCode/chatstream/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/chatstream/internal/server/middleware"
)

// Options configures a Server
type Options struct {
	Config    config.DevBackendConfig
	RateLimit config.RateLimitConfig
	Models    []Model
	Responder Responder
	Logger    *zap.Logger
	Metrics   *monitoring.Metrics
}

// Server wraps the HTTP router and its in-memory state
type Server struct {
	router    *gin.Engine
	store     *Store
	catalog   *Catalog
	responder Responder
	logger    *zap.Logger
	metrics   *monitoring.Metrics
	addr      string
	http      *http.Server
}

// New creates a server with its router and middleware stack
func New(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Metrics == nil {
		opts.Metrics = monitoring.NewMetrics()
	}
	if opts.Models == nil {
		opts.Models = DefaultModels
	}
	if opts.Responder == nil {
		opts.Responder = ScriptedResponder{ChunkDelay: opts.Config.ChunkDelay.Std()}
	}

	s := &Server{
		store:     NewStore(),
		catalog:   NewCatalog(opts.Models, opts.Config.DefaultModel),
		responder: opts.Responder,
		logger:    opts.Logger,
		metrics:   opts.Metrics,
		addr:      net.JoinHostPort(opts.Config.Host, opts.Config.Port),
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(monitoring.Middleware(s.metrics))
	router.Use(middleware.CORS(middleware.DefaultCORSConfig()))
	if opts.RateLimit.Enabled {
		s.logger.Info("Rate limiting enabled",
			zap.Int("rps", opts.RateLimit.RequestsPerSecond),
			zap.Int("burst", opts.RateLimit.Burst),
		)
		rl := middleware.DefaultRateLimitConfig()
		rl.RequestsPerSecond = opts.RateLimit.RequestsPerSecond
		rl.Burst = opts.RateLimit.Burst
		router.Use(middleware.RateLimit(rl))
	}

	router.GET("/", s.root)
	router.GET("/health", s.health)
	router.GET("/metrics", gin.WrapH(s.metrics.Handler()))

	api := router.Group("/api")
	api.GET("/sessions", s.listSessions)
	api.GET("/sessions/:id", s.getSession)
	api.GET("/models", s.listModels)
	api.POST("/models/select/*model_id", s.selectModel)

	router.GET("/ws/chat/:target", s.handleStream)

	s.router = router
	return s
}

// Handler returns the root HTTP handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Store returns the conversation store
func (s *Server) Store() *Store {
	return s.store
}

// Catalog returns the model catalog
func (s *Server) Catalog() *Catalog {
	return s.catalog
}

// Addr returns the configured listen address
func (s *Server) Addr() string {
	return s.addr
}

// Run serves until ctx is cancelled, then shuts down gracefully
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:              s.addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("Starting development backend", zap.String("addr", s.addr))
		errCh <- s.http.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		return s.Shutdown()
	}
}

// Shutdown drains in-flight requests
func (s *Server) Shutdown() error {
	if s.http == nil {
		return nil
	}
	s.logger.Info("Shutting down development backend")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.http.Shutdown(ctx)
}
