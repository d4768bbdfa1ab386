package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"jsonsig/internal/config"
	"jsonsig/internal/domain"
	"jsonsig/internal/usecase"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Server struct {
	cfg    config.Config
	r      *gin.Engine
	engine *usecase.Engine
	logger zerolog.Logger

	keyStoreName string
	adminAPIKey  string

	rateLimiter       domain.RateLimiter
	rateLimitRequests int
	rateLimitWindow   time.Duration
}

type ServerDeps struct {
	Engine       *usecase.Engine
	Logger       zerolog.Logger
	KeyStoreName string
	RateLimiter  domain.RateLimiter
}

func NewServer(cfg config.Config, deps ServerDeps) (*Server, error) {
	if deps.Engine == nil {
		return nil, errors.New("signature engine is required")
	}
	r := gin.New()
	s := &Server{
		cfg:               cfg,
		r:                 r,
		engine:            deps.Engine,
		logger:            deps.Logger,
		keyStoreName:      deps.KeyStoreName,
		adminAPIKey:       cfg.AdminAPIKey,
		rateLimiter:       deps.RateLimiter,
		rateLimitRequests: cfg.RateLimitRequests,
		rateLimitWindow:   cfg.RateLimitWindow(),
	}
	if s.keyStoreName == "" {
		s.keyStoreName = config.KeyStoreMemory
	}
	if s.adminAPIKey == "" {
		s.logger.Warn().Msg("ADMIN_API_KEY is not set; key management and signing routes are disabled")
	}
	r.Use(gin.Recovery(), s.accessLog())
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	s.r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "keystore": s.keyStoreName})
	})

	v1 := s.r.Group("/v1", s.rateLimit())
	{
		v1.GET("/keys/:kid", s.handleGetKey)
		v1.POST("/verify", s.handleVerify)

		admin := v1.Group("", s.requireAdmin())
		admin.POST("/keys", s.handleGenerateKey)
		admin.PUT("/keys/:kid", s.handleImportKey)
		admin.POST("/sign", s.handleSign)
	}

	s.r.NoRoute(s.handleNoRoute)
}

func (s *Server) Handler() http.Handler {
	return s.r
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.r,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.cfg.HTTPAddr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Info().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Str("client_ip", c.ClientIP()).
			Msg("request")
	}
}
