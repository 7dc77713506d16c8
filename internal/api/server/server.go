package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/feral-file/ff-marketplace-mirror/internal/api/middleware"
	"github.com/feral-file/ff-marketplace-mirror/internal/block"
	"github.com/feral-file/ff-marketplace-mirror/internal/domain"
	"github.com/feral-file/ff-marketplace-mirror/internal/logger"
	"github.com/feral-file/ff-marketplace-mirror/internal/store"
)

const healthCheckTimeout = 3 * time.Second

// Config holds the ops server configuration
type Config struct {
	Debug        bool
	Address      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	Chain        domain.Chain
}

// Server serves health and metrics endpoints for operators
type Server struct {
	config     Config
	store      store.Store
	head       block.Head
	router     *gin.Engine
	httpServer *http.Server
}

// HealthResponse is the body of GET /healthz
type HealthResponse struct {
	Status          string     `json:"status"`
	Database        string     `json:"database"`
	Chain           string     `json:"chain"`
	CursorBlock     *uint64    `json:"cursorBlock"`
	CursorUpdatedAt *time.Time `json:"cursorUpdatedAt,omitempty"`
	HeadBlock       *uint64    `json:"headBlock,omitempty"`
	Lag             *uint64    `json:"lag,omitempty"`
}

// New creates the ops server. head may be nil when the process does not follow the chain.
func New(cfg Config, st store.Store, head block.Head) *Server {
	if cfg.Debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		config: cfg,
		store:  st,
		head:   head,
	}

	router := gin.New()
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.GET("/healthz", s.health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	s.router = router

	return s
}

// Handler returns the router, for tests and embedding
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.httpServer = &http.Server{
		Addr:         s.config.Address,
		Handler:      s.router,
		ReadTimeout:  s.config.ReadTimeout,
		WriteTimeout: s.config.WriteTimeout,
	}

	logger.Info("Starting ops server", zap.String("address", s.config.Address))

	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("failed to start server: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	logger.Info("Shutting down ops server")

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	resp := HealthResponse{
		Status:   "ok",
		Database: "ok",
		Chain:    string(s.config.Chain),
	}

	if err := s.store.Ping(ctx); err != nil {
		logger.WarnCtx(ctx, "Health check database ping failed", zap.Error(err))
		resp.Status = "unavailable"
		resp.Database = "unreachable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}

	cursor, err := s.store.GetCursor(ctx, s.config.Chain)
	if err != nil {
		logger.WarnCtx(ctx, "Health check cursor read failed", zap.Error(err))
		resp.Status = "unavailable"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	if cursor != nil {
		resp.CursorBlock = &cursor.LastBlock
		resp.CursorUpdatedAt = &cursor.UpdatedAt
	}

	// an unreachable RPC node degrades the response but the process is still healthy
	if s.head != nil {
		latest, err := s.head.Latest(ctx)
		if err != nil {
			logger.DebugCtx(ctx, "Health check head read failed", zap.Error(err))
			resp.Status = "degraded"
		} else {
			resp.HeadBlock = &latest
			if cursor != nil && latest >= cursor.LastBlock {
				lag := latest - cursor.LastBlock
				resp.Lag = &lag
			}
		}
	}

	c.JSON(http.StatusOK, resp)
}
