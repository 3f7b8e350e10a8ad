// Package server exposes the assistant over HTTP.
package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/storesage/storesage/internal/config"
	"github.com/storesage/storesage/internal/memory"
	"github.com/storesage/storesage/internal/pipeline"
)

// Server owns the gin engine and the handler dependencies.
type Server struct {
	cfg     *config.Config
	router  *gin.Engine
	pipe    *pipeline.Pipeline
	history *memory.Manager
	db      *gorm.DB
	cache   *redis.Client
	logger  *zap.Logger
}

// New builds the HTTP server and registers all routes.
func New(
	cfg *config.Config,
	pipe *pipeline.Pipeline,
	history *memory.Manager,
	db *gorm.DB,
	cache *redis.Client,
	logger *zap.Logger,
) *Server {
	if !cfg.Server.HTTP.Debug {
		gin.SetMode(gin.ReleaseMode)
	}

	s := &Server{
		cfg:     cfg,
		router:  gin.New(),
		pipe:    pipe,
		history: history,
		db:      db,
		cache:   cache,
		logger:  logger,
	}

	s.router.Use(requestLogger(logger), recovery(logger), cors())

	v1 := s.router.Group("/api/v1")
	{
		v1.POST("/chat", s.handleChat)
		v1.GET("/session/:id", s.handleSession)
		v1.GET("/health", s.handleHealth)
	}

	return s
}

// Router exposes the engine for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Run blocks serving HTTP until the listener fails.
func (s *Server) Run() error {
	addr := fmt.Sprintf(":%d", s.cfg.Server.HTTP.Port)
	s.logger.Info("http server listening", zap.String("addr", addr))
	return s.router.Run(addr)
}

// handleChat runs one assistant turn.
func (s *Server) handleChat(c *gin.Context) {
	var req pipeline.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, "invalid request: "+err.Error())
		return
	}

	resp, err := s.pipe.Process(c.Request.Context(), req)
	if err != nil {
		if errors.Is(err, pipeline.ErrEmptyMessage) {
			fail(c, http.StatusBadRequest, err.Error())
			return
		}
		s.logger.Error("chat turn failed", zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to process message")
		return
	}

	ok(c, resp)
}

// handleSession returns a session's conversation history.
func (s *Server) handleSession(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		fail(c, http.StatusBadRequest, "session id is required")
		return
	}

	logs, err := s.history.History(c.Request.Context(), sessionID, 50)
	if err != nil {
		s.logger.Error("failed to load session", zap.String("session_id", sessionID), zap.Error(err))
		fail(c, http.StatusInternalServerError, "failed to load session")
		return
	}

	ok(c, gin.H{"session_id": sessionID, "messages": logs})
}

// handleHealth reports per-component status. The endpoint answers 200 as
// long as the process is up; degraded components are named in the body.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	components := gin.H{
		"database":  s.databaseStatus(),
		"cache":     s.cacheStatus(ctx),
		"llm":       s.llmStatus(),
		"embedding": s.cfg.Embedding.Provider,
	}

	ok(c, gin.H{"status": "up", "components": components})
}

func (s *Server) databaseStatus() string {
	sqlDB, err := s.db.DB()
	if err != nil || sqlDB.Ping() != nil {
		return "down"
	}
	return "up"
}

func (s *Server) cacheStatus(ctx context.Context) string {
	if s.cache == nil {
		return "disabled"
	}
	if err := s.cache.Ping(ctx).Err(); err != nil {
		return "down"
	}
	return "up"
}

func (s *Server) llmStatus() string {
	if !s.cfg.LLM.Enabled {
		return "disabled"
	}
	return "configured"
}
