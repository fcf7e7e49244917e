package api

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
)

// Server provides the liveness endpoint used by the hosting platform
type Server struct {
	engine  *gin.Engine
	server  *http.Server
	port    string
	started time.Time
	now     func() time.Time
	log     *slog.Logger
}

// HealthResponse is the liveness payload
type HealthResponse struct {
	Status    string `json:"status"`
	Uptime    int64  `json:"uptime"` // seconds
	Timestamp string `json:"timestamp"`
}

// NewServer creates a new API server
func NewServer(port string, log *slog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		engine:  gin.New(),
		port:    port,
		started: time.Now(),
		now:     time.Now,
		log:     log.With("component", "api"),
	}
	s.engine.Use(gin.Recovery())
	s.setupRoutes()

	s.server = &http.Server{
		Addr:              ":" + port,
		Handler:           s.engine,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) setupRoutes() {
	s.engine.GET("/", s.healthCheck)
	s.engine.GET("/health", s.healthCheck)
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until Stop is called
func (s *Server) Start() error {
	s.log.Info("health server listening", "port", s.port)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return errors.Wrapf(err, "listen on :%s", s.port)
	}
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

// GetPort returns the listening port
func (s *Server) GetPort() int {
	port, _ := strconv.Atoi(s.port)
	return port
}

func (s *Server) healthCheck(c *gin.Context) {
	now := s.now()
	c.JSON(http.StatusOK, HealthResponse{
		Status:    "ok",
		Uptime:    int64(now.Sub(s.started).Seconds()),
		Timestamp: now.UTC().Format(time.RFC3339),
	})
}
