// Package server exposes the recording controller on a local unix socket so
// that a desktop shortcut (or another terminal) can drive a running instance.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"time"

	"github.com/alkime/screenrec/internal/config"
	"github.com/alkime/screenrec/internal/session"
	"github.com/gin-gonic/gin"
)

// ControlHost is the Host every control request must carry.
const ControlHost = "screenrec"

// ErrAlreadyServing means another instance owns the socket.
var ErrAlreadyServing = errors.New("another screenrec instance is already running")

// Recorder is the part of the session controller the server drives.
type Recorder interface {
	Start(ctx context.Context) (session.Status, error)
	Stop(ctx context.Context) (session.Status, error)
	TogglePause(ctx context.Context) (session.Status, error)
	Status(ctx context.Context) (session.Status, error)
}

// Server represents the control server.
type Server struct {
	config   *config.Config
	logger   *slog.Logger
	router   *gin.Engine
	recorder Recorder
}

// New creates a new Server instance.
func New(cfg *config.Config, recorder Recorder, logger *slog.Logger) *Server {
	if !cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	// gin.Default would log to stdout, which the terminal UI owns
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(logger))

	server := &Server{
		config:   cfg,
		logger:   logger,
		router:   router,
		recorder: recorder,
	}

	setupSecurityMiddleware(router, cfg, logger)
	server.setupRoutes()

	return server
}

// Router exposes the handler for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Serve listens on the unix socket at path until ctx is done. A stale socket
// left by a crashed instance is replaced; a live one is ErrAlreadyServing.
func (s *Server) Serve(ctx context.Context, path string) error {
	ln, err := listen(path)
	if err != nil {
		return err
	}
	defer func() { _ = os.Remove(path) }()

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	shutdownDone := make(chan struct{})
	go func() {
		defer close(shutdownDone)
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.logger.Warn("control server shutdown", "error", err)
		}
	}()

	s.logger.Info("control server listening", "socket", path)

	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("control server: %w", err)
	}

	<-shutdownDone

	return nil
}

func listen(path string) (net.Listener, error) {
	if _, err := os.Stat(path); err == nil {
		conn, dialErr := net.DialTimeout("unix", path, time.Second)
		if dialErr == nil {
			_ = conn.Close()
			return nil, fmt.Errorf("%w (socket %s)", ErrAlreadyServing, path)
		}

		if err := os.Remove(path); err != nil {
			return nil, fmt.Errorf("failed to remove stale socket: %w", err)
		}
	}

	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", path, err)
	}

	// only the owner may drive the recorder
	if err := os.Chmod(path, 0o600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("failed to restrict socket permissions: %w", err)
	}

	return ln, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	api := s.router.Group("/v1")
	{
		api.GET("/status", s.handleStatus)
		api.POST("/start", s.handleStart)
		api.POST("/stop", s.handleStop)
		api.POST("/pause", s.handlePause)
	}
}

// handleHealth handles the health check endpoint
func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "screenrec",
	})
}

func (s *Server) handleStatus(c *gin.Context) {
	s.respond(c, "status", s.recorder.Status)
}

func (s *Server) handleStart(c *gin.Context) {
	s.respond(c, "start", s.recorder.Start)
}

func (s *Server) handleStop(c *gin.Context) {
	s.respond(c, "stop", s.recorder.Stop)
}

func (s *Server) handlePause(c *gin.Context) {
	s.respond(c, "pause", s.recorder.TogglePause)
}

// StatusResponse is the body of every /v1 response.
type StatusResponse struct {
	Status session.Status `json:"status"`
	Error  string         `json:"error,omitempty"`
}

func (s *Server) respond(c *gin.Context, action string, fn func(context.Context) (session.Status, error)) {
	st, err := fn(c.Request.Context())
	if err != nil {
		code := statusCode(err)
		if code >= http.StatusInternalServerError {
			s.logger.Error("control request failed", "action", action, "error", err)
		}

		c.JSON(code, StatusResponse{Status: st, Error: err.Error()})

		return
	}

	c.JSON(http.StatusOK, StatusResponse{Status: st})
}

func statusCode(err error) int {
	var startErr *session.StartError

	switch {
	case errors.Is(err, session.ErrAlreadyRecording),
		errors.Is(err, session.ErrNotRecording),
		errors.Is(err, session.ErrBusy):
		return http.StatusConflict
	case errors.As(err, &startErr):
		return http.StatusBadGateway
	case errors.Is(err, session.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
