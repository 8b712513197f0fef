// Package web exposes a small HTTP surface for health checks and a
// status snapshot of the running bot. It uses Echo v5 for routing.
package web

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/labstack/echo/v5"
	"github.com/labstack/echo/v5/middleware"
	"go.uber.org/zap"

	"vancedhelper/pkg/channels"
	"vancedhelper/pkg/config"
	"vancedhelper/pkg/history"
	"vancedhelper/pkg/logger"
	"vancedhelper/pkg/prompt"
	"vancedhelper/pkg/version"
)

// Server is the status HTTP server.
type Server struct {
	echo       *echo.Echo
	httpServer *http.Server
	config     *config.Config
	log        *logger.Logger
	channels   *channels.Manager
	prompts    *prompt.Registry
	history    *history.Store
	startedAt  time.Time
}

// NewServer creates a new status server.
func NewServer(
	cfg *config.Config,
	log *logger.Logger,
	chanMgr *channels.Manager,
	promptRegistry *prompt.Registry,
	historyStore *history.Store,
) *Server {
	s := &Server{
		config:    cfg,
		log:       log,
		channels:  chanMgr,
		prompts:   promptRegistry,
		history:   historyStore,
		startedAt: time.Now(),
	}

	s.setup()
	return s
}

func (s *Server) setup() {
	e := echo.New()

	e.Use(middleware.Recover())

	e.GET("/healthz", s.handleHealthz)
	e.GET("/api/status", s.handleStatus)

	s.echo = e
}

func (s *Server) addr() string {
	return fmt.Sprintf("%s:%d", s.config.Web.Host, s.config.Web.Port)
}

// Start starts the status server.
func (s *Server) Start() error {
	addr := s.addr()
	s.log.Info("status server starting", zap.String("addr", addr))

	// Use http.Server directly so we can control shutdown from fx lifecycle
	// (Echo v5's e.Start() manages its own signal handling which conflicts with fx).
	s.httpServer = &http.Server{
		Addr:    addr,
		Handler: s.echo,
	}

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			s.log.Error("status server error", zap.Error(err))
		}
	}()

	return nil
}

// Stop gracefully stops the status server.
func (s *Server) Stop(ctx context.Context) error {
	s.log.Info("status server stopping")
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealthz(c *echo.Context) error {
	return c.String(http.StatusOK, "ok")
}

func (s *Server) handleStatus(c *echo.Context) error {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	uptime := time.Since(s.startedAt)

	totals := map[string]int64{}
	if s.history != nil {
		byOutcome, err := s.history.TotalsByOutcome(c.Request().Context())
		if err != nil {
			s.log.Warn("failed to load prompt history totals", zap.Error(err))
		} else {
			for outcome, n := range byOutcome {
				totals[string(outcome)] = n
			}
		}
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"version":            version.GetVersion(),
		"commit":             version.GitCommit,
		"build_time":         version.BuildTime,
		"os":                 runtime.GOOS,
		"arch":               runtime.GOARCH,
		"go_version":         runtime.Version(),
		"pid":                os.Getpid(),
		"uptime":             uptime.Round(time.Second).String(),
		"uptime_seconds":     int64(uptime.Seconds()),
		"memory_alloc_bytes": mem.Alloc,
		"prompts_open":       s.prompts.Count(),
		"prompt_totals":      totals,
		"channels":           s.channels.Statuses(),
	})
}
