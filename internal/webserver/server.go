// Package webserver provides an HTTP server that renders the markdown test
// report and exposes the JSON API over stored results.
package webserver

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"time"

	"github.com/gfaurobert/specflow/internal/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
)

// Config holds the HTTP server configuration.
type Config struct {
	Host       string
	Port       int
	ReportPath string
	AssetsDir  string
	Results    webapi.ResultSource
	Assets     webapi.AssetSource
	NoBrowser  bool
	Logger     *zap.Logger
}

// Server wraps the fiber app with configuration.
type Server struct {
	cfg    Config
	app    *fiber.App
	logger *zap.Logger
}

// New creates a new HTTP server with the given configuration.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Host == "" {
		cfg.Host = "127.0.0.1"
	}
	if cfg.Port == 0 {
		cfg.Port = 4173
	}
	if cfg.Results == nil || cfg.Assets == nil {
		return nil, fmt.Errorf("webserver: results and assets sources are required")
	}

	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		ErrorHandler:          errorHandler(cfg.Logger),
	})
	s := &Server{cfg: cfg, app: app, logger: cfg.Logger}

	app.Use(recover.New())
	app.Use(requestLogger(cfg.Logger))
	registerRoutes(app, cfg)
	return s, nil
}

// Addr is the listen address.
func (s *Server) Addr() string {
	return fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port)
}

// ListenAndServe starts the HTTP server and optionally opens a browser. It
// returns once ctx is cancelled and the server has shut down.
func (s *Server) ListenAndServe(ctx context.Context) error {
	url := fmt.Sprintf("http://localhost:%d", s.cfg.Port)
	s.logger.Info("HTTP server starting", zap.String("address", s.Addr()), zap.String("url", url))

	if !s.cfg.NoBrowser {
		go func() {
			time.Sleep(500 * time.Millisecond)
			if err := openBrowser(url); err != nil {
				s.logger.Debug("failed to open browser", zap.Error(err))
			}
		}()
	}

	errCh := make(chan error, 1)
	go func() { errCh <- s.app.Listen(s.Addr()) }()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		if err := s.app.ShutdownWithTimeout(5 * time.Second); err != nil {
			s.logger.Error("HTTP server shutdown error", zap.Error(err))
			return err
		}
		return nil
	}
}

// App returns the underlying fiber app (useful for testing).
func (s *Server) App() *fiber.App {
	return s.app
}

// openBrowser opens the given URL in the default browser.
func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	case "windows":
		cmd = exec.Command("cmd", "/c", "start", "", url)
	default:
		return fmt.Errorf("unsupported platform: %s", runtime.GOOS)
	}
	return cmd.Start()
}
