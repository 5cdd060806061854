package webserver

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"os"
	"path/filepath"
	"time"

	"github.com/gfaurobert/specflow/internal/webapi"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"go.uber.org/zap"
)

const pageTemplate = `<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>%s</title>
<style>
body{font-family:system-ui,sans-serif;max-width:1100px;margin:2rem auto;padding:0 1rem;color:#1f2328}
table{border-collapse:collapse;margin:1rem 0}
th,td{border:1px solid #d0d7de;padding:.35rem .6rem;text-align:left}
th{background:#f6f8fa}
code{background:#f6f8fa;padding:.1rem .3rem;border-radius:4px}
</style>
</head>
<body>
%s
</body>
</html>
`

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// registerRoutes sets up the API, the rendered report and static files.
func registerRoutes(app *fiber.App, cfg Config) {
	webapi.RegisterRoutes(app.Group("/api"), cfg.Results, cfg.Assets)

	app.Get("/", func(c *fiber.Ctx) error {
		page, err := renderReport(cfg.ReportPath)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				c.Status(fiber.StatusNotFound).Type("html")
				return c.SendString(fmt.Sprintf(pageTemplate, "No report",
					"<p>No report has been generated yet. Run <code>specflow run</code> or <code>specflow report</code>.</p>"))
			}
			return err
		}
		c.Type("html")
		return c.Send(page)
	})

	if cfg.AssetsDir != "" {
		app.Static("/assets", cfg.AssetsDir)
	}
	// Screenshot links in the report are relative to its directory.
	if cfg.ReportPath != "" {
		app.Static("/", filepath.Dir(cfg.ReportPath))
	}
}

// renderReport converts the markdown report into a standalone HTML page.
func renderReport(path string) ([]byte, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var body bytes.Buffer
	if err := markdown.Convert(src, &body); err != nil {
		return nil, fmt.Errorf("rendering %s: %w", path, err)
	}
	title := html.EscapeString(filepath.Base(path))
	return []byte(fmt.Sprintf(pageTemplate, title, body.String())), nil
}

// requestLogger tags each response with a request id and logs it.
func requestLogger(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		requestID := c.Get(fiber.HeaderXRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(fiber.HeaderXRequestID, requestID)

		err := c.Next()
		logger.Debug("http request",
			zap.String("request_id", requestID),
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("duration", time.Since(start)),
			zap.Error(err))
		return err
	}
}

func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
		}
		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
		}
		return c.Status(code).JSON(webapi.ErrorResponse{Error: err.Error(), Code: code})
	}
}
