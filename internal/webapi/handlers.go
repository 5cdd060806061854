// Package webapi exposes stored test results and asset information as JSON.
package webapi

import (
	"errors"

	"github.com/gfaurobert/specflow/internal/models"
	"github.com/gfaurobert/specflow/internal/reporting"
	"github.com/gfaurobert/specflow/internal/resultstore"
	"github.com/gfaurobert/specflow/internal/screenshot"
	"github.com/gfaurobert/specflow/internal/utils"
	"github.com/gofiber/fiber/v2"
)

// Version is set at build time or defaults to dev.
var Version = "dev"

// ResultSource provides stored runs.
type ResultSource interface {
	Latest() ([]*models.TestResult, error)
	List(spec string) ([]*models.TestResult, error)
	Get(spec, runID string) (*models.TestResult, error)
}

// AssetSource reports a spec's screenshot directory.
type AssetSource interface {
	DirectoryInfo(spec string) (*screenshot.DirectoryInfo, error)
}

// Handlers holds the HTTP handler methods for the web API.
type Handlers struct {
	results ResultSource
	assets  AssetSource
}

// NewHandlers creates a new Handlers with the given sources.
func NewHandlers(results ResultSource, assets AssetSource) *Handlers {
	return &Handlers{results: results, assets: assets}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(c *fiber.Ctx) error {
	return c.JSON(HealthResponse{Status: "ok", Version: Version})
}

// HandleResults returns the latest run of every spec.
func (h *Handlers) HandleResults(c *fiber.Ctx) error {
	latest, err := h.results.Latest()
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, err.Error())
	}
	out := make([]RunSummary, 0, len(latest))
	for _, r := range latest {
		out = append(out, summarize(r, utils.SpecTitle(r.SpecName)))
	}
	return c.JSON(out)
}

// HandleSummary returns report totals over the latest runs.
func (h *Handlers) HandleSummary(c *fiber.Ctx) error {
	latest, err := h.results.Latest()
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, err.Error())
	}
	data := reporting.NewGenerator("").BuildReportData(latest, nil, nil)
	return c.JSON(data.Summary)
}

// HandleRuns lists every stored run of one spec, oldest first.
func (h *Handlers) HandleRuns(c *fiber.Ctx) error {
	spec := c.Params("spec")
	if err := utils.ValidateSpecName(spec); err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}
	runs, err := h.results.List(spec)
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, err.Error())
	}
	title := utils.SpecTitle(spec)
	out := make([]RunSummary, 0, len(runs))
	for _, r := range runs {
		out = append(out, summarize(r, title))
	}
	return c.JSON(out)
}

// HandleRunDetail returns one full TestResult.
func (h *Handlers) HandleRunDetail(c *fiber.Ctx) error {
	spec, id := c.Params("spec"), c.Params("id")
	if err := utils.ValidateSpecName(spec); err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}
	if id == "" {
		return writeError(c, fiber.StatusBadRequest, "run id is required")
	}

	r, err := h.results.Get(spec, id)
	if err != nil {
		if errors.Is(err, resultstore.ErrNotFound) {
			return writeError(c, fiber.StatusNotFound, "run not found")
		}
		return writeError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(r)
}

// HandleAssets returns the spec's screenshot directory info.
func (h *Handlers) HandleAssets(c *fiber.Ctx) error {
	spec := c.Params("spec")
	if err := utils.ValidateSpecName(spec); err != nil {
		return writeError(c, fiber.StatusBadRequest, err.Error())
	}
	info, err := h.assets.DirectoryInfo(spec)
	if err != nil {
		return writeError(c, fiber.StatusInternalServerError, err.Error())
	}
	return c.JSON(info)
}

// RegisterRoutes registers all web API routes on the given router.
func RegisterRoutes(r fiber.Router, results ResultSource, assets AssetSource) {
	h := NewHandlers(results, assets)
	r.Get("/health", h.HandleHealth)
	r.Get("/results", h.HandleResults)
	r.Get("/summary", h.HandleSummary)
	r.Get("/specs/:spec/runs", h.HandleRuns)
	r.Get("/specs/:spec/runs/:id", h.HandleRunDetail)
	r.Get("/specs/:spec/assets", h.HandleAssets)
}

func writeError(c *fiber.Ctx, code int, msg string) error {
	return c.Status(code).JSON(ErrorResponse{Error: msg, Code: code})
}
