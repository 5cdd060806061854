package webapi

import (
	"time"

	"github.com/gfaurobert/specflow/internal/models"
)

// RunSummary is the API response for a single stored run.
type RunSummary struct {
	RunID       string        `json:"runId"`
	Spec        string        `json:"spec"`
	Title       string        `json:"title"`
	Status      models.Status `json:"status"`
	StepCount   int           `json:"stepCount"`
	PassCount   int           `json:"passCount"`
	FailCount   int           `json:"failCount"`
	Screenshots int           `json:"screenshots"`
	DurationMs  int64         `json:"durationMs"`
	StartTime   time.Time     `json:"startTime"`
}

// HealthResponse is the health check response.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
}

// ErrorResponse is returned for errors.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  int    `json:"code"`
}

func summarize(r *models.TestResult, title string) RunSummary {
	s := RunSummary{
		RunID:       r.RunID,
		Spec:        r.SpecName,
		Title:       title,
		Status:      r.OverallStatus,
		StepCount:   len(r.Steps),
		Screenshots: len(r.Screenshots),
		DurationMs:  r.ExecutionTimeMs,
		StartTime:   r.StartTime,
	}
	for _, st := range r.Steps {
		switch st.Status {
		case models.StatusPassed:
			s.PassCount++
		case models.StatusFailed:
			s.FailCount++
		}
	}
	return s
}
