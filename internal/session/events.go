// Package session records a run as newline-delimited JSON events and renders
// recorded runs as a timeline.
package session

import "time"

// EventType identifies the kind of session event.
type EventType string

const (
	EventRunStart     EventType = "run_start"
	EventRunComplete  EventType = "run_complete"
	EventTestStart    EventType = "test_start"
	EventStepComplete EventType = "step_complete"
	EventTestComplete EventType = "test_complete"
	EventError        EventType = "error"
)

// Event is a single timestamped entry in a session log.
type Event struct {
	Timestamp time.Time      `json:"timestamp"`
	Type      EventType      `json:"type"`
	Data      map[string]any `json:"data,omitempty"`
}

// NewEvent creates an event with the current timestamp.
func NewEvent(t EventType, data map[string]any) Event {
	return Event{
		Timestamp: time.Now().UTC(),
		Type:      t,
		Data:      data,
	}
}

func RunStartData(baseURL string, specCount int) map[string]any {
	return map[string]any{
		"base_url":   baseURL,
		"spec_count": specCount,
	}
}

func RunCompleteData(specs, passed, failed, errors int, durationMs int64) map[string]any {
	return map[string]any{
		"specs":       specs,
		"passed":      passed,
		"failed":      failed,
		"errors":      errors,
		"duration_ms": durationMs,
	}
}

func TestStartData(spec string, totalSteps int) map[string]any {
	return map[string]any{
		"spec":        spec,
		"total_steps": totalSteps,
	}
}

func StepCompleteData(spec, stepID string, stepNum, totalSteps int, status string, durationMs int64, errMsg string) map[string]any {
	d := map[string]any{
		"spec":        spec,
		"step_id":     stepID,
		"step_num":    stepNum,
		"total_steps": totalSteps,
		"status":      status,
		"duration_ms": durationMs,
	}
	if errMsg != "" {
		d["error"] = errMsg
	}
	return d
}

func TestCompleteData(spec, status string, durationMs int64) map[string]any {
	return map[string]any{
		"spec":        spec,
		"status":      status,
		"duration_ms": durationMs,
	}
}

// ErrorData returns event data for an error.
func ErrorData(message string, details map[string]any) map[string]any {
	d := map[string]any{
		"message": message,
	}
	for k, v := range details {
		d[k] = v
	}
	return d
}
