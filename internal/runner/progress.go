package runner

import "github.com/gfaurobert/specflow/internal/models"

// ProgressListener receives progress updates
type ProgressListener func(event ProgressEvent)

// EventType represents the type of progress event
type EventType string

const (
	EventTestStart    EventType = "test_start"
	EventStepStart    EventType = "step_start"
	EventStepComplete EventType = "step_complete"
	EventTestComplete EventType = "test_complete"
)

// ProgressEvent represents a progress update
type ProgressEvent struct {
	EventType  EventType
	SpecName   string
	StepID     string
	StepNum    int
	TotalSteps int
	Status     models.Status
	DurationMs int64
	Details    map[string]any
}

// OnProgress registers a progress listener
func (r *TestRunner) OnProgress(listener ProgressListener) {
	r.progressMu.Lock()
	defer r.progressMu.Unlock()
	r.listeners = append(r.listeners, listener)
}

func (r *TestRunner) notifyProgress(event ProgressEvent) {
	r.progressMu.Lock()
	listeners := make([]ProgressListener, len(r.listeners))
	copy(listeners, r.listeners)
	r.progressMu.Unlock()

	for _, l := range listeners {
		l(event)
	}
}
