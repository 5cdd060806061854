package session

import (
	"github.com/gfaurobert/specflow/internal/runner"
	"go.uber.org/zap"
)

// Recorder turns runner progress into session events.
type Recorder struct {
	log    Logger
	logger *zap.Logger
}

// NewRecorder writes to l. Write failures are logged and otherwise ignored
// so a broken log never fails a run.
func NewRecorder(l Logger, logger *zap.Logger) *Recorder {
	if l == nil {
		l = NopLogger{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{log: l, logger: logger}
}

// Record writes ev.
func (r *Recorder) Record(ev Event) {
	if err := r.log.Log(ev); err != nil {
		r.logger.Warn("writing session event", zap.String("type", string(ev.Type)), zap.Error(err))
	}
}

// Listener adapts the recorder to runner progress events. Step starts are
// not recorded; the matching completion carries the outcome.
func (r *Recorder) Listener() runner.ProgressListener {
	return func(ev runner.ProgressEvent) {
		switch ev.EventType {
		case runner.EventTestStart:
			r.Record(NewEvent(EventTestStart, TestStartData(ev.SpecName, ev.TotalSteps)))
		case runner.EventStepComplete:
			errMsg, _ := ev.Details["error"].(string)
			r.Record(NewEvent(EventStepComplete, StepCompleteData(
				ev.SpecName, ev.StepID, ev.StepNum, ev.TotalSteps, string(ev.Status), ev.DurationMs, errMsg)))
		case runner.EventTestComplete:
			r.Record(NewEvent(EventTestComplete, TestCompleteData(ev.SpecName, string(ev.Status), ev.DurationMs)))
		}
	}
}
