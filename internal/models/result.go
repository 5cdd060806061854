package models

import "time"

// Status represents the outcome of a step, a test run or a spec section.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
	// StatusMixed only applies to spec sections whose results disagree.
	StatusMixed Status = "mixed"
)

// StepResult is the outcome of executing one TestStep.
type StepResult struct {
	StepID          string    `json:"stepId"`
	Description     string    `json:"description"`
	Status          Status    `json:"status"`
	Screenshot      string    `json:"screenshot,omitempty"`
	ErrorMessage    string    `json:"errorMessage,omitempty"`
	Attempts        int       `json:"attempts,omitempty"`
	ExecutionTimeMs int64     `json:"executionTimeMs"`
	Timestamp       time.Time `json:"timestamp"`
}

// TestResult is the outcome of executing a whole TestScript.
type TestResult struct {
	RunID           string       `json:"runId"`
	SpecName        string       `json:"specName"`
	TestScript      *TestScript  `json:"testScript,omitempty"`
	Steps           []StepResult `json:"steps"`
	OverallStatus   Status       `json:"overallStatus"`
	ExecutionTimeMs int64        `json:"executionTimeMs"`
	Screenshots     []string     `json:"screenshots"`
	StartTime       time.Time    `json:"startTime"`
	EndTime         time.Time    `json:"endTime"`
}

// Finalize derives OverallStatus and Screenshots from Steps.
func (r *TestResult) Finalize() {
	r.OverallStatus = OverallStatus(r.Steps)
	r.Screenshots = CollectScreenshots(r.Steps)
}

// OverallStatus is Failed iff any step failed.
func OverallStatus(steps []StepResult) Status {
	for _, s := range steps {
		if s.Status == StatusFailed {
			return StatusFailed
		}
	}
	return StatusPassed
}

// CollectScreenshots returns the non-empty screenshot paths in step order.
func CollectScreenshots(steps []StepResult) []string {
	shots := make([]string, 0, len(steps))
	for _, s := range steps {
		if s.Screenshot != "" {
			shots = append(shots, s.Screenshot)
		}
	}
	return shots
}

// StepFor returns the plan step that produced the i-th step result, if the
// script is attached.
func (r *TestResult) StepFor(i int) (TestStep, bool) {
	if r.TestScript == nil || i < 0 || i >= len(r.TestScript.Steps) {
		return TestStep{}, false
	}
	return r.TestScript.Steps[i], true
}
