package models

import "time"

// SpecSection aggregates every TestResult that shares a spec name.
type SpecSection struct {
	SpecName        string        `json:"specName"`
	Description     string        `json:"description"`
	TestResults     []*TestResult `json:"testResults"`
	OverallStatus   Status        `json:"overallStatus"`
	LastExecuted    time.Time     `json:"lastExecuted"`
	ScreenshotCount int           `json:"screenshotCount"`
	ExecutionTimeMs int64         `json:"executionTimeMs"`
}

// ReportSummary holds the report-wide totals.
type ReportSummary struct {
	TotalSpecs          int   `json:"totalSpecs"`
	TotalTests          int   `json:"totalTests"`
	PassedTests         int   `json:"passedTests"`
	FailedTests         int   `json:"failedTests"`
	SkippedTests        int   `json:"skippedTests"`
	ExecutionTimeMs     int64 `json:"executionTimeMs"`
	ScreenshotsCaptured int   `json:"screenshotsCaptured"`
}

// FutureTest is a specification that exists on disk but has no result yet.
type FutureTest struct {
	SpecName      string `json:"specName"`
	CriteriaCount int    `json:"criteriaCount"`
	TestableCount int    `json:"testableCount"`
}

// ReportData is everything the markdown report is rendered from.
type ReportData struct {
	GeneratedAt  time.Time     `json:"generatedAt"`
	Summary      ReportSummary `json:"summary"`
	SpecSections []SpecSection `json:"specSections"`
	FutureTests  []FutureTest  `json:"futureTests,omitempty"`
	Errors       []string      `json:"errors"`
}
