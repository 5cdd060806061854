// Package reporting turns test results into the cumulative markdown summary
// and JUnit XML.
package reporting

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gfaurobert/specflow/internal/models"
	"github.com/gfaurobert/specflow/internal/utils"
	"go.uber.org/zap"
)

// ReportTitle heads the markdown summary.
const ReportTitle = "E2E Test Summary"

// GenerationError marks a failure to produce or persist the report.
type GenerationError struct {
	Err error
}

func (e *GenerationError) Error() string {
	return "Report generation failed: " + e.Err.Error()
}

func (e *GenerationError) Unwrap() error { return e.Err }

// Generator renders and writes the summary report.
type Generator struct {
	reportPath string
	now        func() time.Time
	logger     *zap.Logger
}

// Option configures a Generator.
type Option func(*Generator)

func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

func WithLogger(l *zap.Logger) Option {
	return func(g *Generator) {
		if l != nil {
			g.logger = l
		}
	}
}

// NewGenerator creates a generator that writes to reportPath. Screenshot
// links in the report are made relative to reportPath's directory.
func NewGenerator(reportPath string, opts ...Option) *Generator {
	g := &Generator{
		reportPath: reportPath,
		now:        time.Now,
		logger:     zap.NewNop(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

// ReportPath returns the destination file.
func (g *Generator) ReportPath() string { return g.reportPath }

// OrganizeBySpecs groups results by spec name in first-seen order. Results
// keep their input order within a section.
func OrganizeBySpecs(results []*models.TestResult) []models.SpecSection {
	index := map[string]int{}
	var sections []models.SpecSection
	for _, r := range results {
		if r == nil {
			continue
		}
		i, ok := index[r.SpecName]
		if !ok {
			i = len(sections)
			index[r.SpecName] = i
			sections = append(sections, models.SpecSection{
				SpecName:    r.SpecName,
				Description: utils.SpecTitle(r.SpecName),
			})
		}
		s := &sections[i]
		s.TestResults = append(s.TestResults, r)
		s.ScreenshotCount += len(r.Screenshots)
		s.ExecutionTimeMs += r.ExecutionTimeMs
		if r.EndTime.After(s.LastExecuted) {
			s.LastExecuted = r.EndTime
		}
	}
	for i := range sections {
		sections[i].OverallStatus = sectionStatus(sections[i].TestResults)
	}
	return sections
}

func sectionStatus(results []*models.TestResult) models.Status {
	passed, failed := 0, 0
	for _, r := range results {
		if r.OverallStatus == models.StatusFailed {
			failed++
		} else {
			passed++
		}
	}
	switch {
	case failed == 0:
		return models.StatusPassed
	case passed == 0:
		return models.StatusFailed
	default:
		return models.StatusMixed
	}
}

// BuildReportData computes the summary totals. Test counts are step counts.
func (g *Generator) BuildReportData(results []*models.TestResult, future []models.FutureTest, errs []string) models.ReportData {
	sections := OrganizeBySpecs(results)
	data := models.ReportData{
		GeneratedAt:  g.now().UTC(),
		SpecSections: sections,
		FutureTests:  future,
		Errors:       append([]string{}, errs...),
	}
	data.Summary.TotalSpecs = len(sections)
	for _, s := range sections {
		data.Summary.ScreenshotsCaptured += s.ScreenshotCount
		data.Summary.ExecutionTimeMs += s.ExecutionTimeMs
		for _, r := range s.TestResults {
			for _, step := range r.Steps {
				data.Summary.TotalTests++
				switch step.Status {
				case models.StatusPassed:
					data.Summary.PassedTests++
				case models.StatusFailed:
					data.Summary.FailedTests++
				case models.StatusSkipped:
					data.Summary.SkippedTests++
				}
			}
		}
	}
	return data
}

// GenerateSpecSection renders one result as a markdown step table followed
// by the failure details.
func (g *Generator) GenerateSpecSection(result *models.TestResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "#### Run `%s`: %s\n\n", runLabel(result), statusLabel(result.OverallStatus))
	fmt.Fprintf(&b, "- **Started:** %s\n", formatTime(result.StartTime))
	fmt.Fprintf(&b, "- **Duration:** %s\n", formatDuration(result.ExecutionTimeMs))
	fmt.Fprintf(&b, "- **Screenshots:** %d\n\n", len(result.Screenshots))

	if len(result.Steps) == 0 {
		b.WriteString("_No steps were executed._\n\n")
		return b.String()
	}

	b.WriteString("| # | Step | Expected Result | Status | Screenshot |\n")
	b.WriteString("|---|------|-----------------|--------|------------|\n")
	var failures []models.StepResult
	for i, sr := range result.Steps {
		expected := ""
		if planned, ok := result.StepFor(i); ok {
			expected = planned.ExpectedResult
		}
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s |\n",
			i+1,
			cell(sr.Description),
			cell(expected),
			statusLabel(sr.Status),
			g.screenshotCell(sr))
		if sr.Status == models.StatusFailed {
			failures = append(failures, sr)
		}
	}
	b.WriteString("\n")

	if len(failures) > 0 {
		b.WriteString("**Failures**\n\n")
		for _, f := range failures {
			fmt.Fprintf(&b, "- `%s`: %s", f.StepID, oneLine(f.ErrorMessage))
			if f.Screenshot != "" {
				fmt.Fprintf(&b, " ([screenshot](%s))", g.link(f.Screenshot))
			}
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}
	return b.String()
}

// GenerateMarkdownReport renders the whole summary document. It never
// returns an empty document.
func (g *Generator) GenerateMarkdownReport(data models.ReportData) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", ReportTitle)
	fmt.Fprintf(&b, "_Generated %s_\n\n", formatTime(data.GeneratedAt))

	s := data.Summary
	b.WriteString("## Overview\n\n")
	b.WriteString("| Metric | Value |\n|--------|-------|\n")
	fmt.Fprintf(&b, "| Specifications | %d |\n", s.TotalSpecs)
	fmt.Fprintf(&b, "| Total Tests | %d |\n", s.TotalTests)
	fmt.Fprintf(&b, "| Passed | %d |\n", s.PassedTests)
	fmt.Fprintf(&b, "| Failed | %d |\n", s.FailedTests)
	fmt.Fprintf(&b, "| Skipped | %d |\n", s.SkippedTests)
	fmt.Fprintf(&b, "| Pass Rate | %s |\n", InterpretPassRate(s))
	fmt.Fprintf(&b, "| Execution Time | %s |\n", formatDuration(s.ExecutionTimeMs))
	fmt.Fprintf(&b, "| Screenshots Captured | %d |\n\n", s.ScreenshotsCaptured)

	if len(data.SpecSections) > 0 {
		b.WriteString("| Specification | Status | Tests | Last Executed |\n")
		b.WriteString("|---------------|--------|-------|---------------|\n")
		for _, sec := range data.SpecSections {
			fmt.Fprintf(&b, "| [%s](#%s) | %s | %d | %s |\n",
				cell(sec.Description), anchor(sec.Description), statusLabel(sec.OverallStatus),
				stepCount(sec), formatTime(sec.LastExecuted))
		}
		b.WriteString("\n")

		for _, sec := range data.SpecSections {
			fmt.Fprintf(&b, "## %s\n\n", sec.Description)
			fmt.Fprintf(&b, "- **Spec:** `%s`\n", sec.SpecName)
			fmt.Fprintf(&b, "- **Status:** %s\n", statusLabel(sec.OverallStatus))
			if note := InterpretMixed(sec); note != "" {
				fmt.Fprintf(&b, "- **Note:** %s\n", note)
			}
			fmt.Fprintf(&b, "- **Runs:** %d\n", len(sec.TestResults))
			fmt.Fprintf(&b, "- **Last executed:** %s\n", formatTime(sec.LastExecuted))
			fmt.Fprintf(&b, "- **Execution time:** %s\n", formatDuration(sec.ExecutionTimeMs))
			fmt.Fprintf(&b, "- **Screenshots:** %d\n\n", sec.ScreenshotCount)
			for _, r := range sec.TestResults {
				b.WriteString(g.GenerateSpecSection(r))
			}
		}
	}

	if len(data.SpecSections) == 0 || len(data.FutureTests) > 0 {
		b.WriteString(futureTestsSection(data.FutureTests))
	}

	if len(data.Errors) > 0 {
		b.WriteString("## Errors\n\n")
		for _, e := range data.Errors {
			fmt.Fprintf(&b, "- %s\n", oneLine(e))
		}
		b.WriteString("\n")
	}
	return b.String()
}

func futureTestsSection(future []models.FutureTest) string {
	var b strings.Builder
	b.WriteString("## Future Automated Tests\n\n")
	if len(future) == 0 {
		b.WriteString("_No executed results yet. Specifications added under the specs root will appear here until they have been run._\n\n")
		return b.String()
	}
	b.WriteString("| Specification | Acceptance Criteria | Testable |\n")
	b.WriteString("|---------------|---------------------|----------|\n")
	for _, f := range future {
		fmt.Fprintf(&b, "| %s | %d | %d |\n", cell(utils.SpecTitle(f.SpecName)), f.CriteriaCount, f.TestableCount)
	}
	b.WriteString("\n")
	return b.String()
}

// UpdateTestsSummary recomputes the report from results and overwrites the
// report file.
func (g *Generator) UpdateTestsSummary(results []*models.TestResult, future []models.FutureTest, errs []string) error {
	data := g.BuildReportData(results, future, errs)
	content := g.GenerateMarkdownReport(data)

	if err := os.MkdirAll(filepath.Dir(g.reportPath), 0o755); err != nil {
		return &GenerationError{Err: fmt.Errorf("creating report directory: %w", err)}
	}
	tmp := g.reportPath + ".tmp"
	if err := os.WriteFile(tmp, []byte(content), 0o644); err != nil {
		return &GenerationError{Err: fmt.Errorf("writing report: %w", err)}
	}
	if err := os.Rename(tmp, g.reportPath); err != nil {
		_ = os.Remove(tmp)
		return &GenerationError{Err: fmt.Errorf("replacing report: %w", err)}
	}
	g.logger.Info("report written",
		zap.String("path", g.reportPath),
		zap.Int("specs", data.Summary.TotalSpecs),
		zap.Int("future", len(future)))
	return nil
}

func (g *Generator) screenshotCell(sr models.StepResult) string {
	if sr.Screenshot == "" {
		return "No screenshot"
	}
	return fmt.Sprintf("[%s](%s)", cell(filepath.Base(sr.Screenshot)), g.link(sr.Screenshot))
}

func (g *Generator) link(path string) string {
	return strings.ReplaceAll(utils.RelativeLink(path, filepath.Dir(g.reportPath)), " ", "%20")
}

func runLabel(r *models.TestResult) string {
	if r.RunID != "" {
		return r.RunID
	}
	return formatTime(r.StartTime)
}

func stepCount(sec models.SpecSection) int {
	n := 0
	for _, r := range sec.TestResults {
		n += len(r.Steps)
	}
	return n
}

func statusLabel(s models.Status) string {
	switch s {
	case models.StatusPassed:
		return "✅ Passed"
	case models.StatusFailed:
		return "❌ Failed"
	case models.StatusMixed:
		return "⚠️ Mixed"
	case models.StatusSkipped:
		return "⏭️ Skipped"
	default:
		return string(s)
	}
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

func formatDuration(ms int64) string {
	return (time.Duration(ms) * time.Millisecond).Round(time.Millisecond).String()
}

var cellReplacer = strings.NewReplacer("|", `\|`, "\r\n", " ", "\n", " ")

func cell(s string) string { return cellReplacer.Replace(strings.TrimSpace(s)) }

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// anchor approximates the heading slug GitHub generates.
func anchor(heading string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(heading) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-', r == '_':
			b.WriteRune(r)
		case r == ' ':
			b.WriteRune('-')
		}
	}
	return b.String()
}
