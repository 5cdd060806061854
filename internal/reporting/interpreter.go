package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/gfaurobert/specflow/internal/models"
)

// InterpretPassRate returns a human-readable explanation of the step pass
// rate. Skipped steps do not count against it.
func InterpretPassRate(s models.ReportSummary) string {
	executed := s.PassedTests + s.FailedTests
	if executed == 0 {
		return "No steps executed"
	}
	pct := float64(s.PassedTests) / float64(executed) * 100
	switch {
	case pct >= 100:
		return fmt.Sprintf("All steps passed (%.0f%%)", pct)
	case pct >= 80:
		return fmt.Sprintf("Most steps passed (%.0f%%)", pct)
	case pct >= 50:
		return fmt.Sprintf("About half the steps passed (%.0f%%)", pct)
	default:
		return fmt.Sprintf("Few steps passed (%.0f%%)", pct)
	}
}

// InterpretMixed explains a section whose runs disagree, or returns "".
func InterpretMixed(sec models.SpecSection) string {
	if sec.OverallStatus != models.StatusMixed {
		return ""
	}
	failed := 0
	for _, r := range sec.TestResults {
		if r.OverallStatus == models.StatusFailed {
			failed++
		}
	}
	return fmt.Sprintf("%d of %d runs failed. The same plan both passed and failed, which usually points at timing or test-data dependencies.",
		failed, len(sec.TestResults))
}

// FormatSummary produces a short plain-text summary for the console.
func FormatSummary(data models.ReportData) string {
	var b strings.Builder
	s := data.Summary
	duration := time.Duration(s.ExecutionTimeMs) * time.Millisecond

	b.WriteString("=== Summary ===\n\n")
	fmt.Fprintf(&b, "Pass Rate:   %s\n", InterpretPassRate(s))
	fmt.Fprintf(&b, "Duration:    %v\n", duration)
	fmt.Fprintf(&b, "Steps:       %d passed, %d failed, %d skipped out of %d total\n",
		s.PassedTests, s.FailedTests, s.SkippedTests, s.TotalTests)
	fmt.Fprintf(&b, "Screenshots: %d\n", s.ScreenshotsCaptured)

	if len(data.SpecSections) > 0 {
		b.WriteString("\nPer-Spec:\n")
		for _, sec := range data.SpecSections {
			icon := "✓"
			if sec.OverallStatus != models.StatusPassed {
				icon = "✗"
			}
			fmt.Fprintf(&b, "  %s %s: %s\n", icon, sec.SpecName, sec.OverallStatus)
			if note := InterpretMixed(sec); note != "" {
				fmt.Fprintf(&b, "    %s\n", note)
			}
		}
	}
	if len(data.FutureTests) > 0 {
		fmt.Fprintf(&b, "\nNot yet executed: %d spec(s)\n", len(data.FutureTests))
	}
	return b.String()
}
