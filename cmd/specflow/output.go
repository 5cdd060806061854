package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gfaurobert/specflow/internal/models"
	"github.com/gfaurobert/specflow/internal/pipeline"
	"github.com/gfaurobert/specflow/internal/screenshot"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-runewidth"
)

const descriptionWidth = 60

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

func truncate(s string) string {
	return runewidth.Truncate(strings.TrimSpace(s), descriptionWidth, "…")
}

func colorStatus(s models.Status) string {
	switch s {
	case models.StatusPassed:
		return text.FgGreen.Sprint(string(s))
	case models.StatusFailed:
		return text.FgRed.Sprint(string(s))
	case models.StatusSkipped:
		return text.FgYellow.Sprint(string(s))
	default:
		return string(s)
	}
}

func printCriteria(w io.Writer, prep *pipeline.Prepared) {
	fmt.Fprintf(w, "%s: %d requirement(s), %d criteria, %d testable\n",
		prep.Doc.Name, len(prep.Requirements), len(prep.Criteria), prep.TestableCount())
	if len(prep.Criteria) == 0 {
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"ID", "Requirement", "Testable", "Description"})
	for _, c := range prep.Criteria {
		testable := text.FgHiBlack.Sprint("no")
		if c.Testable {
			testable = text.FgGreen.Sprint("yes")
		}
		t.AppendRow(table.Row{c.ID, c.RequirementID, testable, truncate(c.Description)})
	}
	t.Render()
}

func printScript(w io.Writer, prep *pipeline.Prepared) {
	meta := prep.Script.Metadata
	fmt.Fprintf(w, "%s: %d step(s), estimated %s\n", prep.Doc.Name, meta.TotalSteps,
		time.Duration(meta.EstimatedDurationMs)*time.Millisecond)
	if prep.Written != nil {
		fmt.Fprintf(w, "  script: %s\n  plan:   %s\n", prep.Written.ScriptPath, prep.Written.PlanPath)
	}
}

func printResults(w io.Writer, results []*models.TestResult) {
	if len(results) == 0 {
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"Spec", "Status", "Steps", "Passed", "Failed", "Duration"})
	for _, r := range results {
		var passed, failed int
		for _, s := range r.Steps {
			switch s.Status {
			case models.StatusPassed:
				passed++
			case models.StatusFailed:
				failed++
			}
		}
		t.AppendRow(table.Row{
			r.SpecName,
			colorStatus(r.OverallStatus),
			len(r.Steps),
			passed,
			failed,
			(time.Duration(r.ExecutionTimeMs) * time.Millisecond).String(),
		})
	}
	t.Render()

	for _, r := range results {
		for _, s := range r.Steps {
			if s.Status == models.StatusFailed {
				fmt.Fprintf(w, "%s %s/%s: %s\n", text.FgRed.Sprint("✗"), r.SpecName, s.StepID, s.ErrorMessage)
			}
		}
	}
}

func printErrors(w io.Writer, errs []string) {
	for _, e := range errs {
		fmt.Fprintf(w, "%s %s\n", text.FgYellow.Sprint("!"), e)
	}
}

func printDirectoryInfo(w io.Writer, info *screenshot.DirectoryInfo) {
	fmt.Fprintf(w, "%s: %d screenshot(s), %s\n", info.SpecName, info.ScreenshotCount, formatBytes(info.TotalFileSize))
	fmt.Fprintf(w, "  directory: %s\n", info.Directory)
	if !info.LastUpdated.IsZero() {
		fmt.Fprintf(w, "  updated:   %s\n", info.LastUpdated.Format(time.RFC3339))
	}
	if len(info.Files) == 0 {
		return
	}
	t := newTable(w)
	t.AppendHeader(table.Row{"File"})
	for _, f := range info.Files {
		t.AppendRow(table.Row{f})
	}
	t.Render()
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}
