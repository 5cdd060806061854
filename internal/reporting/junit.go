package reporting

import (
	"encoding/xml"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/gfaurobert/specflow/internal/models"
)

// JUnit XML schema types

// JUnitTestSuites is the top-level container.
type JUnitTestSuites struct {
	XMLName    xml.Name         `xml:"testsuites"`
	Tests      int              `xml:"tests,attr"`
	Failures   int              `xml:"failures,attr"`
	Errors     int              `xml:"errors,attr"`
	Skipped    int              `xml:"skipped,attr"`
	Time       float64          `xml:"time,attr"`
	TestSuites []JUnitTestSuite `xml:"testsuite"`
}

// JUnitTestSuite maps to one test run of a spec.
type JUnitTestSuite struct {
	XMLName    xml.Name        `xml:"testsuite"`
	Name       string          `xml:"name,attr"`
	Tests      int             `xml:"tests,attr"`
	Failures   int             `xml:"failures,attr"`
	Errors     int             `xml:"errors,attr"`
	Skipped    int             `xml:"skipped,attr"`
	Time       float64         `xml:"time,attr"`
	Timestamp  string          `xml:"timestamp,attr"`
	Properties []JUnitProperty `xml:"properties>property,omitempty"`
	TestCases  []JUnitTestCase `xml:"testcase"`
}

// JUnitTestCase maps to one step.
type JUnitTestCase struct {
	XMLName   xml.Name      `xml:"testcase"`
	Name      string        `xml:"name,attr"`
	Classname string        `xml:"classname,attr"`
	Time      float64       `xml:"time,attr"`
	Failure   *JUnitFailure `xml:"failure,omitempty"`
	Skipped   *JUnitSkipped `xml:"skipped,omitempty"`
	SystemOut string        `xml:"system-out,omitempty"`
}

// JUnitFailure represents a failed step.
type JUnitFailure struct {
	Message string `xml:"message,attr"`
	Type    string `xml:"type,attr"`
	Body    string `xml:",chardata"`
}

// JUnitSkipped marks a step as skipped.
type JUnitSkipped struct {
	Message string `xml:"message,attr,omitempty"`
}

// JUnitProperty is a key-value metadata entry.
type JUnitProperty struct {
	Name  string `xml:"name,attr"`
	Value string `xml:"value,attr"`
}

// ConvertToJUnit converts test results to JUnit XML, one suite per result
// and one case per step.
func ConvertToJUnit(results []*models.TestResult) *JUnitTestSuites {
	out := &JUnitTestSuites{}
	for _, r := range results {
		if r == nil {
			continue
		}
		suite := convertResult(r)
		out.Tests += suite.Tests
		out.Failures += suite.Failures
		out.Skipped += suite.Skipped
		out.Time += suite.Time
		out.TestSuites = append(out.TestSuites, suite)
	}
	return out
}

func convertResult(r *models.TestResult) JUnitTestSuite {
	suite := JUnitTestSuite{
		Name:      r.SpecName,
		Tests:     len(r.Steps),
		Time:      float64(r.ExecutionTimeMs) / 1000.0,
		Timestamp: r.StartTime.UTC().Format(time.RFC3339),
		Properties: []JUnitProperty{
			{Name: "runId", Value: r.RunID},
			{Name: "status", Value: string(r.OverallStatus)},
			{Name: "screenshots", Value: fmt.Sprintf("%d", len(r.Screenshots))},
		},
	}
	if r.TestScript != nil {
		suite.Properties = append(suite.Properties,
			JUnitProperty{Name: "scriptVersion", Value: r.TestScript.Metadata.Version})
	}

	for _, sr := range r.Steps {
		tc := JUnitTestCase{
			Name:      fmt.Sprintf("%s: %s", sr.StepID, sr.Description),
			Classname: r.SpecName,
			Time:      float64(sr.ExecutionTimeMs) / 1000.0,
		}
		if sr.Screenshot != "" {
			tc.SystemOut = "screenshot: " + sr.Screenshot
		}
		switch sr.Status {
		case models.StatusFailed:
			suite.Failures++
			tc.Failure = &JUnitFailure{
				Message: sr.ErrorMessage,
				Type:    "StepFailure",
				Body:    fmt.Sprintf("attempts=%d\n%s", sr.Attempts, sr.ErrorMessage),
			}
		case models.StatusSkipped:
			suite.Skipped++
			tc.Skipped = &JUnitSkipped{Message: sr.ErrorMessage}
		}
		suite.TestCases = append(suite.TestCases, tc)
	}
	return suite
}

// WriteJUnitXML writes JUnit XML to the specified file path.
func WriteJUnitXML(results []*models.TestResult, path string) error {
	suites := ConvertToJUnit(results)

	data, err := xml.MarshalIndent(suites, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JUnit XML: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	output := append([]byte(xml.Header), data...)
	return os.WriteFile(path, output, 0644)
}
