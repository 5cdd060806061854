// Package metrics collects Prometheus counters and histograms for test runs
// and writes them in the text exposition format.
package metrics

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
)

// Collector captures metrics for a run. A nil *Collector is valid and
// records nothing.
type Collector struct {
	registry     *prometheus.Registry
	testsTotal   *prometheus.CounterVec
	stepsTotal   *prometheus.CounterVec
	testDuration *prometheus.HistogramVec
	stepDuration *prometheus.HistogramVec
	retriesTotal *prometheus.CounterVec
}

// NewCollector initializes a fresh registry.
func NewCollector() *Collector {
	registry := prometheus.NewRegistry()
	c := &Collector{
		registry: registry,
		testsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "specflow_tests_total", Help: "Total number of executed test scripts"},
			[]string{"status"},
		),
		stepsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "specflow_steps_total", Help: "Total number of executed steps"},
			[]string{"status"},
		),
		testDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "specflow_test_duration_seconds",
				Help:    "Test script duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"spec", "status"},
		),
		stepDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "specflow_step_duration_seconds",
				Help:    "Step duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"spec", "action", "status"},
		),
		retriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{Name: "specflow_step_retries_total", Help: "Step attempts beyond the first"},
			[]string{"spec", "action"},
		),
	}
	registry.MustRegister(c.testsTotal, c.stepsTotal, c.testDuration, c.stepDuration, c.retriesTotal)
	return c
}

// Registry exposes the underlying registry.
func (c *Collector) Registry() *prometheus.Registry {
	if c == nil {
		return nil
	}
	return c.registry
}

// ObserveTest records a finished test script.
func (c *Collector) ObserveTest(spec, status string, duration time.Duration) {
	if c == nil {
		return
	}
	c.testsTotal.WithLabelValues(status).Inc()
	c.testDuration.WithLabelValues(spec, status).Observe(duration.Seconds())
}

// ObserveStep records a finished step. attempts counts every try, so a step
// that passed first time adds no retries.
func (c *Collector) ObserveStep(spec, action, status string, attempts int, duration time.Duration) {
	if c == nil {
		return
	}
	c.stepsTotal.WithLabelValues(status).Inc()
	c.stepDuration.WithLabelValues(spec, action, status).Observe(duration.Seconds())
	if attempts > 1 {
		c.retriesTotal.WithLabelValues(spec, action).Add(float64(attempts - 1))
	}
}

// Encode renders every metric family in the Prometheus text format.
func (c *Collector) Encode() ([]byte, error) {
	if c == nil {
		return nil, nil
	}
	families, err := c.registry.Gather()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := expfmt.NewEncoder(&buf, expfmt.NewFormat(expfmt.TypeTextPlain))
	for _, family := range families {
		if err := enc.Encode(family); err != nil {
			return nil, err
		}
	}
	return buf.Bytes(), nil
}

// Write writes all metrics to a Prometheus text file.
func (c *Collector) Write(path string) error {
	data, err := c.Encode()
	if err != nil {
		return fmt.Errorf("gathering metrics: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
