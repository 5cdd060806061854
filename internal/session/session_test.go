package session

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gfaurobert/specflow/internal/models"
	"github.com/gfaurobert/specflow/internal/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	ev := NewEvent(EventRunStart, RunStartData("http://localhost:3000", 2))

	assert.Equal(t, EventRunStart, ev.Type)
	assert.Equal(t, "http://localhost:3000", ev.Data["base_url"])
	assert.False(t, ev.Timestamp.IsZero())
}

func TestStepCompleteData_OmitsEmptyError(t *testing.T) {
	d := StepCompleteData("login", "step-1", 1, 3, "passed", 120, "")
	assert.NotContains(t, d, "error")

	d = StepCompleteData("login", "step-2", 2, 3, "failed", 90, "Failed after 2 retries: timeout")
	assert.Equal(t, "Failed after 2 retries: timeout", d["error"])
}

func TestErrorData_MergesDetails(t *testing.T) {
	d := ErrorData("not executed", map[string]any{"spec": "login"})
	assert.Equal(t, "not executed", d["message"])
	assert.Equal(t, "login", d["spec"])
}

func TestJSONLogger_WriteAndRead(t *testing.T) {
	dir := t.TempDir()
	path := DefaultLogPath(filepath.Join(dir, "sessions"), time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC))
	assert.Equal(t, "20260501T120000Z-session.jsonl", filepath.Base(path))

	l, err := NewJSONLogger(path)
	require.NoError(t, err)
	require.NoError(t, l.Log(NewEvent(EventRunStart, RunStartData("http://app", 1))))
	require.NoError(t, l.Log(NewEvent(EventRunComplete, RunCompleteData(1, 1, 0, 0, 1500))))
	require.NoError(t, l.Close())
	assert.Equal(t, path, l.Path())

	events, err := ReadEvents(path)
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, EventRunStart, events[0].Type)
	assert.Equal(t, EventRunComplete, events[1].Type)
}

func TestJSONLogger_ExistingFileAndClosed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run"+LogSuffix)
	l, err := NewJSONLogger(path)
	require.NoError(t, err)

	_, err = NewJSONLogger(path)
	require.Error(t, err)

	require.NoError(t, l.Close())
	require.NoError(t, l.Close())
	assert.ErrorIs(t, l.Log(NewEvent(EventError, ErrorData("late", nil))), os.ErrClosed)
}

func TestListSessions_MissingDir(t *testing.T) {
	_, err := ListSessions(filepath.Join(t.TempDir(), "absent"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadEvents_SkipsMalformedLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "x-session.jsonl")
	content := `{"timestamp":"2026-05-01T12:00:00Z","type":"run_start"}
not json
{"timestamp":"2026-05-01T12:00:01Z","type":"run_complete"}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	events, err := ReadEvents(path)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestListSessions(t *testing.T) {
	dir := t.TempDir()
	older := filepath.Join(dir, "20260101T000000Z-session.jsonl")
	newer := filepath.Join(dir, "20260102T000000Z-session.jsonl")
	require.NoError(t, os.WriteFile(older, []byte("{}\n{}\n"), 0o644))
	require.NoError(t, os.WriteFile(newer, []byte("{}\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644))
	past := time.Now().Add(-time.Hour)
	require.NoError(t, os.Chtimes(older, past, past))

	files, err := ListSessions(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, newer, files[0].Path)
	assert.Equal(t, 2, files[1].NumEvents)
}

type memLogger struct{ events []Event }

func (m *memLogger) Log(ev Event) error { m.events = append(m.events, ev); return nil }
func (m *memLogger) Close() error       { return nil }

func TestRecorder_Listener(t *testing.T) {
	mem := &memLogger{}
	listen := NewRecorder(mem, nil).Listener()

	listen(runner.ProgressEvent{EventType: runner.EventTestStart, SpecName: "login", TotalSteps: 2})
	listen(runner.ProgressEvent{EventType: runner.EventStepStart, SpecName: "login", StepID: "step-1", StepNum: 1, TotalSteps: 2})
	listen(runner.ProgressEvent{
		EventType: runner.EventStepComplete, SpecName: "login", StepID: "step-1", StepNum: 1, TotalSteps: 2,
		Status: models.StatusFailed, DurationMs: 40, Details: map[string]any{"error": "boom"},
	})
	listen(runner.ProgressEvent{EventType: runner.EventTestComplete, SpecName: "login", Status: models.StatusFailed, DurationMs: 80})

	require.Len(t, mem.events, 3)
	assert.Equal(t, EventTestStart, mem.events[0].Type)
	assert.Equal(t, EventStepComplete, mem.events[1].Type)
	assert.Equal(t, "boom", mem.events[1].Data["error"])
	assert.Equal(t, "failed", mem.events[2].Data["status"])
}

func TestRenderTimeline(t *testing.T) {
	base := time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)
	at := func(ms int, typ EventType, data map[string]any) Event {
		return Event{Timestamp: base.Add(time.Duration(ms) * time.Millisecond), Type: typ, Data: data}
	}
	// Numbers arrive as float64 after a JSON round trip.
	events := []Event{
		at(0, EventRunStart, map[string]any{"base_url": "http://app", "spec_count": float64(1)}),
		at(10, EventTestStart, map[string]any{"spec": "login", "total_steps": float64(1)}),
		at(500, EventStepComplete, map[string]any{"spec": "login", "step_id": "step-1", "step_num": float64(1), "total_steps": float64(1), "status": "failed", "duration_ms": float64(490), "error": "Failed after 2 retries: timeout"}),
		at(510, EventTestComplete, map[string]any{"spec": "login", "status": "failed", "duration_ms": float64(500)}),
		at(1500, EventRunComplete, map[string]any{"specs": float64(1), "passed": float64(0), "failed": float64(1), "errors": float64(0), "duration_ms": float64(1500)}),
	}

	var buf bytes.Buffer
	RenderTimeline(&buf, events)
	out := buf.String()

	assert.Contains(t, out, "RUN TIMELINE")
	assert.Contains(t, out, "Run started  base_url=http://app  specs=1")
	assert.Contains(t, out, "✗ 1/1 step-1 (490ms)")
	assert.Contains(t, out, "Failed after 2 retries: timeout")
	assert.Contains(t, out, "login [failed] (500ms)")
	assert.Contains(t, out, "0/1 specs passed  1 failed  0 errors")
	assert.Contains(t, out, "1.5s")
}

func TestRenderTimeline_Empty(t *testing.T) {
	var buf bytes.Buffer
	RenderTimeline(&buf, nil)
	assert.Equal(t, "No events found.\n", buf.String())
}
