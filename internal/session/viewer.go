package session

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

const maxEventSize = 1 << 20

// SessionFile is one recorded run on disk.
type SessionFile struct {
	Path      string
	Name      string
	Size      int64
	ModTime   time.Time
	NumEvents int
}

// ListSessions returns the session logs in dir, newest first.
func ListSessions(dir string) ([]SessionFile, error) {
	matches, err := filepath.Glob(filepath.Join(dir, "*"+LogSuffix))
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		if _, err := os.Stat(dir); err != nil {
			return nil, fmt.Errorf("reading session directory: %w", err)
		}
	}

	files := make([]SessionFile, 0, len(matches))
	for _, p := range matches {
		info, err := os.Stat(p)
		if err != nil || info.IsDir() {
			continue
		}
		sf := SessionFile{Path: p, Name: info.Name(), Size: info.Size(), ModTime: info.ModTime()}
		_ = scan(p, func(json.RawMessage) { sf.NumEvents++ })
		files = append(files, sf)
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].ModTime.Equal(files[j].ModTime) {
			return files[i].Name > files[j].Name
		}
		return files[i].ModTime.After(files[j].ModTime)
	})
	return files, nil
}

// ReadEvents parses a session log. Lines that are not valid events are
// skipped.
func ReadEvents(path string) ([]Event, error) {
	var events []Event
	err := scan(path, func(raw json.RawMessage) {
		var ev Event
		if json.Unmarshal(raw, &ev) == nil && ev.Type != "" {
			events = append(events, ev)
		}
	})
	return events, err
}

// scan calls fn for each non-blank line of path that holds a JSON value.
func scan(path string, fn func(json.RawMessage)) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening session log: %w", err)
	}
	defer f.Close() //nolint:errcheck

	sc := bufio.NewScanner(f)
	sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)
	for sc.Scan() {
		line := sc.Bytes()
		if len(strings.TrimSpace(string(line))) == 0 || !json.Valid(line) {
			continue
		}
		fn(append(json.RawMessage(nil), line...))
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("reading session log: %w", err)
	}
	return nil
}

// RenderTimeline writes events as a timeline relative to the first event.
//
//nolint:errcheck
func RenderTimeline(w io.Writer, events []Event) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No events found.")
		return
	}

	rule := strings.Repeat("═", 55)
	fmt.Fprintf(w, "%s\n RUN TIMELINE\n%s\n\n", rule, rule)

	start := events[0].Timestamp
	for _, ev := range events {
		fmt.Fprintf(w, "[%s] %s\n", elapsed(ev.Timestamp.Sub(start)), describe(ev))
	}
	fmt.Fprintln(w)
}

func describe(ev Event) string {
	d := ev.Data
	str := func(k string) string { s, _ := d[k].(string); return s }
	num := func(k string) int { return jsonInt(d[k]) }

	switch ev.Type {
	case EventRunStart:
		return fmt.Sprintf("🚀 Run started  base_url=%s  specs=%d", str("base_url"), num("spec_count"))
	case EventTestStart:
		return fmt.Sprintf("▶  %s (%d steps)", str("spec"), num("total_steps"))
	case EventStepComplete:
		line := fmt.Sprintf("   %s %d/%d %s (%dms)", statusIcon(str("status")),
			num("step_num"), num("total_steps"), str("step_id"), num("duration_ms"))
		if msg := str("error"); msg != "" {
			line += "\n             " + msg
		}
		return line
	case EventTestComplete:
		icon := "✓"
		if str("status") != "passed" {
			icon = "✗"
		}
		return fmt.Sprintf("%s  %s [%s] (%dms)", icon, str("spec"), str("status"), num("duration_ms"))
	case EventError:
		return "❌ Error: " + str("message")
	case EventRunComplete:
		return fmt.Sprintf("🏁 Run complete  %d/%d specs passed  %d failed  %d errors  (%dms)",
			num("passed"), num("specs"), num("failed"), num("errors"), num("duration_ms"))
	default:
		return fmt.Sprintf("%s %v", ev.Type, d)
	}
}

func statusIcon(status string) string {
	switch status {
	case "failed":
		return "✗"
	case "skipped":
		return "-"
	default:
		return "✓"
	}
}

func elapsed(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%6dms", d.Milliseconds())
	}
	return fmt.Sprintf("%6.1fs", d.Seconds())
}

// jsonInt reads a number decoded from JSON (float64) or set in memory (int).
func jsonInt(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case int:
		return n
	case int64:
		return int(n)
	case json.Number:
		i, _ := n.Int64()
		return int(i)
	}
	return 0
}
