// Package spinner shows run progress on an interactive terminal.
package spinner

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/briandowns/spinner"
	"golang.org/x/term"
)

// Spinner is a progress line that can be relabelled while it spins. On a
// writer that is not a terminal it prints nothing.
type Spinner struct {
	s    *spinner.Spinner
	once sync.Once
}

// Start displays an animated spinner with the given message on w.
// Call Stop to clear the line.
func Start(w io.Writer, message string) *Spinner {
	if !IsTerminal(w) {
		return &Spinner{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + message
	s.Start()
	return &Spinner{s: s}
}

// Update replaces the message.
func (sp *Spinner) Update(message string) {
	if sp == nil || sp.s == nil {
		return
	}
	sp.s.Lock()
	sp.s.Suffix = " " + message
	sp.s.Unlock()
}

// Stop clears the spinner line. It is safe to call more than once.
func (sp *Spinner) Stop() {
	if sp == nil || sp.s == nil {
		return
	}
	sp.once.Do(sp.s.Stop)
}

// IsTerminal reports whether w is an interactive terminal.
func IsTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
