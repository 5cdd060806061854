package main

import (
	"errors"
	"fmt"
	"os"
)

// Exit codes for different failure modes
const (
	ExitSuccess    = 0 // All steps passed
	ExitTestFailed = 1 // One or more steps failed
	ExitError      = 2 // Configuration or runtime error
)

// TestFailureError indicates that the run completed, but one or more
// scripts failed.
type TestFailureError struct {
	Message string
}

func (e *TestFailureError) Error() string {
	return e.Message
}

func main() {
	if err := execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)

		var testFailureErr *TestFailureError
		if errors.As(err, &testFailureErr) {
			os.Exit(ExitTestFailed)
		}
		os.Exit(ExitError)
	}
}
