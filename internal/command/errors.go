package command

import (
	"fmt"
	"strings"
)

// ExecutionError is returned when a tool fails to start or exits non-zero
type ExecutionError struct {
	Tool     string
	ExitCode int    // -1 when the process did not exit normally
	Output   string // tail of the tool's diagnostic output
	Err      error
}

func (e *ExecutionError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s failed", e.Tool)
	if e.ExitCode >= 0 {
		fmt.Fprintf(&b, " with exit code %d", e.ExitCode)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	if e.Output != "" {
		fmt.Fprintf(&b, ": %s", e.Output)
	}
	return b.String()
}

func (e *ExecutionError) Unwrap() error {
	return e.Err
}
