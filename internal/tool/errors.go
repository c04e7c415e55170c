package tool

import (
	"fmt"
	"time"
)

// Error wraps a tool execution failure with its captured output and
// an optional correction hint for the model.
type Error struct {
	Tool     string
	CallID   string
	Message  string
	Stdout   string
	Stderr   string
	ExitCode int
	Hint     string
	Err      error
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Tool, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Tool, e.Err)
	}
	return e.Tool + ": tool execution failed"
}

func (e *Error) Unwrap() error { return e.Err }

// Display renders the failure for the model: the message, the
// captured streams, and any correction suggestions.
func (e *Error) Display() string {
	out := e.Error()
	if e.Stdout != "" {
		out += "\nstdout:\n" + e.Stdout
	}
	if e.Stderr != "" {
		out += "\nstderr:\n" + e.Stderr
	}
	if e.Hint != "" {
		out += "\n" + e.Hint
	}
	return out
}

// TimeoutError reports a command that exceeded its wall-clock budget.
// The process tree has already been killed when this is returned.
type TimeoutError struct {
	Tool    string
	Command string
	Timeout time.Duration
	// Output holds whatever the command produced before it was killed.
	Output string
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: command %q timed out after %v", e.Tool, e.Command, e.Timeout)
}

// Display renders the failure for the model, partial output included.
func (e *TimeoutError) Display() string {
	out := e.Error()
	if e.Output != "" {
		out += "\noutput:\n" + e.Output
	}
	return out
}
