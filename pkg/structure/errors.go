package structure

import (
	"fmt"
	"strings"
)

// ToolInvocationError reports a failed or unparsable external tool call.
type ToolInvocationError struct {
	Command string
	File    string
	Stderr  string
	Err     error
}

func (e *ToolInvocationError) Error() string {
	msg := fmt.Sprintf("%s failed for %s: %v", e.Command, e.File, e.Err)
	if s := strings.TrimSpace(e.Stderr); s != "" {
		msg += " (stderr: " + s + ")"
	}
	return msg
}

func (e *ToolInvocationError) Unwrap() error {
	return e.Err
}
