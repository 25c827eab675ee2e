// File: internal/agent/errors.go
package agent

import "fmt"

// UnparseableResponseError reports a model response whose tool input could
// not be decoded into an action. The run aborts: a malformed decision is
// treated as evidence about the model, not something to paper over.
type UnparseableResponseError struct {
	ToolUseID string
	Err       error
}

func (e *UnparseableResponseError) Error() string {
	return fmt.Sprintf("unparseable model response (tool_use %s): %v", e.ToolUseID, e.Err)
}

func (e *UnparseableResponseError) Unwrap() error { return e.Err }
