// File: internal/screen/backend.go
package screen

import (
	"context"
	"fmt"

	"github.com/procdoc-lab/cua-cli/api/schemas"
)

// MouseButton names accepted by the input backend.
type MouseButton string

const (
	ButtonLeft  MouseButton = "left"
	ButtonRight MouseButton = "right"
)

// InputBackend is the physical input/display substrate below the executor.
// The production implementation drives a Chrome target over CDP; tests supply
// a recording fake. The backend owns the cursor position, since clicks
// without a coordinate land wherever the cursor currently is.
type InputBackend interface {
	// MoveMouse moves the cursor to the given coordinate.
	MoveMouse(ctx context.Context, x, y int) error
	// Click presses and releases a button at the given coordinate;
	// clickCount 2 produces a double click.
	Click(ctx context.Context, x, y int, button MouseButton, clickCount int) error
	// TypeText sends literal text as individual keystrokes.
	TypeText(ctx context.Context, text string) error
	// PressKey sends a named key or key combination.
	PressKey(ctx context.Context, key string) error
	// Scroll scrolls at the current cursor position.
	Scroll(ctx context.Context, direction schemas.ScrollDirection, amount int) error
	// CaptureScreen returns the current frame as PNG bytes, without side
	// effects on the page.
	CaptureScreen(ctx context.Context) ([]byte, error)
	// CursorPosition reports the backend's current cursor coordinate.
	CursorPosition() (x, y int)
	// Close releases the underlying display/input channel.
	Close(ctx context.Context) error
}

// ExecutionError reports a failure of the input/display substrate. It is
// fatal for the run: a broken substrate invalidates the whole task attempt,
// so nothing retries it.
type ExecutionError struct {
	Action schemas.ActionKind
	Err    error
}

func (e *ExecutionError) Error() string {
	return fmt.Sprintf("action %q failed against the input substrate: %v", e.Action, e.Err)
}

func (e *ExecutionError) Unwrap() error { return e.Err }
