// File: api/schemas/schemas.go
package schemas

import "time"

// ActionKind identifies the low-level action a model tool-call requests.
type ActionKind string

const (
	ActionScreenshot  ActionKind = "screenshot"
	ActionLeftClick   ActionKind = "left_click"
	ActionRightClick  ActionKind = "right_click"
	ActionDoubleClick ActionKind = "double_click"
	ActionMouseMove   ActionKind = "mouse_move"
	ActionTypeText    ActionKind = "type"
	ActionKey         ActionKind = "key"
	ActionScroll      ActionKind = "scroll"
	ActionWait        ActionKind = "wait"
	// ActionTerminate signals task completion. It is consumed by the loop
	// driver and never reaches the physical input layer.
	ActionTerminate ActionKind = "terminate"

	// Process-documentation navigation actions. Only available in graph mode;
	// they move a cursor through the step chain instead of touching the screen.
	ActionNextStep ActionKind = "next"
	ActionPrevStep ActionKind = "prev"
	ActionCurrStep ActionKind = "curr"
)

// IsNavigation reports whether the kind navigates the process documentation
// rather than operating the screen.
func (k ActionKind) IsNavigation() bool {
	return k == ActionNextStep || k == ActionPrevStep || k == ActionCurrStep
}

// ScrollDirection is the axis/direction of a scroll action.
type ScrollDirection string

const (
	ScrollUp    ScrollDirection = "up"
	ScrollDown  ScrollDirection = "down"
	ScrollLeft  ScrollDirection = "left"
	ScrollRight ScrollDirection = "right"
)

// Point is a screen coordinate in the fixed target resolution.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

// ActionRequest is a parsed model tool-call. It is created when a response is
// parsed, dispatched once, and not retained beyond its turn; only the
// resulting TurnRecord survives.
type ActionRequest struct {
	// ToolUseID links the action back to the tool_use block that requested
	// it, so the result can be correlated in the next message.
	ToolUseID string

	Kind ActionKind

	// Coordinate applies to click and move kinds. Nil means "at the current
	// cursor position".
	Coordinate *Point

	// Text carries literal input for "type" and the key name for "key".
	Text string

	ScrollDirection ScrollDirection
	ScrollAmount    int

	// Duration applies to "wait".
	Duration time.Duration
}

// Observation is the executor's view of the desktop after an action: a fresh
// PNG screenshot plus the cursor position, tagged with the turn it belongs to.
type Observation struct {
	Turn       int
	Screenshot []byte // PNG
	Cursor     Point
	CapturedAt time.Time
}

// TurnRecord is one entry of the append-only run transcript.
type TurnRecord struct {
	Turn int
	// RawResponse is the model's response content for this turn, kept
	// verbatim for the experiment record.
	RawResponse string
	// Action the model requested this turn; nil when the model answered
	// with text only.
	Action      *ActionRequest
	Observation *Observation
	// ToolResultText carries textual tool output (navigation steps, error
	// notes) delivered back to the model instead of a screenshot.
	ToolResultText string
	// ToolResultErr marks the tool result as an execution error for the model.
	ToolResultErr bool
}

// RunStatus is the terminal outcome class of a run.
type RunStatus string

const (
	RunCompleted        RunStatus = "completed"
	RunMaxStepsExceeded RunStatus = "max_steps_exceeded"
	RunFailed           RunStatus = "failed"
)

// RunResult is created exactly once, when the loop terminates.
type RunResult struct {
	Status RunStatus
	// Reason is set for RunFailed.
	Reason string
	// Turns is the number of model-decision cycles completed.
	Turns int
	// ComputerActions counts physical actions dispatched to the screen,
	// reported by the CLI as the run's step-count artifact.
	ComputerActions int
	Final           *Observation
}

// ProcessStep is one node of the process-knowledge graph: a step label plus
// its predecessor/successor relations and a free-text description.
type ProcessStep struct {
	ID          int    `yaml:"id"`
	Description string `yaml:"description"`
	Prev        []int  `yaml:"-"`
	Next        []int  `yaml:"-"`
}

// GraphQueryResult is the ordered step sequence returned by a process-graph
// query. Ephemeral: recomputed per query, never persisted.
type GraphQueryResult struct {
	Steps []ProcessStep
}
