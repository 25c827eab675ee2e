// File: internal/agent/prompt.go
package agent

import (
	"fmt"
	"strings"

	"github.com/procdoc-lab/cua-cli/internal/config"
	"github.com/procdoc-lab/cua-cli/internal/docs"
)

// systemCapabilities grounds the model in its environment: what it can see,
// what it can do, and the coordinate space it is working in.
const systemCapabilities = `<SYSTEM_CAPABILITY>
* You are operating a computer through screenshots and low-level input actions.
* The display resolution is %dx%d. All coordinates you emit must be absolute pixel positions inside that frame.
* After every action you receive a fresh screenshot of the screen. Base each decision only on the most recent screenshot.
* Available actions: screenshot, mouse_move, left_click, right_click, double_click, type, key, scroll, wait.
* When the task is fully accomplished, respond with the terminate action and a short summary instead of further input.
</SYSTEM_CAPABILITY>`

const usageGuidelines = `<USAGE_GUIDELINES>
* Work one step at a time. Issue a single action, inspect the resulting screenshot, then decide the next action.
* If the screen has not changed after an action, take a screenshot before assuming anything.
* Prefer clicking precise UI elements over keyboard shortcuts when both would work.
* Use wait after actions that trigger loading, then verify with a screenshot.
</USAGE_GUIDELINES>`

// graphToolPolicy is prepended in graph mode only. It teaches the model to
// walk the step chain with the navigation tool instead of guessing ahead.
const graphToolPolicy = `<TOOL_POLICY>
* A process_documentation tool is available. It tracks your position in the documented process.
* Call it with action "curr" to re-read the step you are on, "next" to advance once a step is done, and "prev" to go back.
* Follow the documented steps in order. Advance with "next" only after the current step is visibly complete on screen.
</TOOL_POLICY>`

// BuildSystemPrompt assembles the system prompt for one run. Documentation
// context, when present, is embedded verbatim so the model grounds its plan
// in the documented process.
func BuildSystemPrompt(mode docs.Mode, docContext string) string {
	var b strings.Builder

	if mode == docs.ModeGraph {
		b.WriteString(graphToolPolicy)
		b.WriteString("\n\n")
	}

	fmt.Fprintf(&b, systemCapabilities, config.DisplayWidth, config.DisplayHeight)
	b.WriteString("\n\n")
	b.WriteString(usageGuidelines)

	if docContext != "" {
		b.WriteString("\n\n<PROCESS_DOCUMENTATION>\n")
		b.WriteString(docContext)
		b.WriteString("\n</PROCESS_DOCUMENTATION>")
	}
	return b.String()
}
