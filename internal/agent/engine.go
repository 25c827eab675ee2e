// File: internal/agent/engine.go
package agent

import (
	"encoding/base64"
	"fmt"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/procdoc-lab/cua-cli/api/schemas"
	"github.com/procdoc-lab/cua-cli/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// historyWindow bounds the wire history: the first user message (task plus
// initial observation) is always kept, followed by at most this many of the
// most recent messages.
const historyWindow = 60

// prunedImageNote replaces screenshot payloads that have aged out of the
// wire history. Old frames are superseded by newer ones and only burn input
// tokens.
const prunedImageNote = "(earlier screenshot omitted)"

// toolInput is the union of input shapes the computer and navigation tools
// produce. Decoded with lenient field matching; unknown actions fail later,
// at kind validation.
type toolInput struct {
	Action          string  `json:"action"`
	Coordinate      []int   `json:"coordinate"`
	Text            string  `json:"text"`
	ScrollDirection string  `json:"scroll_direction"`
	ScrollAmount    int     `json:"scroll_amount"`
	Duration        float64 `json:"duration"`
}

var validKinds = map[schemas.ActionKind]bool{
	schemas.ActionScreenshot:  true,
	schemas.ActionLeftClick:   true,
	schemas.ActionRightClick:  true,
	schemas.ActionDoubleClick: true,
	schemas.ActionMouseMove:   true,
	schemas.ActionTypeText:    true,
	schemas.ActionKey:         true,
	schemas.ActionScroll:      true,
	schemas.ActionWait:        true,
	schemas.ActionTerminate:   true,
	schemas.ActionNextStep:    true,
	schemas.ActionPrevStep:    true,
	schemas.ActionCurrStep:    true,
}

// ParseAction decodes one tool_use block into an action request. Any decode
// or validation failure is an *UnparseableResponseError and aborts the run.
func ParseAction(blk model.ContentBlock) (*schemas.ActionRequest, error) {
	var in toolInput
	if len(blk.Input) > 0 {
		if err := json.Unmarshal(blk.Input, &in); err != nil {
			return nil, &UnparseableResponseError{ToolUseID: blk.ID, Err: err}
		}
	}

	kind := schemas.ActionKind(in.Action)
	if !validKinds[kind] {
		return nil, &UnparseableResponseError{
			ToolUseID: blk.ID,
			Err:       fmt.Errorf("unknown action %q", in.Action),
		}
	}

	req := &schemas.ActionRequest{
		ToolUseID:       blk.ID,
		Kind:            kind,
		Text:            in.Text,
		ScrollDirection: schemas.ScrollDirection(in.ScrollDirection),
		ScrollAmount:    in.ScrollAmount,
	}

	if len(in.Coordinate) > 0 {
		if len(in.Coordinate) != 2 {
			return nil, &UnparseableResponseError{
				ToolUseID: blk.ID,
				Err:       fmt.Errorf("coordinate has %d elements, want 2", len(in.Coordinate)),
			}
		}
		req.Coordinate = &schemas.Point{X: in.Coordinate[0], Y: in.Coordinate[1]}
	}

	if in.Duration > 0 {
		req.Duration = time.Duration(in.Duration * float64(time.Second))
	}
	return req, nil
}

// history accumulates the conversation sent to the model. It is distinct
// from the transcript: the transcript records everything forever, while the
// history is trimmed to what the model actually needs to continue.
type history struct {
	messages []model.Message
}

func newHistory(task, screenshot string) *history {
	first := model.Message{
		Role: model.RoleUser,
		Content: []model.ContentBlock{
			model.NewTextBlock(task),
			model.NewImageBlock(screenshot),
		},
	}
	return &history{messages: []model.Message{first}}
}

func (h *history) appendAssistant(content []model.ContentBlock) {
	h.messages = append(h.messages, model.Message{Role: model.RoleAssistant, Content: content})
}

func (h *history) appendToolResults(results []model.ContentBlock) {
	h.messages = append(h.messages, model.Message{Role: model.RoleUser, Content: results})
}

// wire returns the messages to put on the wire: the first message plus the
// most recent window, with every screenshot except the newest one replaced
// by a placeholder.
func (h *history) wire() []model.Message {
	kept := h.messages
	if len(kept) > historyWindow+1 {
		window := make([]model.Message, 0, historyWindow+1)
		window = append(window, kept[0])
		window = append(window, kept[len(kept)-historyWindow:]...)
		kept = window
	}
	return pruneOldImages(kept)
}

// pruneOldImages rewrites every image block except the newest one into a
// text note. Images appear either top-level (the initial observation) or
// nested inside tool_result blocks; both levels are walked from the end so
// the single newest frame survives. The input is never mutated.
func pruneOldImages(messages []model.Message) []model.Message {
	out := make([]model.Message, len(messages))
	copy(out, messages)

	keptNewest := false
	for mi := len(out) - 1; mi >= 0; mi-- {
		content := make([]model.ContentBlock, len(out[mi].Content))
		copy(content, out[mi].Content)

		for bi := len(content) - 1; bi >= 0; bi-- {
			switch blk := content[bi]; blk.Type {
			case model.BlockImage:
				if keptNewest {
					content[bi] = model.NewTextBlock(prunedImageNote)
				} else {
					keptNewest = true
				}
			case model.BlockToolResult:
				nested := make([]model.ContentBlock, len(blk.Content))
				copy(nested, blk.Content)
				for ci := len(nested) - 1; ci >= 0; ci-- {
					if nested[ci].Type != model.BlockImage {
						continue
					}
					if keptNewest {
						nested[ci] = model.NewTextBlock(prunedImageNote)
					} else {
						keptNewest = true
					}
				}
				content[bi].Content = nested
			}
		}
		out[mi].Content = content
	}
	return out
}

// encodeScreenshot converts raw PNG bytes to the base64 form the image block
// carries.
func encodeScreenshot(png []byte) string {
	return base64.StdEncoding.EncodeToString(png)
}

// observationResult builds the tool_result block answering a computer-tool
// call with a fresh screenshot.
func observationResult(toolUseID string, obs *schemas.Observation) model.ContentBlock {
	return model.NewToolResultBlock(toolUseID, []model.ContentBlock{
		model.NewImageBlock(encodeScreenshot(obs.Screenshot)),
	}, false)
}

// textResult builds a textual tool_result block, used for navigation output
// and for error notes handed back to the model.
func textResult(toolUseID, text string, isError bool) model.ContentBlock {
	return model.NewToolResultBlock(toolUseID, []model.ContentBlock{
		model.NewTextBlock(text),
	}, isError)
}
