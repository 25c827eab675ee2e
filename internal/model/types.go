// File: internal/model/types.go
package model

import "encoding/json"

// Content block types used on the Messages wire.
const (
	BlockText       = "text"
	BlockImage      = "image"
	BlockToolUse    = "tool_use"
	BlockToolResult = "tool_result"
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry of the conversation sent to the model service.
type Message struct {
	Role    string         `json:"role"`
	Content []ContentBlock `json:"content"`
}

// ContentBlock is the union of all block shapes the Messages API exchanges:
// text, images, tool_use requests from the model, and tool_result replies.
// Unused fields are omitted from the wire per block type.
type ContentBlock struct {
	Type string `json:"type"`

	// Text blocks.
	Text string `json:"text,omitempty"`

	// tool_use blocks (model output).
	ID    string          `json:"id,omitempty"`
	Name  string          `json:"name,omitempty"`
	Input json.RawMessage `json:"input,omitempty"`

	// tool_result blocks (our replies).
	ToolUseID string         `json:"tool_use_id,omitempty"`
	Content   []ContentBlock `json:"content,omitempty"`
	IsError   bool           `json:"is_error,omitempty"`

	// image blocks.
	Source *ImageSource `json:"source,omitempty"`
}

// ImageSource carries a base64 screenshot payload.
type ImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

// NewImageBlock wraps base64 PNG data as an image content block.
func NewImageBlock(base64PNG string) ContentBlock {
	return ContentBlock{
		Type: BlockImage,
		Source: &ImageSource{
			Type:      "base64",
			MediaType: "image/png",
			Data:      base64PNG,
		},
	}
}

// NewTextBlock wraps plain text as a text content block.
func NewTextBlock(text string) ContentBlock {
	return ContentBlock{Type: BlockText, Text: text}
}

// NewToolResultBlock builds the tool_result reply for a tool_use id.
func NewToolResultBlock(toolUseID string, content []ContentBlock, isError bool) ContentBlock {
	return ContentBlock{
		Type:      BlockToolResult,
		ToolUseID: toolUseID,
		Content:   content,
		IsError:   isError,
	}
}

// Tool describes a tool offered to the model. The native computer tool uses
// the type/display fields; custom tools carry a JSON schema instead.
type Tool struct {
	Type        string         `json:"type,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema,omitempty"`

	DisplayWidthPx  int `json:"display_width_px,omitempty"`
	DisplayHeightPx int `json:"display_height_px,omitempty"`
	DisplayNumber   int `json:"display_number,omitempty"`
}

// Tool names fixed by the turn protocol.
const (
	ComputerToolName   = "computer"
	ProcessDocToolName = "process_documentation"

	// computerToolType pins the protocol revision of the native tool.
	computerToolType = "computer_20250124"
)

// ComputerTool returns the native computer-use tool definition for the fixed
// target resolution.
func ComputerTool(widthPx, heightPx, displayNumber int) Tool {
	return Tool{
		Type:            computerToolType,
		Name:            ComputerToolName,
		DisplayWidthPx:  widthPx,
		DisplayHeightPx: heightPx,
		DisplayNumber:   displayNumber,
	}
}

// ProcessDocTool returns the custom navigation tool registered in graph mode.
// The action vocabulary mirrors the step-navigation capability of the
// documentation adapter.
func ProcessDocTool() Tool {
	return Tool{
		Name: ProcessDocToolName,
		Description: "Navigate the process documentation you are following. " +
			"'next' moves to the next process step, 'prev' to the previous one, " +
			"'curr' repeats the current step description.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"action": map[string]any{
					"type":        "string",
					"enum":        []string{"next", "prev", "curr"},
					"description": "Direction to move inside the process documentation.",
				},
			},
			"required": []string{"action"},
		},
	}
}

// Request is the Messages API request payload.
type Request struct {
	Model     string    `json:"model"`
	System    string    `json:"system,omitempty"`
	Messages  []Message `json:"messages"`
	Tools     []Tool    `json:"tools,omitempty"`
	MaxTokens int       `json:"max_tokens"`
}

// Usage reports token accounting for one call.
type Usage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// Response is the Messages API response payload.
type Response struct {
	ID         string         `json:"id"`
	Role       string         `json:"role"`
	Content    []ContentBlock `json:"content"`
	StopReason string         `json:"stop_reason"`
	Usage      Usage          `json:"usage"`
}

// ToolUses returns the tool_use blocks of the response in order.
func (r *Response) ToolUses() []ContentBlock {
	var uses []ContentBlock
	for _, blk := range r.Content {
		if blk.Type == BlockToolUse {
			uses = append(uses, blk)
		}
	}
	return uses
}

// TextContent concatenates the text blocks of the response.
func (r *Response) TextContent() string {
	var out string
	for _, blk := range r.Content {
		if blk.Type == BlockText {
			if out != "" {
				out += "\n"
			}
			out += blk.Text
		}
	}
	return out
}
