// File: internal/docs/source.go
package docs

import (
	"context"
	"errors"
	"os"
	"strings"
)

// Mode identifies which documentation backend a run uses. Exactly one mode is
// selected at startup and cannot change mid-run.
type Mode string

const (
	ModeNone  Mode = "none"
	ModeText  Mode = "text"
	ModeGraph Mode = "graph"
)

// Source produces the grounding context injected into the model's input.
// The two real backends (text file, process graph) and the no-documentation
// baseline all satisfy this single capability.
type Source interface {
	Mode() Mode
	// Context returns the formatted grounding block for the given task.
	// Deterministic for identical underlying content.
	Context(ctx context.Context, task string) (string, error)
}

// NoneSource is the undocumented baseline: an empty grounding block that is
// never referenced in model requests.
type NoneSource struct{}

func (NoneSource) Mode() Mode { return ModeNone }

func (NoneSource) Context(context.Context, string) (string, error) { return "", nil }

// TextSource injects the content of a plain-text process description,
// normalized once at load time.
type TextSource struct {
	content string
}

// NewTextSource loads and normalizes the documentation file. A missing or
// empty file is a DocumentationLoadError: the operator asked for textual
// grounding, so running without it would be a different experiment.
func NewTextSource(path string) (*TextSource, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, &DocumentationLoadError{Path: path, Err: err}
	}
	content := NormalizeText(string(raw))
	if content == "" {
		return nil, &DocumentationLoadError{Path: path, Err: errors.New("documentation file is empty")}
	}
	return &TextSource{content: content}, nil
}

func (s *TextSource) Mode() Mode { return ModeText }

func (s *TextSource) Context(context.Context, string) (string, error) {
	return s.content, nil
}

// trimmedRead reads a credential or prompt file and strips surrounding
// whitespace. Shared by the CLI for API keys, passwords and the task prompt.
func trimmedRead(path string) (string, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(raw)), nil
}

// LoadTaskFile reads the user's task prompt. An empty task is rejected with a
// DocumentationLoadError carrying the path, since a run without an objective
// is meaningless.
func LoadTaskFile(path string) (string, error) {
	task, err := trimmedRead(path)
	if err != nil {
		return "", &DocumentationLoadError{Path: path, Err: err}
	}
	if task == "" {
		return "", &DocumentationLoadError{Path: path, Err: errors.New("task prompt file is empty")}
	}
	return task, nil
}

// LoadCredentialFile reads a single-line credential (API key, database
// password). The value is returned to the caller and must never be logged.
func LoadCredentialFile(path string) (string, error) {
	cred, err := trimmedRead(path)
	if err != nil {
		return "", err
	}
	if cred == "" {
		return "", errors.New("credential file is empty: " + path)
	}
	return cred, nil
}
