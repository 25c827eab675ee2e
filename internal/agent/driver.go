// File: internal/agent/driver.go
package agent

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/procdoc-lab/cua-cli/api/schemas"
	"github.com/procdoc-lab/cua-cli/internal/config"
	"github.com/procdoc-lab/cua-cli/internal/docs"
	"github.com/procdoc-lab/cua-cli/internal/model"
)

// ModelClient is the slice of the Messages client the driver needs. The
// production implementation is *model.Client; tests script responses.
type ModelClient interface {
	CreateMessage(ctx context.Context, system string, messages []model.Message, tools []model.Tool) (*model.Response, error)
}

// Driver runs the observe-decide-act loop until the model terminates, the
// step limit is hit, or something fatal happens. One driver serves one run.
//
// Nothing in here retries: model errors, substrate errors and malformed
// responses all end the run as Failed, so the outcome reflects what the
// model and environment actually did.
type Driver struct {
	client    ModelClient
	executor  schemas.ActionExecutor
	source    docs.Source
	navigator schemas.StepNavigator
	maxSteps  int
	logger    *zap.Logger

	transcript *Transcript
	initial    *schemas.Observation
	actions    int
}

// NewDriver assembles a driver. navigator may be nil; the navigation tool is
// then not offered and navigation requests are answered with an error note.
func NewDriver(client ModelClient, executor schemas.ActionExecutor, source docs.Source, navigator schemas.StepNavigator, maxSteps int, logger *zap.Logger) *Driver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Driver{
		client:     client,
		executor:   executor,
		source:     source,
		navigator:  navigator,
		maxSteps:   maxSteps,
		logger:     logger.Named("driver"),
		transcript: NewTranscript(),
	}
}

// Transcript exposes the append-only run record.
func (d *Driver) Transcript() *Transcript { return d.transcript }

// Run executes the loop for one task. The result is always non-nil; fatal
// errors are folded into a Failed result with the reason preserved.
func (d *Driver) Run(ctx context.Context, task string) *schemas.RunResult {
	docContext, err := d.source.Context(ctx, task)
	if err != nil {
		return d.fail(0, fmt.Errorf("load process documentation: %w", err))
	}
	system := BuildSystemPrompt(d.source.Mode(), docContext)

	tools := []model.Tool{model.ComputerTool(config.DisplayWidth, config.DisplayHeight, 1)}
	if d.source.Mode() == docs.ModeGraph {
		tools = append(tools, model.ProcessDocTool())
	}

	// Bootstrap observation: the model's first decision is grounded in a
	// real frame, not a blank conversation. It precedes turn 1 and is not a
	// turn record of its own.
	initial, err := d.executor.Execute(ctx, &schemas.ActionRequest{Kind: schemas.ActionScreenshot})
	if err != nil {
		return d.fail(0, fmt.Errorf("initial observation: %w", err))
	}
	d.initial = initial

	hist := newHistory(task, encodeScreenshot(initial.Screenshot))

	for turn := 1; ; turn++ {
		if turn > d.maxSteps {
			d.logger.Warn("Step limit reached before the task completed.", zap.Int("max_steps", d.maxSteps))
			return d.result(schemas.RunMaxStepsExceeded, turn-1, "")
		}

		resp, err := d.client.CreateMessage(ctx, system, hist.wire(), tools)
		if err != nil {
			return d.fail(turn-1, fmt.Errorf("model call: %w", err))
		}
		hist.appendAssistant(resp.Content)

		uses := resp.ToolUses()
		if len(uses) == 0 {
			// The model stopped calling tools: it considers the task done.
			d.transcript.Append(schemas.TurnRecord{Turn: turn, RawResponse: resp.TextContent()})
			d.logger.Info("Model signalled completion.", zap.Int("turn", turn))
			return d.result(schemas.RunCompleted, turn, "")
		}

		var results []model.ContentBlock
		for _, use := range uses {
			req, err := ParseAction(use)
			if err != nil {
				d.transcript.Append(schemas.TurnRecord{Turn: turn, RawResponse: resp.TextContent()})
				return d.fail(turn, err)
			}

			switch {
			case req.Kind == schemas.ActionTerminate:
				d.transcript.Append(schemas.TurnRecord{
					Turn:        turn,
					RawResponse: resp.TextContent(),
					Action:      req,
				})
				d.logger.Info("Model terminated the run.", zap.Int("turn", turn))
				return d.result(schemas.RunCompleted, turn, "")

			case req.Kind.IsNavigation():
				text, isErr, err := d.navigate(ctx, req.Kind)
				if err != nil {
					return d.fail(turn, err)
				}
				results = append(results, textResult(req.ToolUseID, text, isErr))
				d.transcript.Append(schemas.TurnRecord{
					Turn:           turn,
					RawResponse:    resp.TextContent(),
					Action:         req,
					ToolResultText: text,
					ToolResultErr:  isErr,
				})

			default:
				obs, err := d.executor.Execute(ctx, req)
				if err != nil {
					return d.fail(turn, err)
				}
				d.actions++
				results = append(results, observationResult(req.ToolUseID, obs))
				d.transcript.Append(schemas.TurnRecord{
					Turn:        turn,
					RawResponse: resp.TextContent(),
					Action:      req,
					Observation: obs,
				})
			}
		}
		hist.appendToolResults(results)
	}
}

// navigate answers a documentation-navigation request. A missing navigator
// is the model's mistake and is reported back as a tool error; a graph
// failure underneath a live navigator is fatal.
func (d *Driver) navigate(ctx context.Context, kind schemas.ActionKind) (text string, isErr bool, err error) {
	if d.navigator == nil {
		return "Process documentation navigation is not available in this run.", true, nil
	}

	var step schemas.ProcessStep
	switch kind {
	case schemas.ActionNextStep:
		step, err = d.navigator.NextStep(ctx)
	case schemas.ActionPrevStep:
		step, err = d.navigator.PrevStep(ctx)
	case schemas.ActionCurrStep:
		step, err = d.navigator.CurrStep(ctx)
	}
	if err != nil {
		return "", false, fmt.Errorf("navigate process documentation: %w", err)
	}
	return step.Description, false, nil
}

func (d *Driver) result(status schemas.RunStatus, turns int, reason string) *schemas.RunResult {
	final := d.transcript.LastObservation()
	if final == nil {
		final = d.initial
	}
	return &schemas.RunResult{
		Status:          status,
		Reason:          reason,
		Turns:           turns,
		ComputerActions: d.actions,
		Final:           final,
	}
}

func (d *Driver) fail(turns int, err error) *schemas.RunResult {
	d.logger.Error("Run failed.", zap.Int("turns", turns), zap.Error(err))
	return d.result(schemas.RunFailed, turns, err.Error())
}
