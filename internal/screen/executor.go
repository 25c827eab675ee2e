// File: internal/screen/executor.go
package screen

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/procdoc-lab/cua-cli/api/schemas"
	"github.com/procdoc-lab/cua-cli/internal/config"
)

// Executor turns model-issued action requests into backend input events and
// hands back the observation that follows each one. Every physical action
// ends with a fresh screenshot; between the input event and the capture the
// executor waits a short settle interval so the page has a chance to react.
type Executor struct {
	backend   InputBackend
	outputDir string
	settle    time.Duration
	logger    *zap.Logger

	turn    int
	actions int
}

// NewExecutor wires an executor over the given backend. OutputDir is created
// lazily on the first screenshot write.
func NewExecutor(backend InputBackend, cfg config.ScreenConfig, logger *zap.Logger) *Executor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Executor{
		backend:   backend,
		outputDir: cfg.OutputDir,
		settle:    cfg.ActionSettle,
		logger:    logger.Named("screen"),
	}
}

// ComputerActions reports how many physical actions have been executed. The
// count feeds the run summary; navigation and terminate requests never reach
// the executor and so never inflate it.
func (e *Executor) ComputerActions() int { return e.actions }

// Execute performs one action and returns the resulting observation. Backend
// failures come back as *ExecutionError and are fatal to the caller's run.
func (e *Executor) Execute(ctx context.Context, req *schemas.ActionRequest) (*schemas.Observation, error) {
	if req.Kind.IsNavigation() || req.Kind == schemas.ActionTerminate {
		return nil, fmt.Errorf("action %q is not a screen action", req.Kind)
	}

	e.turn++
	e.actions++

	if err := e.dispatch(ctx, req); err != nil {
		return nil, &ExecutionError{Action: req.Kind, Err: err}
	}

	if req.Kind != schemas.ActionScreenshot && e.settle > 0 {
		if err := sleepCtx(ctx, e.settle); err != nil {
			return nil, &ExecutionError{Action: req.Kind, Err: err}
		}
	}

	frame, err := e.backend.CaptureScreen(ctx)
	if err != nil {
		return nil, &ExecutionError{Action: req.Kind, Err: fmt.Errorf("capture screen: %w", err)}
	}
	e.saveFrame(frame)

	x, y := e.backend.CursorPosition()
	return &schemas.Observation{
		Turn:       e.turn,
		Screenshot: frame,
		Cursor:     schemas.Point{X: x, Y: y},
		CapturedAt: time.Now().UTC(),
	}, nil
}

func (e *Executor) dispatch(ctx context.Context, req *schemas.ActionRequest) error {
	switch req.Kind {
	case schemas.ActionScreenshot:
		return nil

	case schemas.ActionMouseMove:
		x, y, err := requireCoordinate(req)
		if err != nil {
			return err
		}
		return e.backend.MoveMouse(ctx, x, y)

	case schemas.ActionLeftClick:
		return e.click(ctx, req, ButtonLeft, 1)
	case schemas.ActionRightClick:
		return e.click(ctx, req, ButtonRight, 1)
	case schemas.ActionDoubleClick:
		return e.click(ctx, req, ButtonLeft, 2)

	case schemas.ActionTypeText:
		return e.backend.TypeText(ctx, req.Text)

	case schemas.ActionKey:
		if req.Text == "" {
			return fmt.Errorf("key action carries no key name")
		}
		return e.backend.PressKey(ctx, req.Text)

	case schemas.ActionScroll:
		amount := req.ScrollAmount
		if amount <= 0 {
			amount = 1
		}
		if req.Coordinate != nil {
			if err := e.backend.MoveMouse(ctx, req.Coordinate.X, req.Coordinate.Y); err != nil {
				return fmt.Errorf("position cursor for scroll: %w", err)
			}
		}
		return e.backend.Scroll(ctx, req.ScrollDirection, amount)

	case schemas.ActionWait:
		d := req.Duration
		if d <= 0 {
			d = time.Second
		}
		return sleepCtx(ctx, d)

	default:
		return fmt.Errorf("unsupported action kind %q", req.Kind)
	}
}

// click lands on the request coordinate when one is present, otherwise on the
// backend's current cursor position.
func (e *Executor) click(ctx context.Context, req *schemas.ActionRequest, button MouseButton, count int) error {
	x, y := e.backend.CursorPosition()
	if req.Coordinate != nil {
		x, y = req.Coordinate.X, req.Coordinate.Y
	}
	return e.backend.Click(ctx, x, y, button, count)
}

// saveFrame persists the screenshot for offline inspection. A failed write is
// logged and swallowed: the in-memory frame the model sees is unaffected.
func (e *Executor) saveFrame(frame []byte) {
	if e.outputDir == "" {
		return
	}
	if err := os.MkdirAll(e.outputDir, 0o755); err != nil {
		e.logger.Warn("Could not create screenshot directory.", zap.String("dir", e.outputDir), zap.Error(err))
		return
	}
	name := fmt.Sprintf("screenshot_%d.png", time.Now().UnixMilli())
	path := filepath.Join(e.outputDir, name)
	if err := os.WriteFile(path, frame, 0o644); err != nil {
		e.logger.Warn("Could not write screenshot.", zap.String("path", path), zap.Error(err))
		return
	}
	e.logger.Debug("Screenshot saved.", zap.String("path", path), zap.Int("bytes", len(frame)))
}

func requireCoordinate(req *schemas.ActionRequest) (int, int, error) {
	if req.Coordinate == nil {
		return 0, 0, fmt.Errorf("action %q requires a coordinate", req.Kind)
	}
	return req.Coordinate.X, req.Coordinate.Y, nil
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
