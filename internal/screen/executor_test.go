// File: internal/screen/executor_test.go
package screen

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/procdoc-lab/cua-cli/api/schemas"
	"github.com/procdoc-lab/cua-cli/internal/config"
)

// -- fakeBackend --

type backendCall struct {
	method string
	detail string
}

type fakeBackend struct {
	calls      []backendCall
	cursorX    int
	cursorY    int
	frame      []byte
	failMethod string
	failErr    error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{frame: []byte("\x89PNG fake frame")}
}

func (f *fakeBackend) maybeFail(method string) error {
	if f.failMethod == method {
		return f.failErr
	}
	return nil
}

func (f *fakeBackend) MoveMouse(_ context.Context, x, y int) error {
	f.calls = append(f.calls, backendCall{"MoveMouse", fmt.Sprintf("%d,%d", x, y)})
	if err := f.maybeFail("MoveMouse"); err != nil {
		return err
	}
	f.cursorX, f.cursorY = x, y
	return nil
}

func (f *fakeBackend) Click(_ context.Context, x, y int, button MouseButton, clickCount int) error {
	f.calls = append(f.calls, backendCall{"Click", fmt.Sprintf("%d,%d %s x%d", x, y, button, clickCount)})
	return f.maybeFail("Click")
}

func (f *fakeBackend) TypeText(_ context.Context, text string) error {
	f.calls = append(f.calls, backendCall{"TypeText", text})
	return f.maybeFail("TypeText")
}

func (f *fakeBackend) PressKey(_ context.Context, key string) error {
	f.calls = append(f.calls, backendCall{"PressKey", key})
	return f.maybeFail("PressKey")
}

func (f *fakeBackend) Scroll(_ context.Context, direction schemas.ScrollDirection, amount int) error {
	f.calls = append(f.calls, backendCall{"Scroll", fmt.Sprintf("%s x%d", direction, amount)})
	return f.maybeFail("Scroll")
}

func (f *fakeBackend) CaptureScreen(_ context.Context) ([]byte, error) {
	f.calls = append(f.calls, backendCall{"CaptureScreen", ""})
	if err := f.maybeFail("CaptureScreen"); err != nil {
		return nil, err
	}
	return f.frame, nil
}

func (f *fakeBackend) CursorPosition() (int, int) { return f.cursorX, f.cursorY }

func (f *fakeBackend) Close(context.Context) error { return nil }

func newTestExecutor(t *testing.T, backend InputBackend) *Executor {
	t.Helper()
	cfg := config.ScreenConfig{
		OutputDir:    t.TempDir(),
		ActionSettle: 0,
	}
	return NewExecutor(backend, cfg, zap.NewNop())
}

// -- Tests --

func TestExecuteScreenshotReturnsObservation(t *testing.T) {
	backend := newFakeBackend()
	exec := newTestExecutor(t, backend)

	obs, err := exec.Execute(context.Background(), &schemas.ActionRequest{Kind: schemas.ActionScreenshot})
	require.NoError(t, err)
	require.NotNil(t, obs)

	assert.Equal(t, 1, obs.Turn)
	assert.Equal(t, backend.frame, obs.Screenshot)
	assert.False(t, obs.CapturedAt.IsZero())
	// A screenshot request touches nothing but the capture path.
	require.Len(t, backend.calls, 1)
	assert.Equal(t, "CaptureScreen", backend.calls[0].method)
}

func TestExecuteClickDispatch(t *testing.T) {
	tests := []struct {
		name   string
		kind   schemas.ActionKind
		detail string
	}{
		{"left click", schemas.ActionLeftClick, "40,60 left x1"},
		{"right click", schemas.ActionRightClick, "40,60 right x1"},
		{"double click", schemas.ActionDoubleClick, "40,60 left x2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := newFakeBackend()
			exec := newTestExecutor(t, backend)

			_, err := exec.Execute(context.Background(), &schemas.ActionRequest{
				Kind:       tt.kind,
				Coordinate: &schemas.Point{X: 40, Y: 60},
			})
			require.NoError(t, err)
			require.GreaterOrEqual(t, len(backend.calls), 2)
			assert.Equal(t, "Click", backend.calls[0].method)
			assert.Equal(t, tt.detail, backend.calls[0].detail)
		})
	}
}

func TestExecuteClickWithoutCoordinateUsesCursor(t *testing.T) {
	backend := newFakeBackend()
	backend.cursorX, backend.cursorY = 321, 123
	exec := newTestExecutor(t, backend)

	_, err := exec.Execute(context.Background(), &schemas.ActionRequest{Kind: schemas.ActionLeftClick})
	require.NoError(t, err)
	assert.Equal(t, "321,123 left x1", backend.calls[0].detail)
}

func TestExecuteMouseMoveRequiresCoordinate(t *testing.T) {
	backend := newFakeBackend()
	exec := newTestExecutor(t, backend)

	_, err := exec.Execute(context.Background(), &schemas.ActionRequest{Kind: schemas.ActionMouseMove})
	require.Error(t, err)
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, schemas.ActionMouseMove, execErr.Action)
}

func TestExecuteTypeAndKey(t *testing.T) {
	backend := newFakeBackend()
	exec := newTestExecutor(t, backend)

	_, err := exec.Execute(context.Background(), &schemas.ActionRequest{
		Kind: schemas.ActionTypeText,
		Text: "hello world",
	})
	require.NoError(t, err)
	assert.Equal(t, backendCall{"TypeText", "hello world"}, backend.calls[0])

	_, err = exec.Execute(context.Background(), &schemas.ActionRequest{
		Kind: schemas.ActionKey,
		Text: "ctrl+a",
	})
	require.NoError(t, err)
	assert.Equal(t, backendCall{"PressKey", "ctrl+a"}, backend.calls[2])
}

func TestExecuteKeyWithoutNameFails(t *testing.T) {
	backend := newFakeBackend()
	exec := newTestExecutor(t, backend)

	_, err := exec.Execute(context.Background(), &schemas.ActionRequest{Kind: schemas.ActionKey})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
}

func TestExecuteScrollPositionsCursorFirst(t *testing.T) {
	backend := newFakeBackend()
	exec := newTestExecutor(t, backend)

	_, err := exec.Execute(context.Background(), &schemas.ActionRequest{
		Kind:            schemas.ActionScroll,
		Coordinate:      &schemas.Point{X: 100, Y: 200},
		ScrollDirection: schemas.ScrollDown,
		ScrollAmount:    3,
	})
	require.NoError(t, err)
	require.GreaterOrEqual(t, len(backend.calls), 3)
	assert.Equal(t, backendCall{"MoveMouse", "100,200"}, backend.calls[0])
	assert.Equal(t, backendCall{"Scroll", "down x3"}, backend.calls[1])
}

func TestExecuteScrollDefaultsToOneTick(t *testing.T) {
	backend := newFakeBackend()
	exec := newTestExecutor(t, backend)

	_, err := exec.Execute(context.Background(), &schemas.ActionRequest{
		Kind:            schemas.ActionScroll,
		ScrollDirection: schemas.ScrollUp,
	})
	require.NoError(t, err)
	assert.Equal(t, backendCall{"Scroll", "up x1"}, backend.calls[0])
}

func TestExecuteWaitHonoursDuration(t *testing.T) {
	backend := newFakeBackend()
	exec := newTestExecutor(t, backend)

	start := time.Now()
	_, err := exec.Execute(context.Background(), &schemas.ActionRequest{
		Kind:     schemas.ActionWait,
		Duration: 30 * time.Millisecond,
	})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 30*time.Millisecond)
}

func TestExecuteRejectsNavigationAndTerminate(t *testing.T) {
	backend := newFakeBackend()
	exec := newTestExecutor(t, backend)

	for _, kind := range []schemas.ActionKind{
		schemas.ActionNextStep, schemas.ActionPrevStep, schemas.ActionCurrStep, schemas.ActionTerminate,
	} {
		_, err := exec.Execute(context.Background(), &schemas.ActionRequest{Kind: kind})
		assert.Error(t, err, "kind %s", kind)
	}
	assert.Empty(t, backend.calls)
	assert.Zero(t, exec.ComputerActions())
}

func TestExecuteBackendFailureIsExecutionError(t *testing.T) {
	backend := newFakeBackend()
	backend.failMethod = "Click"
	backend.failErr = errors.New("target crashed")
	exec := newTestExecutor(t, backend)

	_, err := exec.Execute(context.Background(), &schemas.ActionRequest{
		Kind:       schemas.ActionLeftClick,
		Coordinate: &schemas.Point{X: 1, Y: 1},
	})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.Equal(t, schemas.ActionLeftClick, execErr.Action)
	assert.ErrorIs(t, err, backend.failErr)
}

func TestExecuteCaptureFailureIsExecutionError(t *testing.T) {
	backend := newFakeBackend()
	backend.failMethod = "CaptureScreen"
	backend.failErr = errors.New("no frame")
	exec := newTestExecutor(t, backend)

	_, err := exec.Execute(context.Background(), &schemas.ActionRequest{Kind: schemas.ActionScreenshot})
	var execErr *ExecutionError
	require.ErrorAs(t, err, &execErr)
	assert.ErrorIs(t, err, backend.failErr)
}

func TestExecutePersistsScreenshots(t *testing.T) {
	backend := newFakeBackend()
	dir := t.TempDir()
	exec := NewExecutor(backend, config.ScreenConfig{OutputDir: dir}, zap.NewNop())

	_, err := exec.Execute(context.Background(), &schemas.ActionRequest{Kind: schemas.ActionScreenshot})
	require.NoError(t, err)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, ".png", filepath.Ext(entries[0].Name()))

	data, err := os.ReadFile(filepath.Join(dir, entries[0].Name()))
	require.NoError(t, err)
	assert.Equal(t, backend.frame, data)
}

func TestComputerActionsCountsPhysicalActionsOnly(t *testing.T) {
	backend := newFakeBackend()
	exec := newTestExecutor(t, backend)

	for i := 0; i < 3; i++ {
		_, err := exec.Execute(context.Background(), &schemas.ActionRequest{Kind: schemas.ActionScreenshot})
		require.NoError(t, err)
	}
	_, _ = exec.Execute(context.Background(), &schemas.ActionRequest{Kind: schemas.ActionNextStep})
	assert.Equal(t, 3, exec.ComputerActions())
}
