// File: internal/screen/cdp.go
package screen

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/chromedp/cdproto/input"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
	"go.uber.org/zap"

	"github.com/procdoc-lab/cua-cli/api/schemas"
	"github.com/procdoc-lab/cua-cli/internal/config"
)

// scrollUnitPixels is how far one scroll "tick" travels.
const scrollUnitPixels = 100

// namedKeys maps the key names the model emits onto CDP key runes. Names are
// matched case-insensitively; a name missing here is sent through verbatim,
// which covers plain printable characters.
var namedKeys = map[string]string{
	"enter":     kb.Enter,
	"return":    kb.Enter,
	"tab":       kb.Tab,
	"escape":    kb.Escape,
	"esc":       kb.Escape,
	"backspace": kb.Backspace,
	"delete":    kb.Delete,
	"space":     " ",
	"up":        kb.ArrowUp,
	"down":      kb.ArrowDown,
	"left":      kb.ArrowLeft,
	"right":     kb.ArrowRight,
	"home":      kb.Home,
	"end":       kb.End,
	"page_up":   kb.PageUp,
	"pageup":    kb.PageUp,
	"page_down": kb.PageDown,
	"pagedown":  kb.PageDown,
}

var keyModifiers = map[string]input.Modifier{
	"ctrl":    input.ModifierCtrl,
	"control": input.ModifierCtrl,
	"alt":     input.ModifierAlt,
	"shift":   input.ModifierShift,
	"cmd":     input.ModifierMeta,
	"meta":    input.ModifierMeta,
	"super":   input.ModifierMeta,
}

// CDPBackend drives a headless Chrome target over the DevTools protocol.
// The viewport is pinned to the fixed display geometry at startup; a target
// that cannot hold that geometry is rejected immediately rather than letting
// the model reason over coordinates that do not map onto the real frame.
type CDPBackend struct {
	ctx          context.Context
	cancelCtx    context.CancelFunc
	cancelAlloc  context.CancelFunc
	typeInterval time.Duration
	logger       *zap.Logger

	cursorX int
	cursorY int
}

// NewCDPBackend launches Chrome, navigates to the start URL and validates the
// viewport against the fixed display geometry.
func NewCDPBackend(ctx context.Context, cfg config.ScreenConfig, logger *zap.Logger) (*CDPBackend, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.WindowSize(config.DisplayWidth, config.DisplayHeight),
	)
	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelCtx := chromedp.NewContext(allocCtx)

	b := &CDPBackend{
		ctx:          browserCtx,
		cancelCtx:    cancelCtx,
		cancelAlloc:  cancelAlloc,
		typeInterval: cfg.TypeInterval,
		logger:       logger.Named("cdp"),
	}

	startURL := cfg.StartURL
	if startURL == "" {
		startURL = "about:blank"
	}
	err := chromedp.Run(browserCtx,
		chromedp.EmulateViewport(config.DisplayWidth, config.DisplayHeight),
		chromedp.Navigate(startURL),
	)
	if err != nil {
		b.Close(ctx)
		return nil, fmt.Errorf("launch browser target: %w", err)
	}

	if err := b.verifyViewport(browserCtx); err != nil {
		b.Close(ctx)
		return nil, err
	}

	b.logger.Info("Browser target ready.",
		zap.String("start_url", startURL),
		zap.Int("width", config.DisplayWidth),
		zap.Int("height", config.DisplayHeight),
	)
	return b, nil
}

// verifyViewport fails fast when the live viewport does not match the
// geometry the model is told about.
func (b *CDPBackend) verifyViewport(ctx context.Context) error {
	var gotW, gotH int
	err := chromedp.Run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, _, cssLayout, _, _, err := page.GetLayoutMetrics().Do(ctx)
		if err != nil {
			return err
		}
		gotW = int(cssLayout.ClientWidth)
		gotH = int(cssLayout.ClientHeight)
		return nil
	}))
	if err != nil {
		return fmt.Errorf("read layout metrics: %w", err)
	}
	if gotW != config.DisplayWidth || gotH != config.DisplayHeight {
		return fmt.Errorf("viewport is %dx%d, need %dx%d", gotW, gotH, config.DisplayWidth, config.DisplayHeight)
	}
	return nil
}

func (b *CDPBackend) MoveMouse(ctx context.Context, x, y int) error {
	p := &input.DispatchMouseEventParams{
		Type: input.MouseMoved,
		X:    float64(x),
		Y:    float64(y),
	}
	if err := b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return p.Do(ctx)
	})); err != nil {
		return err
	}
	b.cursorX, b.cursorY = x, y
	return nil
}

func (b *CDPBackend) Click(ctx context.Context, x, y int, button MouseButton, clickCount int) error {
	if err := b.MoveMouse(ctx, x, y); err != nil {
		return err
	}
	btn := input.Left
	if button == ButtonRight {
		btn = input.Right
	}
	if clickCount < 1 {
		clickCount = 1
	}
	return b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		for i := 1; i <= clickCount; i++ {
			press := &input.DispatchMouseEventParams{
				Type:       input.MousePressed,
				X:          float64(x),
				Y:          float64(y),
				Button:     btn,
				ClickCount: int64(i),
			}
			if err := press.Do(ctx); err != nil {
				return err
			}
			release := &input.DispatchMouseEventParams{
				Type:       input.MouseReleased,
				X:          float64(x),
				Y:          float64(y),
				Button:     btn,
				ClickCount: int64(i),
			}
			if err := release.Do(ctx); err != nil {
				return err
			}
		}
		return nil
	}))
}

// TypeText sends the text rune by rune with a small inter-key interval, which
// keeps pages with per-keystroke handlers (autocomplete, input masks) honest.
func (b *CDPBackend) TypeText(ctx context.Context, text string) error {
	for _, r := range text {
		if err := b.run(ctx, chromedp.KeyEvent(string(r))); err != nil {
			return fmt.Errorf("send %q: %w", r, err)
		}
		if b.typeInterval > 0 {
			if err := sleepCtx(ctx, b.typeInterval); err != nil {
				return err
			}
		}
	}
	return nil
}

// PressKey sends a named key, honouring "ctrl+a" style modifier chords.
func (b *CDPBackend) PressKey(ctx context.Context, key string) error {
	parts := strings.Split(key, "+")
	var mods input.Modifier
	for _, part := range parts[:len(parts)-1] {
		mod, ok := keyModifiers[strings.ToLower(strings.TrimSpace(part))]
		if !ok {
			return fmt.Errorf("unknown key modifier %q", part)
		}
		mods |= mod
	}

	name := strings.TrimSpace(parts[len(parts)-1])
	keys, ok := namedKeys[strings.ToLower(name)]
	if !ok {
		keys = name
	}

	action := chromedp.KeyEvent(keys)
	if mods != 0 {
		action = chromedp.KeyEvent(keys, chromedp.KeyModifiers(mods))
	}
	return b.run(ctx, action)
}

func (b *CDPBackend) Scroll(ctx context.Context, direction schemas.ScrollDirection, amount int) error {
	var dx, dy float64
	pixels := float64(amount * scrollUnitPixels)
	switch direction {
	case schemas.ScrollUp:
		dy = -pixels
	case schemas.ScrollDown:
		dy = pixels
	case schemas.ScrollLeft:
		dx = -pixels
	case schemas.ScrollRight:
		dx = pixels
	default:
		return fmt.Errorf("unknown scroll direction %q", direction)
	}

	p := &input.DispatchMouseEventParams{
		Type:   input.MouseWheel,
		X:      float64(b.cursorX),
		Y:      float64(b.cursorY),
		DeltaX: dx,
		DeltaY: dy,
	}
	return b.run(ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		return p.Do(ctx)
	}))
}

func (b *CDPBackend) CaptureScreen(ctx context.Context) ([]byte, error) {
	var frame []byte
	if err := b.run(ctx, chromedp.CaptureScreenshot(&frame)); err != nil {
		return nil, err
	}
	return frame, nil
}

func (b *CDPBackend) CursorPosition() (int, int) { return b.cursorX, b.cursorY }

func (b *CDPBackend) Close(context.Context) error {
	b.cancelCtx()
	b.cancelAlloc()
	return nil
}

// run executes an action on the browser context while still respecting the
// caller's deadline.
func (b *CDPBackend) run(ctx context.Context, action chromedp.Action) error {
	done := make(chan error, 1)
	go func() {
		done <- chromedp.Run(b.ctx, action)
	}()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-done:
		return err
	}
}
