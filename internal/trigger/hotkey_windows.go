//go:build windows

package trigger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/moutend/go-hook/pkg/keyboard"
	"github.com/moutend/go-hook/pkg/types"
)

// Hotkey fires when Shift+Enter is pressed anywhere on the desktop
type Hotkey struct{}

// NewHotkey creates a Hotkey source
func NewHotkey() *Hotkey {
	return &Hotkey{}
}

// Listen installs a low-level keyboard hook until ctx is done
func (h *Hotkey) Listen(ctx context.Context, fire func()) error {
	events := make(chan types.KeyboardEvent, 100)
	if err := keyboard.Install(nil, events); err != nil {
		return fmt.Errorf("installing keyboard hook: %w", err)
	}
	defer keyboard.Uninstall()

	var c chord
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev := <-events:
			if c.observe(ev) {
				slog.Debug("Trigger hotkey pressed")
				fire()
			}
		}
	}
}

// chord tracks Shift so Enter can be recognized as Shift+Enter
type chord struct {
	shift bool
}

func (c *chord) observe(ev types.KeyboardEvent) bool {
	switch ev.VKCode {
	case types.VK_LSHIFT, types.VK_RSHIFT:
		c.shift = ev.Message == types.WM_KEYDOWN
		return false
	case types.VK_RETURN:
		return ev.Message == types.WM_KEYDOWN && c.shift
	}
	return false
}
