//go:build darwin

package screen

import (
	"context"
	"os/exec"
)

// pageTurnMethods returns the macOS page-turn gestures in preference order.
// Key codes: 49 = space, 124 = right arrow.
func pageTurnMethods() []method {
	return []method{
		{name: "space key", send: keyCode("49")},
		{name: "right arrow key", send: keyCode("124")},
	}
}

func keyCode(code string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		script := `tell application "System Events" to key code ` + code
		return exec.CommandContext(ctx, "osascript", "-e", script).Run()
	}
}
