//go:build linux

package screen

import (
	"context"
	"os/exec"
)

// pageTurnMethods returns the X11 page-turn gestures in preference order.
func pageTurnMethods() []method {
	return []method{
		{name: "space key", send: xdotoolKey("space")},
		{name: "right arrow key", send: xdotoolKey("Right")},
		{name: "page down key", send: xdotoolKey("Next")},
	}
}

func xdotoolKey(key string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		return exec.CommandContext(ctx, "xdotool", "key", key).Run()
	}
}
