//go:build windows

package screen

import (
	"context"
	"os/exec"
)

// pageTurnMethods returns the Windows page-turn gestures in preference
// order.
func pageTurnMethods() []method {
	return []method{
		{name: "right arrow key", send: sendKeys("{RIGHT}")},
		{name: "space key", send: sendKeys(" ")},
		{name: "page down key", send: sendKeys("{PGDN}")},
	}
}

func sendKeys(keys string) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		cmd := `$w = New-Object -ComObject wscript.shell; $w.SendKeys('` + keys + `')`
		return exec.CommandContext(ctx, "powershell", "-NoProfile", "-Command", cmd).Run()
	}
}
