package views

import (
	"fmt"
	"time"

	"github.com/rivo/tview"

	"github.com/prsnl/prsnl/internal/status"
)

// StatusBar displays the connection state and transient messages.
type StatusBar struct {
	*tview.TextView
	state status.State
	flash string
}

// NewStatusBar creates a new status bar.
func NewStatusBar() *StatusBar {
	tv := tview.NewTextView().
		SetDynamicColors(true)
	tv.SetBackgroundColor(tview.Styles.MoreContrastBackgroundColor)

	return &StatusBar{TextView: tv, state: status.Disconnected}
}

// SetState updates the connection indicator.
func (sb *StatusBar) SetState(s status.State) {
	sb.state = s
	sb.render()
}

// SetFlash sets a temporary message.
func (sb *StatusBar) SetFlash(msg string) {
	sb.flash = msg
	sb.render()
}

func (sb *StatusBar) render() {
	sb.Clear()

	indicator := "[red]●[-]"
	switch sb.state {
	case status.Connected:
		indicator = "[green]●[-]"
	case status.Connecting, status.Reconnecting:
		indicator = "[yellow]●[-]"
	}

	clock := time.Now().Format("15:04")

	line := fmt.Sprintf(" %s %s | %s", indicator, sb.state, clock)
	if sb.flash != "" {
		line += fmt.Sprintf(" | [yellow]%s[-]", sb.flash)
	}

	_, _ = fmt.Fprint(sb, line)
}
