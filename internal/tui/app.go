// Package tui is the terminal front end. It reads chat state from the
// chat service and reacts to bus events; it never mutates conversations
// directly.
package tui

import (
	"context"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"go.uber.org/zap"

	"github.com/prsnl/prsnl/internal/bus"
	"github.com/prsnl/prsnl/internal/chat"
	"github.com/prsnl/prsnl/internal/media"
	"github.com/prsnl/prsnl/internal/status"
	"github.com/prsnl/prsnl/internal/transport"
	"github.com/prsnl/prsnl/internal/tui/views"
)

const historyLimit = 100

// App is the terminal application shell.
type App struct {
	app    *tview.Application
	pages  *tview.Pages
	svc    *chat.Service
	tr     transport.Transport
	bus    *bus.Bus
	logger *zap.Logger

	list      *views.ConversationList
	thread    *views.MessageThread
	composer  *views.Composer
	statusBar *views.StatusBar

	activeConv string
	cancel     context.CancelFunc
}

// NewApp creates the terminal application.
func NewApp(svc *chat.Service, tr transport.Transport, b *bus.Bus, logger *zap.Logger) *App {
	a := &App{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		svc:       svc,
		tr:        tr,
		bus:       b,
		logger:    logger,
		list:      views.NewConversationList(),
		thread:    views.NewMessageThread(),
		composer:  views.NewComposer(),
		statusBar: views.NewStatusBar(),
	}

	a.setupCallbacks()
	a.setupLayout()

	return a
}

func (a *App) setupCallbacks() {
	a.list.SetSelectedFunc(func(row, col int) {
		if id := a.list.SelectedConversation(); id != "" {
			a.openChat(id)
		}
	})

	a.list.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Rune() {
		case 'q':
			a.app.Stop()
			return nil
		case 'n':
			if err := a.svc.CreateConversation(""); err != nil {
				a.statusBar.SetFlash(err.Error())
			}
			return nil
		case 'd':
			if id := a.list.SelectedConversation(); id != "" {
				if err := a.svc.DeleteConversation(id); err != nil {
					a.statusBar.SetFlash(err.Error())
				}
			}
			return nil
		}
		return event
	})

	a.composer.SetOnSend(a.sendInput)

	a.composer.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyEscape {
			a.activeConv = ""
			a.pages.SwitchToPage("list")
			a.app.SetFocus(a.list)
			return nil
		}
		return event
	})
}

func (a *App) setupLayout() {
	chatPage := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.thread, 0, 1, false).
		AddItem(a.composer, 1, 0, true)

	a.pages.AddPage("list", a.list, true, true)
	a.pages.AddPage("chat", chatPage, true, false)

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(a.pages, 0, 1, true).
		AddItem(a.statusBar, 1, 0, false)

	a.app.SetRoot(root, true)
}

// sendInput submits composer text. "/image <path> [caption]" attaches a
// local image.
func (a *App) sendInput(text string) {
	if a.activeConv == "" {
		return
	}

	if after, ok := strings.CutPrefix(text, "/image "); ok {
		parts := strings.SplitN(strings.TrimSpace(after), " ", 2)
		loaded, err := media.LoadImage(parts[0])
		if err != nil {
			a.statusBar.SetFlash(err.Error())
			return
		}
		caption := ""
		if len(parts) == 2 {
			caption = parts[1]
		}
		if _, err := a.svc.Send(a.activeConv, caption, loaded); err != nil {
			a.statusBar.SetFlash(err.Error())
		}
		return
	}

	if _, err := a.svc.Send(a.activeConv, text, nil); err != nil {
		a.statusBar.SetFlash(err.Error())
	}
}

func (a *App) openChat(id string) {
	a.activeConv = id
	if err := a.svc.LoadHistory(id, historyLimit); err != nil {
		a.statusBar.SetFlash(err.Error())
	}
	a.renderThread()
	a.pages.SwitchToPage("chat")
	a.app.SetFocus(a.composer)
}

// Run starts the event pump and blocks in the tview main loop.
func (a *App) Run(ctx context.Context) error {
	ctx, a.cancel = context.WithCancel(ctx)
	ch, unsub := a.bus.Subscribe("", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				a.app.QueueUpdateDraw(func() { a.handleEvent(evt) })
			case <-ctx.Done():
				return
			}
		}
	}()

	a.logger.Info("ui started")
	defer a.cancel()
	return a.app.Run()
}

// Stop terminates the UI loop.
func (a *App) Stop() {
	if a.cancel != nil {
		a.cancel()
	}
	a.app.Stop()
}

func (a *App) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindStatusChanged:
		if change, ok := evt.Payload.(status.StatusChange); ok {
			a.statusBar.SetState(change.To)
		}
	case bus.KindMessageError:
		if p, ok := evt.Payload.(transport.MessageError); ok {
			a.statusBar.SetFlash("message failed: " + p.Reason)
		}
	case bus.KindNotification:
		if p, ok := evt.Payload.(transport.Notification); ok {
			a.statusBar.SetFlash(p.Title + ": " + p.Body)
		}
	case bus.KindConversationDeleted:
		if p, ok := evt.Payload.(transport.ConversationDeleted); ok && p.ID == a.activeConv {
			a.activeConv = ""
			a.pages.SwitchToPage("list")
		}
	}

	a.list.SetConversations(a.svc.List())
	a.renderThread()
}

func (a *App) renderThread() {
	if a.activeConv == "" {
		return
	}
	if conv, ok := a.svc.Snapshot(a.activeConv); ok {
		a.thread.SetConversation(conv, a.svc.IsTyping(a.activeConv))
	}
}
