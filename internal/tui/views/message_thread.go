package views

import (
	"fmt"

	"github.com/rivo/tview"

	"github.com/prsnl/prsnl/internal/model"
)

// MessageThread renders one conversation's messages.
type MessageThread struct {
	*tview.TextView
}

// NewMessageThread creates the message thread view.
func NewMessageThread() *MessageThread {
	tv := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true).
		SetScrollable(true)
	tv.SetBorder(true)

	return &MessageThread{TextView: tv}
}

// SetConversation renders the conversation, with a typing indicator
// line when the assistant is composing.
func (mt *MessageThread) SetConversation(conv model.Conversation, typing bool) {
	mt.Clear()
	mt.SetTitle(fmt.Sprintf(" %s ", conv.Title))

	for _, msg := range conv.Messages {
		mt.writeMessage(msg)
	}
	if typing {
		_, _ = fmt.Fprintf(mt, "[gray]assistant is typing…[-]\n")
	}
	mt.ScrollToEnd()
}

func (mt *MessageThread) writeMessage(msg model.Message) {
	label := "[blue]you[-]"
	switch msg.Sender {
	case model.SenderAssistant:
		label = "[green]assistant[-]"
	case model.SenderSystem:
		label = "[gray]system[-]"
	}

	marker := ""
	switch msg.Status {
	case model.StatusSending:
		marker = " [yellow]…[-]"
	case model.StatusError:
		marker = fmt.Sprintf(" [red]✗ %s[-]", tview.Escape(msg.Error))
	}

	attach := ""
	if msg.Image != nil {
		attach = fmt.Sprintf(" [gray][%s][-]", msg.Image.Mimetype)
	}

	_, _ = fmt.Fprintf(mt, "%s %s  %s%s%s\n",
		msg.Timestamp.Local().Format("15:04"),
		label,
		tview.Escape(msg.Body),
		attach,
		marker)
}
