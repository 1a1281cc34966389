package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/prsnl/prsnl/internal/model"
)

// ConversationList shows all conversations, most recently active first.
type ConversationList struct {
	*tview.Table
	ids []string
}

// NewConversationList creates the conversation list view.
func NewConversationList() *ConversationList {
	table := tview.NewTable().
		SetSelectable(true, false)
	table.SetBorder(true).SetTitle(" Conversations ")

	return &ConversationList{Table: table}
}

// SetConversations replaces the displayed conversations.
func (cl *ConversationList) SetConversations(convs []model.Conversation) {
	cl.Clear()
	cl.ids = cl.ids[:0]

	for row, conv := range convs {
		cl.ids = append(cl.ids, conv.ID)

		preview := conv.LastMessagePreview
		if len(preview) > 40 {
			preview = preview[:40] + "…"
		}

		cl.SetCell(row, 0, tview.NewTableCell(conv.Title).
			SetExpansion(1))
		cl.SetCell(row, 1, tview.NewTableCell(preview).
			SetTextColor(tcell.ColorGray).
			SetExpansion(2))
		cl.SetCell(row, 2, tview.NewTableCell(fmt.Sprintf("%d", conv.MessageCount)).
			SetAlign(tview.AlignRight))
	}
}

// SelectedConversation returns the id of the highlighted conversation,
// or empty when the list is empty.
func (cl *ConversationList) SelectedConversation() string {
	row, _ := cl.GetSelection()
	if row < 0 || row >= len(cl.ids) {
		return ""
	}
	return cl.ids[row]
}
