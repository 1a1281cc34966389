package model

import (
	"fmt"
	"strings"
	"time"
)

// Conversation is an ordered sequence of messages plus denormalized
// summary fields. Pending holds ids of messages whose delivery outcome
// is still unknown; it is always a subset of the ids of messages in
// Sending state.
type Conversation struct {
	ID                 string
	Title              string
	Messages           []Message
	LastMessageTime    time.Time
	LastMessagePreview string
	MessageCount       int
	Pending            map[string]struct{}
}

// NewConversation creates an empty conversation, optimistically before
// the server confirms it.
func NewConversation(id, title string) *Conversation {
	if title == "" {
		title = "New Chat"
	}
	return &Conversation{
		ID:      id,
		Title:   title,
		Pending: make(map[string]struct{}),
	}
}

// NewFromSummary rebuilds a conversation from a server list entry.
// The title is derived from the id since the backend does not store one.
func NewFromSummary(id string, lastMessage string, lastMessageTime time.Time, messageCount int) *Conversation {
	short := id
	if parts := strings.SplitN(id, "-", 3); len(parts) > 1 {
		short = parts[1]
	}
	if len(short) > 8 {
		short = short[:8]
	}
	return &Conversation{
		ID:                 id,
		Title:              fmt.Sprintf("Chat %s", short),
		LastMessageTime:    lastMessageTime,
		LastMessagePreview: lastMessage,
		MessageCount:       messageCount,
		Pending:            make(map[string]struct{}),
	}
}

// AddUserMessage appends a user message and tracks its id as pending.
func (c *Conversation) AddUserMessage(msg Message) {
	c.Pending[msg.ID] = struct{}{}
	c.touch(msg)
	c.Messages = append(c.Messages, msg)
}

// AddResponse appends an assistant or system message. If replyTo names
// a pending message its id leaves the pending set and the original is
// marked Delivered.
func (c *Conversation) AddResponse(replyTo string, response Message) {
	delete(c.Pending, replyTo)
	if msg := c.find(replyTo); msg != nil {
		msg.advanceStatus(StatusDelivered, "")
	}
	c.touch(response)
	c.Messages = append(c.Messages, response)
}

// MarkMessageError sets a message's status to Error with the given
// reason and removes its id from the pending set. The failed message
// stays visible; it is never silently dropped.
func (c *Conversation) MarkMessageError(id, reason string) {
	delete(c.Pending, id)
	if msg := c.find(id); msg != nil {
		msg.Status = StatusError
		msg.Error = reason
	}
}

// SetMessages replaces the message list wholesale, as when loading
// history. Pending ids not present in the new list are dropped: the
// messages they tracked no longer exist in state.
func (c *Conversation) SetMessages(msgs []Message) {
	c.Messages = msgs
	c.MessageCount = len(msgs)
	if len(msgs) > 0 {
		last := msgs[len(msgs)-1]
		c.LastMessageTime = last.Timestamp
		c.LastMessagePreview = last.Body
	}
	for id := range c.Pending {
		if c.find(id) == nil {
			delete(c.Pending, id)
		}
	}
}

// IsPending reports whether the given message id is awaiting an outcome.
func (c *Conversation) IsPending(id string) bool {
	_, ok := c.Pending[id]
	return ok
}

func (c *Conversation) find(id string) *Message {
	for i := range c.Messages {
		if c.Messages[i].ID == id {
			return &c.Messages[i]
		}
	}
	return nil
}

func (c *Conversation) touch(msg Message) {
	c.LastMessageTime = msg.Timestamp
	c.LastMessagePreview = msg.Body
	c.MessageCount++
}
