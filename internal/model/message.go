package model

import "time"

// Sender identifies who produced a message.
type Sender string

const (
	SenderUser      Sender = "user"
	SenderAssistant Sender = "assistant"
	SenderSystem    Sender = "system"
)

// MessageStatus is the delivery status of a message. Statuses only move
// forward (Sending -> Sent -> Delivered); StatusError is terminal and
// reachable from Sending.
type MessageStatus string

const (
	StatusSending   MessageStatus = "sending"
	StatusSent      MessageStatus = "sent"
	StatusDelivered MessageStatus = "delivered"
	StatusError     MessageStatus = "error"
)

// statusRank orders statuses for the forward-only invariant.
var statusRank = map[MessageStatus]int{
	StatusSending:   0,
	StatusSent:      1,
	StatusDelivered: 2,
}

// ImageData is an image attachment: base64-encoded bytes plus MIME type.
type ImageData struct {
	Data     string
	Mimetype string
}

// Message is one chat turn. ID is assigned at creation and never
// changes. Error holds the human-readable reason when Status is
// StatusError, and is empty otherwise.
type Message struct {
	ID        string
	Body      string
	Timestamp time.Time
	Sender    Sender
	Status    MessageStatus
	Error     string
	Image     *ImageData
}

// NewUserMessage creates a user message in Sending state. The id is the
// client-assigned frame id so the server's reply correlates to it.
func NewUserMessage(id, body string, image *ImageData) Message {
	return Message{
		ID:        id,
		Body:      body,
		Timestamp: time.Now().UTC(),
		Sender:    SenderUser,
		Status:    StatusSending,
		Image:     image,
	}
}

// NewAssistantMessage creates an assistant message. Inbound server
// messages arrive already delivered; the id is the server-assigned one.
func NewAssistantMessage(id, body string, image *ImageData) Message {
	return Message{
		ID:        id,
		Body:      body,
		Timestamp: time.Now().UTC(),
		Sender:    SenderAssistant,
		Status:    StatusDelivered,
		Image:     image,
	}
}

// advanceStatus moves the message status forward, ignoring attempts to
// move it backwards. Error is always applied from Sending.
func (m *Message) advanceStatus(to MessageStatus, reason string) {
	if to == StatusError {
		if m.Status == StatusSending {
			m.Status = StatusError
			m.Error = reason
		}
		return
	}
	if m.Status == StatusError {
		return
	}
	if statusRank[to] > statusRank[m.Status] {
		m.Status = to
	}
}
