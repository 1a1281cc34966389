// Package protocol defines the JSON frames exchanged with the assistant
// backend. Every frame is one JSON object with a `type` discriminant, a
// client- or server-generated `id`, and a `timestamp` in milliseconds
// since the UNIX epoch. Payload field names are camelCase, matching the
// backend.
package protocol

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Client frame types.
const (
	TypeChat               = "chat"
	TypePing               = "ping"
	TypeSubscribe          = "subscribe"
	TypeListConversations  = "list_conversations"
	TypeGetHistory         = "get_history"
	TypeCreateConversation = "create_conversation"
	TypeDeleteConversation = "delete_conversation"
)

// Server frame types.
const (
	TypeResponse            = "response"
	TypePong                = "pong"
	TypeNotification        = "notification"
	TypeError               = "error"
	TypeTyping              = "typing"
	TypeConversationsList   = "conversations_list"
	TypeHistory             = "history"
	TypeConversationCreated = "conversation_created"
	TypeConversationDeleted = "conversation_deleted"
)

// ImagePayload is an image attachment on the wire: base64 data plus
// MIME type.
type ImagePayload struct {
	Data     string `json:"data"`
	Mimetype string `json:"mimetype"`
}

// ClientMessage is a client-to-server frame. Exactly the fields for the
// frame's Type are populated; the rest stay zero and are omitted from
// the encoding.
type ClientMessage struct {
	Type           string        `json:"type"`
	ID             string        `json:"id"`
	Timestamp      int64         `json:"timestamp"`
	ConversationID string        `json:"conversationId,omitempty"`
	Body           string        `json:"body,omitempty"`
	Image          *ImagePayload `json:"image,omitempty"`
	ReplyTo        string        `json:"replyTo,omitempty"`
	Events         []string      `json:"events,omitempty"`
	Limit          *int          `json:"limit,omitempty"`
	Title          *string       `json:"title,omitempty"`
}

// ServerMessage is a server-to-client frame.
type ServerMessage struct {
	Type           string                `json:"type"`
	ID             string                `json:"id"`
	Timestamp      int64                 `json:"timestamp"`
	ReplyTo        string                `json:"replyTo,omitempty"`
	ConversationID string                `json:"conversationId,omitempty"`
	Body           string                `json:"body,omitempty"`
	Image          *ImagePayload         `json:"image,omitempty"`
	Title          string                `json:"title,omitempty"`
	Category       string                `json:"category,omitempty"`
	Code           string                `json:"code,omitempty"`
	Message        string                `json:"message,omitempty"`
	IsTyping       bool                  `json:"isTyping,omitempty"`
	Conversations  []ConversationSummary `json:"conversations,omitempty"`
	Messages       []HistoryMessage      `json:"messages,omitempty"`
}

// ConversationSummary is one entry in a conversations_list frame.
type ConversationSummary struct {
	ID              string `json:"id"`
	LastMessage     string `json:"lastMessage,omitempty"`
	LastMessageTime int64  `json:"lastMessageTime,omitempty"`
	MessageCount    int    `json:"messageCount"`
}

// HistoryMessage is one entry in a history frame. Timestamp may be
// absent for old entries.
type HistoryMessage struct {
	Role      string `json:"role"`
	Content   string `json:"content"`
	Timestamp *int64 `json:"timestamp,omitempty"`
}

// NewChat builds a chat frame. The frame id doubles as the client
// message id the server echoes in replyTo for correlation.
func NewChat(conversationID, body string, image *ImagePayload) ClientMessage {
	return ClientMessage{
		Type:           TypeChat,
		ID:             uuid.NewString(),
		Timestamp:      NowMillis(),
		ConversationID: conversationID,
		Body:           body,
		Image:          image,
	}
}

// NewPing builds a keepalive frame.
func NewPing() ClientMessage {
	return ClientMessage{Type: TypePing, ID: uuid.NewString(), Timestamp: NowMillis()}
}

// NewSubscribe builds an event subscription frame.
func NewSubscribe(events []string) ClientMessage {
	return ClientMessage{Type: TypeSubscribe, ID: uuid.NewString(), Timestamp: NowMillis(), Events: events}
}

// NewListConversations builds a conversation list request.
func NewListConversations() ClientMessage {
	return ClientMessage{Type: TypeListConversations, ID: uuid.NewString(), Timestamp: NowMillis()}
}

// NewGetHistory builds a history request. limit <= 0 means no limit.
func NewGetHistory(conversationID string, limit int) ClientMessage {
	msg := ClientMessage{
		Type:           TypeGetHistory,
		ID:             uuid.NewString(),
		Timestamp:      NowMillis(),
		ConversationID: conversationID,
	}
	if limit > 0 {
		msg.Limit = &limit
	}
	return msg
}

// NewCreateConversation builds a create request. Empty title means the
// server picks one.
func NewCreateConversation(title string) ClientMessage {
	msg := ClientMessage{Type: TypeCreateConversation, ID: uuid.NewString(), Timestamp: NowMillis()}
	if title != "" {
		msg.Title = &title
	}
	return msg
}

// NewDeleteConversation builds a delete request.
func NewDeleteConversation(conversationID string) ClientMessage {
	return ClientMessage{
		Type:           TypeDeleteConversation,
		ID:             uuid.NewString(),
		Timestamp:      NowMillis(),
		ConversationID: conversationID,
	}
}

var serverTypes = map[string]bool{
	TypeResponse:            true,
	TypePong:                true,
	TypeNotification:        true,
	TypeError:               true,
	TypeTyping:              true,
	TypeConversationsList:   true,
	TypeHistory:             true,
	TypeConversationCreated: true,
	TypeConversationDeleted: true,
}

// EncodeClient serializes a client frame.
func EncodeClient(msg ClientMessage) ([]byte, error) {
	data, err := json.Marshal(msg)
	if err != nil {
		return nil, fmt.Errorf("encode %s frame: %w", msg.Type, err)
	}
	return data, nil
}

// DecodeServer parses a server frame. Malformed JSON and unknown
// discriminants are errors; callers log and drop the frame without
// touching connection state.
func DecodeServer(data []byte) (*ServerMessage, error) {
	var msg ServerMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, fmt.Errorf("decode server frame: %w", err)
	}
	if !serverTypes[msg.Type] {
		return nil, fmt.Errorf("unknown server frame type %q", msg.Type)
	}
	return &msg, nil
}

// NowMillis returns the current wire timestamp.
func NowMillis() int64 {
	return time.Now().UnixMilli()
}

// TimeFromMillis converts a wire timestamp to a UTC instant.
func TimeFromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
