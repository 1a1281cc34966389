package transport

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/prsnl/prsnl/internal/bus"
	"github.com/prsnl/prsnl/internal/model"
	"github.com/prsnl/prsnl/internal/protocol"
)

// Event payloads published by the transport. Consumers type-assert on
// these after filtering by kind.

// MessageReceived is the payload for msg.received events.
type MessageReceived struct {
	ConvID  string
	ReplyTo string
	Message model.Message
}

// MessageError is the payload for msg.error events. Reason is the
// "code: message" form shown to the user.
type MessageError struct {
	ConvID string
	MsgID  string
	Reason string
}

// TypingChanged is the payload for msg.typing events.
type TypingChanged struct {
	ConvID   string
	IsTyping bool
}

// HistoryLoaded is the payload for msg.history_loaded events.
type HistoryLoaded struct {
	ConvID   string
	Messages []model.Message
}

// ConversationsLoaded is the payload for conv.list_loaded events.
type ConversationsLoaded struct {
	Conversations []*model.Conversation
}

// ConversationCreated is the payload for conv.created events.
type ConversationCreated struct {
	ID    string
	Title string
}

// ConversationDeleted is the payload for conv.deleted events.
type ConversationDeleted struct {
	ID string
}

// Notification is the payload for notification.received events.
type Notification struct {
	Title    string
	Body     string
	Category string
}

// Handler maps inbound server frames 1:1 onto bus events. It does not
// touch connection state: a frame that cannot be mapped is logged and
// dropped.
type Handler struct {
	bus    *bus.Bus
	logger *zap.Logger
}

// NewHandler creates an inbound frame handler.
func NewHandler(b *bus.Bus, logger *zap.Logger) *Handler {
	return &Handler{bus: b, logger: logger}
}

// Handle dispatches one decoded server frame.
func (h *Handler) Handle(msg *protocol.ServerMessage) {
	switch msg.Type {
	case protocol.TypeResponse:
		if msg.ConversationID == "" {
			h.logger.Warn("response frame without conversation id", zap.String("reply_to", msg.ReplyTo))
			return
		}
		m := model.NewAssistantMessage(msg.ID, msg.Body, imageData(msg.Image))
		if msg.Timestamp > 0 {
			m.Timestamp = protocol.TimeFromMillis(msg.Timestamp)
		}
		h.publish(bus.KindMessageRecv, MessageReceived{
			ConvID:  msg.ConversationID,
			ReplyTo: msg.ReplyTo,
			Message: m,
		})

	case protocol.TypeError:
		reason := msg.Message
		if msg.Code != "" {
			reason = fmt.Sprintf("%s: %s", msg.Code, msg.Message)
		}
		h.logger.Warn("server error frame",
			zap.String("code", msg.Code),
			zap.String("reply_to", msg.ReplyTo))
		if msg.ReplyTo == "" || msg.ConversationID == "" {
			return
		}
		h.publish(bus.KindMessageError, MessageError{
			ConvID: msg.ConversationID,
			MsgID:  msg.ReplyTo,
			Reason: reason,
		})

	case protocol.TypeTyping:
		if msg.ConversationID == "" {
			return
		}
		h.publish(bus.KindTyping, TypingChanged{
			ConvID:   msg.ConversationID,
			IsTyping: msg.IsTyping,
		})

	case protocol.TypeNotification:
		h.publish(bus.KindNotification, Notification{
			Title:    msg.Title,
			Body:     msg.Body,
			Category: msg.Category,
		})

	case protocol.TypeConversationsList:
		convs := make([]*model.Conversation, 0, len(msg.Conversations))
		for _, c := range msg.Conversations {
			var last time.Time
			if c.LastMessageTime > 0 {
				last = protocol.TimeFromMillis(c.LastMessageTime)
			}
			convs = append(convs, model.NewFromSummary(c.ID, c.LastMessage, last, c.MessageCount))
		}
		h.publish(bus.KindConversationsLoaded, ConversationsLoaded{Conversations: convs})

	case protocol.TypeHistory:
		msgs := make([]model.Message, 0, len(msg.Messages))
		for _, hm := range msg.Messages {
			if m, ok := parseHistoryMessage(hm); ok {
				msgs = append(msgs, m)
			}
		}
		h.publish(bus.KindHistoryLoaded, HistoryLoaded{
			ConvID:   msg.ConversationID,
			Messages: msgs,
		})

	case protocol.TypeConversationCreated:
		h.publish(bus.KindConversationCreated, ConversationCreated{
			ID:    msg.ConversationID,
			Title: msg.Title,
		})

	case protocol.TypeConversationDeleted:
		h.publish(bus.KindConversationDeleted, ConversationDeleted{ID: msg.ConversationID})

	case protocol.TypePong:
		// Keepalive reply, nothing to do.

	default:
		h.logger.Warn("unhandled server frame", zap.String("type", msg.Type))
	}
}

func (h *Handler) publish(kind string, payload any) {
	h.bus.Publish(bus.Event{Kind: kind, Timestamp: time.Now(), Payload: payload})
}

func imageData(p *protocol.ImagePayload) *model.ImageData {
	if p == nil {
		return nil
	}
	return &model.ImageData{Data: p.Data, Mimetype: p.Mimetype}
}

// parseHistoryMessage converts one history entry to a domain message.
// Entries with an unknown role are skipped. The backend prefixes user
// entries with request metadata ("Current Date: ...\n...\nBody: ...");
// only the Body line is kept.
func parseHistoryMessage(hm protocol.HistoryMessage) (model.Message, bool) {
	var sender model.Sender
	switch hm.Role {
	case "user":
		sender = model.SenderUser
	case "assistant":
		sender = model.SenderAssistant
	case "system":
		sender = model.SenderSystem
	default:
		return model.Message{}, false
	}

	body := hm.Content
	if sender == model.SenderUser && strings.HasPrefix(body, "Current Date:") {
		for _, line := range strings.Split(body, "\n") {
			if after, ok := strings.CutPrefix(line, "Body: "); ok {
				body = after
				break
			}
		}
	}

	ts := time.Now().UTC()
	if hm.Timestamp != nil {
		ts = protocol.TimeFromMillis(*hm.Timestamp)
	}

	return model.Message{
		ID:        uuid.NewString(),
		Body:      body,
		Timestamp: ts,
		Sender:    sender,
		Status:    model.StatusDelivered,
	}, true
}
