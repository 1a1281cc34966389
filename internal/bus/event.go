package bus

import "time"

// Event is a notification published on the bus. Payload types are
// defined by the publishing package; Kind is always one of the
// constants below.
type Event struct {
	Kind      string
	Timestamp time.Time
	Payload   any
}

// Event kinds form a closed set. Kinds are namespaced so subscribers
// can filter by prefix ("msg." receives every message event).
const (
	// Connection events (payload status.StatusChange).
	KindStatusChanged = "conn.status_changed"

	// Conversation events (payloads in internal/transport).
	KindConversationCreated = "conv.created"
	KindConversationDeleted = "conv.deleted"
	KindConversationsLoaded = "conv.list_loaded"
	KindConversationSelect  = "conv.selected"

	// Message events (payloads in internal/transport and internal/chat).
	KindMessageSent   = "msg.sent"
	KindMessageRecv   = "msg.received"
	KindMessageError  = "msg.error"
	KindTyping        = "msg.typing"
	KindHistoryLoaded = "msg.history_loaded"

	// Server push notifications (payload transport.Notification).
	KindNotification = "notification.received"

	// Settings and navigation (string payloads).
	KindServerURLChanged = "settings.server_url_changed"
	KindNavigateChat     = "nav.chat"
	KindNavigateList     = "nav.list"
)
