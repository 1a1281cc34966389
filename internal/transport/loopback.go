package transport

import (
	"context"

	"go.uber.org/zap"

	"github.com/prsnl/prsnl/internal/bus"
	"github.com/prsnl/prsnl/internal/model"
	"github.com/prsnl/prsnl/internal/protocol"
	"github.com/prsnl/prsnl/internal/status"
)

// ServeFunc answers one client frame with zero or more server frames.
type ServeFunc func(protocol.ClientMessage) []protocol.ServerMessage

// Loopback is an in-process transport: frames go to a ServeFunc instead
// of a socket, and replies are dispatched on the caller's goroutine. It
// serves hosts that embed the backend in-process (cooperative
// single-threaded environments) and tests; it satisfies the same
// Transport contract as Websocket.
type Loopback struct {
	machine   *status.Machine
	handler   *Handler
	serve     ServeFunc
	connected bool
}

// NewLoopback creates a loopback transport backed by serve.
func NewLoopback(b *bus.Bus, machine *status.Machine, logger *zap.Logger, serve ServeFunc) *Loopback {
	return &Loopback{
		machine: machine,
		handler: NewHandler(b, logger),
		serve:   serve,
	}
}

// Connect marks the transport connected. The url is ignored; the peer
// is in-process.
func (t *Loopback) Connect(_ context.Context, _ string) error {
	if t.connected {
		return nil
	}
	_ = t.machine.Transition(status.Connecting)
	t.connected = true
	_ = t.machine.Transition(status.Connected)
	return nil
}

// Disconnect marks the transport disconnected.
func (t *Loopback) Disconnect() {
	t.connected = false
	_ = t.machine.Transition(status.Disconnected)
}

// SendChat passes a chat frame to the ServeFunc and returns its id.
func (t *Loopback) SendChat(conversationID, text string, image *model.ImageData) (string, error) {
	frame := protocol.NewChat(conversationID, text, imagePayload(image))
	if err := t.send(frame); err != nil {
		return "", err
	}
	return frame.ID, nil
}

// SendListConversations requests the conversation list.
func (t *Loopback) SendListConversations() error {
	return t.send(protocol.NewListConversations())
}

// SendGetHistory requests message history.
func (t *Loopback) SendGetHistory(conversationID string, limit int) error {
	return t.send(protocol.NewGetHistory(conversationID, limit))
}

// SendCreateConversation requests a new conversation.
func (t *Loopback) SendCreateConversation(title string) error {
	return t.send(protocol.NewCreateConversation(title))
}

// SendDeleteConversation requests deletion of a conversation.
func (t *Loopback) SendDeleteConversation(conversationID string) error {
	return t.send(protocol.NewDeleteConversation(conversationID))
}

// IsConnected reports the connection state.
func (t *Loopback) IsConnected() bool {
	return t.connected
}

func (t *Loopback) send(frame protocol.ClientMessage) error {
	if !t.connected {
		return ErrNotConnected
	}
	for _, reply := range t.serve(frame) {
		t.handler.Handle(&reply)
	}
	return nil
}
