// Package transport owns the connection to the assistant backend. A
// transport translates wire frames into bus events on the way in and
// exposes an imperative send API on the way out. Exactly one transport
// instance owns the physical connection, and only it drives the
// connection state machine.
package transport

import (
	"context"
	"errors"
	"time"

	"github.com/prsnl/prsnl/internal/model"
)

// ErrNotConnected is returned by send operations when no connection is
// up. Send failures are local: no frame goes out and no event is
// published.
var ErrNotConnected = errors.New("transport: not connected")

// Transport is the platform-agnostic connection contract. Websocket
// implements it with a real socket and worker goroutines; Loopback
// implements it in-process on the caller's goroutine. Which one a host
// uses is a composition-time choice.
//
// All Send methods are fire-and-forget: completion is signaled later
// via bus events, the error return covers only the local send.
type Transport interface {
	// Connect establishes the connection. Calling it while connected is
	// a no-op. A failed first attempt is not retried; the caller decides
	// whether to call Connect again.
	Connect(ctx context.Context, url string) error

	// Disconnect tears the connection down deliberately, aborting any
	// in-flight connect and suppressing automatic reconnection. No
	// events from the torn-down connection are delivered afterwards.
	Disconnect()

	// SendChat sends a chat frame and returns the client-assigned
	// message id immediately, before any server acknowledgment.
	SendChat(conversationID, text string, image *model.ImageData) (string, error)

	SendListConversations() error
	SendGetHistory(conversationID string, limit int) error
	SendCreateConversation(title string) error
	SendDeleteConversation(conversationID string) error

	// IsConnected is a snapshot and may lag the physical link.
	IsConnected() bool
}

// Options tunes the websocket transport's keepalive and reconnection
// behavior.
type Options struct {
	PingInterval          time.Duration
	MaxReconnectAttempts  int
	ReconnectInitialDelay time.Duration
	ReconnectMaxDelay     time.Duration
}

// DefaultOptions returns the production defaults.
func DefaultOptions() Options {
	return Options{
		PingInterval:          30 * time.Second,
		MaxReconnectAttempts:  5,
		ReconnectInitialDelay: time.Second,
		ReconnectMaxDelay:     30 * time.Second,
	}
}
