package transport

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/prsnl/prsnl/internal/bus"
	"github.com/prsnl/prsnl/internal/model"
	"github.com/prsnl/prsnl/internal/protocol"
	"github.com/prsnl/prsnl/internal/status"
)

// Websocket is the native transport. It owns one physical connection,
// runs a read loop and a keepalive loop on worker goroutines, and
// reconnects with bounded exponential backoff after an unexpected link
// drop. An explicit Disconnect cancels everything.
type Websocket struct {
	machine *status.Machine
	handler *Handler
	logger  *zap.Logger
	opts    Options

	// gorilla permits one concurrent writer per connection.
	writeMu sync.Mutex

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc

	connected atomic.Bool
}

// NewWebsocket creates a websocket transport publishing to the given bus.
func NewWebsocket(b *bus.Bus, machine *status.Machine, logger *zap.Logger, opts Options) *Websocket {
	return &Websocket{
		machine: machine,
		handler: NewHandler(b, logger),
		logger:  logger,
		opts:    opts,
	}
}

// Connect dials the server. The first attempt is synchronous and not
// retried on failure. While connected (or while a reconnect session is
// live) further calls are no-ops.
func (t *Websocket) Connect(ctx context.Context, url string) error {
	if t.connected.Load() {
		return nil
	}
	ctx, cancel := context.WithCancel(ctx)
	t.mu.Lock()
	if t.cancel != nil {
		t.mu.Unlock()
		cancel()
		return nil
	}
	t.cancel = cancel
	t.mu.Unlock()

	t.logger.Info("connecting", zap.String("url", url))
	_ = t.machine.Transition(status.Connecting)

	conn, err := t.dial(ctx, url)
	if err != nil {
		t.teardown()
		_ = t.machine.Transition(status.Disconnected)
		return err
	}

	t.install(conn)
	go t.readLoop(ctx, url, conn)
	go t.pingLoop(ctx)
	return nil
}

// Disconnect tears the connection down and suppresses reconnection.
// Safe to call in any state.
func (t *Websocket) Disconnect() {
	t.logger.Info("disconnecting")
	conn := t.teardown()
	if conn != nil {
		t.writeMu.Lock()
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		t.writeMu.Unlock()
		_ = conn.Close()
	}
	_ = t.machine.Transition(status.Disconnected)
}

// SendChat sends a chat frame and returns its client-assigned id.
func (t *Websocket) SendChat(conversationID, text string, image *model.ImageData) (string, error) {
	frame := protocol.NewChat(conversationID, text, imagePayload(image))
	if err := t.send(frame); err != nil {
		return "", err
	}
	return frame.ID, nil
}

// SendListConversations requests the conversation list.
func (t *Websocket) SendListConversations() error {
	return t.send(protocol.NewListConversations())
}

// SendGetHistory requests message history. limit <= 0 means no limit.
func (t *Websocket) SendGetHistory(conversationID string, limit int) error {
	return t.send(protocol.NewGetHistory(conversationID, limit))
}

// SendCreateConversation requests a new conversation.
func (t *Websocket) SendCreateConversation(title string) error {
	return t.send(protocol.NewCreateConversation(title))
}

// SendDeleteConversation requests deletion of a conversation.
func (t *Websocket) SendDeleteConversation(conversationID string) error {
	return t.send(protocol.NewDeleteConversation(conversationID))
}

// IsConnected reports the last known link state.
func (t *Websocket) IsConnected() bool {
	return t.connected.Load()
}

func (t *Websocket) dial(ctx context.Context, url string) (*websocket.Conn, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", url, err)
	}
	return conn, nil
}

// install publishes the new connection and performs the post-connect
// handshake: subscribe to server pushes and refresh the conversation
// list.
func (t *Websocket) install(conn *websocket.Conn) {
	t.mu.Lock()
	t.conn = conn
	t.mu.Unlock()
	t.connected.Store(true)
	_ = t.machine.Transition(status.Connected)

	if err := t.send(protocol.NewSubscribe([]string{"notifications", "reminders"})); err != nil {
		t.logger.Warn("subscribe failed", zap.Error(err))
	}
	if err := t.send(protocol.NewListConversations()); err != nil {
		t.logger.Warn("initial list_conversations failed", zap.Error(err))
	}
}

// teardown clears the live connection state and cancels the session
// context. Returns the connection that was live, if any.
func (t *Websocket) teardown() *websocket.Conn {
	t.mu.Lock()
	cancel := t.cancel
	conn := t.conn
	t.cancel = nil
	t.conn = nil
	t.mu.Unlock()
	t.connected.Store(false)
	if cancel != nil {
		cancel()
	}
	return conn
}

// readLoop delivers inbound frames until the session context is
// canceled or the reconnect budget runs out. A malformed frame is
// logged and dropped without touching connection state.
func (t *Websocket) readLoop(ctx context.Context, url string, conn *websocket.Conn) {
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			t.logger.Warn("connection lost", zap.Error(err))
			t.connected.Store(false)
			t.mu.Lock()
			t.conn = nil
			t.mu.Unlock()
			_ = t.machine.Transition(status.Reconnecting)

			next, ok := t.reconnect(ctx, url)
			if !ok {
				return
			}
			conn = next
			continue
		}
		if ctx.Err() != nil {
			return
		}

		msg, derr := protocol.DecodeServer(data)
		if derr != nil {
			t.logger.Warn("dropping bad frame", zap.Error(derr))
			continue
		}
		t.handler.Handle(msg)
	}
}

// reconnect retries the dial with exponential backoff. Retry failures
// keep the machine in Reconnecting without re-publishing; exhaustion
// ends in Disconnected.
func (t *Websocket) reconnect(ctx context.Context, url string) (*websocket.Conn, bool) {
	delay := t.opts.ReconnectInitialDelay
	for attempt := 1; attempt <= t.opts.MaxReconnectAttempts; attempt++ {
		select {
		case <-ctx.Done():
			return nil, false
		case <-time.After(delay):
		}

		conn, err := t.dial(ctx, url)
		if err == nil {
			t.logger.Info("reconnected", zap.Int("attempt", attempt))
			t.install(conn)
			return conn, true
		}
		t.logger.Warn("reconnect failed",
			zap.Int("attempt", attempt),
			zap.Int("max", t.opts.MaxReconnectAttempts),
			zap.Error(err))
		delay = min(delay*2, t.opts.ReconnectMaxDelay)
	}

	t.logger.Warn("reconnect budget exhausted")
	t.teardown()
	_ = t.machine.Transition(status.Disconnected)
	return nil, false
}

// pingLoop sends protocol-level keepalive frames for the session's
// lifetime.
func (t *Websocket) pingLoop(ctx context.Context) {
	if t.opts.PingInterval <= 0 {
		return
	}
	ticker := time.NewTicker(t.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.send(protocol.NewPing()); err != nil {
				t.logger.Debug("ping skipped", zap.Error(err))
			}
		}
	}
}

func (t *Websocket) send(frame protocol.ClientMessage) error {
	data, err := protocol.EncodeClient(frame)
	if err != nil {
		return err
	}
	t.mu.Lock()
	conn := t.conn
	t.mu.Unlock()
	if conn == nil || !t.connected.Load() {
		return ErrNotConnected
	}

	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return fmt.Errorf("send %s frame: %w", frame.Type, err)
	}
	return nil
}

func imagePayload(img *model.ImageData) *protocol.ImagePayload {
	if img == nil {
		return nil
	}
	return &protocol.ImagePayload{Data: img.Data, Mimetype: img.Mimetype}
}
