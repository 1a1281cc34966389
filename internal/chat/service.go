// Package chat keeps the client-side conversation state in sync with
// events on the bus. It is the reconciliation point for optimistic
// sends: a user message enters the pending set immediately and leaves
// it when the server answers with a response or an error.
package chat

import (
	"context"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/prsnl/prsnl/internal/bus"
	"github.com/prsnl/prsnl/internal/model"
	"github.com/prsnl/prsnl/internal/transport"
)

// MessageSent is the payload for msg.sent events.
type MessageSent struct {
	ConvID  string
	Message model.Message
}

// Service owns the in-memory conversation map and applies domain
// mutators in reaction to bus events. UI features read snapshots; they
// never mutate conversations directly.
type Service struct {
	transport transport.Transport
	bus       *bus.Bus
	logger    *zap.Logger
	cancel    context.CancelFunc

	mu     sync.Mutex
	convs  map[string]*model.Conversation
	typing map[string]bool
}

// NewService creates a chat service.
func NewService(tr transport.Transport, b *bus.Bus, logger *zap.Logger) *Service {
	return &Service{
		transport: tr,
		bus:       b,
		logger:    logger,
		convs:     make(map[string]*model.Conversation),
		typing:    make(map[string]bool),
	}
}

// Start subscribes to bus events and processes them until Stop.
func (s *Service) Start(ctx context.Context) {
	ctx, s.cancel = context.WithCancel(ctx)
	ch, unsub := s.bus.Subscribe("", 256)

	go func() {
		defer unsub()
		for {
			select {
			case evt := <-ch:
				s.handleEvent(evt)
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops event processing.
func (s *Service) Stop() {
	if s.cancel != nil {
		s.cancel()
	}
}

// Send sends a chat message on the transport and records it
// optimistically. While disconnected it fails locally: no frame goes
// out and no conversation is touched.
func (s *Service) Send(convID, text string, image *model.ImageData) (string, error) {
	if !s.transport.IsConnected() {
		return "", transport.ErrNotConnected
	}
	// A correlated reply can be on the bus before SendChat returns
	// (the server may answer immediately). Holding the lock across the
	// send keeps the optimistic insert ahead of any reply handling.
	s.mu.Lock()
	id, err := s.transport.SendChat(convID, text, image)
	if err != nil {
		s.mu.Unlock()
		return "", err
	}

	msg := model.NewUserMessage(id, text, image)
	conv := s.ensure(convID)
	conv.AddUserMessage(msg)
	s.mu.Unlock()

	s.bus.Publish(bus.Event{
		Kind:    bus.KindMessageSent,
		Payload: MessageSent{ConvID: convID, Message: msg},
	})
	return id, nil
}

// CreateConversation requests a new conversation; the local entry is
// created when the server echoes conversation_created.
func (s *Service) CreateConversation(title string) error {
	return s.transport.SendCreateConversation(title)
}

// DeleteConversation requests deletion; local state goes when the
// server confirms.
func (s *Service) DeleteConversation(convID string) error {
	return s.transport.SendDeleteConversation(convID)
}

// LoadHistory requests message history for a conversation.
func (s *Service) LoadHistory(convID string, limit int) error {
	return s.transport.SendGetHistory(convID, limit)
}

// Refresh requests the conversation list.
func (s *Service) Refresh() error {
	return s.transport.SendListConversations()
}

// Snapshot returns a copy of one conversation's state.
func (s *Service) Snapshot(convID string) (model.Conversation, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	conv, ok := s.convs[convID]
	if !ok {
		return model.Conversation{}, false
	}
	return copyConversation(conv), true
}

// List returns conversation snapshots, most recently active first.
func (s *Service) List() []model.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Conversation, 0, len(s.convs))
	for _, conv := range s.convs {
		out = append(out, copyConversation(conv))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].LastMessageTime.After(out[j].LastMessageTime)
	})
	return out
}

// IsTyping reports the assistant's typing indicator for a conversation.
func (s *Service) IsTyping(convID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.typing[convID]
}

func (s *Service) handleEvent(evt bus.Event) {
	switch evt.Kind {
	case bus.KindMessageRecv:
		p, ok := evt.Payload.(transport.MessageReceived)
		if !ok {
			return
		}
		s.mu.Lock()
		conv := s.ensure(p.ConvID)
		conv.AddResponse(p.ReplyTo, p.Message)
		s.typing[p.ConvID] = false
		s.mu.Unlock()

	case bus.KindMessageError:
		p, ok := evt.Payload.(transport.MessageError)
		if !ok {
			return
		}
		s.mu.Lock()
		conv, ok := s.convs[p.ConvID]
		if ok {
			conv.MarkMessageError(p.MsgID, p.Reason)
		}
		s.mu.Unlock()
		if !ok {
			s.logger.Debug("error frame for unknown conversation",
				zap.String("conv_id", p.ConvID),
				zap.String("msg_id", p.MsgID))
		}

	case bus.KindHistoryLoaded:
		p, ok := evt.Payload.(transport.HistoryLoaded)
		if !ok {
			return
		}
		s.mu.Lock()
		conv := s.ensure(p.ConvID)
		stale := stalePending(conv, p.Messages)
		conv.SetMessages(p.Messages)
		s.mu.Unlock()
		// History replacement drops unresolved pending ids: the
		// messages they tracked no longer exist in state.
		for _, id := range stale {
			s.logger.Debug("dropping stale pending id after history load",
				zap.String("conv_id", p.ConvID),
				zap.String("msg_id", id))
		}

	case bus.KindTyping:
		p, ok := evt.Payload.(transport.TypingChanged)
		if !ok {
			return
		}
		s.mu.Lock()
		s.typing[p.ConvID] = p.IsTyping
		s.mu.Unlock()

	case bus.KindConversationsLoaded:
		p, ok := evt.Payload.(transport.ConversationsLoaded)
		if !ok {
			return
		}
		s.mu.Lock()
		for _, incoming := range p.Conversations {
			existing, ok := s.convs[incoming.ID]
			if !ok {
				s.convs[incoming.ID] = incoming
				continue
			}
			// Keep loaded messages and pending state; refresh summary.
			existing.Title = incoming.Title
			if len(existing.Messages) == 0 {
				existing.LastMessageTime = incoming.LastMessageTime
				existing.LastMessagePreview = incoming.LastMessagePreview
				existing.MessageCount = incoming.MessageCount
			}
		}
		s.mu.Unlock()

	case bus.KindConversationCreated:
		p, ok := evt.Payload.(transport.ConversationCreated)
		if !ok {
			return
		}
		s.mu.Lock()
		if _, exists := s.convs[p.ID]; !exists {
			s.convs[p.ID] = model.NewConversation(p.ID, p.Title)
		}
		s.mu.Unlock()

	case bus.KindConversationDeleted:
		p, ok := evt.Payload.(transport.ConversationDeleted)
		if !ok {
			return
		}
		s.mu.Lock()
		delete(s.convs, p.ID)
		delete(s.typing, p.ID)
		s.mu.Unlock()
	}
}

// ensure returns the conversation, creating a placeholder if the server
// pushed a message for one we have not listed yet. Caller holds s.mu.
func (s *Service) ensure(convID string) *model.Conversation {
	conv, ok := s.convs[convID]
	if !ok {
		conv = model.NewConversation(convID, "")
		s.convs[convID] = conv
	}
	return conv
}

func stalePending(conv *model.Conversation, incoming []model.Message) []string {
	present := make(map[string]struct{}, len(incoming))
	for _, m := range incoming {
		present[m.ID] = struct{}{}
	}
	var stale []string
	for id := range conv.Pending {
		if _, ok := present[id]; !ok {
			stale = append(stale, id)
		}
	}
	return stale
}

func copyConversation(conv *model.Conversation) model.Conversation {
	out := *conv
	out.Messages = append([]model.Message(nil), conv.Messages...)
	out.Pending = make(map[string]struct{}, len(conv.Pending))
	for id := range conv.Pending {
		out.Pending[id] = struct{}{}
	}
	return out
}
