package model

import (
	"testing"
	"time"
)

func TestAddUserMessageTracksPending(t *testing.T) {
	c := NewConversation("conv-1", "")
	msg := NewUserMessage("msg-1", "hello", nil)
	c.AddUserMessage(msg)

	if !c.IsPending(msg.ID) {
		t.Error("message id should be pending after AddUserMessage")
	}
	if c.MessageCount != 1 || len(c.Messages) != 1 {
		t.Errorf("count = %d, len = %d, want 1, 1", c.MessageCount, len(c.Messages))
	}
	if c.LastMessagePreview != "hello" {
		t.Errorf("preview = %q, want hello", c.LastMessagePreview)
	}
	if c.Messages[0].Status != StatusSending {
		t.Errorf("status = %s, want sending", c.Messages[0].Status)
	}
}

func TestAddResponseSettlesPending(t *testing.T) {
	c := NewConversation("conv-1", "")
	msg := NewUserMessage("msg-1", "hello", nil)
	c.AddUserMessage(msg)

	reply := NewAssistantMessage("srv-1", "hi there", nil)
	c.AddResponse(msg.ID, reply)

	if c.IsPending(msg.ID) {
		t.Error("id should leave the pending set after AddResponse")
	}
	if got := c.Messages[0].Status; got != StatusDelivered {
		t.Errorf("original status = %s, want delivered", got)
	}
	// Response is appended after the original.
	if c.Messages[1].ID != "srv-1" {
		t.Errorf("messages[1].ID = %q, want srv-1", c.Messages[1].ID)
	}
	if c.MessageCount != 2 {
		t.Errorf("count = %d, want 2", c.MessageCount)
	}
}

func TestMarkMessageError(t *testing.T) {
	c := NewConversation("conv-1", "")
	msg := NewUserMessage("msg-1", "hello", nil)
	c.AddUserMessage(msg)

	c.MarkMessageError(msg.ID, "conv_not_found: no such conversation")

	if c.IsPending(msg.ID) {
		t.Error("id should leave the pending set after MarkMessageError")
	}
	got := c.Messages[0]
	if got.Status != StatusError {
		t.Errorf("status = %s, want error", got.Status)
	}
	if got.Error != "conv_not_found: no such conversation" {
		t.Errorf("reason = %q", got.Error)
	}
	// The failed message is still in the conversation.
	if len(c.Messages) != 1 {
		t.Errorf("len = %d, want 1", len(c.Messages))
	}
}

func TestStatusMonotonic(t *testing.T) {
	msg := NewUserMessage("msg-1", "x", nil)
	msg.advanceStatus(StatusDelivered, "")
	if msg.Status != StatusDelivered {
		t.Fatalf("status = %s, want delivered", msg.Status)
	}
	// Backwards moves are ignored.
	msg.advanceStatus(StatusSent, "")
	if msg.Status != StatusDelivered {
		t.Errorf("status moved backwards to %s", msg.Status)
	}
	// Error is only reachable from Sending.
	msg.advanceStatus(StatusError, "late failure")
	if msg.Status != StatusDelivered {
		t.Errorf("delivered message switched to %s", msg.Status)
	}
}

func TestSetMessagesReconcilesPending(t *testing.T) {
	c := NewConversation("conv-1", "")
	keep := NewUserMessage("msg-1", "kept", nil)
	stale := NewUserMessage("msg-2", "stale", nil)
	c.AddUserMessage(keep)
	c.AddUserMessage(stale)

	history := []Message{
		keep,
		NewAssistantMessage("srv-1", "reply", nil),
	}
	c.SetMessages(history)

	if !c.IsPending(keep.ID) {
		t.Error("id still present in history should stay pending")
	}
	if c.IsPending(stale.ID) {
		t.Error("id absent from history should be dropped from pending")
	}
	if c.MessageCount != 2 {
		t.Errorf("count = %d, want 2", c.MessageCount)
	}
	if c.LastMessagePreview != "reply" {
		t.Errorf("preview = %q, want reply", c.LastMessagePreview)
	}
}

func TestNewFromSummary(t *testing.T) {
	ts := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewFromSummary("conv-8f14e45fceea-01", "last words", ts, 42)

	if c.Title != "Chat 8f14e45f" {
		t.Errorf("title = %q", c.Title)
	}
	if c.MessageCount != 42 || c.LastMessagePreview != "last words" {
		t.Errorf("summary fields not carried: %+v", c)
	}
	if !c.LastMessageTime.Equal(ts) {
		t.Errorf("time = %v, want %v", c.LastMessageTime, ts)
	}
	if len(c.Pending) != 0 {
		t.Error("rebuilt conversation should have empty pending set")
	}
}
