package protocol

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestClientRoundTrip(t *testing.T) {
	limit := 50
	title := "Groceries"
	frames := []ClientMessage{
		NewChat("conv-1", "hello", &ImagePayload{Data: "aGk=", Mimetype: "image/png"}),
		NewPing(),
		NewSubscribe([]string{"notifications", "reminders"}),
		NewListConversations(),
		{Type: TypeGetHistory, ID: "m-1", Timestamp: 1717243200000, ConversationID: "conv-1", Limit: &limit},
		{Type: TypeCreateConversation, ID: "m-2", Timestamp: 1717243200000, Title: &title},
		NewDeleteConversation("conv-1"),
	}

	for _, frame := range frames {
		t.Run(frame.Type, func(t *testing.T) {
			data, err := EncodeClient(frame)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			var got ClientMessage
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(frame, got) {
				t.Errorf("round trip mismatch:\n in: %+v\nout: %+v", frame, got)
			}
		})
	}
}

func TestServerRoundTrip(t *testing.T) {
	ts := int64(1717243200000)
	frames := []ServerMessage{
		{Type: TypeResponse, ID: "s-1", Timestamp: ts, ReplyTo: "m-1", ConversationID: "conv-1", Body: "hi"},
		{Type: TypePong, ID: "s-2", Timestamp: ts},
		{Type: TypeNotification, ID: "s-3", Timestamp: ts, Title: "Reminder", Body: "standup", Category: "reminders"},
		{Type: TypeError, ID: "s-4", Timestamp: ts, ReplyTo: "m-1", ConversationID: "conv-1", Code: "conv_not_found", Message: "no such conversation"},
		{Type: TypeTyping, ID: "s-5", Timestamp: ts, ReplyTo: "m-1", ConversationID: "conv-1", IsTyping: true},
		{Type: TypeConversationsList, ID: "s-6", Timestamp: ts, Conversations: []ConversationSummary{
			{ID: "conv-1", LastMessage: "hi", LastMessageTime: ts, MessageCount: 3},
		}},
		{Type: TypeHistory, ID: "s-7", Timestamp: ts, ConversationID: "conv-1", Messages: []HistoryMessage{
			{Role: "user", Content: "hello", Timestamp: &ts},
			{Role: "assistant", Content: "hi"},
		}},
		{Type: TypeConversationCreated, ID: "s-8", Timestamp: ts, ConversationID: "conv-2", Title: "New Chat"},
		{Type: TypeConversationDeleted, ID: "s-9", Timestamp: ts, ConversationID: "conv-2"},
	}

	for _, frame := range frames {
		t.Run(frame.Type, func(t *testing.T) {
			data, err := json.Marshal(frame)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			got, err := DecodeServer(data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if !reflect.DeepEqual(frame, *got) {
				t.Errorf("round trip mismatch:\n in: %+v\nout: %+v", frame, *got)
			}
		})
	}
}

func TestDecodeServerUnknownType(t *testing.T) {
	_, err := DecodeServer([]byte(`{"type":"totally_new","id":"x","timestamp":1}`))
	if err == nil {
		t.Fatal("unknown discriminant should be an error")
	}
	if !strings.Contains(err.Error(), "totally_new") {
		t.Errorf("error should name the unknown type: %v", err)
	}
}

func TestDecodeServerMalformed(t *testing.T) {
	if _, err := DecodeServer([]byte(`{"type":`)); err == nil {
		t.Error("malformed JSON should be an error")
	}
}

func TestWireFieldNames(t *testing.T) {
	data, err := EncodeClient(NewChat("conv-1", "hello", nil))
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{`"type":"chat"`, `"conversationId":"conv-1"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("encoded frame missing %s: %s", want, data)
		}
	}
	// Unused optional fields stay off the wire.
	for _, banned := range []string{"image", "replyTo", "limit", "title", "events"} {
		if strings.Contains(string(data), banned) {
			t.Errorf("chat frame should not carry %q: %s", banned, data)
		}
	}
}

func TestTimestampConversion(t *testing.T) {
	ms := int64(1717243200000)
	inst := TimeFromMillis(ms)
	if inst.UnixMilli() != ms {
		t.Errorf("round trip = %d, want %d", inst.UnixMilli(), ms)
	}
	if inst.Location() != nil && inst.Location().String() != "UTC" {
		t.Errorf("instant not UTC: %v", inst.Location())
	}
}
