package event

import (
	"encoding/json"
	"strconv"
	"testing"
	"time"
)

func sampleMessage() Message {
	return Message{
		SenderID:         "u-sender",
		ReceiverUsername: "bob",
		MessageID:        "om_1",
		ChatID:           "oc_1",
		ChatType:         "p2p",
		MessageType:      "text",
		Content:          `{"text":"hi"}`,
		RootID:           "om_root",
		ParentID:         "om_parent",
	}
}

func decodeEnvelope(t *testing.T, e *Envelope) map[string]any {
	t.Helper()
	data, err := e.Marshal()
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	return doc
}

func TestBuildMessageEvent(t *testing.T) {
	e := BuildMessageEvent(sampleMessage())
	doc := decodeEnvelope(t, e)

	if doc["schema"] != "2.0" {
		t.Errorf("schema = %v, want 2.0", doc["schema"])
	}

	header := doc["header"].(map[string]any)
	if header["event_type"] != TypeMessageReceive {
		t.Errorf("event_type = %v, want %v", header["event_type"], TypeMessageReceive)
	}
	if header["app_id"] != "bob" {
		t.Errorf("app_id = %v, want recipient username", header["app_id"])
	}
	if header["tenant_key"] != TenantKey {
		t.Errorf("tenant_key = %v, want %v", header["tenant_key"], TenantKey)
	}
	if header["token"] != "" {
		t.Errorf("token = %v, want empty string", header["token"])
	}
	if header["event_id"] == "" {
		t.Error("event_id is empty")
	}

	// create_time is decimal milliseconds near now.
	ms, err := strconv.ParseInt(header["create_time"].(string), 10, 64)
	if err != nil {
		t.Fatalf("create_time %q is not decimal: %v", header["create_time"], err)
	}
	if d := time.Now().UnixMilli() - ms; d < 0 || d > 5000 {
		t.Errorf("create_time is %dms away from now", d)
	}

	ev := doc["event"].(map[string]any)
	sender := ev["sender"].(map[string]any)
	ids := sender["sender_id"].(map[string]any)
	if ids["open_id"] != "u-sender" || ids["user_id"] != "u-sender" || ids["union_id"] != "u-sender" {
		t.Errorf("sender_id aliases = %v, want all u-sender", ids)
	}
	if sender["sender_type"] != "user" {
		t.Errorf("sender_type = %v, want user", sender["sender_type"])
	}

	msg := ev["message"].(map[string]any)
	if msg["message_id"] != "om_1" || msg["root_id"] != "om_root" || msg["parent_id"] != "om_parent" {
		t.Errorf("message ids = %v", msg)
	}
	if _, ok := msg["mentions"].([]any); !ok {
		t.Errorf("mentions = %v, want empty array", msg["mentions"])
	}

	if e.MessageID() != "om_1" {
		t.Errorf("MessageID() = %q, want om_1", e.MessageID())
	}
}

func TestBuildMessageSyncEvent(t *testing.T) {
	e := BuildMessageSyncEvent(sampleMessage())
	if e.Type() != TypeMessageSync {
		t.Errorf("Type() = %q, want %q", e.Type(), TypeMessageSync)
	}

	// Payload shape is identical to a receive event apart from the type.
	doc := decodeEnvelope(t, e)
	msg := doc["event"].(map[string]any)["message"].(map[string]any)
	if msg["root_id"] != "om_root" {
		t.Errorf("root_id = %v, want om_root", msg["root_id"])
	}
}

func TestBuildMessageUpdateEvent(t *testing.T) {
	e := BuildMessageUpdateEvent(sampleMessage())
	if e.Type() != TypeMessageUpdate {
		t.Errorf("Type() = %q, want %q", e.Type(), TypeMessageUpdate)
	}

	doc := decodeEnvelope(t, e)
	msg := doc["event"].(map[string]any)["message"].(map[string]any)
	for _, absent := range []string{"root_id", "parent_id", "mentions"} {
		if _, ok := msg[absent]; ok {
			t.Errorf("update event carries %q, want absent", absent)
		}
	}
	if msg["content"] != `{"text":"hi"}` {
		t.Errorf("content = %v", msg["content"])
	}
}

func TestBuildAckEvent(t *testing.T) {
	tests := []struct {
		delivered bool
		want      string
	}{
		{true, StatusDelivered},
		{false, StatusQueued},
	}

	for _, tt := range tests {
		e := BuildAckEvent("om_1", "oc_1", "alice", tt.delivered)
		if e.Type() != TypeAck {
			t.Errorf("Type() = %q, want %q", e.Type(), TypeAck)
		}
		if e.MessageID() != "" {
			t.Errorf("MessageID() = %q, want empty for ack", e.MessageID())
		}

		doc := decodeEnvelope(t, e)
		ev := doc["event"].(map[string]any)
		if ev["status"] != tt.want {
			t.Errorf("status = %v, want %v", ev["status"], tt.want)
		}
		if ev["message_id"] != "om_1" || ev["chat_id"] != "oc_1" {
			t.Errorf("ack body = %v", ev)
		}
	}
}

func TestEventIDsAreFresh(t *testing.T) {
	a := BuildMessageEvent(sampleMessage())
	b := BuildMessageEvent(sampleMessage())
	if a.Header.EventID == b.Header.EventID {
		t.Error("two envelopes share an event_id")
	}
}
