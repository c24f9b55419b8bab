// Package event builds the JSON envelopes carried as frame payloads.
//
// An envelope is the business-level description of one event (message
// arrival, edit, delivery acknowledgment) in the shape the downstream SDK
// expects. Envelopes are immutable once built and opaque bytes to the
// frame codec.
package event

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/google/uuid"
)

// Schema is the envelope schema version, fixed by the SDK contract.
const Schema = "2.0"

// TenantKey identifies this deployment in envelope headers and sender
// blocks.
const TenantKey = "cofly"

// Event type constants. These strings are the public contract consumed by
// downstream clients and must not be renamed.
//
// TypeMessageSync is deliberately outside the SDK's recognized namespace:
// it is delivered to the sender's own other devices so they stay in sync,
// and the unknown type keeps a bot from reacting to its own outgoing
// messages.
const (
	TypeMessageReceive = "im.message.receive_v1"
	TypeMessageSync    = "cofly.message.sync_v1"
	TypeMessageUpdate  = "im.message.update_v1"
	TypeAck            = "cofly.message.ack"
)

// Delivery status values carried in ack envelopes.
const (
	StatusDelivered = "delivered"
	StatusQueued    = "queued"
)

// Header is the envelope header common to all event types.
type Header struct {
	EventID    string `json:"event_id"`
	EventType  string `json:"event_type"`
	CreateTime string `json:"create_time"`
	Token      string `json:"token"`
	AppID      string `json:"app_id"`
	TenantKey  string `json:"tenant_key"`
}

// SenderID carries the sender's identity under the three id aliases the
// SDK recognizes. All three are the same value here.
type SenderID struct {
	OpenID  string `json:"open_id"`
	UserID  string `json:"user_id"`
	UnionID string `json:"union_id"`
}

// Sender is the sender block of message events.
type Sender struct {
	SenderID   SenderID `json:"sender_id"`
	SenderType string   `json:"sender_type"`
	TenantKey  string   `json:"tenant_key"`
}

// MessageBody describes the message in receive and sync events.
type MessageBody struct {
	MessageID   string   `json:"message_id"`
	RootID      string   `json:"root_id"`
	ParentID    string   `json:"parent_id"`
	ChatID      string   `json:"chat_id"`
	ChatType    string   `json:"chat_type"`
	MessageType string   `json:"message_type"`
	Content     string   `json:"content"`
	Mentions    []string `json:"mentions"`
}

// UpdateBody describes the revised message in update events. Unlike
// MessageBody it carries no threading or mention fields.
type UpdateBody struct {
	MessageID   string `json:"message_id"`
	ChatID      string `json:"chat_id"`
	ChatType    string `json:"chat_type"`
	MessageType string `json:"message_type"`
	Content     string `json:"content"`
}

// MessageEvent is the event body of receive, sync and update envelopes.
type MessageEvent struct {
	Sender  Sender `json:"sender"`
	Message any    `json:"message"`
}

// AckEvent is the event body of delivery acknowledgments.
type AckEvent struct {
	MessageID string `json:"message_id"`
	ChatID    string `json:"chat_id"`
	Status    string `json:"status"`
}

// Envelope is one complete event document.
type Envelope struct {
	Schema string `json:"schema"`
	Header Header `json:"header"`
	Event  any    `json:"event"`

	// messageID caches the carried message id for frame headers; empty
	// for acks.
	messageID string
}

// Type returns the envelope's event type.
func (e *Envelope) Type() string {
	return e.Header.EventType
}

// MessageID returns the id of the message the envelope describes, or the
// empty string for envelopes that carry no message body.
func (e *Envelope) MessageID() string {
	return e.messageID
}

// Marshal serializes the envelope to its wire JSON.
func (e *Envelope) Marshal() ([]byte, error) {
	return json.Marshal(e)
}

// newHeader stamps a fresh event id and the current time in decimal
// milliseconds. appID is the recipient's username: the SDK routes
// envelopes to bot handlers by matching app_id.
func newHeader(eventType, receiverUsername string) Header {
	return Header{
		EventID:    uuid.NewString(),
		EventType:  eventType,
		CreateTime: strconv.FormatInt(time.Now().UnixMilli(), 10),
		Token:      "",
		AppID:      receiverUsername,
		TenantKey:  TenantKey,
	}
}

func newSender(senderID string) Sender {
	return Sender{
		SenderID: SenderID{
			OpenID:  senderID,
			UserID:  senderID,
			UnionID: senderID,
		},
		SenderType: "user",
		TenantKey:  TenantKey,
	}
}

// Message holds the inputs shared by the message event constructors.
type Message struct {
	SenderID         string
	ReceiverUsername string
	MessageID        string
	ChatID           string
	ChatType         string
	MessageType      string
	Content          string
	RootID           string
	ParentID         string
}

// BuildMessageEvent builds a receive envelope: normal delivery to a
// recipient other than the sender.
func BuildMessageEvent(m Message) *Envelope {
	return buildMessageEnvelope(TypeMessageReceive, m)
}

// BuildMessageSyncEvent builds a sync envelope for the sender's own other
// connections. Identical payload shape to a receive event.
func BuildMessageSyncEvent(m Message) *Envelope {
	return buildMessageEnvelope(TypeMessageSync, m)
}

func buildMessageEnvelope(eventType string, m Message) *Envelope {
	return &Envelope{
		Schema: Schema,
		Header: newHeader(eventType, m.ReceiverUsername),
		Event: MessageEvent{
			Sender: newSender(m.SenderID),
			Message: MessageBody{
				MessageID:   m.MessageID,
				RootID:      m.RootID,
				ParentID:    m.ParentID,
				ChatID:      m.ChatID,
				ChatType:    m.ChatType,
				MessageType: m.MessageType,
				Content:     m.Content,
				Mentions:    []string{},
			},
		},
		messageID: m.MessageID,
	}
}

// BuildMessageUpdateEvent builds an update envelope carrying a revised
// message body. RootID and ParentID on m are ignored.
func BuildMessageUpdateEvent(m Message) *Envelope {
	return &Envelope{
		Schema: Schema,
		Header: newHeader(TypeMessageUpdate, m.ReceiverUsername),
		Event: MessageEvent{
			Sender: newSender(m.SenderID),
			Message: UpdateBody{
				MessageID:   m.MessageID,
				ChatID:      m.ChatID,
				ChatType:    m.ChatType,
				MessageType: m.MessageType,
				Content:     m.Content,
			},
		},
		messageID: m.MessageID,
	}
}

// BuildAckEvent builds a delivery acknowledgment for the sender.
// delivered reports whether the push reached at least one connection of a
// recipient other than the sender; otherwise the event was queued for
// offline delivery.
func BuildAckEvent(messageID, chatID, receiverUsername string, delivered bool) *Envelope {
	status := StatusQueued
	if delivered {
		status = StatusDelivered
	}
	return &Envelope{
		Schema: Schema,
		Header: newHeader(TypeAck, receiverUsername),
		Event: AckEvent{
			MessageID: messageID,
			ChatID:    chatID,
			Status:    status,
		},
	}
}
