package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shahedoge/cofly/pkg/event"
	"github.com/shahedoge/cofly/pkg/protocol"
)

// fakeConn records written frames and can be told to fail.
type fakeConn struct {
	mu     sync.Mutex
	frames [][]byte
	fail   bool
}

func (c *fakeConn) WriteBinary(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.fail {
		return errors.New("write to closed connection")
	}
	buf := make([]byte, len(data))
	copy(buf, data)
	c.frames = append(c.frames, buf)
	return nil
}

func (c *fakeConn) written() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([][]byte, len(c.frames))
	copy(out, c.frames)
	return out
}

func testEnvelope(t *testing.T, content string) *event.Envelope {
	t.Helper()
	return event.BuildMessageEvent(event.Message{
		SenderID:         "sender-1",
		ReceiverUsername: "bob",
		MessageID:        "om_" + content,
		ChatID:           "oc_test",
		ChatType:         "p2p",
		MessageType:      "text",
		Content:          fmt.Sprintf(`{"text":%q}`, content),
	})
}

// frameContent decodes a pushed frame and returns the text content of
// the envelope it carries.
func frameContent(t *testing.T, data []byte) string {
	t.Helper()
	frame, err := protocol.Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	var env struct {
		Event struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"event"`
	}
	if err := json.Unmarshal(frame.Payload, &env); err != nil {
		t.Fatalf("payload unmarshal error = %v", err)
	}
	var body struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal([]byte(env.Event.Message.Content), &body); err != nil {
		t.Fatalf("content unmarshal error = %v", err)
	}
	return body.Text
}

func TestPushDeliversOnline(t *testing.T) {
	r := NewRegistry(nil, nil)
	c := &fakeConn{}
	r.Connect("bob", c)

	if !r.Push("bob", testEnvelope(t, "hello")) {
		t.Fatal("Push() = false, want true for online identity")
	}
	frames := c.written()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1", len(frames))
	}
	frame, err := protocol.Decode(frames[0])
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if frame.Method != protocol.MethodEvent {
		t.Errorf("Method = %d, want %d", frame.Method, protocol.MethodEvent)
	}
	if got := frame.GetHeader("type"); got != "event" {
		t.Errorf("type header = %q, want %q", got, "event")
	}
}

func TestPushQueuesOffline(t *testing.T) {
	r := NewRegistry(nil, nil)

	if r.Push("bob", testEnvelope(t, "e1")) {
		t.Error("Push() = true, want false for offline identity")
	}
	if got := r.PendingCount("bob"); got != 1 {
		t.Errorf("PendingCount() = %d, want 1", got)
	}
	if r.IsOnline("bob") {
		t.Error("IsOnline() = true, want false")
	}
}

func TestConnectFlushesPendingInOrder(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Push("bob", testEnvelope(t, "e1"))
	r.Push("bob", testEnvelope(t, "e2"))
	r.Push("bob", testEnvelope(t, "e3"))

	c := &fakeConn{}
	r.Connect("bob", c)

	frames := c.written()
	if len(frames) != 3 {
		t.Fatalf("got %d frames, want 3", len(frames))
	}
	want := []string{"e1", "e2", "e3"}
	for i, data := range frames {
		if got := frameContent(t, data); got != want[i] {
			t.Errorf("frame %d content = %q, want %q", i, got, want[i])
		}
	}
	if got := r.PendingCount("bob"); got != 0 {
		t.Errorf("PendingCount() after flush = %d, want 0", got)
	}
}

func TestPushFansOutToAllConnections(t *testing.T) {
	r := NewRegistry(nil, nil)
	c1 := &fakeConn{}
	c2 := &fakeConn{}
	r.Connect("bob", c1)
	r.Connect("bob", c2)

	if !r.Push("bob", testEnvelope(t, "fanout")) {
		t.Fatal("Push() = false, want true")
	}
	if len(c1.written()) != 1 || len(c2.written()) != 1 {
		t.Errorf("fan-out: c1 got %d frames, c2 got %d frames, want 1 each",
			len(c1.written()), len(c2.written()))
	}
}

func TestPushDropsFailedConnectionKeepsSurvivor(t *testing.T) {
	r := NewRegistry(nil, nil)
	dead := &fakeConn{fail: true}
	live := &fakeConn{}
	r.Connect("bob", dead)
	r.Connect("bob", live)

	if !r.Push("bob", testEnvelope(t, "x")) {
		t.Fatal("Push() = false, want true when one connection survives")
	}
	if len(live.written()) != 1 {
		t.Errorf("survivor got %d frames, want 1", len(live.written()))
	}
	if !r.IsOnline("bob") {
		t.Error("IsOnline() = false, want true while survivor remains")
	}

	// The dead handle is gone: the next push reaches only the survivor.
	r.Push("bob", testEnvelope(t, "y"))
	if len(live.written()) != 2 {
		t.Errorf("survivor got %d frames, want 2", len(live.written()))
	}
}

func TestPushAllConnectionsFailNotRequeued(t *testing.T) {
	r := NewRegistry(nil, nil)
	dead := &fakeConn{fail: true}
	r.Connect("bob", dead)

	if r.Push("bob", testEnvelope(t, "lost")) {
		t.Error("Push() = true, want false when every write fails")
	}
	if r.IsOnline("bob") {
		t.Error("IsOnline() = true, want false after last connection dropped")
	}
	if got := r.PendingCount("bob"); got != 0 {
		t.Errorf("PendingCount() = %d, want 0: failed deliveries are not re-queued", got)
	}
}

func TestDisconnect(t *testing.T) {
	r := NewRegistry(nil, nil)
	c1 := &fakeConn{}
	c2 := &fakeConn{}
	r.Connect("bob", c1)
	r.Connect("bob", c2)

	r.Disconnect("bob", c1)
	if !r.IsOnline("bob") {
		t.Error("IsOnline() = false, want true with one connection left")
	}
	r.Disconnect("bob", c2)
	if r.IsOnline("bob") {
		t.Error("IsOnline() = true, want false after both disconnected")
	}

	// Disconnecting an unknown handle is a no-op.
	r.Disconnect("bob", c1)
	r.Disconnect("nobody", c1)
}

func TestDisconnectAll(t *testing.T) {
	r := NewRegistry(nil, nil)
	r.Connect("bob", &fakeConn{})
	r.Connect("bob", &fakeConn{})

	r.DisconnectAll("bob")
	if r.IsOnline("bob") {
		t.Error("IsOnline() = true, want false after DisconnectAll")
	}
}

func TestHandleFramePing(t *testing.T) {
	r := NewRegistry(nil, nil)
	c := &fakeConn{}

	ping := protocol.Encode(42, protocol.MethodControl,
		[]protocol.Header{{Key: "type", Value: "ping"}}, nil, 7)
	if err := r.HandleFrame("bob", c, ping); err != nil {
		t.Fatalf("HandleFrame() error = %v", err)
	}

	frames := c.written()
	if len(frames) != 1 {
		t.Fatalf("got %d frames, want 1 pong", len(frames))
	}
	pong, err := protocol.Decode(frames[0])
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if pong.SeqID != 42 {
		t.Errorf("pong SeqID = %d, want 42", pong.SeqID)
	}
	if pong.Service != 7 {
		t.Errorf("pong Service = %d, want 7", pong.Service)
	}
	if got := pong.GetHeader("type"); got != "pong" {
		t.Errorf("pong type header = %q, want %q", got, "pong")
	}
}

func TestHandleFrameIgnoresUnknownType(t *testing.T) {
	r := NewRegistry(nil, nil)
	c := &fakeConn{}

	frame := protocol.Encode(1, protocol.MethodControl,
		[]protocol.Header{{Key: "type", Value: "presence"}}, nil, protocol.DefaultService)
	if err := r.HandleFrame("bob", c, frame); err != nil {
		t.Fatalf("HandleFrame() error = %v", err)
	}
	if len(c.written()) != 0 {
		t.Errorf("got %d frames, want 0 for unknown frame type", len(c.written()))
	}
}

func TestHandleFrameDecodeErrorIsFatal(t *testing.T) {
	r := NewRegistry(nil, nil)
	if err := r.HandleFrame("bob", &fakeConn{}, []byte{0x80}); err == nil {
		t.Error("HandleFrame() error = nil, want decode error for malformed frame")
	}
}

func TestHandleFramePongWriteFailureNonFatal(t *testing.T) {
	r := NewRegistry(nil, nil)
	dead := &fakeConn{fail: true}

	ping := protocol.Encode(1, protocol.MethodControl,
		[]protocol.Header{{Key: "type", Value: "ping"}}, nil, protocol.DefaultService)
	if err := r.HandleFrame("bob", dead, ping); err != nil {
		t.Errorf("HandleFrame() error = %v, want nil for pong write failure", err)
	}
}

func TestPushSequenceIncreases(t *testing.T) {
	r := NewRegistry(nil, nil)
	c := &fakeConn{}
	r.Connect("bob", c)

	r.Push("bob", testEnvelope(t, "a"))
	r.Push("bob", testEnvelope(t, "b"))

	frames := c.written()
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	first, err := protocol.Decode(frames[0])
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	second, err := protocol.Decode(frames[1])
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if second.SeqID <= first.SeqID {
		t.Errorf("seq did not increase: first %d, second %d", first.SeqID, second.SeqID)
	}
}
