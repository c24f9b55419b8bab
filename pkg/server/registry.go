package server

import (
	"log/slog"
	"sync"

	"github.com/shahedoge/cofly/pkg/event"
	"github.com/shahedoge/cofly/pkg/protocol"
)

// Registry is the process-wide table of live connections. It maps each
// identity to the set of its simultaneously connected devices, keeps a
// FIFO queue of envelopes for identities that are offline, and allocates
// the shared push sequence number.
//
// Two locks with distinct jobs: mu guards the maps and the counter and is
// never held across network I/O; pushMu serializes whole Push calls so
// that frames reach every connection of an identity in Push order (a
// single global serialization point is sufficient at this scale).
type Registry struct {
	pushMu sync.Mutex
	mu     sync.Mutex

	conns   map[string]map[Conn]struct{}
	pending map[string][]*event.Envelope
	seq     uint64

	logger  *slog.Logger
	metrics *Metrics
}

// NewRegistry creates an empty registry. metrics may be nil.
func NewRegistry(logger *slog.Logger, metrics *Metrics) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		conns:   make(map[string]map[Conn]struct{}),
		pending: make(map[string][]*event.Envelope),
		logger:  logger.With("component", "registry"),
		metrics: metrics,
	}
}

// Connect registers a live connection for identity, then flushes any
// queued envelopes to it in FIFO order. The pending list is detached
// before the flush so the pushes cannot re-queue onto it.
func (r *Registry) Connect(identity string, c Conn) {
	r.mu.Lock()
	set := r.conns[identity]
	if set == nil {
		set = make(map[Conn]struct{})
		r.conns[identity] = set
	}
	set[c] = struct{}{}
	queued := r.pending[identity]
	delete(r.pending, identity)
	total := len(set)
	r.mu.Unlock()

	r.metrics.recordConnect()
	r.logger.Info("connected", "identity", identity, "connections", total, "pending", len(queued))

	for _, env := range queued {
		r.Push(identity, env)
	}
}

// Disconnect removes one connection of identity. The identity key is
// dropped once its set is empty. A removed handle is never reused.
func (r *Registry) Disconnect(identity string, c Conn) {
	r.mu.Lock()
	removed := 0
	if set, ok := r.conns[identity]; ok {
		if _, ok := set[c]; ok {
			delete(set, c)
			removed = 1
		}
		if len(set) == 0 {
			delete(r.conns, identity)
		}
	}
	remaining := len(r.conns[identity])
	r.mu.Unlock()

	if removed > 0 {
		r.metrics.recordDisconnect(removed)
		r.logger.Info("disconnected", "identity", identity, "connections", remaining)
	}
}

// DisconnectAll removes every connection of identity.
func (r *Registry) DisconnectAll(identity string) {
	r.mu.Lock()
	removed := len(r.conns[identity])
	delete(r.conns, identity)
	r.mu.Unlock()

	if removed > 0 {
		r.metrics.recordDisconnect(removed)
		r.logger.Info("disconnected all", "identity", identity, "removed", removed)
	}
}

// IsOnline reports whether identity has at least one live connection.
func (r *Registry) IsOnline(identity string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.conns[identity]) > 0
}

// PendingCount returns the number of envelopes queued for identity.
func (r *Registry) PendingCount(identity string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.pending[identity])
}

// HandleFrame dispatches one inbound frame from a connection. A ping is
// answered with a pong on the same connection; every other frame type is
// ignored for forward compatibility. A decode error is returned and is
// fatal to the connection: the caller must close instead of trying to
// resynchronize.
func (r *Registry) HandleFrame(identity string, c Conn, data []byte) error {
	frame, err := protocol.Decode(data)
	if err != nil {
		r.metrics.recordDecodeError()
		return err
	}

	if frame.GetHeader("type") == "ping" {
		if err := c.WriteBinary(protocol.MakePongFrame(frame)); err != nil {
			// The read loop will observe the dead connection shortly.
			r.logger.Warn("pong write failed", "identity", identity, "error", err)
			return nil
		}
		r.metrics.recordPong()
	}
	return nil
}

// Push delivers env to every live connection of identity, or queues it
// when there are none. It returns true iff the envelope reached at least
// one connection.
//
// Delivery is best-effort and at-most-once per connection: a handle whose
// write fails is removed without retry and the event is not re-queued,
// while delivery to sibling devices proceeds unaffected.
func (r *Registry) Push(identity string, env *event.Envelope) bool {
	payload, err := env.Marshal()
	if err != nil {
		r.logger.Error("envelope marshal failed", "identity", identity, "error", err)
		return false
	}

	r.pushMu.Lock()
	defer r.pushMu.Unlock()

	r.mu.Lock()
	set := r.conns[identity]
	if len(set) == 0 {
		r.pending[identity] = append(r.pending[identity], env)
		queued := len(r.pending[identity])
		r.mu.Unlock()

		r.metrics.recordPush(false)
		r.logger.Info("queued for offline identity",
			"identity", identity, "event_type", env.Type(), "pending", queued)
		return false
	}

	r.seq++
	seq := r.seq
	frame := protocol.MakeEventFrame(payload, env.MessageID(), seq)
	targets := make([]Conn, 0, len(set))
	for c := range set {
		targets = append(targets, c)
	}
	r.mu.Unlock()

	// Writes happen outside the map lock; pushMu keeps them ordered
	// relative to other pushes.
	delivered := false
	for _, c := range targets {
		if err := c.WriteBinary(frame); err != nil {
			r.metrics.recordWriteError()
			r.logger.Warn("push write failed, dropping connection",
				"identity", identity, "error", err)
			r.Disconnect(identity, c)
			continue
		}
		delivered = true
	}

	r.metrics.recordPush(delivered)
	if delivered {
		r.logger.Info("pushed", "identity", identity, "event_type", env.Type(), "seq", seq)
	}
	return delivered
}
