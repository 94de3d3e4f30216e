package metrics

import "sync"

// Counter names. The signaling hub and the WebSocket transport both report
// into the same registry, keyed by event.
const (
	ConnOpened         = "ws_connections_opened"
	ConnClosed         = "ws_connections_closed"
	EmitDropped        = "emits_dropped"
	RateLimitedClose   = "ws_rate_limited_closes"
	MalformedMessage   = "malformed_messages"
	IdentityRegistered = "identities_registered"
	RoomCreated        = "rooms_created"
	RoomJoined         = "rooms_joined"
	RoomLeft           = "rooms_left"
	InvitationSent     = "invitations_sent"
	InviteeUnavailable = "invitations_unavailable"
	SignalRelayed      = "signals_relayed"
	DisconnectCleanup  = "disconnect_cleanups"
)

// Metrics is a minimal, concurrency-safe counter registry.
//
// A deployment that wants a full metrics backend can scrape the Prometheus
// text endpoint; in-process the registry stays a plain counter map so the
// hub and transport remain trivially testable.
type Metrics struct {
	mu sync.Mutex
	m  map[string]uint64
}

func New() *Metrics {
	return &Metrics{
		m: make(map[string]uint64),
	}
}

func (m *Metrics) Inc(name string) {
	m.Add(name, 1)
}

func (m *Metrics) Add(name string, delta uint64) {
	m.mu.Lock()
	m.m[name] += delta
	m.mu.Unlock()
}

func (m *Metrics) Get(name string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.m[name]
}

// Snapshot returns a copy of all counters.
func (m *Metrics) Snapshot() map[string]uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[string]uint64, len(m.m))
	for k, v := range m.m {
		out[k] = v
	}
	return out
}
