package cybox

// Event is what the connection worker hands to its consumer. Events are
// created by the worker, cross the goroutine boundary exactly once, and
// are never mutated afterwards.
type Event interface {
	event()
}

// ConnectedEvent signals that the handshake completed and the session is
// open. A SecurityEvent always precedes it.
type ConnectedEvent struct{}

// DisconnectedEvent signals the end of the connection. Reason is empty
// for a graceful close or handshake failure; otherwise it is a
// human-readable description of the transport failure. The worker emits
// exactly one DisconnectedEvent per lifetime.
type DisconnectedEvent struct {
	Reason string
}

// MessageEvent wraps a decoded server message.
type MessageEvent struct {
	Message Message
}

// Direction tags raw frames by who sent them.
type Direction int

const (
	DirOutbound Direction = iota
	DirInbound
)

func (d Direction) String() string {
	if d == DirOutbound {
		return ">>"
	}
	return "<<"
}

// RawEvent carries the verbatim text of one frame, for inspection.
type RawEvent struct {
	Dir  Direction
	Text string
}

// Header is one handshake response header.
type Header struct {
	Name  string
	Value string
}

// SecurityEvent captures the negotiated transport metadata of a
// successful handshake.
type SecurityEvent struct {
	URL        string
	Transport  string
	TLS        bool
	HTTPStatus int // 0 when the transport exposed no status code
	Headers    []Header
}

// WarningEvent reports a non-fatal protocol anomaly, such as an
// unrecognized frame. The connection stays open.
type WarningEvent struct {
	Text string
}

// ErrorEvent reports a handshake failure. It is always followed by a
// DisconnectedEvent.
type ErrorEvent struct {
	Text string
}

func (ConnectedEvent) event()    {}
func (DisconnectedEvent) event() {}
func (MessageEvent) event()      {}
func (RawEvent) event()          {}
func (SecurityEvent) event()     {}
func (WarningEvent) event()      {}
func (ErrorEvent) event()        {}
