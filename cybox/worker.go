package cybox

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync/atomic"

	"github.com/cyboxchat/cybox-client-go/cybox/internal"

	"github.com/coder/websocket"
)

// Sender is the command sink half of a Worker, the only surface the
// session needs for outbound traffic.
type Sender interface {
	Send(Outgoing)
	Disconnect()
}

type command struct {
	out        Outgoing
	disconnect bool
}

// Worker owns the lifetime of one connection: it performs the handshake,
// runs the outbound and inbound halves concurrently, and reports
// everything that happens as Events. A Worker is never reused; every
// connection attempt constructs a new one via Dial.
//
// Commands and events travel through two unbounded order-preserving
// queues, so neither side ever blocks the other. Events are delivered in
// exactly the order they were emitted.
type Worker struct {
	cfg    Config
	logger Logger

	cmds   *internal.Queue[command]
	events *internal.Queue[Event]

	state   atomic.Int32
	closing atomic.Bool
}

// Dial starts a connection attempt to cfg.URL and returns the worker
// handle immediately; the calling goroutine never blocks. Handshake
// results arrive as events: SecurityEvent then ConnectedEvent on
// success, ErrorEvent then DisconnectedEvent on failure.
func Dial(cfg Config) *Worker {
	return DialWithLogger(cfg, nil)
}

// DialWithLogger is Dial with a caller-provided logger. A nil logger
// discards all logs.
func DialWithLogger(cfg Config, logger Logger) *Worker {
	if logger == nil {
		logger = noopLogger{}
	}
	w := &Worker{
		cfg:    cfg,
		logger: logger,
		cmds:   internal.NewQueue[command](),
		events: internal.NewQueue[Event](),
	}
	w.state.Store(int32(StateIdle))
	go w.run()
	return w
}

// Send enqueues a command. Ordering is preserved; commands queued after
// Disconnect are never transmitted.
func (w *Worker) Send(out Outgoing) {
	w.cmds.Push(command{out: out})
}

// Disconnect asks the worker to close the connection cooperatively: it
// sends a close frame and lets the inbound loop observe the peer's
// close.
func (w *Worker) Disconnect() {
	w.closing.Store(true)
	w.cmds.Push(command{disconnect: true})
}

// TryNextEvent returns the next pending event without blocking.
func (w *Worker) TryNextEvent() (Event, bool) {
	return w.events.TryPop()
}

// NextEvent blocks until an event is available or ctx is done.
func (w *Worker) NextEvent(ctx context.Context) (Event, bool) {
	return w.events.Pop(ctx)
}

// State reports the current lifecycle state.
func (w *Worker) State() ConnState {
	return ConnState(w.state.Load())
}

func (w *Worker) setState(s ConnState) {
	w.state.Store(int32(s))
}

func (w *Worker) emit(ev Event) {
	w.events.Push(ev)
}

func (w *Worker) run() {
	w.setState(StateConnecting)

	u, err := url.Parse(w.cfg.URL)
	if err == nil && u.Scheme != "ws" && u.Scheme != "wss" {
		err = fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if err != nil {
		w.failHandshake(badURLError(err))
		return
	}

	dialCtx := context.Background()
	if w.cfg.HandshakeTimeout > 0 {
		var cancel context.CancelFunc
		dialCtx, cancel = context.WithTimeout(dialCtx, w.cfg.HandshakeTimeout)
		defer cancel()
	}

	ws, resp, err := websocket.Dial(dialCtx, u.String(), nil)
	if err != nil {
		w.failHandshake(classifyDialError(err))
		return
	}

	// SecurityEvent must reach the consumer before any data event.
	w.emit(securityInfo(u, resp))
	w.emit(ConnectedEvent{})
	w.setState(StateOpen)

	conn := internal.NewConn(ws, w.cfg.WriteTimeout)
	runCtx, cancel := context.WithCancel(context.Background())
	go w.writeLoop(runCtx, conn)

	reason := w.readLoop(runCtx, conn)
	cancel()

	w.setState(StateClosing)
	_ = conn.Close(websocket.StatusNormalClosure, "session over")
	// The one and only DisconnectedEvent of this worker's lifetime.
	w.emit(DisconnectedEvent{Reason: reason})
	w.setState(StateClosed)
}

func (w *Worker) failHandshake(ce *ClientError) {
	w.logger.Error("handshake failed", map[string]any{"url": w.cfg.URL, "error": ce.Error()})
	w.emit(ErrorEvent{Text: ce.Message})
	w.emit(DisconnectedEvent{})
	w.setState(StateClosed)
}

// writeLoop drains the command queue one item at a time, serializing all
// writers. A failed write stops the loop silently: reporting the
// disconnect is the inbound loop's responsibility.
func (w *Worker) writeLoop(ctx context.Context, conn *internal.Conn) {
	for {
		cmd, ok := w.cmds.Pop(ctx)
		if !ok {
			return
		}
		if cmd.disconnect {
			_ = conn.Close(websocket.StatusNormalClosure, "client disconnect")
			return
		}
		frame := string(EncodeCommand(cmd.out))
		w.emit(RawEvent{Dir: DirOutbound, Text: frame})
		if err := conn.WriteText(ctx, frame); err != nil {
			w.logger.Warn("write loop exit", map[string]any{"error": err.Error()})
			return
		}
	}
}

// readLoop receives frames until the connection ends. It returns the
// disconnect reason, empty for a graceful close. Malformed or unknown
// frames degrade to warnings and never tear the connection down.
func (w *Worker) readLoop(ctx context.Context, conn *internal.Conn) string {
	for {
		text, err := conn.ReadText(ctx)
		if err != nil {
			if w.isGracefulClose(ctx, err) {
				return ""
			}
			ce := classifyStreamError(err)
			w.logger.Warn("read loop exit", map[string]any{"error": err.Error()})
			return ce.Message
		}

		w.emit(RawEvent{Dir: DirInbound, Text: text})
		res := DecodeFrame(text)
		if res.Status == DecodeOK {
			w.emit(MessageEvent{Message: res.Event})
		} else {
			w.emit(WarningEvent{Text: res.Warning})
		}
	}
}

func (w *Worker) isGracefulClose(ctx context.Context, err error) bool {
	if w.closing.Load() {
		return true
	}
	if ctx.Err() != nil {
		return true
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, io.EOF) {
		return true
	}
	switch websocket.CloseStatus(err) {
	case websocket.StatusNormalClosure, websocket.StatusGoingAway:
		return true
	default:
		return false
	}
}

func securityInfo(u *url.URL, resp *http.Response) SecurityEvent {
	transport := "ws"
	if strings.EqualFold(u.Scheme, "wss") {
		transport = "wss"
	}
	ev := SecurityEvent{
		URL:       u.String(),
		Transport: transport,
		TLS:       transport == "wss",
	}
	if resp != nil {
		ev.HTTPStatus = resp.StatusCode
		names := make([]string, 0, len(resp.Header))
		for name := range resp.Header {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			for _, value := range resp.Header[name] {
				ev.Headers = append(ev.Headers, Header{Name: name, Value: value})
			}
		}
	}
	return ev
}
