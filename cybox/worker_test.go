package cybox

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

var testUpgrader = websocket.Upgrader{}

func newWSServer(t *testing.T, handler func(*websocket.Conn)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade: %v", err)
			return
		}
		defer conn.Close()
		handler(conn)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func collectUntilDisconnected(t *testing.T, w *Worker) []Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var events []Event
	for {
		ev, ok := w.NextEvent(ctx)
		if !ok {
			t.Fatalf("timed out waiting for disconnect, got %d events: %#v", len(events), events)
		}
		events = append(events, ev)
		if _, done := ev.(DisconnectedEvent); done {
			return events
		}
	}
}

func countDisconnects(events []Event) int {
	n := 0
	for _, ev := range events {
		if _, ok := ev.(DisconnectedEvent); ok {
			n++
		}
	}
	return n
}

func waitForConnected(t *testing.T, w *Worker) []Event {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var events []Event
	for {
		ev, ok := w.NextEvent(ctx)
		if !ok {
			t.Fatalf("timed out waiting for connect, got: %#v", events)
		}
		events = append(events, ev)
		switch ev.(type) {
		case ConnectedEvent:
			return events
		case DisconnectedEvent:
			t.Fatalf("disconnected before connected: %#v", events)
		}
	}
}

func TestWorkerHandshakeAndEventOrdering(t *testing.T) {
	frame := `{"type":"chat","from":"Bas","text":"Hallo","at":1733312410000}`
	srv := newWSServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte(frame))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_, _, _ = conn.ReadMessage() // wait for the close echo
	})

	cfg := DefaultConfig()
	cfg.URL = wsURL(srv)
	w := Dial(cfg)
	events := collectUntilDisconnected(t, w)

	sec, ok := events[0].(SecurityEvent)
	if !ok {
		t.Fatalf("first event must be SecurityEvent, got %T", events[0])
	}
	if sec.URL != cfg.URL || sec.Transport != "ws" || sec.TLS {
		t.Fatalf("unexpected security info: %+v", sec)
	}
	if sec.HTTPStatus != http.StatusSwitchingProtocols {
		t.Fatalf("expected 101 handshake status, got %d", sec.HTTPStatus)
	}
	if len(sec.Headers) == 0 {
		t.Fatalf("expected handshake response headers")
	}
	if _, ok := events[1].(ConnectedEvent); !ok {
		t.Fatalf("second event must be ConnectedEvent, got %T", events[1])
	}

	raw, ok := events[2].(RawEvent)
	if !ok || raw.Dir != DirInbound || raw.Text != frame {
		t.Fatalf("expected verbatim inbound raw frame, got %#v", events[2])
	}
	msg, ok := events[3].(MessageEvent)
	if !ok {
		t.Fatalf("expected MessageEvent, got %T", events[3])
	}
	if chat := msg.Message.(ChatMessage); chat.From != "Bas" || chat.Text != "Hallo" {
		t.Fatalf("unexpected chat payload: %+v", chat)
	}

	last := events[len(events)-1].(DisconnectedEvent)
	if last.Reason != "" {
		t.Fatalf("graceful close must carry no reason, got %q", last.Reason)
	}
	if countDisconnects(events) != 1 {
		t.Fatalf("expected exactly one DisconnectedEvent, got %d", countDisconnects(events))
	}
}

func TestWorkerMalformedFramesKeepConnectionOpen(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {
		_ = conn.WriteMessage(websocket.TextMessage, []byte("not json at all"))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"newFeature","foo":"bar"}`))
		_ = conn.WriteMessage(websocket.TextMessage, []byte(`{"type":"system","text":"still here"}`))
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		_, _, _ = conn.ReadMessage()
	})

	cfg := DefaultConfig()
	cfg.URL = wsURL(srv)
	events := collectUntilDisconnected(t, Dial(cfg))

	var warnings []string
	var messages []Message
	for _, ev := range events {
		switch e := ev.(type) {
		case WarningEvent:
			warnings = append(warnings, e.Text)
		case MessageEvent:
			messages = append(messages, e.Message)
		}
	}
	if len(warnings) != 2 {
		t.Fatalf("expected 2 warnings, got %v", warnings)
	}
	if !strings.Contains(warnings[0], "invalid JSON") {
		t.Fatalf("unexpected warning %q", warnings[0])
	}
	if !strings.Contains(warnings[1], "newFeature") {
		t.Fatalf("unexpected warning %q", warnings[1])
	}
	// The frame after the junk still arrives: the connection survived.
	if len(messages) != 1 {
		t.Fatalf("expected the valid frame to arrive, got %v", messages)
	}
	if sys := messages[0].(SystemMessage); sys.Text != "still here" {
		t.Fatalf("unexpected system message: %+v", sys)
	}
	if countDisconnects(events) != 1 {
		t.Fatalf("expected exactly one DisconnectedEvent")
	}
}

func TestWorkerHandshakeRefused(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := wsURL(srv)
	srv.Close()

	cfg := DefaultConfig()
	cfg.URL = url
	cfg.HandshakeTimeout = 2 * time.Second
	events := collectUntilDisconnected(t, Dial(cfg))

	if _, ok := events[0].(ErrorEvent); !ok {
		t.Fatalf("expected ErrorEvent first, got %T", events[0])
	}
	last := events[len(events)-1].(DisconnectedEvent)
	if last.Reason != "" {
		t.Fatalf("handshake failure carries no disconnect reason, got %q", last.Reason)
	}
	for _, ev := range events {
		if _, ok := ev.(ConnectedEvent); ok {
			t.Fatalf("must never connect: %#v", events)
		}
	}
	if countDisconnects(events) != 1 {
		t.Fatalf("expected exactly one DisconnectedEvent")
	}
}

func TestWorkerInvalidURL(t *testing.T) {
	cfg := DefaultConfig()
	cfg.URL = "http://not-a-websocket.example"
	events := collectUntilDisconnected(t, Dial(cfg))

	errEv, ok := events[0].(ErrorEvent)
	if !ok {
		t.Fatalf("expected ErrorEvent, got %T", events[0])
	}
	if !strings.Contains(errEv.Text, "Invalid WebSocket URL") {
		t.Fatalf("unexpected error text %q", errEv.Text)
	}
}

func TestWorkerSendAndDisconnect(t *testing.T) {
	received := make(chan string, 8)
	srv := newWSServer(t, func(conn *websocket.Conn) {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			received <- string(data)
		}
	})

	cfg := DefaultConfig()
	cfg.URL = wsURL(srv)
	w := Dial(cfg)
	pre := waitForConnected(t, w)

	w.Send(Chat("Hallo"))
	select {
	case frame := <-received:
		if frame != `{"type":"chat","text":"Hallo"}` {
			t.Fatalf("unexpected frame on the wire: %s", frame)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("server never received the chat frame")
	}

	w.Disconnect()
	w.Send(Status()) // queued after Disconnect, must never be transmitted
	events := append(pre, collectUntilDisconnected(t, w)...)

	outbound := 0
	for _, ev := range events {
		if raw, ok := ev.(RawEvent); ok && raw.Dir == DirOutbound {
			outbound++
			if strings.Contains(raw.Text, "status") {
				t.Fatalf("command after Disconnect was transmitted: %s", raw.Text)
			}
		}
	}
	if outbound != 1 {
		t.Fatalf("expected one outbound raw event, got %d", outbound)
	}

	last := events[len(events)-1].(DisconnectedEvent)
	if last.Reason != "" {
		t.Fatalf("client-initiated close is graceful, got reason %q", last.Reason)
	}
	if countDisconnects(events) != 1 {
		t.Fatalf("expected exactly one DisconnectedEvent")
	}

	deadline := time.Now().Add(2 * time.Second)
	for w.State() != StateClosed && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if w.State() != StateClosed {
		t.Fatalf("worker did not reach closed state, still %v", w.State())
	}
}

func TestWorkerNonBlockingEventDrain(t *testing.T) {
	srv := newWSServer(t, func(conn *websocket.Conn) {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	})

	cfg := DefaultConfig()
	cfg.URL = wsURL(srv)
	w := Dial(cfg)
	waitForConnected(t, w)

	// Nothing pending: TryNextEvent must return immediately.
	if ev, ok := w.TryNextEvent(); ok {
		t.Fatalf("expected empty queue, got %#v", ev)
	}
	w.Disconnect()
	collectUntilDisconnected(t, w)
}
