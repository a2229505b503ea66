package cybox

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// LineKind tags one entry of the session's display history.
type LineKind int

const (
	LineChat LineKind = iota
	LineSystem
	LineError
	LineStatus
	LineAi
)

// Line is one displayable entry of the chat log. Stamp is a preformatted
// "[HH:MM:SS] " prefix when the originating frame carried a timestamp.
type Line struct {
	Kind     LineKind
	Stamp    string
	From     string
	Text     string
	Prompt   string
	Response string
	Stats    string
}

// Session is the in-memory view-model behind the client UI. It is
// mutated only from the consumer goroutine: feed it worker events via
// HandleEvent, user input via Submit, and time via Tick. It never
// touches the network directly; all outbound traffic goes through the
// attached Sender.
type Session struct {
	cfg    Config
	sender Sender

	connected     bool
	everConnected bool
	connectedAt   time.Time
	username      string
	preferredName string

	lines    []Line
	rawLog   []string
	security *SecurityEvent

	pendingPings map[string]time.Time
	latency      []time.Duration
	errorTimes   []time.Time
	lastAutoPing time.Time

	framesIn   uint64
	framesOut  uint64
	reconnects int
}

// NewSession constructs a session. cfg.Username, when set, is asserted
// on every successful connect.
func NewSession(cfg Config) *Session {
	if cfg.LatencyWindow <= 0 {
		cfg.LatencyWindow = DefaultConfig().LatencyWindow
	}
	return &Session{
		cfg:           cfg,
		preferredName: cfg.Username,
		pendingPings:  make(map[string]time.Time),
	}
}

// Attach binds the session to a connection worker's command sink. Call
// it again with the next worker on reconnect.
func (s *Session) Attach(sender Sender) {
	s.sender = sender
}

// Submit parses raw user input and acts on it: chat and commands go out
// through the sender, validation failures become local error lines and
// never reach the network.
func (s *Session) Submit(raw string, now time.Time) {
	p := ParseInput(raw)
	switch p.Kind {
	case InputEmpty:
		return
	case InputInvalid:
		s.appendLine(Line{Kind: LineError, Text: p.Value})
		return
	}

	if s.sender == nil {
		s.appendLine(Line{Kind: LineError, Text: "Not connected."})
		return
	}

	switch p.Kind {
	case InputChat:
		s.sender.Send(Chat(p.Value))
	case InputSetName:
		s.preferredName = p.Value
		s.sender.Send(SetName(p.Value))
	case InputStatus:
		s.sender.Send(Status())
	case InputListUsers:
		s.sender.Send(ListUsers())
	case InputPing:
		token := p.Value
		if token == "" {
			token = uuid.NewString()
		}
		s.pendingPings[token] = now
		s.sender.Send(Ping(token))
	case InputAi:
		s.appendLine(Line{Kind: LineSystem, Text: "AI is thinking..."})
		s.sender.Send(Ai(p.Value))
	}
}

// HandleEvent applies one worker event to the view-model.
func (s *Session) HandleEvent(ev Event, now time.Time) {
	switch e := ev.(type) {
	case SecurityEvent:
		s.security = &e
	case ConnectedEvent:
		if s.everConnected {
			s.reconnects++
		}
		s.everConnected = true
		s.connected = true
		s.connectedAt = now
		s.appendLine(Line{Kind: LineSystem, Text: "Connected!"})
		// Server-side identity does not survive a reconnect.
		if s.preferredName != "" && s.sender != nil {
			s.sender.Send(SetName(s.preferredName))
		}
	case DisconnectedEvent:
		s.connected = false
		// In-flight round-trips cannot resolve against a dead connection.
		s.pendingPings = make(map[string]time.Time)
		s.lastAutoPing = time.Time{}
		if e.Reason != "" {
			s.recordError(now)
			s.appendLine(Line{Kind: LineError, Text: e.Reason})
		}
		s.appendLine(Line{Kind: LineSystem, Text: "Disconnected"})
	case RawEvent:
		if e.Dir == DirInbound {
			s.framesIn++
		} else {
			s.framesOut++
		}
		s.rawLog = append(s.rawLog, fmt.Sprintf("%s %s", e.Dir, e.Text))
	case WarningEvent:
		s.recordError(now)
		s.appendLine(Line{Kind: LineError, Text: e.Text})
	case ErrorEvent:
		s.recordError(now)
		s.appendLine(Line{Kind: LineError, Text: e.Text})
	case MessageEvent:
		s.applyMessage(e.Message, now)
	}
}

// Tick drives the auto-ping scheduler. While connected, at most one
// automatically-generated ping is pending at a time, at most one per
// interval.
func (s *Session) Tick(now time.Time) {
	if !s.connected || s.sender == nil || s.cfg.AutoPingInterval <= 0 {
		return
	}
	if !s.lastAutoPing.IsZero() && now.Sub(s.lastAutoPing) < s.cfg.AutoPingInterval {
		return
	}
	// A probe the server never answered would otherwise pin the map.
	for token := range s.pendingPings {
		if strings.HasPrefix(token, autoPingPrefix) {
			delete(s.pendingPings, token)
		}
	}
	token := autoPingPrefix + uuid.NewString()
	s.pendingPings[token] = now
	s.lastAutoPing = now
	s.sender.Send(Ping(token))
}

func (s *Session) applyMessage(msg Message, now time.Time) {
	switch m := msg.(type) {
	case ChatMessage:
		s.appendLine(Line{Kind: LineChat, Stamp: FormatAtPrefix(m.At), From: m.From, Text: m.Text})
	case SystemMessage:
		s.appendLine(Line{Kind: LineSystem, Stamp: FormatAtPrefix(m.At), Text: m.Text})
	case AckNameMessage:
		s.username = m.Name
		s.appendLine(Line{Kind: LineSystem, Stamp: FormatAtPrefix(m.At), Text: fmt.Sprintf("Your name is now: %s", m.Name)})
	case StatusMessage:
		for _, text := range statusCard(m) {
			s.appendLine(Line{Kind: LineStatus, Stamp: FormatAtPrefix(m.At), Text: text})
		}
	case UserListMessage:
		if len(m.Users) == 0 {
			s.appendLine(Line{Kind: LineStatus, Stamp: FormatAtPrefix(m.At), Text: "No users connected"})
			return
		}
		s.appendLine(Line{Kind: LineStatus, Stamp: FormatAtPrefix(m.At), Text: fmt.Sprintf("Users (%d)", len(m.Users))})
		for _, u := range m.Users {
			s.appendLine(Line{Kind: LineStatus, Text: fmt.Sprintf("  %s  %s  %s", u.ID, u.Name, u.IP)})
		}
	case ErrorMessage:
		s.recordError(now)
		s.appendLine(Line{Kind: LineError, Stamp: FormatAtPrefix(m.At), Text: m.Message})
	case PongMessage:
		s.applyPong(m, now)
	case AiMessage:
		stats := []string{fmt.Sprintf("%dms", m.ResponseMS)}
		if m.Tokens != nil {
			stats = append(stats, fmt.Sprintf("%d tokens", *m.Tokens))
		}
		if m.Cost != nil {
			stats = append(stats, fmt.Sprintf("$%.4f", *m.Cost))
		}
		s.appendLine(Line{
			Kind:     LineAi,
			Stamp:    FormatAtPrefix(m.At),
			From:     m.From,
			Prompt:   m.Prompt,
			Response: m.Response,
			Stats:    strings.Join(stats, " | "),
		})
	}
}

// applyPong resolves a pending round-trip. Auto-pings feed the latency
// window and never surface as a line; manual pings always do.
func (s *Session) applyPong(m PongMessage, now time.Time) {
	var (
		token string
		rtt   time.Duration
		found bool
	)
	if m.Token != nil {
		token = *m.Token
		if start, ok := s.pendingPings[token]; ok {
			delete(s.pendingPings, token)
			rtt = now.Sub(start)
			found = true
		}
	}

	if found && strings.HasPrefix(token, autoPingPrefix) {
		s.pushLatency(rtt)
		return
	}

	suffix := ""
	if m.Token != nil {
		suffix = fmt.Sprintf(" (token: %s...)", token[:min(8, len(token))])
	}
	if found {
		s.appendLine(Line{
			Kind:  LineStatus,
			Stamp: FormatAtPrefix(m.At),
			Text:  fmt.Sprintf("Pong! roundtrip: %.2fms%s", float64(rtt)/float64(time.Millisecond), suffix),
		})
		return
	}
	s.appendLine(Line{Kind: LineStatus, Stamp: FormatAtPrefix(m.At), Text: "Pong!" + suffix})
}

func statusCard(m StatusMessage) []string {
	lines := []string{fmt.Sprintf("Server Status v%s", m.Version)}
	if m.OS != nil {
		cores := ""
		if m.CPUCores != nil {
			cores = fmt.Sprintf(" (%d cores)", *m.CPUCores)
		}
		lines = append(lines, fmt.Sprintf("Platform: %s%s", *m.OS, cores))
	}
	lines = append(lines, fmt.Sprintf("Uptime: %s", FormatUptime(m.UptimeSeconds)))
	peak := ""
	if m.PeakUsers != nil {
		peak = fmt.Sprintf(" (peak: %d)", *m.PeakUsers)
	}
	lines = append(lines, fmt.Sprintf("Users: %d%s", m.UserCount, peak))
	if m.ConnectionsTotal != nil {
		lines = append(lines, fmt.Sprintf("Connections: %d", *m.ConnectionsTotal))
	}
	lines = append(lines,
		fmt.Sprintf("Messages: %d", m.MessagesSent),
		fmt.Sprintf("Throughput: %v msg/s", m.MessagesPerSecond),
		fmt.Sprintf("Memory: %.2f MB", m.MemoryMB),
	)
	if m.AIEnabled != nil {
		status := "disabled"
		if *m.AIEnabled {
			status = "enabled"
			if m.AIModel != nil {
				status = *m.AIModel
			}
		}
		lines = append(lines, fmt.Sprintf("AI: %s", status))
	}
	return lines
}

func (s *Session) appendLine(line Line) {
	s.lines = append(s.lines, line)
}

func (s *Session) pushLatency(rtt time.Duration) {
	s.latency = append(s.latency, rtt)
	if len(s.latency) > s.cfg.LatencyWindow {
		s.latency = s.latency[1:]
	}
}

func (s *Session) recordError(now time.Time) {
	s.errorTimes = append(s.errorTimes, now)
	s.pruneErrors(now)
}

func (s *Session) pruneErrors(now time.Time) {
	cutoff := now.Add(-time.Minute)
	i := 0
	for i < len(s.errorTimes) && s.errorTimes[i].Before(cutoff) {
		i++
	}
	s.errorTimes = s.errorTimes[i:]
}

// Accessors for the UI layer.

// Connected reports whether the session currently has an open connection.
func (s *Session) Connected() bool { return s.connected }

// Username is the server-acknowledged display name, empty until the
// first ackName.
func (s *Session) Username() string { return s.username }

// Lines returns the display history.
func (s *Session) Lines() []Line { return s.lines }

// RawLog returns the direction-tagged verbatim frames.
func (s *Session) RawLog() []string { return s.rawLog }

// Security returns the handshake metadata of the current or last
// connection, nil before the first handshake.
func (s *Session) Security() *SecurityEvent { return s.security }

// PendingPings reports the number of unresolved round-trips.
func (s *Session) PendingPings() int { return len(s.pendingPings) }

// Reconnects counts successful connects after the first.
func (s *Session) Reconnects() int { return s.reconnects }

// FramesIn and FramesOut count raw frames per direction.
func (s *Session) FramesIn() uint64  { return s.framesIn }
func (s *Session) FramesOut() uint64 { return s.framesOut }

// ErrorsPerMinute counts errors and warnings in the sliding one-minute
// window ending at now.
func (s *Session) ErrorsPerMinute(now time.Time) int {
	s.pruneErrors(now)
	return len(s.errorTimes)
}

// LatencySamples returns a copy of the rolling round-trip window, oldest
// first.
func (s *Session) LatencySamples() []time.Duration {
	out := make([]time.Duration, len(s.latency))
	copy(out, s.latency)
	return out
}

// AvgLatency is the mean of the rolling window, zero when empty.
func (s *Session) AvgLatency() time.Duration {
	if len(s.latency) == 0 {
		return 0
	}
	var total time.Duration
	for _, d := range s.latency {
		total += d
	}
	return total / time.Duration(len(s.latency))
}

// P95Latency is the 95th-percentile of the rolling window, zero when
// empty.
func (s *Session) P95Latency() time.Duration {
	n := len(s.latency)
	if n == 0 {
		return 0
	}
	sorted := make([]time.Duration, n)
	copy(sorted, s.latency)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	idx := (n*95 + 99) / 100
	if idx > 0 {
		idx--
	}
	return sorted[idx]
}
