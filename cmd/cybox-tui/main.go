// Command cybox-tui is a terminal chat client. It drives a connection
// worker and renders the session history, connection metrics, handshake
// details and the raw frame log in a tabbed full-screen UI.
package main

import (
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/cyboxchat/cybox-client-go/cybox"
	"github.com/cyboxchat/cybox-client-go/cybox/settings"
)

const (
	pollInterval = 250 * time.Millisecond
	inputLimit   = 2000
)

type tabID int

const (
	tabChat tabID = iota
	tabStatus
	tabSecurity
	tabRaw
)

func (t tabID) String() string {
	switch t {
	case tabChat:
		return "Chat"
	case tabStatus:
		return "Status"
	case tabSecurity:
		return "Security"
	case tabRaw:
		return "Raw"
	default:
		return "?"
	}
}

type tickMsg time.Time

func tickEvery(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

type uiTheme struct {
	header      lipgloss.Style
	tabActive   lipgloss.Style
	tabInactive lipgloss.Style
	panel       lipgloss.Style
	footer      lipgloss.Style
	inputPanel  lipgloss.Style

	chatFrom  lipgloss.Style
	system    lipgloss.Style
	errorText lipgloss.Style
	status    lipgloss.Style
	aiFrom    lipgloss.Style
	aiStats   lipgloss.Style
	stamp     lipgloss.Style
	muted     lipgloss.Style
	connected lipgloss.Style
	offline   lipgloss.Style
}

func newTheme() uiTheme {
	cyan := lipgloss.Color("#01cdfe")
	mint := lipgloss.Color("#05ffa1")
	pink := lipgloss.Color("#ff71ce")
	amber := lipgloss.Color("#ffd166")
	muted := lipgloss.Color("#9ca3d8")
	panelBg := lipgloss.Color("#1b0f35")

	return uiTheme{
		header: lipgloss.NewStyle().
			Background(panelBg).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(cyan).
			Padding(0, 1),
		tabActive: lipgloss.NewStyle().
			Background(pink).
			Foreground(lipgloss.Color("#22062f")).
			Bold(true).
			Padding(0, 1),
		tabInactive: lipgloss.NewStyle().
			Background(lipgloss.Color("#2a184a")).
			Foreground(muted).
			Padding(0, 1),
		panel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(cyan).
			Padding(0, 1),
		footer: lipgloss.NewStyle().
			Foreground(muted).
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(pink).
			Padding(0, 1),
		inputPanel: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(mint).
			Padding(0, 1),
		chatFrom:  lipgloss.NewStyle().Foreground(mint).Bold(true),
		system:    lipgloss.NewStyle().Foreground(muted),
		errorText: lipgloss.NewStyle().Foreground(pink).Bold(true),
		status:    lipgloss.NewStyle().Foreground(cyan),
		aiFrom:    lipgloss.NewStyle().Foreground(amber).Bold(true),
		aiStats:   lipgloss.NewStyle().Foreground(muted).Italic(true),
		stamp:     lipgloss.NewStyle().Foreground(muted),
		muted:     lipgloss.NewStyle().Foreground(muted),
		connected: lipgloss.NewStyle().Foreground(mint).Bold(true),
		offline:   lipgloss.NewStyle().Foreground(pink).Bold(true),
	}
}

type model struct {
	cfg          cybox.Config
	settingsPath string

	session *cybox.Session
	worker  *cybox.Worker

	activeTab tabID
	width     int
	height    int
	ready     bool

	input    textinput.Model
	view     viewport.Model
	spinner  spinner.Model
	theme    uiTheme
	lastTick time.Time
}

func newModel(cfg cybox.Config, settingsPath string) model {
	input := textinput.New()
	input.Prompt = "> "
	input.CharLimit = inputLimit
	input.Placeholder = "Bericht of commando (/name, /status, /users, /ping, /ai)"
	input.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Points
	sp.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("#05ffa1"))

	view := viewport.New(0, 0)
	view.MouseWheelEnabled = true

	return model{
		cfg:          cfg,
		settingsPath: settingsPath,
		session:      cybox.NewSession(cfg),
		activeTab:    tabChat,
		input:        input,
		view:         view,
		spinner:      sp,
		theme:        newTheme(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		m.connectCmd(),
		tickEvery(pollInterval),
	)
}

type connectedWorkerMsg struct {
	worker *cybox.Worker
}

func (m model) connectCmd() tea.Cmd {
	cfg := m.cfg
	return func() tea.Msg {
		return connectedWorkerMsg{worker: cybox.Dial(cfg)}
	}
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.layout()
		m.ready = true
		return m, nil

	case connectedWorkerMsg:
		m.worker = msg.worker
		m.session.Attach(msg.worker)
		return m, nil

	case tickMsg:
		now := time.Time(msg)
		m.lastTick = now
		m.drainEvents(now)
		m.session.Tick(now)
		wasAtBottom := m.view.AtBottom()
		m.view.SetContent(m.tabContent())
		if wasAtBottom && (m.activeTab == tabChat || m.activeTab == tabRaw) {
			m.view.GotoBottom()
		}
		return m, tickEvery(pollInterval)

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "esc":
			if m.worker != nil {
				m.worker.Disconnect()
			}
			return m, tea.Quit
		case "tab":
			m.activeTab = (m.activeTab + 1) % 4
			m.view.SetContent(m.tabContent())
			return m, nil
		case "shift+tab":
			m.activeTab = (m.activeTab + 3) % 4
			m.view.SetContent(m.tabContent())
			return m, nil
		case "pgup":
			m.view.LineUp(m.view.Height / 2)
			return m, nil
		case "pgdown":
			m.view.LineDown(m.view.Height / 2)
			return m, nil
		case "enter":
			return m.submit()
		}

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// submit handles one line of input. Connection management commands are
// local to the UI; everything else belongs to the session.
func (m model) submit() (tea.Model, tea.Cmd) {
	raw := m.input.Value()
	m.input.Reset()
	trimmed := strings.TrimSpace(raw)
	now := time.Now()

	switch {
	case strings.HasPrefix(strings.ToLower(trimmed), "/connect"):
		url := strings.TrimSpace(trimmed[len("/connect"):])
		if url != "" {
			m.cfg.URL = url
			m.saveSettings()
		}
		if m.worker != nil {
			m.worker.Disconnect()
		}
		return m, m.connectCmd()

	case strings.EqualFold(trimmed, "/disconnect"):
		if m.worker != nil {
			m.worker.Disconnect()
		}
		return m, nil

	case strings.EqualFold(trimmed, "/quit"):
		if m.worker != nil {
			m.worker.Disconnect()
		}
		return m, tea.Quit
	}

	m.session.Submit(raw, now)
	if p := cybox.ParseInput(raw); p.Kind == cybox.InputSetName {
		m.saveSettings()
	}
	m.view.SetContent(m.tabContent())
	m.view.GotoBottom()
	return m, nil
}

func (m *model) saveSettings() {
	name := m.session.Username()
	if name == "" {
		name = m.cfg.Username
	}
	_ = settings.Save(m.settingsPath, settings.Settings{
		ServerURL: m.cfg.URL,
		Username:  name,
	})
}

func (m *model) drainEvents(now time.Time) {
	if m.worker == nil {
		return
	}
	for {
		ev, ok := m.worker.TryNextEvent()
		if !ok {
			return
		}
		m.session.HandleEvent(ev, now)
	}
}

func (m *model) layout() {
	headerHeight := 3
	tabsHeight := 1
	inputHeight := 3
	footerHeight := 3
	m.view.Width = m.width - 4
	m.view.Height = m.height - headerHeight - tabsHeight - inputHeight - footerHeight - 2
	if m.view.Height < 3 {
		m.view.Height = 3
	}
	m.input.Width = m.width - 8
}

func (m model) View() string {
	if !m.ready {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.renderTabs())
	b.WriteString("\n")
	b.WriteString(m.theme.panel.Width(m.width - 2).Render(m.view.View()))
	b.WriteString("\n")
	b.WriteString(m.theme.inputPanel.Width(m.width - 2).Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.theme.footer.Width(m.width - 2).Render(
		"tab: wissel paneel | /connect [url] /disconnect /quit | /name /status /users /ping /ai"))
	return b.String()
}

func (m model) renderHeader() string {
	state := "offline"
	style := m.theme.offline
	if m.worker != nil {
		state = m.worker.State().String()
	}
	if m.session.Connected() {
		style = m.theme.connected
	}

	name := m.session.Username()
	if name == "" {
		name = "(anoniem)"
	}

	now := m.lastTick
	if now.IsZero() {
		now = time.Now()
	}
	metrics := fmt.Sprintf(
		"rtt %s avg / %s p95 | fouten/min %d | frames %d in / %d uit | reconnects %d",
		formatRTT(m.session.AvgLatency()),
		formatRTT(m.session.P95Latency()),
		m.session.ErrorsPerMinute(now),
		m.session.FramesIn(),
		m.session.FramesOut(),
		m.session.Reconnects(),
	)

	left := fmt.Sprintf("%s cybox %s %s @ %s", m.spinner.View(), style.Render(state), name, m.cfg.URL)
	return m.theme.header.Width(m.width - 2).Render(left + "\n" + m.theme.muted.Render(metrics))
}

func formatRTT(d time.Duration) string {
	if d == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1fms", float64(d)/float64(time.Millisecond))
}

func (m model) renderTabs() string {
	parts := make([]string, 0, 4)
	for _, t := range []tabID{tabChat, tabStatus, tabSecurity, tabRaw} {
		if t == m.activeTab {
			parts = append(parts, m.theme.tabActive.Render(t.String()))
		} else {
			parts = append(parts, m.theme.tabInactive.Render(t.String()))
		}
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, parts...)
}

func (m model) tabContent() string {
	switch m.activeTab {
	case tabStatus:
		return m.renderMetrics()
	case tabSecurity:
		return m.renderSecurity()
	case tabRaw:
		return strings.Join(m.session.RawLog(), "\n")
	default:
		return m.renderChat()
	}
}

func (m model) renderChat() string {
	var b strings.Builder
	for _, line := range m.session.Lines() {
		b.WriteString(m.renderLine(line))
		b.WriteString("\n")
	}
	return b.String()
}

func (m model) renderLine(line cybox.Line) string {
	stamp := ""
	if line.Stamp != "" {
		stamp = m.theme.stamp.Render(line.Stamp)
	}
	switch line.Kind {
	case cybox.LineChat:
		return stamp + m.theme.chatFrom.Render(line.From+": ") + line.Text
	case cybox.LineSystem:
		return stamp + m.theme.system.Render("* "+line.Text)
	case cybox.LineError:
		return stamp + m.theme.errorText.Render("! "+line.Text)
	case cybox.LineStatus:
		return stamp + m.theme.status.Render(line.Text)
	case cybox.LineAi:
		var b strings.Builder
		b.WriteString(stamp + m.theme.aiFrom.Render(line.From+" > ") + line.Prompt + "\n")
		b.WriteString("  " + line.Response)
		if line.Stats != "" {
			b.WriteString("\n  " + m.theme.aiStats.Render(line.Stats))
		}
		return b.String()
	default:
		return stamp + line.Text
	}
}

func (m model) renderMetrics() string {
	now := m.lastTick
	if now.IsZero() {
		now = time.Now()
	}
	samples := m.session.LatencySamples()

	var b strings.Builder
	fmt.Fprintf(&b, "Verbinding:       %s\n", m.cfg.URL)
	if m.worker != nil {
		fmt.Fprintf(&b, "Status:           %s\n", m.worker.State())
	}
	fmt.Fprintf(&b, "Naam:             %s\n", m.session.Username())
	fmt.Fprintf(&b, "Frames in/uit:    %d / %d\n", m.session.FramesIn(), m.session.FramesOut())
	fmt.Fprintf(&b, "Reconnects:       %d\n", m.session.Reconnects())
	fmt.Fprintf(&b, "Fouten (1 min):   %d\n", m.session.ErrorsPerMinute(now))
	fmt.Fprintf(&b, "Open pings:       %d\n", m.session.PendingPings())
	fmt.Fprintf(&b, "Latency samples:  %d\n", len(samples))
	fmt.Fprintf(&b, "Latency gem/p95:  %s / %s\n", formatRTT(m.session.AvgLatency()), formatRTT(m.session.P95Latency()))
	return b.String()
}

func (m model) renderSecurity() string {
	sec := m.session.Security()
	if sec == nil {
		return m.theme.muted.Render("Nog geen handshake gezien.")
	}

	var b strings.Builder
	fmt.Fprintf(&b, "URL:        %s\n", sec.URL)
	fmt.Fprintf(&b, "Transport:  %s\n", sec.Transport)
	fmt.Fprintf(&b, "TLS:        %v\n", sec.TLS)
	if sec.HTTPStatus != 0 {
		fmt.Fprintf(&b, "HTTP:       %d\n", sec.HTTPStatus)
	}
	if len(sec.Headers) > 0 {
		b.WriteString("\nHandshake headers:\n")
		for _, h := range sec.Headers {
			fmt.Fprintf(&b, "  %s: %s\n", h.Name, h.Value)
		}
	}
	return b.String()
}

func main() {
	urlFlag := flag.String("url", "", "websocket server url (overrides settings)")
	nameFlag := flag.String("name", "", "display name to assert on connect")
	flag.Parse()

	path := settings.DefaultPath()
	stored, _ := settings.Load(path)

	cfg := cybox.DefaultConfig()
	cfg.URL = stored.ServerURL
	cfg.Username = stored.Username
	if *urlFlag != "" {
		cfg.URL = *urlFlag
	}
	if *nameFlag != "" {
		cfg.Username = *nameFlag
	}

	p := tea.NewProgram(newModel(cfg, path), tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "cybox-tui: %v\n", err)
		os.Exit(1)
	}
}
