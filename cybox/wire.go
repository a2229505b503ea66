package cybox

// Wire protocol: JSON frames tagged by a "type" field, camelCase field
// names. The protocol is owned by the cybox server; field names here must
// match it exactly.

const (
	typeChat      = "chat"
	typeSetName   = "setName"
	typeStatus    = "status"
	typeListUsers = "listUsers"
	typePing      = "ping"
	typePong      = "pong"
	typeAi        = "ai"
	typeSystem    = "system"
	typeAckName   = "ackName"
	typeError     = "error"
)

// Outgoing is a client-to-server command frame. Construct it through the
// helpers below; a zero Outgoing is not a valid frame.
type Outgoing struct {
	Type   string `json:"type"`
	Text   string `json:"text,omitempty"`
	Name   string `json:"name,omitempty"`
	Token  string `json:"token,omitempty"`
	Prompt string `json:"prompt,omitempty"`
}

// Chat sends a plain chat line.
func Chat(text string) Outgoing { return Outgoing{Type: typeChat, Text: text} }

// SetName requests a display name change.
func SetName(name string) Outgoing { return Outgoing{Type: typeSetName, Name: name} }

// Status requests the server status card.
func Status() Outgoing { return Outgoing{Type: typeStatus} }

// ListUsers requests the connected-user list.
func ListUsers() Outgoing { return Outgoing{Type: typeListUsers} }

// Ping sends a latency probe. An empty token omits the field on the wire.
func Ping(token string) Outgoing { return Outgoing{Type: typePing, Token: token} }

// Ai submits a prompt to the server-side AI.
func Ai(prompt string) Outgoing { return Outgoing{Type: typeAi, Prompt: prompt} }

// Message is a server-to-client frame, one variant per wire type.
type Message interface {
	message()
}

// ChatMessage is a chat line relayed by the server.
type ChatMessage struct {
	From string `json:"from"`
	Text string `json:"text"`
	At   *int64 `json:"at,omitempty"`
}

// SystemMessage is a server-generated notice.
type SystemMessage struct {
	Text string `json:"text"`
	At   *int64 `json:"at,omitempty"`
}

// AckNameMessage confirms a name change.
type AckNameMessage struct {
	Name string `json:"name"`
	At   *int64 `json:"at,omitempty"`
}

// StatusMessage is the server status card. Optional fields are absent on
// older server revisions.
type StatusMessage struct {
	Version           string   `json:"version"`
	OS                *string  `json:"os,omitempty"`
	CPUCores          *int     `json:"cpuCores,omitempty"`
	UptimeSeconds     uint64   `json:"uptimeSeconds"`
	UserCount         int      `json:"userCount"`
	PeakUsers         *int     `json:"peakUsers,omitempty"`
	ConnectionsTotal  *uint64  `json:"connectionsTotal,omitempty"`
	MessagesSent      uint64   `json:"messagesSent"`
	MessagesPerSecond float64  `json:"messagesPerSecond"`
	MemoryMB          float64  `json:"memoryMb"`
	AIEnabled         *bool    `json:"aiEnabled,omitempty"`
	AIModel           *string  `json:"aiModel,omitempty"`
	At                *int64   `json:"at,omitempty"`
}

// UserInfo identifies one connected user.
type UserInfo struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IP   string `json:"ip"`
}

// UserListMessage answers a listUsers request.
type UserListMessage struct {
	Users []UserInfo `json:"users"`
	At    *int64     `json:"at,omitempty"`
}

// ErrorMessage is a protocol-level error reported by the server.
type ErrorMessage struct {
	Message string `json:"message"`
	At      *int64 `json:"at,omitempty"`
}

// PongMessage answers a ping. The token is echoed back when the ping
// carried one.
type PongMessage struct {
	Token *string `json:"token,omitempty"`
	At    *int64  `json:"at,omitempty"`
}

// AiMessage carries an AI answer broadcast by the server.
type AiMessage struct {
	From       string   `json:"from"`
	Prompt     string   `json:"prompt"`
	Response   string   `json:"response"`
	ResponseMS uint64   `json:"responseMs"`
	Tokens     *uint32  `json:"tokens,omitempty"`
	Cost       *float64 `json:"cost,omitempty"`
	At         *int64   `json:"at,omitempty"`
}

func (ChatMessage) message()     {}
func (SystemMessage) message()   {}
func (AckNameMessage) message()  {}
func (StatusMessage) message()   {}
func (UserListMessage) message() {}
func (ErrorMessage) message()    {}
func (PongMessage) message()     {}
func (AiMessage) message()       {}
