package devserver

import (
	"encoding/json"
	"time"
	"unicode/utf8"
)

// Server-side view of the wire protocol. Frames are JSON objects tagged
// by "type"; field names must match what the client expects.

type clientFrame struct {
	Type   string `json:"type"`
	Text   string `json:"text"`
	Name   string `json:"name"`
	Token  string `json:"token"`
	Prompt string `json:"prompt"`
}

type chatFrame struct {
	Type string `json:"type"`
	From string `json:"from"`
	Text string `json:"text"`
	At   int64  `json:"at"`
}

type systemFrame struct {
	Type string `json:"type"`
	Text string `json:"text"`
	At   int64  `json:"at"`
}

type ackNameFrame struct {
	Type string `json:"type"`
	Name string `json:"name"`
	At   int64  `json:"at"`
}

type errorFrame struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	At      int64  `json:"at"`
}

type pongFrame struct {
	Type  string  `json:"type"`
	Token *string `json:"token,omitempty"`
	At    int64   `json:"at"`
}

type userEntry struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	IP   string `json:"ip"`
}

type userListFrame struct {
	Type  string      `json:"type"`
	Users []userEntry `json:"users"`
	At    int64       `json:"at"`
}

type statusFrame struct {
	Type              string  `json:"type"`
	Version           string  `json:"version"`
	OS                string  `json:"os"`
	CPUCores          int     `json:"cpuCores"`
	UptimeSeconds     uint64  `json:"uptimeSeconds"`
	UserCount         int     `json:"userCount"`
	PeakUsers         int     `json:"peakUsers"`
	ConnectionsTotal  uint64  `json:"connectionsTotal"`
	MessagesSent      uint64  `json:"messagesSent"`
	MessagesPerSecond float64 `json:"messagesPerSecond"`
	MemoryMB          float64 `json:"memoryMb"`
	AIEnabled         bool    `json:"aiEnabled"`
	At                int64   `json:"at"`
}

func nowMillis() int64 {
	return time.Now().UnixMilli()
}

func marshalFrame(v any) []byte {
	data, err := json.Marshal(v)
	if err != nil {
		// All frame structs are plain data; Marshal cannot fail on them.
		panic(err)
	}
	return data
}

func validDisplayName(name string) bool {
	n := utf8.RuneCountInString(name)
	if n < 2 || n > 32 {
		return false
	}
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == ' ' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
