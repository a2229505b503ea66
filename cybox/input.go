package cybox

import (
	"fmt"
	"strings"
	"unicode/utf8"
)

const (
	maxChatRunes   = 500
	maxPromptRunes = 1000
	minNameRunes   = 2
	maxNameRunes   = 32
)

// InputKind tags the result of parsing raw user input.
type InputKind int

const (
	InputEmpty InputKind = iota
	InputInvalid
	InputChat
	InputSetName
	InputStatus
	InputListUsers
	InputPing
	InputAi
)

// ParsedInput is the outcome of ParseInput. Value holds the chat text,
// name, ping token (empty means the caller generates one), AI prompt, or
// the validation message for InputInvalid.
type ParsedInput struct {
	Kind  InputKind
	Value string
}

func invalidInput(msg string) ParsedInput {
	return ParsedInput{Kind: InputInvalid, Value: msg}
}

// ParseInput translates raw user text into a chat line, a recognized
// slash command, or a validation error. Pure and synchronous; validation
// failures never reach the network.
func ParseInput(raw string) ParsedInput {
	text := strings.TrimSpace(raw)
	if text == "" {
		return ParsedInput{Kind: InputEmpty}
	}

	if !strings.HasPrefix(text, "/") {
		if utf8.RuneCountInString(text) > maxChatRunes {
			return invalidInput("Message is too long (max 500 characters).")
		}
		return ParsedInput{Kind: InputChat, Value: text}
	}

	cmd := text
	arg := ""
	if i := strings.IndexFunc(text, isSpace); i >= 0 {
		cmd = text[:i]
		arg = strings.TrimSpace(text[i:])
	}
	cmd = strings.ToLower(cmd)

	switch cmd {
	case "/name":
		if arg == "" {
			return invalidInput("Usage: /name <new_name>")
		}
		n := utf8.RuneCountInString(arg)
		if n < minNameRunes || n > maxNameRunes {
			return invalidInput("Naam moet tussen 2 en 32 tekens zijn.")
		}
		if !validName(arg) {
			return invalidInput("Naam mag alleen letters, cijfers, spaties, - en _ bevatten.")
		}
		return ParsedInput{Kind: InputSetName, Value: arg}
	case "/status":
		return ParsedInput{Kind: InputStatus}
	case "/users":
		return ParsedInput{Kind: InputListUsers}
	case "/ping":
		return ParsedInput{Kind: InputPing, Value: arg}
	case "/ai":
		if arg == "" {
			return invalidInput("Usage: /ai <question>")
		}
		if utf8.RuneCountInString(arg) > maxPromptRunes {
			return invalidInput("Vraag is te lang (max 1000 tekens).")
		}
		return ParsedInput{Kind: InputAi, Value: arg}
	default:
		return invalidInput(fmt.Sprintf("Unknown command: %s", cmd))
	}
}

func isSpace(r rune) bool { return r == ' ' || r == '\t' }

func validName(name string) bool {
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
