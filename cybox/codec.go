package cybox

import (
	"encoding/json"
	"fmt"
)

// DecodeStatus classifies the outcome of decoding one inbound frame.
type DecodeStatus int

const (
	// DecodeOK means the frame decoded into exactly one Message variant.
	DecodeOK DecodeStatus = iota

	// DecodeUnknownType means the frame carried a discriminant this client
	// does not recognize. Newer servers may introduce message types at any
	// time; this is not an error.
	DecodeUnknownType

	// DecodeNoType means the frame was valid JSON without a usable "type"
	// field.
	DecodeNoType

	// DecodeBadPayload means the frame was not valid JSON, or a known
	// variant whose payload did not decode.
	DecodeBadPayload
)

// DecodeResult is the total outcome of DecodeFrame. Event is non-nil
// exactly when Status is DecodeOK; Warning is a displayable description
// otherwise.
type DecodeResult struct {
	Event   Message
	Status  DecodeStatus
	Warning string
}

// requiredFields lists the mandatory keys per variant. A frame missing any
// of them is not an instance of that variant.
var requiredFields = map[string][]string{
	typeChat:      {"from", "text"},
	typeSystem:    {"text"},
	typeAckName:   {"name"},
	typeStatus:    {"version", "uptimeSeconds", "userCount", "messagesSent", "messagesPerSecond", "memoryMb"},
	typeListUsers: {"users"},
	typeError:     {"message"},
	typePong:      nil,
	typeAi:        {"from", "prompt", "response", "responseMs"},
}

// EncodeCommand serializes an outgoing command to its wire frame.
// Construction through the Outgoing helpers guarantees encodability, so
// there is no error path.
func EncodeCommand(out Outgoing) []byte {
	data, err := json.Marshal(out)
	if err != nil {
		// Outgoing holds only strings; Marshal cannot fail on it.
		panic(fmt.Sprintf("encode command: %v", err))
	}
	return data
}

// DecodeFrame parses one inbound text frame. It never fails hard: any
// input that is not a well-formed instance of a known variant degrades to
// a warning result, so a misbehaving or newer server cannot break the
// connection.
func DecodeFrame(text string) DecodeResult {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(text), &fields); err != nil {
		return DecodeResult{Status: DecodeBadPayload, Warning: "Server sent invalid JSON."}
	}

	var typ string
	if raw, ok := fields["type"]; ok {
		if err := json.Unmarshal(raw, &typ); err != nil {
			typ = ""
		}
	}
	if typ == "" {
		return DecodeResult{Status: DecodeNoType, Warning: "Server sent JSON without a valid 'type' field."}
	}

	required, known := requiredFields[typ]
	if !known {
		return DecodeResult{
			Status:  DecodeUnknownType,
			Warning: fmt.Sprintf("Unknown server message type: %s", typ),
		}
	}
	for _, key := range required {
		if _, ok := fields[key]; !ok {
			return malformed(typ)
		}
	}

	var (
		msg Message
		err error
	)
	switch typ {
	case typeChat:
		var v ChatMessage
		err = json.Unmarshal([]byte(text), &v)
		msg = v
	case typeSystem:
		var v SystemMessage
		err = json.Unmarshal([]byte(text), &v)
		msg = v
	case typeAckName:
		var v AckNameMessage
		err = json.Unmarshal([]byte(text), &v)
		msg = v
	case typeStatus:
		var v StatusMessage
		err = json.Unmarshal([]byte(text), &v)
		msg = v
	case typeListUsers:
		var v UserListMessage
		err = json.Unmarshal([]byte(text), &v)
		msg = v
	case typeError:
		var v ErrorMessage
		err = json.Unmarshal([]byte(text), &v)
		msg = v
	case typePong:
		var v PongMessage
		err = json.Unmarshal([]byte(text), &v)
		msg = v
	case typeAi:
		var v AiMessage
		err = json.Unmarshal([]byte(text), &v)
		msg = v
	}
	if err != nil {
		return malformed(typ)
	}
	return DecodeResult{Event: msg, Status: DecodeOK}
}

func malformed(typ string) DecodeResult {
	return DecodeResult{
		Status:  DecodeBadPayload,
		Warning: fmt.Sprintf("Server sent a malformed '%s' message.", typ),
	}
}
