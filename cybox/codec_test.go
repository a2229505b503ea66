package cybox

import (
	"strings"
	"testing"
)

func TestEncodeCommandFrames(t *testing.T) {
	cases := []struct {
		name string
		out  Outgoing
		want string
	}{
		{"chat", Chat("Hallo"), `{"type":"chat","text":"Hallo"}`},
		{"setName", SetName("Bas"), `{"type":"setName","name":"Bas"}`},
		{"status", Status(), `{"type":"status"}`},
		{"listUsers", ListUsers(), `{"type":"listUsers"}`},
		{"ping no token", Ping(""), `{"type":"ping"}`},
		{"ping token", Ping("tok1"), `{"type":"ping","token":"tok1"}`},
		{"ai", Ai("why?"), `{"type":"ai","prompt":"why?"}`},
	}
	for _, tc := range cases {
		if got := string(EncodeCommand(tc.out)); got != tc.want {
			t.Fatalf("%s: got %s want %s", tc.name, got, tc.want)
		}
	}
}

func TestDecodeChatWithTimestamp(t *testing.T) {
	res := DecodeFrame(`{"type":"chat","from":"Bas","text":"Hallo","at":1733312410000}`)
	if res.Status != DecodeOK {
		t.Fatalf("unexpected status %v (%s)", res.Status, res.Warning)
	}
	chat, ok := res.Event.(ChatMessage)
	if !ok {
		t.Fatalf("expected ChatMessage, got %T", res.Event)
	}
	if chat.From != "Bas" || chat.Text != "Hallo" {
		t.Fatalf("unexpected payload: %+v", chat)
	}
	if chat.At == nil || *chat.At != 1733312410000 {
		t.Fatalf("expected at=1733312410000, got %v", chat.At)
	}
}

func TestDecodeChatWithoutTimestamp(t *testing.T) {
	res := DecodeFrame(`{"type":"chat","from":"Bas","text":"Hallo"}`)
	if res.Status != DecodeOK {
		t.Fatalf("unexpected status %v", res.Status)
	}
	if chat := res.Event.(ChatMessage); chat.At != nil {
		t.Fatalf("expected nil at, got %v", *chat.At)
	}
}

func TestDecodeUnknownType(t *testing.T) {
	res := DecodeFrame(`{"type":"newFeature","foo":"bar"}`)
	if res.Status != DecodeUnknownType {
		t.Fatalf("unexpected status %v", res.Status)
	}
	if !strings.Contains(res.Warning, "newFeature") {
		t.Fatalf("warning should name the type: %q", res.Warning)
	}
}

func TestDecodeInvalidJSON(t *testing.T) {
	res := DecodeFrame("definitely not json")
	if res.Status != DecodeBadPayload {
		t.Fatalf("unexpected status %v", res.Status)
	}
	if !strings.Contains(res.Warning, "invalid JSON") {
		t.Fatalf("unexpected warning %q", res.Warning)
	}
}

func TestDecodeMissingDiscriminant(t *testing.T) {
	for _, frame := range []string{`{"foo":"bar"}`, `{"type":42}`, `[1,2,3]`} {
		res := DecodeFrame(frame)
		if res.Status == DecodeOK {
			t.Fatalf("frame %s should not decode", frame)
		}
		if res.Status == DecodeUnknownType {
			t.Fatalf("frame %s has no usable discriminant", frame)
		}
	}
}

func TestDecodeMissingRequiredField(t *testing.T) {
	res := DecodeFrame(`{"type":"chat","from":"Bas"}`)
	if res.Status != DecodeBadPayload {
		t.Fatalf("unexpected status %v (%s)", res.Status, res.Warning)
	}
	if !strings.Contains(res.Warning, "chat") {
		t.Fatalf("warning should name the variant: %q", res.Warning)
	}
}

func TestDecodeStatusFullAndMinimal(t *testing.T) {
	full := `{"type":"status","version":"1.4.0","os":"linux","cpuCores":8,` +
		`"uptimeSeconds":7200,"userCount":3,"peakUsers":11,"connectionsTotal":250,` +
		`"messagesSent":9000,"messagesPerSecond":1.5,"memoryMb":42.25,` +
		`"aiEnabled":true,"aiModel":"gpt-4o-mini","at":1733312410000}`
	res := DecodeFrame(full)
	if res.Status != DecodeOK {
		t.Fatalf("full status: %v (%s)", res.Status, res.Warning)
	}
	st := res.Event.(StatusMessage)
	if st.Version != "1.4.0" || st.UptimeSeconds != 7200 || st.UserCount != 3 {
		t.Fatalf("unexpected status: %+v", st)
	}
	if st.OS == nil || *st.OS != "linux" || st.PeakUsers == nil || *st.PeakUsers != 11 {
		t.Fatalf("optional fields lost: %+v", st)
	}

	minimal := `{"type":"status","version":"0.9","uptimeSeconds":5,"userCount":1,` +
		`"messagesSent":2,"messagesPerSecond":0,"memoryMb":10}`
	res = DecodeFrame(minimal)
	if res.Status != DecodeOK {
		t.Fatalf("minimal status: %v (%s)", res.Status, res.Warning)
	}
	st = res.Event.(StatusMessage)
	if st.OS != nil || st.CPUCores != nil || st.AIEnabled != nil || st.At != nil {
		t.Fatalf("absent optionals should be nil: %+v", st)
	}
}

func TestDecodeUserList(t *testing.T) {
	res := DecodeFrame(`{"type":"listUsers","users":[{"id":"u1","name":"Bas","ip":"10.0.0.2"}]}`)
	if res.Status != DecodeOK {
		t.Fatalf("unexpected status %v", res.Status)
	}
	list := res.Event.(UserListMessage)
	if len(list.Users) != 1 || list.Users[0] != (UserInfo{ID: "u1", Name: "Bas", IP: "10.0.0.2"}) {
		t.Fatalf("unexpected users: %+v", list.Users)
	}
}

func TestDecodePongTokenOptional(t *testing.T) {
	res := DecodeFrame(`{"type":"pong"}`)
	if res.Status != DecodeOK {
		t.Fatalf("unexpected status %v", res.Status)
	}
	if pong := res.Event.(PongMessage); pong.Token != nil {
		t.Fatalf("expected nil token, got %q", *pong.Token)
	}

	res = DecodeFrame(`{"type":"pong","token":"tok1"}`)
	pong := res.Event.(PongMessage)
	if pong.Token == nil || *pong.Token != "tok1" {
		t.Fatalf("token lost: %+v", pong)
	}
}

// A ping the client encodes must round-trip through a server that echoes
// the token back in a pong.
func TestPingPongTokenSymmetry(t *testing.T) {
	frame := string(EncodeCommand(Ping("tok-42")))
	if frame != `{"type":"ping","token":"tok-42"}` {
		t.Fatalf("unexpected ping frame %s", frame)
	}
	res := DecodeFrame(`{"type":"pong","token":"tok-42"}`)
	if res.Status != DecodeOK {
		t.Fatalf("unexpected status %v", res.Status)
	}
	if pong := res.Event.(PongMessage); pong.Token == nil || *pong.Token != "tok-42" {
		t.Fatalf("token mismatch: %+v", res.Event)
	}
}

func TestDecodeAiReply(t *testing.T) {
	res := DecodeFrame(`{"type":"ai","from":"Bas","prompt":"waarom?","response":"daarom","responseMs":812,"tokens":31,"cost":0.0042}`)
	if res.Status != DecodeOK {
		t.Fatalf("unexpected status %v (%s)", res.Status, res.Warning)
	}
	ai := res.Event.(AiMessage)
	if ai.ResponseMS != 812 || ai.Tokens == nil || *ai.Tokens != 31 || ai.Cost == nil {
		t.Fatalf("unexpected ai payload: %+v", ai)
	}
}
