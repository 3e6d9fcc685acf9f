package missionserver

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/skyward/groundlink/internal/protocol"
)

func startTest(t *testing.T, legacy bool) (*Server, string) {
	t.Helper()
	srv := New(Config{LegacyLines: legacy})
	ts := httptest.NewServer(srv.Router())
	t.Cleanup(ts.Close)
	return srv, "ws" + strings.TrimPrefix(ts.URL, "http")
}

func dialWS(t *testing.T, wsBase, room, user string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(wsBase+"/ws/"+room+"/"+user, nil)
	if err != nil {
		t.Fatalf("dial %s as %s: %v", room, user, err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) []byte {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read frame: %v", err)
	}
	return raw
}

func TestUnknownRoomGetsSentinel(t *testing.T) {
	_, wsBase := startTest(t, false)

	conn := dialWS(t, wsBase, "GHOST", "scout")
	if raw := readFrame(t, conn); string(raw) != protocol.NoRoomSentinel {
		t.Fatalf("frame = %q, want sentinel", raw)
	}

	// The server closes right after the sentinel.
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Fatal("expected connection to be closed after sentinel")
	}
}

func TestMembersUpdateOnJoinAndLeave(t *testing.T) {
	srv, wsBase := startTest(t, false)
	srv.AddRoom("ALPHA1")

	a := dialWS(t, wsBase, "ALPHA1", "alice")
	if kind, env := protocol.Classify(readFrame(t, a)); kind != protocol.KindMembersUpdate || env.Count != 1 {
		t.Fatalf("first frame = %v/%d, want members_update/1", kind, env.Count)
	}

	b := dialWS(t, wsBase, "ALPHA1", "bob")
	if kind, env := protocol.Classify(readFrame(t, a)); kind != protocol.KindMembersUpdate || env.Count != 2 {
		t.Fatalf("join broadcast = %v/%d, want members_update/2", kind, env.Count)
	}

	b.Close()
	if kind, env := protocol.Classify(readFrame(t, a)); kind != protocol.KindMembersUpdate || env.Count != 1 {
		t.Fatalf("leave broadcast = %v/%d, want members_update/1", kind, env.Count)
	}
}

func TestChatRelayTagged(t *testing.T) {
	srv, wsBase := startTest(t, false)
	srv.AddRoom("ALPHA1")

	a := dialWS(t, wsBase, "ALPHA1", "alice")
	readFrame(t, a) // members 1
	b := dialWS(t, wsBase, "ALPHA1", "bob")
	readFrame(t, a) // members 2
	readFrame(t, b) // members 2

	if err := a.WriteMessage(websocket.TextMessage, []byte("  hello  ")); err != nil {
		t.Fatalf("write: %v", err)
	}

	for _, conn := range []*websocket.Conn{a, b} {
		kind, env := protocol.Classify(readFrame(t, conn))
		if kind != protocol.KindTaggedChat {
			t.Fatalf("relayed frame kind = %v, want tagged chat", kind)
		}
		if env.Sender != "alice" || env.Body != "hello" {
			t.Fatalf("relayed envelope = %+v, want alice/hello (trimmed)", env)
		}
	}
}

func TestChatRelayLegacyLines(t *testing.T) {
	srv, wsBase := startTest(t, true)
	srv.AddRoom("ALPHA1")

	a := dialWS(t, wsBase, "ALPHA1", "scout")
	readFrame(t, a) // members 1

	if err := a.WriteMessage(websocket.TextMessage, []byte("status green")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if raw := readFrame(t, a); string(raw) != "scout: status green" {
		t.Fatalf("relayed line = %q, want legacy form", raw)
	}
}

func TestAllocateCodeIsFiveDigitsAndRegistered(t *testing.T) {
	srv, _ := startTest(t, false)

	code := srv.allocateCode()
	if len(code) != 5 {
		t.Fatalf("code = %q, want 5 digits", code)
	}
	if !srv.store.Exists(code) {
		t.Fatalf("allocated code %q not registered", code)
	}
}
