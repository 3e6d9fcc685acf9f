package protocol

import "testing"

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		kind Kind
		env  Envelope
	}{
		{
			name: "sentinel",
			raw:  "NO ROOM EXISTS",
			kind: KindSentinel,
		},
		{
			name: "members update",
			raw:  `{"type": "members_update", "count": 5}`,
			kind: KindMembersUpdate,
			env:  Envelope{Type: TypeMembersUpdate, Count: 5},
		},
		{
			name: "tagged chat",
			raw:  `{"type": "chat", "sender": "alice", "body": "hello"}`,
			kind: KindTaggedChat,
			env:  Envelope{Type: TypeChat, Sender: "alice", Body: "hello"},
		},
		{
			name: "legacy line",
			raw:  "alice: hello",
			kind: KindPlainChat,
			env:  Envelope{Body: "alice: hello"},
		},
		{
			name: "malformed json is chat, not an error",
			raw:  `{"type": "members_update", "count":`,
			kind: KindPlainChat,
			env:  Envelope{Body: `{"type": "members_update", "count":`},
		},
		{
			name: "json with unknown type is chat",
			raw:  `{"type": "weather", "body": "sunny"}`,
			kind: KindPlainChat,
			env:  Envelope{Body: `{"type": "weather", "body": "sunny"}`},
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			kind, env := Classify([]byte(tc.raw))
			if kind != tc.kind {
				t.Fatalf("%s: kind = %v, want %v", tc.name, kind, tc.kind)
			}
			if kind == KindMembersUpdate && env.Count != tc.env.Count {
				t.Fatalf("%s: count = %d, want %d", tc.name, env.Count, tc.env.Count)
			}
			if kind == KindTaggedChat && (env.Sender != tc.env.Sender || env.Body != tc.env.Body) {
				t.Fatalf("%s: envelope = %+v, want %+v", tc.name, env, tc.env)
			}
			if kind == KindPlainChat && env.Body != tc.env.Body {
				t.Fatalf("%s: body = %q, want %q", tc.name, env.Body, tc.env.Body)
			}
		})
	}
}

func TestSplitSenderLine(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		sender string
		body   string
		ok     bool
	}{
		{name: "simple", line: "alice: hello", sender: "alice", body: "hello", ok: true},
		{name: "colon in body", line: "alice: eta: 5 min", sender: "alice", body: "eta: 5 min", ok: true},
		{name: "no sender", line: "just text", sender: "", body: "just text", ok: false},
		{name: "leading colon", line: ": odd", sender: "", body: ": odd", ok: false},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			sender, body, ok := SplitSenderLine(tc.line)
			if sender != tc.sender || body != tc.body || ok != tc.ok {
				t.Fatalf("%s: got (%q, %q, %v), want (%q, %q, %v)",
					tc.name, sender, body, ok, tc.sender, tc.body, tc.ok)
			}
		})
	}
}
