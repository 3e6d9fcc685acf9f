// Package protocol defines the wire format shared by the session channel
// client and the mission server: the room-not-found sentinel, the tagged
// control/chat envelope, and the classification of raw inbound frames.
package protocol

import (
	"encoding/json"
	"strings"
)

// NoRoomSentinel is sent by the server as a bare text frame when a client
// connects to a room code that does not exist. It terminates the session.
const NoRoomSentinel = "NO ROOM EXISTS"

// Envelope types.
const (
	TypeMembersUpdate = "members_update"
	TypeChat          = "chat"
)

// Envelope is the tagged frame format. members_update carries Count; chat
// carries Sender and Body. Legacy servers relay chat as bare
// "<sender>: <body>" lines instead, which Classify falls back to.
type Envelope struct {
	Type   string `json:"type"`
	Count  int    `json:"count,omitempty"`
	Sender string `json:"sender,omitempty"`
	Body   string `json:"body,omitempty"`
}

// Kind is the classification of a single inbound frame.
type Kind int

const (
	KindSentinel Kind = iota
	KindMembersUpdate
	KindTaggedChat
	KindPlainChat
)

func (k Kind) String() string {
	return [...]string{
		"Sentinel",
		"Members Update",
		"Tagged Chat",
		"Plain Chat",
	}[k]
}

// Classify evaluates a raw frame in order: the sentinel literal first, then
// a tagged envelope, then plain chat text. A JSON parse failure is not an
// error here, it is just evidence the frame was not an envelope.
func Classify(raw []byte) (Kind, Envelope) {
	if string(raw) == NoRoomSentinel {
		return KindSentinel, Envelope{}
	}

	var env Envelope
	if err := json.Unmarshal(raw, &env); err == nil {
		switch env.Type {
		case TypeMembersUpdate:
			return KindMembersUpdate, env
		case TypeChat:
			return KindTaggedChat, env
		}
		// JSON but not a recognized envelope type: treat as chat text.
	}

	return KindPlainChat, Envelope{Body: string(raw)}
}

// SplitSenderLine splits a legacy "<sender>: <body>" chat line. ok is false
// when the line carries no sender prefix, in which case body is the whole
// line.
func SplitSenderLine(line string) (sender, body string, ok bool) {
	i := strings.Index(line, ":")
	if i <= 0 {
		return "", line, false
	}
	return line[:i], strings.TrimSpace(line[i+1:]), true
}

// FormatLegacyLine renders a chat message in the legacy relay form.
func FormatLegacyLine(sender, body string) string {
	return sender + ": " + body
}
