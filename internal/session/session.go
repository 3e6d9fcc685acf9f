// Package session owns exactly one persistent connection to a mission room
// for the lifetime of its consumer. It classifies every inbound frame into
// typed events and exposes a fire-and-forget send. A channel cannot be
// reopened; construct a new one to retry after it has closed.
package session

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/skyward/groundlink/internal/protocol"
	"github.com/skyward/groundlink/pkg/util"
)

// ErrMissingIdentity is returned before any I/O when the room code or
// username is empty after trimming.
var ErrMissingIdentity = errors.New("room code and username are required")

// ErrRoomNotFound is carried by the closing event when the server answers the
// handshake with the room-not-found sentinel.
var ErrRoomNotFound = errors.New("room does not exist")

// State is the lifecycle of a channel. Connecting -> Open -> Closed, with
// Reconnecting entered on transport errors while retry attempts remain.
type State int32

const (
	Connecting State = iota
	Open
	Reconnecting
	Closed
)

func (s State) String() string {
	return [...]string{
		"Connecting",
		"Open",
		"Reconnecting",
		"Closed",
	}[s]
}

// Config holds the connection endpoint and the retry policy.
type Config struct {
	WebSocketURL        string `yaml:"websocket_url"`
	MaxRetryAttempts    int    `yaml:"max_retry_attempts"`
	RetryInitialDelayMS int    `yaml:"retry_initial_delay_ms"`
}

func (c *Config) applyDefaults() {
	if c.MaxRetryAttempts <= 0 {
		c.MaxRetryAttempts = 3
	}
	if c.RetryInitialDelayMS <= 0 {
		c.RetryInitialDelayMS = 500
	}
}

// EventKind discriminates the events a channel delivers.
type EventKind int

const (
	EventOpen EventKind = iota
	EventChat
	EventMembers
	EventRoomNotFound
	EventReconnecting
	EventClosed
)

func (k EventKind) String() string {
	return [...]string{
		"Open",
		"Chat",
		"Members",
		"Room Not Found",
		"Reconnecting",
		"Closed",
	}[k]
}

// Event is one classified occurrence on the channel. Message is set for
// EventChat, Count for EventMembers, Attempt for EventReconnecting and Err
// for EventClosed.
type Event struct {
	Kind    EventKind
	Message Message
	Count   int
	Attempt int
	Err     error
}

// Message is a single chat line. IsOwn is attribution by sender identity:
// the envelope's sender field when the server tags frames, or the sender
// split from a legacy "<sender>: <body>" line otherwise. Both sides of the
// comparison are NFC-normalized.
type Message struct {
	ID        string
	Sender    string
	Text      string
	Timestamp string
	IsOwn     bool
}

// Channel is one room membership over one logical connection.
type Channel struct {
	cfg      Config
	roomCode string
	username string
	normUser string

	mu   sync.Mutex // guards conn and serializes writes
	conn *websocket.Conn

	state   atomic.Int32
	members atomic.Int32

	events    chan Event
	done      chan struct{}
	closeOnce sync.Once
}

// Dial opens a channel to the given room. Both identifiers must be non-empty
// after trimming; that is checked before any I/O. Dial blocks until the
// handshake succeeds or the retry budget is spent.
func Dial(cfg Config, roomCode, username string) (*Channel, error) {
	roomCode = strings.TrimSpace(roomCode)
	username = strings.TrimSpace(username)
	if roomCode == "" || username == "" {
		return nil, ErrMissingIdentity
	}
	cfg.applyDefaults()

	ch := &Channel{
		cfg:      cfg,
		roomCode: roomCode,
		username: username,
		normUser: util.NormalizeName(username),
		events:   make(chan Event, 64),
		done:     make(chan struct{}),
	}
	ch.state.Store(int32(Connecting))

	conn, err := ch.connect(true)
	if err != nil {
		ch.state.Store(int32(Closed))
		return nil, err
	}

	ch.mu.Lock()
	ch.conn = conn
	ch.mu.Unlock()
	ch.state.Store(int32(Open))
	ch.emit(Event{Kind: EventOpen})

	go ch.readLoop(conn)
	return ch, nil
}

// Events delivers classified events in the order frames arrived (FIFO per
// channel). The channel is never closed; EventClosed is the terminal event.
func (ch *Channel) Events() <-chan Event { return ch.events }

// Done is closed when the channel reaches Closed.
func (ch *Channel) Done() <-chan struct{} { return ch.done }

func (ch *Channel) State() State     { return State(ch.state.Load()) }
func (ch *Channel) Members() int     { return int(ch.members.Load()) }
func (ch *Channel) RoomCode() string { return ch.roomCode }
func (ch *Channel) Username() string { return ch.username }

// Send writes a chat line. It is a deliberate no-op, not an error, when the
// channel is not Open or the trimmed text is empty: the caller is expected
// to disable sending instead of handling a failure. Delivery is
// fire-and-forget.
func (ch *Channel) Send(text string) error {
	text = strings.TrimSpace(text)
	if text == "" || ch.State() != Open {
		return nil
	}

	ch.mu.Lock()
	defer ch.mu.Unlock()
	if ch.conn == nil {
		return nil
	}
	if err := ch.conn.WriteMessage(websocket.TextMessage, []byte(text)); err != nil {
		return fmt.Errorf("send to room %s: %w", ch.roomCode, err)
	}
	return nil
}

// Close releases the connection and stops event delivery. Idempotent, and
// required on every exit path of the owning consumer, including mid-handshake
// and error paths.
func (ch *Channel) Close() {
	ch.shutdown(nil)
}

func (ch *Channel) endpoint() string {
	return fmt.Sprintf("%s/ws/%s/%s", ch.cfg.WebSocketURL,
		url.PathEscape(ch.roomCode), url.PathEscape(ch.username))
}

// connect dials with exponential backoff. On the initial handshake the first
// attempt is silent; every retry attempt is announced with an EventReconnecting.
func (ch *Channel) connect(initial bool) (*websocket.Conn, error) {
	delay := time.Duration(ch.cfg.RetryInitialDelayMS) * time.Millisecond
	var lastErr error

	for attempt := 1; attempt <= ch.cfg.MaxRetryAttempts; attempt++ {
		if attempt > 1 || !initial {
			ch.emit(Event{Kind: EventReconnecting, Attempt: attempt})
		}
		if attempt > 1 {
			select {
			case <-ch.done:
				return nil, errors.New("channel closed during retry")
			case <-time.After(delay):
			}
			delay *= 2
		}

		conn, _, err := websocket.DefaultDialer.Dial(ch.endpoint(), nil)
		if err == nil {
			return conn, nil
		}
		lastErr = err
		log.Printf("session: connect attempt %d/%d to room %s failed: %v",
			attempt, ch.cfg.MaxRetryAttempts, ch.roomCode, err)
	}

	return nil, fmt.Errorf("connect to room %s: %w", ch.roomCode, lastErr)
}

func (ch *Channel) readLoop(conn *websocket.Conn) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			select {
			case <-ch.done:
				// Explicit close or sentinel shutdown already ran.
				return
			default:
			}

			if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Printf("session: room %s connection closed by server", ch.roomCode)
				ch.shutdown(nil)
				return
			}

			ch.state.Store(int32(Reconnecting))
			next, rerr := ch.connect(false)
			if rerr != nil {
				ch.shutdown(err)
				return
			}
			ch.mu.Lock()
			ch.conn = next
			ch.mu.Unlock()
			ch.state.Store(int32(Open))
			ch.emit(Event{Kind: EventOpen})
			conn = next
			continue
		}

		if ch.handleFrame(raw) {
			return
		}
	}
}

// handleFrame classifies one inbound frame. Returns true when the frame
// terminated the session.
func (ch *Channel) handleFrame(raw []byte) bool {
	kind, env := protocol.Classify(raw)

	switch kind {
	case protocol.KindSentinel:
		ch.emit(Event{Kind: EventRoomNotFound})
		ch.shutdown(ErrRoomNotFound)
		return true

	case protocol.KindMembersUpdate:
		// Replace, never accumulate.
		ch.members.Store(int32(env.Count))
		ch.emit(Event{Kind: EventMembers, Count: env.Count})

	case protocol.KindTaggedChat:
		ch.emit(Event{Kind: EventChat, Message: ch.message(env.Sender, env.Body)})

	case protocol.KindPlainChat:
		sender, body, _ := protocol.SplitSenderLine(env.Body)
		ch.emit(Event{Kind: EventChat, Message: ch.message(sender, body)})
	}

	return false
}

func (ch *Channel) message(sender, text string) Message {
	return Message{
		ID:        uuid.NewString(),
		Sender:    sender,
		Text:      text,
		Timestamp: time.Now().Format("15:04"),
		IsOwn:     sender != "" && util.NormalizeName(sender) == ch.normUser,
	}
}

func (ch *Channel) shutdown(err error) {
	ch.closeOnce.Do(func() {
		ch.state.Store(int32(Closed))
		ch.emit(Event{Kind: EventClosed, Err: err})
		close(ch.done)

		ch.mu.Lock()
		if ch.conn != nil {
			ch.conn.WriteMessage(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
			ch.conn.Close()
		}
		ch.mu.Unlock()
	})
}

// emit never blocks the read loop: a consumer that stops draining loses
// events rather than stalling frame processing.
func (ch *Channel) emit(ev Event) {
	select {
	case ch.events <- ev:
	default:
		log.Printf("session: dropping %v event, consumer not keeping up", ev.Kind)
	}
}
