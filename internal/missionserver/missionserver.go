// Package missionserver implements the room directory and chat relay the
// groundlink client talks to: room creation, room existence checks, and a
// room-scoped websocket endpoint. It doubles as the in-process server the
// client packages test against.
package missionserver

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	log "github.com/sirupsen/logrus"

	"github.com/skyward/groundlink/internal/protocol"
)

var upgrader = websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}

// Config holds the listen address and the relay format. LegacyLines relays
// chat as bare "user: text" lines for older clients instead of tagged
// envelopes.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	LegacyLines bool   `yaml:"legacy_lines"`
}

type Server struct {
	cfg   Config
	store RoomStore
	hub   *hub
}

func New(cfg Config) *Server {
	s := &Server{
		cfg:   cfg,
		store: newMemoryRoomStore(),
		hub:   newHub(),
	}
	go s.hub.run()
	return s
}

// Router exposes the full route set; tests mount it on an httptest server.
func (s *Server) Router() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/create_room", s.handleCreateRoom).Methods(http.MethodPost)
	r.HandleFunc("/check_room/{code}", s.handleCheckRoom).Methods(http.MethodGet)
	r.HandleFunc("/ws/{room_code}/{username}", s.handleWS)
	return r
}

// Start serves the router on the configured address. It returns the
// *http.Server so the caller can shut it down when desired.
func (s *Server) Start() *http.Server {
	srv := &http.Server{Addr: s.cfg.ListenAddr, Handler: s.Router()}
	go func() {
		log.Printf("missionserver: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Printf("missionserver: ListenAndServe error: %v", err)
		}
	}()
	return srv
}

func (s *Server) handleCreateRoom(w http.ResponseWriter, r *http.Request) {
	code := s.allocateCode()
	log.Printf("missionserver: created room %s", code)
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (s *Server) handleCheckRoom(w http.ResponseWriter, r *http.Request) {
	code := mux.Vars(r)["code"]
	if !s.store.Exists(code) {
		writeJSON(w, http.StatusNotFound, map[string]string{"detail": protocol.NoRoomSentinel})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"code": code})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	room, user := vars["room_code"], vars["username"]

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("missionserver: websocket upgrade error: %v", err)
		return
	}

	// The room is verified after the upgrade so the refusal can travel as
	// an in-band sentinel frame.
	if !s.store.Exists(room) {
		conn.WriteMessage(websocket.TextMessage, []byte(protocol.NoRoomSentinel))
		conn.Close()
		return
	}

	c := &client{room: room, user: user, send: make(chan []byte, 16), conn: conn}
	s.hub.register <- c
	go c.writePump()

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			break
		}
		text := strings.TrimSpace(string(msg))
		if text == "" {
			continue
		}
		s.hub.broadcast <- roomMessage{room: room, data: s.relayFrame(user, text)}
	}

	s.hub.unregister <- c
}

func (s *Server) relayFrame(user, text string) []byte {
	if s.cfg.LegacyLines {
		return []byte(protocol.FormatLegacyLine(user, text))
	}
	data, err := json.Marshal(protocol.Envelope{Type: protocol.TypeChat, Sender: user, Body: text})
	if err != nil {
		// Envelope fields are plain strings; this cannot fail in practice.
		log.Printf("missionserver: marshaling chat envelope: %v", err)
		return []byte(protocol.FormatLegacyLine(user, text))
	}
	return data
}

// allocateCode draws 5-digit codes until one is free, then registers it.
func (s *Server) allocateCode() string {
	for {
		code := fmt.Sprintf("%05d", rand.Intn(100000))
		if !s.store.Exists(code) {
			s.store.Add(code)
			return code
		}
	}
}

// AddRoom registers a known room code directly; tests use it to pin codes.
func (s *Server) AddRoom(code string) {
	s.store.Add(code)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}
