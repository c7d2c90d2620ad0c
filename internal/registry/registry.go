// Package registry is the coordinator: the room table and the connection
// registry the spec's transport design notes call for (§5, §9). It is the
// only place a table lock is taken — once a room is found, all further
// mutation happens on that room's own goroutine. Adapted from the
// teacher's matchmaker (internal/matchmaker/matchmaker.go), with the
// auto-matchmaking "find or create" behavior removed: rooms here are
// addressed by a client-supplied code, never auto-assigned.
package registry

import (
	"crypto/rand"
	"encoding/hex"
	"sync"

	"github.com/rs/zerolog"

	"github.com/platformco/coop-server/config"
	"github.com/platformco/coop-server/internal/game"
	"github.com/platformco/coop-server/internal/network"
)

// Sender abstracts the one operation the registry needs from a live
// connection: write a raw frame to it. The websocket-specific bits (the
// *websocket.Conn, its write pump, ping/pong) live in cmd/server, which
// implements this interface.
type Sender interface {
	Send(raw []byte) error
	Close()
}

type connEntry struct {
	connID   string
	roomCode string
	playerID string
	sender   Sender
}

// Hub owns the room table and the connection registry, and implements
// game.Transport so rooms can reach back out to live sockets without
// knowing anything about websockets.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*game.Room
	conns map[string]*connEntry

	cfg    *config.ServerConfig
	codec  *network.Codec
	logger zerolog.Logger
}

// NewHub constructs an empty Hub.
func NewHub(cfg *config.ServerConfig, logger zerolog.Logger) *Hub {
	return &Hub{
		rooms:  make(map[string]*game.Room),
		conns:  make(map[string]*connEntry),
		cfg:    cfg,
		codec:  network.NewCodec(),
		logger: logger,
	}
}

// CreateRoom creates a new room under the given code, generating one if
// the client didn't supply one, and starts its owning goroutine. Returns
// game.ErrRoomExists if the code is already taken.
func (h *Hub) CreateRoom(roomCode string, maxPlayers int, hostID, hostName string) (*game.Room, error) {
	if maxPlayers < config.MinPlayersPerRoom || maxPlayers > config.MaxPlayersPerRoom {
		return nil, game.ErrBadMaxPlayers
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if roomCode == "" {
		roomCode = generateRoomCode()
		for _, exists := h.rooms[roomCode]; exists; _, exists = h.rooms[roomCode] {
			roomCode = generateRoomCode()
		}
	} else if _, exists := h.rooms[roomCode]; exists {
		return nil, game.ErrRoomExists
	}

	room := game.NewRoom(roomCode, maxPlayers, hostID, hostName, h.cfg, h, h.logger)
	h.rooms[roomCode] = room
	go room.Run()

	return room, nil
}

// Stats reports the live room and connection counts for the health
// endpoint (spec §6).
func (h *Hub) Stats() (rooms, players int) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms), len(h.conns)
}

// GetRoom looks up a room by code.
func (h *Hub) GetRoom(roomCode string) (*game.Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[roomCode]
	return r, ok
}

// RegisterConnection binds a live connection handle to a room and player,
// so SendToConnection and EvictStaleConnections can later reach it.
func (h *Hub) RegisterConnection(connID, roomCode, playerID string, sender Sender) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[connID] = &connEntry{connID: connID, roomCode: roomCode, playerID: playerID, sender: sender}
}

// RemoveConnection unregisters a connection (socket closed) and notifies
// its room so the room can arm the disconnect-grace timer.
func (h *Hub) RemoveConnection(connID string) {
	h.mu.Lock()
	entry, ok := h.conns[connID]
	if ok {
		delete(h.conns, connID)
	}
	h.mu.Unlock()

	if !ok {
		return
	}
	if room, found := h.GetRoom(entry.roomCode); found {
		room.Submit(game.Command{Kind: game.CmdDisconnect, ConnID: connID, PlayerID: entry.playerID})
	}
}

// CleanupClosedRooms sweeps the table for rooms whose owning goroutine
// has already stopped (self-stopped on going empty — see
// Room.handleGraceExpired) and removes them. Safe to call periodically;
// reading Room.Closed() never races the room's own goroutine.
func (h *Hub) CleanupClosedRooms() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	removed := 0
	for code, room := range h.rooms {
		select {
		case <-room.Closed():
			delete(h.rooms, code)
			removed++
		default:
		}
	}
	return removed
}

// --- game.Transport ------------------------------------------------

func (h *Hub) BroadcastRoomState(room *game.Room) {
	data, err := h.codec.EncodeRoomState(room.ViewRoomState())
	if err != nil {
		h.logger.Error().Err(err).Str("room_code", room.Code).Msg("encode roomState failed")
		return
	}
	h.broadcastRoom(room.Code, data)
}

func (h *Hub) BroadcastGameState(room *game.Room) {
	data, err := h.codec.EncodeGameState(room.GameState)
	if err != nil {
		h.logger.Error().Err(err).Str("room_code", room.Code).Msg("encode gameState failed")
		return
	}
	h.broadcastRoom(room.Code, data)
}

// BroadcastStartGame sends the no-payload startGame kickoff notification to
// every member once the host's startGameNow is accepted (spec §4.6).
func (h *Hub) BroadcastStartGame(room *game.Room) {
	data, err := h.codec.EncodeEvent(network.EventStartGame, struct{}{})
	if err != nil {
		h.logger.Error().Err(err).Str("room_code", room.Code).Msg("encode startGame failed")
		return
	}
	h.broadcastRoom(room.Code, data)
}

// SendToConnection encodes payload under event and delivers it to one
// connection. A string payload is a plain denial message and gets wrapped
// as {"message": ...}; anything else (e.g. a joinSuccess struct) is encoded
// as-is.
func (h *Hub) SendToConnection(connID, event string, payload interface{}) {
	body := payload
	if msg, ok := payload.(string); ok {
		body = map[string]string{"message": msg}
	}
	data, err := h.codec.EncodeEvent(event, body)
	if err != nil {
		h.logger.Error().Err(err).Str("event", event).Msg("encode event failed")
		return
	}
	h.mu.RLock()
	entry, ok := h.conns[connID]
	h.mu.RUnlock()
	if !ok {
		return
	}
	if err := entry.sender.Send(data); err != nil {
		h.logger.Debug().Err(err).Str("conn_id", connID).Msg("send failed")
	}
}

func (h *Hub) EvictStaleConnections(roomCode, playerID, keepConnID string) {
	h.mu.Lock()
	var stale []*connEntry
	for id, entry := range h.conns {
		if entry.roomCode == roomCode && entry.playerID == playerID && id != keepConnID {
			stale = append(stale, entry)
			delete(h.conns, id)
		}
	}
	h.mu.Unlock()

	for _, entry := range stale {
		entry.sender.Close()
	}
}

func (h *Hub) broadcastRoom(roomCode string, data []byte) {
	h.mu.RLock()
	targets := make([]*connEntry, 0, len(h.conns))
	for _, entry := range h.conns {
		if entry.roomCode == roomCode {
			targets = append(targets, entry)
		}
	}
	h.mu.RUnlock()

	for _, entry := range targets {
		if err := entry.sender.Send(data); err != nil {
			h.logger.Debug().Err(err).Str("conn_id", entry.connID).Msg("broadcast send failed")
		}
	}
}

func generateRoomCode() string {
	b := make([]byte, 4)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
