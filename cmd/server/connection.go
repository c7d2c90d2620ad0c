package main

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/platformco/coop-server/config"
	"github.com/platformco/coop-server/internal/game"
	"github.com/platformco/coop-server/internal/network"
	"github.com/platformco/coop-server/internal/registry"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingInterval   = 30 * time.Second
	maxMessageSize = 4096
)

// clientConnection is one live websocket, identified by a server-minted
// handle distinct from the client-supplied playerId (spec §1). Adapted
// from the teacher's ClientConnection (cmd/gameserver/main.go): same
// read/write-pump split, JSON envelopes instead of binary frames.
type clientConnection struct {
	id     string
	ws     *websocket.Conn
	hub    *registry.Hub
	codec  *network.Codec
	logger zerolog.Logger

	room     *game.Room
	playerID string

	sendChan chan []byte
	done     chan struct{}
}

// Send queues a frame for the write pump. Non-blocking: a full buffer
// drops the message rather than stalling the room's broadcast loop over
// one slow client (spec §7 — transport faults are best-effort).
func (c *clientConnection) Send(data []byte) error {
	select {
	case c.sendChan <- data:
		return nil
	case <-c.done:
		return websocket.ErrCloseSent
	default:
		return nil
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *clientConnection) Close() {
	select {
	case <-c.done:
	default:
		close(c.done)
	}
}

func handleWebSocket(hub *registry.Hub, cfg *config.ServerConfig, logger zerolog.Logger) http.HandlerFunc {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || !cfg.IsProduction() {
				return true
			}
			for _, o := range cfg.AllowedOrigins() {
				if o == origin {
					return true
				}
			}
			return hasVercelSuffix(origin)
		},
	}

	return func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logger.Debug().Err(err).Msg("websocket upgrade failed")
			return
		}

		connID := uuid.NewString()
		conn := &clientConnection{
			id:       connID,
			ws:       ws,
			hub:      hub,
			codec:    network.NewCodec(),
			logger:   logger.With().Str("conn_id", connID).Logger(),
			sendChan: make(chan []byte, 256),
			done:     make(chan struct{}),
		}

		go conn.writePump()
		go conn.readPump()
	}
}

func (c *clientConnection) writePump() {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.cleanup()

	for {
		select {
		case <-c.done:
			return
		case msg := <-c.sendChan:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *clientConnection) readPump() {
	defer c.cleanup()

	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Debug().Err(err).Msg("websocket read error")
			}
			return
		}
		c.handleFrame(data)
	}
}

func (c *clientConnection) handleFrame(raw []byte) {
	env, err := c.codec.DecodeEnvelope(raw)
	if err != nil {
		return
	}

	switch env.Type {
	case network.EventCreateRoom:
		c.handleCreateRoom(env)
	case network.EventJoinRoom:
		c.handleJoinRoom(env)
	default:
		if c.room == nil {
			return
		}
		cmd, err := c.codec.DecodeCommand(env, c.id)
		if err != nil {
			return
		}
		c.room.Submit(cmd)
	}
}

func (c *clientConnection) handleCreateRoom(env network.Envelope) {
	payload, err := c.codec.DecodeCreateRoom(env)
	if err != nil {
		return
	}

	room, err := c.hub.CreateRoom(payload.RoomCode, payload.MaxPlayers, payload.PlayerID, payload.PlayerName)
	if err != nil {
		c.sendError(network.EventCreateDenied, err.Error())
		return
	}

	c.room = room
	c.playerID = payload.PlayerID
	c.hub.RegisterConnection(c.id, room.Code, c.playerID, c)

	if data, err := c.codec.EncodeJoinSuccess(room.Code, payload.PlayerID, 1, "room created"); err == nil {
		_ = c.Send(data)
	}
	if data, err := c.codec.EncodeRoomState(room.ViewRoomState()); err == nil {
		_ = c.Send(data)
	}
}

func (c *clientConnection) handleJoinRoom(env network.Envelope) {
	payload, err := c.codec.DecodeJoinRoomRaw(env)
	if err != nil {
		return
	}

	room, ok := c.hub.GetRoom(payload.RoomCode)
	if !ok {
		c.sendError(network.EventJoinDenied, game.ErrRoomNotFound.Error())
		return
	}

	c.room = room
	c.playerID = payload.PlayerID
	c.hub.RegisterConnection(c.id, room.Code, c.playerID, c)
	room.Submit(game.Command{
		Kind:       game.CmdJoinRoom,
		ConnID:     c.id,
		PlayerID:   payload.PlayerID,
		PlayerName: payload.PlayerName,
	})
}

func (c *clientConnection) sendError(event, message string) {
	if data, err := c.codec.EncodeEvent(event, map[string]string{"message": message}); err == nil {
		_ = c.Send(data)
	}
}

func (c *clientConnection) cleanup() {
	c.Close()
	if c.room != nil {
		c.hub.RemoveConnection(c.id)
	}
	_ = c.ws.Close()
}
