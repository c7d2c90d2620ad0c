package network

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/platformco/coop-server/internal/game"
)

var (
	ErrUnknownEvent     = errors.New("unknown event")
	ErrMalformedPayload = errors.New("malformed payload")
)

// Envelope is the single wire shape every message, in either direction,
// is wrapped in: {"type": "...", "data": {...}}.
type Envelope struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// Codec turns raw websocket frames into typed commands and typed server
// state into raw frames. It carries no state of its own, mirroring the
// teacher's stateless Protocol{}.
type Codec struct{}

// NewCodec constructs a Codec.
func NewCodec() *Codec { return &Codec{} }

// DecodeEnvelope unwraps the outer {type, data} shell. Every inbound
// frame must parse as this before any per-event payload is touched.
func (c *Codec) DecodeEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	if env.Type == "" {
		return Envelope{}, ErrMalformedPayload
	}
	return env, nil
}

// DecodeCreateRoom decodes a createRoom envelope.
func (c *Codec) DecodeCreateRoom(env Envelope) (CreateRoomPayload, error) {
	var p CreateRoomPayload
	if env.Type != EventCreateRoom {
		return p, ErrUnknownEvent
	}
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return p, nil
}

// DecodeJoinRoomRaw decodes a joinRoom envelope's payload directly,
// without producing a Command — the transport layer needs the RoomCode
// field to find the room before any Command exists to route into it.
func (c *Codec) DecodeJoinRoomRaw(env Envelope) (JoinRoomPayload, error) {
	var p JoinRoomPayload
	if err := json.Unmarshal(env.Data, &p); err != nil {
		return p, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
	}
	return p, nil
}

// DecodeCommand decodes every other client event into the single
// game.Command shape the room's owning goroutine consumes. connID
// identifies the originating socket so denial replies can be targeted
// back to it.
func (c *Codec) DecodeCommand(env Envelope, connID string) (game.Command, error) {
	switch env.Type {
	case EventJoinRoom:
		var p JoinRoomPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return game.Command{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return game.Command{Kind: game.CmdJoinRoom, ConnID: connID, PlayerID: p.PlayerID, PlayerName: p.PlayerName}, nil

	case EventSetWorld:
		var p SetWorldPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return game.Command{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return game.Command{Kind: game.CmdSetWorld, ConnID: connID, PlayerID: p.PlayerID, World: p.World}, nil

	case EventSetPlayerName:
		var p SetPlayerNamePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return game.Command{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return game.Command{Kind: game.CmdSetPlayerName, ConnID: connID, PlayerID: p.PlayerID, PlayerName: p.PlayerName}, nil

	case EventSelectHero:
		var p SelectHeroPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return game.Command{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return game.Command{Kind: game.CmdSelectHero, ConnID: connID, PlayerID: p.PlayerID, Hero: p.Hero}, nil

	case EventSetReady:
		var p SetReadyPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return game.Command{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return game.Command{Kind: game.CmdSetReady, ConnID: connID, PlayerID: p.PlayerID, Ready: p.Ready}, nil

	case EventStartGameNow:
		var p StartGamePayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return game.Command{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		return game.Command{Kind: game.CmdStartGame, ConnID: connID, PlayerID: p.PlayerID}, nil

	case EventPlayerInput, EventPlayerMove:
		var p PlayerInputPayload
		if err := json.Unmarshal(env.Data, &p); err != nil {
			return game.Command{}, fmt.Errorf("%w: %v", ErrMalformedPayload, err)
		}
		left, right, jump, height, hasHeight := p.Resolve()
		return game.Command{
			Kind:      game.CmdPlayerInput,
			ConnID:    connID,
			PlayerID:  p.PlayerID,
			Input:     game.InputFrame{Left: left, Right: right, Jump: jump},
			Height:    height,
			HasHeight: hasHeight,
		}, nil

	default:
		return game.Command{}, ErrUnknownEvent
	}
}

// EncodeJoinSuccess wraps the join/create acknowledgment sent to the caller
// alone.
func (c *Codec) EncodeJoinSuccess(roomCode, playerID string, playerIndex int, message string) ([]byte, error) {
	return c.encode(EventJoinSuccess, JoinSuccessPayload{
		RoomCode:    roomCode,
		PlayerID:    playerID,
		PlayerIndex: playerIndex,
		Message:     message,
	})
}

// EncodeRoomState wraps a lobby broadcast.
func (c *Codec) EncodeRoomState(view game.RoomStateView) ([]byte, error) {
	return c.encode(EventRoomState, view)
}

// EncodeGameState wraps a simulation-tick broadcast.
func (c *Codec) EncodeGameState(snap game.Snapshot) ([]byte, error) {
	return c.encode(EventGameState, snap)
}

// EncodeEvent wraps an arbitrary named payload — used by the transport
// layer for events (the *Denied family, startGame) it forwards without a
// dedicated Encode* wrapper.
func (c *Codec) EncodeEvent(event string, payload interface{}) ([]byte, error) {
	return c.encode(event, payload)
}

func (c *Codec) encode(event string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: event, Data: data})
}
