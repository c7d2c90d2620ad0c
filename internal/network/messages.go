// Package network is the wire boundary: every event name, JSON payload
// shape, and the envelope codec that turns bytes on a websocket into a
// game.Command the room goroutine can consume. The teacher's network
// package spoke a hand-rolled binary protocol (single-byte type tags,
// encoding/binary); this one speaks the tagged-envelope JSON style shown
// in the wider example pack's message processors, because the spec's wire
// events are named client/server messages, not a packed byte format.
package network

// Event names, client -> server.
const (
	EventCreateRoom    = "createRoom"
	EventJoinRoom      = "joinRoom"
	EventSetWorld      = "setWorld"
	EventSetPlayerName = "setPlayerName"
	EventSelectHero    = "selectHero"
	EventSetReady      = "setReady"
	EventStartGameNow  = "startGameNow"
	EventPlayerInput   = "playerInput"
	// EventPlayerMove is the tolerated alias for EventPlayerInput (spec §6).
	EventPlayerMove = "playerMove"
)

// Event names, server -> client.
const (
	EventRoomState    = "roomState"
	EventGameState    = "gameState"
	EventJoinSuccess  = "joinSuccess"
	EventCreateDenied = "createDenied"
	EventJoinDenied   = "joinDenied"
	EventHeroDenied   = "heroDenied"
	EventReadyDenied  = "readyDenied"
	EventStartDenied  = "startDenied"
	EventDenied       = "denied"
	// EventStartGame is the no-payload broadcast on a successful round
	// start — distinct from the client's EventStartGameNow request.
	EventStartGame = "startGame"
)

// CreateRoomPayload is the client -> server createRoom body. Room
// creation happens before any Room exists, so it is handled by the
// registry rather than decoded into a game.Command.
type CreateRoomPayload struct {
	RoomCode   string `json:"roomCode"`
	MaxPlayers int    `json:"maxPlayers"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// JoinRoomPayload is the client -> server joinRoom body.
type JoinRoomPayload struct {
	RoomCode   string `json:"roomCode"`
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// SetWorldPayload carries the host's world selector, tolerant of the
// several spellings world.NormalizeWorldID accepts.
type SetWorldPayload struct {
	PlayerID string      `json:"playerId"`
	World    interface{} `json:"world"`
}

// SetPlayerNamePayload renames the sender within their room.
type SetPlayerNamePayload struct {
	PlayerID   string `json:"playerId"`
	PlayerName string `json:"playerName"`
}

// SelectHeroPayload claims (or clears, with an empty Hero) a hero.
type SelectHeroPayload struct {
	PlayerID string `json:"playerId"`
	Hero     string `json:"hero"`
}

// SetReadyPayload toggles the sender's ready flag.
type SetReadyPayload struct {
	PlayerID string `json:"playerId"`
	Ready    bool   `json:"ready"`
}

// StartGamePayload requests the host-only round start.
type StartGamePayload struct {
	PlayerID string `json:"playerId"`
}

// keyState is the {left,right,jump} triple repeated across playerInput's
// three tolerated shapes — flat, {input:{...}} and {keys:{...}} (spec §4.6,
// §8 round-trip law).
type keyState struct {
	Left  bool `json:"left"`
	Right bool `json:"right"`
	Jump  bool `json:"jump"`
}

// PlayerInputPayload is the last-write-wins per-tick intent sample. The
// client may send the keys flat, nested under "input", or nested under
// "keys" — all three decode to the same InputFrame. It may also carry its
// current viewport height under any of three names, consulted only for
// World 2's dynamic ground sync.
type PlayerInputPayload struct {
	PlayerID string    `json:"playerId"`
	Left     bool      `json:"left"`
	Right    bool      `json:"right"`
	Jump     bool      `json:"jump"`
	Input    *keyState `json:"input"`
	Keys     *keyState `json:"keys"`

	CanvasHeight   *float64 `json:"canvasHeight"`
	ViewportHeight *float64 `json:"viewportHeight"`
	Height         *float64 `json:"height"`
}

// Resolve picks the effective {left,right,jump} triple in priority order
// input > keys > flat, and the first viewport-height field supplied, if
// any.
func (p PlayerInputPayload) Resolve() (left, right, jump bool, height float64, hasHeight bool) {
	switch {
	case p.Input != nil:
		left, right, jump = p.Input.Left, p.Input.Right, p.Input.Jump
	case p.Keys != nil:
		left, right, jump = p.Keys.Left, p.Keys.Right, p.Keys.Jump
	default:
		left, right, jump = p.Left, p.Right, p.Jump
	}

	switch {
	case p.CanvasHeight != nil:
		return left, right, jump, *p.CanvasHeight, true
	case p.ViewportHeight != nil:
		return left, right, jump, *p.ViewportHeight, true
	case p.Height != nil:
		return left, right, jump, *p.Height, true
	default:
		return left, right, jump, 0, false
	}
}

// JoinSuccessPayload acknowledges a successful createRoom/joinRoom back to
// its caller, telling it which slot it occupies (spec §4.6, §6).
type JoinSuccessPayload struct {
	RoomCode    string `json:"roomCode"`
	PlayerID    string `json:"playerId"`
	PlayerIndex int    `json:"playerIndex"`
	Message     string `json:"message"`
}
