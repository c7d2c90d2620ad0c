// Package game implements the core game logic: physics, players, and rooms.
package game

import (
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/platformco/coop-server/config"
	"github.com/platformco/coop-server/internal/world"
)

// Transport is the thin collaborator the room uses to reach the outside
// world (spec §1, §6): broadcasting to every member of a room, sending to
// one connection, and evicting stale sockets on reconnect. Fan-out and
// per-connection scratch state live outside this package — Room only ever
// calls through this interface.
type Transport interface {
	BroadcastRoomState(room *Room)
	BroadcastGameState(room *Room)
	BroadcastStartGame(room *Room)
	SendToConnection(connID, event string, payload interface{})
	EvictStaleConnections(roomCode, playerID, keepConnID string)
}

// CommandKind tags the variant carried by a Command (spec §9 design notes:
// "use a tagged command variant parsed at the transport edge").
type CommandKind int

const (
	CmdJoinRoom CommandKind = iota
	CmdSetWorld
	CmdSetPlayerName
	CmdSelectHero
	CmdSetReady
	CmdStartGame
	CmdPlayerInput
	CmdDisconnect
	CmdGraceExpired
)

// Command is the single message type the room's goroutine ever consumes
// from its command channel; every wire event is decoded into one of these
// at the transport edge before being forwarded here. Room creation itself
// happens before a Room exists, so it is handled by the registry rather
// than carried as a Command.
type Command struct {
	Kind     CommandKind
	ConnID   string
	PlayerID string

	PlayerName string
	World      interface{}

	Input      InputFrame
	Height     float64
	HasHeight  bool

	Hero  string
	Ready bool
}

// joinSuccessPayload acknowledges a successful createRoom/joinRoom back to
// its caller (spec §6, §4.6), telling the client its own slot number. Kept
// in this package rather than internal/network because network imports
// game for shared types, so game cannot import network back; the codec on
// the other side marshals this struct by its json tags like any other
// payload.
type joinSuccessPayload struct {
	RoomCode    string `json:"roomCode"`
	PlayerID    string `json:"playerId"`
	PlayerIndex int    `json:"playerIndex"`
	Message     string `json:"message"`
}

// Room is the per-room state machine and simulation owner (spec §3, §4.6).
// Every field is mutated exclusively by the goroutine running Run — no
// mutex guards them, because the cooperative single-goroutine loop is the
// synchronization mechanism (spec §5, §9).
type Room struct {
	Code        string
	MaxPlayers  int
	HostID      string
	Started     bool
	World       int
	World2BaseY int

	PlayerOrder []string
	Players     map[string]*LobbyPlayer
	States      map[string]*PlayerState
	Inputs      map[string]InputFrame

	WorldRuntime *world.Runtime
	GameState    Snapshot
	KeyCollected bool
	Outcome      string

	LastStepAtMS int64
	DeadUntilMS  int64

	cfg       *config.ServerConfig
	transport Transport
	log       zerolog.Logger
	physics   *Physics

	graceTimers map[string]*time.Timer

	cmdCh  chan Command
	stopCh chan struct{}
}

// NewRoom constructs a room in the lobby state, with the creator seated in
// slot 1 as host. The caller (the registry) still needs to call Run in its
// own goroutine to bring the room to life.
func NewRoom(code string, maxPlayers int, hostID, hostName string, cfg *config.ServerConfig, transport Transport, logger zerolog.Logger) *Room {
	r := &Room{
		Code:        code,
		MaxPlayers:  maxPlayers,
		HostID:      hostID,
		World:       world.World1,
		World2BaseY: cfg.World2BaseY,
		PlayerOrder: []string{hostID},
		Players:     map[string]*LobbyPlayer{hostID: {Name: sanitizeName(hostName, 1)}},
		States:      map[string]*PlayerState{},
		Inputs:      map[string]InputFrame{},
		cfg:         cfg,
		transport:   transport,
		log:         logger.With().Str("room_code", code).Logger(),
		physics:     NewPhysics(),
		graceTimers: map[string]*time.Timer{},
		cmdCh:       make(chan Command, 64),
		stopCh:      make(chan struct{}),
	}
	r.GameState = r.buildWaitingSnapshot()
	return r
}

// Submit enqueues a command for this room's owning goroutine. Safe to call
// from any goroutine. A full buffer indicates a stuck room; the command is
// dropped rather than blocking the caller indefinitely.
func (r *Room) Submit(cmd Command) {
	select {
	case r.cmdCh <- cmd:
	case <-r.stopCh:
	default:
		r.log.Warn().Msg("command dropped: room command buffer full")
	}
}

// Stop terminates the room's owning goroutine. Safe to call multiple
// times.
func (r *Room) Stop() {
	select {
	case <-r.stopCh:
	default:
		close(r.stopCh)
	}
}

// IsEmpty reports whether the room currently has no lobby players. Only
// meaningful when read from within the owning goroutine.
func (r *Room) IsEmpty() bool {
	return len(r.Players) == 0
}

// Closed returns the channel that closes once Stop has been called; Run
// returns as soon as it sees it. Safe for any goroutine to select on —
// unlike IsEmpty, this never touches room state, only the stop signal.
func (r *Room) Closed() <-chan struct{} {
	return r.stopCh
}

// RoomStateView is the lobby-visible broadcast payload (spec §4.8).
type RoomStateView struct {
	RoomCode   string                     `json:"roomCode"`
	MaxPlayers int                        `json:"maxPlayers"`
	HostID     string                     `json:"hostId"`
	Started    bool                       `json:"started"`
	World      int                        `json:"world"`
	Players    map[string]LobbyPlayerView `json:"players"`
}

// LobbyPlayerView is one player's entry within RoomStateView.
type LobbyPlayerView struct {
	Hero  string `json:"hero"`
	Ready bool   `json:"ready"`
	Name  string `json:"name"`
}

// ViewRoomState builds the broadcastable lobby snapshot.
func (r *Room) ViewRoomState() RoomStateView {
	players := make(map[string]LobbyPlayerView, len(r.Players))
	for id, lp := range r.Players {
		players[id] = LobbyPlayerView{Hero: lp.Hero, Ready: lp.Ready, Name: lp.Name}
	}
	return RoomStateView{
		RoomCode:   r.Code,
		MaxPlayers: r.MaxPlayers,
		HostID:     r.HostID,
		Started:    r.Started,
		World:      r.World,
		Players:    players,
	}
}

func (r *Room) buildWaitingSnapshot() Snapshot {
	return Snapshot{
		Players:    map[string]PlayerState{},
		GameStatus: StatusWaiting,
		World:      r.World,
	}
}

// --- command handlers -------------------------------------------------
//
// Every handler below runs only on the room's owning goroutine (invoked
// from Run's dispatch switch in scheduler.go). None of them take a lock:
// the single-goroutine loop is the lock.

func (r *Room) handleJoin(cmd Command) {
	if _, exists := r.Players[cmd.PlayerID]; exists {
		// Reconnect: evict any other live sockets bound to this player and
		// re-bind to the new connection, but otherwise leave lobby state
		// untouched.
		r.cancelGraceTimer(cmd.PlayerID)
		r.transport.EvictStaleConnections(r.Code, cmd.PlayerID, cmd.ConnID)
		r.sendJoinSuccess(cmd.ConnID, cmd.PlayerID, r.slotOf(cmd.PlayerID))
		r.broadcastRoomState()
		return
	}
	if r.Started {
		r.transport.SendToConnection(cmd.ConnID, "joinDenied", ErrAlreadyStarted.Error())
		return
	}
	if len(r.Players) >= r.MaxPlayers {
		r.transport.SendToConnection(cmd.ConnID, "joinDenied", ErrRoomFull.Error())
		return
	}
	slot := len(r.PlayerOrder) + 1
	r.PlayerOrder = append(r.PlayerOrder, cmd.PlayerID)
	r.Players[cmd.PlayerID] = &LobbyPlayer{Name: sanitizeName(cmd.PlayerName, slot)}
	r.sendJoinSuccess(cmd.ConnID, cmd.PlayerID, slot)
	r.broadcastRoomState()
}

// sendJoinSuccess acknowledges a join (fresh or reconnect) to the caller
// alone, telling it which slot it occupies (spec §4.6, §6).
func (r *Room) sendJoinSuccess(connID, playerID string, slot int) {
	r.transport.SendToConnection(connID, "joinSuccess", joinSuccessPayload{
		RoomCode:    r.Code,
		PlayerID:    playerID,
		PlayerIndex: slot,
		Message:     "joined room",
	})
}

func (r *Room) handleSetWorld(cmd Command) {
	if cmd.PlayerID != r.HostID {
		r.transport.SendToConnection(cmd.ConnID, "denied", ErrNotHost.Error())
		return
	}
	if r.Started {
		r.transport.SendToConnection(cmd.ConnID, "denied", ErrAlreadyStarted.Error())
		return
	}
	r.World = world.NormalizeWorldID(cmd.World)
	r.broadcastRoomState()
}

func (r *Room) handleSetPlayerName(cmd Command) {
	lp, ok := r.Players[cmd.PlayerID]
	if !ok {
		return
	}
	lp.Name = sanitizeName(cmd.PlayerName, r.slotOf(cmd.PlayerID))
	r.broadcastRoomState()
}

func (r *Room) handleSelectHero(cmd Command) {
	lp, ok := r.Players[cmd.PlayerID]
	if !ok || r.Started {
		return
	}
	if cmd.Hero != "" {
		for id, other := range r.Players {
			if id != cmd.PlayerID && other.Hero == cmd.Hero {
				r.transport.SendToConnection(cmd.ConnID, "heroDenied", ErrHeroTaken.Error())
				return
			}
		}
	}
	lp.Hero = cmd.Hero
	r.broadcastRoomState()
}

func (r *Room) handleSetReady(cmd Command) {
	lp, ok := r.Players[cmd.PlayerID]
	if !ok || r.Started {
		return
	}
	if cmd.Ready && lp.Hero == "" {
		r.transport.SendToConnection(cmd.ConnID, "readyDenied", ErrNoHero.Error())
		return
	}
	lp.Ready = cmd.Ready
	r.broadcastRoomState()
}

func (r *Room) handleStartGame(cmd Command) {
	if cmd.PlayerID != r.HostID {
		r.transport.SendToConnection(cmd.ConnID, "startDenied", ErrNotHost.Error())
		return
	}
	if r.Started {
		return
	}
	for _, lp := range r.Players {
		if lp.Hero == "" || !lp.Ready {
			r.transport.SendToConnection(cmd.ConnID, "startDenied", ErrNotReady.Error())
			return
		}
	}
	r.beginRound()
}

func (r *Room) beginRound() {
	r.Started = true
	r.WorldRuntime = world.CloneRuntime(r.World, world.CloneOptions{World2BaseY: r.World2BaseY})
	r.KeyCollected = false
	r.Outcome = ""
	r.DeadUntilMS = 0
	r.States = map[string]*PlayerState{}
	for i, id := range r.PlayerOrder {
		r.States[id] = r.freshPlayerState(i+1, id, r.Players[id])
	}
	r.LastStepAtMS = nowMS()
	r.GameState = r.buildSnapshot()
	r.transport.BroadcastStartGame(r)
	r.transport.BroadcastGameState(r)
}

func (r *Room) freshPlayerState(slot int, playerID string, lp *LobbyPlayer) *PlayerState {
	spawnX := 40.0 + float64(slot-1)*70.0
	spawnY := r.WorldRuntime.GroundY - PlayerHeight
	return &PlayerState{
		Slot:           slot,
		ClientPlayerID: playerID,
		Hero:           lp.Hero,
		Name:           lp.Name,
		X:              spawnX,
		Y:              spawnY,
		PrevY:          spawnY,
		FacingRight:    true,
		Color:          ColorForSlot(slot),
	}
}

func (r *Room) handlePlayerInput(cmd Command) {
	if !r.Started {
		return
	}
	if _, ok := r.States[cmd.PlayerID]; !ok {
		return
	}
	r.Inputs[cmd.PlayerID] = cmd.Input
	if cmd.HasHeight && r.World == world.World2 {
		r.syncWorld2Ground(cmd.Height)
	}
}

// syncWorld2Ground implements the dynamic W2 ground sync (spec §4.6): the
// client reports its viewport height on a playerInput frame, the server
// recomputes and clamps baseY, and on a significant change rebuilds the
// runtime and carries every living player's y by the resulting groundY
// delta so nobody is left floating or buried in the new floor.
func (r *Room) syncWorld2Ground(height float64) {
	newBaseY := world.ClampWorld2BaseY(int(math.Round(height)) - 80)
	delta := newBaseY - r.World2BaseY
	if delta < 0 {
		delta = -delta
	}
	if delta < 2 || r.WorldRuntime == nil {
		return
	}
	oldGroundY := r.WorldRuntime.GroundY
	r.World2BaseY = newBaseY
	r.WorldRuntime = world.CloneRuntime(r.World, world.CloneOptions{World2BaseY: r.World2BaseY})
	groundDelta := r.WorldRuntime.GroundY - oldGroundY
	for _, p := range r.States {
		if p.Dead {
			continue
		}
		p.Y += groundDelta
		p.PrevY += groundDelta
	}
}

func (r *Room) handleDisconnect(cmd Command) {
	if _, ok := r.Players[cmd.PlayerID]; !ok {
		return
	}
	r.armGraceTimer(cmd.PlayerID)
}

func (r *Room) handleGraceExpired(playerID string) {
	delete(r.graceTimers, playerID)
	if _, ok := r.Players[playerID]; !ok {
		return
	}
	delete(r.Players, playerID)
	delete(r.States, playerID)
	delete(r.Inputs, playerID)
	for i, id := range r.PlayerOrder {
		if id == playerID {
			r.PlayerOrder = append(r.PlayerOrder[:i], r.PlayerOrder[i+1:]...)
			break
		}
	}
	if playerID == r.HostID && len(r.PlayerOrder) > 0 {
		r.HostID = r.PlayerOrder[0]
	}
	if r.IsEmpty() {
		r.Stop()
		return
	}
	r.broadcastRoomState()
}

// armGraceTimer (re)starts the disconnect-grace countdown for a player.
// Idempotent: arming cancels any prior timer for the same player, and the
// callback only ever enqueues a command — it never touches room state
// directly, since it fires on its own goroutine (spec §4.6, §9).
func (r *Room) armGraceTimer(playerID string) {
	if t, ok := r.graceTimers[playerID]; ok {
		t.Stop()
	}
	pid := playerID
	r.graceTimers[playerID] = time.AfterFunc(time.Duration(r.cfg.DisconnectGraceMS)*time.Millisecond, func() {
		r.Submit(Command{Kind: CmdGraceExpired, PlayerID: pid})
	})
}

// cancelGraceTimer is called on reconnect (handleJoin) to stop a pending
// removal for a player who came back in time.
func (r *Room) cancelGraceTimer(playerID string) {
	if t, ok := r.graceTimers[playerID]; ok {
		t.Stop()
		delete(r.graceTimers, playerID)
	}
}

func (r *Room) slotOf(playerID string) int {
	for i, id := range r.PlayerOrder {
		if id == playerID {
			return i + 1
		}
	}
	return 1
}

func (r *Room) broadcastRoomState() {
	r.transport.BroadcastRoomState(r)
}

func nowMS() int64 { return time.Now().UnixMilli() }

// sanitizeName trims, defaults, and caps a display name at 20 chars
// (spec §4.6 setPlayerName).
func sanitizeName(name string, slotFallback int) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return defaultPlayerName(slotFallback)
	}
	if len(name) > 20 {
		name = name[:20]
	}
	return name
}

func defaultPlayerName(slot int) string {
	if slot <= 0 {
		slot = 1
	}
	return "Player " + itoa(slot)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	if neg {
		return "-" + string(digits)
	}
	return string(digits)
}
