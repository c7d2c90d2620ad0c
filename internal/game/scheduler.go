package game

import (
	"time"

	"github.com/platformco/coop-server/internal/geometry"
)

// Run is the room's entire life as a single goroutine: it multiplexes a
// fixed-rate tick timer against the inbound command channel, so every
// mutation to room state — lobby commands, physics, the round evaluator,
// disconnect timers — happens on this one goroutine and never needs a
// lock (spec §5, §9). The teacher's gameLoop (internal/game/room.go)
// split physics and broadcast onto two independent tickers guarded by a
// RWMutex; this loop collapses that into one tick that does both, because
// the simulation here is meant to be watched live, not just sampled.
func (r *Room) Run() {
	interval := time.Duration(r.cfg.TickIntervalMS()) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer r.cancelAllGraceTimers()

	for {
		select {
		case <-r.stopCh:
			return

		case now := <-ticker.C:
			r.onTick(now)

		case cmd := <-r.cmdCh:
			r.dispatch(cmd)
		}
	}
}

func (r *Room) dispatch(cmd Command) {
	switch cmd.Kind {
	case CmdJoinRoom:
		r.handleJoin(cmd)
	case CmdSetWorld:
		r.handleSetWorld(cmd)
	case CmdSetPlayerName:
		r.handleSetPlayerName(cmd)
	case CmdSelectHero:
		r.handleSelectHero(cmd)
	case CmdSetReady:
		r.handleSetReady(cmd)
	case CmdStartGame:
		r.handleStartGame(cmd)
	case CmdPlayerInput:
		r.handlePlayerInput(cmd)
	case CmdDisconnect:
		r.handleDisconnect(cmd)
	case CmdGraceExpired:
		r.handleGraceExpired(cmd.PlayerID)
	}
}

// onTick advances the simulation by exactly one fixed step, wallclock
// normalized by dtScale (spec §4.2, §4.3): physics for every living
// player, the round evaluator, then a fresh broadcastable snapshot.
func (r *Room) onTick(now time.Time) {
	if !r.Started {
		return
	}

	// While the room is frozen in "dead" status (spec §4.5 step 1), no
	// player steps and the world does not advance — the round is on hold
	// until the shared respawn delay elapses, which EvaluateRound below
	// handles by rebuilding everything from scratch.
	if r.DeadUntilMS == 0 {
		dtScale := r.computeDTScale(now)
		r.LastStepAtMS = now.UnixMilli()

		r.WorldRuntime.Advance(dtScale)

		living := make([]*PlayerState, 0, len(r.States))
		for _, id := range r.PlayerOrder {
			if p, ok := r.States[id]; ok {
				living = append(living, p)
			}
		}

		fellOut := false
		for _, id := range r.PlayerOrder {
			p, ok := r.States[id]
			if !ok {
				continue
			}
			RepairIfInvalid(p, r.WorldRuntime)
			input := r.Inputs[id]
			others := othersExcept(living, p.Slot)
			if res := r.physics.Step(p, input, others, r.WorldRuntime, dtScale); res.FellOut {
				fellOut = true
			}
		}
		if fellOut {
			r.DeadUntilMS = now.UnixMilli() + int64(r.cfg.RespawnDelayMS)
		}
	}

	r.EvaluateRound()
	r.GameState = r.buildSnapshot()
	r.transport.BroadcastGameState(r)

	if !r.Started {
		r.WorldRuntime = nil
	}
}

// computeDTScale normalizes wallclock drift against the configured tick
// rate, clamped to keep a stalled goroutine (GC pause, scheduler hiccup)
// from producing a catastrophic physics step (spec §4.2).
func (r *Room) computeDTScale(now time.Time) float64 {
	expectedMS := float64(r.cfg.TickIntervalMS())
	if r.LastStepAtMS == 0 {
		return 1.0
	}
	elapsedMS := float64(now.UnixMilli() - r.LastStepAtMS)
	if elapsedMS <= 0 {
		return geometry.Clamp(1.0, 0.5, 2.5)
	}
	return geometry.Clamp(elapsedMS/expectedMS, 0.5, 2.5)
}

func othersExcept(all []*PlayerState, slot int) []*PlayerState {
	out := make([]*PlayerState, 0, len(all))
	for _, p := range all {
		if p.Slot != slot {
			out = append(out, p)
		}
	}
	return out
}

func (r *Room) buildSnapshot() Snapshot {
	players := make(map[string]PlayerState, len(r.States))
	var playersAtDoor []int
	for id, p := range r.States {
		players[id] = *p
		if r.WorldRuntime != nil && !p.Dead && p.AABB().Intersects(r.WorldRuntime.Door) {
			playersAtDoor = append(playersAtDoor, p.Slot)
		}
	}

	// Death freezes the whole room, not just the player who died — gameStatus
	// must read "dead" for every member the instant DeadUntilMS is armed,
	// which is why this switch keys off the room-wide timer rather than
	// whether every single PlayerState happens to be Dead (spec §3: "deadUntil
	// > 0 iff gameStatus == dead").
	status := StatusPlaying
	switch {
	case r.Outcome != "":
		status = r.Outcome
	case r.DeadUntilMS != 0:
		status = StatusDead
	case !r.Started:
		status = StatusWaiting
	}

	snap := Snapshot{
		Players:       players,
		KeyCollected:  r.KeyCollected,
		PlayersAtDoor: playersAtDoor,
		GameStatus:    status,
		World:         r.World,
	}

	if r.WorldRuntime != nil {
		snap.Key = r.WorldRuntime.Key
		snap.Door = r.WorldRuntime.Door
		snap.DangerButtons = r.WorldRuntime.DangerButtons
		for _, mp := range r.WorldRuntime.MovingPlatforms {
			snap.MovingPlatforms = append(snap.MovingPlatforms, MovingPlatformView{AABB: mp.AABB})
		}
		for _, fp := range r.WorldRuntime.FallingPlatforms {
			snap.FallingPlatforms = append(snap.FallingPlatforms, FallingPlatformView{AABB: fp.AABB, Falling: fp.Falling})
		}
	}

	return snap
}

func (r *Room) cancelAllGraceTimers() {
	for id, t := range r.graceTimers {
		t.Stop()
		delete(r.graceTimers, id)
	}
}
