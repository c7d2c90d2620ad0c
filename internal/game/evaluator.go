package game

import "github.com/platformco/coop-server/internal/world"

// EvaluateRound runs the round state machine for one tick, after physics
// has advanced every living player (spec §4.5). Death is a room-wide
// condition, not a per-player one: the moment any player dies, the whole
// room freezes in "dead" status until the shared respawn delay elapses,
// at which point the entire round resets — world runtime rebuilt from
// blueprint, the key latch cleared, and every player reconstructed at
// spawn. Only once that's settled do key pickup, hazard death and the
// door win get checked, so a single tick can never produce an ambiguous
// outcome.
func (r *Room) EvaluateRound() {
	if !r.Started {
		return
	}

	if r.DeadUntilMS != 0 {
		if nowMS() >= r.DeadUntilMS {
			r.respawnRound()
		}
		return
	}

	if !r.KeyCollected {
		r.checkKeyPickup()
	}

	if r.World == world.World2 {
		r.checkHazardDeaths()
		if r.DeadUntilMS != 0 {
			return
		}
	}

	r.checkDoorWin()
}

// respawnRound resets the whole round once the shared respawn delay has
// elapsed (spec §4.5 step 1): a fresh world runtime, the key latch
// cleared, and every player reseated at their spawn point.
func (r *Room) respawnRound() {
	r.WorldRuntime = world.CloneRuntime(r.World, world.CloneOptions{World2BaseY: r.World2BaseY})
	r.KeyCollected = false
	r.DeadUntilMS = 0
	for i, id := range r.PlayerOrder {
		lp, ok := r.Players[id]
		if !ok {
			continue
		}
		r.States[id] = r.freshPlayerState(i+1, id, lp)
	}
}

// checkKeyPickup latches KeyCollected the first tick any living player's
// collider overlaps the world's key. The latch is permanent for the round
// — picking the key up again, or a second player touching its old
// location, does nothing.
func (r *Room) checkKeyPickup() {
	key := r.WorldRuntime.Key
	for _, id := range r.PlayerOrder {
		p, ok := r.States[id]
		if !ok || p.Dead {
			continue
		}
		if p.AABB().Intersects(key) {
			r.KeyCollected = true
			return
		}
	}
}

// checkHazardDeaths kills any living player overlapping a World 2 danger
// button and arms the shared respawn delay.
func (r *Room) checkHazardDeaths() {
	anyDied := false
	for _, id := range r.PlayerOrder {
		p, ok := r.States[id]
		if !ok || p.Dead {
			continue
		}
		box := p.AABB()
		for _, hazard := range r.WorldRuntime.DangerButtons {
			if box.Intersects(hazard) {
				p.Dead = true
				anyDied = true
				break
			}
		}
	}
	if anyDied {
		r.DeadUntilMS = nowMS() + int64(r.cfg.RespawnDelayMS)
	}
}

// checkDoorWin declares the round won once every living player is
// standing at the door and the key has been collected. Both worlds carry
// a key and a door; World 2 additionally has to be survived past its
// danger buttons to reach either.
func (r *Room) checkDoorWin() {
	if !r.KeyCollected {
		return
	}
	living := 0
	atDoor := 0
	for _, id := range r.PlayerOrder {
		p, ok := r.States[id]
		if !ok || p.Dead {
			continue
		}
		living++
		if p.AABB().Intersects(r.WorldRuntime.Door) {
			atDoor++
		}
	}
	if living > 0 && living == atDoor {
		r.Started = false
		r.Outcome = StatusWon
	}
}
