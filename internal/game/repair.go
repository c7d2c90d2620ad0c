package game

import (
	"math"

	"github.com/platformco/coop-server/internal/world"
)

// RepairResult mirrors the small validation-result enum the teacher's
// anti-cheat used for movement validation (internal/game/anticheat.go),
// repurposed here for the narrower simulation-fault duty of spec §7: a
// room never crashes or kicks a player over a bad float, it quietly
// repairs the state and moves on.
type RepairResult int

const (
	RepairNone RepairResult = iota
	RepairRepositioned
)

// RepairIfInvalid checks a player's position and velocity for non-finite
// values (NaN/Inf, the only way a deterministic fixed-step simulation can
// misbehave without an upstream bug) and, if found, reseats the player to
// the room's default spawn y for their slot and zeroes their velocity.
// Called for every player at the start of each tick's physics pass (onTick
// in scheduler.go) so a fault never survives more than the tick that
// produced it.
func RepairIfInvalid(p *PlayerState, rt *world.Runtime) RepairResult {
	if isFinite(p.X) && isFinite(p.Y) && isFinite(p.VX) && isFinite(p.VY) {
		return RepairNone
	}
	p.X = 40.0 + float64(p.Slot-1)*70.0
	p.Y = rt.GroundY - PlayerHeight
	p.PrevY = p.Y
	p.VX = 0
	p.VY = 0
	p.OnGround = false
	p.StandingOnPlayer = 0
	return RepairRepositioned
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
