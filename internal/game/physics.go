package game

import (
	"math"

	"github.com/platformco/coop-server/internal/geometry"
	"github.com/platformco/coop-server/internal/world"
)

// Physics runs the deterministic per-player step of spec §4.3. It carries
// no state of its own — everything it touches lives on the PlayerState and
// the world Runtime it's given — mirroring the teacher's stateless
// Physics{} engine.
type Physics struct{}

// NewPhysics constructs a Physics engine.
func NewPhysics() *Physics { return &Physics{} }

// StepResult reports facts the room needs to react to but that physics
// itself must not decide (spec §4.3 step 9 hands fall-out death up to the
// room, which owns gameStatus and deadUntil).
type StepResult struct {
	FellOut bool
}

// Step advances one player by one tick: horizontal intent, jump, the
// horizontal and vertical collision passes, the global floor, moving
// platform carry, fall-out detection, and finally player-vs-player
// stacking against the other living players in the room.
func (ph *Physics) Step(p *PlayerState, input InputFrame, others []*PlayerState, rt *world.Runtime, dtScale float64) StepResult {
	if p.Dead {
		return StepResult{}
	}

	phys := rt.Physics

	// 1. Horizontal intent.
	switch {
	case input.Left:
		p.VX = -phys.MoveSpeed
		p.FacingRight = false
		p.AnimFrame = (p.AnimFrame + 1) % 4
	case input.Right:
		p.VX = phys.MoveSpeed
		p.FacingRight = true
		p.AnimFrame = (p.AnimFrame + 1) % 4
	default:
		if rt.StopOnRelease && p.OnGround {
			p.VX = 0
		} else {
			p.VX *= math.Pow(phys.Friction, dtScale)
			if math.Abs(p.VX) < 0.1 {
				p.VX = 0
			}
		}
		p.AnimFrame = 0
	}

	// 2. Jump.
	if input.Jump && p.OnGround {
		p.VY = phys.JumpForce
		p.OnGround = false
	}

	// 3. Collidable list.
	collidables := rt.Collidables()

	// 4. Horizontal step.
	p.X += p.VX * dtScale
	p.X = geometry.Clamp(p.X, 0, rt.Width-PlayerWidth)
	selfBox := p.AABB()
	for _, box := range collidables {
		if !selfBox.Intersects(box) {
			continue
		}
		if p.VX > 0 {
			p.X = box.X - PlayerWidth
		} else if p.VX < 0 {
			p.X = box.Right()
		}
		p.VX = 0
		selfBox = p.AABB()
	}

	// 5. Vertical step.
	p.PrevY = p.Y
	prevBottom := p.PrevY + PlayerHeight
	p.VY += phys.Gravity * dtScale
	if p.VY > phys.MaxFallSpeed {
		p.VY = phys.MaxFallSpeed
	}
	p.Y += p.VY * dtScale
	p.OnGround = false

	// 6. Vertical resolution.
	for _, box := range collidables {
		currBottom := p.Y + PlayerHeight
		landing := prevBottom <= box.Y && currBottom >= box.Y && p.VY >= 0
		underside := p.PrevY >= box.Bottom() && p.Y <= box.Bottom() && p.VY < 0
		if landing {
			p.Y = box.Y - PlayerHeight
			p.VY = 0
			p.OnGround = true
			rt.MarkFalling(box)
		} else if underside {
			p.Y = box.Bottom()
			p.VY = 0
		}
	}

	// 7. Global floor.
	if rt.HasGlobalFloor && p.Y+PlayerHeight > rt.GroundY {
		p.Y = rt.GroundY - PlayerHeight
		p.VY = 0
		p.OnGround = true
	}

	// 8. Moving-platform carry.
	if p.OnGround {
		delta := rt.CarryDeltaX(p.Y+PlayerHeight, p.X, p.X+PlayerWidth)
		if delta != 0 {
			p.X += delta
			p.X = geometry.Clamp(p.X, 0, rt.Width-PlayerWidth)
		}
	}

	// 9. Fall-out.
	result := StepResult{}
	if p.Y > rt.GroundY+300 {
		p.Dead = true
		result.FellOut = true
	}

	// 10. Player-vs-player resolution.
	if !p.Dead {
		ResolveStacking(p, others, rt)
	}

	return result
}
