package game

import (
	"math"

	"github.com/platformco/coop-server/internal/world"
)

// ResolveStacking applies the one-way player-vs-player rules of spec §4.4
// to p against every other living player it overlaps. Only p is ever
// moved — the asymmetry is intentional: each participant resolves the
// pair from its own turn, so resolving both sides would cause the pair to
// oscillate.
func ResolveStacking(p *PlayerState, others []*PlayerState, rt *world.Runtime) {
	self := p.AABB()

	for _, other := range others {
		if other.Slot == p.Slot || other.Dead {
			continue
		}
		otherBox := other.AABB()
		if !self.Intersects(otherBox) {
			continue
		}

		// Four directional penetration depths.
		penLeft := self.Right() - otherBox.X
		penRight := otherBox.Right() - self.X
		penTop := self.Bottom() - otherBox.Y
		penBottom := otherBox.Bottom() - self.Y

		minH := math.Min(penLeft, penRight)
		minV := math.Min(penTop, penBottom)

		if minH < minV {
			// Side collision: push only self, zero horizontal velocity.
			if penLeft < penRight {
				p.X -= penLeft
			} else {
				p.X += penRight
			}
			p.X = clampToWorld(p.X, rt)
			p.VX = 0
			self = p.AABB()
			continue
		}

		prevBottomSelf := p.PrevY + PlayerHeight
		bottomSelf := self.Bottom()

		landingOnOther := p.VY >= 0 && p.Y < other.Y && prevBottomSelf <= other.Y+12 && bottomSelf >= other.Y
		hittingUnderside := p.VY < 0 && p.PrevY >= otherBox.Bottom()-8 && p.Y <= otherBox.Bottom()

		switch {
		case hittingUnderside:
			p.Y = otherBox.Bottom()
			p.VY = 0
		case landingOnOther:
			fallthrough
		default:
			// Default case (self is higher): one-way stacking never
			// pushes the lower player down.
			p.Y = other.Y - PlayerHeight
			p.VY = 0
			p.OnGround = true
			p.StandingOnPlayer = other.Slot
		}
		self = p.AABB()
	}
}

func clampToWorld(x float64, rt *world.Runtime) float64 {
	if x < 0 {
		return 0
	}
	if max := rt.Width - PlayerWidth; x > max {
		return max
	}
	return x
}
