// Package world holds the two static level blueprints (W1 parkour, W2
// danger buttons) and produces fresh mutable runtimes for each round,
// the way the teacher's config package holds the track's GetRoadCurve
// formula as a pure, shared-with-the-client constant table.
package world

import (
	"github.com/platformco/coop-server/internal/geometry"
)

// IDs for the two catalog blueprints.
const (
	World1 = 1
	World2 = 2
)

// PhysicsConstants are the per-world tunables driving the player physics
// step (spec §4.3).
type PhysicsConstants struct {
	Gravity      float64
	MoveSpeed    float64
	JumpForce    float64
	MaxFallSpeed float64
	Friction     float64
}

// MovingPlatform travels between StartX and EndX at Speed, reversing
// Direction (+1/-1) at each endpoint. DeltaX is the displacement applied
// during the most recent Advance, used to carry a grounded player.
type MovingPlatform struct {
	geometry.AABB
	StartX, EndX float64
	Speed        float64
	Direction    float64
	DeltaX       float64
}

// FallingPlatform is static until a player lands on it, then begins to
// sink after a delay.
type FallingPlatform struct {
	geometry.AABB
	OriginalY float64
	Falling   bool
	FallTimer int
}

// Runtime is a mutable, per-round deep copy of a catalog blueprint. The
// simulator only ever mutates a Runtime, never a blueprint.
type Runtime struct {
	ID             int
	Width          float64
	GroundY        float64
	HasGlobalFloor bool
	StopOnRelease  bool
	Physics        PhysicsConstants

	Platforms        []geometry.AABB
	MovingPlatforms  []*MovingPlatform
	FallingPlatforms []*FallingPlatform

	Key           geometry.AABB
	Door          geometry.AABB
	DangerButtons []geometry.AABB
}

// CloneOptions parameterizes blueprint instantiation. World2BaseY is only
// consulted for World2; it is the dynamic ground height reported by the
// client's viewport (spec §4.6).
type CloneOptions struct {
	World2BaseY int
}

// CloneRuntime returns a deep, independently mutable copy of the requested
// world's blueprint. Unknown world IDs fall back to World1.
func CloneRuntime(worldID int, opts CloneOptions) *Runtime {
	switch worldID {
	case World2:
		return buildWorld2(opts.World2BaseY)
	default:
		return buildWorld1()
	}
}

// NormalizeWorldID accepts the tolerant set of client spellings for a
// world selector and returns the canonical 1 or 2, defaulting to 1.
func NormalizeWorldID(raw interface{}) int {
	switch v := raw.(type) {
	case int:
		if v == 2 {
			return World2
		}
		return World1
	case float64:
		if v == 2 {
			return World2
		}
		return World1
	case string:
		switch v {
		case "2", "map2", "world2":
			return World2
		default:
			return World1
		}
	default:
		return World1
	}
}

// playerHeight mirrors game.PlayerHeight; duplicated as a constant here to
// avoid an import cycle between world and game (both are leaf packages
// consumed by room.go).
const playerHeight = 55.0

func buildWorld1() *Runtime {
	platforms := []geometry.AABB{
		{X: 0, Y: 600, W: 300, H: 50},
		{X: 400, Y: 560, W: 220, H: 40},
		{X: 750, Y: 500, W: 200, H: 40},
		{X: 1050, Y: 560, W: 250, H: 40},
		{X: 1400, Y: 500, W: 220, H: 40},
		{X: 1700, Y: 560, W: 250, H: 40},
		{X: 1900, Y: 575, W: 200, H: 40}, // key platform — key sits flush on top
		{X: 2200, Y: 520, W: 250, H: 40},
		{X: 2550, Y: 560, W: 220, H: 40},
		{X: 2850, Y: 560, W: 260, H: 40},
		{X: 3000, Y: 600, W: 200, H: 40}, // door platform
		{X: 3300, Y: 560, W: 250, H: 40},
		{X: 3700, Y: 520, W: 250, H: 40},
		{X: 4100, Y: 560, W: 250, H: 40},
		{X: 4500, Y: 500, W: 250, H: 40},
		{X: 4900, Y: 560, W: 250, H: 40},
		{X: 5300, Y: 520, W: 250, H: 40},
		{X: 5700, Y: 560, W: 300, H: 40},
	}

	moving := []*MovingPlatform{
		{
			AABB:      geometry.AABB{X: 2430, Y: 540, W: 120, H: 30},
			StartX:    2430,
			EndX:      2700,
			Speed:     2.0,
			Direction: 1,
		},
	}

	falling := []*FallingPlatform{
		{
			AABB:      geometry.AABB{X: 3230, Y: 560, W: 150, H: 30},
			OriginalY: 560,
		},
	}

	return &Runtime{
		ID:             World1,
		Width:          6000,
		GroundY:        650,
		HasGlobalFloor: false,
		StopOnRelease:  false,
		Physics: PhysicsConstants{
			Gravity:      0.7,
			MoveSpeed:    5.0,
			JumpForce:    -14.0,
			MaxFallSpeed: 15.0,
			Friction:     1.0, // horizontal velocity persists until blocked
		},
		Platforms:        platforms,
		MovingPlatforms:  moving,
		FallingPlatforms: falling,
		Key:              geometry.AABB{X: 1950, Y: 535, W: 40, H: 40},
		Door:             geometry.AABB{X: 3030, Y: 525, W: 55, H: 75},
	}
}

func buildWorld2(baseY int) *Runtime {
	by := ClampWorld2BaseY(baseY)
	groundY := float64(by)

	const hazardCount = 31
	const hazardW, hazardH = 40.0, 20.0
	width := 8200.0
	spacing := width / (hazardCount + 1)

	hazards := make([]geometry.AABB, 0, hazardCount)
	for i := 0; i < hazardCount; i++ {
		x := spacing * float64(i+1)
		hazards = append(hazards, geometry.AABB{
			X: x - hazardW/2,
			Y: groundY - hazardH,
			W: hazardW,
			H: hazardH,
		})
	}

	moving := []*MovingPlatform{
		{
			AABB:      geometry.AABB{X: 3500, Y: groundY - 220, W: 140, H: 30},
			StartX:    3500,
			EndX:      3900,
			Speed:     2.5,
			Direction: 1,
		},
	}

	falling := []*FallingPlatform{
		{
			AABB:      geometry.AABB{X: 6200, Y: groundY - 180, W: 160, H: 30},
			OriginalY: groundY - 180,
		},
	}

	return &Runtime{
		ID:             World2,
		Width:          width,
		GroundY:        groundY,
		HasGlobalFloor: true,
		StopOnRelease:  true,
		Physics: PhysicsConstants{
			Gravity:      0.7,
			MoveSpeed:    5.0,
			JumpForce:    -14.0,
			MaxFallSpeed: 15.0,
			Friction:     0.85,
		},
		Platforms:        nil,
		MovingPlatforms:  moving,
		FallingPlatforms: falling,
		Key:              geometry.AABB{X: 4000, Y: groundY - 120, W: 40, H: 40},
		Door:             geometry.AABB{X: 7800, Y: groundY - 160, W: 55, H: 75},
		DangerButtons:    hazards,
	}
}

// ClampWorld2BaseY enforces the [500, 1400] bound of spec §4.6.
func ClampWorld2BaseY(baseY int) int {
	if baseY <= 0 {
		return 820
	}
	if baseY < 500 {
		return 500
	}
	if baseY > 1400 {
		return 1400
	}
	return baseY
}

// Advance moves moving platforms and progresses falling platforms by one
// tick, scaled by dtScale (spec §4.7 step 3).
func (r *Runtime) Advance(dtScale float64) {
	for _, mp := range r.MovingPlatforms {
		prevX := mp.X
		mp.X += mp.Speed * mp.Direction * dtScale
		if mp.X <= mp.StartX {
			mp.X = mp.StartX
			mp.Direction = 1
		} else if mp.X >= mp.EndX {
			mp.X = mp.EndX
			mp.Direction = -1
		}
		mp.DeltaX = mp.X - prevX
	}

	for _, fp := range r.FallingPlatforms {
		if !fp.Falling {
			continue
		}
		fp.FallTimer++
		if fp.FallTimer > 30 {
			fp.Y += 8 * dtScale
		}
	}
}

// Collidables returns the list of AABBs a player may land on or be blocked
// by this tick: static platforms, moving platforms, and falling platforms
// that have not yet dropped far below the ground line (spec §4.3 step 3).
func (r *Runtime) Collidables() []geometry.AABB {
	out := make([]geometry.AABB, 0, len(r.Platforms)+len(r.MovingPlatforms)+len(r.FallingPlatforms))
	out = append(out, r.Platforms...)
	for _, mp := range r.MovingPlatforms {
		out = append(out, mp.AABB)
	}
	for _, fp := range r.FallingPlatforms {
		if fp.Y < r.GroundY+300 {
			out = append(out, fp.AABB)
		}
	}
	return out
}

// MarkFalling flags the falling platform whose AABB matches the given box
// as having started its descent. No-op if none match or it's already
// falling.
func (r *Runtime) MarkFalling(box geometry.AABB) {
	for _, fp := range r.FallingPlatforms {
		if fp.AABB == box && !fp.Falling {
			fp.Falling = true
			fp.FallTimer = 0
		}
	}
}

// CarryDeltaX returns the horizontal displacement a grounded player sitting
// atop any moving platform should receive this tick (spec §4.3 step 8), or
// 0 if none qualifies.
func (r *Runtime) CarryDeltaX(playerBottom, playerLeft, playerRight float64) float64 {
	for _, mp := range r.MovingPlatforms {
		withinBand := playerBottom >= mp.Y-8 && playerBottom <= mp.Y+10
		overlapsX := playerLeft < mp.Right() && playerRight > mp.X
		if withinBand && overlapsX {
			return mp.DeltaX
		}
	}
	return 0
}
