package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformco/coop-server/internal/world"
)

// newTestPlayer starts well clear of every World1 platform (Y >= 500) so
// tests that only care about horizontal motion or fall-out don't trip an
// incidental vertical collision.
func newTestPlayer(slot int) *PlayerState {
	return &PlayerState{Slot: slot, X: 100, Y: 300, PrevY: 300, FacingRight: true}
}

func TestStepHorizontalMovement(t *testing.T) {
	rt := world.CloneRuntime(world.World1, world.CloneOptions{})
	p := newTestPlayer(1)
	p.OnGround = true
	ph := NewPhysics()

	ph.Step(p, InputFrame{Right: true}, nil, rt, 1.0)

	assert.Equal(t, rt.Physics.MoveSpeed, p.VX)
	assert.True(t, p.FacingRight)
	assert.Greater(t, p.X, 100.0)
}

func TestStepJumpRequiresOnGround(t *testing.T) {
	rt := world.CloneRuntime(world.World1, world.CloneOptions{})
	p := newTestPlayer(1)
	ph := NewPhysics()

	p.OnGround = false
	p.VY = 2.0
	ph.Step(p, InputFrame{Jump: true}, nil, rt, 1.0)
	assert.Greater(t, p.VY, 0.0, "airborne jump input must not launch the player")

	p2 := newTestPlayer(1)
	p2.OnGround = true
	ph.Step(p2, InputFrame{Jump: true}, nil, rt, 1.0)
	assert.Less(t, p2.VY, 0.0, "a grounded jump must produce upward velocity")
	assert.False(t, p2.OnGround)
}

func TestStepLandsOnPlatform(t *testing.T) {
	rt := world.CloneRuntime(world.World1, world.CloneOptions{})
	require.NotEmpty(t, rt.Platforms)
	platform := rt.Platforms[0]

	p := newTestPlayer(1)
	p.X = platform.X + 10
	p.Y = platform.Y - PlayerHeight - 1
	p.PrevY = p.Y
	p.VY = 5

	ph := NewPhysics()
	ph.Step(p, InputFrame{}, nil, rt, 1.0)

	assert.True(t, p.OnGround)
	assert.Equal(t, 0.0, p.VY)
	assert.Equal(t, platform.Y-PlayerHeight, p.Y)
}

func TestStepFallOutKillsPlayer(t *testing.T) {
	rt := world.CloneRuntime(world.World1, world.CloneOptions{})
	p := newTestPlayer(1)
	p.Y = rt.GroundY + 301
	p.PrevY = p.Y
	p.VY = 10

	ph := NewPhysics()
	result := ph.Step(p, InputFrame{}, nil, rt, 1.0)

	assert.True(t, result.FellOut)
	assert.True(t, p.Dead)
}

func TestStepSkipsDeadPlayers(t *testing.T) {
	rt := world.CloneRuntime(world.World1, world.CloneOptions{})
	p := newTestPlayer(1)
	p.Dead = true
	p.X = 100

	ph := NewPhysics()
	ph.Step(p, InputFrame{Right: true}, nil, rt, 1.0)

	assert.Equal(t, 100.0, p.X, "a dead player must not be simulated")
}
