package game

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platformco/coop-server/internal/world"
)

func TestResolveStackingLandsOnTopOfOtherPlayer(t *testing.T) {
	rt := world.CloneRuntime(world.World1, world.CloneOptions{})
	below := &PlayerState{Slot: 2, X: 100, Y: 400}
	above := &PlayerState{Slot: 1, X: 105, Y: 400 - PlayerHeight + 5, PrevY: 400 - PlayerHeight - 10, VY: 3}

	ResolveStacking(above, []*PlayerState{below}, rt)

	assert.True(t, above.OnGround)
	assert.Equal(t, 0.0, above.VY)
	assert.Equal(t, below.Slot, above.StandingOnPlayer)
	assert.Equal(t, below.Y-PlayerHeight, above.Y)
}

func TestResolveStackingSideCollisionZeroesVX(t *testing.T) {
	rt := world.CloneRuntime(world.World1, world.CloneOptions{})
	left := &PlayerState{Slot: 1, X: 100, Y: 400}
	right := &PlayerState{Slot: 2, X: 130, Y: 400, VX: 3}

	ResolveStacking(right, []*PlayerState{left}, rt)

	assert.Equal(t, 0.0, right.VX)
}

func TestResolveStackingIgnoresDeadOrSelf(t *testing.T) {
	rt := world.CloneRuntime(world.World1, world.CloneOptions{})
	p := &PlayerState{Slot: 1, X: 100, Y: 400}
	dead := &PlayerState{Slot: 2, X: 100, Y: 400, Dead: true}
	self := &PlayerState{Slot: 1, X: 100, Y: 400}

	startX, startY := p.X, p.Y
	ResolveStacking(p, []*PlayerState{dead, self}, rt)

	assert.Equal(t, startX, p.X)
	assert.Equal(t, startY, p.Y)
}
