package game

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/platformco/coop-server/internal/world"
)

func TestRepairIfInvalidFixesNaN(t *testing.T) {
	rt := world.CloneRuntime(world.World1, world.CloneOptions{})
	p := &PlayerState{Slot: 2, X: math.NaN(), Y: 10, VX: 1, VY: 1, OnGround: true}

	result := RepairIfInvalid(p, rt)

	assert.Equal(t, RepairRepositioned, result)
	assert.True(t, math.IsNaN(p.X) == false)
	assert.Equal(t, rt.GroundY-PlayerHeight, p.Y)
	assert.Equal(t, 0.0, p.VX)
	assert.Equal(t, 0.0, p.VY)
	assert.False(t, p.OnGround)
}

func TestRepairIfInvalidLeavesGoodStateAlone(t *testing.T) {
	rt := world.CloneRuntime(world.World1, world.CloneOptions{})
	p := &PlayerState{Slot: 1, X: 123, Y: 456, VX: 2, VY: -3}

	result := RepairIfInvalid(p, rt)

	assert.Equal(t, RepairNone, result)
	assert.Equal(t, 123.0, p.X)
	assert.Equal(t, 456.0, p.Y)
}

func TestRepairIfInvalidCatchesInf(t *testing.T) {
	rt := world.CloneRuntime(world.World1, world.CloneOptions{})
	p := &PlayerState{Slot: 1, X: 10, Y: math.Inf(1)}

	result := RepairIfInvalid(p, rt)
	assert.Equal(t, RepairRepositioned, result)
}
