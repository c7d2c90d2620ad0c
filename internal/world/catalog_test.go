package world

import (
	"testing"

	"github.com/platformco/coop-server/internal/geometry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCloneRuntimeIsIndependent(t *testing.T) {
	a := CloneRuntime(World1, CloneOptions{})
	b := CloneRuntime(World1, CloneOptions{})

	a.Platforms[0].X = 9999
	assert.NotEqual(t, a.Platforms[0].X, b.Platforms[0].X, "clones must not share backing arrays")

	a.MovingPlatforms[0].Direction = -5
	assert.NotEqual(t, a.MovingPlatforms[0].Direction, b.MovingPlatforms[0].Direction)
}

func TestWorld1Blueprint(t *testing.T) {
	r := CloneRuntime(World1, CloneOptions{})
	require.Equal(t, World1, r.ID)
	assert.False(t, r.HasGlobalFloor)
	assert.False(t, r.StopOnRelease)
	assert.Equal(t, 1.0, r.Physics.Friction)
	assert.Equal(t, 6000.0, r.Width)
	assert.Equal(t, geometry.AABB{X: 1950, Y: 535, W: 40, H: 40}, r.Key)
	assert.Equal(t, geometry.AABB{X: 3030, Y: 525, W: 55, H: 75}, r.Door)
	assert.Empty(t, r.DangerButtons)
}

func TestWorld2Blueprint(t *testing.T) {
	r := CloneRuntime(World2, CloneOptions{World2BaseY: 820})
	require.Equal(t, World2, r.ID)
	assert.True(t, r.HasGlobalFloor)
	assert.True(t, r.StopOnRelease)
	assert.Len(t, r.DangerButtons, 31)
	assert.Equal(t, 820.0, r.GroundY)
}

func TestWorld2BaseYClamped(t *testing.T) {
	assert.Equal(t, 500, ClampWorld2BaseY(10))
	assert.Equal(t, 1400, ClampWorld2BaseY(5000))
	assert.Equal(t, 900, ClampWorld2BaseY(900))
}

func TestNormalizeWorldID(t *testing.T) {
	cases := []struct {
		in   interface{}
		want int
	}{
		{1, World1}, {2, World2},
		{"1", World1}, {"2", World2},
		{"map1", World1}, {"map2", World2},
		{"world1", World1}, {"world2", World2},
		{nil, World1}, {2.0, World2}, {1.0, World1},
	}
	for _, c := range cases {
		assert.Equal(t, c.want, NormalizeWorldID(c.in))
	}
}

func TestAdvanceMovesAndReversesMovingPlatform(t *testing.T) {
	r := CloneRuntime(World1, CloneOptions{})
	mp := r.MovingPlatforms[0]
	startX := mp.StartX

	// Drive it all the way to EndX and confirm it reverses.
	for i := 0; i < 1000; i++ {
		r.Advance(1.0)
		if mp.X >= mp.EndX {
			break
		}
	}
	assert.Equal(t, mp.EndX, mp.X)

	r.Advance(1.0)
	assert.Less(t, mp.Direction, 0.0)
	assert.LessOrEqual(t, mp.X, mp.EndX)
	_ = startX
}

func TestAdvanceFallingPlatformWaitsThenDescends(t *testing.T) {
	r := CloneRuntime(World1, CloneOptions{})
	fp := r.FallingPlatforms[0]
	fp.Falling = true
	startY := fp.Y

	for i := 0; i < 30; i++ {
		r.Advance(1.0)
	}
	assert.Equal(t, startY, fp.Y, "must stay put for the first 30 ticks")

	r.Advance(1.0)
	assert.Equal(t, startY+8, fp.Y)
}

func TestCarryDeltaX(t *testing.T) {
	r := CloneRuntime(World1, CloneOptions{})
	mp := r.MovingPlatforms[0]
	r.Advance(1.0)

	delta := r.CarryDeltaX(mp.Y, mp.X+10, mp.X+20)
	assert.Equal(t, mp.DeltaX, delta)

	none := r.CarryDeltaX(mp.Y-1000, mp.X+10, mp.X+20)
	assert.Equal(t, 0.0, none)
}
