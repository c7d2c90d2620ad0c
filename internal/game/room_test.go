package game

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformco/coop-server/config"
)

func noopLogger() zerolog.Logger {
	return zerolog.Nop()
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	cfg := config.DefaultServerConfig()
	return NewRoom("WXYZ", 4, "host", "Host", cfg, noopTransport{}, noopLogger())
}

func TestNewRoomSeatsHost(t *testing.T) {
	r := newTestRoom(t)
	assert.Equal(t, "host", r.HostID)
	assert.Equal(t, []string{"host"}, r.PlayerOrder)
	assert.Equal(t, "Host", r.Players["host"].Name)
	assert.False(t, r.Started)
}

func TestHandleJoinAddsPlayerUpToCapacity(t *testing.T) {
	r := newTestRoom(t)
	r.MaxPlayers = 2

	r.handleJoin(Command{ConnID: "c2", PlayerID: "p2", PlayerName: "Two"})
	assert.Len(t, r.Players, 2)
	assert.Equal(t, []string{"host", "p2"}, r.PlayerOrder)

	r.handleJoin(Command{ConnID: "c3", PlayerID: "p3", PlayerName: "Three"})
	assert.Len(t, r.Players, 2, "a full room must deny a third join")
}

func TestHandleJoinReconnectDoesNotDuplicate(t *testing.T) {
	r := newTestRoom(t)
	r.handleJoin(Command{ConnID: "c2", PlayerID: "p2", PlayerName: "Two"})
	require.Len(t, r.Players, 2)

	r.handleJoin(Command{ConnID: "c2b", PlayerID: "p2", PlayerName: "Two"})
	assert.Len(t, r.Players, 2, "rejoining with the same playerId must not add a second seat")
}

func TestHandleSelectHeroRejectsDuplicate(t *testing.T) {
	r := newTestRoom(t)
	r.handleJoin(Command{ConnID: "c2", PlayerID: "p2", PlayerName: "Two"})

	r.handleSelectHero(Command{PlayerID: "host", Hero: "knight"})
	assert.Equal(t, "knight", r.Players["host"].Hero)

	r.handleSelectHero(Command{ConnID: "c2", PlayerID: "p2", Hero: "knight"})
	assert.Empty(t, r.Players["p2"].Hero, "a taken hero must be denied")
}

func TestHandleSetReadyRequiresHero(t *testing.T) {
	r := newTestRoom(t)
	r.handleSetReady(Command{PlayerID: "host", Ready: true})
	assert.False(t, r.Players["host"].Ready, "cannot ready up without a hero")

	r.handleSelectHero(Command{PlayerID: "host", Hero: "knight"})
	r.handleSetReady(Command{PlayerID: "host", Ready: true})
	assert.True(t, r.Players["host"].Ready)
}

func TestHandleStartGameRequiresHostAndAllReady(t *testing.T) {
	r := newTestRoom(t)
	r.handleJoin(Command{ConnID: "c2", PlayerID: "p2", PlayerName: "Two"})
	r.handleSelectHero(Command{PlayerID: "host", Hero: "knight"})
	r.handleSetReady(Command{PlayerID: "host", Ready: true})

	r.handleStartGame(Command{PlayerID: "p2"})
	assert.False(t, r.Started, "a non-host must not be able to start")

	r.handleStartGame(Command{PlayerID: "host"})
	assert.False(t, r.Started, "not everyone is ready yet")

	r.handleSelectHero(Command{PlayerID: "p2", Hero: "mage"})
	r.handleSetReady(Command{PlayerID: "p2", Ready: true})
	r.handleStartGame(Command{PlayerID: "host"})
	assert.True(t, r.Started)
	assert.Len(t, r.States, 2)
}

func TestHandleGraceExpiredRemovesPlayerAndReassignsHost(t *testing.T) {
	r := newTestRoom(t)
	r.handleJoin(Command{ConnID: "c2", PlayerID: "p2", PlayerName: "Two"})

	r.handleGraceExpired("host")

	assert.NotContains(t, r.Players, "host")
	assert.Equal(t, "p2", r.HostID)
	assert.Equal(t, []string{"p2"}, r.PlayerOrder)
}

func TestHandleGraceExpiredStopsEmptyRoom(t *testing.T) {
	r := newTestRoom(t)
	r.handleGraceExpired("host")

	select {
	case <-r.Closed():
	default:
		t.Fatal("an empty room must stop itself")
	}
}
