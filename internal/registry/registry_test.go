package registry

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/platformco/coop-server/config"
)

type fakeSender struct {
	sent   [][]byte
	closed bool
}

func (f *fakeSender) Send(raw []byte) error {
	f.sent = append(f.sent, raw)
	return nil
}

func (f *fakeSender) Close() { f.closed = true }

func newTestHub() *Hub {
	return NewHub(config.DefaultServerConfig(), zerolog.Nop())
}

func TestCreateRoomThenGetRoom(t *testing.T) {
	h := newTestHub()
	room, err := h.CreateRoom("ABCD", 4, "host", "Host")
	require.NoError(t, err)
	defer room.Stop()

	found, ok := h.GetRoom("ABCD")
	assert.True(t, ok)
	assert.Same(t, room, found)
}

func TestCreateRoomRejectsDuplicateCode(t *testing.T) {
	h := newTestHub()
	room, err := h.CreateRoom("ABCD", 4, "host", "Host")
	require.NoError(t, err)
	defer room.Stop()

	_, err = h.CreateRoom("ABCD", 4, "host2", "Host2")
	assert.Error(t, err)
}

func TestCreateRoomGeneratesCodeWhenEmpty(t *testing.T) {
	h := newTestHub()
	room, err := h.CreateRoom("", 4, "host", "Host")
	require.NoError(t, err)
	defer room.Stop()

	assert.NotEmpty(t, room.Code)
}

func TestSendToConnectionDeliversToRegisteredSender(t *testing.T) {
	h := newTestHub()
	room, err := h.CreateRoom("ABCD", 4, "host", "Host")
	require.NoError(t, err)
	defer room.Stop()

	sender := &fakeSender{}
	h.RegisterConnection("conn-1", "ABCD", "host", sender)

	h.SendToConnection("conn-1", "denied", "nope")
	assert.Len(t, sender.sent, 1)
}

func TestEvictStaleConnectionsClosesOthersOnly(t *testing.T) {
	h := newTestHub()
	room, err := h.CreateRoom("ABCD", 4, "host", "Host")
	require.NoError(t, err)
	defer room.Stop()

	oldSender := &fakeSender{}
	newSender := &fakeSender{}
	h.RegisterConnection("conn-old", "ABCD", "host", oldSender)
	h.RegisterConnection("conn-new", "ABCD", "host", newSender)

	h.EvictStaleConnections("ABCD", "host", "conn-new")

	assert.True(t, oldSender.closed)
	assert.False(t, newSender.closed)
}

func TestStatsCountsRoomsAndConnections(t *testing.T) {
	h := newTestHub()
	room, err := h.CreateRoom("ABCD", 4, "host", "Host")
	require.NoError(t, err)
	defer room.Stop()

	h.RegisterConnection("conn-1", "ABCD", "host", &fakeSender{})

	rooms, players := h.Stats()
	assert.Equal(t, 1, rooms)
	assert.Equal(t, 1, players)
}

func TestBroadcastStartGameReachesRoomMembers(t *testing.T) {
	h := newTestHub()
	room, err := h.CreateRoom("ABCD", 4, "host", "Host")
	require.NoError(t, err)
	defer room.Stop()

	sender := &fakeSender{}
	h.RegisterConnection("conn-1", "ABCD", "host", sender)

	h.BroadcastStartGame(room)
	assert.Len(t, sender.sent, 1)
}

func TestRemoveConnectionUnregistersConnection(t *testing.T) {
	h := newTestHub()
	room, err := h.CreateRoom("ABCD", 4, "host", "Host")
	require.NoError(t, err)
	defer room.Stop()

	h.RegisterConnection("conn-1", "ABCD", "host", &fakeSender{})
	h.RemoveConnection("conn-1")

	_, stillThere := h.conns["conn-1"]
	assert.False(t, stillThere)
}
