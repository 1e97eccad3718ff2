package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/answjddns08/GamingHerb/internal/protocol"
)

func TestSideAssignment(t *testing.T) {
	t.Parallel()

	room := twoSeats()

	assert.Equal(t, SideBlack, sideOf(room, "alice"))
	assert.Equal(t, SideWhite, sideOf(room, "bob"))
	assert.Equal(t, "", sideOf(room, "mallory"))

	assert.Equal(t, SideWhite, opponent(SideBlack))
	assert.Equal(t, SideBlack, opponent(SideWhite))

	assert.Equal(t, "bob", otherUser(room, "alice"))
	assert.Equal(t, "alice", otherUser(room, "bob"))
}

func TestRestartRequestTargetsOpponent(t *testing.T) {
	t.Parallel()

	room := twoSeats()
	g := NewGomoku()

	res := g.HandleAction(&protocol.Action{Type: protocol.ActionRestartRequest}, "alice", room)
	require.True(t, res.Success)
	assert.Equal(t, "bob", res.TargetPlayer)
	assert.True(t, room.restart.Pending)
	assert.Equal(t, "alice", room.restart.RequesterID)

	payload := decodePayload[protocol.RestartRequestedPayload](t, res.Response)
	assert.Equal(t, "alice", payload.RequesterID)
	assert.Equal(t, "Alice", payload.RequesterName)
}

func TestRestartRepeatRequestIsNoOp(t *testing.T) {
	t.Parallel()

	room := twoSeats()
	g := NewGomoku()

	require.True(t, g.HandleAction(&protocol.Action{Type: protocol.ActionRestartRequest}, "alice", room).Success)

	res := g.HandleAction(&protocol.Action{Type: protocol.ActionRestartRequest}, "alice", room)
	assert.True(t, res.Success)
	assert.Nil(t, res.Response)
	assert.Equal(t, "alice", room.restart.RequesterID)
}

func TestRestartAcceptResetsBoard(t *testing.T) {
	t.Parallel()

	room := twoSeats()
	g := NewGomoku()
	require.True(t, gomokuMove(t, g, room, "alice", 7, 7).Success)

	require.True(t, g.HandleAction(&protocol.Action{Type: protocol.ActionRestartRequest}, "alice", room).Success)

	res := g.HandleAction(&protocol.Action{Type: protocol.ActionRestartAccept}, "bob", room)
	require.True(t, res.Success)
	assert.True(t, res.ShouldBroadcast)
	require.Len(t, res.Responses, 2)
	assert.Equal(t, protocol.MsgGameUpdateState, res.Responses[0].Type)
	assert.Equal(t, protocol.MsgRestartAccepted, res.Responses[1].Type)

	state := decodePayload[protocol.BoardState](t, res.Responses[0])
	assert.Equal(t, "", state.Board[7][7])
	assert.Equal(t, 0, state.MoveCount)
	assert.False(t, room.restart.Pending)
}

func TestRestartCannotAcceptOwnRequest(t *testing.T) {
	t.Parallel()

	room := twoSeats()
	g := NewGomoku()

	require.True(t, g.HandleAction(&protocol.Action{Type: protocol.ActionRestartRequest}, "alice", room).Success)

	assert.False(t, g.HandleAction(&protocol.Action{Type: protocol.ActionRestartAccept}, "alice", room).Success)
	assert.True(t, room.restart.Pending)

	// Same rule for declining.
	assert.False(t, g.HandleAction(&protocol.Action{Type: protocol.ActionRestartDecline}, "alice", room).Success)
}

func TestRestartAcceptWithoutPendingRequest(t *testing.T) {
	t.Parallel()

	room := twoSeats()
	g := NewGomoku()

	assert.False(t, g.HandleAction(&protocol.Action{Type: protocol.ActionRestartAccept}, "bob", room).Success)
	assert.False(t, g.HandleAction(&protocol.Action{Type: protocol.ActionRestartDecline}, "bob", room).Success)
}

func TestRestartDecline(t *testing.T) {
	t.Parallel()

	room := twoSeats()
	g := NewGomoku()

	require.True(t, g.HandleAction(&protocol.Action{Type: protocol.ActionRestartRequest}, "alice", room).Success)

	res := g.HandleAction(&protocol.Action{Type: protocol.ActionRestartDecline}, "bob", room)
	require.True(t, res.Success)
	assert.True(t, res.ShouldBroadcast)
	assert.False(t, room.restart.Pending)

	payload := decodePayload[protocol.RestartDeclinedPayload](t, res.Response)
	assert.Equal(t, "bob", payload.DeclinerID)
	assert.Equal(t, "Bob", payload.DeclinerName)
}

func TestPlayerLoadedReturnsStateToActorOnly(t *testing.T) {
	t.Parallel()

	room := twoSeats()
	g := NewGomoku()
	require.True(t, gomokuMove(t, g, room, "alice", 7, 7).Success)

	res := g.HandleAction(&protocol.Action{Type: protocol.ActionPlayerLoaded}, "bob", room)
	require.True(t, res.Success)
	assert.False(t, res.ShouldBroadcast)
	assert.Equal(t, protocol.MsgGameInitialState, res.Response.Type)

	payload := decodePayload[protocol.InitialStatePayload](t, res.Response)
	require.Len(t, payload.Players, 2)
	assert.Equal(t, "alice", payload.Players[0].UserID)
	assert.Equal(t, "Bob", payload.Players[1].UserName)
}
