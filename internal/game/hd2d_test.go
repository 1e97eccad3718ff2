package game

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/answjddns08/GamingHerb/internal/protocol"
)

func selectTeam(t *testing.T, h *HD2D, userID, team string) Result {
	t.Helper()
	return h.HandleAction(mustAction(t, protocol.ActionSelectTeam, protocol.SelectTeamPayload{Team: team}), userID, nil)
}

func submitTurn(t *testing.T, h *HD2D, userID string, payload protocol.SubmitTurnPayload) Result {
	t.Helper()
	return h.HandleAction(mustAction(t, protocol.ActionSubmitTurn, payload), userID, nil)
}

func duelRoster() []protocol.Character {
	return []protocol.Character{
		{Name: "Knight", Team: "red", Health: 100, MaxHealth: 100, Damage: 20, Defense: 5, Speed: 10},
		{Name: "Rogue", Team: "blue", Health: 80, MaxHealth: 80, Damage: 25, Defense: 3, Speed: 20},
	}
}

func battleReady(t *testing.T) *HD2D {
	t.Helper()
	h := NewHD2D(nil)
	require.True(t, selectTeam(t, h, "alice", "red").Success)
	require.True(t, selectTeam(t, h, "bob", "blue").Success)
	return h
}

func TestHD2DSelectTeam(t *testing.T) {
	t.Parallel()

	h := NewHD2D(nil)

	res := selectTeam(t, h, "alice", "red")
	require.True(t, res.Success)
	assert.True(t, res.ShouldBroadcast)

	first := decodePayload[protocol.SelectTeamResultPayload](t, res.Response)
	assert.Equal(t, "red", first.SelectedTeams)
	assert.False(t, first.Done)

	// Taken team is rejected with an error for the actor.
	res = selectTeam(t, h, "bob", "red")
	assert.False(t, res.Success)
	assert.Equal(t, protocol.MsgGameError, res.Response.Type)

	res = selectTeam(t, h, "bob", "blue")
	require.True(t, res.Success)
	second := decodePayload[protocol.SelectTeamResultPayload](t, res.Response)
	assert.True(t, second.Done)
}

func TestHD2DBarrierWaitsForAllPlayers(t *testing.T) {
	t.Parallel()

	h := battleReady(t)
	roster := duelRoster()

	res := submitTurn(t, h, "alice", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{{ActorName: "Knight", TargetName: "Rogue", SkillType: "attack", SkillPower: 20}},
		Characters: roster,
	})
	require.True(t, res.Success)
	assert.Nil(t, res.Response, "first submission must not resolve the turn")

	res = submitTurn(t, h, "bob", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{{ActorName: "Rogue", TargetName: "Knight", SkillType: "attack", SkillPower: 25}},
		Characters: roster,
	})
	require.True(t, res.Success)
	require.NotNil(t, res.Response)
	assert.True(t, res.ShouldBroadcast)
	assert.Equal(t, protocol.MsgTurnResolved, res.Response.Type)

	resolved := decodePayload[protocol.TurnResolvedPayload](t, res.Response)
	assert.Equal(t, 1, resolved.TurnID)
	require.Len(t, resolved.Actions, 2)
	// Rogue is faster and acts first.
	assert.Equal(t, "Rogue", resolved.Actions[0].ActorName)
	assert.Equal(t, "Knight", resolved.Actions[1].ActorName)
}

func TestHD2DResubmitReplacesPendingActions(t *testing.T) {
	t.Parallel()

	h := battleReady(t)
	roster := duelRoster()

	require.True(t, submitTurn(t, h, "alice", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{{ActorName: "Knight", TargetName: "Rogue", SkillType: "attack", SkillPower: 20}},
		Characters: roster,
	}).Success)
	require.True(t, submitTurn(t, h, "alice", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{{ActorName: "Knight", TargetName: "Knight", SkillType: "heal", SkillPower: 10}},
		Characters: roster,
	}).Success)

	res := submitTurn(t, h, "bob", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{{ActorName: "Rogue", TargetName: "Knight", SkillType: "attack", SkillPower: 25}},
		Characters: roster,
	})
	require.True(t, res.Success)

	resolved := decodePayload[protocol.TurnResolvedPayload](t, res.Response)
	require.Len(t, resolved.Actions, 2, "replaced submission must not stack actions")

	var healSeen bool
	for _, a := range resolved.Actions {
		if a.SkillType == "heal" {
			healSeen = true
		}
	}
	assert.True(t, healSeen)
}

func TestHD2DSpeedTiesKeepSubmissionOrder(t *testing.T) {
	t.Parallel()

	h := NewHD2D(nil)
	require.True(t, selectTeam(t, h, "alice", "red").Success)
	require.True(t, selectTeam(t, h, "bob", "blue").Success)

	roster := []protocol.Character{
		{Name: "A", Team: "red", Health: 100, MaxHealth: 100, Speed: 10},
		{Name: "B", Team: "blue", Health: 100, MaxHealth: 100, Speed: 20},
		{Name: "C", Team: "red", Health: 100, MaxHealth: 100, Speed: 10},
	}

	require.True(t, submitTurn(t, h, "alice", protocol.SubmitTurnPayload{
		Actions: []protocol.BattleAction{
			{ActorName: "A", TargetName: "B", SkillType: "attack", SkillPower: 1},
			{ActorName: "C", TargetName: "B", SkillType: "attack", SkillPower: 1},
		},
		Characters: roster,
	}).Success)
	res := submitTurn(t, h, "bob", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{{ActorName: "B", TargetName: "A", SkillType: "attack", SkillPower: 1}},
		Characters: roster,
	})
	require.True(t, res.Success)

	resolved := decodePayload[protocol.TurnResolvedPayload](t, res.Response)
	require.Len(t, resolved.Actions, 3)
	assert.Equal(t, "B", resolved.Actions[0].ActorName)
	assert.Equal(t, "A", resolved.Actions[1].ActorName)
	assert.Equal(t, "C", resolved.Actions[2].ActorName)
}

func TestHD2DDamageAccountsForDefense(t *testing.T) {
	t.Parallel()

	h := battleReady(t)
	roster := duelRoster()

	require.True(t, submitTurn(t, h, "alice", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{{ActorName: "Knight", TargetName: "Rogue", SkillType: "attack", SkillPower: 2}},
		Characters: roster,
	}).Success)
	res := submitTurn(t, h, "bob", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{{ActorName: "Rogue", TargetName: "Knight", SkillType: "attack", SkillPower: 25}},
		Characters: roster,
	})
	require.True(t, res.Success)

	resolved := decodePayload[protocol.TurnResolvedPayload](t, res.Response)
	outcomes := map[string]protocol.ActionOutcome{}
	for _, a := range resolved.Actions {
		outcomes[a.ActorName] = a.Result
	}

	// Rogue: 25 power - 5 defense = 20; Knight: 2 power - 3 defense floors at 0.
	assert.Equal(t, 20, outcomes["Rogue"].Amount)
	assert.Equal(t, 80, outcomes["Rogue"].TargetHealth)
	assert.Equal(t, 0, outcomes["Knight"].Amount)
}

func TestHD2DHealIsBoundedByMissingHealth(t *testing.T) {
	t.Parallel()

	h := battleReady(t)
	h.characters["Knight"] = &battleCharacter{Name: "Knight", Team: "red", Health: 90, MaxHealth: 100, BaseDamage: 20, BaseDefense: 5}
	h.characters["Rogue"] = &battleCharacter{Name: "Rogue", Team: "blue", Health: 80, MaxHealth: 80, BaseDamage: 25, BaseDefense: 3}
	h.charOrder = []string{"Knight", "Rogue"}

	require.True(t, submitTurn(t, h, "alice", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{{ActorName: "Knight", TargetName: "Knight", SkillType: "heal", SkillPower: 50}},
		Characters: []protocol.Character{},
	}).Success)
	res := submitTurn(t, h, "bob", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{},
		Characters: []protocol.Character{},
	})
	require.True(t, res.Success)

	resolved := decodePayload[protocol.TurnResolvedPayload](t, res.Response)
	require.Len(t, resolved.Actions, 1)
	assert.Equal(t, 10, resolved.Actions[0].Result.Amount)
	assert.Equal(t, 100, resolved.Actions[0].Result.TargetHealth)
}

func TestHD2DBuffExpiresBackToBaseStats(t *testing.T) {
	t.Parallel()

	h := battleReady(t)
	roster := duelRoster()
	noop := protocol.SubmitTurnPayload{Actions: []protocol.BattleAction{}, Characters: roster}

	// Turn 1: buff Knight's damage by 15 for 2 turns.
	require.True(t, submitTurn(t, h, "alice", protocol.SubmitTurnPayload{
		Actions: []protocol.BattleAction{{
			ActorName: "Knight", TargetName: "Knight",
			SkillType: "buff", SkillPower: 15, BuffType: "damage", BuffDuration: 2,
		}},
		Characters: roster,
	}).Success)
	res := submitTurn(t, h, "bob", noop)
	require.True(t, res.Success)

	resolved := decodePayload[protocol.TurnResolvedPayload](t, res.Response)
	assert.Equal(t, 35, h.characters["Knight"].Damage, "buff applies immediately")
	assert.Equal(t, 1, resolved.TurnID)

	// Turn 2: buff still active (1 turn left after tick at end of turn 1).
	require.True(t, submitTurn(t, h, "alice", noop).Success)
	require.True(t, submitTurn(t, h, "bob", noop).Success)

	// Expired now, back at base.
	assert.Equal(t, 20, h.characters["Knight"].Damage)
	assert.Empty(t, h.characters["Knight"].ActiveBuffs)
}

func TestHD2DSkipsDeadActors(t *testing.T) {
	t.Parallel()

	h := battleReady(t)
	h.characters["Knight"] = &battleCharacter{Name: "Knight", Team: "red", Health: 0, MaxHealth: 100}
	h.characters["Rogue"] = &battleCharacter{Name: "Rogue", Team: "blue", Health: 80, MaxHealth: 80}
	h.charOrder = []string{"Knight", "Rogue"}

	require.True(t, submitTurn(t, h, "alice", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{{ActorName: "Knight", TargetName: "Rogue", SkillType: "attack", SkillPower: 99}},
		Characters: []protocol.Character{},
	}).Success)
	res := submitTurn(t, h, "bob", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{},
		Characters: []protocol.Character{},
	})
	require.True(t, res.Success)

	resolved := decodePayload[protocol.TurnResolvedPayload](t, res.Response)
	require.Len(t, resolved.Actions, 1)
	assert.Equal(t, "skipped", resolved.Actions[0].Result.Type)
	assert.Equal(t, 80, h.characters["Rogue"].Health)

	// One side wiped out: game over.
	assert.True(t, resolved.GameOver)
	assert.Equal(t, "blue", resolved.Winner)
	assert.Equal(t, "red", resolved.Loser)
}

func TestHD2DInvalidSubmitPayload(t *testing.T) {
	t.Parallel()

	h := battleReady(t)

	res := h.HandleAction(&protocol.Action{Type: protocol.ActionSubmitTurn, Payload: []byte(`{"characters":[]}`)}, "alice", nil)
	assert.False(t, res.Success)
	assert.Equal(t, protocol.MsgGameError, res.Response.Type)

	res = h.HandleAction(&protocol.Action{Type: protocol.ActionSubmitTurn, Payload: []byte(`{"actions":[]}`)}, "alice", nil)
	assert.False(t, res.Success)

	// Unknown player cannot submit.
	res = submitTurn(t, h, "mallory", protocol.SubmitTurnPayload{Actions: []protocol.BattleAction{}, Characters: []protocol.Character{}})
	assert.False(t, res.Success)
}

func TestHD2DRestartNeedsAllVotes(t *testing.T) {
	t.Parallel()

	h := battleReady(t)

	res := h.HandleAction(&protocol.Action{Type: protocol.ActionRestartVote}, "alice", nil)
	require.True(t, res.Success)
	assert.Equal(t, protocol.MsgRestartVoted, res.Response.Type)

	res = h.HandleAction(&protocol.Action{Type: protocol.ActionRestartVote}, "bob", nil)
	require.True(t, res.Success)
	assert.Equal(t, protocol.MsgRestartConfirmed, res.Response.Type)

	// Full reset: back to team selection.
	assert.Empty(t, h.players)
	assert.Empty(t, h.restartVotes)
	assert.Equal(t, 0, h.turnCount)
}

func TestHD2DRestartIgnoresLeftPlayers(t *testing.T) {
	t.Parallel()

	h := battleReady(t)

	res := h.HandleAction(&protocol.Action{Type: protocol.ActionLeaveMatch}, "bob", nil)
	require.True(t, res.Success)
	assert.Equal(t, protocol.MsgOpponentLeft, res.Response.Type)

	// Left players cannot vote, and the quorum shrinks to the remaining player.
	assert.False(t, h.HandleAction(&protocol.Action{Type: protocol.ActionRestartVote}, "bob", nil).Success)

	res = h.HandleAction(&protocol.Action{Type: protocol.ActionRestartVote}, "alice", nil)
	require.True(t, res.Success)
	assert.Equal(t, protocol.MsgRestartConfirmed, res.Response.Type)
}

func TestHD2DPlayerRemovedCancelsVotes(t *testing.T) {
	t.Parallel()

	h := battleReady(t)
	require.True(t, h.HandleAction(&protocol.Action{Type: protocol.ActionRestartVote}, "alice", nil).Success)

	cancelled, resolved := h.PlayerRemoved("bob")
	assert.True(t, cancelled)
	assert.Nil(t, resolved)
	assert.Empty(t, h.restartVotes)
	assert.NotContains(t, h.players, "bob")

	// Removing an unknown player is a no-op.
	cancelled, resolved = h.PlayerRemoved("mallory")
	assert.False(t, cancelled)
	assert.Nil(t, resolved)
}

func TestHD2DPlayerRemovedDropsPendingSubmission(t *testing.T) {
	t.Parallel()

	h := battleReady(t)
	roster := duelRoster()

	require.True(t, submitTurn(t, h, "bob", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{{ActorName: "Rogue", TargetName: "Knight", SkillType: "attack", SkillPower: 25}},
		Characters: roster,
	}).Success)

	_, resolved := h.PlayerRemoved("bob")
	assert.Nil(t, resolved, "remaining player has not submitted yet")
	assert.Empty(t, h.pendingActions)
	assert.Empty(t, h.submitOrder)
}

func TestHD2DRemovalResolvesReadyBarrier(t *testing.T) {
	t.Parallel()

	h := battleReady(t)
	roster := duelRoster()

	require.True(t, submitTurn(t, h, "alice", protocol.SubmitTurnPayload{
		Actions:    []protocol.BattleAction{{ActorName: "Knight", TargetName: "Rogue", SkillType: "attack", SkillPower: 20}},
		Characters: roster,
	}).Success)
	require.Equal(t, 0, h.turnCount)

	// Bob's seat goes away while alice is the only submitter left:
	// the barrier is now satisfied and the turn must resolve in place.
	_, resolved := h.PlayerRemoved("bob")
	require.NotNil(t, resolved)
	assert.Equal(t, protocol.MsgTurnResolved, resolved.Type)

	payload := decodePayload[protocol.TurnResolvedPayload](t, resolved)
	assert.Equal(t, 1, payload.TurnID)
	require.Len(t, payload.Actions, 1)
	assert.Equal(t, "Knight", payload.Actions[0].ActorName)

	assert.Equal(t, 1, h.turnCount)
	assert.Empty(t, h.pendingActions, "pending maps clear after resolution")
}
