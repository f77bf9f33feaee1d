package phase

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/state"
)

func phaseGame(name state.PhaseName) *state.Game {
	return &state.Game{
		ID:           "g1",
		CurrentPhase: name,
		Round:        1,
		TurnOrder:    []string{"p1", "p2"},
		SetupDone:    true,
		Players: map[string]*state.Player{
			"p1": {ID: "p1", Name: "Ada", Minerals: 5},
			"p2": {ID: "p2", Name: "Grace", Minerals: 5},
		},
		Systems: map[string]*state.System{
			"sys-1": {ID: "sys-1", Name: "Kessel", Adjacent: []string{"sys-2"}, Owner: "p1", Yield: 2, Ships: map[string]int{"p1": 3}},
			"sys-2": {ID: "sys-2", Name: "Miral", Adjacent: []string{"sys-1", "sys-3"}, Yield: 1},
			"sys-3": {ID: "sys-3", Name: "Orto", Adjacent: []string{"sys-2"}, Owner: "p2", Yield: 2, Ships: map[string]int{"p2": 3}},
		},
	}
}

func ctxFor(g *state.Game) *Context {
	return NewContext(state.NewRecorder(g), zap.NewNop(), Options{RoundLimit: 5, MaxUndoDepth: 10})
}

func TestNextFollowsTheTable(t *testing.T) {
	tests := []struct {
		from state.PhaseName
		ev   Event
		want state.PhaseName
		ok   bool
	}{
		{state.PhaseGameStart, EventAllReady, state.PhaseOutreach, true},
		{state.PhaseOutreach, EventRotationComplete, state.PhaseExpansion, true},
		{state.PhaseExpansion, EventCombatStarted, state.PhaseCombat, true},
		{state.PhaseCombat, EventCombatEnded, state.PhaseExpansion, true},
		{state.PhaseExpansion, EventAllPassed, state.PhaseEmpire, true},
		{state.PhaseEmpire, EventRoundComplete, state.PhaseOutreach, true},
		{state.PhaseEmpire, EventGameOver, state.PhaseGameEnd, true},
		{state.PhaseGameStart, EventAllPassed, "", false},
		{state.PhaseGameEnd, EventAllReady, "", false},
		{state.PhaseCombat, EventRoundComplete, "", false},
	}
	for _, tc := range tests {
		got, ok := Next(tc.from, tc.ev)
		assert.Equal(t, tc.ok, ok, "%s + %s", tc.from, tc.ev)
		if tc.ok {
			assert.Equal(t, tc.want, got, "%s + %s", tc.from, tc.ev)
		}
	}
}

func TestTransitionRejectsEventsOffTheTable(t *testing.T) {
	g := phaseGame(state.PhaseGameStart)
	err := Transition(ctxFor(g), EventAllPassed)
	require.Error(t, err)
	assert.Equal(t, state.PhaseGameStart, g.CurrentPhase, "a rejected transition changes nothing")
}

func TestTransitionResetsRotationBookkeeping(t *testing.T) {
	g := phaseGame(state.PhaseOutreach)
	g.Passed = map[string]bool{"p1": true, "p2": true}
	g.Acted = map[string]bool{"p1": true}

	require.NoError(t, Transition(ctxFor(g), EventRotationComplete))

	assert.Equal(t, state.PhaseExpansion, g.CurrentPhase)
	assert.False(t, g.Passed["p1"])
	assert.False(t, g.Passed["p2"])
	assert.False(t, g.Acted["p1"])
	assert.Equal(t, "p1", g.ActivePlayer, "the destination picks the opening seat")
}

func TestTransitionDeltasAreRecorded(t *testing.T) {
	g := phaseGame(state.PhaseExpansion)
	ctx := ctxFor(g)

	require.NoError(t, Transition(ctx, EventAllPassed))
	assert.Equal(t, state.PhaseEmpire, g.CurrentPhase)

	// currentPhase moves only through the recorder; the handler relies on
	// this to detect boundary crossings and clear undo stacks.
	var seen bool
	for _, d := range ctx.Rec.Deltas() {
		if d.Path == "currentPhase" {
			seen = true
			assert.Equal(t, string(state.PhaseExpansion), d.Old)
			assert.Equal(t, string(state.PhaseEmpire), d.New)
		}
	}
	assert.True(t, seen)
}

func TestForNameFallsBackToEmptyPhase(t *testing.T) {
	ph := ForName("warp_phase", zap.NewNop())
	g := phaseGame("warp_phase")
	ctx := ctxFor(g)

	assert.Equal(t, state.PhaseName("warp_phase"), ph.Name())
	assert.False(t, ph.IsItMyTurn(ctx, "p1"))

	la := ph.LegalActions(ctx, "p1")
	assert.Empty(t, la.Actions)
	assert.NotEmpty(t, la.Message)

	resp := ph.ValidateAction(ctx, "p1", action.NewPass())
	require.NotNil(t, resp)
	assert.Equal(t, action.ErrNotInPhase, resp.Error)
}
