package integration

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/engine/handler"
	"github.com/starward-games/helios-server/internal/engine/phase"
	"github.com/starward-games/helios-server/internal/state"
	"github.com/starward-games/helios-server/internal/store"
)

// env drives a scripted game through the real transactional handlers.
type env struct {
	t       *testing.T
	st      *store.Memory
	actions *handler.ActionHandler
	undo    *handler.UndoHandler
	gameID  string
	version int64
}

func newEnv(t *testing.T) *env {
	logger := zaptest.NewLogger(t)
	st := store.NewMemory()
	opts := phase.Options{RoundLimit: 2, MaxUndoDepth: 10}

	g := &state.Game{
		ID:           "flow-game",
		Version:      1,
		CurrentPhase: state.PhaseGameStart,
		Round:        1,
		TurnOrder:    []string{"p1", "p2"},
		SetupDone:    true,
		Players: map[string]*state.Player{
			"p1": {ID: "p1", Name: "Ada", Race: "Tekanu", Homeworld: "sys-1", Minerals: 5},
			"p2": {ID: "p2", Name: "Grace", Race: "Voss", Homeworld: "sys-3", Minerals: 5},
		},
		Systems: map[string]*state.System{
			"sys-1": {ID: "sys-1", Name: "Kessel", Adjacent: []string{"sys-2", "sys-4"}, Owner: "p1", Yield: 2, Ships: map[string]int{"p1": 3}},
			"sys-2": {ID: "sys-2", Name: "Miral", Adjacent: []string{"sys-1", "sys-3"}, Yield: 1},
			"sys-3": {ID: "sys-3", Name: "Orto", Adjacent: []string{"sys-2", "sys-4"}, Owner: "p2", Yield: 2, Ships: map[string]int{"p2": 3}},
			"sys-4": {ID: "sys-4", Name: "Dagen", Adjacent: []string{"sys-3", "sys-1"}, Yield: 1, Ships: map[string]int{"p2": 1}},
		},
	}
	raw, err := json.Marshal(g)
	require.NoError(t, err)
	require.NoError(t, st.SetDocument(context.Background(), phase.GameDocPath(g.ID), raw))

	return &env{
		t:       t,
		st:      st,
		actions: handler.NewActionHandler(st, logger, opts),
		undo:    handler.NewUndoHandler(st, logger, opts),
		gameID:  g.ID,
		version: 1,
	}
}

// play submits one action, asserting success and the version bump.
func (e *env) play(player string, payload map[string]any) {
	e.t.Helper()
	payload["expectedVersion"] = e.version
	resp := e.actions.Handle(context.Background(), e.gameID, player, payload)
	require.True(e.t, resp.Success, "%s %v failed: %s %s", player, payload["type"], resp.Error, resp.Message)
	e.version++
	require.Equal(e.t, e.version, e.game().Version, "every commit bumps the version by one")
}

// undoLast undoes the player's last action, asserting success.
func (e *env) undoLast(player string) {
	e.t.Helper()
	resp := e.undo.Undo(context.Background(), e.gameID, player, e.version)
	require.True(e.t, resp.Success, "%s undo failed: %s %s", player, resp.Error, resp.Message)
	e.version++
}

func (e *env) game() *state.Game {
	e.t.Helper()
	raw, err := e.st.GetDocument(context.Background(), phase.GameDocPath(e.gameID))
	require.NoError(e.t, err)
	var g state.Game
	require.NoError(e.t, json.Unmarshal(raw, &g))
	return &g
}

// TestFullGameFlow plays a complete two-round game through every phase:
// readying up, colonization with an undo, a combat over a picketed system,
// simultaneous production, and the round-limit finish.
func TestFullGameFlow(t *testing.T) {
	e := newEnv(t)

	// game_start: both players ready up.
	e.play("p1", map[string]any{"type": action.TypeReady})
	e.play("p2", map[string]any{"type": action.TypeReady})
	g := e.game()
	require.Equal(t, state.PhaseOutreach, g.CurrentPhase)
	require.Equal(t, "p1", g.ActivePlayer)

	// outreach: p1 colonizes, reconsiders, colonizes again, then passes.
	e.play("p1", map[string]any{"type": action.TypeColonize, "system": "sys-2"})
	e.undoLast("p1")
	require.Empty(t, e.game().Systems["sys-2"].Owner)
	e.play("p1", map[string]any{"type": action.TypeColonize, "system": "sys-2"})
	e.play("p1", map[string]any{"type": action.TypePass})
	e.play("p2", map[string]any{"type": action.TypePass})
	g = e.game()
	require.Equal(t, state.PhaseExpansion, g.CurrentPhase)
	require.Equal(t, 3, g.Players["p1"].Minerals)

	// expansion: p1 jumps onto p2's picket at sys-4 and combat opens.
	e.play("p1", map[string]any{
		"type": action.TypeJump, "from": "sys-1", "to": "sys-4", "ships": 2,
	})
	g = e.game()
	require.Equal(t, state.PhaseCombat, g.CurrentPhase)
	require.NotNil(t, g.Combat)

	// combat round 1: the attacker fires, the defender withdraws to its
	// adjacent homeworld, the attacker takes the system.
	e.play("p1", map[string]any{"type": action.TypeCombatOrder, "order": "fire"})
	e.play("p2", map[string]any{"type": action.TypeCombatOrder, "order": "withdraw"})
	g = e.game()
	require.Nil(t, g.Combat)
	require.Equal(t, state.PhaseExpansion, g.CurrentPhase)
	assert.Equal(t, "p1", g.ActivePlayer, "attacker resumes after combat")
	assert.Equal(t, "p1", g.Systems["sys-4"].Owner)
	assert.Equal(t, 2, g.Systems["sys-4"].Ships["p1"])
	assert.Equal(t, 0, g.Systems["sys-4"].Ships["p2"])
	assert.Equal(t, 4, g.Systems["sys-3"].Ships["p2"], "withdrawn picket rejoins the fleet")

	// Both players are done moving.
	e.play("p1", map[string]any{"type": action.TypePass})
	e.play("p2", map[string]any{"type": action.TypePass})
	g = e.game()
	require.Equal(t, state.PhaseEmpire, g.CurrentPhase)
	assert.Equal(t, 7, g.Players["p1"].Minerals, "income pays each owned system's yield")
	assert.Equal(t, 7, g.Players["p2"].Minerals)

	// empire: production is queued now, paid and delivered at round close.
	e.play("p1", map[string]any{"type": action.TypeProduce, "system": "sys-1", "ships": 2})
	g = e.game()
	assert.Equal(t, 7, g.Players["p1"].Minerals, "cost is deducted at round close, not at queue time")
	assert.Equal(t, 1, g.Systems["sys-1"].Ships["p1"])

	e.play("p2", map[string]any{"type": action.TypeProduce, "system": "sys-3", "ships": 1})
	e.play("p1", map[string]any{"type": action.TypePass})
	e.play("p2", map[string]any{"type": action.TypePass})
	g = e.game()
	require.Equal(t, state.PhaseOutreach, g.CurrentPhase, "round two begins")
	require.Equal(t, 2, g.Round)
	assert.Equal(t, 3, g.Players["p1"].Minerals)
	assert.Equal(t, 3, g.Systems["sys-1"].Ships["p1"], "queued ships materialized")
	assert.Equal(t, 5, g.Systems["sys-3"].Ships["p2"])
	assert.Empty(t, g.Pending)

	// Round two: everyone coasts to the round limit.
	e.play("p1", map[string]any{"type": action.TypePass})
	e.play("p2", map[string]any{"type": action.TypePass})
	require.Equal(t, state.PhaseExpansion, e.game().CurrentPhase)
	e.play("p1", map[string]any{"type": action.TypePass})
	e.play("p2", map[string]any{"type": action.TypePass})
	require.Equal(t, state.PhaseEmpire, e.game().CurrentPhase)
	e.play("p1", map[string]any{"type": action.TypePass})
	e.play("p2", map[string]any{"type": action.TypePass})

	g = e.game()
	require.Equal(t, state.PhaseGameEnd, g.CurrentPhase)
	assert.Equal(t, "p1", g.Winner, "three systems beat one at the round limit")
	assert.Greater(t, g.Round, 2)

	// Terminal phase: chat still works, nothing else does.
	resp := e.actions.Handle(context.Background(), e.gameID, "p2", map[string]any{
		"type": action.TypeChat, "message": "gg",
	})
	require.True(t, resp.Success)
	resp = e.actions.Handle(context.Background(), e.gameID, "p2", map[string]any{
		"type": action.TypePass, "expectedVersion": e.version,
	})
	require.False(t, resp.Success)
	assert.Equal(t, action.ErrNotInPhase, resp.Error)
}
