package bot

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/starward-games/helios-server/internal/engine/phase"
	"github.com/starward-games/helios-server/internal/state"
	"github.com/starward-games/helios-server/internal/store"
)

func seedGame(t *testing.T, st store.Store, seed int64) *state.Game {
	t.Helper()
	g, err := state.NewGame("bot-game", map[string]string{
		"p1": "Ada",
		"p2": "Grace",
	}, state.BoardOptions{Systems: 8, StartingMinerals: 5, Seed: seed})
	require.NoError(t, err)

	raw, err := json.Marshal(g)
	require.NoError(t, err)
	require.NoError(t, st.SetDocument(context.Background(), phase.GameDocPath(g.ID), raw))
	return g
}

func TestBotPlaysFullGame(t *testing.T) {
	st := store.NewMemory()
	seedGame(t, st, 7)

	opts := phase.Options{RoundLimit: 2, MaxUndoDepth: 10}
	b := New(st, zap.NewNop(), opts, 7)

	steps, err := b.RunGame(context.Background(), "bot-game", []string{"p1", "p2"}, 300)
	require.NoError(t, err)
	require.Greater(t, steps, 0)

	raw, err := st.GetDocument(context.Background(), phase.GameDocPath("bot-game"))
	require.NoError(t, err)
	var g state.Game
	require.NoError(t, json.Unmarshal(raw, &g))

	assert.Equal(t, state.PhaseGameEnd, g.CurrentPhase)
	assert.NotEmpty(t, g.Winner)
	assert.Greater(t, g.Round, opts.RoundLimit)
}

func TestBotStepsAreVersionSafe(t *testing.T) {
	st := store.NewMemory()
	seeded := seedGame(t, st, 11)

	opts := phase.Options{RoundLimit: 2, MaxUndoDepth: 10}
	b := New(st, zap.NewNop(), opts, 11)
	ctx := context.Background()

	// Every committed step bumps the version by exactly one.
	last := seeded.Version
	for i := 0; i < 10; i++ {
		for _, pid := range []string{"p1", "p2"} {
			resp, err := b.Step(ctx, "bot-game", pid)
			require.NoError(t, err)
			if resp == nil {
				continue
			}
			require.True(t, resp.Success)

			raw, err := st.GetDocument(ctx, phase.GameDocPath("bot-game"))
			require.NoError(t, err)
			var g state.Game
			require.NoError(t, json.Unmarshal(raw, &g))
			assert.Equal(t, last+1, g.Version)
			last = g.Version
		}
	}
}
