package lobby

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

func putGame(t *testing.T, st store.Store, g *state.Game) {
	t.Helper()
	raw, err := json.Marshal(g)
	require.NoError(t, err)
	require.NoError(t, st.SetDocument(context.Background(), phase.GameDocPath(g.ID), raw))
}

func makeGame(t *testing.T, id string) *state.Game {
	t.Helper()
	g, err := state.NewGame(id, map[string]string{"p1": "Ada", "p2": "Grace"},
		state.BoardOptions{Systems: 6, Seed: 1})
	require.NoError(t, err)
	return g
}

func TestListReflectsGameLifecycle(t *testing.T) {
	st := store.NewMemory()
	m := NewManager(st, zap.NewNop())
	ctx := context.Background()

	waiting := makeGame(t, "g-waiting")
	putGame(t, st, waiting)
	m.Register("g-waiting", "Morning match")

	running := makeGame(t, "g-running")
	running.CurrentPhase = state.PhaseExpansion
	putGame(t, st, running)
	m.Register("g-running", "")

	done := makeGame(t, "g-done")
	done.CurrentPhase = state.PhaseGameEnd
	done.Winner = "p2"
	putGame(t, st, done)
	m.Register("g-done", "")

	snaps := m.List(ctx)
	require.Len(t, snaps, 3)

	assert.Equal(t, "g-waiting", snaps[0].GameID, "registration order is preserved")
	assert.Equal(t, "Morning match", snaps[0].Name)
	assert.Equal(t, StateWaiting.String(), snaps[0].State)
	assert.ElementsMatch(t, []string{"Ada", "Grace"}, snaps[0].Players)

	assert.Equal(t, StateInProgress.String(), snaps[1].State)

	assert.Equal(t, StateFinished.String(), snaps[2].State)
	assert.Equal(t, "p2", snaps[2].Winner)
}

func TestListDropsDeletedGames(t *testing.T) {
	st := store.NewMemory()
	m := NewManager(st, zap.NewNop())
	ctx := context.Background()

	g := makeGame(t, "g-gone")
	putGame(t, st, g)
	m.Register("g-gone", "")
	require.Equal(t, 1, m.Count())

	require.NoError(t, st.DeleteDocument(ctx, phase.GameDocPath("g-gone")))

	assert.Empty(t, m.List(ctx))
	assert.Equal(t, 0, m.Count(), "vanished documents are delisted")
}

func TestRegisterIsIdempotent(t *testing.T) {
	st := store.NewMemory()
	m := NewManager(st, zap.NewNop())

	putGame(t, st, makeGame(t, "g-1"))
	m.Register("g-1", "first")
	m.Register("g-1", "second")

	assert.Equal(t, 1, m.Count())
	snaps := m.List(context.Background())
	require.Len(t, snaps, 1)
	assert.Equal(t, "first", snaps[0].Name)
}
