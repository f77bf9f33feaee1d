package state

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPushUndoIsBounded(t *testing.T) {
	g := &Game{}
	for seq := int64(1); seq <= 5; seq++ {
		g.PushUndo("p1", HistoryEntry{Seq: seq, Undoable: true}, 3)
	}

	stack := g.UndoStacks["p1"]
	require.Len(t, stack, 3)
	assert.Equal(t, int64(3), stack[0].Seq, "oldest entries fall off the bottom")
	assert.Equal(t, int64(5), stack[2].Seq)
}

func TestPopUndoIsLIFO(t *testing.T) {
	g := &Game{}
	g.PushUndo("p1", HistoryEntry{Seq: 1}, 10)
	g.PushUndo("p1", HistoryEntry{Seq: 2}, 10)

	top, ok := g.PeekUndo("p1")
	require.True(t, ok)
	assert.Equal(t, int64(2), top.Seq)

	popped, ok := g.PopUndo("p1")
	require.True(t, ok)
	assert.Equal(t, int64(2), popped.Seq)

	popped, ok = g.PopUndo("p1")
	require.True(t, ok)
	assert.Equal(t, int64(1), popped.Seq)

	_, ok = g.PopUndo("p1")
	assert.False(t, ok)
	assert.NotContains(t, g.UndoStacks, "p1", "an emptied stack is removed")
}

func TestClearUndoIsPerPlayer(t *testing.T) {
	g := &Game{}
	g.PushUndo("p1", HistoryEntry{Seq: 1}, 10)
	g.PushUndo("p2", HistoryEntry{Seq: 2}, 10)

	g.ClearUndo("p1")
	_, ok := g.PeekUndo("p1")
	assert.False(t, ok)
	_, ok = g.PeekUndo("p2")
	assert.True(t, ok, "clearing one player leaves the others alone")

	g.ClearAllUndo()
	_, ok = g.PeekUndo("p2")
	assert.False(t, ok)
}

func TestRedactDeltas(t *testing.T) {
	entry := &HistoryEntry{Deltas: []Delta{
		{Path: "systems/sys-1/owner", New: "p1", Visibility: VisPublic},
		{Path: "players/p1/minerals", New: 3, Visibility: VisOwner, Owner: "p1"},
		{Path: "combat/orders/p1", New: "fire", Visibility: VisHidden},
	}}

	forOwner := entry.RedactDeltas("p1")
	require.Len(t, forOwner, 2, "the owner sees public and their own deltas")

	forOther := entry.RedactDeltas("p2")
	require.Len(t, forOther, 1)
	assert.Equal(t, "systems/sys-1/owner", forOther[0].Path)
}
