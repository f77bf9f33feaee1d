package state

import (
	"encoding/json"
	"time"
)

// HistoryEntry is the immutable append-only record of one committed action.
// Undone is the only field ever mutated afterward, exactly once, by the
// undo handler.
type HistoryEntry struct {
	Seq      int64           `json:"seq"`
	At       time.Time       `json:"at"`
	Player   string          `json:"player"`
	Phase    PhaseName       `json:"phase"`
	Action   json.RawMessage `json:"action"`
	Deltas   []Delta         `json:"deltas,omitempty"`
	Undoable bool            `json:"undoable"`
	Undone   bool            `json:"undone"`
}

// RedactDeltas returns the deltas of the entry a viewer is allowed to see:
// public deltas always, owner deltas only for their owner, hidden deltas
// never.
func (e *HistoryEntry) RedactDeltas(viewer string) []Delta {
	out := make([]Delta, 0, len(e.Deltas))
	for _, d := range e.Deltas {
		switch d.Visibility {
		case VisHidden:
			continue
		case VisOwner:
			if d.Owner != viewer {
				continue
			}
		}
		out = append(out, d)
	}
	return out
}

// PushUndo appends an entry to the player's undo stack, dropping the oldest
// entry when the stack exceeds maxDepth. Only the action handler calls this.
func (g *Game) PushUndo(playerID string, entry HistoryEntry, maxDepth int) {
	if g.UndoStacks == nil {
		g.UndoStacks = make(map[string][]HistoryEntry)
	}
	stack := append(g.UndoStacks[playerID], entry)
	if maxDepth > 0 && len(stack) > maxDepth {
		stack = stack[len(stack)-maxDepth:]
	}
	g.UndoStacks[playerID] = stack
}

// ClearUndo empties the player's undo stack. A non-undoable action locks in
// everything before it.
func (g *Game) ClearUndo(playerID string) {
	delete(g.UndoStacks, playerID)
}

// ClearAllUndo empties every player's undo stack; called when the phase
// transitions out from under the stacks.
func (g *Game) ClearAllUndo() {
	g.UndoStacks = nil
}

// PeekUndo returns the player's most recent undoable entry without removing
// it.
func (g *Game) PeekUndo(playerID string) (HistoryEntry, bool) {
	stack := g.UndoStacks[playerID]
	if len(stack) == 0 {
		return HistoryEntry{}, false
	}
	return stack[len(stack)-1], true
}

// PopUndo removes and returns the player's most recent undoable entry.
func (g *Game) PopUndo(playerID string) (HistoryEntry, bool) {
	stack := g.UndoStacks[playerID]
	if len(stack) == 0 {
		return HistoryEntry{}, false
	}
	top := stack[len(stack)-1]
	rest := stack[:len(stack)-1]
	if len(rest) == 0 {
		delete(g.UndoStacks, playerID)
	} else {
		g.UndoStacks[playerID] = rest
	}
	return top, true
}
