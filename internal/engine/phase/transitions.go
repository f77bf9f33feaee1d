package phase

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/starward-games/helios-server/internal/state"
)

// Event is a trigger recognized by the transition table.
type Event string

const (
	EventAllReady         Event = "all_ready"
	EventRotationComplete Event = "rotation_complete"
	EventAllPassed        Event = "all_passed"
	EventCombatStarted    Event = "combat_started"
	EventCombatEnded      Event = "combat_ended"
	EventRoundComplete    Event = "round_complete"
	EventGameOver         Event = "game_over"
)

// transitions is the single source of truth for legal phase transitions.
// currentPhase changes nowhere else.
var transitions = map[state.PhaseName]map[Event]state.PhaseName{
	state.PhaseGameStart: {
		EventAllReady: state.PhaseOutreach,
	},
	state.PhaseOutreach: {
		EventRotationComplete: state.PhaseExpansion,
		EventGameOver:         state.PhaseGameEnd,
	},
	state.PhaseExpansion: {
		EventCombatStarted: state.PhaseCombat,
		EventAllPassed:     state.PhaseEmpire,
		EventGameOver:      state.PhaseGameEnd,
	},
	state.PhaseCombat: {
		EventCombatEnded: state.PhaseExpansion,
		EventGameOver:    state.PhaseGameEnd,
	},
	state.PhaseEmpire: {
		EventRoundComplete: state.PhaseOutreach,
		EventGameOver:      state.PhaseGameEnd,
	},
}

// Next returns the phase the table names for (from, ev).
func Next(from state.PhaseName, ev Event) (state.PhaseName, bool) {
	to, ok := transitions[from][ev]
	return to, ok
}

// Transition performs a table transition: it rewrites currentPhase, resets
// the per-rotation bookkeeping, and runs the destination's OnPhaseStart,
// which may auto-advance further.
func Transition(ctx *Context, ev Event) error {
	g := ctx.Game()
	from := g.CurrentPhase
	to, ok := Next(from, ev)
	if !ok {
		return fmt.Errorf("no transition from phase %q on event %q", from, ev)
	}

	if err := ctx.Rec.Set("currentPhase", string(to)); err != nil {
		return err
	}
	if err := resetRotation(ctx); err != nil {
		return err
	}

	ctx.Log.Debug("phase transition",
		zap.String("from", string(from)),
		zap.String("to", string(to)),
		zap.String("event", string(ev)),
	)

	return ForName(to, ctx.Log).OnPhaseStart(ctx)
}

// resetRotation clears pass/acted flags so the new phase starts clean.
func resetRotation(ctx *Context) error {
	g := ctx.Game()
	for _, pid := range sortedKeys(g.Passed) {
		if g.Passed[pid] {
			if err := ctx.Rec.Set("passed/"+pid, false); err != nil {
				return err
			}
		}
	}
	for _, pid := range sortedKeys(g.Acted) {
		if g.Acted[pid] {
			if err := ctx.Rec.Set("acted/"+pid, false); err != nil {
				return err
			}
		}
	}
	return nil
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	state.SortIDs(out)
	return out
}
