package phase

import (
	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/state"
)

// expansion is the movement phase: jumps, late colonization, and the entry
// point to the combat sub-phase. Play rotates on pass; consecutive passes
// by every player end the phase.
type expansion struct {
	base
}

func newExpansion() Phase {
	return &expansion{base{state.PhaseExpansion}}
}

func (p *expansion) OnPhaseStart(ctx *Context) error {
	g := ctx.Game()
	// Re-entry from combat keeps the attacker as active player; a fresh
	// entry starts with the first player in turn order.
	if g.ActivePlayer != "" && !g.PlayerByID(g.ActivePlayer).Eliminated {
		return nil
	}
	players := g.ActivePlayers()
	if len(players) == 0 {
		return nil
	}
	return ctx.Rec.Set("activePlayer", players[0])
}

func (p *expansion) LegalActions(ctx *Context, playerID string) *action.LegalActions {
	g := ctx.Game()
	if !p.IsItMyTurn(ctx, playerID) {
		return waiting()
	}
	return offer(g, playerID,
		action.NewJump(),
		action.NewColonize(),
		action.NewPass(),
		action.NewConcede(),
	)
}

func (p *expansion) ValidateAction(ctx *Context, playerID string, act action.Action) *action.Response {
	return validateBase(ctx, p, playerID, act)
}

func (p *expansion) OnActionCompleted(ctx *Context, playerID string, act action.Action, _ *action.Response) error {
	if over, err := checkElimination(ctx); over || err != nil {
		return err
	}
	g := ctx.Game()

	// A jump that landed on an enemy fleet opened the combat sub-phase.
	if g.Combat != nil && g.CurrentPhase == state.PhaseExpansion {
		return Transition(ctx, EventCombatStarted)
	}

	switch act.Type() {
	case action.TypePass, action.TypeConcede:
		if g.AllPassed() {
			return Transition(ctx, EventAllPassed)
		}
		return rotateToUnpassed(ctx, playerID)
	default:
		// Any real move restarts the consecutive-pass count.
		for _, pid := range sortedKeys(g.Passed) {
			if g.Passed[pid] {
				if err := ctx.Rec.Set("passed/"+pid, false); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// ApplyUndo reverses a jump or colonize via its recorded deltas. Jumps that
// opened combat never reach here: they commit as non-undoable.
func (p *expansion) ApplyUndo(ctx *Context, _ string, entry *state.HistoryEntry) *action.Response {
	return undoByInverse(ctx, entry)
}
