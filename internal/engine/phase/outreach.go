package phase

import (
	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/state"
)

// outreach gives each player, in turn order, one colonize before passing.
// After every player has passed the game moves to expansion.
type outreach struct {
	base
}

func newOutreach() Phase {
	return &outreach{base{state.PhaseOutreach}}
}

func (p *outreach) OnPhaseStart(ctx *Context) error {
	players := ctx.Game().ActivePlayers()
	if len(players) == 0 {
		return nil
	}
	return ctx.Rec.Set("activePlayer", players[0])
}

func (p *outreach) LegalActions(ctx *Context, playerID string) *action.LegalActions {
	g := ctx.Game()
	if !p.IsItMyTurn(ctx, playerID) {
		return waiting()
	}
	acts := []action.Action{}
	if !g.Acted[playerID] {
		acts = append(acts, action.NewColonize())
	}
	acts = append(acts, action.NewPass(), action.NewConcede())
	return offer(g, playerID, acts...)
}

func (p *outreach) ValidateAction(ctx *Context, playerID string, act action.Action) *action.Response {
	return validateBase(ctx, p, playerID, act)
}

func (p *outreach) OnActionCompleted(ctx *Context, playerID string, act action.Action, _ *action.Response) error {
	if over, err := checkElimination(ctx); over || err != nil {
		return err
	}

	switch act.Type() {
	case action.TypeColonize:
		return ctx.Rec.Set("acted/"+playerID, true)
	case action.TypePass, action.TypeConcede:
		g := ctx.Game()
		if g.AllPassed() {
			// Clear the seat so expansion starts from the top of turn order
			// instead of with whoever passed last.
			if err := ctx.Rec.Set("activePlayer", ""); err != nil {
				return err
			}
			return Transition(ctx, EventRotationComplete)
		}
		return rotateToUnpassed(ctx, playerID)
	}
	return nil
}

// ApplyUndo reverses a colonize via its recorded deltas.
func (p *outreach) ApplyUndo(ctx *Context, _ string, entry *state.HistoryEntry) *action.Response {
	return undoByInverse(ctx, entry)
}

// rotateToUnpassed hands the turn to the next player who has not passed.
func rotateToUnpassed(ctx *Context, after string) error {
	g := ctx.Game()
	next := after
	for range g.TurnOrder {
		next = g.NextPlayer(next)
		if !g.Passed[next] {
			return ctx.Rec.Set("activePlayer", next)
		}
	}
	return nil
}

// checkElimination ends the game when at most one player remains. Returns
// true when the game-over transition fired.
func checkElimination(ctx *Context) (bool, error) {
	g := ctx.Game()
	if g.CurrentPhase == state.PhaseGameEnd {
		return true, nil
	}
	if len(g.ActivePlayers()) > 1 {
		return false, nil
	}
	return true, Transition(ctx, EventGameOver)
}
