package phase

import (
	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/state"
)

// gameEnd is terminal: nothing is legal but chat.
type gameEnd struct {
	base
}

func newGameEnd() Phase {
	return &gameEnd{base{state.PhaseGameEnd}}
}

func (p *gameEnd) OnPhaseStart(ctx *Context) error {
	g := ctx.Game()
	if err := ctx.Rec.Set("activePlayer", ""); err != nil {
		return err
	}
	if g.Winner == "" {
		if actives := g.ActivePlayers(); len(actives) == 1 {
			return ctx.Rec.Set("winner", actives[0])
		}
	}
	return nil
}

func (p *gameEnd) LegalActions(ctx *Context, playerID string) *action.LegalActions {
	la := offer(ctx.Game(), playerID)
	la.Message = "Game over"
	return la
}

func (p *gameEnd) ValidateAction(ctx *Context, playerID string, act action.Action) *action.Response {
	return validateBase(ctx, p, playerID, act)
}
