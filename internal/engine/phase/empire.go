package phase

import (
	"go.uber.org/zap"

	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/state"
)

// empire is the simultaneous economy phase: income at phase start, then
// each player queues production and passes. Queued orders materialize in
// one consequences step once everyone has passed, so no player's build is
// revealed before all orders for the round are known.
type empire struct {
	base
}

func newEmpire() Phase {
	return &empire{base{state.PhaseEmpire}}
}

func (p *empire) OnPhaseStart(ctx *Context) error {
	g := ctx.Game()
	if err := ctx.Rec.Set("activePlayer", ""); err != nil {
		return err
	}

	// Income: every owned system pays its yield.
	for _, pid := range g.ActivePlayers() {
		income := 0
		for _, sysID := range g.OwnedSystems(pid) {
			income += g.Systems[sysID].Yield
		}
		if income == 0 {
			continue
		}
		pl := g.PlayerByID(pid)
		if err := ctx.Rec.SetOwned("players/"+pid+"/minerals", pl.Minerals+income, pid); err != nil {
			return err
		}
	}
	return nil
}

// IsItMyTurn passes until the player has locked in with a pass.
func (p *empire) IsItMyTurn(ctx *Context, playerID string) bool {
	g := ctx.Game()
	pl := g.PlayerByID(playerID)
	return pl != nil && !pl.Eliminated && !g.Passed[playerID]
}

func (p *empire) LegalActions(ctx *Context, playerID string) *action.LegalActions {
	g := ctx.Game()
	if !p.IsItMyTurn(ctx, playerID) {
		la := waiting()
		la.Message = "Waiting for other players to finish production..."
		return la
	}
	return offer(g, playerID, action.NewProduce(), action.NewPass(), action.NewConcede())
}

func (p *empire) ValidateAction(ctx *Context, playerID string, act action.Action) *action.Response {
	return validateBase(ctx, p, playerID, act)
}

func (p *empire) OnActionCompleted(ctx *Context, playerID string, act action.Action, _ *action.Response) error {
	if over, err := checkElimination(ctx); over || err != nil {
		return err
	}
	switch act.Type() {
	case action.TypePass, action.TypeConcede:
		if ctx.Game().AllPassed() {
			return p.closeRound(ctx)
		}
	}
	return nil
}

// closeRound is the consequences step: all players' orders for the round
// are known, so production materializes into ships, the round advances, and
// play loops to outreach or ends at the round limit.
func (p *empire) closeRound(ctx *Context) error {
	g := ctx.Game()

	queued := make([]string, 0, len(g.Pending))
	for pid := range g.Pending {
		queued = append(queued, pid)
	}
	state.SortIDs(queued)
	for _, pid := range queued {
		pl := g.PlayerByID(pid)
		for _, ord := range g.Pending[pid] {
			if pl == nil || pl.Eliminated {
				continue
			}
			sys := g.Systems[ord.SystemID]
			if sys == nil || sys.Owner != ord.Player {
				// An order for a system the player no longer holds is dropped
				// whole, never charged.
				continue
			}
			if pl.Minerals < ord.Cost {
				// Stale order from an earlier undo race; dropped, not
				// partially filled.
				ctx.Log.Warn("dropping unaffordable production order",
					zap.String("game_id", g.ID),
					zap.String("player", ord.Player),
					zap.Int("cost", ord.Cost),
				)
				continue
			}
			if err := ctx.Rec.SetOwned("players/"+ord.Player+"/minerals", pl.Minerals-ord.Cost, ord.Player); err != nil {
				return err
			}
			if err := ctx.Rec.Set("systems/"+ord.SystemID+"/ships/"+ord.Player, sys.Ships[ord.Player]+ord.Ships); err != nil {
				return err
			}
		}
		if err := ctx.Rec.Set("pending/"+pid, nil); err != nil {
			return err
		}
	}

	if err := ctx.Rec.Set("round", g.Round+1); err != nil {
		return err
	}
	if g.Round > ctx.Opts.RoundLimit {
		if err := setWinnerByHoldings(ctx); err != nil {
			return err
		}
		return Transition(ctx, EventGameOver)
	}
	return Transition(ctx, EventRoundComplete)
}

// ApplyUndo reverses a produce via its recorded deltas.
func (p *empire) ApplyUndo(ctx *Context, _ string, entry *state.HistoryEntry) *action.Response {
	return undoByInverse(ctx, entry)
}

// setWinnerByHoldings records the player owning the most systems; ties go
// to the earliest seat in turn order.
func setWinnerByHoldings(ctx *Context) error {
	g := ctx.Game()
	best, bestCount := "", -1
	for _, pid := range g.ActivePlayers() {
		if n := len(g.OwnedSystems(pid)); n > bestCount {
			best, bestCount = pid, n
		}
	}
	if best == "" {
		return nil
	}
	return ctx.Rec.Set("winner", best)
}
