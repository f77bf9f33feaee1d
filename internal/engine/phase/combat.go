package phase

import (
	"go.uber.org/zap"

	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/state"
)

// combat is the nested state machine inside expansion: a multi-round,
// simultaneous-order fight over one system. Its own stage field lives in
// state.Combat; rounds loop while both sides have ships in the system and
// both keep firing.
type combat struct {
	base
}

func newCombat() Phase {
	return &combat{base{state.PhaseCombat}}
}

func (p *combat) OnPhaseStart(ctx *Context) error {
	// Both parties act simultaneously; no single active player.
	return ctx.Rec.Set("activePlayer", "")
}

// LoadPhase is the re-entrant resume hook. A combat phase without a combat
// struct means the document predates a crash mid-teardown; fail back to
// expansion instead of wedging the game.
func (p *combat) LoadPhase(ctx *Context) error {
	if ctx.Game().Combat == nil {
		ctx.Log.Warn("combat phase with no combat state, resuming expansion",
			zap.String("game_id", ctx.Game().ID),
		)
		return Transition(ctx, EventCombatEnded)
	}
	return nil
}

// IsItMyTurn passes for parties that have not yet ordered this round.
func (p *combat) IsItMyTurn(ctx *Context, playerID string) bool {
	c := ctx.Game().Combat
	if c == nil || c.Stage != state.CombatStageOrders {
		return false
	}
	for _, pid := range c.Parties() {
		if pid == playerID {
			_, ordered := c.Orders[playerID]
			return !ordered
		}
	}
	return false
}

func (p *combat) LegalActions(ctx *Context, playerID string) *action.LegalActions {
	g := ctx.Game()
	if !p.IsItMyTurn(ctx, playerID) {
		la := waiting()
		la.Message = "Waiting for combat orders..."
		return la
	}
	return offer(g, playerID, action.NewCombatOrder(), action.NewConcede())
}

func (p *combat) ValidateAction(ctx *Context, playerID string, act action.Action) *action.Response {
	return validateBase(ctx, p, playerID, act)
}

func (p *combat) OnActionCompleted(ctx *Context, playerID string, act action.Action, _ *action.Response) error {
	if over, err := checkElimination(ctx); over || err != nil {
		return err
	}
	g := ctx.Game()
	c := g.Combat
	if c == nil {
		return Transition(ctx, EventCombatEnded)
	}

	// A conceding party forfeits the fight.
	if act.Type() == action.TypeConcede {
		return p.teardown(ctx, survivorOf(g, c))
	}

	for _, pid := range c.Parties() {
		if _, ordered := c.Orders[pid]; !ordered {
			return nil
		}
	}
	// All orders are in; the round resolves exactly once, inside the same
	// commit that received the final order.
	return p.resolveRound(ctx)
}

func (p *combat) resolveRound(ctx *Context) error {
	g := ctx.Game()
	c := g.Combat
	sys := g.Systems[c.SystemID]

	// Withdrawals move out before any shots land.
	for _, pid := range c.Parties() {
		if c.Orders[pid] != state.CombatWithdraw {
			continue
		}
		ships := sys.Ships[pid]
		if ships == 0 {
			continue
		}
		if err := ctx.Rec.Set("systems/"+c.SystemID+"/ships/"+pid, 0); err != nil {
			return err
		}
		// A fleet with nowhere to retreat scatters and is lost.
		if dest := retreatDest(g, c, pid); dest != "" {
			if err := ctx.Rec.Set("systems/"+dest+"/ships/"+pid, g.Systems[dest].Ships[pid]+ships); err != nil {
				return err
			}
		}
	}

	// Simultaneous fire: losses are computed from the start-of-round fleet
	// sizes so a side that loses its last ship still gets its shot off.
	aStart := sys.Ships[c.Attacker]
	dStart := sys.Ships[c.Defender]
	aShips, dShips := aStart, dStart
	if c.Orders[c.Attacker] == state.CombatFire && aStart > 0 && dStart > 0 {
		dShips--
	}
	if c.Orders[c.Defender] == state.CombatFire && dStart > 0 && aStart > 0 {
		aShips--
	}
	if dShips != dStart {
		if err := ctx.Rec.Set("systems/"+c.SystemID+"/ships/"+c.Defender, dShips); err != nil {
			return err
		}
	}
	if aShips != aStart {
		if err := ctx.Rec.Set("systems/"+c.SystemID+"/ships/"+c.Attacker, aShips); err != nil {
			return err
		}
	}

	ctx.Log.Debug("combat round resolved",
		zap.String("game_id", g.ID),
		zap.String("system", c.SystemID),
		zap.Int("round", c.Round),
		zap.Int("attacker_ships", aShips),
		zap.Int("defender_ships", dShips),
	)

	if aShips == 0 || dShips == 0 {
		winner := c.Defender
		if dShips == 0 && aShips > 0 {
			winner = c.Attacker
		}
		return p.teardown(ctx, winner)
	}

	// Next round: bump the counter and reset to the orders stage.
	if err := ctx.Rec.Set("combat/round", c.Round+1); err != nil {
		return err
	}
	return ctx.Rec.Set("combat/orders", nil)
}

// teardown closes the sub-phase: the winner takes the system if they hold
// it, the attacker resumes their expansion go, and control returns to the
// parent phase through the transition table.
func (p *combat) teardown(ctx *Context, winner string) error {
	g := ctx.Game()
	c := g.Combat
	sys := g.Systems[c.SystemID]

	if winner != "" && sys.Ships[winner] > 0 && sys.Owner != winner {
		if err := ctx.Rec.Set("systems/"+c.SystemID+"/owner", winner); err != nil {
			return err
		}
	}

	resume := c.Attacker
	if pl := g.PlayerByID(resume); pl == nil || pl.Eliminated {
		resume = c.Defender
	}

	if err := ctx.Rec.Set("combat/stage", string(state.CombatStageDone)); err != nil {
		return err
	}
	if err := ctx.Rec.Set("combat", nil); err != nil {
		return err
	}
	if err := ctx.Rec.Set("activePlayer", resume); err != nil {
		return err
	}
	return Transition(ctx, EventCombatEnded)
}

// retreatDest picks where a withdrawing fleet goes: the attacker falls back
// to the system it jumped from, the defender to an adjacent system it owns.
func retreatDest(g *state.Game, c *state.Combat, playerID string) string {
	if playerID == c.Attacker {
		return c.FromSystem
	}
	sys := g.Systems[c.SystemID]
	adj := append([]string(nil), sys.Adjacent...)
	state.SortIDs(adj)
	for _, id := range adj {
		if n := g.Systems[id]; n != nil && n.Owner == playerID {
			return id
		}
	}
	return ""
}

// survivorOf returns the non-eliminated party after a concession.
func survivorOf(g *state.Game, c *state.Combat) string {
	for _, pid := range c.Parties() {
		if pl := g.PlayerByID(pid); pl != nil && !pl.Eliminated {
			return pid
		}
	}
	return ""
}
