package phase

import (
	"hash/fnv"
	"math/rand"

	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/state"
)

// gameStart assigns races and homeworlds once, then waits for every player
// to ready up.
type gameStart struct {
	base
}

func newGameStart() Phase {
	return &gameStart{base{state.PhaseGameStart}}
}

// LoadPhase performs the one-shot setup. The explicit SetupDone flag, not
// the absence of assigned data, decides whether setup already ran, so a
// retried or duplicated request cannot randomize twice.
func (p *gameStart) LoadPhase(ctx *Context) error {
	g := ctx.Game()
	if g.SetupDone {
		return nil
	}

	// Seeded from the game ID: a replayed setup of the same game document
	// produces identical assignments.
	rng := rand.New(rand.NewSource(seedFromID(g.ID)))

	races := append([]string(nil), state.Races...)
	rng.Shuffle(len(races), func(i, j int) { races[i], races[j] = races[j], races[i] })

	systems := make([]string, 0, len(g.Systems))
	for id := range g.Systems {
		systems = append(systems, id)
	}
	state.SortIDs(systems)

	players := g.ActivePlayers()
	spacing := len(systems) / len(players)
	for i, pid := range players {
		if err := ctx.Rec.Set("players/"+pid+"/race", races[i%len(races)]); err != nil {
			return err
		}
		home := systems[(i*spacing)%len(systems)]
		if err := ctx.Rec.Set("players/"+pid+"/homeworld", home); err != nil {
			return err
		}
		if err := ctx.Rec.Set("systems/"+home+"/owner", pid); err != nil {
			return err
		}
		if err := ctx.Rec.Set("systems/"+home+"/ships/"+pid, 3); err != nil {
			return err
		}
	}

	return ctx.Rec.Set("setupDone", true)
}

func (p *gameStart) LegalActions(ctx *Context, playerID string) *action.LegalActions {
	g := ctx.Game()
	pl := g.PlayerByID(playerID)
	if pl == nil {
		return waiting()
	}
	if pl.Ready {
		la := waiting()
		la.Message = "Waiting for other players to ready up..."
		return la
	}
	return offer(g, playerID, action.NewReady(), action.NewConcede())
}

func (p *gameStart) ValidateAction(ctx *Context, playerID string, act action.Action) *action.Response {
	return validateBase(ctx, p, playerID, act)
}

func (p *gameStart) OnActionCompleted(ctx *Context, playerID string, act action.Action, _ *action.Response) error {
	if over, err := checkElimination(ctx); over || err != nil {
		return err
	}
	if act.Type() == action.TypeReady && ctx.Game().AllReady() {
		return Transition(ctx, EventAllReady)
	}
	return nil
}

func seedFromID(id string) int64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(id))
	return int64(h.Sum64())
}
