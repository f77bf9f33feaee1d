// Package bot implements a baseline automated player. It consumes the same
// surface a human client does: legal actions, the parameter wizard, and the
// action endpoint, which makes it a workout for the whole request path.
package bot

import (
	"context"
	"fmt"
	"math/rand"

	"go.uber.org/zap"

	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/engine/handler"
	"github.com/starward-games/helios-server/internal/engine/phase"
	"github.com/starward-games/helios-server/internal/state"
	"github.com/starward-games/helios-server/internal/store"
)

// preference is the order the bot tries action types in. Pass is the
// fallback when nothing else can be filled or afforded.
var preference = []string{
	action.TypeReady,
	action.TypeCombatOrder,
	action.TypeColonize,
	action.TypeProduce,
}

// Bot is a deterministic (per seed) automated player.
type Bot struct {
	st      store.Store
	actions *handler.ActionHandler
	log     *zap.Logger
	opts    phase.Options
	rng     *rand.Rand
}

// New builds a bot over a store.
func New(st store.Store, log *zap.Logger, opts phase.Options, seed int64) *Bot {
	if log == nil {
		log = zap.NewNop()
	}
	return &Bot{
		st:      st,
		actions: handler.NewActionHandler(st, log, opts),
		log:     log,
		opts:    opts.WithDefaults(),
		rng:     rand.New(rand.NewSource(seed)),
	}
}

// Step plays at most one action for playerID. It returns nil when the
// player has nothing to do right now.
func (b *Bot) Step(ctx context.Context, gameID, playerID string) (*action.Response, error) {
	mgr, err := phase.NewManager(ctx, b.st, gameID, b.log, b.opts)
	if err != nil {
		return nil, err
	}
	g := mgr.Game()
	if g.CurrentPhase == state.PhaseGameEnd {
		return nil, nil
	}

	la := mgr.GetLegalActions(playerID)
	legal := map[string]bool{}
	for _, d := range la.Actions {
		legal[d.Type] = true
	}
	delete(legal, action.TypeChat)
	if len(legal) == 0 {
		return nil, nil
	}

	for _, typ := range preference {
		if !legal[typ] {
			continue
		}
		payload, ok := b.fillParams(mgr, playerID, typ, g.Version)
		if !ok {
			continue
		}
		resp := b.actions.Handle(ctx, gameID, playerID, payload)
		if resp.Success {
			return resp, nil
		}
		// A filled action can still bounce off a rule (not enough
		// minerals, say); fall through to pass.
		b.log.Debug("bot action rejected, falling back",
			zap.String("player", playerID),
			zap.String("action", typ),
			zap.String("error", resp.Error),
		)
		break
	}

	if legal[action.TypePass] {
		return b.actions.Handle(ctx, gameID, playerID, map[string]any{
			"type":            action.TypePass,
			"expectedVersion": g.Version,
		}), nil
	}
	return nil, nil
}

// fillParams walks the wizard in declaration order, picking a random legal
// value for each parameter. Returns false when some required parameter has
// no legal value.
func (b *Bot) fillParams(mgr *phase.Manager, playerID, typ string, version int64) (map[string]any, bool) {
	act, err := action.New(typ)
	if err != nil {
		return nil, false
	}

	payload := map[string]any{
		"type":            typ,
		"expectedVersion": version,
	}
	filled := map[string]any{}
	for _, p := range act.Params() {
		choices, err := mgr.GetParamChoices(playerID, typ, p.Name, filled)
		if err != nil {
			return nil, false
		}
		if len(choices.Choices) == 0 {
			if p.Optional {
				continue
			}
			return nil, false
		}
		pick := choices.Choices[b.rng.Intn(len(choices.Choices))].Value
		payload[p.Name] = pick
		filled[p.Name] = pick
	}
	return payload, true
}

// RunGame steps every player round-robin until the game ends or maxSteps
// actions have been played. Returns the number of actions committed.
func (b *Bot) RunGame(ctx context.Context, gameID string, players []string, maxSteps int) (int, error) {
	steps := 0
	idle := 0
	for steps < maxSteps {
		progressed := false
		for _, pid := range players {
			resp, err := b.Step(ctx, gameID, pid)
			if err != nil {
				return steps, err
			}
			if resp != nil && resp.Success {
				steps++
				progressed = true
			}
		}

		mgr, err := phase.NewManager(ctx, b.st, gameID, b.log, b.opts)
		if err != nil {
			return steps, err
		}
		if mgr.Game().CurrentPhase == state.PhaseGameEnd {
			return steps, nil
		}

		if !progressed {
			idle++
			if idle >= 3 {
				return steps, fmt.Errorf("game %s stalled after %d actions", gameID, steps)
			}
		} else {
			idle = 0
		}
	}
	return steps, fmt.Errorf("game %s did not finish within %d actions", gameID, maxSteps)
}
