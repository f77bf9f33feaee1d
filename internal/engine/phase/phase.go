package phase

import (
	"encoding/json"

	"go.uber.org/zap"

	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/state"
)

// Options are the rule knobs the phase machine needs.
type Options struct {
	// RoundLimit ends the game after this many full rounds.
	RoundLimit int
	// MaxUndoDepth bounds each player's undo stack.
	MaxUndoDepth int
}

// WithDefaults fills unset options.
func (o Options) WithDefaults() Options {
	if o.RoundLimit <= 0 {
		o.RoundLimit = 5
	}
	if o.MaxUndoDepth <= 0 {
		o.MaxUndoDepth = 10
	}
	return o
}

// Context is the ambient state handed to every phase call within one
// request. Phases hold no state of their own; only the phase name is
// persisted and a fresh Phase value is built from it per request.
type Context struct {
	Rec  *state.Recorder
	Log  *zap.Logger
	Opts Options
}

// NewContext builds a phase context over a recorder.
func NewContext(rec *state.Recorder, log *zap.Logger, opts Options) *Context {
	if log == nil {
		log = zap.NewNop()
	}
	return &Context{Rec: rec, Log: log, Opts: opts.WithDefaults()}
}

// Game returns the document under the context's recorder.
func (c *Context) Game() *state.Game { return c.Rec.Game() }

// Phase is one named state of the game's turn/phase machine. Implementations
// are stateless; everything they need arrives through the Context.
type Phase interface {
	Name() state.PhaseName

	// OnPhaseStart runs once when a transition into the phase is performed.
	// It may transition again (auto-advance).
	OnPhaseStart(ctx *Context) error

	// LoadPhase is the re-entrant hook called on every request while in the
	// phase; sub-phases use it to resume multi-step sub-state.
	LoadPhase(ctx *Context) error

	// LegalActions returns the player's phase-specific action set with the
	// uniform phase-independent prefix, or an empty set plus a waiting
	// message when it is simply not the player's turn. Never an error.
	LegalActions(ctx *Context, playerID string) *action.LegalActions

	// IsItMyTurn is the turn gate.
	IsItMyTurn(ctx *Context, playerID string) bool

	// ValidateAction returns nil when the action is legal right now, or a
	// rejection response. It must not mutate state.
	ValidateAction(ctx *Context, playerID string, act action.Action) *action.Response

	// ExecuteAction performs the action's effect through the context's
	// recorder.
	ExecuteAction(ctx *Context, playerID string, act action.Action) *action.Response

	// OnActionCompleted reacts after an accepted action: sub-phase
	// chaining, rotation, and phase transitions live here.
	OnActionCompleted(ctx *Context, playerID string, act action.Action, resp *action.Response) error

	// ApplyUndo applies the inverse effect of a history entry. The default
	// is "not supported"; phases that allow undo override it.
	ApplyUndo(ctx *Context, playerID string, entry *state.HistoryEntry) *action.Response
}

// base supplies the shared defaults.
type base struct {
	name state.PhaseName
}

func (b base) Name() state.PhaseName                { return b.name }
func (b base) OnPhaseStart(*Context) error          { return nil }
func (b base) LoadPhase(*Context) error             { return nil }
func (b base) OnActionCompleted(*Context, string, action.Action, *action.Response) error {
	return nil
}

// IsItMyTurn passes when the phase defines no active-player restriction or
// the player holds it.
func (b base) IsItMyTurn(ctx *Context, playerID string) bool {
	g := ctx.Game()
	return g.ActivePlayer == "" || g.ActivePlayer == playerID
}

// ExecuteAction delegates to the action's own execute and stamps the echo.
func (b base) ExecuteAction(ctx *Context, playerID string, act action.Action) *action.Response {
	resp := act.Execute(ctx.Rec, playerID)
	if resp != nil {
		resp.ActionType = act.Type()
	}
	return resp
}

// ApplyUndo defaults to unsupported.
func (b base) ApplyUndo(*Context, string, *state.HistoryEntry) *action.Response {
	return action.Fail(action.ErrCannotUndo, "undo is not supported in this phase")
}

// waiting is the uniform not-your-turn answer: an empty action set and a
// message, never an error.
func waiting() *action.LegalActions {
	return &action.LegalActions{
		Actions: []*action.Descriptor{},
		Message: "Waiting for other players...",
	}
}

// offer builds a legal-actions result with the uniform chat prefix followed
// by the phase-specific set.
func offer(g *state.Game, playerID string, acts ...action.Action) *action.LegalActions {
	descs := make([]*action.Descriptor, 0, len(acts)+1)
	descs = append(descs, action.Describe(action.NewChat(), g, playerID))
	for _, a := range acts {
		descs = append(descs, action.Describe(a, g, playerID))
	}
	return &action.LegalActions{Actions: descs}
}

// validateBase is the rule every phase applies first: the turn gate must
// pass and the action's type must appear in the player's current legal set.
// Chat is exempt; it is always legal.
func validateBase(ctx *Context, ph Phase, playerID string, act action.Action) *action.Response {
	if act.Type() == action.TypeChat {
		return nil
	}
	if !ph.IsItMyTurn(ctx, playerID) {
		return action.Fail(action.ErrNotYourTurn, "it is not your turn")
	}
	legal := ph.LegalActions(ctx, playerID)
	for _, d := range legal.Actions {
		if d.Type == act.Type() {
			return nil
		}
	}
	return action.Fail(action.ErrNotInPhase,
		"action "+act.Type()+" is not allowed in phase "+string(ctx.Game().CurrentPhase))
}

// undoByInverse reverses the entry's recorded deltas against the live
// document; shared by the phases that support undo.
func undoByInverse(ctx *Context, entry *state.HistoryEntry) *action.Response {
	if err := state.ApplyInverse(ctx.Game(), entry.Deltas); err != nil {
		return action.Fail(action.ErrInternal, err.Error())
	}
	resp := action.OK("Undid " + actionTypeOf(entry))
	resp.StateChanges = inverses(entry.Deltas)
	return resp
}

func inverses(deltas []state.Delta) []state.Delta {
	out := make([]state.Delta, 0, len(deltas))
	for i := len(deltas) - 1; i >= 0; i-- {
		out = append(out, deltas[i].Inverse())
	}
	return out
}

func actionTypeOf(entry *state.HistoryEntry) string {
	var payload struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(entry.Action, &payload); err != nil || payload.Type == "" {
		return "action"
	}
	return payload.Type
}
