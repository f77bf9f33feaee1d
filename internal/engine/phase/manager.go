package phase

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/state"
	"github.com/starward-games/helios-server/internal/store"
)

// constructors is the closed phase set. Unrecognized names fall back to the
// empty phase rather than failing the request.
var constructors = map[state.PhaseName]func() Phase{
	state.PhaseGameStart: newGameStart,
	state.PhaseOutreach:  newOutreach,
	state.PhaseExpansion: newExpansion,
	state.PhaseCombat:    newCombat,
	state.PhaseEmpire:    newEmpire,
	state.PhaseGameEnd:   newGameEnd,
}

// ForName resolves a phase implementation from a persisted phase name,
// fail-soft: a corrupt or legacy name must not crash an otherwise readable
// game.
func ForName(name state.PhaseName, log *zap.Logger) Phase {
	if ctor, ok := constructors[name]; ok {
		return ctor()
	}
	if log != nil {
		log.Warn("unrecognized phase name, using empty phase",
			zap.String("phase", string(name)),
		)
	}
	return newEmpty(name)
}

// GameDocPath is the storage path of a game document.
func GameDocPath(gameID string) string {
	return "games/" + gameID
}

// Manager is the per-game-session orchestrator: it caches the loaded game
// document, resolves the active phase from currentPhase, and routes
// legality, execution, and undo queries to it.
type Manager struct {
	st     store.Store
	gameID string
	log    *zap.Logger
	opts   Options
	game   *state.Game
}

// NewManager loads the game document and returns a manager over it.
func NewManager(ctx context.Context, st store.Store, gameID string, log *zap.Logger, opts Options) (*Manager, error) {
	m := &Manager{st: st, gameID: gameID, log: log, opts: opts.WithDefaults()}
	if m.log == nil {
		m.log = zap.NewNop()
	}
	if err := m.ReloadGameState(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// ManagerForGame wraps an already-loaded document; used inside handler
// transactions where the document was read under the transaction.
func ManagerForGame(g *state.Game, log *zap.Logger, opts Options) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{game: g, gameID: g.ID, log: log, opts: opts.WithDefaults()}
}

// Game returns the cached document.
func (m *Manager) Game() *state.Game { return m.game }

// ReloadGameState forces a re-read of the document; used between an action
// and a following undo-eligibility check, and by bot loops that need fresh
// state after each step.
func (m *Manager) ReloadGameState(ctx context.Context) error {
	if m.st == nil {
		return fmt.Errorf("manager has no store to reload from")
	}
	raw, err := m.st.GetDocument(ctx, GameDocPath(m.gameID))
	if err != nil {
		return fmt.Errorf("load game %s: %w", m.gameID, err)
	}
	var g state.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		return fmt.Errorf("decode game %s: %w", m.gameID, err)
	}
	m.game = &g
	return nil
}

// Phase resolves the current phase implementation.
func (m *Manager) Phase() Phase {
	return ForName(m.game.CurrentPhase, m.log)
}

// NewPhaseContext builds a context over a fresh recorder for the cached
// document.
func (m *Manager) NewPhaseContext() *Context {
	return NewContext(state.NewRecorder(m.game), m.log, m.opts)
}

// GetLegalActions computes the player's current legal actions, including
// whether an undo is available right now.
func (m *Manager) GetLegalActions(playerID string) *action.LegalActions {
	ctx := m.NewPhaseContext()
	ph := m.Phase()
	if err := ph.LoadPhase(ctx); err != nil {
		m.log.Warn("loadPhase failed during legal-actions query",
			zap.String("game_id", m.gameID),
			zap.Error(err),
		)
	}
	la := ph.LegalActions(ctx, playerID)
	la.CanUndo = m.CanUndo(playerID)
	return la
}

// GetParamChoices resolves the legal values of one action parameter given
// the params already filled, honoring dependency order. Clients and bots
// walk a multi-step wizard with this, one parameter at a time.
func (m *Manager) GetParamChoices(playerID, actionType, paramName string, filled map[string]any) (*action.Choices, error) {
	payload := map[string]any{"type": actionType}
	for k, v := range filled {
		payload[k] = v
	}
	act, _, err := action.FromPayload(payload)
	if err != nil {
		return nil, err
	}
	return act.ParamChoices(m.game, playerID, paramName), nil
}

// ExecuteAction runs the full in-phase pipeline against the manager's
// document through the supplied context: resume, validate, execute, then
// the phase's completion hook. The caller owns persistence.
func (m *Manager) ExecuteAction(ctx *Context, playerID string, act action.Action) *action.Response {
	ph := m.Phase()
	if err := ph.LoadPhase(ctx); err != nil {
		return action.Fail(action.ErrInternal, err.Error())
	}
	// The phase may have auto-advanced while resuming.
	ph = m.Phase()

	if resp := ph.ValidateAction(ctx, playerID, act); resp != nil {
		return resp
	}
	resp := ph.ExecuteAction(ctx, playerID, act)
	if resp == nil || !resp.Success {
		return resp
	}
	if err := ph.OnActionCompleted(ctx, playerID, act, resp); err != nil {
		return action.Fail(action.ErrInternal, err.Error())
	}
	return resp
}

// ApplyUndo routes an undo through the phase that owns the entry.
func (m *Manager) ApplyUndo(ctx *Context, playerID string, entry *state.HistoryEntry) *action.Response {
	return ForName(entry.Phase, m.log).ApplyUndo(ctx, playerID, entry)
}

// CanUndo reports whether the player's most recent undoable entry is still
// eligible: same phase, turn gate still open, flags intact.
func (m *Manager) CanUndo(playerID string) bool {
	g := m.game
	entry, ok := g.PeekUndo(playerID)
	if !ok {
		return false
	}
	if entry.Phase != g.CurrentPhase || !entry.Undoable || entry.Undone {
		return false
	}
	if g.ActivePlayer != "" && g.ActivePlayer != playerID {
		return false
	}
	return true
}
