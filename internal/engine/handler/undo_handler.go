package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/engine/phase"
	"github.com/starward-games/helios-server/internal/state"
	"github.com/starward-games/helios-server/internal/store"
)

// UndoHandler reverses a player's most recent undoable action. Eligibility
// is re-checked inside the transaction against the freshly read document,
// never against whatever the client saw when it offered the button.
type UndoHandler struct {
	st   store.Store
	log  *zap.Logger
	opts phase.Options
}

// NewUndoHandler wires an undo handler.
func NewUndoHandler(st store.Store, log *zap.Logger, opts phase.Options) *UndoHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &UndoHandler{st: st, log: log, opts: opts.WithDefaults()}
}

// Undo pops and reverses the top of the player's undo stack. The version
// check, the eligibility check, the inverse application, and the history
// mark-up commit atomically or not at all.
func (h *UndoHandler) Undo(ctx context.Context, gameID, playerID string, expectedVersion int64) *action.Response {
	var resp *action.Response
	err := h.st.RunTransaction(ctx, func(ctx context.Context, tx store.Tx) error {
		raw, err := tx.Get(ctx, phase.GameDocPath(gameID))
		if errors.Is(err, store.ErrNotFound) {
			resp = action.Fail(action.ErrGameNotFound, "game not found")
			return nil
		}
		if err != nil {
			return err
		}
		var g state.Game
		if err := json.Unmarshal(raw, &g); err != nil {
			return fmt.Errorf("decode game %s: %w", gameID, err)
		}

		if expectedVersion > 0 && expectedVersion != g.Version {
			resp = action.Fail(action.ErrStaleState,
				fmt.Sprintf("expected version %d, game is at %d", expectedVersion, g.Version))
			return nil
		}

		entry, ok := g.PeekUndo(playerID)
		if !ok {
			resp = action.Fail(action.ErrNothingToUndo, "nothing to undo")
			return nil
		}
		if entry.Phase != g.CurrentPhase || !entry.Undoable || entry.Undone {
			resp = action.Fail(action.ErrCannotUndo, "the game has moved on since that action")
			return nil
		}
		if g.ActivePlayer != "" && g.ActivePlayer != playerID {
			resp = action.Fail(action.ErrCannotUndo, "it is no longer your turn")
			return nil
		}
		g.PopUndo(playerID)

		mgr := phase.ManagerForGame(&g, h.log, h.opts)
		pctx := mgr.NewPhaseContext()
		resp = mgr.ApplyUndo(pctx, playerID, &entry)
		if resp == nil {
			resp = action.Fail(action.ErrInternal, "undo produced no response")
		}
		if !resp.Success {
			// Abandons the pop along with everything else.
			return nil
		}

		g.Version++

		entry.Undone = true
		logPath := ActionLogPath(gameID, entry.Seq)
		if logRaw, err := tx.Get(ctx, logPath); err == nil {
			var logged state.HistoryEntry
			if err := json.Unmarshal(logRaw, &logged); err == nil {
				logged.Undone = true
				entry = logged
			}
		} else if !errors.Is(err, store.ErrNotFound) {
			return err
		}
		entryRaw, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}

		updated, err := json.Marshal(&g)
		if err != nil {
			return fmt.Errorf("encode game %s: %w", gameID, err)
		}
		if err := tx.Set(ctx, phase.GameDocPath(gameID), updated); err != nil {
			return err
		}
		if err := tx.Set(ctx, logPath, entryRaw); err != nil {
			return err
		}

		h.log.Info("action undone",
			zap.String("game_id", gameID),
			zap.String("player", playerID),
			zap.Int64("seq", entry.Seq),
			zap.Int64("version", g.Version),
		)
		return nil
	})
	if err != nil {
		h.log.Error("undo transaction failed",
			zap.String("game_id", gameID),
			zap.String("player", playerID),
			zap.Error(err),
		)
		return action.Fail(action.ErrInternal, "internal error")
	}
	return resp
}
