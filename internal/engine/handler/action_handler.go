// Package handler holds the transactional entry points of the rules
// engine: one request, one transaction, one winner per document version.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/engine/phase"
	"github.com/starward-games/helios-server/internal/state"
	"github.com/starward-games/helios-server/internal/store"
)

// ActionHandler is the top-level action entry point. It owns the
// transaction, the optimistic-concurrency check, history, and the undo
// stacks; phase and action code never touch those directly.
type ActionHandler struct {
	st   store.Store
	log  *zap.Logger
	opts phase.Options
}

// NewActionHandler wires an action handler.
func NewActionHandler(st store.Store, log *zap.Logger, opts phase.Options) *ActionHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &ActionHandler{st: st, log: log, opts: opts.WithDefaults()}
}

// ActionLogPath is the storage path of one history entry.
func ActionLogPath(gameID string, seq int64) string {
	return fmt.Sprintf("%s/actionLog/%d", phase.GameDocPath(gameID), seq)
}

// ChatPath is the storage path of one chat message.
func ChatPath(gameID, messageID string) string {
	return fmt.Sprintf("%s/chat/%s", phase.GameDocPath(gameID), messageID)
}

// ChatMessage is the persisted shape of a chat line.
type ChatMessage struct {
	ID      string    `json:"id"`
	GameID  string    `json:"gameId"`
	Player  string    `json:"player"`
	Message string    `json:"message"`
	At      time.Time `json:"at"`
}

// Handle validates and applies one wire action payload for a player.
// Everything from the version check to the history append happens in a
// single transaction; a failed check leaves the document untouched.
func (h *ActionHandler) Handle(ctx context.Context, gameID, playerID string, payload map[string]any) *action.Response {
	// Chat bypasses phase, turn, and version gating entirely: it carries no
	// game-state mutation and must never be blocked by contention.
	if t, _ := payload["type"].(string); t == action.TypeChat {
		return h.handleChat(ctx, gameID, playerID, payload)
	}

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

		act, expectedVersion, err := action.FromPayload(payload)
		if err != nil {
			resp = action.Fail(action.ErrUnknownType, err.Error())
			return nil
		}

		if expectedVersion > 0 && expectedVersion != g.Version {
			resp = action.Fail(action.ErrStaleState,
				fmt.Sprintf("expected version %d, game is at %d", expectedVersion, g.Version))
			return nil
		}

		phaseAtStart := g.CurrentPhase
		mgr := phase.ManagerForGame(&g, h.log, h.opts)
		pctx := mgr.NewPhaseContext()

		resp = mgr.ExecuteAction(pctx, playerID, act)
		if resp == nil {
			resp = action.Fail(action.ErrInternal, "action produced no response")
		}
		if !resp.Success {
			// Nothing is persisted; the transaction commits no writes.
			return nil
		}

		undoable := act.Undoable()
		if resp.Undoable != nil {
			undoable = *resp.Undoable
		}

		g.Version++
		g.ActionSeq++

		rawPayload, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode action payload: %w", err)
		}
		entry := state.HistoryEntry{
			Seq:      g.ActionSeq,
			At:       time.Now().UTC(),
			Player:   playerID,
			Phase:    phaseAtStart,
			Action:   rawPayload,
			Deltas:   pctx.Rec.Deltas(),
			Undoable: undoable,
		}

		// Undo stacks only ever cover a contiguous undoable run within one
		// phase: a phase transition invalidates every stack, a non-undoable
		// action locks in the acting player's.
		if g.CurrentPhase != phaseAtStart {
			g.ClearAllUndo()
		}
		if undoable {
			g.PushUndo(playerID, entry, h.opts.MaxUndoDepth)
		} else {
			g.ClearUndo(playerID)
		}

		updated, err := json.Marshal(&g)
		if err != nil {
			return fmt.Errorf("encode game %s: %w", gameID, err)
		}
		entryRaw, err := json.Marshal(&entry)
		if err != nil {
			return fmt.Errorf("encode history entry: %w", err)
		}
		if err := tx.Set(ctx, phase.GameDocPath(gameID), updated); err != nil {
			return err
		}
		if err := tx.Set(ctx, ActionLogPath(gameID, entry.Seq), entryRaw); err != nil {
			return err
		}

		resp.StateChanges = pctx.Rec.Deltas()
		resp.Undoable = &undoable

		h.log.Info("action committed",
			zap.String("game_id", gameID),
			zap.String("player", playerID),
			zap.String("action", act.Type()),
			zap.Int64("version", g.Version),
			zap.Int64("seq", g.ActionSeq),
			zap.Bool("undoable", undoable),
		)
		return nil
	})
	if err != nil {
		// Unexpected failure at the transaction boundary: logged, reported
		// generically, nothing written.
		h.log.Error("action transaction failed",
			zap.String("game_id", gameID),
			zap.String("player", playerID),
			zap.Error(err),
		)
		return action.Fail(action.ErrInternal, "internal error")
	}
	return resp
}

func (h *ActionHandler) handleChat(ctx context.Context, gameID, playerID string, payload map[string]any) *action.Response {
	msg, _ := payload["message"].(string)
	if msg == "" {
		return action.Fail(action.ErrMissingParam, "missing parameters: [message]")
	}
	if _, err := h.st.GetDocument(ctx, phase.GameDocPath(gameID)); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return action.Fail(action.ErrGameNotFound, "game not found")
		}
		h.log.Error("chat lookup failed", zap.String("game_id", gameID), zap.Error(err))
		return action.Fail(action.ErrInternal, "internal error")
	}

	chat := ChatMessage{
		ID:      uuid.NewString(),
		GameID:  gameID,
		Player:  playerID,
		Message: msg,
		At:      time.Now().UTC(),
	}
	raw, err := json.Marshal(&chat)
	if err != nil {
		return action.Fail(action.ErrInternal, "internal error")
	}
	if err := h.st.SetDocument(ctx, ChatPath(gameID, chat.ID), raw); err != nil {
		h.log.Error("chat write failed", zap.String("game_id", gameID), zap.Error(err))
		return action.Fail(action.ErrInternal, "internal error")
	}

	resp := action.OK("")
	resp.ActionType = action.TypeChat
	return resp
}
