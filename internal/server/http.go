// Package server exposes the game engine over HTTP and pushes update
// notifications over WebSocket.
package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/starward-games/helios-server/internal/config"
	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/engine/handler"
	"github.com/starward-games/helios-server/internal/engine/phase"
	"github.com/starward-games/helios-server/internal/lobby"
	"github.com/starward-games/helios-server/internal/state"
	"github.com/starward-games/helios-server/internal/store"
)

// Server wires the HTTP API over the document store and the transactional
// handlers.
type Server struct {
	st      store.Store
	log     *zap.Logger
	opts    phase.Options
	board   state.BoardOptions
	actions *handler.ActionHandler
	undo    *handler.UndoHandler
	hub     *Hub
	lobby   *lobby.Manager
}

// New builds a server from configuration.
func New(st store.Store, log *zap.Logger, cfg *config.Config) *Server {
	if log == nil {
		log = zap.NewNop()
	}
	opts := phase.Options{
		RoundLimit:   cfg.Game.RoundLimit,
		MaxUndoDepth: cfg.Game.MaxUndoDepth,
	}
	return &Server{
		st:   st,
		log:  log,
		opts: opts,
		board: state.BoardOptions{
			Systems:          cfg.Game.BoardSystems,
			StartingMinerals: cfg.Game.StartingMinerals,
		},
		actions: handler.NewActionHandler(st, log, opts),
		undo:    handler.NewUndoHandler(st, log, opts),
		hub:     NewHub(log),
		lobby:   lobby.NewManager(st, log),
	}
}

// Hub returns the WebSocket hub; the caller runs its loop.
func (s *Server) Hub() *Hub { return s.hub }

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(RecoveryMiddleware(s.log))
	r.Use(LoggingMiddleware(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Get("/api/lobby", s.handleLobby)

	r.Route("/api/games", func(r chi.Router) {
		r.Post("/", s.handleCreateGame)
		r.Route("/{gameID}", func(r chi.Router) {
			r.Post("/join", s.handleJoin)
			r.Get("/", s.handleView)
			r.Get("/actions", s.handleLegalActions)
			r.Post("/actions", s.handleAction)
			r.Post("/actions/choices", s.handleParamChoices)
			r.Post("/undo", s.handleUndo)
			r.Get("/chat", s.handleChatLog)
			r.Get("/history", s.handleHistory)
			r.Get("/ws", s.handleWS)
		})
	})

	return r
}

type createGameRequest struct {
	// Players maps player ID to display name; at least two entries.
	Players  map[string]string `json:"players"`
	Name     string            `json:"name,omitempty"`
	JoinCode string            `json:"joinCode,omitempty"`
	Systems  int               `json:"systems,omitempty"`
	Seed     int64             `json:"seed,omitempty"`
}

type createGameResponse struct {
	ID      string `json:"id"`
	Version int64  `json:"version"`
}

func (s *Server) handleCreateGame(w http.ResponseWriter, r *http.Request) {
	var req createGameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	opts := s.board
	if req.Systems > 0 {
		opts.Systems = req.Systems
	}
	opts.Seed = req.Seed
	opts.Names = s.systemNames(r)

	g, err := state.NewGame(uuid.NewString(), req.Players, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	if req.JoinCode != "" {
		hash, err := bcrypt.GenerateFromPassword([]byte(req.JoinCode), bcrypt.DefaultCost)
		if err != nil {
			writeError(w, http.StatusInternalServerError, action.ErrInternal, "internal error")
			return
		}
		g.JoinCodeHash = string(hash)
	}

	raw, err := json.Marshal(g)
	if err != nil {
		writeError(w, http.StatusInternalServerError, action.ErrInternal, "internal error")
		return
	}
	if err := s.st.SetDocument(r.Context(), phase.GameDocPath(g.ID), raw); err != nil {
		s.log.Error("create game failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, action.ErrInternal, "internal error")
		return
	}

	s.lobby.Register(g.ID, req.Name)
	s.log.Info("game created",
		zap.String("game_id", g.ID),
		zap.Int("players", len(g.Players)),
		zap.Int("systems", len(g.Systems)),
	)
	writeJSON(w, http.StatusCreated, createGameResponse{ID: g.ID, Version: g.Version})
}

type joinRequest struct {
	PlayerID string `json:"playerId"`
	JoinCode string `json:"joinCode,omitempty"`
}

func (s *Server) handleJoin(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	var req joinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	g, ok := s.loadGame(w, r, gameID)
	if !ok {
		return
	}
	if g.JoinCodeHash != "" {
		if bcrypt.CompareHashAndPassword([]byte(g.JoinCodeHash), []byte(req.JoinCode)) != nil {
			writeError(w, http.StatusForbidden, "bad_join_code", "join code does not match")
			return
		}
	}
	if g.PlayerByID(req.PlayerID) == nil {
		writeError(w, http.StatusNotFound, action.ErrGameNotFound,
			fmt.Sprintf("no seat %q in this game", req.PlayerID))
		return
	}

	writeJSON(w, http.StatusOK, g.ViewFor(req.PlayerID))
}

func (s *Server) handleView(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	player := r.URL.Query().Get("player")

	g, ok := s.loadGame(w, r, gameID)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, g.ViewFor(player))
}

func (s *Server) handleLegalActions(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	player := r.URL.Query().Get("player")

	mgr, err := phase.NewManager(r.Context(), s.st, gameID, s.log, s.opts)
	if err != nil {
		s.writeLoadError(w, gameID, err)
		return
	}
	writeJSON(w, http.StatusOK, mgr.GetLegalActions(player))
}

type paramChoicesRequest struct {
	Player     string         `json:"player"`
	ActionType string         `json:"actionType"`
	Param      string         `json:"param"`
	Params     map[string]any `json:"params,omitempty"`
}

func (s *Server) handleParamChoices(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	var req paramChoicesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	mgr, err := phase.NewManager(r.Context(), s.st, gameID, s.log, s.opts)
	if err != nil {
		s.writeLoadError(w, gameID, err)
		return
	}
	choices, err := mgr.GetParamChoices(req.Player, req.ActionType, req.Param, req.Params)
	if err != nil {
		writeError(w, http.StatusBadRequest, action.ErrUnknownType, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, choices)
}

func (s *Server) handleAction(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	player := r.URL.Query().Get("player")
	if player == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "player query parameter is required")
		return
	}

	var payload map[string]any
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
		return
	}

	resp := s.actions.Handle(r.Context(), gameID, player, payload)
	if resp.Success {
		if resp.ActionType == action.TypeChat {
			msg, _ := payload["message"].(string)
			s.hub.Notify(Event{Type: "chat", GameID: gameID, Player: player, Message: msg})
		} else {
			s.hub.Notify(Event{Type: "game_updated", GameID: gameID})
		}
	}
	writeJSON(w, statusFor(resp), resp)
}

type undoRequest struct {
	ExpectedVersion int64 `json:"expectedVersion,omitempty"`
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	player := r.URL.Query().Get("player")
	if player == "" {
		writeError(w, http.StatusBadRequest, "bad_request", "player query parameter is required")
		return
	}

	var req undoRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "bad_request", "invalid JSON body")
			return
		}
	}

	resp := s.undo.Undo(r.Context(), gameID, player, req.ExpectedVersion)
	if resp.Success {
		s.hub.Notify(Event{Type: "game_updated", GameID: gameID})
	}
	writeJSON(w, statusFor(resp), resp)
}

// SystemNamesPath is the catalog document of display names for generated
// systems, populated by the import-names script.
const SystemNamesPath = "catalog/system-names"

// systemNames loads the name catalog; absence just means numbered names.
func (s *Server) systemNames(r *http.Request) []string {
	raw, err := s.st.GetDocument(r.Context(), SystemNamesPath)
	if err != nil {
		return nil
	}
	var names []string
	if err := json.Unmarshal(raw, &names); err != nil {
		s.log.Warn("corrupt system-name catalog", zap.Error(err))
		return nil
	}
	return names
}

func (s *Server) handleLobby(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.lobby.List(r.Context()))
}

func (s *Server) handleChatLog(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	docs, err := s.st.ListDocuments(r.Context(), phase.GameDocPath(gameID)+"/chat/")
	if err != nil {
		s.log.Error("chat list failed", zap.String("game_id", gameID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, action.ErrInternal, "internal error")
		return
	}

	msgs := make([]handler.ChatMessage, 0, len(docs))
	for _, raw := range docs {
		var m handler.ChatMessage
		if err := json.Unmarshal(raw, &m); err != nil {
			continue
		}
		msgs = append(msgs, m)
	}
	sort.Slice(msgs, func(i, j int) bool { return msgs[i].At.Before(msgs[j].At) })
	writeJSON(w, http.StatusOK, msgs)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	gameID := chi.URLParam(r, "gameID")
	viewer := r.URL.Query().Get("player")

	docs, err := s.st.ListDocuments(r.Context(), phase.GameDocPath(gameID)+"/actionLog/")
	if err != nil {
		s.log.Error("history list failed", zap.String("game_id", gameID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, action.ErrInternal, "internal error")
		return
	}

	entries := make([]state.HistoryEntry, 0, len(docs))
	for _, raw := range docs {
		var e state.HistoryEntry
		if err := json.Unmarshal(raw, &e); err != nil {
			continue
		}
		e.Deltas = e.RedactDeltas(viewer)
		// Another player's full payload can reveal hidden choices; strip it
		// down to the action type.
		if e.Player != viewer {
			e.Action = json.RawMessage(fmt.Sprintf(`{"type":%q}`, payloadType(e.Action)))
		}
		entries = append(entries, e)
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seq < entries[j].Seq })
	writeJSON(w, http.StatusOK, entries)
}

func (s *Server) loadGame(w http.ResponseWriter, r *http.Request, gameID string) (*state.Game, bool) {
	raw, err := s.st.GetDocument(r.Context(), phase.GameDocPath(gameID))
	if err != nil {
		s.writeLoadError(w, gameID, err)
		return nil, false
	}
	var g state.Game
	if err := json.Unmarshal(raw, &g); err != nil {
		s.log.Error("corrupt game document", zap.String("game_id", gameID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, action.ErrInternal, "internal error")
		return nil, false
	}
	return &g, true
}

func (s *Server) writeLoadError(w http.ResponseWriter, gameID string, err error) {
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, action.ErrGameNotFound, "game not found")
		return
	}
	s.log.Error("load game failed", zap.String("game_id", gameID), zap.Error(err))
	writeError(w, http.StatusInternalServerError, action.ErrInternal, "internal error")
}

// statusFor maps an engine response to an HTTP status. Rule rejections stay
// 200-family concerns of the envelope except the contention and existence
// cases clients branch on.
func statusFor(resp *action.Response) int {
	if resp.Success {
		return http.StatusOK
	}
	switch resp.Error {
	case action.ErrStaleState:
		return http.StatusConflict
	case action.ErrGameNotFound:
		return http.StatusNotFound
	case action.ErrInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusUnprocessableEntity
	}
}

func payloadType(raw json.RawMessage) string {
	var p struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &p); err != nil || p.Type == "" {
		return "action"
	}
	return p.Type
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, action.Fail(code, message))
}
