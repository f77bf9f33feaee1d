// Package lobby tracks the games hosted by this server so clients can
// browse and join them. The registry is in-memory; game truth stays in the
// document store and snapshots are rebuilt from it on every listing.
package lobby

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/starward-games/helios-server/internal/engine/phase"
	"github.com/starward-games/helios-server/internal/state"
	"github.com/starward-games/helios-server/internal/store"
)

// GameState is the coarse lifecycle bucket a listed game is in.
type GameState int

const (
	StateWaiting GameState = iota
	StateInProgress
	StateFinished
)

func (s GameState) String() string {
	switch s {
	case StateWaiting:
		return "WAITING"
	case StateInProgress:
		return "IN_PROGRESS"
	case StateFinished:
		return "FINISHED"
	default:
		return "UNKNOWN"
	}
}

// Entry is the registry record for one hosted game.
type Entry struct {
	GameID     string
	Name       string
	CreateTime time.Time
}

// Snapshot is the listing view of one game, rebuilt from its document.
type Snapshot struct {
	GameID     string    `json:"gameId"`
	Name       string    `json:"name,omitempty"`
	Players    []string  `json:"players"`
	Phase      string    `json:"phase"`
	Round      int       `json:"round"`
	State      string    `json:"state"`
	Winner     string    `json:"winner,omitempty"`
	CreateTime time.Time `json:"createTime"`
}

// Manager is the lobby registry.
type Manager struct {
	mu      sync.RWMutex
	st      store.Store
	log     *zap.Logger
	entries map[string]*Entry
	order   []string // insertion order
}

// NewManager creates a lobby manager over the document store.
func NewManager(st store.Store, log *zap.Logger) *Manager {
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		st:      st,
		log:     log,
		entries: make(map[string]*Entry),
	}
}

// Register lists a freshly created game.
func (m *Manager) Register(gameID, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[gameID]; exists {
		return
	}
	m.entries[gameID] = &Entry{
		GameID:     gameID,
		Name:       name,
		CreateTime: time.Now(),
	}
	m.order = append(m.order, gameID)
}

// Remove delists a game.
func (m *Manager) Remove(gameID string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[gameID]; !exists {
		return
	}
	delete(m.entries, gameID)
	for i, id := range m.order {
		if id == gameID {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// Count returns the number of listed games.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// List builds snapshots for every listed game, in registration order.
// Games whose document has disappeared are delisted as a side effect.
func (m *Manager) List(ctx context.Context) []Snapshot {
	m.mu.RLock()
	ids := append([]string(nil), m.order...)
	entries := make(map[string]*Entry, len(m.entries))
	for id, e := range m.entries {
		entries[id] = e
	}
	m.mu.RUnlock()

	out := make([]Snapshot, 0, len(ids))
	var gone []string
	for _, id := range ids {
		entry := entries[id]
		raw, err := m.st.GetDocument(ctx, phase.GameDocPath(id))
		if err != nil {
			gone = append(gone, id)
			continue
		}
		var g state.Game
		if err := json.Unmarshal(raw, &g); err != nil {
			m.log.Warn("corrupt game document in lobby", zap.String("game_id", id), zap.Error(err))
			continue
		}

		players := make([]string, 0, len(g.TurnOrder))
		for _, pid := range g.TurnOrder {
			if p := g.PlayerByID(pid); p != nil {
				players = append(players, p.Name)
			}
		}

		out = append(out, Snapshot{
			GameID:     id,
			Name:       entry.Name,
			Players:    players,
			Phase:      string(g.CurrentPhase),
			Round:      g.Round,
			State:      stateOf(&g).String(),
			Winner:     g.Winner,
			CreateTime: entry.CreateTime,
		})
	}

	for _, id := range gone {
		m.Remove(id)
	}
	return out
}

func stateOf(g *state.Game) GameState {
	switch {
	case g.CurrentPhase == state.PhaseGameEnd:
		return StateFinished
	case g.CurrentPhase == state.PhaseGameStart && !g.AllReady():
		return StateWaiting
	default:
		return StateInProgress
	}
}
