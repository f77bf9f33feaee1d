package state

import "sort"

// PhaseName identifies one state of the per-game phase machine. Only the
// name is persisted; phase behavior is resolved from it on every request.
type PhaseName string

const (
	PhaseGameStart PhaseName = "game_start"
	PhaseOutreach  PhaseName = "outreach"
	PhaseExpansion PhaseName = "expansion"
	PhaseCombat    PhaseName = "combat"
	PhaseEmpire    PhaseName = "empire"
	PhaseGameEnd   PhaseName = "game_end"
)

// Game is the authoritative per-game document. It is owned by the
// persistence layer; the engine receives a loaded copy per transaction and
// never assumes it survives across transactions.
type Game struct {
	ID string `json:"id"`

	// Version increments by exactly one on every committed mutation and is
	// the entire optimistic-concurrency contract.
	Version int64 `json:"version"`

	// ActionSeq keys action-history entries.
	ActionSeq int64 `json:"actionSeq"`

	CurrentPhase PhaseName `json:"currentPhase"`
	Round        int       `json:"round"`

	// TurnOrder is fixed at creation. ActivePlayer is empty in phases where
	// players act simultaneously.
	TurnOrder    []string `json:"turnOrder"`
	ActivePlayer string   `json:"activePlayer,omitempty"`

	// Passed and Acted track per-rotation intent inside a phase and are
	// reset on every phase transition.
	Passed map[string]bool `json:"passed,omitempty"`
	Acted  map[string]bool `json:"acted,omitempty"`

	// SetupDone guards the one-shot race/homeworld randomization in
	// game_start so a re-derived phase start cannot randomize twice.
	SetupDone bool `json:"setupDone"`

	Players map[string]*Player `json:"players"`
	Systems map[string]*System `json:"systems"`

	// Combat holds the nested combat sub-phase machine while one is in
	// progress, nil otherwise.
	Combat *Combat `json:"combat,omitempty"`

	// Pending holds production orders queued during the empire phase, keyed
	// by the ordering player. Each queue is its own delta path
	// (pending/{player}): one player's deltas never carry another's orders.
	// Orders materialize into ships in one consequences step once every
	// player has passed.
	Pending map[string][]PendingProduction `json:"pending,omitempty"`

	// UndoStacks is the per-player LIFO of undoable history entries. Only
	// the transactional action/undo handlers may write it.
	UndoStacks map[string][]HistoryEntry `json:"undoStacks,omitempty"`

	Winner string `json:"winner,omitempty"`

	// JoinCodeHash is a bcrypt hash of the optional join code. Never
	// included in player views.
	JoinCodeHash string `json:"joinCodeHash,omitempty"`
}

// Player is one seat in the game.
type Player struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Race       string `json:"race,omitempty"`
	Homeworld  string `json:"homeworld,omitempty"`
	Minerals   int    `json:"minerals"`
	Ready      bool   `json:"ready"`
	Eliminated bool   `json:"eliminated"`
}

// System is one node of the board graph. Ships maps player ID to the number
// of ships that player has in the system.
type System struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Adjacent []string       `json:"adjacent"`
	Owner    string         `json:"owner,omitempty"`
	Yield    int            `json:"yield"`
	Ships    map[string]int `json:"ships,omitempty"`
}

// CombatStage is one state of the nested combat machine.
type CombatStage string

const (
	// CombatStageOrders waits for every party to submit a fire/withdraw
	// order for the current round.
	CombatStageOrders CombatStage = "orders"
	// CombatStageDone marks a finished combat awaiting teardown.
	CombatStageDone CombatStage = "done"
)

// CombatChoice is a party's order for one combat round.
type CombatChoice string

const (
	CombatFire     CombatChoice = "fire"
	CombatWithdraw CombatChoice = "withdraw"
)

// Combat is the state of an in-progress combat sub-phase: a multi-round,
// simultaneous-order fight over one system between the jumping attacker and
// the system's occupant.
type Combat struct {
	SystemID   string                  `json:"systemId"`
	FromSystem string                  `json:"fromSystem"`
	Attacker   string                  `json:"attacker"`
	Defender   string                  `json:"defender"`
	Round      int                     `json:"round"`
	Stage      CombatStage             `json:"stage"`
	Orders     map[string]CombatChoice `json:"orders,omitempty"`
}

// Parties returns the players involved in the combat, attacker first.
func (c *Combat) Parties() []string {
	return []string{c.Attacker, c.Defender}
}

// PendingProduction is a typed pending effect: a production order queued by
// execute and materialized by the empire phase's consequences step.
type PendingProduction struct {
	Player   string `json:"player"`
	SystemID string `json:"systemId"`
	Ships    int    `json:"ships"`
	Cost     int    `json:"cost"`
}

// PlayerByID returns the player record for id, or nil.
func (g *Game) PlayerByID(id string) *Player {
	return g.Players[id]
}

// ActivePlayers returns the players still in the game, in turn order.
func (g *Game) ActivePlayers() []string {
	out := make([]string, 0, len(g.TurnOrder))
	for _, id := range g.TurnOrder {
		if p := g.Players[id]; p != nil && !p.Eliminated {
			out = append(out, id)
		}
	}
	return out
}

// NextPlayer returns the next non-eliminated player after id in turn order.
// Returns id itself if no other player remains.
func (g *Game) NextPlayer(id string) string {
	n := len(g.TurnOrder)
	start := 0
	for i, p := range g.TurnOrder {
		if p == id {
			start = i
			break
		}
	}
	for off := 1; off <= n; off++ {
		cand := g.TurnOrder[(start+off)%n]
		if p := g.Players[cand]; p != nil && !p.Eliminated {
			return cand
		}
	}
	return id
}

// AllPassed reports whether every non-eliminated player has passed.
func (g *Game) AllPassed() bool {
	for _, id := range g.ActivePlayers() {
		if !g.Passed[id] {
			return false
		}
	}
	return true
}

// AllReady reports whether every non-eliminated player has readied up.
func (g *Game) AllReady() bool {
	ready := 0
	for _, p := range g.Players {
		if p.Eliminated {
			continue
		}
		if !p.Ready {
			return false
		}
		ready++
	}
	return ready > 0
}

// OwnedSystems returns the IDs of systems owned by the player, sorted by ID
// for deterministic choice lists.
func (g *Game) OwnedSystems(playerID string) []string {
	return g.systemIDsWhere(func(s *System) bool { return s.Owner == playerID })
}

// SystemsWithShips returns the IDs of systems where the player has at least
// one ship, sorted.
func (g *Game) SystemsWithShips(playerID string) []string {
	return g.systemIDsWhere(func(s *System) bool { return s.Ships[playerID] > 0 })
}

func (g *Game) systemIDsWhere(keep func(*System) bool) []string {
	out := make([]string, 0, len(g.Systems))
	for id, s := range g.Systems {
		if keep(s) {
			out = append(out, id)
		}
	}
	SortIDs(out)
	return out
}

// EnemyPresent reports whether any player other than playerID has ships in
// the system, and returns the first such occupant.
func (s *System) EnemyPresent(playerID string) (string, bool) {
	ids := make([]string, 0, len(s.Ships))
	for id := range s.Ships {
		ids = append(ids, id)
	}
	SortIDs(ids)
	for _, id := range ids {
		if id != playerID && s.Ships[id] > 0 {
			return id, true
		}
	}
	return "", false
}

// SortIDs sorts an ID slice in place; choice lists and iteration over maps
// must be deterministic.
func SortIDs(ss []string) {
	sort.Strings(ss)
}
