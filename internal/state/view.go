package state

// PlayerView is the redacted projection of a game document sent to one
// player. Fog-of-war style redaction: other players' mineral balances and
// pending production orders are withheld, the join code hash never leaves
// the server.
type PlayerView struct {
	ID           string              `json:"id"`
	Version      int64               `json:"version"`
	ActionSeq    int64               `json:"actionSeq"`
	CurrentPhase PhaseName           `json:"currentPhase"`
	Round        int                 `json:"round"`
	TurnOrder    []string            `json:"turnOrder"`
	ActivePlayer string              `json:"activePlayer,omitempty"`
	Players      map[string]*Player  `json:"players"`
	Systems      map[string]*System  `json:"systems"`
	Combat       *Combat             `json:"combat,omitempty"`
	// CombatOrdersIn lists the parties whose order for the current round is
	// in, without revealing what they ordered.
	CombatOrdersIn []string            `json:"combatOrdersIn,omitempty"`
	Pending        []PendingProduction `json:"pending,omitempty"`
	Winner         string              `json:"winner,omitempty"`
	CanUndo        bool                `json:"canUndo"`
}

// ViewFor builds the redacted view of g for viewer.
func (g *Game) ViewFor(viewer string) *PlayerView {
	players := make(map[string]*Player, len(g.Players))
	for id, p := range g.Players {
		cp := *p
		if id != viewer {
			cp.Minerals = 0
		}
		players[id] = &cp
	}

	pending := append([]PendingProduction(nil), g.Pending[viewer]...)

	// Combat orders stay hidden until the round resolves; a viewer sees
	// only their own order plus who has already submitted.
	var combat *Combat
	var ordersIn []string
	if g.Combat != nil {
		cp := *g.Combat
		if len(cp.Orders) > 0 {
			own := make(map[string]CombatChoice, 1)
			for pid, ord := range cp.Orders {
				ordersIn = append(ordersIn, pid)
				if pid == viewer {
					own[pid] = ord
				}
			}
			SortIDs(ordersIn)
			cp.Orders = own
		}
		combat = &cp
	}

	return &PlayerView{
		ID:             g.ID,
		Version:        g.Version,
		ActionSeq:      g.ActionSeq,
		CurrentPhase:   g.CurrentPhase,
		Round:          g.Round,
		TurnOrder:      g.TurnOrder,
		ActivePlayer:   g.ActivePlayer,
		Players:        players,
		Systems:        g.Systems,
		Combat:         combat,
		CombatOrdersIn: ordersIn,
		Pending:        pending,
		Winner:         g.Winner,
		CanUndo:        len(g.UndoStacks[viewer]) > 0,
	}
}
