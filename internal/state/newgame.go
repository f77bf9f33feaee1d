package state

import (
	"fmt"
	"math/rand"
)

// BoardOptions controls board generation at game creation.
type BoardOptions struct {
	// Systems is the number of star systems; minimum three per player.
	Systems int
	// StartingMinerals is each player's opening mineral balance.
	StartingMinerals int
	// Seed drives board randomization; zero means non-deterministic.
	Seed int64
	// Names are display names for the generated systems, in order. Systems
	// beyond the list fall back to a numbered name.
	Names []string
}

// Races a homeworld assignment can draw from.
var Races = []string{"Tekanu", "Voss", "Ralyx", "Embrin", "Corvan", "Shindari"}

// NewGame builds a fresh game document in the game_start phase. Race and
// homeworld assignment happens in the game_start phase hook, not here, so
// the one-shot randomization is covered by the phase machine and its
// SetupDone guard.
func NewGame(id string, playerNames map[string]string, opts BoardOptions) (*Game, error) {
	if len(playerNames) < 2 {
		return nil, fmt.Errorf("a game needs at least two players, got %d", len(playerNames))
	}

	n := opts.Systems
	if min := len(playerNames) * 3; n < min {
		n = min
	}
	minerals := opts.StartingMinerals
	if minerals <= 0 {
		minerals = 5
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	if opts.Seed == 0 {
		rng = rand.New(rand.NewSource(rand.Int63()))
	}

	g := &Game{
		ID: id,
		// Versions start at 1: a wire payload carries expectedVersion 0 to
		// mean "not supplied", so a fresh document must sit above that for
		// its very first action to be gateable.
		Version:   1,
		ActionSeq: 0,
		CurrentPhase: PhaseGameStart,
		Round:        1,
		Players:      make(map[string]*Player, len(playerNames)),
		Systems:      make(map[string]*System, n),
	}

	ids := make([]string, 0, len(playerNames))
	for pid := range playerNames {
		ids = append(ids, pid)
	}
	SortIDs(ids)
	rng.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	g.TurnOrder = ids

	for pid, name := range playerNames {
		g.Players[pid] = &Player{ID: pid, Name: name, Minerals: minerals}
	}

	// Ring topology with a chord every third system; enough connectivity to
	// make jump/colonize adjacency interesting without pathfinding.
	for i := 0; i < n; i++ {
		sysID := fmt.Sprintf("sys-%d", i+1)
		adj := []string{
			fmt.Sprintf("sys-%d", (i+n-1)%n+1),
			fmt.Sprintf("sys-%d", (i+1)%n+1),
		}
		if n > 4 && i%3 == 0 {
			adj = append(adj, fmt.Sprintf("sys-%d", (i+n/2)%n+1))
		}
		name := fmt.Sprintf("System %d", i+1)
		if i < len(opts.Names) && opts.Names[i] != "" {
			name = opts.Names[i]
		}
		g.Systems[sysID] = &System{
			ID:       sysID,
			Name:     name,
			Adjacent: dedupe(adj, sysID),
			Yield:    1 + rng.Intn(3),
		}
	}

	return g, nil
}

func dedupe(ids []string, self string) []string {
	seen := map[string]bool{self: true}
	out := ids[:0]
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			out = append(out, id)
		}
	}
	return out
}
