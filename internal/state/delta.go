package state

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Visibility tags who may see a delta when history is redacted for a
// particular viewer.
type Visibility string

const (
	VisPublic Visibility = "public"
	VisOwner  Visibility = "owner"
	VisHidden Visibility = "hidden"
)

// Delta is a single field-level mutation of the game document: the unit of
// persisted change and of action-history content. The whole state tree is
// never written as one blob of change.
type Delta struct {
	Path       string     `json:"path"`
	Old        any        `json:"old,omitempty"`
	New        any        `json:"new,omitempty"`
	Visibility Visibility `json:"visibility,omitempty"`
	// Owner names the player allowed to see an owner-visibility delta.
	Owner string `json:"owner,omitempty"`
}

// Inverse returns the delta that reverses d.
func (d Delta) Inverse() Delta {
	return Delta{Path: d.Path, Old: d.New, New: d.Old, Visibility: d.Visibility, Owner: d.Owner}
}

// Recorder is the only sanctioned way to mutate a Game inside the engine.
// Every Set applies the change to the document and records the matching
// delta, so the recorded history is always consistent with the document.
type Recorder struct {
	game   *Game
	deltas []Delta
}

// NewRecorder returns a recorder over g.
func NewRecorder(g *Game) *Recorder {
	return &Recorder{game: g}
}

// Game returns the document under the recorder.
func (r *Recorder) Game() *Game { return r.game }

// Deltas returns the deltas recorded so far, in application order.
func (r *Recorder) Deltas() []Delta { return r.deltas }

// Set applies a public mutation.
func (r *Recorder) Set(path string, value any) error {
	return r.record(path, value, VisPublic, "")
}

// SetOwned applies a mutation visible only to owner.
func (r *Recorder) SetOwned(path string, value any, owner string) error {
	return r.record(path, value, VisOwner, owner)
}

// SetHidden applies a mutation visible to nobody outside the server.
func (r *Recorder) SetHidden(path string, value any) error {
	return r.record(path, value, VisHidden, "")
}

func (r *Recorder) record(path string, value any, vis Visibility, owner string) error {
	old, err := r.game.Lookup(path)
	if err != nil {
		return err
	}
	if err := r.game.Apply(path, value); err != nil {
		return err
	}
	r.deltas = append(r.deltas, Delta{Path: path, Old: old, New: value, Visibility: vis, Owner: owner})
	return nil
}

// ApplyInverse reverses a recorded delta list against g: deltas are applied
// in reverse order with old/new swapped.
func ApplyInverse(g *Game, deltas []Delta) error {
	for i := len(deltas) - 1; i >= 0; i-- {
		inv := deltas[i].Inverse()
		if err := g.Apply(inv.Path, inv.New); err != nil {
			return fmt.Errorf("inverse of %s: %w", inv.Path, err)
		}
	}
	return nil
}

// Lookup returns a detached copy of the value at a delta path.
func (g *Game) Lookup(path string) (any, error) {
	seg := strings.Split(path, "/")
	switch seg[0] {
	case "currentPhase":
		return string(g.CurrentPhase), nil
	case "round":
		return g.Round, nil
	case "activePlayer":
		return g.ActivePlayer, nil
	case "setupDone":
		return g.SetupDone, nil
	case "winner":
		return g.Winner, nil
	case "passed":
		if len(seg) != 2 {
			return nil, badPath(path)
		}
		return g.Passed[seg[1]], nil
	case "acted":
		if len(seg) != 2 {
			return nil, badPath(path)
		}
		return g.Acted[seg[1]], nil
	case "pending":
		if len(seg) == 1 {
			return copyJSON(g.Pending, map[string][]PendingProduction{})
		}
		if len(seg) != 2 {
			return nil, badPath(path)
		}
		if g.Pending[seg[1]] == nil {
			return nil, nil
		}
		return copyJSON(g.Pending[seg[1]], []PendingProduction{})
	case "combat":
		if len(seg) == 1 {
			if g.Combat == nil {
				return nil, nil
			}
			return copyJSON(g.Combat, &Combat{})
		}
		if g.Combat == nil {
			return nil, fmt.Errorf("no combat in progress for path %q", path)
		}
		switch seg[1] {
		case "stage":
			return string(g.Combat.Stage), nil
		case "round":
			return g.Combat.Round, nil
		case "orders":
			if len(seg) == 2 {
				return copyJSON(g.Combat.Orders, map[string]CombatChoice{})
			}
			return string(g.Combat.Orders[seg[2]]), nil
		}
		return nil, badPath(path)
	case "players":
		if len(seg) != 3 {
			return nil, badPath(path)
		}
		p := g.Players[seg[1]]
		if p == nil {
			return nil, fmt.Errorf("unknown player %q in path %q", seg[1], path)
		}
		switch seg[2] {
		case "minerals":
			return p.Minerals, nil
		case "ready":
			return p.Ready, nil
		case "race":
			return p.Race, nil
		case "homeworld":
			return p.Homeworld, nil
		case "eliminated":
			return p.Eliminated, nil
		}
		return nil, badPath(path)
	case "systems":
		if len(seg) < 3 {
			return nil, badPath(path)
		}
		s := g.Systems[seg[1]]
		if s == nil {
			return nil, fmt.Errorf("unknown system %q in path %q", seg[1], path)
		}
		switch seg[2] {
		case "owner":
			return s.Owner, nil
		case "ships":
			if len(seg) != 4 {
				return nil, badPath(path)
			}
			return s.Ships[seg[3]], nil
		}
		return nil, badPath(path)
	}
	return nil, badPath(path)
}

// Apply writes a value at a delta path. Values that round-tripped through
// JSON (history entries reloaded from storage) are coerced back to the
// field's type.
func (g *Game) Apply(path string, value any) error {
	seg := strings.Split(path, "/")
	switch seg[0] {
	case "currentPhase":
		v, err := asString(value)
		if err != nil {
			return wrapPath(path, err)
		}
		g.CurrentPhase = PhaseName(v)
		return nil
	case "round":
		v, err := asInt(value)
		if err != nil {
			return wrapPath(path, err)
		}
		g.Round = v
		return nil
	case "activePlayer":
		v, err := asString(value)
		if err != nil {
			return wrapPath(path, err)
		}
		g.ActivePlayer = v
		return nil
	case "setupDone":
		v, err := asBool(value)
		if err != nil {
			return wrapPath(path, err)
		}
		g.SetupDone = v
		return nil
	case "winner":
		v, err := asString(value)
		if err != nil {
			return wrapPath(path, err)
		}
		g.Winner = v
		return nil
	case "passed":
		if len(seg) != 2 {
			return badPath(path)
		}
		v, err := asBool(value)
		if err != nil {
			return wrapPath(path, err)
		}
		if g.Passed == nil {
			g.Passed = make(map[string]bool)
		}
		g.Passed[seg[1]] = v
		return nil
	case "acted":
		if len(seg) != 2 {
			return badPath(path)
		}
		v, err := asBool(value)
		if err != nil {
			return wrapPath(path, err)
		}
		if g.Acted == nil {
			g.Acted = make(map[string]bool)
		}
		g.Acted[seg[1]] = v
		return nil
	case "pending":
		if len(seg) == 1 {
			var pending map[string][]PendingProduction
			if value != nil {
				if err := recode(value, &pending); err != nil {
					return wrapPath(path, err)
				}
			}
			g.Pending = pending
			return nil
		}
		if len(seg) != 2 {
			return badPath(path)
		}
		var orders []PendingProduction
		if value != nil {
			if err := recode(value, &orders); err != nil {
				return wrapPath(path, err)
			}
		}
		if len(orders) == 0 {
			delete(g.Pending, seg[1])
			return nil
		}
		if g.Pending == nil {
			g.Pending = make(map[string][]PendingProduction)
		}
		g.Pending[seg[1]] = orders
		return nil
	case "combat":
		return g.applyCombat(path, seg, value)
	case "players":
		return g.applyPlayer(path, seg, value)
	case "systems":
		return g.applySystem(path, seg, value)
	}
	return badPath(path)
}

func (g *Game) applyCombat(path string, seg []string, value any) error {
	if len(seg) == 1 {
		if value == nil {
			g.Combat = nil
			return nil
		}
		var c Combat
		if err := recode(value, &c); err != nil {
			return wrapPath(path, err)
		}
		g.Combat = &c
		return nil
	}
	if g.Combat == nil {
		return fmt.Errorf("no combat in progress for path %q", path)
	}
	switch seg[1] {
	case "stage":
		v, err := asString(value)
		if err != nil {
			return wrapPath(path, err)
		}
		g.Combat.Stage = CombatStage(v)
		return nil
	case "round":
		v, err := asInt(value)
		if err != nil {
			return wrapPath(path, err)
		}
		g.Combat.Round = v
		return nil
	case "orders":
		if len(seg) == 2 {
			var orders map[string]CombatChoice
			if value != nil {
				if err := recode(value, &orders); err != nil {
					return wrapPath(path, err)
				}
			}
			g.Combat.Orders = orders
			return nil
		}
		v, err := asString(value)
		if err != nil {
			return wrapPath(path, err)
		}
		if g.Combat.Orders == nil {
			g.Combat.Orders = make(map[string]CombatChoice)
		}
		if v == "" {
			delete(g.Combat.Orders, seg[2])
		} else {
			g.Combat.Orders[seg[2]] = CombatChoice(v)
		}
		return nil
	}
	return badPath(path)
}

func (g *Game) applyPlayer(path string, seg []string, value any) error {
	if len(seg) != 3 {
		return badPath(path)
	}
	p := g.Players[seg[1]]
	if p == nil {
		return fmt.Errorf("unknown player %q in path %q", seg[1], path)
	}
	switch seg[2] {
	case "minerals":
		v, err := asInt(value)
		if err != nil {
			return wrapPath(path, err)
		}
		p.Minerals = v
		return nil
	case "ready":
		v, err := asBool(value)
		if err != nil {
			return wrapPath(path, err)
		}
		p.Ready = v
		return nil
	case "race":
		v, err := asString(value)
		if err != nil {
			return wrapPath(path, err)
		}
		p.Race = v
		return nil
	case "homeworld":
		v, err := asString(value)
		if err != nil {
			return wrapPath(path, err)
		}
		p.Homeworld = v
		return nil
	case "eliminated":
		v, err := asBool(value)
		if err != nil {
			return wrapPath(path, err)
		}
		p.Eliminated = v
		return nil
	}
	return badPath(path)
}

func (g *Game) applySystem(path string, seg []string, value any) error {
	if len(seg) < 3 {
		return badPath(path)
	}
	s := g.Systems[seg[1]]
	if s == nil {
		return fmt.Errorf("unknown system %q in path %q", seg[1], path)
	}
	switch seg[2] {
	case "owner":
		v, err := asString(value)
		if err != nil {
			return wrapPath(path, err)
		}
		s.Owner = v
		return nil
	case "ships":
		if len(seg) != 4 {
			return badPath(path)
		}
		v, err := asInt(value)
		if err != nil {
			return wrapPath(path, err)
		}
		if s.Ships == nil {
			s.Ships = make(map[string]int)
		}
		if v == 0 {
			delete(s.Ships, seg[3])
		} else {
			s.Ships[seg[3]] = v
		}
		return nil
	}
	return badPath(path)
}

func badPath(path string) error {
	return fmt.Errorf("unsupported delta path %q", path)
}

func wrapPath(path string, err error) error {
	return fmt.Errorf("path %q: %w", path, err)
}

// copyJSON returns a detached copy of v via a JSON round trip, so a stored
// Old value cannot alias live document state.
func copyJSON[T any](v any, zero T) (T, error) {
	var out T
	if err := recode(v, &out); err != nil {
		return zero, err
	}
	return out, nil
}

func recode(v any, into any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, into)
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case nil:
		return 0, nil
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		return int(n), nil
	case json.Number:
		i, err := n.Int64()
		return int(i), err
	case string:
		return strconv.Atoi(n)
	}
	return 0, fmt.Errorf("expected number, got %T", v)
}

func asBool(v any) (bool, error) {
	switch b := v.(type) {
	case nil:
		return false, nil
	case bool:
		return b, nil
	}
	return false, fmt.Errorf("expected bool, got %T", v)
}

func asString(v any) (string, error) {
	switch s := v.(type) {
	case nil:
		return "", nil
	case string:
		return s, nil
	case PhaseName:
		return string(s), nil
	case CombatStage:
		return string(s), nil
	case CombatChoice:
		return string(s), nil
	}
	return "", fmt.Errorf("expected string, got %T", v)
}
