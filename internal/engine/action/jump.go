package action

import (
	"fmt"

	"github.com/starward-games/helios-server/internal/state"
)

// TypeJump moves ships along one board edge. A jump into an enemy-occupied
// system opens the combat sub-phase and is no longer undoable.
const TypeJump = "jump"

type Jump struct {
	Base
}

func NewJump() Action {
	return &Jump{Base: Base{
		ActionType: TypeJump,
		CanUndo:    true,
		ParamList: []*Param{
			{Name: "from", Kind: KindSpace},
			{Name: "to", Kind: KindSpace, DependsOn: "from"},
			{Name: "ships", Kind: KindNumber, DependsOn: "from"},
		},
	}}
}

func (j *Jump) ParamChoices(g *state.Game, playerID, param string) *Choices {
	if gate := j.Gate(param); gate != nil {
		return gate
	}

	switch param {
	case "from":
		ids := g.SystemsWithShips(playerID)
		if len(ids) == 0 {
			return &Choices{Message: "No fleets to move"}
		}
		choices := make([]Choice, 0, len(ids))
		for _, id := range ids {
			sys := g.Systems[id]
			choices = append(choices, Choice{
				Value: id,
				Label: fmt.Sprintf("%s (%d ships)", sys.Name, sys.Ships[playerID]),
			})
		}
		return &Choices{Choices: choices}

	case "to":
		fromID, _ := j.StringValue("from")
		from := g.Systems[fromID]
		if from == nil {
			return &Choices{Message: "Select from first"}
		}
		adj := append([]string(nil), from.Adjacent...)
		state.SortIDs(adj)
		choices := make([]Choice, 0, len(adj))
		for _, id := range adj {
			sys := g.Systems[id]
			if sys == nil {
				continue
			}
			label := sys.Name
			if _, hostile := sys.EnemyPresent(playerID); hostile {
				label += " (hostile)"
			}
			choices = append(choices, Choice{Value: id, Label: label})
		}
		return &Choices{Choices: choices}

	case "ships":
		fromID, _ := j.StringValue("from")
		from := g.Systems[fromID]
		if from == nil {
			return &Choices{Message: "Select from first"}
		}
		n := from.Ships[playerID]
		choices := make([]Choice, 0, n)
		for i := 1; i <= n; i++ {
			choices = append(choices, Choice{
				Value: fmt.Sprintf("%d", i),
				Label: fmt.Sprintf("%d ships", i),
			})
		}
		return &Choices{Choices: choices}
	}
	return &Choices{}
}

// FinalizeInfo warns when the destination is occupied by an enemy fleet, in
// which case the jump requires an explicit confirm.
func (j *Jump) FinalizeInfo(g *state.Game, playerID string) *Finalize {
	fin := &Finalize{Mode: FinalizeAuto, Label: "Jump"}
	if !j.AllParamsComplete() {
		return fin
	}
	toID, _ := j.StringValue("to")
	if to := g.Systems[toID]; to != nil {
		if _, hostile := to.EnemyPresent(playerID); hostile {
			fin.Mode = FinalizeConfirm
			fin.Label = "Jump (Combat!)"
			fin.Warnings = append(fin.Warnings, "Destination is occupied by an enemy fleet")
		}
	}
	return fin
}

func (j *Jump) Execute(rec *state.Recorder, playerID string) *Response {
	if resp := j.RequireComplete(); resp != nil {
		return resp
	}
	g := rec.Game()

	fromID, _ := j.StringValue("from")
	toID, _ := j.StringValue("to")
	ships, ok := j.IntValue("ships")
	if !ok || ships < 1 {
		return Fail(ErrInvalidTarget, "ships must be a positive number")
	}

	from := g.Systems[fromID]
	to := g.Systems[toID]
	if from == nil || to == nil {
		return Fail(ErrInvalidTarget, "unknown system")
	}
	adjacent := false
	for _, id := range from.Adjacent {
		if id == toID {
			adjacent = true
			break
		}
	}
	if !adjacent {
		return Fail(ErrInvalidTarget, fmt.Sprintf("%s is not adjacent to %s", to.Name, from.Name))
	}
	if from.Ships[playerID] < ships {
		return Fail(ErrInvalidTarget,
			fmt.Sprintf("only %d ships available in %s", from.Ships[playerID], from.Name))
	}

	if err := rec.Set("systems/"+fromID+"/ships/"+playerID, from.Ships[playerID]-ships); err != nil {
		return Fail(ErrInternal, err.Error())
	}
	if err := rec.Set("systems/"+toID+"/ships/"+playerID, to.Ships[playerID]+ships); err != nil {
		return Fail(ErrInternal, err.Error())
	}

	if enemy, hostile := to.EnemyPresent(playerID); hostile {
		combat := &state.Combat{
			SystemID:   toID,
			FromSystem: fromID,
			Attacker:   playerID,
			Defender:   enemy,
			Round:      1,
			Stage:      state.CombatStageOrders,
		}
		if err := rec.Set("combat", combat); err != nil {
			return Fail(ErrInternal, err.Error())
		}
		resp := OK(fmt.Sprintf("Jumped into %s; combat engaged", to.Name))
		return resp.LockedIn()
	}

	return OK(fmt.Sprintf("Jumped %d ships to %s", ships, to.Name))
}
