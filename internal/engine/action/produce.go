package action

import (
	"fmt"

	"github.com/starward-games/helios-server/internal/state"
)

// TypeProduce queues ship production at an owned system during the empire
// phase. Orders are typed pending effects; ships materialize in one
// consequences step after every player has passed.
const TypeProduce = "produce"

// ShipCost is the mineral price of one ship.
const ShipCost = 2

type Produce struct {
	Base
}

func NewProduce() Action {
	return &Produce{Base: Base{
		ActionType: TypeProduce,
		CanUndo:    true,
		ParamList: []*Param{
			{Name: "system", Kind: KindSpace},
			{Name: "ships", Kind: KindNumber, DependsOn: "system"},
		},
	}}
}

// pendingSpend totals what the player has already committed this phase.
func pendingSpend(g *state.Game, playerID string) int {
	total := 0
	for _, ord := range g.Pending[playerID] {
		total += ord.Cost
	}
	return total
}

func (pr *Produce) ParamChoices(g *state.Game, playerID, param string) *Choices {
	if gate := pr.Gate(param); gate != nil {
		return gate
	}

	switch param {
	case "system":
		owned := g.OwnedSystems(playerID)
		if len(owned) == 0 {
			return &Choices{Message: "No systems to produce at"}
		}
		choices := make([]Choice, 0, len(owned))
		for _, id := range owned {
			choices = append(choices, Choice{Value: id, Label: g.Systems[id].Name})
		}
		return &Choices{Choices: choices}

	case "ships":
		p := g.PlayerByID(playerID)
		if p == nil {
			return &Choices{}
		}
		budget := (p.Minerals - pendingSpend(g, playerID)) / ShipCost
		if budget < 1 {
			return &Choices{Message: "Not enough minerals for a ship"}
		}
		choices := make([]Choice, 0, budget)
		for i := 1; i <= budget; i++ {
			choices = append(choices, Choice{
				Value: fmt.Sprintf("%d", i),
				Label: fmt.Sprintf("%d ships (%d minerals)", i, i*ShipCost),
			})
		}
		return &Choices{Choices: choices}
	}
	return &Choices{}
}

func (pr *Produce) FinalizeInfo(g *state.Game, playerID string) *Finalize {
	fin := &Finalize{Mode: FinalizeAuto, Label: "Produce"}
	if ships, ok := pr.IntValue("ships"); ok {
		fin.Label = fmt.Sprintf("Produce %d ships (%d minerals)", ships, ships*ShipCost)
	}
	return fin
}

func (pr *Produce) Execute(rec *state.Recorder, playerID string) *Response {
	if resp := pr.RequireComplete(); resp != nil {
		return resp
	}
	g := rec.Game()

	systemID, _ := pr.StringValue("system")
	ships, ok := pr.IntValue("ships")
	if !ok || ships < 1 {
		return Fail(ErrInvalidTarget, "ships must be a positive number")
	}

	sys := g.Systems[systemID]
	if sys == nil || sys.Owner != playerID {
		return Fail(ErrInvalidTarget, fmt.Sprintf("you do not own system %q", systemID))
	}

	p := g.PlayerByID(playerID)
	cost := ships * ShipCost
	available := p.Minerals - pendingSpend(g, playerID)
	if cost > available {
		return Fail(ErrInsufficientResources,
			fmt.Sprintf("%d ships cost %d minerals, %d available", ships, cost, available))
	}

	// The delta covers only this player's queue; other players' orders
	// never appear in it.
	queue := append(append([]state.PendingProduction(nil), g.Pending[playerID]...), state.PendingProduction{
		Player:   playerID,
		SystemID: systemID,
		Ships:    ships,
		Cost:     cost,
	})
	if err := rec.SetOwned("pending/"+playerID, queue, playerID); err != nil {
		return Fail(ErrInternal, err.Error())
	}

	return OK(fmt.Sprintf("Queued %d ships at %s", ships, sys.Name))
}
