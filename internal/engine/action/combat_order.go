package action

import (
	"fmt"

	"github.com/starward-games/helios-server/internal/state"
)

// TypeCombatOrder submits a party's order for the current combat round.
// Orders are hidden until every party has submitted; the round then
// resolves simultaneously.
const TypeCombatOrder = "combat_order"

type CombatOrder struct {
	Base
}

func NewCombatOrder() Action {
	return &CombatOrder{Base: Base{
		ActionType: TypeCombatOrder,
		CanUndo:    false,
		ParamList: []*Param{
			{Name: "order", Kind: KindChoice},
		},
	}}
}

func (co *CombatOrder) ParamChoices(g *state.Game, playerID, param string) *Choices {
	if gate := co.Gate(param); gate != nil {
		return gate
	}
	if param != "order" || g.Combat == nil {
		return &Choices{}
	}
	return &Choices{Choices: []Choice{
		{Value: string(state.CombatFire), Label: "Fire"},
		{Value: string(state.CombatWithdraw), Label: "Withdraw"},
	}}
}

func (co *CombatOrder) FinalizeInfo(g *state.Game, _ string) *Finalize {
	fin := &Finalize{Mode: FinalizeConfirm, Label: "Combat order"}
	if order, ok := co.StringValue("order"); ok {
		fin.Label = fmt.Sprintf("Combat: %s", order)
	}
	return fin
}

func (co *CombatOrder) Execute(rec *state.Recorder, playerID string) *Response {
	if resp := co.RequireComplete(); resp != nil {
		return resp
	}
	g := rec.Game()
	c := g.Combat
	if c == nil || c.Stage != state.CombatStageOrders {
		return Fail(ErrNotInPhase, "no combat awaiting orders")
	}

	party := false
	for _, id := range c.Parties() {
		if id == playerID {
			party = true
			break
		}
	}
	if !party {
		return Fail(ErrInvalidTarget, "you are not a party to this combat")
	}
	if _, already := c.Orders[playerID]; already {
		return Fail(ErrInvalidTarget, "order already submitted this round")
	}

	order, _ := co.StringValue("order")
	switch state.CombatChoice(order) {
	case state.CombatFire, state.CombatWithdraw:
	default:
		return Fail(ErrInvalidTarget, fmt.Sprintf("unknown combat order %q", order))
	}

	// Hidden until the round resolves; simultaneous orders must not leak.
	if err := rec.SetHidden("combat/orders/"+playerID, order); err != nil {
		return Fail(ErrInternal, err.Error())
	}
	return OK("Order received")
}
