package action

import (
	"github.com/starward-games/helios-server/internal/state"
)

// TypePass ends the player's participation in the current rotation. Passing
// is never undoable: it locks in everything the player did before it and
// may hand the turn to someone else.
const TypePass = "pass"

type Pass struct {
	Base
}

func NewPass() Action {
	return &Pass{Base: Base{ActionType: TypePass, CanUndo: false}}
}

func (p *Pass) ParamChoices(_ *state.Game, _ string, _ string) *Choices {
	return &Choices{}
}

func (p *Pass) Execute(rec *state.Recorder, playerID string) *Response {
	if rec.Game().Passed[playerID] {
		return Fail(ErrInvalidTarget, "already passed")
	}
	if err := rec.Set("passed/"+playerID, true); err != nil {
		return Fail(ErrInternal, err.Error())
	}
	return OK("Passed")
}
