package action

import (
	"github.com/starward-games/helios-server/internal/state"
)

// TypeConcede removes the acting player from the game.
const TypeConcede = "concede"

type Concede struct {
	Base
}

func NewConcede() Action {
	return &Concede{Base: Base{ActionType: TypeConcede, CanUndo: false}}
}

func (c *Concede) ParamChoices(_ *state.Game, _ string, _ string) *Choices {
	return &Choices{}
}

func (c *Concede) FinalizeInfo(_ *state.Game, _ string) *Finalize {
	return &Finalize{
		Mode:     FinalizeConfirm,
		Label:    "Concede",
		Warnings: []string{"Conceding is permanent"},
	}
}

func (c *Concede) Execute(rec *state.Recorder, playerID string) *Response {
	g := rec.Game()
	p := g.PlayerByID(playerID)
	if p == nil || p.Eliminated {
		return Fail(ErrInvalidTarget, "player is not in the game")
	}
	if err := rec.Set("players/"+playerID+"/eliminated", true); err != nil {
		return Fail(ErrInternal, err.Error())
	}
	return OK("Conceded")
}
