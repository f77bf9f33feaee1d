package action

import (
	"github.com/starward-games/helios-server/internal/state"
)

// TypeReady marks a player ready during game_start.
const TypeReady = "ready"

type Ready struct {
	Base
}

func NewReady() Action {
	return &Ready{Base: Base{ActionType: TypeReady, CanUndo: false}}
}

func (r *Ready) ParamChoices(_ *state.Game, _ string, param string) *Choices {
	return &Choices{}
}

func (r *Ready) Execute(rec *state.Recorder, playerID string) *Response {
	g := rec.Game()
	p := g.PlayerByID(playerID)
	if p == nil {
		return Fail(ErrInvalidTarget, "unknown player")
	}
	if p.Ready {
		return Fail(ErrInvalidTarget, "already ready")
	}
	if err := rec.Set("players/"+playerID+"/ready", true); err != nil {
		return Fail(ErrInternal, err.Error())
	}
	return OK("Ready")
}
