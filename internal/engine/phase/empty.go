package phase

import (
	"github.com/starward-games/helios-server/internal/engine/action"
	"github.com/starward-games/helios-server/internal/state"
)

// empty is the fail-soft phase used when currentPhase holds a name this
// build does not recognize (corrupt or legacy document). The game stays
// readable; nothing is legal until the document is repaired.
type empty struct {
	base
}

func newEmpty(name state.PhaseName) Phase {
	return &empty{base{name}}
}

func (p *empty) LegalActions(ctx *Context, _ string) *action.LegalActions {
	return &action.LegalActions{
		Actions: []*action.Descriptor{},
		Message: "This game is in an unrecognized phase",
	}
}

func (p *empty) IsItMyTurn(*Context, string) bool { return false }

func (p *empty) ValidateAction(_ *Context, _ string, act action.Action) *action.Response {
	return action.Fail(action.ErrNotInPhase,
		"phase "+string(p.name)+" accepts no actions")
}
