package action

import (
	"github.com/starward-games/helios-server/internal/state"
)

// TypeChat is the phase-independent chat action. Chat is a deliberate fast
// path: the handler applies it without phase, turn, or version gating
// because it carries no game-state mutation.
const TypeChat = "chat"

// Chat carries a single free-text message.
type Chat struct {
	Base
}

// NewChat constructs a default chat action.
func NewChat() Action {
	return &Chat{Base: Base{
		ActionType: TypeChat,
		CanUndo:    false,
		ParamList: []*Param{
			{Name: "message", Kind: KindText},
		},
	}}
}

// Message returns the chat text.
func (c *Chat) Message() string {
	msg, _ := c.StringValue("message")
	return msg
}

func (c *Chat) ParamChoices(_ *state.Game, _ string, param string) *Choices {
	if gate := c.Gate(param); gate != nil {
		return gate
	}
	// Free text, nothing to enumerate.
	return &Choices{}
}

// Execute is a no-op on game state; chat never produces state changes.
func (c *Chat) Execute(_ *state.Recorder, _ string) *Response {
	if resp := c.RequireComplete(); resp != nil {
		return resp
	}
	return OK("")
}
