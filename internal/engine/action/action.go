package action

import (
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/starward-games/helios-server/internal/state"
)

// Machine error codes surfaced to callers. Rule violations are returned as
// data, never thrown; see the handler package for the transaction-boundary
// exception path.
const (
	ErrStaleState            = "stale_state"
	ErrNotYourTurn           = "not_your_turn"
	ErrNotInPhase            = "action_not_allowed_in_phase"
	ErrMissingParam          = "missing_param"
	ErrInvalidTarget         = "invalid_target"
	ErrInsufficientResources = "insufficient_resources"
	ErrUnknownType           = "unknown_action_type"
	ErrNothingToUndo         = "nothing_to_undo"
	ErrCannotUndo            = "cannot_undo_state_changed"
	ErrGameNotFound          = "game_not_found"
	ErrInternal              = "internal_error"
)

// ParamKind is the semantic type of an action parameter, used by clients to
// pick a selection widget.
type ParamKind string

const (
	KindSpace  ParamKind = "space"  // a board system
	KindPiece  ParamKind = "piece"  // a game piece (fleet)
	KindChoice ParamKind = "choice" // one of an enumerated set
	KindNumber ParamKind = "number"
	KindText   ParamKind = "text"
)

// Param is one declared parameter of an action. Params are filled in
// declaration order; a param with DependsOn must not be resolved before its
// dependency is filled.
type Param struct {
	Name      string    `json:"name"`
	Kind      ParamKind `json:"kind"`
	Optional  bool      `json:"optional,omitempty"`
	DependsOn string    `json:"dependsOn,omitempty"`
	Value     any       `json:"value,omitempty"`
}

// Complete reports whether the param counts as filled.
func (p *Param) Complete() bool {
	return p.Optional || p.Value != nil
}

// Choice is one currently legal value for a parameter.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Choices is the result of a param-choices query. An empty set with a
// guidance message is the normal answer when a dependency is unfilled or no
// legal value exists; it is never an error.
type Choices struct {
	Choices []Choice `json:"choices"`
	Message string   `json:"message,omitempty"`
}

// FinalizeMode says whether a fully parameterized action commits itself or
// waits for an explicit confirm.
type FinalizeMode string

const (
	FinalizeAuto    FinalizeMode = "auto"
	FinalizeConfirm FinalizeMode = "confirm"
)

// Finalize is the advisory confirm-button descriptor computed once all
// params are filled. It never mutates state.
type Finalize struct {
	Mode     FinalizeMode `json:"mode"`
	Label    string       `json:"label"`
	Warnings []string     `json:"warnings,omitempty"`
}

// Response is the result of validating or executing an action.
type Response struct {
	Success      bool          `json:"success"`
	Error        string        `json:"error,omitempty"`
	Message      string        `json:"message,omitempty"`
	StateChanges []state.Delta `json:"stateChanges,omitempty"`
	// Undoable overrides the action's static default when set; a runtime
	// condition (opening combat, for example) can make an otherwise
	// undoable action final.
	Undoable *bool `json:"undoable,omitempty"`
	// ActionType echoes the originating action for logging.
	ActionType string `json:"action,omitempty"`
}

// OK builds a success response.
func OK(message string) *Response {
	return &Response{Success: true, Message: message}
}

// Fail builds a rule-rejection response with a machine code.
func Fail(code, message string) *Response {
	return &Response{Success: false, Error: code, Message: message}
}

// LockedIn marks a response as not undoable regardless of the action's
// default.
func (r *Response) LockedIn() *Response {
	f := false
	r.Undoable = &f
	return r
}

// Action is a self-contained, typed command: it declares its parameters,
// enumerates legal parameter values against live state, validates and
// executes itself through a state recorder, and describes how it finalizes.
// Instances live for a single request and are never persisted; only their
// deltas and serialized payload are.
type Action interface {
	Type() string
	Undoable() bool
	Params() []*Param

	// ParamChoices returns the legal choice set for one parameter, honoring
	// DependsOn ordering.
	ParamChoices(g *state.Game, playerID, param string) *Choices

	// FinalizeInfo computes the confirm descriptor; advisory only.
	FinalizeInfo(g *state.Game, playerID string) *Finalize

	// Execute performs the primary effect through rec. Deltas recorded on
	// rec are the canonical effect; Execute must not mutate state any other
	// way.
	Execute(rec *state.Recorder, playerID string) *Response
}

// Base carries the declarative fields shared by all actions and the param
// bookkeeping helpers.
type Base struct {
	ActionType string   `json:"type"`
	CanUndo    bool     `json:"undoable"`
	ParamList  []*Param `json:"params,omitempty"`
}

func (b *Base) Type() string     { return b.ActionType }
func (b *Base) Undoable() bool   { return b.CanUndo }
func (b *Base) Params() []*Param { return b.ParamList }

// Param returns the declared param by name, or nil.
func (b *Base) Param(name string) *Param {
	for _, p := range b.ParamList {
		if p.Name == name {
			return p
		}
	}
	return nil
}

// IsParamComplete reports whether the named param is filled or optional.
func (b *Base) IsParamComplete(name string) bool {
	p := b.Param(name)
	return p != nil && p.Complete()
}

// AllParamsComplete reports whether the action is ready to execute.
func (b *Base) AllParamsComplete() bool {
	for _, p := range b.ParamList {
		if !p.Complete() {
			return false
		}
	}
	return true
}

// Gate returns a guidance Choices result when the named param's dependency
// is unfilled, nil when resolution may proceed.
func (b *Base) Gate(name string) *Choices {
	p := b.Param(name)
	if p == nil {
		return &Choices{Message: fmt.Sprintf("unknown parameter %q", name)}
	}
	if p.DependsOn != "" && !b.IsParamComplete(p.DependsOn) {
		return &Choices{Message: fmt.Sprintf("Select %s first", p.DependsOn)}
	}
	return nil
}

// FinalizeInfo defaults to an auto finalize labeled with the action type.
func (b *Base) FinalizeInfo(_ *state.Game, _ string) *Finalize {
	return &Finalize{Mode: FinalizeAuto, Label: b.ActionType}
}

// StringValue returns the named param's value as a string.
func (b *Base) StringValue(name string) (string, bool) {
	p := b.Param(name)
	if p == nil || p.Value == nil {
		return "", false
	}
	if s, ok := p.Value.(string); ok {
		return s, true
	}
	return "", false
}

// IntValue returns the named param's value as an int, coercing JSON
// numbers and numeric strings.
func (b *Base) IntValue(name string) (int, bool) {
	p := b.Param(name)
	if p == nil || p.Value == nil {
		return 0, false
	}
	switch v := p.Value.(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	case json.Number:
		i, err := v.Int64()
		return int(i), err == nil
	case string:
		i, err := strconv.Atoi(v)
		return i, err == nil
	}
	return 0, false
}

// MissingParams lists the required params still unfilled, in declaration
// order.
func (b *Base) MissingParams() []string {
	var missing []string
	for _, p := range b.ParamList {
		if !p.Complete() {
			missing = append(missing, p.Name)
		}
	}
	return missing
}

// RequireComplete returns a missing_param failure when the action is not
// ready to execute, nil otherwise.
func (b *Base) RequireComplete() *Response {
	if missing := b.MissingParams(); len(missing) > 0 {
		return Fail(ErrMissingParam, fmt.Sprintf("missing parameters: %v", missing))
	}
	return nil
}

// Descriptor is the wire shape of one legal action offered to a player.
type Descriptor struct {
	Type     string    `json:"type"`
	Undoable bool      `json:"undoable"`
	Params   []*Param  `json:"params,omitempty"`
	Finalize *Finalize `json:"finalize,omitempty"`
}

// Describe builds the wire descriptor for an action offered to playerID.
func Describe(act Action, g *state.Game, playerID string) *Descriptor {
	return &Descriptor{
		Type:     act.Type(),
		Undoable: act.Undoable(),
		Params:   act.Params(),
		Finalize: act.FinalizeInfo(g, playerID),
	}
}

// LegalActions is the legal-actions response for one player.
type LegalActions struct {
	Actions []*Descriptor `json:"actions"`
	Message string        `json:"message,omitempty"`
	CanUndo bool          `json:"canUndo,omitempty"`
}
