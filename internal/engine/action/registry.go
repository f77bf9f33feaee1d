package action

import (
	"fmt"
)

// registry maps a wire-level type tag to a constructor for a fresh default
// instance. Registration is a one-time, process-wide, init-time operation.
var registry = map[string]func() Action{}

// Register binds a type tag to a constructor. It panics on a duplicate tag:
// a double registration is a build mistake, not a runtime condition.
func Register(typeTag string, ctor func() Action) {
	if _, dup := registry[typeTag]; dup {
		panic(fmt.Sprintf("action type %q registered twice", typeTag))
	}
	registry[typeTag] = ctor
}

// Registered reports whether a type tag has a constructor.
func Registered(typeTag string) bool {
	_, ok := registry[typeTag]
	return ok
}

// New constructs a fresh default instance of a registered action type.
func New(typeTag string) (Action, error) {
	ctor, ok := registry[typeTag]
	if !ok {
		return nil, fmt.Errorf("%s: %q", ErrUnknownType, typeTag)
	}
	return ctor(), nil
}

// FromPayload rehydrates an action from an untyped wire payload of the form
// {type, expectedVersion?, [paramName]: value, ...}. The merge is
// deliberately shallow: the registered instance keeps its declared param
// and finalize shape, and user-supplied values are layered onto the
// matching params by name. Returns the action and the expectedVersion
// carried by the payload (zero when absent).
func FromPayload(payload map[string]any) (Action, int64, error) {
	typeTag, _ := payload["type"].(string)
	if typeTag == "" {
		return nil, 0, fmt.Errorf("%s: payload has no type", ErrUnknownType)
	}

	act, err := New(typeTag)
	if err != nil {
		return nil, 0, err
	}

	for _, p := range act.Params() {
		if v, ok := payload[p.Name]; ok {
			p.Value = v
		}
	}

	var expected int64
	switch v := payload["expectedVersion"].(type) {
	case float64:
		expected = int64(v)
	case int:
		expected = int64(v)
	case int64:
		expected = v
	}

	return act, expected, nil
}
