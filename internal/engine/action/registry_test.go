package action

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromPayloadMergesParamValues(t *testing.T) {
	act, expected, err := FromPayload(map[string]any{
		"type":            TypeJump,
		"from":            "sys-1",
		"to":              "sys-2",
		"ships":           float64(2),
		"expectedVersion": float64(7),
		"bogus":           "ignored",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(7), expected)

	j, ok := act.(*Jump)
	require.True(t, ok)
	from, _ := j.StringValue("from")
	assert.Equal(t, "sys-1", from)
	ships, ok := j.IntValue("ships")
	require.True(t, ok)
	assert.Equal(t, 2, ships, "JSON numbers coerce to ints")
	assert.Nil(t, j.Param("bogus"), "undeclared payload keys never become params")
}

func TestFromPayloadRejectsUnknownType(t *testing.T) {
	_, _, err := FromPayload(map[string]any{"type": "warp_drive"})
	assert.Error(t, err)

	_, _, err = FromPayload(map[string]any{"ships": 3})
	assert.Error(t, err, "a payload without a type tag is unroutable")
}

func TestFromPayloadVersionDefaultsToZero(t *testing.T) {
	_, expected, err := FromPayload(map[string]any{"type": TypePass})
	require.NoError(t, err)
	assert.Zero(t, expected)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	assert.Panics(t, func() {
		Register(TypeChat, NewChat)
	})
}

func TestRegisteredCoversTheClosedSet(t *testing.T) {
	for _, tag := range []string{
		TypeChat, TypeReady, TypeColonize, TypeJump,
		TypeProduce, TypePass, TypeCombatOrder, TypeConcede,
	} {
		assert.True(t, Registered(tag), tag)
	}
	assert.False(t, Registered("warp_drive"))
}

func TestRequireCompleteListsMissingInOrder(t *testing.T) {
	j := NewJump().(*Jump)
	resp := j.RequireComplete()
	require.NotNil(t, resp)
	assert.Equal(t, ErrMissingParam, resp.Error)
	assert.Equal(t, "missing parameters: [from to ships]", resp.Message)

	j.Param("from").Value = "sys-1"
	resp = j.RequireComplete()
	require.NotNil(t, resp)
	assert.Equal(t, "missing parameters: [to ships]", resp.Message)
}

func TestGateBlocksDependentParams(t *testing.T) {
	j := NewJump().(*Jump)

	gate := j.Gate("to")
	require.NotNil(t, gate)
	assert.Equal(t, "Select from first", gate.Message)

	j.Param("from").Value = "sys-1"
	assert.Nil(t, j.Gate("to"), "a filled dependency opens the gate")
	assert.Nil(t, j.Gate("from"), "independent params are never gated")
}
