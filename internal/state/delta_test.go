package state

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testGame() *Game {
	return &Game{
		ID:           "g1",
		CurrentPhase: PhaseOutreach,
		Round:        1,
		TurnOrder:    []string{"p1", "p2"},
		ActivePlayer: "p1",
		Players: map[string]*Player{
			"p1": {ID: "p1", Name: "Ada", Minerals: 5},
			"p2": {ID: "p2", Name: "Grace", Minerals: 5},
		},
		Systems: map[string]*System{
			"sys-1": {ID: "sys-1", Name: "Kessel", Adjacent: []string{"sys-2"}, Owner: "p1", Yield: 2, Ships: map[string]int{"p1": 3}},
			"sys-2": {ID: "sys-2", Name: "Miral", Adjacent: []string{"sys-1"}, Yield: 1},
		},
	}
}

func TestRecorderAppliesAndRecords(t *testing.T) {
	g := testGame()
	rec := NewRecorder(g)

	require.NoError(t, rec.SetOwned("players/p1/minerals", 3, "p1"))
	require.NoError(t, rec.Set("systems/sys-2/owner", "p1"))
	require.NoError(t, rec.Set("passed/p2", true))

	assert.Equal(t, 3, g.Players["p1"].Minerals)
	assert.Equal(t, "p1", g.Systems["sys-2"].Owner)
	assert.True(t, g.Passed["p2"])

	deltas := rec.Deltas()
	require.Len(t, deltas, 3)
	assert.Equal(t, Delta{Path: "players/p1/minerals", Old: 5, New: 3, Visibility: VisOwner, Owner: "p1"}, deltas[0])
	assert.Equal(t, Delta{Path: "systems/sys-2/owner", Old: "", New: "p1", Visibility: VisPublic}, deltas[1])
	assert.Equal(t, Delta{Path: "passed/p2", Old: false, New: true, Visibility: VisPublic}, deltas[2])
}

func TestRecorderRejectsUnknownTargets(t *testing.T) {
	g := testGame()
	rec := NewRecorder(g)

	assert.Error(t, rec.Set("players/ghost/minerals", 1))
	assert.Error(t, rec.Set("systems/sys-9/owner", "p1"))
	assert.Error(t, rec.Set("no/such/path", 1))
	assert.Empty(t, rec.Deltas(), "a failed set records nothing")
}

func TestApplyInverseRestoresOriginalState(t *testing.T) {
	g := testGame()
	rec := NewRecorder(g)

	// Two writes to the same path; the inverse must unwind in reverse order.
	require.NoError(t, rec.Set("systems/sys-1/ships/p1", 1))
	require.NoError(t, rec.Set("systems/sys-1/ships/p1", 7))
	require.NoError(t, rec.Set("activePlayer", "p2"))
	require.NoError(t, rec.Set("currentPhase", string(PhaseExpansion)))

	require.NoError(t, ApplyInverse(g, rec.Deltas()))

	assert.Equal(t, 3, g.Systems["sys-1"].Ships["p1"])
	assert.Equal(t, "p1", g.ActivePlayer)
	assert.Equal(t, PhaseOutreach, g.CurrentPhase)
}

func TestApplyInverseAfterJSONRoundTrip(t *testing.T) {
	g := testGame()
	rec := NewRecorder(g)
	require.NoError(t, rec.Set("players/p2/minerals", 9))
	require.NoError(t, rec.Set("round", 2))
	require.NoError(t, rec.Set("passed/p1", true))

	// History entries reload from storage with JSON types: numbers arrive as
	// float64 and must still apply.
	raw, err := json.Marshal(rec.Deltas())
	require.NoError(t, err)
	var reloaded []Delta
	require.NoError(t, json.Unmarshal(raw, &reloaded))

	require.NoError(t, ApplyInverse(g, reloaded))
	assert.Equal(t, 5, g.Players["p2"].Minerals)
	assert.Equal(t, 1, g.Round)
	assert.False(t, g.Passed["p1"])
}

func TestApplyZeroShipsDeletesKey(t *testing.T) {
	g := testGame()
	require.NoError(t, g.Apply("systems/sys-1/ships/p1", 0))
	_, present := g.Systems["sys-1"].Ships["p1"]
	assert.False(t, present, "empty fleets leave no zero entries behind")
}

func TestCombatPaths(t *testing.T) {
	g := testGame()
	rec := NewRecorder(g)

	combat := &Combat{
		SystemID: "sys-2", FromSystem: "sys-1",
		Attacker: "p1", Defender: "p2",
		Round: 1, Stage: CombatStageOrders,
	}
	require.NoError(t, rec.Set("combat", combat))
	require.NoError(t, rec.SetHidden("combat/orders/p1", string(CombatFire)))
	require.Equal(t, CombatFire, g.Combat.Orders["p1"])

	// Clearing orders between rounds and tearing the combat down both go
	// through the same paths.
	require.NoError(t, rec.Set("combat/round", 2))
	require.NoError(t, rec.Set("combat/orders", nil))
	assert.Empty(t, g.Combat.Orders)
	assert.Equal(t, 2, g.Combat.Round)

	require.NoError(t, rec.Set("combat", nil))
	assert.Nil(t, g.Combat)

	// The recorded Old values let the whole sequence unwind.
	require.NoError(t, ApplyInverse(g, rec.Deltas()))
	assert.Nil(t, g.Combat)
}

func TestPendingPathsArePerPlayer(t *testing.T) {
	g := testGame()
	g.Pending = map[string][]PendingProduction{
		"p2": {{Player: "p2", SystemID: "sys-2", Ships: 1, Cost: 2}},
	}
	rec := NewRecorder(g)

	order := []PendingProduction{{Player: "p1", SystemID: "sys-1", Ships: 2, Cost: 4}}
	require.NoError(t, rec.SetOwned("pending/p1", order, "p1"))
	require.Len(t, g.Pending["p1"], 1)

	// Unwinding p1's queue write must not touch p2's queue.
	require.NoError(t, ApplyInverse(g, rec.Deltas()))
	_, present := g.Pending["p1"]
	assert.False(t, present, "an emptied queue leaves no key behind")
	require.Len(t, g.Pending["p2"], 1)
	assert.Equal(t, "sys-2", g.Pending["p2"][0].SystemID)

	require.NoError(t, g.Apply("pending/p2", nil))
	assert.Empty(t, g.Pending)
}

func TestLookupReturnsDetachedCopies(t *testing.T) {
	g := testGame()
	g.Combat = &Combat{SystemID: "sys-2", Attacker: "p1", Defender: "p2", Round: 1, Stage: CombatStageOrders}

	v, err := g.Lookup("combat")
	require.NoError(t, err)
	cp, ok := v.(*Combat)
	require.True(t, ok)
	cp.Round = 99
	assert.Equal(t, 1, g.Combat.Round, "a Lookup result must not alias the document")
}
