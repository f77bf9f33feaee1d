package action

import (
	"fmt"

	"github.com/starward-games/helios-server/internal/state"
)

// TypeColonize claims an unowned system adjacent to the player's territory.
const TypeColonize = "colonize"

// ColonizeCost is the mineral price of claiming a system.
const ColonizeCost = 2

type Colonize struct {
	Base
}

func NewColonize() Action {
	return &Colonize{Base: Base{
		ActionType: TypeColonize,
		CanUndo:    true,
		ParamList: []*Param{
			{Name: "system", Kind: KindSpace},
		},
	}}
}

// colonizeTargets enumerates unowned systems adjacent to anything the
// player owns or occupies.
func colonizeTargets(g *state.Game, playerID string) []string {
	frontier := map[string]bool{}
	sources := append(g.OwnedSystems(playerID), g.SystemsWithShips(playerID)...)
	for _, srcID := range sources {
		src := g.Systems[srcID]
		if src == nil {
			continue
		}
		for _, adjID := range src.Adjacent {
			adj := g.Systems[adjID]
			if adj != nil && adj.Owner == "" {
				frontier[adjID] = true
			}
		}
	}
	out := make([]string, 0, len(frontier))
	for id := range frontier {
		out = append(out, id)
	}
	state.SortIDs(out)
	return out
}

func (c *Colonize) ParamChoices(g *state.Game, playerID, param string) *Choices {
	if gate := c.Gate(param); gate != nil {
		return gate
	}
	if param != "system" {
		return &Choices{}
	}
	targets := colonizeTargets(g, playerID)
	if len(targets) == 0 {
		return &Choices{Message: "No colonizable systems in reach"}
	}
	choices := make([]Choice, 0, len(targets))
	for _, id := range targets {
		sys := g.Systems[id]
		choices = append(choices, Choice{
			Value: id,
			Label: fmt.Sprintf("%s (yield %d)", sys.Name, sys.Yield),
		})
	}
	return &Choices{Choices: choices}
}

func (c *Colonize) FinalizeInfo(g *state.Game, playerID string) *Finalize {
	fin := &Finalize{Mode: FinalizeAuto, Label: "Colonize"}
	if p := g.PlayerByID(playerID); p != nil && p.Minerals < ColonizeCost {
		fin.Warnings = append(fin.Warnings,
			fmt.Sprintf("Colonizing costs %d minerals; you have %d", ColonizeCost, p.Minerals))
	}
	return fin
}

func (c *Colonize) Execute(rec *state.Recorder, playerID string) *Response {
	if resp := c.RequireComplete(); resp != nil {
		return resp
	}
	g := rec.Game()
	target, _ := c.StringValue("system")

	legal := false
	for _, id := range colonizeTargets(g, playerID) {
		if id == target {
			legal = true
			break
		}
	}
	if !legal {
		return Fail(ErrInvalidTarget, fmt.Sprintf("system %q cannot be colonized", target))
	}

	p := g.PlayerByID(playerID)
	if p == nil {
		return Fail(ErrInvalidTarget, "unknown player")
	}
	if p.Minerals < ColonizeCost {
		return Fail(ErrInsufficientResources,
			fmt.Sprintf("colonizing costs %d minerals, have %d", ColonizeCost, p.Minerals))
	}

	if err := rec.SetOwned("players/"+playerID+"/minerals", p.Minerals-ColonizeCost, playerID); err != nil {
		return Fail(ErrInternal, err.Error())
	}
	if err := rec.Set("systems/"+target+"/owner", playerID); err != nil {
		return Fail(ErrInternal, err.Error())
	}

	return OK(fmt.Sprintf("Colonized %s", g.Systems[target].Name))
}
