package pipeline

import (
	"strings"
	"testing"

	"prrgen/internal/types"
)

func lineGraph() *types.ArchitectureGraph {
	return &types.ArchitectureGraph{
		Components: []types.Component{
			{Name: "Web", Kind: types.KindUI},
			{Name: "Gateway", Kind: types.KindAPI},
			{Name: "Orders", Kind: types.KindService},
			{Name: "OrdersDB", Kind: types.KindDatabase},
		},
		Dependencies: []types.Edge{
			{Source: "Web", Target: "Gateway"},
			{Source: "Gateway", Target: "Orders"},
			{Source: "Orders", Target: "OrdersDB"},
		},
	}
}

func diamondGraph() *types.ArchitectureGraph {
	return &types.ArchitectureGraph{
		Components: []types.Component{
			{Name: "Web", Kind: types.KindUI},
			{Name: "GatewayA", Kind: types.KindAPI},
			{Name: "GatewayB", Kind: types.KindAPI},
			{Name: "DB", Kind: types.KindDatabase},
		},
		Dependencies: []types.Edge{
			{Source: "Web", Target: "GatewayA"},
			{Source: "Web", Target: "GatewayB"},
			{Source: "GatewayA", Target: "DB"},
			{Source: "GatewayB", Target: "DB"},
		},
	}
}

func TestArticulationPointsLine(t *testing.T) {
	got := ArticulationPoints(lineGraph())
	want := []string{"Gateway", "Orders"}
	if strings.Join(got, ",") != strings.Join(want, ",") {
		t.Fatalf("articulation points = %v, want %v", got, want)
	}
}

func TestArticulationPointsRedundantPaths(t *testing.T) {
	if got := ArticulationPoints(diamondGraph()); len(got) != 0 {
		t.Fatalf("redundant topology should have no articulation points, got %v", got)
	}
}

func TestArticulationPointsEmpty(t *testing.T) {
	if got := ArticulationPoints(&types.ArchitectureGraph{}); got != nil {
		t.Fatalf("empty graph should have no articulation points, got %v", got)
	}
}

func TestCriticalPathsLine(t *testing.T) {
	paths := CriticalPaths(lineGraph())
	if len(paths) != 1 {
		t.Fatalf("want 1 path, got %d", len(paths))
	}
	want := "Web>Gateway>Orders>OrdersDB"
	if got := strings.Join(paths[0], ">"); got != want {
		t.Fatalf("path = %s, want %s", got, want)
	}
}

func TestCriticalPathsDiamond(t *testing.T) {
	paths := CriticalPaths(diamondGraph())
	if len(paths) != 2 {
		t.Fatalf("want 2 paths, got %d: %v", len(paths), paths)
	}
}

func TestCriticalPathsIgnoresCycles(t *testing.T) {
	g := lineGraph()
	g.Dependencies = append(g.Dependencies, types.Edge{Source: "Orders", Target: "Gateway"})
	paths := CriticalPaths(g)
	if len(paths) != 1 {
		t.Fatalf("cycle must not change path count, got %d", len(paths))
	}
}

func TestClassifyTierTable(t *testing.T) {
	cases := []struct {
		impact types.BusinessImpact
		spofs  int
		want   types.AvailabilityTier
	}{
		{types.ImpactCritical, 0, types.Tier1},
		{types.ImpactCritical, 3, types.Tier1},
		{types.ImpactHigh, 0, types.Tier2},
		{types.ImpactHigh, 2, types.Tier2},
		{types.ImpactMedium, 1, types.Tier2},
		{types.ImpactMedium, 0, types.Tier3},
		{types.ImpactLow, 1, types.Tier3},
		{types.ImpactLow, 0, types.Tier4},
	}
	for _, c := range cases {
		tier, justification := ClassifyTier(c.impact, c.spofs, 1)
		if tier != c.want {
			t.Errorf("ClassifyTier(%s, %d) = %s, want %s", c.impact, c.spofs, tier, c.want)
		}
		if !strings.Contains(justification, tierTargets[tier]) {
			t.Errorf("justification %q missing target %s", justification, tierTargets[tier])
		}
	}
}

func TestDependentsSorted(t *testing.T) {
	deps := Dependents(diamondGraph())
	got := deps["DB"]
	if len(got) != 2 || got[0] != "GatewayA" || got[1] != "GatewayB" {
		t.Fatalf("dependents of DB = %v", got)
	}
}

func TestFanIn(t *testing.T) {
	fan := FanIn(diamondGraph())
	if fan["DB"] != 2 || fan["Web"] != 0 {
		t.Fatalf("fan-in = %v", fan)
	}
}
