package pipeline

import (
	"fmt"
	"sort"
	"strings"

	t "prrgen/internal/types"
)

// maxCriticalPaths bounds path enumeration; beyond this the extra paths add
// noise, not signal.
const maxCriticalPaths = 16

// ArticulationPoints returns component names whose removal disconnects the
// dependency graph, treated as undirected for connectivity. Names are
// returned in the graph's component order.
func ArticulationPoints(g *t.ArchitectureGraph) []string {
	n := len(g.Components)
	if n == 0 {
		return nil
	}
	idx := make(map[string]int, n)
	for i, c := range g.Components {
		idx[c.Name] = i
	}
	adj := make([][]int, n)
	addEdge := func(a, b int) {
		adj[a] = append(adj[a], b)
		adj[b] = append(adj[b], a)
	}
	for _, e := range g.Dependencies {
		s, okS := idx[e.Source]
		d, okD := idx[e.Target]
		if !okS || !okD || s == d {
			continue
		}
		addEdge(s, d)
	}

	disc := make([]int, n)
	low := make([]int, n)
	parent := make([]int, n)
	isCut := make([]bool, n)
	for i := range parent {
		parent[i] = -1
		disc[i] = -1
	}
	timer := 0

	var dfs func(u int)
	dfs = func(u int) {
		timer++
		disc[u] = timer
		low[u] = timer
		children := 0
		for _, v := range adj[u] {
			if disc[v] == -1 {
				parent[v] = u
				children++
				dfs(v)
				if low[v] < low[u] {
					low[u] = low[v]
				}
				if parent[u] != -1 && low[v] >= disc[u] {
					isCut[u] = true
				}
			} else if v != parent[u] && disc[v] < low[u] {
				low[u] = disc[v]
			}
		}
		if parent[u] == -1 && children > 1 {
			isCut[u] = true
		}
	}
	for i := 0; i < n; i++ {
		if disc[i] == -1 && len(adj[i]) > 0 {
			dfs(i)
		}
	}

	var out []string
	for i, c := range g.Components {
		if isCut[i] {
			out = append(out, c.Name)
		}
	}
	return out
}

// CriticalPaths enumerates simple directed walks from every ui component to
// every database component. Path length is bounded by the component count and
// the total is capped at maxCriticalPaths.
func CriticalPaths(g *t.ArchitectureGraph) [][]string {
	next := make(map[string][]string)
	for _, e := range g.Dependencies {
		next[e.Source] = append(next[e.Source], e.Target)
	}
	isDB := make(map[string]bool)
	var uis []string
	for _, c := range g.Components {
		switch c.Kind {
		case t.KindUI:
			uis = append(uis, c.Name)
		case t.KindDatabase:
			isDB[c.Name] = true
		}
	}

	var paths [][]string
	maxLen := len(g.Components)
	var walk func(node string, trail []string, onTrail map[string]bool)
	walk = func(node string, trail []string, onTrail map[string]bool) {
		if len(paths) >= maxCriticalPaths || len(trail) > maxLen {
			return
		}
		if isDB[node] {
			paths = append(paths, append([]string(nil), trail...))
			return
		}
		for _, nb := range next[node] {
			if onTrail[nb] {
				continue
			}
			onTrail[nb] = true
			walk(nb, append(trail, nb), onTrail)
			delete(onTrail, nb)
		}
	}
	for _, u := range uis {
		walk(u, []string{u}, map[string]bool{u: true})
	}
	return paths
}

// FanIn counts incoming dependency edges per component.
func FanIn(g *t.ArchitectureGraph) map[string]int {
	in := make(map[string]int, len(g.Components))
	for _, c := range g.Components {
		in[c.Name] = 0
	}
	for _, e := range g.Dependencies {
		if _, ok := in[e.Target]; ok {
			in[e.Target]++
		}
	}
	return in
}

// Dependents returns the direct dependents (reverse edges) of each component.
func Dependents(g *t.ArchitectureGraph) map[string][]string {
	rev := make(map[string][]string)
	for _, e := range g.Dependencies {
		rev[e.Target] = append(rev[e.Target], e.Source)
	}
	for k := range rev {
		sort.Strings(rev[k])
	}
	return rev
}

var tierTargets = map[t.AvailabilityTier]string{
	t.Tier1: "99.99%",
	t.Tier2: "99.9%",
	t.Tier3: "99.5%",
	t.Tier4: "99%",
}

// ClassifyTier maps (businessImpact, SPOF count, critical path count) to an
// availability tier. The table is deliberately explicit: tier assignment must
// be reproducible, so no model output participates here.
//
//	critical            -> tier1
//	high                -> tier2
//	medium, SPOFs > 0   -> tier2
//	medium, no SPOFs    -> tier3
//	low, SPOFs > 0      -> tier3
//	low, no SPOFs       -> tier4
func ClassifyTier(impact t.BusinessImpact, spofCount, pathCount int) (t.AvailabilityTier, string) {
	var tier t.AvailabilityTier
	switch impact {
	case t.ImpactCritical:
		tier = t.Tier1
	case t.ImpactHigh:
		tier = t.Tier2
	case t.ImpactMedium:
		if spofCount > 0 {
			tier = t.Tier2
		} else {
			tier = t.Tier3
		}
	default:
		if spofCount > 0 {
			tier = t.Tier3
		} else {
			tier = t.Tier4
		}
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Business impact is %s", impact)
	if spofCount > 0 {
		fmt.Fprintf(&b, " and the architecture has %d single point(s) of failure", spofCount)
	} else {
		b.WriteString(" and no single point of failure was identified")
	}
	fmt.Fprintf(&b, " across %d critical path(s). Recommended availability target: %s.", pathCount, tierTargets[tier])
	return tier, b.String()
}
