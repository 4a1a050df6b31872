package pipeline

import (
	"context"
	"fmt"
	"log"
	"sort"
	"strings"

	"prrgen/internal/llm"
	"prrgen/internal/schema"
	t "prrgen/internal/types"
	"prrgen/internal/util/jsonutil"
)

// maxRisks caps how many dependency risks (and therefore experiments) the
// plan surfaces. Ranking order decides what survives the cut.
const maxRisks = 5

// Planner is stage 2: ArchitectureGraph in, ChaosTestPlan out. Risk ranking,
// steady states, experiments, and blast radius are derived from the graph;
// the model only contributes hypotheses and the speculative halves of the
// Rumsfeld matrix.
type Planner struct {
	LLM llm.LLMClient
	Log *log.Logger
}

func (p *Planner) logf(format string, args ...any) {
	if p.Log != nil {
		p.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Plan accepts degraded graphs: planning proceeds on whatever graph exists
// and the plan inherits the degraded flag. An empty graph yields an empty
// but well-formed plan.
func (p *Planner) Plan(ctx context.Context, g *t.ArchitectureGraph) (*t.ChaosTestPlan, t.StageStatus, error) {
	if g == nil || len(g.Components) == 0 {
		p.logf("plan: empty graph, planning is meaningless")
		return emptyPlan(), t.StageDegraded, nil
	}

	ranked := rankComponents(g)
	risks := deriveRisks(g, ranked)
	experiments := deriveExperiments(g, risks)

	plan := &t.ChaosTestPlan{
		DependencyRisks: risks,
		SteadyStates:    deriveSteadyStates(g),
		Experiments:     experiments,
		BlastRadius:     deriveBlastRadius(g, experiments),
		Rumsfeld: t.RumsfeldMatrix{
			KnownKnowns: knownKnowns(risks),
		},
		Degraded: g.Degraded,
	}

	status := t.StageSucceeded
	if plan.Degraded {
		status = t.StageDegraded
	}

	ctx = llm.WithStage(ctx, t.StagePlan)
	spec, ok := p.inferSpeculative(ctx, g)
	if !ok {
		spec = fallbackSpeculative(g)
		plan.Degraded = true
		status = t.StageDegraded
	}
	plan.Hypotheses = spec.Hypotheses
	plan.Rumsfeld.KnownUnknowns = spec.KnownUnknowns
	plan.Rumsfeld.UnknownUnknowns = spec.UnknownUnknowns
	plan.Rumsfeld.Recommendations = spec.Recommendations

	if errs := schema.CheckPlan(plan, g); len(errs) > 0 {
		// Never silently dropped: repair what is safely repairable and record
		// the violation on the plan.
		p.logf("plan: invariant violations: %v", errs)
		repairBlastRadius(plan, g)
		plan.Violations = append(plan.Violations, errs...)
		plan.Degraded = true
		status = t.StageDegraded
	}
	return plan, status, nil
}

func emptyPlan() *t.ChaosTestPlan {
	return &t.ChaosTestPlan{
		DependencyRisks: []t.DependencyRisk{},
		SteadyStates:    []t.SteadyState{},
		Hypotheses:      []t.Hypothesis{},
		Experiments:     []t.Experiment{},
		BlastRadius:     []t.BlastRadiusEntry{},
		Rumsfeld: t.RumsfeldMatrix{
			KnownKnowns:     []string{},
			KnownUnknowns:   []string{},
			UnknownUnknowns: []string{},
			Recommendations: []string{},
		},
		Degraded: true,
	}
}

type rankedComponent struct {
	t.Component
	spof   bool
	onPath bool
	fanIn  int
}

// rankComponents orders components by (SPOF membership, critical-path
// membership, fan-in) descending. This ordering is the tie-break contract for
// which risks survive truncation; graph order breaks remaining ties so the
// ranking is deterministic.
func rankComponents(g *t.ArchitectureGraph) []rankedComponent {
	spofs := map[string]bool{}
	for _, s := range g.SinglePointsOfFailure {
		spofs[s.Name] = true
	}
	onPath := map[string]bool{}
	for _, path := range g.CriticalPaths {
		for _, n := range path {
			onPath[n] = true
		}
	}
	fan := FanIn(g)

	out := make([]rankedComponent, 0, len(g.Components))
	for _, c := range g.Components {
		out = append(out, rankedComponent{
			Component: c,
			spof:      spofs[c.Name],
			onPath:    onPath[c.Name],
			fanIn:     fan[c.Name],
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.spof != b.spof {
			return a.spof
		}
		if a.onPath != b.onPath {
			return a.onPath
		}
		return a.fanIn > b.fanIn
	})
	return out
}

func deriveRisks(g *t.ArchitectureGraph, ranked []rankedComponent) []t.DependencyRisk {
	deps := Dependents(g)
	n := len(ranked)
	if n > maxRisks {
		n = maxRisks
	}
	risks := make([]t.DependencyRisk, 0, n)
	for _, rc := range ranked[:n] {
		desc := fmt.Sprintf("%d component(s) depend on %s", rc.fanIn, rc.Name)
		if rc.spof {
			desc = fmt.Sprintf("%s is a single point of failure; %s", rc.Name, desc)
		} else if rc.onPath {
			desc = fmt.Sprintf("%s sits on a critical path; %s", rc.Name, desc)
		}
		impact := fmt.Sprintf("Failure degrades %s", rc.Name)
		if d := deps[rc.Name]; len(d) > 0 {
			impact = fmt.Sprintf("Failure cascades to %s", strings.Join(d, ", "))
		}
		risks = append(risks, t.DependencyRisk{
			Name:        rc.Name + " Dependency",
			Description: desc,
			Impact:      impact,
			Component:   rc.Name,
		})
	}
	return risks
}

// deriveSteadyStates emits one steady state per component on at least one
// critical path. Components off every critical path are not load-bearing
// enough to warrant a steady-state contract.
func deriveSteadyStates(g *t.ArchitectureGraph) []t.SteadyState {
	onPath := map[string]bool{}
	for _, path := range g.CriticalPaths {
		for _, n := range path {
			onPath[n] = true
		}
	}
	out := []t.SteadyState{}
	for _, c := range g.Components {
		if !onPath[c.Name] {
			continue
		}
		switch c.Kind {
		case t.KindDatabase:
			out = append(out, t.SteadyState{
				Name:        c.Name + " Query Performance",
				Description: fmt.Sprintf("%s queries complete within the acceptable timeframe", c.Name),
				Metric:      "p95 query time",
				Threshold:   "100ms",
			})
		case t.KindAPI, t.KindUI:
			out = append(out, t.SteadyState{
				Name:        c.Name + " Response Time",
				Description: fmt.Sprintf("%s responds to health checks within 300ms", c.Name),
				Metric:      "p95 latency",
				Threshold:   "300ms",
			})
		default:
			out = append(out, t.SteadyState{
				Name:        c.Name + " Availability",
				Description: fmt.Sprintf("%s serves requests successfully", c.Name),
				Metric:      "success rate",
				Threshold:   "99.9%",
			})
		}
	}
	return out
}

// deriveExperiments emits exactly one experiment per risk, in risk order.
// Target components are always a subset of the risk's referenced component.
func deriveExperiments(g *t.ArchitectureGraph, risks []t.DependencyRisk) []t.Experiment {
	out := make([]t.Experiment, 0, len(risks))
	for _, r := range risks {
		c, _ := g.Component(r.Component)
		var ex t.Experiment
		switch c.Kind {
		case t.KindDatabase:
			ex = t.Experiment{
				Name:           c.Name + " Termination",
				Description:    fmt.Sprintf("Terminate %s for 30 seconds", c.Name),
				ExpectedResult: "Dependent services serve cached data and reconnect automatically",
				ExecutionSpec:  litmusSpec("pod-delete", c.Name, map[string]string{"TOTAL_CHAOS_DURATION": "30", "FORCE": "true"}),
			}
		case t.KindAPI:
			ex = t.Experiment{
				Name:           c.Name + " Latency Injection",
				Description:    fmt.Sprintf("Inject 1000ms latency into %s responses", c.Name),
				ExpectedResult: "Callers show loading states and retry failed requests",
				ExecutionSpec:  litmusSpec("pod-network-latency", c.Name, map[string]string{"TOTAL_CHAOS_DURATION": "60", "NETWORK_LATENCY": "1000"}),
			}
		case t.KindUI, t.KindExternal:
			ex = t.Experiment{
				Name:           c.Name + " Network Loss",
				Description:    fmt.Sprintf("Drop all traffic between %s and the rest of the system", c.Name),
				ExpectedResult: "The system degrades gracefully with clear error reporting",
				ExecutionSpec:  litmusSpec("pod-network-loss", c.Name, map[string]string{"TOTAL_CHAOS_DURATION": "60", "NETWORK_PACKET_LOSS_PERCENTAGE": "100"}),
			}
		default:
			ex = t.Experiment{
				Name:           c.Name + " CPU Stress",
				Description:    fmt.Sprintf("Stress CPU on %s to 80%% for 2 minutes", c.Name),
				ExpectedResult: "In-flight work completes with increased latency and no errors",
				ExecutionSpec:  litmusSpec("pod-cpu-hog", c.Name, map[string]string{"TOTAL_CHAOS_DURATION": "120", "CPU_CORES": "1", "CPU_LOAD": "80"}),
			}
		}
		ex.TargetComponents = []string{c.Name}
		out = append(out, ex)
	}
	return out
}

// litmusSpec renders a Litmus ChaosEngine manifest for the experiment. The
// pipeline designs the injection; execution belongs to a chaos platform.
func litmusSpec(experiment, component string, env map[string]string) string {
	label := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(component), " ", "-"))
	var b strings.Builder
	fmt.Fprintf(&b, "apiVersion: litmuschaos.io/v1alpha1\nkind: ChaosEngine\nmetadata:\n  name: %s-%s\nspec:\n  appinfo:\n    appns: 'default'\n    applabel: 'app=%s'\n    appkind: 'deployment'\n  chaosServiceAccount: litmus-admin\n  experiments:\n    - name: %s\n      spec:\n        components:\n          env:\n", label, experiment, label, experiment)
	keys := make([]string, 0, len(env))
	for k := range env {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, "            - name: %s\n              value: '%s'\n", k, env[k])
	}
	return strings.TrimRight(b.String(), "\n")
}

// deriveBlastRadius emits exactly one entry per experiment, keeping the
// experiment/blast-radius bijection true by construction.
func deriveBlastRadius(g *t.ArchitectureGraph, experiments []t.Experiment) []t.BlastRadiusEntry {
	deps := Dependents(g)
	out := make([]t.BlastRadiusEntry, 0, len(experiments))
	for _, ex := range experiments {
		var direct, indirect []string
		for _, tc := range ex.TargetComponents {
			direct = append(direct, fmt.Sprintf("%s stops serving its normal function", tc))
			for _, d := range deps[tc] {
				indirect = append(indirect, fmt.Sprintf("%s loses its dependency on %s", d, tc))
			}
		}
		if indirect == nil {
			indirect = []string{}
		}
		out = append(out, t.BlastRadiusEntry{
			ExperimentName: ex.Name,
			DirectImpact:   direct,
			IndirectImpact: indirect,
			Containment:    fmt.Sprintf("Impact limited to %s and its direct dependents; no data loss expected", strings.Join(ex.TargetComponents, ", ")),
		})
	}
	return out
}

// knownKnowns restates every derived risk; the deterministic half of the
// Rumsfeld matrix is always reconstructible from DependencyRisks.
func knownKnowns(risks []t.DependencyRisk) []string {
	out := make([]string, 0, len(risks))
	for _, r := range risks {
		out = append(out, fmt.Sprintf("%s: %s", r.Name, r.Impact))
	}
	return out
}

// inferSpeculative asks the model for hypotheses and the unknown halves of
// the Rumsfeld matrix, with one corrective re-prompt on validation failure.
func (p *Planner) inferSpeculative(ctx context.Context, g *t.ArchitectureGraph) (schema.PlanCandidate, bool) {
	var zero schema.PlanCandidate
	input := map[string]any{"graph": g}

	raw, err := p.LLM.GenerateJSON(ctx, promptPlan, input)
	if err != nil {
		p.logf("plan: inference failed: %v", err)
		return zero, false
	}
	res := schema.Validate(schema.ChaosTestPlan, raw)
	if !res.Valid {
		p.logf("plan: validation failed, re-prompting: %s", strings.Join(res.Errors, "; "))
		raw, err = p.LLM.GenerateJSON(ctx, promptPlan+correctiveSuffix, map[string]any{
			"graph":           g,
			"previous_errors": res.Errors,
			"previous_output": string(raw),
		})
		if err != nil {
			p.logf("plan: corrective inference failed: %v", err)
			return zero, false
		}
		res = schema.Validate(schema.ChaosTestPlan, raw)
		if !res.Valid {
			p.logf("plan: validation failed after re-prompt: %s", strings.Join(res.Errors, "; "))
			return zero, false
		}
	}

	var cand schema.PlanCandidate
	if err := jsonutil.UnmarshalRaw(res.Normalized, &cand); err != nil {
		p.logf("plan: decode of validated payload failed: %v", err)
		return zero, false
	}
	return cand, true
}

// fallbackSpeculative derives minimal hypotheses from the graph when
// inference is unusable, so a degraded plan still carries testable claims.
func fallbackSpeculative(g *t.ArchitectureGraph) schema.PlanCandidate {
	hyps := []t.Hypothesis{}
	for _, s := range g.SinglePointsOfFailure {
		hyps = append(hyps, t.Hypothesis{
			Statement:    fmt.Sprintf("When %s fails, dependent components degrade gracefully instead of cascading", s.Name),
			TestApproach: fmt.Sprintf("Disable %s and observe its dependents", s.Name),
		})
	}
	return schema.PlanCandidate{
		Hypotheses:      hyps,
		KnownUnknowns:   []string{},
		UnknownUnknowns: []string{},
		Recommendations: []string{},
	}
}

// repairBlastRadius restores the experiment/blast-radius bijection: orphaned
// entries are dropped, missing entries synthesized from the experiment.
func repairBlastRadius(plan *t.ChaosTestPlan, g *t.ArchitectureGraph) {
	expByName := map[string]t.Experiment{}
	for _, ex := range plan.Experiments {
		expByName[ex.Name] = ex
	}
	kept := plan.BlastRadius[:0]
	seen := map[string]bool{}
	for _, br := range plan.BlastRadius {
		if _, ok := expByName[br.ExperimentName]; ok && !seen[br.ExperimentName] {
			kept = append(kept, br)
			seen[br.ExperimentName] = true
		}
	}
	plan.BlastRadius = kept
	var missing []t.Experiment
	for _, ex := range plan.Experiments {
		if !seen[ex.Name] {
			missing = append(missing, ex)
		}
	}
	if len(missing) > 0 {
		plan.BlastRadius = append(plan.BlastRadius, deriveBlastRadius(g, missing)...)
	}
}
