package schema

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	t "prrgen/internal/types"
	"prrgen/internal/util/jsonutil"
)

// Schema names accepted by Validate.
const (
	ArchitectureGraph = "architecture_graph"
	ChaosTestPlan     = "chaos_test_plan"
	PRRDocument       = "prr_document"
)

// Result is the tagged outcome of validating candidate model output.
// Either Valid with a normalized payload, or Invalid with the reasons.
// Raw inferred structure never crosses a stage boundary unvalidated.
type Result struct {
	Valid      bool
	Normalized json.RawMessage
	Errors     []string
}

func invalid(errs ...string) Result { return Result{Errors: errs} }

// Validate checks raw against the named schema, coercing known model quirks
// (missing arrays, free-form component kinds) before judging.
func Validate(name string, raw json.RawMessage) Result {
	switch name {
	case ArchitectureGraph:
		return validateGraphCandidate(raw)
	case ChaosTestPlan:
		return validatePlanCandidate(raw)
	case PRRDocument:
		return validateDocumentCandidate(raw)
	}
	return invalid(fmt.Sprintf("unknown schema %q", name))
}

// GraphCandidate is the model-supplied portion of an ArchitectureGraph.
// SPOFs, critical paths, and the tier are derived, never trusted from the model.
type GraphCandidate struct {
	Components      []t.Component `json:"components"`
	Dependencies    []t.Edge      `json:"dependencies"`
	Recommendations []string      `json:"recommendations"`
}

func validateGraphCandidate(raw json.RawMessage) Result {
	var c GraphCandidate
	if err := jsonutil.UnmarshalRaw(raw, &c); err != nil {
		return invalid(fmt.Sprintf("decode: %v", err))
	}

	var errs []string
	seen := map[string]bool{}
	for i := range c.Components {
		c.Components[i].Name = strings.TrimSpace(c.Components[i].Name)
		name := c.Components[i].Name
		if name == "" {
			errs = append(errs, fmt.Sprintf("components[%d]: empty name", i))
			continue
		}
		if seen[name] {
			errs = append(errs, fmt.Sprintf("components[%d]: duplicate name %q", i, name))
		}
		seen[name] = true
		c.Components[i].Kind = t.NormalizeComponentKind(string(c.Components[i].Kind))
		if c.Components[i].Technologies == nil {
			c.Components[i].Technologies = []string{}
		}
	}
	if len(c.Components) == 0 {
		errs = append(errs, "components: at least one component is required")
	}
	for i, e := range c.Dependencies {
		if !seen[e.Source] {
			errs = append(errs, fmt.Sprintf("dependencies[%d]: unknown source %q", i, e.Source))
		}
		if !seen[e.Target] {
			errs = append(errs, fmt.Sprintf("dependencies[%d]: unknown target %q", i, e.Target))
		}
	}
	if c.Recommendations == nil {
		c.Recommendations = []string{}
	}
	if len(errs) > 0 {
		return invalid(errs...)
	}
	norm, err := jsonutil.MarshalNoEscape(c)
	if err != nil {
		return invalid(fmt.Sprintf("re-encode: %v", err))
	}
	return Result{Valid: true, Normalized: norm}
}

// PlanCandidate is the model-supplied, speculative portion of a ChaosTestPlan.
// Risks, steady states, experiments, knownKnowns, and blast radius are derived.
type PlanCandidate struct {
	Hypotheses      []t.Hypothesis `json:"hypotheses"`
	KnownUnknowns   []string       `json:"knownUnknowns"`
	UnknownUnknowns []string       `json:"unknownUnknowns"`
	Recommendations []string       `json:"recommendations"`
}

func validatePlanCandidate(raw json.RawMessage) Result {
	var c PlanCandidate
	if err := jsonutil.UnmarshalRaw(raw, &c); err != nil {
		return invalid(fmt.Sprintf("decode: %v", err))
	}
	var errs []string
	for i, h := range c.Hypotheses {
		if strings.TrimSpace(h.Statement) == "" {
			errs = append(errs, fmt.Sprintf("hypotheses[%d]: empty statement", i))
		}
	}
	if c.Hypotheses == nil {
		c.Hypotheses = []t.Hypothesis{}
	}
	if c.KnownUnknowns == nil {
		c.KnownUnknowns = []string{}
	}
	if c.UnknownUnknowns == nil {
		c.UnknownUnknowns = []string{}
	}
	if c.Recommendations == nil {
		c.Recommendations = []string{}
	}
	if len(errs) > 0 {
		return invalid(errs...)
	}
	norm, err := jsonutil.MarshalNoEscape(c)
	if err != nil {
		return invalid(fmt.Sprintf("re-encode: %v", err))
	}
	return Result{Valid: true, Normalized: norm}
}

// DocumentCandidate is the model-supplied prose for the report sections.
type DocumentCandidate struct {
	Sections []t.Section `json:"sections"`
}

func validateDocumentCandidate(raw json.RawMessage) Result {
	var c DocumentCandidate
	if err := jsonutil.UnmarshalRaw(raw, &c); err != nil {
		return invalid(fmt.Sprintf("decode: %v", err))
	}
	var errs []string
	seen := map[string]bool{}
	for i, s := range c.Sections {
		h := strings.TrimSpace(s.Heading)
		if h == "" {
			errs = append(errs, fmt.Sprintf("sections[%d]: empty heading", i))
			continue
		}
		if seen[h] {
			errs = append(errs, fmt.Sprintf("sections[%d]: duplicate heading %q", i, h))
		}
		seen[h] = true
	}
	if c.Sections == nil {
		c.Sections = []t.Section{}
	}
	if len(errs) > 0 {
		return invalid(errs...)
	}
	norm, err := jsonutil.MarshalNoEscape(c)
	if err != nil {
		return invalid(fmt.Sprintf("re-encode: %v", err))
	}
	return Result{Valid: true, Normalized: norm}
}

// CheckGraph verifies the referential invariant on a finished graph: every
// name in dependencies, criticalPaths, and singlePointsOfFailure exists in
// components.
func CheckGraph(g *t.ArchitectureGraph) []string {
	var errs []string
	names := map[string]bool{}
	for _, c := range g.Components {
		names[c.Name] = true
	}
	for i, e := range g.Dependencies {
		if !names[e.Source] || !names[e.Target] {
			errs = append(errs, fmt.Sprintf("dependencies[%d]: %s -> %s references unknown component", i, e.Source, e.Target))
		}
	}
	for i, path := range g.CriticalPaths {
		for _, n := range path {
			if !names[n] {
				errs = append(errs, fmt.Sprintf("criticalPaths[%d]: unknown component %q", i, n))
			}
		}
	}
	for i, s := range g.SinglePointsOfFailure {
		if !names[s.Name] {
			errs = append(errs, fmt.Sprintf("singlePointsOfFailure[%d]: unknown component %q", i, s.Name))
		}
	}
	return errs
}

// CheckPlan verifies the structural invariants of a finished plan against its
// originating graph: experiment targets exist in the graph, thresholds parse,
// and blast-radius entries map 1:1 onto experiments.
func CheckPlan(p *t.ChaosTestPlan, g *t.ArchitectureGraph) []string {
	var errs []string
	for i, ex := range p.Experiments {
		for _, tc := range ex.TargetComponents {
			if g != nil && !g.HasComponent(tc) {
				errs = append(errs, fmt.Sprintf("experiments[%d]: target %q not in graph", i, tc))
			}
		}
	}
	for i, ss := range p.SteadyStates {
		if _, err := ParseThreshold(ss.Threshold); err != nil {
			errs = append(errs, fmt.Sprintf("steadyStates[%d]: %v", i, err))
		}
	}
	expNames := map[string]bool{}
	for _, ex := range p.Experiments {
		expNames[ex.Name] = true
	}
	brNames := map[string]bool{}
	for i, br := range p.BlastRadius {
		if !expNames[br.ExperimentName] {
			errs = append(errs, fmt.Sprintf("blastRadius[%d]: no experiment named %q", i, br.ExperimentName))
		}
		if brNames[br.ExperimentName] {
			errs = append(errs, fmt.Sprintf("blastRadius[%d]: duplicate entry for experiment %q", i, br.ExperimentName))
		}
		brNames[br.ExperimentName] = true
	}
	for _, ex := range p.Experiments {
		if !brNames[ex.Name] {
			errs = append(errs, fmt.Sprintf("experiments: %q has no blast-radius entry", ex.Name))
		}
	}
	return errs
}

// Threshold is a parsed steady-state threshold: either a percentage or a
// duration, never both.
type Threshold struct {
	Percent  float64
	Duration time.Duration
	IsPct    bool
}

// ParseThreshold accepts values like "99.9%" or "300ms". Anything else is a
// schema violation; steady states exist to be compared numerically.
func ParseThreshold(s string) (Threshold, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Threshold{}, fmt.Errorf("empty threshold")
	}
	if strings.HasSuffix(s, "%") {
		v, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return Threshold{}, fmt.Errorf("threshold %q: not a percentage", s)
		}
		return Threshold{Percent: v, IsPct: true}, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Threshold{}, fmt.Errorf("threshold %q: not a percentage or duration", s)
	}
	return Threshold{Duration: d}, nil
}
