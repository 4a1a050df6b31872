package pipeline

import (
	"context"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"prrgen/internal/llm"
	"prrgen/internal/schema"
	t "prrgen/internal/types"
	"prrgen/internal/util/jsonutil"
)

// SectionHeadings is the fixed section list of every PRR document. Order and
// headings are part of the external contract; exporters and tab UIs index
// sections by position.
var SectionHeadings = []string{
	"Service Overview",
	"Architecture Analysis",
	"Resilience Testing Strategy",
	"Availability Design",
	"Observability Strategy",
	"Identified Risks & Mitigations",
	"Recommendations & Next Steps",
}

// Synthesizer is stage 3: metadata + graph + plan in, PRRDocument out.
// Bodies combine inference-generated prose with template-filled facts, and
// structural facts always win: prose never overrides the graph's tier.
type Synthesizer struct {
	LLM llm.LLMClient
	Log *log.Logger

	// Now is overridable for deterministic tests; defaults to time.Now.
	Now func() time.Time
}

func (s *Synthesizer) logf(format string, args ...any) {
	if s.Log != nil {
		s.Log.Printf(format, args...)
		return
	}
	log.Printf(format, args...)
}

// Synthesize always produces a document. Missing upstream artifacts produce
// placeholder sections and a degraded document, never a hard failure; a
// partial PRR is more useful to the operator than none.
func (s *Synthesizer) Synthesize(ctx context.Context, meta t.ProjectMetadata, graph *t.ArchitectureGraph, plan *t.ChaosTestPlan) (*t.PRRDocument, t.StageStatus, error) {
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}

	degraded := graph == nil || plan == nil
	if graph != nil && graph.Degraded {
		degraded = true
	}
	if plan != nil && plan.Degraded {
		degraded = true
	}

	ctx = llm.WithStage(ctx, t.StageSynthesize)
	prose, ok := s.inferProse(ctx, meta, graph, plan)
	if !ok {
		prose = map[string]string{}
		degraded = true
	}

	doc := &t.PRRDocument{
		Title:       meta.Name + " - Production Readiness Review",
		Version:     "1.0",
		GeneratedAt: now().UTC(),
		Degraded:    degraded,
	}
	for _, heading := range SectionHeadings {
		body := composeSection(heading, prose[heading], meta, graph, plan)
		if graph != nil {
			body = enforceTier(body, graph.AvailabilityTier)
		}
		doc.Sections = append(doc.Sections, t.Section{Heading: heading, Body: body})
	}

	status := t.StageSucceeded
	if degraded {
		status = t.StageDegraded
	}
	return doc, status, nil
}

// inferProse asks the model for one paragraph per section, with one
// corrective re-prompt. Returns prose keyed by heading.
func (s *Synthesizer) inferProse(ctx context.Context, meta t.ProjectMetadata, graph *t.ArchitectureGraph, plan *t.ChaosTestPlan) (map[string]string, bool) {
	input := map[string]any{
		"metadata": meta,
		"graph":    graph,
		"plan":     plan,
		"headings": SectionHeadings,
	}
	raw, err := s.LLM.GenerateJSON(ctx, promptSynthesize, input)
	if err != nil {
		s.logf("synthesize: inference failed: %v", err)
		return nil, false
	}
	res := schema.Validate(schema.PRRDocument, raw)
	if !res.Valid {
		s.logf("synthesize: validation failed, re-prompting: %s", strings.Join(res.Errors, "; "))
		raw, err = s.LLM.GenerateJSON(ctx, promptSynthesize+correctiveSuffix, map[string]any{
			"metadata":        meta,
			"graph":           graph,
			"plan":            plan,
			"headings":        SectionHeadings,
			"previous_errors": res.Errors,
			"previous_output": string(raw),
		})
		if err != nil {
			s.logf("synthesize: corrective inference failed: %v", err)
			return nil, false
		}
		res = schema.Validate(schema.PRRDocument, raw)
		if !res.Valid {
			s.logf("synthesize: validation failed after re-prompt: %s", strings.Join(res.Errors, "; "))
			return nil, false
		}
	}
	var cand schema.DocumentCandidate
	if err := jsonutil.UnmarshalRaw(res.Normalized, &cand); err != nil {
		s.logf("synthesize: decode of validated payload failed: %v", err)
		return nil, false
	}
	prose := make(map[string]string, len(cand.Sections))
	for _, sec := range cand.Sections {
		prose[strings.TrimSpace(sec.Heading)] = strings.TrimSpace(sec.Body)
	}
	return prose, true
}

// composeSection joins model prose with the template-filled facts for one
// heading. Facts come last so they read as the section's summary of record.
func composeSection(heading, prose string, meta t.ProjectMetadata, graph *t.ArchitectureGraph, plan *t.ChaosTestPlan) string {
	facts := sectionFacts(heading, meta, graph, plan)
	switch {
	case prose == "" && facts == "":
		return "Content unavailable for this run; re-run the upstream stages."
	case prose == "":
		return facts
	case facts == "":
		return prose
	default:
		return prose + "\n\n" + facts
	}
}

func sectionFacts(heading string, meta t.ProjectMetadata, graph *t.ArchitectureGraph, plan *t.ChaosTestPlan) string {
	var b strings.Builder
	switch heading {
	case "Service Overview":
		fmt.Fprintf(&b, "%s is a %s impact service. %s", meta.Name, meta.BusinessImpact, meta.Description)
		if graph != nil {
			fmt.Fprintf(&b, "\n\nThe system comprises %d component(s) and is classified as %s (target availability %s).",
				len(graph.Components), graph.AvailabilityTier, tierTargets[graph.AvailabilityTier])
		}
	case "Architecture Analysis":
		if graph == nil {
			return "Architecture analysis is unavailable for this run; re-run the extraction stage."
		}
		b.WriteString("Key components:\n")
		for _, c := range graph.Components {
			fmt.Fprintf(&b, "- %s (%s): %s\n", c.Name, c.Kind, c.Description)
		}
		fmt.Fprintf(&b, "\n%d critical path(s) identified.", len(graph.CriticalPaths))
		if len(graph.SinglePointsOfFailure) > 0 {
			b.WriteString(" Single points of failure:\n")
			for _, s := range graph.SinglePointsOfFailure {
				fmt.Fprintf(&b, "- %s: %s\n", s.Name, s.Impact)
			}
		} else {
			b.WriteString(" No single points of failure identified.")
		}
	case "Resilience Testing Strategy":
		if plan == nil {
			return "Resilience testing strategy is unavailable for this run; re-run the planning stage."
		}
		if len(plan.Experiments) == 0 {
			return "No chaos experiments were planned for this run."
		}
		b.WriteString("Planned chaos experiments, in priority order:\n")
		for i, ex := range plan.Experiments {
			fmt.Fprintf(&b, "%d. %s: %s\n", i+1, ex.Name, ex.Description)
		}
	case "Availability Design":
		if graph == nil {
			return "Availability design is unavailable for this run; re-run the extraction stage."
		}
		fmt.Fprintf(&b, "The system is classified as %s with a target availability of %s.\n\n%s",
			graph.AvailabilityTier, tierTargets[graph.AvailabilityTier], graph.TierJustification)
	case "Observability Strategy":
		if plan == nil || len(plan.SteadyStates) == 0 {
			return "Define SLOs once steady-state metrics are available from the resilience plan."
		}
		b.WriteString("Define SLOs from the steady-state metrics:\n")
		for _, ss := range plan.SteadyStates {
			fmt.Fprintf(&b, "- %s: %s within %s\n", ss.Name, ss.Metric, ss.Threshold)
		}
	case "Identified Risks & Mitigations":
		if plan == nil || len(plan.DependencyRisks) == 0 {
			return "No dependency risks were derived for this run."
		}
		for i, r := range plan.DependencyRisks {
			fmt.Fprintf(&b, "%d. %s\n   %s\n   Impact: %s\n", i+1, r.Name, r.Description, r.Impact)
		}
	case "Recommendations & Next Steps":
		var recs []string
		if graph != nil {
			recs = append(recs, graph.Recommendations...)
		}
		if plan != nil {
			recs = append(recs, plan.Rumsfeld.Recommendations...)
		}
		if len(recs) == 0 {
			return "Re-run the pipeline once upstream artifacts are available."
		}
		for i, r := range recs {
			fmt.Fprintf(&b, "%d. %s\n", i+1, r)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}

var tierToken = regexp.MustCompile(`(?i)\btier\s?([1-4])\b`)

// enforceTier re-substitutes the authoritative tier wherever generated prose
// claims a different one.
func enforceTier(body string, tier t.AvailabilityTier) string {
	return tierToken.ReplaceAllString(body, string(tier))
}
