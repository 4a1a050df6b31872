package types

// DependencyRisk is a ranked, component-linked risk surfaced by the planner.
type DependencyRisk struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Impact      string `json:"impact"`
	Component   string `json:"component,omitempty"`
}

// SteadyState quantifies a normal-operation invariant. Threshold is always a
// parseable percentage or duration so experiments can compare against it.
type SteadyState struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Metric      string `json:"metric"`
	Threshold   string `json:"threshold"`
}

type Hypothesis struct {
	Statement    string `json:"statement"`
	TestApproach string `json:"testApproach"`
}

// Experiment is one planned chaos experiment. ExecutionSpec is an opaque
// injection payload (a Litmus ChaosEngine manifest here); the pipeline only
// designs it, never runs it.
type Experiment struct {
	Name             string   `json:"name"`
	Description      string   `json:"description"`
	TargetComponents []string `json:"targetComponents"`
	ExpectedResult   string   `json:"expectedResult"`
	ExecutionSpec    string   `json:"executionSpec"`
}

// RumsfeldMatrix separates risks we derived (knownKnowns) from speculative,
// inference-sourced categories.
type RumsfeldMatrix struct {
	KnownKnowns     []string `json:"knownKnowns"`
	KnownUnknowns   []string `json:"knownUnknowns"`
	UnknownUnknowns []string `json:"unknownUnknowns"`
	Recommendations []string `json:"recommendations"`
}

type BlastRadiusEntry struct {
	ExperimentName string   `json:"experimentName"`
	DirectImpact   []string `json:"directImpact"`
	IndirectImpact []string `json:"indirectImpact"`
	Containment    string   `json:"containment"`
}

// ChaosTestPlan is the stage-2 artifact. BlastRadius entries map 1:1 onto
// Experiments by name.
type ChaosTestPlan struct {
	DependencyRisks []DependencyRisk   `json:"dependencyRisks"`
	SteadyStates    []SteadyState      `json:"steadyStates"`
	Hypotheses      []Hypothesis       `json:"hypotheses"`
	Experiments     []Experiment       `json:"experiments"`
	Rumsfeld        RumsfeldMatrix     `json:"rumsfeldMatrix"`
	BlastRadius     []BlastRadiusEntry `json:"blastRadius"`
	Degraded        bool               `json:"degraded,omitempty"`
	Violations      []string           `json:"violations,omitempty"`
}
