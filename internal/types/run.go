package types

// RunState is the main pipeline state machine. Degraded is not a state: it is
// an orthogonal modifier carried per stage in StageStatuses.
type RunState string

const (
	RunCreated      RunState = "created"
	RunExtracting   RunState = "extracting"
	RunExtracted    RunState = "extracted"
	RunPlanning     RunState = "planning"
	RunPlanned      RunState = "planned"
	RunSynthesizing RunState = "synthesizing"
	RunCompleted    RunState = "completed"
	RunFailed       RunState = "failed"
)

// PipelineRun binds one metadata + artifact pair to at most one artifact per
// stage. All mutable run state lives in this value; stages share nothing else.
type PipelineRun struct {
	ID         string          `json:"id"`
	Metadata   ProjectMetadata `json:"metadata"`
	ArtifactID string          `json:"artifactId"`

	State         RunState                  `json:"state"`
	StageStatuses map[StageKind]StageStatus `json:"stageStatuses"`

	Graph    *ArchitectureGraph `json:"graph,omitempty"`
	Plan     *ChaosTestPlan     `json:"plan,omitempty"`
	Document *PRRDocument       `json:"document,omitempty"`

	// Err records the failure that drove the run into RunFailed.
	Err string `json:"error,omitempty"`
}

// Degraded reports whether any completed stage fell back to deterministic
// content.
func (r *PipelineRun) Degraded() bool {
	for _, st := range r.StageStatuses {
		if st == StageDegraded {
			return true
		}
	}
	return false
}

// Clone returns a deep-enough copy for handing out past the orchestrator
// boundary: stage artifacts are immutable once produced, so sharing their
// pointers is safe; the status map is copied because Advance rewrites it.
func (r *PipelineRun) Clone() *PipelineRun {
	cp := *r
	cp.StageStatuses = make(map[StageKind]StageStatus, len(r.StageStatuses))
	for k, v := range r.StageStatuses {
		cp.StageStatuses[k] = v
	}
	return &cp
}
