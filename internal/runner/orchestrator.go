package runner

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"prrgen/internal/pipeline"
	t "prrgen/internal/types"
)

// ErrRunNotFound is returned for unknown run ids.
var ErrRunNotFound = errors.New("runner: run not found")

// stageResult is one cached stage artifact plus the status it was produced
// with. Only one of the artifact pointers is set, depending on the stage.
type stageResult struct {
	graph  *t.ArchitectureGraph
	plan   *t.ChaosTestPlan
	doc    *t.PRRDocument
	status t.StageStatus
}

// Orchestrator sequences the three stages over PipelineRuns. Each run is a
// sequential single-flow state machine; independent runs share nothing
// mutable but the artifact store and the stage-result cache.
type Orchestrator struct {
	Extractor   *pipeline.Extractor
	Planner     *pipeline.Planner
	Synthesizer *pipeline.Synthesizer
	Log         *log.Logger

	mu    sync.RWMutex
	runs  map[string]*t.PipelineRun
	locks map[string]*sync.Mutex
	subs  map[string][]chan *t.PipelineRun

	// cache maps (stage, input fingerprint) to the produced artifact, so
	// re-advancing an unchanged run replays the identical result.
	cache *lru.Cache[string, stageResult]
}

func New(ex *pipeline.Extractor, pl *pipeline.Planner, sy *pipeline.Synthesizer, logger *log.Logger) *Orchestrator {
	cache, _ := lru.New[string, stageResult](256)
	if logger == nil {
		logger = log.Default()
	}
	return &Orchestrator{
		Extractor:   ex,
		Planner:     pl,
		Synthesizer: sy,
		Log:         logger,
		runs:        make(map[string]*t.PipelineRun),
		locks:       make(map[string]*sync.Mutex),
		subs:        make(map[string][]chan *t.PipelineRun),
		cache:       cache,
	}
}

// CreateRun registers a new run for one (artifact, metadata) pair.
func (o *Orchestrator) CreateRun(meta t.ProjectMetadata, artifactID string) (*t.PipelineRun, error) {
	if err := meta.Validate(); err != nil {
		return nil, err
	}
	if artifactID == "" {
		return nil, fmt.Errorf("artifact id is required")
	}
	run := &t.PipelineRun{
		ID:         newRunID(),
		Metadata:   meta,
		ArtifactID: artifactID,
		State:      t.RunCreated,
		StageStatuses: map[t.StageKind]t.StageStatus{
			t.StageExtract:    t.StagePending,
			t.StagePlan:       t.StagePending,
			t.StageSynthesize: t.StagePending,
		},
	}
	o.mu.Lock()
	o.runs[run.ID] = run
	o.locks[run.ID] = &sync.Mutex{}
	o.mu.Unlock()
	return run.Clone(), nil
}

// GetRun returns a snapshot of the run.
func (o *Orchestrator) GetRun(id string) (*t.PipelineRun, bool) {
	o.mu.RLock()
	run, ok := o.runs[id]
	o.mu.RUnlock()
	if !ok {
		return nil, false
	}
	return run.Clone(), true
}

// Subscribe returns a channel receiving run snapshots on every transition,
// plus an unsubscribe func. The channel is buffered; slow consumers miss
// intermediate states, never block the pipeline.
func (o *Orchestrator) Subscribe(runID string) (<-chan *t.PipelineRun, func(), error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if _, ok := o.runs[runID]; !ok {
		return nil, nil, ErrRunNotFound
	}
	ch := make(chan *t.PipelineRun, 8)
	o.subs[runID] = append(o.subs[runID], ch)
	cancel := func() {
		o.mu.Lock()
		defer o.mu.Unlock()
		subs := o.subs[runID]
		for i, c := range subs {
			if c == ch {
				o.subs[runID] = append(subs[:i], subs[i+1:]...)
				close(ch)
				return
			}
		}
	}
	return ch, cancel, nil
}

func (o *Orchestrator) notify(run *t.PipelineRun) {
	o.mu.RLock()
	subs := append([]chan *t.PipelineRun(nil), o.subs[run.ID]...)
	o.mu.RUnlock()
	for _, ch := range subs {
		select {
		case ch <- run.Clone():
		default:
		}
	}
}

func (o *Orchestrator) runLock(id string) (*sync.Mutex, *t.PipelineRun, error) {
	o.mu.RLock()
	defer o.mu.RUnlock()
	run, ok := o.runs[id]
	if !ok {
		return nil, nil, ErrRunNotFound
	}
	return o.locks[id], run, nil
}

// Advance moves the run forward by exactly one stage and returns the updated
// snapshot. Terminal runs are returned unchanged: re-advancing a completed
// run is a no-op with the same terminal state and identical deterministic
// fields. Cancellation is honored at stage boundaries only; a cancelled
// stage's partial result is discarded, never merged.
func (o *Orchestrator) Advance(ctx context.Context, runID string) (*t.PipelineRun, error) {
	lock, run, err := o.runLock(runID)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	switch run.State {
	case t.RunCreated:
		return o.advanceExtract(ctx, run)
	case t.RunExtracted:
		return o.advancePlan(ctx, run)
	case t.RunPlanned:
		return o.advanceSynthesize(ctx, run)
	case t.RunCompleted, t.RunFailed:
		return run.Clone(), nil
	default:
		return nil, fmt.Errorf("runner: run %s is mid-stage (%s)", runID, run.State)
	}
}

func (o *Orchestrator) advanceExtract(ctx context.Context, run *t.PipelineRun) (*t.PipelineRun, error) {
	run.State = t.RunExtracting
	run.StageStatuses[t.StageExtract] = t.StageRunning
	o.notify(run)

	fp := "extract/" + JSONFingerprint(struct {
		ArtifactID string
		Meta       t.ProjectMetadata
	}{run.ArtifactID, run.Metadata})

	var res stageResult
	if cached, ok := o.cache.Get(fp); ok {
		o.Log.Printf("run %s: extract replayed from cache", run.ID)
		res = cached
	} else {
		graph, status, err := o.Extractor.Extract(ctx, run.ArtifactID, run.Metadata)
		if err != nil {
			// Bad input on the very first stage is fatal to the run.
			o.Log.Printf("run %s: extract failed: %v", run.ID, err)
			run.State = t.RunFailed
			run.StageStatuses[t.StageExtract] = t.StageFailed
			run.Err = err.Error()
			o.notify(run)
			return run.Clone(), err
		}
		if ctx.Err() != nil {
			run.State = t.RunCreated
			run.StageStatuses[t.StageExtract] = t.StagePending
			o.notify(run)
			return nil, ctx.Err()
		}
		res = stageResult{graph: graph, status: status}
		o.cache.Add(fp, res)
	}

	run.Graph = res.graph
	run.StageStatuses[t.StageExtract] = res.status
	run.State = t.RunExtracted
	o.Log.Printf("run %s: extract %s (%d components)", run.ID, res.status, len(res.graph.Components))
	o.notify(run)
	return run.Clone(), nil
}

func (o *Orchestrator) advancePlan(ctx context.Context, run *t.PipelineRun) (*t.PipelineRun, error) {
	run.State = t.RunPlanning
	run.StageStatuses[t.StagePlan] = t.StageRunning
	o.notify(run)

	fp := "plan/" + JSONFingerprint(run.Graph)
	var res stageResult
	if cached, ok := o.cache.Get(fp); ok {
		res = cached
	} else {
		plan, status, err := o.Planner.Plan(ctx, run.Graph)
		if err != nil {
			run.State = t.RunFailed
			run.StageStatuses[t.StagePlan] = t.StageFailed
			run.Err = err.Error()
			o.notify(run)
			return run.Clone(), err
		}
		if ctx.Err() != nil {
			run.State = t.RunExtracted
			run.StageStatuses[t.StagePlan] = t.StagePending
			o.notify(run)
			return nil, ctx.Err()
		}
		res = stageResult{plan: plan, status: status}
		o.cache.Add(fp, res)
	}

	run.Plan = res.plan
	run.StageStatuses[t.StagePlan] = res.status
	run.State = t.RunPlanned
	o.Log.Printf("run %s: plan %s (%d experiments)", run.ID, res.status, len(res.plan.Experiments))
	o.notify(run)
	return run.Clone(), nil
}

func (o *Orchestrator) advanceSynthesize(ctx context.Context, run *t.PipelineRun) (*t.PipelineRun, error) {
	run.State = t.RunSynthesizing
	run.StageStatuses[t.StageSynthesize] = t.StageRunning
	o.notify(run)

	doc, status, err := o.Synthesizer.Synthesize(ctx, run.Metadata, run.Graph, run.Plan)
	if err != nil {
		run.State = t.RunFailed
		run.StageStatuses[t.StageSynthesize] = t.StageFailed
		run.Err = err.Error()
		o.notify(run)
		return run.Clone(), err
	}
	if ctx.Err() != nil {
		run.State = t.RunPlanned
		run.StageStatuses[t.StageSynthesize] = t.StagePending
		o.notify(run)
		return nil, ctx.Err()
	}

	run.Document = doc
	run.StageStatuses[t.StageSynthesize] = status
	run.State = t.RunCompleted
	o.Log.Printf("run %s: synthesize %s", run.ID, status)
	o.notify(run)
	return run.Clone(), nil
}

// RunStage re-invokes one stage whose upstream inputs exist, replacing its
// artifact and invalidating everything downstream: derived data keeps its
// referential invariant on upstream content or it does not exist.
func (o *Orchestrator) RunStage(ctx context.Context, runID string, stage t.StageKind) (*t.PipelineRun, error) {
	lock, run, err := o.runLock(runID)
	if err != nil {
		return nil, err
	}
	lock.Lock()
	defer lock.Unlock()

	switch stage {
	case t.StageExtract:
		o.invalidateFrom(run, t.StageExtract)
		return o.advanceExtract(ctx, run)
	case t.StagePlan:
		if run.Graph == nil {
			return nil, fmt.Errorf("runner: cannot run %s: no architecture graph", stage)
		}
		o.invalidateFrom(run, t.StagePlan)
		run.State = t.RunExtracted
		return o.advancePlan(ctx, run)
	case t.StageSynthesize:
		if run.Graph == nil || run.Plan == nil {
			return nil, fmt.Errorf("runner: cannot run %s: missing upstream artifacts", stage)
		}
		o.invalidateFrom(run, t.StageSynthesize)
		run.State = t.RunPlanned
		return o.advanceSynthesize(ctx, run)
	}
	return nil, fmt.Errorf("runner: unknown stage %q", stage)
}

// invalidateFrom clears the given stage's artifact and all downstream ones.
func (o *Orchestrator) invalidateFrom(run *t.PipelineRun, stage t.StageKind) {
	switch stage {
	case t.StageExtract:
		run.Graph = nil
		run.StageStatuses[t.StageExtract] = t.StagePending
		run.State = t.RunCreated
		fallthrough
	case t.StagePlan:
		run.Plan = nil
		run.StageStatuses[t.StagePlan] = t.StagePending
		fallthrough
	case t.StageSynthesize:
		run.Document = nil
		run.StageStatuses[t.StageSynthesize] = t.StagePending
	}
	run.Err = ""
}

// RunArchitectureAnalysis is the stateless caller surface for stage 1.
func (o *Orchestrator) RunArchitectureAnalysis(ctx context.Context, fileID string, meta t.ProjectMetadata) (*t.ArchitectureGraph, t.StageStatus, error) {
	return o.Extractor.Extract(ctx, fileID, meta)
}

// RunResiliencePlan is the stateless caller surface for stage 2.
func (o *Orchestrator) RunResiliencePlan(ctx context.Context, graph *t.ArchitectureGraph) (*t.ChaosTestPlan, t.StageStatus, error) {
	return o.Planner.Plan(ctx, graph)
}

// RunSynthesis is the stateless caller surface for stage 3.
func (o *Orchestrator) RunSynthesis(ctx context.Context, meta t.ProjectMetadata, graph *t.ArchitectureGraph, plan *t.ChaosTestPlan) (*t.PRRDocument, t.StageStatus, error) {
	return o.Synthesizer.Synthesize(ctx, meta, graph, plan)
}
