package types

import "testing"

func TestParseBusinessImpact(t *testing.T) {
	for in, want := range map[string]BusinessImpact{
		"critical": ImpactCritical,
		" HIGH ":   ImpactHigh,
		"Medium":   ImpactMedium,
		"low":      ImpactLow,
	} {
		got, err := ParseBusinessImpact(in)
		if err != nil || got != want {
			t.Errorf("ParseBusinessImpact(%q) = %s, %v", in, got, err)
		}
	}
	if _, err := ParseBusinessImpact("severe"); err == nil {
		t.Error("unknown impact must fail")
	}
}

func TestProjectMetadataValidate(t *testing.T) {
	ok := ProjectMetadata{Name: "x", Description: "y", BusinessImpact: ImpactLow}
	if err := ok.Validate(); err != nil {
		t.Fatal(err)
	}
	for _, bad := range []ProjectMetadata{
		{Description: "y", BusinessImpact: ImpactLow},
		{Name: "x", BusinessImpact: ImpactLow},
		{Name: "x", Description: "y"},
		{Name: "x", Description: "y", BusinessImpact: "severe"},
	} {
		if err := bad.Validate(); err == nil {
			t.Errorf("%+v should fail validation", bad)
		}
	}
}

func TestNormalizeComponentKind(t *testing.T) {
	cases := map[string]ComponentKind{
		"UI":            KindUI,
		" api ":         KindAPI,
		"database":      KindDatabase,
		"external":      KindExternal,
		"microservice":  KindService,
		"Load Balancer": KindService,
		"":              KindService,
	}
	for in, want := range cases {
		if got := NormalizeComponentKind(in); got != want {
			t.Errorf("NormalizeComponentKind(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestPipelineRunClone(t *testing.T) {
	run := &PipelineRun{
		ID:            "run-1",
		State:         RunExtracted,
		StageStatuses: map[StageKind]StageStatus{StageExtract: StageSucceeded},
	}
	cp := run.Clone()
	cp.StageStatuses[StagePlan] = StageRunning
	if _, ok := run.StageStatuses[StagePlan]; ok {
		t.Fatal("clone must not share the status map")
	}
}

func TestPipelineRunDegraded(t *testing.T) {
	run := &PipelineRun{StageStatuses: map[StageKind]StageStatus{
		StageExtract: StageSucceeded,
		StagePlan:    StageDegraded,
	}}
	if !run.Degraded() {
		t.Fatal("degraded stage must mark the run degraded")
	}
	run.StageStatuses[StagePlan] = StageSucceeded
	if run.Degraded() {
		t.Fatal("all-succeeded run is not degraded")
	}
}
