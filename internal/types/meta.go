package types

import (
	"fmt"
	"strings"
	"time"
)

// BusinessImpact ranks how much the business depends on the system under review.
type BusinessImpact string

const (
	ImpactCritical BusinessImpact = "critical"
	ImpactHigh     BusinessImpact = "high"
	ImpactMedium   BusinessImpact = "medium"
	ImpactLow      BusinessImpact = "low"
)

func ParseBusinessImpact(s string) (BusinessImpact, error) {
	switch BusinessImpact(strings.ToLower(strings.TrimSpace(s))) {
	case ImpactCritical:
		return ImpactCritical, nil
	case ImpactHigh:
		return ImpactHigh, nil
	case ImpactMedium:
		return ImpactMedium, nil
	case ImpactLow:
		return ImpactLow, nil
	}
	return "", fmt.Errorf("unknown business impact %q", s)
}

// ProjectMetadata describes the system under review. Immutable once a
// pipeline run starts.
type ProjectMetadata struct {
	Name           string         `json:"name"`
	Description    string         `json:"description"`
	BusinessImpact BusinessImpact `json:"businessImpact"`
}

func (m ProjectMetadata) Validate() error {
	if strings.TrimSpace(m.Name) == "" {
		return fmt.Errorf("project name is required")
	}
	if strings.TrimSpace(m.Description) == "" {
		return fmt.Errorf("project description is required")
	}
	if _, err := ParseBusinessImpact(string(m.BusinessImpact)); err != nil {
		return err
	}
	return nil
}

// UploadedArtifact is the raw uploaded diagram plus its identity.
// Never mutated after creation; the ID is content-derived.
type UploadedArtifact struct {
	ID        string    `json:"id"`
	Bytes     []byte    `json:"-"`
	MIMEType  string    `json:"mimeType"`
	CreatedAt time.Time `json:"createdAt"`
}

// StageStatus is the per-stage outcome attached to every produced artifact.
// Degraded means the stage substituted deterministic fallback content because
// inference failed validation or timed out; it is never folded into Succeeded.
type StageStatus string

const (
	StagePending   StageStatus = "pending"
	StageRunning   StageStatus = "running"
	StageSucceeded StageStatus = "succeeded"
	StageDegraded  StageStatus = "degraded"
	StageFailed    StageStatus = "failed"
)

// StageKind names the three analysis stages.
type StageKind string

const (
	StageExtract    StageKind = "extract"
	StagePlan       StageKind = "plan"
	StageSynthesize StageKind = "synthesize"
)
