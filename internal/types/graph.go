package types

import "strings"

// ComponentKind is the closed vocabulary for extracted components.
type ComponentKind string

const (
	KindUI       ComponentKind = "ui"
	KindAPI      ComponentKind = "api"
	KindService  ComponentKind = "service"
	KindDatabase ComponentKind = "database"
	KindExternal ComponentKind = "external"
)

func NormalizeComponentKind(s string) ComponentKind {
	switch ComponentKind(strings.ToLower(strings.TrimSpace(s))) {
	case KindUI:
		return KindUI
	case KindAPI:
		return KindAPI
	case KindDatabase:
		return KindDatabase
	case KindExternal:
		return KindExternal
	default:
		// Free-form model output collapses to "service".
		return KindService
	}
}

type Component struct {
	Name         string        `json:"name"`
	Kind         ComponentKind `json:"kind"`
	Description  string        `json:"description"`
	Technologies []string      `json:"technologies"`
}

type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Kind   string `json:"kind"`
}

type SPOF struct {
	Name   string `json:"name"`
	Impact string `json:"impact"`
}

// AvailabilityTier is the classification produced by the deterministic rule
// table, tier1 being the strictest target.
type AvailabilityTier string

const (
	Tier1 AvailabilityTier = "tier1"
	Tier2 AvailabilityTier = "tier2"
	Tier3 AvailabilityTier = "tier3"
	Tier4 AvailabilityTier = "tier4"
)

// ArchitectureGraph is the stage-1 artifact. Every name referenced by
// Dependencies, CriticalPaths, or SinglePointsOfFailure exists in Components.
type ArchitectureGraph struct {
	Components            []Component      `json:"components"`
	Dependencies          []Edge           `json:"dependencies"`
	CriticalPaths         [][]string       `json:"criticalPaths"`
	SinglePointsOfFailure []SPOF           `json:"singlePointsOfFailure"`
	Recommendations       []string         `json:"recommendations"`
	AvailabilityTier      AvailabilityTier `json:"availabilityTier"`
	TierJustification     string           `json:"tierJustification"`
	Degraded              bool             `json:"degraded,omitempty"`
}

// HasComponent reports whether name is a known component.
func (g *ArchitectureGraph) HasComponent(name string) bool {
	for _, c := range g.Components {
		if c.Name == name {
			return true
		}
	}
	return false
}

// Component returns the component with the given name, if present.
func (g *ArchitectureGraph) Component(name string) (Component, bool) {
	for _, c := range g.Components {
		if c.Name == name {
			return c, true
		}
	}
	return Component{}, false
}
