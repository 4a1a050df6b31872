package llm

import (
	"context"
	"encoding/json"

	t "prrgen/internal/types"
)

// FakeClient returns deterministic per-stage JSON payloads for offline runs
// and tests. The fixture architecture mirrors a small retail stack so the
// derived analysis has something real to chew on.
type FakeClient struct{}

func NewFakeClient() *FakeClient { return &FakeClient{} }

func (f *FakeClient) Name() string { return "FakeLLM" }
func (f *FakeClient) Close() error { return nil }

func (f *FakeClient) GenerateJSON(ctx context.Context, prompt string, input any) (json.RawMessage, error) {
	var obj any
	switch StageFrom(ctx) {
	case t.StageExtract:
		obj = fakeExtract()
	case t.StagePlan:
		obj = fakePlan()
	case t.StageSynthesize:
		obj = fakeSynthesis()
	default:
		obj = map[string]any{}
	}
	b, _ := json.Marshal(obj)
	return json.RawMessage(b), nil
}

func (f *FakeClient) GenerateJSONVision(ctx context.Context, prompt string, input any, image Blob) (json.RawMessage, error) {
	return f.GenerateJSON(ctx, prompt, input)
}

func fakeExtract() map[string]any {
	return map[string]any{
		"components": []any{
			map[string]any{"name": "Frontend Web App", "kind": "ui", "description": "React-based user interface", "technologies": []string{"React", "Material UI"}},
			map[string]any{"name": "API Gateway", "kind": "api", "description": "RESTful API gateway", "technologies": []string{"Express.js", "Node.js"}},
			map[string]any{"name": "Authentication Service", "kind": "service", "description": "User authentication and authorization", "technologies": []string{"OAuth 2.0", "JWT"}},
			map[string]any{"name": "Product Service", "kind": "service", "description": "Core product management", "technologies": []string{"Java", "Spring Boot"}},
			map[string]any{"name": "Inventory Service", "kind": "service", "description": "Inventory tracking and management", "technologies": []string{"Java", "Spring Boot"}},
			map[string]any{"name": "User Database", "kind": "database", "description": "User data storage", "technologies": []string{"PostgreSQL"}},
			map[string]any{"name": "Product Database", "kind": "database", "description": "Product catalog storage", "technologies": []string{"MongoDB"}},
			map[string]any{"name": "CDN", "kind": "external", "description": "Content delivery network", "technologies": []string{"Cloudflare"}},
		},
		"dependencies": []any{
			map[string]any{"source": "Frontend Web App", "target": "API Gateway", "kind": "REST"},
			map[string]any{"source": "API Gateway", "target": "Authentication Service", "kind": "REST"},
			map[string]any{"source": "API Gateway", "target": "Product Service", "kind": "REST"},
			map[string]any{"source": "API Gateway", "target": "Inventory Service", "kind": "REST"},
			map[string]any{"source": "Authentication Service", "target": "User Database", "kind": "Database"},
			map[string]any{"source": "Product Service", "target": "Product Database", "kind": "Database"},
			map[string]any{"source": "Inventory Service", "target": "Product Database", "kind": "Database"},
			map[string]any{"source": "Frontend Web App", "target": "CDN", "kind": "External"},
		},
		"recommendations": []string{
			"Implement API Gateway redundancy across multiple availability zones",
			"Set up database replication for Product Database",
			"Add circuit breakers between API Gateway and backend services",
			"Implement frontend caching strategy for product data",
		},
	}
}

func fakePlan() map[string]any {
	return map[string]any{
		"hypotheses": []any{
			map[string]any{"statement": "When the API Gateway experiences high latency, the frontend degrades gracefully with proper timeouts", "testApproach": "Inject latency at the API Gateway level and observe frontend behavior"},
			map[string]any{"statement": "When the Product Database becomes unavailable, the Product Service serves cached data", "testApproach": "Terminate Product Database connections and validate Product Service responses"},
			map[string]any{"statement": "When the Authentication Service is under high load, legitimate user sessions remain valid", "testApproach": "Generate high CPU load on the Authentication Service while monitoring active sessions"},
		},
		"knownUnknowns": []string{
			"Behavior under sustained high load over multiple hours",
			"Recovery characteristics after complete region failure",
			"Impact of third-party CDN disruption during peak traffic",
		},
		"unknownUnknowns": []string{
			"Potential for unforeseen cascading failures across seemingly isolated components",
			"Novel failure modes from combinations of component failures",
			"Emergent properties under extreme conditions",
		},
		"recommendations": []string{
			"Implement canary deployments to detect potential failures early",
			"Add distributed tracing to identify cascading failure patterns",
			"Establish automated game days to explore unknown failure modes",
		},
	}
}

func fakeSynthesis() map[string]any {
	return map[string]any{
		"sections": []any{
			map[string]any{"heading": "Service Overview", "body": "The service handles core business functionality for its users and integrates several backend services behind a single gateway."},
			map[string]any{"heading": "Architecture Analysis", "body": "Traffic flows from the user-facing frontend through the gateway to the backend services and their datastores."},
			map[string]any{"heading": "Resilience Testing Strategy", "body": "The chaos experiments target the highest-ranked dependency risks first, validating each steady state before and after injection."},
			map[string]any{"heading": "Availability Design", "body": "Redundancy and failover coverage should be aligned with the assigned availability tier."},
			map[string]any{"heading": "Observability Strategy", "body": "Instrument all services with distributed tracing and define SLOs from the steady-state metrics."},
			map[string]any{"heading": "Identified Risks & Mitigations", "body": "Single points of failure should be addressed with redundancy, circuit breakers, and caching."},
			map[string]any{"heading": "Recommendations & Next Steps", "body": "Execute the chaos testing plan, then schedule a follow-up review to validate improvements."},
		},
	}
}
