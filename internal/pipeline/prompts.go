package pipeline

// prologue is shared by every stage prompt. The pipeline imposes its schema on
// the model; anything that does not parse is re-prompted once, then replaced
// by deterministic fallback content.
const prologue = `You are an SRE expert preparing a Production Readiness Review.
You MUST output STRICT JSON that exactly matches the schema below.
No comments, no trailing commas, no backticks, no prose outside the JSON object.
If something is unknown, return an empty array or empty string explicitly.
Do not invent components that are not visible in the provided material.`

const promptExtract = prologue + `

Analyze the attached system architecture diagram using the project metadata in
the input JSON. Identify every component, classify it, and map the
dependencies between components.

Schema:
{
  "components": [
    {
      "name": "string",                 // unique within the diagram
      "kind": "ui|api|service|database|external",
      "description": "string",
      "technologies": ["string"]
    }
  ],
  "dependencies": [
    {"source": "string", "target": "string", "kind": "string"}   // source/target MUST be component names from "components"
  ],
  "recommendations": ["string"]         // reliability improvements, most important first
}

Rules:
- Every dependency endpoint must exactly match a component name.
- Classify anything user-facing as "ui", request routers as "api", data stores
  as "database", third-party systems as "external", everything else "service".
- Keep descriptions to one sentence.`

const promptPlan = prologue + `

Given the extracted architecture in the input JSON, propose the speculative
part of a chaos testing plan. Deterministic parts (risk ranking, steady
states, experiments, blast radius) are derived separately; you provide the
judgment calls.

Schema:
{
  "hypotheses": [
    {"statement": "string", "testApproach": "string"}
  ],
  "knownUnknowns": ["string"],          // plausible failure modes that need experiments to characterize
  "unknownUnknowns": ["string"],        // classes of surprise worth probing with game days
  "recommendations": ["string"]
}

Rules:
- Ground every hypothesis in a component or dependency from the input.
- knownUnknowns and unknownUnknowns are speculation; do not restate the
  single points of failure listed in the input.`

const promptSynthesize = prologue + `

Write the narrative prose for a Production Readiness Review from the
architecture graph and chaos test plan in the input JSON.

Schema:
{
  "sections": [
    {"heading": "string", "body": "string"}
  ]
}

Rules:
- Produce exactly one entry per requested heading, in the requested order.
- Bodies are plain text paragraphs; no markdown headings inside bodies.
- State facts only from the input; structural numbers (tier, counts) are
  corrected from the authoritative artifacts afterwards, so do not pad them.`
