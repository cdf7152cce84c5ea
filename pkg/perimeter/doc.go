// Package perimeter implements the four sequential authorization gates
// wrapped around the advisor pipeline: prompt filter, data protection,
// external access, and response enforcement.
//
// Each gate is a thin orchestration over a single decision-point check plus
// stage-specific post-processing. Gates never cache decisions and never share
// state; a denial at any gate is terminal for the request. The fixed order is
// prompt → data → action → response, enforced by the agent orchestrator.
package perimeter
