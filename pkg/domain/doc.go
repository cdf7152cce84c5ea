// Package domain defines the core business types for the perimeter-enforced
// financial advisor pipeline.
//
// This package contains pure domain logic with ZERO external dependencies
// outside the Go standard library. All types in this package are:
//
// - Independent of infrastructure (no HTTP, no decision-point client)
// - Technology-agnostic (no framework coupling)
// - Testable in isolation without mocks
//
// Other packages (pdp, perimeter, agent, knowledge) implement behaviour over
// these types and depend on them. The dependency direction is always:
//
//	Infrastructure → Domain (CORRECT)
//	Domain → Infrastructure (FORBIDDEN)
package domain
