// Package domains wires each ETL domain's concrete row types and step
// sequence into the registries defined in internal/registry (spec §4.9:
// "no hard-coded per-domain branches exist" — this package is where the
// per-domain specifics live, behind the registry's generic dispatch).
package domains

import (
	"github.com/linsuisheng034/workdatahub/internal/enrichment"
	"github.com/linsuisheng034/workdatahub/internal/observability"
	"github.com/linsuisheng034/workdatahub/internal/pipeline"
	"github.com/linsuisheng034/workdatahub/internal/registry"
)

// Dependencies are the shared, already-constructed collaborators every
// domain's step sequence draws on. Building these once at startup and
// passing them in here keeps domain wiring free of its own construction
// logic.
type Dependencies struct {
	Resolver *enrichment.Resolver
	Logger   observability.Logger
	Metrics  *observability.Metrics
	Mode     pipeline.ErrorMode
}

// RegisterAll wires every known domain into jobs and services. Called once
// at startup after config and the database are available.
func RegisterAll(jobs *registry.JobRegistry, services *registry.DomainServiceRegistry, deps Dependencies) {
	RegisterAnnuityPerformance(jobs, services, deps)
	RegisterAnnuityIncome(jobs, services, deps)
}
