// Package registry maps domain names to their execution capabilities and
// service functions (spec §4.9). No component may branch on a domain name
// string outside this package — every dispatch goes through JobRegistry or
// DomainServiceRegistry, adapted from the teacher's registry-over-if/elif
// discipline (internal/domain/services' dependency-injected service
// pattern, generalized here into an explicit name→entry map).
package registry

import (
	"context"
	"fmt"

	"github.com/hashicorp/go-multierror"

	"github.com/linsuisheng034/workdatahub/internal/models"
)

// ConfiguredDomains is the subset of *config.Store that ValidateStartup
// needs, kept as an interface so it can be exercised without loading real
// YAML files.
type ConfiguredDomains interface {
	DomainNames() []string
}

// JobCapabilities describes what a domain's job supports (spec §4.9:
// "JobRegistry: domain_name → { single_file_job, multi_file_job?,
// supports_backfill, supports_enrichment }").
type JobCapabilities struct {
	SupportsMultiFile bool
	SupportsBackfill  bool
	SupportsEnrichment bool
}

// JobRegistry maps a domain name to its job capabilities.
type JobRegistry struct {
	entries map[string]JobCapabilities
}

// NewJobRegistry builds an empty JobRegistry.
func NewJobRegistry() *JobRegistry {
	return &JobRegistry{entries: make(map[string]JobCapabilities)}
}

// Register adds or replaces domain's capabilities.
func (r *JobRegistry) Register(domain string, caps JobCapabilities) {
	r.entries[domain] = caps
}

// Lookup returns domain's capabilities, or false if unregistered.
func (r *JobRegistry) Lookup(domain string) (JobCapabilities, bool) {
	caps, ok := r.entries[domain]
	return caps, ok
}

// Names returns every registered domain name.
func (r *JobRegistry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// ServiceFunc is a domain's process step — the pipeline.Engine.Run call
// that transforms a discovered Frame into a Gold Frame, adapted to each
// domain's RowIn/RowOut shape by the registered closure itself rather than
// by any caller-side branching (spec §4.9 generic_process_domain_op).
type ServiceFunc func(ctx context.Context, pc *models.PipelineContext, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error)

// DomainService is one domain's registered behavior and metadata (spec
// §4.9: "DomainServiceRegistry: domain_name → { service_fn,
// supports_enrichment, display_name }").
type DomainService struct {
	ServiceFn          ServiceFunc
	SupportsEnrichment bool
	DisplayName        string
}

// DomainServiceRegistry maps a domain name to its DomainService.
type DomainServiceRegistry struct {
	entries map[string]DomainService
}

// NewDomainServiceRegistry builds an empty DomainServiceRegistry.
func NewDomainServiceRegistry() *DomainServiceRegistry {
	return &DomainServiceRegistry{entries: make(map[string]DomainService)}
}

// Register adds or replaces domain's service entry.
func (r *DomainServiceRegistry) Register(domain string, svc DomainService) {
	r.entries[domain] = svc
}

// Lookup returns domain's DomainService, or false if unregistered.
func (r *DomainServiceRegistry) Lookup(domain string) (DomainService, bool) {
	svc, ok := r.entries[domain]
	return svc, ok
}

// Names returns every registered domain name.
func (r *DomainServiceRegistry) Names() []string {
	names := make([]string, 0, len(r.entries))
	for name := range r.entries {
		names = append(names, name)
	}
	return names
}

// Dispatch is generic_process_domain_op (spec §4.9): it looks domain up in
// the registry and invokes its registered ServiceFunc. It never branches on
// the domain name itself — that's the entire point of the registry.
func (r *DomainServiceRegistry) Dispatch(ctx context.Context, domain string, pc *models.PipelineContext, frame *models.Frame) (*models.Frame, []models.RejectionRecord, error) {
	svc, ok := r.Lookup(domain)
	if !ok {
		return nil, nil, fmt.Errorf("domain %q has no registered service function", domain)
	}
	return svc.ServiceFn(ctx, pc, frame)
}

// ValidateStartup enforces the config/code contract (spec §4.9: "every
// domain present in data_sources.yml must be registered in both [job and
// service registries]; unknown registered domains are warnings"). It
// returns a *multierror.Error so every missing registration is reported at
// once rather than one at a time across repeated runs.
func ValidateStartup(cfg ConfiguredDomains, jobs *JobRegistry, services *DomainServiceRegistry, warn func(msg string)) error {
	var result *multierror.Error

	configured := make(map[string]bool)
	for _, name := range cfg.DomainNames() {
		configured[name] = true
		if _, ok := jobs.Lookup(name); !ok {
			result = multierror.Append(result, fmt.Errorf("domain %q is configured but has no JobRegistry entry", name))
		}
		if _, ok := services.Lookup(name); !ok {
			result = multierror.Append(result, fmt.Errorf("domain %q is configured but has no DomainServiceRegistry entry", name))
		}
	}

	if warn != nil {
		for _, name := range jobs.Names() {
			if !configured[name] {
				warn(fmt.Sprintf("domain %q is registered in JobRegistry but absent from data_sources.yml", name))
			}
		}
		for _, name := range services.Names() {
			if !configured[name] {
				warn(fmt.Sprintf("domain %q is registered in DomainServiceRegistry but absent from data_sources.yml", name))
			}
		}
	}

	return result.ErrorOrNil()
}
