// Package cliflags parses the orchestrator's command-line flags into an
// Options struct, kept separate from cmd/workdatahub/main.go so the
// wiring code isn't cluttered with flag definitions (spec §6: "the CLI
// surface is intentionally thin ... stdlib flag only, no third-party CLI
// framework").
package cliflags

import (
	"flag"
	"fmt"
	"strings"
)

// Options holds every flag spec §6 names for the orchestrator CLI.
type Options struct {
	Domain       string
	Domains      string
	Period       string
	File         string
	Execute      bool
	Mode         string
	NoEnrichment bool
	SyncBudget   int
	MaxFiles     int
	NoPostHooks  bool
	CheckDB      bool
}

// Parse parses args (typically os.Args[1:]) into an Options, validating
// the mutual-exclusivity and dependency rules spec §6 states in prose
// rather than letting the flag package enforce them.
func Parse(args []string) (Options, error) {
	fs := flag.NewFlagSet("workdatahub", flag.ContinueOnError)

	var opts Options
	var planOnly bool
	fs.StringVar(&opts.Domain, "domain", "", "single domain name to run")
	fs.StringVar(&opts.Domains, "domains", "", "comma-separated list of domains to run in sequence")
	fs.StringVar(&opts.Period, "period", "", "reporting period, e.g. 202501")
	fs.StringVar(&opts.File, "file", "", "override file path; requires a single --domain")
	fs.BoolVar(&opts.Execute, "execute", false, "perform the load")
	fs.BoolVar(&planOnly, "plan-only", true, "compute the load plan without touching the database (default)")
	fs.StringVar(&opts.Mode, "mode", "append", "load mode: append, upsert, or delete_insert")
	fs.BoolVar(&opts.NoEnrichment, "no-enrichment", false, "disable company identity resolution, forcing Layer 5 only")
	fs.IntVar(&opts.SyncBudget, "sync-budget", 0, "override the EQC API call budget for this run")
	fs.IntVar(&opts.MaxFiles, "max-files", 0, "cap on files a discovery pattern may match before the run is treated as ambiguous (0 = unlimited)")
	fs.BoolVar(&opts.NoPostHooks, "no-post-hooks", false, "skip post-ETL hooks after a successful load")
	fs.BoolVar(&opts.CheckDB, "check-db", false, "verify the database connection and exit")

	if err := fs.Parse(args); err != nil {
		return Options{}, err
	}

	executeSet, planOnlySet := isFlagSet(fs, "execute"), isFlagSet(fs, "plan-only")
	switch {
	case executeSet && planOnlySet && opts.Execute == planOnly:
		return Options{}, fmt.Errorf("--execute and --plan-only are mutually exclusive")
	case !executeSet && planOnlySet:
		opts.Execute = !planOnly
	}

	if opts.CheckDB {
		return opts, nil
	}
	if opts.Domain == "" && opts.Domains == "" {
		return Options{}, fmt.Errorf("one of --domain or --domains is required")
	}
	if opts.Period == "" {
		return Options{}, fmt.Errorf("--period is required")
	}
	if opts.File != "" && (opts.Domain == "" || opts.Domains != "") {
		return Options{}, fmt.Errorf("--file requires exactly one --domain")
	}
	switch opts.Mode {
	case "append", "upsert", "delete_insert":
	default:
		return Options{}, fmt.Errorf("unsupported --mode %q", opts.Mode)
	}

	return opts, nil
}

func isFlagSet(fs *flag.FlagSet, name string) bool {
	found := false
	fs.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

// TargetDomains splits Domains on commas, falling back to a single-element
// slice of Domain when Domains is empty.
func (o Options) TargetDomains() []string {
	if o.Domains == "" {
		return []string{o.Domain}
	}
	parts := strings.Split(o.Domains, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
