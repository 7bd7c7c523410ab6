// Package discovery resolves a domain's configured base path template and
// file patterns down to one concrete, versioned input file, then reads it
// into a models.Frame (spec §4.2). It is the only package that touches the
// filesystem on the read side of a run.
package discovery

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/models"
)

// ResolveBasePath expands {YYYYMM}/{YYYY}/{MM} placeholders in template
// against period (expected in YYYYMM form), mirroring the teacher's
// preference for explicit string substitution over a templating package
// for a handful of well-known tokens.
func ResolveBasePath(template, period string) (string, error) {
	if len(period) != 6 {
		return "", fmt.Errorf("period %q must be in YYYYMM form", period)
	}
	yyyy := period[:4]
	mm := period[4:6]
	r := strings.NewReplacer("{YYYYMM}", period, "{YYYY}", yyyy, "{MM}", mm)
	return r.Replace(template), nil
}

// versionDirPattern matches version folder names like "V1", "V2", "V10".
var versionDirPattern = regexp.MustCompile(`^[Vv](\d+)$`)

// SelectVersion inspects the immediate subdirectories of basePath and
// returns the chosen version folder according to strategy (spec §4.2
// select_version). When exactly one candidate exists it is always chosen
// regardless of strategy. Ambiguity (multiple candidates under
// highest_number with a tie, or latest_modified with an exact mtime tie)
// is resolved by fallback: FallbackUseLatestModified recomputes using
// modification time, FallbackError returns a DiscoveryError.
func SelectVersion(domain, basePath string, strategy models.VersionStrategy, fallback models.VersionFallback) (models.VersionedPath, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return models.VersionedPath{}, errs.NewDiscoveryError(domain, errs.FailedVersionDetection, fmt.Sprintf("cannot list %s", basePath), err)
	}

	type candidate struct {
		name    string
		number  int
		modTime int64
	}
	var candidates []candidate
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		m := versionDirPattern.FindStringSubmatch(e.Name())
		if m == nil {
			continue
		}
		n, _ := strconv.Atoi(m[1])
		info, err := e.Info()
		var mt int64
		if err == nil {
			mt = info.ModTime().Unix()
		}
		candidates = append(candidates, candidate{name: e.Name(), number: n, modTime: mt})
	}
	if len(candidates) == 0 {
		return models.VersionedPath{}, errs.NewDiscoveryError(domain, errs.FailedVersionDetection, fmt.Sprintf("no version folders found under %s", basePath), nil)
	}
	if len(candidates) == 1 {
		c := candidates[0]
		return models.VersionedPath{AbsolutePath: filepath.Join(basePath, c.name), VersionTag: c.name, StrategyUsed: strategy}, nil
	}

	pick := func(by func(a, b candidate) bool) (candidate, bool) {
		sorted := make([]candidate, len(candidates))
		copy(sorted, candidates)
		sort.Slice(sorted, func(i, j int) bool { return by(sorted[i], sorted[j]) })
		if by(sorted[0], sorted[1]) {
			return sorted[0], true
		}
		return candidate{}, false
	}

	var chosen candidate
	var ok bool
	switch strategy {
	case models.VersionLatestModified:
		chosen, ok = pick(func(a, b candidate) bool { return a.modTime > b.modTime })
	default: // highest_number, manual falls back to highest_number when multiple exist
		chosen, ok = pick(func(a, b candidate) bool { return a.number > b.number })
	}

	if !ok {
		if fallback == models.FallbackUseLatestModified && strategy != models.VersionLatestModified {
			chosen, ok = pick(func(a, b candidate) bool { return a.modTime > b.modTime })
		}
	}
	if !ok {
		return models.VersionedPath{}, errs.NewDiscoveryError(domain, errs.FailedVersionDetection, fmt.Sprintf("ambiguous version selection under %s using strategy %s", basePath, strategy), nil)
	}
	return models.VersionedPath{AbsolutePath: filepath.Join(basePath, chosen.name), VersionTag: chosen.name, StrategyUsed: strategy}, nil
}

// MatchFiles lists basePath and returns the files whose names match at
// least one include pattern and no exclude pattern (spec §4.2
// match_files). Patterns are filepath.Match globs, matched against the
// base filename only.
func MatchFiles(domain, basePath string, include, exclude []string) ([]string, error) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return nil, errs.NewDiscoveryError(domain, errs.FailedFileMatching, fmt.Sprintf("cannot list %s", basePath), err)
	}
	var matched []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !matchesAny(include, name) {
			continue
		}
		if matchesAny(exclude, name) {
			continue
		}
		matched = append(matched, filepath.Join(basePath, name))
	}
	sort.Strings(matched)
	if len(matched) == 0 {
		return nil, errs.NewDiscoveryError(domain, errs.FailedFileMatching, fmt.Sprintf("no files under %s matched %v", basePath, include), nil)
	}
	return matched, nil
}

func matchesAny(patterns []string, name string) bool {
	for _, p := range patterns {
		if ok, err := filepath.Match(p, name); err == nil && ok {
			return true
		}
	}
	return false
}
