package discovery

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/linsuisheng034/workdatahub/internal/errs"
	"github.com/linsuisheng034/workdatahub/internal/models"
	"github.com/linsuisheng034/workdatahub/internal/observability"
)

// Service resolves and reads a domain's input file for one run.
type Service struct {
	logger   observability.Logger
	MaxFiles int
}

// NewService constructs a discovery Service. A nil logger is replaced with
// a no-op one so callers in tests don't need to thread one through.
func NewService(logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NoopLogger{}
	}
	return &Service{logger: logger}
}

// Discover resolves cfg's base path template against period, selects a
// version folder (when the domain directory is versioned), matches a file
// within it, and reads the configured sheet into a Frame (spec §4.2
// end-to-end discovery contract). overrideFile, when non-empty, bypasses
// pattern matching and version selection entirely and is read as-is — the
// CLI's --file escape hatch (spec §6). allowMultiFile permits more than one
// matched file for domains registered with JobCapabilities.SupportsMultiFile
// (spec §4.9 multi_file_job): their rows are read per file, in sorted file
// order, and concatenated into one Frame before any validation runs, rather
// than validated per file (the Open Question SPEC_FULL.md names is decided
// here; see DESIGN.md). Domains without that capability still treat more
// than one match as an ambiguous match, per spec §4.2 step 5.
func (s *Service) Discover(cfg models.DomainConfig, period, overrideFile string, allowMultiFile bool) (*models.DiscoveryResult, error) {
	start := time.Now()

	if overrideFile != "" {
		frame, err := ReadSheet(cfg.Name, overrideFile, cfg.SheetSelector)
		if err != nil {
			return nil, err
		}
		return &models.DiscoveryResult{
			Frame:        frame,
			FilePath:     overrideFile,
			SheetOrTable: sheetLabel(cfg.SheetSelector),
			RowCount:     len(frame.Rows),
			DurationMS:   time.Since(start).Milliseconds(),
		}, nil
	}

	basePath, err := ResolveBasePath(cfg.BasePathTemplate, period)
	if err != nil {
		return nil, err
	}

	versionTag := ""
	resolvedDir := basePath
	if cfg.VersionStrategy != "" {
		vp, err := SelectVersion(cfg.Name, basePath, cfg.VersionStrategy, cfg.VersionFallback)
		if err == nil {
			resolvedDir = vp.AbsolutePath
			versionTag = vp.VersionTag
		} else if cfg.VersionFallback != models.FallbackUseLatestModified {
			// A directory with no version folders at all is read directly,
			// with no version tag; any other selection failure is returned.
			entries, _ := os.ReadDir(basePath)
			for _, e := range entries {
				if e.IsDir() && versionDirPattern.MatchString(e.Name()) {
					return nil, err
				}
			}
		}
	}

	files, err := MatchFiles(cfg.Name, resolvedDir, cfg.IncludePatterns, cfg.ExcludePatterns)
	if err != nil {
		return nil, err
	}
	if s.MaxFiles > 0 && len(files) > s.MaxFiles {
		return nil, errs.NewDiscoveryError(cfg.Name, errs.FailedFileMatching,
			fmt.Sprintf("%d files under %s matched the pattern, exceeding --max-files=%d", len(files), resolvedDir, s.MaxFiles), nil)
	}
	// Exactly one candidate must remain after matching, unless the domain's
	// job capabilities allow multiple (spec §4.2 step 5; §4.9 multi_file_job).
	if len(files) > 1 && !allowMultiFile {
		return nil, errs.NewDiscoveryError(cfg.Name, errs.FailedAmbiguousMatch,
			fmt.Sprintf("%d files matched under %s, expected exactly one: %v", len(files), resolvedDir, files), nil)
	}

	frame, err := readAndConcat(cfg, files)
	if err != nil {
		return nil, err
	}
	chosen := files[0]
	if len(files) > 1 {
		chosen = strings.Join(files, ",")
	}

	s.logger.Info(context.Background(), "discovery.read", map[string]interface{}{
		"domain":  cfg.Name,
		"file":    chosen,
		"version": versionTag,
		"rows":    len(frame.Rows),
	})

	return &models.DiscoveryResult{
		Frame:        frame,
		FilePath:     chosen,
		VersionTag:   versionTag,
		SheetOrTable: sheetLabel(cfg.SheetSelector),
		RowCount:     len(frame.Rows),
		DurationMS:   time.Since(start).Milliseconds(),
	}, nil
}

// readAndConcat reads every file in files with cfg's sheet selector and
// concatenates their rows into one Frame, using the first file's column
// order. A single-file domain always calls this with a one-element slice.
func readAndConcat(cfg models.DomainConfig, files []string) (*models.Frame, error) {
	first, err := ReadSheet(cfg.Name, files[0], cfg.SheetSelector)
	if err != nil {
		return nil, err
	}
	if len(files) == 1 {
		return first, nil
	}
	rows := make([]models.Row, 0, len(first.Rows))
	rows = append(rows, first.Rows...)
	for _, f := range files[1:] {
		frame, err := ReadSheet(cfg.Name, f, cfg.SheetSelector)
		if err != nil {
			return nil, err
		}
		rows = append(rows, frame.Rows...)
	}
	return models.NewFrame(first.Columns, rows), nil
}

func sheetLabel(sel models.SheetSelector) string {
	if sel.Kind == models.SheetByIndex {
		return "index:" + strconv.Itoa(sel.Index)
	}
	return sel.Name
}
