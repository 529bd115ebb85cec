package validate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"

	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/filesystem"
	"github.com/simonhull/firebird-suite/weaver/pkg/history"
	"github.com/simonhull/firebird-suite/weaver/pkg/inventory"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/report"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// Snapshots reads committed file contents. history.Git implements it.
type Snapshots interface {
	Show(ctx context.Context, rev, path string) ([]byte, error)
}

// Options selects the validation mode
type Options struct {
	// Ecosystem promotes missing, invalid or stale required inventories to errors
	Ecosystem bool
}

// Validator checks a generated map
type Validator struct {
	cfg       *config.Config
	opts      Options
	snapshots Snapshots
	loader    *inventory.Loader
	walker    *filesystem.Walker
	logger    logger.Logger
}

// New creates a Validator. A nil snapshots reader uses git in the
// project root.
func New(cfg *config.Config, opts Options, snapshots Snapshots, log logger.Logger) *Validator {
	if log == nil {
		log = logger.Default()
	}
	if snapshots == nil {
		snapshots = history.NewGit(cfg.Root)
	}
	return &Validator{
		cfg:       cfg,
		opts:      opts,
		snapshots: snapshots,
		loader:    inventory.NewLoader(cfg, log),
		walker:    filesystem.NewWalker(cfg.WalkOptions(), log),
		logger:    log.WithFields(logger.F("component", "validate")),
	}
}

// Validate runs every check. The returned error is non-nil only when the
// map cannot be read; policy failures are reported through Result.Failed.
func (v *Validator) Validate(ctx context.Context) (*Result, error) {
	mapPath := v.cfg.Path(v.cfg.Outputs.MapPath)
	info, err := os.Stat(mapPath)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s: run `weaver generate` first", ErrMapNotFound, v.cfg.Outputs.MapPath)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMapNotFound, err)
	}
	m, err := report.ReadMap(mapPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %s is unreadable (%v): run `weaver generate` to rebuild it", ErrMapNotFound, v.cfg.Outputs.MapPath, err)
	}

	res := &Result{}
	v.checkStale(m, info, res)
	v.checkRegression(ctx, m, res)
	v.checkOrphans(m, res)
	v.checkInventories(res)
	v.checkSkipped(m, res)
	v.checkCoverage(m, res)
	v.checkFanout(m, res)
	v.checkDuplicates(m, res)
	v.checkExternalCounts(m, res)
	res.sort()

	v.logger.Info("Validation complete",
		logger.F("errors", res.Count(SeverityError)),
		logger.F("warnings", res.Count(SeverityWarning)),
		logger.F("info", res.Count(SeverityInfo)))
	return res, nil
}

func (v *Validator) checkStale(m *wiring.APIWiringMap, info fs.FileInfo, res *Result) {
	dirs := append([]string{v.cfg.APIRoot}, v.cfg.FunctionsDirs...)
	dirs = append(dirs, m.Metadata.ScannedDirs...)
	latest, file := v.walker.LatestModTime(v.cfg.Paths(wiring.UniqueSorted(dirs))...)
	if latest.After(info.ModTime()) {
		res.add(Issue{
			Severity: SeverityWarning,
			Code:     CodeMapStale,
			Message:  fmt.Sprintf("%s changed after the map was generated; run `weaver generate`", v.cfg.Rel(file)),
			File:     v.cfg.Rel(file),
		})
	}
}

func (v *Validator) checkRegression(ctx context.Context, m *wiring.APIWiringMap, res *Result) {
	data, err := v.snapshots.Show(ctx, "HEAD", v.cfg.Outputs.MapPath)
	if err != nil {
		v.logger.Debug("No committed map", logger.Err(err))
		res.add(Issue{Severity: SeverityInfo, Code: CodeNoHistory, Message: "no committed wiring map to compare route counts against"})
		return
	}
	prev, err := report.UnmarshalMap(data)
	if err != nil {
		res.add(Issue{Severity: SeverityInfo, Code: CodeNoHistory, Message: fmt.Sprintf("committed wiring map is unreadable: %v", err)})
		return
	}
	if m.Metadata.RouteCount < prev.Metadata.RouteCount {
		res.add(Issue{
			Severity: SeverityWarning,
			Code:     CodeRouteRegression,
			Message: fmt.Sprintf("route count dropped from %d to %d since the last commit",
				prev.Metadata.RouteCount, m.Metadata.RouteCount),
		})
	}
}

func (v *Validator) checkOrphans(m *wiring.APIWiringMap, res *Result) {
	for _, o := range m.Orphans {
		issue := Issue{
			Severity: SeverityError,
			Code:     CodeOrphanCall,
			Message:  fmt.Sprintf("%s has %d caller(s) but no route (%s). %s", o.Path, len(o.Callers), o.Classification, o.Recommendation),
		}
		if len(o.Callers) > 0 {
			issue.File, issue.Line = o.Callers[0].File, o.Callers[0].Line
		}
		if o.Excluded {
			issue.Severity = SeverityInfo
			issue.Code = CodeExcludedOrphan
			issue.Message = fmt.Sprintf("%s has no route; its callers are excluded (%s)", o.Path, o.Classification)
		}
		res.add(issue)
	}

	for _, r := range m.Metadata.UncalledRoutes {
		res.add(Issue{
			Severity: SeverityInfo,
			Code:     CodeUncalledRoute,
			Message:  fmt.Sprintf("%s has no caller (%s)", r.Path, r.Classification),
			File:     r.File,
		})
	}
}

func (v *Validator) checkInventories(res *Result) {
	loaded := v.loader.Load()
	for _, st := range loaded.Statuses {
		var code string
		switch st.Status {
		case wiring.StatusMissing:
			code = CodeInventoryMissing
		case wiring.StatusInvalid:
			code = CodeInventoryInvalid
		case wiring.StatusStale:
			code = CodeInventoryStale
		default:
			continue
		}
		severity := SeverityWarning
		if v.opts.Ecosystem && st.Required {
			severity = SeverityError
		}
		res.add(Issue{
			Severity: severity,
			Code:     code,
			Message:  fmt.Sprintf("%s inventory %s is %s: %s", st.Repo, st.Inventory, st.Status, st.Message),
			File:     st.Inventory,
			Repo:     st.Repo,
		})
	}
}

func (v *Validator) checkSkipped(m *wiring.APIWiringMap, res *Result) {
	n := len(m.SkippedCalls)
	if limit := v.cfg.Thresholds.SkippedCallsWarning; limit > 0 && n > limit {
		res.add(Issue{
			Severity: SeverityWarning,
			Code:     CodeSkippedCallsHigh,
			Message:  fmt.Sprintf("%d calls could not be resolved statically (threshold %d)", n, limit),
		})
	}
	for _, s := range m.SkippedCalls {
		res.add(Issue{
			Severity: SeverityInfo,
			Code:     CodeSkippedCall,
			Message:  fmt.Sprintf("unresolved call (%s): %s", s.Reason, s.Raw),
			File:     s.File,
			Line:     s.Line,
		})
	}
}

func (v *Validator) checkCoverage(m *wiring.APIWiringMap, res *Result) {
	for _, g := range m.E2EGaps {
		res.add(Issue{
			Severity: SeverityWarning,
			Code:     CodeE2EGap,
			Message:  fmt.Sprintf("mock %q resolves to %s, which no route serves", g.Pattern, g.NormalizedPath),
			File:     g.File,
			Line:     g.Line,
		})
	}
}

func (v *Validator) checkFanout(m *wiring.APIWiringMap, res *Result) {
	limit := v.cfg.Thresholds.OutboundFanout
	if limit <= 0 {
		return
	}
	for _, set := range []map[string]*wiring.RouteEntry{m.Routes, m.ServerlessFunctions} {
		for _, e := range set {
			if n := len(e.Outbound.Tables); n > limit {
				res.add(Issue{
					Severity: SeverityWarning,
					Code:     CodeHighFanout,
					Message:  fmt.Sprintf("%s touches %d tables (threshold %d)", e.Path, n, limit),
					File:     e.File,
				})
			}
		}
	}
}

func (v *Validator) checkDuplicates(m *wiring.APIWiringMap, res *Result) {
	for _, d := range m.Metadata.DuplicateRoutes {
		res.add(Issue{
			Severity: SeverityWarning,
			Code:     CodeDuplicateRoute,
			Message:  fmt.Sprintf("%s is also defined by %s; only %s is used", d.Path, d.Ignored, d.Kept),
			File:     d.Ignored,
		})
	}
}

func (v *Validator) checkExternalCounts(m *wiring.APIWiringMap, res *Result) {
	if n := m.Metadata.UnclassifiedExternalCalls; n > 0 {
		res.add(Issue{
			Severity: SeverityInfo,
			Code:     CodeUnclassifiedCalls,
			Message:  fmt.Sprintf("%d call(s) to URLs outside external_bases were not checked", n),
		})
	}
	n := m.Metadata.UnverifiedExternalCalls
	if n == 0 {
		return
	}

	perRepo := make(map[string]int)
	for _, g := range m.ExternalCalls {
		if g.Status == wiring.ExternalUnverified {
			perRepo[g.Repo] += len(g.Callers)
		}
	}
	if len(perRepo) == 0 {
		res.add(Issue{
			Severity: SeverityInfo,
			Code:     CodeUnverifiedCalls,
			Message:  fmt.Sprintf("%d external call(s) target repos with no loaded inventory", n),
		})
		return
	}
	repos := make([]string, 0, len(perRepo))
	for repo := range perRepo {
		repos = append(repos, repo)
	}
	sort.Strings(repos)
	for _, repo := range repos {
		res.add(Issue{
			Severity: SeverityInfo,
			Code:     CodeUnverifiedCalls,
			Message:  fmt.Sprintf("%d external call(s) to %s could not be checked: no inventory loaded", perRepo[repo], repo),
			Repo:     repo,
		})
	}
}
