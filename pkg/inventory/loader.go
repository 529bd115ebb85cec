package inventory

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"sort"
	"strings"

	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/filesystem"
	"github.com/simonhull/firebird-suite/weaver/pkg/logger"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// Loaded is the outcome of loading every configured source
type Loaded struct {
	Statuses []wiring.SourceStatus
	Routes   []wiring.MergedRoute
}

// Status returns the status recorded for repo
func (l *Loaded) Status(repo string) (wiring.SourceStatus, bool) {
	for _, s := range l.Statuses {
		if s.Repo == repo {
			return s, true
		}
	}
	return wiring.SourceStatus{}, false
}

// Loader loads external inventories
type Loader struct {
	cfg    *config.Config
	walker *filesystem.Walker
	logger logger.Logger
}

// NewLoader creates a Loader
func NewLoader(cfg *config.Config, log logger.Logger) *Loader {
	if log == nil {
		log = logger.Default()
	}
	return &Loader{
		cfg:    cfg,
		walker: filesystem.NewWalker(cfg.WalkOptions(), log),
		logger: log.WithFields(logger.F("component", "inventory")),
	}
}

// Load loads every configured external source in configuration order
func (l *Loader) Load() *Loaded {
	res := &Loaded{
		Statuses: make([]wiring.SourceStatus, 0, len(l.cfg.ExternalSources)),
		Routes:   make([]wiring.MergedRoute, 0),
	}
	for _, src := range l.cfg.ExternalSources {
		status, routes := l.LoadSource(src)
		res.Statuses = append(res.Statuses, status)
		res.Routes = append(res.Routes, routes...)
	}
	return res
}

// LoadSource loads one source. Routes are returned only for loaded and
// stale inventories.
func (l *Loader) LoadSource(src config.ExternalSource) (wiring.SourceStatus, []wiring.MergedRoute) {
	status := wiring.SourceStatus{
		Repo:      src.Repo,
		Inventory: src.Inventory,
		Required:  src.Required,
	}
	log := l.logger.WithFields(logger.F("repo", src.Repo), logger.F("inventory", src.Inventory))
	path := l.cfg.Path(src.Inventory)

	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		status.Status = wiring.StatusMissing
		status.Message = "inventory file not found"
		log.Warn("External inventory missing")
		return status, nil
	}
	if err != nil {
		return l.invalid(log, status, fmt.Sprintf("cannot stat inventory: %v", err)), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return l.invalid(log, status, fmt.Sprintf("cannot read inventory: %v", err)), nil
	}

	var inv wiring.APIInventory
	if err := json.Unmarshal(data, &inv); err != nil {
		return l.invalid(log, status, fmt.Sprintf("malformed JSON: %v", err)), nil
	}
	switch {
	case inv.SchemaVersion == "":
		return l.invalid(log, status, "missing schema_version"), nil
	case !Supports(l.cfg.SupportedSchemaVersions, inv.SchemaVersion):
		return l.invalid(log, status, fmt.Sprintf("unsupported schema_version %q (supported: %s)",
			inv.SchemaVersion, strings.Join(l.cfg.SupportedSchemaVersions, ", "))), nil
	case inv.Repo != src.Repo:
		return l.invalid(log, status, fmt.Sprintf("inventory repo %q does not match configured repo %q", inv.Repo, src.Repo)), nil
	}

	routes := make([]wiring.MergedRoute, 0, len(inv.Routes))
	for i, r := range inv.Routes {
		if !strings.HasPrefix(r.Path, "/") {
			log.Warn("Skipping inventory route with invalid path", logger.F("index", i), logger.F("path", r.Path))
			continue
		}
		routes = append(routes, Merge(r, src.Repo))
	}
	sort.Slice(routes, func(i, j int) bool { return routes[i].Path < routes[j].Path })

	status.Status = wiring.StatusLoaded
	status.RouteCount = len(routes)

	if src.SourceDir != "" {
		latest, newest := l.walker.LatestModTime(l.cfg.Path(src.SourceDir))
		if latest.After(info.ModTime()) {
			status.Status = wiring.StatusStale
			status.Message = fmt.Sprintf("inventory is older than %s", l.cfg.Rel(newest))
			log.Warn("External inventory is stale", logger.F("newest_source", l.cfg.Rel(newest)))
		}
	}

	log.Debug("External inventory loaded", logger.F("routes", len(routes)), logger.F("status", status.Status))
	return status, routes
}

func (l *Loader) invalid(log logger.Logger, status wiring.SourceStatus, msg string) wiring.SourceStatus {
	status.Status = wiring.StatusInvalid
	status.Message = msg
	log.Warn("External inventory invalid", logger.F("reason", msg))
	return status
}

// Merge converts an inventory route into a merged route owned by repo
func Merge(r wiring.RouteDefinition, repo string) wiring.MergedRoute {
	methods := wiring.SortMethods(r.Methods)
	if len(methods) == 0 {
		methods = []string{"GET"}
	}
	typ := r.Type
	if typ == "" {
		typ = wiring.RouteExternal
	}
	return wiring.MergedRoute{
		Path:    r.Path,
		Methods: methods,
		Type:    typ,
		Repo:    repo,
		BaseURL: r.BaseURL,
	}
}
