package report

import (
	"strings"

	"github.com/simonhull/firebird-suite/weaver/pkg/config"
	"github.com/simonhull/firebird-suite/weaver/pkg/fileops"
	"github.com/simonhull/firebird-suite/weaver/pkg/wiring"
)

// Artifacts are the rendered outputs of one generate run
type Artifacts struct {
	Map      []byte
	Orphans  []byte
	Coverage []byte
}

// Render produces the map and both Markdown reports
func Render(m *wiring.APIWiringMap, cfg *config.Config) (*Artifacts, error) {
	data, err := MarshalMap(m)
	if err != nil {
		return nil, err
	}
	opts := Options{DisplayCap: cfg.Thresholds.ReportDisplayCap}
	return &Artifacts{
		Map:      data,
		Orphans:  []byte(OrphanReport(m, opts)),
		Coverage: []byte(CoverageReport(m, opts)),
	}, nil
}

// Stage adds the artifacts to tx. withHTML also stages an .html rendering
// next to each Markdown report.
func (a *Artifacts) Stage(tx *fileops.Transaction, cfg *config.Config, withHTML bool) error {
	tx.AddFile(cfg.Path(cfg.Outputs.MapPath), a.Map, 0644)
	tx.AddFile(cfg.Path(cfg.Outputs.OrphanReport), a.Orphans, 0644)
	tx.AddFile(cfg.Path(cfg.Outputs.CoverageReport), a.Coverage, 0644)
	if !withHTML {
		return nil
	}

	reports := []struct {
		path, title string
		body        []byte
	}{
		{cfg.Outputs.OrphanReport, "API Orphan Report", a.Orphans},
		{cfg.Outputs.CoverageReport, "API E2E Coverage Report", a.Coverage},
	}
	for _, r := range reports {
		page, err := HTML(r.title, r.body)
		if err != nil {
			return err
		}
		tx.AddFile(cfg.Path(htmlPath(r.path)), page, 0644)
	}
	return nil
}

func htmlPath(mdPath string) string {
	return strings.TrimSuffix(mdPath, ".md") + ".html"
}
