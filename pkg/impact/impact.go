package impact

import (
	"sort"

	"github.com/hasentry/sentry/pkg/graph"
)

// PackageImpact describes one package declared by a changed component and the
// other components sharing it.
type PackageImpact struct {
	Package    string `json:"package"`
	Constraint string `json:"constraint"`
	HighRisk   bool   `json:"high_risk"`

	// AffectedComponentIDs lists the other components declaring this
	// package, excluding the changed component that declared it.
	AffectedComponentIDs []string `json:"affected_component_ids"`
}

// Report is the result of a change-impact query.
type Report struct {
	ChangedComponentIDs []string        `json:"changed_component_ids"`
	AffectedPackages    []PackageImpact `json:"affected_packages"`

	// AffectedComponentIDs is the union of components affected through any
	// shared package, excluding the entire changed set, sorted for
	// determinism.
	AffectedComponentIDs []string `json:"affected_component_ids"`

	// HighRiskChangeCount counts (changed component, package) pairs where
	// the package is high-risk: one high-risk package touched by three
	// changed components counts three times.
	HighRiskChangeCount int `json:"high_risk_change_count"`
}

// Analyze computes the downstream impact of the changed components. Ids that
// are unknown or refer to components in error state contribute nothing and
// are silently skipped; the query itself never fails.
func Analyze(g *graph.Graph, changed []string) *Report {
	changedSet := make(map[string]bool, len(changed))
	for _, id := range changed {
		changedSet[id] = true
	}

	report := &Report{ChangedComponentIDs: changed}
	affectedUnion := make(map[string]bool)

	for _, id := range changed {
		component, ok := g.Component(id)
		if !ok || component.Failed() {
			continue
		}

		seen := make(map[string]bool, len(component.Requirements))
		for _, req := range component.Requirements {
			if seen[req.Package] {
				continue
			}
			seen[req.Package] = true

			usages := g.Usages(req.Package)
			if usages == nil {
				continue
			}

			var affected []string
			for _, usage := range usages {
				if usage.ComponentID == id {
					continue
				}
				affected = append(affected, usage.ComponentID)
				if !changedSet[usage.ComponentID] {
					affectedUnion[usage.ComponentID] = true
				}
			}

			report.AffectedPackages = append(report.AffectedPackages, PackageImpact{
				Package:              req.Package,
				Constraint:           req.Constraint,
				HighRisk:             req.HighRisk,
				AffectedComponentIDs: affected,
			})

			if req.HighRisk {
				report.HighRiskChangeCount++
			}
		}
	}

	report.AffectedComponentIDs = make([]string, 0, len(affectedUnion))
	for id := range affectedUnion {
		report.AffectedComponentIDs = append(report.AffectedComponentIDs, id)
	}
	sort.Strings(report.AffectedComponentIDs)

	return report
}
