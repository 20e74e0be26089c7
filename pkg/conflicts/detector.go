package conflicts

import (
	"sort"

	"github.com/hasentry/sentry/pkg/graph"
	"github.com/hasentry/sentry/pkg/manifest"
)

// Usage thresholds for severity escalation.
const (
	highRiskFanOutThreshold = 5
	lowRiskFanOutThreshold  = 10
)

// SharedDependency is a package declared by more than one component.
type SharedDependency struct {
	Package     string        `json:"package"`
	UsageCount  int           `json:"usage_count"`
	Usages      []graph.Usage `json:"usages"`
	HighRisk    bool          `json:"high_risk"`
	Conflicting bool          `json:"conflicting"`

	// Constraints holds the distinct non-sentinel constraint strings in
	// first-seen order.
	Constraints []string `json:"constraints"`
}

// ConflictRecord describes one conflicting shared package. AffectedComponentIDs
// is the full usage list for the package, the whole blast radius; the reason
// for the conflict is carried in DistinctConstraints.
type ConflictRecord struct {
	Package              string   `json:"package"`
	Severity             Severity `json:"severity"`
	UsageCount           int      `json:"usage_count"`
	HighRisk             bool     `json:"high_risk"`
	DistinctConstraints  []string `json:"distinct_constraints"`
	AffectedComponentIDs []string `json:"affected_component_ids"`
}

// Shared returns the packages used by more than one component, most used
// first (ties broken by package name for determinism).
func Shared(g *graph.Graph) []SharedDependency {
	var shared []SharedDependency
	for pkg, usages := range g.Index {
		if len(usages) <= 1 {
			continue
		}
		constraints := distinctConstraints(usages)
		shared = append(shared, SharedDependency{
			Package:     pkg,
			UsageCount:  len(usages),
			Usages:      usages,
			HighRisk:    usagesHighRisk(usages),
			Conflicting: len(constraints) > 1,
			Constraints: constraints,
		})
	}
	sort.Slice(shared, func(i, j int) bool {
		if shared[i].UsageCount != shared[j].UsageCount {
			return shared[i].UsageCount > shared[j].UsageCount
		}
		return shared[i].Package < shared[j].Package
	})
	return shared
}

// Detect returns a ConflictRecord for every shared package whose declaring
// components carry more than one distinct constraint string. Results follow
// the same ordering as Shared.
func Detect(g *graph.Graph) []ConflictRecord {
	var records []ConflictRecord
	for _, dep := range Shared(g) {
		if !dep.Conflicting {
			continue
		}
		affected := make([]string, 0, len(dep.Usages))
		for _, usage := range dep.Usages {
			affected = append(affected, usage.ComponentID)
		}
		records = append(records, ConflictRecord{
			Package:              dep.Package,
			Severity:             Classify(dep.HighRisk, dep.UsageCount, true),
			UsageCount:           dep.UsageCount,
			HighRisk:             dep.HighRisk,
			DistinctConstraints:  dep.Constraints,
			AffectedComponentIDs: affected,
		})
	}
	return records
}

// Classify assigns a severity to a shared package. First match wins:
//
//	high-risk with a conflict            -> high
//	conflicting (not high-risk)          -> medium
//	high-risk fan-out of 5 or more       -> medium
//	low-risk fan-out of 10 or more       -> medium
//	otherwise                            -> low
func Classify(highRisk bool, usageCount int, conflicting bool) Severity {
	switch {
	case highRisk && conflicting:
		return SeverityHigh
	case conflicting:
		return SeverityMedium
	case highRisk && usageCount >= highRiskFanOutThreshold:
		return SeverityMedium
	case usageCount >= lowRiskFanOutThreshold:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// distinctConstraints collects distinct constraint strings in first-seen
// order, skipping the "any"/"unknown" sentinels.
func distinctConstraints(usages []graph.Usage) []string {
	seen := make(map[string]bool, len(usages))
	var distinct []string
	for _, usage := range usages {
		c := usage.Constraint
		if c == manifest.ConstraintAny || c == manifest.ConstraintUnknown {
			continue
		}
		if !seen[c] {
			seen[c] = true
			distinct = append(distinct, c)
		}
	}
	return distinct
}

func usagesHighRisk(usages []graph.Usage) bool {
	for _, usage := range usages {
		if usage.HighRisk {
			return true
		}
	}
	return false
}
