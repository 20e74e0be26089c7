package updates

import (
	"fmt"
	"strings"

	"github.com/hasentry/sentry/pkg/conflicts"
	"github.com/hasentry/sentry/pkg/graph"
	"github.com/hasentry/sentry/pkg/observability"
)

// PendingUpdate is one available update as reported by the update source.
type PendingUpdate struct {
	Name           string `json:"name"`
	Slug           string `json:"slug"`
	CurrentVersion string `json:"current_version"`
	LatestVersion  string `json:"latest_version"`
	Repository     string `json:"repository,omitempty"`
	Description    string `json:"description,omitempty"`
}

// Issue is one concern raised by the analysis.
type Issue struct {
	Severity    conflicts.Severity `json:"severity"`
	Component   string             `json:"component"`
	Description string             `json:"description"`
	Impact      string             `json:"impact"`
}

// Analysis is the outcome of analyzing a set of pending updates.
type Analysis struct {
	Safe            bool     `json:"safe"`
	Confidence      float64  `json:"confidence"`
	Issues          []Issue  `json:"issues"`
	Recommendations []string `json:"recommendations"`
	Summary         string   `json:"summary"`

	// AIAssisted is false for heuristic results; the model-assisted
	// analyzer sets it when a language model produced the analysis.
	AIAssisted bool `json:"ai_assisted"`
}

// criticalService describes a well-known stateful service whose updates
// deserve extra caution.
type criticalService struct {
	warning  string
	affected []string
}

// criticalServices maps identifier substrings to known risky services:
// database engines, the MQTT broker and the flow-automation engine.
var criticalServices = map[string]criticalService{
	"mariadb": {
		warning:  "Database schema changes may require migration",
		affected: []string{"homeassistant", "influxdb", "grafana"},
	},
	"postgresql": {
		warning:  "PostgreSQL major upgrades require data migration",
		affected: []string{"homeassistant", "grafana", "pgadmin"},
	},
	"mosquitto": {
		warning:  "MQTT broker changes may affect connected IoT devices",
		affected: []string{"zigbee2mqtt", "zwave", "node-red"},
	},
	"node-red": {
		warning: "Node-RED major updates may break custom flows",
	},
}

// Volume and jump thresholds.
const (
	volumeHighThreshold   = 15
	volumeMediumThreshold = 10
	customVolumeThreshold = 5
	majorJumpThreshold    = 2

	confidenceBase  = 0.65
	confidenceFloor = 0.5
	confidenceCeil  = 0.75
)

// Analyzer applies the heuristic rule set to pending updates.
type Analyzer struct {
	logger *observability.Logger
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(logger *observability.Logger) *Analyzer {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Analyzer{logger: logger}
}

// Analyze runs every heuristic rule over the pending add-on and custom
// component updates. The rules are additive and never short-circuit each
// other. A graph snapshot, when supplied, enables the shared-dependency
// amplification rule; nil disables it. Analyze never fails: version parse
// problems degrade to "no signal".
func (a *Analyzer) Analyze(addonUpdates, customUpdates []PendingUpdate, g *graph.Graph) *Analysis {
	var issues []Issue
	var recommendations []string
	total := len(addonUpdates) + len(customUpdates)

	add := func(newIssues []Issue, newRecs []string) {
		issues = append(issues, newIssues...)
		recommendations = append(recommendations, newRecs...)
	}

	add(a.checkVolume(total))
	add(a.checkCriticalServices(addonUpdates))
	add(a.checkSimultaneousCriticals(addonUpdates))
	add(a.checkCustomUpdates(customUpdates))
	add(a.checkBreakingChanges(addonUpdates, customUpdates))
	if g != nil {
		add(a.checkSharedDependencies(g))
	}

	criticalCount := countSeverity(issues, conflicts.SeverityCritical)
	highCount := countSeverity(issues, conflicts.SeverityHigh)

	safe := criticalCount == 0 && highCount == 0

	if len(recommendations) == 0 {
		recommendations = append(recommendations,
			"No specific concerns detected. Updates appear safe to install.",
			"Always back up your system before major updates.")
	}

	return &Analysis{
		Safe:            safe,
		Confidence:      heuristicConfidence(len(issues), total),
		Issues:          issues,
		Recommendations: dedupeStrings(recommendations),
		Summary:         summarize(total, issues, safe),
	}
}

// checkVolume flags update sets too large to troubleshoot comfortably.
func (a *Analyzer) checkVolume(total int) ([]Issue, []string) {
	switch {
	case total > volumeHighThreshold:
		return []Issue{{
				Severity:    conflicts.SeverityHigh,
				Component:   "update_volume",
				Description: fmt.Sprintf("Very large number of updates (%d) available", total),
				Impact:      "High risk of multiple breaking changes and difficult troubleshooting",
			}}, []string{
				"Install updates in smaller batches (5-10 at a time)",
				"Test system functionality between batches",
			}
	case total > volumeMediumThreshold:
		return []Issue{{
				Severity:    conflicts.SeverityMedium,
				Component:   "update_volume",
				Description: fmt.Sprintf("Large number of updates (%d) available", total),
				Impact:      "Installing many updates at once may complicate troubleshooting",
			}}, []string{
				"Consider installing updates in smaller batches",
			}
	}
	return nil, nil
}

// checkCriticalServices flags updates to well-known stateful services. A
// major version bump is high severity, anything else medium.
func (a *Analyzer) checkCriticalServices(addonUpdates []PendingUpdate) ([]Issue, []string) {
	var issues []Issue
	var recs []string

	for _, update := range addonUpdates {
		service, ok := matchCriticalService(update)
		if !ok {
			continue
		}
		current := ParseVersion(update.CurrentVersion)
		latest := ParseVersion(update.LatestVersion)

		if IsMajorBump(current, latest) {
			issues = append(issues, Issue{
				Severity:    conflicts.SeverityHigh,
				Component:   update.Name,
				Description: fmt.Sprintf("Major version update: %s -> %s", update.CurrentVersion, update.LatestVersion),
				Impact:      service.warning,
			})
			recs = append(recs,
				fmt.Sprintf("Back up before updating %s", update.Name),
				fmt.Sprintf("Review %s changelog for breaking changes", update.Name),
				fmt.Sprintf("Plan for potential downtime with %s", update.Name))
			if len(service.affected) > 0 {
				recs = append(recs, fmt.Sprintf("Check compatibility with: %s", strings.Join(service.affected, ", ")))
			}
		} else {
			issues = append(issues, Issue{
				Severity:    conflicts.SeverityMedium,
				Component:   update.Name,
				Description: fmt.Sprintf("Core service update: %s -> %s", update.CurrentVersion, update.LatestVersion),
				Impact:      "May require dependent service restarts",
			})
			recs = append(recs, fmt.Sprintf("Monitor %s after update", update.Name))
		}
	}
	return issues, recs
}

// checkSimultaneousCriticals raises one extra issue when two or more critical
// services update together.
func (a *Analyzer) checkSimultaneousCriticals(addonUpdates []PendingUpdate) ([]Issue, []string) {
	var names []string
	for _, update := range addonUpdates {
		if _, ok := matchCriticalService(update); ok {
			names = append(names, update.Name)
		}
	}
	if len(names) < 2 {
		return nil, nil
	}
	return []Issue{{
			Severity:    conflicts.SeverityHigh,
			Component:   "multiple_critical_updates",
			Description: fmt.Sprintf("Multiple critical services updating: %s", strings.Join(names, ", ")),
			Impact:      "Simultaneous updates increase risk of cascading failures",
		}}, []string{
			"Update critical services one at a time",
			"Verify each service is working before updating the next",
		}
}

// checkCustomUpdates covers custom components, which share the platform's
// Python environment and therefore its dependency space.
func (a *Analyzer) checkCustomUpdates(customUpdates []PendingUpdate) ([]Issue, []string) {
	var issues []Issue
	var recs []string

	if len(customUpdates) > customVolumeThreshold {
		issues = append(issues, Issue{
			Severity:    conflicts.SeverityMedium,
			Component:   "custom_component_updates",
			Description: fmt.Sprintf("%d custom components have updates", len(customUpdates)),
			Impact:      "Multiple custom components updating may have dependency conflicts",
		})
		recs = append(recs,
			"Update custom components one at a time",
			"Check platform logs for dependency warnings")
	}

	for _, update := range customUpdates {
		current := ParseVersion(update.CurrentVersion)
		latest := ParseVersion(update.LatestVersion)
		if IsMajorBump(current, latest) {
			issues = append(issues, Issue{
				Severity:    conflicts.SeverityMedium,
				Component:   update.Name,
				Description: fmt.Sprintf("Major custom component update: %s -> %s", update.CurrentVersion, update.LatestVersion),
				Impact:      "Breaking changes may affect automations or dashboards",
			})
			recs = append(recs, fmt.Sprintf("Review %s release notes before updating", update.Name))
		}
	}
	return issues, recs
}

// checkBreakingChanges flags pre-release versions and large major-version
// jumps across both update lists.
func (a *Analyzer) checkBreakingChanges(addonUpdates, customUpdates []PendingUpdate) ([]Issue, []string) {
	var issues []Issue
	var recs []string

	all := make([]PendingUpdate, 0, len(addonUpdates)+len(customUpdates))
	all = append(all, addonUpdates...)
	all = append(all, customUpdates...)

	for _, update := range all {
		if IsPrerelease(update.LatestVersion) {
			issues = append(issues, Issue{
				Severity:    conflicts.SeverityHigh,
				Component:   update.Name,
				Description: fmt.Sprintf("Pre-release version: %s", update.LatestVersion),
				Impact:      "Beta/RC versions may be unstable",
			})
			recs = append(recs, fmt.Sprintf("Wait for a stable release of %s", update.Name))
		}

		current := ParseVersion(update.CurrentVersion)
		latest := ParseVersion(update.LatestVersion)
		if MajorJump(current, latest) >= majorJumpThreshold {
			issues = append(issues, Issue{
				Severity:    conflicts.SeverityMedium,
				Component:   update.Name,
				Description: fmt.Sprintf("Large version jump: %s -> %s", update.CurrentVersion, update.LatestVersion),
				Impact:      "Skipping versions may miss important migration steps",
			})
			recs = append(recs, fmt.Sprintf("Check if %s requires incremental updates", update.Name))
		}
	}
	return issues, recs
}

// checkSharedDependencies amplifies risk using the graph: a high-risk package
// shared across many components is an issue regardless of whether a specific
// pending update touches it directly.
func (a *Analyzer) checkSharedDependencies(g *graph.Graph) ([]Issue, []string) {
	var issues []Issue
	var recs []string

	for _, dep := range conflicts.Shared(g) {
		if !dep.HighRisk {
			continue
		}
		severity := conflicts.SeverityMedium
		if dep.UsageCount >= 5 {
			severity = conflicts.SeverityHigh
		}
		issues = append(issues, Issue{
			Severity:    severity,
			Component:   dep.Package,
			Description: fmt.Sprintf("High-risk package %s is shared by %d components", dep.Package, dep.UsageCount),
			Impact:      "An incompatible version pulled in by any update affects every component using it",
		})
		recs = append(recs, fmt.Sprintf("Review components sharing %s before bulk updates", dep.Package))
	}
	return issues, recs
}

// heuristicConfidence is deliberately capped below model-assisted confidence
// so the two kinds of analysis stay distinguishable.
func heuristicConfidence(issueCount, totalUpdates int) float64 {
	confidence := confidenceBase
	if issueCount > 0 {
		confidence += 0.05
	}
	if totalUpdates > volumeMediumThreshold {
		confidence -= 0.05
	}
	if confidence < confidenceFloor {
		return confidenceFloor
	}
	if confidence > confidenceCeil {
		return confidenceCeil
	}
	return confidence
}

func summarize(total int, issues []Issue, safe bool) string {
	critical := countSeverity(issues, conflicts.SeverityCritical)
	high := countSeverity(issues, conflicts.SeverityHigh)
	medium := countSeverity(issues, conflicts.SeverityMedium)

	summary := fmt.Sprintf("Heuristic analysis: %d updates available. ", total)
	if safe {
		if medium > 0 {
			return summary + fmt.Sprintf("Safe to proceed with caution. %d medium-priority items to review.", medium)
		}
		return summary + "Safe to proceed."
	}
	return summary + fmt.Sprintf("Review required: %d critical, %d high-priority issues detected.", critical, high)
}

func matchCriticalService(update PendingUpdate) (criticalService, bool) {
	identifier := strings.ToLower(update.Slug)
	if identifier == "" {
		identifier = strings.ToLower(update.Name)
	}
	for key, service := range criticalServices {
		if strings.Contains(identifier, key) {
			return service, true
		}
	}
	return criticalService{}, false
}

func countSeverity(issues []Issue, severity conflicts.Severity) int {
	count := 0
	for _, issue := range issues {
		if issue.Severity == severity {
			count++
		}
	}
	return count
}

func dedupeStrings(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
