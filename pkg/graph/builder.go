package graph

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/hasentry/sentry/pkg/manifest"
	"github.com/hasentry/sentry/pkg/observability"
)

// descriptor is the on-disk shape of a component descriptor file. Only the
// fields the graph cares about are decoded; unknown fields are ignored.
type descriptor struct {
	Domain        string          `json:"domain"`
	Name          string          `json:"name"`
	Version       string          `json:"version"`
	Homeassistant string          `json:"homeassistant"`
	Requirements  json.RawMessage `json:"requirements"`
}

// Builder accumulates components for one scan cycle and assembles a fresh
// Graph. A Builder is single-use and not safe for concurrent use; build the
// next Graph into a new Builder and swap the published snapshot.
type Builder struct {
	logger     *observability.Logger
	risk       manifest.RiskSet
	components map[string]Component
	order      []string
}

// NewBuilder creates a Builder using the given high-risk package set.
func NewBuilder(logger *observability.Logger, risk manifest.RiskSet) *Builder {
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	if risk == nil {
		risk = manifest.DefaultRiskSet()
	}
	return &Builder{
		logger:     logger,
		risk:       risk,
		components: make(map[string]Component),
	}
}

// AddDescriptor reads and parses one descriptor location. Parse failures are
// not errors: the component is recorded with an error tag and empty
// requirements so it stays enumerable while contributing nothing to the
// index.
func (b *Builder) AddDescriptor(loc manifest.Location) {
	data, err := os.ReadFile(loc.DescriptorPath)
	if err != nil {
		b.logger.WithError(err).Warnf("Cannot read descriptor for %s", loc.ID)
		b.addFailed(loc, fmt.Sprintf("read failed: %v", err))
		return
	}

	var desc descriptor
	if err := json.Unmarshal(data, &desc); err != nil {
		b.logger.WithError(err).Warnf("Malformed descriptor for %s", loc.ID)
		b.addFailed(loc, "malformed_json")
		return
	}

	rawReqs, err := decodeRequirements(desc.Requirements)
	if err != nil {
		b.logger.WithError(err).Warnf("Invalid requirements field for %s", loc.ID)
		b.addFailed(loc, fmt.Sprintf("invalid requirements: %v", err))
		return
	}

	id := desc.Domain
	if id == "" {
		id = loc.ID
	}
	name := desc.Name
	if name == "" {
		name = loc.ID
	}

	component := Component{
		ID:             id,
		Name:           name,
		Version:        desc.Version,
		Platform:       desc.Homeassistant,
		Kind:           KindIntegration,
		Requirements:   manifest.ParseRequirements(rawReqs, b.risk),
		DescriptorPath: loc.DescriptorPath,
	}
	b.add(component)
	b.logger.Debugf("Parsed descriptor for %s: %d requirement(s)", name, len(rawReqs))
}

// AddPlatformComponent records an add-on (or other platform-managed unit)
// whose only tracked dependency is a platform-version constraint. The
// constraint becomes a synthetic requirement on the reserved PlatformPackage
// pseudo-package.
func (b *Builder) AddPlatformComponent(id, name, version, platformConstraint string) {
	if name == "" {
		name = id
	}
	component := Component{
		ID:       id,
		Name:     name,
		Version:  version,
		Platform: platformConstraint,
		Kind:     KindAddon,
	}
	if platformConstraint != "" {
		component.Requirements = []manifest.Requirement{{
			Package:    PlatformPackage,
			Constraint: platformConstraint,
			Raw:        platformConstraint,
		}}
	}
	b.add(component)
}

// Build computes the reverse index and statistics and returns the finished
// Graph. Statistics are derived from the final component table and index, not
// maintained incrementally.
func (b *Builder) Build(diag *manifest.Diagnostics) *Graph {
	index := make(Index)
	for _, id := range b.order {
		component := b.components[id]
		if component.Failed() {
			continue
		}
		seen := make(map[string]bool, len(component.Requirements))
		for _, req := range component.Requirements {
			// One usage entry per declaring component; duplicate
			// declarations within a component collapse.
			if seen[req.Package] {
				continue
			}
			seen[req.Package] = true
			index[req.Package] = append(index[req.Package], Usage{
				ComponentID:   component.ID,
				ComponentName: component.Name,
				Constraint:    req.Constraint,
				HighRisk:      req.HighRisk,
			})
		}
	}

	stats := Statistics{
		Components: len(b.components),
		Packages:   len(index),
	}
	for _, component := range b.components {
		if component.Failed() {
			stats.ParseErrors++
		}
	}
	for pkg := range index {
		if b.risk.Contains(pkg) {
			stats.HighRiskPackages++
		}
	}

	return &Graph{
		Components:  b.components,
		Order:       b.order,
		Index:       index,
		Stats:       stats,
		BuiltAt:     time.Now().UTC(),
		Diagnostics: diag,
	}
}

func (b *Builder) add(component Component) {
	if _, exists := b.components[component.ID]; !exists {
		b.order = append(b.order, component.ID)
	}
	b.components[component.ID] = component
}

func (b *Builder) addFailed(loc manifest.Location, reason string) {
	b.add(Component{
		ID:             loc.ID,
		Name:           loc.ID,
		Kind:           KindIntegration,
		ParseError:     reason,
		DescriptorPath: loc.DescriptorPath,
	})
}

// decodeRequirements decodes the requirements field. An absent or null field
// is treated as an empty list; a present field must be an array of strings.
func decodeRequirements(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var reqs []string
	if err := json.Unmarshal(raw, &reqs); err != nil {
		return nil, fmt.Errorf("requirements must be an array of strings: %w", err)
	}
	return reqs, nil
}
