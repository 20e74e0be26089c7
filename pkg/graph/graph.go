package graph

import (
	"fmt"
	"time"

	"github.com/hasentry/sentry/pkg/manifest"
)

// PlatformPackage is the reserved pseudo-package that represents
// platform-version compatibility. Add-on metadata is merged into the index as
// a synthetic requirement on this package so platform-version fan-out can be
// queried the same way as library fan-out.
const PlatformPackage = "homeassistant_version"

// ComponentKind distinguishes how a component was discovered.
type ComponentKind int

const (
	KindIntegration ComponentKind = iota
	KindAddon
)

func (k ComponentKind) String() string {
	return []string{"integration", "addon"}[k]
}

// MarshalText implements encoding.TextMarshaler so kinds serialize as their
// names rather than enum ordinals.
func (k ComponentKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler, the inverse of
// MarshalText.
func (k *ComponentKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "integration":
		*k = KindIntegration
	case "addon":
		*k = KindAddon
	default:
		return fmt.Errorf("unknown component kind %q", text)
	}
	return nil
}

// Component is one discovered integration or add-on.
type Component struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Version      string                 `json:"version,omitempty"`
	Platform     string                 `json:"platform_constraint,omitempty"`
	Kind         ComponentKind          `json:"kind"`
	Requirements []manifest.Requirement `json:"requirements"`

	// ParseError is set when the descriptor could not be parsed. Such a
	// component stays enumerable but is excluded from the index.
	ParseError string `json:"parse_error,omitempty"`

	DescriptorPath string `json:"descriptor_path,omitempty"`
}

// Failed reports whether the component's descriptor failed to parse.
func (c *Component) Failed() bool {
	return c.ParseError != ""
}

// Usage records that one component declares a dependency on a package.
type Usage struct {
	ComponentID   string `json:"component_id"`
	ComponentName string `json:"component_name"`
	Constraint    string `json:"constraint"`
	HighRisk      bool   `json:"high_risk"`
}

// Index maps a package name to the components that declare it, in component
// processing order. A package appears iff at least one non-error component
// declares it; each declaring component contributes exactly one usage entry,
// duplicate declarations within a component collapse.
type Index map[string][]Usage

// Statistics are derived counts computed once when a Graph is built.
type Statistics struct {
	Components       int `json:"components"`
	Packages         int `json:"packages"`
	ParseErrors      int `json:"parse_errors"`
	HighRiskPackages int `json:"high_risk_packages"`
}

// Graph is an immutable snapshot of the dependency graph for one scan cycle.
// Readers must treat it as read-only; a new scan produces a new Graph.
type Graph struct {
	Components map[string]Component `json:"components"`

	// Order preserves component processing order for deterministic
	// iteration; Components itself is keyed by id.
	Order []string `json:"order"`

	Index Index      `json:"index"`
	Stats Statistics `json:"statistics"`

	BuiltAt     time.Time             `json:"built_at"`
	Diagnostics *manifest.Diagnostics `json:"diagnostics,omitempty"`
}

// Component looks up a component by id.
func (g *Graph) Component(id string) (Component, bool) {
	c, ok := g.Components[id]
	return c, ok
}

// Usages returns the usage list for a package, nil when unknown.
func (g *Graph) Usages(pkg string) []Usage {
	return g.Index[pkg]
}

// Empty reports whether the scan behind this snapshot found no components.
// Callers must check this explicitly: an empty graph is a valid result state,
// and Diagnostics explains which roots were checked and what was found.
func (g *Graph) Empty() bool {
	return len(g.Components) == 0
}
