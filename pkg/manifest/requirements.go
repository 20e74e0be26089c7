package manifest

import (
	"regexp"
	"strings"
)

// Constraint sentinels for requirements without a usable version expression.
const (
	ConstraintAny     = "any"
	ConstraintUnknown = "unknown"
)

// Requirement is a single parsed dependency declaration.
type Requirement struct {
	Package    string `json:"package"`
	Constraint string `json:"constraint"`
	Raw        string `json:"raw"`
	HighRisk   bool   `json:"high_risk"`
}

// RiskSet is the set of package names considered security or blast-radius
// sensitive. Lookups are case-insensitive; members are stored lower-cased.
type RiskSet map[string]struct{}

// DefaultHighRiskPackages are the libraries flagged as high risk out of the
// box. Callers may extend or replace the set through configuration.
var DefaultHighRiskPackages = []string{
	"aiohttp", "cryptography", "numpy", "pyjwt",
	"sqlalchemy", "protobuf", "requests", "urllib3",
}

// NewRiskSet builds a RiskSet from package names.
func NewRiskSet(packages []string) RiskSet {
	set := make(RiskSet, len(packages))
	for _, p := range packages {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			set[p] = struct{}{}
		}
	}
	return set
}

// DefaultRiskSet returns a RiskSet of DefaultHighRiskPackages.
func DefaultRiskSet() RiskSet {
	return NewRiskSet(DefaultHighRiskPackages)
}

// Contains reports whether pkg is in the set.
func (rs RiskSet) Contains(pkg string) bool {
	_, ok := rs[strings.ToLower(pkg)]
	return ok
}

var (
	// wellFormedRequirement matches "name", "name==1.2" and
	// "name>=1.0,<2.0" style requirement strings, with an optional
	// extras group ("name[extra]>=1.0").
	wellFormedRequirement = regexp.MustCompile(
		`^([A-Za-z0-9][A-Za-z0-9._-]*)(?:\[[^\]]*\])?\s*((?:===|==|>=|<=|!=|~=|>|<)[^,;]+(?:\s*,\s*(?:===|==|>=|<=|!=|~=|>|<)[^,;]+)*)?\s*$`)

	// leadingIdentifier recovers a best-effort package name from a
	// malformed requirement string.
	leadingIdentifier = regexp.MustCompile(`^[A-Za-z0-9_-]+`)
)

// ParseRequirement parses a raw requirement string into a Requirement.
// Malformed input is never discarded: the parser falls back to extracting the
// leading identifier and tags the constraint as "unknown". The second return
// value is false only when no package name at all could be recovered (for
// example an empty string), in which case the Requirement is zero-valued.
func ParseRequirement(raw string, risk RiskSet) (Requirement, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Requirement{}, false
	}

	if m := wellFormedRequirement.FindStringSubmatch(trimmed); m != nil {
		name := strings.ToLower(m[1])
		constraint := strings.TrimSpace(m[2])
		if constraint == "" {
			constraint = ConstraintAny
		}
		return Requirement{
			Package:    name,
			Constraint: constraint,
			Raw:        raw,
			HighRisk:   risk.Contains(name),
		}, true
	}

	// Fallback: permissive leading-identifier extraction.
	name := strings.ToLower(leadingIdentifier.FindString(trimmed))
	if name == "" {
		return Requirement{}, false
	}
	return Requirement{
		Package:    name,
		Constraint: ConstraintUnknown,
		Raw:        raw,
		HighRisk:   risk.Contains(name),
	}, true
}

// ParseRequirements parses a list of raw requirement strings, dropping only
// entries from which no package name could be recovered.
func ParseRequirements(raw []string, risk RiskSet) []Requirement {
	parsed := make([]Requirement, 0, len(raw))
	for _, r := range raw {
		if req, ok := ParseRequirement(r, risk); ok {
			parsed = append(parsed, req)
		}
	}
	return parsed
}
