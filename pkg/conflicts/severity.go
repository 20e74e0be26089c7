package conflicts

import "fmt"

// Severity classifies how serious a finding is. The ordering is total:
// Low < Medium < High < Critical.
type Severity int

const (
	SeverityLow Severity = iota
	SeverityMedium
	SeverityHigh
	SeverityCritical
)

func (s Severity) String() string {
	switch s {
	case SeverityLow:
		return "low"
	case SeverityMedium:
		return "medium"
	case SeverityHigh:
		return "high"
	case SeverityCritical:
		return "critical"
	default:
		return fmt.Sprintf("severity(%d)", int(s))
	}
}

// MarshalText serializes severities as their lower-case names.
func (s Severity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// AtLeast reports whether s is at least as severe as other.
func (s Severity) AtLeast(other Severity) bool {
	return s >= other
}

// ParseSeverity converts a severity name to its enum value.
func ParseSeverity(name string) (Severity, error) {
	switch name {
	case "low":
		return SeverityLow, nil
	case "medium":
		return SeverityMedium, nil
	case "high":
		return SeverityHigh, nil
	case "critical":
		return SeverityCritical, nil
	}
	return SeverityLow, fmt.Errorf("unknown severity: %q", name)
}
