package manifest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequirement(t *testing.T) {
	risk := DefaultRiskSet()

	tests := []struct {
		name       string
		raw        string
		pkg        string
		constraint string
		highRisk   bool
	}{
		{"bare name", "requests", "requests", ConstraintAny, true},
		{"pinned", "aiohttp==3.8.1", "aiohttp", "==3.8.1", true},
		{"range", "paho-mqtt>=1.6.0,<2.0", "paho-mqtt", ">=1.6.0,<2.0", false},
		{"compatible release", "voluptuous~=0.13", "voluptuous", "~=0.13", false},
		{"extras group", "pyjwt[crypto]>=2.0.0", "pyjwt", ">=2.0.0", true},
		{"case folded", "PyYAML==6.0", "pyyaml", "==6.0", false},
		{"surrounding space", "  numpy >=1.21.0 ", "numpy", ">=1.21.0", true},
		{"malformed trailer", "requests==2.28.1; python_version<'3.11'", "requests", ConstraintUnknown, true},
		{"garbage after name", "zigpy-deconz @ git+https://example.com/repo", "zigpy-deconz", ConstraintUnknown, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, ok := ParseRequirement(tt.raw, risk)
			require.True(t, ok)
			assert.Equal(t, tt.pkg, req.Package)
			assert.Equal(t, tt.constraint, req.Constraint)
			assert.Equal(t, tt.raw, req.Raw)
			assert.Equal(t, tt.highRisk, req.HighRisk)
		})
	}
}

func TestParseRequirementUnrecoverable(t *testing.T) {
	for _, raw := range []string{"", "   ", "==1.2.3", "@@@"} {
		_, ok := ParseRequirement(raw, nil)
		assert.False(t, ok, "expected %q to be dropped", raw)
	}
}

func TestParseRequirementsDropsOnlyUnrecoverable(t *testing.T) {
	parsed := ParseRequirements([]string{"requests==2.31.0", "", "aiohttp"}, DefaultRiskSet())
	require.Len(t, parsed, 2)
	assert.Equal(t, "requests", parsed[0].Package)
	assert.Equal(t, "aiohttp", parsed[1].Package)
}

func TestRiskSet(t *testing.T) {
	set := NewRiskSet([]string{"  AioHTTP ", "", "cryptography"})
	assert.True(t, set.Contains("aiohttp"))
	assert.True(t, set.Contains("AIOHTTP"))
	assert.True(t, set.Contains("cryptography"))
	assert.False(t, set.Contains("requests"))
	assert.Len(t, set, 2)
}
