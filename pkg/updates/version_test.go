package updates

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseVersion(t *testing.T) {
	tests := []struct {
		raw                 string
		major, minor, patch int
		parsed              bool
	}{
		{"1.2.3", 1, 2, 3, true},
		{"v2.0.0", 2, 0, 0, true},
		{"10.6", 10, 6, 0, true},
		{"2024.11.0b1", 2024, 11, 0, true},
		{"2023.9.0", 2023, 9, 0, true},
		{"9.6.1-ls120", 9, 6, 1, true},
		{"", 0, 0, 0, false},
		{"latest", 0, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			v := ParseVersion(tt.raw)
			assert.Equal(t, tt.parsed, v.Parsed)
			if tt.parsed {
				assert.Equal(t, tt.major, v.Major)
				assert.Equal(t, tt.minor, v.Minor)
				assert.Equal(t, tt.patch, v.Patch)
			}
			assert.Equal(t, tt.raw, v.Raw)
		})
	}
}

func TestIsMajorBump(t *testing.T) {
	assert.True(t, IsMajorBump(ParseVersion("10.6.0"), ParseVersion("11.0.0")))
	assert.False(t, IsMajorBump(ParseVersion("10.6.0"), ParseVersion("10.7.0")))
	assert.False(t, IsMajorBump(ParseVersion("11.0.0"), ParseVersion("10.6.0")))
	assert.False(t, IsMajorBump(ParseVersion("latest"), ParseVersion("11.0.0")), "unparseable means no signal")
}

func TestMajorJump(t *testing.T) {
	assert.Equal(t, 3, MajorJump(ParseVersion("11.0.0"), ParseVersion("14.0.0")))
	assert.Equal(t, 0, MajorJump(ParseVersion("1.0.0"), ParseVersion("nightly")))
}

func TestIsPrerelease(t *testing.T) {
	assert.True(t, IsPrerelease("1.4.0-beta.2"))
	assert.True(t, IsPrerelease("1.0.0-RC2"))
	assert.True(t, IsPrerelease("3.0.0.dev0"))
	assert.False(t, IsPrerelease("2.7.1"))
}
