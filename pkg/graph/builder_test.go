package graph

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasentry/sentry/pkg/manifest"
)

func writeLocation(t *testing.T, id, body string) manifest.Location {
	t.Helper()
	dir := filepath.Join(t.TempDir(), id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, manifest.DescriptorName)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return manifest.Location{ID: id, Dir: dir, DescriptorPath: path}
}

func TestBuilderAddDescriptor(t *testing.T) {
	b := NewBuilder(nil, nil)
	b.AddDescriptor(writeLocation(t, "mobile_app",
		`{"domain":"mobile_app","name":"Mobile App","version":"1.0","requirements":["aiohttp>=3.8.0","PyTurboJPEG==1.6.7"]}`))

	g := b.Build(nil)
	require.Equal(t, 1, g.Stats.Components)

	c, ok := g.Component("mobile_app")
	require.True(t, ok)
	assert.Equal(t, "Mobile App", c.Name)
	assert.Equal(t, KindIntegration, c.Kind)
	require.Len(t, c.Requirements, 2)
	assert.True(t, c.Requirements[0].HighRisk)
	assert.Equal(t, "pyturbojpeg", c.Requirements[1].Package)
}

func TestBuilderFallsBackToDirectoryID(t *testing.T) {
	b := NewBuilder(nil, nil)
	b.AddDescriptor(writeLocation(t, "my_component", `{"requirements":[]}`))

	g := b.Build(nil)
	c, ok := g.Component("my_component")
	require.True(t, ok)
	assert.Equal(t, "my_component", c.Name)
}

func TestBuilderKeepsFailedComponents(t *testing.T) {
	b := NewBuilder(nil, nil)
	b.AddDescriptor(writeLocation(t, "broken", `{not json`))
	b.AddDescriptor(writeLocation(t, "bad_reqs", `{"domain":"bad_reqs","requirements":"not-a-list"}`))
	b.AddDescriptor(writeLocation(t, "hue", `{"domain":"hue","requirements":["aiohttp==3.7.4"]}`))

	g := b.Build(nil)
	assert.Equal(t, 3, g.Stats.Components)
	assert.Equal(t, 2, g.Stats.ParseErrors)
	assert.Equal(t, 1, g.Stats.Packages)

	broken, ok := g.Component("broken")
	require.True(t, ok)
	assert.True(t, broken.Failed())
	assert.Empty(t, broken.Requirements)

	// Failed components never reach the index.
	for _, usages := range g.Index {
		for _, usage := range usages {
			assert.NotEqual(t, "broken", usage.ComponentID)
			assert.NotEqual(t, "bad_reqs", usage.ComponentID)
		}
	}
}

func TestBuilderNullRequirements(t *testing.T) {
	b := NewBuilder(nil, nil)
	b.AddDescriptor(writeLocation(t, "minimal", `{"domain":"minimal","requirements":null}`))

	g := b.Build(nil)
	c, ok := g.Component("minimal")
	require.True(t, ok)
	assert.False(t, c.Failed())
	assert.Empty(t, c.Requirements)
}

func TestBuilderCollapsesDuplicateDeclarations(t *testing.T) {
	b := NewBuilder(nil, nil)
	b.AddDescriptor(writeLocation(t, "dup",
		`{"domain":"dup","requirements":["requests==2.31.0","requests==2.31.0"]}`))

	g := b.Build(nil)
	assert.Len(t, g.Usages("requests"), 1)
}

func TestBuilderAddPlatformComponent(t *testing.T) {
	b := NewBuilder(nil, nil)
	b.AddPlatformComponent("core_mariadb", "MariaDB", "2.7.1", ">=2023.9.0")
	b.AddPlatformComponent("core_ssh", "", "9.6.1", "")

	g := b.Build(nil)
	mariadb, ok := g.Component("core_mariadb")
	require.True(t, ok)
	assert.Equal(t, KindAddon, mariadb.Kind)

	usages := g.Usages(PlatformPackage)
	require.Len(t, usages, 1, "addons without a platform constraint contribute nothing")
	assert.Equal(t, "core_mariadb", usages[0].ComponentID)
	assert.Equal(t, ">=2023.9.0", usages[0].Constraint)

	ssh, ok := g.Component("core_ssh")
	require.True(t, ok)
	assert.Equal(t, "core_ssh", ssh.Name)
}

func TestBuilderHighRiskStatistics(t *testing.T) {
	b := NewBuilder(nil, manifest.NewRiskSet([]string{"aiohttp"}))
	b.AddDescriptor(writeLocation(t, "a", `{"domain":"a","requirements":["aiohttp==3.8.0","voluptuous>=0.13"]}`))

	g := b.Build(nil)
	assert.Equal(t, 2, g.Stats.Packages)
	assert.Equal(t, 1, g.Stats.HighRiskPackages)
}

func TestStorePublishAndCurrent(t *testing.T) {
	store := NewStore()
	assert.Nil(t, store.Current())

	first := &Graph{Stats: Statistics{Components: 1}}
	store.Publish(first)
	assert.Same(t, first, store.Current())

	second := &Graph{Stats: Statistics{Components: 2}}
	store.Publish(second)
	assert.Same(t, second, store.Current())
}

func TestHumanSummary(t *testing.T) {
	b := NewBuilder(nil, nil)
	b.AddDescriptor(writeLocation(t, "mobile_app",
		`{"domain":"mobile_app","name":"Mobile App","requirements":["aiohttp>=3.8.0","requests==2.31.0"]}`))
	b.AddDescriptor(writeLocation(t, "hue",
		`{"domain":"hue","name":"Philips Hue","requirements":["aiohttp==3.7.4"]}`))

	summary := HumanSummary(b.Build(nil))
	assert.Contains(t, summary, "Total Components: 2")
	assert.Contains(t, summary, "HIGH-RISK PACKAGES:")
	assert.Contains(t, summary, "aiohttp: used by 2 component(s)")
	assert.Contains(t, summary, "MOST-USED PACKAGES:")
	assert.Contains(t, summary, "Mobile App:")
}
