package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hasentry/sentry/pkg/config"
	"github.com/hasentry/sentry/pkg/graph"
	"github.com/hasentry/sentry/pkg/manifest"
	"github.com/hasentry/sentry/pkg/supervisor"
	"github.com/hasentry/sentry/pkg/updates"
)

type stubMetadata struct {
	addons []supervisor.AddonDetails
	err    error
}

func (s *stubMetadata) InstalledAddons(ctx context.Context) ([]supervisor.AddonDetails, error) {
	return s.addons, s.err
}

type stubUpdates struct {
	addon    []updates.PendingUpdate
	custom   []updates.PendingUpdate
	addonErr error
}

func (s *stubUpdates) AddonUpdates(ctx context.Context) ([]updates.PendingUpdate, error) {
	return s.addon, s.addonErr
}

func (s *stubUpdates) CustomComponentUpdates(ctx context.Context) ([]updates.PendingUpdate, error) {
	return s.custom, nil
}

type sensorCall struct {
	entityID string
	state    string
	attrs    map[string]interface{}
}

type notificationCall struct {
	title   string
	message string
	id      string
}

type stubNotifier struct {
	mu            sync.Mutex
	sensors       []sensorCall
	notifications []notificationCall
}

func (s *stubNotifier) CreateNotification(ctx context.Context, title, message, notificationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notifications = append(s.notifications, notificationCall{title: title, message: message, id: notificationID})
	return nil
}

func (s *stubNotifier) SetSensorState(ctx context.Context, entityID, state string, attributes map[string]interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sensors = append(s.sensors, sensorCall{entityID: entityID, state: state, attrs: attributes})
	return nil
}

func (s *stubNotifier) sensorFor(entityID string) (sensorCall, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, call := range s.sensors {
		if call.entityID == entityID {
			return call, true
		}
	}
	return sensorCall{}, false
}

type stubAnalyzer struct {
	analysis *updates.Analysis
}

func (s stubAnalyzer) Analyze(_ context.Context, _, _ []updates.PendingUpdate, _ *graph.Graph) *updates.Analysis {
	return s.analysis
}

func writeDescriptor(t *testing.T, root, id, body string) {
	t.Helper()
	dir := filepath.Join(root, id)
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, manifest.DescriptorName), []byte(body), 0o644))
}

func TestRunScanPublishesSnapshot(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "mobile_app", `{"domain":"mobile_app","name":"Mobile App","requirements":["aiohttp>=3.8.0"]}`)
	writeDescriptor(t, root, "hue", `{"domain":"hue","name":"Philips Hue","requirements":["aiohttp==3.7.4"]}`)

	store := graph.NewStore()
	s := NewSentry(Options{
		Config: config.ScanConfig{Roots: []string{root}},
		Store:  store,
	})

	g, err := s.RunScan(context.Background())
	require.NoError(t, err)
	require.NotNil(t, g)
	assert.Same(t, g, store.Current())

	assert.Equal(t, 2, g.Stats.Components)
	assert.Equal(t, 1, g.Stats.Packages)
	assert.Len(t, g.Usages("aiohttp"), 2)
}

func TestRunScanMergesAddonMetadata(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "hue", `{"domain":"hue","name":"Philips Hue","requirements":[]}`)

	store := graph.NewStore()
	s := NewSentry(Options{
		Config: config.ScanConfig{Roots: []string{root}},
		Store:  store,
		Metadata: &stubMetadata{addons: []supervisor.AddonDetails{
			{Name: "MariaDB", Slug: "core_mariadb", Version: "2.7.1", Platform: ">=2023.9.0"},
		}},
	})

	g, err := s.RunScan(context.Background())
	require.NoError(t, err)

	require.Equal(t, 2, g.Stats.Components)
	addon, ok := g.Components["core_mariadb"]
	require.True(t, ok)
	assert.Equal(t, graph.KindAddon, addon.Kind)
	assert.Len(t, g.Usages(graph.PlatformPackage), 1)
}

func TestRunScanMetadataFailureStillPublishes(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "hue", `{"domain":"hue","name":"Philips Hue","requirements":[]}`)

	store := graph.NewStore()
	s := NewSentry(Options{
		Config:   config.ScanConfig{Roots: []string{root}},
		Store:    store,
		Metadata: &stubMetadata{err: errors.New("supervisor unreachable")},
	})

	g, err := s.RunScan(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, g.Stats.Components)
	assert.NotNil(t, store.Current())
}

func TestRunScanPublishesConflictSensor(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "mobile_app", `{"domain":"mobile_app","requirements":["aiohttp>=3.8.0"]}`)
	writeDescriptor(t, root, "hue", `{"domain":"hue","requirements":["aiohttp==3.7.4"]}`)

	notifier := &stubNotifier{}
	s := NewSentry(Options{
		Config:   config.ScanConfig{Roots: []string{root}},
		Notify:   config.NotificationConfig{Enabled: true},
		Store:    graph.NewStore(),
		Notifier: notifier,
	})

	_, err := s.RunScan(context.Background())
	require.NoError(t, err)

	call, ok := notifier.sensorFor("sensor.sentry_dependency_conflicts")
	require.True(t, ok)
	assert.Equal(t, "1", call.state)
	assert.Equal(t, 2, call.attrs["components"])
}

func TestRunScanRespectsCancellation(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "hue", `{"domain":"hue","requirements":[]}`)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	store := graph.NewStore()
	s := NewSentry(Options{Config: config.ScanConfig{Roots: []string{root}}, Store: store})

	_, err := s.RunScan(ctx)
	require.Error(t, err)
	assert.Nil(t, store.Current())
}

func TestCheckUpdatesWithoutSource(t *testing.T) {
	s := NewSentry(Options{Store: graph.NewStore()})

	_, err := s.CheckUpdates(context.Background())
	assert.Error(t, err)
}

func TestCheckUpdatesStoresHeuristicStatus(t *testing.T) {
	s := NewSentry(Options{
		Store: graph.NewStore(),
		Updates: &stubUpdates{addon: []updates.PendingUpdate{
			{Name: "MariaDB", Slug: "core_mariadb", CurrentVersion: "10.6.0", LatestVersion: "11.0.0"},
		}},
	})

	status, err := s.CheckUpdates(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status)

	assert.Equal(t, 1, status.Total())
	require.NotNil(t, status.Analysis)
	assert.False(t, status.Analysis.Safe, "major bump of a critical service is not safe")
	assert.False(t, status.Analysis.AIAssisted)
	assert.Same(t, status, s.LatestUpdateStatus())
}

func TestCheckUpdatesFetchFailureKeepsStatus(t *testing.T) {
	s := NewSentry(Options{
		Store:   graph.NewStore(),
		Updates: &stubUpdates{addonErr: errors.New("supervisor unreachable")},
	})

	_, err := s.CheckUpdates(context.Background())
	require.Error(t, err)
	assert.Nil(t, s.LatestUpdateStatus())
}

func TestCheckUpdatesNotifiesOnRiskyUpdates(t *testing.T) {
	notifier := &stubNotifier{}
	s := NewSentry(Options{
		Store:  graph.NewStore(),
		Notify: config.NotificationConfig{Enabled: true},
		Updates: &stubUpdates{addon: []updates.PendingUpdate{
			{Name: "MariaDB", Slug: "core_mariadb", CurrentVersion: "10.6.0", LatestVersion: "11.0.0"},
		}},
		Notifier: notifier,
		Analyzer: stubAnalyzer{analysis: &updates.Analysis{
			Safe:       false,
			Confidence: 0.7,
			Summary:    "Review before installing.",
		}},
	})

	_, err := s.CheckUpdates(context.Background())
	require.NoError(t, err)

	call, ok := notifier.sensorFor("sensor.sentry_pending_updates")
	require.True(t, ok)
	assert.Equal(t, "1", call.state)

	require.Len(t, notifier.notifications, 1)
	assert.Equal(t, "1 updates pending review", notifier.notifications[0].title)
	assert.Equal(t, "Review before installing.", notifier.notifications[0].message)
}

func TestCheckUpdatesSkipsNotificationWhenSafe(t *testing.T) {
	notifier := &stubNotifier{}
	s := NewSentry(Options{
		Store:  graph.NewStore(),
		Notify: config.NotificationConfig{Enabled: true},
		Updates: &stubUpdates{addon: []updates.PendingUpdate{
			{Name: "Terminal", Slug: "core_ssh", CurrentVersion: "9.6.1", LatestVersion: "9.6.2"},
		}},
		Notifier: notifier,
		Analyzer: stubAnalyzer{analysis: &updates.Analysis{Safe: true, Confidence: 0.65}},
	})

	_, err := s.CheckUpdates(context.Background())
	require.NoError(t, err)

	_, ok := notifier.sensorFor("sensor.sentry_pending_updates")
	assert.True(t, ok, "sensor is published even for safe updates")
	assert.Empty(t, notifier.notifications)
}

func TestCheckUpdatesNotifiesOnSafeWhenConfigured(t *testing.T) {
	notifier := &stubNotifier{}
	s := NewSentry(Options{
		Store:  graph.NewStore(),
		Notify: config.NotificationConfig{Enabled: true, NotifyOnSafe: true},
		Updates: &stubUpdates{addon: []updates.PendingUpdate{
			{Name: "Terminal", Slug: "core_ssh", CurrentVersion: "9.6.1", LatestVersion: "9.6.2"},
		}},
		Notifier: notifier,
		Analyzer: stubAnalyzer{analysis: &updates.Analysis{Safe: true, Confidence: 0.65}},
	})

	_, err := s.CheckUpdates(context.Background())
	require.NoError(t, err)

	require.Len(t, notifier.notifications, 1)
	assert.Equal(t, "1 updates ready to install", notifier.notifications[0].title)
}

func TestSnapshotInfo(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "hue", `{"domain":"hue","requirements":[]}`)

	s := NewSentry(Options{Config: config.ScanConfig{Roots: []string{root}}, Store: graph.NewStore()})

	info := s.SnapshotInfo()
	assert.False(t, info.Published)

	_, err := s.RunScan(context.Background())
	require.NoError(t, err)

	info = s.SnapshotInfo()
	assert.True(t, info.Published)
	assert.Equal(t, 1, info.Components)
	assert.False(t, info.BuiltAt.IsZero())
}

func TestWatchTargets(t *testing.T) {
	store := graph.NewStore()
	s := NewSentry(Options{Config: config.ScanConfig{Roots: []string{"/config/custom_components"}}, Store: store})
	assert.Equal(t, []string{"/config/custom_components"}, s.watchTargets())

	s = NewSentry(Options{Store: store})
	store.Publish(&graph.Graph{Diagnostics: &manifest.Diagnostics{FoundRoots: []string{"/data/components"}}})
	assert.Equal(t, []string{"/data/components"}, s.watchTargets())
}

func TestStartStop(t *testing.T) {
	root := t.TempDir()
	writeDescriptor(t, root, "hue", `{"domain":"hue","requirements":[]}`)

	store := graph.NewStore()
	s := NewSentry(Options{
		Config: config.ScanConfig{Roots: []string{root}, Schedule: "@hourly"},
		Store:  store,
	})

	require.NoError(t, s.Start(context.Background()))
	assert.NotNil(t, store.Current())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.NoError(t, s.Stop(ctx))
}
