package service

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/hasentry/sentry/pkg/conflicts"
	"github.com/hasentry/sentry/pkg/config"
	"github.com/hasentry/sentry/pkg/graph"
	"github.com/hasentry/sentry/pkg/manifest"
	"github.com/hasentry/sentry/pkg/observability"
	"github.com/hasentry/sentry/pkg/supervisor"
	"github.com/hasentry/sentry/pkg/updates"
)

// UpdateSource lists pending updates.
type UpdateSource interface {
	AddonUpdates(ctx context.Context) ([]updates.PendingUpdate, error)
	CustomComponentUpdates(ctx context.Context) ([]updates.PendingUpdate, error)
}

// MetadataSource provides addon metadata for platform-constraint merging.
type MetadataSource interface {
	InstalledAddons(ctx context.Context) ([]supervisor.AddonDetails, error)
}

// Notifier pushes results back to the platform.
type Notifier interface {
	CreateNotification(ctx context.Context, title, message, notificationID string) error
	SetSensorState(ctx context.Context, entityID, state string, attributes map[string]interface{}) error
}

// UpdateAnalyzer assesses pending updates. The AI analyzer satisfies this;
// the heuristic analyzer is adapted through heuristicAdapter.
type UpdateAnalyzer interface {
	Analyze(ctx context.Context, addonUpdates, customUpdates []updates.PendingUpdate, g *graph.Graph) *updates.Analysis
}

// heuristicAdapter lifts the context-free heuristic analyzer to the
// UpdateAnalyzer interface.
type heuristicAdapter struct {
	analyzer *updates.Analyzer
}

func (h heuristicAdapter) Analyze(_ context.Context, addonUpdates, customUpdates []updates.PendingUpdate, g *graph.Graph) *updates.Analysis {
	return h.analyzer.Analyze(addonUpdates, customUpdates, g)
}

// Sensor entity IDs and the notification ID published to the platform.
const (
	sensorConflicts      = "sensor.sentry_dependency_conflicts"
	sensorPendingUpdates = "sensor.sentry_pending_updates"
	updateNotificationID = "sentry_update_analysis"
)

// Options wires a Sentry together. Store and Logger are required; everything
// else is optional.
type Options struct {
	Config   config.ScanConfig
	Notify   config.NotificationConfig
	Logger   *observability.Logger
	Metrics  *observability.Metrics
	Store    *graph.Store
	Updates  UpdateSource
	Metadata MetadataSource
	Notifier Notifier
	Analyzer UpdateAnalyzer
}

// Sentry orchestrates scan cycles and update checks: scanning descriptor
// roots, building and publishing graph snapshots, checking for pending
// updates and pushing results to the platform.
type Sentry struct {
	cfg      config.ScanConfig
	notify   config.NotificationConfig
	logger   *observability.Logger
	metrics  *observability.Metrics
	store    *graph.Store
	scanner  *manifest.Scanner
	risk     manifest.RiskSet
	updates  UpdateSource
	metadata MetadataSource
	notifier Notifier
	analyzer UpdateAnalyzer

	status  atomic.Pointer[updates.Status]
	cron    *cron.Cron
	watcher *Watcher
}

// NewSentry creates the orchestrator.
func NewSentry(opts Options) *Sentry {
	logger := opts.Logger
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	risk := manifest.DefaultRiskSet()
	if len(opts.Config.HighRiskPackages) > 0 {
		risk = manifest.NewRiskSet(opts.Config.HighRiskPackages)
	}

	analyzer := opts.Analyzer
	if analyzer == nil {
		analyzer = heuristicAdapter{analyzer: updates.NewAnalyzer(logger)}
	}

	return &Sentry{
		cfg:      opts.Config,
		notify:   opts.Notify,
		logger:   logger,
		metrics:  opts.Metrics,
		store:    opts.Store,
		scanner:  manifest.NewScanner(logger),
		risk:     risk,
		updates:  opts.Updates,
		metadata: opts.Metadata,
		notifier: opts.Notifier,
		analyzer: analyzer,
	}
}

// RunScan performs one full scan cycle and publishes the resulting snapshot.
// A failed cycle leaves the previous snapshot in place.
func (s *Sentry) RunScan(ctx context.Context) (*graph.Graph, error) {
	scanID := uuid.New().String()
	ctx = observability.WithScanID(ctx, scanID)
	ctx, span := observability.ScanTracer().Start(ctx, "sentry.scan")
	defer span.End()

	logger := s.logger.WithField("scan_id", scanID)
	logger.WithField("roots", s.cfg.Roots).Info("Starting dependency scan")
	start := time.Now()

	locations, diag := s.scanner.Scan(s.cfg.Roots)

	builder := graph.NewBuilder(logger, s.risk)
	for _, loc := range locations {
		if err := ctx.Err(); err != nil {
			s.recordScan("cancelled", start)
			return nil, err
		}
		builder.AddDescriptor(loc)
	}

	s.mergeAddonMetadata(ctx, builder, logger)

	g := builder.Build(diag)
	s.store.Publish(g)
	s.recordScan("success", start)
	s.recordGraphMetrics(g)

	logger.WithFields(map[string]interface{}{
		"components":   g.Stats.Components,
		"packages":     g.Stats.Packages,
		"parse_errors": g.Stats.ParseErrors,
		"duration_ms":  time.Since(start).Milliseconds(),
	}).Info("Scan complete, snapshot published")

	if g.Empty() {
		logger.WithField("checked_roots", diag.CheckedRoots).Warn("Scan found no components; see diagnostics for checked roots")
	} else {
		logger.Debug(graph.HumanSummary(g))
	}

	s.publishConflictSensor(ctx, g)
	return g, nil
}

// mergeAddonMetadata folds each installed addon into the graph as a component
// with a synthetic platform-version requirement.
func (s *Sentry) mergeAddonMetadata(ctx context.Context, builder *graph.Builder, logger *observability.Logger) {
	if s.metadata == nil {
		return
	}

	addons, err := s.metadata.InstalledAddons(ctx)
	if err != nil {
		logger.WithError(err).Warn("Could not fetch addon metadata; graph will not include addons")
		return
	}

	merged := 0
	for _, addon := range addons {
		builder.AddPlatformComponent(addon.Slug, addon.Name, addon.Version, addon.Platform)
		merged++
	}
	logger.WithField("addons", merged).Debug("Merged addon metadata into graph")
}

// CheckUpdates fetches pending updates, analyzes them and publishes the
// outcome as the latest status, sensors and (when risky) a notification.
func (s *Sentry) CheckUpdates(ctx context.Context) (*updates.Status, error) {
	if s.updates == nil {
		return nil, fmt.Errorf("no update source configured")
	}

	logger := s.logger.WithField("scan_id", observability.GetScanID(ctx))
	logger.Info("Checking for pending updates")

	addonUpdates, err := s.updates.AddonUpdates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching addon updates: %w", err)
	}
	customUpdates, err := s.updates.CustomComponentUpdates(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching custom component updates: %w", err)
	}

	analysis := s.analyzer.Analyze(ctx, addonUpdates, customUpdates, s.store.Current())

	status := &updates.Status{
		CheckedAt:     time.Now(),
		AddonUpdates:  addonUpdates,
		CustomUpdates: customUpdates,
		Analysis:      analysis,
	}
	s.status.Store(status)
	s.recordUpdateMetrics(status)

	logger.WithFields(map[string]interface{}{
		"pending":     status.Total(),
		"safe":        analysis.Safe,
		"confidence":  analysis.Confidence,
		"ai_assisted": analysis.AIAssisted,
	}).Info("Update check complete")

	s.publishUpdateResults(ctx, status)
	return status, nil
}

// LatestUpdateStatus returns the most recent update check outcome, nil before
// the first check.
func (s *Sentry) LatestUpdateStatus() *updates.Status {
	return s.status.Load()
}

// SnapshotInfo implements the readiness probe's snapshot provider.
func (s *Sentry) SnapshotInfo() observability.SnapshotInfo {
	g := s.store.Current()
	if g == nil {
		return observability.SnapshotInfo{}
	}
	return observability.SnapshotInfo{
		Published:  true,
		BuiltAt:    g.BuiltAt,
		Components: g.Stats.Components,
	}
}

// Start runs the initial scan, then begins cron schedules and the filesystem
// watcher. It does not block.
func (s *Sentry) Start(ctx context.Context) error {
	if _, err := s.RunScan(ctx); err != nil {
		return fmt.Errorf("initial scan: %w", err)
	}

	if s.updates != nil {
		if _, err := s.CheckUpdates(ctx); err != nil {
			s.logger.WithError(err).Warn("Initial update check failed")
		}
	}

	s.cron = cron.New()
	if _, err := s.cron.AddFunc(s.cfg.Schedule, func() {
		if _, err := s.RunScan(context.Background()); err != nil {
			s.logger.WithError(err).Error("Scheduled scan failed")
		}
	}); err != nil {
		return fmt.Errorf("registering scan schedule %q: %w", s.cfg.Schedule, err)
	}

	if s.updates != nil && s.cfg.UpdateCheckSchedule != "" {
		if _, err := s.cron.AddFunc(s.cfg.UpdateCheckSchedule, func() {
			if _, err := s.CheckUpdates(context.Background()); err != nil {
				s.logger.WithError(err).Error("Scheduled update check failed")
			}
		}); err != nil {
			return fmt.Errorf("registering update check schedule %q: %w", s.cfg.UpdateCheckSchedule, err)
		}
	}
	s.cron.Start()

	if s.cfg.Watch {
		watcher, err := NewWatcher(s.watchTargets(), s.cfg.WatchDebounce, s.logger, func() {
			if _, err := s.RunScan(context.Background()); err != nil {
				s.logger.WithError(err).Error("Watcher-triggered scan failed")
			}
		})
		if err != nil {
			s.logger.WithError(err).Warn("Filesystem watching disabled")
		} else {
			s.watcher = watcher
			s.watcher.Start()
		}
	}

	return nil
}

// Stop halts schedules and the watcher, waiting for a running cron job to
// finish or the context to expire.
func (s *Sentry) Stop(ctx context.Context) error {
	if s.watcher != nil {
		s.watcher.Stop()
	}
	if s.cron != nil {
		select {
		case <-s.cron.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// watchTargets resolves the directories worth watching: the configured roots
// when set, otherwise whatever the last scan found.
func (s *Sentry) watchTargets() []string {
	if len(s.cfg.Roots) > 0 {
		return s.cfg.Roots
	}
	if g := s.store.Current(); g != nil && g.Diagnostics != nil {
		return g.Diagnostics.FoundRoots
	}
	return nil
}

func (s *Sentry) publishConflictSensor(ctx context.Context, g *graph.Graph) {
	if s.notifier == nil || !s.notify.Enabled {
		return
	}

	records := conflicts.Detect(g)
	attrs := map[string]interface{}{
		"friendly_name":       "Dependency Conflicts",
		"unit_of_measurement": "conflicts",
		"components":          g.Stats.Components,
		"packages":            g.Stats.Packages,
		"last_scan":           g.BuiltAt,
	}
	if err := s.notifier.SetSensorState(ctx, sensorConflicts, fmt.Sprintf("%d", len(records)), attrs); err != nil {
		s.logger.WithError(err).Warn("Could not publish conflict sensor")
	}
}

func (s *Sentry) publishUpdateResults(ctx context.Context, status *updates.Status) {
	if s.notifier == nil || !s.notify.Enabled {
		return
	}

	attrs := map[string]interface{}{
		"friendly_name":       "Pending Updates",
		"unit_of_measurement": "updates",
		"safe":                status.Analysis.Safe,
		"confidence":          status.Analysis.Confidence,
		"checked_at":          status.CheckedAt,
	}
	if err := s.notifier.SetSensorState(ctx, sensorPendingUpdates, fmt.Sprintf("%d", status.Total()), attrs); err != nil {
		s.logger.WithError(err).Warn("Could not publish pending-updates sensor")
	}

	if status.Total() == 0 {
		return
	}
	if status.Analysis.Safe && !s.notify.NotifyOnSafe {
		return
	}

	title := fmt.Sprintf("%d updates pending review", status.Total())
	if status.Analysis.Safe {
		title = fmt.Sprintf("%d updates ready to install", status.Total())
	}
	if err := s.notifier.CreateNotification(ctx, title, status.Analysis.Summary, updateNotificationID); err != nil {
		s.logger.WithError(err).Warn("Could not create update notification")
	}
}

func (s *Sentry) recordScan(result string, start time.Time) {
	if s.metrics == nil {
		return
	}
	s.metrics.ScansTotal.WithLabelValues(result).Inc()
	s.metrics.ScanDuration.Observe(time.Since(start).Seconds())
	if result == "success" {
		s.metrics.LastScanSuccess.SetToCurrentTime()
	}
}

func (s *Sentry) recordGraphMetrics(g *graph.Graph) {
	if s.metrics == nil {
		return
	}
	s.metrics.ComponentsTotal.Set(float64(g.Stats.Components))
	s.metrics.PackagesTotal.Set(float64(g.Stats.Packages))
	s.metrics.ParseErrorsTotal.Set(float64(g.Stats.ParseErrors))
	s.metrics.HighRiskPackagesTotal.Set(float64(g.Stats.HighRiskPackages))
	s.metrics.ConflictsTotal.Set(float64(len(conflicts.Detect(g))))
	if g.Diagnostics != nil {
		s.metrics.ScanRootsFound.Set(float64(len(g.Diagnostics.FoundRoots)))
	}
}

func (s *Sentry) recordUpdateMetrics(status *updates.Status) {
	if s.metrics == nil {
		return
	}
	s.metrics.PendingUpdatesTotal.Set(float64(status.Total()))

	kind := "heuristic"
	if status.Analysis.AIAssisted {
		kind = "ai"
	}
	s.metrics.AnalysesTotal.WithLabelValues(kind, fmt.Sprintf("%t", status.Analysis.Safe)).Inc()
}
