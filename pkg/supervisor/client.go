package supervisor

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/hasentry/sentry/pkg/observability"
	"github.com/hasentry/sentry/pkg/updates"
)

// Update entity categories.
const (
	UpdateTypeCore        = "core"
	UpdateTypeSupervisor  = "supervisor"
	UpdateTypeOS          = "os"
	UpdateTypeAddon       = "addon"
	UpdateTypeHACS        = "hacs"
	UpdateTypeIntegration = "integration"
)

// AddonDetails is the subset of addon metadata the sentry cares about. The
// Platform field carries the addon's platform version constraint.
type AddonDetails struct {
	Name            string `json:"name"`
	Slug            string `json:"slug"`
	Version         string `json:"version"`
	LatestVersion   string `json:"version_latest"`
	UpdateAvailable bool   `json:"update_available"`
	Repository      string `json:"repository"`
	Description     string `json:"description"`
	State           string `json:"state"`
	Platform        string `json:"homeassistant"`
}

// UpdateEntity is one pending update discovered through the platform's
// update.* entities.
type UpdateEntity struct {
	EntityID       string `json:"entity_id"`
	Name           string `json:"name"`
	Type           string `json:"type"`
	CurrentVersion string `json:"current_version"`
	LatestVersion  string `json:"latest_version"`
	ReleaseSummary string `json:"release_summary,omitempty"`
	ReleaseURL     string `json:"release_url,omitempty"`
}

// Config holds supervisor client settings.
type Config struct {
	BaseURL string
	CoreURL string
	Token   string
	Timeout time.Duration
}

// Client talks to the supervisor API and the platform core API.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *observability.Logger
}

// NewClient creates a supervisor API client. HTTP calls are traced through
// the otelhttp transport.
func NewClient(cfg Config, logger *observability.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}
	return &Client{
		cfg: cfg,
		http: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		logger: logger,
	}
}

// addonsEnvelope is the supervisor's response wrapper.
type addonsEnvelope struct {
	Data struct {
		Addons []AddonDetails `json:"addons"`
	} `json:"data"`
}

type addonInfoEnvelope struct {
	Data AddonDetails `json:"data"`
}

// stateEntity is one entry from the core /api/states listing.
type stateEntity struct {
	EntityID   string                 `json:"entity_id"`
	State      string                 `json:"state"`
	Attributes map[string]interface{} `json:"attributes"`
}

// InstalledAddons lists every installed addon.
func (c *Client) InstalledAddons(ctx context.Context) ([]AddonDetails, error) {
	var envelope addonsEnvelope
	if err := c.get(ctx, c.cfg.BaseURL+"/addons", &envelope); err != nil {
		return nil, fmt.Errorf("listing addons: %w", err)
	}
	c.logger.WithField("count", len(envelope.Data.Addons)).Debug("Retrieved installed addons")
	return envelope.Data.Addons, nil
}

// AddonInfo fetches detailed metadata for one addon, including its platform
// version constraint.
func (c *Client) AddonInfo(ctx context.Context, slug string) (*AddonDetails, error) {
	var envelope addonInfoEnvelope
	if err := c.get(ctx, c.cfg.BaseURL+"/addons/"+slug+"/info", &envelope); err != nil {
		return nil, fmt.Errorf("fetching addon info for %s: %w", slug, err)
	}
	return &envelope.Data, nil
}

// AddonUpdates lists addons with a pending update.
func (c *Client) AddonUpdates(ctx context.Context) ([]updates.PendingUpdate, error) {
	addons, err := c.InstalledAddons(ctx)
	if err != nil {
		return nil, err
	}

	var pending []updates.PendingUpdate
	for _, addon := range addons {
		if !addon.UpdateAvailable {
			continue
		}
		pending = append(pending, updates.PendingUpdate{
			Name:           addon.Name,
			Slug:           addon.Slug,
			CurrentVersion: addon.Version,
			LatestVersion:  addon.LatestVersion,
			Repository:     addon.Repository,
			Description:    addon.Description,
		})
	}
	c.logger.WithField("count", len(pending)).Info("Found addon updates")
	return pending, nil
}

// UpdateEntities lists every pending update visible through the platform's
// update.* entities: core, supervisor, OS, addons and custom integrations.
// Entities missing version attributes are skipped.
func (c *Client) UpdateEntities(ctx context.Context) ([]UpdateEntity, error) {
	var states []stateEntity
	if err := c.get(ctx, c.cfg.CoreURL+"/states", &states); err != nil {
		return nil, fmt.Errorf("listing states: %w", err)
	}

	var found []UpdateEntity
	total := 0
	for _, state := range states {
		if !strings.HasPrefix(state.EntityID, "update.") {
			continue
		}
		total++
		if state.State != "on" {
			continue
		}

		installed, hasInstalled := stringAttr(state.Attributes, "installed_version")
		latest, hasLatest := stringAttr(state.Attributes, "latest_version")
		if !hasInstalled || !hasLatest {
			c.logger.WithField("entity_id", state.EntityID).Warn("Update entity missing version attributes, skipping")
			continue
		}

		name, ok := stringAttr(state.Attributes, "friendly_name")
		if !ok {
			if name, ok = stringAttr(state.Attributes, "title"); !ok {
				name = state.EntityID
			}
		}
		summary, _ := stringAttr(state.Attributes, "release_summary")
		releaseURL, _ := stringAttr(state.Attributes, "release_url")

		found = append(found, UpdateEntity{
			EntityID:       state.EntityID,
			Name:           name,
			Type:           categorizeUpdate(state.EntityID, state.Attributes),
			CurrentVersion: installed,
			LatestVersion:  latest,
			ReleaseSummary: summary,
			ReleaseURL:     releaseURL,
		})
	}

	c.logger.WithFields(map[string]interface{}{
		"pending":  len(found),
		"entities": total,
	}).Info("Scanned update entities")
	if total == 0 {
		c.logger.Warn("No update entities found; updates may not be enabled on this platform")
	}
	return found, nil
}

// CustomComponentUpdates filters UpdateEntities down to custom integration
// updates, as pending updates for the analyzer.
func (c *Client) CustomComponentUpdates(ctx context.Context) ([]updates.PendingUpdate, error) {
	entities, err := c.UpdateEntities(ctx)
	if err != nil {
		return nil, err
	}

	var pending []updates.PendingUpdate
	for _, entity := range entities {
		if entity.Type != UpdateTypeHACS && entity.Type != UpdateTypeIntegration {
			continue
		}
		pending = append(pending, updates.PendingUpdate{
			Name:           entity.Name,
			Slug:           strings.TrimPrefix(entity.EntityID, "update."),
			CurrentVersion: entity.CurrentVersion,
			LatestVersion:  entity.LatestVersion,
			Description:    entity.ReleaseSummary,
		})
	}
	return pending, nil
}

// CreateNotification creates a persistent notification on the platform.
func (c *Client) CreateNotification(ctx context.Context, title, message, notificationID string) error {
	payload := map[string]string{
		"title":           title,
		"message":         message,
		"notification_id": notificationID,
	}
	if err := c.post(ctx, c.cfg.CoreURL+"/services/persistent_notification/create", payload); err != nil {
		return fmt.Errorf("creating notification %s: %w", notificationID, err)
	}
	c.logger.WithField("notification_id", notificationID).Info("Created notification")
	return nil
}

// SetSensorState publishes state and attributes for a sensor entity.
func (c *Client) SetSensorState(ctx context.Context, entityID, state string, attributes map[string]interface{}) error {
	payload := map[string]interface{}{
		"state":      state,
		"attributes": attributes,
	}
	if err := c.post(ctx, c.cfg.CoreURL+"/states/"+entityID, payload); err != nil {
		return fmt.Errorf("updating sensor %s: %w", entityID, err)
	}
	return nil
}

func (c *Client) get(ctx context.Context, url string, dest interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	return c.do(req, dest)
}

func (c *Client) post(ctx context.Context, url string, payload interface{}) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, nil)
}

func (c *Client) do(req *http.Request, dest interface{}) error {
	if c.cfg.Token != "" {
		req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("unauthorized: verify the supervisor token and API access settings")
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, req.URL.Path)
	}

	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("decoding response from %s: %w", req.URL.Path, err)
	}
	return nil
}

// categorizeUpdate classifies an update entity. Most specific system
// components are matched first; a GitHub repository attribute marks a custom
// integration.
func categorizeUpdate(entityID string, attributes map[string]interface{}) string {
	lower := strings.ToLower(entityID)
	repo, _ := stringAttr(attributes, "repository")

	switch {
	case strings.Contains(lower, "home_assistant_core"):
		return UpdateTypeCore
	case strings.Contains(lower, "home_assistant_supervisor"):
		return UpdateTypeSupervisor
	case strings.Contains(lower, "home_assistant_os"), strings.Contains(lower, "operating_system"):
		return UpdateTypeOS
	case strings.Contains(lower, "hacs"):
		return UpdateTypeHACS
	case strings.Contains(lower, "addon"):
		return UpdateTypeAddon
	case strings.HasPrefix(repo, "https://github.com/"), strings.HasPrefix(repo, "http://github.com/"):
		return UpdateTypeHACS
	default:
		return UpdateTypeIntegration
	}
}

func stringAttr(attributes map[string]interface{}, key string) (string, bool) {
	value, ok := attributes[key]
	if !ok {
		return "", false
	}
	str, ok := value.(string)
	return str, ok
}
