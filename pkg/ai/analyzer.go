package ai

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
	openai "github.com/sashabaranov/go-openai"

	"github.com/hasentry/sentry/pkg/conflicts"
	"github.com/hasentry/sentry/pkg/graph"
	"github.com/hasentry/sentry/pkg/observability"
	"github.com/hasentry/sentry/pkg/updates"
)

// Config holds AI analyzer settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	CacheSize int
}

// Analyzer asks a language model to assess pending updates, falling back to
// the heuristic analyzer when the model is unavailable or returns garbage.
// Results are cached by update fingerprint so repeated checks of the same
// pending set cost one API call.
type Analyzer struct {
	client    *openai.Client
	model     string
	cache     *lru.Cache[string, *updates.Analysis]
	heuristic *updates.Analyzer
	logger    *observability.Logger
}

// NewAnalyzer creates an AI-backed analyzer.
func NewAnalyzer(cfg Config, logger *observability.Logger) (*Analyzer, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}
	if cfg.Model == "" {
		cfg.Model = openai.GPT4oMini
	}
	if cfg.CacheSize <= 0 {
		cfg.CacheSize = 128
	}
	if logger == nil {
		logger = observability.NewLogger(observability.InfoLevel, nil)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	cache, err := lru.New[string, *updates.Analysis](cfg.CacheSize)
	if err != nil {
		return nil, fmt.Errorf("creating analysis cache: %w", err)
	}

	return &Analyzer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		cache:     cache,
		heuristic: updates.NewAnalyzer(logger),
		logger:    logger,
	}, nil
}

// modelResponse is the JSON shape the model is instructed to return.
type modelResponse struct {
	Safe       bool    `json:"safe"`
	Confidence float64 `json:"confidence"`
	Issues     []struct {
		Severity    string `json:"severity"`
		Component   string `json:"component"`
		Description string `json:"description"`
		Impact      string `json:"impact"`
	} `json:"issues"`
	Recommendations []string `json:"recommendations"`
	Summary         string   `json:"summary"`
}

// Analyze assesses the pending updates. Any model failure degrades to the
// heuristic result rather than an error.
func (a *Analyzer) Analyze(ctx context.Context, addonUpdates, customUpdates []updates.PendingUpdate, g *graph.Graph) *updates.Analysis {
	if len(addonUpdates)+len(customUpdates) == 0 {
		return a.heuristic.Analyze(addonUpdates, customUpdates, g)
	}

	key := fingerprint(addonUpdates, customUpdates)
	if cached, ok := a.cache.Get(key); ok {
		a.logger.WithField("fingerprint", key[:12]).Debug("Analysis cache hit")
		return cached
	}

	analysis, err := a.askModel(ctx, addonUpdates, customUpdates, g)
	if err != nil {
		a.logger.WithError(err).Warn("AI analysis failed, falling back to heuristics")
		return a.heuristic.Analyze(addonUpdates, customUpdates, g)
	}

	a.cache.Add(key, analysis)
	return analysis
}

func (a *Analyzer) askModel(ctx context.Context, addonUpdates, customUpdates []updates.PendingUpdate, g *graph.Graph) (*updates.Analysis, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: a.model,
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: systemPrompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: buildPrompt(addonUpdates, customUpdates, g),
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("empty completion response")
	}

	var parsed modelResponse
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &parsed); err != nil {
		return nil, fmt.Errorf("parsing model response: %w", err)
	}
	return convertResponse(parsed), nil
}

const systemPrompt = `You are an update risk analyst for a smart-home platform.
Given pending addon and custom component updates plus dependency conflict data,
assess whether installing them all at once is safe. Respond with a single JSON
object: {"safe": bool, "confidence": number 0-1, "issues": [{"severity":
"low|medium|high|critical", "component": string, "description": string,
"impact": string}], "recommendations": [string], "summary": string}.`

// buildPrompt renders the pending updates and graph context into the user
// message. Output is deterministic for caching and tests.
func buildPrompt(addonUpdates, customUpdates []updates.PendingUpdate, g *graph.Graph) string {
	var b strings.Builder

	b.WriteString("Pending addon updates:\n")
	if len(addonUpdates) == 0 {
		b.WriteString("  none\n")
	}
	for _, u := range addonUpdates {
		fmt.Fprintf(&b, "  - %s (%s): %s -> %s\n", u.Name, u.Slug, u.CurrentVersion, u.LatestVersion)
	}

	b.WriteString("Pending custom component updates:\n")
	if len(customUpdates) == 0 {
		b.WriteString("  none\n")
	}
	for _, u := range customUpdates {
		fmt.Fprintf(&b, "  - %s: %s -> %s\n", u.Name, u.CurrentVersion, u.LatestVersion)
	}

	if g != nil {
		records := conflicts.Detect(g)
		fmt.Fprintf(&b, "Dependency graph: %d components, %d packages, %d conflicts.\n",
			g.Stats.Components, g.Stats.Packages, len(records))
		for _, record := range records {
			fmt.Fprintf(&b, "  conflict: %s (%s severity) pinned as %s by %d components\n",
				record.Package, record.Severity, strings.Join(record.DistinctConstraints, " vs "), record.UsageCount)
		}
	}

	return b.String()
}

func convertResponse(parsed modelResponse) *updates.Analysis {
	analysis := &updates.Analysis{
		Safe:            parsed.Safe,
		Confidence:      clampConfidence(parsed.Confidence),
		Recommendations: parsed.Recommendations,
		Summary:         parsed.Summary,
		AIAssisted:      true,
	}
	for _, issue := range parsed.Issues {
		severity, err := conflicts.ParseSeverity(issue.Severity)
		if err != nil {
			severity = conflicts.SeverityMedium
		}
		analysis.Issues = append(analysis.Issues, updates.Issue{
			Severity:    severity,
			Component:   issue.Component,
			Description: issue.Description,
			Impact:      issue.Impact,
		})
	}
	return analysis
}

func clampConfidence(value float64) float64 {
	if value < 0 {
		return 0
	}
	if value > 1 {
		return 1
	}
	return value
}

// fingerprint hashes the identity and versions of every pending update,
// order-independently.
func fingerprint(addonUpdates, customUpdates []updates.PendingUpdate) string {
	lines := make([]string, 0, len(addonUpdates)+len(customUpdates))
	for _, u := range addonUpdates {
		lines = append(lines, "addon|"+u.Slug+"|"+u.CurrentVersion+"|"+u.LatestVersion)
	}
	for _, u := range customUpdates {
		lines = append(lines, "custom|"+u.Slug+"|"+u.CurrentVersion+"|"+u.LatestVersion)
	}
	sort.Strings(lines)

	sum := sha256.Sum256([]byte(strings.Join(lines, "\n")))
	return hex.EncodeToString(sum[:])
}
