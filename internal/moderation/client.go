// Package moderation wraps the external content-moderation collaborator.
// The collaborator is consumed as a black box: text in, tagged verdict out.
// Every call is timeout-bounded and falls back to local rules, so report
// ingestion never depends on the collaborator being up.
package moderation

import (
	"context"
	"log/slog"
	"time"

	"github.com/AzenoHI/travel-hi/internal/config"
	"github.com/AzenoHI/travel-hi/internal/domain"
	"github.com/AzenoHI/travel-hi/pkg/e"

	openai "github.com/sashabaranov/go-openai"
)

type Classifier interface {
	Classify(ctx context.Context, description string, typ domain.IncidentType, loc domain.Location) (domain.Verdict, error)
}

type Client struct {
	api     *openai.Client
	timeout time.Duration
	logger  *slog.Logger
}

func NewClient(cfg config.ModerationConfig, logger *slog.Logger) *Client {
	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = cfg.BaseURL
	}
	return &Client{
		api:     openai.NewClientWithConfig(apiCfg),
		timeout: cfg.Timeout,
		logger:  logger,
	}
}

// Classify asks the moderation endpoint for an abuse verdict and combines
// it with the local severity heuristics. On any transport failure the rule
// verdict is returned together with ErrModerationDown so the caller can
// count the fallback; local profanity blocks short-circuit the API call.
func (c *Client) Classify(ctx context.Context, description string, typ domain.IncidentType, loc domain.Location) (domain.Verdict, error) {
	local := ruleVerdict(description, typ)
	if local.AbuseScore >= 1.0 {
		c.logger.Info("moderation local block: strong profanity matched")
		local.Fallback = false
		local.Confidence = 1.0
		return local, nil
	}
	if description == "" {
		local.Fallback = false
		local.Confidence = 1.0
		return local, nil
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.Moderations(ctx, openai.ModerationRequest{
		Model: openai.ModerationOmniLatest,
		Input: description,
	})
	if err != nil || len(resp.Results) == 0 {
		c.logger.Warn("moderation call failed, using rule fallback",
			slog.Any("error", err),
			slog.String("type", string(typ)),
		)
		return local, e.ErrModerationDown
	}

	res := resp.Results[0]
	verdict := domain.Verdict{
		SeverityEstimate: local.SeverityEstimate,
		AbuseScore:       abuseScore(res.CategoryScores),
		Tags:             flaggedTags(res.Categories),
		Confidence:       0.9,
	}
	if res.Flagged && verdict.AbuseScore < 0.5 {
		// The endpoint flagged on a category we do not score directly.
		verdict.AbuseScore = 0.5
	}

	c.logger.Info("moderation verdict",
		slog.Bool("flagged", res.Flagged),
		slog.Float64("abuse_score", verdict.AbuseScore),
		slog.Any("tags", verdict.Tags),
	)

	return verdict, nil
}

func abuseScore(s openai.ResultCategoryScores) float64 {
	max := float64(s.Harassment)
	for _, v := range []float64{
		float64(s.HarassmentThreatening),
		float64(s.Hate),
		float64(s.HateThreatening),
		float64(s.Violence),
		float64(s.ViolenceGraphic),
		float64(s.Sexual),
	} {
		if v > max {
			max = v
		}
	}
	return max
}

func flaggedTags(c openai.ResultCategories) []string {
	var tags []string
	if c.Harassment || c.HarassmentThreatening {
		tags = append(tags, "harassment")
	}
	if c.Hate || c.HateThreatening {
		tags = append(tags, "hate")
	}
	if c.Violence || c.ViolenceGraphic {
		tags = append(tags, "violence")
	}
	if c.Sexual || c.SexualMinors {
		tags = append(tags, "sexual")
	}
	if c.SelfHarm {
		tags = append(tags, "self-harm")
	}
	return tags
}
