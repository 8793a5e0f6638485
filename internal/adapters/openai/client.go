/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package openai

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/HamedShams/sprint-metrics/internal/config"
	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/HamedShams/sprint-metrics/internal/metrics"
	openai "github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/openai/openai-go/v2/shared"
	"github.com/rs/zerolog"
)

const summaryPrompt = "You are a senior agile coach. Given per-sprint delivery metrics (commitment %, delivery accuracy, points and stories per work category, missed commitments), write a short summary for the team: trends, anomalies and one or two suggested actions. Plain text, no markdown."

type Client struct {
	key   string
	model string
	cli   openai.Client
	log   zerolog.Logger
}

func NewClient(cfg config.Config, log zerolog.Logger, opts ...option.RequestOption) *Client {
	model := cfg.OpenAIModel
	if strings.TrimSpace(model) == "" {
		model = "gpt-4.1-mini"
	}
	base := []option.RequestOption{option.WithAPIKey(cfg.OpenAIKey)}
	if cfg.OpenAITimeout > 0 {
		base = append(base, option.WithRequestTimeout(cfg.OpenAITimeout))
	}
	opts = append(base, opts...)
	return &Client{key: cfg.OpenAIKey, model: model, cli: openai.NewClient(opts...), log: log}
}

// Summarize asks the model for a narrative over the aggregated sprints.
func (c *Client) Summarize(ctx context.Context, stats []metrics.SprintStats) (string, error) {
	if strings.TrimSpace(c.key) == "" {
		return "", errors.New("openai: missing key")
	}
	b, err := json.Marshal(digestPayload(stats))
	if err != nil {
		return "", err
	}
	c.log.Info().Str("model", c.model).Int("sprints", len(stats)).Msg("openai Summarize call")
	params := openai.ChatCompletionNewParams{
		Model: shared.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(summaryPrompt),
			openai.UserMessage(string(b)),
		},
	}
	resp, err := c.cli.Chat.Completions.New(ctx, params)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// groupDigest holds [attempted, completed] pairs.
type groupDigest struct {
	Stories [2]int     `json:"stories"`
	Points  [2]float64 `json:"points"`
}

type sprintDigest struct {
	Name       string                 `json:"name"`
	End        string                 `json:"end,omitempty"`
	Commitment domain.Ratio           `json:"commitment_percent"`
	Accuracy   domain.Ratio           `json:"accuracy_percent"`
	Groups     map[string]groupDigest `json:"groups"`
	Missed     []string               `json:"missed,omitempty"`
}

// digestPayload keeps only counts and keys; summaries and issue bodies are
// not sent to the model.
func digestPayload(stats []metrics.SprintStats) []sprintDigest {
	out := make([]sprintDigest, 0, len(stats))
	for _, st := range stats {
		d := sprintDigest{
			Name:       st.Sprint.Name,
			Commitment: st.Committed.Commitment.Percent,
			Accuracy:   st.Committed.Commitment.Accuracy,
			Groups:     map[string]groupDigest{},
		}
		if st.Sprint.EndDate != nil {
			d.End = st.Sprint.EndDate.Format("2006-01-02")
		}
		for _, blk := range []metrics.StatsBlock{st.Total.StatsBlock, st.Committed.StatsBlock, st.Uncommitted,
			st.Buckets.Project, st.Buckets.BugsImprovements, st.Buckets.Sustainability} {
			d.Groups[blk.Title] = groupDigest{
				Stories: [2]int{len(blk.Stories.Attempted), len(blk.Stories.Completed)},
				Points:  [2]float64{blk.Points.Attempted, blk.Points.Completed},
			}
		}
		for _, m := range st.Committed.Commitment.Missed {
			d.Missed = append(d.Missed, m.Key)
		}
		out = append(out, d)
	}
	return out
}
