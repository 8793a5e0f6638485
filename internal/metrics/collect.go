/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
	"context"

	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/rs/zerolog"
)

// SprintSource yields selected sprints and their classified issues. The
// live implementation queries the tracker; capture replays saved data.
type SprintSource interface {
	Sprints(ctx context.Context, boardID int64, sel Selection) ([]domain.Sprint, error)
	Issues(ctx context.Context, boardID int64, sprint domain.Sprint) ([]domain.Issue, error)
}

type Live struct {
	selector *Selector
	fetcher  *Fetcher
}

func NewLive(f *Fetcher) *Live {
	return &Live{selector: NewSelector(f), fetcher: f}
}

func (l *Live) Sprints(ctx context.Context, boardID int64, sel Selection) ([]domain.Sprint, error) {
	return l.selector.Select(ctx, boardID, sel)
}

func (l *Live) Issues(ctx context.Context, boardID int64, sprint domain.Sprint) ([]domain.Issue, error) {
	return l.fetcher.SprintIssues(ctx, boardID, sprint)
}

// Collect runs selection, retrieval and aggregation sprint by sprint, in
// chronological order. The first error aborts the run.
func Collect(ctx context.Context, src SprintSource, boardID int64, sel Selection, log zerolog.Logger) ([]SprintStats, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	sprints, err := src.Sprints(ctx, boardID, sel)
	if err != nil {
		return nil, err
	}
	log.Info().Int64("board", boardID).Int("sprints", len(sprints)).Bool("active", sel.Active()).Msg("sprints selected")

	out := make([]SprintStats, 0, len(sprints))
	for _, sprint := range sprints {
		issues, err := src.Issues(ctx, boardID, sprint)
		if err != nil {
			return nil, err
		}
		stats := Aggregate(sprint, issues)
		log.Info().Int64("sprint", sprint.ID).Str("name", sprint.Name).
			Int("issues", len(issues)).
			Stringer("commitment", stats.Committed.Commitment.Percent).
			Stringer("accuracy", stats.Committed.Commitment.Accuracy).
			Msg("sprint aggregated")
		out = append(out, stats)
	}
	return out, nil
}
