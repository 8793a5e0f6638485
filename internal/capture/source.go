/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package capture

import (
	"context"

	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/HamedShams/sprint-metrics/internal/metrics"
)

// Recorder passes a live source through and saves everything it returns.
type Recorder struct {
	src   metrics.SprintSource
	store *Store
}

func NewRecorder(src metrics.SprintSource, store *Store) *Recorder {
	return &Recorder{src: src, store: store}
}

func (r *Recorder) Sprints(ctx context.Context, boardID int64, sel metrics.Selection) ([]domain.Sprint, error) {
	sprints, err := r.src.Sprints(ctx, boardID, sel)
	if err != nil {
		return nil, err
	}
	if err := r.store.SaveSprints(ctx, sprints); err != nil {
		return nil, err
	}
	return sprints, nil
}

func (r *Recorder) Issues(ctx context.Context, boardID int64, sprint domain.Sprint) ([]domain.Issue, error) {
	issues, err := r.src.Issues(ctx, boardID, sprint)
	if err != nil {
		return nil, err
	}
	if err := r.store.SaveIssues(ctx, sprint.ID, issues); err != nil {
		return nil, err
	}
	return issues, nil
}

// Replayer serves a previous recording. The saved sprint list is replayed
// as is: selection happened when it was recorded.
type Replayer struct {
	store *Store
}

func NewReplayer(store *Store) *Replayer { return &Replayer{store: store} }

func (r *Replayer) Sprints(ctx context.Context, _ int64, _ metrics.Selection) ([]domain.Sprint, error) {
	sprints, err := r.store.LoadSprints(ctx)
	if err != nil {
		return nil, domain.NewFetchError("replay sprints", err)
	}
	return sprints, nil
}

func (r *Replayer) Issues(ctx context.Context, _ int64, sprint domain.Sprint) ([]domain.Issue, error) {
	issues, err := r.store.LoadIssues(ctx, sprint.ID)
	if err != nil {
		return nil, domain.NewFetchError("replay issues", err)
	}
	return issues, nil
}
