/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/HamedShams/sprint-metrics/internal/domain"
)

// Selection chooses the sprints to analyze. A nil Since means the board's
// active sprint; otherwise every sprint inside [Since, Until].
type Selection struct {
	Since *time.Time
	Until *time.Time
}

func (s Selection) Validate() error {
	if s.Until != nil && s.Since == nil {
		return domain.ConfigError("an 'until' date requires a 'since' date")
	}
	if s.Since != nil && s.Until != nil && s.Until.Before(*s.Since) {
		return domain.ConfigError("'until' %s is before 'since' %s", s.Until.Format(dateLayout), s.Since.Format(dateLayout))
	}
	return nil
}

func (s Selection) Active() bool { return s.Since == nil }

// Bounds returns the range with Until defaulted to the midnight after now,
// in now's zone.
func (s Selection) Bounds(now time.Time) (since, until time.Time) {
	since = *s.Since
	if s.Until != nil {
		return since, *s.Until
	}
	y, m, d := now.Date()
	return since, time.Date(y, m, d+1, 0, 0, 0, 0, now.Location())
}

type Selector struct {
	fetcher *Fetcher
	now     func() time.Time
}

func NewSelector(f *Fetcher) *Selector {
	return &Selector{fetcher: f, now: func() time.Time { return time.Now().In(f.loc) }}
}

func (s *Selector) Select(ctx context.Context, boardID int64, sel Selection) ([]domain.Sprint, error) {
	if err := sel.Validate(); err != nil {
		return nil, err
	}
	if sel.Active() {
		sprints, err := s.fetcher.ActiveSprints(ctx, boardID)
		if err != nil {
			return nil, err
		}
		active, err := PickActive(sprints, boardID)
		if err != nil {
			return nil, err
		}
		return []domain.Sprint{active}, nil
	}
	sprints, err := s.fetcher.AllSprints(ctx, boardID)
	if err != nil {
		return nil, err
	}
	since, until := sel.Bounds(s.now())
	return FilterRange(sprints, boardID, since, until), nil
}

// PickActive returns the first sprint owned by boardID, in source order.
// Boards can show sprints of other boards, hence the ownership check.
func PickActive(sprints []domain.Sprint, boardID int64) (domain.Sprint, error) {
	for _, s := range sprints {
		if s.OriginBoardID != boardID {
			continue
		}
		if s.EndDate == nil {
			return domain.Sprint{}, domain.NewFetchError("active sprint", fmt.Errorf("sprint %d has no end date", s.ID))
		}
		return s, nil
	}
	return domain.Sprint{}, fmt.Errorf("%w: board %d", domain.ErrNoActiveSprint, boardID)
}

// FilterRange keeps sprints owned by boardID that start on or after since
// and end on or before until, ordered by start date.
func FilterRange(sprints []domain.Sprint, boardID int64, since, until time.Time) []domain.Sprint {
	var out []domain.Sprint
	for _, s := range sprints {
		if s.OriginBoardID != boardID || s.StartDate == nil || s.EndDate == nil {
			continue
		}
		if s.StartDate.Before(since) || s.EndDate.After(until) {
			continue
		}
		out = append(out, s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].StartDate.Before(*out[j].StartDate) })
	return out
}

// BoardResolver looks a board up by name.
type BoardResolver interface {
	BoardID(ctx context.Context, name string) (int64, error)
}

// ResolveBoard treats a decimal board argument as the id itself.
func ResolveBoard(ctx context.Context, r BoardResolver, board string) (int64, error) {
	board = strings.TrimSpace(board)
	if board == "" {
		return 0, domain.ConfigError("a board name or id is required")
	}
	if id, err := strconv.ParseInt(board, 10, 64); err == nil && strconv.FormatInt(id, 10) == board {
		return id, nil
	}
	if r == nil {
		return 0, domain.ConfigError("board %q must be given as a numeric id here", board)
	}
	id, err := r.BoardID(ctx, board)
	if err != nil {
		return 0, domain.NewFetchError("board", err)
	}
	return id, nil
}
