/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/rs/zerolog"
)

// Source is the page-level capability of the tracking system.
type Source interface {
	SprintsPage(ctx context.Context, boardID int64, startAt int) (domain.SprintPage, error)
	ActiveSprints(ctx context.Context, boardID int64) ([]domain.RawSprint, error)
	IssuesPage(ctx context.Context, boardID, sprintID int64, startAt, maxResults int, fields []string) (domain.IssuePage, error)
}

// Until the first page reports the real total, issue paging assumes this many.
const speculativeIssueTotal = 8000

type Fetcher struct {
	src        Source
	classifier Classifier
	fields     FieldNames
	pageSize   int
	loc        *time.Location
	log        zerolog.Logger
}

func NewFetcher(src Source, fields FieldNames, pageSize int, log zerolog.Logger) *Fetcher {
	if pageSize <= 0 {
		pageSize = 500
	}
	return &Fetcher{src: src, classifier: NewClassifier(fields), fields: fields, pageSize: pageSize, loc: time.Local, log: log}
}

// In sets the zone for calendar dates, both in issue fields and in the
// default end of a date range.
func (f *Fetcher) In(loc *time.Location) *Fetcher {
	if loc == nil {
		loc = time.Local
	}
	f.loc = loc
	f.classifier = f.classifier.In(loc)
	return f
}

// AllSprints pages through every sprint of the board until the source
// reports the last page.
func (f *Fetcher) AllSprints(ctx context.Context, boardID int64) ([]domain.Sprint, error) {
	var all []domain.Sprint
	seen := map[int64]bool{}
	startAt := 0
	for {
		page, err := f.src.SprintsPage(ctx, boardID, startAt)
		if err != nil {
			return nil, domain.NewFetchError("sprints", err)
		}
		for _, raw := range page.Values {
			if seen[raw.ID] {
				continue
			}
			seen[raw.ID] = true
			s, err := NormalizeSprint(raw)
			if err != nil {
				return nil, domain.NewFetchError("sprints", err)
			}
			all = append(all, s)
		}
		if page.IsLast {
			break
		}
		if len(page.Values) == 0 {
			return nil, domain.NewFetchError("sprints", fmt.Errorf("empty page at offset %d not marked last", startAt))
		}
		startAt += len(page.Values)
	}
	f.log.Debug().Int64("board", boardID).Int("sprints", len(all)).Msg("fetched sprints")
	return all, nil
}

func (f *Fetcher) ActiveSprints(ctx context.Context, boardID int64) ([]domain.Sprint, error) {
	raws, err := f.src.ActiveSprints(ctx, boardID)
	if err != nil {
		return nil, domain.NewFetchError("active sprint", err)
	}
	out := make([]domain.Sprint, 0, len(raws))
	for _, raw := range raws {
		s, err := NormalizeSprint(raw)
		if err != nil {
			return nil, domain.NewFetchError("active sprint", err)
		}
		out = append(out, s)
	}
	return out, nil
}

// RawIssues pages by offset while offset < total. The total reported by the
// first response is authoritative for the rest of the loop.
func (f *Fetcher) RawIssues(ctx context.Context, boardID, sprintID int64) ([]domain.RawIssue, error) {
	fields := f.fields.QueryFields()
	var all []domain.RawIssue
	seen := map[string]bool{}
	total := speculativeIssueTotal
	reported := false
	for startAt := 0; startAt < total; startAt += f.pageSize {
		page, err := f.src.IssuesPage(ctx, boardID, sprintID, startAt, f.pageSize, fields)
		if err != nil {
			return nil, domain.NewFetchError("sprint issues", err)
		}
		if !reported {
			total = page.Total
			reported = true
		}
		for _, raw := range page.Issues {
			if seen[raw.ID] {
				continue
			}
			seen[raw.ID] = true
			all = append(all, raw)
		}
	}
	f.log.Debug().Int64("sprint", sprintID).Int("issues", len(all)).Int("total", total).Msg("fetched sprint issues")
	return all, nil
}

// SprintIssues fetches and classifies every issue of the sprint.
func (f *Fetcher) SprintIssues(ctx context.Context, boardID int64, sprint domain.Sprint) ([]domain.Issue, error) {
	raws, err := f.RawIssues(ctx, boardID, sprint.ID)
	if err != nil {
		return nil, err
	}
	return f.classifier.ClassifyAll(raws, sprint)
}

// NormalizeSprint parses the API date strings; absent dates stay nil.
func NormalizeSprint(raw domain.RawSprint) (domain.Sprint, error) {
	s := domain.Sprint{ID: raw.ID, Name: raw.Name, State: raw.State, OriginBoardID: raw.OriginBoardID}
	var err error
	if s.StartDate, err = optionalTime(raw.StartDate, parseDateTime); err != nil {
		return domain.Sprint{}, fmt.Errorf("sprint %d start date: %w", raw.ID, err)
	}
	if s.EndDate, err = optionalTime(raw.EndDate, parseDateTime); err != nil {
		return domain.Sprint{}, fmt.Errorf("sprint %d end date: %w", raw.ID, err)
	}
	if s.StartDate != nil && s.EndDate != nil && s.EndDate.Before(*s.StartDate) {
		return domain.Sprint{}, fmt.Errorf("sprint %d ends before it starts", raw.ID)
	}
	return s, nil
}
