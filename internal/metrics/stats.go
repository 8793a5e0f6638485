/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
	"sort"

	"github.com/HamedShams/sprint-metrics/internal/domain"
)

type Stories struct {
	Attempted []domain.Issue `json:"attempted"`
	Completed []domain.Issue `json:"completed"`
}

type Points struct {
	Attempted float64 `json:"attempted"`
	Completed float64 `json:"completed"`
}

// StatsBlock is the attempted/completed rollup of one issue set.
type StatsBlock struct {
	Title   string  `json:"title"`
	Stories Stories `json:"stories"`
	Points  Points  `json:"points"`
}

type TotalStats struct {
	StatsBlock
	CommitmentPercentage domain.Ratio `json:"commitment_percentage"`
}

type Commitment struct {
	Percent  domain.Ratio   `json:"percent"`
	Accuracy domain.Ratio   `json:"accuracy"`
	Missed   []domain.Issue `json:"missed"`
}

type CommittedStats struct {
	StatsBlock
	Commitment Commitment `json:"commitment"`
}

type Buckets struct {
	Project          StatsBlock `json:"project"`
	BugsImprovements StatsBlock `json:"bugs_improvements"`
	Sustainability   StatsBlock `json:"sustainability"`
}

type SprintStats struct {
	Sprint      domain.Sprint  `json:"sprint"`
	Total       TotalStats     `json:"total"`
	Committed   CommittedStats `json:"committed"`
	Uncommitted StatsBlock     `json:"uncommitted"`
	Buckets     Buckets        `json:"buckets"`
}

const (
	TitleTotal            = "Total"
	TitleCommitted        = "Committed"
	TitleUncommitted      = "Uncommitted"
	TitleProject          = "Project"
	TitleBugsImprovements = "Bugs / Improvements"
	TitleSustainability   = "Sustainability"
)

// SumPoints adds story points, counting unestimated issues as 0.
func SumPoints(issues []domain.Issue) float64 {
	var sum float64
	for _, i := range issues {
		sum += i.Points()
	}
	return sum
}

func NewStatsBlock(title string, issues []domain.Issue) StatsBlock {
	completed := filter(issues, func(i domain.Issue) bool { return i.CompletedInSprint })
	return StatsBlock{
		Title:   title,
		Stories: Stories{Attempted: issues, Completed: completed},
		Points:  Points{Attempted: SumPoints(issues), Completed: SumPoints(completed)},
	}
}

// Partition splits issues into those committed by the sprint end and the rest.
func Partition(issues []domain.Issue, sprint domain.Sprint) (committed, uncommitted []domain.Issue) {
	committed = []domain.Issue{}
	uncommitted = []domain.Issue{}
	for _, i := range issues {
		if i.CommittedBy(sprint.EndDate) {
			committed = append(committed, i)
		} else {
			uncommitted = append(uncommitted, i)
		}
	}
	return committed, uncommitted
}

// Aggregate computes the statistics of one sprint. The input slice is not
// modified; the Missed flag is set on copies.
func Aggregate(sprint domain.Sprint, classified []domain.Issue) SprintStats {
	issues := make([]domain.Issue, len(classified))
	copy(issues, classified)
	for idx := range issues {
		issues[idx].Missed = issues[idx].CommittedBy(sprint.EndDate) && !issues[idx].CompletedInSprint
	}

	committed, uncommitted := Partition(issues, sprint)
	percent := domain.Percent(len(committed), len(issues))

	committedBlock := NewStatsBlock(TitleCommitted, committed)
	missed := filter(committed, func(i domain.Issue) bool { return i.Missed })
	SortMissed(missed)

	return SprintStats{
		Sprint: sprint,
		Total: TotalStats{
			StatsBlock:           NewStatsBlock(TitleTotal, issues),
			CommitmentPercentage: percent,
		},
		Committed: CommittedStats{
			StatsBlock: committedBlock,
			Commitment: Commitment{
				Percent:  percent,
				Accuracy: domain.Percent(len(committedBlock.Stories.Completed), len(committed)),
				Missed:   missed,
			},
		},
		Uncommitted: NewStatsBlock(TitleUncommitted, uncommitted),
		Buckets: Buckets{
			Project:          NewStatsBlock(TitleProject, inBucket(issues, domain.BucketProject)),
			BugsImprovements: NewStatsBlock(TitleBugsImprovements, inBucket(issues, domain.BucketBugsImprovements)),
			Sustainability:   NewStatsBlock(TitleSustainability, inBucket(issues, domain.BucketSustainability)),
		},
	}
}

// SortMissed orders by commitment date, then key.
func SortMissed(issues []domain.Issue) {
	sort.SliceStable(issues, func(a, b int) bool {
		da, db := issues[a].CommitmentDate, issues[b].CommitmentDate
		switch {
		case da == nil && db != nil:
			return true
		case da != nil && db == nil:
			return false
		case da != nil && db != nil && !da.Equal(*db):
			return da.Before(*db)
		}
		return issues[a].Key < issues[b].Key
	})
}

func inBucket(issues []domain.Issue, b domain.Bucket) []domain.Issue {
	return filter(issues, func(i domain.Issue) bool { return i.Bucket == b })
}

func filter(issues []domain.Issue, keep func(domain.Issue) bool) []domain.Issue {
	out := []domain.Issue{}
	for _, i := range issues {
		if keep(i) {
			out = append(out, i)
		}
	}
	return out
}
