/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import "time"

type Sprint struct {
	ID            int64      `json:"id"`
	Name          string     `json:"name"`
	State         string     `json:"state"`
	StartDate     *time.Time `json:"start_date,omitempty"`
	EndDate       *time.Time `json:"end_date,omitempty"`
	OriginBoardID int64      `json:"origin_board_id"`
}

// Bucket is the work category of an issue, derived from its labels.
type Bucket string

const (
	BucketProject          Bucket = "project"
	BucketSustainability   Bucket = "sustainability"
	BucketBugsImprovements Bucket = "bugs_improvements"
)

type Issue struct {
	ID                string     `json:"id"`
	Key               string     `json:"key"`
	Summary           string     `json:"summary"`
	Status            string     `json:"status"`
	Resolution        string     `json:"resolution,omitempty"`
	CommitmentDate    *time.Time `json:"commitment_date,omitempty"`
	StoryPoints       *float64   `json:"story_points,omitempty"`
	Bucket            Bucket     `json:"bucket"`
	ResolutionDate    *time.Time `json:"resolution_date,omitempty"`
	CompletedInSprint bool       `json:"completed_in_sprint"`
	Missed            bool       `json:"missed,omitempty"`
}

// Points returns the story points of the issue, 0 when unestimated.
func (i Issue) Points() float64 {
	if i.StoryPoints == nil {
		return 0
	}
	return *i.StoryPoints
}

// CommittedBy reports whether the issue carries a commitment date at or
// before end. A nil end means the sprint is unbounded.
func (i Issue) CommittedBy(end *time.Time) bool {
	if i.CommitmentDate == nil {
		return false
	}
	return end == nil || !i.CommitmentDate.After(*end)
}

// RawSprint is a sprint record as returned by the Jira Agile API.
type RawSprint struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	State         string `json:"state"`
	StartDate     string `json:"startDate,omitempty"`
	EndDate       string `json:"endDate,omitempty"`
	OriginBoardID int64  `json:"originBoardId"`
}

// RawIssue is an issue record as returned by the Jira Agile API. Fields
// stays untyped because two of them are custom fields named by configuration.
type RawIssue struct {
	ID     string         `json:"id"`
	Key    string         `json:"key"`
	Fields map[string]any `json:"fields"`
}

type SprintPage struct {
	Values []RawSprint
	IsLast bool
}

type IssuePage struct {
	Issues []RawIssue
	Total  int
}
