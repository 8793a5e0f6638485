/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
	"errors"
	"fmt"
	"time"

	"github.com/HamedShams/sprint-metrics/internal/domain"
)

const (
	LabelProject        = "Project"
	LabelSustainability = "sustainability"
)

// FieldNames names the two Jira custom fields the classifier reads.
type FieldNames struct {
	StoryPoints   string
	CommittedDate string
}

var baseIssueFields = []string{
	"id", "key", "created", "updated", "summary", "status",
	"resolution", "resolutiondate", "labels", "issuetype",
}

// QueryFields is the field set requested for every issue page.
func (f FieldNames) QueryFields() []string {
	out := make([]string, 0, len(baseIssueFields)+2)
	out = append(out, baseIssueFields...)
	return append(out, f.StoryPoints, f.CommittedDate)
}

type Classifier struct {
	fields FieldNames
	loc    *time.Location
}

func NewClassifier(fields FieldNames) Classifier {
	return Classifier{fields: fields, loc: time.Local}
}

// In reads date-only commitment values as midnight in loc.
func (c Classifier) In(loc *time.Location) Classifier {
	c.loc = loc
	return c
}

// Classify turns a raw record into an Issue for the given sprint. ok is
// false for subtasks, which are excluded from all metrics.
func (c Classifier) Classify(raw domain.RawIssue, sprint domain.Sprint) (issue domain.Issue, ok bool, err error) {
	if raw.ID == "" || raw.Key == "" {
		return domain.Issue{}, false, errors.New("issue without id or key")
	}
	f := fieldReader{key: raw.Key, fields: raw.Fields}

	issueType, err := f.object("issuetype", true)
	if err != nil {
		return domain.Issue{}, false, err
	}
	if subtask, _ := issueType["subtask"].(bool); subtask {
		return domain.Issue{}, false, nil
	}

	issue = domain.Issue{ID: raw.ID, Key: raw.Key}
	if issue.Summary, err = f.str("summary"); err != nil {
		return domain.Issue{}, false, err
	}
	status, err := f.object("status", true)
	if err != nil {
		return domain.Issue{}, false, err
	}
	issue.Status, _ = status["name"].(string)
	if res, err := f.object("resolution", false); err != nil {
		return domain.Issue{}, false, err
	} else if res != nil {
		issue.Resolution, _ = res["name"].(string)
	}
	if issue.StoryPoints, err = f.number(c.fields.StoryPoints); err != nil {
		return domain.Issue{}, false, err
	}
	if issue.CommitmentDate, err = f.date(c.fields.CommittedDate, inZone(c.loc)); err != nil {
		return domain.Issue{}, false, err
	}
	if issue.ResolutionDate, err = f.date("resolutiondate", parseDateTime); err != nil {
		return domain.Issue{}, false, err
	}
	labels, err := f.strings("labels")
	if err != nil {
		return domain.Issue{}, false, err
	}
	issue.Bucket = BucketFor(labels)
	issue.CompletedInSprint = completedBy(issue.ResolutionDate, sprint.EndDate)
	return issue, true, nil
}

// ClassifyAll classifies raws in order, dropping subtasks. Any malformed
// record fails the whole batch as a fetch failure.
func (c Classifier) ClassifyAll(raws []domain.RawIssue, sprint domain.Sprint) ([]domain.Issue, error) {
	out := make([]domain.Issue, 0, len(raws))
	for _, raw := range raws {
		issue, ok, err := c.Classify(raw, sprint)
		if err != nil {
			return nil, domain.NewFetchError("classify issue", err)
		}
		if ok {
			out = append(out, issue)
		}
	}
	return out, nil
}

// BucketFor picks the bucket by label, project first.
func BucketFor(labels []string) domain.Bucket {
	var sustainability bool
	for _, l := range labels {
		switch l {
		case LabelProject:
			return domain.BucketProject
		case LabelSustainability:
			sustainability = true
		}
	}
	if sustainability {
		return domain.BucketSustainability
	}
	return domain.BucketBugsImprovements
}

func completedBy(resolved, end *time.Time) bool {
	if resolved == nil {
		return false
	}
	return end == nil || !resolved.After(*end)
}

type fieldReader struct {
	key    string
	fields map[string]any
}

func (f fieldReader) errorf(name, format string, args ...any) error {
	return fmt.Errorf("issue %s field %q: %s", f.key, name, fmt.Sprintf(format, args...))
}

func (f fieldReader) object(name string, required bool) (map[string]any, error) {
	v, ok := f.fields[name]
	if !ok || v == nil {
		if required {
			return nil, f.errorf(name, "missing")
		}
		return nil, nil
	}
	m, ok := v.(map[string]any)
	if !ok {
		return nil, f.errorf(name, "expected object, got %T", v)
	}
	return m, nil
}

func (f fieldReader) str(name string) (string, error) {
	v, ok := f.fields[name]
	if !ok || v == nil {
		return "", nil
	}
	s, ok := v.(string)
	if !ok {
		return "", f.errorf(name, "expected string, got %T", v)
	}
	return s, nil
}

func (f fieldReader) number(name string) (*float64, error) {
	v, ok := f.fields[name]
	if !ok || v == nil {
		return nil, nil
	}
	n, ok := v.(float64)
	if !ok {
		return nil, f.errorf(name, "expected number, got %T", v)
	}
	return &n, nil
}

func (f fieldReader) date(name string, parse func(string) (time.Time, error)) (*time.Time, error) {
	s, err := f.str(name)
	if err != nil {
		return nil, err
	}
	t, err := optionalTime(s, parse)
	if err != nil {
		return nil, f.errorf(name, "%v", err)
	}
	return t, nil
}

func (f fieldReader) strings(name string) ([]string, error) {
	v, ok := f.fields[name]
	if !ok || v == nil {
		return nil, nil
	}
	arr, ok := v.([]any)
	if !ok {
		return nil, f.errorf(name, "expected array, got %T", v)
	}
	out := make([]string, 0, len(arr))
	for _, x := range arr {
		s, ok := x.(string)
		if !ok {
			return nil, f.errorf(name, "expected string element, got %T", x)
		}
		out = append(out, s)
	}
	return out, nil
}
