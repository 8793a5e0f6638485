/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package metrics

import (
	"fmt"
	"time"
)

const dateLayout = "2006-01-02"

// Jira emits "2024-01-15T10:20:30.000+0100"; the rest are tolerated.
var dateTimeLayouts = []string{
	"2006-01-02T15:04:05.000-0700",
	time.RFC3339Nano,
	"2006-01-02T15:04:05-0700",
	"2006-01-02T15:04:05",
}

func parseDateTime(s string) (time.Time, error) {
	for _, layout := range dateTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date-time %q", s)
}

// inZone returns a date parser that reads a calendar date as midnight in
// loc, and a full date-time for fields configured with a date-time type.
func inZone(loc *time.Location) func(string) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	return func(s string) (time.Time, error) {
		if t, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
			return t, nil
		}
		return parseDateTime(s)
	}
}

// optionalTime maps "" to nil.
func optionalTime(s string, parse func(string) (time.Time, error)) (*time.Time, error) {
	if s == "" {
		return nil, nil
	}
	t, err := parse(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
