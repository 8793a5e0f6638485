/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/HamedShams/sprint-metrics/internal/metrics"
)

const (
	dateLayout   = "2006-01-02"
	sprintRule   = 70
	sectionRule  = 40
	missedIndent = "    "
)

// WriteSummary renders the console summary of one sprint.
func WriteSummary(w io.Writer, st metrics.SprintStats) error {
	_, err := io.WriteString(w, Summary(st))
	return err
}

// WriteSummaries renders every sprint in the given order.
func WriteSummaries(w io.Writer, stats []metrics.SprintStats) error {
	for _, st := range stats {
		if err := WriteSummary(w, st); err != nil {
			return err
		}
	}
	return nil
}

func Summary(st metrics.SprintStats) string {
	b := &strings.Builder{}
	s := st.Sprint

	fmt.Fprintln(b, strings.Repeat("-", sprintRule))
	fmt.Fprintf(b, "%s - %s - %s\n", s.Name, formatDate(s.StartDate), formatDate(s.EndDate))

	writeBlock(b, st.Total.StatsBlock, func(b *strings.Builder) {
		fmt.Fprintf(b, "  Commitment Percentage %s\n", st.Total.CommitmentPercentage)
	})

	fmt.Fprintln(b, strings.Repeat("-", sectionRule))
	writeBlock(b, st.Committed.StatsBlock, func(b *strings.Builder) {
		c := st.Committed.Commitment
		fmt.Fprintf(b, "  %s%% Accuracy\n", c.Accuracy)
		if len(c.Missed) == 0 {
			return
		}
		lines := make([]string, len(c.Missed))
		for i, issue := range c.Missed {
			lines[i] = MissedLine(issue)
		}
		fmt.Fprintf(b, "  Missed:\n%s%s\n", missedIndent, strings.Join(lines, "\n"+missedIndent))
	})
	writeBlock(b, st.Uncommitted, nil)

	fmt.Fprintln(b, strings.Repeat("-", sectionRule))
	writeBlock(b, st.Buckets.Project, nil)
	writeBlock(b, st.Buckets.BugsImprovements, nil)
	writeBlock(b, st.Buckets.Sustainability, nil)
	return b.String()
}

// MissedLine formats a missed ticket as "date - points pts - key - summary".
func MissedLine(i domain.Issue) string {
	return fmt.Sprintf("%s - %s pts - %s - %s", formatDate(i.CommitmentDate), domain.FormatNumber(i.Points()), i.Key, i.Summary)
}

func writeBlock(b *strings.Builder, blk metrics.StatsBlock, extra func(*strings.Builder)) {
	fmt.Fprintf(b, "%s:\n", blk.Title)
	fmt.Fprintf(b, "  %d Stories Attempted\n", len(blk.Stories.Attempted))
	fmt.Fprintf(b, "  %d Stories Completed\n", len(blk.Stories.Completed))
	fmt.Fprintf(b, "  %s Points Attempted\n", domain.FormatNumber(blk.Points.Attempted))
	fmt.Fprintf(b, "  %s Points Completed\n", domain.FormatNumber(blk.Points.Completed))
	if extra != nil {
		extra(b)
	}
	fmt.Fprintln(b)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(dateLayout)
}
