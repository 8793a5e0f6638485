/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/HamedShams/sprint-metrics/internal/metrics"
)

const csvDateLayout = "1/2/2006"

// GroupNames are the CSV column groups, in column order.
var GroupNames = []string{
	metrics.TitleTotal,
	metrics.TitleCommitted,
	metrics.TitleProject,
	metrics.TitleBugsImprovements,
	metrics.TitleSustainability,
}

var (
	leadingColumns = []string{"Sprint Name", "Sprint Ending", "Commitment %", "Commitment Delivery %"}
	metricColumns  = []string{"Stories Attempted", "Stories Completed", "Points Attempted", "Points Completed"}
)

type GroupRow struct {
	StoriesAttempted int
	StoriesCompleted int
	PointsAttempted  float64
	PointsCompleted  float64
}

// Row is one sprint line of the CSV export.
type Row struct {
	SprintName string
	EndDate    string
	Commitment domain.Ratio
	Accuracy   domain.Ratio
	Groups     []GroupRow
}

// Rows flattens stats into CSV rows, most recent sprint first.
func Rows(stats []metrics.SprintStats) []Row {
	rows := make([]Row, 0, len(stats))
	for i := len(stats) - 1; i >= 0; i-- {
		st := stats[i]
		end := ""
		if st.Sprint.EndDate != nil {
			end = st.Sprint.EndDate.Format(csvDateLayout)
		}
		rows = append(rows, Row{
			SprintName: st.Sprint.Name,
			EndDate:    end,
			Commitment: st.Committed.Commitment.Percent,
			Accuracy:   st.Committed.Commitment.Accuracy,
			Groups: []GroupRow{
				groupRow(st.Total.StatsBlock),
				groupRow(st.Committed.StatsBlock),
				groupRow(st.Buckets.Project),
				groupRow(st.Buckets.BugsImprovements),
				groupRow(st.Buckets.Sustainability),
			},
		})
	}
	return rows
}

func groupRow(b metrics.StatsBlock) GroupRow {
	return GroupRow{
		StoriesAttempted: len(b.Stories.Attempted),
		StoriesCompleted: len(b.Stories.Completed),
		PointsAttempted:  b.Points.Attempted,
		PointsCompleted:  b.Points.Completed,
	}
}

// WriteCSV writes the two header rows followed by one row per sprint.
func WriteCSV(w io.Writer, stats []metrics.SprintStats) error {
	cw := csv.NewWriter(w)
	for _, rec := range headerRecords() {
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	for _, r := range Rows(stats) {
		rec := []string{r.SprintName, r.EndDate, r.Commitment.String(), r.Accuracy.String()}
		for _, g := range r.Groups {
			rec = append(rec,
				strconv.Itoa(g.StoriesAttempted),
				strconv.Itoa(g.StoriesCompleted),
				domain.FormatNumber(g.PointsAttempted),
				domain.FormatNumber(g.PointsCompleted),
			)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func headerRecords() [][]string {
	groups := make([]string, len(leadingColumns))
	names := append([]string{}, leadingColumns...)
	for _, g := range GroupNames {
		groups = append(groups, g)
		for i := 1; i < len(metricColumns); i++ {
			groups = append(groups, "")
		}
		names = append(names, metricColumns...)
	}
	return [][]string{groups, names}
}

// ReadCSV parses a file produced by WriteCSV.
func ReadCSV(r io.Reader) ([]Row, error) {
	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("csv: missing header rows")
	}
	width := len(leadingColumns) + len(GroupNames)*len(metricColumns)
	rows := make([]Row, 0, len(records)-2)
	for n, rec := range records[2:] {
		if len(rec) != width {
			return nil, fmt.Errorf("csv row %d: %d columns, want %d", n+3, len(rec), width)
		}
		row, err := parseRow(rec)
		if err != nil {
			return nil, fmt.Errorf("csv row %d: %w", n+3, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func parseRow(rec []string) (Row, error) {
	row := Row{SprintName: rec[0], EndDate: rec[1]}
	var err error
	if row.Commitment, err = domain.ParseRatio(rec[2]); err != nil {
		return Row{}, err
	}
	if row.Accuracy, err = domain.ParseRatio(rec[3]); err != nil {
		return Row{}, err
	}
	cells := rec[len(leadingColumns):]
	for i := 0; i < len(GroupNames); i++ {
		c := cells[i*len(metricColumns):]
		var g GroupRow
		if g.StoriesAttempted, err = strconv.Atoi(c[0]); err != nil {
			return Row{}, err
		}
		if g.StoriesCompleted, err = strconv.Atoi(c[1]); err != nil {
			return Row{}, err
		}
		if g.PointsAttempted, err = strconv.ParseFloat(c[2], 64); err != nil {
			return Row{}, err
		}
		if g.PointsCompleted, err = strconv.ParseFloat(c[3], 64); err != nil {
			return Row{}, err
		}
		row.Groups = append(row.Groups, g)
	}
	return row, nil
}
