package report

import (
	"bytes"
	"encoding/csv"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/HamedShams/sprint-metrics/internal/metrics"
)

func pts(v float64) *float64 { return &v }

func day(s string) *time.Time {
	t, err := time.ParseInLocation(dateLayout, s, time.Local)
	if err != nil {
		panic(err)
	}
	return &t
}

func sprintStats(id int64, name, start, end string, issues []domain.Issue) metrics.SprintStats {
	return metrics.Aggregate(domain.Sprint{ID: id, Name: name, StartDate: day(start), EndDate: day(end), OriginBoardID: 7}, issues)
}

func fixture() []metrics.SprintStats {
	return []metrics.SprintStats{
		sprintStats(1, "Sprint 1", "2024-01-01", "2024-01-14", []domain.Issue{
			{Key: "A-1", Summary: "Login", StoryPoints: pts(3), CommitmentDate: day("2024-01-02"), CompletedInSprint: true, Bucket: domain.BucketProject},
			{Key: "A-2", Summary: "Logout", StoryPoints: pts(5), CommitmentDate: day("2024-01-03"), Bucket: domain.BucketSustainability},
			{Key: "A-3", Summary: "Crash", StoryPoints: pts(2), CompletedInSprint: true, Bucket: domain.BucketBugsImprovements},
		}),
		sprintStats(2, "Sprint 2", "2024-01-15", "2024-01-28", []domain.Issue{
			{Key: "B-1", Summary: "Typo", StoryPoints: pts(0.5), Bucket: domain.BucketBugsImprovements},
		}),
		sprintStats(3, "Sprint 3", "2024-01-29", "2024-02-11", nil),
	}
}

func TestSummaryLayout(t *testing.T) {
	out := Summary(fixture()[0])
	lines := strings.Split(out, "\n")

	if lines[0] != strings.Repeat("-", 70) {
		t.Fatalf("first line should be the sprint rule, got %q", lines[0])
	}
	if lines[1] != "Sprint 1 - 2024-01-01 - 2024-01-14" {
		t.Fatalf("heading = %q", lines[1])
	}
	for _, want := range []string{
		"Total:\n  3 Stories Attempted\n  2 Stories Completed\n  10 Points Attempted\n  5 Points Completed\n  Commitment Percentage 66.67\n",
		"Committed:\n  2 Stories Attempted\n  1 Stories Completed\n  8 Points Attempted\n  3 Points Completed\n  50.0% Accuracy\n",
		"  Missed:\n    2024-01-03 - 5 pts - A-2 - Logout\n",
		"Uncommitted:\n  1 Stories Attempted\n",
		"Bugs / Improvements:\n  1 Stories Attempted\n",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q\n%s", want, out)
		}
	}

	order := []string{"Total:", "Committed:", "Uncommitted:", "Project:", "Bugs / Improvements:", "Sustainability:"}
	last := -1
	for _, title := range order {
		idx := strings.Index(out, "\n"+title+"\n")
		if idx <= last {
			t.Fatalf("block %q out of order", title)
		}
		last = idx
	}
	if strings.Count(out, strings.Repeat("-", 40)+"\n") != 3 {
		t.Fatalf("expected two section rules after the sprint rule")
	}
}

func TestSummaryUndefinedRatios(t *testing.T) {
	out := Summary(fixture()[2])
	if !strings.Contains(out, "Commitment Percentage N/A") || !strings.Contains(out, "N/A% Accuracy") {
		t.Fatalf("undefined ratios should render as N/A:\n%s", out)
	}
	if strings.Contains(out, "Missed:") {
		t.Fatalf("no missed section expected")
	}
}

func TestMissedLineUnestimated(t *testing.T) {
	got := MissedLine(domain.Issue{Key: "C-9", Summary: "Spike", CommitmentDate: day("2024-02-01")})
	if got != "2024-02-01 - 0 pts - C-9 - Spike" {
		t.Fatalf("MissedLine = %q", got)
	}
}

func TestWriteSummaries(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummaries(&buf, fixture()); err != nil {
		t.Fatal(err)
	}
	if strings.Count(buf.String(), strings.Repeat("-", 70)) != 3 {
		t.Fatalf("one summary per sprint expected")
	}
	if strings.Index(buf.String(), "Sprint 1 -") > strings.Index(buf.String(), "Sprint 3 -") {
		t.Fatalf("console output keeps chronological order")
	}
}

func TestWriteCSVHeaders(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteCSV(&buf, fixture()); err != nil {
		t.Fatal(err)
	}
	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 5 {
		t.Fatalf("expected 2 headers and 3 rows, got %d", len(records))
	}
	wantGroups := []string{"", "", "", "", "Total", "", "", "", "Committed", "", "", "", "Project", "", "", "",
		"Bugs / Improvements", "", "", "", "Sustainability", "", "", ""}
	if !reflect.DeepEqual(records[0], wantGroups) {
		t.Fatalf("group header = %q", records[0])
	}
	if records[1][0] != "Sprint Name" || records[1][3] != "Commitment Delivery %" || records[1][4] != "Stories Attempted" || len(records[1]) != 24 {
		t.Fatalf("column header = %q", records[1])
	}
	if records[2][0] != "Sprint 3" || records[4][0] != "Sprint 1" {
		t.Fatalf("rows must be most recent first: %q, %q", records[2][0], records[4][0])
	}
	if records[4][1] != "1/14/2024" {
		t.Fatalf("end date = %q", records[4][1])
	}
	if records[2][2] != "N/A" || records[4][2] != "66.67" || records[4][3] != "50.0" {
		t.Fatalf("ratios = %q", records[2][:4])
	}
	if records[3][6] != "0.5" {
		t.Fatalf("fractional points = %q", records[3][6])
	}
}

func TestCSVRoundTrip(t *testing.T) {
	stats := fixture()
	var buf bytes.Buffer
	if err := WriteCSV(&buf, stats); err != nil {
		t.Fatal(err)
	}
	got, err := ReadCSV(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if want := Rows(stats); !reflect.DeepEqual(got, want) {
		t.Fatalf("round trip mismatch\n got: %+v\nwant: %+v", got, want)
	}
}

func TestReadCSVRejectsShortRows(t *testing.T) {
	in := "a\nb\nSprint,1/1/2024,50,50\n"
	if _, err := ReadCSV(strings.NewReader(in)); err == nil {
		t.Fatalf("short row should fail")
	}
}
