package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/HamedShams/sprint-metrics/internal/capture"
	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/HamedShams/sprint-metrics/internal/metrics"
	"github.com/rs/zerolog"
)

func TestReportOptionsParams(t *testing.T) {
	tests := []struct {
		name    string
		board   string
		opts    reportOptions
		wantErr bool
	}{
		{"active default", "Team", reportOptions{active: true}, false},
		{"range", "7", reportOptions{active: true, since: "2024-01-01", until: "2024-02-01"}, false},
		{"no board", "", reportOptions{active: true}, true},
		{"until without since", "7", reportOptions{active: true, until: "2024-02-01"}, true},
		{"explicit active with since", "7", reportOptions{active: true, activeExplicit: true, since: "2024-01-01"}, true},
		{"dump and offline", "7", reportOptions{dump: true, offline: true}, true},
		{"bad date", "7", reportOptions{since: "01/02/2024"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.opts.params(tt.board, time.UTC)
			if (err != nil) != tt.wantErr {
				t.Fatalf("params() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrConfiguration) {
				t.Fatalf("expected configuration error, got %v", err)
			}
		})
	}
}

func TestReportDatesFollowAppTZ(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("APP_TZ=Asia/Tokyo\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("APP_TZ", "")
	os.Unsetenv("APP_TZ")
	hostZone := time.Local

	cfg, err := loadConfig(globalOptions{envFile: envFile, envExplicit: true})
	if err != nil {
		t.Fatal(err)
	}
	if time.Local != hostZone {
		t.Fatalf("APP_TZ must not replace the process zone")
	}
	p, err := reportOptions{since: "2024-01-10", until: "2024-01-24"}.params("7", cfg.Location())
	if err != nil {
		t.Fatal(err)
	}
	tokyo, _ := time.LoadLocation("Asia/Tokyo")
	if want := time.Date(2024, 1, 10, 0, 0, 0, 0, tokyo); !p.Since.Equal(want) {
		t.Fatalf("since = %v, want %v", p.Since, want)
	}

	// 2024-01-09 15:30 UTC is already the 10th in Tokyo.
	start := time.Date(2024, 1, 10, 0, 30, 0, 0, tokyo)
	end := time.Date(2024, 1, 23, 18, 0, 0, 0, tokyo)
	sprints := []domain.Sprint{{ID: 1, OriginBoardID: 7, StartDate: &start, EndDate: &end}}
	if got := metrics.FilterRange(sprints, 7, *p.Since, *p.Until); len(got) != 1 {
		t.Fatalf("sprint starting on the since day in APP_TZ was dropped")
	}
}

func TestRunReportOffline(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := capture.Open(ctx, dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	start := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 14, 17, 0, 0, 0, time.UTC)
	sp := 3.0
	if err := store.SaveSprints(ctx, []domain.Sprint{{ID: 5, Name: "Sprint 5", StartDate: &start, EndDate: &end, OriginBoardID: 7}}); err != nil {
		t.Fatal(err)
	}
	if err := store.SaveIssues(ctx, 5, []domain.Issue{{Key: "A-1", StoryPoints: &sp, CommitmentDate: &start, CompletedInSprint: true}}); err != nil {
		t.Fatal(err)
	}

	envFile := filepath.Join(dir, "test.env")
	if err := os.WriteFile(envFile, []byte("CAPTURE_LOCATION="+dir+"\nAPP_ENV=test\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	// godotenv never overrides variables that are already set, even to "".
	for _, k := range []string{"CAPTURE_LOCATION", "APP_ENV"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}
	t.Setenv("DB_DSN", "")
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("OPENAI_API_KEY", "")
	csvPath := filepath.Join(dir, "out.csv")

	var out bytes.Buffer
	g := globalOptions{envFile: envFile, envExplicit: true, board: "7"}
	if err := runReport(ctx, &out, g, reportOptions{active: true, offline: true, file: csvPath}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.String(), "Sprint 5 - 2024-01-01 - 2024-01-14") || !strings.Contains(out.String(), "100.0% Accuracy") {
		t.Fatalf("console output:\n%s", out.String())
	}
	data, err := os.ReadFile(csvPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "Sprint 5,1/14/2024,100.0,100.0,1,1,3,3") {
		t.Fatalf("csv:\n%s", data)
	}
}
