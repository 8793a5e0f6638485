package metrics

import (
	"context"
	"errors"
	"testing"

	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/rs/zerolog"
)

type stubSource struct {
	sprints []domain.Sprint
	issues  map[int64][]domain.Issue
	err     error
	calls   []int64
}

func (s *stubSource) Sprints(context.Context, int64, Selection) ([]domain.Sprint, error) {
	return s.sprints, nil
}

func (s *stubSource) Issues(_ context.Context, _ int64, sprint domain.Sprint) ([]domain.Issue, error) {
	s.calls = append(s.calls, sprint.ID)
	if s.err != nil {
		return nil, s.err
	}
	return s.issues[sprint.ID], nil
}

func TestCollect(t *testing.T) {
	src := &stubSource{
		sprints: []domain.Sprint{
			sprintBetween(1, 7, "2024-01-01", "2024-01-14"),
			sprintBetween(2, 7, "2024-01-15", "2024-01-28"),
		},
		issues: map[int64][]domain.Issue{
			1: {{Key: "A-1", StoryPoints: pts(3), CompletedInSprint: true}},
			2: {{Key: "A-2", StoryPoints: pts(5), CommitmentDate: at("2024-01-16")}},
		},
	}
	since := day("2024-01-01")
	got, err := Collect(context.Background(), src, 7, Selection{Since: &since}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Sprint.ID != 1 || got[1].Sprint.ID != 2 {
		t.Fatalf("unexpected stats order: %+v", got)
	}
	if got[0].Total.Points.Completed != 3 || len(got[1].Committed.Commitment.Missed) != 1 {
		t.Fatalf("aggregation not applied: %+v", got)
	}
}

func TestCollect_AbortsOnFirstError(t *testing.T) {
	boom := domain.NewFetchError("sprint issues", errors.New("timeout"))
	src := &stubSource{
		sprints: []domain.Sprint{sprintBetween(1, 7, "2024-01-01", "2024-01-14"), sprintBetween(2, 7, "2024-01-15", "2024-01-28")},
		err:     boom,
	}
	since := day("2024-01-01")
	_, err := Collect(context.Background(), src, 7, Selection{Since: &since}, zerolog.Nop())
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected fetch failure, got %v", err)
	}
	if len(src.calls) != 1 {
		t.Fatalf("should stop after the first failing sprint, calls = %v", src.calls)
	}
}

func TestCollect_RejectsInvalidSelection(t *testing.T) {
	until := day("2024-01-01")
	_, err := Collect(context.Background(), &stubSource{}, 7, Selection{Until: &until}, zerolog.Nop())
	if !errors.Is(err, domain.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
