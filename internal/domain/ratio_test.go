package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

func TestPercent(t *testing.T) {
	tests := []struct {
		name     string
		num, den int
		want     Ratio
	}{
		{"two thirds", 2, 3, Ratio{Value: 66.67, Defined: true}},
		{"half", 1, 2, Ratio{Value: 50, Defined: true}},
		{"all", 4, 4, Ratio{Value: 100, Defined: true}},
		{"none", 0, 7, Ratio{Value: 0, Defined: true}},
		{"empty set", 0, 0, Ratio{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Percent(tt.num, tt.den); got != tt.want {
				t.Fatalf("Percent(%d, %d) = %+v, want %+v", tt.num, tt.den, got, tt.want)
			}
		})
	}
}

func TestRatioStringAndParse(t *testing.T) {
	for _, r := range []Ratio{{}, {Value: 66.67, Defined: true}, {Value: 50, Defined: true}} {
		s := r.String()
		back, err := ParseRatio(s)
		if err != nil {
			t.Fatalf("ParseRatio(%q): %v", s, err)
		}
		if back != r {
			t.Fatalf("round trip %q: got %+v want %+v", s, back, r)
		}
	}
	if s := (Ratio{}).String(); s != "N/A" {
		t.Fatalf("undefined ratio printed as %q", s)
	}
	if s := Percent(1, 2).String(); s != "50.0" {
		t.Fatalf("50%% printed as %q", s)
	}
	for _, tt := range []struct {
		r    Ratio
		want string
	}{
		{Percent(1, 1), "100.0"},
		{Percent(0, 4), "0.0"},
		{Percent(2, 3), "66.67"},
		{Percent(1, 8), "12.5"},
	} {
		if got := tt.r.String(); got != tt.want {
			t.Errorf("%+v printed as %q, want %q", tt.r, got, tt.want)
		}
	}
}

func TestRatioJSON(t *testing.T) {
	b, err := json.Marshal(struct {
		A Ratio `json:"a"`
		B Ratio `json:"b"`
	}{A: Ratio{}, B: Percent(1, 3)})
	if err != nil {
		t.Fatal(err)
	}
	if string(b) != `{"a":null,"b":33.33}` {
		t.Fatalf("unexpected json %s", b)
	}
	var r Ratio
	if err := json.Unmarshal([]byte("null"), &r); err != nil || r.Defined {
		t.Fatalf("null should decode to undefined ratio, got %+v err=%v", r, err)
	}
}

func TestIssueHelpers(t *testing.T) {
	end := time.Date(2024, 1, 31, 17, 0, 0, 0, time.UTC)
	before := end.Add(-24 * time.Hour)
	after := end.Add(24 * time.Hour)
	pts := 3.0

	if (Issue{}).Points() != 0 {
		t.Fatalf("nil points should count as 0")
	}
	if (Issue{StoryPoints: &pts}).Points() != 3 {
		t.Fatalf("points not returned")
	}
	if (Issue{}).CommittedBy(&end) {
		t.Fatalf("issue without commitment date is never committed")
	}
	if !(Issue{CommitmentDate: &before}).CommittedBy(&end) {
		t.Fatalf("commitment before end should be committed")
	}
	if !(Issue{CommitmentDate: &end}).CommittedBy(&end) {
		t.Fatalf("commitment at end should be committed")
	}
	if (Issue{CommitmentDate: &after}).CommittedBy(&end) {
		t.Fatalf("commitment after end should not be committed")
	}
}

func TestFetchError(t *testing.T) {
	base := errors.New("boom")
	err := NewFetchError("issues", base)
	if !errors.Is(err, ErrFetch) || !errors.Is(err, base) {
		t.Fatalf("fetch error should match ErrFetch and its cause: %v", err)
	}
	if again := NewFetchError("outer", err); again != err {
		t.Fatalf("already wrapped error should be returned as is")
	}
	if !errors.Is(ConfigError("missing %s", "x"), ErrConfiguration) {
		t.Fatalf("ConfigError should match ErrConfiguration")
	}
}
