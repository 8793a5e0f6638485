package jira

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/HamedShams/sprint-metrics/internal/config"
	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/rs/zerolog"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c := NewClient(config.Config{JiraBaseURL: srv.URL, JiraUsername: "lead", JiraPassword: "secret"}, zerolog.Nop())
	c.backoff = 0
	return c
}

func TestIssuesPage_RequestsFieldsAndDecodes(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/rest/agile/1.0/board/7/sprint/99/issue" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("startAt") != "500" || q.Get("maxResults") != "500" {
			t.Errorf("unexpected paging %v", q)
		}
		if q.Get("fields") != "id,key,customfield_1" {
			t.Errorf("unexpected fields %q", q.Get("fields"))
		}
		if u, p, ok := r.BasicAuth(); !ok || u != "lead" || p != "secret" {
			t.Errorf("basic auth not sent")
		}
		w.Write([]byte(`{"total":501,"issues":[{"id":"10001","key":"A-1","fields":{"summary":"s","customfield_1":3}}]}`))
	})

	page, err := c.IssuesPage(context.Background(), 7, 99, 500, 500, []string{"id", "key", "customfield_1"})
	if err != nil {
		t.Fatalf("IssuesPage: %v", err)
	}
	if page.Total != 501 || len(page.Issues) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
	if page.Issues[0].Key != "A-1" || page.Issues[0].Fields["customfield_1"] != 3.0 {
		t.Fatalf("issue not decoded: %+v", page.Issues[0])
	}
}

func TestSprintsPage(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("startAt") != "50" {
			t.Errorf("unexpected startAt %q", r.URL.Query().Get("startAt"))
		}
		w.Write([]byte(`{"isLast":true,"values":[{"id":1,"name":"S1","state":"closed","startDate":"2024-01-01T09:00:00.000Z","endDate":"2024-01-14T17:00:00.000Z","originBoardId":7}]}`))
	})
	page, err := c.SprintsPage(context.Background(), 7, 50)
	if err != nil {
		t.Fatalf("SprintsPage: %v", err)
	}
	if !page.IsLast || len(page.Values) != 1 || page.Values[0].OriginBoardID != 7 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestActiveSprints_SendsStateFilter(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("state") != "active" {
			t.Errorf("state filter missing")
		}
		w.Write([]byte(`{"isLast":true,"values":[{"id":3,"originBoardId":8},{"id":4,"originBoardId":7}]}`))
	})
	got, err := c.ActiveSprints(context.Background(), 7)
	if err != nil || len(got) != 2 {
		t.Fatalf("ActiveSprints = %v, %v", got, err)
	}
}

func TestBoardID_TakesFirstResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("name") != "Team" {
			t.Errorf("name filter missing")
		}
		w.Write([]byte(`{"values":[{"id":1,"name":"Team Alpha"},{"id":2,"name":"Team"}]}`))
	})
	id, err := c.BoardID(context.Background(), "Team")
	if err != nil || id != 1 {
		t.Fatalf("BoardID = %d, %v", id, err)
	}
}

func TestBoardID_NotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"values":[]}`))
	})
	if _, err := c.BoardID(context.Background(), "Ghost"); !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected fetch failure, got %v", err)
	}
}

func TestGetJSON_RetriesServerErrors(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"isLast":true,"values":[]}`))
	})
	if _, err := c.SprintsPage(context.Background(), 7, 0); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}
}

func TestGetJSON_ClientErrorIsFatal(t *testing.T) {
	var calls int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "nope", http.StatusUnauthorized)
	})
	_, err := c.SprintsPage(context.Background(), 7, 0)
	if !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected fetch failure, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("4xx should not be retried, got %d calls", calls)
	}
}

func TestGetJSON_BadJSON(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{not json`))
	})
	if _, err := c.ActiveSprints(context.Background(), 7); !errors.Is(err, domain.ErrFetch) {
		t.Fatalf("expected fetch failure, got %v", err)
	}
}
