/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jira

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/HamedShams/sprint-metrics/internal/config"
	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/rs/zerolog"
)

// Client talks to the Jira Software Agile REST API (/rest/agile/1.0).
type Client struct {
	baseURL string
	token   string
	user    string
	pass    string
	http    *http.Client
	log     zerolog.Logger
	backoff time.Duration
}

func NewClient(cfg config.Config, log zerolog.Logger) *Client {
	return &Client{
		baseURL: cfg.JiraBaseURL,
		token:   cfg.JiraPAT,
		user:    cfg.JiraUsername,
		pass:    cfg.JiraPassword,
		http:    &http.Client{Timeout: cfg.HTTPTimeout},
		log:     log,
		backoff: 300 * time.Millisecond,
	}
}

func (c *Client) apiURL(path string, q url.Values) string {
	base := strings.TrimRight(c.baseURL, "/")
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	u := base + "/rest/agile/1.0" + path
	if len(q) > 0 {
		u = u + "?" + q.Encode()
	}
	return u
}

// getJSON issues a GET and decodes the body into out. 429 and 5xx responses
// are retried with exponential backoff; anything else fails immediately.
func (c *Client) getJSON(ctx context.Context, op, u string, out any) error {
	if c.baseURL == "" {
		return domain.NewFetchError(op, errors.New("jira: empty baseURL"))
	}
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return domain.NewFetchError(op, ctx.Err())
			case <-time.After(time.Duration(1<<(attempt-1)) * c.backoff):
			}
		}
		retry, err := c.do(ctx, u, out)
		if err == nil {
			return nil
		}
		lastErr = err
		if !retry {
			break
		}
		c.log.Warn().Err(err).Int("attempt", attempt+1).Str("op", op).Msg("jira request failed, retrying")
	}
	return domain.NewFetchError(op, lastErr)
}

func (c *Client) do(ctx context.Context, u string, out any) (retry bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.user != "" && c.pass != "" {
		req.SetBasicAuth(c.user, c.pass)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ctx.Err() == nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := fmt.Errorf("jira api status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(b)))
		return resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500, err
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("jira: decode response: %w", err)
	}
	return false, nil
}

// BoardID resolves a board name to the first board Jira returns for it.
func (c *Client) BoardID(ctx context.Context, name string) (int64, error) {
	if strings.TrimSpace(name) == "" {
		return 0, domain.NewFetchError("board", errors.New("jira: empty board name"))
	}
	var page struct {
		Values []struct {
			ID   int64  `json:"id"`
			Name string `json:"name"`
		} `json:"values"`
	}
	if err := c.getJSON(ctx, "board", c.apiURL("/board", url.Values{"name": {name}}), &page); err != nil {
		return 0, err
	}
	if len(page.Values) == 0 {
		return 0, domain.NewFetchError("board", fmt.Errorf("jira: no board named %q", name))
	}
	return page.Values[0].ID, nil
}

type sprintPage struct {
	IsLast bool               `json:"isLast"`
	Values []domain.RawSprint `json:"values"`
}

func (c *Client) SprintsPage(ctx context.Context, boardID int64, startAt int) (domain.SprintPage, error) {
	q := url.Values{}
	q.Set("startAt", strconv.Itoa(startAt))
	var page sprintPage
	if err := c.getJSON(ctx, "sprints", c.apiURL(boardPath(boardID, "/sprint"), q), &page); err != nil {
		return domain.SprintPage{}, err
	}
	return domain.SprintPage{Values: page.Values, IsLast: page.IsLast}, nil
}

func (c *Client) ActiveSprints(ctx context.Context, boardID int64) ([]domain.RawSprint, error) {
	var page sprintPage
	if err := c.getJSON(ctx, "active sprint", c.apiURL(boardPath(boardID, "/sprint"), url.Values{"state": {"active"}}), &page); err != nil {
		return nil, err
	}
	return page.Values, nil
}

func (c *Client) IssuesPage(ctx context.Context, boardID, sprintID int64, startAt, maxResults int, fields []string) (domain.IssuePage, error) {
	q := url.Values{}
	q.Set("startAt", strconv.Itoa(startAt))
	q.Set("maxResults", strconv.Itoa(maxResults))
	q.Set("fields", strings.Join(fields, ","))
	path := boardPath(boardID, "/sprint/"+strconv.FormatInt(sprintID, 10)+"/issue")
	var page struct {
		Total  int               `json:"total"`
		Issues []domain.RawIssue `json:"issues"`
	}
	if err := c.getJSON(ctx, "sprint issues", c.apiURL(path, q), &page); err != nil {
		return domain.IssuePage{}, err
	}
	c.log.Debug().Int64("sprint", sprintID).Int("start_at", startAt).Int("count", len(page.Issues)).Int("total", page.Total).Msg("jira issues page")
	return domain.IssuePage{Issues: page.Issues, Total: page.Total}, nil
}

func boardPath(boardID int64, suffix string) string {
	return "/board/" + strconv.FormatInt(boardID, 10) + suffix
}
