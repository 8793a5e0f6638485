/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/HamedShams/sprint-metrics/internal/capture"
	"github.com/HamedShams/sprint-metrics/internal/config"
	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/HamedShams/sprint-metrics/internal/metrics"
	"github.com/HamedShams/sprint-metrics/internal/repo"
	"github.com/HamedShams/sprint-metrics/internal/report"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// JiraClient is the tracker capability a live run needs.
type JiraClient interface {
	metrics.Source
	metrics.BoardResolver
}

type LLM interface {
	Summarize(ctx context.Context, stats []metrics.SprintStats) (string, error)
}

type Notifier interface {
	SendMessagePlain(ctx context.Context, chatID int64, text string) error
}

// RunStore records report runs. *repo.Repository implements it.
type RunStore interface {
	StartRun(ctx context.Context, runID string, boardID int64, mode string) error
	FinishRun(ctx context.Context, runID string, sprints int, success bool, errStr string) error
	GetLastRun(ctx context.Context) (*repo.LastRun, error)
}

type Mode string

const (
	ModeLive   Mode = "live"
	ModeRecord Mode = "record"
	ModeReplay Mode = "replay"
)

// telegramChunk stays under the 4096 character message limit.
const telegramChunk = 3800

// Params describes one report run.
type Params struct {
	Board   string
	Since   *time.Time
	Until   *time.Time
	Dump    bool
	Offline bool
}

func (p Params) Mode() Mode {
	switch {
	case p.Offline:
		return ModeReplay
	case p.Dump:
		return ModeRecord
	}
	return ModeLive
}

func (p Params) Selection() metrics.Selection {
	return metrics.Selection{Since: p.Since, Until: p.Until}
}

func (p Params) Validate() error {
	if p.Dump && p.Offline {
		return domain.ConfigError("--dump and --offline cannot be combined")
	}
	return p.Selection().Validate()
}

type Result struct {
	RunID      string                `json:"run_id"`
	BoardID    int64                 `json:"board_id"`
	Mode       Mode                  `json:"mode"`
	Sprints    []metrics.SprintStats `json:"sprints"`
	StartedAt  time.Time             `json:"started_at"`
	FinishedAt time.Time             `json:"finished_at"`
}

type Service struct {
	cfg  config.Config
	log  zerolog.Logger
	runs RunStore
	jira JiraClient
	llm  LLM
	tg   Notifier

	mu   sync.RWMutex
	last *Result
}

// New wires the service. Any collaborator may be nil: runs are then not
// recorded, live runs fail, and digests skip the narrative or delivery.
func New(cfg config.Config, log zerolog.Logger, runs RunStore, jira JiraClient, llm LLM, tg Notifier) *Service {
	return &Service{cfg: cfg, log: log, runs: runs, jira: jira, llm: llm, tg: tg}
}

// Run resolves the board, picks the data source, and collects the stats of
// every selected sprint.
func (s *Service) Run(ctx context.Context, p Params) (*Result, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	mode := p.Mode()
	if mode != ModeReplay && s.jira == nil {
		return nil, domain.ConfigError("no Jira client configured for a %s run", mode)
	}
	boardID, err := s.resolveBoard(ctx, p.Board, mode)
	if err != nil {
		return nil, err
	}

	res := &Result{RunID: uuid.NewString(), BoardID: boardID, Mode: mode, StartedAt: time.Now()}
	log := s.log.With().Str("run", res.RunID).Str("mode", string(mode)).Logger()
	if s.runs != nil {
		if err := s.runs.StartRun(ctx, res.RunID, boardID, string(mode)); err != nil {
			log.Error().Err(err).Msg("start run failed")
		}
	}

	var runErr error
	defer func() {
		if s.runs == nil {
			return
		}
		errStr := ""
		if runErr != nil {
			errStr = runErr.Error()
		}
		if err := s.runs.FinishRun(context.WithoutCancel(ctx), res.RunID, len(res.Sprints), runErr == nil, errStr); err != nil {
			log.Error().Err(err).Msg("finish run failed")
		}
	}()

	src, closeSrc, runErr := s.source(ctx, mode)
	if runErr != nil {
		return nil, runErr
	}
	defer closeSrc()

	log.Info().Int64("board", boardID).Msg("report run: start")
	res.Sprints, runErr = metrics.Collect(ctx, src, boardID, p.Selection(), log)
	if runErr != nil {
		return nil, runErr
	}
	res.FinishedAt = time.Now()
	log.Info().Int("sprints", len(res.Sprints)).Dur("took", res.FinishedAt.Sub(res.StartedAt)).Msg("report run: done")

	s.mu.Lock()
	s.last = res
	s.mu.Unlock()
	return res, nil
}

// resolveBoard looks names up in Jira. Replays never reach Jira; a named
// board there maps to 0 since the recording already holds the selection.
func (s *Service) resolveBoard(ctx context.Context, board string, mode Mode) (int64, error) {
	if mode != ModeReplay {
		return metrics.ResolveBoard(ctx, s.jira, board)
	}
	id, err := metrics.ResolveBoard(ctx, nil, board)
	if errors.Is(err, domain.ErrConfiguration) && strings.TrimSpace(board) != "" {
		s.log.Debug().Str("board", board).Msg("replaying by board name, id not resolved")
		return 0, nil
	}
	return id, err
}

func (s *Service) source(ctx context.Context, mode Mode) (metrics.SprintSource, func(), error) {
	noop := func() {}
	if mode == ModeLive {
		return s.live(), noop, nil
	}
	store, err := capture.Open(ctx, s.cfg.CaptureLocation, s.log)
	if err != nil {
		return nil, noop, err
	}
	closeStore := func() {
		if err := store.Close(); err != nil {
			s.log.Warn().Err(err).Msg("close capture store")
		}
	}
	if mode == ModeReplay {
		return capture.NewReplayer(store), closeStore, nil
	}
	return capture.NewRecorder(s.live(), store), closeStore, nil
}

func (s *Service) live() *metrics.Live {
	fields := metrics.FieldNames{StoryPoints: s.cfg.StoryPointsField, CommittedDate: s.cfg.CommittedDateField}
	return metrics.NewLive(metrics.NewFetcher(s.jira, fields, s.cfg.JiraPageSize, s.log).In(s.cfg.Location()))
}

// LastResult returns the most recent successful run of this process.
func (s *Service) LastResult() *Result {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.last
}

// GetLastRun prefers the database record and falls back to the in-memory
// result when no database is configured.
func (s *Service) GetLastRun(ctx context.Context) (any, error) {
	if s.runs != nil {
		return s.runs.GetLastRun(ctx)
	}
	last := s.LastResult()
	if last == nil {
		return nil, repo.ErrNotFound
	}
	return &repo.LastRun{
		RunID:      last.RunID,
		BoardID:    last.BoardID,
		Mode:       string(last.Mode),
		StartedAt:  last.StartedAt,
		FinishedAt: &last.FinishedAt,
		Sprints:    len(last.Sprints),
		Success:    true,
	}, nil
}

// RunDigest reports on the active sprint of REPORT_BOARD and delivers the
// console summary to every configured Telegram chat.
func (s *Service) RunDigest(ctx context.Context) error {
	if strings.TrimSpace(s.cfg.ReportBoard) == "" {
		return domain.ConfigError("REPORT_BOARD is required for scheduled reports")
	}
	s.log.Info().Str("board", s.cfg.ReportBoard).Msg("Digest: start")
	res, err := s.Run(ctx, Params{Board: s.cfg.ReportBoard})
	if err != nil {
		return err
	}
	digest := s.renderDigest(ctx, res)

	if s.tg == nil || len(s.cfg.TelegramChatIDs) == 0 {
		s.log.Debug().Msg("telegram not configured, digest not sent")
		return nil
	}
	var sendErrs []error
	parts := chunkText(digest, telegramChunk)
	for _, chat := range s.cfg.TelegramChatIDs {
		for _, p := range parts {
			if err := s.tg.SendMessagePlain(ctx, chat, p); err != nil {
				s.log.Error().Err(err).Int64("chat", chat).Msg("telegram send failed")
				sendErrs = append(sendErrs, fmt.Errorf("chat %d: %w", chat, err))
				break
			}
		}
	}
	s.log.Info().Int("chats", len(s.cfg.TelegramChatIDs)).Int("parts", len(parts)).Msg("Digest: done")
	return errors.Join(sendErrs...)
}

func (s *Service) renderDigest(ctx context.Context, res *Result) string {
	b := &strings.Builder{}
	fmt.Fprintf(b, "Sprint Metrics\n")
	for _, st := range res.Sprints {
		b.WriteString(report.Summary(st))
	}
	if s.llm == nil {
		return b.String()
	}
	narrative, err := s.llm.Summarize(ctx, res.Sprints)
	if err != nil {
		s.log.Error().Err(err).Msg("narrative summary failed")
		return b.String()
	}
	fmt.Fprintf(b, "\nSummary:\n%s\n", narrative)
	return b.String()
}

// chunkText splits text into chunks of up to max runes, breaking on line
// boundaries where possible.
func chunkText(s string, max int) []string {
	if max <= 0 {
		return []string{s}
	}
	var chunks []string
	lines := strings.Split(s, "\n")
	cur := ""
	curlen := 0
	for _, ln := range lines {
		rl := len([]rune(ln))
		if rl > max {
			if curlen > 0 {
				chunks = append(chunks, cur)
				cur, curlen = "", 0
			}
			r := []rune(ln)
			for i := 0; i < rl; i += max {
				j := min(i+max, rl)
				chunks = append(chunks, string(r[i:j]))
			}
			continue
		}
		// a newline is needed when appending to a non-empty chunk
		extra := rl
		if curlen > 0 {
			extra++
		}
		switch {
		case curlen+extra > max:
			chunks = append(chunks, cur)
			cur, curlen = ln, rl
		case curlen == 0:
			cur, curlen = ln, rl
		default:
			cur += "\n" + ln
			curlen += extra
		}
	}
	if curlen > 0 {
		chunks = append(chunks, cur)
	}
	if len(chunks) == 0 {
		chunks = []string{""}
	}
	return chunks
}
