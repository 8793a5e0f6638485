/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/HamedShams/sprint-metrics/internal/adapters/jira"
	"github.com/HamedShams/sprint-metrics/internal/adapters/openai"
	"github.com/HamedShams/sprint-metrics/internal/adapters/telegram"
	"github.com/HamedShams/sprint-metrics/internal/config"
	"github.com/HamedShams/sprint-metrics/internal/domain"
	apihttp "github.com/HamedShams/sprint-metrics/internal/http"
	"github.com/HamedShams/sprint-metrics/internal/jobs"
	"github.com/HamedShams/sprint-metrics/internal/logger"
	"github.com/HamedShams/sprint-metrics/internal/report"
	"github.com/HamedShams/sprint-metrics/internal/repo"
	"github.com/HamedShams/sprint-metrics/internal/services"
	"github.com/rs/zerolog"
)

type globalOptions struct {
	envFile     string
	envExplicit bool
	debug       bool
	board       string
}

type reportOptions struct {
	active         bool
	activeExplicit bool
	file           string
	dump           bool
	offline        bool
	since          string
	until          string
	summarize      bool
}

// params checks flag combinations before anything is fetched. Dates are
// midnight in loc.
func (o reportOptions) params(board string, loc *time.Location) (services.Params, error) {
	if strings.TrimSpace(board) == "" {
		return services.Params{}, domain.ConfigError("must supply a Jira board name or id using -b or --board")
	}
	if o.activeExplicit && o.active && o.since != "" {
		return services.Params{}, domain.ConfigError("--active cannot be combined with --since")
	}
	p := services.Params{Board: board, Dump: o.dump, Offline: o.offline}
	var err error
	if p.Since, err = parseDay("since", o.since, loc); err != nil {
		return services.Params{}, err
	}
	if p.Until, err = parseDay("until", o.until, loc); err != nil {
		return services.Params{}, err
	}
	return p, p.Validate()
}

func parseDay(name, v string, loc *time.Location) (*time.Time, error) {
	if v == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", v, loc)
	if err != nil {
		return nil, domain.ConfigError("--%s %q is not a YYYY-MM-DD date", name, v)
	}
	return &t, nil
}

type app struct {
	cfg  config.Config
	log  zerolog.Logger
	db   *repo.DB
	lock jobs.Locker
	llm  services.LLM
	svc  *services.Service
}

func loadConfig(g globalOptions) (config.Config, error) {
	cfg, err := config.Load(g.envFile, g.envExplicit)
	if err != nil {
		return config.Config{}, err
	}
	if g.board != "" {
		cfg.ReportBoard = g.board
	}
	return cfg, nil
}

func newApp(ctx context.Context, g globalOptions, cfg config.Config, offline bool) (*app, error) {
	log := logger.New(cfg, g.debug)
	log.Debug().Str("env", g.envFile).Stringer("config", cfg).Msg("configuration loaded")
	if err := cfg.Validate(offline); err != nil {
		return nil, err
	}

	a := &app{cfg: cfg, log: log}
	var runs services.RunStore
	if cfg.DBDSN != "" {
		db, err := repo.Open(ctx, cfg.DBDSN, log)
		if err != nil {
			return nil, err
		}
		if err := db.Migrate(ctx); err != nil {
			db.Close()
			return nil, err
		}
		r := repo.NewRepository(db, log)
		a.db, a.lock, runs = db, r, r
	}

	var jc services.JiraClient
	if !offline {
		jc = jira.NewClient(cfg, log)
	}
	if cfg.OpenAIKey != "" {
		a.llm = openai.NewClient(cfg, log)
	} else {
		log.Debug().Msg("OPENAI_API_KEY not set, narrative summaries disabled")
	}
	var tg services.Notifier
	if cfg.TelegramToken != "" {
		tg = telegram.NewClient(cfg, log)
	} else {
		log.Debug().Msg("TELEGRAM_BOT_TOKEN not set, digest delivery disabled")
	}

	a.svc = services.New(cfg, log, runs, jc, a.llm, tg)
	return a, nil
}

func (a *app) Close() {
	if a.db != nil {
		a.db.Close()
	}
}

func runReport(ctx context.Context, out io.Writer, g globalOptions, opts reportOptions) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	p, err := opts.params(g.board, cfg.Location())
	if err != nil {
		return err
	}
	a, err := newApp(ctx, g, cfg, p.Offline)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.svc.Run(ctx, p)
	if err != nil {
		return err
	}
	if err := report.WriteSummaries(out, res.Sprints); err != nil {
		return err
	}

	if opts.summarize {
		if a.llm == nil {
			return domain.ConfigError("--summarize needs OPENAI_API_KEY")
		}
		narrative, err := a.llm.Summarize(ctx, res.Sprints)
		if err != nil {
			return fmt.Errorf("summarize: %w", err)
		}
		fmt.Fprintf(out, "Summary:\n%s\n", narrative)
	}

	if opts.file != "" {
		if err := writeCSVFile(opts.file, res); err != nil {
			return err
		}
		a.log.Info().Str("file", opts.file).Int("sprints", len(res.Sprints)).Msg("csv written")
	}
	return nil
}

func writeCSVFile(path string, res *services.Result) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := report.WriteCSV(f, res.Sprints); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// serve runs the scheduled digest and, when withHTTP is set, the admin API
// until ctx is cancelled.
func serve(ctx context.Context, g globalOptions, withHTTP bool) error {
	cfg, err := loadConfig(g)
	if err != nil {
		return err
	}
	a, err := newApp(ctx, g, cfg, false)
	if err != nil {
		return err
	}
	defer a.Close()

	cron, err := jobs.NewCron(a.cfg, a.log, a.svc, a.lock)
	if err != nil {
		return err
	}
	cron.Start()
	defer cron.Stop()
	a.log.Info().Str("spec", a.cfg.DigestCron).Str("board", a.cfg.ReportBoard).Msg("digest scheduled")

	if !withHTTP {
		<-ctx.Done()
		a.log.Info().Msg("shutting down...")
		return nil
	}

	srv := &http.Server{Addr: a.cfg.HTTPAddr, Handler: apihttp.NewRouter(a.cfg, a.log, a.svc, cron), ReadHeaderTimeout: 10 * time.Second}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	a.log.Info().Str("addr", a.cfg.HTTPAddr).Msg("http listening")

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down...")
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
