/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package jobs

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/HamedShams/sprint-metrics/internal/config"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

type service interface {
	RunDigest(ctx context.Context) error
}

// Locker serializes scheduled runs across instances. *repo.Repository
// implements it with a Postgres advisory lock.
type Locker interface {
	WithAdvisoryLock(ctx context.Context, key int64, fn func(context.Context) error) (bool, error)
}

const (
	lockKey    int64 = 424242
	runTimeout       = 5 * time.Minute
)

type Cron struct {
	cfg  config.Config
	log  zerolog.Logger
	svc  service
	lock Locker
	c    *cron.Cron

	running sync.Mutex
}

// NewCron schedules the digest on cfg.DigestCron (5-field). lock may be nil
// for single-instance deployments.
func NewCron(cfg config.Config, log zerolog.Logger, svc service, lock Locker) (*Cron, error) {
	loc := cfg.Location()
	if cfg.TZ != "" && loc == time.Local {
		l, err := time.LoadLocation(cfg.TZ)
		if err != nil {
			return nil, fmt.Errorf("cron location: %w", err)
		}
		loc = l
	}
	c := cron.New(cron.WithLocation(loc), cron.WithParser(cron.NewParser(cron.Minute|cron.Hour|cron.Dom|cron.Month|cron.Dow)))
	cr := &Cron{cfg: cfg, log: log, svc: svc, lock: lock, c: c}
	if _, err := c.AddFunc(cfg.DigestCron, cr.digest); err != nil {
		return nil, fmt.Errorf("cron spec %q: %w", cfg.DigestCron, err)
	}
	return cr, nil
}

func (cr *Cron) Start() { cr.c.Start() }

// Stop waits for a running digest to finish.
func (cr *Cron) Stop() { <-cr.c.Stop().Done() }

func (cr *Cron) digest() {
	ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
	defer cancel()
	if err := cr.run(ctx); err != nil {
		cr.log.Error().Err(err).Msg("cron: digest failed")
	}
}

// RunDigest runs the digest now under the same guards as the schedule: at
// most one digest per process, and per cluster when a Locker is set.
func (cr *Cron) RunDigest(ctx context.Context) error { return cr.run(ctx) }

func (cr *Cron) run(ctx context.Context) error {
	if !cr.running.TryLock() {
		cr.log.Info().Msg("cron: digest already running")
		return nil
	}
	defer cr.running.Unlock()
	if cr.lock == nil {
		cr.log.Info().Msg("cron: digest")
		return cr.svc.RunDigest(ctx)
	}
	ran, err := cr.lock.WithAdvisoryLock(ctx, lockKey, func(ctx context.Context) error {
		cr.log.Info().Msg("cron: digest")
		return cr.svc.RunDigest(ctx)
	})
	if err != nil {
		return err
	}
	if !ran {
		cr.log.Info().Msg("cron: already running elsewhere")
	}
	return nil
}
