/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned when a capture key or run does not exist.
var ErrNotFound = errors.New("not found")

type DB struct {
	Pool *pgxpool.Pool
	log  zerolog.Logger
}

func Open(ctx context.Context, dsn string, log zerolog.Logger) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db connect: %w", err)
	}
	ctx2, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := pool.Ping(ctx2); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return &DB{Pool: pool, log: log}, nil
}

func (d *DB) Close() { d.Pool.Close() }

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS captures (
		key        TEXT PRIMARY KEY,
		payload    JSONB NOT NULL,
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS report_runs (
		id          BIGSERIAL PRIMARY KEY,
		run_id      UUID NOT NULL UNIQUE,
		board_id    BIGINT NOT NULL,
		mode        TEXT NOT NULL,
		started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		finished_at TIMESTAMPTZ,
		sprints     INT NOT NULL DEFAULT 0,
		success     BOOLEAN NOT NULL DEFAULT false,
		error       TEXT
	)`,
}

// Migrate creates the tables used by the capture store and run bookkeeping.
func (d *DB) Migrate(ctx context.Context) error {
	for _, q := range migrations {
		if _, err := d.Pool.Exec(ctx, q); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}

type Repository struct {
	db  *DB
	log zerolog.Logger
}

func NewRepository(d *DB, log zerolog.Logger) *Repository { return &Repository{db: d, log: log} }

// WithAdvisoryLock runs fn while holding pg_try_advisory_lock(key) on one
// pooled connection. It returns false without calling fn when the lock is
// held elsewhere.
func (r *Repository) WithAdvisoryLock(ctx context.Context, key int64, fn func(context.Context) error) (bool, error) {
	conn, err := r.db.Pool.Acquire(ctx)
	if err != nil {
		return false, err
	}
	defer conn.Release()

	var ok bool
	if err := conn.QueryRow(ctx, "SELECT pg_try_advisory_lock($1)", key).Scan(&ok); err != nil {
		return false, err
	}
	if !ok {
		return false, nil
	}
	defer func() {
		var unlocked bool
		if err := conn.QueryRow(context.Background(), "SELECT pg_advisory_unlock($1)", key).Scan(&unlocked); err != nil || !unlocked {
			r.log.Warn().Err(err).Int64("key", key).Msg("advisory unlock failed")
		}
	}()
	return true, fn(ctx)
}

// SaveCapture stores a JSON payload under key, replacing any previous one.
func (r *Repository) SaveCapture(ctx context.Context, key string, payload []byte) error {
	const q = `INSERT INTO captures(key, payload, updated_at) VALUES($1, $2, now())
		ON CONFLICT(key) DO UPDATE SET payload=EXCLUDED.payload, updated_at=now()`
	_, err := r.db.Pool.Exec(ctx, q, key, string(payload))
	return err
}

func (r *Repository) LoadCapture(ctx context.Context, key string) ([]byte, error) {
	var payload string
	err := r.db.Pool.QueryRow(ctx, `SELECT payload::text FROM captures WHERE key=$1`, key).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return []byte(payload), nil
}

func (r *Repository) StartRun(ctx context.Context, runID string, boardID int64, mode string) error {
	const q = `INSERT INTO report_runs(run_id, board_id, mode, started_at, success) VALUES($1, $2, $3, now(), false)`
	_, err := r.db.Pool.Exec(ctx, q, runID, boardID, mode)
	return err
}

func (r *Repository) FinishRun(ctx context.Context, runID string, sprints int, success bool, errStr string) error {
	const q = `UPDATE report_runs SET finished_at=now(), sprints=$2, success=$3, error=$4 WHERE run_id=$1`
	_, err := r.db.Pool.Exec(ctx, q, runID, sprints, success, errStr)
	return err
}

type LastRun struct {
	RunID      string     `json:"run_id"`
	BoardID    int64      `json:"board_id"`
	Mode       string     `json:"mode"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at"`
	Sprints    int        `json:"sprints"`
	Success    bool       `json:"success"`
	Error      string     `json:"error"`
}

func (r *Repository) GetLastRun(ctx context.Context) (*LastRun, error) {
	const q = `SELECT run_id::text, board_id, mode, started_at, finished_at,
		sprints, success, coalesce(error,'')
		FROM report_runs ORDER BY id DESC LIMIT 1`
	lr := &LastRun{}
	err := r.db.Pool.QueryRow(ctx, q).Scan(&lr.RunID, &lr.BoardID, &lr.Mode, &lr.StartedAt, &lr.FinishedAt, &lr.Sprints, &lr.Success, &lr.Error)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return lr, nil
}
