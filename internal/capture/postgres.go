/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package capture

import (
	"context"
	"errors"

	"github.com/HamedShams/sprint-metrics/internal/repo"
	"github.com/rs/zerolog"
)

// PostgresBackend keeps captures in the captures table of the report database.
type PostgresBackend struct {
	repo  *repo.Repository
	close func()
}

// NewPostgresBackend shares an already open repository; Close is a no-op.
func NewPostgresBackend(r *repo.Repository) *PostgresBackend {
	return &PostgresBackend{repo: r, close: func() {}}
}

func OpenPostgresBackend(ctx context.Context, dsn string, log zerolog.Logger) (*PostgresBackend, error) {
	db, err := repo.Open(ctx, dsn, log)
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresBackend{repo: repo.NewRepository(db, log), close: db.Close}, nil
}

func (p *PostgresBackend) Put(ctx context.Context, key string, data []byte) error {
	return p.repo.SaveCapture(ctx, key, data)
}

func (p *PostgresBackend) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := p.repo.LoadCapture(ctx, key)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrNotFound
	}
	return data, err
}

func (p *PostgresBackend) Close() error {
	p.close()
	return nil
}
