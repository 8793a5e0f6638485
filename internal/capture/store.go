/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package capture

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/HamedShams/sprint-metrics/internal/domain"
	"github.com/rs/zerolog"
)

// ErrNotFound is returned by backends for keys that were never saved.
var ErrNotFound = errors.New("capture not found")

// Backend is a flat key/value blob store.
type Backend interface {
	Put(ctx context.Context, key string, data []byte) error
	Get(ctx context.Context, key string) ([]byte, error)
	Close() error
}

const sprintsKey = "sprints"

func issuesKey(sprintID int64) string { return "issues." + strconv.FormatInt(sprintID, 10) }

// Store saves selected sprints and classified issues as JSON so a later run
// can replay them without the tracker.
type Store struct {
	backend Backend
	name    string
	log     zerolog.Logger
}

func NewStore(b Backend, name string, log zerolog.Logger) *Store {
	return &Store{backend: b, name: name, log: log}
}

// Open picks a backend from the location scheme: a plain path or file://
// directory, sqlite://path, postgres:// (or postgresql://) DSN, or
// s3://bucket/prefix.
func Open(ctx context.Context, location string, log zerolog.Logger) (*Store, error) {
	scheme, rest, ok := strings.Cut(location, "://")
	if !ok {
		scheme, rest = "file", location
	}
	var (
		b   Backend
		err error
	)
	switch scheme {
	case "file":
		b, err = NewFileBackend(rest)
	case "sqlite":
		b, err = NewSQLiteBackend(rest)
	case "postgres", "postgresql":
		b, err = OpenPostgresBackend(ctx, location, log)
	case "s3":
		bucket, prefix, _ := strings.Cut(rest, "/")
		b, err = NewS3Backend(ctx, bucket, prefix)
	default:
		return nil, domain.ConfigError("unsupported capture location %q", location)
	}
	if err != nil {
		return nil, fmt.Errorf("open capture %s: %w", scheme, err)
	}
	log.Debug().Str("backend", scheme).Msg("capture store opened")
	return NewStore(b, scheme, log), nil
}

func (s *Store) Close() error { return s.backend.Close() }

func (s *Store) SaveSprints(ctx context.Context, sprints []domain.Sprint) error {
	return s.put(ctx, sprintsKey, sprints)
}

func (s *Store) LoadSprints(ctx context.Context) ([]domain.Sprint, error) {
	var out []domain.Sprint
	err := s.get(ctx, sprintsKey, &out)
	return out, err
}

func (s *Store) SaveIssues(ctx context.Context, sprintID int64, issues []domain.Issue) error {
	return s.put(ctx, issuesKey(sprintID), issues)
}

func (s *Store) LoadIssues(ctx context.Context, sprintID int64) ([]domain.Issue, error) {
	var out []domain.Issue
	err := s.get(ctx, issuesKey(sprintID), &out)
	return out, err
}

func (s *Store) put(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := s.backend.Put(ctx, key, data); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	s.log.Debug().Str("backend", s.name).Str("key", key).Int("bytes", len(data)).Msg("capture saved")
	return nil
}

func (s *Store) get(ctx context.Context, key string, v any) error {
	data, err := s.backend.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load %s: %w", key, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}
