/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package domain

import (
	"errors"
	"fmt"
)

var (
	ErrConfiguration  = errors.New("configuration error")
	ErrFetch          = errors.New("fetch failure")
	ErrNoActiveSprint = errors.New("no active sprint")
)

// ConfigError builds an error matching ErrConfiguration.
func ConfigError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrConfiguration, fmt.Sprintf(format, args...))
}

// FetchError wraps any failure of the data source: transport, status,
// decoding or a malformed record. It matches ErrFetch.
type FetchError struct {
	Op  string
	Err error
}

func (e *FetchError) Error() string {
	if e.Err == nil {
		return "fetch " + e.Op
	}
	return "fetch " + e.Op + ": " + e.Err.Error()
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) Is(target error) bool { return target == ErrFetch }

// NewFetchError wraps err unless it already is a fetch failure.
func NewFetchError(op string, err error) error {
	if errors.Is(err, ErrFetch) {
		return err
	}
	return &FetchError{Op: op, Err: err}
}
