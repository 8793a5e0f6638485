/* Copyright (c) 2025 Hamed Shams <https://hamedshams.com>
 * SPDX-License-Identifier: BSD-3-Clause */
package http

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/HamedShams/sprint-metrics/internal/config"
	"github.com/HamedShams/sprint-metrics/internal/repo"
	"github.com/HamedShams/sprint-metrics/internal/report"
	"github.com/HamedShams/sprint-metrics/internal/services"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type service interface {
	GetLastRun(ctx context.Context) (any, error)
	LastResult() *services.Result
}

// digestRunner starts a digest. *jobs.Cron implements it with the same
// locking as scheduled runs.
type digestRunner interface {
	RunDigest(ctx context.Context) error
}

type Handlers struct {
	cfg    config.Config
	log    zerolog.Logger
	svc    service
	digest digestRunner
}

func NewHandlers(cfg config.Config, log zerolog.Logger, svc service, digest digestRunner) *Handlers {
	return &Handlers{cfg: cfg, log: log, svc: svc, digest: digest}
}

func (h *Handlers) Healthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *Handlers) LastRun(c *gin.Context) {
	lr, err := h.svc.GetLastRun(c.Request.Context())
	if errors.Is(err, repo.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "no runs yet"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, lr)
}

func (h *Handlers) RunNow(c *gin.Context) {
	// detached from the request so the run outlives the response
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := h.digest.RunDigest(ctx); err != nil {
			h.log.Error().Err(err).Msg("admin run failed")
		}
	}()
	c.JSON(http.StatusAccepted, gin.H{"status": "queued"})
}

func (h *Handlers) Report(c *gin.Context) {
	res := h.svc.LastResult()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report yet"})
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *Handlers) ReportCSV(c *gin.Context) {
	res := h.svc.LastResult()
	if res == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no report yet"})
		return
	}
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="sprint-metrics.csv"`)
	c.Status(http.StatusOK)
	if err := report.WriteCSV(c.Writer, res.Sprints); err != nil {
		h.log.Error().Err(err).Str("run", res.RunID).Msg("write csv failed")
	}
}
