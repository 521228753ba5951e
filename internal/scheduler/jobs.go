// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Job names.
const (
	JobSweepToasts       = "sweep_toasts"
	JobPurgeAuthSessions = "purge_auth_sessions"
	JobPruneRateLimits   = "prune_rate_limits"
)

// ToastSweeper drops toast layers idle for longer than a duration.
type ToastSweeper interface {
	Sweep(idle time.Duration) int
}

// SessionPurger deletes expired auth sessions.
type SessionPurger interface {
	PurgeExpired(ctx context.Context) (int64, error)
}

// LimiterPruner bounds the per-client state of a rate limiter.
type LimiterPruner interface {
	Prune(maxSize int) bool
}

// Housekeeping lists what the housekeeping jobs clean up. Nil fields skip
// their job.
type Housekeeping struct {
	Toasts       ToastSweeper
	ToastIdle    time.Duration
	AuthSessions SessionPurger
	Limiters     []LimiterPruner
	LimiterMax   int
}

// AddHousekeeping registers the housekeeping jobs on s.
func AddHousekeeping(s *Scheduler, h Housekeeping, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}
	if h.ToastIdle <= 0 {
		h.ToastIdle = 30 * time.Minute
	}
	if h.LimiterMax <= 0 {
		h.LimiterMax = 10000
	}

	var errs []error
	if h.Toasts != nil {
		errs = append(errs, s.Add(JobSweepToasts, "Drop toast layers of visitors gone idle", "@every 5m",
			func(context.Context) error {
				if n := h.Toasts.Sweep(h.ToastIdle); n > 0 {
					logger.Debug("swept idle toast layers", "count", n)
				}
				return nil
			}))
	}
	if h.AuthSessions != nil {
		errs = append(errs, s.Add(JobPurgeAuthSessions, "Delete expired auth sessions", "*/15 * * * *",
			func(ctx context.Context) error {
				n, err := h.AuthSessions.PurgeExpired(ctx)
				if err != nil {
					return fmt.Errorf("purging auth sessions: %w", err)
				}
				if n > 0 {
					logger.Info("purged expired auth sessions", "category", "auth", "count", n)
				}
				return nil
			}))
	}
	if len(h.Limiters) > 0 {
		errs = append(errs, s.Add(JobPruneRateLimits, "Reset oversized rate limiter tables", "@every 10m",
			func(context.Context) error {
				for _, l := range h.Limiters {
					if l.Prune(h.LimiterMax) {
						logger.Warn("rate limiter table reset", "category", "system", "max", h.LimiterMax)
					}
				}
				return nil
			}))
	}
	return errors.Join(errs...)
}
