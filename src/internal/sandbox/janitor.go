// Copyright (c) 2025 H0llyW00dzZ All rights reserved.
//
// By accessing or using this software, you agree to be bound by the terms
// of the License Agreement, which you can find at LICENSE files.

package sandbox

import (
	"context"
	"errors"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/apperr"
	"github.com/H0llyW00dzZ/mcp-dev-sandbox/src/internal/registry"
)

// DefaultJanitorSchedule runs the janitor every five minutes.
const DefaultJanitorSchedule = "@every 5m"

// ReapReport summarizes one janitor pass.
type ReapReport struct {
	Deleted  []string `json:"deleted"`
	Warnings int      `json:"warnings"`
	Purged   int      `json:"purgedCacheEntries"`
}

// Reap deletes containers and browsers idle for longer than maxIdle and
// purges expired documentation cache entries. maxIdle <= 0 skips the
// idle sweep.
func (s *Sandbox) Reap(ctx context.Context, maxIdle time.Duration) ReapReport {
	var report ReapReport
	if maxIdle > 0 {
		cutoff := s.now().Add(-maxIdle)
		for _, res := range s.reg.List(registry.KindContainer, registry.KindBrowserInstance) {
			if res.LastUsed.After(cutoff) {
				continue
			}
			err := s.reg.Delete(ctx, res.ID)
			switch {
			case err == nil:
			case apperr.IsWarning(err):
				report.Warnings++
			case errors.Is(err, apperr.ErrNotFound):
				continue
			default:
				s.logger.Warn("janitor delete failed", append(resourceAttrs(res), "error", err)...)
				continue
			}
			s.logger.Info("janitor reaped idle resource", append(resourceAttrs(res), "idle", s.now().Sub(res.LastUsed).Round(time.Second))...)
			report.Deleted = append(report.Deleted, res.ID)
		}
	}
	if s.docs != nil && s.docs.Cache() != nil {
		report.Purged = s.docs.Cache().PurgeExpired()
	}
	return report
}

// Janitor runs [Sandbox.Reap] on a cron schedule.
type Janitor struct {
	c *cron.Cron
}

// StartJanitor schedules periodic reaping. schedule is a standard cron
// expression or descriptor such as "@every 5m". The returned janitor is
// also stopped by [Sandbox.Shutdown].
func (s *Sandbox) StartJanitor(ctx context.Context, schedule string, maxIdle time.Duration) (*Janitor, error) {
	if schedule == "" {
		schedule = DefaultJanitorSchedule
	}
	sched, err := cron.ParseStandard(schedule)
	if err != nil {
		return nil, apperr.InvalidInput("janitor schedule %q: %v", schedule, err)
	}

	c := cron.New()
	c.Schedule(sched, cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		r := s.Reap(ctx, maxIdle)
		s.logger.Debug("janitor pass", "deleted", len(r.Deleted), "warnings", r.Warnings, "purged", r.Purged)
	}))
	j := &Janitor{c: c}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, apperr.Unavailable("janitor", errors.New("sandbox is shut down"))
	}
	prev := s.janitor
	s.janitor = j
	s.mu.Unlock()
	if prev != nil {
		prev.Stop()
	}

	c.Start()
	s.logger.Info("janitor started", "schedule", schedule, "max_idle", maxIdle)
	return j, nil
}

// Stop halts scheduling and waits for a running pass to finish.
func (j *Janitor) Stop() {
	<-j.c.Stop().Done()
}
