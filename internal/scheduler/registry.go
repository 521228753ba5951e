// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

package scheduler

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrJobNotFound is returned for an unknown job name.
var ErrJobNotFound = errors.New("job not found")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// registeredJob holds metadata about a registered cron job.
type registeredJob struct {
	name            string
	description     string
	defaultSchedule string
	schedule        string
	entryID         cron.EntryID
	jobFunc         func()
	triggerFunc     func() error
}

// JobInfo is the public view of a registered job.
type JobInfo struct {
	Name            string
	Description     string
	DefaultSchedule string
	Schedule        string
	IsOverridden    bool
	LastRun         time.Time
	NextRun         time.Time
}

// Registry tracks the jobs of one cron instance.
type Registry struct {
	cron   *cron.Cron
	logger *slog.Logger
	mu     sync.RWMutex
	jobs   map[string]*registeredJob
}

func newRegistry(c *cron.Cron, logger *slog.Logger) *Registry {
	return &Registry{
		cron:   c,
		logger: logger,
		jobs:   make(map[string]*registeredJob),
	}
}

func (r *Registry) register(name, description, schedule string, jobFunc func(), triggerFunc func() error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.jobs[name]; dup {
		return fmt.Errorf("job %q already registered", name)
	}
	if _, err := parser.Parse(schedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", schedule, err)
	}
	id, err := r.cron.AddFunc(schedule, jobFunc)
	if err != nil {
		return fmt.Errorf("scheduling %s: %w", name, err)
	}
	r.jobs[name] = &registeredJob{
		name:            name,
		description:     description,
		defaultSchedule: schedule,
		schedule:        schedule,
		entryID:         id,
		jobFunc:         jobFunc,
		triggerFunc:     triggerFunc,
	}
	r.logger.Debug("registered scheduled job", "name", name, "schedule", schedule)
	return nil
}

// List returns all registered jobs sorted by name.
func (r *Registry) List() []JobInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]JobInfo, 0, len(r.jobs))
	for _, job := range r.jobs {
		entry := r.cron.Entry(job.entryID)
		result = append(result, JobInfo{
			Name:            job.name,
			Description:     job.description,
			DefaultSchedule: job.defaultSchedule,
			Schedule:        job.schedule,
			IsOverridden:    job.schedule != job.defaultSchedule,
			LastRun:         entry.Prev,
			NextRun:         entry.Next,
		})
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// TriggerNow runs a job immediately and returns its error.
func (r *Registry) TriggerNow(name string) error {
	r.mu.RLock()
	job, ok := r.jobs[name]
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	r.logger.Info("manually triggering job", "name", name)
	return job.triggerFunc()
}

// UpdateSchedule moves a job to a new schedule. On failure the old
// schedule stays in effect.
func (r *Registry) UpdateSchedule(name, newSchedule string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	job, ok := r.jobs[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if _, err := parser.Parse(newSchedule); err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", newSchedule, err)
	}

	newID, err := r.cron.AddFunc(newSchedule, job.jobFunc)
	if err != nil {
		return fmt.Errorf("applying new schedule: %w", err)
	}
	r.cron.Remove(job.entryID)
	job.entryID = newID
	job.schedule = newSchedule

	r.logger.Info("updated job schedule", "name", name, "schedule", newSchedule)
	return nil
}

// ResetSchedule restores the schedule the job was added with.
func (r *Registry) ResetSchedule(name string) error {
	r.mu.RLock()
	job, ok := r.jobs[name]
	var current, def string
	if ok {
		current, def = job.schedule, job.defaultSchedule
	}
	r.mu.RUnlock()
	if !ok {
		return fmt.Errorf("%w: %s", ErrJobNotFound, name)
	}
	if current == def {
		return nil
	}
	return r.UpdateSchedule(name, def)
}
