// Yomistats - Reading Activity Tracking and Statistics
// Copyright 2026 Yomistats Contributors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/yomistats/yomistats

// Package services adapts Start/Stop components to suture's Serve pattern
// so they can live in the supervision tree.
package services

import (
	"context"
	"fmt"
)

// SchedulerManager is the lifecycle surface of the job scheduler, satisfied
// by *scheduler.Scheduler.
type SchedulerManager interface {
	Start(ctx context.Context) error
	Stop() error
}

// SchedulerService wraps the job scheduler as a supervised service: Start
// on Serve, block until the context is canceled, then Stop gracefully. A
// failed Start is returned to suture, which restarts the service with
// backoff.
type SchedulerService struct {
	manager SchedulerManager
}

// NewSchedulerService creates the scheduler service wrapper.
func NewSchedulerService(manager SchedulerManager) *SchedulerService {
	return &SchedulerService{manager: manager}
}

// Serve implements suture.Service.
func (s *SchedulerService) Serve(ctx context.Context) error {
	if err := s.manager.Start(ctx); err != nil {
		return fmt.Errorf("scheduler start failed: %w", err)
	}

	<-ctx.Done()

	if err := s.manager.Stop(); err != nil {
		return fmt.Errorf("scheduler stop failed: %w", err)
	}
	return ctx.Err()
}

// String implements fmt.Stringer; suture uses it in log messages.
func (s *SchedulerService) String() string {
	return "job-scheduler"
}
