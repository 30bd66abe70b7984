// Package scheduler fires the weekly poll trigger on a cron expression in
// the group's timezone.
package scheduler

import (
	"fmt"
	"sync"
	"time"

	"weekly_poll_bot/internal/clock"
	"weekly_poll_bot/internal/events"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"
)

type scheduler struct {
	cron   *gocron.Scheduler
	job    *gocron.Job
	done   chan struct{}
	once   sync.Once
	logger *zap.SugaredLogger
}

type Scheduler interface {
	Start()
	NextRun() time.Time
	Stop()
}

func NewWeeklyScheduler(
	location *time.Location,
	expression string,
	out chan<- events.Event,
	c clock.Clock,
	logger *zap.SugaredLogger,
) (Scheduler, error) {
	s := &scheduler{
		cron:   gocron.NewScheduler(location),
		done:   make(chan struct{}),
		logger: logger,
	}

	job, err := s.cron.Cron(expression).Do(func() {
		trigger := events.WeeklyTrigger{At: c.Now()}
		logger.Infow("weekly trigger fired", "at", trigger.At)

		select {
		case out <- trigger:
		case <-s.done:
		}
	})
	if err != nil {
		return nil, fmt.Errorf("invalid weekly cron %q: %w", expression, err)
	}
	s.job = job

	return s, nil
}

func (s *scheduler) Start() {
	s.cron.StartAsync()
	s.logger.Infow("weekly scheduler started", "next_run", s.job.NextRun())
}

func (s *scheduler) NextRun() time.Time {
	return s.job.NextRun()
}

func (s *scheduler) Stop() {
	s.once.Do(func() {
		close(s.done)
		s.cron.Stop()
	})
}
