// Package scheduler starts targets on cron expressions or fixed intervals.
package scheduler

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/nantrunner/internal/config"
	rerrors "git.home.luguber.info/inful/nantrunner/internal/errors"
	"git.home.luguber.info/inful/nantrunner/internal/logfields"
	"git.home.luguber.info/inful/nantrunner/internal/metrics"
	"git.home.luguber.info/inful/nantrunner/internal/runner"
)

// Starter starts a target of the current script.
type Starter interface {
	StartTarget(name string) (*runner.Run, error)
}

// Scheduler wraps a gocron scheduler running configured schedules.
type Scheduler struct {
	scheduler gocron.Scheduler
	starter   Starter
	recorder  metrics.Recorder
	logger    *slog.Logger

	mu   sync.Mutex
	jobs map[string]gocron.Job
}

// New creates a scheduler starting targets through starter.
func New(starter Starter, recorder metrics.Recorder, logger *slog.Logger) (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		scheduler: s,
		starter:   starter,
		recorder:  metrics.OrNoop(recorder),
		logger:    logger,
		jobs:      make(map[string]gocron.Job),
	}, nil
}

// Add registers a schedule and returns the gocron job ID.
func (s *Scheduler) Add(sched config.Schedule) (string, error) {
	var def gocron.JobDefinition
	if sched.Cron != "" {
		def = gocron.CronJob(sched.Cron, false)
	} else {
		def = gocron.DurationJob(sched.Interval)
	}

	job, err := s.scheduler.NewJob(
		def,
		gocron.NewTask(s.execute, sched.Name, sched.Target),
		gocron.WithName(sched.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", rerrors.ValidationFailed("schedules."+sched.Name, err.Error())
	}

	s.mu.Lock()
	s.jobs[sched.Name] = job
	s.mu.Unlock()

	s.logger.Info("Schedule registered",
		logfields.ScheduleName(sched.Name),
		logfields.ScheduleID(job.ID().String()),
		logfields.Target(sched.Target))
	return job.ID().String(), nil
}

// AddAll registers every schedule, stopping at the first invalid one.
func (s *Scheduler) AddAll(schedules []config.Schedule) error {
	for _, sched := range schedules {
		if _, err := s.Add(sched); err != nil {
			return err
		}
	}
	return nil
}

// RunNow triggers the named schedule immediately.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	job, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return rerrors.New(rerrors.CategoryNotFound, rerrors.SeverityError, "schedule not found").
			WithContext("schedule", name)
	}
	return job.RunNow()
}

// Start begins the scheduler.
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop() error {
	s.logger.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// execute is called by gocron. A busy executor skips the occurrence.
func (s *Scheduler) execute(name, target string) {
	run, err := s.starter.StartTarget(target)
	switch {
	case err == nil:
		s.recorder.IncScheduledRun(name, true)
		s.logger.Info("Scheduled run started",
			logfields.ScheduleName(name),
			logfields.Target(target),
			logfields.RunID(run.ID))
	case rerrors.IsCategory(err, rerrors.CategoryRuntime):
		s.recorder.IncScheduledRun(name, false)
		s.logger.Info("Scheduled run skipped, another target is running",
			logfields.ScheduleName(name),
			logfields.Target(target))
	default:
		s.recorder.IncScheduledRun(name, false)
		s.logger.Error("Scheduled run failed to start",
			logfields.ScheduleName(name),
			logfields.Target(target),
			logfields.Error(err))
	}
}
