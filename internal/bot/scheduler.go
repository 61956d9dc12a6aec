package bot

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// checkFunc runs one presence poll cycle.
type checkFunc func(ctx context.Context) error

// Scheduler drives the watcher on a fixed cadence using gocron. Singleton
// mode with reschedule guarantees cycles never overlap: a tick that fires
// while the previous cycle (including all its retries) is still running is
// simply skipped.
type Scheduler struct {
	scheduler gocron.Scheduler
	logger    *slog.Logger
	interval  time.Duration
	check     checkFunc

	mu      sync.Mutex
	running bool
}

// NewScheduler creates a scheduler that invokes check every interval.
func NewScheduler(logger *slog.Logger, interval time.Duration, check checkFunc) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}

	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}

	return &Scheduler{
		scheduler: s,
		logger:    logger.With("component", "scheduler"),
		interval:  interval,
		check:     check,
	}, nil
}

// Start registers the poll job and starts the scheduler's internal ticking.
// The first cycle runs immediately rather than waiting a full interval.
// ctx bounds every cycle; cancelling it interrupts in-flight backoff waits.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	_, err := s.scheduler.NewJob(
		gocron.DurationJob(s.interval),
		gocron.NewTask(func(jobCtx context.Context) {
			start := time.Now()
			s.logger.DebugContext(jobCtx, "Running presence check cycle")
			if checkErr := s.check(jobCtx); checkErr != nil {
				// Errors are contained to the cycle; the next tick runs
				// regardless.
				s.logger.ErrorContext(jobCtx, "Presence check cycle failed", "error", checkErr)
			}
			s.logger.DebugContext(jobCtx, "Presence check cycle finished", "duration", time.Since(start))
		}, ctx),
		gocron.WithName("presence_check"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to schedule presence check: %w", err)
	}

	s.scheduler.Start()
	s.running = true
	s.logger.Info("Scheduler started", "interval", s.interval)

	return nil
}

// Stop gracefully stops the scheduler, waiting for a running cycle to
// complete.
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.running {
		return nil
	}

	err := s.scheduler.Shutdown()
	if err != nil {
		s.logger.Error("Error during scheduler shutdown", "error", err)
	} else {
		s.logger.Info("Scheduler stopped gracefully.")
	}

	s.running = false
	return err
}
