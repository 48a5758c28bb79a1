package scheduler

import (
	"errors"
	"fmt"
	"log"
	"sync"

	"github.com/robfig/cron/v3"
)

// Scheduler steps a Runner on a cron schedule until the run is over.
type Scheduler struct {
	Cron   *cron.Cron
	Runner *Runner

	done chan struct{}
	once sync.Once
	err  error
}

// NewScheduler creates a new Scheduler.
func NewScheduler(runner *Runner) *Scheduler {
	return &Scheduler{
		Cron:   cron.New(cron.WithSeconds()),
		Runner: runner,
		done:   make(chan struct{}),
	}
}

// Register adds the day step under the given cron spec (seconds field enabled).
func (s *Scheduler) Register(stepCron string) error {
	if _, err := s.Cron.AddFunc(stepCron, s.tick); err != nil {
		return fmt.Errorf("register step task: %w", err)
	}
	return nil
}

// Start starts the cron scheduler.
func (s *Scheduler) Start() {
	s.Cron.Start()
	log.Println("[INFO] scheduler started")
}

// Stop stops the cron scheduler and waits for a running step.
func (s *Scheduler) Stop() {
	<-s.Cron.Stop().Done()
	log.Println("[INFO] scheduler stopped")
}

// Done is closed once the last day ran or a step failed.
func (s *Scheduler) Done() <-chan struct{} { return s.done }

// Err returns the error that ended the run, if any. Valid after Done.
func (s *Scheduler) Err() error { return s.err }

// StepNow runs one step immediately, outside the schedule.
func (s *Scheduler) StepNow() { s.tick() }

func (s *Scheduler) tick() {
	select {
	case <-s.done:
		return
	default:
	}
	if _, err := s.Runner.Step(); err != nil {
		if errors.Is(err, ErrFinished) {
			s.finish(nil)
			return
		}
		log.Printf("[ERROR] step: %v", err)
		s.finish(err)
		return
	}
	if s.Runner.Finished() {
		s.finish(nil)
	}
}

func (s *Scheduler) finish(err error) {
	s.once.Do(func() {
		s.err = err
		close(s.done)
		log.Println("[INFO] run complete")
	})
}
