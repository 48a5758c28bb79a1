package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"InterbankSim/internal/config"
	"InterbankSim/internal/feed"
	"InterbankSim/internal/market"
	"InterbankSim/internal/recorder"
	"InterbankSim/internal/report"
)

// ErrFinished is returned by Step once the configured number of days ran.
var ErrFinished = errors.New("simulation finished")

// Runner drives one simulated day at a time: feed, engine, recorder.
type Runner struct {
	Engine   *market.Engine
	Feed     feed.Feed
	Recorder recorder.Recorder
	Days     int

	mu      sync.Mutex
	base    *config.Config
	summary report.Summary
}

// configurable is implemented by feeds whose parameters follow day shocks.
type configurable interface {
	SetConfig(cfg *config.Config)
}

// NewRunner creates a Runner for the given number of days. The engine's
// current config is the base every day returns to after a shock.
func NewRunner(e *market.Engine, f feed.Feed, rec recorder.Recorder, days int) *Runner {
	return &Runner{Engine: e, Feed: f, Recorder: rec, Days: days, base: e.Config()}
}

// Begin registers the run with the recorder.
func (r *Runner) Begin(info recorder.RunInfo) error {
	if err := r.Recorder.StartRun(info); err != nil {
		return fmt.Errorf("start run: %w", err)
	}
	log.Printf("[INFO] run %s started: %d banks, %d days, feed %s", info.ID, info.Banks, r.Days, r.Feed.Name())
	return nil
}

// Finished reports whether every configured day has run.
func (r *Runner) Finished() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.Engine.Day() >= r.Days
}

// Step runs the next day. Errors from the engine are invariant violations
// or configuration defects and end the run; recorder errors are only logged.
func (r *Runner) Step() (*market.DayReport, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	day := r.Engine.Day()
	if day >= r.Days {
		return nil, ErrFinished
	}
	if dayCfg := r.base.ForDay(day); dayCfg != r.base {
		log.Printf("[INFO] day %d: applying shock", day)
		r.configure(dayCfg)
		defer r.configure(r.base)
	}

	batch, err := r.Feed.Applications(day, r.Engine.BankInfos())
	if err != nil {
		return nil, fmt.Errorf("day %d applications: %w", day, err)
	}
	if err := feed.Deliver(r.Engine, batch); err != nil {
		return nil, fmt.Errorf("day %d intake: %w", day, err)
	}

	rep, err := r.Engine.DayCycle()
	if err != nil {
		return nil, fmt.Errorf("day %d: %w", day, err)
	}
	r.summary.Add(rep)

	if err := r.Recorder.RecordDay(rep, recorder.LedgerPoints(r.Engine)); err != nil {
		log.Printf("[ERROR] record day %d: %v", day, err)
	}
	log.Printf("[INFO] day %d settled: %d deficits, %d rescues", day, rep.Deficits, rep.Rescues)
	return rep, nil
}

func (r *Runner) configure(cfg *config.Config) {
	r.Engine.Reconfigure(cfg)
	if c, ok := r.Feed.(configurable); ok {
		c.SetConfig(cfg)
	}
}

// RunAll steps until the last day or the first error.
func (r *Runner) RunAll(ctx context.Context) error {
	for !r.Finished() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := r.Step(); err != nil {
			return err
		}
	}
	return nil
}

// Summary returns a copy of the headline numbers so far.
func (r *Runner) Summary() report.Summary {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.summary
	s.Liquidity = append([]float64(nil), r.summary.Liquidity...)
	return s
}
