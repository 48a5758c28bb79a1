package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/joho/godotenv"

	"InterbankSim/internal/api"
	"InterbankSim/internal/config"
	"InterbankSim/internal/feed"
	"InterbankSim/internal/market"
	"InterbankSim/internal/model"
	"InterbankSim/internal/recorder"
	"InterbankSim/internal/report"
	"InterbankSim/internal/scheduler"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("[INFO] InterbankSim starting...")

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("[WARN] load .env: %v", err)
	}

	// Load config
	cfgPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		cfgPath = v
	}
	cfg, err := config.Load(cfgPath)
	if err != nil {
		log.Fatalf("[FATAL] load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("[FATAL] config validation: %v", err)
	}

	// Build the world from one seeded generator
	seed := cfg.Simulation.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
		cfg.Simulation.Seed = seed
	}
	rng := rand.New(rand.NewSource(seed))
	engine, err := market.NewWorld(cfg, rng)
	if err != nil {
		log.Fatalf("[FATAL] build world: %v", err)
	}

	gen, err := feed.NewGenerator(cfg, rng, engine.Factory())
	if err != nil {
		log.Fatalf("[FATAL] init feed: %v", err)
	}
	log.Printf("[INFO] application feed: %s", gen.Name())

	// Init recorder
	var rec recorder.Recorder = recorder.NewNoopRecorder()
	var reader recorder.Reader
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Printf("[WARN] init sqlite recorder failed, using noop: %v", err)
		} else {
			rec, reader = sr, sr
			defer sr.Close()
		}
	}

	runner := scheduler.NewRunner(engine, gen, rec, cfg.Simulation.Days)
	if err := runner.Begin(recorder.RunInfo{
		ID:           uuid.New(),
		Seed:         seed,
		Banks:        cfg.Simulation.Banks,
		Days:         cfg.Simulation.Days,
		Distribution: cfg.Applications.Distribution,
		StartedAt:    time.Now(),
	}); err != nil {
		os.Exit(exitCode(err, rec))
	}

	// Optional read-only API over the recorder
	if cfg.API.Addr != "" && reader != nil {
		srv := &http.Server{Addr: cfg.API.Addr, Handler: api.NewRouter(reader), ReadHeaderTimeout: 10 * time.Second}
		go func() {
			log.Printf("[INFO] API listening on %s", cfg.API.Addr)
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("[ERROR] api server: %v", err)
			}
		}()
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			srv.Shutdown(ctx)
		}()
	} else if cfg.API.Addr != "" {
		log.Println("[WARN] API needs a SQLite recorder, not starting it")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	// Batch mode runs every day at once; with a step cron days are paced.
	if cfg.Schedule.StepCron == "" {
		go func() {
			<-sigCh
			log.Println("[INFO] shutdown signal received, stopping...")
			cancel()
		}()
		if code := exitCode(runner.RunAll(ctx), rec); code != 0 {
			os.Exit(code)
		}
	} else {
		sched := scheduler.NewScheduler(runner)
		if err := sched.Register(cfg.Schedule.StepCron); err != nil {
			os.Exit(exitCode(fmt.Errorf("register step task: %w", err), rec))
		}
		sched.Start()
		select {
		case <-sched.Done():
			sched.Stop()
			if code := exitCode(sched.Err(), rec); code != 0 {
				os.Exit(code)
			}
		case <-sigCh:
			log.Println("[INFO] shutdown signal received, stopping...")
			sched.Stop()
		}
	}

	summary := runner.Summary()
	log.Printf("[INFO] %s", report.FormatRun(&summary))

	// Keep serving recorded series until interrupted.
	if cfg.API.Addr != "" && reader != nil && ctx.Err() == nil {
		log.Println("[INFO] run finished, API still serving. Press Ctrl+C to stop.")
		select {
		case <-sigCh:
		case <-ctx.Done():
		}
	}
	log.Println("[INFO] InterbankSim stopped")
}

// exitCode maps the error that ended a run to a process exit code. On a
// failure the recorder is closed first, since os.Exit skips deferred calls.
func exitCode(err error, rec recorder.Recorder) int {
	if err == nil {
		return 0
	}
	if errors.Is(err, context.Canceled) {
		log.Println("[INFO] run cancelled")
		return 0
	}
	if cerr := rec.Close(); cerr != nil {
		log.Printf("[ERROR] close recorder: %v", cerr)
	}
	var ie *model.InvariantError
	if errors.As(err, &ie) {
		log.Printf("[FATAL] invariant violated on day %d, bank %d: %v", ie.Day, ie.BankID, err)
	} else {
		log.Printf("[FATAL] run: %v", err)
	}
	return 1
}
