// Package engine runs the load-then-analyse pipeline over a day store.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tathienbao/tna/internal/analysis"
	"github.com/tathienbao/tna/internal/metrics"
	"github.com/tathienbao/tna/internal/source"
	"github.com/tathienbao/tna/internal/store"
	"github.com/tathienbao/tna/internal/types"
)

// ErrRunInProgress is returned when Run is called while another run is active.
var ErrRunInProgress = errors.New("run already in progress")

// Config holds engine configuration.
type Config struct {
	Location string
	Periods  []int
}

// DefaultConfig returns default engine config.
func DefaultConfig() Config {
	return Config{
		Location: "data/tna.xlsx",
		Periods:  []int{5, 10, 20, 50, 100},
	}
}

// Result summarises one run.
type Result struct {
	RunID     string
	Days      int
	FirstDate time.Time
	LastDate  time.Time
	Periods   []int
	Written   map[int]int // averages stored per period
	Duration  time.Duration
}

// Engine loads price history into a store and annotates it with moving averages.
// The store is only touched from Run and Reload, which never overlap.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	store    *store.DayStore
	resolver source.Resolver
	recorder *metrics.Recorder

	// State
	mu      sync.Mutex
	running bool
	last    *Result
	ready   atomic.Bool
}

// NewEngine creates a new engine.
func NewEngine(cfg Config, st *store.DayStore, resolver source.Resolver, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		cfg:      cfg,
		logger:   logger,
		store:    st,
		resolver: resolver,
		recorder: metrics.NewRecorder(),
	}
}

// Run loads the store if needed and computes every configured period.
func (e *Engine) Run(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrRunInProgress
	}
	e.running = true
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.running = false
		e.mu.Unlock()
	}()

	res, err := e.run(ctx)
	e.recorder.RecordRun(err == nil)
	if err != nil {
		return nil, err
	}

	e.mu.Lock()
	e.last = res
	e.mu.Unlock()
	e.ready.Store(true)

	return res, nil
}

// Reload discards loaded days and runs again from the source.
func (e *Engine) Reload(ctx context.Context) (*Result, error) {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil, ErrRunInProgress
	}
	e.ready.Store(false)
	if e.store != nil {
		e.store.Reset()
	}
	e.mu.Unlock()

	return e.Run(ctx)
}

func (e *Engine) run(ctx context.Context) (*Result, error) {
	if e.store == nil {
		return nil, fmt.Errorf("%w: store", types.ErrMissingArgument)
	}
	for _, p := range e.cfg.Periods {
		if p <= 0 {
			return nil, fmt.Errorf("%w: period %d", types.ErrInvalidArgument, p)
		}
	}

	start := time.Now()
	runID := uuid.NewString()
	logger := e.logger.With("run_id", runID)

	logger.Info("run started", "location", e.cfg.Location, "periods", e.cfg.Periods)

	timer := metrics.NewTimer()
	if err := e.store.Initialize(ctx, e.resolver, e.cfg.Location); err != nil {
		// A partial load would make the next Initialize a no-op
		e.store.Reset()
		e.recorder.RecordLoadFailure(err)
		logger.Error("load failed", "err", err)
		return nil, fmt.Errorf("load %s: %w", e.cfg.Location, err)
	}
	e.recorder.RecordLoad(e.store.Len(), timer.Elapsed())

	days := e.store.Days()
	res := &Result{
		RunID:   runID,
		Days:    len(days),
		Periods: slices.Clone(e.cfg.Periods),
		Written: make(map[int]int, len(e.cfg.Periods)),
	}
	if len(days) > 0 {
		res.FirstDate = days[0].Date()
		res.LastDate = days[len(days)-1].Date()
	}

	for _, p := range e.cfg.Periods {
		if err := ctx.Err(); err != nil {
			logger.Warn("run cancelled", "period", p, "err", err)
			return nil, fmt.Errorf("compute sma %d: %w", p, err)
		}

		timer := metrics.NewTimer()
		if err := analysis.ComputeAll(days, p); err != nil {
			logger.Error("compute failed", "period", p, "err", err)
			return nil, fmt.Errorf("compute sma %d: %w", p, err)
		}

		written := max(len(days)-p+1, 0)
		res.Written[p] = written
		e.recorder.RecordAverages(p, written, timer.Elapsed())

		logger.Debug("averages computed", "period", p, "written", written)
	}

	res.Duration = time.Since(start)
	logger.Info("run finished",
		"days", res.Days,
		"periods", len(res.Periods),
		"duration", res.Duration,
	)

	return res, nil
}

// Ready reports whether a run has completed successfully since the last reload.
func (e *Engine) Ready() bool {
	return e.ready.Load()
}

// HealthCheck reports engine readiness for the metrics server.
func (e *Engine) HealthCheck() metrics.Check {
	if !e.Ready() {
		return metrics.Check{Status: metrics.StatusUnhealthy, Message: "no completed run"}
	}
	return metrics.Check{Status: metrics.StatusHealthy}
}

// LastResult returns the most recent successful run, or nil.
func (e *Engine) LastResult() *Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.last
}

// Store returns the engine's store. Callers must not use it while a run is active.
func (e *Engine) Store() *store.DayStore {
	return e.store
}

// IsRunning returns true if a run is active.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}
