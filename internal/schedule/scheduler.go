package schedule

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"poolScope/internal/storage"
)

// Job is one periodic pass.
type Job interface {
	Name() string
	Run(ctx context.Context, runID string, now uint64) error
}

// State is the last successful run time per job, in unix seconds.
type State struct {
	mu      sync.Mutex
	lastRun map[string]uint64
}

func NewState() *State {
	return &State{lastRun: make(map[string]uint64)}
}

// Due reports whether job has not run within interval seconds of now.
func (s *State) Due(job string, now, interval uint64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastRun[job]
	if !ok {
		return true
	}
	return now >= last+interval
}

func (s *State) MarkRun(job string, now uint64) {
	s.mu.Lock()
	s.lastRun[job] = now
	s.mu.Unlock()
}

func (s *State) LastRun(job string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastRun[job]
	return last, ok
}

// Scheduler runs jobs when due under its clock. State is persisted when a StateStore is set.
type Scheduler struct {
	clock    Clock
	state    *State
	store    storage.StateStore
	interval uint64
	jobs     []Job
	logger   *zap.Logger
}

func NewScheduler(clock Clock, interval time.Duration, store storage.StateStore, logger *zap.Logger, jobs ...Job) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clock == nil {
		clock = SystemClock{}
	}
	return &Scheduler{
		clock:    clock,
		state:    NewState(),
		store:    store,
		interval: uint64(interval / time.Second),
		jobs:     jobs,
		logger:   logger,
	}
}

func (s *Scheduler) State() *State { return s.state }

// Restore loads persisted last-run markers.
func (s *Scheduler) Restore(ctx context.Context) error {
	if s.store == nil {
		return nil
	}
	for _, job := range s.jobs {
		ts, ok, err := s.store.LoadState(ctx, stateName(job))
		if err != nil {
			return fmt.Errorf("load %s state: %w", job.Name(), err)
		}
		if ok {
			s.state.MarkRun(job.Name(), ts)
		}
	}
	return nil
}

// RunOnce runs every due job. A zero clock reading means no time has been observed yet.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	now := s.clock.Now()
	if now == 0 {
		return nil
	}
	for _, job := range s.jobs {
		if !s.state.Due(job.Name(), now, s.interval) {
			continue
		}
		runID := uuid.NewString()
		started := time.Now()
		if err := job.Run(ctx, runID, now); err != nil {
			return fmt.Errorf("job %s: %w", job.Name(), err)
		}
		s.state.MarkRun(job.Name(), now)
		if s.store != nil {
			if err := s.store.SaveState(ctx, stateName(job), now); err != nil {
				return fmt.Errorf("save %s state: %w", job.Name(), err)
			}
		}
		s.logger.Info("scheduled job complete",
			zap.String("job", job.Name()),
			zap.String("run_id", runID),
			zap.Uint64("now", now),
			zap.Duration("took", time.Since(started)),
		)
	}
	return nil
}

// Run ticks every poll until ctx is done. Job errors are logged and retried on the next tick.
func (s *Scheduler) Run(ctx context.Context, poll time.Duration) error {
	if poll <= 0 {
		poll = 5 * time.Second
	}
	ticker := time.NewTicker(poll)
	defer ticker.Stop()
	for {
		if err := s.RunOnce(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			s.logger.Warn("scheduled run failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

func stateName(job Job) string {
	return "schedule:" + job.Name()
}
