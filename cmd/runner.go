package main

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
)

var errRunInProgress = eris.New("sync already running")

// runStatus describes the latest sync started by this process.
type runStatus struct {
	RunID      string      `json:"run_id"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt *time.Time  `json:"finished_at,omitempty"`
	Error      string      `json:"error,omitempty"`
	Result     *syncResult `json:"result,omitempty"`
}

// syncRunner allows at most one sync at a time within the process.
type syncRunner struct {
	run     func(ctx context.Context, runID string) (syncResult, error)
	newID   func() string
	running atomic.Bool
	wg      sync.WaitGroup

	mu   sync.Mutex
	last *runStatus
}

func newSyncRunner(run func(ctx context.Context, runID string) (syncResult, error)) *syncRunner {
	return &syncRunner{run: run, newID: newRunID}
}

// Start launches a sync in the background and returns its run id.
func (r *syncRunner) Start(ctx context.Context) (string, error) {
	if !r.running.CompareAndSwap(false, true) {
		return "", errRunInProgress
	}
	runID := r.begin()
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		_, _ = r.finish(ctx, runID)
	}()
	return runID, nil
}

// Wait blocks until every sync launched by Start has returned.
func (r *syncRunner) Wait() {
	r.wg.Wait()
}

// RunNow runs a sync synchronously.
func (r *syncRunner) RunNow(ctx context.Context) (syncResult, error) {
	if !r.running.CompareAndSwap(false, true) {
		return syncResult{}, errRunInProgress
	}
	runID := r.begin()
	return r.finish(ctx, runID)
}

// Running reports whether a sync is in progress.
func (r *syncRunner) Running() bool {
	return r.running.Load()
}

// Last returns a copy of the latest run status, or nil.
func (r *syncRunner) Last() *runStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.last == nil {
		return nil
	}
	s := *r.last
	return &s
}

func (r *syncRunner) begin() string {
	runID := r.newID()
	r.mu.Lock()
	r.last = &runStatus{RunID: runID, StartedAt: time.Now().UTC()}
	r.mu.Unlock()
	return runID
}

func (r *syncRunner) finish(ctx context.Context, runID string) (syncResult, error) {
	defer r.running.Store(false)

	res, err := r.run(ctx, runID)

	now := time.Now().UTC()
	r.mu.Lock()
	r.last.FinishedAt = &now
	r.last.Result = &res
	if err != nil {
		r.last.Error = err.Error()
	}
	r.mu.Unlock()

	if err != nil {
		zap.L().Error("sync run failed", zap.String("run_id", runID), zap.Error(err))
	}
	return res, err
}
