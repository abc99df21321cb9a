// Copyright (c) 2026 John Dewey

// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to
// deal in the Software without restriction, including without limitation the
// rights to use, copy, modify, merge, publish, distribute, sublicense, and/or
// sell copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:

// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.

// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING
// FROM, OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER
// DEALINGS IN THE SOFTWARE.

// Package scheduler aligns audit cycles to ledger epoch boundaries.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/leaseaudit-io/leaseaudit/internal/auditor"
	"github.com/leaseaudit-io/leaseaudit/internal/ledger"
	"github.com/leaseaudit-io/leaseaudit/internal/store"
)

// CycleRunner starts, feeds, and expires audit cycles. Implemented by
// auditor.Auditor.
type CycleRunner interface {
	StartCycle(ctx context.Context, epochID uint64) (*auditor.Cycle, error)
	HandleAssignment(ctx context.Context, c *auditor.Cycle, asg ledger.Assignment)
	ExpireCycle(ctx context.Context, c *auditor.Cycle)
}

var _ CycleRunner = (*auditor.Auditor)(nil)

// Scheduler consumes the ledger close stream and drives one audit cycle
// per epoch. Single goroutine; cycle transitions never race.
type Scheduler struct {
	logger *slog.Logger
	ledger ledger.Client
	store  store.Store
	params ledger.EpochParams
	runner CycleRunner

	current *auditor.Cycle
	// lastStarted guards against starting the same epoch twice when the
	// close stream redelivers a boundary sequence.
	lastStarted uint64
	started     bool
}

// New creates a new Scheduler.
func New(
	logger *slog.Logger,
	client ledger.Client,
	st store.Store,
	params ledger.EpochParams,
	runner CycleRunner,
) *Scheduler {
	return &Scheduler{
		logger: logger,
		ledger: client,
		store:  st,
		params: params,
		runner: runner,
	}
}

// Run reconciles stale records, then consumes ledger close and
// assignment events until ctx is done.
func (s *Scheduler) Run(
	ctx context.Context,
) error {
	if err := s.Reconcile(ctx); err != nil {
		return err
	}

	closes, err := s.ledger.Closes(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to ledger closes: %w", err)
	}

	assignments, err := s.ledger.Assignments(ctx)
	if err != nil {
		return fmt.Errorf("subscribe to lease assignments: %w", err)
	}

	s.logger.Info(
		"scheduler running",
		slog.Uint64("epoch_base", s.params.Base),
		slog.Uint64("epoch_size", s.params.Size),
	)

	for {
		select {
		case <-ctx.Done():
			s.runner.ExpireCycle(ctx, s.current)
			return ctx.Err()
		case seq, open := <-closes:
			if !open {
				return fmt.Errorf("ledger close stream ended")
			}
			s.onSequence(ctx, seq)
		case asg, open := <-assignments:
			if !open {
				return fmt.Errorf("lease assignment stream ended")
			}
			s.runner.HandleAssignment(ctx, s.current, asg)
		}
	}
}

// Reconcile expires non-terminal records left behind by a previous run
// whose epoch has already passed.
func (s *Scheduler) Reconcile(
	ctx context.Context,
) error {
	seq, err := s.ledger.CurrentSequence(ctx)
	if err != nil {
		return fmt.Errorf("read current sequence: %w", err)
	}

	currentEpoch := s.params.EpochID(seq)

	records, err := s.store.NonTerminal(ctx)
	if err != nil {
		return fmt.Errorf("list non-terminal records: %w", err)
	}

	expired := 0
	for _, rec := range records {
		if rec.EpochID >= currentEpoch {
			continue
		}

		n, err := s.store.UpdateWhere(
			ctx,
			store.StatusPatch(store.StatusExpired),
			store.OpenByID(rec.ID),
		)
		if err != nil {
			return fmt.Errorf("expire stale record %s: %w", rec.ID, err)
		}
		expired += n
	}

	if expired > 0 {
		s.logger.Info(
			"expired stale audit records",
			slog.Int("count", expired),
			slog.Uint64("current_epoch", currentEpoch),
		)
	}

	return nil
}

// onSequence processes one ledger close. A boundary sequence ends the
// current cycle and starts the next one.
func (s *Scheduler) onSequence(
	ctx context.Context,
	seq uint64,
) {
	if !s.params.IsBoundary(seq) {
		return
	}

	// A boundary sequence is its epoch's id.
	epochID := seq
	if s.started && s.lastStarted == epochID {
		s.logger.Debug(
			"ignoring duplicate epoch boundary",
			slog.Uint64("epoch_id", epochID),
		)
		return
	}

	s.runner.ExpireCycle(ctx, s.current)
	s.current = nil

	// Record the attempt before starting so a failed start is not
	// retried within the same epoch.
	s.started = true
	s.lastStarted = epochID

	c, err := s.runner.StartCycle(ctx, epochID)
	if err != nil {
		s.logger.Error(
			"failed to start audit cycle",
			slog.Uint64("epoch_id", epochID),
			slog.String("error", err.Error()),
		)
		return
	}

	s.current = c
}
