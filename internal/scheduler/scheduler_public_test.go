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

package scheduler_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/leaseaudit-io/leaseaudit/internal/auditor"
	"github.com/leaseaudit-io/leaseaudit/internal/ledger"
	"github.com/leaseaudit-io/leaseaudit/internal/scheduler"
	"github.com/leaseaudit-io/leaseaudit/internal/store"
)

// fakeRunner records cycle transitions.
type fakeRunner struct {
	mu sync.Mutex

	startErr error

	starts      []uint64
	cycles      []*auditor.Cycle
	expired     []*auditor.Cycle
	assignments []ledger.Assignment
	nilAssigned int
}

func (f *fakeRunner) StartCycle(
	_ context.Context,
	epochID uint64,
) (*auditor.Cycle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.starts = append(f.starts, epochID)
	if f.startErr != nil {
		return nil, f.startErr
	}

	c := new(auditor.Cycle)
	f.cycles = append(f.cycles, c)

	return c, nil
}

func (f *fakeRunner) HandleAssignment(
	_ context.Context,
	c *auditor.Cycle,
	asg ledger.Assignment,
) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c == nil {
		f.nilAssigned++
		return
	}

	f.assignments = append(f.assignments, asg)
}

func (f *fakeRunner) ExpireCycle(
	_ context.Context,
	c *auditor.Cycle,
) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c != nil {
		f.expired = append(f.expired, c)
	}
}

// fakeStreamLedger delivers scripted close and assignment events.
type fakeStreamLedger struct {
	seq         uint64
	closes      chan uint64
	assignments chan ledger.Assignment
}

func newFakeStreamLedger(seq uint64) *fakeStreamLedger {
	return &fakeStreamLedger{
		seq:         seq,
		closes:      make(chan uint64),
		assignments: make(chan ledger.Assignment),
	}
}

func (f *fakeStreamLedger) RequestAudit(_ context.Context) error {
	return errors.New("not scripted")
}

func (f *fakeStreamLedger) Cash(
	_ context.Context,
	_ ledger.Assignment,
) (*ledger.Receipt, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeStreamLedger) Redeem(
	_ context.Context,
	_, _ string,
	_ uint64,
	_ ledger.Requirements,
) (*ledger.InstanceInfo, error) {
	return nil, errors.New("not scripted")
}

func (f *fakeStreamLedger) ReportSuccess(_ context.Context, _ string) error {
	return errors.New("not scripted")
}

func (f *fakeStreamLedger) ReportFailure(_ context.Context, _ string) error {
	return errors.New("not scripted")
}

func (f *fakeStreamLedger) CurrentSequence(_ context.Context) (uint64, error) {
	return f.seq, nil
}

func (f *fakeStreamLedger) EpochParams(_ context.Context) (ledger.EpochParams, error) {
	return ledger.EpochParams{Base: 0, Size: 72}, nil
}

func (f *fakeStreamLedger) Closes(_ context.Context) (<-chan uint64, error) {
	return f.closes, nil
}

func (f *fakeStreamLedger) Assignments(
	_ context.Context,
) (<-chan ledger.Assignment, error) {
	return f.assignments, nil
}

type SchedulerPublicTestSuite struct {
	suite.Suite

	ledger *fakeStreamLedger
	runner *fakeRunner
	store  *store.MemoryStore
	params ledger.EpochParams
}

func (s *SchedulerPublicTestSuite) SetupTest() {
	s.ledger = newFakeStreamLedger(10)
	s.runner = &fakeRunner{}
	s.store = store.NewMemoryStore()
	s.params = ledger.EpochParams{Base: 0, Size: 72}
}

func (s *SchedulerPublicTestSuite) newScheduler() *scheduler.Scheduler {
	return scheduler.New(
		slog.Default(),
		s.ledger,
		s.store,
		s.params,
		s.runner,
	)
}

// run drives the scheduler loop, feeds events in order over unbuffered
// channels, then cancels and waits for the loop to exit.
func (s *SchedulerPublicTestSuite) run(feed func()) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.newScheduler().Run(ctx)
	}()

	feed()
	cancel()

	select {
	case err := <-errCh:
		s.Require().ErrorIs(err, context.Canceled)
	case <-time.After(5 * time.Second):
		s.Fail("scheduler did not stop")
	}
}

func (s *SchedulerPublicTestSuite) TestBoundaryStartsCycle() {
	s.run(func() {
		s.ledger.closes <- 71
		s.ledger.closes <- 72
	})

	s.Equal([]uint64{72}, s.runner.starts)
}

func (s *SchedulerPublicTestSuite) TestNonBoundarySequencesIgnored() {
	s.run(func() {
		s.ledger.closes <- 73
		s.ledger.closes <- 100
		s.ledger.closes <- 143
	})

	s.Empty(s.runner.starts)
}

func (s *SchedulerPublicTestSuite) TestDuplicateBoundaryIgnored() {
	s.run(func() {
		s.ledger.closes <- 72
		s.ledger.closes <- 72
	})

	s.Equal([]uint64{72}, s.runner.starts)
}

func (s *SchedulerPublicTestSuite) TestNextBoundaryExpiresPreviousCycle() {
	s.run(func() {
		s.ledger.closes <- 72
		s.ledger.closes <- 144
	})

	s.Equal([]uint64{72, 144}, s.runner.starts)
	s.Require().Len(s.runner.cycles, 2)
	// The cycle started at 72 is expired when 144 arrives; the one from
	// 144 is expired on shutdown.
	s.Require().Len(s.runner.expired, 2)
	s.Same(s.runner.cycles[0], s.runner.expired[0])
	s.Same(s.runner.cycles[1], s.runner.expired[1])
}

func (s *SchedulerPublicTestSuite) TestFailedStartNotRetriedWithinEpoch() {
	s.runner.startErr = errors.New("ledger offline")

	s.run(func() {
		s.ledger.closes <- 72
		s.ledger.closes <- 72
	})

	s.Equal([]uint64{72}, s.runner.starts)
}

func (s *SchedulerPublicTestSuite) TestAssignmentRoutedToCurrentCycle() {
	asg := ledger.Assignment{LeaseToken: "lease-1", Sequence: 75}

	s.run(func() {
		s.ledger.closes <- 72
		s.ledger.assignments <- asg
	})

	s.Require().Len(s.runner.assignments, 1)
	s.Equal("lease-1", s.runner.assignments[0].LeaseToken)
}

func (s *SchedulerPublicTestSuite) TestAssignmentBeforeFirstCycleDropped() {
	s.run(func() {
		s.ledger.assignments <- ledger.Assignment{LeaseToken: "early", Sequence: 10}
	})

	s.Empty(s.runner.assignments)
	s.Equal(1, s.runner.nilAssigned)
}

func (s *SchedulerPublicTestSuite) TestCloseStreamEndStopsScheduler() {
	errCh := make(chan error, 1)
	go func() {
		errCh <- s.newScheduler().Run(context.Background())
	}()

	close(s.ledger.closes)

	select {
	case err := <-errCh:
		s.Require().Error(err)
		s.NotErrorIs(err, context.Canceled)
	case <-time.After(5 * time.Second):
		s.Fail("scheduler did not stop")
	}
}

func (s *SchedulerPublicTestSuite) TestReconcileExpiresStaleRecords() {
	ctx := context.Background()

	stale, err := s.store.Insert(ctx, store.Record{
		EpochID: 0,
		Status:  store.StatusCashed,
	})
	s.Require().NoError(err)

	current, err := s.store.Insert(ctx, store.Record{
		EpochID: 72,
		Status:  store.StatusCreated,
	})
	s.Require().NoError(err)

	done, err := s.store.Insert(ctx, store.Record{
		EpochID: 0,
		Status:  store.StatusAuditSuccess,
	})
	s.Require().NoError(err)

	s.ledger.seq = 100

	s.Require().NoError(s.newScheduler().Reconcile(ctx))

	staleRec, err := s.store.Get(ctx, stale.ID)
	s.Require().NoError(err)
	s.Equal(store.StatusExpired, staleRec.Status)

	currentRec, err := s.store.Get(ctx, current.ID)
	s.Require().NoError(err)
	s.Equal(store.StatusCreated, currentRec.Status)

	doneRec, err := s.store.Get(ctx, done.ID)
	s.Require().NoError(err)
	s.Equal(store.StatusAuditSuccess, doneRec.Status)
}

func TestSchedulerPublicTestSuite(t *testing.T) {
	suite.Run(t, new(SchedulerPublicTestSuite))
}
