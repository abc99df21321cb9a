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

// Package auditor drives the per-epoch audit lifecycle: lease request,
// cash, redeem, instance verification, and verdict reporting.
package auditor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/leaseaudit-io/leaseaudit/internal/ledger"
	"github.com/leaseaudit-io/leaseaudit/internal/probe"
	"github.com/leaseaudit-io/leaseaudit/internal/store"
)

// VerifySession is the instance verification session used by one audit.
// Implemented by probe.Session.
type VerifySession interface {
	Connect(ctx context.Context, address string) bool
	CheckLiveness(ctx context.Context) bool
	UploadBundle(ctx context.Context, path string) bool
	RunScript(ctx context.Context, script probe.Script) bool
	Close()
}

var _ VerifySession = (*probe.Session)(nil)

// SessionFactory creates a fresh verification session per audit.
type SessionFactory func() VerifySession

// Options carry the per-deployment audit parameters.
type Options struct {
	// Image is the instance image passed to Redeem.
	Image string
	// BundlePath is the content bundle uploaded before verification.
	// Empty means no bundle.
	BundlePath string
	// Script is the probe script run against the instance.
	Script probe.Script
	// CustomAudit is the pluggable extra verification step.
	CustomAudit probe.CustomAudit
}

// Auditor runs audit cycles against the ledger and records every attempt
// in the store.
type Auditor struct {
	logger   *slog.Logger
	ledger   ledger.Client
	store    store.Store
	params   ledger.EpochParams
	sessions SessionFactory
	opts     Options
	metrics  *Metrics
}

// New creates a new Auditor.
func New(
	logger *slog.Logger,
	client ledger.Client,
	st store.Store,
	params ledger.EpochParams,
	sessions SessionFactory,
	opts Options,
	metrics *Metrics,
) *Auditor {
	if opts.CustomAudit == nil {
		opts.CustomAudit = func(context.Context, string, int) bool { return true }
	}

	return &Auditor{
		logger:   logger,
		ledger:   client,
		store:    st,
		params:   params,
		sessions: sessions,
		opts:     opts,
		metrics:  metrics,
	}
}

// StartCycle opens the audit cycle for epochID: it persists a created
// record and requests a lease from the ledger. The assignment arrives
// asynchronously via HandleAssignment.
func (a *Auditor) StartCycle(
	ctx context.Context,
	epochID uint64,
) (*Cycle, error) {
	rec, err := a.store.Insert(ctx, store.Record{
		EpochID: epochID,
		Status:  store.StatusCreated,
	})
	if err != nil {
		return nil, fmt.Errorf("insert audit record: %w", err)
	}

	a.logger.Info(
		"audit cycle started",
		slog.Uint64("epoch_id", epochID),
		slog.String("record_id", rec.ID),
	)

	if err := a.ledger.RequestAudit(ctx); err != nil {
		a.markStatus(ctx, rec.ID, store.StatusFailed)
		return nil, fmt.Errorf("request audit lease: %w", err)
	}

	a.metrics.Cycles.Inc()

	return newCycle(epochID, rec.ID), nil
}

// HandleAssignment routes a lease assignment to its cycle. Assignments
// tagged with a stale epoch, or arriving after the cycle expired, are
// dropped. Duplicate lease tokens within a cycle are ignored.
func (a *Auditor) HandleAssignment(
	ctx context.Context,
	c *Cycle,
	asg ledger.Assignment,
) {
	if c == nil {
		a.logger.Warn(
			"dropping assignment with no active cycle",
			slog.String("lease_token", asg.LeaseToken),
		)
		return
	}

	tag := a.params.EpochID(asg.Sequence)
	if tag != c.epochID || c.Expired() {
		a.logger.Warn(
			"dropping stale assignment",
			slog.String("lease_token", asg.LeaseToken),
			slog.Uint64("assignment_epoch", tag),
			slog.Uint64("cycle_epoch", c.epochID),
		)
		return
	}

	c.mu.Lock()
	if _, dup := c.drafts[asg.LeaseToken]; dup {
		c.mu.Unlock()
		a.logger.Warn(
			"dropping duplicate assignment",
			slog.String("lease_token", asg.LeaseToken),
		)
		return
	}

	d := &draft{assignment: asg}
	if !c.active {
		// First assignment claims the record created at cycle start.
		c.active = true
		d.recordID = c.recordID
		a.claimRecord(ctx, d.recordID, asg.LeaseToken)
	} else {
		rec, err := a.store.Insert(ctx, store.Record{
			EpochID:    c.epochID,
			LeaseToken: asg.LeaseToken,
			Status:     store.StatusAssigned,
		})
		if err != nil {
			c.mu.Unlock()
			a.logger.Error(
				"failed to persist assignment record",
				slog.String("lease_token", asg.LeaseToken),
				slog.String("error", err.Error()),
			)
			return
		}
		d.recordID = rec.ID
	}
	c.drafts[asg.LeaseToken] = d
	c.wg.Add(1)
	c.mu.Unlock()

	go a.runDraft(ctx, c, d)
}

// ExpireCycle marks a cycle expired at the next epoch boundary. In-flight
// audits observe the flag at their next checkpoint; their records are
// finalized as expired here so the outcome is durable immediately.
func (a *Auditor) ExpireCycle(
	ctx context.Context,
	c *Cycle,
) {
	if c == nil {
		return
	}

	c.expired.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.active {
		// No assignment ever arrived; retire the created record.
		a.finalizeRecord(ctx, c.recordID, store.StatusExpired)
	}

	for _, d := range c.drafts {
		a.finalizeDraft(ctx, d, store.StatusExpired)
	}

	a.logger.Info(
		"audit cycle expired",
		slog.Uint64("epoch_id", c.epochID),
	)
}

// runDraft executes one audit and finalizes its record exactly once.
func (a *Auditor) runDraft(
	ctx context.Context,
	c *Cycle,
	d *draft,
) {
	defer c.wg.Done()

	status, err := a.executeDraft(ctx, c, d)
	if err != nil {
		if errors.Is(err, ErrEpochExpired) {
			status = store.StatusExpired
		} else {
			a.logger.Error(
				"audit failed unexpectedly",
				slog.String("lease_token", d.assignment.LeaseToken),
				slog.String("error", err.Error()),
			)
			status = store.StatusFailed
		}
	}

	a.finalizeDraft(ctx, d, status)
}

// executeDraft runs the audit lifecycle for one assignment, checking
// epoch validity between every step.
func (a *Auditor) executeDraft(
	ctx context.Context,
	c *Cycle,
	d *draft,
) (store.Status, error) {
	asg := d.assignment

	if c.Expired() {
		return "", ErrEpochExpired
	}

	receipt, err := a.ledger.Cash(ctx, asg)
	if err != nil {
		return "", fmt.Errorf("cash assignment: %w", err)
	}

	a.logger.Debug(
		"assignment cashed",
		slog.String("lease_token", asg.LeaseToken),
		slog.String("receipt_id", receipt.ID),
	)

	if c.Expired() {
		return "", ErrEpochExpired
	}
	a.markStatus(ctx, d.recordID, store.StatusCashed)

	redeemStart, err := a.ledger.CurrentSequence(ctx)
	if err != nil {
		return "", fmt.Errorf("read sequence before redeem: %w", err)
	}

	info, err := a.ledger.Redeem(
		ctx,
		asg.LeaseToken,
		asg.Address,
		asg.Amount,
		ledger.Requirements{Image: a.opts.Image, Port: asg.Requirements.Port},
	)
	if err != nil {
		return "", fmt.Errorf("redeem lease: %w", err)
	}

	redeemEnd, err := a.ledger.CurrentSequence(ctx)
	if err != nil {
		return "", fmt.Errorf("read sequence after redeem: %w", err)
	}

	// A redeem that consumed half the epoch or more disqualifies the
	// audit outright: no verification runs and no verdict is reported.
	if elapsed := redeemEnd - redeemStart; elapsed >= a.params.Size/2 {
		a.logger.Warn(
			"redeem too slow, audit disqualified",
			slog.String("lease_token", asg.LeaseToken),
			slog.Uint64("elapsed_sequences", elapsed),
		)
		return store.StatusAuditFailed, nil
	}

	if c.Expired() {
		return "", ErrEpochExpired
	}
	a.markStatus(ctx, d.recordID, store.StatusRedeemed)

	return a.verify(ctx, c, d, info)
}

// verify runs the instance verification session and reports the verdict
// to the ledger.
func (a *Auditor) verify(
	ctx context.Context,
	c *Cycle,
	d *draft,
	info *ledger.InstanceInfo,
) (store.Status, error) {
	sess := a.sessions()
	defer sess.Close()

	if !sess.Connect(ctx, info.Address) {
		return a.report(ctx, info.Address, false), nil
	}

	if c.Expired() {
		return "", ErrEpochExpired
	}

	if !sess.CheckLiveness(ctx) {
		return a.report(ctx, info.Address, false), nil
	}

	if c.Expired() {
		return "", ErrEpochExpired
	}

	if !sess.UploadBundle(ctx, a.opts.BundlePath) {
		return a.report(ctx, info.Address, false), nil
	}

	if c.Expired() {
		return "", ErrEpochExpired
	}

	pass := sess.RunScript(ctx, a.opts.Script) &&
		a.opts.CustomAudit(ctx, info.Address, info.Port)

	return a.report(ctx, info.Address, pass), nil
}

// report delivers the verdict to the ledger. Report errors are logged
// only; the local record still carries the verdict.
func (a *Auditor) report(
	ctx context.Context,
	address string,
	pass bool,
) store.Status {
	var err error
	if pass {
		err = a.ledger.ReportSuccess(ctx, address)
	} else {
		err = a.ledger.ReportFailure(ctx, address)
	}

	if err != nil {
		a.logger.Error(
			"failed to report audit verdict",
			slog.String("address", address),
			slog.Bool("pass", pass),
			slog.String("error", err.Error()),
		)
	}

	if pass {
		return store.StatusAuditSuccess
	}

	return store.StatusAuditFailed
}

// finalizeDraft persists a terminal status for a draft exactly once.
func (a *Auditor) finalizeDraft(
	ctx context.Context,
	d *draft,
	status store.Status,
) {
	d.finalize.Do(func() {
		a.finalizeRecord(ctx, d.recordID, status)
	})
}

// finalizeRecord writes a terminal status and bumps the verdict counter.
// The open-record guard keeps a terminal status from being overwritten.
func (a *Auditor) finalizeRecord(
	ctx context.Context,
	recordID string,
	status store.Status,
) {
	n, err := a.store.UpdateWhere(
		ctx,
		store.StatusPatch(status),
		store.OpenByID(recordID),
	)
	if err != nil {
		a.logger.Error(
			"failed to finalize audit record",
			slog.String("record_id", recordID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
		return
	}

	if n > 0 {
		a.metrics.Audits.WithLabelValues(string(status)).Inc()
		a.logger.Info(
			"audit finalized",
			slog.String("record_id", recordID),
			slog.String("status", string(status)),
		)
	}
}

// markStatus persists an intermediate lifecycle status.
func (a *Auditor) markStatus(
	ctx context.Context,
	recordID string,
	status store.Status,
) {
	if _, err := a.store.UpdateWhere(
		ctx,
		store.StatusPatch(status),
		store.OpenByID(recordID),
	); err != nil {
		a.logger.Error(
			"failed to update audit record",
			slog.String("record_id", recordID),
			slog.String("status", string(status)),
			slog.String("error", err.Error()),
		)
	}
}

// claimRecord attaches the first assignment's lease token to the record
// created at cycle start.
func (a *Auditor) claimRecord(
	ctx context.Context,
	recordID string,
	leaseToken string,
) {
	status := store.StatusAssigned
	if _, err := a.store.UpdateWhere(
		ctx,
		store.Patch{LeaseToken: &leaseToken, Status: &status},
		store.OpenByID(recordID),
	); err != nil {
		a.logger.Error(
			"failed to claim audit record",
			slog.String("record_id", recordID),
			slog.String("lease_token", leaseToken),
			slog.String("error", err.Error()),
		)
	}
}
