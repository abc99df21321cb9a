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

package ledger

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/leaseaudit-io/leaseaudit/internal/telemetry"
)

// Ledger service subjects.
const (
	subjectAuditRequest  = "ledger.audit.request"
	subjectCash          = "ledger.cash"
	subjectRedeem        = "ledger.redeem"
	subjectReportSuccess = "ledger.report.success"
	subjectReportFailure = "ledger.report.failure"
	subjectSequence      = "ledger.sequence"
	subjectParams        = "ledger.params"
	subjectClosed        = "ledger.closed"
	subjectAssignPrefix  = "ledger.assign."
)

// defaultTimeout bounds ledger request/reply calls when no timeout is
// configured.
const defaultTimeout = 10 * time.Second

// ensure NATSClient implements Client at compile time.
var _ Client = (*NATSClient)(nil)

// NATSClient implements Client over NATS request/reply subjects.
type NATSClient struct {
	logger  *slog.Logger
	nc      *nats.Conn
	account string
	timeout time.Duration
}

// NewNATSClient creates a new ledger client on an existing connection.
func NewNATSClient(
	logger *slog.Logger,
	nc *nats.Conn,
	account string,
	timeout time.Duration,
) *NATSClient {
	if timeout == 0 {
		timeout = defaultTimeout
	}

	return &NATSClient{
		logger:  logger,
		nc:      nc,
		account: account,
		timeout: timeout,
	}
}

// request performs one JSON request/reply call against the ledger service.
func (c *NATSClient) request(
	ctx context.Context,
	subject string,
	payload any,
	result any,
) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", subject, err)
	}

	req := nats.NewMsg(subject)
	req.Data = data
	telemetry.InjectTraceContextToHeader(ctx, http.Header(req.Header))

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	msg, err := c.nc.RequestMsgWithContext(reqCtx, req)
	if err != nil {
		return fmt.Errorf("ledger request %s: %w", subject, err)
	}

	if result == nil {
		return nil
	}

	if err := json.Unmarshal(msg.Data, result); err != nil {
		return fmt.Errorf("unmarshal %s reply: %w", subject, err)
	}

	return nil
}

// RequestAudit asks the ledger for an audit lease.
func (c *NATSClient) RequestAudit(
	ctx context.Context,
) error {
	payload := map[string]string{"account": c.account}

	return c.request(ctx, subjectAuditRequest, payload, nil)
}

// Cash settles the payment for an assignment.
func (c *NATSClient) Cash(
	ctx context.Context,
	a Assignment,
) (*Receipt, error) {
	var receipt Receipt
	if err := c.request(ctx, subjectCash, a, &receipt); err != nil {
		return nil, err
	}

	return &receipt, nil
}

// redeemRequest is the wire payload for Redeem.
type redeemRequest struct {
	LeaseToken   string       `json:"lease_token"`
	Address      string       `json:"address"`
	Amount       uint64       `json:"amount"`
	Requirements Requirements `json:"requirements"`
}

// Redeem provisions the leased instance.
func (c *NATSClient) Redeem(
	ctx context.Context,
	token, address string,
	amount uint64,
	req Requirements,
) (*InstanceInfo, error) {
	payload := redeemRequest{
		LeaseToken:   token,
		Address:      address,
		Amount:       amount,
		Requirements: req,
	}

	var info InstanceInfo
	if err := c.request(ctx, subjectRedeem, payload, &info); err != nil {
		return nil, err
	}

	return &info, nil
}

// ReportSuccess reports a passed audit for the given address.
func (c *NATSClient) ReportSuccess(
	ctx context.Context,
	address string,
) error {
	payload := map[string]string{"address": address}

	return c.request(ctx, subjectReportSuccess, payload, nil)
}

// ReportFailure reports a failed audit for the given address.
func (c *NATSClient) ReportFailure(
	ctx context.Context,
	address string,
) error {
	payload := map[string]string{"address": address}

	return c.request(ctx, subjectReportFailure, payload, nil)
}

// CurrentSequence returns the latest closed ledger sequence.
func (c *NATSClient) CurrentSequence(
	ctx context.Context,
) (uint64, error) {
	var reply struct {
		Sequence uint64 `json:"sequence"`
	}
	if err := c.request(ctx, subjectSequence, nil, &reply); err != nil {
		return 0, err
	}

	return reply.Sequence, nil
}

// EpochParams fetches the ledger's epoch constants.
func (c *NATSClient) EpochParams(
	ctx context.Context,
) (EpochParams, error) {
	var params EpochParams
	if err := c.request(ctx, subjectParams, nil, &params); err != nil {
		return EpochParams{}, err
	}

	if params.Size == 0 {
		return EpochParams{}, fmt.Errorf("ledger returned zero epoch size")
	}

	return params, nil
}

// Closes delivers ledger-close sequence notifications until ctx is done.
func (c *NATSClient) Closes(
	ctx context.Context,
) (<-chan uint64, error) {
	msgs := make(chan *nats.Msg, 64)

	sub, err := c.nc.ChanSubscribe(subjectClosed, msgs)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subjectClosed, err)
	}

	out := make(chan uint64, 64)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				var event struct {
					Sequence uint64 `json:"sequence"`
				}
				if err := json.Unmarshal(msg.Data, &event); err != nil {
					c.logger.Warn(
						"dropping malformed ledger close event",
						slog.String("error", err.Error()),
					)
					continue
				}

				select {
				case out <- event.Sequence:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}

// Assignments delivers lease assignment events until ctx is done.
func (c *NATSClient) Assignments(
	ctx context.Context,
) (<-chan Assignment, error) {
	subject := subjectAssignPrefix + c.account
	msgs := make(chan *nats.Msg, 16)

	sub, err := c.nc.ChanSubscribe(subject, msgs)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s: %w", subject, err)
	}

	out := make(chan Assignment, 16)
	go func() {
		defer close(out)
		defer func() { _ = sub.Unsubscribe() }()

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				var a Assignment
				if err := json.Unmarshal(msg.Data, &a); err != nil {
					c.logger.Warn(
						"dropping malformed assignment event",
						slog.String("error", err.Error()),
					)
					continue
				}

				select {
				case out <- a:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
