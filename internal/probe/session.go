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

package probe

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// DefaultRequestTimeout is the per-request probe timeout when none is
// configured.
const DefaultRequestTimeout = 5 * time.Second

// pendingRequest tracks one submitted probe awaiting its output event.
// At most one pendingRequest exists per request id; exactly one result is
// ever delivered on done.
type pendingRequest struct {
	name        string
	expected    string
	submittedAt time.Time
	deadline    time.Time
	done        chan bool
	resolved    bool
}

// Session runs one scripted conversation over a Transport. Verification
// outcomes are graceful booleans: transport errors are logged and
// converted to a failing verdict, never propagated.
type Session struct {
	logger    *slog.Logger
	transport Transport
	timeout   time.Duration

	mu           sync.Mutex
	pending      map[string]*pendingRequest
	disconnected atomic.Bool
}

// NewSession creates a new Session with the given per-request timeout.
func NewSession(
	logger *slog.Logger,
	transport Transport,
	timeout time.Duration,
) *Session {
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}

	return &Session{
		logger:    logger,
		transport: transport,
		timeout:   timeout,
		pending:   make(map[string]*pendingRequest),
	}
}

// Connect establishes the session. Connect failure is a graceful false,
// not an error.
func (s *Session) Connect(
	ctx context.Context,
	address string,
) bool {
	if err := s.transport.Connect(ctx, address); err != nil {
		s.logger.Warn(
			"failed to connect to instance",
			slog.String("address", address),
			slog.String("error", err.Error()),
		)
		return false
	}

	return true
}

// CheckLiveness runs the instance liveness probe.
func (s *Session) CheckLiveness(
	ctx context.Context,
) bool {
	ok, err := s.transport.CheckLiveness(ctx)
	if err != nil {
		s.logger.Warn(
			"liveness check errored",
			slog.String("error", err.Error()),
		)
		return false
	}

	return ok
}

// UploadBundle uploads the content bundle to the instance.
func (s *Session) UploadBundle(
	ctx context.Context,
	path string,
) bool {
	ok, err := s.transport.UploadBundle(ctx, path)
	if err != nil {
		s.logger.Warn(
			"bundle upload errored",
			slog.String("path", path),
			slog.String("error", err.Error()),
		)
		return false
	}

	return ok
}

// Close tears the underlying transport down.
func (s *Session) Close() {
	s.transport.Close()
}

// RunScript submits every case back-to-back, then awaits the whole batch.
// Each still-pending request times out on its own deadline, so a single
// slow probe fails only itself. The verdict passes iff every submitted
// case resolved as success and the transport stayed connected.
func (s *Session) RunScript(
	ctx context.Context,
	script Script,
) bool {
	if len(script) == 0 {
		return true
	}

	stop := make(chan struct{})
	defer close(stop)
	go s.dispatch(ctx, s.transport.Output(), stop)

	// Fire all submissions, then await.
	ids := make([]string, 0, len(script))
	for _, tc := range script {
		id := uuid.New().String()
		s.register(id, tc)
		ids = append(ids, id)

		ack, err := s.transport.Submit(
			ctx,
			Payload{RequestID: id, Input: tc.Input},
			tc.ReadOnly,
		)
		if err != nil {
			// Transport-level failure mid-run fails the whole verdict.
			s.logger.Error(
				"probe submission failed",
				slog.String("case", tc.Name),
				slog.String("request_id", id),
				slog.String("error", err.Error()),
			)
			s.disconnected.Store(true)
			s.resolve(id, false)
			break
		}

		if !ack.OK {
			s.logger.Warn(
				"probe submission rejected",
				slog.String("case", tc.Name),
				slog.String("request_id", id),
				slog.String("reason", ack.Reason),
			)
			s.resolve(id, false)
		}
	}

	pass := true
	for _, id := range ids {
		p := s.get(id)

		var ok bool
		select {
		case ok = <-p.done:
		case <-time.After(time.Until(p.deadline)):
			s.logger.Warn(
				"probe timed out",
				slog.String("case", p.name),
				slog.String("request_id", id),
			)
			s.resolve(id, false)
			ok = <-p.done
		}

		if !ok {
			pass = false
		}
	}

	if s.disconnected.Load() {
		return false
	}

	return pass
}

// dispatch matches asynchronous output events to pending requests until
// the run finishes or the transport disconnects.
func (s *Session) dispatch(
	ctx context.Context,
	outputs <-chan Output,
	stop <-chan struct{},
) {
	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			return
		case out, open := <-outputs:
			if !open {
				s.logger.Error("probe transport disconnected")
				s.disconnected.Store(true)
				s.failAllPending()
				return
			}

			s.match(out)
		}
	}
}

// match resolves the pending request for an output event. Unmatched ids
// are dropped without affecting any pending result.
func (s *Session) match(
	out Output,
) {
	s.mu.Lock()
	p, ok := s.pending[out.RequestID]
	if !ok || p.resolved {
		s.mu.Unlock()
		s.logger.Debug(
			"dropping unmatched probe output",
			slog.String("request_id", out.RequestID),
		)
		return
	}

	equal := out.Data == p.expected
	p.resolved = true
	p.done <- equal
	s.mu.Unlock()

	if !equal {
		s.logger.Info(
			"probe output mismatch",
			slog.String("case", p.name),
			slog.String("request_id", out.RequestID),
			slog.String("expected", p.expected),
			slog.String("actual", out.Data),
		)
	}
}

// register creates the pending request for a case. At most one pending
// request exists per request id.
func (s *Session) register(
	id string,
	tc Case,
) {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.pending[id] = &pendingRequest{
		name:        tc.Name,
		expected:    tc.Expected,
		submittedAt: now,
		deadline:    now.Add(s.timeout),
		done:        make(chan bool, 1),
	}
}

// get returns the pending request for id.
func (s *Session) get(
	id string,
) *pendingRequest {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.pending[id]
}

// resolve delivers a result exactly once for the given request id.
func (s *Session) resolve(
	id string,
	ok bool,
) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, found := s.pending[id]
	if !found || p.resolved {
		return
	}

	p.resolved = true
	p.done <- ok
}

// failAllPending resolves every unresolved request as failed, used when
// the transport disconnects mid-run.
func (s *Session) failAllPending() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range s.pending {
		if p.resolved {
			continue
		}

		p.resolved = true
		p.done <- false
	}
}
