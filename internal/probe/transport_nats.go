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
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nkeys"
	"github.com/spf13/afero"
)

// Instance transport subjects.
const (
	subjectPing   = "instance.ping"
	subjectBundle = "instance.bundle"
	subjectExec   = "instance.exec"
	subjectQuery  = "instance.query"
	subjectOutput = "instance.output"
)

// ensure NATSTransport implements Transport at compile time.
var _ Transport = (*NATSTransport)(nil)

// NATSTransport implements Transport over a dedicated NATS connection to
// the instance, authenticated with the persisted session nkey.
type NATSTransport struct {
	logger  *slog.Logger
	fs      afero.Fs
	kp      nkeys.KeyPair
	timeout time.Duration

	nc     *nats.Conn
	out    chan Output
	closed chan struct{}
}

// NewNATSTransport creates a new, unconnected NATSTransport.
func NewNATSTransport(
	logger *slog.Logger,
	fs afero.Fs,
	kp nkeys.KeyPair,
	timeout time.Duration,
) *NATSTransport {
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}

	return &NATSTransport{
		logger:  logger,
		fs:      fs,
		kp:      kp,
		timeout: timeout,
	}
}

// Connect establishes the session and starts the output event pump. The
// output channel closes when the connection does, which the session
// treats as a hard disconnect.
func (t *NATSTransport) Connect(
	ctx context.Context,
	address string,
) error {
	pub, err := t.kp.PublicKey()
	if err != nil {
		return fmt.Errorf("derive session public key: %w", err)
	}

	t.closed = make(chan struct{})

	nc, err := nats.Connect(
		address,
		nats.Name("leaseaudit-probe"),
		nats.Nkey(pub, t.kp.Sign),
		nats.Timeout(t.timeout),
		nats.MaxReconnects(0),
		nats.ClosedHandler(func(*nats.Conn) {
			close(t.closed)
		}),
	)
	if err != nil {
		return fmt.Errorf("connect to instance %s: %w", address, err)
	}
	t.nc = nc

	msgs := make(chan *nats.Msg, 64)
	if _, err := nc.ChanSubscribe(subjectOutput, msgs); err != nil {
		nc.Close()
		return fmt.Errorf("subscribe %s: %w", subjectOutput, err)
	}

	t.out = make(chan Output, 64)
	go t.pump(ctx, msgs)

	return nil
}

// pump converts raw output messages to Output events until the
// connection closes.
func (t *NATSTransport) pump(
	ctx context.Context,
	msgs <-chan *nats.Msg,
) {
	defer close(t.out)

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.closed:
			return
		case msg := <-msgs:
			var out Output
			if err := json.Unmarshal(msg.Data, &out); err != nil {
				t.logger.Warn(
					"dropping malformed output event",
					slog.String("error", err.Error()),
				)
				continue
			}

			select {
			case t.out <- out:
			case <-t.closed:
				return
			case <-ctx.Done():
				return
			}
		}
	}
}

// CheckLiveness reports whether the instance answers a liveness probe.
func (t *NATSTransport) CheckLiveness(
	ctx context.Context,
) (bool, error) {
	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	msg, err := t.nc.RequestWithContext(reqCtx, subjectPing, nil)
	if err != nil {
		return false, fmt.Errorf("liveness request: %w", err)
	}

	var reply struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return false, fmt.Errorf("unmarshal liveness reply: %w", err)
	}

	return reply.OK, nil
}

// UploadBundle uploads the content bundle at path. An empty path means no
// bundle is configured and succeeds trivially.
func (t *NATSTransport) UploadBundle(
	ctx context.Context,
	path string,
) (bool, error) {
	if path == "" {
		return true, nil
	}

	data, err := afero.ReadFile(t.fs, path)
	if err != nil {
		return false, fmt.Errorf("read bundle %s: %w", path, err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	msg, err := t.nc.RequestWithContext(reqCtx, subjectBundle, data)
	if err != nil {
		return false, fmt.Errorf("bundle upload request: %w", err)
	}

	var reply struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(msg.Data, &reply); err != nil {
		return false, fmt.Errorf("unmarshal bundle reply: %w", err)
	}

	return reply.OK, nil
}

// Submit sends one probe payload, as a read-only query or a durable
// state-mutating request per the case's declared kind.
func (t *NATSTransport) Submit(
	ctx context.Context,
	p Payload,
	readOnly bool,
) (*Ack, error) {
	subject := subjectExec
	if readOnly {
		subject = subjectQuery
	}

	data, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("marshal probe payload: %w", err)
	}

	reqCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	msg, err := t.nc.RequestWithContext(reqCtx, subject, data)
	if err != nil {
		return nil, fmt.Errorf("submit probe %s: %w", p.RequestID, err)
	}

	var ack Ack
	if err := json.Unmarshal(msg.Data, &ack); err != nil {
		return nil, fmt.Errorf("unmarshal probe ack: %w", err)
	}

	return &ack, nil
}

// Output delivers output events. Closed on disconnect.
func (t *NATSTransport) Output() <-chan Output {
	return t.out
}

// Close tears the connection down, closing the output channel via the
// connection's closed handler.
func (t *NATSTransport) Close() {
	if t.nc != nil {
		t.nc.Close()
	}
}
