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

// Package probe provides the remote verification protocol client. It runs
// a scripted request/response conversation against a single instance and
// produces a pass/fail verdict, tolerant of out-of-order, late, or missing
// replies.
package probe

import "context"

// Case is one scripted probe: input sent to the instance and the output
// expected back. ReadOnly cases are submitted as queries rather than
// state-mutating requests.
type Case struct {
	Name     string `json:"name"`
	Input    string `json:"input"`
	Expected string `json:"expected"`
	ReadOnly bool   `json:"read_only"`
}

// Script is an ordered list of probe cases.
type Script []Case

// Payload is one submitted probe request. RequestID correlates the
// asynchronous output event back to the submission.
type Payload struct {
	RequestID string `json:"request_id"`
	Input     string `json:"input"`
}

// Ack acknowledges a submission. A rejected submission resolves its
// pending request immediately as failed.
type Ack struct {
	RequestID string `json:"request_id"`
	OK        bool   `json:"ok"`
	Reason    string `json:"reason,omitempty"`
}

// Output is an asynchronous output event from the instance.
type Output struct {
	RequestID string `json:"request_id"`
	Data      string `json:"data"`
}

// Transport is the remote instance transport collaborator. The Output
// channel closes on transport-level disconnect.
type Transport interface {
	// Connect establishes a session to the instance's network address.
	Connect(ctx context.Context, address string) error
	// CheckLiveness reports whether the instance answers a liveness probe.
	CheckLiveness(ctx context.Context) (bool, error)
	// UploadBundle uploads the content bundle at path to the instance.
	UploadBundle(ctx context.Context, path string) (bool, error)
	// Submit sends one probe payload, as a query when readOnly is set.
	Submit(ctx context.Context, p Payload, readOnly bool) (*Ack, error)
	// Output delivers output events. Closed on disconnect.
	Output() <-chan Output
	// Close tears the session down.
	Close()
}

// CustomAudit is the pluggable audit logic collaborator, invoked once the
// provisioning-side checks pass.
type CustomAudit func(ctx context.Context, address string, port int) bool
