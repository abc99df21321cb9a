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

// Package ledger defines the external ledger service collaborator.
package ledger

import "context"

// EpochParams are the ledger-defined epoch constants, fetched once at
// start-up and cached for the process lifetime.
type EpochParams struct {
	// Base is the sequence number the first epoch starts at.
	Base uint64 `json:"base"`
	// Size is the number of ledger sequences per epoch.
	Size uint64 `json:"size"`
}

// EpochID returns the id of the epoch containing seq. Epoch ids are the
// epoch's starting ledger sequence.
func (p EpochParams) EpochID(
	seq uint64,
) uint64 {
	if p.Size == 0 || seq < p.Base {
		return p.Base
	}

	return p.Base + ((seq-p.Base)/p.Size)*p.Size
}

// IsBoundary reports whether seq is the first sequence of an epoch.
func (p EpochParams) IsBoundary(
	seq uint64,
) bool {
	if p.Size == 0 || seq < p.Base {
		return false
	}

	return (seq-p.Base)%p.Size == 0
}

// Requirements are the instance requirements passed to Redeem.
type Requirements struct {
	// Image is the instance image identifier.
	Image string `json:"image"`
	// Port the provisioned instance must listen on.
	Port int `json:"port"`
}

// Assignment is a lease assignment delivered asynchronously after a
// RequestAudit call. Sequence carries the ledger sequence at assignment
// time, used as the epoch tag when routing the event.
type Assignment struct {
	LeaseToken   string       `json:"lease_token"`
	Address      string       `json:"address"`
	Amount       uint64       `json:"amount"`
	Requirements Requirements `json:"requirements"`
	Sequence     uint64       `json:"sequence"`
}

// Receipt acknowledges a settled (cashed) assignment.
type Receipt struct {
	ID     string `json:"id"`
	Amount uint64 `json:"amount"`
}

// InstanceInfo describes a provisioned instance returned by Redeem.
type InstanceInfo struct {
	Address string `json:"address"`
	Port    int    `json:"port"`
}

// Client is the ledger service collaborator. All operations are
// asynchronous request/reply calls against the ledger endpoint.
type Client interface {
	// RequestAudit asks the ledger for an audit lease. The resulting
	// assignment is delivered later on the Assignments channel.
	RequestAudit(ctx context.Context) error
	// Cash settles the payment for an assignment.
	Cash(ctx context.Context, a Assignment) (*Receipt, error)
	// Redeem provisions the leased instance.
	Redeem(
		ctx context.Context,
		token, address string,
		amount uint64,
		req Requirements,
	) (*InstanceInfo, error)
	// ReportSuccess reports a passed audit for the given address.
	ReportSuccess(ctx context.Context, address string) error
	// ReportFailure reports a failed audit for the given address.
	ReportFailure(ctx context.Context, address string) error
	// CurrentSequence returns the latest closed ledger sequence.
	CurrentSequence(ctx context.Context) (uint64, error)
	// EpochParams fetches the ledger's epoch constants.
	EpochParams(ctx context.Context) (EpochParams, error)
	// Closes delivers ledger-close sequence notifications until ctx is done.
	Closes(ctx context.Context) (<-chan uint64, error)
	// Assignments delivers lease assignment events until ctx is done.
	Assignments(ctx context.Context) (<-chan Assignment, error)
}
