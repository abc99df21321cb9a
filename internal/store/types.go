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

// Package store provides the persisted audit record ledger.
package store

import (
	"context"
	"time"
)

// Status is the lifecycle status of an audit record.
type Status string

const (
	// StatusCreated is the initial status of a new audit record.
	StatusCreated Status = "created"
	// StatusAssigned means a lease assignment arrived for the record.
	StatusAssigned Status = "assigned"
	// StatusCashed means the assignment payment settled.
	StatusCashed Status = "cashed"
	// StatusRedeemed means the instance was provisioned.
	StatusRedeemed Status = "redeemed"
	// StatusAuditSuccess is the passing terminal verdict.
	StatusAuditSuccess Status = "audit_success"
	// StatusAuditFailed is the failing terminal verdict.
	StatusAuditFailed Status = "audit_failed"
	// StatusExpired means the epoch rolled over mid-flight.
	StatusExpired Status = "expired"
	// StatusFailed means a collaborator call errored unexpectedly.
	StatusFailed Status = "failed"
)

// Terminal reports whether a status is permanent history.
func (s Status) Terminal() bool {
	switch s {
	case StatusAuditSuccess, StatusAuditFailed, StatusExpired, StatusFailed:
		return true
	}

	return false
}

// Record is one persisted audit attempt. ID and CreatedAt are assigned on
// insert; EpochID and CreatedAt are immutable afterwards.
type Record struct {
	// ID is the store-assigned unique identifier.
	ID string `json:"id"`
	// CreatedAt is when the record was inserted.
	CreatedAt time.Time `json:"created_at"`
	// EpochID is the epoch's starting ledger sequence.
	EpochID uint64 `json:"epoch_id"`
	// LeaseToken is empty until an assignment arrives.
	LeaseToken string `json:"lease_token,omitempty"`
	// Status is the record's lifecycle status.
	Status Status `json:"status"`
}

// Patch is a partial update. LeaseToken and Status are the only mutable
// fields of a record.
type Patch struct {
	LeaseToken *string
	Status     *Status
}

// Predicate selects records for SelectWhere and UpdateWhere.
type Predicate func(Record) bool

// Store is the audit record ledger. Records are never deleted; terminal
// statuses are permanent history.
type Store interface {
	// Insert persists a new record, assigning ID and CreatedAt.
	Insert(ctx context.Context, rec Record) (Record, error)
	// UpdateWhere applies patch to every record matching pred, returning
	// the number of records updated.
	UpdateWhere(ctx context.Context, patch Patch, pred Predicate) (int, error)
	// SelectWhere returns all records matching pred.
	SelectWhere(ctx context.Context, pred Predicate) ([]Record, error)
	// Get retrieves a record by id.
	Get(ctx context.Context, id string) (*Record, error)
	// NonTerminal returns all records not yet in a terminal status.
	NonTerminal(ctx context.Context) ([]Record, error)
}

// ByID returns a predicate matching a single record id.
func ByID(
	id string,
) Predicate {
	return func(r Record) bool { return r.ID == id }
}

// OpenByID matches a non-terminal record by id, guarding against a
// terminal status being overwritten by a racing finalizer.
func OpenByID(
	id string,
) Predicate {
	return func(r Record) bool { return r.ID == id && !r.Status.Terminal() }
}

// StatusPatch returns a patch that only changes the status.
func StatusPatch(
	status Status,
) Patch {
	return Patch{Status: &status}
}
