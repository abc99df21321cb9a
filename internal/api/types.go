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

package api

import (
	"time"

	"github.com/leaseaudit-io/leaseaudit/internal/store"
)

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse is the health check reply.
type HealthResponse struct {
	Status string `json:"status"`
}

// AuditResponse is one audit record.
type AuditResponse struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	EpochID    uint64    `json:"epoch_id"`
	LeaseToken string    `json:"lease_token,omitempty"`
	Status     string    `json:"status"`
}

// AuditListResponse is the audit record collection reply.
type AuditListResponse struct {
	Audits []AuditResponse `json:"audits"`
	Total  int             `json:"total"`
}

// toAuditResponse converts a store record to its API representation.
func toAuditResponse(
	rec store.Record,
) AuditResponse {
	return AuditResponse{
		ID:         rec.ID,
		CreatedAt:  rec.CreatedAt,
		EpochID:    rec.EpochID,
		LeaseToken: rec.LeaseToken,
		Status:     string(rec.Status),
	}
}
