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
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/leaseaudit-io/leaseaudit/internal/store"
)

// getAudits lists audit records, optionally filtered by status.
func (s *Server) getAudits(
	ctx echo.Context,
) error {
	statusFilter := ctx.QueryParam("status")
	if statusFilter != "" && !validStatus(statusFilter) {
		return ctx.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "unknown status: " + statusFilter,
		})
	}

	records, err := s.store.SelectWhere(
		ctx.Request().Context(),
		func(r store.Record) bool {
			return statusFilter == "" || string(r.Status) == statusFilter
		},
	)
	if err != nil {
		s.logger.Error(
			"failed to list audit records",
			slog.String("error", err.Error()),
		)
		return ctx.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "failed to list audit records",
		})
	}

	audits := make([]AuditResponse, 0, len(records))
	for _, rec := range records {
		audits = append(audits, toAuditResponse(rec))
	}

	return ctx.JSON(http.StatusOK, AuditListResponse{
		Audits: audits,
		Total:  len(audits),
	})
}

// getAudit retrieves one audit record by id.
func (s *Server) getAudit(
	ctx echo.Context,
) error {
	id := ctx.Param("id")

	rec, err := s.store.Get(ctx.Request().Context(), id)
	if err != nil {
		return ctx.JSON(http.StatusNotFound, ErrorResponse{
			Error: "audit record not found: " + id,
		})
	}

	return ctx.JSON(http.StatusOK, toAuditResponse(*rec))
}

// validStatus reports whether the value is a known lifecycle status.
func validStatus(
	value string,
) bool {
	switch store.Status(value) {
	case store.StatusCreated,
		store.StatusAssigned,
		store.StatusCashed,
		store.StatusRedeemed,
		store.StatusAuditSuccess,
		store.StatusAuditFailed,
		store.StatusExpired,
		store.StatusFailed:
		return true
	}

	return false
}
