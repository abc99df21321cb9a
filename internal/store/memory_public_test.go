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

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/suite"

	"github.com/leaseaudit-io/leaseaudit/internal/store"
)

type MemoryStorePublicTestSuite struct {
	suite.Suite

	store *store.MemoryStore
	ctx   context.Context
}

func (s *MemoryStorePublicTestSuite) SetupTest() {
	s.store = store.NewMemoryStore()
	s.ctx = context.Background()
}

func (s *MemoryStorePublicTestSuite) TestRoundTrip() {
	rec, err := s.store.Insert(s.ctx, store.Record{
		EpochID: 72,
		Status:  store.StatusCreated,
	})
	s.Require().NoError(err)
	s.NotEmpty(rec.ID)

	open, err := s.store.NonTerminal(s.ctx)
	s.Require().NoError(err)
	s.Len(open, 1)

	n, err := s.store.UpdateWhere(
		s.ctx,
		store.StatusPatch(store.StatusExpired),
		store.OpenByID(rec.ID),
	)
	s.Require().NoError(err)
	s.Equal(1, n)

	open, err = s.store.NonTerminal(s.ctx)
	s.Require().NoError(err)
	s.Empty(open)

	got, err := s.store.Get(s.ctx, rec.ID)
	s.Require().NoError(err)
	s.Equal(store.StatusExpired, got.Status)
}

func (s *MemoryStorePublicTestSuite) TestOpenByIDGuardsTerminal() {
	rec, err := s.store.Insert(s.ctx, store.Record{
		EpochID: 72,
		Status:  store.StatusAuditSuccess,
	})
	s.Require().NoError(err)

	// A terminal record must not be overwritten through OpenByID.
	n, err := s.store.UpdateWhere(
		s.ctx,
		store.StatusPatch(store.StatusExpired),
		store.OpenByID(rec.ID),
	)
	s.Require().NoError(err)
	s.Zero(n)
}

func (s *MemoryStorePublicTestSuite) TestGetUnknownID() {
	_, err := s.store.Get(s.ctx, "missing")

	s.Error(err)
}

func TestMemoryStorePublicTestSuite(t *testing.T) {
	suite.Run(t, new(MemoryStorePublicTestSuite))
}
