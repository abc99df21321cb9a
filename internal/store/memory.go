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

package store

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ensure MemoryStore implements Store at compile time.
var _ Store = (*MemoryStore)(nil)

// MemoryStore implements Store in memory. It backs tests and local
// development runs without a KV bucket.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	order   []string
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		records: make(map[string]Record),
	}
}

// Insert persists a new record, assigning ID and CreatedAt.
func (s *MemoryStore) Insert(
	_ context.Context,
	rec Record,
) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now().UTC()

	s.records[rec.ID] = rec
	s.order = append(s.order, rec.ID)

	return rec, nil
}

// UpdateWhere applies patch to every record matching pred.
func (s *MemoryStore) UpdateWhere(
	_ context.Context,
	patch Patch,
	pred Predicate,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	updated := 0
	for _, id := range s.order {
		rec := s.records[id]
		if !pred(rec) {
			continue
		}

		if patch.LeaseToken != nil {
			rec.LeaseToken = *patch.LeaseToken
		}
		if patch.Status != nil {
			rec.Status = *patch.Status
		}

		s.records[id] = rec
		updated++
	}

	return updated, nil
}

// SelectWhere returns all records matching pred in insertion order.
func (s *MemoryStore) SelectWhere(
	_ context.Context,
	pred Predicate,
) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	records := make([]Record, 0, len(s.order))
	for _, id := range s.order {
		if rec := s.records[id]; pred(rec) {
			records = append(records, rec)
		}
	}

	return records, nil
}

// Get retrieves a record by id.
func (s *MemoryStore) Get(
	_ context.Context,
	id string,
) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[id]
	if !ok {
		return nil, fmt.Errorf("audit record not found: %s", id)
	}

	return &rec, nil
}

// NonTerminal returns all records not yet in a terminal status.
func (s *MemoryStore) NonTerminal(
	ctx context.Context,
) ([]Record, error) {
	return s.SelectWhere(ctx, func(r Record) bool {
		return !r.Status.Terminal()
	})
}
