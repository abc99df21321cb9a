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
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// KV is the subset of nats.KeyValue the store needs.
type KV interface {
	Get(key string) (nats.KeyValueEntry, error)
	Put(key string, value []byte) (uint64, error)
	Keys(opts ...nats.WatchOpt) ([]string, error)
}

// ensure nats.KeyValue satisfies KV at compile time.
var _ KV = (nats.KeyValue)(nil)

// ensure KVStore implements Store at compile time.
var _ Store = (*KVStore)(nil)

// KVStore implements Store backed by a NATS KeyValue bucket. Writes are
// serialized through a mutex so concurrent drafts can update-by-predicate
// safely.
type KVStore struct {
	kv     KV
	logger *slog.Logger
	mu     sync.Mutex
}

// NewKVStore creates a new KVStore.
func NewKVStore(
	logger *slog.Logger,
	kv KV,
) *KVStore {
	return &KVStore{
		kv:     kv,
		logger: logger,
	}
}

// Insert persists a new record, assigning ID and CreatedAt.
func (s *KVStore) Insert(
	_ context.Context,
	rec Record,
) (Record, error) {
	rec.ID = uuid.New().String()
	rec.CreatedAt = time.Now().UTC()

	data, err := json.Marshal(rec)
	if err != nil {
		return Record{}, fmt.Errorf("marshal audit record: %w", err)
	}

	if _, err := s.kv.Put(rec.ID, data); err != nil {
		return Record{}, fmt.Errorf("put audit record: %w", err)
	}

	return rec, nil
}

// UpdateWhere applies patch to every record matching pred. Only the lease
// token and status are mutable; EpochID and CreatedAt are left untouched.
func (s *KVStore) UpdateWhere(
	_ context.Context,
	patch Patch,
	pred Predicate,
) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	keys, err := s.keys()
	if err != nil {
		return 0, err
	}

	updated := 0
	for _, key := range keys {
		rec, err := s.load(key)
		if err != nil {
			s.logger.Warn(
				"skipping unreadable audit record",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			continue
		}

		if !pred(*rec) {
			continue
		}

		if patch.LeaseToken != nil {
			rec.LeaseToken = *patch.LeaseToken
		}
		if patch.Status != nil {
			rec.Status = *patch.Status
		}

		data, err := json.Marshal(rec)
		if err != nil {
			return updated, fmt.Errorf("marshal audit record: %w", err)
		}

		if _, err := s.kv.Put(rec.ID, data); err != nil {
			return updated, fmt.Errorf("put audit record: %w", err)
		}

		updated++
	}

	return updated, nil
}

// SelectWhere returns all records matching pred.
func (s *KVStore) SelectWhere(
	_ context.Context,
	pred Predicate,
) ([]Record, error) {
	keys, err := s.keys()
	if err != nil {
		return nil, err
	}

	records := make([]Record, 0, len(keys))
	for _, key := range keys {
		rec, err := s.load(key)
		if err != nil {
			s.logger.Warn(
				"skipping unreadable audit record",
				slog.String("key", key),
				slog.String("error", err.Error()),
			)
			continue
		}

		if pred(*rec) {
			records = append(records, *rec)
		}
	}

	return records, nil
}

// Get retrieves a record by id.
func (s *KVStore) Get(
	_ context.Context,
	id string,
) (*Record, error) {
	return s.load(id)
}

// NonTerminal returns all records not yet in a terminal status.
func (s *KVStore) NonTerminal(
	ctx context.Context,
) ([]Record, error) {
	return s.SelectWhere(ctx, func(r Record) bool {
		return !r.Status.Terminal()
	})
}

// keys lists all record keys, treating an empty bucket as no keys.
func (s *KVStore) keys() ([]string, error) {
	keys, err := s.kv.Keys()
	if err != nil {
		if err == nats.ErrNoKeysFound {
			return nil, nil
		}
		return nil, fmt.Errorf("list audit record keys: %w", err)
	}

	return keys, nil
}

// load reads and unmarshals one record.
func (s *KVStore) load(
	key string,
) (*Record, error) {
	kve, err := s.kv.Get(key)
	if err != nil {
		return nil, fmt.Errorf("get audit record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(kve.Value(), &rec); err != nil {
		return nil, fmt.Errorf("unmarshal audit record: %w", err)
	}

	return &rec, nil
}
