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

package auditor

import (
	"sync"
	"sync/atomic"

	"github.com/leaseaudit-io/leaseaudit/internal/ledger"
)

// Cycle is one epoch's worth of audit work. A cycle starts at an epoch
// boundary, accepts assignments tagged with its epoch, and expires when
// the next boundary arrives.
type Cycle struct {
	epochID uint64
	expired atomic.Bool

	mu sync.Mutex
	// recordID is the record inserted at cycle start, in created status
	// until the first assignment arrives.
	recordID string
	// active flips when the first assignment claims the created record.
	active bool
	// drafts tracks in-flight audits by lease token for deduplication.
	drafts map[string]*draft

	wg sync.WaitGroup
}

func newCycle(
	epochID uint64,
	recordID string,
) *Cycle {
	return &Cycle{
		epochID:  epochID,
		recordID: recordID,
		drafts:   make(map[string]*draft),
	}
}

// EpochID returns the cycle's epoch identifier.
func (c *Cycle) EpochID() uint64 {
	return c.epochID
}

// Expired reports whether the cycle's epoch has rolled over. Pure atomic
// read, safe from any audit goroutine.
func (c *Cycle) Expired() bool {
	return c.expired.Load()
}

// Wait blocks until every in-flight audit of the cycle has finalized.
func (c *Cycle) Wait() {
	c.wg.Wait()
}

// draft is one in-flight audit attempt within a cycle.
type draft struct {
	assignment ledger.Assignment
	recordID   string
	finalize   sync.Once
}
