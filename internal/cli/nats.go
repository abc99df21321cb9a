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

package cli

import (
	"errors"
	"fmt"

	"github.com/nats-io/nats.go"

	"github.com/leaseaudit-io/leaseaudit/internal/config"
)

// DefaultAuditBucket is the KV bucket for audit records when none is
// configured.
const DefaultAuditBucket = "AUDITS"

// ConnectLedger opens the NATS connection to the ledger service.
func ConnectLedger(
	cfg config.Ledger,
) (*nats.Conn, error) {
	opts := []nats.Option{
		nats.Name("leaseaudit"),
		nats.Timeout(config.ParseDuration(cfg.Timeout, nats.DefaultTimeout)),
	}
	if cfg.Credential != "" {
		opts = append(opts, nats.Token(cfg.Credential))
	}

	nc, err := nats.Connect(cfg.URL, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to ledger %s: %w", cfg.URL, err)
	}

	return nc, nil
}

// EnsureBucket returns the audit record KV bucket, creating it when it
// does not exist yet.
func EnsureBucket(
	nc *nats.Conn,
	bucket string,
) (nats.KeyValue, error) {
	if bucket == "" {
		bucket = DefaultAuditBucket
	}

	js, err := nc.JetStream()
	if err != nil {
		return nil, fmt.Errorf("open jetstream context: %w", err)
	}

	kv, err := js.KeyValue(bucket)
	if err == nil {
		return kv, nil
	}
	if !errors.Is(err, nats.ErrBucketNotFound) {
		return nil, fmt.Errorf("open bucket %s: %w", bucket, err)
	}

	kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
		Bucket:      bucket,
		Description: "audit records",
		Storage:     nats.FileStorage,
	})
	if err != nil {
		return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
	}

	return kv, nil
}

// CloseConn safely closes a NATS connection.
func CloseConn(
	nc *nats.Conn,
) {
	if nc != nil && !nc.IsClosed() {
		nc.Close()
	}
}
