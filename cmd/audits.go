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

package cmd

import (
	"github.com/nats-io/nats.go"
	"github.com/spf13/cobra"

	"github.com/leaseaudit-io/leaseaudit/internal/cli"
	"github.com/leaseaudit-io/leaseaudit/internal/store"
)

// auditsCmd represents the audits command.
var auditsCmd = &cobra.Command{
	Use:   "audits",
	Short: "Inspect audit records",
	Long: `Inspect audit records in the shared audit bucket.

These commands read the same KV bucket the auditor writes, so they
reflect cycles run by any auditor process connected to the ledger.
`,
}

// openAuditStore connects to the ledger endpoint and opens the audit
// record store. The caller must close the returned connection.
func openAuditStore() (*nats.Conn, store.Store) {
	nc, err := cli.ConnectLedger(appConfig.Ledger)
	if err != nil {
		cli.LogFatal(logger, "failed to connect to ledger", err, "url", appConfig.Ledger.URL)
	}

	bucket := appConfig.Ledger.Bucket
	if bucket == "" {
		bucket = cli.DefaultAuditBucket
	}

	kv, err := cli.EnsureBucket(nc, bucket)
	if err != nil {
		cli.CloseConn(nc)
		cli.LogFatal(logger, "failed to open audit bucket", err, "bucket", bucket)
	}

	return nc, store.NewKVStore(logger, kv)
}

func init() {
	rootCmd.AddCommand(auditsCmd)
}
