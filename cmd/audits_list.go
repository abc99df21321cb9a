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
	"encoding/json"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leaseaudit-io/leaseaudit/internal/cli"
	"github.com/leaseaudit-io/leaseaudit/internal/store"
)

var auditsListStatus string

// auditsListCmd represents the auditsList command.
var auditsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List audit records",
	Long: `List audit records, optionally filtered by lifecycle status.

Displays one row per audit attempt with its epoch, lease token, status,
and age. Records are sorted newest first.
`,
	Run: func(cmd *cobra.Command, _ []string) {
		ctx := cmd.Context()

		nc, auditStore := openAuditStore()
		defer cli.CloseConn(nc)

		records, err := auditStore.SelectWhere(ctx, func(r store.Record) bool {
			return auditsListStatus == "" || string(r.Status) == auditsListStatus
		})
		if err != nil {
			cli.LogFatal(logger, "failed to list audit records", err)
		}

		sort.Slice(records, func(i, j int) bool {
			return records[i].CreatedAt.After(records[j].CreatedAt)
		})

		if jsonOutput {
			data, err := json.MarshalIndent(records, "", "  ")
			if err != nil {
				cli.LogFatal(logger, "failed to marshal audit records", err)
			}
			fmt.Println(string(data))
			return
		}

		fmt.Println()
		cli.PrintKV("Total", strconv.Itoa(len(records)))

		if len(records) == 0 {
			fmt.Println("  No audit records found.")
			return
		}

		rows := make([][]string, 0, len(records))
		for _, rec := range records {
			rows = append(rows, []string{
				rec.ID,
				strconv.FormatUint(rec.EpochID, 10),
				rec.LeaseToken,
				string(rec.Status),
				cli.FormatAge(time.Since(rec.CreatedAt)),
			})
		}

		cli.PrintCompactTable([]cli.Section{
			{
				Title:   "Audit Records",
				Headers: []string{"ID", "EPOCH", "TOKEN", "STATUS", "AGE"},
				Rows:    rows,
			},
		})
	},
}

func init() {
	auditsCmd.AddCommand(auditsListCmd)

	auditsListCmd.PersistentFlags().
		StringVarP(&auditsListStatus, "status", "s", "", "Filter by lifecycle status (e.g. audit_success)")
}
