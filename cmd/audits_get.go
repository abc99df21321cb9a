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
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/leaseaudit-io/leaseaudit/internal/cli"
)

// auditsGetCmd represents the auditsGet command.
var auditsGetCmd = &cobra.Command{
	Use:   "get ID",
	Short: "Get a single audit record",
	Long: `Get a single audit record by id.
`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		id := args[0]

		nc, auditStore := openAuditStore()
		defer cli.CloseConn(nc)

		rec, err := auditStore.Get(ctx, id)
		if err != nil {
			cli.LogFatal(logger, "failed to get audit record", err, "id", id)
		}

		if jsonOutput {
			data, err := json.MarshalIndent(rec, "", "  ")
			if err != nil {
				cli.LogFatal(logger, "failed to marshal audit record", err)
			}
			fmt.Println(string(data))
			return
		}

		fmt.Println()
		cli.PrintKV("ID", rec.ID, "Status", string(rec.Status))
		cli.PrintKV("Epoch", strconv.FormatUint(rec.EpochID, 10), "Token", rec.LeaseToken)
		cli.PrintKV("Created", rec.CreatedAt.Format(time.RFC3339),
			"Age", cli.FormatAge(time.Since(rec.CreatedAt)),
		)
	},
}

func init() {
	auditsCmd.AddCommand(auditsGetCmd)
}
