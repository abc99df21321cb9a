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

package probe

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"time"

	probing "github.com/prometheus-community/pro-bing"
)

// DefaultCustomAudit returns the built-in pluggable audit logic: an ICMP
// reachability probe of the instance host followed by a TCP dial of the
// instance port.
func DefaultCustomAudit(
	logger *slog.Logger,
	timeout time.Duration,
) CustomAudit {
	if timeout == 0 {
		timeout = DefaultRequestTimeout
	}

	return func(ctx context.Context, address string, port int) bool {
		host := address
		if h, _, err := net.SplitHostPort(address); err == nil {
			host = h
		}

		pinger, err := probing.NewPinger(host)
		if err != nil {
			logger.Warn(
				"failed to create pinger",
				slog.String("host", host),
				slog.String("error", err.Error()),
			)
			return false
		}

		pinger.Count = 3
		pinger.Timeout = timeout
		pinger.SetPrivileged(false)

		if err := pinger.RunWithContext(ctx); err != nil {
			logger.Warn(
				"instance ping failed",
				slog.String("host", host),
				slog.String("error", err.Error()),
			)
			return false
		}

		if pinger.Statistics().PacketsRecv == 0 {
			logger.Warn("instance unreachable", slog.String("host", host))
			return false
		}

		conn, err := net.DialTimeout(
			"tcp",
			net.JoinHostPort(host, fmt.Sprintf("%d", port)),
			timeout,
		)
		if err != nil {
			logger.Warn(
				"instance port closed",
				slog.String("host", host),
				slog.Int("port", port),
				slog.String("error", err.Error()),
			)
			return false
		}
		_ = conn.Close()

		return true
	}
}
