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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the audit lifecycle counters.
type Metrics struct {
	// Cycles counts started audit cycles.
	Cycles prometheus.Counter
	// Audits counts finalized audits by terminal status.
	Audits *prometheus.CounterVec
}

// NewMetrics creates and registers the audit metrics against reg.
func NewMetrics(
	reg prometheus.Registerer,
) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		Cycles: factory.NewCounter(prometheus.CounterOpts{
			Name: "leaseaudit_cycles_total",
			Help: "Total audit cycles started.",
		}),
		Audits: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "leaseaudit_audits_total",
			Help: "Total finalized audits by terminal status.",
		}, []string{"status"}),
	}
}
