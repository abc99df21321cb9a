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

package telemetry_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/suite"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"github.com/leaseaudit-io/leaseaudit/internal/telemetry"
)

type PropagationPublicTestSuite struct {
	suite.Suite

	ctx context.Context
}

func (s *PropagationPublicTestSuite) SetupTest() {
	s.ctx = context.Background()
	otel.SetTextMapPropagator(propagation.TraceContext{})
}

// startSpan creates a recording span so a valid trace context exists.
func (s *PropagationPublicTestSuite) startSpan() (context.Context, trace.Span) {
	tp := sdktrace.NewTracerProvider()
	otel.SetTracerProvider(tp)

	return otel.Tracer("test").Start(s.ctx, "test-span")
}

func (s *PropagationPublicTestSuite) TestInjectTraceContextToHeader() {
	ctx, span := s.startSpan()
	defer span.End()

	header := make(http.Header)
	telemetry.InjectTraceContextToHeader(ctx, header)

	s.NotEmpty(header.Get("Traceparent"))
}

func (s *PropagationPublicTestSuite) TestInjectWithoutSpanIsNoop() {
	header := make(http.Header)
	telemetry.InjectTraceContextToHeader(s.ctx, header)

	s.Empty(header.Get("Traceparent"))
}

func (s *PropagationPublicTestSuite) TestExtractTraceContextFromHeader() {
	ctx, span := s.startSpan()
	defer span.End()

	header := make(http.Header)
	telemetry.InjectTraceContextToHeader(ctx, header)

	extracted := telemetry.ExtractTraceContextFromHeader(context.Background(), header)
	sc := trace.SpanContextFromContext(extracted)

	s.True(sc.IsValid())
	s.Equal(span.SpanContext().TraceID(), sc.TraceID())
}

func (s *PropagationPublicTestSuite) TestExtractNormalizesHeaderCasing() {
	ctx, span := s.startSpan()
	defer span.End()

	canonical := make(http.Header)
	telemetry.InjectTraceContextToHeader(ctx, canonical)

	// Deliver with lowercase keys, as some transports do.
	lowered := http.Header{}
	lowered["traceparent"] = canonical["Traceparent"]

	extracted := telemetry.ExtractTraceContextFromHeader(context.Background(), lowered)
	sc := trace.SpanContextFromContext(extracted)

	s.True(sc.IsValid())
	s.Equal(span.SpanContext().TraceID(), sc.TraceID())
}

func TestPropagationPublicTestSuite(t *testing.T) {
	suite.Run(t, new(PropagationPublicTestSuite))
}
