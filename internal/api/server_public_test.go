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

package api_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/suite"

	"github.com/leaseaudit-io/leaseaudit/internal/api"
	"github.com/leaseaudit-io/leaseaudit/internal/auditor"
	"github.com/leaseaudit-io/leaseaudit/internal/authtoken"
	"github.com/leaseaudit-io/leaseaudit/internal/config"
	"github.com/leaseaudit-io/leaseaudit/internal/store"
)

const testSigningKey = "test-signing-key-for-api"

type ServerPublicTestSuite struct {
	suite.Suite

	server  *api.Server
	store   *store.MemoryStore
	token   string
	metrics *auditor.Metrics
}

func (s *ServerPublicTestSuite) SetupTest() {
	s.store = store.NewMemoryStore()

	tokens := authtoken.New(slog.Default())
	tokenString, err := tokens.Generate(
		testSigningKey,
		[]string{authtoken.RoleRead},
		"test-client",
		time.Hour,
	)
	s.Require().NoError(err)
	s.token = tokenString

	registry := prometheus.NewRegistry()
	s.metrics = auditor.NewMetrics(registry)

	s.server = api.New(
		config.Config{
			API: config.API{Enabled: true, Port: 0, SigningKey: testSigningKey},
		},
		slog.Default(),
		s.store,
		tokens,
		registry,
	)
}

// do performs a request against the server's handler, optionally with a
// bearer token.
func (s *ServerPublicTestSuite) do(
	method, target, token string,
) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()

	s.server.Echo.ServeHTTP(rec, req)

	return rec
}

func (s *ServerPublicTestSuite) insertRecord(
	epochID uint64,
	status store.Status,
) store.Record {
	rec, err := s.store.Insert(context.Background(), store.Record{
		EpochID: epochID,
		Status:  status,
	})
	s.Require().NoError(err)

	return rec
}

func (s *ServerPublicTestSuite) TestHealthUnauthenticated() {
	rec := s.do(http.MethodGet, "/healthz", "")

	s.Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "ok")
}

func (s *ServerPublicTestSuite) TestAuditsRequireToken() {
	rec := s.do(http.MethodGet, "/api/v1/audits", "")

	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *ServerPublicTestSuite) TestAuditsRejectInvalidToken() {
	rec := s.do(http.MethodGet, "/api/v1/audits", "not-a-token")

	s.Equal(http.StatusUnauthorized, rec.Code)
}

func (s *ServerPublicTestSuite) TestListAudits() {
	s.insertRecord(72, store.StatusAuditSuccess)
	s.insertRecord(144, store.StatusExpired)

	rec := s.do(http.MethodGet, "/api/v1/audits", s.token)

	s.Require().Equal(http.StatusOK, rec.Code)

	var resp api.AuditListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(2, resp.Total)
}

func (s *ServerPublicTestSuite) TestListAuditsStatusFilter() {
	s.insertRecord(72, store.StatusAuditSuccess)
	s.insertRecord(144, store.StatusExpired)

	rec := s.do(http.MethodGet, "/api/v1/audits?status=expired", s.token)

	s.Require().Equal(http.StatusOK, rec.Code)

	var resp api.AuditListResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Require().Equal(1, resp.Total)
	s.Equal("expired", resp.Audits[0].Status)
	s.Equal(uint64(144), resp.Audits[0].EpochID)
}

func (s *ServerPublicTestSuite) TestListAuditsUnknownStatus() {
	rec := s.do(http.MethodGet, "/api/v1/audits?status=bogus", s.token)

	s.Equal(http.StatusBadRequest, rec.Code)
}

func (s *ServerPublicTestSuite) TestGetAudit() {
	inserted := s.insertRecord(72, store.StatusCashed)

	rec := s.do(http.MethodGet, "/api/v1/audits/"+inserted.ID, s.token)

	s.Require().Equal(http.StatusOK, rec.Code)

	var resp api.AuditResponse
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &resp))
	s.Equal(inserted.ID, resp.ID)
	s.Equal("cashed", resp.Status)
}

func (s *ServerPublicTestSuite) TestGetAuditNotFound() {
	rec := s.do(http.MethodGet, "/api/v1/audits/unknown-id", s.token)

	s.Equal(http.StatusNotFound, rec.Code)
}

func (s *ServerPublicTestSuite) TestMetricsEndpoint() {
	s.metrics.Cycles.Inc()

	rec := s.do(http.MethodGet, "/metrics", "")

	s.Require().Equal(http.StatusOK, rec.Code)
	s.Contains(rec.Body.String(), "leaseaudit_cycles_total")
}

func TestServerPublicTestSuite(t *testing.T) {
	suite.Run(t, new(ServerPublicTestSuite))
}
