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

package authtoken_test

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/leaseaudit-io/leaseaudit/internal/authtoken"
)

type AuthTokenPublicTestSuite struct {
	suite.Suite

	token      *authtoken.Token
	signingKey string
}

func (s *AuthTokenPublicTestSuite) SetupTest() {
	s.token = authtoken.New(slog.Default())
	s.signingKey = "test-signing-key-for-jwt-operations"
}

func (s *AuthTokenPublicTestSuite) TestGenerate() {
	tokenString, err := s.token.Generate(
		s.signingKey,
		[]string{authtoken.RoleRead},
		"audits-dashboard",
		0,
	)

	s.NoError(err)
	s.NotEmpty(tokenString)
}

func (s *AuthTokenPublicTestSuite) TestGenerateUnknownRole() {
	_, err := s.token.Generate(s.signingKey, []string{"superuser"}, "subject", 0)

	s.ErrorContains(err, "unknown role")
}

func (s *AuthTokenPublicTestSuite) TestGenerateEmptySigningKey() {
	_, err := s.token.Generate("", []string{authtoken.RoleRead}, "subject", 0)

	s.ErrorContains(err, "signing key is required")
}

func (s *AuthTokenPublicTestSuite) TestValidate() {
	tests := []struct {
		name        string
		tokenFunc   func() string
		signingKey  string
		expectError bool
		errContains string
		validate    func(*authtoken.CustomClaims)
	}{
		{
			name: "valid token",
			tokenFunc: func() string {
				t, _ := s.token.Generate(
					s.signingKey,
					[]string{authtoken.RoleAdmin},
					"test-subject",
					time.Hour,
				)
				return t
			},
			signingKey: s.signingKey,
			validate: func(claims *authtoken.CustomClaims) {
				s.Equal([]string{"admin"}, claims.Roles)
				s.Equal("test-subject", claims.Subject)
				s.Equal("leaseaudit", claims.Issuer)
			},
		},
		{
			name: "wrong signing key",
			tokenFunc: func() string {
				t, _ := s.token.Generate(
					s.signingKey,
					[]string{authtoken.RoleRead},
					"test-subject",
					time.Hour,
				)
				return t
			},
			signingKey:  "wrong-key",
			expectError: true,
			errContains: "signature is invalid",
		},
		{
			name: "expired token",
			tokenFunc: func() string {
				t, _ := s.token.Generate(
					s.signingKey,
					[]string{authtoken.RoleRead},
					"test-subject",
					-time.Hour,
				)
				return t
			},
			signingKey:  s.signingKey,
			expectError: true,
			errContains: "expired",
		},
		{
			name: "malformed token",
			tokenFunc: func() string {
				return "not-a-valid-jwt-token"
			},
			signingKey:  s.signingKey,
			expectError: true,
			errContains: "invalid number of segments",
		},
		{
			name: "empty token",
			tokenFunc: func() string {
				return ""
			},
			signingKey:  s.signingKey,
			expectError: true,
			errContains: "invalid number of segments",
		},
	}

	for _, tt := range tests {
		s.Run(tt.name, func() {
			claims, err := s.token.Validate(tt.tokenFunc(), tt.signingKey)

			if tt.expectError {
				s.Require().Error(err)
				s.ErrorContains(err, tt.errContains)
				return
			}

			s.Require().NoError(err)
			if tt.validate != nil {
				tt.validate(claims)
			}
		})
	}
}

func (s *AuthTokenPublicTestSuite) TestValidRole() {
	s.True(authtoken.ValidRole("admin"))
	s.True(authtoken.ValidRole("read"))
	s.False(authtoken.ValidRole("write"))
	s.False(authtoken.ValidRole(""))
}

func TestAuthTokenPublicTestSuite(t *testing.T) {
	suite.Run(t, new(AuthTokenPublicTestSuite))
}
