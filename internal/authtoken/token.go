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

// Package authtoken issues and validates bearer tokens for the status API.
package authtoken

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// tokenIssuer identifies tokens minted by this service.
const tokenIssuer = "leaseaudit"

// DefaultExpiry is the token lifetime when none is requested.
const DefaultExpiry = 24 * time.Hour

// CustomClaims are the JWT claims carried by API tokens.
type CustomClaims struct {
	Roles []string `json:"roles" validate:"required,min=1,dive,oneof=admin read"`
	jwt.RegisteredClaims
}

// Token issues and validates API tokens.
type Token struct {
	logger *slog.Logger
}

// New creates a new Token.
func New(
	logger *slog.Logger,
) *Token {
	return &Token{logger: logger}
}

// Generate mints a signed token for subject with the given roles.
func (t *Token) Generate(
	signingKey string,
	roles []string,
	subject string,
	expiry time.Duration,
) (string, error) {
	if signingKey == "" {
		return "", fmt.Errorf("signing key is required")
	}

	for _, role := range roles {
		if !ValidRole(role) {
			return "", fmt.Errorf("unknown role: %s", role)
		}
	}

	if expiry == 0 {
		expiry = DefaultExpiry
	}

	now := time.Now()
	claims := CustomClaims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    tokenIssuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(expiry)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signed, err := token.SignedString([]byte(signingKey))
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}

	t.logger.Info(
		"token generated",
		slog.String("subject", subject),
		slog.Any("roles", roles),
		slog.Duration("expiry", expiry),
	)

	return signed, nil
}
