// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// signClientAssertion signs a short-lived HS256 client-identity assertion
// carried in the SessionCreate payload, so a server can verify which
// client opened the session. Server-side authorization itself is out of
// scope here.
func signClientAssertion(clientID string, signingKey []byte) (string, error) {
	now := time.Now()
	claims := jwt.RegisteredClaims{
		Subject:   clientID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(signingKey)
}
