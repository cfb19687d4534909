// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package idgen generates the opaque identifiers this module hands out
// locally: client session IDs, request IDs, and internal subscription
// handles. None of these are cryptographic secrets; crypto/rand bytes
// encoded as unpadded base32 give a uniform, URL-safe output.
package idgen

import (
	"crypto/rand"
	"encoding/base32"
)

// New returns a fresh opaque identifier: 128 random bits as 26 base32
// characters.
func New() string {
	b := make([]byte, 16)
	rand.Read(b)
	return base32.StdEncoding.WithPadding(base32.NoPadding).EncodeToString(b)
}
