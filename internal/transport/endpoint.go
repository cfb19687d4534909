// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package transport

import (
	"fmt"
	"net"
	"net/netip"
	"strings"

	"github.com/yosida95/uritemplate/v3"
)

// endpointTemplate renders the ws(s)://HOST:PORT/ws/ shape as a URI
// template, rather than a raw Sprintf, so the path and query components
// stay easy to extend without touching call sites.
var endpointTemplate = uritemplate.MustNew("{scheme}://{host}:{port}/ws/")

// Endpoint describes the WebSocket URL to connect to. Scheme defaults
// based on whether Host is a loopback address: local development talks
// plaintext ws://, anything else defaults to wss://.
type Endpoint struct {
	Scheme string // "ws" or "wss"; empty selects a default
	Host   string
	Port   int
}

// URL expands the endpoint template into a dialable URL string.
func (e Endpoint) URL() (string, error) {
	if e.Host == "" {
		return "", fmt.Errorf("transport: endpoint host must not be empty")
	}
	scheme := e.Scheme
	if scheme == "" {
		scheme = defaultScheme(e.Host)
	}
	values := uritemplate.Values{}
	values.Set("scheme", uritemplate.String(scheme))
	values.Set("host", uritemplate.String(e.Host))
	values.Set("port", uritemplate.String(fmt.Sprintf("%d", e.Port)))
	return endpointTemplate.Expand(values)
}

// defaultScheme returns "ws" for loopback hosts and "wss" otherwise,
// following the common convention that only local development talks
// plaintext WebSocket.
func defaultScheme(host string) string {
	if isLoopback(host) {
		return "ws"
	}
	return "wss"
}

// isLoopback reports whether host (a bare hostname, or host:port) refers to
// the local machine.
func isLoopback(host string) bool {
	h, _, err := net.SplitHostPort(host)
	if err != nil {
		h = strings.Trim(host, "[]")
	}
	if h == "localhost" {
		return true
	}
	ip, err := netip.ParseAddr(h)
	if err != nil {
		return false
	}
	return ip.IsLoopback()
}
