// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package wsrpcdebug provides a mechanism to enable verbose development
// tracing via the WSRPCDEBUG environment variable, without adding a config
// field that every caller has to thread through.
//
// The value of WSRPCDEBUG is a comma-separated list of key=value pairs, for
// example:
//
//	WSRPCDEBUG=frames=1,keepalive=1
package wsrpcdebug

import (
	"fmt"
	"os"
	"strings"
)

const envKey = "WSRPCDEBUG"

var params map[string]string

func init() {
	var err error
	params, err = parse(os.Getenv(envKey))
	if err != nil {
		panic(err)
	}
}

// Value returns the value of the named debug parameter, or "" if unset.
func Value(key string) string {
	return params[key]
}

// Enabled reports whether the named debug parameter is set to a truthy
// value ("1", "true", "yes").
func Enabled(key string) bool {
	switch Value(key) {
	case "1", "true", "yes":
		return true
	default:
		return false
	}
}

func parse(env string) (map[string]string, error) {
	if env == "" {
		return nil, nil
	}
	out := make(map[string]string)
	for _, part := range strings.Split(env, ",") {
		k, v, ok := strings.Cut(part, "=")
		if !ok {
			return nil, fmt.Errorf("WSRPCDEBUG: invalid format: %q", part)
		}
		out[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return out, nil
}
