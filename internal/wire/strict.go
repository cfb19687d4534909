// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package wire

import (
	"bytes"
	"fmt"
	"reflect"
	"strings"

	json "github.com/segmentio/encoding/json"
)

// StrictUnmarshal unmarshals JSON data into v with strict validation:
//   - rejects duplicate keys that differ only in case (e.g. "sessionId" and
//     "SessionID")
//   - validates that JSON field names match the destination struct's json
//     tags exactly, case-sensitively
//   - rejects fields not declared on the destination struct
//
// The envelope fields (sessionId, requestId, variant, ...) are what the
// Session uses to decide whether a frame belongs to the current session, so
// a server (or an attacker positioned as one) that smuggles a differently-
// cased duplicate key past Go's case-insensitive JSON unmarshalling could
// otherwise desynchronize that check from what a naive decoder sees.
func StrictUnmarshal(data []byte, v any) error {
	if err := rejectCaseVariantDuplicateKeys(data); err != nil {
		return fmt.Errorf("strict unmarshal: %w", err)
	}
	if err := rejectFieldCaseMismatch(data, v); err != nil {
		return fmt.Errorf("strict unmarshal: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("strict unmarshal: %w", err)
	}
	return nil
}

func rejectCaseVariantDuplicateKeys(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Not an object; no duplicate keys are possible at this level.
		return nil
	}

	seen := make(map[string]string, len(raw)) // lowercase -> original casing
	for key := range raw {
		lower := strings.ToLower(key)
		if original, ok := seen[lower]; ok && original != key {
			return fmt.Errorf("duplicate key with different case: %q and %q", original, key)
		}
		seen[lower] = key
	}

	for key, val := range raw {
		if err := rejectCaseVariantDuplicateKeys(val); err != nil {
			return fmt.Errorf("in field %q: %w", key, err)
		}
	}
	return nil
}

func rejectFieldCaseMismatch(data []byte, v any) error {
	expected := expectedJSONFields(v)
	if len(expected) == 0 {
		return nil
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil
	}

	for key := range raw {
		if expected[key] {
			continue
		}
		lower := strings.ToLower(key)
		for name := range expected {
			if strings.ToLower(name) == lower {
				return fmt.Errorf("field name case mismatch: got %q, expected %q", key, name)
			}
		}
		// No case-insensitive match either; DisallowUnknownFields catches it.
	}
	return nil
}

// expectedJSONFields returns the set of JSON field names declared on v's
// struct tags.
func expectedJSONFields(v any) map[string]bool {
	fields := make(map[string]bool)

	t := reflect.TypeOf(v)
	if t == nil {
		return fields
	}
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return fields
	}

	for i := 0; i < t.NumField(); i++ {
		tag := t.Field(i).Tag.Get("json")
		if tag == "" || tag == "-" {
			continue
		}
		if name, _, _ := strings.Cut(tag, ","); name != "" {
			fields[name] = true
		}
	}
	return fields
}
