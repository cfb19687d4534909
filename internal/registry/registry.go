// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

// Package registry is the one place the wire format is mentioned outside
// of internal/wire itself: it maps a commandType or subscriptionName
// string, crossing the worker boundary as an opaque string, to the typed
// correlator.Command / correlator.SubscriptionSpec that knows how to
// encode and decode it. Optional JSON-Schema validation of the
// caller-supplied params happens here too, before a command is ever
// handed to the Correlator.
package registry

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	json "github.com/segmentio/encoding/json"

	"github.com/vladsebesan/WebSocketWorker/internal/correlator"
)

// CommandFactory builds a correlator.Command from the caller-supplied
// params, already validated if a schema was registered.
type CommandFactory func(params json.RawMessage) (correlator.Command, error)

// SubscriptionFactory builds a correlator.SubscriptionSpec from the
// caller-supplied params.
type SubscriptionFactory func(params json.RawMessage) (correlator.SubscriptionSpec, error)

type commandEntry struct {
	build  CommandFactory
	schema *jsonschema.Resolved
}

type subscriptionEntry struct {
	build  SubscriptionFactory
	schema *jsonschema.Resolved
}

// Registry is the worker shell's {name -> vtable} lookup for both
// commands and subscriptions.
type Registry struct {
	commands      map[string]commandEntry
	subscriptions map[string]subscriptionEntry
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{
		commands:      make(map[string]commandEntry),
		subscriptions: make(map[string]subscriptionEntry),
	}
}

// RegisterCommand registers build under name. If schema is non-nil,
// params are validated against it before build is called.
func (r *Registry) RegisterCommand(name string, schema *jsonschema.Schema, build CommandFactory) error {
	entry := commandEntry{build: build}
	if schema != nil {
		resolved, err := schema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
		if err != nil {
			return fmt.Errorf("registry: resolve schema for command %q: %w", name, err)
		}
		entry.schema = resolved
	}
	r.commands[name] = entry
	return nil
}

// RegisterSubscription registers build under name, with the same
// optional-schema semantics as RegisterCommand.
func (r *Registry) RegisterSubscription(name string, schema *jsonschema.Schema, build SubscriptionFactory) error {
	entry := subscriptionEntry{build: build}
	if schema != nil {
		resolved, err := schema.Resolve(&jsonschema.ResolveOptions{ValidateDefaults: true})
		if err != nil {
			return fmt.Errorf("registry: resolve schema for subscription %q: %w", name, err)
		}
		entry.schema = resolved
	}
	r.subscriptions[name] = entry
	return nil
}

// Command reconstructs a typed command for commandType, validating params
// against its registered schema first.
func (r *Registry) Command(commandType string, params json.RawMessage) (correlator.Command, error) {
	entry, ok := r.commands[commandType]
	if !ok {
		return nil, fmt.Errorf("registry: unknown command type %q", commandType)
	}
	if entry.schema != nil {
		if err := validateRaw(entry.schema, params); err != nil {
			return nil, fmt.Errorf("registry: params for %q: %w", commandType, err)
		}
	}
	return entry.build(params)
}

// Subscription reconstructs a typed subscription spec for
// subscriptionName, validating params against its registered schema
// first.
func (r *Registry) Subscription(subscriptionName string, params json.RawMessage) (correlator.SubscriptionSpec, error) {
	entry, ok := r.subscriptions[subscriptionName]
	if !ok {
		return nil, fmt.Errorf("registry: unknown subscription %q", subscriptionName)
	}
	if entry.schema != nil {
		if err := validateRaw(entry.schema, params); err != nil {
			return nil, fmt.Errorf("registry: params for %q: %w", subscriptionName, err)
		}
	}
	return entry.build(params)
}

// validateRaw unmarshals params into a generic value and validates it
// against resolved.
func validateRaw(resolved *jsonschema.Resolved, params json.RawMessage) error {
	if len(params) == 0 {
		params = json.RawMessage("{}")
	}
	var v any
	if err := json.Unmarshal(params, &v); err != nil {
		return fmt.Errorf("unmarshaling: %w", err)
	}
	return resolved.Validate(v)
}
