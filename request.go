// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package wsrpc

import (
	"time"

	json "github.com/segmentio/encoding/json"

	"github.com/vladsebesan/WebSocketWorker/internal/correlator"
	"github.com/vladsebesan/WebSocketWorker/internal/idgen"
	"github.com/vladsebesan/WebSocketWorker/internal/worker"
)

// Request serializes cmd's kind and params across the worker boundary and
// returns a future resolved with the reply, decoded as T. Go methods
// cannot carry their own type parameters, so this is a package-level
// function rather than a method on Client.
func Request[T any](c *Client, cmd correlator.Command, timeout time.Duration) *Future[T] {
	future := newFuture[T]()

	params, err := cmd.EncodeParams()
	if err != nil {
		future.reject(err)
		return future
	}
	payload, err := json.Marshal(params)
	if err != nil {
		future.reject(err)
		return future
	}

	requestID := idgen.New()
	c.registerPending(requestID, func(ev *worker.ReplyEvent) {
		if ev.IsError {
			future.reject(replyError(ev))
			return
		}
		v, ok := ev.Data.(T)
		if !ok {
			future.reject(replyError(&worker.ReplyEvent{IsError: true, ErrorMessage: "unexpected reply shape", ErrorCode: "DecodeFailure"}))
			return
		}
		future.resolve(v)
	})

	c.w.Commands() <- worker.Command{SendRequest: &worker.SendRequestCommand{
		RequestID:   requestID,
		CommandType: cmd.Kind(),
		Params:      payload,
		Timeout:     timeout,
	}}
	return future
}
