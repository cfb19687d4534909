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

// Subscribe issues the subscribe request and routes every subsequent
// notification to onData; onError fires if the subscription is dropped by
// a session reset. The returned future resolves with the internalId that
// Unsubscribe later takes.
func (c *Client) Subscribe(spec correlator.SubscriptionSpec, timeout time.Duration, onData func(any), onError func(error)) *Future[string] {
	future := newFuture[string]()

	internalID := idgen.New()
	c.mu.Lock()
	c.subscriptions[internalID] = &subscriptionHandle{onData: onData, onError: onError}
	c.mu.Unlock()

	params, err := spec.EncodeSubscribeParams()
	if err != nil {
		c.dropSubscription(internalID)
		future.reject(err)
		return future
	}
	payload, err := json.Marshal(params)
	if err != nil {
		c.dropSubscription(internalID)
		future.reject(err)
		return future
	}

	requestID := idgen.New()
	c.registerPending(requestID, func(ev *worker.ReplyEvent) {
		if ev.IsError {
			c.dropSubscription(internalID)
			future.reject(replyError(ev))
			return
		}
		subscriptionID, _ := ev.Data.(string)
		c.mu.Lock()
		if sub, ok := c.subscriptions[internalID]; ok {
			sub.subscriptionID = subscriptionID
		}
		c.mu.Unlock()
		future.resolve(internalID)
	})

	c.w.Commands() <- worker.Command{Subscribe: &worker.SubscribeCommand{
		RequestID:        requestID,
		SubscriptionName: spec.SubscribeKind(),
		Params:           payload,
		InternalID:       internalID,
		Timeout:          timeout,
	}}
	return future
}

func (c *Client) dropSubscription(internalID string) {
	c.mu.Lock()
	delete(c.subscriptions, internalID)
	c.mu.Unlock()
}
