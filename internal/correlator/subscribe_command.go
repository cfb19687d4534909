// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package correlator

// subscribeCommand and unsubscribeCommand adapt a SubscriptionSpec to the
// Command interface so Subscribe/Unsubscribe can reuse SendRequest's
// pending-map, timeout, and decode-failure machinery rather than
// duplicating it.

type subscribeCommand struct {
	spec SubscriptionSpec
}

func (c subscribeCommand) Kind() string { return c.spec.SubscribeKind() }

func (c subscribeCommand) EncodeParams() (any, error) {
	return c.spec.EncodeSubscribeParams()
}

// DecodeResult passes the raw reply payload through unexamined; the
// caller (Subscribe) hands it to spec.DecodeSubscribeResult itself, since
// that decoder also needs to report the server-assigned subscriptionId,
// not just a success/failure result.
func (c subscribeCommand) DecodeResult(payload []byte) (any, error) {
	return []byte(payload), nil
}

type unsubscribeCommand struct {
	spec           SubscriptionSpec
	subscriptionID string
}

func (c unsubscribeCommand) Kind() string { return c.spec.UnsubscribeKind() }

func (c unsubscribeCommand) EncodeParams() (any, error) {
	return c.spec.EncodeUnsubscribeParams(c.subscriptionID)
}

func (c unsubscribeCommand) DecodeResult(payload []byte) (any, error) {
	return struct{}{}, nil
}
