// Copyright 2025 The Go MCP SDK Authors. All rights reserved.
// Use of this source code is governed by an MIT-style
// license that can be found in the LICENSE file.

package command

import (
	json "github.com/segmentio/encoding/json"
)

// Feed is a generic subscription spec for a server-maintained stream of
// integer-valued ticks, standing in for any real subscription that would
// be registered the same way.
type Feed struct {
	// Topic selects which server-side feed to subscribe to.
	Topic string
}

// FeedSubscribeParams is Feed's subscribe-request payload.
type FeedSubscribeParams struct {
	Topic string `json:"topic"`
}

// FeedSubscribeResult carries the server-assigned subscriptionId.
type FeedSubscribeResult struct {
	SubscriptionID string `json:"subscriptionId"`
}

// FeedUnsubscribeParams is Feed's unsubscribe-request payload.
type FeedUnsubscribeParams struct {
	SubscriptionID string `json:"subscriptionId"`
}

// FeedTick is a single decoded notification payload.
type FeedTick struct {
	Value int `json:"value"`
}

func (Feed) SubscribeKind() string   { return "FeedSubscribe" }
func (Feed) UnsubscribeKind() string { return "FeedUnsubscribe" }

func (f Feed) EncodeSubscribeParams() (any, error) {
	return &FeedSubscribeParams{Topic: f.Topic}, nil
}

func (Feed) EncodeUnsubscribeParams(subscriptionID string) (any, error) {
	return &FeedUnsubscribeParams{SubscriptionID: subscriptionID}, nil
}

func (Feed) DecodeSubscribeResult(payload []byte) (string, error) {
	var r FeedSubscribeResult
	if err := json.Unmarshal(payload, &r); err != nil {
		return "", err
	}
	return r.SubscriptionID, nil
}

func (Feed) DecodeNotification(payload []byte) (any, error) {
	var tick FeedTick
	if err := json.Unmarshal(payload, &tick); err != nil {
		return nil, err
	}
	return tick, nil
}
