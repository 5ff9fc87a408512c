// Package publish implements the at-least-once publish-and-verify worker:
// consume one message per event from a durable queue, publish to the
// relay, verify by a follow-up query, update the event's PublishStatus,
// and ack or retry.
package publish

import "context"

// Message is a single queued publish request: the opaque event payload
// the client's POST /publish body carried.
type Message struct {
	Raw []byte
}

// Queue is the durable collaborator the worker consumes from. Retry
// timing and maximum-attempt policy belong to the queue implementation;
// the worker only reports ack or retry per message.
type Queue interface {
	Enqueue(ctx context.Context, raw []byte) error
	// Dequeue blocks for up to the implementation's own poll interval and
	// returns nil, nil if nothing was available before ctx is done.
	Dequeue(ctx context.Context) (*Message, error)
	Ack(ctx context.Context, msg *Message) error
	Retry(ctx context.Context, msg *Message) error
}
