package queue

import (
	"context"
	"time"
)

// Backend is the storage contract the queue is built against. Two
// implementations exist behind it: Redis (primary) and an in-memory map
// (fallback used when Redis is unreachable), per spec §4.2.
type Backend interface {
	// Enqueue appends entry to the tail of its precedence's FIFO and returns
	// its 1-based position within that class. Returns apperr.AlreadyQueued
	// if entry.MessageID is already in flight anywhere in the queue.
	Enqueue(ctx context.Context, entry Entry) (position int, err error)

	// Dequeue removes and returns the oldest entry of precedence, or ok=false
	// if the class is empty.
	Dequeue(ctx context.Context, precedence Precedence) (entry Entry, ok bool, err error)

	// Requeue appends entry to the tail of its precedence's FIFO without the
	// dedup check Enqueue performs, since the message's in-flight marker is
	// already held from its original Enqueue call. Used by the drain worker
	// to retry a failed delivery.
	Requeue(ctx context.Context, entry Entry) (position int, err error)

	// Depth returns the current size of precedence's FIFO.
	Depth(ctx context.Context, precedence Precedence) (int, error)

	// OldestCreatedAt returns the creation time of the oldest entry in
	// precedence, or ok=false if empty.
	OldestCreatedAt(ctx context.Context, precedence Precedence) (t time.Time, ok bool, err error)

	// Ping reports whether the backend is currently reachable.
	Ping(ctx context.Context) error

	// Forget releases the in-flight marker for messageID, allowing it to be
	// enqueued again (called after a terminal delivery/expiry/failure).
	Forget(ctx context.Context, messageID string) error
}
