package queue

import (
	"context"
	"testing"
	"time"
)

func newTestEntry(id string, p Precedence, created time.Time) Entry {
	return Entry{
		MessageID:        id,
		Recipient:        "node-1",
		EncryptedContent: "ciphertext",
		Precedence:       p,
		CreatedAt:        created,
		ExpiresAt:        created.Add(time.Hour),
	}
}

func TestMemoryBackendFIFOWithinClass(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	base := time.Unix(0, 0)

	for i, id := range []string{"a", "b", "c"} {
		if _, err := b.Enqueue(ctx, newTestEntry(id, Flash, base.Add(time.Duration(i)*time.Second))); err != nil {
			t.Fatalf("enqueue %s: %v", id, err)
		}
	}

	for _, want := range []string{"a", "b", "c"} {
		e, ok, err := b.Dequeue(ctx, Flash)
		if err != nil || !ok {
			t.Fatalf("dequeue: ok=%v err=%v", ok, err)
		}
		if e.MessageID != want {
			t.Fatalf("got %s, want %s", e.MessageID, want)
		}
	}
}

func TestMemoryBackendRejectsDuplicateMessageID(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	now := time.Now()

	if _, err := b.Enqueue(ctx, newTestEntry("dup", Routine, now)); err != nil {
		t.Fatalf("first enqueue: %v", err)
	}
	_, err := b.Enqueue(ctx, newTestEntry("dup", Routine, now))
	if err == nil {
		t.Fatal("expected ALREADY_QUEUED error on duplicate enqueue")
	}
}

func TestMemoryBackendForgetAllowsReEnqueue(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	now := time.Now()

	if _, err := b.Enqueue(ctx, newTestEntry("m1", Priority, now)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, _, err := b.Dequeue(ctx, Priority); err != nil {
		t.Fatalf("dequeue: %v", err)
	}
	if err := b.Forget(ctx, "m1"); err != nil {
		t.Fatalf("forget: %v", err)
	}
	if _, err := b.Enqueue(ctx, newTestEntry("m1", Priority, now)); err != nil {
		t.Fatalf("re-enqueue after forget should succeed: %v", err)
	}
}

func TestMemoryBackendRequeueBypassesDedup(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	now := time.Now()

	entry := newTestEntry("retry-me", Immediate, now)
	if _, err := b.Enqueue(ctx, entry); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, _, err := b.Dequeue(ctx, Immediate); err != nil {
		t.Fatalf("dequeue: %v", err)
	}

	entry.RetryCount++
	if _, err := b.Requeue(ctx, entry); err != nil {
		t.Fatalf("requeue should not hit dedup check: %v", err)
	}

	depth, err := b.Depth(ctx, Immediate)
	if err != nil || depth != 1 {
		t.Fatalf("depth after requeue = %d, err = %v, want 1", depth, err)
	}
}

func TestMemoryBackendDepthAndOldest(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBackend()
	base := time.Unix(1000, 0)

	if _, err := b.Enqueue(ctx, newTestEntry("m1", Routine, base)); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, err := b.Enqueue(ctx, newTestEntry("m2", Routine, base.Add(time.Minute))); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	depth, err := b.Depth(ctx, Routine)
	if err != nil || depth != 2 {
		t.Fatalf("depth = %d, err = %v, want 2", depth, err)
	}

	oldest, ok, err := b.OldestCreatedAt(ctx, Routine)
	if err != nil || !ok || !oldest.Equal(base) {
		t.Fatalf("oldest = %v, ok = %v, err = %v, want %v", oldest, ok, err, base)
	}
}

func TestMemoryBackendPingAlwaysHealthy(t *testing.T) {
	if err := NewMemoryBackend().Ping(context.Background()); err != nil {
		t.Fatalf("memory backend ping should never fail: %v", err)
	}
}
