package queue

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/tacedge/gateway/internal/audit"
	"github.com/tacedge/gateway/internal/clock"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingDeliverer always succeeds and records delivery order.
type recordingDeliverer struct {
	delivered []string
}

func (d *recordingDeliverer) Deliver(_ context.Context, e Entry) error {
	d.delivered = append(d.delivered, e.MessageID)
	return nil
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	return NewStore(context.Background(), NewMemoryBackend(), NewMemoryBackend(), testLogger())
}

// TestFlushAllPriorityPreemption reproduces spec §8 scenario 3: entries
// enqueued ROUTINE, IMMEDIATE, FLASH, PRIORITY, FLASH must flush in strict
// precedence order (FLASH, FLASH, IMMEDIATE, PRIORITY, ROUTINE).
func TestFlushAllPriorityPreemption(t *testing.T) {
	store := newTestStore(t)
	clk := clock.NewFake(time.Unix(1000, 0))
	ctx := context.Background()

	order := []struct {
		id string
		p  Precedence
	}{
		{"m1", Routine},
		{"m2", Immediate},
		{"m3", Flash},
		{"m4", Priority},
		{"m5", Flash},
	}
	for _, e := range order {
		entry := Entry{
			MessageID:        e.id,
			Recipient:        "node-1",
			EncryptedContent: "ciphertext",
			Precedence:       e.p,
			CreatedAt:        clk.Now(),
			ExpiresAt:        clk.Now().Add(time.Hour),
		}
		if _, err := store.Enqueue(ctx, entry); err != nil {
			t.Fatalf("enqueue %s: %v", e.id, err)
		}
	}

	deliverer := &recordingDeliverer{}
	worker := NewWorker(store, deliverer, clk, nil, testLogger(), 2*time.Second)

	flushed, failed := worker.FlushAll(ctx)
	if flushed != 5 || failed != 0 {
		t.Fatalf("FlushAll() = (%d, %d), want (5, 0)", flushed, failed)
	}

	want := []string{"m3", "m5", "m2", "m4", "m1"}
	if len(deliverer.delivered) != len(want) {
		t.Fatalf("delivered = %v, want %v", deliverer.delivered, want)
	}
	for i, id := range want {
		if deliverer.delivered[i] != id {
			t.Errorf("delivered[%d] = %s, want %s", i, deliverer.delivered[i], id)
		}
	}
}

// TestWorkerDropsExpiredEntry reproduces spec §8 scenario 4: a ROUTINE entry
// whose TTL has elapsed by the time the worker reaches it is dropped and
// counted expired, never delivered.
func TestWorkerDropsExpiredEntry(t *testing.T) {
	store := newTestStore(t)
	clk := clock.NewFake(time.Unix(1000, 0))
	ctx := context.Background()

	entry := Entry{
		MessageID:        "expiring",
		Recipient:        "node-1",
		EncryptedContent: "ciphertext",
		Precedence:       Routine,
		CreatedAt:        clk.Now(),
		ExpiresAt:        clk.Now().Add(60 * time.Second),
	}
	if _, err := store.Enqueue(ctx, entry); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	clk.Advance(61 * time.Second)

	deliverer := &recordingDeliverer{}
	auditor := audit.NewWriter(t.TempDir(), testLogger())
	worker := NewWorker(store, deliverer, clk, auditor, testLogger(), 2*time.Second)

	flushed, failed := worker.FlushAll(ctx)
	if flushed != 0 || failed != 1 {
		t.Fatalf("FlushAll() = (%d, %d), want (0, 1)", flushed, failed)
	}
	if len(deliverer.delivered) != 0 {
		t.Fatalf("expired entry should never be delivered, got %v", deliverer.delivered)
	}
	if worker.ExpiredCount24h() != 1 {
		t.Errorf("ExpiredCount24h() = %d, want 1", worker.ExpiredCount24h())
	}
}

// flakyDeliverer fails the first failFor[id] deliveries of each message id.
// TestDrainClassRequeuesOnFailure uses it to check that a failed delivery is
// requeued with an incremented retry count.
type flakyDeliverer struct {
	failFor map[string]int
}

func (d *flakyDeliverer) Deliver(_ context.Context, e Entry) error {
	if d.failFor[e.MessageID] > 0 {
		d.failFor[e.MessageID]--
		return errTestDeliveryFailed
	}
	return nil
}

type testError string

func (e testError) Error() string { return string(e) }

const errTestDeliveryFailed = testError("simulated delivery failure")

func TestDrainClassRequeuesOnFailure(t *testing.T) {
	store := newTestStore(t)
	clk := clock.NewFake(time.Unix(1000, 0))
	ctx := context.Background()

	entry := Entry{
		MessageID:        "flaky",
		Recipient:        "node-1",
		EncryptedContent: "ciphertext",
		Precedence:       Flash,
		CreatedAt:        clk.Now(),
		ExpiresAt:        clk.Now().Add(time.Hour),
	}
	if _, err := store.Enqueue(ctx, entry); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	deliverer := &flakyDeliverer{failFor: map[string]int{"flaky": 1}}
	worker := NewWorker(store, deliverer, clk, nil, testLogger(), 2*time.Second)

	worker.drainClass(ctx, Flash)
	depth, err := store.Depth(ctx, Flash)
	if err != nil || depth != 1 {
		t.Fatalf("after failed delivery, depth = %d, err = %v, want 1 (requeued)", depth, err)
	}

	e, ok, err := store.Dequeue(ctx, Flash)
	if err != nil || !ok {
		t.Fatalf("dequeue after requeue: ok=%v err=%v", ok, err)
	}
	if e.RetryCount != 1 {
		t.Errorf("RetryCount = %d, want 1", e.RetryCount)
	}
}
