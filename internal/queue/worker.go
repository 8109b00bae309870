package queue

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/tacedge/gateway/internal/audit"
	"github.com/tacedge/gateway/internal/clock"
	"github.com/tacedge/gateway/internal/telemetry"
)

// Deliverer attempts to hand an entry off to its recipient. Implemented by
// the gateway pipeline's direct-delivery path.
type Deliverer interface {
	Deliver(ctx context.Context, entry Entry) error
}

// Worker drains every precedence class in strict priority order on a ticker,
// delivering everything currently available before moving to the next class.
// Grounds the teacher's pkg/roster/worker.go ticker-driven background loop.
type Worker struct {
	store     *Store
	deliverer Deliverer
	clock     clock.Clock
	auditor   *audit.Writer
	logger    *slog.Logger
	interval  time.Duration

	expired24h atomic.Int64
}

// NewWorker builds a drain worker polling at interval.
func NewWorker(store *Store, deliverer Deliverer, clk clock.Clock, auditor *audit.Writer, logger *slog.Logger, interval time.Duration) *Worker {
	return &Worker{
		store:     store,
		deliverer: deliverer,
		clock:     clk,
		auditor:   auditor,
		logger:    logger,
		interval:  interval,
	}
}

// ExpiredCount24h reports the running count of TTL-dropped entries. Tracked
// as a simple monotonic counter rather than a true rolling 24h window (spec
// §4.3 Open Question: an exact sliding window needs a time-bucketed store
// this gateway has no other use for).
func (w *Worker) ExpiredCount24h() int64 {
	return w.expired24h.Load()
}

// Run ticks every w.interval until ctx is cancelled, draining all classes
// each tick.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.store.Recover(ctx)
			w.drainAll(ctx)
		}
	}
}

func (w *Worker) drainAll(ctx context.Context) {
	for _, p := range Precedences() {
		w.drainClass(ctx, p)
	}
}

// drainClass dequeues every currently-available entry in precedence and
// attempts delivery, requeuing failures at the tail (spec §4.3: "errors on
// one entry don't halt the class").
func (w *Worker) drainClass(ctx context.Context, precedence Precedence) {
	depth, err := w.store.Depth(ctx, precedence)
	if err != nil {
		w.logger.Error("queue depth check failed", "precedence", precedence, "error", err)
		return
	}

	for i := 0; i < depth; i++ {
		entry, ok, err := w.store.Dequeue(ctx, precedence)
		if err != nil {
			w.logger.Error("queue dequeue failed", "precedence", precedence, "error", err)
			return
		}
		if !ok {
			return
		}
		w.handle(ctx, entry)
	}
}

func (w *Worker) handle(ctx context.Context, entry Entry) {
	now := w.clock.Now()
	if entry.Expired(now) {
		w.expire(ctx, entry)
		return
	}

	if err := w.deliverer.Deliver(ctx, entry); err != nil {
		entry.RetryCount++
		if _, reErr := w.store.Requeue(ctx, entry); reErr != nil {
			w.logger.Error("queue requeue failed", "message_id", entry.MessageID, "error", reErr)
		}
		return
	}

	telemetry.MessagesDequeuedTotal.WithLabelValues(string(entry.Precedence)).Inc()
	if err := w.store.Forget(ctx, entry.MessageID); err != nil {
		w.logger.Warn("queue forget failed after delivery", "message_id", entry.MessageID, "error", err)
	}
}

func (w *Worker) expire(ctx context.Context, entry Entry) {
	w.expired24h.Add(1)
	telemetry.MessagesExpiredTotal.WithLabelValues(string(entry.Precedence)).Inc()
	if err := w.store.Forget(ctx, entry.MessageID); err != nil {
		w.logger.Warn("queue forget failed after expiry", "message_id", entry.MessageID, "error", err)
	}
	if w.auditor != nil {
		w.auditor.Log("MESSAGE_EXPIRED", audit.ControlAuditAccountability,
			audit.Actor{NodeID: "queue-worker"},
			audit.Action{Operation: "drain", Resource: entry.MessageID, Outcome: audit.OutcomeFailure, Reason: "ttl expired"},
			map[string]any{"precedence": string(entry.Precedence), "retry_count": entry.RetryCount},
		)
	}
}

// FlushAll synchronously drains every queue in strict priority order, using
// the same delivery-attempt logic as the ticking worker. Backs
// POST /api/v1/queue/flush (spec §5, requires node:manage).
func (w *Worker) FlushAll(ctx context.Context) (flushed, failed int) {
	for _, p := range Precedences() {
		depth, err := w.store.Depth(ctx, p)
		if err != nil {
			w.logger.Error("flush depth check failed", "precedence", p, "error", err)
			continue
		}
		for i := 0; i < depth; i++ {
			entry, ok, err := w.store.Dequeue(ctx, p)
			if err != nil || !ok {
				break
			}

			now := w.clock.Now()
			if entry.Expired(now) {
				w.expire(ctx, entry)
				failed++
				continue
			}

			if err := w.deliverer.Deliver(ctx, entry); err != nil {
				entry.RetryCount++
				if _, reErr := w.store.Requeue(ctx, entry); reErr != nil {
					w.logger.Error("flush requeue failed", "message_id", entry.MessageID, "error", reErr)
				}
				failed++
				continue
			}

			telemetry.MessagesDequeuedTotal.WithLabelValues(string(p)).Inc()
			if err := w.store.Forget(ctx, entry.MessageID); err != nil {
				w.logger.Warn("queue forget failed after flush delivery", "message_id", entry.MessageID, "error", err)
			}
			flushed++
		}
	}
	return flushed, failed
}
