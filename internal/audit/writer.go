package audit

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/tacedge/gateway/internal/telemetry"
)

const (
	bufferSize    = 256
	flushInterval = 2 * time.Second
)

// Writer is the audit log: an in-memory index accepted synchronously, backed
// by an async, buffered JSONL writer. Disk append failures are logged and
// counted but never surfaced to Log's caller — the in-memory accept always
// succeeds.
type Writer struct {
	store      *store
	storageDir string
	logger     *slog.Logger

	pending chan Event
	wg      sync.WaitGroup
}

// NewWriter creates a Writer rooted at storageDir. Call Start to begin the
// background disk-flush loop.
func NewWriter(storageDir string, logger *slog.Logger) *Writer {
	return &Writer{
		store:      newStore(),
		storageDir: storageDir,
		logger:     logger,
		pending:    make(chan Event, bufferSize),
	}
}

// Start begins the background goroutine that appends events to the daily
// JSONL file, and returns at once. The goroutine exits when ctx is cancelled,
// after draining the events already buffered.
func (w *Writer) Start(ctx context.Context) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.run(ctx)
	}()
}

// Close waits for the background loop to drain and exit.
func (w *Writer) Close() {
	close(w.pending)
	w.wg.Wait()
}

// Log accepts event into the in-memory index immediately and enqueues it for
// async disk persistence. The returned Event carries its assigned ID, hash,
// and timestamp.
func (w *Writer) Log(eventType string, family ControlFamily, actor Actor, action Action, ctx map[string]any) Event {
	e := NewEvent(eventType, family, actor, action, ctx)
	w.store.append(e)

	select {
	case w.pending <- e:
	default:
		w.logger.Warn("audit disk-write buffer full, event retained in memory only",
			"event_id", e.EventID, "event_type", e.EventType)
		telemetry.AuditAlertsTotal.Inc()
	}

	return e
}

// Query returns in-memory events matching f.
func (w *Writer) Query(f Filter) []Event { return w.store.query(f) }

// Get looks up a single event by ID from the in-memory index.
func (w *Writer) Get(eventID string) (Event, bool) { return w.store.get(eventID) }

// Stats summarizes the in-memory event population.
func (w *Writer) Stats() Stats { return w.store.stats() }

// Export serializes every in-memory event as indented JSON for AU-6 audit
// review and reporting.
func (w *Writer) Export() ([]byte, error) {
	return json.MarshalIndent(w.store.all(), "", "  ")
}

func (w *Writer) run(ctx context.Context) {
	ticker := time.NewTicker(flushInterval)
	defer ticker.Stop()

	batch := make([]Event, 0, 32)

	flush := func() {
		if len(batch) == 0 {
			return
		}
		w.persist(batch)
		batch = batch[:0]
	}

	for {
		select {
		case e, ok := <-w.pending:
			if !ok {
				flush()
				return
			}
			batch = append(batch, e)
		case <-ticker.C:
			flush()
		case <-ctx.Done():
			for {
				select {
				case e, ok := <-w.pending:
					if !ok {
						flush()
						return
					}
					batch = append(batch, e)
				default:
					flush()
					return
				}
			}
		}
	}
}

// persist appends batch to the day's JSONL file, grouped by the UTC date
// each event occurred on.
func (w *Writer) persist(batch []Event) {
	byDay := make(map[string][]Event)
	for _, e := range batch {
		day := e.Timestamp.Format("2006-01-02")
		byDay[day] = append(byDay[day], e)
	}

	for day, events := range byDay {
		if err := w.appendDay(day, events); err != nil {
			w.logger.Error("audit disk append failed", "error", err, "day", day, "count", len(events))
			telemetry.AuditAlertsTotal.Inc()
		}
	}
}

func (w *Writer) appendDay(day string, events []Event) error {
	if err := os.MkdirAll(w.storageDir, 0o755); err != nil {
		return err
	}

	path := filepath.Join(w.storageDir, "audit-"+day+".jsonl")
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	for _, e := range events {
		if err := enc.Encode(e); err != nil {
			return err
		}
	}
	return nil
}
