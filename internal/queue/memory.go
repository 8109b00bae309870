package queue

import (
	"context"
	"sync"
	"time"

	"github.com/tacedge/gateway/internal/apperr"
)

// MemoryBackend is the in-memory fallback queue. It is lossy on process
// restart (spec §4.2): clients must treat queue durability as best-effort.
type MemoryBackend struct {
	mu       sync.Mutex
	queues   map[Precedence][]Entry
	inFlight map[string]struct{}
}

// NewMemoryBackend creates an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	m := &MemoryBackend{
		queues:   make(map[Precedence][]Entry),
		inFlight: make(map[string]struct{}),
	}
	for _, p := range Precedences() {
		m.queues[p] = nil
	}
	return m
}

func (m *MemoryBackend) Enqueue(ctx context.Context, entry Entry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, dup := m.inFlight[entry.MessageID]; dup {
		return 0, apperr.New(apperr.AlreadyQueued, "message id already queued")
	}

	m.queues[entry.Precedence] = append(m.queues[entry.Precedence], entry)
	m.inFlight[entry.MessageID] = struct{}{}
	return len(m.queues[entry.Precedence]), nil
}

func (m *MemoryBackend) Requeue(ctx context.Context, entry Entry) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.queues[entry.Precedence] = append(m.queues[entry.Precedence], entry)
	m.inFlight[entry.MessageID] = struct{}{}
	return len(m.queues[entry.Precedence]), nil
}

func (m *MemoryBackend) Dequeue(ctx context.Context, precedence Precedence) (Entry, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.queues[precedence]
	if len(q) == 0 {
		return Entry{}, false, nil
	}

	e := q[0]
	m.queues[precedence] = q[1:]
	return e, true, nil
}

func (m *MemoryBackend) Depth(ctx context.Context, precedence Precedence) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queues[precedence]), nil
}

func (m *MemoryBackend) OldestCreatedAt(ctx context.Context, precedence Precedence) (time.Time, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	q := m.queues[precedence]
	if len(q) == 0 {
		return time.Time{}, false, nil
	}
	return q[0].CreatedAt, true, nil
}

func (m *MemoryBackend) Ping(ctx context.Context) error { return nil }

func (m *MemoryBackend) Forget(ctx context.Context, messageID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.inFlight, messageID)
	return nil
}
