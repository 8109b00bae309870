package queue

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Store composes a primary Backend (Redis) with a fallback Backend (memory),
// switching to the fallback whenever the primary's ping fails, either at
// startup or mid-operation. Grounds the "hot path + fallback on error"
// posture from the teacher's pkg/alert/dedup.go.
type Store struct {
	primary  Backend
	fallback Backend
	logger   *slog.Logger

	mu          sync.Mutex
	useFallback bool
}

// NewStore wires primary and fallback backends. It pings primary once up
// front; if unreachable, the store starts in fallback mode.
func NewStore(ctx context.Context, primary, fallback Backend, logger *slog.Logger) *Store {
	s := &Store{primary: primary, fallback: fallback, logger: logger}
	if err := primary.Ping(ctx); err != nil {
		logger.Warn("queue primary unreachable at startup, using fallback", "error", err)
		s.useFallback = true
	}
	return s
}

func (s *Store) active() Backend {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.useFallback {
		return s.fallback
	}
	return s.primary
}

func (s *Store) degrade(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.useFallback {
		s.logger.Warn("queue primary failed, switching to fallback", "error", err)
		s.useFallback = true
	}
}

// Recover re-pings the primary and, if reachable, switches back off fallback.
// Intended to be called periodically by the drain worker.
func (s *Store) Recover(ctx context.Context) {
	s.mu.Lock()
	fallbackActive := s.useFallback
	s.mu.Unlock()
	if !fallbackActive {
		return
	}
	if err := s.primary.Ping(ctx); err == nil {
		s.mu.Lock()
		s.useFallback = false
		s.mu.Unlock()
		s.logger.Info("queue primary reachable again, resuming primary")
	}
}

func (s *Store) Enqueue(ctx context.Context, entry Entry) (int, error) {
	backend := s.active()
	pos, err := backend.Enqueue(ctx, entry)
	if err != nil && backend == s.primary {
		if pingErr := s.primary.Ping(ctx); pingErr != nil {
			s.degrade(pingErr)
			return s.fallback.Enqueue(ctx, entry)
		}
	}
	return pos, err
}

func (s *Store) Requeue(ctx context.Context, entry Entry) (int, error) {
	backend := s.active()
	pos, err := backend.Requeue(ctx, entry)
	if err != nil && backend == s.primary {
		if pingErr := s.primary.Ping(ctx); pingErr != nil {
			s.degrade(pingErr)
			return s.fallback.Requeue(ctx, entry)
		}
	}
	return pos, err
}

func (s *Store) Dequeue(ctx context.Context, precedence Precedence) (Entry, bool, error) {
	return s.active().Dequeue(ctx, precedence)
}

func (s *Store) Depth(ctx context.Context, precedence Precedence) (int, error) {
	return s.active().Depth(ctx, precedence)
}

func (s *Store) OldestCreatedAt(ctx context.Context, precedence Precedence) (time.Time, bool, error) {
	return s.active().OldestCreatedAt(ctx, precedence)
}

func (s *Store) Forget(ctx context.Context, messageID string) error {
	return s.active().Forget(ctx, messageID)
}

// Ping reports whether the currently active backend (primary or fallback)
// is reachable. Used by the HTTP server's /readyz check.
func (s *Store) Ping(ctx context.Context) error {
	return s.active().Ping(ctx)
}

// Snapshot returns the depth of every precedence class, keyed by precedence.
func (s *Store) Snapshot(ctx context.Context) (map[Precedence]int, error) {
	out := make(map[Precedence]int, len(precedenceOrder))
	for _, p := range Precedences() {
		d, err := s.Depth(ctx, p)
		if err != nil {
			return nil, err
		}
		out[p] = d
	}
	return out, nil
}
