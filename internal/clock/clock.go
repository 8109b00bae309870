// Package clock provides an injectable time source so the queue's TTL
// eviction and the pipeline's delivery estimates can be tested without
// sleeping.
package clock

import "time"

// Clock abstracts time.Now so tests can simulate clock advances (spec §8,
// scenario 4: "simulate clock advance to 61s").
type Clock interface {
	Now() time.Time
}

// Real is a Clock backed by the system clock.
type Real struct{}

func (Real) Now() time.Time { return time.Now().UTC() }

// Fake is a Clock whose value only changes when Advance is called.
// Not safe for concurrent use across goroutines without external locking,
// which matches its intended use in single-threaded test setups.
type Fake struct {
	now time.Time
}

// NewFake creates a Fake clock starting at t (converted to UTC).
func NewFake(t time.Time) *Fake {
	return &Fake{now: t.UTC()}
}

func (f *Fake) Now() time.Time { return f.now }

// Advance moves the fake clock forward by d.
func (f *Fake) Advance(d time.Duration) { f.now = f.now.Add(d) }

// Set pins the fake clock to t.
func (f *Fake) Set(t time.Time) { f.now = t.UTC() }
