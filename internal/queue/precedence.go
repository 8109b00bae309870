// Package queue implements the priority store-and-forward queue: four
// per-precedence FIFOs with TTL eviction and a drain worker, backed primarily
// by Redis sorted sets with an in-memory fallback.
package queue

import "time"

// Precedence is a military message precedence class. Lower PriorityValue
// means higher priority.
type Precedence string

const (
	Flash     Precedence = "FLASH"
	Immediate Precedence = "IMMEDIATE"
	Priority  Precedence = "PRIORITY"
	Routine   Precedence = "ROUTINE"
)

// precedenceOrder is the strict drain order: FLASH first, ROUTINE last.
var precedenceOrder = []Precedence{Flash, Immediate, Priority, Routine}

// Precedences returns all precedence classes in strict drain order.
func Precedences() []Precedence {
	out := make([]Precedence, len(precedenceOrder))
	copy(out, precedenceOrder)
	return out
}

var priorityValue = map[Precedence]int{
	Flash:     1,
	Immediate: 2,
	Priority:  3,
	Routine:   4,
}

// PriorityValue returns p's numeric priority (lower is more urgent), or 0 if
// p is not a recognized precedence.
func PriorityValue(p Precedence) int {
	return priorityValue[p]
}

var maxLatency = map[Precedence]time.Duration{
	Flash:     100 * time.Millisecond,
	Immediate: 500 * time.Millisecond,
	Priority:  2000 * time.Millisecond,
	Routine:   10000 * time.Millisecond,
}

// MaxLatency returns the delivery latency budget for p.
func MaxLatency(p Precedence) time.Duration {
	return maxLatency[p]
}

// ParsePrecedence parses a precedence string from request bodies. ok is
// false for anything outside the closed set.
func ParsePrecedence(s string) (p Precedence, ok bool) {
	p = Precedence(s)
	_, ok = priorityValue[p]
	return p, ok
}
