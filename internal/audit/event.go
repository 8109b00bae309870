// Package audit implements the append-only, integrity-hashed audit trail
// required by every state-changing operation the gateway exposes.
package audit

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ControlFamily is a NIST 800-53 control family tag attached to every event.
type ControlFamily string

const (
	ControlAccessControl         ControlFamily = "AC"
	ControlAuditAccountability   ControlFamily = "AU"
	ControlIdentAuthentication   ControlFamily = "IA"
	ControlSystemCommsProtection ControlFamily = "SC"
	ControlSystemInfoIntegrity   ControlFamily = "SI"
)

// Outcome is the result of the audited action.
type Outcome string

const (
	OutcomeSuccess Outcome = "SUCCESS"
	OutcomeFailure Outcome = "FAILURE"
	OutcomeUnknown Outcome = "UNKNOWN"
)

// Actor identifies who performed the audited action.
type Actor struct {
	NodeID    string `json:"node_id"`
	Role      string `json:"role"`
	IPAddress string `json:"ip_address,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

// Action describes what was done and its result.
type Action struct {
	Operation string  `json:"operation"`
	Resource  string  `json:"resource"`
	Outcome   Outcome `json:"outcome"`
	Reason    string  `json:"reason,omitempty"`
}

// Event is a single, integrity-hashed audit record. Every field that
// participates in the integrity hash is set before Hash is computed;
// Hash itself is excluded from its own input.
type Event struct {
	EventID       string         `json:"event_id"`
	Timestamp     time.Time      `json:"timestamp"`
	EventType     string         `json:"event_type"`
	ControlFamily ControlFamily  `json:"control_family"`
	Actor         Actor          `json:"actor"`
	Action        Action         `json:"action"`
	Context       map[string]any `json:"context,omitempty"`
	Hash          string         `json:"hash"`
}

// NewEvent builds an Event with a fresh ID, the current timestamp, and its
// integrity hash computed.
func NewEvent(eventType string, family ControlFamily, actor Actor, action Action, ctx map[string]any) Event {
	e := Event{
		EventID:       "evt-" + uuid.New().String(),
		Timestamp:     time.Now().UTC(),
		EventType:     eventType,
		ControlFamily: family,
		Actor:         actor,
		Action:        action,
		Context:       ctx,
	}
	e.Hash = e.computeHash()
	return e
}

// computeHash returns the SHA-256 hex digest of the event's canonical JSON
// serialization (sorted keys, Hash field excluded).
func (e Event) computeHash() string {
	payload := map[string]any{
		"event_id":       e.EventID,
		"timestamp":      e.Timestamp.Format(time.RFC3339Nano),
		"event_type":     e.EventType,
		"control_family": string(e.ControlFamily),
		"actor":          e.Actor,
		"action":         e.Action,
		"context":        e.Context,
	}
	// encoding/json sorts map keys on marshal, giving the canonical
	// serialization the original hash scheme relies on.
	b, err := json.Marshal(payload)
	if err != nil {
		// Marshal of a map[string]any built from our own known-JSON-able
		// fields cannot fail; keep the invariant explicit rather than
		// silently hashing an empty payload.
		panic("audit: computing event hash: " + err.Error())
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// VerifyIntegrity reports whether e's stored hash matches its recomputed hash.
func (e Event) VerifyIntegrity() bool {
	want := e.Hash
	e.Hash = ""
	return e.computeHash() == want
}

// sortEventsNewestFirst sorts events by timestamp descending, matching the
// original audit service's query ordering.
func sortEventsNewestFirst(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
}
