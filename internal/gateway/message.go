// Package gateway implements the message-processing pipeline: the
// authenticated send/status/content/ack/nodes surface that fans out to the
// crypto engine, the audit log, and the priority store-and-forward queue,
// and reports a per-precedence delivery estimate.
package gateway

import (
	"time"

	"github.com/tacedge/gateway/internal/auth"
	"github.com/tacedge/gateway/internal/queue"
)

// Status is a message's position in its delivery state machine. Transitions
// only ever move forward; see Store.TransitionStatus.
type Status string

const (
	StatusPending     Status = "PENDING"
	StatusTransmitted Status = "TRANSMITTED"
	StatusStored      Status = "STORED"
	StatusQueued      Status = "QUEUED"
	StatusFailed      Status = "FAILED"
	StatusExpired     Status = "EXPIRED"
)

// terminal reports whether a status is one of the state machine's terminal
// states, after which no further transition is permitted.
func (s Status) terminal() bool {
	switch s {
	case StatusTransmitted, StatusFailed, StatusExpired:
		return true
	default:
		return false
	}
}

// allowedNext is the forward-only adjacency the state machine permits:
// PENDING fans out to the four immediate outcomes, QUEUED can advance to
// STORED once the queue accepts a retried entry, and STORED advances to
// TRANSMITTED on delivery or EXPIRED on TTL.
var allowedNext = map[Status]map[Status]bool{
	StatusPending: {StatusTransmitted: true, StatusStored: true, StatusQueued: true, StatusFailed: true},
	StatusQueued:  {StatusStored: true},
	StatusStored:  {StatusTransmitted: true, StatusExpired: true},
}

// Message is the transient, in-memory record the pipeline owns for a sent
// message until its TTL elapses or it is explicitly evicted. The plaintext
// Body lives only here; the encrypted copy, when one is made, goes only to
// the queue, never into this record or the audit context.
type Message struct {
	ID                string
	Precedence        queue.Precedence
	Classification    auth.Classification
	Sender            string
	Recipient         string
	Body              string
	TTLSeconds        int
	CreatedAt         time.Time
	ExpiresAt         time.Time
	Status            Status
	EstimatedDelivery time.Time

	Acknowledged   bool
	AcknowledgedAt time.Time
	AcknowledgedBy string
}

func (m Message) expired(now time.Time) bool {
	return !now.Before(m.ExpiresAt)
}
