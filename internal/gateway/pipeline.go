package gateway

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/tacedge/gateway/internal/apperr"
	"github.com/tacedge/gateway/internal/audit"
	"github.com/tacedge/gateway/internal/auth"
	"github.com/tacedge/gateway/internal/clock"
	"github.com/tacedge/gateway/internal/crypto"
	"github.com/tacedge/gateway/internal/queue"
	"github.com/tacedge/gateway/internal/telemetry"
)

const (
	cryptoTimeout = 5 * time.Second
	auditTimeout  = 2 * time.Second
	queueTimeout  = 5 * time.Second
)

// Encrypter is the crypto collaborator's contract as seen by the pipeline.
// *crypto.Engine satisfies it; tests substitute a fake to exercise the
// degrade-on-failure path.
type Encrypter interface {
	Encrypt(plaintext string) (crypto.Sealed, error)
}

// SendRequest is the pipeline's parsed, pre-validated view of a send call.
type SendRequest struct {
	Precedence     queue.Precedence
	Classification auth.Classification
	Sender         string
	Recipient      string
	Content        string
	TTLSeconds     int
}

// SendResult is returned to the caller of Send.
type SendResult struct {
	MessageID         string
	Status            Status
	Precedence        queue.Precedence
	CreatedAt         time.Time
	EstimatedDelivery time.Time
}

// Pipeline is the gateway's message-processing pipeline: it validates and
// authorizes a send, encrypts the body, records an audit trail, and routes
// the message either to direct delivery or the priority queue. The crypto
// call and the enqueue run under fixed timeouts (cryptoTimeout,
// queueTimeout); precedence sets only the reported delivery estimate, not a
// deadline on any call.
type Pipeline struct {
	status  *Store
	nodes   NodeRegistry
	crypto  Encrypter
	auditor *audit.Writer
	queue   *queue.Store
	clock   clock.Clock
	logger  *slog.Logger

	// CryptoDegradeAllowed controls the degrade policy: when false (the
	// fail-closed default), a crypto failure fails the send instead of
	// falling back to an unencrypted marker.
	CryptoDegradeAllowed bool
}

// NewPipeline wires a Pipeline over its collaborators.
func NewPipeline(status *Store, nodes NodeRegistry, enc Encrypter, auditor *audit.Writer, q *queue.Store, clk clock.Clock, logger *slog.Logger, cryptoDegradeAllowed bool) *Pipeline {
	return &Pipeline{
		status:               status,
		nodes:                nodes,
		crypto:               enc,
		auditor:              auditor,
		queue:                q,
		clock:                clk,
		logger:               logger,
		CryptoDegradeAllowed: cryptoDegradeAllowed,
	}
}

// Send runs the fixed processing pipeline for one authenticated send
// request: validate, authorize, encrypt, audit, route.
func (p *Pipeline) Send(ctx context.Context, req SendRequest, claims *auth.Claims) (SendResult, error) {
	if err := validateSend(req); err != nil {
		return SendResult{}, err
	}
	if !claims.Has(auth.PermMessageSend) {
		return SendResult{}, apperr.New(apperr.Forbidden, "missing required permission: message:send")
	}
	if req.Classification > claims.Classification {
		return SendResult{}, apperr.New(apperr.Forbidden, "message classification exceeds caller's classification ceiling")
	}

	now := p.clock.Now()
	msg := Message{
		ID:             "msg-" + uuid.New().String(),
		Precedence:     req.Precedence,
		Classification: req.Classification,
		Sender:         req.Sender,
		Recipient:      req.Recipient,
		Body:           req.Content,
		TTLSeconds:     req.TTLSeconds,
		CreatedAt:      now,
		ExpiresAt:      now.Add(time.Duration(req.TTLSeconds) * time.Second),
		Status:         StatusPending,
	}
	p.status.Put(msg)

	sealed, encryptErr := p.encryptWithTimeout(ctx, req.Content)
	encryptedContent := req.Content
	if encryptErr != nil {
		p.auditor.Log("CRYPTO_DEGRADED", audit.ControlSystemInfoIntegrity,
			audit.Actor{NodeID: req.Sender, Role: string(claims.Role)},
			audit.Action{Operation: "ENCRYPT", Resource: "message:" + msg.ID, Outcome: audit.OutcomeFailure, Reason: encryptErr.Error()},
			map[string]any{"precedence": string(req.Precedence), "classification": req.Classification.String()},
		)
		if !p.CryptoDegradeAllowed {
			p.status.TransitionStatus(msg.ID, StatusFailed)
			telemetry.MessagesSentTotal.WithLabelValues(string(req.Precedence), string(StatusFailed)).Inc()
			return SendResult{}, apperr.Wrap(apperr.Internal, "crypto engine unavailable", encryptErr)
		}
		telemetry.CryptoDegradedTotal.Inc()
		encryptedContent = "UNENCRYPTED:" + req.Content
	} else {
		encryptedContent = sealed.Ciphertext
	}

	p.auditor.Log("MESSAGE_SENT", audit.ControlAuditAccountability,
		audit.Actor{NodeID: req.Sender, Role: string(claims.Role)},
		audit.Action{Operation: "SEND_MESSAGE", Resource: "message:" + msg.ID, Outcome: audit.OutcomeSuccess},
		map[string]any{"precedence": string(req.Precedence), "classification": req.Classification.String(), "recipient": req.Recipient},
	)

	status := p.route(ctx, msg, encryptedContent)
	p.status.TransitionStatus(msg.ID, status)

	estimatedDelivery := now.Add(queue.MaxLatency(req.Precedence))
	p.status.SetEstimatedDelivery(msg.ID, estimatedDelivery)

	telemetry.MessagesSentTotal.WithLabelValues(string(req.Precedence), string(status)).Inc()

	return SendResult{
		MessageID:         msg.ID,
		Status:            status,
		Precedence:        req.Precedence,
		CreatedAt:         now,
		EstimatedDelivery: estimatedDelivery,
	}, nil
}

func (p *Pipeline) encryptWithTimeout(ctx context.Context, plaintext string) (crypto.Sealed, error) {
	ctx, cancel := context.WithTimeout(ctx, cryptoTimeout)
	defer cancel()

	type result struct {
		sealed crypto.Sealed
		err    error
	}
	ch := make(chan result, 1)
	go func() {
		sealed, err := p.crypto.Encrypt(plaintext)
		ch <- result{sealed, err}
	}()

	select {
	case r := <-ch:
		return r.sealed, r.err
	case <-ctx.Done():
		return crypto.Sealed{}, fmt.Errorf("crypto engine timed out: %w", ctx.Err())
	}
}

// route attempts synchronous direct delivery to a connected peer, falling
// back to a best-effort enqueue onto the priority queue.
func (p *Pipeline) route(ctx context.Context, msg Message, encryptedContent string) Status {
	if p.nodes.Connected(ctx, msg.Recipient) {
		if err := p.deliverDirect(ctx, msg); err != nil {
			p.logger.Warn("direct delivery failed, falling back to queue", "message_id", msg.ID, "error", err)
		} else {
			return StatusTransmitted
		}
	}

	qctx, cancel := context.WithTimeout(ctx, queueTimeout)
	defer cancel()

	entry := queue.Entry{
		MessageID:        msg.ID,
		Recipient:        msg.Recipient,
		EncryptedContent: encryptedContent,
		Precedence:       msg.Precedence,
		CreatedAt:        msg.CreatedAt,
		ExpiresAt:        msg.ExpiresAt,
	}
	if _, err := p.queue.Enqueue(qctx, entry); err != nil {
		p.logger.Error("enqueue failed, message left for background retry", "message_id", msg.ID, "error", err)
		go p.retryEnqueue(entry)
		return StatusQueued
	}
	return StatusStored
}

// retryEnqueue backs off and retries an enqueue that failed synchronously,
// leaving the message's status at QUEUED in the meantime. It gives up
// silently once the entry's TTL has elapsed.
func (p *Pipeline) retryEnqueue(entry queue.Entry) {
	backoff := 500 * time.Millisecond
	for {
		now := p.clock.Now()
		if entry.Expired(now) {
			p.status.TransitionStatus(entry.MessageID, StatusFailed)
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), queueTimeout)
		_, err := p.queue.Enqueue(ctx, entry)
		cancel()
		if err == nil {
			p.status.TransitionStatus(entry.MessageID, StatusStored)
			return
		}
		time.Sleep(backoff)
		if backoff < 30*time.Second {
			backoff *= 2
		}
	}
}

// deliverDirect simulates handing a message to an already-connected peer.
// The connected set is an injected dependency with no real wire transport
// behind it; delivery here always succeeds once connectivity is established.
func (p *Pipeline) deliverDirect(_ context.Context, msg Message) error {
	p.logger.Info("message delivered directly", "message_id", msg.ID, "recipient", msg.Recipient, "precedence", msg.Precedence)
	return nil
}

// Deliver implements queue.Deliverer, letting the drain worker hand a
// previously-queued entry back to the pipeline once its recipient may have
// reconnected.
func (p *Pipeline) Deliver(ctx context.Context, entry queue.Entry) error {
	if !p.nodes.Connected(ctx, entry.Recipient) {
		return apperr.New(apperr.Internal, "recipient still not connected")
	}
	p.status.TransitionStatus(entry.MessageID, StatusTransmitted)
	p.logger.Info("queued message delivered", "message_id", entry.MessageID, "recipient", entry.Recipient, "precedence", entry.Precedence)
	return nil
}

// GetStatus returns id's current status. Requires message:read.
func (p *Pipeline) GetStatus(_ context.Context, id string, claims *auth.Claims) (Message, error) {
	if !claims.Has(auth.PermMessageRead) {
		return Message{}, apperr.New(apperr.Forbidden, "missing required permission: message:read")
	}
	return p.status.GetErr(id)
}

// ContentResult is returned by GetContent.
type ContentResult struct {
	ID             string
	Body           string
	Precedence     queue.Precedence
	Classification auth.Classification
	Sender         string
	Recipient      string
}

// GetContent returns the plaintext body retained in the status store. The
// body stored here is the plaintext; the encrypted copy, when one is made,
// goes only to the queue, and the audit context carries no body.
func (p *Pipeline) GetContent(_ context.Context, id string, claims *auth.Claims) (ContentResult, error) {
	if !claims.Has(auth.PermMessageRead) {
		return ContentResult{}, apperr.New(apperr.Forbidden, "missing required permission: message:read")
	}
	msg, err := p.status.GetErr(id)
	if err != nil {
		return ContentResult{}, err
	}
	return ContentResult{
		ID:             msg.ID,
		Body:           msg.Body,
		Precedence:     msg.Precedence,
		Classification: msg.Classification,
		Sender:         msg.Sender,
		Recipient:      msg.Recipient,
	}, nil
}

// AckResult is returned by Ack.
type AckResult struct {
	Acknowledged   bool
	AcknowledgedAt time.Time
	AcknowledgedBy string
}

// Ack records acknowledgement of id's delivery. Idempotent: repeated calls
// never move the acknowledgement time.
func (p *Pipeline) Ack(_ context.Context, id string, claims *auth.Claims) (AckResult, error) {
	if !claims.Has(auth.PermMessageRead) {
		return AckResult{}, apperr.New(apperr.Forbidden, "missing required permission: message:read")
	}
	msg, err := p.status.Acknowledge(id, claims.Subject, p.clock.Now())
	if err != nil {
		return AckResult{}, err
	}
	return AckResult{Acknowledged: msg.Acknowledged, AcknowledgedAt: msg.AcknowledgedAt, AcknowledgedBy: msg.AcknowledgedBy}, nil
}

// ListNodes reports every node the connected-node registry currently knows
// about. Requires node:status.
func (p *Pipeline) ListNodes(ctx context.Context, claims *auth.Claims) ([]Node, error) {
	if !claims.Has(auth.PermNodeStatus) {
		return nil, apperr.New(apperr.Forbidden, "missing required permission: node:status")
	}
	return p.nodes.List(ctx)
}

func validateSend(req SendRequest) error {
	if _, ok := queue.ParsePrecedence(string(req.Precedence)); !ok {
		return apperr.New(apperr.Validation, "unrecognized precedence")
	}
	if req.Classification < auth.Unclassified || req.Classification > auth.TopSecret {
		return apperr.New(apperr.Validation, "unrecognized classification")
	}
	if len(req.Sender) < 1 || len(req.Sender) > 64 {
		return apperr.New(apperr.Validation, "sender must be 1-64 characters")
	}
	if len(req.Recipient) < 1 || len(req.Recipient) > 64 {
		return apperr.New(apperr.Validation, "recipient must be 1-64 characters")
	}
	if len(req.Content) < 1 || len(req.Content) > 65536 {
		return apperr.New(apperr.Validation, "content must be 1-65536 bytes")
	}
	if req.TTLSeconds < 60 || req.TTLSeconds > 86400 {
		return apperr.New(apperr.Validation, "ttl must be between 60 and 86400 seconds")
	}
	return nil
}
