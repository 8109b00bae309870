package queue

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tacedge/gateway/internal/apperr"
	"github.com/tacedge/gateway/internal/auth"
	"github.com/tacedge/gateway/internal/clock"
	"github.com/tacedge/gateway/internal/httpserver"
)

// Handler exposes the queue's HTTP surface: enqueue, status, and an
// on-demand flush.
type Handler struct {
	store  *Store
	worker *Worker
	clock  clock.Clock
	logger *slog.Logger
}

// NewHandler creates a queue Handler.
func NewHandler(store *Store, worker *Worker, clk clock.Clock, logger *slog.Logger) *Handler {
	return &Handler{store: store, worker: worker, clock: clk, logger: logger}
}

// Routes mounts the queue endpoints behind the permissions spec §6 assigns
// them: enqueue is an internal call from the gateway pipeline, status reads
// node/queue health, flush requires administrative control.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(auth.RequirePermission(auth.PermInternalCall)).Post("/enqueue", h.handleEnqueue)
	r.With(auth.RequirePermission(auth.PermNodeStatus)).Get("/status", h.handleStatus)
	r.With(auth.RequirePermission(auth.PermNodeManage)).Post("/flush", h.handleFlush)
	return r
}

type enqueueRequest struct {
	MessageID        string `json:"message_id" validate:"required"`
	Recipient        string `json:"recipient" validate:"required"`
	EncryptedContent string `json:"encrypted_content" validate:"required"`
	Precedence       string `json:"precedence" validate:"required,oneof=FLASH IMMEDIATE PRIORITY ROUTINE"`
	TTLSeconds       int    `json:"ttl_seconds" validate:"required,min=1"`
}

func (h *Handler) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	precedence, ok := ParsePrecedence(req.Precedence)
	if !ok {
		httpserver.RespondError(w, http.StatusUnprocessableEntity, apperr.Validation, "unrecognized precedence")
		return
	}

	now := h.clock.Now()
	entry := Entry{
		MessageID:        req.MessageID,
		Recipient:        req.Recipient,
		EncryptedContent: req.EncryptedContent,
		Precedence:       precedence,
		CreatedAt:        now,
		ExpiresAt:        now.Add(time.Duration(req.TTLSeconds) * time.Second),
	}

	position, err := h.store.Enqueue(r.Context(), entry)
	if err != nil {
		httpserver.RespondAppErr(w, h.logger, err)
		return
	}

	httpserver.Respond(w, http.StatusCreated, map[string]any{
		"message_id": entry.MessageID,
		"precedence": string(precedence),
		"position":   position,
	})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	depths, err := h.store.Snapshot(r.Context())
	if err != nil {
		httpserver.RespondAppErr(w, h.logger, err)
		return
	}

	total := 0
	byClass := make(map[string]int, len(depths))
	for p, d := range depths {
		byClass[string(p)] = d
		total += d
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"by_precedence":     byClass,
		"total_depth":       total,
		"expired_count_24h": h.worker.ExpiredCount24h(),
	})
}

func (h *Handler) handleFlush(w http.ResponseWriter, r *http.Request) {
	flushed, failed := h.worker.FlushAll(r.Context())
	httpserver.Respond(w, http.StatusOK, map[string]any{
		"flushed": flushed,
		"failed":  failed,
	})
}
