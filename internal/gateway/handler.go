package gateway

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tacedge/gateway/internal/apperr"
	"github.com/tacedge/gateway/internal/auth"
	"github.com/tacedge/gateway/internal/httpserver"
	"github.com/tacedge/gateway/internal/queue"
)

// Handler exposes the gateway pipeline's HTTP surface.
type Handler struct {
	pipeline *Pipeline
	logger   *slog.Logger
}

// NewHandler creates a gateway Handler over pipeline.
func NewHandler(pipeline *Pipeline, logger *slog.Logger) *Handler {
	return &Handler{pipeline: pipeline, logger: logger}
}

// Routes mounts the gateway's message and node endpoints. Every route
// requires authentication; individual handlers enforce the permission spec
// §6 assigns them via the pipeline method they call.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(auth.RequireAuth)
	r.Post("/messages", h.handleSend)
	r.Get("/messages/{id}", h.handleGetStatus)
	r.Get("/messages/{id}/content", h.handleGetContent)
	r.Post("/messages/{id}/ack", h.handleAck)
	r.Get("/nodes", h.handleListNodes)
	return r
}

type sendRequest struct {
	Precedence     string `json:"precedence" validate:"required,oneof=FLASH IMMEDIATE PRIORITY ROUTINE"`
	Classification string `json:"classification" validate:"required,oneof=UNCLASSIFIED CONFIDENTIAL SECRET TOP_SECRET"`
	Sender         string `json:"sender" validate:"required,min=1,max=64"`
	Recipient      string `json:"recipient" validate:"required,min=1,max=64"`
	Content        string `json:"content" validate:"required,min=1,max=65536"`
	TTLSeconds     int    `json:"ttl" validate:"required,min=60,max=86400"`
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var body sendRequest
	if !httpserver.DecodeAndValidate(w, r, &body) {
		return
	}

	precedence, ok := queue.ParsePrecedence(body.Precedence)
	if !ok {
		httpserver.RespondError(w, http.StatusUnprocessableEntity, apperr.Validation, "unrecognized precedence")
		return
	}
	classification, ok := auth.ParseClassification(body.Classification)
	if !ok {
		httpserver.RespondError(w, http.StatusUnprocessableEntity, apperr.Validation, "unrecognized classification")
		return
	}

	claims := auth.FromContext(r.Context())
	result, err := h.pipeline.Send(r.Context(), SendRequest{
		Precedence:     precedence,
		Classification: classification,
		Sender:         body.Sender,
		Recipient:      body.Recipient,
		Content:        body.Content,
		TTLSeconds:     body.TTLSeconds,
	}, claims)
	if err != nil {
		httpserver.RespondAppErr(w, h.logger, err)
		return
	}

	httpserver.Respond(w, http.StatusCreated, map[string]any{
		"message_id":         result.MessageID,
		"status":             string(result.Status),
		"precedence":         string(result.Precedence),
		"created_at":         result.CreatedAt,
		"estimated_delivery": result.EstimatedDelivery,
	})
}

func (h *Handler) handleGetStatus(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := auth.FromContext(r.Context())

	msg, err := h.pipeline.GetStatus(r.Context(), id, claims)
	if err != nil {
		httpserver.RespondAppErr(w, h.logger, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"message_id":         msg.ID,
		"status":             string(msg.Status),
		"precedence":         string(msg.Precedence),
		"created_at":         msg.CreatedAt,
		"estimated_delivery": msg.EstimatedDelivery,
		"acknowledged":       msg.Acknowledged,
	})
}

func (h *Handler) handleGetContent(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := auth.FromContext(r.Context())

	content, err := h.pipeline.GetContent(r.Context(), id, claims)
	if err != nil {
		httpserver.RespondAppErr(w, h.logger, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"message_id":     content.ID,
		"body":           content.Body,
		"precedence":     string(content.Precedence),
		"classification": content.Classification.String(),
		"sender":         content.Sender,
		"recipient":      content.Recipient,
	})
}

func (h *Handler) handleAck(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	claims := auth.FromContext(r.Context())

	result, err := h.pipeline.Ack(r.Context(), id, claims)
	if err != nil {
		httpserver.RespondAppErr(w, h.logger, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"acknowledged":    result.Acknowledged,
		"acknowledged_at": result.AcknowledgedAt,
		"acknowledged_by": result.AcknowledgedBy,
	})
}

func (h *Handler) handleListNodes(w http.ResponseWriter, r *http.Request) {
	claims := auth.FromContext(r.Context())

	nodes, err := h.pipeline.ListNodes(r.Context(), claims)
	if err != nil {
		httpserver.RespondAppErr(w, h.logger, err)
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{"nodes": nodes})
}
