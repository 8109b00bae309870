package audit

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tacedge/gateway/internal/apperr"
	"github.com/tacedge/gateway/internal/auth"
	"github.com/tacedge/gateway/internal/httpserver"
)

// Handler provides the HTTP surface for the audit log.
type Handler struct {
	writer *Writer
	logger *slog.Logger
}

// NewHandler creates an audit Handler over writer.
func NewHandler(writer *Writer, logger *slog.Logger) *Handler {
	return &Handler{writer: writer, logger: logger}
}

// Routes mounts the audit log's endpoints: POST /events is the internal
// ingest path other collaborators use to log events over HTTP (spec §6);
// the rest are the audit:read/audit:export review surface.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(auth.RequirePermission(auth.PermInternalCall)).Post("/events", h.handleCreate)
	r.With(auth.RequirePermission(auth.PermAuditRead)).Get("/events", h.handleList)
	r.With(auth.RequirePermission(auth.PermAuditRead)).Get("/stats", h.handleStats)
	r.With(auth.RequirePermission(auth.PermAuditExport)).Get("/export", h.handleExport)
	r.With(auth.RequirePermission(auth.PermAuditRead)).Get("/events/{eventID}/verify", h.handleVerify)
	return r
}

type createEventRequest struct {
	EventType     string         `json:"event_type" validate:"required"`
	ControlFamily string         `json:"control_family" validate:"required,oneof=AC AU IA SC SI"`
	Actor         Actor          `json:"actor" validate:"required"`
	Action        Action         `json:"action" validate:"required"`
	Context       map[string]any `json:"context,omitempty"`
}

// handleCreate lets an internal collaborator log an event directly over
// HTTP rather than through an in-process *Writer reference (spec §6: POST
// /api/v1/audit/events).
func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	e := h.writer.Log(req.EventType, ControlFamily(req.ControlFamily), req.Actor, req.Action, req.Context)
	httpserver.Respond(w, http.StatusCreated, e)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	params, err := httpserver.ParseOffsetParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusUnprocessableEntity, apperr.Validation, err.Error())
		return
	}

	q := r.URL.Query()
	f := Filter{
		EventType:     q.Get("event_type"),
		ControlFamily: ControlFamily(q.Get("control_family")),
		ActorNode:     q.Get("actor_node"),
	}
	if v := q.Get("start_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpserver.RespondError(w, http.StatusUnprocessableEntity, apperr.Validation, "start_time must be RFC3339")
			return
		}
		f.StartTime = t
	}
	if v := q.Get("end_time"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			httpserver.RespondError(w, http.StatusUnprocessableEntity, apperr.Validation, "end_time must be RFC3339")
			return
		}
		f.EndTime = t
	}

	matched := h.writer.Query(f)

	start := params.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + params.PageSize
	if end > len(matched) {
		end = len(matched)
	}

	page := httpserver.NewOffsetPage(matched[start:end], params, len(matched))
	httpserver.Respond(w, http.StatusOK, page)
}

func (h *Handler) handleStats(w http.ResponseWriter, r *http.Request) {
	httpserver.Respond(w, http.StatusOK, h.writer.Stats())
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	data, err := h.writer.Export()
	if err != nil {
		h.logger.Error("exporting audit log", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, apperr.Internal, "failed to export audit log")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	eventID := chi.URLParam(r, "eventID")
	e, ok := h.writer.Get(eventID)
	if !ok {
		httpserver.RespondError(w, http.StatusNotFound, apperr.NotFound, "audit event not found")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"event_id": e.EventID,
		"valid":    e.VerifyIntegrity(),
	})
}
