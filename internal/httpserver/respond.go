package httpserver

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/tacedge/gateway/internal/apperr"
)

// Respond writes a JSON response with the given status code.
func Respond(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if data == nil {
		return
	}

	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("encoding response", "error", err)
	}
}

// errorBody is the inner object of the error envelope.
type errorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

// errorEnvelope is the standard JSON error shape: {"error":{"code","message"}}.
type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// RespondError writes the standard error envelope for a raw code/message pair.
func RespondError(w http.ResponseWriter, status int, code apperr.Code, message string) {
	Respond(w, status, errorEnvelope{Error: errorBody{Code: code, Message: message}})
}

// RespondAppErr writes the standard error envelope for an apperr-tagged error,
// using its mapped status and code. Non-apperr errors are surfaced as INTERNAL
// without leaking their underlying message.
func RespondAppErr(w http.ResponseWriter, logger *slog.Logger, err error) {
	if e, ok := apperr.As(err); ok {
		RespondError(w, e.Status(), e.Code, e.Message)
		return
	}
	if logger != nil {
		logger.Error("unclassified error", "error", err)
	}
	RespondError(w, http.StatusInternalServerError, apperr.Internal, "internal error")
}
