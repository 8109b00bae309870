package crypto

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/tacedge/gateway/internal/apperr"
	"github.com/tacedge/gateway/internal/auth"
	"github.com/tacedge/gateway/internal/httpserver"
)

// Handler exposes the crypto engine directly for internal collaborators
// that need to seal or inspect a payload outside the send pipeline (spec
// §6: POST /api/v1/encrypt, POST /api/v1/decrypt, both "internal" auth).
type Handler struct {
	engine *Engine
}

// NewHandler creates a crypto Handler over engine.
func NewHandler(engine *Engine) *Handler {
	return &Handler{engine: engine}
}

// Routes mounts the encrypt/decrypt endpoints behind internal:call.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.With(auth.RequirePermission(auth.PermInternalCall)).Post("/encrypt", h.handleEncrypt)
	r.With(auth.RequirePermission(auth.PermInternalCall)).Post("/decrypt", h.handleDecrypt)
	return r
}

type encryptRequest struct {
	Plaintext      string `json:"plaintext" validate:"required"`
	Classification string `json:"classification,omitempty"`
}

func (h *Handler) handleEncrypt(w http.ResponseWriter, r *http.Request) {
	var req encryptRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	sealed, err := h.engine.Encrypt(req.Plaintext)
	if err != nil {
		httpserver.RespondError(w, http.StatusInternalServerError, apperr.Internal, "encryption failed")
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"ciphertext": sealed.Ciphertext,
		"nonce":      sealed.Nonce,
		"tag":        sealed.Tag,
	})
}

type decryptRequest struct {
	Ciphertext string `json:"ciphertext" validate:"required"`
	Nonce      string `json:"nonce" validate:"required"`
	Tag        string `json:"tag" validate:"required"`
}

func (h *Handler) handleDecrypt(w http.ResponseWriter, r *http.Request) {
	var req decryptRequest
	if !httpserver.DecodeAndValidate(w, r, &req) {
		return
	}

	sealed := Sealed{Ciphertext: req.Ciphertext, Nonce: req.Nonce, Tag: req.Tag}
	plaintext, err := h.engine.Decrypt(sealed)
	if err != nil {
		httpserver.Respond(w, http.StatusBadRequest, map[string]any{
			"verified": false,
			"error":    map[string]string{"code": string(apperr.AuthFailed), "message": "message authentication failed"},
		})
		return
	}

	httpserver.Respond(w, http.StatusOK, map[string]any{
		"plaintext": plaintext,
		"verified":  true,
	})
}
