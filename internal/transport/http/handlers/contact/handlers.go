package contacthandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"optimahub/internal/domain/contact"
	"optimahub/internal/requestctx"
	"optimahub/internal/transport/http/api"
	"optimahub/internal/transport/http/middleware"
	"optimahub/internal/transport/http/shared"
)

type Handler struct{}

func NewHandler() *Handler {
	return &Handler{}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Post("/contact-us", h.handleSend)
}

func (h *Handler) handleSend(w http.ResponseWriter, r *http.Request) {
	var payload contact.Message
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	msg, err := payload.Validate()
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	sess, _ := middleware.GetSession(r.Context())
	if err := contact.Send(r.Context(), sess.API, msg); err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Created(w, map[string]string{"status": "sent"}, requestctx.GetRequestID(r.Context()))
}
