package confighandler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"optimahub/internal/domain/workrecords"
	"optimahub/internal/requestctx"
	"optimahub/internal/session"
	"optimahub/internal/transport/http/api"
)

// PublicConfig is what the browser needs before any user signs in.
type PublicConfig struct {
	PaymentPublicKey string             `json:"paymentPublicKey"`
	ImageUpload      bool               `json:"imageUpload"`
	DefaultAvatar    string             `json:"defaultAvatar"`
	Tasks            []workrecords.Task `json:"tasks"`
	Roles            []string           `json:"registrationRoles"`
}

type Handler struct {
	Public PublicConfig
}

func NewHandler(paymentPublicKey string, imageUpload bool) *Handler {
	roles := make([]string, 0, len(session.RegistrationRoles))
	for _, role := range session.RegistrationRoles {
		roles = append(roles, string(role))
	}
	return &Handler{Public: PublicConfig{
		PaymentPublicKey: paymentPublicKey,
		ImageUpload:      imageUpload,
		DefaultAvatar:    session.DefaultAvatar,
		Tasks:            workrecords.Tasks,
		Roles:            roles,
	}}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/config/public", h.handlePublic)
}

func (h *Handler) handlePublic(w http.ResponseWriter, r *http.Request) {
	api.Success(w, h.Public, requestctx.GetRequestID(r.Context()))
}
