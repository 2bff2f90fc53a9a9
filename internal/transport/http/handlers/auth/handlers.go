package authhandler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"optimahub/internal/domain/auth"
	"optimahub/internal/platform/imagehost"
	"optimahub/internal/requestctx"
	"optimahub/internal/session"
	"optimahub/internal/transport/http/api"
	"optimahub/internal/transport/http/middleware"
	"optimahub/internal/transport/http/shared"
)

const minPasswordLength = 6

type Handler struct {
	Sessions *session.Manager
	Images   *imagehost.Client
	Cookies  middleware.CookieOptions
}

func NewHandler(sessions *session.Manager, images *imagehost.Client, cookies middleware.CookieOptions) *Handler {
	return &Handler{Sessions: sessions, Images: images, Cookies: cookies}
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Password      string `json:"password"`
	Role          string `json:"role"`
	Designation   string `json:"designation"`
	BankAccountNo string `json:"bankAccountNo"`
	Salary        string `json:"salary"`
	Photo         string `json:"photo"`
}

type meResponse struct {
	State     auth.State      `json:"state"`
	Principal *auth.Principal `json:"principal"`
	Loading   bool            `json:"loading"`
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.HandleLogin)
		r.Post("/register", h.HandleRegister)
		r.Post("/social-login", h.HandleSocialLogin)
		r.Post("/logout", h.HandleLogout)
		r.Post("/photo", h.HandlePhotoUpload)
		r.Get("/me", h.HandleMe)
	})
}

func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var payload loginRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "email is required")
	v.Required("password", payload.Password, "password is required")
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	sess, _ := middleware.GetSession(r.Context())
	state, err := sess.Resolver.SignIn(r.Context(), payload.Email, payload.Password)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	h.persist(w, r, sess)
	api.Success(w, toMe(state), requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var payload registerRequest
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	reg, v := validateRegistration(payload)
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	sess, _ := middleware.GetSession(r.Context())
	state, err := sess.Resolver.Register(r.Context(), reg)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	h.persist(w, r, sess)
	api.Created(w, toMe(state), requestctx.GetRequestID(r.Context()))
}

func validateRegistration(payload registerRequest) (session.Registration, *shared.Validator) {
	v := shared.NewValidator()
	v.Required("name", payload.Name, "name is required")
	v.Required("email", payload.Email, "email is required")
	if len(payload.Password) < minPasswordLength {
		v.Add("password", "password must be at least 6 characters")
	}
	allowed := make([]string, 0, len(session.RegistrationRoles))
	for _, role := range session.RegistrationRoles {
		allowed = append(allowed, string(role))
	}
	v.Required("role", payload.Role, "role is required")
	v.Enum("role", payload.Role, allowed, "role must be employee or hr")
	v.Required("designation", payload.Designation, "designation is required")
	v.Required("bankAccountNo", payload.BankAccountNo, "bank account number is required")

	salary, err := decimal.NewFromString(strings.TrimSpace(payload.Salary))
	if err != nil || !salary.IsPositive() {
		v.Add("salary", "salary must be a positive amount")
	}
	role, _ := auth.ParseRole(payload.Role)
	return session.Registration{
		Name:          strings.TrimSpace(payload.Name),
		Email:         strings.TrimSpace(payload.Email),
		Password:      payload.Password,
		Role:          role,
		Designation:   strings.TrimSpace(payload.Designation),
		BankAccountNo: strings.TrimSpace(payload.BankAccountNo),
		Salary:        salary,
		Photo:         strings.TrimSpace(payload.Photo),
	}, v
}

func (h *Handler) HandleSocialLogin(w http.ResponseWriter, r *http.Request) {
	var payload session.SocialProfile
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", requestctx.GetRequestID(r.Context()))
		return
	}
	v := shared.NewValidator()
	v.Required("email", payload.Email, "email is required")
	if v.Reject(w, requestctx.GetRequestID(r.Context())) {
		return
	}

	sess, _ := middleware.GetSession(r.Context())
	state, err := sess.Resolver.SocialLogin(r.Context(), payload)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	h.persist(w, r, sess)
	api.Success(w, toMe(state), requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())
	if err := sess.Resolver.SignOut(r.Context()); err != nil {
		slog.Warn("provider sign out failed", "sessionId", sess.ID, "err", err)
	}
	if err := h.Sessions.Destroy(r.Context(), sess.ID); err != nil {
		slog.Warn("session destroy failed", "sessionId", sess.ID, "err", err)
	}
	middleware.ClearSessionCookie(w, h.Cookies)
	api.Success(w, map[string]string{"status": "logged_out"}, requestctx.GetRequestID(r.Context()))
}

func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	sess, _ := middleware.GetSession(r.Context())
	api.Success(w, toMe(sess.State()), requestctx.GetRequestID(r.Context()))
}

// HandlePhotoUpload forwards a registration photo to the image host and returns its URL.
func (h *Handler) HandlePhotoUpload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(imagehost.MaxImageBytes); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "expected multipart form with a photo", requestctx.GetRequestID(r.Context()))
		return
	}
	file, header, err := r.FormFile("photo")
	if err != nil {
		shared.FailValidation(w, requestctx.GetRequestID(r.Context()), []shared.ValidationIssue{{Field: "photo", Reason: "photo is required"}})
		return
	}
	defer file.Close()

	url, err := h.Images.Upload(r.Context(), header.Filename, file)
	if err != nil {
		shared.WriteError(w, r, err)
		return
	}
	api.Created(w, map[string]string{"url": url}, requestctx.GetRequestID(r.Context()))
}

// persist tracks the signed-in session and hands its id to the browser.
func (h *Handler) persist(w http.ResponseWriter, r *http.Request, sess *session.Session) {
	if err := h.Sessions.Persist(r.Context(), sess); err != nil {
		slog.Warn("session persist failed", "sessionId", sess.ID, "err", err)
	}
	middleware.SetSessionCookie(w, sess.ID, h.Cookies)
}

func toMe(state session.State) meResponse {
	return meResponse{
		State:     auth.Route(state.Principal, state.Loading),
		Principal: state.Principal,
		Loading:   state.Loading,
	}
}
