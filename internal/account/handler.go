package account

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-account-go/internal/account/entity"
)

const maxBodyBytes = 1 << 20

// Handler exposes HTTP endpoints for account operations (register / login).
type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Handler{svc: svc, logger: logger}
}

// AccountResponse wraps a public view with a human readable message.
type AccountResponse struct {
	Message string             `json:"message"`
	User    *entity.PublicView `json:"user"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegistrationRequest
	if err := h.decode(w, r, &req); err != nil {
		h.logger.Debugw("invalid register payload", "err", err)
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	view, err := h.svc.Register(r.Context(), req)
	if err != nil {
		var ve *ValidationError
		switch {
		case errors.As(err, &ve):
			h.logger.Debugw("register rejected", "field", ve.Field, "reason", ve.Message)
			h.writeError(w, http.StatusBadRequest, ve.Message)
		case errors.Is(err, ErrAccountExists):
			h.writeError(w, http.StatusConflict, "account already exists")
		default:
			h.logger.Errorw("register failed", "err", err)
			h.writeError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}
	h.writeJSON(w, http.StatusCreated, AccountResponse{Message: "registration successful", User: view})
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := h.decode(w, r, &req); err != nil {
		h.logger.Debugw("invalid login payload", "err", err)
		h.writeError(w, http.StatusBadRequest, "invalid payload")
		return
	}
	if NormalizeEmail(req.Email) == "" || req.Password == "" {
		h.writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}
	view, err := h.svc.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, ErrBadCredentials) {
			h.logger.Debugw("login failed", "err", err)
			h.writeError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}
		h.logger.Errorw("login failed", "err", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, AccountResponse{Message: "login successful", User: view})
}

// Get serves GET .../accounts/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	view, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			h.writeError(w, http.StatusNotFound, "account not found")
			return
		}
		h.logger.Errorw("get account failed", "err", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	return json.NewDecoder(r.Body).Decode(v)
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": msg})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
