package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Umer-Fazal/pharmacore/internal/auth"
	"github.com/Umer-Fazal/pharmacore/internal/domain"
	mw "github.com/Umer-Fazal/pharmacore/internal/http/middleware"
	"github.com/Umer-Fazal/pharmacore/internal/http/response"
	"github.com/Umer-Fazal/pharmacore/internal/session"
	"github.com/Umer-Fazal/pharmacore/pkg/logger"
)

type AuthHandler struct {
	Auth     *auth.Service
	Sessions *session.Store
	Manager  *mw.SessionManager
}

func NewAuthHandler(svc *auth.Service, sessions *session.Store, manager *mw.SessionManager) *AuthHandler {
	return &AuthHandler{Auth: svc, Sessions: sessions, Manager: manager}
}

func (h *AuthHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/login", h.login)
	r.Post("/verify-otp", h.verifyOTP)
	r.Post("/logout", h.logout)
	return r
}

type loginResponse struct {
	Authenticated bool                  `json:"authenticated"`
	OTPRequired   bool                  `json:"otp_required,omitempty"`
	Route         domain.PostLoginRoute `json:"route,omitempty"`
	Identity      *domain.Identity      `json:"identity,omitempty"`
}

func (h *AuthHandler) login(w http.ResponseWriter, r *http.Request) {
	var in domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid input")
		return
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	out, err := h.Auth.BeginLogin(r.Context(), mw.Current(r), in)
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		response.Unauthorized(w, "invalid email or password", response.CodeInvalidCredentials)
		return
	case errors.Is(err, auth.ErrDeliveryFailed):
		response.WriteError(w, http.StatusBadGateway, "could not send the login code, try again", response.CodeDeliveryFailed)
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Login failed", "error", err)
		response.InternalError(w, "login failed")
		return
	}

	if out.OTPRequired {
		response.WriteJSON(w, http.StatusAccepted, loginResponse{OTPRequired: true})
		return
	}

	h.Manager.SetCookie(w, r, out.Session.ID)
	response.WriteJSON(w, http.StatusOK, loginResponse{
		Authenticated: true,
		Route:         out.Route,
		Identity:      out.Session.Identity,
	})
}

func (h *AuthHandler) verifyOTP(w http.ResponseWriter, r *http.Request) {
	var in domain.VerifyOTPRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid input")
		return
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	out, err := h.Auth.VerifyOTP(r.Context(), mw.Current(r), in.Code)
	switch {
	case errors.Is(err, auth.ErrNoPendingAuth):
		response.Conflict(w, "no login attempt in progress", response.CodeNoPendingAuth)
		return
	case errors.Is(err, auth.ErrExpired):
		response.Unauthorized(w, "the login code has expired, sign in again", response.CodeExpired)
		return
	case errors.Is(err, auth.ErrTooManyAttempts):
		response.WriteError(w, http.StatusTooManyRequests, "too many incorrect codes, sign in again", response.CodeTooManyAttempts)
		return
	case errors.Is(err, auth.ErrIncorrectCode):
		response.Unauthorized(w, "incorrect login code", response.CodeIncorrectCode)
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Code verification failed", "error", err)
		response.InternalError(w, "verification failed")
		return
	}

	h.Manager.SetCookie(w, r, out.Session.ID)
	response.WriteJSON(w, http.StatusOK, loginResponse{
		Authenticated: true,
		Route:         out.Route,
		Identity:      out.Session.Identity,
	})
}

func (h *AuthHandler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.Auth.Logout(r.Context(), mw.Current(r)); err != nil {
		logger.ErrorContext(r.Context(), "Logout failed", "error", err)
		response.InternalError(w, "logout failed")
		return
	}
	h.Manager.ClearCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// CSRFToken hands the session its anti-forgery token; clients echo it in
// X-CSRF-Token on every mutating request.
func (h *AuthHandler) CSRFToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.Sessions.EnsureCSRF(r.Context(), mw.Current(r))
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to issue csrf token", "error", err)
		response.InternalError(w, "could not issue token")
		return
	}
	response.WriteJSON(w, http.StatusOK, map[string]string{"csrf_token": token})
}
