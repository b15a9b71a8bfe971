package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Umer-Fazal/pharmacore/internal/accounts"
	"github.com/Umer-Fazal/pharmacore/internal/domain"
	mw "github.com/Umer-Fazal/pharmacore/internal/http/middleware"
	"github.com/Umer-Fazal/pharmacore/internal/http/response"
	"github.com/Umer-Fazal/pharmacore/pkg/logger"
)

type AccountsHandler struct {
	Accounts *accounts.Service
}

func NewAccountsHandler(svc *accounts.Service) *AccountsHandler {
	return &AccountsHandler{Accounts: svc}
}

// CreateAccount provisions a login for staff or a patient. Admin only.
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var in domain.CreateAccountRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid input")
		return
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	account, err := h.Accounts.CreateAccount(r.Context(), in)
	switch {
	case errors.Is(err, accounts.ErrEmailTaken):
		response.Conflict(w, "email already registered", response.CodeEmailExists)
		return
	case err != nil:
		logger.ErrorContext(r.Context(), "Failed to create account", "error", err)
		response.InternalError(w, "could not create account")
		return
	}
	response.WriteJSON(w, http.StatusCreated, account)
}

// Profile returns the calling patient's own profile.
func (h *AccountsHandler) Profile(w http.ResponseWriter, r *http.Request) {
	sess := mw.Current(r)
	p, err := h.Accounts.Profile(r.Context(), sess.Identity.UserID)
	if errors.Is(err, accounts.ErrProfileNotFound) {
		response.NotFound(w, "no profile for this account")
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to load profile", "error", err)
		response.InternalError(w, "could not load profile")
		return
	}
	response.WriteJSON(w, http.StatusOK, p)
}

// UpdateProfile edits the calling patient's own profile.
func (h *AccountsHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var in domain.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		response.BadRequest(w, "invalid input")
		return
	}
	in.Normalize()
	if err := in.Validate(); err != nil {
		response.BadRequest(w, err.Error())
		return
	}

	sess := mw.Current(r)
	p, err := h.Accounts.UpdateProfile(r.Context(), sess.Identity.UserID, in)
	if errors.Is(err, accounts.ErrProfileNotFound) {
		response.NotFound(w, "no profile for this account")
		return
	}
	if err != nil {
		logger.ErrorContext(r.Context(), "Failed to update profile", "error", err)
		response.InternalError(w, "could not update profile")
		return
	}
	response.WriteJSON(w, http.StatusOK, p)
}
