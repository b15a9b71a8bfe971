package accounts

import (
	"context"
	"errors"

	"github.com/Umer-Fazal/pharmacore/internal/domain"
	"github.com/Umer-Fazal/pharmacore/internal/repo/postgres"
	"github.com/Umer-Fazal/pharmacore/internal/secrets"
	"github.com/Umer-Fazal/pharmacore/pkg/logger"
)

var (
	ErrEmailTaken      = postgres.ErrEmailTaken
	ErrProfileNotFound = errors.New("no profile for this account")
)

// Service handles account provisioning and patient profiles. Only admins
// reach CreateAccount; the handler enforces that.
type Service struct {
	accounts postgres.AccountRepo
	patients postgres.PatientRepo
}

func NewService(accounts postgres.AccountRepo, patients postgres.PatientRepo) *Service {
	return &Service{accounts: accounts, patients: patients}
}

// CreateAccount provisions a login and, for patients, the linked profile
// holding the contact details.
func (s *Service) CreateAccount(ctx context.Context, req domain.CreateAccountRequest) (*domain.Account, error) {
	hash, err := secrets.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	account, err := s.accounts.Create(ctx, req.Email, hash, domain.Role(req.Role))
	if err != nil {
		return nil, err
	}

	if account.Role == domain.RolePatient {
		if _, err := s.patients.Create(ctx, account.ID, req.Name, req.Email, req.Address, req.Contact); err != nil {
			logger.ErrorContext(ctx, "Failed to create patient profile", "account_id", account.ID, "error", err)
			return nil, err
		}
	}
	return account, nil
}

// Profile returns the patient profile behind an authenticated identity.
func (s *Service) Profile(ctx context.Context, accountID int64) (*domain.Patient, error) {
	p, err := s.patients.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, ErrProfileNotFound
	}
	return p, nil
}

// UpdateProfile edits the mutable profile fields for the calling patient.
func (s *Service) UpdateProfile(ctx context.Context, accountID int64, req domain.UpdateProfileRequest) (*domain.Patient, error) {
	existing, err := s.patients.FindByAccountID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, ErrProfileNotFound
	}
	if req.Name == "" {
		req.Name = existing.Name
	}
	if err := s.patients.UpdateProfile(ctx, accountID, req.Name, req.Address, req.Contact); err != nil {
		return nil, err
	}
	return s.patients.FindByAccountID(ctx, accountID)
}
