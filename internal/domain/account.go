package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RolePatient Role = "patient"
)

func IsValidRole(role string) bool {
	switch Role(role) {
	case RoleAdmin, RoleStaff, RolePatient:
		return true
	}
	return false
}

// RequiresSecondFactor reports whether login for this role must pass the
// OTP step. Patients authenticate with password only; this asymmetry is
// carried over from the existing system on purpose.
func (r Role) RequiresSecondFactor() bool {
	return r != RolePatient
}

type Account struct {
	ID           int64     `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Identity is the verified claim set a session carries after login.
type Identity struct {
	UserID int64  `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	// RegisterNextUser marks the admin-creates-user continuation: after a
	// successful login the admin is routed to the user-creation screen.
	RegisterNextUser bool `json:"register_next_user,omitempty"`
}

func (r *LoginRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
}

func (r *LoginRequest) Validate() error {
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return errors.New("a valid email is required")
	}
	if len(r.Password) < 8 {
		return errors.New("password must be at least 8 characters long")
	}
	return nil
}

type VerifyOTPRequest struct {
	Code string `json:"code"`
}

func (r *VerifyOTPRequest) Normalize() {
	r.Code = strings.TrimSpace(r.Code)
}

func (r *VerifyOTPRequest) Validate() error {
	if len(r.Code) != 6 {
		return errors.New("code must be 6 digits")
	}
	for _, c := range r.Code {
		if c < '0' || c > '9' {
			return errors.New("code must be 6 digits")
		}
	}
	return nil
}

type CreateAccountRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
	Name     string `json:"name"`
	Address  string `json:"address,omitempty"`
	Contact  string `json:"contact,omitempty"`
}

func (r *CreateAccountRequest) Normalize() {
	r.Email = strings.TrimSpace(r.Email)
	r.Name = strings.TrimSpace(r.Name)
	r.Role = strings.ToLower(strings.TrimSpace(r.Role))
}

func (r *CreateAccountRequest) Validate() error {
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return errors.New("a valid email is required")
	}
	if !IsValidRole(r.Role) {
		return fmt.Errorf("invalid role: %s", r.Role)
	}
	if r.Name == "" {
		return errors.New("name is required")
	}
	return ValidateStrongPassword(r.Password)
}

// ValidateStrongPassword enforces the registration password policy:
// at least 10 chars with upper, lower, digit and special, no spaces.
func ValidateStrongPassword(password string) error {
	if len(password) < 10 {
		return errors.New("password must be at least 10 characters long")
	}
	var upper, lower, digit, special bool
	for _, c := range password {
		switch {
		case unicode.IsSpace(c):
			return errors.New("password must not contain spaces")
		case unicode.IsUpper(c):
			upper = true
		case unicode.IsLower(c):
			lower = true
		case unicode.IsDigit(c):
			digit = true
		default:
			special = true
		}
	}
	if !upper {
		return errors.New("password must contain at least one uppercase letter")
	}
	if !lower {
		return errors.New("password must contain at least one lowercase letter")
	}
	if !digit {
		return errors.New("password must contain at least one digit")
	}
	if !special {
		return errors.New("password must contain at least one special character")
	}
	return nil
}
