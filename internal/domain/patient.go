package domain

import (
	"errors"
	"strings"
	"time"
)

// Patient carries the patient profile linked to an account. Address and
// Contact are encrypted at rest; repositories decrypt them on read.
type Patient struct {
	ID        int64     `json:"id"`
	AccountID int64     `json:"account_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Address   string    `json:"address"`
	Contact   string    `json:"contact"`
	CreatedAt time.Time `json:"created_at"`
}

type UpdateProfileRequest struct {
	Name    string `json:"name"`
	Address string `json:"address"`
	Contact string `json:"contact"`
}

func (r *UpdateProfileRequest) Normalize() {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	r.Contact = strings.TrimSpace(r.Contact)
}

func (r *UpdateProfileRequest) Validate() error {
	if r.Name == "" {
		return errors.New("name is required")
	}
	return nil
}
