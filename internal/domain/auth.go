package domain

import "time"

// PendingAuth is the intermediate login state between a successful password
// check and OTP verification. At most one exists per session; it is cleared
// on success, expiry or attempt exhaustion.
type PendingAuth struct {
	UserID  int64  `json:"user_id"`
	Email   string `json:"email"`
	Role    Role   `json:"role"`
	OTPHash string `json:"otp_hash"`
	// ExpiresAt bounds OTP validity; expiry is a terminal transition.
	ExpiresAt time.Time `json:"expires_at"`
	Attempts  int       `json:"attempts"`
	// RegisterNextUser carries the admin-creates-user continuation through
	// the OTP step.
	RegisterNextUser bool `json:"register_next_user,omitempty"`
}

func (p *PendingAuth) Expired(now time.Time) bool {
	return now.After(p.ExpiresAt)
}

// PostLoginRoute tells the caller where to send the user after the session
// is finalized.
type PostLoginRoute string

const (
	RouteCreateUser        PostLoginRoute = "create_user"
	RouteEmployeeDashboard PostLoginRoute = "employee_dashboard"
	RoutePatientDashboard  PostLoginRoute = "patient_dashboard"
)

// RouteFor resolves the dashboard for a finalized identity. registerNext is
// only honored for admins.
func RouteFor(role Role, registerNext bool) PostLoginRoute {
	if registerNext && role == RoleAdmin {
		return RouteCreateUser
	}
	if role == RolePatient {
		return RoutePatientDashboard
	}
	return RouteEmployeeDashboard
}
