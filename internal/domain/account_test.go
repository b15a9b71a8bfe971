package domain

import "testing"

func TestValidateStrongPassword(t *testing.T) {
	tests := []struct {
		password string
		ok       bool
	}{
		{"Str0ng!Enough", true},
		{"An0ther-G00d1", true},
		{"short1!A", false},           // under 10 chars
		{"alllowercase1!", false},     // no uppercase
		{"ALLUPPERCASE1!", false},     // no lowercase
		{"NoDigitsHere!", false},      // no digit
		{"NoSpecials123A", false},     // no special
		{"Has Spaces 1!A", false},     // spaces
	}
	for _, tt := range tests {
		err := ValidateStrongPassword(tt.password)
		if tt.ok && err != nil {
			t.Errorf("%q: unexpected error %v", tt.password, err)
		}
		if !tt.ok && err == nil {
			t.Errorf("%q: expected rejection", tt.password)
		}
	}
}

func TestRequiresSecondFactor(t *testing.T) {
	if RolePatient.RequiresSecondFactor() {
		t.Error("patients log in with password only")
	}
	if !RoleAdmin.RequiresSecondFactor() || !RoleStaff.RequiresSecondFactor() {
		t.Error("admins and staff must pass the code step")
	}
}

func TestRouteFor(t *testing.T) {
	if got := RouteFor(RoleAdmin, true); got != RouteCreateUser {
		t.Errorf("admin with register-next: %q", got)
	}
	if got := RouteFor(RoleStaff, true); got != RouteEmployeeDashboard {
		t.Errorf("register-next is admin-only: %q", got)
	}
	if got := RouteFor(RoleAdmin, false); got != RouteEmployeeDashboard {
		t.Errorf("admin: %q", got)
	}
	if got := RouteFor(RolePatient, false); got != RoutePatientDashboard {
		t.Errorf("patient: %q", got)
	}
}

func TestVerifyOTPRequestValidate(t *testing.T) {
	for _, bad := range []string{"", "12345", "1234567", "12345a", "abcdef"} {
		r := VerifyOTPRequest{Code: bad}
		if err := r.Validate(); err == nil {
			t.Errorf("%q should be rejected", bad)
		}
	}
	r := VerifyOTPRequest{Code: "123456"}
	if err := r.Validate(); err != nil {
		t.Errorf("valid code rejected: %v", err)
	}
}
