package secrets

import (
	"strconv"
	"testing"
)

func TestGenerateOTP(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		code, err := GenerateOTP()
		if err != nil {
			t.Fatalf("GenerateOTP: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected 6 digits, got %q", code)
		}
		n, err := strconv.Atoi(code)
		if err != nil {
			t.Fatalf("code is not numeric: %q", code)
		}
		if n < 100000 || n > 999999 {
			t.Fatalf("code out of range: %d", n)
		}
		seen[code] = true
	}
	if len(seen) < 2 {
		t.Fatal("codes do not vary")
	}
}

func TestNewToken(t *testing.T) {
	a, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	b, err := NewToken()
	if err != nil {
		t.Fatalf("NewToken: %v", err)
	}
	if len(a) != 64 || len(b) != 64 {
		t.Fatalf("expected 64 hex chars, got %d and %d", len(a), len(b))
	}
	if a == b {
		t.Fatal("tokens are not unique")
	}
}

func TestConstantTimeEquals(t *testing.T) {
	if !ConstantTimeEquals("abc123", "abc123") {
		t.Error("equal tokens should match")
	}
	if ConstantTimeEquals("abc123", "abc124") {
		t.Error("different tokens should not match")
	}
	if ConstantTimeEquals("abc", "abc123") {
		t.Error("different lengths should not match")
	}
	if ConstantTimeEquals("", "abc") {
		t.Error("empty token should not match")
	}
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("Sup3r$ecretPwd")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "Sup3r$ecretPwd" {
		t.Fatal("hash must not equal the password")
	}

	ok, err := VerifyPassword("Sup3r$ecretPwd", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if !ok {
		t.Error("correct password should verify")
	}

	ok, err = VerifyPassword("wrong-password", hash)
	if err != nil {
		t.Fatalf("VerifyPassword: %v", err)
	}
	if ok {
		t.Error("wrong password should not verify")
	}
}

func TestOTPHashing(t *testing.T) {
	hash, err := HashOTP("123456")
	if err != nil {
		t.Fatalf("HashOTP: %v", err)
	}
	if hash == "123456" {
		t.Fatal("hash must not equal the code")
	}
	if !CheckOTP("123456", hash) {
		t.Error("correct code should verify")
	}
	if CheckOTP("654321", hash) {
		t.Error("wrong code should not verify")
	}
}
