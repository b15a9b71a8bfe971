package secrets

import "testing"

const (
	testKey = "0123456789abcdef0123456789abcdef"
	testIV  = "abcdef0123456789"
)

func TestFieldCipherRoundTrip(t *testing.T) {
	c, err := NewFieldCipher(testKey, testIV)
	if err != nil {
		t.Fatalf("NewFieldCipher: %v", err)
	}

	for _, plain := range []string{"a", "221B Baker Street", "exactly 16 bytes", "+92-300-1234567"} {
		enc := c.EncryptField(plain)
		if enc == plain {
			t.Errorf("ciphertext equals plaintext for %q", plain)
		}
		if got := c.DecryptField(enc); got != plain {
			t.Errorf("round trip: got %q, want %q", got, plain)
		}
	}
}

func TestFieldCipherEmptyPassthrough(t *testing.T) {
	c, err := NewFieldCipher(testKey, testIV)
	if err != nil {
		t.Fatalf("NewFieldCipher: %v", err)
	}
	if got := c.EncryptField(""); got != "" {
		t.Errorf("empty encrypt: got %q", got)
	}
	if got := c.DecryptField(""); got != "" {
		t.Errorf("empty decrypt: got %q", got)
	}
}

func TestFieldCipherLegacyPlaintext(t *testing.T) {
	c, err := NewFieldCipher(testKey, testIV)
	if err != nil {
		t.Fatalf("NewFieldCipher: %v", err)
	}
	// Rows written before encryption hold raw values; those must read back
	// unchanged.
	for _, legacy := range []string{"House 12, Street 4", "not base64!!", "03001234567"} {
		if got := c.DecryptField(legacy); got != legacy {
			t.Errorf("legacy value mangled: got %q, want %q", got, legacy)
		}
	}
}

func TestNewFieldCipherKeyValidation(t *testing.T) {
	if _, err := NewFieldCipher("short", testIV); err == nil {
		t.Error("expected error for short key")
	}
	if _, err := NewFieldCipher(testKey, "short"); err == nil {
		t.Error("expected error for short iv")
	}
}
