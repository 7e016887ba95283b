package validation

import (
	"testing"
)

func TestIsValidContextHash(t *testing.T) {
	tests := []struct {
		hash  string
		valid bool
	}{
		{"a3f1c2d4e5b6978812345678901234567890abcdef1234567890abcdef123456", true},
		{"0000000000000000000000000000000000000000000000000000000000000000", true},

		// Invalid cases
		{"A3F1C2D4E5B6978812345678901234567890ABCDEF1234567890ABCDEF123456", false}, // Uppercase
		{"a3f1c2d4e5b69788", false}, // Too short
		{"a3f1c2d4e5b6978812345678901234567890abcdef1234567890abcdef12345678", false}, // Too long
		{"g3f1c2d4e5b6978812345678901234567890abcdef1234567890abcdef123456", false},   // Invalid chars
		{"", false},
	}

	for _, tc := range tests {
		result := IsValidContextHash(tc.hash)
		if result != tc.valid {
			t.Errorf("IsValidContextHash(%q) = %v, want %v", tc.hash, result, tc.valid)
		}
	}
}

func TestIsValidID(t *testing.T) {
	tests := []struct {
		id    string
		valid bool
	}{
		{"wallet-1", true},
		{"apr_7f3a", true},
		{"guardian.alice", true},
		{"W1", true},

		// Invalid
		{"", false},
		{"has space", false},
		{"semi;colon", false},
	}

	for _, tc := range tests {
		result := IsValidID(tc.id)
		if result != tc.valid {
			t.Errorf("IsValidID(%q) = %v, want %v", tc.id, result, tc.valid)
		}
	}
}

func TestSanitizeString(t *testing.T) {
	tests := []struct {
		input    string
		maxLen   int
		expected string
	}{
		{"hello", 10, "hello"},
		{"  hello  ", 10, "hello"},
		{"hello world", 5, "hello"},
		{"hello\x00world", 20, "helloworld"},
	}

	for _, tc := range tests {
		result := SanitizeString(tc.input, tc.maxLen)
		if result != tc.expected {
			t.Errorf("SanitizeString(%q, %d) = %q, want %q", tc.input, tc.maxLen, result, tc.expected)
		}
	}
}

func TestValidate(t *testing.T) {
	// Test valid input
	errors := Validate(
		Required("walletId", "w1"),
		ValidID("walletId", "w1"),
	)
	if len(errors) != 0 {
		t.Errorf("Expected no errors, got %v", errors)
	}

	// Test invalid input
	errors = Validate(
		Required("walletId", ""),
		ValidID("guardianId", "bad id"),
	)
	if len(errors) != 2 {
		t.Errorf("Expected 2 errors, got %d", len(errors))
	}
}

func TestPositiveAmount(t *testing.T) {
	tests := []struct {
		value int64
		valid bool
	}{
		{1, true},
		{100_000_000, true},

		// Invalid
		{0, false},
		{-1, false},
	}

	for _, tc := range tests {
		err := PositiveAmount("amount", tc.value)()
		valid := err == nil
		if valid != tc.valid {
			t.Errorf("PositiveAmount(%d) valid=%v, want %v", tc.value, valid, tc.valid)
		}
	}
}

func TestMaxLength(t *testing.T) {
	// Under limit
	err := MaxLength("field", "hello", 10)()
	if err != nil {
		t.Error("Expected no error for string under limit")
	}

	// At limit
	err = MaxLength("field", "hello", 5)()
	if err != nil {
		t.Error("Expected no error for string at limit")
	}

	// Over limit
	err = MaxLength("field", "hello world", 5)()
	if err == nil {
		t.Error("Expected error for string over limit")
	}
}
