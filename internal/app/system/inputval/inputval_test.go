package inputval

import "testing"

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		email string
		want  bool
	}{
		// Valid emails
		{"user@example.com", true},
		{"user.name@example.com", true},
		{"user+tag@example.com", true},
		{"user@subdomain.example.com", true},
		{"user123@example.co.uk", true},
		{"a@b.co", true},
		{"user@localhost", true},   // RFC 5322 allows single-label domains
		{"admin@mailserver", true}, // useful for dev/test environments

		// Invalid emails - empty/whitespace
		{"", false},
		{"   ", false},

		// Invalid emails - missing parts
		{"user", false},
		{"user@", false},
		{"@example.com", false},

		// Invalid emails - bad format (previously allowed by weak regex)
		{".user@example.com", false},      // leading dot in local
		{"user.@example.com", false},      // trailing dot in local
		{"user..name@example.com", false}, // consecutive dots
		{"user@.example.com", false},      // leading dot in domain
		{"user@example..com", false},      // consecutive dots in domain

		// Invalid emails - display name format (should be rejected)
		{"User Name <user@example.com>", false},

		// Invalid emails - other malformed
		{"user @example.com", false}, // space in local
		{"user@ example.com", false}, // space after @
		{"user@exam ple.com", false}, // space in domain
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			got := IsValidEmail(tt.email)
			if got != tt.want {
				t.Errorf("IsValidEmail(%q) = %v, want %v", tt.email, got, tt.want)
			}
		})
	}
}

func TestIsValidObjectID(t *testing.T) {
	tests := []struct {
		id   string
		want bool
	}{
		// Valid ObjectIDs (24 hex characters)
		{"507f1f77bcf86cd799439011", true},
		{"000000000000000000000000", true},
		{"FFFFFFFFFFFFFFFFFFFFFFFF", true}, // uppercase hex is valid

		// Valid with whitespace (trimmed)
		{"  507f1f77bcf86cd799439011  ", true},

		// Invalid ObjectIDs
		{"", false},
		{"507f1f77bcf86cd79943901", false},   // too short (23 chars)
		{"507f1f77bcf86cd7994390111", false}, // too long (25 chars)
		{"507f1f77bcf86cd79943901g", false},  // invalid hex char
		{"not-a-valid-id", false},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			got := IsValidObjectID(tt.id)
			if got != tt.want {
				t.Errorf("IsValidObjectID(%q) = %v, want %v", tt.id, got, tt.want)
			}
		})
	}
}

func TestIsValidBillingStatus(t *testing.T) {
	for _, s := range []string{"pending", "paid", "overdue", " paid "} {
		if !IsValidBillingStatus(s) {
			t.Errorf("IsValidBillingStatus(%q) = false, want true", s)
		}
	}
	for _, s := range []string{"", "PAID", "cancelled", "refunded"} {
		if IsValidBillingStatus(s) {
			t.Errorf("IsValidBillingStatus(%q) = true, want false", s)
		}
	}
}

func TestValidate(t *testing.T) {
	type TestInput struct {
		Name  string `json:"name" validate:"required,max=10" label:"Full name"`
		Email string `json:"email" validate:"required,email" label:"Email address"`
	}

	tests := []struct {
		name       string
		input      TestInput
		wantErrors bool
		wantFirst  string
		wantField  string
	}{
		{
			name:       "valid input",
			input:      TestInput{Name: "John", Email: "john@example.com"},
			wantErrors: false,
		},
		{
			name:       "missing name",
			input:      TestInput{Name: "", Email: "john@example.com"},
			wantErrors: true,
			wantFirst:  "Full name is required.",
			wantField:  "name",
		},
		{
			name:       "name too long",
			input:      TestInput{Name: "VeryLongNameThatExceedsLimit", Email: "john@example.com"},
			wantErrors: true,
			wantFirst:  "Full name must be at most 10 characters.",
			wantField:  "name",
		},
		{
			name:       "invalid email",
			input:      TestInput{Name: "John", Email: "not-an-email"},
			wantErrors: true,
			wantFirst:  "A valid email address is required.",
			wantField:  "email",
		},
		{
			name:       "missing both",
			input:      TestInput{Name: "", Email: ""},
			wantErrors: true,
			wantFirst:  "Full name is required.", // First error
			wantField:  "name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.input)

			if result.HasErrors() != tt.wantErrors {
				t.Errorf("Validate() HasErrors = %v, want %v", result.HasErrors(), tt.wantErrors)
			}

			if tt.wantErrors {
				if result.First() != tt.wantFirst {
					t.Errorf("Validate() First() = %q, want %q", result.First(), tt.wantFirst)
				}
				if result.Errors[0].Field != tt.wantField {
					t.Errorf("Validate() Errors[0].Field = %q, want %q", result.Errors[0].Field, tt.wantField)
				}
			}
		})
	}
}

func TestResult_All(t *testing.T) {
	t.Run("no errors", func(t *testing.T) {
		r := &Result{}
		if r.All() != "" {
			t.Errorf("All() = %q, want empty", r.All())
		}
	})

	t.Run("multiple errors", func(t *testing.T) {
		r := &Result{
			Errors: []FieldError{
				{Message: "Error 1"},
				{Message: "Error 2"},
			},
		}
		want := "Error 1; Error 2"
		if r.All() != want {
			t.Errorf("All() = %q, want %q", r.All(), want)
		}
	})
}

func TestResult_First(t *testing.T) {
	r := &Result{}
	if r.First() != "" {
		t.Errorf("First() = %q, want empty", r.First())
	}
	r.Errors = []FieldError{{Message: "First error"}, {Message: "Second error"}}
	if r.First() != "First error" {
		t.Errorf("First() = %q, want %q", r.First(), "First error")
	}
}

func TestValidate_CustomRules(t *testing.T) {
	type StatusInput struct {
		Status string `json:"status" validate:"required,billingstatus" label:"Status"`
	}

	type ReassignInput struct {
		OrganizationIDs []string `json:"organizationIds" validate:"required,min=1,dive,objectid" label:"Organization ids"`
		BusinessUnit    string   `json:"businessUnit" validate:"required,max=100" label:"Business unit"`
	}

	t.Run("valid status", func(t *testing.T) {
		if result := Validate(StatusInput{Status: "paid"}); result.HasErrors() {
			t.Errorf("Validate(valid status) has errors: %v", result.Errors)
		}
	})

	t.Run("invalid status", func(t *testing.T) {
		result := Validate(StatusInput{Status: "refunded"})
		if !result.HasErrors() {
			t.Fatal("Validate(invalid status) should have errors")
		}
		if want := "Status must be one of: pending, paid, overdue."; result.First() != want {
			t.Errorf("First() = %q, want %q", result.First(), want)
		}
	})

	t.Run("valid reassign", func(t *testing.T) {
		result := Validate(ReassignInput{OrganizationIDs: []string{"507f1f77bcf86cd799439011"}, BusinessUnit: "Sales"})
		if result.HasErrors() {
			t.Errorf("Validate(valid reassign) has errors: %v", result.Errors)
		}
	})

	t.Run("empty id list", func(t *testing.T) {
		result := Validate(ReassignInput{OrganizationIDs: []string{}, BusinessUnit: "Sales"})
		if !result.HasErrors() {
			t.Fatal("Validate(empty ids) should have errors")
		}
		if result.Errors[0].Field != "organizationIds" {
			t.Errorf("Field = %q, want organizationIds", result.Errors[0].Field)
		}
	})

	t.Run("bad id in list", func(t *testing.T) {
		result := Validate(&ReassignInput{OrganizationIDs: []string{"507f1f77bcf86cd799439011", "nope"}, BusinessUnit: "Sales"})
		if !result.HasErrors() {
			t.Fatal("Validate(bad id) should have errors")
		}
		if result.Errors[0].Field != "organizationIds[1]" {
			t.Errorf("Field = %q, want organizationIds[1]", result.Errors[0].Field)
		}
	})
}
