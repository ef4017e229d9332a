package entity

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"
)

func TestNewUserValidate(t *testing.T) {
	tests := []struct {
		name     string
		input    NewUser
		expected []string
	}{
		{
			name:  "valid",
			input: NewUser{Name: "Ann", Email: "ann@example.com", Password: "secret123", PasswordConfirm: "secret123"},
		},
		{
			name:     "missing name",
			input:    NewUser{Email: "ann@example.com", Password: "secret123", PasswordConfirm: "secret123"},
			expected: []string{"Please tell us your name"},
		},
		{
			name:     "short password and missing confirmation",
			input:    NewUser{Name: "Ann", Email: "ann@example.com", Password: "short"},
			expected: []string{"Password must be at least 8 characters long", "Please confirm your password"},
		},
		{
			name:  "password at the bcrypt limit",
			input: NewUser{Name: "Ann", Email: "ann@example.com", Password: strings.Repeat("a", 72), PasswordConfirm: "x"},
		},
		{
			name:     "password over the bcrypt limit",
			input:    NewUser{Name: "Ann", Email: "ann@example.com", Password: strings.Repeat("a", 73), PasswordConfirm: "x"},
			expected: []string{"Password must be at most 72 bytes long"},
		},
		{
			name:     "multi-byte password counted in bytes",
			input:    NewUser{Name: "Ann", Email: "ann@example.com", Password: strings.Repeat("é", 37), PasswordConfirm: "x"},
			expected: []string{"Password must be at most 72 bytes long"},
		},
		{
			name:     "bad email",
			input:    NewUser{Name: "Ann", Email: "nope", Password: "secret123", PasswordConfirm: "secret123"},
			expected: []string{"Please provide a valid email"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.input.Validate()
			if tt.expected == nil {
				if err != nil {
					t.Fatalf("expected no error, got %v", err)
				}
				return
			}
			var verr *ValidationError
			if !errors.As(err, &verr) {
				t.Fatalf("expected ValidationError, got %v", err)
			}
			if !reflect.DeepEqual(verr.Messages(), tt.expected) {
				t.Fatalf("expected %v, got %v", tt.expected, verr.Messages())
			}
		})
	}
}

func TestUserValidateRole(t *testing.T) {
	u := &User{Name: "Ann", Email: "ann@example.com", Password: "$2a$hash", Role: "root"}
	var verr *ValidationError
	if err := u.Validate(); !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if verr.Messages()[0] != "Role is either: user, admin" {
		t.Fatalf("unexpected message %q", verr.Messages()[0])
	}

	u.Role = UserRoleAdmin
	if err := u.Validate(); err != nil {
		t.Fatalf("expected admin role to be valid, got %v", err)
	}
}

func TestUserUpdatesValidateModifiedOnly(t *testing.T) {
	if err := (UserUpdates{}).Validate(); err != nil {
		t.Fatalf("expected empty updates to be valid, got %v", err)
	}

	bad := "not-an-email"
	empty := ""
	err := UserUpdates{Email: &bad, Name: &empty}.Validate()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	want := []string{"Please tell us your name", "Please provide a valid email"}
	if !reflect.DeepEqual(verr.Messages(), want) {
		t.Fatalf("expected %v, got %v", want, verr.Messages())
	}
}

func TestUserUpdatesToMap(t *testing.T) {
	token := "hash"
	expires := time.Now()
	m := UserUpdates{PasswordResetToken: &token, PasswordResetExpires: &expires}.ToMap()
	if m["password_reset_token"] != "hash" {
		t.Fatalf("unexpected map %v", m)
	}

	cleared := UserUpdates{PasswordResetToken: &token, ClearPasswordReset: true}.ToMap()
	if v, ok := cleared["password_reset_token"]; !ok || v != nil {
		t.Fatalf("expected reset token to be cleared, got %v", cleared)
	}
	if (UserUpdates{}).IsEmpty() != true {
		t.Fatal("expected empty updates")
	}
}

func TestChangedPasswordAfter(t *testing.T) {
	changed := time.Date(2024, 1, 1, 10, 0, 5, 0, time.UTC)
	u := &User{PasswordChangedAt: &changed}

	if !u.ChangedPasswordAfter(changed.Add(-time.Minute)) {
		t.Fatal("token issued before the change must be stale")
	}
	if u.ChangedPasswordAfter(changed.Add(time.Second)) {
		t.Fatal("token issued after the change must be accepted")
	}
	if (&User{}).ChangedPasswordAfter(changed) {
		t.Fatal("users without a change timestamp never have stale tokens")
	}
}

func TestIsValidEmail(t *testing.T) {
	if !IsValidEmail("Jane.Doe+x@Example.org") {
		t.Fatal("expected valid email")
	}
	for _, bad := range []string{"", "plain", "a@b", "a@b.c"} {
		if IsValidEmail(bad) {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}
