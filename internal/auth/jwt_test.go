package auth

import (
	"testing"

	"github.com/schoolpulse/comms/internal/models"
)

func TestVerifyRoundtrip(t *testing.T) {
	v := NewVerifier("test-secret")
	token, err := v.Sign(Principal{
		UserID: "u1",
		Name:   "Officer X",
		Role:   models.RoleFieldOfficer,
		Unit:   "Nilore Sector",
	})
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	p, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.UserID != "u1" || p.Name != "Officer X" || p.Role != models.RoleFieldOfficer || p.Unit != "Nilore Sector" {
		t.Fatalf("unexpected principal: %+v", p)
	}
}

func TestVerifyRejects(t *testing.T) {
	v := NewVerifier("test-secret")
	good, _ := v.Sign(Principal{UserID: "u1"})

	cases := []struct {
		name     string
		verifier *Verifier
		token    string
	}{
		{"empty token", v, ""},
		{"garbage token", v, "not.a.jwt"},
		{"wrong secret", NewVerifier("other-secret"), good},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := tc.verifier.Verify(tc.token); err == nil {
				t.Fatalf("expected verification failure")
			}
		})
	}
}

func TestVerifyRequiresSubject(t *testing.T) {
	v := NewVerifier("test-secret")
	token, _ := v.Sign(Principal{UserID: ""})
	if _, err := v.Verify(token); err == nil {
		t.Fatalf("token without sub must be rejected")
	}
}

func TestUnknownRoleParsesToUnknown(t *testing.T) {
	v := NewVerifier("test-secret")
	token, _ := v.Sign(Principal{UserID: "u1", Role: models.Role("janitor")})
	p, err := v.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.Role != models.RoleUnknown {
		t.Fatalf("role = %q, want RoleUnknown", p.Role)
	}
}
