package auth

import (
	"testing"
	"time"
)

const testSecret = "test-signing-secret-at-least-32-bytes-long"

func TestIssueAndValidateToken(t *testing.T) {
	v := NewValidator(testSecret)

	raw, err := v.IssueToken("NODE-ALPHA-operator-1", RoleOperator, "NODE-ALPHA", Secret, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	claims, err := v.ValidateToken(raw)
	if err != nil {
		t.Fatalf("ValidateToken() error: %v", err)
	}

	if claims.Subject != "NODE-ALPHA-operator-1" {
		t.Errorf("Subject = %q, want %q", claims.Subject, "NODE-ALPHA-operator-1")
	}
	if claims.Role != RoleOperator {
		t.Errorf("Role = %q, want %q", claims.Role, RoleOperator)
	}
	if claims.Classification != Secret {
		t.Errorf("Classification = %v, want %v", claims.Classification, Secret)
	}
	if !claims.Has(PermMessageSend) {
		t.Error("operator token should carry message:send")
	}
	if claims.Has(PermNodeManage) {
		t.Error("operator token should not carry node:manage")
	}
	if claims.JTI == "" {
		t.Error("JTI should be populated")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	v := NewValidator(testSecret)
	raw, err := v.IssueToken("sub", RoleOperator, "NODE-ALPHA", Unclassified, -time.Minute)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	if _, err := v.ValidateToken(raw); err == nil {
		t.Error("expected error validating expired token")
	}
}

func TestValidateTokenRejectsBadSignature(t *testing.T) {
	issuer := NewValidator(testSecret)
	raw, err := issuer.IssueToken("sub", RoleOperator, "NODE-ALPHA", Unclassified, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	verifier := NewValidator("a-completely-different-secret-value-32b")
	if _, err := verifier.ValidateToken(raw); err == nil {
		t.Error("expected error validating token signed with a different secret")
	}
}

func TestValidateTokenRejectsMalformed(t *testing.T) {
	v := NewValidator(testSecret)
	if _, err := v.ValidateToken("not-a-jwt"); err == nil {
		t.Error("expected error validating a malformed token")
	}
}
