package auth

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestAuthenticateNoHeaderPassesThrough(t *testing.T) {
	v := NewValidator(testSecret)
	called := false
	h := Authenticate(v, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
		if FromContext(r.Context()) != nil {
			t.Error("expected no claims in context without an Authorization header")
		}
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/nodes", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if !called {
		t.Error("next handler should run when no Authorization header is present")
	}
}

func TestAuthenticateValidToken(t *testing.T) {
	v := NewValidator(testSecret)
	raw, err := v.IssueToken("NODE-ALPHA-operator-1", RoleOperator, "NODE-ALPHA", Unclassified, time.Hour)
	if err != nil {
		t.Fatalf("IssueToken() error: %v", err)
	}

	var gotClaims *Claims
	h := Authenticate(v, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotClaims = FromContext(r.Context())
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/nodes", nil)
	r.Header.Set("Authorization", "Bearer "+raw)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if gotClaims == nil {
		t.Fatal("expected claims to be attached to context")
	}
	if gotClaims.Role != RoleOperator {
		t.Errorf("Role = %q, want %q", gotClaims.Role, RoleOperator)
	}
}

func TestAuthenticateRejectsNonBearerScheme(t *testing.T) {
	v := NewValidator(testSecret)
	h := Authenticate(v, testLogger())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("next handler should not run")
	}))

	r := httptest.NewRequest(http.MethodGet, "/api/v1/nodes", nil)
	r.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)

	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", w.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuth(t *testing.T) {
	h := RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	r := httptest.NewRequest(http.MethodGet, "/", nil)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status without claims = %d, want %d", w.Code, http.StatusUnauthorized)
	}

	r = httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(NewContext(r.Context(), &Claims{Subject: "s"}))
	w = httptest.NewRecorder()
	h.ServeHTTP(w, r)
	if w.Code != http.StatusOK {
		t.Errorf("status with claims = %d, want %d", w.Code, http.StatusOK)
	}
}

func TestRequirePermission(t *testing.T) {
	h := RequirePermission(PermNodeManage)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name   string
		claims *Claims
		want   int
	}{
		{"no claims", nil, http.StatusUnauthorized},
		{"operator lacks node:manage", &Claims{Role: RoleOperator, Permissions: PermissionsForRole(RoleOperator)}, http.StatusForbidden},
		{"admin has node:manage", &Claims{Role: RoleAdmin, Permissions: PermissionsForRole(RoleAdmin)}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/api/v1/queue/flush", nil)
			if tt.claims != nil {
				r = r.WithContext(NewContext(r.Context(), tt.claims))
			}
			w := httptest.NewRecorder()
			h.ServeHTTP(w, r)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
		})
	}
}
