package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/athebyme/product-composite-platform/pkg/interfaces"
	"github.com/athebyme/product-composite-platform/pkg/logger"
)

func TestGenerateAndValidate(t *testing.T) {
	m, err := NewJWTManager("secret", time.Minute, "test")
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	token, err := m.Generate("user-1", []string{"product:write"})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}

	principal, err := m.ValidateToken(t.Context(), token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if principal.UserID != "user-1" || !m.HasRole(principal, "product:write") || m.HasRole(principal, "other") {
		t.Fatalf("unexpected principal: %+v", principal)
	}

	other, _ := NewJWTManager("another", time.Minute, "test")
	if _, err := other.Validate(token); err != ErrInvalidToken {
		t.Fatalf("expected invalid token, got %v", err)
	}

	expired, _ := NewJWTManager("secret", -time.Minute, "test")
	old, _ := expired.Generate("user-1", nil)
	if _, err := m.Validate(old); err != ErrExpiredToken {
		t.Fatalf("expected expired token, got %v", err)
	}
}

func TestAdminHasEveryRole(t *testing.T) {
	m, _ := NewJWTManager("secret", time.Minute, "test")
	if !m.HasRole(&interfaces.Principal{Roles: []string{RoleAdmin}}, "anything") {
		t.Fatalf("admin must have every role")
	}
	if m.HasRole(nil, "anything") {
		t.Fatalf("nil principal must have no roles")
	}
}

func TestAuthMiddleware(t *testing.T) {
	m, _ := NewJWTManager("secret", time.Minute, "test")
	token, _ := m.Generate("user-1", []string{"writer"})

	var gotUser string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = r.Context().Value(interfaces.UserIDKey).(string)
		w.WriteHeader(http.StatusNoContent)
	})
	handler := AuthMiddleware(m, logger.NewNop())(RequireRole(m, "writer")(next))

	cases := []struct {
		header string
		status int
	}{
		{"", http.StatusUnauthorized},
		{"Basic abc", http.StatusUnauthorized},
		{"Bearer broken", http.StatusUnauthorized},
		{"Bearer " + token, http.StatusNoContent},
	}
	for _, c := range cases {
		req := httptest.NewRequest(http.MethodPost, "/product-composite", nil)
		if c.header != "" {
			req.Header.Set("Authorization", c.header)
		}
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		if rec.Code != c.status {
			t.Fatalf("header %q: got %d want %d", c.header, rec.Code, c.status)
		}
	}
	if gotUser != "user-1" {
		t.Fatalf("user id was not added to context: %q", gotUser)
	}

	reader, _ := m.Generate("user-2", []string{"reader"})
	req := httptest.NewRequest(http.MethodPost, "/product-composite", nil)
	req.Header.Set("Authorization", "Bearer "+reader)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected forbidden, got %d", rec.Code)
	}
}
