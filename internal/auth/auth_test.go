package auth

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"qzone-service/internal/domain"
)

func TestIssueAndParseRoundTrip(t *testing.T) {
	svc := NewService("secret", time.Hour)
	token, err := svc.IssueToken(42)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	userID, err := svc.ParseToken(token)
	if err != nil {
		t.Fatalf("parse token: %v", err)
	}
	if userID != 42 {
		t.Fatalf("expected user 42, got %d", userID)
	}
}

func TestParseRejectsForeignSecret(t *testing.T) {
	token, err := NewService("other", time.Hour).IssueToken(42)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	_, err = NewService("secret", time.Hour).ParseToken(token)
	if !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}

func TestMiddlewarePutsCallerInContext(t *testing.T) {
	svc := NewService("secret", time.Hour)
	token, _ := svc.IssueToken(7)

	var got int64
	handler := svc.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = CallerID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if got != 7 {
		t.Fatalf("expected caller 7, got %d", got)
	}
}

func TestMiddlewareRejectsMissingToken(t *testing.T) {
	handler := NewService("secret", time.Hour).Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}
