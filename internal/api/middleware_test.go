package api

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func signedToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign test token: %v", err)
	}
	return token
}

func authedRequest(token string) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestAuthMiddleware_ValidTokenPopulatesContext(t *testing.T) {
	userID := uuid.New()
	token := signedToken(t, testSecret, jwt.MapClaims{
		"sub":   userID.String(),
		"admin": true,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})

	var gotID uuid.UUID
	var gotAdmin bool
	handler := AuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotID, _ = GetUserID(r.Context())
		gotAdmin = IsAdmin(r.Context())
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(token))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gotID != userID {
		t.Fatalf("context carries wrong user id %s", gotID)
	}
	if !gotAdmin {
		t.Fatal("context must carry the admin flag")
	}
}

func TestAuthMiddleware_RejectsBadRequests(t *testing.T) {
	expired := signedToken(t, testSecret, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
	wrongKey := signedToken(t, "other-secret", jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	noSubject := signedToken(t, testSecret, jwt.MapClaims{
		"exp": time.Now().Add(time.Hour).Unix(),
	})

	cases := []struct {
		name  string
		token string
	}{
		{"missing header", ""},
		{"garbage token", "not-a-jwt"},
		{"expired token", expired},
		{"wrong signing key", wrongKey},
		{"missing subject", noSubject},
	}

	handler := AuthMiddleware(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("handler must not be reached")
	}))

	for _, tc := range cases {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, authedRequest(tc.token))
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401, got %d", tc.name, rec.Code)
		}
	}
}

func TestRequireAdmin(t *testing.T) {
	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	plain := signedToken(t, testSecret, jwt.MapClaims{
		"sub": uuid.New().String(),
		"exp": time.Now().Add(time.Hour).Unix(),
	})
	rec := httptest.NewRecorder()
	AuthMiddleware(testSecret)(handler).ServeHTTP(rec, authedRequest(plain))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("non-admin: expected 403, got %d", rec.Code)
	}

	admin := signedToken(t, testSecret, jwt.MapClaims{
		"sub":   uuid.New().String(),
		"admin": true,
		"exp":   time.Now().Add(time.Hour).Unix(),
	})
	rec = httptest.NewRecorder()
	AuthMiddleware(testSecret)(handler).ServeHTTP(rec, authedRequest(admin))
	if rec.Code != http.StatusNoContent {
		t.Fatalf("admin: expected 204, got %d", rec.Code)
	}
}
