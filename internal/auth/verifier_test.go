package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/vedamart/backend/internal/common"
)

var testSecret = []byte("test-secret-key")

func signToken(t *testing.T, subject, role string, expires time.Time) string {
	t.Helper()
	builder := jwt.NewBuilder().
		Subject(subject).
		Issuer("vedamart").
		Expiration(expires)
	if role != "" {
		builder = builder.Claim("role", role)
	}
	token, err := builder.Build()
	if err != nil {
		t.Fatalf("build token: %v", err)
	}
	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return string(signed)
}

func testVerifier() Verifier {
	return Verifier{
		Secret: testSecret,
		Issuer: "vedamart",
		Now:    func() time.Time { return time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC) },
	}
}

func TestParseValidToken(t *testing.T) {
	v := testVerifier()
	token := signToken(t, "user-1", "admin", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	identity, err := v.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if identity.UserID != "user-1" || identity.Role != "admin" {
		t.Fatalf("unexpected identity: %+v", identity)
	}
}

func TestParseExpiredToken(t *testing.T) {
	v := testVerifier()
	token := signToken(t, "user-1", "", time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC))
	if _, err := v.Parse(token); err == nil {
		t.Fatal("expected expired token to be rejected")
	}
}

func TestParseWrongKey(t *testing.T) {
	v := testVerifier()
	v.Secret = []byte("another-secret")
	token := signToken(t, "user-1", "", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC))
	if _, err := v.Parse(token); err == nil {
		t.Fatal("expected signature mismatch to be rejected")
	}
}

func TestRequireAuthMiddleware(t *testing.T) {
	m := Middleware{Verifier: testVerifier()}
	var gotUser string
	handler := m.RequireAuth(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser, _ = common.UserID(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/orders", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}

	req := httptest.NewRequest(http.MethodGet, "/orders", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-9", "", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 with token, got %d", rr.Code)
	}
	if gotUser != "user-9" {
		t.Fatalf("expected user id in context, got %q", gotUser)
	}
}

func TestRequireAdminMiddleware(t *testing.T) {
	m := Middleware{Verifier: testVerifier()}
	handler := m.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/admin/coupons", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "user-9", "", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rr.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/admin/coupons", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t, "admin-1", "admin", time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)))
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rr.Code)
	}
}
